package filesystem

import (
	"io"
	"os"

	"github.com/spf13/afero"
)

// GacheFs adapts an afero filesystem to the gache.FileSystem interface.
// A zero value follows the swappable global backend.
type GacheFs struct {
	Fs afero.Fs
}

func (g GacheFs) fs() afero.Fs {
	if g.Fs != nil {
		return g.Fs
	}
	return API().Fs
}

// OpenFile opens a file using the configured filesystem backend.
func (g GacheFs) OpenFile(name string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	return g.fs().OpenFile(name, flag, perm)
}

// MkdirAll creates a directory using the configured filesystem backend.
func (g GacheFs) MkdirAll(path string, perm os.FileMode) error {
	return g.fs().MkdirAll(path, perm)
}
