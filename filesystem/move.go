package filesystem

import (
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// Move relocates a file or directory tree. Native filesystems rename in place;
// other backends copy the tree and remove the source.
func Move(fs afero.Fs, src, dst string) error {
	if IsNative(fs) {
		return fs.Rename(src, dst)
	}

	err := afero.Walk(fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if info.IsDir() {
			return fs.MkdirAll(target, info.Mode().Perm()|0o700)
		}
		return copyFile(fs, path, target, info.Mode())
	})
	if err != nil {
		return err
	}
	return fs.RemoveAll(src)
}

func copyFile(fs afero.Fs, src, dst string, mode os.FileMode) error {
	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := fs.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
