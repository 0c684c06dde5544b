package acquire

import (
	"path/filepath"
	"time"

	"github.com/glasspane/glasspane/filesystem"
	"github.com/metafates/gache"
	"github.com/spf13/afero"
)

// Receipt records what was installed into a backend's cache directory.
type Receipt struct {
	Backend     string    `json:"backend"`
	Version     string    `json:"version"`
	Platform    string    `json:"platform"`
	Source      string    `json:"source"`
	SHA256      string    `json:"sha256"`
	Assets      string    `json:"assets,omitempty"`
	InstalledAt time.Time `json:"installed_at"`
}

const receiptFile = "receipt.json"

func receiptCache(fs afero.Fs, dir string) *gache.Cache[*Receipt] {
	return gache.New[*Receipt](&gache.Options{
		Path:       filepath.Join(dir, receiptFile),
		FileSystem: &filesystem.GacheFs{Fs: fs},
	})
}

func readReceipt(fs afero.Fs, dir string) (*Receipt, bool) {
	if exists, _ := afero.Exists(fs, filepath.Join(dir, receiptFile)); !exists {
		return nil, false
	}

	r, _, err := receiptCache(fs, dir).Get()
	if err != nil || r == nil {
		return nil, false
	}
	return r, true
}

func writeReceipt(fs afero.Fs, dir string, r *Receipt) error {
	return receiptCache(fs, dir).Set(r)
}
