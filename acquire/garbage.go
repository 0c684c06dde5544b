package acquire

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glasspane/glasspane/log"
	"github.com/spf13/afero"
)

const scratchPrefix = ".scratch-"

// ScratchTTL is how old a scratch directory must be before it counts as abandoned.
// Younger ones may belong to an install running in another process.
const ScratchTTL = 24 * time.Hour

// CollectGarbage removes scratch directories that interrupted installs left under the plugin
// root and returns how many it removed.
func CollectGarbage(fs afero.Fs, root string, now time.Time) int {
	backends, err := afero.ReadDir(fs, root)
	if err != nil {
		return 0
	}

	removed := 0
	for _, b := range backends {
		if !b.IsDir() {
			continue
		}

		dir := filepath.Join(root, b.Name())
		entries, err := afero.ReadDir(fs, dir)
		if err != nil {
			continue
		}

		for _, e := range entries {
			if !e.IsDir() || !strings.HasPrefix(e.Name(), scratchPrefix) || now.Sub(e.ModTime()) <= ScratchTTL {
				continue
			}
			path := filepath.Join(dir, e.Name())
			if err := fs.RemoveAll(path); err != nil && !os.IsNotExist(err) {
				log.Warnf("remove stale scratch %s: %v", path, err)
				continue
			}
			removed++
		}
	}
	return removed
}
