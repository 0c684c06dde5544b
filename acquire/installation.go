package acquire

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/glasspane/glasspane/log"
	"github.com/glasspane/glasspane/version"
	"github.com/samber/mo"
	"github.com/spf13/afero"
)

// Location is a loadable copy of a backend's core library.
type Location struct {
	Library string
	// Assets is the directory of runtime assets, empty when the backend has none.
	Assets string
	// Bundle is the directory holding the library's sibling dependencies.
	Bundle string
	// System reports a copy found outside the app-private cache.
	System bool
}

// Installation answers whether a plugin backend is installed and where its library lives.
// App-private copies always win over system-wide ones.
type Installation struct {
	fs       afero.Fs
	manifest Manifest
	root     string

	mu     sync.Mutex
	cached mo.Option[Location]
}

// NewInstallation describes the install state of manifest under root, the backend's cache directory.
func NewInstallation(fs afero.Fs, root string, manifest Manifest) *Installation {
	return &Installation{fs: fs, manifest: manifest, root: root}
}

func (i *Installation) Manifest() Manifest {
	return i.manifest
}

// Directory is the backend's cache directory. It exists only while the backend is installed.
func (i *Installation) Directory() string {
	return i.root
}

// BundleDirectory is the installed bundle root.
func (i *Installation) BundleDirectory() string {
	return filepath.Join(i.root, i.manifest.Bundle)
}

// AssetsDirectory is where runtime assets are installed, empty when the manifest has none.
func (i *Installation) AssetsDirectory() string {
	if i.manifest.Assets == nil {
		return ""
	}
	return filepath.Join(i.BundleDirectory(), i.manifest.Assets.Subdir)
}

// BundlePresent reports whether the app-private bundle holds the core library.
func (i *Installation) BundlePresent() bool {
	_, ok := i.bundleLibrary()
	return ok
}

// AssetsPresent reports whether the bundle's runtime assets are in place. It is true for
// backends without assets.
func (i *Installation) AssetsPresent() bool {
	if i.manifest.Assets == nil {
		return true
	}
	return nonEmptyDir(i.fs, i.AssetsDirectory())
}

// Installed reports whether a usable copy of the library exists.
// A bundle whose required assets are missing does not count.
func (i *Installation) Installed() bool {
	return i.Locate().IsPresent()
}

// LibraryPath returns the absolute path of the core library.
func (i *Installation) LibraryPath() mo.Option[string] {
	loc, ok := i.Locate().Get()
	if !ok {
		return mo.None[string]()
	}
	return mo.Some(loc.Library)
}

// Locate searches the app-private bundle first and then the system locations.
// Positive results are memoized until Invalidate.
func (i *Installation) Locate() mo.Option[Location] {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.cached.IsPresent() {
		return i.cached
	}

	if loc, ok := i.locatePrivate(); ok {
		i.cached = mo.Some(loc)
		return i.cached
	}

	if loc, ok := i.locateSystem(); ok {
		i.cached = mo.Some(loc)
		return i.cached
	}

	return mo.None[Location]()
}

// Invalidate drops the memoized library path.
func (i *Installation) Invalidate() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.cached = mo.None[Location]()
}

func (i *Installation) locatePrivate() (Location, bool) {
	lib, ok := i.bundleLibrary()
	if !ok {
		return Location{}, false
	}

	if !i.AssetsPresent() {
		log.With(log.Fields{"backend": i.manifest.Backend.Name()}).Debugf("bundle present without assets at %s", i.AssetsDirectory())
		return Location{}, false
	}

	return Location{Library: lib, Assets: i.AssetsDirectory(), Bundle: filepath.Dir(lib)}, true
}

func (i *Installation) bundleLibrary() (string, bool) {
	root := i.BundleDirectory()
	for _, rel := range i.manifest.LibraryPaths {
		path := filepath.Join(root, rel)
		if isFile(i.fs, path) {
			return path, true
		}
	}
	return "", false
}

func (i *Installation) locateSystem() (Location, bool) {
	for _, sys := range i.manifest.SystemLocations {
		if !isFile(i.fs, sys.Library) {
			continue
		}
		if i.manifest.Assets != nil && !nonEmptyDir(i.fs, sys.Assets) {
			continue
		}
		return Location{Library: sys.Library, Assets: sys.Assets, Bundle: filepath.Dir(sys.Library), System: true}, true
	}
	return Location{}, false
}

// Receipt returns the record written by the last successful install.
func (i *Installation) Receipt() (*Receipt, bool) {
	return readReceipt(i.fs, i.root)
}

// Outdated reports whether the installed bundle predates the manifest's version.
// System copies and installs without a receipt are never outdated.
func (i *Installation) Outdated() bool {
	r, ok := i.Receipt()
	if !ok {
		return false
	}
	cmp, err := version.Compare(r.Version, i.manifest.Version)
	if err != nil {
		return r.Version != i.manifest.Version
	}
	return cmp < 0
}

// Environment expands the manifest's extra variables against a location.
func (i *Installation) Environment(loc Location) map[string]string {
	if len(i.manifest.Environment) == 0 {
		return nil
	}

	r := strings.NewReplacer("{bundle}", loc.Bundle, "{assets}", loc.Assets)
	env := make(map[string]string, len(i.manifest.Environment))
	for k, v := range i.manifest.Environment {
		env[k] = r.Replace(v)
	}
	return env
}

func isFile(fs afero.Fs, path string) bool {
	if path == "" {
		return false
	}
	info, err := fs.Stat(path)
	return err == nil && !info.IsDir()
}

func nonEmptyDir(fs afero.Fs, path string) bool {
	if path == "" {
		return false
	}
	empty, err := afero.IsEmpty(fs, path)
	if err != nil {
		return false
	}
	isDir, _ := afero.IsDir(fs, path)
	return isDir && !empty
}
