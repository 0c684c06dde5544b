package acquire

import (
	"fmt"
	"runtime"

	"github.com/glasspane/glasspane/backend"
)

// Archive is one downloadable artifact for a single platform.
type Archive struct {
	URL string
	// SHA256 pins the archive digest when known. Empty disables the check.
	SHA256 string
}

// Assets describes a second artifact a bundle needs at runtime, such as codec plugins.
type Assets struct {
	// Archives are keyed by "GOOS/GOARCH".
	Archives map[string]Archive
	// Subdir is where the bundle's runtime expects the assets, relative to the bundle root.
	Subdir string
	// SearchName is the directory name looked up inside the extracted assets archive.
	SearchName string
}

// SystemLocation is a library installed outside the app-private cache, for example by a package manager.
type SystemLocation struct {
	Library string
	Assets  string
}

// Manifest is the static description of a plugin backend: where to fetch it and how its bundle is laid out.
type Manifest struct {
	Backend backend.Kind
	Version string

	// Archives are keyed by "GOOS/GOARCH".
	Archives map[string]Archive

	// Bundle is the name of the bundle root directory, both inside the archive and once installed.
	Bundle string
	// LibraryPaths are candidate locations of the core library relative to the bundle root, checked in order.
	LibraryPaths []string
	// LibraryNames are file names used for the recursive fallback search in an extracted archive.
	LibraryNames []string

	Assets          *Assets
	SystemLocations []SystemLocation

	// MinDownloadSize overrides the installer's sanity threshold when set.
	MinDownloadSize int64

	// Environment lists extra variables set before the first load. Values may reference
	// {bundle} and {assets}.
	Environment map[string]string
}

// Platform returns the manifest key of the running process.
func Platform() string {
	return runtime.GOOS + "/" + runtime.GOARCH
}

// ArchiveFor selects the core archive of a platform.
func (m Manifest) ArchiveFor(platform string) (Archive, error) {
	a, ok := m.Archives[platform]
	if !ok {
		return Archive{}, fmt.Errorf("%s plugin is not available for %s", m.Backend, platform)
	}
	return a, nil
}

// AssetsFor selects the assets archive of a platform.
func (m Manifest) AssetsFor(platform string) (Archive, error) {
	if m.Assets == nil {
		return Archive{}, fmt.Errorf("%s plugin has no assets", m.Backend)
	}
	a, ok := m.Assets.Archives[platform]
	if !ok {
		return Archive{}, fmt.Errorf("%s plugin assets are not available for %s", m.Backend, platform)
	}
	return a, nil
}

const releases = "https://github.com/glasspane/plugins/releases/download/"

// MPV describes the libmpv render-loop plugin.
func MPV() Manifest {
	const version = "0.39.0"
	base := releases + "mpv-" + version + "/libmpv-"
	return Manifest{
		Backend: backend.RenderLoop,
		Version: version,
		Archives: map[string]Archive{
			"darwin/arm64": {URL: base + "macos-arm64.zip"},
			"darwin/amd64": {URL: base + "macos-x86_64.zip"},
			"linux/arm64":  {URL: base + "linux-aarch64.tar.gz"},
			"linux/amd64":  {URL: base + "linux-x86_64.tar.gz"},
		},
		Bundle: "libmpv",
		LibraryPaths: []string{
			"lib/libmpv.2.dylib",
			"lib/libmpv.dylib",
			"libmpv.2.dylib",
			"lib/libmpv.so.2",
			"lib/libmpv.so",
		},
		LibraryNames: []string{"libmpv.2.dylib", "libmpv.dylib", "libmpv.so.2", "libmpv.so"},
		SystemLocations: []SystemLocation{
			{Library: "/opt/homebrew/lib/libmpv.2.dylib"},
			{Library: "/usr/local/lib/libmpv.2.dylib"},
			{Library: "/Applications/IINA.app/Contents/Frameworks/libmpv.2.dylib"},
			{Library: "/usr/lib/x86_64-linux-gnu/libmpv.so.2"},
			{Library: "/usr/lib/aarch64-linux-gnu/libmpv.so.2"},
			{Library: "/usr/lib64/libmpv.so.2"},
			{Library: "/usr/lib/libmpv.so.2"},
		},
	}
}

// VLC describes the libVLC shim plugin. Its codec modules ship as a separate assets archive.
func VLC() Manifest {
	const version = "3.0.21"
	base := releases + "vlc-" + version + "/"
	return Manifest{
		Backend: backend.Shim,
		Version: version,
		Archives: map[string]Archive{
			"darwin/arm64": {URL: base + "libvlc-macos-arm64.zip"},
			"darwin/amd64": {URL: base + "libvlc-macos-x86_64.zip"},
			"linux/amd64":  {URL: base + "libvlc-linux-x86_64.tar.gz"},
		},
		Bundle: "libvlc",
		LibraryPaths: []string{
			"lib/libvlc.dylib",
			"lib/libvlc.5.dylib",
			"libvlc.dylib",
			"lib/libvlc.so.5",
			"lib/libvlc.so",
		},
		LibraryNames: []string{"libvlc.dylib", "libvlc.5.dylib", "libvlc.so.5", "libvlc.so"},
		Assets: &Assets{
			Archives: map[string]Archive{
				"darwin/arm64": {URL: base + "vlc-plugins-macos-arm64.zip"},
				"darwin/amd64": {URL: base + "vlc-plugins-macos-x86_64.zip"},
				"linux/amd64":  {URL: base + "vlc-plugins-linux-x86_64.tar.gz"},
			},
			Subdir:     "plugins",
			SearchName: "plugins",
		},
		SystemLocations: []SystemLocation{
			{Library: "/Applications/VLC.app/Contents/MacOS/lib/libvlc.dylib", Assets: "/Applications/VLC.app/Contents/MacOS/plugins"},
			{Library: "/usr/lib/x86_64-linux-gnu/libvlc.so.5", Assets: "/usr/lib/x86_64-linux-gnu/vlc/plugins"},
			{Library: "/usr/lib64/libvlc.so.5", Assets: "/usr/lib64/vlc/plugins"},
		},
		Environment: map[string]string{
			"VLC_PLUGIN_PATH": "{assets}",
		},
	}
}

// DefaultManifests returns the manifests of every plugin backend.
func DefaultManifests() map[backend.Kind]Manifest {
	return map[backend.Kind]Manifest{
		backend.RenderLoop: MPV(),
		backend.Shim:       VLC(),
	}
}
