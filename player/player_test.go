package player

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/glasspane/glasspane/acquire"
	"github.com/glasspane/glasspane/backend"
	"github.com/glasspane/glasspane/dynlib"
	"github.com/glasspane/glasspane/engine/mpv"
	"github.com/glasspane/glasspane/mainloop"
	"github.com/glasspane/glasspane/metadata"
	"github.com/glasspane/glasspane/registry"
	"github.com/glasspane/glasspane/router"
	"github.com/glasspane/glasspane/session"
	"github.com/samber/lo"
	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/afero"
)

const (
	testRoot     = "/cache/plugins"
	testPlatform = "test/arch"
)

type memoryPreferences map[backend.Kind]bool

func (m memoryPreferences) Enabled(kind backend.Kind) bool { return !kind.IsPlugin() || m[kind] }

func (m memoryPreferences) SetEnabled(kind backend.Kind, enabled bool) error {
	m[kind] = enabled
	return nil
}

type payloadDownloader struct{}

func (payloadDownloader) Download(_ context.Context, url string, w io.Writer, progress func(done, total int64)) (int64, error) {
	n, err := io.Copy(w, strings.NewReader("archive "+url))
	progress(n, n)
	return n, err
}

// bundleExtractor lays out a libmpv bundle whatever the archive holds.
type bundleExtractor struct {
	fs afero.Fs
}

func (e bundleExtractor) Extract(_ context.Context, _, dest string) error {
	return afero.WriteFile(e.fs, filepath.Join(dest, "libmpv", "lib", "libmpv.so"), []byte("ELF"), 0o755)
}

type nopRelinker struct{}

func (nopRelinker) Relink(context.Context, string) error { return nil }

type nopQuarantine struct{}

func (nopQuarantine) Clear(context.Context, string) error { return nil }

// stubDriver accepts every source.
type stubDriver struct {
	kind   backend.Kind
	closed int
}

func (d *stubDriver) Kind() backend.Kind                      { return d.kind }
func (d *stubDriver) Open(session.Source, session.Sink) error { return nil }
func (d *stubDriver) Play() error                             { return nil }
func (d *stubDriver) Pause() error                            { return nil }
func (d *stubDriver) Seek(float64, bool) error                { return nil }
func (d *stubDriver) SetVolume(float64) error                 { return nil }
func (d *stubDriver) SetMuted(bool) error                     { return nil }
func (d *stubDriver) Metadata() (metadata.Values, error)      { return metadata.Values{}, nil }

func (d *stubDriver) Close() error {
	d.closed++
	return nil
}

func testManifests() map[backend.Kind]acquire.Manifest {
	return map[backend.Kind]acquire.Manifest{
		backend.RenderLoop: {
			Backend:         backend.RenderLoop,
			Version:         "0.39.0",
			Archives:        map[string]acquire.Archive{testPlatform: {URL: "https://plugins.invalid/libmpv.tar.gz"}},
			Bundle:          "libmpv",
			LibraryPaths:    []string{"lib/libmpv.so"},
			LibraryNames:    []string{"libmpv.so"},
			MinDownloadSize: 1,
		},
	}
}

type harness struct {
	fs      afero.Fs
	loader  *dynlib.Fake
	prefs   memoryPreferences
	loop    *mainloop.Manual
	opened  map[backend.Kind]int
	drivers map[backend.Kind]*stubDriver
}

func newHarness() *harness {
	h := &harness{
		fs:      afero.NewMemMapFs(),
		loader:  dynlib.NewFake(),
		prefs:   memoryPreferences{},
		loop:    mainloop.NewManual(),
		opened:  map[backend.Kind]int{},
		drivers: map[backend.Kind]*stubDriver{},
	}
	h.loader.Provide(filepath.Join(testRoot, "mpv", "libmpv", "lib", "libmpv.so"), mpv.Symbols...)
	return h
}

func (h *harness) player() *Player {
	factory := func(kind backend.Kind) DriverFactory {
		return func() (session.Driver, error) {
			h.opened[kind]++
			d := &stubDriver{kind: kind}
			h.drivers[kind] = d
			return d, nil
		}
	}
	return New(Options{
		Loop:        h.loop,
		Fs:          h.fs,
		Root:        testRoot,
		Loader:      h.loader,
		Preferences: h.prefs,
		Environment: registry.MapEnvironment{},
		Manifests:   testManifests(),
		Install: acquire.Options{
			Downloader: payloadDownloader{},
			Extractor:  bundleExtractor{fs: h.fs},
			Quarantine: nopQuarantine{},
			Relinker:   nopRelinker{},
			Platform:   testPlatform,
		},
		Drivers: Drivers{
			backend.Native:     factory(backend.Native),
			backend.RenderLoop: factory(backend.RenderLoop),
		},
	})
}

func (h *harness) install(p *Player) mo.Result[*acquire.Receipt] {
	var result mo.Result[*acquire.Receipt]
	finished := false
	So(p.Install(context.Background(), backend.RenderLoop, nil, func(r mo.Result[*acquire.Receipt]) {
		result = r
		finished = true
	}), ShouldBeNil)
	So(h.loop.FlushUntil(func() bool { return finished }, 5*time.Second), ShouldBeTrue)
	return result
}

func TestRouting(t *testing.T) {
	Convey("Given a player with no plugin installed", t, func() {
		h := newHarness()
		p := h.player()

		Convey("Native formats should open on the native backend", func() {
			So(p.Open(session.Source{URL: "/media/clip.mp4"}), ShouldBeNil)
			So(h.opened[backend.Native], ShouldEqual, 1)
			So(p.Session().State().State, ShouldEqual, session.Loading)
		})

		Convey("Plugin formats should fail before any driver is built", func() {
			err := p.Open(session.Source{URL: "https://cdn.example.com/clip.MKV?token=1"})
			So(errors.Is(err, router.ErrUnsupportedFormat), ShouldBeTrue)
			So(h.opened, ShouldBeEmpty)
			So(p.Session().State().State, ShouldEqual, session.Empty)
		})

		Convey("A missing framework binding should surface as an open failure", func() {
			bare := New(Options{
				Loop:        h.loop,
				Fs:          h.fs,
				Root:        testRoot,
				Loader:      h.loader,
				Preferences: h.prefs,
				Environment: registry.MapEnvironment{},
				Manifests:   testManifests(),
			})
			err := bare.Open(session.Source{URL: "/media/clip.mov"})
			So(errors.Is(err, session.ErrPlaybackOpenFailed), ShouldBeTrue)
		})

		Convey("Forcing a plugin that is not ready should fail", func() {
			err := p.OpenOn(backend.RenderLoop, session.Source{URL: "/media/clip.mp4"})
			So(errors.Is(err, router.ErrUnsupportedFormat), ShouldBeTrue)
			So(h.opened, ShouldBeEmpty)
		})

		Convey("Unknown backends should be refused", func() {
			_, err := p.Installer(backend.Shim)
			So(errors.Is(err, registry.ErrUnknownBackend), ShouldBeTrue)
		})
	})
}

func TestPluginLifecycle(t *testing.T) {
	Convey("Given an enabled but uninstalled render-loop plugin", t, func() {
		h := newHarness()
		h.prefs[backend.RenderLoop] = true
		p := h.player()
		So(p.Start(), ShouldBeNil)
		So(p.Registry().Ready(backend.RenderLoop), ShouldBeFalse)

		Convey("Installing should verify, then load it", func() {
			result := h.install(p)
			So(result.IsOk(), ShouldBeTrue)
			So(result.MustGet().Version, ShouldEqual, "0.39.0")
			So(p.Registry().Ready(backend.RenderLoop), ShouldBeTrue)

			kind, err := p.Route("/media/clip.webm")
			So(err, ShouldBeNil)
			So(kind, ShouldEqual, backend.RenderLoop)

			Convey("A restarted player should find and load it again", func() {
				So(p.Shutdown(), ShouldBeNil)
				So(h.loader.Handles(), ShouldEqual, 0)

				restarted := h.player()
				So(restarted.Registry().Ready(backend.RenderLoop), ShouldBeFalse)
				So(restarted.Start(), ShouldBeNil)
				So(restarted.Registry().Ready(backend.RenderLoop), ShouldBeTrue)
			})

			Convey("A native format can be forced onto the plugin", func() {
				So(p.OpenOn(backend.RenderLoop, session.Source{URL: "/media/clip.mp4"}), ShouldBeNil)
				So(h.opened[backend.RenderLoop], ShouldEqual, 1)
				So(h.opened[backend.Native], ShouldEqual, 0)
			})

			Convey("Files removed behind the installer's back should close the source", func() {
				So(p.Open(session.Source{URL: "/media/clip.webm"}), ShouldBeNil)

				installer := lo.Must(p.Installer(backend.RenderLoop))
				So(h.fs.RemoveAll(installer.Installation().Directory()), ShouldBeNil)
				installer.Installation().Invalidate()
				p.removed(backend.RenderLoop)

				So(h.drivers[backend.RenderLoop].closed, ShouldEqual, 1)
				So(p.Registry().Loaded(backend.RenderLoop), ShouldBeFalse)
			})

			Convey("Uninstalling should close a source playing on it", func() {
				So(p.Open(session.Source{URL: "/media/clip.webm"}), ShouldBeNil)
				So(h.opened[backend.RenderLoop], ShouldEqual, 1)

				So(p.Uninstall(backend.RenderLoop), ShouldBeNil)
				So(h.drivers[backend.RenderLoop].closed, ShouldEqual, 1)
				So(p.Registry().Installed(backend.RenderLoop), ShouldBeFalse)
				So(p.Registry().Loaded(backend.RenderLoop), ShouldBeFalse)

				_, err := p.Route("/media/clip.webm")
				So(errors.Is(err, router.ErrUnsupportedFormat), ShouldBeTrue)

				Convey("and uninstalling again should be harmless", func() {
					So(p.Uninstall(backend.RenderLoop), ShouldBeNil)
				})
			})
		})

		Convey("A disabled plugin should install without loading", func() {
			h.prefs[backend.RenderLoop] = false
			So(h.install(p).IsOk(), ShouldBeTrue)
			So(p.Registry().Installed(backend.RenderLoop), ShouldBeTrue)
			So(p.Registry().Loaded(backend.RenderLoop), ShouldBeFalse)

			So(p.Registry().SetEnabled(backend.RenderLoop, true), ShouldBeNil)
			So(p.Registry().TryLoad(backend.RenderLoop), ShouldBeNil)
			So(p.Registry().Ready(backend.RenderLoop), ShouldBeTrue)
		})

		Convey("A library missing symbols should fail verification and leave nothing behind", func() {
			h.loader.Provide(filepath.Join(testRoot, "mpv", "libmpv", "lib", "libmpv.so"), "mpv_create")
			result := h.install(p)
			So(result.IsError(), ShouldBeTrue)
			So(errors.Is(result.Error(), acquire.ErrVerificationFailed), ShouldBeTrue)
			exists, _ := afero.DirExists(h.fs, filepath.Join(testRoot, "mpv"))
			So(exists, ShouldBeFalse)
		})
	})
}
