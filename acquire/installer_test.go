package acquire

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/glasspane/glasspane/mainloop"
	"github.com/samber/mo"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/afero"
)

const pluginDir = "/cache/plugins/mpv"

func TestInstall(t *testing.T) {
	Convey("Given a plugin archive server", t, func() {
		fs := afero.NewMemMapFs()
		bodies := map[string]string{
			"/core.zip": "bundle",
		}
		srv := archiveServer(bodies)
		Reset(srv.Close)

		manifest := testManifest(srv.URL)
		extractor := &layoutExtractor{fs: fs, fail: "corrupt", layouts: map[string]map[string]string{
			"bundle": {
				"libmpv/lib/libmpv.2.dylib":   "mach-o",
				"libmpv/lib/libavcodec.dylib": "mach-o",
			},
			"flat": {
				"release/lib/libmpv.2.dylib": "mach-o",
			},
			"empty": {
				"README": "nothing here",
			},
		}}
		verifier := &fakeVerifier{}
		relinker := &fakeRelinker{}

		newInstaller := func(m Manifest) *Installer {
			installation := NewInstallation(fs, pluginDir, m)
			return NewInstaller(installation, Options{
				Downloader:      HTTPDownloader{Client: srv.Client()},
				Extractor:       extractor,
				Quarantine:      nopQuarantine{},
				Relinker:        relinker,
				Verifier:        verifier,
				Platform:        testPlatform,
				MinDownloadSize: 1,
			})
		}

		Convey("A successful install should leave a loadable bundle and a receipt", func() {
			installer := newInstaller(manifest)
			var fractions []float64
			receipt, err := installer.Install(context.Background(), func(f float64, _ string) {
				fractions = append(fractions, f)
			})

			So(err, ShouldBeNil)
			So(receipt.Version, ShouldEqual, "0.39.0")
			So(receipt.SHA256, ShouldHaveLength, 64)

			want := filepath.Join(pluginDir, "libmpv", "lib", "libmpv.2.dylib")
			So(installer.Installation().Installed(), ShouldBeTrue)
			So(installer.Installation().LibraryPath().MustGet(), ShouldEqual, want)
			So(verifier.paths, ShouldResemble, []string{want})
			So(relinker.roots, ShouldResemble, []string{filepath.Join(pluginDir, "libmpv")})
			So(fractions[len(fractions)-1], ShouldEqual, 1)

			entries, err := afero.ReadDir(fs, pluginDir)
			So(err, ShouldBeNil)
			names := make([]string, 0, len(entries))
			for _, e := range entries {
				names = append(names, e.Name())
			}
			So(names, ShouldResemble, []string{"libmpv", receiptFile})

			Convey("and survive a restart", func() {
				restarted := NewInstallation(fs, pluginDir, manifest)
				So(restarted.Installed(), ShouldBeTrue)
				r, ok := restarted.Receipt()
				So(ok, ShouldBeTrue)
				So(r.Source, ShouldEqual, srv.URL+"/core.zip")
				So(restarted.Outdated(), ShouldBeFalse)
			})

			Convey("and become outdated when the manifest moves on", func() {
				newer := manifest
				newer.Version = "0.40.0"
				So(NewInstallation(fs, pluginDir, newer).Outdated(), ShouldBeTrue)
			})
		})

		Convey("An archive without the bundle directory should be found by library name", func() {
			bodies["/core.zip"] = "flat"
			installer := newInstaller(manifest)
			_, err := installer.Install(context.Background(), nil)
			So(err, ShouldBeNil)
			So(installer.Installation().LibraryPath().MustGet(), ShouldEqual, filepath.Join(pluginDir, "libmpv", "lib", "libmpv.2.dylib"))
		})

		failures := []struct {
			name    string
			prepare func(*Installer)
			want    error
		}{
			{"a missing archive", func(*Installer) { delete(bodies, "/core.zip") }, ErrDownloadFailed},
			{"an undersized archive", func(i *Installer) { i.opts.MinDownloadSize = 1 << 20 }, ErrDownloadFailed},
			{"a checksum mismatch", func(i *Installer) {
				i.installation.manifest.Archives[testPlatform] = Archive{URL: srv.URL + "/core.zip", SHA256: "deadbeef"}
			}, ErrDownloadFailed},
			{"a corrupt archive", func(*Installer) { bodies["/core.zip"] = "corrupt" }, ErrExtractFailed},
			{"an archive without the library", func(*Installer) { bodies["/core.zip"] = "empty" }, ErrBundleNotFound},
			{"a library that fails to load", func(*Installer) { verifier.err = errVerify }, ErrVerificationFailed},
		}

		for _, tc := range failures {
			Convey("Installing "+tc.name+" should roll back completely", func() {
				So(afero.WriteFile(fs, filepath.Join(pluginDir, "stale"), []byte("old"), 0o644), ShouldBeNil)

				m := testManifest(srv.URL)
				installer := newInstaller(m)
				tc.prepare(installer)

				_, err := installer.Install(context.Background(), nil)
				So(errors.Is(err, tc.want), ShouldBeTrue)

				exists, _ := afero.Exists(fs, pluginDir)
				So(exists, ShouldBeFalse)
				So(installer.Installation().Installed(), ShouldBeFalse)
			})
		}

		Convey("A cancelled install should roll back", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			_, err := newInstaller(manifest).Install(ctx, nil)
			So(err, ShouldNotBeNil)
			exists, _ := afero.Exists(fs, pluginDir)
			So(exists, ShouldBeFalse)
		})

		Convey("Start should deliver the result on the loop", func() {
			loop := mainloop.NewManual()
			var result mo.Option[mo.Result[*Receipt]]
			var progressed bool

			newInstaller(manifest).Start(context.Background(), loop, func(float64, string) {
				progressed = true
			}, func(r mo.Result[*Receipt]) {
				result = mo.Some(r)
			})

			So(loop.FlushUntil(func() bool { return result.IsPresent() }, 5*time.Second), ShouldBeTrue)
			So(result.MustGet().IsOk(), ShouldBeTrue)
			So(progressed, ShouldBeTrue)
		})
	})
}

func TestInstallAssets(t *testing.T) {
	Convey("Given a plugin that ships assets separately", t, func() {
		fs := afero.NewMemMapFs()
		bodies := map[string]string{
			"/core.zip":   "bundle",
			"/assets.zip": "assets",
		}
		srv := archiveServer(bodies)
		Reset(srv.Close)

		manifest := testAssetsManifest(srv.URL)
		extractor := &layoutExtractor{fs: fs, layouts: map[string]map[string]string{
			"bundle": {"libvlc/lib/libvlc.dylib": "mach-o", "libvlc/lib/libvlccore.dylib": "mach-o"},
			"assets": {"vlc/plugins/codec/libavcodec_plugin.dylib": "mach-o"},
			"wrong":  {"vlc/modules/libavcodec_plugin.dylib": "mach-o"},
		}}

		dir := "/cache/plugins/vlc"
		installer := NewInstaller(NewInstallation(fs, dir, manifest), Options{
			Downloader:      HTTPDownloader{Client: srv.Client()},
			Extractor:       extractor,
			Quarantine:      nopQuarantine{},
			Relinker:        NopRelinker{},
			Verifier:        &fakeVerifier{},
			Platform:        testPlatform,
			MinDownloadSize: 1,
		})

		Convey("Both archives should be installed into the bundle", func() {
			receipt, err := installer.Install(context.Background(), nil)
			So(err, ShouldBeNil)
			So(receipt.Assets, ShouldEqual, srv.URL+"/assets.zip")

			installation := installer.Installation()
			assets := filepath.Join(dir, "libvlc", "plugins")
			So(installation.AssetsDirectory(), ShouldEqual, assets)
			So(installation.Installed(), ShouldBeTrue)

			loc := installation.Locate().MustGet()
			So(loc.Assets, ShouldEqual, assets)
			So(installation.Environment(loc), ShouldResemble, map[string]string{"VLC_PLUGIN_PATH": assets})

			exists, _ := afero.Exists(fs, filepath.Join(assets, "codec", "libavcodec_plugin.dylib"))
			So(exists, ShouldBeTrue)
		})

		Convey("An assets archive without the expected directory should fail and roll back", func() {
			bodies["/assets.zip"] = "wrong"
			_, err := installer.Install(context.Background(), nil)
			So(errors.Is(err, ErrPluginAssetsNotFound), ShouldBeTrue)
			exists, _ := afero.Exists(fs, dir)
			So(exists, ShouldBeFalse)
		})

		Convey("A missing assets archive should fail the download", func() {
			delete(bodies, "/assets.zip")
			_, err := installer.Install(context.Background(), nil)
			So(errors.Is(err, ErrDownloadFailed), ShouldBeTrue)
		})
	})
}

func TestUninstall(t *testing.T) {
	Convey("Given an installed plugin with a loaded library", t, func() {
		fs := afero.NewMemMapFs()
		manifest := testManifest("http://unused")
		lib := filepath.Join(pluginDir, "libmpv", "lib", "libmpv.2.dylib")
		So(afero.WriteFile(fs, lib, []byte("mach-o"), 0o644), ShouldBeNil)

		unloader := &fakeUnloader{loaded: true}
		installation := NewInstallation(fs, pluginDir, manifest)
		installer := NewInstaller(installation, Options{Library: unloader, Platform: testPlatform})
		So(installation.LibraryPath().MustGet(), ShouldEqual, lib)

		Convey("Uninstall should unload, remove the directory and forget the memoized path", func() {
			So(installer.Uninstall(), ShouldBeNil)
			So(unloader.unloads, ShouldEqual, 1)
			exists, _ := afero.Exists(fs, pluginDir)
			So(exists, ShouldBeFalse)
			So(installation.Installed(), ShouldBeFalse)

			Convey("and a second uninstall should be a no-op", func() {
				So(installer.Uninstall(), ShouldBeNil)
				So(unloader.unloads, ShouldEqual, 1)
				So(installation.Installed(), ShouldBeFalse)
			})
		})
	})
}
