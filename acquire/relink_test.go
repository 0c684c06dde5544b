package acquire

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/afero"
)

const otoolL = `/cache/libmpv/lib/libmpv.2.dylib:
	/opt/homebrew/opt/mpv/lib/libmpv.2.dylib (compatibility version 2.0.0, current version 2.3.0)
	/opt/homebrew/opt/ffmpeg/lib/libavcodec.61.dylib (compatibility version 61.0.0, current version 61.19.100)
	/opt/homebrew/opt/libass/lib/libass.9.dylib (compatibility version 13.0.0, current version 13.0.0)
	/usr/lib/libSystem.B.dylib (compatibility version 1.0.0, current version 1345.100.2)
	/System/Library/Frameworks/CoreFoundation.framework/Versions/A/CoreFoundation (compatibility version 150.0.0, current version 2503.1.0)
`

const otoolD = `/cache/libmpv/lib/libmpv.2.dylib:
/opt/homebrew/opt/mpv/lib/libmpv.2.dylib
`

func TestOtoolParsing(t *testing.T) {
	Convey("otool -L output should yield every dependency", t, func() {
		deps := parseOtoolDeps(otoolL)
		So(deps, ShouldHaveLength, 5)
		So(deps[1], ShouldEqual, "/opt/homebrew/opt/ffmpeg/lib/libavcodec.61.dylib")
		So(deps[3], ShouldEqual, "/usr/lib/libSystem.B.dylib")
	})

	Convey("otool -D output should yield the install name", t, func() {
		So(parseOtoolID(otoolD), ShouldEqual, "/opt/homebrew/opt/mpv/lib/libmpv.2.dylib")
		So(parseOtoolID("/cache/plugin.so:\n"), ShouldBeEmpty)
	})
}

func TestPlanRelink(t *testing.T) {
	Convey("Given a bundle with sibling libraries", t, func() {
		file := "/cache/libmpv/lib/libmpv.2.dylib"
		siblings := map[string]string{
			"libmpv.2.dylib":      file,
			"libavcodec.61.dylib": "/cache/libmpv/lib/libavcodec.61.dylib",
			"libass.9.dylib":      "/cache/libmpv/lib/deps/libass.9.dylib",
		}

		plan := planRelink(file, parseOtoolID(otoolD), parseOtoolDeps(otoolL), siblings)

		Convey("Build paths with siblings should become loader-relative", func() {
			So(plan.ID, ShouldEqual, "@loader_path/libmpv.2.dylib")
			So(plan.Changes, ShouldResemble, []change{
				{Old: "/opt/homebrew/opt/ffmpeg/lib/libavcodec.61.dylib", New: "@loader_path/libavcodec.61.dylib"},
				{Old: "/opt/homebrew/opt/libass/lib/libass.9.dylib", New: "@loader_path/deps/libass.9.dylib"},
			})
		})

		Convey("The install_name_tool arguments should carry every change", func() {
			So(plan.args(file), ShouldResemble, []string{
				"-id", "@loader_path/libmpv.2.dylib",
				"-change", "/opt/homebrew/opt/ffmpeg/lib/libavcodec.61.dylib", "@loader_path/libavcodec.61.dylib",
				"-change", "/opt/homebrew/opt/libass/lib/libass.9.dylib", "@loader_path/deps/libass.9.dylib",
				file,
			})
		})

		Convey("Dependencies without a sibling should be left alone", func() {
			plan := planRelink(file, "", []string{"/opt/local/lib/libfoo.dylib", "@rpath/libbar.dylib"}, siblings)
			So(plan.empty(), ShouldBeTrue)
		})
	})
}

func TestMachORelinker(t *testing.T) {
	Convey("Given a bundle on disk", t, func() {
		fs := afero.NewMemMapFs()
		So(afero.WriteFile(fs, "/cache/libmpv/lib/libmpv.2.dylib", []byte("x"), 0o644), ShouldBeNil)
		So(afero.WriteFile(fs, "/cache/libmpv/lib/libavcodec.61.dylib", []byte("x"), 0o644), ShouldBeNil)
		So(afero.WriteFile(fs, "/cache/libmpv/lib/deps/libass.9.dylib", []byte("x"), 0o644), ShouldBeNil)
		So(afero.WriteFile(fs, "/cache/libmpv/README", []byte("x"), 0o644), ShouldBeNil)

		runner := &scriptedRunner{outputs: map[string]string{
			"otool -L /cache/libmpv/lib/libmpv.2.dylib":      otoolL,
			"otool -D /cache/libmpv/lib/libmpv.2.dylib":      otoolD,
			"otool -L /cache/libmpv/lib/libavcodec.61.dylib": "/cache/libmpv/lib/libavcodec.61.dylib:\n\t/usr/lib/libSystem.B.dylib (compatibility version 1.0.0)\n",
			"otool -D /cache/libmpv/lib/libavcodec.61.dylib": "/cache/libmpv/lib/libavcodec.61.dylib:\n@rpath/libavcodec.61.dylib\n",
			"otool -L /cache/libmpv/lib/deps/libass.9.dylib": "/cache/libmpv/lib/deps/libass.9.dylib:\n",
			"otool -D /cache/libmpv/lib/deps/libass.9.dylib": "/cache/libmpv/lib/deps/libass.9.dylib:\n",
		}}

		Convey("Relink should rewrite and re-sign only the library that needs it", func() {
			err := MachORelinker{Fs: fs, Runner: runner}.Relink(context.Background(), "/cache/libmpv")
			So(err, ShouldBeNil)

			var edits, signs int
			for _, call := range runner.calls {
				switch {
				case len(call) > 17 && call[:17] == "install_name_tool":
					edits++
					So(call, ShouldEndWith, "/cache/libmpv/lib/libmpv.2.dylib")
				case len(call) > 8 && call[:8] == "codesign":
					signs++
				}
			}
			So(edits, ShouldEqual, 1)
			So(signs, ShouldEqual, 1)
		})

		Convey("A failing otool should abort the relink", func() {
			So(afero.WriteFile(fs, "/cache/libmpv/lib/extra.dylib", []byte("x"), 0o644), ShouldBeNil)
			err := MachORelinker{Fs: fs, Runner: runner}.Relink(context.Background(), "/cache/libmpv")
			So(err, ShouldNotBeNil)
		})
	})
}

func TestOriginRPath(t *testing.T) {
	Convey("rpath entries should be relative to the object", t, func() {
		dirs := []string{"/b/lib", "/b/lib/vlc/plugins"}
		So(originRPath("/b/lib", dirs), ShouldEqual, "$ORIGIN:$ORIGIN/vlc/plugins")
		So(originRPath("/b/lib/vlc/plugins", dirs), ShouldEqual, "$ORIGIN/../..:$ORIGIN")
	})
}

func TestExtractCommand(t *testing.T) {
	Convey("The archive tool should follow the platform and extension", t, func() {
		name, args := extractCommand("darwin", "/s/core.zip", "/s/out")
		So(name, ShouldEqual, "ditto")
		So(args, ShouldResemble, []string{"-x", "-k", "/s/core.zip", "/s/out"})

		name, _ = extractCommand("linux", "/s/core.zip", "/s/out")
		So(name, ShouldEqual, "unzip")

		name, args = extractCommand("linux", "/s/core.tar.gz", "/s/out")
		So(name, ShouldEqual, "tar")
		So(args, ShouldResemble, []string{"-xf", "/s/core.tar.gz", "-C", "/s/out"})
	})

	Convey("Archive extensions should survive query strings", t, func() {
		So(archiveExt("https://h/libmpv.tar.gz?token=1"), ShouldEqual, ".tar.gz")
		So(archiveExt("https://h/libmpv.ZIP"), ShouldEqual, ".zip")
		So(archiveExt("https://h/download"), ShouldEqual, ".zip")
	})
}
