package router

import (
	"testing"

	"github.com/glasspane/glasspane/backend"
	. "github.com/smartystreets/goconvey/convey"
)

func readyOnly(kinds ...backend.Kind) Readiness {
	return ReadinessFunc(func(kind backend.Kind) bool {
		for _, k := range kinds {
			if k == kind {
				return true
			}
		}
		return kind == backend.Native
	})
}

func TestBackendFor(t *testing.T) {
	Convey("Given no plugin backend is ready", t, func() {
		none := readyOnly()

		Convey("mkv should be unsupported", func() {
			_, err := BackendFor("mkv", none)
			So(err, ShouldEqual, ErrUnsupportedFormat)
		})

		Convey("mp4 should go to Native", func() {
			kind, err := BackendFor("mp4", none)
			So(err, ShouldBeNil)
			So(kind, ShouldEqual, backend.Native)
		})
	})

	Convey("Given the render-loop backend is ready", t, func() {
		kind, err := BackendFor("mkv", readyOnly(backend.RenderLoop))
		So(err, ShouldBeNil)
		So(kind, ShouldEqual, backend.RenderLoop)
	})

	Convey("Given only the shim backend is ready", t, func() {
		kind, err := BackendFor(".WebM", readyOnly(backend.Shim))
		So(err, ShouldBeNil)
		So(kind, ShouldEqual, backend.Shim)
	})

	Convey("Given both plugin backends are ready", t, func() {
		kind, err := BackendFor("ogg", readyOnly(backend.Shim, backend.RenderLoop))
		So(err, ShouldBeNil)
		So(kind, ShouldEqual, backend.RenderLoop)
	})

	Convey("The plugin-required set should be exactly the known containers", t, func() {
		for _, ext := range []string{"webm", "mkv", "ogv", "ogg", "flv", "wmv", "divx", "vob", "asf"} {
			So(NeedsPlugin(ext), ShouldBeTrue)
		}
		So(PluginRequired, ShouldHaveLength, 9)
		for _, ext := range []string{"mp4", "mov", "m4v", "avi", "", "mkv2"} {
			So(NeedsPlugin(ext), ShouldBeFalse)
		}
	})
}

func TestExtension(t *testing.T) {
	Convey("Extensions should be extracted from paths and URLs", t, func() {
		So(Extension("/Users/me/Movies/clip.MKV"), ShouldEqual, "mkv")
		So(Extension("https://cdn.example.com/v/clip.webm?sig=abc#t=3"), ShouldEqual, "webm")
		So(Extension("file:///tmp/a.b/clip.ogv"), ShouldEqual, "ogv")
		So(Extension(`C:\videos\clip.wmv`), ShouldEqual, "wmv")
		So(Extension("https://example.com/stream"), ShouldBeEmpty)
	})
}
