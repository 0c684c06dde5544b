package where

import (
	"path/filepath"
	"testing"

	"github.com/glasspane/glasspane/filesystem"
	"github.com/samber/lo"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Use in-memory filesystem for tests to avoid creating real directories
	filesystem.SetMemMapFs()
}

func TestPaths(t *testing.T) {
	Convey("Path functions", t, func() {
		Convey("Config()", func() {
			path := Config()
			So(path, ShouldNotBeEmpty)
			So(lo.Must(filesystem.API().IsDir(path)), ShouldBeTrue)
		})

		Convey("Cache()", func() {
			path := Cache()
			So(path, ShouldNotBeEmpty)
			So(lo.Must(filesystem.API().IsDir(path)), ShouldBeTrue)
		})

		Convey("Plugins() should live under Cache()", func() {
			path := Plugins()
			So(filepath.Dir(path), ShouldEqual, Cache())
			So(lo.Must(filesystem.API().IsDir(path)), ShouldBeTrue)
		})

		Convey("Plugin() should not create the directory", func() {
			path := Plugin("mpv")
			So(filepath.Base(path), ShouldEqual, "mpv")
			So(lo.Must(filesystem.API().Exists(path)), ShouldBeFalse)
		})

		Convey("Cache override", func() {
			t.Setenv(EnvCachePath, "/custom/cache")
			So(Cache(), ShouldEqual, "/custom/cache")
			So(Plugins(), ShouldEqual, filepath.Join("/custom/cache", "plugins"))
		})

		Convey("Logs()", func() {
			path := Logs()
			So(path, ShouldNotBeEmpty)
			So(lo.Must(filesystem.API().IsDir(path)), ShouldBeTrue)
		})
	})
}
