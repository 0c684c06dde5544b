package mpv

import (
	"errors"
	"testing"

	"github.com/glasspane/glasspane/backend"
	"github.com/glasspane/glasspane/metadata"
	"github.com/glasspane/glasspane/session"
	. "github.com/smartystreets/goconvey/convey"
)

func openDriver(opts Options, src session.Source) (*Driver, *fakeEngine, *recordingSink, error) {
	engine := newFakeEngine()
	sink := newRecordingSink()
	d := NewDriver(func() (Engine, error) { return engine, nil }, opts)
	err := d.Open(src, sink)
	return d, engine, sink, err
}

func TestDriverOpen(t *testing.T) {
	Convey("Given a headless driver", t, func() {
		d, engine, _, err := openDriver(Options{Headless: true}, session.Source{
			URL:     "https://cdn.example.com/clip.webm",
			Headers: map[string]string{"Referer": "https://example.com", "Cookie": "a=1,b=2"},
		})
		So(err, ShouldBeNil)
		defer d.Close()

		Convey("It should be the render-loop backend", func() {
			So(d.Kind(), ShouldEqual, backend.RenderLoop)
		})

		Convey("Options should be applied before initialization", func() {
			So(engine.inits, ShouldEqual, 1)
			for name, want := range map[string]string{"keep-open": "yes", "pause": "yes", "vo": "null", "ao": "null"} {
				got, ok := engine.option(name)
				So(ok, ShouldBeTrue)
				So(got, ShouldEqual, want)
			}
		})

		Convey("Headers should be sorted and comma-escaped", func() {
			got, _ := engine.option("http-header-fields")
			So(got, ShouldEqual, "Cookie: a=1%2Cb=2,Referer: https://example.com")
		})

		Convey("The source should be loaded in place", func() {
			So(engine.lastCommand(), ShouldResemble, []string{"loadfile", "https://cdn.example.com/clip.webm", "replace"})
		})
	})

	Convey("Given an unsafe target", t, func() {
		engine := newFakeEngine()
		created := 0
		d := NewDriver(func() (Engine, error) {
			created++
			return engine, nil
		}, Options{})

		Convey("Open should fail before creating a handle", func() {
			So(d.Open(session.Source{URL: "--script=evil.lua"}, newRecordingSink()), ShouldNotBeNil)
			So(created, ShouldEqual, 0)
			So(d.Close(), ShouldBeNil)
		})
	})

	Convey("Given an engine that fails to initialize", t, func() {
		engine := newFakeEngine()
		engine.initErr = &Error{Op: "initialize", Code: -1, Message: "boom"}
		d := NewDriver(func() (Engine, error) { return engine, nil }, Options{})

		Convey("Open should fail and Close should still destroy the handle", func() {
			err := d.Open(session.Source{URL: "/tmp/clip.mkv"}, newRecordingSink())
			So(err, ShouldNotBeNil)
			So(d.Close(), ShouldBeNil)
			So(engine.destroyed, ShouldEqual, 1)
		})
	})
}

func TestDriverEvents(t *testing.T) {
	Convey("Given an open driver", t, func() {
		d, engine, sink, err := openDriver(Options{Render: []RenderParam{}}, session.Source{URL: "/media/clip.mkv"})
		So(err, ShouldBeNil)
		defer d.Close()

		Convey("file-loaded should signal metadata readiness", func() {
			engine.push(Event{ID: EventFileLoaded})
			So(sink.next(), ShouldEqual, "metadata")
		})

		Convey("playback-restart should only complete a seek the driver issued", func() {
			engine.push(Event{ID: EventPlaybackRestart})
			So(sink.idle(), ShouldBeTrue)

			So(d.Seek(12.5, true), ShouldBeNil)
			So(engine.lastCommand(), ShouldResemble, []string{"seek", "12.500000", "absolute+exact"})
			engine.push(Event{ID: EventPlaybackRestart})
			So(sink.next(), ShouldEqual, "seek")
			sink.mu.Lock()
			So(sink.target, ShouldEqual, 12.5)
			sink.mu.Unlock()
		})

		Convey("Inexact seeks should snap to keyframes", func() {
			So(d.Seek(3, false), ShouldBeNil)
			So(engine.lastCommand(), ShouldResemble, []string{"seek", "3.000000", "absolute+keyframes"})
		})

		Convey("end-file should map its reason", func() {
			engine.push(Event{ID: EventEndFile, EndReason: EndReasonStop})
			So(sink.idle(), ShouldBeTrue)

			engine.push(Event{ID: EventEndFile, EndReason: EndReasonEOF})
			So(sink.next(), ShouldEqual, "ended")

			engine.push(Event{ID: EventEndFile, EndReason: EndReasonError, EndError: -13})
			So(sink.next(), ShouldEqual, "failed")
			sink.mu.Lock()
			var mpvErr *Error
			So(errors.As(sink.err, &mpvErr), ShouldBeTrue)
			So(mpvErr.Code, ShouldEqual, -13)
			sink.mu.Unlock()
		})

		Convey("Render updates should request a redraw", func() {
			engine.mu.Lock()
			update := engine.update
			engine.mu.Unlock()
			So(update, ShouldNotBeNil)
			update()
			So(sink.next(), ShouldEqual, "redraw")
		})

		Convey("Close should stop the pump and destroy once", func() {
			So(d.Close(), ShouldBeNil)
			So(d.Close(), ShouldBeNil)
			So(engine.destroyed, ShouldEqual, 1)
			engine.push(Event{ID: EventFileLoaded})
			So(sink.idle(), ShouldBeTrue)
		})
	})
}

func TestDriverProperties(t *testing.T) {
	Convey("Given an open driver", t, func() {
		d, engine, sink, err := openDriver(Options{}, session.Source{URL: "/media/clip.mkv"})
		So(err, ShouldBeNil)
		defer d.Close()

		Convey("Transport should map onto properties", func() {
			So(d.Play(), ShouldBeNil)
			So(engine.get("pause"), ShouldEqual, "no")
			So(d.Pause(), ShouldBeNil)
			So(engine.get("pause"), ShouldEqual, "yes")
			So(d.SetVolume(0.42), ShouldBeNil)
			So(engine.get("volume"), ShouldEqual, "42")
			So(d.SetMuted(true), ShouldBeNil)
			So(engine.get("mute"), ShouldEqual, "yes")
		})

		Convey("Position should be unavailable until time-pos exists", func() {
			_, ok := d.Position()
			So(ok, ShouldBeFalse)

			engine.setDouble("time-pos", 4.25)
			pos, ok := d.Position()
			So(ok, ShouldBeTrue)
			So(pos, ShouldEqual, 4.25)
		})

		Convey("Reaching the end while kept open should end once", func() {
			engine.setDouble("time-pos", 10)
			So(engine.SetString("eof-reached", "yes"), ShouldBeNil)
			d.Position()
			d.Position()
			So(sink.next(), ShouldEqual, "ended")
			So(sink.idle(), ShouldBeTrue)
		})

		Convey("Metadata should fall back to the estimated frame rate", func() {
			engine.setDouble("duration", 10)
			engine.setDouble("estimated-vf-fps", 23.976)
			engine.setDouble("width", 1920)
			engine.setDouble("height", 1080)

			v, err := d.Metadata()
			So(err, ShouldBeNil)
			So(v, ShouldResemble, metadata.Values{
				Duration:    10,
				FrameRate:   23.976,
				NaturalSize: metadata.Size{Width: 1920, Height: 1080},
			})
		})

		Convey("Operations after Close should report no source", func() {
			So(d.Close(), ShouldBeNil)
			So(errors.Is(d.Play(), session.ErrNoSource), ShouldBeTrue)
			_, ok := d.Position()
			So(ok, ShouldBeFalse)
		})
	})
}
