package mpv

import (
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/glasspane/glasspane/backend"
	"github.com/glasspane/glasspane/log"
	"github.com/glasspane/glasspane/metadata"
	"github.com/glasspane/glasspane/session"
	"github.com/samber/lo"
	"golang.org/x/exp/slices"
)

// Options tune how a driver configures its handle.
type Options struct {
	// Headless disables video and audio output.
	Headless bool
	// Render, when non-nil, attaches a render context. The host draws frames through
	// Driver.Render with the parameters of its own drawing API.
	Render []RenderParam
	// Extra options applied before initialization, after the driver's own.
	Extra map[string]string
}

// Driver plays one source on one libmpv handle.
type Driver struct {
	newEngine func() (Engine, error)
	opts      Options

	engine Engine
	sink   session.Sink

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
	stop sync.Once

	seeking    atomic.Bool
	seekTarget atomic.Uint64
	eof        bool
}

// NewDriver creates a driver that opens a fresh engine for every source.
func NewDriver(newEngine func() (Engine, error), opts Options) *Driver {
	return &Driver{newEngine: newEngine, opts: opts}
}

func (d *Driver) Kind() backend.Kind {
	return backend.RenderLoop
}

func (d *Driver) logger() log.Entry {
	return log.With(log.Fields{"backend": backend.RenderLoop.Name()})
}

func (d *Driver) options(src session.Source) [][2]string {
	options := [][2]string{
		{"terminal", "no"},
		{"idle", "yes"},
		{"keep-open", "yes"},
		{"pause", "yes"},
	}
	if d.opts.Headless {
		options = append(options, [2]string{"vo", "null"}, [2]string{"ao", "null"})
	} else if d.opts.Render != nil {
		options = append(options, [2]string{"vo", "libmpv"})
	}
	if len(src.Headers) > 0 {
		options = append(options, [2]string{"http-header-fields", headerFields(src.Headers)})
	}

	extra := lo.Keys(d.opts.Extra)
	slices.Sort(extra)
	for _, k := range extra {
		options = append(options, [2]string{k, d.opts.Extra[k]})
	}
	return options
}

func (d *Driver) Open(src session.Source, sink session.Sink) error {
	link, err := target(src.URL)
	if err != nil {
		return fmt.Errorf("invalid media target: %w", err)
	}

	engine, err := d.newEngine()
	if err != nil {
		return err
	}
	d.engine = engine
	d.sink = sink

	for _, o := range d.options(src) {
		if err := engine.SetOption(o[0], o[1]); err != nil {
			return err
		}
	}

	if err := engine.Initialize(); err != nil {
		return err
	}

	if d.opts.Render != nil {
		if err := engine.AttachRender(d.opts.Render, sink.Redraw); err != nil {
			return err
		}
	}

	d.wake = make(chan struct{}, 1)
	d.quit = make(chan struct{})
	d.done = make(chan struct{})
	engine.SetWakeup(d.notify)
	go d.pump(engine, sink)
	// events queued before the wakeup was installed
	d.notify()

	return engine.Command("loadfile", link, "replace")
}

func (d *Driver) notify() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// pump drains the event queue each time libmpv signals the wakeup channel.
func (d *Driver) pump(engine Engine, sink session.Sink) {
	defer close(d.done)

	for {
		select {
		case <-d.quit:
			return
		case <-d.wake:
		}

		for {
			ev := engine.WaitEvent(0)
			if ev.ID == EventNone {
				break
			}
			if !d.handle(engine, sink, ev) {
				return
			}
		}
	}
}

func (d *Driver) handle(engine Engine, sink session.Sink, ev Event) bool {
	switch ev.ID {
	case EventFileLoaded:
		sink.MetadataReady()
	case EventEndFile:
		switch ev.EndReason {
		case EndReasonEOF:
			sink.Ended()
		case EndReasonError:
			sink.Failed(&Error{Op: "playback", Code: ev.EndError, Message: engine.ErrorString(ev.EndError)})
		}
	case EventPlaybackRestart:
		if d.seeking.CompareAndSwap(true, false) {
			sink.SeekDone(math.Float64frombits(d.seekTarget.Load()))
		}
	case EventShutdown:
		return false
	}
	return true
}

func (d *Driver) Play() error {
	if d.engine == nil {
		return session.ErrNoSource
	}
	return d.engine.SetString("pause", "no")
}

func (d *Driver) Pause() error {
	if d.engine == nil {
		return session.ErrNoSource
	}
	return d.engine.SetString("pause", "yes")
}

func (d *Driver) Seek(seconds float64, exact bool) error {
	if d.engine == nil {
		return session.ErrNoSource
	}

	mode := "absolute+keyframes"
	if exact {
		mode = "absolute+exact"
	}

	d.seekTarget.Store(math.Float64bits(seconds))
	d.seeking.Store(true)
	d.eof = false

	if err := d.engine.Command("seek", fmt.Sprintf("%f", seconds), mode); err != nil {
		d.seeking.Store(false)
		return err
	}
	return nil
}

func (d *Driver) SetVolume(level float64) error {
	if d.engine == nil {
		return session.ErrNoSource
	}
	return d.engine.SetString("volume", fmt.Sprintf("%.0f", lo.Clamp(level, 0, 1)*100))
}

func (d *Driver) SetMuted(muted bool) error {
	if d.engine == nil {
		return session.ErrNoSource
	}
	return d.engine.SetString("mute", lo.Ternary(muted, "yes", "no"))
}

// Position reads time-pos. With keep-open the engine idles on the last frame instead of
// ending the file, so the end of playback is detected here from eof-reached.
func (d *Driver) Position() (float64, bool) {
	if d.engine == nil {
		return 0, false
	}

	if reached, err := d.engine.GetString("eof-reached"); err == nil {
		if reached == "yes" && !d.eof {
			d.eof = true
			d.sink.Ended()
		} else if reached == "no" {
			d.eof = false
		}
	}

	t, err := d.engine.GetDouble("time-pos")
	if err != nil {
		return 0, false
	}
	return t, true
}

func (d *Driver) Metadata() (metadata.Values, error) {
	if d.engine == nil {
		return metadata.Values{}, session.ErrNoSource
	}

	var v metadata.Values
	if duration, err := d.engine.GetDouble("duration"); err == nil {
		v.Duration = duration
	}

	for _, name := range []string{"container-fps", "estimated-vf-fps"} {
		if fps, err := d.engine.GetDouble(name); err == nil && metadata.Positive(fps) {
			v.FrameRate = fps
			break
		}
	}

	width, werr := d.engine.GetDouble("width")
	height, herr := d.engine.GetDouble("height")
	if werr == nil && herr == nil {
		v.NaturalSize = metadata.Size{Width: int(width), Height: int(height)}
	}

	return v, nil
}

// Render draws the current frame into the host surface.
func (d *Driver) Render(params []RenderParam) error {
	if d.engine == nil {
		return session.ErrNoSource
	}
	return d.engine.Render(params)
}

// Close stops the pump, then frees the render context and the handle. It is idempotent.
func (d *Driver) Close() error {
	if d.engine == nil {
		return nil
	}

	d.engine.SetWakeup(nil)
	if d.quit != nil {
		d.stop.Do(func() { close(d.quit) })
		<-d.done
	}

	d.engine.Destroy()
	d.engine = nil
	d.logger().Debugf("handle destroyed")
	return nil
}
