package vlc

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/glasspane/glasspane/backend"
	"github.com/glasspane/glasspane/log"
	"github.com/glasspane/glasspane/metadata"
	"github.com/glasspane/glasspane/session"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"golang.org/x/exp/slices"
)

var ErrPlayback = errors.New("libvlc playback error")

// seekTolerance is how close the reported time must come to a seek target to count as done.
const seekTolerance = 0.5

// Options tune the libVLC instance a driver creates.
type Options struct {
	// Headless routes video and audio to dummy outputs.
	Headless bool
	// Args are appended to the instance arguments.
	Args []string
}

// Driver plays one source on libVLC. The library only answers queries, so every state
// change is discovered by the session's position poll.
type Driver struct {
	newEngine func(args []string) (Engine, error)
	opts      Options

	engine Engine
	sink   session.Sink

	ready    bool
	wantPlay bool
	ended    bool
	failed   bool
	volume   mo.Option[int]
	muted    mo.Option[bool]
	seek     mo.Option[float64]
	restart  mo.Option[float64]
}

func NewDriver(newEngine func(args []string) (Engine, error), opts Options) *Driver {
	return &Driver{newEngine: newEngine, opts: opts}
}

func (d *Driver) Kind() backend.Kind {
	return backend.Shim
}

func (d *Driver) logger() log.Entry {
	return log.With(log.Fields{"backend": backend.Shim.Name()})
}

func (d *Driver) args() []string {
	args := []string{"--quiet", "--no-video-title-show", "--no-stats"}
	if d.opts.Headless {
		args = append(args, "--vout=dummy", "--aout=dummy")
	}
	return append(args, d.opts.Args...)
}

// mediaOptions maps request headers onto the per-media options libVLC's http access reads.
// Headers it has no option for are dropped.
func (d *Driver) mediaOptions(headers map[string]string) []string {
	keys := lo.Keys(headers)
	slices.Sort(keys)

	var options []string
	for _, k := range keys {
		v := headers[k]
		switch strings.ToLower(k) {
		case "referer":
			options = append(options, ":http-referrer="+v)
		case "user-agent":
			options = append(options, ":http-user-agent="+v)
		default:
			d.logger().Debugf("dropping header %s", k)
		}
	}
	return options
}

// location splits a source into an MRL or a filesystem path.
func location(link string) (string, bool, error) {
	l := strings.TrimSpace(link)
	if l == "" {
		return "", false, fmt.Errorf("empty URL")
	}
	if strings.ContainsAny(l, "\x00\n\r") {
		return "", false, fmt.Errorf("invalid control characters in URL")
	}

	if !strings.Contains(l, "://") {
		return filepath.Clean(l), true, nil
	}

	u, err := url.Parse(l)
	if err != nil {
		return "", false, fmt.Errorf("invalid URL: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https", "file":
		return l, false, nil
	default:
		return "", false, fmt.Errorf("unsupported URL scheme: %s", u.Scheme)
	}
}

// Open creates the player and starts it so the media is demuxed. The first poll that sees
// it playing pauses it again unless Play was requested in between.
func (d *Driver) Open(src session.Source, sink session.Sink) error {
	mrl, path, err := location(src.URL)
	if err != nil {
		return fmt.Errorf("invalid media target: %w", err)
	}

	engine, err := d.newEngine(d.args())
	if err != nil {
		return err
	}
	d.engine = engine
	d.sink = sink

	if err := engine.Open(mrl, path, d.mediaOptions(src.Headers)); err != nil {
		return err
	}
	return engine.Play()
}

// Position is polled on the main loop. Besides reading the clock it detects state
// transitions: the first playing state means metadata can be queried, then end and error.
func (d *Driver) Position() (float64, bool) {
	if d.engine == nil {
		return 0, false
	}

	switch d.engine.State() {
	case StatePlaying, StatePaused:
		d.playing()
	case StateEnded:
		d.end()
	case StateStopped:
		if d.ready && d.restart.IsAbsent() {
			d.end()
		}
	case StateError:
		if !d.failed {
			d.failed = true
			d.sink.Failed(fmt.Errorf("%w: %s", ErrPlayback, d.engine.LastError()))
		}
	}

	ms := d.engine.Time()
	if ms < 0 {
		return 0, false
	}
	t := float64(ms) / 1000

	if target, ok := d.seek.Get(); ok && math.Abs(t-target) <= seekTolerance {
		d.seek = mo.None[float64]()
		d.sink.SeekDone(target)
	}
	return t, true
}

func (d *Driver) playing() {
	if !d.ready {
		d.ready = true
		if !d.wantPlay {
			d.engine.SetPause(true)
		}
		d.applyAudio()
		d.sink.MetadataReady()
	}

	if target, ok := d.restart.Get(); ok {
		d.restart = mo.None[float64]()
		d.ended = false
		d.engine.SetTime(int64(target*1000), false)
		if !d.wantPlay {
			d.engine.SetPause(true)
		}
		d.seek = mo.Some(target)
	}
}

func (d *Driver) end() {
	if d.ended {
		return
	}
	d.ended = true
	d.wantPlay = false
	d.sink.Ended()
}

func (d *Driver) applyAudio() {
	if v, ok := d.volume.Get(); ok {
		if err := d.engine.SetVolume(v); err != nil {
			d.logger().Warnf("set volume: %v", err)
		}
	}
	if m, ok := d.muted.Get(); ok {
		d.engine.SetMute(m)
	}
}

func (d *Driver) Play() error {
	if d.engine == nil {
		return session.ErrNoSource
	}
	d.wantPlay = true
	if d.ready && !d.ended {
		d.engine.SetPause(false)
	}
	return nil
}

func (d *Driver) Pause() error {
	if d.engine == nil {
		return session.ErrNoSource
	}
	d.wantPlay = false
	if d.ready && !d.ended {
		d.engine.SetPause(true)
	}
	return nil
}

// Seek sets the clock. A player that reached the end has to be restarted first, so the
// target is held until it plays again.
func (d *Driver) Seek(seconds float64, exact bool) error {
	if d.engine == nil {
		return session.ErrNoSource
	}

	if d.ended {
		d.restart = mo.Some(seconds)
		d.engine.Stop()
		return d.engine.Play()
	}

	d.engine.SetTime(int64(math.Round(seconds*1000)), !exact)
	d.seek = mo.Some(seconds)
	return nil
}

func (d *Driver) SetVolume(level float64) error {
	if d.engine == nil {
		return session.ErrNoSource
	}
	percent := int(math.Round(lo.Clamp(level, 0, 1) * 100))
	d.volume = mo.Some(percent)
	if !d.ready {
		return nil
	}
	return d.engine.SetVolume(percent)
}

func (d *Driver) SetMuted(muted bool) error {
	if d.engine == nil {
		return session.ErrNoSource
	}
	d.muted = mo.Some(muted)
	if d.ready {
		d.engine.SetMute(muted)
	}
	return nil
}

func (d *Driver) Metadata() (metadata.Values, error) {
	if d.engine == nil {
		return metadata.Values{}, session.ErrNoSource
	}

	var v metadata.Values
	if ms := d.engine.Length(); ms > 0 {
		v.Duration = float64(ms) / 1000
	}
	v.FrameRate = d.engine.FPS()
	if w, h, ok := d.engine.VideoSize(); ok {
		v.NaturalSize = metadata.Size{Width: w, Height: h}
	}
	return v, nil
}

// Close releases the player, media and instance. It is idempotent.
func (d *Driver) Close() error {
	if d.engine == nil {
		return nil
	}
	d.engine.Release()
	d.engine = nil
	d.ready = false
	return nil
}
