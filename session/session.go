// Package session is the playback state machine shared by every backend.
//
// A Session owns at most one Driver. All methods must be called on the main loop; drivers
// report back through a Sink that marshals onto the same loop, so session state is never
// touched from two goroutines.
package session

import (
	"math"
	"time"

	"github.com/glasspane/glasspane/log"
	"github.com/glasspane/glasspane/mainloop"
	"github.com/glasspane/glasspane/metadata"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Options configures a Session. Zero fields take defaults.
type Options struct {
	Loop     mainloop.Loop
	Resolver metadata.Resolver
	// PollRate is the position poll frequency in Hz for pull-based drivers.
	PollRate float64
	// SeekEpsilon is the distance in seconds under which a repeated seek is dropped.
	SeekEpsilon float64
	// SeekTimeout bounds how long position updates are held back waiting for a seek to land.
	SeekTimeout time.Duration
	Surface     Surface
}

const (
	defaultPollRate    = 30
	defaultSeekEpsilon = 0.001
	defaultSeekTimeout = 2 * time.Second
	// frameSlack absorbs float error when converting a frame's start time back to its index.
	frameSlack = 1e-6
)

type dispatchedSeek struct {
	target float64
	exact  bool
}

type Session struct {
	id   string
	loop mainloop.Loop
	opts Options

	driver Driver
	token  uint64
	state  PlaybackState

	lastVolume float64

	poll           mainloop.Timer
	cancelMetadata func()
	lastSeek       mo.Option[dispatchedSeek]
	pendingSeek    mo.Option[float64]
	seekTimer      mainloop.Timer

	observers []func(PlaybackState)
	errors    []func(error)
}

func New(opts Options) *Session {
	if opts.PollRate <= 0 {
		opts.PollRate = defaultPollRate
	}
	if opts.SeekEpsilon <= 0 {
		opts.SeekEpsilon = defaultSeekEpsilon
	}
	if opts.SeekTimeout <= 0 {
		opts.SeekTimeout = defaultSeekTimeout
	}
	if opts.Resolver.Loop == nil {
		opts.Resolver.Loop = opts.Loop
	}

	return &Session{
		id:         uuid.NewString(),
		loop:       opts.Loop,
		opts:       opts,
		state:      initialState(1, false),
		lastVolume: 1,
	}
}

func (s *Session) ID() string {
	return s.id
}

// State returns a snapshot of the playback state.
func (s *Session) State() PlaybackState {
	return s.state
}

// Driver returns the active driver, if any.
func (s *Session) Driver() mo.Option[Driver] {
	if s.driver == nil {
		return mo.None[Driver]()
	}
	return mo.Some(s.driver)
}

// Observe registers fn to receive every published state.
func (s *Session) Observe(fn func(PlaybackState)) {
	s.observers = append(s.observers, fn)
}

// OnError registers fn to receive playback errors. Errors never go through Observe.
func (s *Session) OnError(fn func(error)) {
	s.errors = append(s.errors, fn)
}

func (s *Session) publish() {
	for _, fn := range s.observers {
		fn(s.state)
	}
}

func (s *Session) fail(err error) {
	log.With(log.Fields{"session": s.id}).Errorf("%v", err)
	for _, fn := range s.errors {
		fn(err)
	}
}

func (s *Session) logger() log.Entry {
	fields := log.Fields{"session": s.id, "token": s.token}
	if s.driver != nil {
		fields["backend"] = s.driver.Kind().Name()
	}
	return log.With(fields)
}

// Load tears down the current source and opens src on driver. Metadata arrives later;
// the session is in Loading until then but already accepts seeks.
func (s *Session) Load(driver Driver, src Source) error {
	s.token++
	s.teardown()

	s.state = initialState(s.state.Volume, s.state.Muted)
	s.state.State = Loading
	s.state.Source = src
	s.driver = driver

	s.logger().Infof("loading %s", src.URL)

	if err := driver.Open(src, tokenSink{s: s, token: s.token}); err != nil {
		s.closeDriver()
		s.state.State = Failed
		s.publish()

		openErr := &OpenError{Backend: driver.Kind(), URL: src.URL, Detail: err.Error()}
		s.fail(openErr)
		return openErr
	}

	s.applyAudio()

	if poller, ok := driver.(Poller); ok {
		interval := time.Duration(float64(time.Second) / s.opts.PollRate)
		s.poll = s.loop.Every(interval, func() {
			if t, ok := poller.Position(); ok {
				s.position(t)
			}
		})
	}

	s.publish()
	return nil
}

// Close releases the driver and resets the state to Empty.
func (s *Session) Close() {
	s.token++
	s.teardown()
	s.state = initialState(s.state.Volume, s.state.Muted)
	s.publish()
}

func (s *Session) teardown() {
	if s.poll != nil {
		s.poll.Stop()
		s.poll = nil
	}
	if s.cancelMetadata != nil {
		s.cancelMetadata()
		s.cancelMetadata = nil
	}
	s.clearSeek()
	s.lastSeek = mo.None[dispatchedSeek]()
	s.closeDriver()
}

func (s *Session) closeDriver() {
	if s.driver == nil {
		return
	}
	if err := s.driver.Close(); err != nil {
		s.logger().Warnf("close driver: %v", err)
	}
	s.driver = nil
}

func (s *Session) applyAudio() {
	if err := s.driver.SetVolume(s.state.Volume); err != nil {
		s.logger().Warnf("set volume: %v", err)
	}
	if err := s.driver.SetMuted(s.state.Muted); err != nil {
		s.logger().Warnf("set muted: %v", err)
	}
}

func (s *Session) Play() error {
	if s.driver == nil {
		return ErrNoSource
	}
	if err := s.driver.Play(); err != nil {
		return s.transportError(err)
	}
	s.state.Playing = true
	s.settle()
	s.publish()
	return nil
}

func (s *Session) Pause() error {
	if s.driver == nil {
		return ErrNoSource
	}
	if err := s.driver.Pause(); err != nil {
		return s.transportError(err)
	}
	s.state.Playing = false
	s.settle()
	s.publish()
	return nil
}

func (s *Session) TogglePause() error {
	if s.state.Playing {
		return s.Pause()
	}
	return s.Play()
}

// settle derives the lifecycle state from the transport flags once the source is usable.
func (s *Session) settle() {
	switch s.state.State {
	case Empty, Loading, Failed:
		return
	}
	if s.state.Playing {
		s.state.State = Playing
	} else {
		s.state.State = Paused
	}
}

func (s *Session) transportError(err error) error {
	wrapped := &PlaybackError{Backend: s.driver.Kind(), Err: err}
	s.fail(wrapped)
	return wrapped
}

// Seek clamps the target into [0, duration] and dispatches it. A seek within epsilon of the
// last dispatched one is dropped while that seek is still in flight or already reached,
// unless the new one asks for more accuracy.
func (s *Session) Seek(req SeekRequest) error {
	if s.driver == nil {
		return ErrNoSource
	}

	target := req.seconds
	if req.kind == seekByFrame {
		target = s.timeFor(s.clampFrame(req.frame))
	}
	target = s.clampTime(target)

	if last, ok := s.lastSeek.Get(); ok && math.Abs(last.target-target) <= s.opts.SeekEpsilon && (last.exact || !req.Exact()) {
		if s.pendingSeek.IsPresent() || math.Abs(s.state.CurrentTime-target) <= s.opts.SeekEpsilon {
			return nil
		}
	}

	return s.dispatchSeek(target, req.Exact())
}

func (s *Session) dispatchSeek(target float64, exact bool) error {
	s.state.CurrentTime = target
	s.state.CurrentFrame = s.frameFor(target)

	s.pendingSeek = mo.Some(target)
	if s.seekTimer != nil {
		s.seekTimer.Stop()
	}
	token := s.token
	s.seekTimer = s.loop.After(s.opts.SeekTimeout, func() {
		if s.token == token {
			s.clearSeek()
		}
	})

	s.lastSeek = mo.Some(dispatchedSeek{target: target, exact: exact})
	if err := s.driver.Seek(target, exact); err != nil {
		s.clearSeek()
		s.publish()
		return s.transportError(err)
	}

	s.publish()
	return nil
}

func (s *Session) clearSeek() {
	s.pendingSeek = mo.None[float64]()
	if s.seekTimer != nil {
		s.seekTimer.Stop()
		s.seekTimer = nil
	}
}

// StepFrame pauses and moves amount frames in direction, clamped to the source.
// The intended frame is published before the seek lands so rapid steps accumulate.
func (s *Session) StepFrame(direction Direction, amount int) error {
	if s.driver == nil {
		return ErrNoSource
	}
	if s.state.Playing {
		if err := s.Pause(); err != nil {
			return err
		}
	}
	if s.state.TotalFrames <= 0 {
		return nil
	}

	frame := s.clampFrame(s.state.CurrentFrame + int(direction)*amount)
	return s.dispatchSeek(s.timeFor(frame), true)
}

// SetVolume sets a linear level in [0, 1]. Mute is left alone.
func (s *Session) SetVolume(level float64) error {
	if math.IsNaN(level) {
		level = 0
	}
	level = lo.Clamp(level, 0, 1)
	s.state.Volume = level
	if level > 0 {
		s.lastVolume = level
	}
	if s.driver != nil {
		if err := s.driver.SetVolume(level); err != nil {
			return s.transportError(err)
		}
	}
	s.publish()
	return nil
}

// SetMuted toggles mute. Unmuting at zero volume restores the last audible level.
func (s *Session) SetMuted(muted bool) error {
	s.state.Muted = muted
	if !muted && s.state.Volume == 0 {
		s.state.Volume = s.lastVolume
		if s.driver != nil {
			if err := s.driver.SetVolume(s.state.Volume); err != nil {
				return s.transportError(err)
			}
		}
	}
	if s.driver != nil {
		if err := s.driver.SetMuted(muted); err != nil {
			return s.transportError(err)
		}
	}
	s.publish()
	return nil
}

func (s *Session) metadataReady() {
	if s.cancelMetadata != nil {
		s.cancelMetadata()
	}

	if !s.state.Loaded {
		s.state.Loaded = true
		s.state.State = Ready
		s.settle()
		s.publish()
	}

	driver, token := s.driver, s.token
	known := metadata.Values{Duration: s.state.Duration, NaturalSize: s.state.NaturalSize}
	if s.state.RateResolved {
		known.FrameRate = s.state.FrameRate
	}

	s.cancelMetadata = s.opts.Resolver.Resolve(known, driver.Metadata, func(v metadata.Values) {
		if s.token != token {
			return
		}
		s.applyMetadata(v)
	}, func(v metadata.Values, complete bool) {
		if s.token == token {
			s.logger().Debugf("metadata duration=%.3f rate=%.3f size=%dx%d complete=%t",
				v.Duration, v.FrameRate, v.NaturalSize.Width, v.NaturalSize.Height, complete)
		}
	})
}

func (s *Session) applyMetadata(v metadata.Values) {
	if metadata.Positive(v.Duration) {
		s.state.Duration = v.Duration
	}
	if metadata.Positive(v.FrameRate) {
		s.state.FrameRate = v.FrameRate
		s.state.RateResolved = true
	}
	if v.NaturalSize.Valid() {
		s.state.NaturalSize = v.NaturalSize
	}
	s.state.TotalFrames = metadata.TotalFrames(s.state.FrameRate, s.state.Duration)
	s.state.CurrentFrame = s.frameFor(s.state.CurrentTime)
	s.publish()
}

func (s *Session) position(seconds float64) {
	if math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return
	}
	if s.pendingSeek.IsPresent() {
		return
	}

	t := s.clampTime(seconds)
	frame := s.frameFor(t)
	if t == s.state.CurrentTime && frame == s.state.CurrentFrame {
		return
	}
	s.state.CurrentTime = t
	s.state.CurrentFrame = frame
	s.publish()
}

func (s *Session) seekDone(target float64) {
	pending, ok := s.pendingSeek.Get()
	if !ok || math.Abs(pending-target) > math.Max(s.opts.SeekEpsilon, frameSlack) {
		return
	}
	s.clearSeek()
}

func (s *Session) ended() {
	s.logger().Infof("end of stream")
	s.state.Playing = false
	s.state.State = Ended

	// positions reported before the rewind lands would show the end again
	if err := s.dispatchSeek(0, true); err != nil {
		s.logger().Warnf("rewind after end: %v", err)
	}
}

func (s *Session) failed(err error) {
	s.state.Loaded = false
	s.state.Playing = false
	s.state.State = Failed
	s.clearSeek()
	if s.poll != nil {
		s.poll.Stop()
		s.poll = nil
	}
	if s.cancelMetadata != nil {
		s.cancelMetadata()
		s.cancelMetadata = nil
	}
	s.publish()
	s.fail(&PlaybackError{Backend: s.driver.Kind(), Err: err})
}

func (s *Session) redraw() {
	if s.opts.Surface != nil {
		s.opts.Surface.NeedsDisplay()
	}
}

func (s *Session) clampTime(t float64) float64 {
	if math.IsNaN(t) {
		return 0
	}
	if s.state.Duration > 0 {
		return lo.Clamp(t, 0, s.state.Duration)
	}
	return math.Max(t, 0)
}

func (s *Session) clampFrame(frame int) int {
	if s.state.TotalFrames <= 0 {
		return 0
	}
	return lo.Clamp(frame, 0, s.state.TotalFrames-1)
}

func (s *Session) frameFor(t float64) int {
	return s.clampFrame(int(math.Floor(t*s.state.FrameRate + frameSlack)))
}

func (s *Session) timeFor(frame int) float64 {
	return float64(frame) / s.state.FrameRate
}
