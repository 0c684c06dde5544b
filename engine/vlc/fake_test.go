package vlc

type fakeEngine struct {
	args     []string
	mrl      string
	path     bool
	options  []string
	plays    int
	paused   bool
	stops    int
	time     int64
	setTimes []int64
	fast     []bool
	length   int64
	fps      float64
	width    int
	height   int
	state    State
	volume   int
	muted    bool
	released int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{time: -1, length: -1, state: StateOpening, volume: -1}
}

func (f *fakeEngine) Open(mrl string, path bool, options []string) error {
	f.mrl, f.path, f.options = mrl, path, options
	return nil
}

func (f *fakeEngine) Play() error {
	f.plays++
	return nil
}

func (f *fakeEngine) SetPause(paused bool) { f.paused = paused }

func (f *fakeEngine) Stop() {
	f.stops++
	f.state = StateStopped
}

func (f *fakeEngine) Time() int64 { return f.time }

func (f *fakeEngine) SetTime(ms int64, fast bool) {
	f.setTimes = append(f.setTimes, ms)
	f.fast = append(f.fast, fast)
}

func (f *fakeEngine) Length() int64 { return f.length }

func (f *fakeEngine) FPS() float64 { return f.fps }

func (f *fakeEngine) VideoSize() (int, int, bool) {
	return f.width, f.height, f.width > 0
}

func (f *fakeEngine) State() State { return f.state }

func (f *fakeEngine) SetVolume(percent int) error {
	f.volume = percent
	return nil
}

func (f *fakeEngine) SetMute(muted bool) { f.muted = muted }

func (f *fakeEngine) LastError() string { return "cannot open access" }

func (f *fakeEngine) Release() { f.released++ }

// recordingSink is called synchronously from Position on the test goroutine.
type recordingSink struct {
	events  []string
	targets []float64
	err     error
}

func (s *recordingSink) MetadataReady()   { s.events = append(s.events, "metadata") }
func (s *recordingSink) Position(float64) {}
func (s *recordingSink) Ended()           { s.events = append(s.events, "ended") }
func (s *recordingSink) Redraw()          {}

func (s *recordingSink) SeekDone(target float64) {
	s.events = append(s.events, "seek")
	s.targets = append(s.targets, target)
}

func (s *recordingSink) Failed(err error) {
	s.events = append(s.events, "failed")
	s.err = err
}
