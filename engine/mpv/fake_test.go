package mpv

import (
	"errors"
	"sync"
	"time"
)

// fakeEngine records what the driver asks of libmpv and replays queued events.
type fakeEngine struct {
	mu        sync.Mutex
	options   [][2]string
	commands  [][]string
	strings   map[string]string
	doubles   map[string]float64
	events    []Event
	wakeup    func()
	update    func()
	initErr   error
	inits     int
	destroyed int
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{strings: map[string]string{}, doubles: map[string]float64{}}
}

func (f *fakeEngine) SetOption(name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.options = append(f.options, [2]string{name, value})
	return nil
}

func (f *fakeEngine) option(name string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, o := range f.options {
		if o[0] == name {
			return o[1], true
		}
	}
	return "", false
}

func (f *fakeEngine) Initialize() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inits++
	return f.initErr
}

func (f *fakeEngine) Command(args ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands = append(f.commands, args)
	return nil
}

func (f *fakeEngine) lastCommand() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.commands) == 0 {
		return nil
	}
	return f.commands[len(f.commands)-1]
}

func (f *fakeEngine) GetDouble(name string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.doubles[name]
	if !ok {
		return 0, &Error{Op: "get " + name, Code: -10, Message: "property unavailable"}
	}
	return v, nil
}

func (f *fakeEngine) GetString(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.strings[name]
	if !ok {
		return "", errors.New("property unavailable")
	}
	return v, nil
}

func (f *fakeEngine) SetString(name, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.strings[name] = value
	return nil
}

func (f *fakeEngine) get(name string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.strings[name]
}

func (f *fakeEngine) setDouble(name string, v float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.doubles[name] = v
}

func (f *fakeEngine) WaitEvent(float64) Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.events) == 0 {
		return Event{ID: EventNone}
	}
	ev := f.events[0]
	f.events = f.events[1:]
	return ev
}

// push queues events and fires the wakeup callback like libmpv would.
func (f *fakeEngine) push(events ...Event) {
	f.mu.Lock()
	f.events = append(f.events, events...)
	wake := f.wakeup
	f.mu.Unlock()
	if wake != nil {
		wake()
	}
}

func (f *fakeEngine) SetWakeup(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.wakeup = fn
}

func (f *fakeEngine) AttachRender(_ []RenderParam, update func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.update = update
	return nil
}

func (f *fakeEngine) Render([]RenderParam) error {
	return nil
}

func (f *fakeEngine) ErrorString(code int32) string {
	return "loading failed"
}

func (f *fakeEngine) Destroy() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed++
}

// recordingSink collects driver events from any goroutine.
type recordingSink struct {
	events chan string
	mu     sync.Mutex
	err    error
	target float64
}

func newRecordingSink() *recordingSink {
	return &recordingSink{events: make(chan string, 64)}
}

func (s *recordingSink) MetadataReady() { s.events <- "metadata" }

func (s *recordingSink) Position(float64) { s.events <- "position" }

func (s *recordingSink) SeekDone(target float64) {
	s.mu.Lock()
	s.target = target
	s.mu.Unlock()
	s.events <- "seek"
}

func (s *recordingSink) Ended() { s.events <- "ended" }

func (s *recordingSink) Failed(err error) {
	s.mu.Lock()
	s.err = err
	s.mu.Unlock()
	s.events <- "failed"
}

func (s *recordingSink) Redraw() { s.events <- "redraw" }

// next waits for the next event, or returns "" after a second.
func (s *recordingSink) next() string {
	select {
	case ev := <-s.events:
		return ev
	case <-time.After(time.Second):
		return ""
	}
}

func (s *recordingSink) idle() bool {
	select {
	case <-s.events:
		return false
	case <-time.After(20 * time.Millisecond):
		return true
	}
}
