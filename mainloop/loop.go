// Package mainloop confines state mutation to a single goroutine.
//
// Background work (downloads, archive extraction, native event pumps) never touches shared
// state directly; it posts a closure to the loop, and the loop runs closures one at a time.
// Timers fire on the loop as well, so callers never need locks around session state.
package mainloop

import (
	"context"
	"sync"
	"time"
)

// Loop schedules work on the main goroutine.
type Loop interface {
	// Post runs fn on the loop. It is safe to call from any goroutine.
	Post(fn func())
	// After runs fn on the loop once d has elapsed.
	After(d time.Duration, fn func()) Timer
	// Every runs fn on the loop each time d elapses until the timer is stopped.
	Every(d time.Duration, fn func()) Timer
}

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	// Stop cancels the callback. A callback already posted but not yet run is still dropped.
	Stop()
}

// Queue is the production loop: callers post closures and the host drains them by calling Run
// from its main goroutine.
type Queue struct {
	work chan func()
}

// NewQueue creates a loop with the given buffer of pending closures.
func NewQueue(buffer int) *Queue {
	return &Queue{work: make(chan func(), buffer)}
}

// Post enqueues fn. It blocks when the buffer is full, which applies backpressure to event pumps.
func (q *Queue) Post(fn func()) {
	q.work <- fn
}

// Run executes posted closures until ctx is cancelled.
func (q *Queue) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case fn := <-q.work:
			fn()
		}
	}
}

// RunPending executes every closure already queued and returns without blocking.
// Hosts with their own event loop call it from an idle handler instead of Run.
func (q *Queue) RunPending() int {
	n := 0
	for {
		select {
		case fn := <-q.work:
			fn()
			n++
		default:
			return n
		}
	}
}

func (q *Queue) After(d time.Duration, fn func()) Timer {
	return Func(q.Post).After(d, fn)
}

func (q *Queue) Every(d time.Duration, fn func()) Timer {
	return Func(q.Post).Every(d, fn)
}

type timer struct {
	mu   sync.Mutex
	t    *time.Timer
	stop func()
	done bool
}

func (t *timer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.done = true
	if t.t != nil {
		t.t.Stop()
	}
	if t.stop != nil {
		t.stop()
	}
}

func (t *timer) stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done
}

// Func adapts a host toolkit's "run on main thread" primitive into a Loop.
// Timers are driven by the runtime and delivered through post.
type Func func(fn func())

func (f Func) Post(fn func()) {
	f(fn)
}

func (f Func) After(d time.Duration, fn func()) Timer {
	t := &timer{}
	t.t = time.AfterFunc(d, func() {
		f(func() {
			if !t.stopped() {
				fn()
			}
		})
	})
	return t
}

func (f Func) Every(d time.Duration, fn func()) Timer {
	t := &timer{}
	ticker := time.NewTicker(d)
	done := make(chan struct{})
	t.stop = func() {
		ticker.Stop()
		close(done)
	}
	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				f(func() {
					if !t.stopped() {
						fn()
					}
				})
			}
		}
	}()
	return t
}
