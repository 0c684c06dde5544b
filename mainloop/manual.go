package mainloop

import (
	"sort"
	"sync"
	"time"
)

// Manual is a deterministic loop with a virtual clock. Nothing runs until Flush or Advance is called,
// which makes it the loop of choice for tests of code that schedules retries and polls.
type Manual struct {
	mu     sync.Mutex
	now    time.Duration
	queue  []func()
	timers []*manualTimer
	seq    int
}

type manualTimer struct {
	m      *Manual
	at     time.Duration
	every  time.Duration
	fn     func()
	seq    int
	cancel bool
}

func (t *manualTimer) Stop() {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	t.cancel = true
}

// NewManual creates a loop whose clock starts at zero.
func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Post(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, fn)
}

func (m *Manual) After(d time.Duration, fn func()) Timer {
	return m.schedule(d, 0, fn)
}

func (m *Manual) Every(d time.Duration, fn func()) Timer {
	return m.schedule(d, d, fn)
}

func (m *Manual) schedule(d, every time.Duration, fn func()) *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{m: m, at: m.now + d, every: every, fn: fn, seq: m.seq}
	m.timers = append(m.timers, t)
	return t
}

// Now reports the virtual time elapsed since the loop was created.
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Flush runs posted closures, including ones posted while flushing, until the queue is empty.
func (m *Manual) Flush() int {
	n := 0
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return n
		}
		fn := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()

		fn()
		n++
	}
}

// Advance moves the clock forward by d, firing due timers in order and flushing after each one.
func (m *Manual) Advance(d time.Duration) {
	m.Flush()
	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		t := m.nextDue(target)
		if t == nil {
			break
		}
		t.fn()
		m.Flush()
	}

	m.mu.Lock()
	m.now = target
	m.mu.Unlock()
	m.Flush()
}

func (m *Manual) nextDue(target time.Duration) *manualTimer {
	m.mu.Lock()
	defer m.mu.Unlock()

	live := m.timers[:0]
	for _, t := range m.timers {
		if !t.cancel {
			live = append(live, t)
		}
	}
	m.timers = live

	sort.SliceStable(m.timers, func(i, j int) bool {
		if m.timers[i].at == m.timers[j].at {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].at < m.timers[j].at
	})

	if len(m.timers) == 0 || m.timers[0].at > target {
		return nil
	}

	t := m.timers[0]
	m.now = t.at
	if t.every > 0 {
		t.at += t.every
	} else {
		t.cancel = true
	}
	return t
}

// Timers reports how many timers are still scheduled.
func (m *Manual) Timers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.timers {
		if !t.cancel {
			n++
		}
	}
	return n
}

// FlushUntil flushes repeatedly until cond holds or the real-time timeout expires.
// It exists for code under test that posts from its own goroutines.
func (m *Manual) FlushUntil(cond func() bool, timeout time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for {
		m.Flush()
		if cond() {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(time.Millisecond)
	}
}
