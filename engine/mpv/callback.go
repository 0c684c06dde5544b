package mpv

import "sync"

// Native callbacks receive an opaque token instead of a pointer to Go memory. The token
// indexes this table, so a callback racing a Close finds nothing rather than a dead object.
var callbacks = struct {
	sync.Mutex
	next uintptr
	fns  map[uintptr]func()
}{fns: make(map[uintptr]func())}

func registerCallback(fn func()) uintptr {
	callbacks.Lock()
	defer callbacks.Unlock()
	callbacks.next++
	callbacks.fns[callbacks.next] = fn
	return callbacks.next
}

func unregisterCallback(token uintptr) {
	callbacks.Lock()
	defer callbacks.Unlock()
	delete(callbacks.fns, token)
}

func dispatchCallback(token uintptr) {
	callbacks.Lock()
	fn := callbacks.fns[token]
	callbacks.Unlock()
	if fn != nil {
		fn()
	}
}
