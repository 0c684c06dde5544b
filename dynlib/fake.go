package dynlib

import (
	"fmt"
	"sync"
)

// Fake is an in-memory Loader. Libraries are registered by path together with the symbols they export.
// Addresses it hands out are opaque and must never be called.
type Fake struct {
	mu      sync.Mutex
	libs    map[string]map[string]uintptr
	refused map[string]string
	open    map[uintptr]string
	next    uintptr

	Opens  int
	Closes int
}

// NewFake creates a loader that knows no libraries.
func NewFake() *Fake {
	return &Fake{
		libs:    make(map[string]map[string]uintptr),
		refused: make(map[string]string),
		open:    make(map[uintptr]string),
		next:    0x1000,
	}
}

// Provide registers a library at path exporting symbols.
func (f *Fake) Provide(path string, symbols ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	table := make(map[string]uintptr, len(symbols))
	for i, name := range symbols {
		table[name] = uintptr(0x10000 + i*0x10)
	}
	f.libs[path] = table
	delete(f.refused, path)
}

// Refuse makes Open fail for path with the given system message.
func (f *Fake) Refuse(path, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refused[path] = reason
}

// Handles reports how many libraries are open.
func (f *Fake) Handles() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.open)
}

func (f *Fake) Open(path string) (uintptr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if reason, ok := f.refused[path]; ok {
		return 0, fmt.Errorf("%s", reason)
	}
	if _, ok := f.libs[path]; !ok {
		return 0, fmt.Errorf("dlopen(%s): image not found", path)
	}
	f.Opens++
	f.next++
	f.open[f.next] = path
	return f.next, nil
}

func (f *Fake) Lookup(handle uintptr, name string) (uintptr, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	path, ok := f.open[handle]
	if !ok {
		return 0, fmt.Errorf("invalid handle %#x", handle)
	}
	addr, ok := f.libs[path][name]
	if !ok {
		return 0, fmt.Errorf("dlsym(%s): symbol not found", name)
	}
	return addr, nil
}

func (f *Fake) Close(handle uintptr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.open[handle]; !ok {
		return fmt.Errorf("invalid handle %#x", handle)
	}
	f.Closes++
	delete(f.open, handle)
	return nil
}
