// Package dynlib opens native shared libraries at runtime and resolves a fixed set of entry points.
//
// Resolution is all-or-none: a Library is either fully loaded with every required symbol
// present, or not loaded at all. Typed function tables are bound on top of it by the engine
// packages.
package dynlib

import (
	"fmt"
	"sync"

	"github.com/glasspane/glasspane/log"
)

// Loader is the operating-system facility behind a Library.
type Loader interface {
	// Open loads the library at path with global symbol visibility.
	Open(path string) (uintptr, error)
	// Lookup resolves a named symbol in an opened library.
	Lookup(handle uintptr, name string) (uintptr, error)
	// Close releases an opened library.
	Close(handle uintptr) error
}

// Library is a shared library together with its resolved entry points.
type Library struct {
	loader   Loader
	required []string
	optional []string

	mu      sync.RWMutex
	handle  uintptr
	path    string
	symbols map[string]uintptr
}

// New describes a library that needs every symbol in required and resolves optional when present.
func New(loader Loader, required, optional []string) *Library {
	return &Library{
		loader:   loader,
		required: required,
		optional: optional,
	}
}

// Load opens the library and resolves all required symbols.
// It is a no-op when the library is already loaded. On a missing symbol the handle is closed
// and nothing stays resolved.
func (l *Library) Load(path string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.symbols != nil {
		return nil
	}

	handle, err := l.loader.Open(path)
	if err != nil {
		return &LoadError{Path: path, Detail: err.Error()}
	}

	symbols := make(map[string]uintptr, len(l.required)+len(l.optional))
	for _, name := range l.required {
		addr, err := l.loader.Lookup(handle, name)
		if err != nil || addr == 0 {
			if cerr := l.loader.Close(handle); cerr != nil {
				log.Warnf("close %s after missing symbol: %v", path, cerr)
			}
			return &SymbolMissingError{Path: path, Name: name}
		}
		symbols[name] = addr
	}

	for _, name := range l.optional {
		if addr, err := l.loader.Lookup(handle, name); err == nil && addr != 0 {
			symbols[name] = addr
		}
	}

	l.handle = handle
	l.path = path
	l.symbols = symbols
	log.With(log.Fields{"path": path, "symbols": len(symbols)}).Infof("library loaded")
	return nil
}

// Unload closes the library and forgets every resolved symbol. It is safe to call when not loaded.
func (l *Library) Unload() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.symbols == nil {
		return nil
	}

	handle, path := l.handle, l.path
	l.handle = 0
	l.path = ""
	l.symbols = nil

	if err := l.loader.Close(handle); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	log.With(log.Fields{"path": path}).Infof("library unloaded")
	return nil
}

// Loaded reports whether the symbol table is populated.
func (l *Library) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.symbols != nil
}

// Path returns the file the library was loaded from, or "" when not loaded.
func (l *Library) Path() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.path
}

// Symbol returns the address of a resolved entry point.
func (l *Library) Symbol(name string) (uintptr, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	addr, ok := l.symbols[name]
	return addr, ok
}

// Has reports whether an entry point, required or optional, was resolved.
func (l *Library) Has(name string) bool {
	_, ok := l.Symbol(name)
	return ok
}

// Verify performs a full load-and-unload cycle of path on a throwaway library with the same symbol set.
func (l *Library) Verify(path string) error {
	probe := New(l.loader, l.required, nil)
	if err := probe.Load(path); err != nil {
		return err
	}
	return probe.Unload()
}
