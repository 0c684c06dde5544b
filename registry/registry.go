// Package registry tracks which playback backends are installed, enabled and loaded.
package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/glasspane/glasspane/acquire"
	"github.com/glasspane/glasspane/backend"
	"github.com/glasspane/glasspane/log"
	"github.com/samber/lo"
	"github.com/samber/mo"
)

// Preferences is the persisted per-backend enabled flag.
type Preferences interface {
	Enabled(kind backend.Kind) bool
	SetEnabled(kind backend.Kind, enabled bool) error
}

// Library is the process-lifetime handle of a plugin's shared library.
type Library interface {
	Load(path string) error
	Unload() error
	Loaded() bool
}

// Installation answers where a plugin's library lives on disk.
type Installation interface {
	Directory() string
	Locate() mo.Option[acquire.Location]
	Invalidate()
	Environment(loc acquire.Location) map[string]string
}

// Entry binds a plugin backend to its installation and library.
type Entry struct {
	Kind         backend.Kind
	Installation Installation
	Library      Library
}

// Readiness is the derived state of one backend.
type Readiness struct {
	Installed bool
	Enabled   bool
	Loaded    bool
}

func (r Readiness) Ready() bool {
	return r.Installed && r.Enabled && r.Loaded
}

var ErrUnknownBackend = errors.New("unknown backend")

type Registry struct {
	prefs   Preferences
	env     Environment
	entries map[backend.Kind]Entry
}

// New builds a registry over plugin entries. Native is implicit and always ready.
func New(prefs Preferences, env Environment, entries ...Entry) *Registry {
	return &Registry{
		prefs:   prefs,
		env:     env,
		entries: lo.KeyBy(entries, func(e Entry) backend.Kind { return e.Kind }),
	}
}

// Entry returns the plugin entry of kind.
func (r *Registry) Entry(kind backend.Kind) (Entry, bool) {
	e, ok := r.entries[kind]
	return e, ok
}

// Kinds lists the registered plugin backends in routing order.
func (r *Registry) Kinds() []backend.Kind {
	kinds := lo.Keys(r.entries)
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

func (r *Registry) Installed(kind backend.Kind) bool {
	if !kind.IsPlugin() {
		return true
	}
	e, ok := r.entries[kind]
	return ok && e.Installation.Locate().IsPresent()
}

func (r *Registry) Enabled(kind backend.Kind) bool {
	if !kind.IsPlugin() {
		return true
	}
	return r.prefs.Enabled(kind)
}

func (r *Registry) Loaded(kind backend.Kind) bool {
	if !kind.IsPlugin() {
		return true
	}
	e, ok := r.entries[kind]
	return ok && e.Library.Loaded()
}

func (r *Registry) Readiness(kind backend.Kind) Readiness {
	return Readiness{
		Installed: r.Installed(kind),
		Enabled:   r.Enabled(kind),
		Loaded:    r.Loaded(kind),
	}
}

// Ready reports installed && enabled && loaded.
func (r *Registry) Ready(kind backend.Kind) bool {
	return r.Readiness(kind).Ready()
}

// ReadyPlugins lists the plugin backends that can play right now.
func (r *Registry) ReadyPlugins() []backend.Kind {
	return lo.Filter(r.Kinds(), func(k backend.Kind, _ int) bool { return r.Ready(k) })
}

func (r *Registry) SetEnabled(kind backend.Kind, enabled bool) error {
	if _, ok := r.entries[kind]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBackend, kind)
	}
	return r.prefs.SetEnabled(kind, enabled)
}

// TryLoad loads an enabled, installed plugin. It does nothing otherwise. The loader search
// path gets the bundle and assets directories prepended before the first load.
func (r *Registry) TryLoad(kind backend.Kind) error {
	if !kind.IsPlugin() {
		return nil
	}
	e, ok := r.entries[kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBackend, kind)
	}
	if e.Library.Loaded() || !r.prefs.Enabled(kind) {
		return nil
	}

	loc, ok := e.Installation.Locate().Get()
	if !ok {
		return nil
	}

	if err := PrependSearchPath(r.env, loc.Bundle, loc.Assets); err != nil {
		return fmt.Errorf("augment search path: %w", err)
	}
	for k, v := range e.Installation.Environment(loc) {
		if err := r.env.Setenv(k, v); err != nil {
			return fmt.Errorf("set %s: %w", k, err)
		}
	}

	logger := log.With(log.Fields{"backend": kind.Name(), "path": loc.Library, "system": loc.System})
	if err := e.Library.Load(loc.Library); err != nil {
		logger.Errorf("load failed: %v", err)
		return err
	}
	logger.Infof("backend loaded")
	return nil
}

// TryLoadAll attempts every plugin and joins the failures.
func (r *Registry) TryLoadAll() error {
	return errors.Join(lo.Map(r.Kinds(), func(k backend.Kind, _ int) error { return r.TryLoad(k) })...)
}

// Unload releases a plugin's library. Ready becomes false until the next TryLoad.
func (r *Registry) Unload(kind backend.Kind) error {
	e, ok := r.entries[kind]
	if !ok {
		return nil
	}
	return e.Library.Unload()
}

// Uninstalled drops cached state after a plugin's files were removed.
func (r *Registry) Uninstalled(kind backend.Kind) {
	e, ok := r.entries[kind]
	if !ok {
		return
	}
	if err := e.Library.Unload(); err != nil {
		log.Warnf("unload %s: %v", kind, err)
	}
	e.Installation.Invalidate()
}
