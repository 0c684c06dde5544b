package player

import (
	"errors"
	"fmt"

	"github.com/glasspane/glasspane/backend"
	"github.com/glasspane/glasspane/dynlib"
	"github.com/glasspane/glasspane/engine/mpv"
	"github.com/glasspane/glasspane/engine/native"
	"github.com/glasspane/glasspane/engine/vlc"
	"github.com/glasspane/glasspane/session"
)

var ErrNoFramework = errors.New("no media framework binding")

// DriverFactory builds a fresh driver for one source.
type DriverFactory func() (session.Driver, error)

// Drivers holds one factory per backend. Missing entries get the default engines.
type Drivers map[backend.Kind]DriverFactory

// New builds a driver for kind.
func (d Drivers) New(kind backend.Kind) (session.Driver, error) {
	factory, ok := d[kind]
	if !ok {
		return nil, fmt.Errorf("no driver for %s", kind)
	}
	return factory()
}

func (d Drivers) withDefaults(p *Player, opts Options) Drivers {
	out := Drivers{
		backend.Native: func() (session.Driver, error) {
			if opts.Framework == nil {
				return nil, ErrNoFramework
			}
			return native.NewDriver(opts.Framework), nil
		},
		backend.RenderLoop: func() (session.Driver, error) {
			lib, err := p.library(backend.RenderLoop)
			if err != nil {
				return nil, err
			}
			api, err := mpv.Bind(lib)
			if err != nil {
				return nil, err
			}
			return mpv.NewDriver(mpv.Factory(api), mpv.Options{
				Headless: opts.Surface == nil,
				Render:   opts.Render,
			}), nil
		},
		backend.Shim: func() (session.Driver, error) {
			lib, err := p.library(backend.Shim)
			if err != nil {
				return nil, err
			}
			api, err := vlc.Bind(lib)
			if err != nil {
				return nil, err
			}
			return vlc.NewDriver(vlc.Factory(api), vlc.Options{Headless: opts.Surface == nil}), nil
		},
	}
	for kind, factory := range d {
		out[kind] = factory
	}
	return out
}

func (p *Player) library(kind backend.Kind) (*dynlib.Library, error) {
	lib, ok := p.libraries[kind]
	if !ok {
		return nil, fmt.Errorf("no library for %s", kind)
	}
	return lib, nil
}

// symbolsFor returns the entry points a plugin's library must and may export.
func symbolsFor(kind backend.Kind) (required, optional []string) {
	switch kind {
	case backend.RenderLoop:
		return mpv.Symbols, nil
	case backend.Shim:
		return vlc.Symbols, vlc.OptionalSymbols
	default:
		return nil, nil
	}
}
