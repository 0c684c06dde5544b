// Package player composes the playback core a host application embeds: the backend
// registry, one installer per plugin, the format router and the playback session.
//
// Nothing here is global. The host constructs a Player with its main loop and its media
// framework binding and keeps it for the lifetime of the process.
package player

import (
	"context"
	"errors"
	"fmt"

	"github.com/glasspane/glasspane/acquire"
	"github.com/glasspane/glasspane/backend"
	"github.com/glasspane/glasspane/config"
	"github.com/glasspane/glasspane/dynlib"
	"github.com/glasspane/glasspane/engine/mpv"
	"github.com/glasspane/glasspane/engine/native"
	"github.com/glasspane/glasspane/filesystem"
	"github.com/glasspane/glasspane/key"
	"github.com/glasspane/glasspane/log"
	"github.com/glasspane/glasspane/mainloop"
	"github.com/glasspane/glasspane/metadata"
	"github.com/glasspane/glasspane/registry"
	"github.com/glasspane/glasspane/router"
	"github.com/glasspane/glasspane/session"
	"github.com/glasspane/glasspane/where"
	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// Options wires a Player. Zero fields get production defaults.
type Options struct {
	Loop mainloop.Loop
	Fs   afero.Fs
	// Root is the app-private plugin cache. Each plugin installs into its own subdirectory.
	Root        string
	Loader      dynlib.Loader
	Preferences registry.Preferences
	Environment registry.Environment
	Manifests   map[backend.Kind]acquire.Manifest
	// Install overrides collaborators of every installer, mostly for tests.
	Install acquire.Options
	// Framework is the host's OS media framework binding. Without it native sources fail to open.
	Framework native.Framework
	Surface   session.Surface
	// Render is handed to libmpv's render context when a Surface is present.
	Render  []mpv.RenderParam
	Drivers Drivers
}

// Player is the composition root.
type Player struct {
	loop       mainloop.Loop
	registry   *registry.Registry
	session    *session.Session
	libraries  map[backend.Kind]*dynlib.Library
	installers map[backend.Kind]*acquire.Installer
	drivers    Drivers
}

// New builds the registry, installers and session from opts.
func New(opts Options) *Player {
	if opts.Fs == nil {
		opts.Fs = filesystem.API()
	}
	if opts.Root == "" {
		opts.Root = where.Plugins()
	}
	if opts.Loader == nil {
		opts.Loader = dynlib.SystemLoader()
	}
	if opts.Environment == nil {
		opts.Environment = &registry.ProcessEnvironment{}
	}
	if opts.Manifests == nil {
		opts.Manifests = acquire.DefaultManifests()
	}

	p := &Player{
		loop:       opts.Loop,
		libraries:  make(map[backend.Kind]*dynlib.Library),
		installers: make(map[backend.Kind]*acquire.Installer),
	}

	var entries []registry.Entry
	for _, kind := range backend.Plugins() {
		manifest, ok := opts.Manifests[kind]
		if !ok {
			continue
		}

		required, optional := symbolsFor(kind)
		library := dynlib.New(opts.Loader, required, optional)
		installation := acquire.NewInstallation(opts.Fs, opts.Root, manifest)

		installOpts := opts.Install
		installOpts.Fs = opts.Fs
		if installOpts.Verifier == nil {
			installOpts.Verifier = library
		}
		if installOpts.Library == nil {
			installOpts.Library = library
		}

		p.libraries[kind] = library
		p.installers[kind] = acquire.NewInstaller(installation, installOpts)
		entries = append(entries, registry.Entry{Kind: kind, Installation: installation, Library: library})
	}

	p.registry = registry.New(opts.Preferences, opts.Environment, entries...)
	p.drivers = opts.Drivers.withDefaults(p, opts)
	p.session = session.New(session.Options{
		Loop:        opts.Loop,
		Resolver:    metadata.NewResolver(opts.Loop),
		Surface:     opts.Surface,
		PollRate:    viper.GetFloat64(key.PlaybackPollRate),
		SeekEpsilon: config.SeekEpsilon(),
	})
	return p
}

func (p *Player) Registry() *registry.Registry {
	return p.registry
}

func (p *Player) Session() *session.Session {
	return p.session
}

// Installers returns the installer of every plugin backend.
func (p *Player) Installers() map[backend.Kind]*acquire.Installer {
	return p.installers
}

// Installer returns the installer of one plugin backend.
func (p *Player) Installer(kind backend.Kind) (*acquire.Installer, error) {
	i, ok := p.installers[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", registry.ErrUnknownBackend, kind)
	}
	return i, nil
}

// Start loads every enabled and installed plugin. Failures are logged and joined; the
// native backend stays usable regardless.
func (p *Player) Start() error {
	err := p.registry.TryLoadAll()
	if err != nil {
		log.Warnf("plugin load: %v", err)
	}
	return err
}

// Install runs the installer of kind in the background. On success the plugin is loaded
// right away when it is enabled.
func (p *Player) Install(ctx context.Context, kind backend.Kind, progress acquire.Progress, done func(mo.Result[*acquire.Receipt])) error {
	installer, err := p.Installer(kind)
	if err != nil {
		return err
	}

	// a reinstall replaces the files under a loaded library
	p.release(kind)
	if err := p.registry.Unload(kind); err != nil {
		log.Warnf("unload %s before install: %v", kind, err)
	}

	installer.Start(ctx, p.loop, progress, func(result mo.Result[*acquire.Receipt]) {
		if result.IsOk() {
			if err := p.registry.TryLoad(kind); err != nil {
				log.Warnf("load %s after install: %v", kind, err)
			}
		}
		if done != nil {
			done(result)
		}
	})
	return nil
}

// Uninstall removes a plugin's files, closing the current source first when it plays on
// that plugin.
func (p *Player) Uninstall(kind backend.Kind) error {
	installer, err := p.Installer(kind)
	if err != nil {
		return err
	}

	p.release(kind)
	if err := installer.Uninstall(); err != nil {
		return err
	}
	p.registry.Uninstalled(kind)
	return nil
}

// release closes the current source when it plays on kind.
func (p *Player) release(kind backend.Kind) {
	if d, ok := p.session.Driver().Get(); ok && d.Kind() == kind {
		p.session.Close()
	}
}

// Watch follows plugin directories until ctx is done. When a plugin's files disappear
// outside the installer, a source playing on it is closed and its library unloaded.
func (p *Player) Watch(ctx context.Context) error {
	return p.registry.Watch(ctx, func(kind backend.Kind) {
		p.loop.Post(func() { p.removed(kind) })
	})
}

func (p *Player) removed(kind backend.Kind) {
	if p.registry.Installed(kind) {
		return
	}
	p.release(kind)
	if err := p.registry.Unload(kind); err != nil {
		log.Warnf("unload %s after removal: %v", kind, err)
	}
}

// Route picks the backend for a source without opening it.
func (p *Player) Route(src string) (backend.Kind, error) {
	return router.BackendFor(router.Extension(src), p.registry)
}

// Open routes src and loads it on the chosen backend. Routing fails before any native call
// when a plugin format has no ready plugin.
func (p *Player) Open(src session.Source) error {
	kind, err := p.Route(src.URL)
	if err != nil {
		return err
	}
	return p.open(kind, src)
}

// OpenOn loads src on kind, bypassing format routing. A plugin backend must be ready.
func (p *Player) OpenOn(kind backend.Kind, src session.Source) error {
	if kind.IsPlugin() && !p.registry.Ready(kind) {
		return fmt.Errorf("%w: %s is not installed, enabled and loaded", router.ErrUnsupportedFormat, kind)
	}
	return p.open(kind, src)
}

func (p *Player) open(kind backend.Kind, src session.Source) error {
	driver, err := p.drivers.New(kind)
	if err != nil {
		return &session.OpenError{Backend: kind, URL: src.URL, Detail: err.Error()}
	}

	log.With(log.Fields{"backend": kind.Name()}).Infof("opening %s", src.URL)
	return p.session.Load(driver, src)
}

// Close releases the current source.
func (p *Player) Close() {
	p.session.Close()
}

// Shutdown closes the session and unloads every plugin library.
func (p *Player) Shutdown() error {
	p.session.Close()
	return errors.Join(lo.Map(p.registry.Kinds(), func(kind backend.Kind, _ int) error {
		return p.registry.Unload(kind)
	})...)
}
