//go:build darwin || freebsd || linux

package mpv

import (
	"fmt"
	"sync"

	"github.com/ebitengine/purego"
	"github.com/glasspane/glasspane/dynlib"
)

var (
	trampolines sync.Once
	wakeupFn    uintptr
	updateFn    uintptr
)

// callbackTrampoline returns the C function pointer shared by every handle. purego callbacks
// are never freed, so exactly one is created per process.
func callbackTrampoline() uintptr {
	trampolines.Do(func() {
		wakeupFn = purego.NewCallback(func(ctx uintptr) { dispatchCallback(ctx) })
		updateFn = purego.NewCallback(func(ctx uintptr) { dispatchCallback(ctx) })
	})
	return wakeupFn
}

func updateTrampoline() uintptr {
	callbackTrampoline()
	return updateFn
}

// Bind resolves the typed API from a loaded library.
func Bind(lib *dynlib.Library) (*API, error) {
	if !lib.Loaded() {
		return nil, fmt.Errorf("bind libmpv: %w", dynlib.ErrLoadFailed)
	}

	api := &API{}
	targets := map[string]any{
		"mpv_client_api_version":                 &api.ClientAPIVersion,
		"mpv_error_string":                       &api.ErrorString,
		"mpv_create":                             &api.Create,
		"mpv_initialize":                         &api.Initialize,
		"mpv_terminate_destroy":                  &api.TerminateDestroy,
		"mpv_set_option_string":                  &api.SetOptionString,
		"mpv_command":                            &api.Command,
		"mpv_get_property":                       &api.GetProperty,
		"mpv_set_property_string":                &api.SetPropertyString,
		"mpv_get_property_string":                &api.GetPropertyString,
		"mpv_free":                               &api.Free,
		"mpv_set_wakeup_callback":                &api.SetWakeupCallback,
		"mpv_wait_event":                         &api.WaitEvent,
		"mpv_render_context_create":              &api.RenderContextCreate,
		"mpv_render_context_free":                &api.RenderContextFree,
		"mpv_render_context_set_update_callback": &api.RenderContextSetUpdateCallback,
		"mpv_render_context_render":              &api.RenderContextRender,
	}

	for _, name := range Symbols {
		addr, ok := lib.Symbol(name)
		if !ok {
			return nil, &dynlib.SymbolMissingError{Path: lib.Path(), Name: name}
		}
		purego.RegisterFunc(targets[name], addr)
	}

	if err := api.Negotiate(); err != nil {
		return nil, err
	}
	return api, nil
}
