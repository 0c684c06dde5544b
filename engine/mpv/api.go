// Package mpv drives libmpv loaded at runtime.
//
// The library is never linked: its entry points are resolved from a dynlib.Library and bound
// into the typed API table. Client wraps one mpv handle; Driver adapts a Client to the
// session.Driver contract with an event pump goroutine.
package mpv

import (
	"errors"
	"fmt"
	"unsafe"
)

// Entry points resolved from libmpv. All are required.
var Symbols = []string{
	"mpv_client_api_version",
	"mpv_error_string",
	"mpv_create",
	"mpv_initialize",
	"mpv_terminate_destroy",
	"mpv_set_option_string",
	"mpv_command",
	"mpv_get_property",
	"mpv_set_property_string",
	"mpv_get_property_string",
	"mpv_free",
	"mpv_set_wakeup_callback",
	"mpv_wait_event",
	"mpv_render_context_create",
	"mpv_render_context_free",
	"mpv_render_context_set_update_callback",
	"mpv_render_context_render",
}

// MinAPIMajor is the oldest client API generation the bindings speak (libmpv.2).
const MinAPIMajor = 2

// Event ids, from client.h.
const (
	EventNone            int32 = 0
	EventShutdown        int32 = 1
	EventStartFile       int32 = 6
	EventEndFile         int32 = 7
	EventFileLoaded      int32 = 8
	EventVideoReconfig   int32 = 17
	EventSeek            int32 = 20
	EventPlaybackRestart int32 = 21
)

// End-of-file reasons.
const (
	EndReasonEOF   int32 = 0
	EndReasonStop  int32 = 2
	EndReasonQuit  int32 = 3
	EndReasonError int32 = 4
)

const formatDouble int32 = 5

// API is the typed libmpv entry point table.
type API struct {
	ClientAPIVersion               func() uint64
	ErrorString                    func(code int32) string
	Create                         func() uintptr
	Initialize                     func(handle uintptr) int32
	TerminateDestroy               func(handle uintptr)
	SetOptionString                func(handle uintptr, name, value string) int32
	Command                        func(handle uintptr, args **byte) int32
	GetProperty                    func(handle uintptr, name string, format int32, data unsafe.Pointer) int32
	SetPropertyString              func(handle uintptr, name, value string) int32
	GetPropertyString              func(handle uintptr, name string) uintptr
	Free                           func(data uintptr)
	SetWakeupCallback              func(handle uintptr, cb uintptr, ctx uintptr)
	WaitEvent                      func(handle uintptr, timeout float64) uintptr
	RenderContextCreate            func(res *uintptr, handle uintptr, params unsafe.Pointer) int32
	RenderContextFree              func(ctx uintptr)
	RenderContextSetUpdateCallback func(ctx uintptr, cb uintptr, cbctx uintptr)
	RenderContextRender            func(ctx uintptr, params unsafe.Pointer) int32
}

var ErrUnsupportedVersion = errors.New("unsupported libmpv client API version")

// Negotiate checks the loaded library speaks a client API the bindings understand.
func (a *API) Negotiate() error {
	v := a.ClientAPIVersion()
	if major := v >> 16; major < MinAPIMajor {
		return fmt.Errorf("%w: %d.%d, need %d.x", ErrUnsupportedVersion, major, v&0xffff, MinAPIMajor)
	}
	return nil
}

// Error is a negative libmpv status code.
type Error struct {
	Op      string
	Code    int32
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("mpv %s: %s (%d)", e.Op, e.Message, e.Code)
}

// rawEvent mirrors mpv_event.
type rawEvent struct {
	ID            int32
	Error         int32
	ReplyUserdata uint64
	Data          unsafe.Pointer
}

// rawEndFile mirrors the leading fields of mpv_event_end_file.
type rawEndFile struct {
	Reason int32
	Error  int32
}

// Event is a decoded libmpv event.
type Event struct {
	ID    int32
	Error int32
	// EndReason and EndError are set for EventEndFile.
	EndReason int32
	EndError  int32
}

// RenderParam mirrors mpv_render_param. The host supplies the parameters of its drawing API.
type RenderParam struct {
	Type int32
	Data unsafe.Pointer
}
