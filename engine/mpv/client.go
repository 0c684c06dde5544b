package mpv

import (
	"errors"
	"runtime"
	"sync"
	"unsafe"
)

// Engine is the part of a libmpv handle the driver uses.
type Engine interface {
	SetOption(name, value string) error
	Initialize() error
	Command(args ...string) error
	GetDouble(name string) (float64, error)
	GetString(name string) (string, error)
	SetString(name, value string) error
	// WaitEvent returns the next event, or an EventNone event after timeout seconds.
	WaitEvent(timeout float64) Event
	// SetWakeup registers fn to run, on an mpv thread, whenever events are pending. nil clears it.
	SetWakeup(fn func())
	// AttachRender creates a render context; update runs when a new frame is ready.
	AttachRender(params []RenderParam, update func()) error
	Render(params []RenderParam) error
	// ErrorString describes a libmpv status code.
	ErrorString(code int32) string
	// Destroy frees the render context before the handle.
	Destroy()
}

var errDestroyed = errors.New("mpv handle destroyed")

// Client is one libmpv handle.
type Client struct {
	api    *API
	handle uintptr

	mu          sync.Mutex
	render      uintptr
	wakeupToken uintptr
	updateToken uintptr
}

// NewClient creates an uninitialized handle.
func NewClient(api *API) (*Client, error) {
	handle := api.Create()
	if handle == 0 {
		return nil, &Error{Op: "create", Code: -1, Message: "out of memory"}
	}
	return &Client{api: api, handle: handle}, nil
}

// Factory returns a constructor of Clients for the driver.
func Factory(api *API) func() (Engine, error) {
	return func() (Engine, error) {
		return NewClient(api)
	}
}

func (c *Client) check(op string, code int32) error {
	if code >= 0 {
		return nil
	}
	return &Error{Op: op, Code: code, Message: c.api.ErrorString(code)}
}

func (c *Client) ErrorString(code int32) string {
	return c.api.ErrorString(code)
}

func (c *Client) live() bool {
	return c.handle != 0
}

func (c *Client) SetOption(name, value string) error {
	if !c.live() {
		return errDestroyed
	}
	return c.check("set option "+name, c.api.SetOptionString(c.handle, name, value))
}

func (c *Client) Initialize() error {
	if !c.live() {
		return errDestroyed
	}
	return c.check("initialize", c.api.Initialize(c.handle))
}

// Command runs an mpv command given as separate arguments, like `loadfile <url> replace`.
func (c *Client) Command(args ...string) error {
	if !c.live() {
		return errDestroyed
	}

	var pinner runtime.Pinner
	defer pinner.Unpin()

	argv := make([]*byte, len(args)+1)
	for i, arg := range args {
		b := append([]byte(arg), 0)
		pinner.Pin(&b[0])
		argv[i] = &b[0]
	}
	pinner.Pin(&argv[0])

	op := "command"
	if len(args) > 0 {
		op = args[0]
	}
	return c.check(op, c.api.Command(c.handle, &argv[0]))
}

func (c *Client) GetDouble(name string) (float64, error) {
	if !c.live() {
		return 0, errDestroyed
	}

	var pinner runtime.Pinner
	defer pinner.Unpin()

	var v float64
	pinner.Pin(&v)
	if err := c.check("get "+name, c.api.GetProperty(c.handle, name, formatDouble, unsafe.Pointer(&v))); err != nil {
		return 0, err
	}
	return v, nil
}

func (c *Client) GetString(name string) (string, error) {
	if !c.live() {
		return "", errDestroyed
	}

	p := c.api.GetPropertyString(c.handle, name)
	if p == 0 {
		return "", &Error{Op: "get " + name, Code: -8, Message: "property unavailable"}
	}
	defer c.api.Free(p)
	return cString(p), nil
}

func (c *Client) SetString(name, value string) error {
	if !c.live() {
		return errDestroyed
	}
	return c.check("set "+name, c.api.SetPropertyString(c.handle, name, value))
}

func (c *Client) WaitEvent(timeout float64) Event {
	if !c.live() {
		return Event{ID: EventShutdown}
	}

	p := c.api.WaitEvent(c.handle, timeout)
	if p == 0 {
		return Event{ID: EventNone}
	}
	raw := (*rawEvent)(unsafe.Pointer(p))

	ev := Event{ID: raw.ID, Error: raw.Error}
	if raw.ID == EventEndFile && raw.Data != nil {
		end := (*rawEndFile)(raw.Data)
		ev.EndReason = end.Reason
		ev.EndError = end.Error
	}
	return ev
}

func (c *Client) SetWakeup(fn func()) {
	if !c.live() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.wakeupToken != 0 {
		c.api.SetWakeupCallback(c.handle, 0, 0)
		unregisterCallback(c.wakeupToken)
		c.wakeupToken = 0
	}
	if fn == nil {
		return
	}
	c.wakeupToken = registerCallback(fn)
	c.api.SetWakeupCallback(c.handle, callbackTrampoline(), c.wakeupToken)
}

func (c *Client) AttachRender(params []RenderParam, update func()) error {
	if !c.live() {
		return errDestroyed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.render != 0 {
		return nil
	}

	var pinner runtime.Pinner
	defer pinner.Unpin()

	terminated := pinParams(&pinner, params)
	var ctx uintptr
	if err := c.check("render context create", c.api.RenderContextCreate(&ctx, c.handle, unsafe.Pointer(&terminated[0]))); err != nil {
		return err
	}
	c.render = ctx

	if update != nil {
		c.updateToken = registerCallback(update)
		c.api.RenderContextSetUpdateCallback(ctx, updateTrampoline(), c.updateToken)
	}
	return nil
}

func (c *Client) Render(params []RenderParam) error {
	c.mu.Lock()
	ctx := c.render
	c.mu.Unlock()
	if ctx == 0 {
		return errors.New("mpv render context not attached")
	}

	var pinner runtime.Pinner
	defer pinner.Unpin()

	terminated := pinParams(&pinner, params)
	return c.check("render", c.api.RenderContextRender(ctx, unsafe.Pointer(&terminated[0])))
}

// Destroy releases the render context, then the handle. It is idempotent.
func (c *Client) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.render != 0 {
		c.api.RenderContextSetUpdateCallback(c.render, 0, 0)
		c.api.RenderContextFree(c.render)
		c.render = 0
	}
	if c.updateToken != 0 {
		unregisterCallback(c.updateToken)
		c.updateToken = 0
	}
	if c.handle == 0 {
		return
	}
	if c.wakeupToken != 0 {
		c.api.SetWakeupCallback(c.handle, 0, 0)
		unregisterCallback(c.wakeupToken)
		c.wakeupToken = 0
	}
	c.api.TerminateDestroy(c.handle)
	c.handle = 0
}

// pinParams copies params into a zero-terminated array whose memory stays put during the call.
func pinParams(pinner *runtime.Pinner, params []RenderParam) []RenderParam {
	terminated := make([]RenderParam, len(params)+1)
	copy(terminated, params)
	pinner.Pin(&terminated[0])
	for _, p := range params {
		if p.Data != nil {
			pinner.Pin(p.Data)
		}
	}
	return terminated
}

func cString(p uintptr) string {
	ptr := unsafe.Pointer(p)
	n := 0
	for *(*byte)(unsafe.Add(ptr, n)) != 0 {
		n++
	}
	return string(unsafe.Slice((*byte)(ptr), n))
}
