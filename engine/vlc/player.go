package vlc

import (
	"errors"
	"runtime"
	"sync"
)

// Engine is one libVLC instance playing one media.
type Engine interface {
	// Open creates the media and its player. path selects a filesystem path over an MRL.
	Open(mrl string, path bool, options []string) error
	Play() error
	SetPause(paused bool)
	Stop()
	// Time and Length are in milliseconds; negative when unknown.
	Time() int64
	SetTime(ms int64, fast bool)
	Length() int64
	// FPS is zero when the library cannot report it.
	FPS() float64
	VideoSize() (width, height int, ok bool)
	State() State
	SetVolume(percent int) error
	SetMute(muted bool)
	LastError() string
	// Release frees the player, then the media, then the instance.
	Release()
}

var errReleased = errors.New("libvlc player released")

// Player is the libVLC implementation of Engine.
type Player struct {
	api      *API
	instance uintptr
	media    uintptr
	player   uintptr
	once     sync.Once
}

// NewPlayer creates a libVLC instance with the given command-line style arguments.
func NewPlayer(api *API, args []string) (*Player, error) {
	var pinner runtime.Pinner
	defer pinner.Unpin()

	argv := make([]*byte, len(args)+1)
	for i, arg := range args {
		b := append([]byte(arg), 0)
		pinner.Pin(&b[0])
		argv[i] = &b[0]
	}
	pinner.Pin(&argv[0])

	instance := api.New(int32(len(args)), &argv[0])
	if instance == 0 {
		return nil, errors.New("libvlc_new: " + api.lastError())
	}
	return &Player{api: api, instance: instance}, nil
}

// Factory returns a constructor of Players for the driver.
func Factory(api *API) func(args []string) (Engine, error) {
	return func(args []string) (Engine, error) {
		return NewPlayer(api, args)
	}
}

func (p *Player) Open(mrl string, path bool, options []string) error {
	if p.instance == 0 {
		return errReleased
	}

	p.media = p.api.newMedia(p.instance, mrl, path)
	if p.media == 0 {
		return errors.New("libvlc media: " + p.api.lastError())
	}
	for _, o := range options {
		p.api.MediaAddOption(p.media, o)
	}

	p.player = p.api.newPlayer(p.instance, p.media)
	if p.player == 0 {
		return errors.New("libvlc media player: " + p.api.lastError())
	}
	return nil
}

func (p *Player) Play() error {
	if p.player == 0 {
		return errReleased
	}
	if p.api.PlayerPlay(p.player) != 0 {
		return errors.New("libvlc play: " + p.api.lastError())
	}
	return nil
}

func (p *Player) SetPause(paused bool) {
	if p.player != 0 {
		p.api.PlayerSetPause(p.player, boolInt(paused))
	}
}

func (p *Player) Stop() {
	if p.player != 0 {
		p.api.PlayerStop(p.player)
	}
}

func (p *Player) Time() int64 {
	if p.player == 0 {
		return -1
	}
	return p.api.PlayerGetTime(p.player)
}

func (p *Player) SetTime(ms int64, fast bool) {
	if p.player != 0 {
		p.api.setTime(p.player, ms, fast)
	}
}

func (p *Player) Length() int64 {
	if p.player == 0 {
		return -1
	}
	return p.api.PlayerGetLength(p.player)
}

func (p *Player) FPS() float64 {
	if p.player == 0 || p.api.PlayerGetFPS == nil {
		return 0
	}
	return float64(p.api.PlayerGetFPS(p.player))
}

func (p *Player) VideoSize() (int, int, bool) {
	if p.player == 0 {
		return 0, 0, false
	}

	var pinner runtime.Pinner
	defer pinner.Unpin()

	var w, h uint32
	pinner.Pin(&w)
	pinner.Pin(&h)
	if p.api.VideoGetSize(p.player, 0, &w, &h) != 0 {
		return 0, 0, false
	}
	return int(w), int(h), true
}

func (p *Player) State() State {
	if p.player == 0 {
		return StateIdle
	}
	return p.api.state(p.player)
}

func (p *Player) SetVolume(percent int) error {
	if p.player == 0 {
		return errReleased
	}
	if p.api.AudioSetVolume(p.player, int32(percent)) != 0 {
		return errors.New("libvlc volume: " + p.api.lastError())
	}
	return nil
}

func (p *Player) SetMute(muted bool) {
	if p.player != 0 {
		p.api.AudioSetMute(p.player, boolInt(muted))
	}
}

func (p *Player) LastError() string {
	return p.api.lastError()
}

func (p *Player) Release() {
	p.once.Do(func() {
		if p.player != 0 {
			p.api.PlayerStop(p.player)
			p.api.PlayerRelease(p.player)
			p.player = 0
		}
		if p.media != 0 {
			p.api.MediaRelease(p.media)
			p.media = 0
		}
		if p.instance != 0 {
			p.api.Release(p.instance)
			p.instance = 0
		}
	})
}

func boolInt(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
