// Package vlc drives libVLC loaded at runtime.
//
// libVLC 3 and 4 differ in a handful of entry points. The version is read once when the
// table is bound and every difference is resolved there, so Player and Driver see a single
// surface whatever library is installed.
package vlc

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Symbols are required in every supported libVLC generation.
var Symbols = []string{
	"libvlc_get_version",
	"libvlc_errmsg",
	"libvlc_new",
	"libvlc_release",
	"libvlc_media_new_location",
	"libvlc_media_new_path",
	"libvlc_media_add_option",
	"libvlc_media_release",
	"libvlc_media_player_new_from_media",
	"libvlc_media_player_release",
	"libvlc_media_player_play",
	"libvlc_media_player_set_pause",
	"libvlc_media_player_get_time",
	"libvlc_media_player_set_time",
	"libvlc_media_player_get_length",
	"libvlc_media_player_get_state",
	"libvlc_video_get_size",
	"libvlc_audio_set_volume",
	"libvlc_audio_set_mute",
}

// OptionalSymbols exist only in some generations.
var OptionalSymbols = []string{
	"libvlc_media_player_stop",
	"libvlc_media_player_stop_async",
	"libvlc_media_player_get_fps",
}

var ErrUnsupportedVersion = errors.New("unsupported libvlc version")

// Major parses the generation out of a libvlc_get_version string such as "3.0.21 Vetinari".
func Major(version string) (int, error) {
	head, _, _ := strings.Cut(strings.TrimSpace(version), ".")
	major, err := strconv.Atoi(head)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedVersion, version)
	}
	if major != 3 && major != 4 {
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedVersion, version)
	}
	return major, nil
}

// State is a player state with the generation differences folded away.
type State int

const (
	StateIdle State = iota
	StateOpening
	StateBuffering
	StatePlaying
	StatePaused
	StateStopped
	StateStopping
	StateEnded
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOpening:
		return "opening"
	case StateBuffering:
		return "buffering"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateStopped:
		return "stopped"
	case StateStopping:
		return "stopping"
	case StateEnded:
		return "ended"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// stateOf maps libvlc_state_t. libVLC 4 dropped Ended and put Stopping in its slot.
func stateOf(major int, raw int32) State {
	switch raw {
	case 0:
		return StateIdle
	case 1:
		return StateOpening
	case 2:
		return StateBuffering
	case 3:
		return StatePlaying
	case 4:
		return StatePaused
	case 5:
		return StateStopped
	case 6:
		if major >= 4 {
			return StateStopping
		}
		return StateEnded
	case 7:
		return StateError
	default:
		return StateIdle
	}
}

// API is the bound libVLC table. Functions whose signature changed between generations
// are bound to exactly one of their variants.
type API struct {
	Major int

	GetVersion func() string
	Errmsg     func() string
	New        func(argc int32, argv **byte) uintptr
	Release    func(instance uintptr)

	MediaNewLocation3 func(instance uintptr, mrl string) uintptr
	MediaNewLocation4 func(mrl string) uintptr
	MediaNewPath3     func(instance uintptr, path string) uintptr
	MediaNewPath4     func(path string) uintptr
	MediaAddOption    func(media uintptr, option string)
	MediaRelease      func(media uintptr)

	PlayerNewFromMedia3 func(media uintptr) uintptr
	PlayerNewFromMedia4 func(instance, media uintptr) uintptr
	PlayerRelease       func(player uintptr)
	PlayerPlay          func(player uintptr) int32
	PlayerSetPause      func(player uintptr, pause int32)
	PlayerStop          func(player uintptr)
	PlayerGetTime       func(player uintptr) int64
	PlayerSetTime3      func(player uintptr, ms int64)
	PlayerSetTime4      func(player uintptr, ms int64, fast bool) int32
	PlayerGetLength     func(player uintptr) int64
	PlayerGetFPS        func(player uintptr) float32
	PlayerGetState      func(player uintptr) int32

	VideoGetSize   func(player uintptr, num uint32, width, height *uint32) int32
	AudioSetVolume func(player uintptr, volume int32) int32
	AudioSetMute   func(player uintptr, mute int32)
}

func (a *API) newMedia(instance uintptr, mrl string, path bool) uintptr {
	switch {
	case a.Major >= 4 && path:
		return a.MediaNewPath4(mrl)
	case a.Major >= 4:
		return a.MediaNewLocation4(mrl)
	case path:
		return a.MediaNewPath3(instance, mrl)
	default:
		return a.MediaNewLocation3(instance, mrl)
	}
}

func (a *API) newPlayer(instance, media uintptr) uintptr {
	if a.Major >= 4 {
		return a.PlayerNewFromMedia4(instance, media)
	}
	return a.PlayerNewFromMedia3(media)
}

func (a *API) setTime(player uintptr, ms int64, fast bool) {
	if a.Major >= 4 {
		a.PlayerSetTime4(player, ms, fast)
		return
	}
	a.PlayerSetTime3(player, ms)
}

func (a *API) state(player uintptr) State {
	return stateOf(a.Major, a.PlayerGetState(player))
}

func (a *API) lastError() string {
	if msg := a.Errmsg(); msg != "" {
		return msg
	}
	return "unknown libvlc error"
}
