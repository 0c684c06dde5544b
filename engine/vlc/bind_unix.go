//go:build darwin || freebsd || linux

package vlc

import (
	"fmt"

	"github.com/ebitengine/purego"
	"github.com/glasspane/glasspane/dynlib"
)

// Bind reads the library version and resolves the table for that generation.
func Bind(lib *dynlib.Library) (*API, error) {
	if !lib.Loaded() {
		return nil, fmt.Errorf("bind libvlc: %w", dynlib.ErrLoadFailed)
	}

	api := &API{}
	resolve := func(name string, fn any) error {
		addr, ok := lib.Symbol(name)
		if !ok {
			return &dynlib.SymbolMissingError{Path: lib.Path(), Name: name}
		}
		purego.RegisterFunc(fn, addr)
		return nil
	}

	if err := resolve("libvlc_get_version", &api.GetVersion); err != nil {
		return nil, err
	}
	major, err := Major(api.GetVersion())
	if err != nil {
		return nil, err
	}
	api.Major = major

	targets := map[string]any{
		"libvlc_errmsg":                  &api.Errmsg,
		"libvlc_new":                     &api.New,
		"libvlc_release":                 &api.Release,
		"libvlc_media_add_option":        &api.MediaAddOption,
		"libvlc_media_release":           &api.MediaRelease,
		"libvlc_media_player_release":    &api.PlayerRelease,
		"libvlc_media_player_play":       &api.PlayerPlay,
		"libvlc_media_player_set_pause":  &api.PlayerSetPause,
		"libvlc_media_player_get_time":   &api.PlayerGetTime,
		"libvlc_media_player_get_length": &api.PlayerGetLength,
		"libvlc_media_player_get_state":  &api.PlayerGetState,
		"libvlc_video_get_size":          &api.VideoGetSize,
		"libvlc_audio_set_volume":        &api.AudioSetVolume,
		"libvlc_audio_set_mute":          &api.AudioSetMute,
	}
	if major >= 4 {
		targets["libvlc_media_new_location"] = &api.MediaNewLocation4
		targets["libvlc_media_new_path"] = &api.MediaNewPath4
		targets["libvlc_media_player_new_from_media"] = &api.PlayerNewFromMedia4
		targets["libvlc_media_player_set_time"] = &api.PlayerSetTime4
		targets["libvlc_media_player_stop_async"] = &api.PlayerStop
	} else {
		targets["libvlc_media_new_location"] = &api.MediaNewLocation3
		targets["libvlc_media_new_path"] = &api.MediaNewPath3
		targets["libvlc_media_player_new_from_media"] = &api.PlayerNewFromMedia3
		targets["libvlc_media_player_set_time"] = &api.PlayerSetTime3
		targets["libvlc_media_player_stop"] = &api.PlayerStop
	}

	for name, fn := range targets {
		if err := resolve(name, fn); err != nil {
			return nil, err
		}
	}

	if lib.Has("libvlc_media_player_get_fps") {
		_ = resolve("libvlc_media_player_get_fps", &api.PlayerGetFPS)
	}
	return api, nil
}
