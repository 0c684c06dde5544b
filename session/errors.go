package session

import (
	"errors"
	"fmt"

	"github.com/glasspane/glasspane/backend"
)

var (
	ErrNoSource           = errors.New("no source loaded")
	ErrPlaybackOpenFailed = errors.New("playback open failed")
)

// OpenError carries the backend's reason for refusing a source.
type OpenError struct {
	Backend backend.Kind
	URL     string
	Detail  string
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("%s could not open %s: %s", e.Backend, e.URL, e.Detail)
}

func (e *OpenError) Is(target error) bool {
	return target == ErrPlaybackOpenFailed
}

// PlaybackError is a failure reported by the engine after a source was opened.
type PlaybackError struct {
	Backend backend.Kind
	Err     error
}

func (e *PlaybackError) Error() string {
	return fmt.Sprintf("%s playback: %v", e.Backend, e.Err)
}

func (e *PlaybackError) Unwrap() error {
	return e.Err
}
