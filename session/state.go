package session

import (
	"fmt"

	"github.com/glasspane/glasspane/metadata"
)

// State is the lifecycle stage of a session.
type State int

const (
	Empty State = iota
	Loading
	Ready
	Playing
	Paused
	Ended
	Failed
)

func (s State) String() string {
	switch s {
	case Empty:
		return "Empty"
	case Loading:
		return "Loading"
	case Ready:
		return "Ready"
	case Playing:
		return "Playing"
	case Paused:
		return "Paused"
	case Ended:
		return "Ended"
	case Failed:
		return "Failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Source is a media location plus the HTTP headers required to fetch it.
type Source struct {
	URL     string
	Headers map[string]string
}

// PlaybackState is the observable record published after every change.
// When Loaded and TotalFrames > 0, 0 <= CurrentFrame < TotalFrames.
type PlaybackState struct {
	State   State
	Source  Source
	Loaded  bool
	Playing bool

	CurrentTime float64
	Duration    float64

	CurrentFrame int
	TotalFrames  int
	// FrameRate is always positive; RateResolved tells whether it came from the source.
	FrameRate    float64
	RateResolved bool
	NaturalSize  metadata.Size

	Volume float64
	Muted  bool
}

func initialState(volume float64, muted bool) PlaybackState {
	return PlaybackState{
		State:     Empty,
		FrameRate: metadata.DefaultFrameRate,
		Volume:    volume,
		Muted:     muted,
	}
}

type seekKind int

const (
	seekByTime seekKind = iota
	seekByFrame
)

// SeekRequest is a transient seek command.
type SeekRequest struct {
	kind     seekKind
	seconds  float64
	accurate bool
	frame    int
}

// ByTime seeks to seconds. Inaccurate seeks may snap to a keyframe and suit live scrubbing.
func ByTime(seconds float64, accurate bool) SeekRequest {
	return SeekRequest{kind: seekByTime, seconds: seconds, accurate: accurate}
}

// ByFrame seeks exactly to a frame index.
func ByFrame(index int) SeekRequest {
	return SeekRequest{kind: seekByFrame, frame: index}
}

// Exact reports whether the seek must land on the exact frame.
func (r SeekRequest) Exact() bool {
	return r.kind == seekByFrame || r.accurate
}

func (r SeekRequest) String() string {
	if r.kind == seekByFrame {
		return fmt.Sprintf("frame %d", r.frame)
	}
	return fmt.Sprintf("%.3fs (accurate=%t)", r.seconds, r.accurate)
}

// Direction of a frame step.
type Direction int

const (
	Backward Direction = -1
	Forward  Direction = 1
)
