package session

import (
	"github.com/glasspane/glasspane/backend"
	"github.com/glasspane/glasspane/metadata"
)

// Driver is the narrow surface a playback backend implements.
// Every method is called on the main loop.
type Driver interface {
	Kind() backend.Kind
	// Open attaches a native handle and issues the open command. Events for this source
	// go to sink, which may be called from any goroutine.
	Open(src Source, sink Sink) error
	Play() error
	Pause() error
	Seek(seconds float64, exact bool) error
	// SetVolume takes a linear level in [0, 1].
	SetVolume(level float64) error
	SetMuted(muted bool) error
	// Metadata queries the engine's current view of the source.
	Metadata() (metadata.Values, error)
	// Close releases every native resource in dependency order.
	Close() error
}

// Poller is implemented by drivers whose engines only expose pull-based position queries.
type Poller interface {
	Position() (seconds float64, ok bool)
}

// Sink receives driver events. Implementations are safe for concurrent use.
type Sink interface {
	// MetadataReady signals that the source is open and metadata may be queried.
	MetadataReady()
	// Position pushes the current playback time.
	Position(seconds float64)
	// SeekDone reports that the engine finished seeking to target.
	SeekDone(target float64)
	Ended()
	Failed(err error)
	// Redraw requests a repaint of the render surface.
	Redraw()
}

// Surface is the host's render target.
type Surface interface {
	// NeedsDisplay marks the surface dirty so it is painted on the next display cycle.
	NeedsDisplay()
}
