// Package native adapts the operating system's media framework to the session driver
// contract. The framework binding itself belongs to the host application, which implements
// Framework and Item; this package only translates.
package native

import (
	"time"

	"github.com/glasspane/glasspane/session"
)

// Framework opens sources on the OS media framework.
type Framework interface {
	Open(src session.Source) (Item, error)
}

// Item is one opened source. Callbacks may run on any goroutine.
type Item interface {
	// LoadProperties loads duration, tracks and presentation size asynchronously.
	LoadProperties(done func(error))
	Play()
	Pause()
	// Seek moves to seconds. Tolerances bound how far before and after the target the
	// framework may land; zero means frame accurate. done reports whether the seek finished
	// or was superseded.
	Seek(seconds, toleranceBefore, toleranceAfter float64, done func(finished bool))
	SetVolume(level float64)
	SetMuted(muted bool)
	Duration() float64
	FrameRate() float64
	NaturalSize() (width, height int)
	// AddPeriodicObserver reports the playback time every interval until removed.
	AddPeriodicObserver(interval time.Duration, fn func(seconds float64)) (remove func())
	OnEnd(fn func()) (remove func())
	OnFailure(fn func(error)) (remove func())
	Close()
}
