// Package metadata resolves duration, frame rate and natural size of a loaded source.
//
// Engines often report these values before they are populated: zero, NaN or plainly wrong on
// the first query. The resolver accepts only valid values, keeps whatever was resolved before,
// and retries a bounded number of times before giving up quietly.
package metadata

import (
	"math"
	"time"

	"github.com/glasspane/glasspane/key"
	"github.com/glasspane/glasspane/log"
	"github.com/glasspane/glasspane/mainloop"
	"github.com/spf13/viper"
)

// DefaultFrameRate is assumed until a source reports its own.
const DefaultFrameRate = 30.0

type Size struct {
	Width, Height int
}

func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// Values is what an engine knows about a source. Invalid fields mean "not known yet".
type Values struct {
	Duration    float64
	FrameRate   float64
	NaturalSize Size
}

// Positive reports whether f is finite and greater than zero.
func Positive(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f > 0
}

// Complete reports whether the fields required for frame math are resolved.
func (v Values) Complete() bool {
	return Positive(v.Duration) && Positive(v.FrameRate)
}

// Merge overlays the valid fields of next onto v and reports whether anything changed.
func (v Values) Merge(next Values) (Values, bool) {
	merged := v
	if Positive(next.Duration) {
		merged.Duration = next.Duration
	}
	if Positive(next.FrameRate) {
		merged.FrameRate = next.FrameRate
	}
	if next.NaturalSize.Valid() {
		merged.NaturalSize = next.NaturalSize
	}
	return merged, merged != v
}

// TotalFrames estimates the frame count. Unresolved inputs yield zero.
func TotalFrames(rate, duration float64) int {
	if !Positive(rate) || !Positive(duration) {
		return 0
	}
	return max(int(math.Round(rate*duration)), 0)
}

// Query asks the engine for its current view of the source.
// An error counts as an attempt that resolved nothing.
type Query func() (Values, error)

// Resolver runs queries on the main loop with bounded retry.
type Resolver struct {
	Loop     mainloop.Loop
	Attempts int
	Delay    time.Duration
}

// NewResolver reads the retry policy from configuration.
func NewResolver(loop mainloop.Loop) Resolver {
	return Resolver{
		Loop:     loop,
		Attempts: viper.GetInt(key.MetadataRetryAttempts),
		Delay:    time.Duration(viper.GetInt(key.MetadataRetryDelay)) * time.Millisecond,
	}
}

// Resolve starts from known and queries immediately, publishing every improvement.
// done, when not nil, receives the final values and whether they are complete.
// It must be called on the loop. The returned function cancels pending retries.
func (r Resolver) Resolve(known Values, query Query, publish func(Values), done func(Values, bool)) (cancel func()) {
	attempts := max(r.Attempts, 1)
	current := known

	var (
		timer     mainloop.Timer
		cancelled bool
		attempt   func(n int)
	)

	attempt = func(n int) {
		if cancelled {
			return
		}

		values, err := query()
		if err != nil {
			log.Debugf("metadata query %d/%d: %v", n, attempts, err)
		} else if merged, changed := current.Merge(values); changed {
			current = merged
			publish(current)
		}

		if current.Complete() || n >= attempts {
			if !current.Complete() {
				log.Debugf("metadata unresolved after %d attempts, keeping defaults", attempts)
			}
			if done != nil {
				done(current, current.Complete())
			}
			return
		}

		timer = r.Loop.After(r.Delay, func() { attempt(n + 1) })
	}

	attempt(1)

	return func() {
		cancelled = true
		if timer != nil {
			timer.Stop()
		}
	}
}
