package native

import (
	"math"
	"time"

	"github.com/glasspane/glasspane/backend"
	"github.com/glasspane/glasspane/key"
	"github.com/glasspane/glasspane/metadata"
	"github.com/glasspane/glasspane/session"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// Driver plays a source on the OS media framework. The framework pushes time, end and
// failure notifications, so the driver is not a session.Poller.
type Driver struct {
	framework Framework
	interval  time.Duration

	item    Item
	sink    session.Sink
	removes []func()
}

// NewDriver reads the time observer interval from the playback poll rate.
func NewDriver(framework Framework) *Driver {
	rate := viper.GetFloat64(key.PlaybackPollRate)
	if rate <= 0 {
		rate = 30
	}
	return &Driver{
		framework: framework,
		interval:  time.Duration(float64(time.Second) / rate),
	}
}

func (d *Driver) Kind() backend.Kind {
	return backend.Native
}

func (d *Driver) Open(src session.Source, sink session.Sink) error {
	item, err := d.framework.Open(src)
	if err != nil {
		return err
	}
	d.item = item
	d.sink = sink

	d.removes = append(d.removes,
		item.AddPeriodicObserver(d.interval, sink.Position),
		item.OnEnd(sink.Ended),
		item.OnFailure(sink.Failed),
	)

	item.LoadProperties(func(err error) {
		if err != nil {
			sink.Failed(err)
			return
		}
		sink.MetadataReady()
	})
	return nil
}

func (d *Driver) Play() error {
	if d.item == nil {
		return session.ErrNoSource
	}
	d.item.Play()
	return nil
}

func (d *Driver) Pause() error {
	if d.item == nil {
		return session.ErrNoSource
	}
	d.item.Pause()
	return nil
}

// Seek with exact set asks for zero tolerance; otherwise the framework may snap to the
// nearest keyframe on either side.
func (d *Driver) Seek(seconds float64, exact bool) error {
	if d.item == nil {
		return session.ErrNoSource
	}

	tolerance := math.Inf(1)
	if exact {
		tolerance = 0
	}

	sink := d.sink
	d.item.Seek(seconds, tolerance, tolerance, func(finished bool) {
		if finished {
			sink.SeekDone(seconds)
		}
	})
	return nil
}

func (d *Driver) SetVolume(level float64) error {
	if d.item == nil {
		return session.ErrNoSource
	}
	d.item.SetVolume(lo.Clamp(level, 0, 1))
	return nil
}

func (d *Driver) SetMuted(muted bool) error {
	if d.item == nil {
		return session.ErrNoSource
	}
	d.item.SetMuted(muted)
	return nil
}

func (d *Driver) Metadata() (metadata.Values, error) {
	if d.item == nil {
		return metadata.Values{}, session.ErrNoSource
	}
	w, h := d.item.NaturalSize()
	return metadata.Values{
		Duration:    d.item.Duration(),
		FrameRate:   d.item.FrameRate(),
		NaturalSize: metadata.Size{Width: w, Height: h},
	}, nil
}

// Close removes every observer before releasing the item. It is idempotent.
func (d *Driver) Close() error {
	for _, remove := range d.removes {
		if remove != nil {
			remove()
		}
	}
	d.removes = nil

	if d.item != nil {
		d.item.Close()
		d.item = nil
	}
	return nil
}
