package session

import (
	"errors"

	"github.com/glasspane/glasspane/backend"
	"github.com/glasspane/glasspane/metadata"
)

type seekCall struct {
	target float64
	exact  bool
}

// fakeDriver is a pull-based engine whose position and metadata are set by the test.
type fakeDriver struct {
	kind    backend.Kind
	sink    Sink
	openErr error
	seekErr error
	pos     float64
	posOK   bool
	meta    []metadata.Values
	queries int
	playing bool
	seeks   []seekCall
	volume  float64
	muted   bool
	closed  int
	opened  []Source
}

func newFakeDriver(meta ...metadata.Values) *fakeDriver {
	return &fakeDriver{kind: backend.RenderLoop, meta: meta, posOK: true}
}

func (d *fakeDriver) Kind() backend.Kind { return d.kind }

func (d *fakeDriver) Open(src Source, sink Sink) error {
	if d.openErr != nil {
		return d.openErr
	}
	d.sink = sink
	d.opened = append(d.opened, src)
	return nil
}

func (d *fakeDriver) Play() error {
	d.playing = true
	return nil
}

func (d *fakeDriver) Pause() error {
	d.playing = false
	return nil
}

func (d *fakeDriver) Seek(seconds float64, exact bool) error {
	if d.seekErr != nil {
		return d.seekErr
	}
	d.seeks = append(d.seeks, seekCall{seconds, exact})
	return nil
}

func (d *fakeDriver) SetVolume(level float64) error {
	d.volume = level
	return nil
}

func (d *fakeDriver) SetMuted(muted bool) error {
	d.muted = muted
	return nil
}

func (d *fakeDriver) Metadata() (metadata.Values, error) {
	if len(d.meta) == 0 {
		return metadata.Values{}, errors.New("no metadata")
	}
	i := min(d.queries, len(d.meta)-1)
	d.queries++
	return d.meta[i], nil
}

func (d *fakeDriver) Position() (float64, bool) {
	return d.pos, d.posOK
}

func (d *fakeDriver) Close() error {
	d.closed++
	return nil
}

type countingSurface struct {
	n int
}

func (c *countingSurface) NeedsDisplay() { c.n++ }
