package session

// tokenSink stamps driver events with the load they belong to and marshals them onto the loop.
// Events from a superseded load are dropped there.
type tokenSink struct {
	s     *Session
	token uint64
}

func (t tokenSink) deliver(fn func()) {
	t.s.loop.Post(func() {
		if t.s.token != t.token {
			return
		}
		fn()
	})
}

func (t tokenSink) MetadataReady() {
	t.deliver(t.s.metadataReady)
}

func (t tokenSink) Position(seconds float64) {
	t.deliver(func() { t.s.position(seconds) })
}

func (t tokenSink) SeekDone(target float64) {
	t.deliver(func() { t.s.seekDone(target) })
}

func (t tokenSink) Ended() {
	t.deliver(t.s.ended)
}

func (t tokenSink) Failed(err error) {
	t.deliver(func() { t.s.failed(err) })
}

func (t tokenSink) Redraw() {
	t.deliver(t.s.redraw)
}
