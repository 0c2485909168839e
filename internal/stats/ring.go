package stats

// eventRing is a fixed-capacity event history. Once full, each push
// overwrites the oldest entry.
type eventRing struct {
	buf  []Event
	next int
	size int
}

func newEventRing(capacity int) eventRing {
	return eventRing{buf: make([]Event, capacity)}
}

func (r *eventRing) push(e Event) {
	r.buf[r.next] = e
	r.next = (r.next + 1) % len(r.buf)
	if r.size < len(r.buf) {
		r.size++
	}
}

// newestFirst copies the ring contents, most recent event first.
func (r *eventRing) newestFirst() []Event {
	out := make([]Event, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.buf[(r.next-1-i+len(r.buf))%len(r.buf)]
	}
	return out
}
