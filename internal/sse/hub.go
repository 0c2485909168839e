package sse

import "sync"

const subscriberBuffer = 8

// Subscriber is one observer's connection to the hub. Close marks it dead;
// the hub sweeps dead subscribers out on the next broadcast.
type Subscriber struct {
	ch   chan []byte
	done chan struct{}
	once sync.Once
}

func (s *Subscriber) Receive() <-chan []byte { return s.ch }

func (s *Subscriber) Done() <-chan struct{} { return s.done }

func (s *Subscriber) Close() {
	s.once.Do(func() { close(s.done) })
}

func (s *Subscriber) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

type Hub struct {
	mu   sync.RWMutex
	subs map[*Subscriber]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscriber]struct{})}
}

// Subscribe registers a new observer. The init payload is queued before
// registration so it is always the first message received.
func (h *Hub) Subscribe(init []byte) *Subscriber {
	sub := &Subscriber{
		ch:   make(chan []byte, subscriberBuffer),
		done: make(chan struct{}),
	}
	sub.ch <- init

	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

// Unsubscribe removes the observer. Safe to call more than once.
func (h *Hub) Unsubscribe(sub *Subscriber) {
	sub.Close()
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
}

// Broadcast delivers payload to every live observer. Dead observers are
// removed without touching the rest; an observer whose buffer is full misses
// this payload but stays subscribed.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.RLock()
	var dead []*Subscriber
	for sub := range h.subs {
		if sub.closed() {
			dead = append(dead, sub)
			continue
		}
		select {
		case sub.ch <- payload:
		default:
		}
	}
	h.mu.RUnlock()

	for _, sub := range dead {
		h.Unsubscribe(sub)
	}
}

func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
