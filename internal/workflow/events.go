package workflow

import (
	"sync"

	"clipress/internal/notifications"
)

// eventHub fans events out to subscribers. Each subscriber has its own
// unbounded queue drained by a pump goroutine, so a slow reader delays only
// itself and never loses events.
type eventHub struct {
	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
	closed bool
}

type subscriber struct {
	mu       sync.Mutex
	queue    []notifications.Event
	draining bool
	signal   chan struct{}
	done     chan struct{}
	once     sync.Once
	out      chan notifications.Event
}

func newEventHub() *eventHub {
	return &eventHub{subs: make(map[int]*subscriber)}
}

func (h *eventHub) subscribe() (<-chan notifications.Event, func()) {
	sub := &subscriber{
		signal: make(chan struct{}, 1),
		done:   make(chan struct{}),
		out:    make(chan notifications.Event),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(sub.out)
		return sub.out, func() {}
	}
	id := h.nextID
	h.nextID++
	h.subs[id] = sub
	h.mu.Unlock()

	go sub.run()

	unsubscribe := func() {
		h.mu.Lock()
		delete(h.subs, id)
		h.mu.Unlock()
		sub.stop()
	}
	return sub.out, unsubscribe
}

// publish appends event to every subscriber queue. The hub lock keeps the
// global order identical across subscribers.
func (h *eventHub) publish(event notifications.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	for _, sub := range h.subs {
		sub.push(event)
	}
}

// close lets every subscriber drain what is queued, then closes its channel.
func (h *eventHub) close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := h.subs
	h.subs = map[int]*subscriber{}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.drain()
	}
}

func (s *subscriber) push(event notifications.Event) {
	s.mu.Lock()
	s.queue = append(s.queue, event)
	s.mu.Unlock()
	s.notify()
}

func (s *subscriber) notify() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (s *subscriber) drain() {
	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()
	s.notify()
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

func (s *subscriber) run() {
	defer close(s.out)
	for {
		s.mu.Lock()
		for len(s.queue) == 0 {
			if s.draining {
				s.mu.Unlock()
				return
			}
			s.mu.Unlock()
			select {
			case <-s.signal:
			case <-s.done:
				return
			}
			s.mu.Lock()
		}
		event := s.queue[0]
		s.queue[0] = notifications.Event{}
		s.queue = s.queue[1:]
		s.mu.Unlock()

		select {
		case s.out <- event:
		case <-s.done:
			return
		}
	}
}
