package pulsechat

import "sync"

// Dispatcher fans demultiplexed events out to subscribers. Any number of
// handlers may be registered per kind; each subscription is cancelled
// individually, so one consumer tearing down never disturbs another.
type Dispatcher struct {
	mu       sync.Mutex
	nextID   int
	handlers map[EventKind]map[int]func(Event)
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{handlers: make(map[EventKind]map[int]func(Event))}
}

// Subscription identifies a registered handler.
type Subscription struct {
	d    *Dispatcher
	kind EventKind
	id   int
}

// On registers a handler for an event kind and returns its subscription.
func (d *Dispatcher) On(kind EventKind, fn func(Event)) Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextID++
	set, ok := d.handlers[kind]
	if !ok {
		set = make(map[int]func(Event))
		d.handlers[kind] = set
	}
	set[d.nextID] = fn
	return Subscription{d: d, kind: kind, id: d.nextID}
}

// Cancel removes the handler. Safe to call more than once.
func (s Subscription) Cancel() {
	if s.d == nil {
		return
	}
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	if set, ok := s.d.handlers[s.kind]; ok {
		delete(set, s.id)
	}
}

// Dispatch delivers the event to every handler registered for its kind.
// Handlers run synchronously on the dispatching goroutine.
func (d *Dispatcher) Dispatch(ev Event) {
	d.mu.Lock()
	set := d.handlers[ev.Kind()]
	fns := make([]func(Event), 0, len(set))
	for _, fn := range set {
		fns = append(fns, fn)
	}
	d.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}
