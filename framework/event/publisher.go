package event

import (
	"sort"
	"sync"
)

// Listener receives published events. Dispatch is synchronous, on the
// publisher's caller.
type Listener func(e Event)

// Publisher dispatches events to listeners in order: explicitly ordered
// listeners ascending first, then unordered ones in subscription order.
type Publisher struct {
	mu      sync.RWMutex
	entries []listenerEntry
}

type listenerEntry struct {
	fn      Listener
	order   int
	ordered bool
	seq     int
}

// NewPublisher creates an empty publisher.
func NewPublisher() *Publisher { return &Publisher{} }

// Subscribe adds a listener at the default (unordered) position.
func (p *Publisher) Subscribe(fn Listener) {
	p.subscribe(fn, 0, false)
}

// SubscribeOrdered adds a listener with an explicit order; lower runs first.
func (p *Publisher) SubscribeOrdered(order int, fn Listener) {
	p.subscribe(fn, order, true)
}

func (p *Publisher) subscribe(fn Listener, order int, ordered bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.entries = append(p.entries, listenerEntry{fn: fn, order: order, ordered: ordered, seq: len(p.entries)})
	sort.SliceStable(p.entries, func(i, j int) bool {
		a, b := p.entries[i], p.entries[j]
		switch {
		case a.ordered && !b.ordered:
			return true
		case !a.ordered && b.ordered:
			return false
		case a.ordered && b.ordered:
			return a.order < b.order
		default:
			return a.seq < b.seq
		}
	})
}

// Publish dispatches one event to every listener, in listener order.
func (p *Publisher) Publish(e Event) {
	p.mu.RLock()
	entries := make([]listenerEntry, len(p.entries))
	copy(entries, p.entries)
	p.mu.RUnlock()

	for _, entry := range entries {
		entry.fn(e)
	}
}

// ListenerCount returns the number of subscribed listeners.
func (p *Publisher) ListenerCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}
