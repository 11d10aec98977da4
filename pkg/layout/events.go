package layout

import (
	"slices"
	"sync"
)

// EventType identifies a user interaction with the rendered graph.
type EventType int

const (
	// NodeTapped is a tap or click on a node.
	NodeTapped EventType = iota + 1
	// BackgroundTapped is a tap on empty canvas.
	BackgroundTapped
)

func (t EventType) String() string {
	switch t {
	case NodeTapped:
		return "node-tapped"
	case BackgroundTapped:
		return "background-tapped"
	default:
		return "unknown"
	}
}

// Event is a user interaction. NodeID is empty for BackgroundTapped.
type Event struct {
	Type   EventType
	NodeID string
}

// Bus fans events out to subscribers synchronously, in subscription order.
type Bus struct {
	mu      sync.Mutex
	subs    []busSubscriber
	nextSub int
}

type busSubscriber struct {
	id int
	fn func(Event)
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn func(Event)) (cancel func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextSub++
	id := b.nextSub
	b.subs = append(b.subs, busSubscriber{id: id, fn: fn})
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.subs = slices.DeleteFunc(b.subs, func(s busSubscriber) bool { return s.id == id })
	}
}

// Publish delivers ev to every subscriber before returning.
func (b *Bus) Publish(ev Event) {
	b.mu.Lock()
	subs := slices.Clone(b.subs)
	b.mu.Unlock()
	for _, s := range subs {
		s.fn(ev)
	}
}
