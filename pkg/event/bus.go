// Package event provides a synchronous, payload-less broadcast bus. Handlers
// run to completion, in subscription order, before Publish returns.
package event

import (
	"context"
	"sync"
)

// Handler reacts to a named signal. Signals carry no payload: handlers read
// whatever state they need themselves.
type Handler func(ctx context.Context)

type subscription struct {
	id uint64
	fn Handler
}

// Bus dispatches named signals to subscribers.
type Bus struct {
	mu     sync.Mutex
	nextID uint64
	subs   map[string][]subscription
}

// NewBus returns an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string][]subscription)}
}

// Subscribe registers fn for name and returns a function that removes it.
func (b *Bus) Subscribe(name string, fn Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[name] = append(b.subs[name], subscription{id: id, fn: fn})

	var once sync.Once
	return func() {
		once.Do(func() { b.remove(name, id) })
	}
}

func (b *Bus) remove(name string, id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[name]
	for i, s := range subs {
		if s.id == id {
			b.subs[name] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[name]) == 0 {
		delete(b.subs, name)
	}
}

// Publish invokes every handler subscribed to name.
func (b *Bus) Publish(ctx context.Context, name string) {
	b.mu.Lock()
	subs := make([]subscription, len(b.subs[name]))
	copy(subs, b.subs[name])
	b.mu.Unlock()

	for _, s := range subs {
		s.fn(ctx)
	}
}
