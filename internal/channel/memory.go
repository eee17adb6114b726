package channel

import (
	"context"
	"sync"
)

// MemoryBus fans messages out to same-process subscribers. Used when the
// main and mini windows talk to the same server instance, and by tests.
type MemoryBus struct {
	mu     sync.Mutex
	subs   map[int]chan Message
	nextID int
	closed bool
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subs: map[int]chan Message{}}
}

func (b *MemoryBus) Publish(_ context.Context, msg Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	for _, ch := range b.subs {
		select {
		case ch <- msg:
		default:
			// slow subscriber: drop, the next snapshot supersedes this one
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context) (<-chan Message, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Message, 16)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
	}
	return ch, cancel
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	return nil
}
