package mq

import (
	"context"
	"sync"
)

// MemoryBus fans poll updates out to subscribers in this process.
type MemoryBus struct {
	mu     sync.Mutex
	subs   map[int]chan PollUpdate
	nextID int
	buffer int
}

func NewMemoryBus(buffer int) *MemoryBus {
	if buffer < 1 {
		buffer = 1
	}
	return &MemoryBus{subs: make(map[int]chan PollUpdate), buffer: buffer}
}

func (b *MemoryBus) Publish(_ context.Context, u PollUpdate) error {
	b.deliver(u)
	return nil
}

// Subscribe registers a listener. The returned func unsubscribes and closes
// the channel; it is safe to call more than once.
func (b *MemoryBus) Subscribe() (<-chan PollUpdate, func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan PollUpdate, b.buffer)
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}

// deliver never blocks. A slow subscriber loses its oldest pending update
// rather than the newest one.
func (b *MemoryBus) deliver(u PollUpdate) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- u:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- u:
			default:
			}
		}
	}
}
