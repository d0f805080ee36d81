package memory

import (
	"context"
	"sync"

	"github.com/cory-johannsen/tabletop/internal/command"
)

// Broadcaster is a command.Publisher that fans traces out to in-process
// subscribers. A subscriber whose buffer is full misses the trace.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan command.Trace
	nextID int
}

// NewBroadcaster creates a Broadcaster with no subscribers.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan command.Trace)}
}

// Subscribe returns a channel receiving every subsequent trace and a function
// that unsubscribes and closes it.
//
// Precondition: buffer >= 0.
func (b *Broadcaster) Subscribe(buffer int) (<-chan command.Trace, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	ch := make(chan command.Trace, buffer)
	b.subs[id] = ch
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

// Publish implements command.Publisher.
func (b *Broadcaster) Publish(_ context.Context, trace command.Trace) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- trace:
		default:
		}
	}
	return nil
}
