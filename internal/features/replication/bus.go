package replication

import (
	"context"
	"slices"
	"sync"

	"go-hr/internal/metrics"
)

// EventBus carries committed transitions to every viewer.
type EventBus interface {
	Publish(ctx context.Context, evt Event) error
	// Subscribe returns a channel of events and a func that detaches it.
	Subscribe() (<-chan Event, func())
}

// MemoryBus fans events out to in-process subscribers. Publishing never blocks: a
// subscriber whose buffer is full misses the event and must reconcile from the store.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[uint64]chan Event
	seq    uint64
	buffer int
}

func NewMemoryBus(buffer int) *MemoryBus {
	if buffer <= 0 {
		buffer = 64
	}
	return &MemoryBus{
		subs:   make(map[uint64]chan Event),
		buffer: buffer,
	}
}

func (b *MemoryBus) Publish(_ context.Context, evt Event) error {
	b.dispatch(evt)
	metrics.ReplicationEvents.WithLabelValues(string(evt.Type), "published").Inc()
	return nil
}

func (b *MemoryBus) dispatch(evt Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- evt:
		default:
			metrics.ReplicationEvents.WithLabelValues(string(evt.Type), "dropped").Inc()
		}
	}
}

func (b *MemoryBus) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, b.buffer)
	b.mu.Lock()
	b.seq++
	id := b.seq
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if ch, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(ch)
			}
		})
	}
	return ch, cancel
}

// Close detaches every subscriber.
func (b *MemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// Handle runs handler for every event of the given types, or of any type when none are
// given, until the returned stop func is called. stop waits for the handler to return.
func Handle(bus EventBus, handler func(Event), types ...EventType) (stop func()) {
	events, cancel := bus.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for evt := range events {
			if len(types) > 0 && !slices.Contains(types, evt.Type) {
				continue
			}
			handler(evt)
		}
	}()
	return func() {
		cancel()
		<-done
	}
}
