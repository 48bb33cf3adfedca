package queue

import (
	"context"
	"sync"
)

var _ ImportQueue = (*MemoryQueue)(nil)

// MemoryQueue fans events out to in-process subscribers. Slow subscribers
// lose events rather than block publishers.
type MemoryQueue struct {
	mu     sync.Mutex
	subs   map[chan *ImportEvent]struct{}
	buffer int
	closed bool
}

func NewMemoryQueue(buffer int) *MemoryQueue {
	if buffer <= 0 {
		buffer = 64
	}
	return &MemoryQueue{subs: make(map[chan *ImportEvent]struct{}), buffer: buffer}
}

func (q *MemoryQueue) PublishImport(_ context.Context, ev *ImportEvent) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrClosed
	}
	for ch := range q.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	return nil
}

func (q *MemoryQueue) SubscribeImports(ctx context.Context) (<-chan *ImportEvent, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrClosed
	}

	ch := make(chan *ImportEvent, q.buffer)
	q.subs[ch] = struct{}{}
	go func() {
		<-ctx.Done()
		q.unsubscribe(ch)
	}()
	return ch, nil
}

func (q *MemoryQueue) unsubscribe(ch chan *ImportEvent) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.subs[ch]; ok {
		delete(q.subs, ch)
		close(ch)
	}
}

func (q *MemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	for ch := range q.subs {
		delete(q.subs, ch)
		close(ch)
	}
	return nil
}
