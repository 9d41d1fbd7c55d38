package generator

import (
	"context"
	"errors"
	"sync"

	"github.com/CharlieDigital/dn8-sk-llama3-fireworks/internal/models"
)

// ErrQueueClosed is returned when writing to a closed fragment queue
var ErrQueueClosed = errors.New("fragment queue closed")

// fragmentQueue is an unbounded multi-producer, single-consumer FIFO of
// fragments. Push never blocks. Close is one-way and idempotent; after it
// the consumer drains what is left and then observes the end of the queue.
type fragmentQueue struct {
	mu     sync.Mutex
	items  []models.Fragment
	closed bool
	// wake holds at most one pending notification for the single consumer
	wake chan struct{}
}

func newFragmentQueue() *fragmentQueue {
	return &fragmentQueue{wake: make(chan struct{}, 1)}
}

// Push appends a fragment
func (q *fragmentQueue) Push(f models.Fragment) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	q.items = append(q.items, f)
	q.mu.Unlock()

	q.notify()
	return nil
}

// Close stops further writes
func (q *fragmentQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	q.notify()
}

// Pop waits for the next fragment. It returns false once the queue is
// closed and empty.
func (q *fragmentQueue) Pop(ctx context.Context) (models.Fragment, bool, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			f := q.items[0]
			q.items[0] = models.Fragment{}
			q.items = q.items[1:]
			q.mu.Unlock()
			return f, true, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			return models.Fragment{}, false, nil
		}

		select {
		case <-q.wake:
		case <-ctx.Done():
			return models.Fragment{}, false, ctx.Err()
		}
	}
}

// Len reports the number of buffered fragments
func (q *fragmentQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *fragmentQueue) notify() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
