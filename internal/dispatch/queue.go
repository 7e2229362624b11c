package dispatch

import (
	"sync"

	"github.com/proposalhub/notify-fabric/internal/domain"
)

// Queue is the unbounded in-memory FIFO holding admitted notifications until
// the next flush. DrainUpTo swaps the drained prefix out under the lock, so
// redundant or concurrent flush calls each observe a disjoint chunk and a
// flush of an empty queue is a no-op.
type Queue struct {
	mu    sync.Mutex
	items []domain.Notification
}

func NewQueue() *Queue {
	return &Queue{}
}

// Append adds a notification and returns the resulting queue depth.
func (q *Queue) Append(n domain.Notification) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, n)
	return len(q.items)
}

// DrainUpTo removes and returns at most max notifications in FIFO order.
func (q *Queue) DrainUpTo(max int) []domain.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil
	}
	if max > len(q.items) {
		max = len(q.items)
	}

	batch := q.items[:max:max]
	q.items = append([]domain.Notification(nil), q.items[max:]...)
	return batch
}

// Len returns the current queue depth.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
