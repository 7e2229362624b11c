package dispatch_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/proposalhub/notify-fabric/internal/dispatch"
	"github.com/proposalhub/notify-fabric/internal/domain"
)

func n(id string) domain.Notification {
	return domain.Notification{ID: id}
}

func TestQueue_FIFO(t *testing.T) {
	q := dispatch.NewQueue()

	q.Append(n("1"))
	q.Append(n("2"))
	q.Append(n("3"))

	batch := q.DrainUpTo(10)
	if len(batch) != 3 {
		t.Fatalf("expected 3 items, got %d", len(batch))
	}
	for i, want := range []string{"1", "2", "3"} {
		if batch[i].ID != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, batch[i].ID)
		}
	}
}

func TestQueue_DrainUpTo_Chunking(t *testing.T) {
	q := dispatch.NewQueue()
	for i := 0; i < 5; i++ {
		q.Append(n(fmt.Sprintf("%d", i)))
	}

	first := q.DrainUpTo(3)
	if len(first) != 3 || first[0].ID != "0" {
		t.Fatalf("unexpected first chunk: %v", first)
	}
	if q.Len() != 2 {
		t.Fatalf("expected 2 remaining, got %d", q.Len())
	}

	second := q.DrainUpTo(3)
	if len(second) != 2 || second[0].ID != "3" {
		t.Fatalf("unexpected second chunk: %v", second)
	}
	if q.Len() != 0 {
		t.Fatalf("expected empty queue, got %d", q.Len())
	}
}

// TestQueue_DrainEmpty verifies draining an empty queue is a harmless no-op,
// which is what makes redundant flush calls safe.
func TestQueue_DrainEmpty(t *testing.T) {
	q := dispatch.NewQueue()

	if batch := q.DrainUpTo(10); batch != nil {
		t.Fatalf("expected nil batch, got %v", batch)
	}
	if batch := q.DrainUpTo(10); batch != nil {
		t.Fatalf("second drain should also be nil, got %v", batch)
	}
}

func TestQueue_AppendReturnsDepth(t *testing.T) {
	q := dispatch.NewQueue()

	if depth := q.Append(n("1")); depth != 1 {
		t.Fatalf("expected depth 1, got %d", depth)
	}
	if depth := q.Append(n("2")); depth != 2 {
		t.Fatalf("expected depth 2, got %d", depth)
	}
}

// TestQueue_ConcurrentDrains verifies concurrent drains observe disjoint
// chunks: no item is lost or delivered twice.
func TestQueue_ConcurrentDrains(t *testing.T) {
	q := dispatch.NewQueue()

	const total = 500
	for i := 0; i < total; i++ {
		q.Append(n(fmt.Sprintf("%d", i)))
	}

	var mu sync.Mutex
	seen := make(map[string]int)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				batch := q.DrainUpTo(7)
				if len(batch) == 0 {
					return
				}
				mu.Lock()
				for _, item := range batch {
					seen[item.ID]++
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != total {
		t.Fatalf("expected %d distinct items, got %d", total, len(seen))
	}
	for id, count := range seen {
		if count != 1 {
			t.Fatalf("item %s drained %d times", id, count)
		}
	}
}
