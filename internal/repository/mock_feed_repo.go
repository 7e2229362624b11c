package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/proposalhub/notify-fabric/internal/domain"
)

// MockFeedRepository is a hand-written, in-memory implementation of
// FeedRepository used in unit tests. No mock-generation library needed.
type MockFeedRepository struct {
	mu      sync.RWMutex
	entries []domain.FeedEntry

	// Optional error override, set in tests to simulate failure paths.
	InsertErr error
}

func NewMockFeedRepository() *MockFeedRepository {
	return &MockFeedRepository{}
}

func (m *MockFeedRepository) InsertBatch(_ context.Context, entries []domain.FeedEntry) error {
	if m.InsertErr != nil {
		return m.InsertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entries...)
	return nil
}

func (m *MockFeedRepository) ListByRecipient(_ context.Context, recipient string, limit int) ([]domain.FeedEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []domain.FeedEntry
	for _, e := range m.entries {
		if e.RecipientKey == recipient {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MockFeedRepository) MarkAllRead(_ context.Context, recipient string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var affected int64
	for i := range m.entries {
		if m.entries[i].RecipientKey == recipient && !m.entries[i].Read {
			m.entries[i].Read = true
			affected++
		}
	}
	return affected, nil
}

func (m *MockFeedRepository) UnreadCount(_ context.Context, recipient string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var count int64
	for _, e := range m.entries {
		if e.RecipientKey == recipient && !e.Read {
			count++
		}
	}
	return count, nil
}

// All returns every stored entry; test helper.
func (m *MockFeedRepository) All() []domain.FeedEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.FeedEntry(nil), m.entries...)
}
