// Package prefs exposes the external user-preference lookup consumed by the
// channel router. Preference storage is owned by the surrounding application;
// this package only reads it. A recipient with no stored record gets the
// default-allow zero value.
package prefs

import (
	"context"
	"sync"

	"github.com/proposalhub/notify-fabric/internal/domain"
)

// Store is the injected key-value lookup keyed by recipient.
type Store interface {
	Get(ctx context.Context, recipient string) (domain.Preferences, error)
}

// MemoryStore is an in-process Store. It doubles as the default when no
// Redis address is configured (every lookup returns the allow-all zero
// value) and as the test double.
type MemoryStore struct {
	mu    sync.RWMutex
	prefs map[string]domain.Preferences
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{prefs: make(map[string]domain.Preferences)}
}

func (s *MemoryStore) Get(_ context.Context, recipient string) (domain.Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prefs[recipient], nil
}

// Set stores preferences for a recipient.
func (s *MemoryStore) Set(recipient string, p domain.Preferences) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefs[recipient] = p
}
