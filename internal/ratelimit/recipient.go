package ratelimit

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/proposalhub/notify-fabric/internal/domain"
)

// minInterval is the minimum spacing between admitted notifications for one
// recipient, scaled inversely with priority.
var minInterval = map[domain.Priority]time.Duration{
	domain.PriorityLow:      60 * time.Second,
	domain.PriorityMedium:   30 * time.Second,
	domain.PriorityHigh:     15 * time.Second,
	domain.PriorityUrgent:   5 * time.Second,
	domain.PriorityCritical: 1 * time.Second,
}

// MinInterval returns the admission interval for a priority. Unknown values
// fall back to the low-priority interval.
func MinInterval(p domain.Priority) time.Duration {
	if d, ok := minInterval[p]; ok {
		return d
	}
	return minInterval[domain.PriorityLow]
}

type state struct {
	lastAdmittedAt time.Time
	admittedCount  int64
}

// RecipientGate decides whether a freshly classified notification may proceed
// to the dispatch queue. One state entry is kept per recipient key; the check
// and the update are a single read-modify-write under the gate's lock, so two
// concurrent events for the same recipient can never both be admitted inside
// one interval.
type RecipientGate struct {
	mu     sync.Mutex
	states map[string]*state
	now    func() time.Time
	logger *zap.Logger
}

func NewRecipientGate(logger *zap.Logger) *RecipientGate {
	return &RecipientGate{
		states: make(map[string]*state),
		now:    time.Now,
		logger: logger,
	}
}

// Admit reports whether the notification may proceed. A rejection is an
// expected control-flow outcome: the notification is discarded, not queued
// and not retried. Notifications without a recipient key always pass.
func (g *RecipientGate) Admit(n domain.Notification) bool {
	if n.RecipientKey == "" {
		return true
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	st, ok := g.states[n.RecipientKey]
	if !ok {
		st = &state{}
		g.states[n.RecipientKey] = st
	}

	if ok && now.Sub(st.lastAdmittedAt) < MinInterval(n.Priority) {
		g.logger.Debug("notification rate limited",
			zap.String("notification_id", n.ID),
			zap.String("recipient", n.RecipientKey),
			zap.String("priority", n.Priority.String()),
		)
		return false
	}

	st.lastAdmittedAt = now
	st.admittedCount++
	return true
}

// Recipients returns the number of tracked recipient entries.
func (g *RecipientGate) Recipients() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.states)
}

// Sweep evicts entries idle for longer than maxIdle and returns the eviction
// count. Idle entries can never influence an admission decision (every
// interval is far shorter than maxIdle), so eviction is purely a bound on
// table growth.
func (g *RecipientGate) Sweep(maxIdle time.Duration) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := g.now().Add(-maxIdle)
	evicted := 0
	for key, st := range g.states {
		if st.lastAdmittedAt.Before(cutoff) {
			delete(g.states, key)
			evicted++
		}
	}
	return evicted
}

// RunEviction sweeps the state table every interval until ctx is cancelled.
func (g *RecipientGate) RunEviction(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := g.Sweep(maxIdle); n > 0 {
				g.logger.Debug("evicted idle rate-limit entries", zap.Int("count", n))
			}
		}
	}
}
