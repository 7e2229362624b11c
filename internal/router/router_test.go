package router_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/proposalhub/notify-fabric/internal/domain"
	"github.com/proposalhub/notify-fabric/internal/prefs"
	"github.com/proposalhub/notify-fabric/internal/ratelimit"
	"github.com/proposalhub/notify-fabric/internal/router"
)

// captureSender records every sub-batch it receives.
type captureSender struct {
	mu      sync.Mutex
	batches [][]domain.Notification
	err     error
	block   time.Duration
}

func (c *captureSender) SendBatch(ctx context.Context, batch []domain.Notification) error {
	if c.block > 0 {
		select {
		case <-time.After(c.block):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	c.mu.Lock()
	c.batches = append(c.batches, batch)
	c.mu.Unlock()
	return c.err
}

func (c *captureSender) received() [][]domain.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]domain.Notification(nil), c.batches...)
}

func newTestRouter(store prefs.Store) *router.Router {
	if store == nil {
		store = prefs.NewMemoryStore()
	}
	return router.New(store, ratelimit.NewChannelLimiters(1000), time.Second, zap.NewNop(), router.SendHooks{})
}

func note(id string, p domain.Priority, recipient string, chans ...domain.Channel) domain.Notification {
	return domain.Notification{
		ID:           id,
		Priority:     p,
		RecipientKey: recipient,
		Channels:     chans,
	}
}

// TestRoute_FanOut verifies a notification targeting two channels appears in
// both channels' sub-batches.
func TestRoute_FanOut(t *testing.T) {
	r := newTestRouter(nil)
	a := &captureSender{}
	b := &captureSender{}
	r.Register(domain.ChannelInApp, a)
	r.Register(domain.ChannelEmail, b)

	r.Route(context.Background(), []domain.Notification{
		note("n1", domain.PriorityMedium, "u1", domain.ChannelInApp, domain.ChannelEmail),
	})

	for name, s := range map[string]*captureSender{"A": a, "B": b} {
		got := s.received()
		if len(got) != 1 || len(got[0]) != 1 || got[0][0].ID != "n1" {
			t.Fatalf("channel %s: expected n1 in one sub-batch, got %v", name, got)
		}
	}
}

// TestRoute_PriorityOrdering verifies each sub-batch is sorted by priority
// descending, with queue order preserved among equals.
func TestRoute_PriorityOrdering(t *testing.T) {
	r := newTestRouter(nil)
	s := &captureSender{}
	r.Register(domain.ChannelInApp, s)

	r.Route(context.Background(), []domain.Notification{
		note("low", domain.PriorityLow, "u1", domain.ChannelInApp),
		note("critical", domain.PriorityCritical, "u2", domain.ChannelInApp),
		note("medium-1", domain.PriorityMedium, "u3", domain.ChannelInApp),
		note("medium-2", domain.PriorityMedium, "u4", domain.ChannelInApp),
	})

	got := s.received()
	if len(got) != 1 {
		t.Fatalf("expected one sub-batch, got %d", len(got))
	}
	want := []string{"critical", "medium-1", "medium-2", "low"}
	for i, id := range want {
		if got[0][i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, got[0][i].ID)
		}
	}
}

// TestRoute_FailureIsolation verifies one channel's sender error does not
// prevent delivery on sibling channels.
func TestRoute_FailureIsolation(t *testing.T) {
	r := newTestRouter(nil)
	failing := &captureSender{err: errors.New("gateway down")}
	healthy := &captureSender{}
	r.Register(domain.ChannelEmail, failing)
	r.Register(domain.ChannelInApp, healthy)

	r.Route(context.Background(), []domain.Notification{
		note("n1", domain.PriorityHigh, "u1", domain.ChannelEmail, domain.ChannelInApp),
	})

	if got := healthy.received(); len(got) != 1 {
		t.Fatalf("healthy channel should still deliver, got %v", got)
	}
}

func TestRoute_UnregisteredChannelSkipped(t *testing.T) {
	r := newTestRouter(nil)
	registered := &captureSender{}
	r.Register(domain.ChannelInApp, registered)

	// chat-primary has no sender; the route must not fail.
	r.Route(context.Background(), []domain.Notification{
		note("n1", domain.PriorityHigh, "u1", domain.ChannelInApp, domain.ChannelChatPrimary),
	})

	if got := registered.received(); len(got) != 1 {
		t.Fatalf("registered channel should deliver, got %v", got)
	}
}

// TestRoute_SendTimeout verifies a hanging sender is cut off by the per-send
// timeout while sibling channels complete.
func TestRoute_SendTimeout(t *testing.T) {
	store := prefs.NewMemoryStore()
	r := router.New(store, ratelimit.NewChannelLimiters(1000), 50*time.Millisecond, zap.NewNop(), router.SendHooks{})

	hanging := &captureSender{block: time.Second}
	fast := &captureSender{}
	r.Register(domain.ChannelEmail, hanging)
	r.Register(domain.ChannelInApp, fast)

	start := time.Now()
	r.Route(context.Background(), []domain.Notification{
		note("n1", domain.PriorityHigh, "u1", domain.ChannelEmail, domain.ChannelInApp),
	})
	elapsed := time.Since(start)

	if elapsed > 500*time.Millisecond {
		t.Fatalf("route blocked on hanging sender for %v", elapsed)
	}
	if got := fast.received(); len(got) != 1 {
		t.Fatalf("fast channel should deliver, got %v", got)
	}
	if got := hanging.received(); len(got) != 0 {
		t.Fatalf("hanging sender should have been cancelled, got %v", got)
	}
}

func TestRoute_PreferenceFiltering(t *testing.T) {
	store := prefs.NewMemoryStore()
	store.Set("muted", domain.Preferences{
		DisabledChannels: []domain.Channel{domain.ChannelEmail},
	})
	store.Set("dnd", domain.Preferences{DoNotDisturb: true})

	r := newTestRouter(store)
	email := &captureSender{}
	inapp := &captureSender{}
	r.Register(domain.ChannelEmail, email)
	r.Register(domain.ChannelInApp, inapp)

	r.Route(context.Background(), []domain.Notification{
		note("muted-email", domain.PriorityHigh, "muted", domain.ChannelEmail, domain.ChannelInApp),
		note("dnd-dropped", domain.PriorityHigh, "dnd", domain.ChannelInApp),
		note("dnd-critical", domain.PriorityCritical, "dnd", domain.ChannelInApp),
		note("plain", domain.PriorityLow, "other", domain.ChannelEmail),
	})

	emailGot := flatten(email.received())
	if len(emailGot) != 1 || emailGot[0].ID != "plain" {
		t.Fatalf("email channel: expected only 'plain', got %v", ids(emailGot))
	}

	inappGot := flatten(inapp.received())
	wantInApp := map[string]bool{"muted-email": true, "dnd-critical": true}
	if len(inappGot) != len(wantInApp) {
		t.Fatalf("in-app channel: expected %d notifications, got %v", len(wantInApp), ids(inappGot))
	}
	for _, n := range inappGot {
		if !wantInApp[n.ID] {
			t.Fatalf("in-app channel: unexpected notification %s", n.ID)
		}
	}
}

// TestRoute_HooksObserved verifies the sent/failed callbacks fire with the
// channel identity and sub-batch size.
func TestRoute_HooksObserved(t *testing.T) {
	var mu sync.Mutex
	sent := map[domain.Channel]int{}
	failed := map[domain.Channel]int{}

	hooks := router.SendHooks{
		OnSent: func(ch domain.Channel, count int, _ time.Duration) {
			mu.Lock()
			sent[ch] += count
			mu.Unlock()
		},
		OnFailed: func(ch domain.Channel, count int) {
			mu.Lock()
			failed[ch] += count
			mu.Unlock()
		},
	}

	r := router.New(prefs.NewMemoryStore(), ratelimit.NewChannelLimiters(1000), time.Second, zap.NewNop(), hooks)
	r.Register(domain.ChannelInApp, &captureSender{})
	r.Register(domain.ChannelEmail, &captureSender{err: errors.New("boom")})

	r.Route(context.Background(), []domain.Notification{
		note("n1", domain.PriorityHigh, "u1", domain.ChannelInApp, domain.ChannelEmail),
		note("n2", domain.PriorityLow, "u2", domain.ChannelInApp),
	})

	mu.Lock()
	defer mu.Unlock()
	if sent[domain.ChannelInApp] != 2 {
		t.Fatalf("expected 2 sent on in-app, got %d", sent[domain.ChannelInApp])
	}
	if failed[domain.ChannelEmail] != 1 {
		t.Fatalf("expected 1 failed on email, got %d", failed[domain.ChannelEmail])
	}
}

func TestChannels_Sorted(t *testing.T) {
	r := newTestRouter(nil)
	r.Register(domain.ChannelEmail, &captureSender{})
	r.Register(domain.ChannelChatPrimary, &captureSender{})

	got := r.Channels()
	if len(got) != 2 || got[0] != "chat-primary" || got[1] != "email" {
		t.Fatalf("unexpected channels: %v", got)
	}
}

func flatten(batches [][]domain.Notification) []domain.Notification {
	var out []domain.Notification
	for _, b := range batches {
		out = append(out, b...)
	}
	return out
}

func ids(batch []domain.Notification) []string {
	out := make([]string, len(batch))
	for i, n := range batch {
		out[i] = n.ID
	}
	return out
}
