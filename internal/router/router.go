package router

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/proposalhub/notify-fabric/internal/domain"
	"github.com/proposalhub/notify-fabric/internal/prefs"
	"github.com/proposalhub/notify-fabric/internal/ratelimit"
	"github.com/proposalhub/notify-fabric/internal/sender"
)

// SendHooks carries the metric callbacks injected by main. Using a struct
// keeps the constructor signature clean and the router metrics-agnostic.
type SendHooks struct {
	OnSent   func(ch domain.Channel, count int, latency time.Duration)
	OnFailed func(ch domain.Channel, count int)
}

// Router regroups each flushed batch by target channel and hands every
// channel's sub-batch to its registered sender. Channels are independent:
// sends run concurrently, each under its own timeout, and one sender's
// failure never blocks a sibling's delivery.
type Router struct {
	mu      sync.RWMutex
	senders map[domain.Channel]sender.ChannelSender

	prefs       prefs.Store
	limiters    *ratelimit.ChannelLimiters
	sendTimeout time.Duration
	logger      *zap.Logger
	hooks       SendHooks
}

func New(
	prefStore prefs.Store,
	limiters *ratelimit.ChannelLimiters,
	sendTimeout time.Duration,
	logger *zap.Logger,
	hooks SendHooks,
) *Router {
	if hooks.OnSent == nil {
		hooks.OnSent = func(domain.Channel, int, time.Duration) {}
	}
	if hooks.OnFailed == nil {
		hooks.OnFailed = func(domain.Channel, int) {}
	}
	return &Router{
		senders:     make(map[domain.Channel]sender.ChannelSender),
		prefs:       prefStore,
		limiters:    limiters,
		sendTimeout: sendTimeout,
		logger:      logger,
		hooks:       hooks,
	}
}

// Register wires a sender for a channel. Called once per channel at startup.
func (r *Router) Register(ch domain.Channel, s sender.ChannelSender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.senders[ch] = s
}

// Channels returns the registered channel names, for statistics.
func (r *Router) Channels() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.senders))
	for ch := range r.senders {
		out = append(out, string(ch))
	}
	sort.Strings(out)
	return out
}

// Route fans the batch out: a notification targeting N channels appears in
// all N sub-batches. Each sub-batch is sorted by priority descending (stable,
// so equal priorities keep their queue order) and dispatched concurrently.
// Route returns when every channel's send attempt has finished.
func (r *Router) Route(ctx context.Context, batch []domain.Notification) {
	grouped := make(map[domain.Channel][]domain.Notification)
	for _, n := range batch {
		for _, ch := range n.Channels {
			grouped[ch] = append(grouped[ch], n)
		}
	}

	var wg sync.WaitGroup
	for ch, sub := range grouped {
		s, ok := r.senderFor(ch)
		if !ok {
			r.logger.Warn("no sender registered for channel, skipping sub-batch",
				zap.String("channel", string(ch)),
				zap.Int("count", len(sub)),
			)
			continue
		}

		sort.SliceStable(sub, func(i, j int) bool {
			return sub[i].Priority > sub[j].Priority
		})

		wg.Add(1)
		go func(ch domain.Channel, s sender.ChannelSender, sub []domain.Notification) {
			defer wg.Done()
			r.deliver(ctx, ch, s, sub)
		}(ch, s, sub)
	}
	wg.Wait()
}

func (r *Router) senderFor(ch domain.Channel) (sender.ChannelSender, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.senders[ch]
	return s, ok
}

// deliver filters the sub-batch through recipient preferences, waits for the
// channel's throttle token, and invokes the sender under a per-send timeout
// so a hanging sender cannot stall sibling channels' flushes.
func (r *Router) deliver(ctx context.Context, ch domain.Channel, s sender.ChannelSender, sub []domain.Notification) {
	sub = r.filterByPreferences(ctx, ch, sub)
	if len(sub) == 0 {
		return
	}

	if err := r.limiters.Wait(ctx, ch); err != nil {
		// ctx cancelled while waiting for a token, shutting down.
		return
	}

	sendCtx, cancel := context.WithTimeout(ctx, r.sendTimeout)
	defer cancel()

	start := time.Now()
	if err := s.SendBatch(sendCtx, sub); err != nil {
		r.logger.Error("channel delivery failed",
			zap.String("channel", string(ch)),
			zap.Strings("notification_ids", ids(sub)),
			zap.Error(err),
		)
		r.hooks.OnFailed(ch, len(sub))
		return
	}

	r.hooks.OnSent(ch, len(sub), time.Since(start))
	r.logger.Debug("sub-batch delivered",
		zap.String("channel", string(ch)),
		zap.Int("count", len(sub)),
	)
}

// filterByPreferences drops notifications the recipient has opted out of on
// this channel. A failed lookup defaults to allow: preference storage being
// down must not suppress delivery.
func (r *Router) filterByPreferences(ctx context.Context, ch domain.Channel, sub []domain.Notification) []domain.Notification {
	now := time.Now()
	out := sub[:0:len(sub)]
	for _, n := range sub {
		if n.RecipientKey == "" {
			out = append(out, n)
			continue
		}
		p, err := r.prefs.Get(ctx, n.RecipientKey)
		if err != nil {
			r.logger.Warn("preference lookup failed, defaulting to allow",
				zap.String("recipient", n.RecipientKey),
				zap.Error(err),
			)
			out = append(out, n)
			continue
		}
		if p.Allows(ch, n.Priority, now) {
			out = append(out, n)
		} else {
			r.logger.Debug("notification suppressed by recipient preferences",
				zap.String("notification_id", n.ID),
				zap.String("channel", string(ch)),
			)
		}
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
