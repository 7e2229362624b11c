package engine

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/proposalhub/notify-fabric/internal/classifier"
	"github.com/proposalhub/notify-fabric/internal/dispatch"
	"github.com/proposalhub/notify-fabric/internal/domain"
	"github.com/proposalhub/notify-fabric/internal/prioritizer"
	"github.com/proposalhub/notify-fabric/internal/ratelimit"
	"github.com/proposalhub/notify-fabric/internal/router"
	"github.com/proposalhub/notify-fabric/internal/sender"
)

// PublishHooks carries the metric callbacks for the ingestion path.
type PublishHooks struct {
	OnPublished   func(kind domain.EventKind)
	OnFallback    func(kind domain.EventKind)
	OnRateLimited func(kind domain.EventKind)
}

// Statistics is the read-only introspection snapshot served to ops
// dashboards.
type Statistics struct {
	QueueDepth            int      `json:"queue_depth"`
	BatchSize             int      `json:"batch_size"`
	BatchTimeout          string   `json:"batch_timeout"`
	RegisteredChannels    []string `json:"registered_channels"`
	RateLimitedRecipients int      `json:"rate_limited_recipients"`
}

// Engine is the event-driven dispatch engine: it owns the classification →
// prioritization → admission → batching pipeline and the background loops
// driving it. All state is instance-held so multiple engines can run side by
// side in tests.
type Engine struct {
	classifier  *classifier.Classifier
	prioritizer *prioritizer.Prioritizer
	gate        *ratelimit.RecipientGate
	scheduler   *dispatch.Scheduler
	router      *router.Router
	logger      *zap.Logger
	hooks       PublishHooks

	evictInterval time.Duration
	evictMaxIdle  time.Duration

	wg sync.WaitGroup
}

func New(
	cls *classifier.Classifier,
	pri *prioritizer.Prioritizer,
	gate *ratelimit.RecipientGate,
	sched *dispatch.Scheduler,
	rt *router.Router,
	evictInterval, evictMaxIdle time.Duration,
	logger *zap.Logger,
	hooks PublishHooks,
) *Engine {
	if hooks.OnPublished == nil {
		hooks.OnPublished = func(domain.EventKind) {}
	}
	if hooks.OnFallback == nil {
		hooks.OnFallback = func(domain.EventKind) {}
	}
	if hooks.OnRateLimited == nil {
		hooks.OnRateLimited = func(domain.EventKind) {}
	}
	return &Engine{
		classifier:    cls,
		prioritizer:   pri,
		gate:          gate,
		scheduler:     sched,
		router:        rt,
		logger:        logger,
		hooks:         hooks,
		evictInterval: evictInterval,
		evictMaxIdle:  evictMaxIdle,
	}
}

// Publish is the fire-and-forget entry point called after a state-changing
// operation commits. It never panics and never returns an error to the
// caller: a notification is a best-effort side effect, not part of the
// caller's transaction. Publish does not block on channel sender I/O.
func (e *Engine) Publish(ctx context.Context, kind domain.EventKind, payload domain.Payload) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("publish panicked, event dropped",
				zap.String("event_kind", string(kind)),
				zap.Any("panic", r),
			)
		}
	}()

	e.hooks.OnPublished(kind)
	if !classifier.Recognized(kind) {
		e.hooks.OnFallback(kind)
	}

	n := e.classifier.Classify(kind, payload)
	n = e.prioritizer.Apply(n)

	if !e.gate.Admit(n) {
		e.hooks.OnRateLimited(kind)
		return
	}

	e.scheduler.Enqueue(n)
}

// RegisterChannel wires a sender for a delivery channel. Called once per
// channel by the startup wiring.
func (e *Engine) RegisterChannel(ch domain.Channel, s sender.ChannelSender) {
	e.router.Register(ch, s)
}

// Statistics returns the current operational snapshot.
func (e *Engine) Statistics() Statistics {
	return Statistics{
		QueueDepth:            e.scheduler.Depth(),
		BatchSize:             e.scheduler.BatchSize(),
		BatchTimeout:          e.scheduler.Timeout().String(),
		RegisteredChannels:    e.router.Channels(),
		RateLimitedRecipients: e.gate.Recipients(),
	}
}

// Start launches the batch sweep loop and the rate-limit eviction loop.
// Both stop when ctx is cancelled; the scheduler drains the queue on the way
// out.
func (e *Engine) Start(ctx context.Context) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.scheduler.Run(ctx)
	}()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.gate.RunEviction(ctx, e.evictInterval, e.evictMaxIdle)
	}()
}

// Wait blocks until the background loops have returned after ctx
// cancellation. Call after cancelling the context passed to Start.
func (e *Engine) Wait() {
	e.wg.Wait()
}
