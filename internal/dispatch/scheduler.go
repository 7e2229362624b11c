package dispatch

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/proposalhub/notify-fabric/internal/domain"
)

// Router receives each flushed batch. Implemented by the channel router;
// declared here so the scheduler does not depend on the fan-out machinery.
type Router interface {
	Route(ctx context.Context, batch []domain.Notification)
}

// FlushHook is called after every non-empty flush with the batch size and
// the time spent routing it. Injected by main so the scheduler stays
// metrics-agnostic.
type FlushHook func(batchLen int, elapsed time.Duration)

// Scheduler accumulates admitted notifications and flushes them when either
// the size threshold is reached or the batch timeout elapses, whichever
// comes first.
//
// Two independent trigger paths feed the same flush:
//
//  1. Enqueue arms a one-shot timer when the queue goes non-empty and flushes
//     directly when the queue reaches batchSize.
//  2. Run ticks every batchTimeout and flushes whenever the queue is
//     non-empty, as a safety net if the event-driven path is bypassed by a
//     race.
//
// The queue's drain-and-swap makes a redundant flush harmless, so the two
// paths never need to coordinate.
type Scheduler struct {
	q         *Queue
	router    Router
	batchSize int
	timeout   time.Duration
	logger    *zap.Logger
	onFlush   FlushHook

	mu    sync.Mutex
	timer *time.Timer
	armed bool

	// flushCtx is the lifetime context captured by Start; timer and
	// size-triggered flushes run outside any caller's request context.
	flushCtx context.Context
}

func NewScheduler(
	q *Queue,
	router Router,
	batchSize int,
	timeout time.Duration,
	logger *zap.Logger,
	onFlush FlushHook,
) *Scheduler {
	if onFlush == nil {
		onFlush = func(int, time.Duration) {}
	}
	return &Scheduler{
		q:         q,
		router:    router,
		batchSize: batchSize,
		timeout:   timeout,
		logger:    logger,
		onFlush:   onFlush,
		flushCtx:  context.Background(),
	}
}

// Enqueue appends an admitted notification. Once accepted here the
// notification is guaranteed to be included in some future flush. The caller
// never blocks on sender I/O: size-triggered flushes run on their own
// goroutine.
func (s *Scheduler) Enqueue(n domain.Notification) {
	depth := s.q.Append(n)

	if depth >= s.batchSize {
		go s.Flush()
		return
	}
	s.arm()
}

// Depth returns the number of notifications awaiting a flush.
func (s *Scheduler) Depth() int { return s.q.Len() }

// BatchSize returns the configured size trigger.
func (s *Scheduler) BatchSize() int { return s.batchSize }

// Timeout returns the configured batch timeout.
func (s *Scheduler) Timeout() time.Duration { return s.timeout }

// Run drives the periodic fallback sweep until ctx is cancelled, then drains
// whatever is still queued so admitted notifications are not stranded at
// shutdown.
func (s *Scheduler) Run(ctx context.Context) {
	s.mu.Lock()
	s.flushCtx = ctx
	s.mu.Unlock()

	ticker := time.NewTicker(s.timeout)
	defer ticker.Stop()

	s.logger.Info("batch scheduler started",
		zap.Int("batch_size", s.batchSize),
		zap.Duration("batch_timeout", s.timeout),
	)

	for {
		select {
		case <-ctx.Done():
			s.disarm()
			s.drain()
			s.logger.Info("batch scheduler stopped")
			return
		case <-ticker.C:
			if s.q.Len() > 0 {
				s.Flush()
			}
		}
	}
}

// Flush pops at most batchSize notifications and routes them. Safe to call
// concurrently and redundantly; an empty queue is a no-op. If a full batch
// was popped and more items remain, flushing continues immediately instead
// of waiting for the next sweep.
func (s *Scheduler) Flush() {
	s.disarm()

	for {
		batch := s.q.DrainUpTo(s.batchSize)
		if len(batch) == 0 {
			return
		}

		start := time.Now()
		s.router.Route(s.currentCtx(), batch)
		s.onFlush(len(batch), time.Since(start))

		s.logger.Debug("batch flushed",
			zap.Int("count", len(batch)),
			zap.Int("remaining", s.q.Len()),
		)

		if len(batch) < s.batchSize {
			// The queue was drained below the threshold; anything enqueued
			// since will arm its own trigger.
			if s.q.Len() > 0 {
				s.arm()
			}
			return
		}
	}
}

// arm starts the one-shot flush timer if no timer is currently pending.
func (s *Scheduler) arm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.armed {
		return
	}
	s.armed = true
	s.timer = time.AfterFunc(s.timeout, s.Flush)
}

func (s *Scheduler) disarm() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.armed = false
}

func (s *Scheduler) currentCtx() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushCtx
}

// drain flushes repeatedly at shutdown. The run context is already
// cancelled, so routing happens under a background context bounded by the
// router's own per-send timeouts.
func (s *Scheduler) drain() {
	s.mu.Lock()
	s.flushCtx = context.Background()
	s.mu.Unlock()

	for s.q.Len() > 0 {
		s.Flush()
	}
}
