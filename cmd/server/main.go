package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/proposalhub/notify-fabric/internal/api"
	"github.com/proposalhub/notify-fabric/internal/classifier"
	"github.com/proposalhub/notify-fabric/internal/config"
	"github.com/proposalhub/notify-fabric/internal/db"
	"github.com/proposalhub/notify-fabric/internal/dispatch"
	"github.com/proposalhub/notify-fabric/internal/domain"
	"github.com/proposalhub/notify-fabric/internal/engine"
	"github.com/proposalhub/notify-fabric/internal/eventsource"
	"github.com/proposalhub/notify-fabric/internal/metrics"
	"github.com/proposalhub/notify-fabric/internal/prefs"
	"github.com/proposalhub/notify-fabric/internal/prioritizer"
	"github.com/proposalhub/notify-fabric/internal/ratelimit"
	"github.com/proposalhub/notify-fabric/internal/repository"
	"github.com/proposalhub/notify-fabric/internal/router"
	"github.com/proposalhub/notify-fabric/internal/sender"
)

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	// ---- configuration ----
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	// ---- database (in-app feed store) ----
	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer pool.Close()

	if err := db.Migrate(cfg.DatabaseURL); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}
	logger.Info("database migrations applied")

	// ---- preference store ----
	var prefStore prefs.Store = prefs.NewMemoryStore()
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		prefStore = prefs.NewRedisStore(rdb)
		logger.Info("preference store: redis", zap.String("addr", cfg.RedisAddr))
	} else {
		logger.Info("preference store: in-memory default-allow")
	}

	// ---- core dependencies ----
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	onSent, onFailed := m.SendHooks()
	rt := router.New(
		prefStore,
		ratelimit.NewChannelLimiters(cfg.ChannelRateLimit),
		cfg.SendTimeout,
		logger,
		router.SendHooks{OnSent: onSent, OnFailed: onFailed},
	)

	q := dispatch.NewQueue()
	sched := dispatch.NewScheduler(q, rt, cfg.BatchSize, cfg.BatchTimeout, logger, m.FlushHook())
	m.RegisterQueueDepth(sched.Depth)

	gate := ratelimit.NewRecipientGate(logger)
	cls := classifier.New(logger)
	pri := prioritizer.New(prioritizer.DefaultRules(), logger)

	onPublished, onFallback, onRateLimited := m.PublishHooks()
	eng := engine.New(cls, pri, gate, sched, rt,
		cfg.RateEvictInterval, cfg.RateEvictMaxIdle,
		logger,
		engine.PublishHooks{
			OnPublished:   onPublished,
			OnFallback:    onFallback,
			OnRateLimited: onRateLimited,
		},
	)

	// ---- channel senders ----
	feedRepo := repository.NewPgFeedRepository(pool)
	eng.RegisterChannel(domain.ChannelInApp, sender.NewInAppSender(feedRepo))
	eng.RegisterChannel(domain.ChannelEmail, sender.NewWebhookSender(cfg.EmailGatewayURL, cfg.WebhookTimeout))
	eng.RegisterChannel(domain.ChannelChatPrimary, sender.NewWebhookSender(cfg.ChatPrimaryWebhookURL, cfg.WebhookTimeout))
	eng.RegisterChannel(domain.ChannelChatSecondary, sender.NewWebhookSender(cfg.ChatSecondaryWebhookURL, cfg.WebhookTimeout))

	// ---- background loops ----
	// Context for all background goroutines; cancelled on shutdown signal.
	engineCtx, cancelEngine := context.WithCancel(ctx)
	defer cancelEngine()
	eng.Start(engineCtx)

	// ---- event source (optional) ----
	if cfg.NATSURL != "" {
		src, err := eventsource.Connect(cfg.NATSURL, cfg.NATSSubject, eng, logger)
		if err != nil {
			logger.Fatal("failed to connect to nats", zap.Error(err))
		}
		if err := src.Start(engineCtx); err != nil {
			logger.Fatal("failed to subscribe to events", zap.Error(err))
		}
		defer src.Close()
	}

	// ---- HTTP server ----
	handler := api.NewRouter(eng, feedRepo, reg, logger)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start server in a goroutine so it does not block the shutdown listener.
	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	// ---- graceful shutdown ----
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutdown signal received")

	// 1. Stop accepting new HTTP requests.
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", zap.Error(err))
	}

	// 2. Signal the engine loops to stop; the scheduler drains the queue.
	cancelEngine()

	// 3. Wait for the final flush to finish.
	eng.Wait()

	logger.Info("server stopped cleanly")
}
