package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventgate/internal/app"
	"eventgate/internal/config"
	"eventgate/internal/queue"
	"eventgate/internal/store"
	"eventgate/internal/upstream"
)

// Worker consumes refresh tasks and rewrites the public events cache so the
// API can serve cached lists without blocking on the upstream.
func main() {
	cfg := config.Load()
	logger := app.NewLogger(cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown signal received")
		cancel()
	}()

	redisClient := store.NewRedis(cfg.RedisAddr)
	api := upstream.New(cfg.UpstreamURL, cfg.UpstreamTimeout)
	cache := store.NewEventsCache(redisClient.Client, cfg.EventsCacheTTL)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, "eventgate:tasks")
	}

	if err := api.Health(ctx); err != nil {
		logger.Warn("upstream not available at startup, will retry per task", "error", err)
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		logger.Error("queue consume init failed", "error", err)
		os.Exit(1)
	}

	logger.Info("worker started, waiting for messages")
	for msg := range messages {
		if msg.Type != queue.TypeEventsRefresh {
			continue
		}

		events, err := api.ListEvents(ctx)
		if err != nil {
			logger.Warn("events refresh fetch failed", "error", err)
			continue
		}
		if err := cache.Set(ctx, events); err != nil {
			logger.Warn("events cache write failed", "error", err)
			continue
		}
		logger.Info("events cache refreshed", "count", len(events))

		// Refresh tasks are redundant; back off briefly so a burst of cache
		// hits does not hammer the upstream.
		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
		}
	}

	logger.Info("worker stopped")
}
