package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"

	natsadapter "github.com/campusgo/shuttleplan/internal/adapters/nats"
	"github.com/campusgo/shuttleplan/internal/adapters/postgres"
	"github.com/campusgo/shuttleplan/internal/adapters/upstream"
	"github.com/campusgo/shuttleplan/internal/adapters/valkey"
	"github.com/campusgo/shuttleplan/internal/core/ports"
	"github.com/campusgo/shuttleplan/internal/pkg/config"
	"github.com/campusgo/shuttleplan/internal/pkg/logging"
	"github.com/campusgo/shuttleplan/internal/workflows"
)

func main() {
	cfg, err := config.Load("shuttleplan-refresher")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx := context.Background()

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	var cacheSvc ports.CacheService
	cache, err := valkey.New(ctx, cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable, cache invalidation skipped", "error", err)
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, refresh events skipped", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	// Connect to Temporal
	temporalAddr := os.Getenv("TEMPORAL_ADDR")
	if temporalAddr == "" {
		temporalAddr = "localhost:7233"
	}
	c, err := client.Dial(client.Options{
		HostPort: temporalAddr,
	})
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, "catalog-refresh-queue", worker.Options{})

	// Register workflow & activities
	w.RegisterWorkflow(workflows.CatalogRefreshWorkflow)
	w.RegisterActivity(&workflows.RefreshActivities{
		Catalog:   upstream.NewClient(cfg.Upstreams),
		Snapshots: postgres.NewSnapshotRepo(db),
		Cache:     cacheSvc,
		Publisher: publisher,
	})

	// Keep one cron execution alive; Temporal dedupes on the workflow ID if
	// the worker restarts.
	_, err = c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:           "catalog-refresh-cron",
		TaskQueue:    "catalog-refresh-queue",
		CronSchedule: "*/30 * * * *",
		WorkflowExecutionErrorWhenAlreadyStarted: false,
		WorkflowRunTimeout:                       5 * time.Minute,
	}, workflows.CatalogRefreshWorkflow)
	if err != nil {
		slog.Warn("start refresh cron", "error", err)
	}

	log.Println("catalog refresher worker started")
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}
