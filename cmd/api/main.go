package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/campusgo/shuttleplan/internal/adapters/http"
	natsadapter "github.com/campusgo/shuttleplan/internal/adapters/nats"
	"github.com/campusgo/shuttleplan/internal/adapters/postgres"
	"github.com/campusgo/shuttleplan/internal/adapters/upstream"
	"github.com/campusgo/shuttleplan/internal/adapters/valkey"
	"github.com/campusgo/shuttleplan/internal/core/ports"
	"github.com/campusgo/shuttleplan/internal/core/usecases"
	"github.com/campusgo/shuttleplan/internal/pkg/config"
	"github.com/campusgo/shuttleplan/internal/pkg/logging"
	"github.com/campusgo/shuttleplan/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("shuttleplan-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	// Database
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Cache. The planner survives without it, so a down Valkey only costs
	// upstream round-trips.
	var cacheSvc ports.CacheService
	cache, err := valkey.New(ctx, cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable, shared caching disabled", "error", err)
		cache = nil
	} else {
		defer cache.Close()
		cacheSvc = cache
	}

	// NATS
	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable, event fan-out disabled", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	// Raw NATS connection for WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	}

	// Upstream collaborators share one HTTP client.
	client := upstream.NewClient(cfg.Upstreams)

	// Repos
	planLogRepo := postgres.NewPlanLogRepo(db)
	snapshotRepo := postgres.NewSnapshotRepo(db)

	// Use cases
	catalogSvc := usecases.NewCatalogService(client, snapshotRepo, cacheSvc)
	membershipSvc := usecases.NewMembershipService(client, cacheSvc, cfg.Planner.PerStopSeconds)
	arrivalsSvc := usecases.NewArrivalsService(client, publisher, cfg.Planner.MaxArrivals)
	walkingSvc := usecases.NewWalkingEstimator(client, cfg.Planner.WalkSpeedMps, logging.Component("walking"))
	plannerSvc := usecases.NewPlannerService(
		catalogSvc, membershipSvc, arrivalsSvc, walkingSvc,
		planLogRepo, publisher, cfg.Planner, logging.Component("planner"),
	)

	deps := &http.Dependencies{
		Planner:    plannerSvc,
		Catalog:    catalogSvc,
		Membership: membershipSvc,
		Arrivals:   arrivalsSvc,
		PlanLog:    planLogRepo,
		Snapshots:  snapshotRepo,
		NATS:       natsConn,
		DB:         db,
		Cache:      cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "ShuttlePlan API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173, https://*.campusgo.edu",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}
