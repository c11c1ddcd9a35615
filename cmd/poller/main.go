package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	natsadapter "github.com/campusgo/shuttleplan/internal/adapters/nats"
	"github.com/campusgo/shuttleplan/internal/adapters/upstream"
	"github.com/campusgo/shuttleplan/internal/core/domain"
	"github.com/campusgo/shuttleplan/internal/core/usecases"
	"github.com/campusgo/shuttleplan/internal/pkg/config"
)

// The poller walks the whole catalog on a fixed cadence and asks the arrivals
// feed about every (stop, route) pair. ArrivalsService publishes each non-empty
// snapshot to NATS, which feeds the WebSocket relay, so dashboard clients see
// live ETAs without hitting the arrivals upstream themselves.
func main() {
	cfg, err := config.Load("shuttleplan-poller")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// NATS
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer pub.Close()

	client := upstream.NewClient(cfg.Upstreams)
	arrivals := usecases.NewArrivalsService(client, pub, cfg.Planner.MaxArrivals)

	pollInterval := 30 * time.Second
	if raw := os.Getenv("SHUTTLEPLAN_POLL_INTERVAL"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			pollInterval = d
		}
	}

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	log.Printf("ShuttlePlan arrivals poller, polling every %s", pollInterval)

	// Signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Run once immediately
	pollAll(ctx, client, arrivals)

	for {
		select {
		case <-ticker.C:
			pollAll(ctx, client, arrivals)
		case <-ctx.Done():
			return
		case sig := <-quit:
			log.Printf("received signal %v, shutting down arrivals poller", sig)
			cancel()
			// Give in-flight polls time to finish
			time.Sleep(2 * time.Second)
			return
		}
	}
}

// pollAll queries every stop on every route, bounded so a large catalog does
// not stampede the arrivals upstream.
func pollAll(ctx context.Context, catalog *upstream.Client, arrivals *usecases.ArrivalsService) {
	stops, err := catalog.ListStops(ctx)
	if err != nil {
		log.Printf("list stops: %v", err)
		return
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, 8) // max 8 concurrent fetches

	polled := 0
	for _, s := range stops {
		for _, route := range domain.AllRoutes {
			wg.Add(1)
			go func(stopCode string, route domain.RouteCode) {
				defer wg.Done()
				sem <- struct{}{}
				defer func() { <-sem }()

				callCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
				defer cancel()

				if _, err := arrivals.ArrivalsFor(callCtx, stopCode, route); err != nil {
					if ctx.Err() == nil {
						log.Printf("[%s/%s] arrivals: %v", stopCode, route, err)
					}
				}
			}(s.Code, route)
			polled++
		}
	}

	wg.Wait()
	log.Printf("polled %d stop/route pairs across %d stops", polled, len(stops))
}
