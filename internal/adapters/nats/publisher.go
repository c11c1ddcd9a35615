package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/campusgo/shuttleplan/internal/core/domain"
)

// Publisher implements ports.EventPublisher using NATS JetStream.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	// Ensure streams exist
	streams := []nats.StreamConfig{
		{
			Name:      "SHUTTLE_PLANS",
			Subjects:  []string{"shuttle.plan.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "SHUTTLE_ARRIVALS",
			Subjects:  []string{"shuttle.arrivals.>"},
			Retention: nats.WorkQueuePolicy,
			MaxAge:    1 * time.Hour,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "SHUTTLE_CATALOG",
			Subjects:  []string{"shuttle.catalog.>"},
			Retention: nats.InterestPolicy,
			MaxAge:    24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

func (p *Publisher) PublishPlanComputed(ctx context.Context, rec *domain.PlanRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = p.js.Publish("shuttle.plan.computed", data)
	return err
}

func (p *Publisher) PublishArrivalSnapshot(ctx context.Context, stopCode string, route domain.RouteCode, candidates []domain.ArrivalCandidate) error {
	payload := struct {
		StopCode   string                    `json:"stop_code"`
		RouteCode  domain.RouteCode          `json:"route_code"`
		Candidates []domain.ArrivalCandidate `json:"candidates"`
	}{stopCode, route, candidates}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = p.js.Publish("shuttle.arrivals."+stopCode, data)
	return err
}

func (p *Publisher) PublishCatalogRefreshed(ctx context.Context, stopCount int) error {
	data, err := json.Marshal(map[string]int{"stop_count": stopCount})
	if err != nil {
		return err
	}
	_, err = p.js.Publish("shuttle.catalog.refreshed", data)
	return err
}

func (p *Publisher) PublishBroadcast(ctx context.Context, data []byte) error {
	return p.conn.Publish("shuttle.updates.broadcast", data)
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

// RawConn creates a plain NATS connection for subscribing (e.g. WebSocket relay).
func RawConn(url string) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
}
