package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/campusgo/shuttleplan/internal/pkg/config"
	"github.com/campusgo/shuttleplan/internal/pkg/metrics"
)

// Client is the shared HTTP client for all upstream collaborators. Every call
// carries the configured timeout so a slow upstream degrades one candidate
// rather than stalling the whole planning fan-out.
type Client struct {
	http          *http.Client
	catalogURL    string
	topologyURL   string
	arrivalsURL   string
	directionsURL string
}

// NewClient builds the shared upstream client.
func NewClient(cfg config.UpstreamsConfig) *Client {
	return &Client{
		http:          &http.Client{Timeout: cfg.Timeout()},
		catalogURL:    cfg.CatalogURL,
		topologyURL:   cfg.TopologyURL,
		arrivalsURL:   cfg.ArrivalsURL,
		directionsURL: cfg.DirectionsURL,
	}
}

func (c *Client) getJSON(ctx context.Context, service, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(service, req, out)
}

func (c *Client) postJSON(ctx context.Context, service, url string, body, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(service, req, out)
}

func (c *Client) do(service string, req *http.Request, out any) error {
	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.UpstreamCallDuration.WithLabelValues(service).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UpstreamCalls.WithLabelValues(service, "error").Inc()
		return fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.UpstreamCalls.WithLabelValues(service, "error").Inc()
		return fmt.Errorf("HTTP %d for %s", resp.StatusCode, req.URL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.UpstreamCalls.WithLabelValues(service, "error").Inc()
		return fmt.Errorf("read body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		metrics.UpstreamCalls.WithLabelValues(service, "error").Inc()
		return fmt.Errorf("unmarshal %s response: %w", service, err)
	}

	metrics.UpstreamCalls.WithLabelValues(service, "ok").Inc()
	return nil
}
