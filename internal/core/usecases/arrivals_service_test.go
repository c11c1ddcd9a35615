package usecases_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/campusgo/shuttleplan/internal/core/domain"
	"github.com/campusgo/shuttleplan/internal/core/usecases"
)

// --- Mock ArrivalsFeed ---

type mockArrivalsFeed struct {
	entriesFn func(ctx context.Context, stopCode string) ([]domain.RawRouteArrivals, error)
}

func (m *mockArrivalsFeed) EntriesForStop(ctx context.Context, stopCode string) ([]domain.RawRouteArrivals, error) {
	if m.entriesFn != nil {
		return m.entriesFn(ctx, stopCode)
	}
	return nil, nil
}

// --- Mock EventPublisher ---

type mockEventPublisher struct {
	planComputed     int
	arrivalSnapshots int
}

func (m *mockEventPublisher) PublishPlanComputed(ctx context.Context, rec *domain.PlanRecord) error {
	m.planComputed++
	return nil
}

func (m *mockEventPublisher) PublishArrivalSnapshot(ctx context.Context, stopCode string, route domain.RouteCode, candidates []domain.ArrivalCandidate) error {
	m.arrivalSnapshots++
	return nil
}

func (m *mockEventPublisher) PublishCatalogRefreshed(ctx context.Context, stopCount int) error {
	return nil
}

func (m *mockEventPublisher) PublishBroadcast(ctx context.Context, data []byte) error { return nil }

func rawFeed(estimates ...string) []domain.RawRouteArrivals {
	raws := make([]json.RawMessage, len(estimates))
	for i, e := range estimates {
		raws[i] = json.RawMessage(e)
	}
	return []domain.RawRouteArrivals{
		{RouteCode: "A", Estimates: raws, VehicleIDs: []string{"bus-1", "bus-2"}},
	}
}

func TestArrivalsService_MixedEstimateShapes(t *testing.T) {
	// The feed mixes quoted strings and bare numbers for the same field.
	feed := &mockArrivalsFeed{
		entriesFn: func(ctx context.Context, stopCode string) ([]domain.RawRouteArrivals, error) {
			return rawFeed(`"5"`, `12`), nil
		},
	}

	svc := usecases.NewArrivalsService(feed, nil, 2)
	cands, err := svc.ArrivalsFor(context.Background(), "LIB", domain.RouteA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(cands))
	}
	if cands[0].ETASeconds != 300 || cands[1].ETASeconds != 720 {
		t.Errorf("expected 300s and 720s, got %d and %d", cands[0].ETASeconds, cands[1].ETASeconds)
	}
	if cands[0].VehicleID != "bus-1" || cands[1].VehicleID != "bus-2" {
		t.Errorf("expected vehicle IDs by position, got %q and %q", cands[0].VehicleID, cands[1].VehicleID)
	}
}

func TestArrivalsService_DropsAbsentAndNegative(t *testing.T) {
	cases := []struct {
		name      string
		estimates []string
		want      int
	}{
		{"null sentinel", []string{`null`, `7`}, 1},
		{"negative number", []string{`-1`, `7`}, 1},
		{"negative string", []string{`"-3"`, `7`}, 1},
		{"garbage string", []string{`"soon"`, `7`}, 1},
		{"all absent", []string{`null`, `null`}, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			feed := &mockArrivalsFeed{
				entriesFn: func(ctx context.Context, stopCode string) ([]domain.RawRouteArrivals, error) {
					return rawFeed(tc.estimates...), nil
				},
			}
			svc := usecases.NewArrivalsService(feed, nil, 2)
			cands, err := svc.ArrivalsFor(context.Background(), "LIB", domain.RouteA)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(cands) != tc.want {
				t.Errorf("expected %d candidates, got %d", tc.want, len(cands))
			}
			for _, c := range cands {
				if c.ETASeconds < 0 {
					t.Errorf("negative ETA leaked through normalization: %d", c.ETASeconds)
				}
			}
		})
	}
}

// Vehicle zero minutes away is arriving now; that is a real estimate, not an
// absent one.
func TestArrivalsService_ZeroMinutesIsPresent(t *testing.T) {
	feed := &mockArrivalsFeed{
		entriesFn: func(ctx context.Context, stopCode string) ([]domain.RawRouteArrivals, error) {
			return rawFeed(`0`, `"0"`), nil
		},
	}

	svc := usecases.NewArrivalsService(feed, nil, 2)
	cands, err := svc.ArrivalsFor(context.Background(), "LIB", domain.RouteA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("expected both zero estimates kept, got %d", len(cands))
	}
	if cands[0].ETASeconds != 0 || cands[1].ETASeconds != 0 {
		t.Errorf("expected 0s ETAs, got %d and %d", cands[0].ETASeconds, cands[1].ETASeconds)
	}
}

// The feed occasionally reports a later vehicle before an earlier one. The
// order is kept as dispatched, never re-sorted by ETA.
func TestArrivalsService_PreservesUpstreamOrder(t *testing.T) {
	feed := &mockArrivalsFeed{
		entriesFn: func(ctx context.Context, stopCode string) ([]domain.RawRouteArrivals, error) {
			return rawFeed(`15`, `4`), nil
		},
	}

	svc := usecases.NewArrivalsService(feed, nil, 2)
	cands, err := svc.ArrivalsFor(context.Background(), "LIB", domain.RouteA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cands) != 2 || cands[0].ETASeconds != 900 || cands[1].ETASeconds != 240 {
		t.Fatalf("expected upstream order [900 240], got %+v", cands)
	}
}

func TestArrivalsService_RouteMatchIsCaseInsensitive(t *testing.T) {
	feed := &mockArrivalsFeed{
		entriesFn: func(ctx context.Context, stopCode string) ([]domain.RawRouteArrivals, error) {
			return []domain.RawRouteArrivals{
				{RouteCode: "a", Estimates: []json.RawMessage{json.RawMessage(`3`)}},
			}, nil
		},
	}

	svc := usecases.NewArrivalsService(feed, nil, 2)
	cands, err := svc.ArrivalsFor(context.Background(), "LIB", domain.RouteA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cands) != 1 {
		t.Fatalf("expected lowercase route entry to match, got %d candidates", len(cands))
	}
}

func TestArrivalsService_OtherRoutesIgnored(t *testing.T) {
	feed := &mockArrivalsFeed{
		entriesFn: func(ctx context.Context, stopCode string) ([]domain.RawRouteArrivals, error) {
			return []domain.RawRouteArrivals{
				{RouteCode: "B", Estimates: []json.RawMessage{json.RawMessage(`2`)}},
				{RouteCode: "A", Estimates: []json.RawMessage{json.RawMessage(`9`)}},
			}, nil
		},
	}

	svc := usecases.NewArrivalsService(feed, nil, 2)
	cands, err := svc.ArrivalsFor(context.Background(), "LIB", domain.RouteA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cands) != 1 || cands[0].ETASeconds != 540 {
		t.Fatalf("expected only route A's 540s candidate, got %+v", cands)
	}
}

func TestArrivalsService_CapsCandidates(t *testing.T) {
	feed := &mockArrivalsFeed{
		entriesFn: func(ctx context.Context, stopCode string) ([]domain.RawRouteArrivals, error) {
			return []domain.RawRouteArrivals{
				{RouteCode: "A", Estimates: []json.RawMessage{
					json.RawMessage(`1`), json.RawMessage(`2`), json.RawMessage(`3`),
				}},
			}, nil
		},
	}

	svc := usecases.NewArrivalsService(feed, nil, 2)
	cands, err := svc.ArrivalsFor(context.Background(), "LIB", domain.RouteA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cands) != 2 {
		t.Fatalf("expected cap at 2 candidates, got %d", len(cands))
	}
}

func TestArrivalsService_FeedError(t *testing.T) {
	feed := &mockArrivalsFeed{
		entriesFn: func(ctx context.Context, stopCode string) ([]domain.RawRouteArrivals, error) {
			return nil, errors.New("feed down")
		},
	}

	svc := usecases.NewArrivalsService(feed, nil, 2)
	if _, err := svc.ArrivalsFor(context.Background(), "LIB", domain.RouteA); err == nil {
		t.Fatal("expected feed error to surface")
	}
}

func TestArrivalsService_PublishesSnapshot(t *testing.T) {
	feed := &mockArrivalsFeed{
		entriesFn: func(ctx context.Context, stopCode string) ([]domain.RawRouteArrivals, error) {
			return rawFeed(`5`), nil
		},
	}
	pub := &mockEventPublisher{}

	svc := usecases.NewArrivalsService(feed, pub, 2)
	if _, err := svc.ArrivalsFor(context.Background(), "LIB", domain.RouteA); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pub.arrivalSnapshots != 1 {
		t.Errorf("expected 1 arrival snapshot published, got %d", pub.arrivalSnapshots)
	}
}
