package usecases_test

import (
	"context"
	"errors"
	"testing"

	"github.com/campusgo/shuttleplan/internal/core/domain"
	"github.com/campusgo/shuttleplan/internal/core/usecases"
)

// --- Mock RouteTopology ---

type mockTopology struct {
	stopSequenceFn func(ctx context.Context, route domain.RouteCode) ([]domain.SequencedStop, error)
	calls          int
}

func (m *mockTopology) StopSequence(ctx context.Context, route domain.RouteCode) ([]domain.SequencedStop, error) {
	m.calls++
	if m.stopSequenceFn != nil {
		return m.stopSequenceFn(ctx, route)
	}
	return nil, nil
}

func loopSequence() []domain.SequencedStop {
	return []domain.SequencedStop{
		{Code: "LIB", ShortCode: "LB"},
		{Code: "GYM", ShortCode: "GY"},
		{Code: "SCI", ShortCode: "SC"},
		{Code: "DRM", ShortCode: "DR"},
	}
}

func TestMembershipService_Connects(t *testing.T) {
	topo := &mockTopology{
		stopSequenceFn: func(ctx context.Context, route domain.RouteCode) ([]domain.SequencedStop, error) {
			return loopSequence(), nil
		},
	}

	svc := usecases.NewMembershipService(topo, nil, 120)
	m, err := svc.RouteConnects(context.Background(), domain.RouteA, "LIB", "DRM")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.Connects {
		t.Fatal("expected LIB -> DRM to connect")
	}
	if len(m.IntermediateStops) != 2 || m.IntermediateStops[0] != "GY" || m.IntermediateStops[1] != "SC" {
		t.Errorf("expected intermediates [GY SC], got %v", m.IntermediateStops)
	}
	if m.EstimatedRideSeconds != 3*120 {
		t.Errorf("expected 360s ride over 3 hops, got %d", m.EstimatedRideSeconds)
	}
}

func TestMembershipService_AdjacentStops(t *testing.T) {
	topo := &mockTopology{
		stopSequenceFn: func(ctx context.Context, route domain.RouteCode) ([]domain.SequencedStop, error) {
			return loopSequence(), nil
		},
	}

	svc := usecases.NewMembershipService(topo, nil, 120)
	m, err := svc.RouteConnects(context.Background(), domain.RouteA, "GYM", "SCI")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !m.Connects {
		t.Fatal("expected adjacent stops to connect")
	}
	if len(m.IntermediateStops) != 0 {
		t.Errorf("expected no intermediates, got %v", m.IntermediateStops)
	}
	if m.EstimatedRideSeconds != 120 {
		t.Errorf("expected 120s single-hop ride, got %d", m.EstimatedRideSeconds)
	}
}

// A route that passes the arrival stop before the departure stop does not
// connect, even though the physical loop would eventually get there.
func TestMembershipService_NoWraparound(t *testing.T) {
	topo := &mockTopology{
		stopSequenceFn: func(ctx context.Context, route domain.RouteCode) ([]domain.SequencedStop, error) {
			return loopSequence(), nil
		},
	}

	svc := usecases.NewMembershipService(topo, nil, 120)
	m, err := svc.RouteConnects(context.Background(), domain.RouteA, "SCI", "LIB")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Connects {
		t.Error("expected reversed pair not to connect")
	}
}

func TestMembershipService_SameStop(t *testing.T) {
	svc := usecases.NewMembershipService(&mockTopology{}, nil, 120)
	m, err := svc.RouteConnects(context.Background(), domain.RouteA, "LIB", "LIB")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Connects {
		t.Error("expected identical stops not to connect")
	}
}

func TestMembershipService_UnknownStop(t *testing.T) {
	topo := &mockTopology{
		stopSequenceFn: func(ctx context.Context, route domain.RouteCode) ([]domain.SequencedStop, error) {
			return loopSequence(), nil
		},
	}

	svc := usecases.NewMembershipService(topo, nil, 120)
	m, err := svc.RouteConnects(context.Background(), domain.RouteA, "LIB", "NOPE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Connects {
		t.Error("expected unknown arrival stop not to connect")
	}
}

func TestMembershipService_EmptyCodes(t *testing.T) {
	svc := usecases.NewMembershipService(&mockTopology{}, nil, 120)
	if _, err := svc.RouteConnects(context.Background(), domain.RouteA, "", "DRM"); err == nil {
		t.Fatal("expected error for empty departure code")
	}
	if _, err := svc.RouteConnects(context.Background(), domain.RouteA, "LIB", ""); err == nil {
		t.Fatal("expected error for empty arrival code")
	}
}

func TestMembershipService_TopologyError(t *testing.T) {
	topo := &mockTopology{
		stopSequenceFn: func(ctx context.Context, route domain.RouteCode) ([]domain.SequencedStop, error) {
			return nil, errors.New("topology upstream down")
		},
	}

	svc := usecases.NewMembershipService(topo, nil, 120)
	if _, err := svc.RouteConnects(context.Background(), domain.RouteA, "LIB", "DRM"); err == nil {
		t.Fatal("expected topology error to surface")
	}
}

func TestMembershipService_CachesSequence(t *testing.T) {
	topo := &mockTopology{
		stopSequenceFn: func(ctx context.Context, route domain.RouteCode) ([]domain.SequencedStop, error) {
			return loopSequence(), nil
		},
	}
	cache := newMockCache()

	svc := usecases.NewMembershipService(topo, cache, 120)
	if _, err := svc.RouteConnects(context.Background(), domain.RouteA, "LIB", "DRM"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.RouteConnects(context.Background(), domain.RouteA, "GYM", "SCI"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if topo.calls != 1 {
		t.Errorf("expected exactly 1 topology call with a warm cache, got %d", topo.calls)
	}
}
