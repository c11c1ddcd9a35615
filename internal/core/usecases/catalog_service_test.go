package usecases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/campusgo/shuttleplan/internal/core/domain"
	"github.com/campusgo/shuttleplan/internal/core/usecases"
)

// --- Mock StopCatalog ---

type mockStopCatalog struct {
	listStopsFn func(ctx context.Context) ([]domain.Stop, error)
	calls       int
}

func (m *mockStopCatalog) ListStops(ctx context.Context) ([]domain.Stop, error) {
	m.calls++
	if m.listStopsFn != nil {
		return m.listStopsFn(ctx)
	}
	return nil, nil
}

// --- Mock StopSnapshotRepository ---

type mockSnapshotRepo struct {
	listFn func(ctx context.Context) ([]domain.Stop, error)
}

func (m *mockSnapshotRepo) Replace(ctx context.Context, stops []domain.Stop) error { return nil }

func (m *mockSnapshotRepo) List(ctx context.Context) ([]domain.Stop, error) {
	if m.listFn != nil {
		return m.listFn(ctx)
	}
	return nil, nil
}

func (m *mockSnapshotRepo) LastRefreshedAt(ctx context.Context) (time.Time, error) {
	return time.Time{}, nil
}

func (m *mockSnapshotRepo) Counts(ctx context.Context) (int, int, error) { return 0, 0, nil }

// --- Mock CacheService ---

type mockCacheService struct {
	entries map[string][]byte
}

func newMockCache() *mockCacheService {
	return &mockCacheService{entries: make(map[string][]byte)}
}

func (m *mockCacheService) Get(ctx context.Context, key string) ([]byte, error) {
	if data, ok := m.entries[key]; ok {
		return data, nil
	}
	return nil, errors.New("cache miss")
}

func (m *mockCacheService) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.entries[key] = value
	return nil
}

func (m *mockCacheService) Delete(ctx context.Context, key string) error {
	delete(m.entries, key)
	return nil
}

func campusStops() []domain.Stop {
	// A tight cluster around (40.0, -3.0); offsets chosen so distances from
	// the cluster center land roughly at 100m, 300m, 700m, and 2km.
	return []domain.Stop{
		{Code: "LIB", DisplayName: "Library", ShortCode: "LB", Location: domain.GeoPoint{Lat: 40.0009, Lon: -3.0}},
		{Code: "GYM", DisplayName: "Gymnasium", ShortCode: "GY", Location: domain.GeoPoint{Lat: 40.0027, Lon: -3.0}},
		{Code: "SCI", DisplayName: "Science Hall", ShortCode: "SC", Location: domain.GeoPoint{Lat: 40.0063, Lon: -3.0}},
		{Code: "FAR", DisplayName: "Far Lot", ShortCode: "FL", Location: domain.GeoPoint{Lat: 40.018, Lon: -3.0}},
	}
}

func TestCatalogService_NearestStops(t *testing.T) {
	catalog := &mockStopCatalog{
		listStopsFn: func(ctx context.Context) ([]domain.Stop, error) {
			return campusStops(), nil
		},
	}

	svc := usecases.NewCatalogService(catalog, nil, nil)
	stops, err := svc.NearestStops(context.Background(), domain.GeoPoint{Lat: 40.0, Lon: -3.0}, 800, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stops) != 3 {
		t.Fatalf("expected 3 stops within 800m, got %d", len(stops))
	}
	if stops[0].Code != "LIB" || stops[1].Code != "GYM" || stops[2].Code != "SCI" {
		t.Errorf("expected LIB, GYM, SCI ascending by distance, got %s, %s, %s",
			stops[0].Code, stops[1].Code, stops[2].Code)
	}
	if stops[0].Distance == nil || *stops[0].Distance <= 0 {
		t.Error("expected nearest stop to carry a positive computed distance")
	}
	for i := 1; i < len(stops); i++ {
		if *stops[i].Distance < *stops[i-1].Distance {
			t.Errorf("stops not ascending by distance at index %d", i)
		}
	}
}

func TestCatalogService_NearestStops_Truncates(t *testing.T) {
	catalog := &mockStopCatalog{
		listStopsFn: func(ctx context.Context) ([]domain.Stop, error) {
			return campusStops(), nil
		},
	}

	svc := usecases.NewCatalogService(catalog, nil, nil)
	stops, err := svc.NearestStops(context.Background(), domain.GeoPoint{Lat: 40.0, Lon: -3.0}, 800, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stops) != 2 {
		t.Fatalf("expected truncation to 2 stops, got %d", len(stops))
	}
}

func TestCatalogService_NearestStops_InvalidPoint(t *testing.T) {
	svc := usecases.NewCatalogService(&mockStopCatalog{}, nil, nil)
	if _, err := svc.NearestStops(context.Background(), domain.GeoPoint{Lat: 99, Lon: 0}, 800, 3); err == nil {
		t.Fatal("expected error for out-of-range reference point")
	}
	if _, err := svc.NearestStops(context.Background(), domain.GeoPoint{}, 800, 3); err == nil {
		t.Fatal("expected error for zero-valued reference point")
	}
}

func TestCatalogService_ExactStop(t *testing.T) {
	catalog := &mockStopCatalog{
		listStopsFn: func(ctx context.Context) ([]domain.Stop, error) {
			return campusStops(), nil
		},
	}

	svc := usecases.NewCatalogService(catalog, nil, nil)

	stop, err := svc.ExactStop(context.Background(), "GYM")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stop == nil || stop.DisplayName != "Gymnasium" {
		t.Fatalf("expected Gymnasium, got %+v", stop)
	}

	stop, err = svc.ExactStop(context.Background(), "NOPE")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stop != nil {
		t.Errorf("expected nil for unknown code, got %+v", stop)
	}
}

func TestCatalogService_SnapshotFallback(t *testing.T) {
	catalog := &mockStopCatalog{
		listStopsFn: func(ctx context.Context) ([]domain.Stop, error) {
			return nil, errors.New("catalog upstream down")
		},
	}
	snapshots := &mockSnapshotRepo{
		listFn: func(ctx context.Context) ([]domain.Stop, error) {
			return campusStops(), nil
		},
	}

	svc := usecases.NewCatalogService(catalog, snapshots, nil)
	stops, err := svc.NearestStops(context.Background(), domain.GeoPoint{Lat: 40.0, Lon: -3.0}, 800, 3)
	if err != nil {
		t.Fatalf("expected snapshot fallback, got error: %v", err)
	}
	if len(stops) != 3 {
		t.Fatalf("expected 3 stops from snapshot, got %d", len(stops))
	}
}

func TestCatalogService_UpstreamAndSnapshotDown(t *testing.T) {
	catalog := &mockStopCatalog{
		listStopsFn: func(ctx context.Context) ([]domain.Stop, error) {
			return nil, errors.New("catalog upstream down")
		},
	}
	snapshots := &mockSnapshotRepo{
		listFn: func(ctx context.Context) ([]domain.Stop, error) {
			return nil, errors.New("db down")
		},
	}

	svc := usecases.NewCatalogService(catalog, snapshots, nil)
	if _, err := svc.NearestStops(context.Background(), domain.GeoPoint{Lat: 40.0, Lon: -3.0}, 800, 3); err == nil {
		t.Fatal("expected error when both catalog and snapshot are unavailable")
	}
}

func TestCatalogService_CachesCatalog(t *testing.T) {
	catalog := &mockStopCatalog{
		listStopsFn: func(ctx context.Context) ([]domain.Stop, error) {
			return campusStops(), nil
		},
	}
	cache := newMockCache()

	svc := usecases.NewCatalogService(catalog, nil, cache)
	point := domain.GeoPoint{Lat: 40.0, Lon: -3.0}

	if _, err := svc.NearestStops(context.Background(), point, 800, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := svc.NearestStops(context.Background(), point, 800, 3); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if catalog.calls != 1 {
		t.Errorf("expected exactly 1 upstream call with a warm cache, got %d", catalog.calls)
	}
}
