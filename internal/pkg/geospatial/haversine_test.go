package geospatial

import (
	"math"
	"testing"
)

func TestHaversine_ZeroForSamePoint(t *testing.T) {
	d := Haversine(40.4433, -79.9436, 40.4433, -79.9436)
	if d != 0 {
		t.Errorf("expected 0 for identical points, got %f", d)
	}
}

func TestHaversine_Symmetric(t *testing.T) {
	a := Haversine(40.4433, -79.9436, 40.4515, -79.9334)
	b := Haversine(40.4515, -79.9334, 40.4433, -79.9436)
	if math.Abs(a-b) > 1e-9 {
		t.Errorf("expected symmetric distance, got %f vs %f", a, b)
	}
}

func TestHaversine_KnownDistance(t *testing.T) {
	// Roughly 1.2 km across a campus; allow 5% slack for the spherical model.
	d := Haversine(40.4433, -79.9436, 40.4515, -79.9334)
	if d < 1100 || d > 1400 {
		t.Errorf("expected ~1.2km, got %fm", d)
	}
}

func TestWalkDuration_CeilAndMonotonic(t *testing.T) {
	if got := WalkDuration(400, 1.4); got != 286 {
		t.Errorf("expected ceil(400/1.4)=286, got %d", got)
	}
	if got := WalkDuration(200, 1.4); got != 143 {
		t.Errorf("expected ceil(200/1.4)=143, got %d", got)
	}

	prev := 0
	for m := 0.0; m <= 2000; m += 50 {
		d := WalkDuration(m, 1.4)
		if d < prev {
			t.Fatalf("duration decreased at %fm: %d < %d", m, d, prev)
		}
		prev = d
	}
}

func TestWalkDuration_NonPositiveInputs(t *testing.T) {
	if got := WalkDuration(0, 1.4); got != 0 {
		t.Errorf("expected 0 for zero distance, got %d", got)
	}
	if got := WalkDuration(100, 0); got != 0 {
		t.Errorf("expected 0 for zero speed, got %d", got)
	}
}
