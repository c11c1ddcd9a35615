package domain

import (
	"encoding/json"
	"time"
)

// Stop is a named shuttle boarding location from the campus stop catalog.
type Stop struct {
	Code        string   `json:"code"`
	DisplayName string   `json:"display_name"`
	ShortCode   string   `json:"short_code"`
	Location    GeoPoint `json:"location"`
	Distance    *float64 `json:"distance,omitempty"` // computed field, meters
}

// RouteCode identifies one of the fixed shuttle routes. The route set is known
// at build time and is not discovered dynamically.
type RouteCode string

const (
	RouteA RouteCode = "A"
	RouteB RouteCode = "B"
	RouteC RouteCode = "C"
)

// AllRoutes is the fixed route set the planner enumerates over.
var AllRoutes = []RouteCode{RouteA, RouteB, RouteC}

// SequencedStop is one entry in a route's ordered stop sequence.
type SequencedStop struct {
	Code      string `json:"code"`
	ShortCode string `json:"short_code"`
}

// RouteMembership is the result of testing whether a route serves two stops in
// order. Derived per query; never persisted.
type RouteMembership struct {
	Connects             bool     `json:"connects"`
	IntermediateStops    []string `json:"intermediate_stops,omitempty"`
	EstimatedRideSeconds int      `json:"estimated_ride_seconds"`
}

// ArrivalCandidate is one live vehicle arrival estimate at a stop.
// Candidates keep the upstream's order: it encodes dispatch sequence even when
// the ETAs are occasionally non-monotonic.
type ArrivalCandidate struct {
	ETASeconds int    `json:"eta_seconds"`
	VehicleID  string `json:"vehicle_id,omitempty"`
}

// RawRouteArrivals is a per-route arrivals feed entry before normalization.
// Estimate fields arrive as strings, numbers, or a sentinel for "no estimate",
// so they cross the adapter boundary unparsed.
type RawRouteArrivals struct {
	RouteCode  string            `json:"route_code"`
	Estimates  []json.RawMessage `json:"estimates"`
	VehicleIDs []string          `json:"vehicle_ids,omitempty"`
}

// WalkSegment is a walking leg between a point and a stop. Either authoritative
// (from the directions service, with a polyline) or heuristic (straight-line
// distance over a constant speed, no polyline).
type WalkSegment struct {
	DistanceMeters  float64 `json:"distance_meters"`
	DurationSeconds int     `json:"duration_seconds"`
	Polyline        string  `json:"polyline,omitempty"`
	Heuristic       bool    `json:"heuristic,omitempty"`
}

// Itinerary is one fully timed walk→wait→ride→walk journey via a specific
// shuttle route and stop pair. Immutable once synthesized.
type Itinerary struct {
	RouteCode         RouteCode          `json:"route_code"`
	DepartureStop     Stop               `json:"departure_stop"`
	ArrivalStop       Stop               `json:"arrival_stop"`
	IntermediateStops []string           `json:"intermediate_stops,omitempty"`
	WalkToStop        WalkSegment        `json:"walk_to_stop"`
	WaitSeconds       int                `json:"wait_seconds"`
	RideSeconds       int                `json:"ride_seconds"`
	WalkFromStop      WalkSegment        `json:"walk_from_stop"`
	TotalSeconds      int                `json:"total_seconds"`
	Catchable         bool               `json:"catchable"`
	SelectedVehicleID string             `json:"selected_vehicle_id,omitempty"`
	AllCandidates     []ArrivalCandidate `json:"all_candidates"`
}

// ItineraryComparison is the terminal output of one planning request: all
// candidate itineraries in time order, the pick, and the verdict against an
// externally computed baseline duration.
type ItineraryComparison struct {
	Candidates        []Itinerary `json:"candidates"`
	Best              *Itinerary  `json:"best,omitempty"`
	BaselineSeconds   *int        `json:"baseline_seconds,omitempty"`
	RecommendInternal bool        `json:"recommend_internal"`
}

// PlanRecord captures one comparison outcome for the plan log.
type PlanRecord struct {
	ID                string    `json:"id,omitempty"`
	Origin            GeoPoint  `json:"origin"`
	Destination       GeoPoint  `json:"destination"`
	CandidateCount    int       `json:"candidate_count"`
	BestTotalSeconds  *int      `json:"best_total_seconds,omitempty"`
	BestRouteCode     string    `json:"best_route_code,omitempty"`
	BestCatchable     bool      `json:"best_catchable"`
	BaselineSeconds   *int      `json:"baseline_seconds,omitempty"`
	RecommendInternal bool      `json:"recommend_internal"`
	CreatedAt         time.Time `json:"created_at"`
}
