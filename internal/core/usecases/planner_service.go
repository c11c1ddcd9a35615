package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/campusgo/shuttleplan/internal/core/domain"
	"github.com/campusgo/shuttleplan/internal/core/ports"
	"github.com/campusgo/shuttleplan/internal/pkg/config"
	"github.com/campusgo/shuttleplan/internal/pkg/metrics"
)

// PlannerService runs the full itinerary fan-out: nearest stops on both
// sides, route membership per (route, stop pair), live arrivals, walking
// legs, then synthesis and ranking. Upstream failures shrink the candidate
// set; the only caller error is an invalid reference point.
type PlannerService struct {
	stops      *CatalogService
	membership *MembershipService
	arrivals   *ArrivalsService
	walking    *WalkingEstimator
	planLog    ports.PlanLogRepository
	publisher  ports.EventPublisher
	cfg        config.PlannerConfig
	log        *slog.Logger
}

// NewPlannerService creates a new PlannerService. planLog and publisher may be
// nil; persistence and event fan-out are then skipped.
func NewPlannerService(
	stops *CatalogService,
	membership *MembershipService,
	arrivals *ArrivalsService,
	walking *WalkingEstimator,
	planLog ports.PlanLogRepository,
	publisher ports.EventPublisher,
	cfg config.PlannerConfig,
	log *slog.Logger,
) *PlannerService {
	if log == nil {
		log = slog.Default()
	}
	return &PlannerService{
		stops:      stops,
		membership: membership,
		arrivals:   arrivals,
		walking:    walking,
		planLog:    planLog,
		publisher:  publisher,
		cfg:        cfg,
		log:        log,
	}
}

// candidatePair is one (route, departure stop, arrival stop) combination the
// fan-out evaluates independently.
type candidatePair struct {
	route domain.RouteCode
	dep   domain.Stop
	arr   domain.Stop
}

// FindItineraries returns every viable itinerary from origin to destination,
// ascending by total duration. An empty slice means no shuttle option exists
// right now; that is a valid answer, not an error.
func (s *PlannerService) FindItineraries(ctx context.Context, origin, destination domain.GeoPoint) ([]domain.Itinerary, error) {
	if !origin.Valid() {
		return nil, fmt.Errorf("invalid origin %+v", origin)
	}
	if !destination.Valid() {
		return nil, fmt.Errorf("invalid destination %+v", destination)
	}

	start := time.Now()
	defer func() { metrics.PlanDuration.Observe(time.Since(start).Seconds()) }()

	originStops, destStops := s.nearestBothSides(ctx, origin, destination)
	if len(originStops) == 0 || len(destStops) == 0 {
		return []domain.Itinerary{}, nil
	}

	var pairs []candidatePair
	for _, route := range domain.AllRoutes {
		for _, dep := range originStops {
			for _, arr := range destStops {
				pairs = append(pairs, candidatePair{route: route, dep: dep, arr: arr})
			}
		}
	}

	var (
		mu          sync.Mutex
		itineraries []domain.Itinerary
		wg          sync.WaitGroup
	)
	sem := make(chan struct{}, s.cfg.FanoutLimit)

	for _, pair := range pairs {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(p candidatePair) {
			defer wg.Done()
			defer func() { <-sem }()

			it := s.evaluate(ctx, origin, destination, p)
			if it == nil {
				return
			}
			mu.Lock()
			itineraries = append(itineraries, *it)
			mu.Unlock()
		}(pair)
	}
	wg.Wait()

	sortItineraries(itineraries)
	metrics.ItinerariesFound.Observe(float64(len(itineraries)))

	if itineraries == nil {
		itineraries = []domain.Itinerary{}
	}
	return itineraries, nil
}

// nearestBothSides resolves candidate stops around the origin and destination
// concurrently. Either side failing is logged and treated as empty.
func (s *PlannerService) nearestBothSides(ctx context.Context, origin, destination domain.GeoPoint) ([]domain.Stop, []domain.Stop) {
	var (
		wg          sync.WaitGroup
		originStops []domain.Stop
		destStops   []domain.Stop
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		stops, err := s.stops.NearestStops(ctx, origin, s.cfg.OriginRadiusMeters, s.cfg.MaxStopsPerSide)
		if err != nil {
			s.log.Warn("origin stop lookup failed", "error", err)
			return
		}
		originStops = stops
	}()
	go func() {
		defer wg.Done()
		stops, err := s.stops.NearestStops(ctx, destination, s.cfg.DestinationRadiusMeters, s.cfg.MaxStopsPerSide)
		if err != nil {
			s.log.Warn("destination stop lookup failed", "error", err)
			return
		}
		destStops = stops
	}()
	wg.Wait()

	return originStops, destStops
}

// evaluate builds one itinerary for a candidate pair, or nil when the pair is
// not viable. Every drop increments a reason-labelled counter so the shape of
// fan-out attrition stays observable.
func (s *PlannerService) evaluate(ctx context.Context, origin, destination domain.GeoPoint, p candidatePair) *domain.Itinerary {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.CandidateTimeout())
	defer cancel()

	membership, err := s.membership.RouteConnects(ctx, p.route, p.dep.Code, p.arr.Code)
	if err != nil {
		metrics.CandidatesDropped.WithLabelValues("topology_error").Inc()
		s.log.Warn("membership check failed", "route", p.route, "departure", p.dep.Code, "arrival", p.arr.Code, "error", err)
		return nil
	}
	if !membership.Connects {
		metrics.CandidatesDropped.WithLabelValues("not_connected").Inc()
		return nil
	}

	candidates, err := s.arrivals.ArrivalsFor(ctx, p.dep.Code, p.route)
	if err != nil {
		metrics.CandidatesDropped.WithLabelValues("arrivals_error").Inc()
		s.log.Warn("arrivals fetch failed", "route", p.route, "stop", p.dep.Code, "error", err)
		return nil
	}
	if len(candidates) == 0 {
		metrics.CandidatesDropped.WithLabelValues("no_arrivals").Inc()
		return nil
	}

	walkTo := s.walking.WalkingSegment(ctx, origin, p.dep.Location)
	walkFrom := s.walking.WalkingSegment(ctx, p.arr.Location, destination)

	if ctx.Err() != nil {
		metrics.CandidatesDropped.WithLabelValues("timeout").Inc()
		return nil
	}

	return Synthesize(p.route, p.dep, p.arr, membership, walkTo, walkFrom, candidates, s.cfg.CatchBufferSeconds)
}

// Synthesize assembles an itinerary from its resolved parts. The selected
// vehicle is the first one reachable on foot with the safety buffer; when no
// vehicle qualifies, the last candidate is kept and flagged not catchable so
// the caller still sees what was just missed. Returns nil without candidates.
//
// The timing law: waiting starts when the walk does, so walk-to-stop and wait
// overlap rather than add.
func Synthesize(
	route domain.RouteCode,
	departureStop, arrivalStop domain.Stop,
	membership domain.RouteMembership,
	walkTo, walkFrom domain.WalkSegment,
	candidates []domain.ArrivalCandidate,
	catchBufferSeconds int,
) *domain.Itinerary {
	if len(candidates) == 0 {
		return nil
	}

	selected := candidates[len(candidates)-1]
	catchable := false
	for _, c := range candidates {
		if walkTo.DurationSeconds+catchBufferSeconds <= c.ETASeconds {
			selected = c
			catchable = true
			break
		}
	}

	wait := selected.ETASeconds
	preBoarding := walkTo.DurationSeconds
	if wait > preBoarding {
		preBoarding = wait
	}

	return &domain.Itinerary{
		RouteCode:         route,
		DepartureStop:     departureStop,
		ArrivalStop:       arrivalStop,
		IntermediateStops: membership.IntermediateStops,
		WalkToStop:        walkTo,
		WaitSeconds:       wait,
		RideSeconds:       membership.EstimatedRideSeconds,
		WalkFromStop:      walkFrom,
		TotalSeconds:      preBoarding + membership.EstimatedRideSeconds + walkFrom.DurationSeconds,
		Catchable:         catchable,
		SelectedVehicleID: selected.VehicleID,
		AllCandidates:     candidates,
	}
}

// sortItineraries orders by total duration with a full tie-break chain, so
// identical inputs always produce identical orderings regardless of goroutine
// completion order.
func sortItineraries(items []domain.Itinerary) {
	sort.Slice(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if a.TotalSeconds != b.TotalSeconds {
			return a.TotalSeconds < b.TotalSeconds
		}
		if a.RouteCode != b.RouteCode {
			return a.RouteCode < b.RouteCode
		}
		if a.DepartureStop.Code != b.DepartureStop.Code {
			return a.DepartureStop.Code < b.DepartureStop.Code
		}
		return a.ArrivalStop.Code < b.ArrivalStop.Code
	})
}

// Compare plans itineraries and weighs the best one against an externally
// computed baseline duration, typically a point-to-point driving estimate.
func (s *PlannerService) Compare(ctx context.Context, origin, destination domain.GeoPoint, baselineSeconds *int) (*domain.ItineraryComparison, error) {
	itineraries, err := s.FindItineraries(ctx, origin, destination)
	if err != nil {
		return nil, err
	}

	var best *domain.Itinerary
	for i := range itineraries {
		if itineraries[i].Catchable {
			best = &itineraries[i]
			break
		}
	}
	if best == nil && len(itineraries) > 0 {
		best = &itineraries[0]
	}

	recommend := false
	if best != nil {
		if baselineSeconds == nil {
			recommend = true
		} else {
			recommend = best.TotalSeconds <= *baselineSeconds+s.cfg.BaselineToleranceSecs
		}
	}

	metrics.PlansComputed.WithLabelValues(strconv.FormatBool(recommend)).Inc()

	comparison := &domain.ItineraryComparison{
		Candidates:        itineraries,
		Best:              best,
		BaselineSeconds:   baselineSeconds,
		RecommendInternal: recommend,
	}
	s.recordPlan(ctx, origin, destination, comparison)

	return comparison, nil
}

// recordPlan logs the outcome to the plan log and the event bus. Both are
// best effort; a planning response never fails on observability plumbing.
func (s *PlannerService) recordPlan(ctx context.Context, origin, destination domain.GeoPoint, cmp *domain.ItineraryComparison) {
	rec := &domain.PlanRecord{
		Origin:            origin,
		Destination:       destination,
		CandidateCount:    len(cmp.Candidates),
		BaselineSeconds:   cmp.BaselineSeconds,
		RecommendInternal: cmp.RecommendInternal,
		CreatedAt:         time.Now().UTC(),
	}
	if cmp.Best != nil {
		total := cmp.Best.TotalSeconds
		rec.BestTotalSeconds = &total
		rec.BestRouteCode = string(cmp.Best.RouteCode)
		rec.BestCatchable = cmp.Best.Catchable
	}

	if s.planLog != nil {
		if err := s.planLog.Insert(ctx, rec); err != nil {
			s.log.Warn("plan log insert failed", "error", err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishPlanComputed(ctx, rec); err != nil {
			s.log.Warn("plan event publish failed", "error", err)
		}
	}
}
