package service

import (
	"context"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldworks/dispatch-system/internal/core/domain"
	"github.com/fieldworks/dispatch-system/internal/core/geo"
	"github.com/fieldworks/dispatch-system/internal/core/ports"
)

// RoutingOptions holds the routing policy knobs. Both values are policy
// choices rather than measurements; defaults preserve the established
// 30 mph / 60 min behaviour.
type RoutingOptions struct {
	// AverageSpeedMPH is the assumed average driving speed for ETAs.
	AverageSpeedMPH float64
	// DefaultStopMinutes is the dwell time assumed for stops that carry no
	// duration estimate of their own.
	DefaultStopMinutes int
}

func (o RoutingOptions) withDefaults() RoutingOptions {
	if o.AverageSpeedMPH <= 0 {
		o.AverageSpeedMPH = geo.DefaultAverageSpeedMPH
	}
	if o.DefaultStopMinutes <= 0 {
		o.DefaultStopMinutes = 60
	}
	return o
}

// RouteOptimizer computes multi-stop visiting orders with a priority-tiered
// nearest-neighbor heuristic: urgent stops (emergency, high) are visited
// first in priority order regardless of geography, then the remaining stops
// are ordered greedily by proximity.
type RouteOptimizer struct {
	opts RoutingOptions
	log  zerolog.Logger
	now  func() time.Time
}

func NewRouteOptimizer(opts RoutingOptions, log zerolog.Logger) *RouteOptimizer {
	return &RouteOptimizer{
		opts: opts.withDefaults(),
		log:  log,
		now:  time.Now,
	}
}

// OptimizeRoute returns the visiting order, per-stop arrival estimates, and
// aggregate cost for one technician. The returned stop list is always a
// permutation of the input set. An empty stop set yields a well-formed empty
// route; there is no error path for degenerate input.
func (o *RouteOptimizer) OptimizeRoute(_ context.Context, in ports.OptimizeRouteInput) (*domain.OptimizedRoute, error) {
	route := &domain.OptimizedRoute{
		TechnicianID:     in.TechnicianID,
		TechnicianName:   in.TechnicianName,
		Start:            in.Start,
		Stops:            []domain.RouteStop{},
		ArrivalEstimates: []domain.ArrivalEstimate{},
	}
	if len(in.Stops) == 0 {
		return route, nil
	}

	ordered := o.orderStops(in.Start, in.Stops)
	miles, minutes, etas := o.walk(in.Start, ordered, o.now())

	route.Stops = ordered
	route.TotalDistanceMiles = miles
	route.TotalDurationMinutes = minutes
	route.ArrivalEstimates = etas
	route.NavigationURL = navigationURL(in.Start, ordered)

	o.log.Debug().
		Str("technician_id", in.TechnicianID).
		Int("stops", len(ordered)).
		Float64("miles", miles).
		Int("minutes", minutes).
		Msg("route optimized")

	return route, nil
}

// RouteCost walks stops in their given order without reordering and returns
// the accumulated distance and duration. Used by the fleet planner to price
// the as-assigned order against the optimized one.
func (o *RouteOptimizer) RouteCost(start domain.Coordinates, stops []domain.RouteStop) (float64, int) {
	miles, minutes, _ := o.walk(start, stops, o.now())
	return miles, minutes
}

// orderStops partitions stops into urgent and regular tiers, keeps the
// urgent tier in priority order (stable, so emergency precedes high and
// input order breaks rank ties), and orders the regular tier by repeated
// nearest-neighbor selection from the last urgent stop or the start.
func (o *RouteOptimizer) orderStops(start domain.Coordinates, stops []domain.RouteStop) []domain.RouteStop {
	var urgent, regular []domain.RouteStop
	for _, s := range stops {
		if s.Priority.IsUrgent() {
			urgent = append(urgent, s)
		} else {
			regular = append(regular, s)
		}
	}
	sort.SliceStable(urgent, func(i, j int) bool {
		return urgent[i].Priority.Rank() < urgent[j].Priority.Rank()
	})

	pos := start
	if len(urgent) > 0 {
		pos = stopCoords(urgent[len(urgent)-1])
	}

	ordered := make([]domain.RouteStop, 0, len(stops))
	ordered = append(ordered, urgent...)

	remaining := append([]domain.RouteStop(nil), regular...)
	for len(remaining) > 0 {
		best := 0
		bestDist := geo.Miles(pos.Lat, pos.Lng, remaining[0].Latitude, remaining[0].Longitude)
		for i := 1; i < len(remaining); i++ {
			// Strict less keeps input order on distance ties, making the
			// heuristic deterministic.
			if d := geo.Miles(pos.Lat, pos.Lng, remaining[i].Latitude, remaining[i].Longitude); d < bestDist {
				best, bestDist = i, d
			}
		}
		next := remaining[best]
		ordered = append(ordered, next)
		remaining = append(remaining[:best], remaining[best+1:]...)
		pos = stopCoords(next)
	}
	return ordered
}

// walk accumulates per-leg distance and travel time plus per-stop dwell time
// along the given order. Each ETA is the running clock at arrival, before
// dwell time is added.
func (o *RouteOptimizer) walk(start domain.Coordinates, stops []domain.RouteStop, departAt time.Time) (float64, int, []domain.ArrivalEstimate) {
	pos := start
	clock := departAt
	miles := 0.0
	minutes := 0
	etas := make([]domain.ArrivalEstimate, 0, len(stops))

	for _, stop := range stops {
		leg := geo.Miles(pos.Lat, pos.Lng, stop.Latitude, stop.Longitude)
		travel := geo.TravelMinutes(leg, o.opts.AverageSpeedMPH)

		miles += leg
		minutes += travel
		clock = clock.Add(time.Duration(travel) * time.Minute)
		etas = append(etas, domain.ArrivalEstimate{StopID: stop.ID, ETA: clock})

		dwell := stop.EstimatedDurationMinutes
		if dwell <= 0 {
			dwell = o.opts.DefaultStopMinutes
		}
		minutes += dwell
		clock = clock.Add(time.Duration(dwell) * time.Minute)

		pos = stopCoords(stop)
	}
	return miles, minutes, etas
}

func stopCoords(s domain.RouteStop) domain.Coordinates {
	return domain.Coordinates{Lat: s.Latitude, Lng: s.Longitude}
}

// navigationURL builds a Google Maps directions link encoding all stops in
// final visiting order, for handoff to an external mapping application.
func navigationURL(start domain.Coordinates, stops []domain.RouteStop) string {
	if len(stops) == 0 {
		return ""
	}
	last := stops[len(stops)-1]

	q := url.Values{}
	q.Set("api", "1")
	q.Set("travelmode", "driving")
	q.Set("origin", coordParam(start.Lat, start.Lng))
	q.Set("destination", coordParam(last.Latitude, last.Longitude))
	if len(stops) > 1 {
		waypoints := make([]string, 0, len(stops)-1)
		for _, s := range stops[:len(stops)-1] {
			waypoints = append(waypoints, coordParam(s.Latitude, s.Longitude))
		}
		q.Set("waypoints", strings.Join(waypoints, "|"))
	}
	return "https://www.google.com/maps/dir/?" + q.Encode()
}

func coordParam(lat, lng float64) string {
	return strconv.FormatFloat(lat, 'f', 6, 64) + "," + strconv.FormatFloat(lng, 'f', 6, 64)
}
