package service

import (
	"context"
	"math"

	"github.com/rs/zerolog"

	"github.com/fieldworks/dispatch-system/internal/core/domain"
	"github.com/fieldworks/dispatch-system/internal/core/geo"
	"github.com/fieldworks/dispatch-system/internal/core/ports"
)

// AssignmentAdvisor estimates, per candidate technician, the cheapest point
// at which a new job could be inserted into their existing route, and
// recommends the candidate with the globally smallest added travel.
//
// This is a local greedy heuristic: it prices one job at a time and does not
// consider reshuffling other assignments.
type AssignmentAdvisor struct {
	speedMPH float64
	log      zerolog.Logger
}

func NewAssignmentAdvisor(opts RoutingOptions, log zerolog.Logger) *AssignmentAdvisor {
	return &AssignmentAdvisor{speedMPH: opts.withDefaults().AverageSpeedMPH, log: log}
}

// SuggestAssignment returns the candidate minimizing added travel, or nil
// (with nil error) when no candidate has both a location and a skill match.
// Ties go to the earlier candidate in input order.
func (a *AssignmentAdvisor) SuggestAssignment(_ context.Context, in ports.SuggestAssignmentInput) (*domain.AssignmentSuggestion, error) {
	var best *domain.AssignmentSuggestion
	bestCost := math.MaxFloat64

	for _, cand := range in.Candidates {
		if cand.Location == nil || !cand.SkillMatch {
			continue
		}
		cost := cheapestInsertion(*cand.Location, cand.CurrentStops, in.Job)
		if cost < bestCost {
			bestCost = cost
			best = &domain.AssignmentSuggestion{
				TechnicianID:       cand.ID,
				TechnicianName:     cand.Name,
				AddedDistanceMiles: cost,
				AddedTimeMinutes:   geo.TravelMinutes(cost, a.speedMPH),
			}
		}
	}

	if best == nil {
		a.log.Debug().Str("job_id", in.Job.ID).Msg("no qualifying candidate for assignment")
		return nil, nil
	}

	a.log.Debug().
		Str("job_id", in.Job.ID).
		Str("technician_id", best.TechnicianID).
		Float64("added_miles", best.AddedDistanceMiles).
		Msg("assignment suggested")

	return best, nil
}

// cheapestInsertion prices inserting job into a candidate's route. With no
// current stops the cost is the direct leg from their position. Otherwise
// every gap is searched (position to first stop, between each adjacent
// pair, and after the last stop) with the detour cost
// dist(prev, job) + dist(job, next) - dist(prev, next). The before-first gap
// substitutes the position for prev in the two added legs only; there is no
// committed position-to-first leg to credit back, so nothing is subtracted.
// The after-last gap has no next leg and costs the plain extension.
func cheapestInsertion(pos domain.Coordinates, stops []domain.RouteStop, job domain.RouteStop) float64 {
	if len(stops) == 0 {
		return geo.Miles(pos.Lat, pos.Lng, job.Latitude, job.Longitude)
	}

	points := make([]domain.Coordinates, 0, len(stops)+1)
	points = append(points, pos)
	for _, s := range stops {
		points = append(points, stopCoords(s))
	}

	best := math.MaxFloat64
	for i := 0; i < len(points)-1; i++ {
		prev, next := points[i], points[i+1]
		cost := geo.Miles(prev.Lat, prev.Lng, job.Latitude, job.Longitude) +
			geo.Miles(job.Latitude, job.Longitude, next.Lat, next.Lng)
		if i > 0 {
			cost -= geo.Miles(prev.Lat, prev.Lng, next.Lat, next.Lng)
		}
		if cost < best {
			best = cost
		}
	}

	last := points[len(points)-1]
	if tail := geo.Miles(last.Lat, last.Lng, job.Latitude, job.Longitude); tail < best {
		best = tail
	}
	return best
}
