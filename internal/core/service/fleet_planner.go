package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fieldworks/dispatch-system/internal/core/domain"
	"github.com/fieldworks/dispatch-system/internal/core/ports"
)

// FleetPlanner runs the route optimizer per technician and compares the
// optimized totals against the technicians' as-assigned stop orders.
type FleetPlanner struct {
	optimizer ports.RouteOptimizer
	tracker   ports.TechnicianTracker
	log       zerolog.Logger
}

// NewFleetPlanner returns a planner. tracker may be nil when the planner is
// only fed explicit candidate lists; OptimizeTracked then fails.
func NewFleetPlanner(optimizer ports.RouteOptimizer, tracker ports.TechnicianTracker, log zerolog.Logger) *FleetPlanner {
	return &FleetPlanner{optimizer: optimizer, tracker: tracker, log: log}
}

// OptimizeFleet optimizes every eligible technician's route. Technicians
// without a location or without stops are excluded from both the routes and
// the savings totals. Savings are as-assigned cost minus optimized cost and
// may be negative when the given order was already near-optimal and the
// urgent-first rule forced a detour; they are reported as computed.
func (p *FleetPlanner) OptimizeFleet(ctx context.Context, technicians []ports.FleetTechnician) (*domain.FleetPlan, error) {
	plan := &domain.FleetPlan{Routes: []*domain.OptimizedRoute{}}

	for _, tech := range technicians {
		if tech.Location == nil || len(tech.Stops) == 0 {
			p.log.Debug().Str("technician_id", tech.ID).Msg("skipping technician without location or stops")
			continue
		}

		asIsMiles, asIsMinutes := p.optimizer.RouteCost(*tech.Location, tech.Stops)

		route, err := p.optimizer.OptimizeRoute(ctx, ports.OptimizeRouteInput{
			TechnicianID:   tech.ID,
			TechnicianName: tech.Name,
			Start:          *tech.Location,
			Stops:          tech.Stops,
		})
		if err != nil {
			return nil, fmt.Errorf("optimize fleet: technician %s: %w", tech.ID, err)
		}

		plan.Routes = append(plan.Routes, route)
		plan.Savings.DistanceMiles += asIsMiles - route.TotalDistanceMiles
		plan.Savings.TimeMinutes += asIsMinutes - route.TotalDurationMinutes
	}

	p.log.Info().
		Int("routes", len(plan.Routes)).
		Float64("distance_saved_miles", plan.Savings.DistanceMiles).
		Int("time_saved_minutes", plan.Savings.TimeMinutes).
		Msg("fleet plan computed")

	return plan, nil
}

// OptimizeTracked builds the candidate set from the tracker's current
// snapshot collection: each technician's active jobs with customer
// coordinates become stops; jobs without coordinates cannot be routed and
// are left out.
func (p *FleetPlanner) OptimizeTracked(ctx context.Context) (*domain.FleetPlan, error) {
	if p.tracker == nil {
		return nil, fmt.Errorf("optimize tracked: no technician tracker configured")
	}

	snapshots := p.tracker.Snapshots()
	technicians := make([]ports.FleetTechnician, 0, len(snapshots))
	for _, snap := range snapshots {
		tech := ports.FleetTechnician{ID: snap.TechnicianID, Name: snap.Name}
		if snap.Location != nil {
			tech.Location = &domain.Coordinates{Lat: snap.Location.Latitude, Lng: snap.Location.Longitude}
		}
		for _, job := range snap.ActiveJobs {
			if job.CustomerLatitude == nil || job.CustomerLongitude == nil {
				continue
			}
			tech.Stops = append(tech.Stops, stopFromJob(job))
		}
		technicians = append(technicians, tech)
	}

	return p.OptimizeFleet(ctx, technicians)
}

func stopFromJob(job domain.JobRef) domain.RouteStop {
	return domain.RouteStop{
		ID:                       job.ID,
		Name:                     job.Title,
		Address:                  job.CustomerAddress,
		Latitude:                 *job.CustomerLatitude,
		Longitude:                *job.CustomerLongitude,
		Priority:                 job.Priority,
		ScheduledAt:              job.ScheduledAt,
		EstimatedDurationMinutes: job.EstimatedDurationMinutes,
	}
}
