package ports

import (
	"context"
	"time"

	"github.com/fieldworks/dispatch-system/internal/core/domain"
)

// TechnicianTracker exposes the synchronizer's current view of the fleet.
// Reads are lock-free: the backing collection is swapped atomically per
// refresh cycle, never edited in place.
type TechnicianTracker interface {
	Refresh(ctx context.Context) error
	Snapshots() []domain.TechnicianSnapshot
	Snapshot(technicianID string) (domain.TechnicianSnapshot, bool)
	LastRefreshedAt() time.Time
	LastError() error
}

// OptimizeRouteInput carries one technician's position and stop set.
type OptimizeRouteInput struct {
	TechnicianID   string
	TechnicianName string
	Start          domain.Coordinates
	Stops          []domain.RouteStop
}

// RouteOptimizer computes visiting orders and their cost.
type RouteOptimizer interface {
	OptimizeRoute(ctx context.Context, in OptimizeRouteInput) (*domain.OptimizedRoute, error)
	// RouteCost walks stops in the given order without reordering and
	// returns the accumulated distance and duration (travel plus dwell).
	RouteCost(start domain.Coordinates, stops []domain.RouteStop) (miles float64, minutes int)
}

// FleetTechnician is one fleet-plan candidate. Technicians without a
// location or without stops are skipped entirely, not counted as zero-cost.
type FleetTechnician struct {
	ID       string
	Name     string
	Location *domain.Coordinates
	Stops    []domain.RouteStop
}

// FleetPlanner optimizes every eligible technician's route and reports the
// aggregate savings against the as-assigned stop orders.
type FleetPlanner interface {
	OptimizeFleet(ctx context.Context, technicians []FleetTechnician) (*domain.FleetPlan, error)
	// OptimizeTracked builds the candidate set from the tracker's current
	// snapshots, mapping active jobs with customer coordinates to stops.
	OptimizeTracked(ctx context.Context) (*domain.FleetPlan, error)
}

// CandidateTechnician is one assignment candidate with their existing
// ordered stop list.
type CandidateTechnician struct {
	ID           string
	Name         string
	Location     *domain.Coordinates
	CurrentStops []domain.RouteStop
	SkillMatch   bool
}

// SuggestAssignmentInput carries an unassigned job and its candidates.
type SuggestAssignmentInput struct {
	Job        domain.RouteStop
	Candidates []CandidateTechnician
}

// AssignmentAdvisor recommends the technician absorbing a new job with the
// least added travel. A nil suggestion (with nil error) means no candidate
// qualified; the caller decides the user experience.
type AssignmentAdvisor interface {
	SuggestAssignment(ctx context.Context, in SuggestAssignmentInput) (*domain.AssignmentSuggestion, error)
}

// IngestSampleInput is one device position report entering the system.
type IngestSampleInput struct {
	TechnicianID   string
	Latitude       float64
	Longitude      float64
	AccuracyMeters *float64
	CapturedAt     time.Time
}

// LocationIngestService persists a sample and notifies the location feed.
type LocationIngestService interface {
	Process(ctx context.Context, in IngestSampleInput) error
}
