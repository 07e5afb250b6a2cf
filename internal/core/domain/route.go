package domain

import "time"

// StopPriority is the dispatch priority of a route stop. Urgent priorities
// (emergency, high) always dominate geography in route ordering.
type StopPriority string

const (
	PriorityEmergency StopPriority = "emergency"
	PriorityHigh      StopPriority = "high"
	PriorityNormal    StopPriority = "normal"
	PriorityLow       StopPriority = "low"
)

var priorityRank = map[StopPriority]int{
	PriorityEmergency: 0,
	PriorityHigh:      1,
	PriorityNormal:    2,
	PriorityLow:       3,
}

// Rank returns the sort rank of a priority, lower meaning more urgent.
// Unknown priorities rank after low.
func (p StopPriority) Rank() int {
	if r, ok := priorityRank[p]; ok {
		return r
	}
	return len(priorityRank)
}

// IsUrgent reports whether a stop must be visited before any normal/low work.
func (p StopPriority) IsUrgent() bool {
	return p == PriorityEmergency || p == PriorityHigh
}

// RouteStop is a single job location to be visited. Immutable during one
// optimization call.
type RouteStop struct {
	ID                       string       `json:"id"`
	Name                     string       `json:"name"`
	Address                  string       `json:"address,omitempty"`
	Latitude                 float64      `json:"latitude"`
	Longitude                float64      `json:"longitude"`
	Priority                 StopPriority `json:"priority"`
	ScheduledAt              *time.Time   `json:"scheduled_at,omitempty"`
	EstimatedDurationMinutes int          `json:"estimated_duration_minutes,omitempty"`
}

// ArrivalEstimate is the projected arrival time at one stop, before any
// on-site work begins.
type ArrivalEstimate struct {
	StopID string    `json:"stop_id"`
	ETA    time.Time `json:"eta"`
}

// OptimizedRoute is a computed visiting order with cost totals. It is a
// throwaway result: never persisted, regenerated on every request.
//
// Stops is always a permutation of the input stop set, and ArrivalEstimates
// carries exactly one entry per stop in visiting order.
type OptimizedRoute struct {
	TechnicianID         string            `json:"technician_id"`
	TechnicianName       string            `json:"technician_name"`
	Start                Coordinates       `json:"start"`
	Stops                []RouteStop       `json:"stops"`
	TotalDistanceMiles   float64           `json:"total_distance_miles"`
	TotalDurationMinutes int               `json:"total_duration_minutes"`
	ArrivalEstimates     []ArrivalEstimate `json:"arrival_estimates"`
	NavigationURL        string            `json:"navigation_url"`
}

// RouteSavings is the aggregate cost difference between the technicians'
// as-assigned stop orders and the optimized ones. Either field may be
// negative when the given order was already near-optimal and the urgent-first
// rule forced a detour; negative savings are reported, never clamped.
type RouteSavings struct {
	DistanceMiles float64 `json:"distance_saved_miles"`
	TimeMinutes   int     `json:"time_saved_minutes"`
}

// FleetPlan is the result of optimizing every eligible technician's route.
type FleetPlan struct {
	Routes  []*OptimizedRoute `json:"routes"`
	Savings RouteSavings      `json:"total_savings"`
}

// AssignmentSuggestion recommends the technician whose route absorbs a new
// job with the least added travel.
type AssignmentSuggestion struct {
	TechnicianID       string  `json:"technician_id"`
	TechnicianName     string  `json:"technician_name"`
	AddedDistanceMiles float64 `json:"additional_distance_miles"`
	AddedTimeMinutes   int     `json:"additional_time_minutes"`
}
