package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/fieldworks/dispatch-system/internal/core/domain"
	"github.com/fieldworks/dispatch-system/internal/core/ports"
	"github.com/fieldworks/dispatch-system/internal/metrics"
)

// DispatchHandler handles HTTP requests for the dispatcher-facing surface:
// technician snapshots, route optimization, fleet plans, and assignment
// suggestions.
type DispatchHandler struct {
	tracker   ports.TechnicianTracker
	optimizer ports.RouteOptimizer
	planner   ports.FleetPlanner
	advisor   ports.AssignmentAdvisor
}

func NewDispatchHandler(
	tracker ports.TechnicianTracker,
	optimizer ports.RouteOptimizer,
	planner ports.FleetPlanner,
	advisor ports.AssignmentAdvisor,
) *DispatchHandler {
	return &DispatchHandler{tracker: tracker, optimizer: optimizer, planner: planner, advisor: advisor}
}

// --- Request / Response types ---

type coordinatesRequest struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

type stopRequest struct {
	ID                       string     `json:"id" validate:"required"`
	Name                     string     `json:"name"`
	Address                  string     `json:"address"`
	Latitude                 float64    `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude                float64    `json:"longitude" validate:"gte=-180,lte=180"`
	Priority                 string     `json:"priority" validate:"required,oneof=emergency high normal low"`
	ScheduledAt              *time.Time `json:"scheduled_at"`
	EstimatedDurationMinutes int        `json:"estimated_duration_minutes" validate:"gte=0"`
}

type optimizeRouteRequest struct {
	TechnicianID   string             `json:"technician_id" validate:"required"`
	TechnicianName string             `json:"technician_name"`
	Start          coordinatesRequest `json:"start"`
	Stops          []stopRequest      `json:"stops" validate:"dive"`
}

type fleetTechnicianRequest struct {
	ID       string              `json:"id" validate:"required"`
	Name     string              `json:"name"`
	Location *coordinatesRequest `json:"location"`
	Stops    []stopRequest       `json:"stops" validate:"dive"`
}

type optimizeFleetRequest struct {
	Technicians []fleetTechnicianRequest `json:"technicians" validate:"dive"`
}

type candidateRequest struct {
	ID           string              `json:"id" validate:"required"`
	Name         string              `json:"name"`
	Location     *coordinatesRequest `json:"location"`
	CurrentStops []stopRequest       `json:"current_stops" validate:"dive"`
	SkillMatch   bool                `json:"skill_match"`
}

type suggestAssignmentRequest struct {
	Job        stopRequest        `json:"job" validate:"required"`
	Candidates []candidateRequest `json:"candidates" validate:"dive"`
}

type techniciansResponse struct {
	Technicians []domain.TechnicianSnapshot `json:"technicians"`
	RefreshedAt *time.Time                  `json:"refreshed_at,omitempty"`
	SyncError   string                      `json:"sync_error,omitempty"`
}

type suggestionResponse struct {
	Suggestion *domain.AssignmentSuggestion `json:"suggestion"`
}

// --- Handlers ---

// ListTechnicians handles GET /v1/technicians.
//
// @Summary      Current technician snapshots with location liveness
// @Tags         technicians
// @Produce      json
// @Success      200  {object}  techniciansResponse
// @Router       /v1/technicians [get]
func (h *DispatchHandler) ListTechnicians(c echo.Context) error {
	resp := techniciansResponse{Technicians: h.tracker.Snapshots()}
	if resp.Technicians == nil {
		resp.Technicians = []domain.TechnicianSnapshot{}
	}
	if t := h.tracker.LastRefreshedAt(); !t.IsZero() {
		resp.RefreshedAt = &t
	}
	if err := h.tracker.LastError(); err != nil {
		// Surfaced alongside the data: a failed cycle never blanks the
		// last-known-good snapshots.
		resp.SyncError = err.Error()
	}
	return c.JSON(http.StatusOK, resp)
}

// RefreshTechnicians handles POST /v1/technicians/refresh, the dispatcher's
// manual refresh button.
//
// @Summary      Trigger an immediate technician refresh cycle
// @Tags         technicians
// @Produce      json
// @Success      200  {object}  techniciansResponse
// @Failure      502  {object}  map[string]string
// @Router       /v1/technicians/refresh [post]
func (h *DispatchHandler) RefreshTechnicians(c echo.Context) error {
	if err := h.tracker.Refresh(c.Request().Context()); err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, "refresh failed: upstream data layer unavailable")
	}
	return h.ListTechnicians(c)
}

// OptimizeRoute handles POST /v1/routes/optimize.
//
// @Summary      Compute an optimized visiting order for one technician
// @Tags         routes
// @Accept       json
// @Produce      json
// @Param        body  body      optimizeRouteRequest  true  "Technician position and stops"
// @Success      200   {object}  domain.OptimizedRoute
// @Failure      400   {object}  map[string]string
// @Router       /v1/routes/optimize [post]
func (h *DispatchHandler) OptimizeRoute(c echo.Context) error {
	var req optimizeRouteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	route, err := h.optimizer.OptimizeRoute(c.Request().Context(), ports.OptimizeRouteInput{
		TechnicianID:   req.TechnicianID,
		TechnicianName: req.TechnicianName,
		Start:          domain.Coordinates{Lat: req.Start.Lat, Lng: req.Start.Lng},
		Stops:          mapStops(req.Stops),
	})
	if err != nil {
		return err
	}

	metrics.RoutesOptimizedTotal.WithLabelValues("single").Inc()
	return c.JSON(http.StatusOK, route)
}

// OptimizeFleet handles POST /v1/fleet/optimize. An empty technician list
// optimizes the fleet currently tracked by the synchronizer.
//
// @Summary      Optimize all technicians' routes and report savings
// @Tags         routes
// @Accept       json
// @Produce      json
// @Param        body  body      optimizeFleetRequest  false  "Explicit fleet; omit to use tracked technicians"
// @Success      200   {object}  domain.FleetPlan
// @Failure      400   {object}  map[string]string
// @Router       /v1/fleet/optimize [post]
func (h *DispatchHandler) OptimizeFleet(c echo.Context) error {
	var req optimizeFleetRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	var (
		plan *domain.FleetPlan
		err  error
	)
	if len(req.Technicians) == 0 {
		plan, err = h.planner.OptimizeTracked(c.Request().Context())
	} else {
		technicians := make([]ports.FleetTechnician, 0, len(req.Technicians))
		for _, t := range req.Technicians {
			tech := ports.FleetTechnician{ID: t.ID, Name: t.Name, Stops: mapStops(t.Stops)}
			if t.Location != nil {
				tech.Location = &domain.Coordinates{Lat: t.Location.Lat, Lng: t.Location.Lng}
			}
			technicians = append(technicians, tech)
		}
		plan, err = h.planner.OptimizeFleet(c.Request().Context(), technicians)
	}
	if err != nil {
		return err
	}

	metrics.RoutesOptimizedTotal.WithLabelValues("fleet").Inc()
	return c.JSON(http.StatusOK, plan)
}

// SuggestAssignment handles POST /v1/assignments/suggest. A null suggestion
// means no candidate qualified; the client decides the UX.
//
// @Summary      Recommend the technician for a new job
// @Tags         assignments
// @Accept       json
// @Produce      json
// @Param        body  body      suggestAssignmentRequest  true  "Job and candidate technicians"
// @Success      200   {object}  suggestionResponse
// @Failure      400   {object}  map[string]string
// @Router       /v1/assignments/suggest [post]
func (h *DispatchHandler) SuggestAssignment(c echo.Context) error {
	var req suggestAssignmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	candidates := make([]ports.CandidateTechnician, 0, len(req.Candidates))
	for _, cand := range req.Candidates {
		candidate := ports.CandidateTechnician{
			ID:           cand.ID,
			Name:         cand.Name,
			CurrentStops: mapStops(cand.CurrentStops),
			SkillMatch:   cand.SkillMatch,
		}
		if cand.Location != nil {
			candidate.Location = &domain.Coordinates{Lat: cand.Location.Lat, Lng: cand.Location.Lng}
		}
		candidates = append(candidates, candidate)
	}

	suggestion, err := h.advisor.SuggestAssignment(c.Request().Context(), ports.SuggestAssignmentInput{
		Job:        mapStop(req.Job),
		Candidates: candidates,
	})
	if err != nil {
		return err
	}

	outcome := "suggested"
	if suggestion == nil {
		outcome = "none"
	}
	metrics.AssignmentSuggestionsTotal.WithLabelValues(outcome).Inc()

	return c.JSON(http.StatusOK, suggestionResponse{Suggestion: suggestion})
}

// --- Mapping helpers ---

func mapStop(s stopRequest) domain.RouteStop {
	return domain.RouteStop{
		ID:                       s.ID,
		Name:                     s.Name,
		Address:                  s.Address,
		Latitude:                 s.Latitude,
		Longitude:                s.Longitude,
		Priority:                 domain.StopPriority(s.Priority),
		ScheduledAt:              s.ScheduledAt,
		EstimatedDurationMinutes: s.EstimatedDurationMinutes,
	}
}

func mapStops(stops []stopRequest) []domain.RouteStop {
	out := make([]domain.RouteStop, 0, len(stops))
	for _, s := range stops {
		out = append(out, mapStop(s))
	}
	return out
}
