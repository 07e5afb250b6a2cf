package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/fieldworks/dispatch-system/internal/core/domain"
	"github.com/fieldworks/dispatch-system/internal/core/ports"
	"github.com/fieldworks/dispatch-system/internal/core/service"
)

type fakeTracker struct {
	snapshots   []domain.TechnicianSnapshot
	refreshedAt time.Time
	lastErr     error
	refreshErr  error
}

func (f *fakeTracker) Refresh(context.Context) error { return f.refreshErr }

func (f *fakeTracker) Snapshots() []domain.TechnicianSnapshot { return f.snapshots }

func (f *fakeTracker) Snapshot(id string) (domain.TechnicianSnapshot, bool) {
	for _, s := range f.snapshots {
		if s.TechnicianID == id {
			return s, true
		}
	}
	return domain.TechnicianSnapshot{}, false
}

func (f *fakeTracker) LastRefreshedAt() time.Time { return f.refreshedAt }

func (f *fakeTracker) LastError() error { return f.lastErr }

func newHandler(tracker ports.TechnicianTracker) *DispatchHandler {
	log := zerolog.Nop()
	optimizer := service.NewRouteOptimizer(service.RoutingOptions{}, log)
	planner := service.NewFleetPlanner(optimizer, tracker, log)
	advisor := service.NewAssignmentAdvisor(service.RoutingOptions{}, log)
	return NewDispatchHandler(tracker, optimizer, planner, advisor)
}

func request(method, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	e.Validator = NewValidator()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestListTechnicians_EmptyCollection(t *testing.T) {
	h := newHandler(&fakeTracker{})
	c, rec := request(http.MethodGet, "/v1/technicians", "")

	if err := h.ListTechnicians(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Technicians []json.RawMessage `json:"technicians"`
		SyncError   string            `json:"sync_error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Technicians == nil {
		t.Error("technicians must serialize as an empty array, not null")
	}
	if resp.SyncError != "" {
		t.Errorf("unexpected sync_error: %q", resp.SyncError)
	}
}

func TestListTechnicians_SurfacesSyncErrorAlongsideData(t *testing.T) {
	h := newHandler(&fakeTracker{
		snapshots:   []domain.TechnicianSnapshot{{TechnicianID: "t1", Name: "Ana", Liveness: domain.LivenessDegraded}},
		refreshedAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		lastErr:     errors.New("roster unavailable"),
	})
	c, rec := request(http.MethodGet, "/v1/technicians", "")

	if err := h.ListTechnicians(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Technicians []domain.TechnicianSnapshot `json:"technicians"`
		SyncError   string                      `json:"sync_error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(resp.Technicians) != 1 {
		t.Fatalf("stale-but-present data must still be served, got %d technicians", len(resp.Technicians))
	}
	if resp.SyncError == "" {
		t.Error("sync_error should be surfaced alongside the data")
	}
}

func TestRefreshTechnicians_UpstreamFailure(t *testing.T) {
	h := newHandler(&fakeTracker{refreshErr: errors.New("mongo down")})
	c, _ := request(http.MethodPost, "/v1/technicians/refresh", "")

	err := h.RefreshTechnicians(c)
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusBadGateway {
		t.Fatalf("expected a 502 for the shared error handler, got %v", err)
	}
}

func TestOptimizeRoute_OK(t *testing.T) {
	h := newHandler(&fakeTracker{})
	body := `{
		"technician_id": "t1",
		"technician_name": "Ana",
		"start": {"lat": 0, "lng": 0},
		"stops": [
			{"id": "low", "latitude": 0.1, "longitude": 0, "priority": "low"},
			{"id": "urgent", "latitude": 0.5, "longitude": 0, "priority": "emergency"}
		]
	}`
	c, rec := request(http.MethodPost, "/v1/routes/optimize", body)

	if err := h.OptimizeRoute(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var route domain.OptimizedRoute
	if err := json.Unmarshal(rec.Body.Bytes(), &route); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(route.Stops) != 2 || route.Stops[0].ID != "urgent" {
		t.Errorf("expected the emergency stop first, got %+v", route.Stops)
	}
	if route.NavigationURL == "" {
		t.Error("expected a navigation URL")
	}
}

func TestOptimizeRoute_RejectsUnknownPriority(t *testing.T) {
	h := newHandler(&fakeTracker{})
	body := `{
		"technician_id": "t1",
		"start": {"lat": 0, "lng": 0},
		"stops": [{"id": "s1", "latitude": 0, "longitude": 0, "priority": "whenever"}]
	}`
	c, _ := request(http.MethodPost, "/v1/routes/optimize", body)

	err := h.OptimizeRoute(c)
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected a 400, got %v", err)
	}
}

func TestOptimizeFleet_ExplicitTechnicians(t *testing.T) {
	h := newHandler(&fakeTracker{})
	body := `{
		"technicians": [
			{"id": "t1", "location": {"lat": 0, "lng": 0}, "stops": [
				{"id": "s1", "latitude": 0.1, "longitude": 0, "priority": "normal"}
			]},
			{"id": "t2", "stops": [
				{"id": "s2", "latitude": 0.2, "longitude": 0, "priority": "normal"}
			]}
		]
	}`
	c, rec := request(http.MethodPost, "/v1/fleet/optimize", body)

	if err := h.OptimizeFleet(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var plan domain.FleetPlan
	if err := json.Unmarshal(rec.Body.Bytes(), &plan); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(plan.Routes) != 1 {
		t.Errorf("got %d routes, want 1 (t2 has no location)", len(plan.Routes))
	}
}

func TestOptimizeFleet_EmptyBodyUsesTrackedFleet(t *testing.T) {
	lat, lng := 0.1, 0.0
	h := newHandler(&fakeTracker{snapshots: []domain.TechnicianSnapshot{{
		TechnicianID: "t1",
		Name:         "Ana",
		Location:     &domain.LocationSample{TechnicianID: "t1"},
		ActiveJobs: []domain.JobRef{
			{ID: "j1", CustomerLatitude: &lat, CustomerLongitude: &lng, Priority: domain.PriorityNormal},
		},
	}}})
	c, rec := request(http.MethodPost, "/v1/fleet/optimize", `{}`)

	if err := h.OptimizeFleet(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var plan domain.FleetPlan
	if err := json.Unmarshal(rec.Body.Bytes(), &plan); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(plan.Routes) != 1 || plan.Routes[0].TechnicianID != "t1" {
		t.Errorf("expected the tracked technician's route, got %+v", plan.Routes)
	}
}

func TestSuggestAssignment_NoCandidateIsNullNotError(t *testing.T) {
	h := newHandler(&fakeTracker{})
	body := `{
		"job": {"id": "j1", "latitude": 0.1, "longitude": 0, "priority": "high"},
		"candidates": [{"id": "t1", "skill_match": false, "location": {"lat": 0, "lng": 0}}]
	}`
	c, rec := request(http.MethodPost, "/v1/assignments/suggest", body)

	if err := h.SuggestAssignment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if string(resp["suggestion"]) != "null" {
		t.Errorf("suggestion = %s, want null", resp["suggestion"])
	}
}

func TestSuggestAssignment_ReturnsBestCandidate(t *testing.T) {
	h := newHandler(&fakeTracker{})
	body := `{
		"job": {"id": "j1", "latitude": 0.1, "longitude": 0, "priority": "high"},
		"candidates": [
			{"id": "far", "skill_match": true, "location": {"lat": 3, "lng": 3}},
			{"id": "near", "skill_match": true, "location": {"lat": 0.12, "lng": 0}}
		]
	}`
	c, rec := request(http.MethodPost, "/v1/assignments/suggest", body)

	if err := h.SuggestAssignment(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp suggestionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp.Suggestion == nil || resp.Suggestion.TechnicianID != "near" {
		t.Errorf("expected the near candidate, got %+v", resp.Suggestion)
	}
}
