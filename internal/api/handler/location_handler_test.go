package handler

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/fieldworks/dispatch-system/internal/core/ports"
)

type recordQueue struct {
	enqueued []ports.IngestSampleInput
}

func (q *recordQueue) Enqueue(sample ports.IngestSampleInput) {
	q.enqueued = append(q.enqueued, sample)
}

func TestIngest_Accepted(t *testing.T) {
	queue := &recordQueue{}
	h := NewLocationHandler(queue)
	body := `{"technician_id": "t1", "latitude": 19.43, "longitude": -99.13, "captured_at": "2025-06-01T12:00:00Z"}`
	c, rec := request(http.MethodPost, "/v1/locations", body)

	if err := h.Ingest(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if resp["status"] != "accepted" {
		t.Errorf("status field = %q, want accepted", resp["status"])
	}

	if len(queue.enqueued) != 1 {
		t.Fatalf("enqueued %d samples, want 1", len(queue.enqueued))
	}
	got := queue.enqueued[0]
	if got.TechnicianID != "t1" || got.Latitude != 19.43 || got.Longitude != -99.13 {
		t.Errorf("sample mangled in transit: %+v", got)
	}
	want := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	if !got.CapturedAt.Equal(want) {
		t.Errorf("captured_at = %v, want %v", got.CapturedAt, want)
	}
}

func TestIngest_MissingCaptureTimePassesZero(t *testing.T) {
	queue := &recordQueue{}
	h := NewLocationHandler(queue)
	c, _ := request(http.MethodPost, "/v1/locations", `{"technician_id": "t1", "latitude": 1, "longitude": 2}`)

	if err := h.Ingest(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !queue.enqueued[0].CapturedAt.IsZero() {
		t.Errorf("expected zero capture time for the ingest service to default, got %v", queue.enqueued[0].CapturedAt)
	}
}

func TestIngest_RejectsMissingTechnician(t *testing.T) {
	h := NewLocationHandler(&recordQueue{})
	c, _ := request(http.MethodPost, "/v1/locations", `{"latitude": 1, "longitude": 2}`)

	if err := h.Ingest(c); err == nil {
		t.Fatal("expected a validation error")
	}
}

func TestIngest_RejectsOutOfRangeCoordinates(t *testing.T) {
	h := NewLocationHandler(&recordQueue{})
	c, _ := request(http.MethodPost, "/v1/locations", `{"technician_id": "t1", "latitude": 95, "longitude": 0}`)

	if err := h.Ingest(c); err == nil {
		t.Fatal("expected a validation error")
	}
}
