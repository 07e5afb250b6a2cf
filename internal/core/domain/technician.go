package domain

import (
	"errors"
	"time"
)

// LivenessState classifies how fresh a technician's last known location is.
// It is never stored: it is recomputed from the sample age at observation
// time so it degrades on its own without extra writes.
type LivenessState string

const (
	LivenessFresh    LivenessState = "fresh"
	LivenessDegraded LivenessState = "degraded"
	LivenessStale    LivenessState = "stale"
)

// LivenessThresholds holds the age cutoffs for liveness classification.
type LivenessThresholds struct {
	Fresh    time.Duration
	Degraded time.Duration
}

// DefaultLivenessThresholds returns the standard cutoffs: fresh under 5
// minutes, degraded under 30, stale beyond that.
func DefaultLivenessThresholds() LivenessThresholds {
	return LivenessThresholds{
		Fresh:    5 * time.Minute,
		Degraded: 30 * time.Minute,
	}
}

// Classify maps a sample capture time to a LivenessState. A zero capturedAt
// means the technician has never reported a position and is always stale.
func (t LivenessThresholds) Classify(capturedAt, now time.Time) LivenessState {
	if capturedAt.IsZero() {
		return LivenessStale
	}
	age := now.Sub(capturedAt)
	switch {
	case age < t.Fresh:
		return LivenessFresh
	case age < t.Degraded:
		return LivenessDegraded
	default:
		return LivenessStale
	}
}

// ClassifyLiveness applies the default thresholds.
func ClassifyLiveness(capturedAt, now time.Time) LivenessState {
	return DefaultLivenessThresholds().Classify(capturedAt, now)
}

var ErrTechnicianNotFound = errors.New("technician not found")

// Coordinates represents a geographic point.
type Coordinates struct {
	Lat float64 `json:"lat" bson:"lat"`
	Lng float64 `json:"lng" bson:"lng"`
}

// Technician is one active roster entry from the external roster provider.
type Technician struct {
	ID    string `json:"id" bson:"_id,omitempty"`
	Name  string `json:"name" bson:"name"`
	Phone string `json:"phone,omitempty" bson:"phone,omitempty"`
	Email string `json:"email,omitempty" bson:"email,omitempty"`
}

// LocationSample is one position report from a technician's device. The core
// only ever reads the most recent sample per technician.
type LocationSample struct {
	TechnicianID   string    `json:"technician_id" bson:"technician_id"`
	Latitude       float64   `json:"latitude" bson:"latitude"`
	Longitude      float64   `json:"longitude" bson:"longitude"`
	AccuracyMeters *float64  `json:"accuracy_meters,omitempty" bson:"accuracy_meters,omitempty"`
	CapturedAt     time.Time `json:"captured_at" bson:"captured_at"`
}

// JobStatus is the lifecycle state of a ticket, owned by the external
// ticketing subsystem. The dispatch core never mutates it.
type JobStatus string

const (
	JobScheduled  JobStatus = "scheduled"
	JobInProgress JobStatus = "in_progress"
	JobCompleted  JobStatus = "completed"
	JobCancelled  JobStatus = "cancelled"
)

// IsActive reports whether a job still needs a visit.
func (s JobStatus) IsActive() bool {
	return s == JobScheduled || s == JobInProgress
}

// JobRef is a read-only projection of a ticket assigned to a technician.
type JobRef struct {
	ID                       string       `json:"id" bson:"_id,omitempty"`
	Code                     string       `json:"code" bson:"code"`
	Title                    string       `json:"title" bson:"title"`
	Status                   JobStatus    `json:"status" bson:"status"`
	Priority                 StopPriority `json:"priority" bson:"priority"`
	CustomerName             string       `json:"customer_name" bson:"customer_name"`
	CustomerAddress          string       `json:"customer_address,omitempty" bson:"customer_address,omitempty"`
	CustomerLatitude         *float64     `json:"customer_latitude,omitempty" bson:"customer_latitude,omitempty"`
	CustomerLongitude        *float64     `json:"customer_longitude,omitempty" bson:"customer_longitude,omitempty"`
	ScheduledAt              *time.Time   `json:"scheduled_at,omitempty" bson:"scheduled_at,omitempty"`
	EstimatedDurationMinutes int          `json:"estimated_duration_minutes,omitempty" bson:"estimated_duration_minutes,omitempty"`
}

// TechnicianSnapshot is the synchronizer's best-known state for one
// technician. Snapshots are rebuilt wholesale every refresh cycle and never
// partially mutated; readers always see one cycle's view.
type TechnicianSnapshot struct {
	TechnicianID string          `json:"technician_id"`
	Name         string          `json:"name"`
	Phone        string          `json:"phone,omitempty"`
	Email        string          `json:"email,omitempty"`
	Location     *LocationSample `json:"location"`
	ActiveJobs   []JobRef        `json:"active_jobs"`
	Liveness     LivenessState   `json:"liveness"`
}
