package ports

import (
	"context"

	"github.com/fieldworks/dispatch-system/internal/core/domain"
)

// RosterProvider returns the currently active technicians. The roster is
// re-read every refresh cycle so deactivations are picked up automatically.
type RosterProvider interface {
	ActiveTechnicians(ctx context.Context) ([]domain.Technician, error)
}

// LocationStore reads the most recent position sample per technician.
// A technician with no samples yields (nil, nil): missing location data is
// modeled, not an error.
type LocationStore interface {
	LatestSample(ctx context.Context, technicianID string) (*domain.LocationSample, error)
}

// LocationWriter persists a new position sample.
type LocationWriter interface {
	SaveSample(ctx context.Context, sample domain.LocationSample) error
}

// LocationFeed is the change-notification channel of the location sample
// store. Updates delivers the technician ID of each changed sample; the
// feed may drop notifications under load, which is tolerable because every
// notification triggers the same full refresh the poll fallback runs anyway.
type LocationFeed interface {
	Updates() <-chan string
	Close() error
}

// LocationNotifier publishes a change notification after a sample write.
type LocationNotifier interface {
	NotifyLocationChange(ctx context.Context, technicianID string) error
}

// JobProvider reads the active jobs (status scheduled or in_progress)
// assigned to a technician, owned by the external ticketing subsystem.
type JobProvider interface {
	ActiveJobs(ctx context.Context, technicianID string) ([]domain.JobRef, error)
}
