package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldworks/dispatch-system/internal/core/domain"
	"github.com/fieldworks/dispatch-system/internal/core/ports"
)

// LocationIngest persists device position samples and publishes a change
// notification so subscribed synchronizers refresh immediately instead of
// waiting for the next poll.
type LocationIngest struct {
	store    ports.LocationWriter
	notifier ports.LocationNotifier
	log      zerolog.Logger
	now      func() time.Time
}

// NewLocationIngest returns an ingest service. notifier may be nil; samples
// are then picked up by the poll fallback only.
func NewLocationIngest(store ports.LocationWriter, notifier ports.LocationNotifier, log zerolog.Logger) *LocationIngest {
	return &LocationIngest{store: store, notifier: notifier, log: log, now: time.Now}
}

// Process stores one sample. Devices with skewed clocks may omit the capture
// time; the server's receive time is used instead.
func (s *LocationIngest) Process(ctx context.Context, in ports.IngestSampleInput) error {
	sample := domain.LocationSample{
		TechnicianID:   in.TechnicianID,
		Latitude:       in.Latitude,
		Longitude:      in.Longitude,
		AccuracyMeters: in.AccuracyMeters,
		CapturedAt:     in.CapturedAt,
	}
	if sample.CapturedAt.IsZero() {
		sample.CapturedAt = s.now().UTC()
	}

	if err := s.store.SaveSample(ctx, sample); err != nil {
		return fmt.Errorf("save sample: %w", err)
	}

	// Notification failure is non-fatal: the poll fallback will surface the
	// sample within one interval.
	if s.notifier != nil {
		if err := s.notifier.NotifyLocationChange(ctx, in.TechnicianID); err != nil {
			s.log.Warn().Err(err).Str("technician_id", in.TechnicianID).Msg("failed to publish location change")
		}
	}

	s.log.Debug().Str("technician_id", in.TechnicianID).Time("captured_at", sample.CapturedAt).Msg("location sample stored")
	return nil
}
