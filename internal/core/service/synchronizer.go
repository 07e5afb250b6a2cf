package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/fieldworks/dispatch-system/internal/core/domain"
	"github.com/fieldworks/dispatch-system/internal/core/ports"
	"github.com/fieldworks/dispatch-system/internal/metrics"
)

// SyncOptions controls the synchronizer's refresh cadence and liveness
// classification.
type SyncOptions struct {
	// PollInterval is the fixed-interval fallback cadence against missed
	// change notifications.
	PollInterval time.Duration
	// EnableRealtime subscribes to the location change feed when true and a
	// feed is configured.
	EnableRealtime bool
	// RefreshTimeout bounds one refresh cycle so a stuck fetch delays at
	// most that cycle.
	RefreshTimeout time.Duration
	// Liveness holds the freshness classification thresholds.
	Liveness domain.LivenessThresholds
}

func (o SyncOptions) withDefaults() SyncOptions {
	if o.PollInterval <= 0 {
		o.PollInterval = 30 * time.Second
	}
	if o.RefreshTimeout <= 0 {
		o.RefreshTimeout = 15 * time.Second
	}
	if o.Liveness == (domain.LivenessThresholds{}) {
		o.Liveness = domain.DefaultLivenessThresholds()
	}
	return o
}

// fleetState is one refresh cycle's complete output. It is stored via a
// single atomic pointer swap: readers always observe exactly one cycle's
// snapshots, never a blend of two.
type fleetState struct {
	byID        map[string]domain.TechnicianSnapshot
	order       []string
	refreshedAt time.Time
}

type errBox struct{ err error }

// Synchronizer keeps an in-memory collection of TechnicianSnapshot fresh via
// two independent channels: a change-notification subscription on the
// location feed and a fixed-interval poll as fallback. Both trigger the same
// idempotent refresh; when refreshes overlap, the one committing last wins.
//
// The collection is single-writer (the refresh routine) and multi-reader;
// mutation is whole-collection replacement, so reads need no locks.
type Synchronizer struct {
	roster    ports.RosterProvider
	locations ports.LocationStore
	jobs      ports.JobProvider
	feed      ports.LocationFeed
	opts      SyncOptions
	log       zerolog.Logger
	now       func() time.Time

	state   atomic.Pointer[fleetState]
	lastErr atomic.Pointer[errBox]
	stopped atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSynchronizer wires a synchronizer. feed may be nil, in which case only
// the poll channel runs.
func NewSynchronizer(
	roster ports.RosterProvider,
	locations ports.LocationStore,
	jobs ports.JobProvider,
	feed ports.LocationFeed,
	opts SyncOptions,
	log zerolog.Logger,
) *Synchronizer {
	return &Synchronizer{
		roster:    roster,
		locations: locations,
		jobs:      jobs,
		feed:      feed,
		opts:      opts.withDefaults(),
		log:       log,
		now:       time.Now,
	}
}

// Start performs an initial refresh and launches the realtime and poll
// channels. A failed initial refresh is logged, not fatal: the next cycle is
// independent.
func (s *Synchronizer) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.stopped.Store(false)

	if err := s.refresh(runCtx, "initial"); err != nil {
		s.log.Warn().Err(err).Msg("initial refresh failed, refresh channels will retry")
	}

	if s.opts.EnableRealtime && s.feed != nil {
		s.wg.Add(1)
		go s.watchFeed(runCtx)
	}
	s.wg.Add(1)
	go s.poll(runCtx)

	s.log.Info().
		Dur("poll_interval", s.opts.PollInterval).
		Bool("realtime", s.opts.EnableRealtime && s.feed != nil).
		Msg("technician synchronizer started")
}

// Stop tears down both refresh channels. Idempotent and safe to call
// multiple times; an in-flight refresh finishing afterwards will not commit.
func (s *Synchronizer) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel == nil {
		return
	}
	s.stopped.Store(true)
	s.cancel()
	s.cancel = nil
	s.wg.Wait()
	s.log.Info().Msg("technician synchronizer stopped")
}

// Refresh runs one manual refresh cycle.
func (s *Synchronizer) Refresh(ctx context.Context) error {
	return s.refresh(ctx, "manual")
}

// Snapshots returns the current snapshot collection in roster order.
func (s *Synchronizer) Snapshots() []domain.TechnicianSnapshot {
	st := s.state.Load()
	if st == nil {
		return nil
	}
	out := make([]domain.TechnicianSnapshot, 0, len(st.order))
	for _, id := range st.order {
		out = append(out, st.byID[id])
	}
	return out
}

// Snapshot returns one technician's snapshot from the current cycle.
func (s *Synchronizer) Snapshot(technicianID string) (domain.TechnicianSnapshot, bool) {
	st := s.state.Load()
	if st == nil {
		return domain.TechnicianSnapshot{}, false
	}
	snap, ok := st.byID[technicianID]
	return snap, ok
}

// LastRefreshedAt reports when the last committed cycle completed.
func (s *Synchronizer) LastRefreshedAt() time.Time {
	if st := s.state.Load(); st != nil {
		return st.refreshedAt
	}
	return time.Time{}
}

// LastError reports the most recent failed cycle's error, or nil after a
// successful cycle. A non-nil error never implies the snapshots were
// cleared: stale-but-present data is preferred over no data.
func (s *Synchronizer) LastError() error {
	if box := s.lastErr.Load(); box != nil {
		return box.err
	}
	return nil
}

func (s *Synchronizer) watchFeed(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-s.feed.Updates():
			if !ok {
				return
			}
			_ = s.refresh(ctx, "realtime")
		}
	}
}

func (s *Synchronizer) poll(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.refresh(ctx, "poll")
		}
	}
}

func (s *Synchronizer) refresh(ctx context.Context, trigger string) error {
	started := time.Now()
	err := s.runRefresh(ctx)
	metrics.RefreshDuration.Observe(time.Since(started).Seconds())

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.RefreshTotal.WithLabelValues(trigger, outcome).Inc()
	return err
}

// runRefresh executes one full cycle: roster read, then a scatter-gather
// fan-out fetching every technician's latest location sample and active job
// list concurrently, joined before any snapshot is assembled. The finished
// collection replaces the previous one in a single swap.
func (s *Synchronizer) runRefresh(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.RefreshTimeout)
	defer cancel()

	technicians, err := s.roster.ActiveTechnicians(ctx)
	if err != nil {
		return s.recordError(fmt.Errorf("fetch roster: %w", err))
	}

	samples := make([]*domain.LocationSample, len(technicians))
	jobLists := make([][]domain.JobRef, len(technicians))

	g, gctx := errgroup.WithContext(ctx)
	for i, tech := range technicians {
		g.Go(func() error {
			sample, err := s.locations.LatestSample(gctx, tech.ID)
			if err != nil {
				return fmt.Errorf("latest sample for %s: %w", tech.ID, err)
			}
			samples[i] = sample
			return nil
		})
		g.Go(func() error {
			jobs, err := s.jobs.ActiveJobs(gctx, tech.ID)
			if err != nil {
				return fmt.Errorf("active jobs for %s: %w", tech.ID, err)
			}
			jobLists[i] = jobs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return s.recordError(err)
	}

	now := s.now()
	next := &fleetState{
		byID:        make(map[string]domain.TechnicianSnapshot, len(technicians)),
		order:       make([]string, 0, len(technicians)),
		refreshedAt: now,
	}
	for i, tech := range technicians {
		next.byID[tech.ID] = s.buildSnapshot(tech, samples[i], jobLists[i], now)
		next.order = append(next.order, tech.ID)
	}

	// A refresh completing after Stop must not update state behind a
	// torn-down consumer.
	if s.stopped.Load() {
		return nil
	}

	s.state.Store(next)
	s.lastErr.Store(nil)
	metrics.TechniciansTracked.Set(float64(len(technicians)))
	s.log.Debug().Int("technicians", len(technicians)).Msg("refresh cycle committed")
	return nil
}

// buildSnapshot assembles one technician's snapshot. Jobs are filtered to
// active statuses at read time; ticket state is never mutated. A technician
// without a sample is always stale.
func (s *Synchronizer) buildSnapshot(tech domain.Technician, sample *domain.LocationSample, jobs []domain.JobRef, now time.Time) domain.TechnicianSnapshot {
	active := make([]domain.JobRef, 0, len(jobs))
	for _, job := range jobs {
		if job.Status.IsActive() {
			active = append(active, job)
		}
	}

	liveness := domain.LivenessStale
	if sample != nil {
		liveness = s.opts.Liveness.Classify(sample.CapturedAt, now)
	}

	return domain.TechnicianSnapshot{
		TechnicianID: tech.ID,
		Name:         tech.Name,
		Phone:        tech.Phone,
		Email:        tech.Email,
		Location:     sample,
		ActiveJobs:   active,
		Liveness:     liveness,
	}
}

// recordError surfaces a failed cycle to readers while retaining the
// last-known-good snapshot collection.
func (s *Synchronizer) recordError(err error) error {
	s.lastErr.Store(&errBox{err: err})
	s.log.Warn().Err(err).Msg("refresh cycle failed, keeping last-known-good snapshots")
	return err
}
