package queue

import (
	"context"
	"hash/fnv"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/fieldworks/dispatch-system/internal/core/ports"
	"github.com/fieldworks/dispatch-system/internal/metrics"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// IngestDispatcher routes incoming location samples to a fixed set of
// workers using consistent hashing on the technician ID, guaranteeing
// per-technician sample ordering end to end.
type IngestDispatcher struct {
	workers []chan ports.IngestSampleInput
	service ports.LocationIngestService
	log     zerolog.Logger
}

// NewIngestDispatcher creates a dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewIngestDispatcher(numWorkers int, service ports.LocationIngestService, log zerolog.Logger) *IngestDispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &IngestDispatcher{
		workers: make([]chan ports.IngestSampleInput, numWorkers),
		service: service,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.IngestSampleInput, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *IngestDispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		go d.runWorker(ctx, i, ch)
	}
}

// Enqueue sends a sample to the worker responsible for its technician.
// The call is non-blocking up to channelBuffer capacity.
func (d *IngestDispatcher) Enqueue(sample ports.IngestSampleInput) {
	idx := d.shardIndex(sample.TechnicianID)
	d.workers[idx] <- sample
	metrics.SamplesIngestedTotal.Inc()
	metrics.IngestQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
}

// shardIndex maps a technician ID deterministically to a worker index.
func (d *IngestDispatcher) shardIndex(technicianID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(technicianID))
	return int(h.Sum32()) % len(d.workers)
}

func (d *IngestDispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.IngestSampleInput) {
	workerID := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case sample, ok := <-ch:
			if !ok {
				return
			}
			metrics.IngestQueueDepth.WithLabelValues(workerID).Set(float64(len(ch)))
			if err := d.service.Process(ctx, sample); err != nil {
				d.log.Error().Err(err).
					Str("technician_id", sample.TechnicianID).
					Int("worker_id", id).
					Msg("sample ingestion failed")
			}
		}
	}
}
