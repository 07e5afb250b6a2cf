package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/fieldworks/dispatch-system/internal/core/ports"
)

type recordingService struct {
	mu        sync.Mutex
	processed map[string][]time.Time
}

func (s *recordingService) Process(_ context.Context, in ports.IngestSampleInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.processed == nil {
		s.processed = make(map[string][]time.Time)
	}
	s.processed[in.TechnicianID] = append(s.processed[in.TechnicianID], in.CapturedAt)
	return nil
}

func (s *recordingService) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, samples := range s.processed {
		n += len(samples)
	}
	return n
}

func TestShardIndex_Deterministic(t *testing.T) {
	d := NewIngestDispatcher(8, &recordingService{}, zerolog.Nop())
	for _, id := range []string{"t1", "t2", "a-long-technician-identifier"} {
		first := d.shardIndex(id)
		for i := 0; i < 10; i++ {
			if got := d.shardIndex(id); got != first {
				t.Fatalf("shardIndex(%q) unstable: %d then %d", id, first, got)
			}
		}
		if first < 0 || first >= 8 {
			t.Fatalf("shardIndex(%q) = %d, out of range", id, first)
		}
	}
}

func TestDispatcher_PreservesPerTechnicianOrder(t *testing.T) {
	svc := &recordingService{}
	d := NewIngestDispatcher(4, svc, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	d.Start(ctx)

	const perTech = 50
	techs := []string{"t1", "t2", "t3", "t4", "t5"}
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < perTech; i++ {
		for _, id := range techs {
			d.Enqueue(ports.IngestSampleInput{TechnicianID: id, CapturedAt: base.Add(time.Duration(i) * time.Second)})
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for svc.count() < perTech*len(techs) && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := svc.count(); got != perTech*len(techs) {
		t.Fatalf("processed %d samples, want %d", got, perTech*len(techs))
	}

	svc.mu.Lock()
	defer svc.mu.Unlock()
	for id, seen := range svc.processed {
		for i := 1; i < len(seen); i++ {
			if seen[i].Before(seen[i-1]) {
				t.Fatalf("technician %s samples processed out of order at %d", id, i)
			}
		}
	}
}

func TestDispatcher_DefaultWorkerCount(t *testing.T) {
	d := NewIngestDispatcher(0, &recordingService{}, zerolog.Nop())
	if len(d.workers) != defaultWorkers {
		t.Errorf("got %d workers, want %d", len(d.workers), defaultWorkers)
	}
}

func TestDispatcher_FansOutAcrossWorkers(t *testing.T) {
	d := NewIngestDispatcher(8, &recordingService{}, zerolog.Nop())
	shards := make(map[int]bool)
	for i := 0; i < 64; i++ {
		shards[d.shardIndex(fmt.Sprintf("tech-%d", i))] = true
	}
	if len(shards) < 2 {
		t.Errorf("64 technicians landed on %d shard(s), expected a spread", len(shards))
	}
}
