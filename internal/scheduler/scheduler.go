// Package scheduler wires up the cron job that periodically pulls
// records from every registered source and runs them through the
// ingestion pipeline.
package scheduler

import (
	"context"
	"fmt"
	"log"

	"github.com/robfig/cron/v3"

	"jobmate/ingest-service/internal/ingest"
	"jobmate/ingest-service/internal/model"
)

// Source supplies already-parsed vacancy records from one external
// job board. Implementations live outside this module's core.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]model.VacancyRecord, error)
}

// Ingestor is the coordinator surface the scheduler drives.
type Ingestor interface {
	Ingest(ctx context.Context, records []model.VacancyRecord, allow map[string]struct{}) (ingest.Summary, error)
}

// Scheduler wraps robfig/cron and manages the ingestion loop.
type Scheduler struct {
	cron     *cron.Cron
	ingestor Ingestor
	sources  []Source
	allow    map[string]struct{}
	spec     string // cron spec, e.g. "@every 6h"
}

// New creates a Scheduler that fires every intervalHours hours.
func New(ingestor Ingestor, sources []Source, allow map[string]struct{}, intervalHours int) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLogger(cron.DefaultLogger)),
		ingestor: ingestor,
		sources:  sources,
		allow:    allow,
		spec:     fmt.Sprintf("@every %dh", intervalHours),
	}
}

// Start registers the job and starts the scheduler. Also runs one
// cycle immediately so storage is populated without waiting for the
// first tick.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.runCycle(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	log.Printf("[scheduler] Cron started with spec %s", s.spec)

	// Run immediately on startup (non-blocking)
	go s.runCycle(ctx)

	return nil
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Println("[scheduler] Cron stopped")
}

// runCycle fetches from each source and ingests its batch. A failing
// source is logged and skipped; remaining sources still run.
func (s *Scheduler) runCycle(ctx context.Context) {
	log.Println("[scheduler] Ingest cycle started")

	if len(s.sources) == 0 {
		log.Println("[scheduler] No sources registered, nothing to ingest")
		return
	}

	for _, src := range s.sources {
		records, err := src.Fetch(ctx)
		if err != nil {
			log.Printf("[scheduler] Fetch error from %s: %v, continuing", src.Name(), err)
			continue
		}
		if len(records) == 0 {
			log.Printf("[scheduler] Source %s returned no records", src.Name())
			continue
		}

		sum, err := s.ingestor.Ingest(ctx, records, s.allow)
		if err != nil {
			log.Printf("[scheduler] Ingest error for %s: %v", src.Name(), err)
			continue
		}
		log.Printf("[scheduler] Source %s: stored=%d duplicates=%d invalid=%d",
			src.Name(), sum.Stored, sum.Duplicates, sum.Invalid)
	}

	log.Println("[scheduler] Ingest cycle complete")
}
