package scheduler_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"jobmate/ingest-service/internal/ingest"
	"jobmate/ingest-service/internal/model"
	"jobmate/ingest-service/internal/scheduler"
)

type stubSource struct {
	name    string
	records []model.VacancyRecord
	err     error
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(context.Context) ([]model.VacancyRecord, error) {
	return s.records, s.err
}

type recordingIngestor struct {
	mu      sync.Mutex
	batches [][]model.VacancyRecord
	done    chan struct{}
}

func (r *recordingIngestor) Ingest(_ context.Context, records []model.VacancyRecord, _ map[string]struct{}) (ingest.Summary, error) {
	r.mu.Lock()
	r.batches = append(r.batches, records)
	r.mu.Unlock()
	select {
	case r.done <- struct{}{}:
	default:
	}
	return ingest.Summary{Received: len(records), Stored: len(records)}, nil
}

func waitFor(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the startup ingest cycle")
	}
}

func TestStart_RunsStartupCycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ingestor := &recordingIngestor{done: make(chan struct{}, 1)}
	src := &stubSource{
		name: "hh",
		records: []model.VacancyRecord{
			{ID: "1", Title: "Go Developer", URL: "https://example.com/1", Source: "hh"},
		},
	}

	s := scheduler.New(ingestor, []scheduler.Source{src}, nil, 6)
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	waitFor(t, ingestor.done)

	ingestor.mu.Lock()
	defer ingestor.mu.Unlock()
	if len(ingestor.batches) == 0 || len(ingestor.batches[0]) != 1 {
		t.Fatalf("expected the startup cycle to ingest the source batch, got %v", ingestor.batches)
	}
}

func TestStart_FailingSourceDoesNotBlockOthers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ingestor := &recordingIngestor{done: make(chan struct{}, 1)}
	broken := &stubSource{name: "hh", err: errors.New("rate limited")}
	healthy := &stubSource{
		name: "sj",
		records: []model.VacancyRecord{
			{ID: "2", Title: "Data Engineer", URL: "https://example.com/2", Source: "sj"},
		},
	}

	s := scheduler.New(ingestor, []scheduler.Source{broken, healthy}, nil, 6)
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	waitFor(t, ingestor.done)

	ingestor.mu.Lock()
	defer ingestor.mu.Unlock()
	if len(ingestor.batches) != 1 {
		t.Fatalf("expected exactly the healthy source's batch, got %d batches", len(ingestor.batches))
	}
	if ingestor.batches[0][0].ID != "2" {
		t.Errorf("wrong batch ingested: %v", ingestor.batches[0])
	}
}
