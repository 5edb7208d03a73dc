package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"jobmate/ingest-service/internal/model"
)

// ingestEventChannel is the Redis pub/sub channel for batch summaries.
const ingestEventChannel = "EVENT_BATCH_INGESTED"

// Store is the repository surface the coordinator drives.
type Store interface {
	ExistsBatch(ctx context.Context, records []model.VacancyRecord) (map[string]bool, error)
	AddBatchOptimized(ctx context.Context, records []model.VacancyRecord) ([]string, error)
}

// Summary reports what happened to one ingested batch.
type Summary struct {
	Received    int      `json:"received"`
	FilteredOut int      `json:"filteredOut"`
	Duplicates  int      `json:"duplicates"`
	Invalid     int      `json:"invalid"`
	Stored      int      `json:"stored"`
	StoredIDs   []string `json:"storedIds,omitempty"`
}

// Coordinator composes filter → dedup → batch insert into one call.
// Each instance owns its filter state and is meant for a single
// logical ingestion flow at a time.
type Coordinator struct {
	filter *AllowListFilter
	dedup  *Deduplicator
	store  Store
	rdb    *redis.Client // nil disables event publishing
}

// NewCoordinator constructs a Coordinator. rdb may be nil.
func NewCoordinator(store Store, dedup *Deduplicator, rdb *redis.Client) *Coordinator {
	return &Coordinator{
		filter: NewAllowListFilter(),
		dedup:  dedup,
		store:  store,
		rdb:    rdb,
	}
}

// FilterStats exposes the allow-list filter's matched/unmatched
// employer ids accumulated across Ingest calls.
func (c *Coordinator) FilterStats() (matched, unmatched []string) {
	return c.filter.Stats()
}

// Ingest runs one batch through the full pipeline. A repository
// failure aborts the call and propagates: partial storage with no
// record of what succeeded would break idempotent re-ingestion.
func (c *Coordinator) Ingest(
	ctx context.Context,
	records []model.VacancyRecord,
	allow map[string]struct{},
) (Summary, error) {
	sum := Summary{Received: len(records)}

	kept := c.filter.Filter(records, allow)
	sum.FilteredOut = len(records) - len(kept)

	unique, err := c.dedup.DeduplicateAgainstStore(ctx, c.store, kept)
	if err != nil {
		return sum, fmt.Errorf("deduplicate: %w", err)
	}
	sum.Duplicates = len(kept) - len(unique)

	stored, err := c.store.AddBatchOptimized(ctx, unique)
	if err != nil {
		return sum, fmt.Errorf("batch insert: %w", err)
	}
	sum.Stored = len(stored)
	sum.StoredIDs = stored
	sum.Invalid = len(unique) - len(stored)

	log.Printf("[ingest] batch done: received=%d filtered=%d duplicates=%d invalid=%d stored=%d",
		sum.Received, sum.FilteredOut, sum.Duplicates, sum.Invalid, sum.Stored)

	c.publishSummary(ctx, sum)
	return sum, nil
}

// publishSummary emits the batch summary on Redis (non-fatal).
func (c *Coordinator) publishSummary(ctx context.Context, sum Summary) {
	if c.rdb == nil {
		return
	}
	event, _ := json.Marshal(sum)
	if err := c.rdb.Publish(ctx, ingestEventChannel, event).Err(); err != nil {
		slog.Warn("publish ingest event failed", "err", err)
	}
}
