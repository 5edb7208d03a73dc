package ingest_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/ingest-service/internal/ingest"
	"jobmate/ingest-service/internal/model"
)

// fakeStore scripts the repository surface the coordinator drives.
type fakeStore struct {
	existing  map[string]bool
	storedIDs []string // ids AddBatchOptimized reports as attempted
	existsErr error
	insertErr error

	existsCalls int
	insertCalls int
	inserted    []model.VacancyRecord
}

func (f *fakeStore) ExistsBatch(_ context.Context, records []model.VacancyRecord) (map[string]bool, error) {
	f.existsCalls++
	if f.existsErr != nil {
		return nil, f.existsErr
	}
	result := make(map[string]bool, len(records))
	for _, rec := range records {
		result[rec.ID] = f.existing[rec.ID]
	}
	return result, nil
}

func (f *fakeStore) AddBatchOptimized(_ context.Context, records []model.VacancyRecord) ([]string, error) {
	f.insertCalls++
	f.inserted = records
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	if f.storedIDs != nil {
		return f.storedIDs, nil
	}
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		ids = append(ids, rec.ID)
	}
	return ids, nil
}

func allowed(ids ...string) map[string]struct{} {
	return ingest.ParseAllowList(ids)
}

func sourceRecord(id, title, employerID string) model.VacancyRecord {
	return model.VacancyRecord{
		ID:         id,
		Title:      title,
		URL:        "https://example.com/" + id,
		Source:     "hh",
		EmployerID: &employerID,
	}
}

func TestIngest_FullPipelineSummary(t *testing.T) {
	// r5 is filtered out, r1 already stored, r4 duplicates r2 in-batch,
	// and the store reports r3 as discarded (invalid).
	r1 := sourceRecord("1", "Go Developer", "10")
	r2 := sourceRecord("2", "Data Engineer", "10")
	r3 := sourceRecord("3", "Platform Engineer", "10")
	r4 := sourceRecord("4", "data engineer", "10")
	r5 := sourceRecord("5", "Go Developer", "99")

	store := &fakeStore{
		existing:  map[string]bool{"1": true},
		storedIDs: []string{"2"},
	}
	c := ingest.NewCoordinator(store, ingest.NewDeduplicator(ingest.FingerprintComposite), nil)

	sum, err := c.Ingest(context.Background(), []model.VacancyRecord{r1, r2, r3, r4, r5}, allowed("10"))
	require.NoError(t, err)

	assert.Equal(t, 5, sum.Received)
	assert.Equal(t, 1, sum.FilteredOut)
	assert.Equal(t, 2, sum.Duplicates) // r1 stored + r4 in-batch
	assert.Equal(t, 1, sum.Invalid)    // r3 discarded by the store
	assert.Equal(t, 1, sum.Stored)
	assert.Equal(t, []string{"2"}, sum.StoredIDs)

	require.Len(t, store.inserted, 2)
	assert.Equal(t, "2", store.inserted[0].ID)
	assert.Equal(t, "3", store.inserted[1].ID)
}

func TestIngest_NoAllowListIngestsEverything(t *testing.T) {
	store := &fakeStore{}
	c := ingest.NewCoordinator(store, ingest.NewDeduplicator(ingest.FingerprintComposite), nil)

	sum, err := c.Ingest(context.Background(), []model.VacancyRecord{
		sourceRecord("1", "Go Developer", "10"),
		sourceRecord("2", "Data Engineer", "20"),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, sum.FilteredOut)
	assert.Equal(t, 2, sum.Stored)
}

func TestIngest_ExistenceFailureAborts(t *testing.T) {
	boom := errors.New("connection lost")
	store := &fakeStore{existsErr: boom}
	c := ingest.NewCoordinator(store, ingest.NewDeduplicator(ingest.FingerprintComposite), nil)

	_, err := c.Ingest(context.Background(), []model.VacancyRecord{
		sourceRecord("1", "Go Developer", "10"),
	}, nil)
	require.ErrorIs(t, err, boom)
	assert.Zero(t, store.insertCalls, "insert must not run after a failed existence check")
}

func TestIngest_InsertFailureAborts(t *testing.T) {
	boom := errors.New("constraint violated")
	store := &fakeStore{insertErr: boom}
	c := ingest.NewCoordinator(store, ingest.NewDeduplicator(ingest.FingerprintComposite), nil)

	_, err := c.Ingest(context.Background(), []model.VacancyRecord{
		sourceRecord("1", "Go Developer", "10"),
	}, nil)
	require.ErrorIs(t, err, boom)
}

func TestIngest_EmptyBatch(t *testing.T) {
	store := &fakeStore{}
	c := ingest.NewCoordinator(store, ingest.NewDeduplicator(ingest.FingerprintComposite), nil)

	sum, err := c.Ingest(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Zero(t, sum.Received)
	assert.Zero(t, sum.Stored)
	assert.Zero(t, store.existsCalls, "empty batch must not touch the store")
}

func TestFilterStats_AccumulateAcrossIngests(t *testing.T) {
	store := &fakeStore{}
	c := ingest.NewCoordinator(store, ingest.NewDeduplicator(ingest.FingerprintComposite), nil)

	_, err := c.Ingest(context.Background(), []model.VacancyRecord{
		sourceRecord("1", "Go Developer", "10"),
		sourceRecord("2", "Data Engineer", "99"),
	}, allowed("10"))
	require.NoError(t, err)

	matched, unmatched := c.FilterStats()
	assert.Equal(t, []string{"10"}, matched)
	assert.Equal(t, []string{"99"}, unmatched)
}
