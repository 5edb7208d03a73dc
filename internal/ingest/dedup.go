package ingest

import (
	"context"
	"crypto/md5"
	"fmt"
	"strings"
	"unicode"

	"jobmate/ingest-service/internal/model"
)

// FingerprintMode selects which fields compose a record's fingerprint.
type FingerprintMode string

const (
	// FingerprintComposite fingerprints (source, normalised title,
	// employer-or-empty). Catches the same vacancy reposted under a
	// different source-local id.
	FingerprintComposite FingerprintMode = "composite"
	// FingerprintSourceID fingerprints (source, id) only.
	FingerprintSourceID FingerprintMode = "source-id"
)

// ExistenceChecker is the slice of the repository the deduplicator
// needs for its storage pass.
type ExistenceChecker interface {
	ExistsBatch(ctx context.Context, records []model.VacancyRecord) (map[string]bool, error)
}

// Deduplicator removes records that share a fingerprint, keeping the
// first occurrence.
type Deduplicator struct {
	mode FingerprintMode
}

func NewDeduplicator(mode FingerprintMode) *Deduplicator {
	if mode == "" {
		mode = FingerprintComposite
	}
	return &Deduplicator{mode: mode}
}

// Fingerprint computes the record's stable deduplication key. Two
// records with equal fingerprints are the same logical vacancy.
func (d *Deduplicator) Fingerprint(rec model.VacancyRecord) string {
	var key string
	switch d.mode {
	case FingerprintSourceID:
		key = fmt.Sprintf("%s|%s", rec.Source, rec.ID)
	default:
		key = fmt.Sprintf("%s|%s|%s", rec.Source, normalizeText(rec.Title), normalizeText(rec.Employer()))
	}
	return fmt.Sprintf("%x", md5.Sum([]byte(key)))
}

// Deduplicate removes in-batch fingerprint duplicates, preserving
// order. First occurrence wins.
func (d *Deduplicator) Deduplicate(records []model.VacancyRecord) []model.VacancyRecord {
	seen := make(map[string]struct{}, len(records))
	unique := make([]model.VacancyRecord, 0, len(records))
	for _, rec := range records {
		fp := d.Fingerprint(rec)
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}
		unique = append(unique, rec)
	}
	return unique
}

// DeduplicateAgainstStore drops records whose id already exists in
// storage, then removes in-batch fingerprint duplicates. One query
// plus an O(n) pass; the existence result can go stale before the
// later insert, which the insert's conflict handling absorbs.
func (d *Deduplicator) DeduplicateAgainstStore(
	ctx context.Context,
	store ExistenceChecker,
	records []model.VacancyRecord,
) ([]model.VacancyRecord, error) {
	if len(records) == 0 {
		return nil, nil
	}

	existing, err := store.ExistsBatch(ctx, records)
	if err != nil {
		return nil, fmt.Errorf("existence check: %w", err)
	}

	fresh := make([]model.VacancyRecord, 0, len(records))
	for _, rec := range records {
		if existing[rec.ID] {
			continue
		}
		fresh = append(fresh, rec)
	}
	return d.Deduplicate(fresh), nil
}

// normalizeText lowercases, strips punctuation and collapses
// whitespace so that cosmetic differences do not defeat matching.
func normalizeText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
