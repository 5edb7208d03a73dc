package ingest

import (
	"sort"

	"jobmate/ingest-service/internal/model"
)

// AllowListFilter narrows a batch to records from allowed employers.
// An empty allow-list passes everything through unchanged; this
// default-open policy keeps the pipeline usable with no allow-list
// configured at all.
type AllowListFilter struct {
	matched   map[string]struct{}
	unmatched map[string]struct{}
}

func NewAllowListFilter() *AllowListFilter {
	return &AllowListFilter{
		matched:   make(map[string]struct{}),
		unmatched: make(map[string]struct{}),
	}
}

// ParseAllowList turns a list of employer ids into the set form Filter
// expects. Nil or empty input yields an empty set ("allow all").
func ParseAllowList(ids []string) map[string]struct{} {
	allow := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id != "" {
			allow[id] = struct{}{}
		}
	}
	return allow
}

// Filter returns the records whose employer id is in allow, preserving
// order. With an empty allow set the input is returned as-is.
func (f *AllowListFilter) Filter(records []model.VacancyRecord, allow map[string]struct{}) []model.VacancyRecord {
	if len(allow) == 0 {
		return records
	}

	kept := make([]model.VacancyRecord, 0, len(records))
	for _, rec := range records {
		id := rec.EmployerIDOrEmpty()
		if id == "" {
			continue
		}
		if _, ok := allow[id]; ok {
			f.matched[id] = struct{}{}
			kept = append(kept, rec)
		} else {
			f.unmatched[id] = struct{}{}
		}
	}
	return kept
}

// Stats returns the employer ids seen so far that matched and did not
// match the allow-list, sorted for stable output.
func (f *AllowListFilter) Stats() (matched, unmatched []string) {
	matched = sortedKeys(f.matched)
	unmatched = sortedKeys(f.unmatched)
	return matched, unmatched
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
