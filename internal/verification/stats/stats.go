// Package stats computes aggregate counts and filtered views over a
// verification record snapshot. Everything here is a pure fold: recomputing
// on demand is cheap at dashboard scale and sidesteps the bookkeeping a set
// of incrementally maintained counters would need under concurrent review.
package stats

import (
	"strings"

	"verifica/internal/verification"
)

// Compute folds the record snapshot into aggregate counts.
func Compute(records []*verification.Record) verification.Stats {
	s := verification.Stats{
		DocumentsByType: make(map[verification.DocumentType]int),
	}
	for _, rec := range records {
		s.Total++
		switch rec.Status {
		case verification.StatusPending:
			s.Pending++
		case verification.StatusApproved:
			s.Approved++
		case verification.StatusRejected:
			s.Rejected++
		}
		for docType, docs := range rec.Documents {
			s.TotalDocuments += len(docs)
			s.DocumentsByType[docType] += len(docs)
		}
	}
	return s
}

// Apply narrows records by the filter. Absent fields are no-ops; set fields
// compose with AND. Pagination applies after the predicates.
func Apply(records []*verification.Record, filter verification.Filter) []*verification.Record {
	out := make([]*verification.Record, 0, len(records))
	for _, rec := range records {
		if !matches(rec, filter) {
			continue
		}
		out = append(out, rec)
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out
}

func matches(rec *verification.Record, filter verification.Filter) bool {
	if filter.Status != "" && filter.Status != "all" && string(rec.Status) != filter.Status {
		return false
	}
	if filter.Search != "" && !matchesSearch(rec, filter.Search) {
		return false
	}
	if filter.DocumentType != "" && len(rec.Documents[filter.DocumentType]) == 0 {
		return false
	}
	return true
}

// matchesSearch is a case-insensitive substring match against provider name,
// email, or phone.
func matchesSearch(rec *verification.Record, search string) bool {
	needle := strings.ToLower(search)
	for _, field := range []string{rec.ProviderName, rec.ProviderEmail, rec.ProviderPhone} {
		if field != "" && strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}
