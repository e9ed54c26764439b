// Package normalize merges per-source usage records into one view.
package normalize

import (
	"sort"

	"github.com/pario-ai/tokmon/pkg/models"
)

// Normalize merges records into a NormalizedUsage. A later record for the
// same source replaces an earlier one. Sources listed in expected that
// supplied no record are reported as missing. It never fails.
func Normalize(records []models.UsageRecord, expected ...models.SourceID) models.NormalizedUsage {
	out := models.NormalizedUsage{
		Sources: make(map[models.SourceID]models.UsageRecord, len(records)),
		ByModel: make(map[models.SourceID]map[string]models.TokenCounts, len(records)),
	}

	for _, rec := range records {
		out.Sources[rec.Source] = rec
		if breakdown := modelBreakdown(rec); breakdown != nil {
			out.ByModel[rec.Source] = breakdown
		} else {
			delete(out.ByModel, rec.Source)
		}
	}

	seen := make(map[models.SourceID]bool, len(expected))
	for _, id := range expected {
		if seen[id] {
			continue
		}
		seen[id] = true
		if _, ok := out.Sources[id]; !ok {
			out.Missing = append(out.Missing, id)
		}
	}
	sort.Slice(out.Missing, func(i, j int) bool { return out.Missing[i] < out.Missing[j] })
	return out
}

func modelBreakdown(rec models.UsageRecord) map[string]models.TokenCounts {
	if len(rec.ByModel) > 0 {
		m := make(map[string]models.TokenCounts, len(rec.ByModel))
		for name, tc := range rec.ByModel {
			m[name] = tc
		}
		return m
	}
	if rec.Model != nil {
		return map[string]models.TokenCounts{*rec.Model: rec.Tokens}
	}
	return nil
}
