package pricing

import (
	"sort"

	"github.com/pario-ai/tokmon/pkg/models"
)

const perMillion = 1_000_000.0

// Cost prices one set of token counts with an entry.
func Cost(tc models.TokenCounts, e models.PriceEntry) (input, output, cacheRead, cacheWrite float64) {
	input = float64(tc.Input) / perMillion * e.InputRate
	output = float64(tc.Output) / perMillion * e.OutputRate
	cacheRead = float64(tc.CacheRead) / perMillion * e.CacheReadRate
	cacheWrite = float64(tc.CacheWrite) / perMillion * e.CacheWriteRate
	return
}

// Estimate prices every per-model row of usage. Models the table cannot
// resolve are listed in Unpriced and contribute nothing to any total.
func Estimate(usage models.NormalizedUsage, table *Table) models.CostBreakdown {
	out := models.CostBreakdown{
		BySource: make(map[models.SourceID]float64),
	}

	for _, src := range usage.SourceIDs() {
		byModel := usage.ByModel[src]
		names := make([]string, 0, len(byModel))
		for name := range byModel {
			names = append(names, name)
		}
		sort.Strings(names)

		var sourceTotal float64
		for _, name := range names {
			tc := byModel[name]
			entry, pricedAs, ok := table.Lookup(name)
			if !ok {
				out.Unpriced = append(out.Unpriced, models.UnpricedModel{
					Source: src, Model: name, Tokens: tc,
				})
				continue
			}
			in, o, cr, cw := Cost(tc, entry)
			mc := models.ModelCost{
				Source:         src,
				Model:          name,
				PricedAs:       pricedAs,
				Tokens:         tc,
				InputCost:      in,
				OutputCost:     o,
				CacheReadCost:  cr,
				CacheWriteCost: cw,
				CacheCost:      cr + cw,
				TotalCost:      in + o + cr + cw,
			}
			out.Models = append(out.Models, mc)
			sourceTotal += mc.TotalCost
		}
		out.BySource[src] = sourceTotal
		out.TotalCost += sourceTotal
	}
	return out
}
