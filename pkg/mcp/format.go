package mcp

import (
	"fmt"
	"strings"

	"github.com/pario-ai/tokmon/pkg/models"
	"github.com/pario-ai/tokmon/pkg/render"
)

// formatUsage formats a snapshot's per-source usage as a text table.
func formatUsage(snap *models.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Usage for %s\n\n", snap.Date)
	fmt.Fprintf(&b, "%-12s %10s %10s %10s %12s %8s\n",
		"Source", "Input", "Output", "Cache", "Total", "Sessions")
	b.WriteString(strings.Repeat("-", 67) + "\n")
	for _, id := range snap.Usage.SourceIDs() {
		rec := snap.Usage.Sources[id]
		fmt.Fprintf(&b, "%-12s %10s %10s %10s %12s %8d\n",
			render.SourceLabel(id),
			render.FormatTokens(rec.Tokens.Input),
			render.FormatTokens(rec.Tokens.Output),
			render.FormatTokens(rec.Tokens.CacheRead+rec.Tokens.CacheWrite),
			render.FormatTokens(rec.Tokens.Total()),
			rec.SessionCount)
	}
	total := snap.Usage.Totals()
	fmt.Fprintf(&b, "\nTotal: %s tokens, %s estimated\n",
		render.FormatTokens(total.Total()), render.FormatCost(snap.Cost.TotalCost))
	if len(snap.Usage.Missing) > 0 {
		names := make([]string, len(snap.Usage.Missing))
		for i, id := range snap.Usage.Missing {
			names[i] = render.SourceLabel(id)
		}
		fmt.Fprintf(&b, "Unavailable: %s\n", strings.Join(names, ", "))
	}
	return b.String()
}
