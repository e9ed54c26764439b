package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/pario-ai/tokmon/pkg/models"
	"github.com/pario-ai/tokmon/pkg/trend"
)

// ReportTitle heads every daily report.
const ReportTitle = "Token Monitor Daily Report"

// Report is the input of DailyReport.
type Report struct {
	Date     models.Date
	Snapshot *models.Snapshot
	// Previous is the most recent snapshot before Date, if any.
	Previous *models.Snapshot
	// CatchUp marks a report sent for a missed day.
	CatchUp     bool
	GeneratedAt time.Time
}

// DailyReport renders the chat-friendly report text.
func DailyReport(r Report) string {
	var b strings.Builder
	b.WriteString(ReportTitle + "\n")
	header := r.Date.String()
	if !r.GeneratedAt.IsZero() {
		header += " (generated " + r.GeneratedAt.Format("2006-01-02 15:04") + ")"
	}
	if r.CatchUp {
		header += " [catch-up]"
	}
	b.WriteString(header + "\n")

	if r.Snapshot == nil {
		fmt.Fprintf(&b, "\nNo usage snapshot was recorded for %s.\n", r.Date)
		return b.String()
	}

	snap := r.Snapshot
	for _, id := range snap.Usage.SourceIDs() {
		rec := snap.Usage.Sources[id]
		fmt.Fprintf(&b, "\n[%s]\n", SourceLabel(id))
		if rec.Reported != nil {
			fmt.Fprintf(&b, "Total: %s %.2f\n", rec.Reported.Currency, rec.Reported.Amount)
		}
		if rec.SessionCount > 0 {
			fmt.Fprintf(&b, "Sessions: %d\n", rec.SessionCount)
		}
		if rec.MessageCount > 0 {
			fmt.Fprintf(&b, "Messages: %d\n", rec.MessageCount)
		}
		if rec.Tokens.Total() > 0 {
			fmt.Fprintf(&b, "Input: %s\n", FormatTokens(rec.Tokens.Input))
			fmt.Fprintf(&b, "Output: %s\n", FormatTokens(rec.Tokens.Output))
			if cache := rec.Tokens.CacheRead + rec.Tokens.CacheWrite; cache > 0 {
				fmt.Fprintf(&b, "Cache: %s\n", FormatTokens(cache))
			}
			fmt.Fprintf(&b, "Total Tokens: %s\n", FormatTokens(rec.Tokens.Total()))
		}
	}

	b.WriteString("\n[Estimated Cost]\n")
	for _, id := range snap.Usage.SourceIDs() {
		if c, ok := snap.Cost.BySource[id]; ok && c > 0 {
			fmt.Fprintf(&b, "%s: %s\n", SourceLabel(id), FormatCost(c))
		}
	}
	fmt.Fprintf(&b, "Total: %s\n", FormatCost(snap.Cost.TotalCost))

	if r.Previous != nil {
		writeComparison(&b, r.Previous, snap)
	}

	if len(snap.Usage.Missing) > 0 {
		names := make([]string, len(snap.Usage.Missing))
		for i, id := range snap.Usage.Missing {
			names[i] = SourceLabel(id)
		}
		fmt.Fprintf(&b, "\nUnavailable: %s\n", strings.Join(names, ", "))
	}
	if snap.Cost.HasUnpriced() {
		names := make([]string, len(snap.Cost.Unpriced))
		for i, u := range snap.Cost.Unpriced {
			names[i] = u.Model
		}
		fmt.Fprintf(&b, "Unpriced: %s\n", strings.Join(names, ", "))
	}
	return b.String()
}

func writeComparison(b *strings.Builder, prev, cur *models.Snapshot) {
	fmt.Fprintf(b, "\n[vs %s]\n", prev.Date)

	prevTokens, curTokens := prev.TotalTokens(), cur.TotalTokens()
	fmt.Fprintf(b, "Tokens: %s (%s)\n",
		signedTokens(curTokens-prevTokens),
		FormatPercent(trend.PercentChange(float64(prevTokens), float64(curTokens))))
	fmt.Fprintf(b, "Cost: %s (%s)\n",
		signedCost(cur.Cost.TotalCost-prev.Cost.TotalCost),
		FormatPercent(trend.PercentChange(prev.Cost.TotalCost, cur.Cost.TotalCost)))

	for _, id := range cur.Usage.SourceIDs() {
		c := cur.Usage.Sources[id]
		p, ok := prev.Usage.Sources[id]
		if !ok {
			continue
		}
		if d := c.SessionCount - p.SessionCount; d != 0 {
			fmt.Fprintf(b, "%s Sessions: %+d\n", SourceLabel(id), d)
		}
		if d := c.MessageCount - p.MessageCount; d != 0 {
			fmt.Fprintf(b, "%s Messages: %+d\n", SourceLabel(id), d)
		}
		if c.Reported != nil && p.Reported != nil && c.Reported.Currency == p.Reported.Currency {
			if d := c.Reported.Amount - p.Reported.Amount; d != 0 {
				fmt.Fprintf(b, "%s: %+.2f %s\n", SourceLabel(id), d, c.Reported.Currency)
			}
		}
	}
}
