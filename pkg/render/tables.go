package render

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/pario-ai/tokmon/pkg/models"
)

// CostTable renders per-model costs grouped by source.
func CostTable(cb models.CostBreakdown) string {
	if len(cb.Models) == 0 && len(cb.Unpriced) == 0 {
		return "No cost data found.\n"
	}
	rows := append([]models.ModelCost(nil), cb.Models...)
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Source != rows[j].Source {
			return rows[i].Source < rows[j].Source
		}
		return rows[i].TotalCost > rows[j].TotalCost
	})

	var b strings.Builder
	fmt.Fprintf(&b, "%-12s %-36s %10s %10s %10s %12s\n",
		"SOURCE", "MODEL", "INPUT", "OUTPUT", "CACHE", "EST. COST")
	b.WriteString(strings.Repeat("-", 95) + "\n")
	for _, m := range rows {
		fmt.Fprintf(&b, "%-12s %-36s %10s %10s %10s %12s\n",
			m.Source, truncate(m.Model, 36),
			FormatTokens(m.Tokens.Input), FormatTokens(m.Tokens.Output),
			FormatTokens(m.Tokens.CacheRead+m.Tokens.CacheWrite),
			FormatCost(m.TotalCost))
	}
	b.WriteString(strings.Repeat("-", 95) + "\n")

	sources := make([]models.SourceID, 0, len(cb.BySource))
	for id := range cb.BySource {
		sources = append(sources, id)
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i] < sources[j] })
	for _, id := range sources {
		fmt.Fprintf(&b, "%82s %12s\n", SourceLabel(id)+" subtotal:", FormatCost(cb.BySource[id]))
	}
	fmt.Fprintf(&b, "%82s %12s\n", "TOTAL:", FormatCost(cb.TotalCost))

	if len(cb.Unpriced) > 0 {
		b.WriteString("\nUnpriced models (excluded from totals):\n")
		for _, u := range cb.Unpriced {
			fmt.Fprintf(&b, "  %s %s (%s tokens)\n", u.Source, u.Model, FormatTokens(u.Tokens.Total()))
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "~"
}

// PricingTable writes the rate table, USD per million tokens.
func PricingTable(w io.Writer, entries []models.PriceEntry, aliases map[string]string) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tINPUT\tOUTPUT\tCACHE READ\tCACHE WRITE")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t$%.4g\t$%.4g\t$%.4g\t$%.4g\n",
			e.Model, e.InputRate, e.OutputRate, e.CacheReadRate, e.CacheWriteRate)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if len(aliases) == 0 {
		return nil
	}
	names := make([]string, 0, len(aliases))
	for a := range aliases {
		names = append(names, a)
	}
	sort.Strings(names)
	fmt.Fprintln(w, "\nAliases:")
	for _, a := range names {
		fmt.Fprintf(w, "  %s -> %s\n", a, aliases[a])
	}
	return nil
}

// HistoryTable writes one row per snapshot.
func HistoryTable(w io.Writer, snaps []models.Snapshot) error {
	if len(snaps) == 0 {
		_, err := fmt.Fprintln(w, "No snapshots found.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tINPUT\tOUTPUT\tCACHE\tTOTAL TOKENS\tSESSIONS\tEST. COST\tMISSING")
	for _, s := range snaps {
		t := s.Usage.Totals()
		missing := "-"
		if len(s.Usage.Missing) > 0 {
			ids := make([]string, len(s.Usage.Missing))
			for i, id := range s.Usage.Missing {
				ids[i] = string(id)
			}
			missing = strings.Join(ids, ",")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			s.Date, FormatCount(t.Input), FormatCount(t.Output),
			FormatCount(t.CacheRead+t.CacheWrite), FormatCount(t.Total()),
			s.Usage.Sessions(), FormatCost(s.Cost.TotalCost), missing)
	}
	return tw.Flush()
}

// Trend renders a trend report.
func Trend(rep models.TrendReport) string {
	var b strings.Builder
	if rep.DaysWithData == 0 {
		fmt.Fprintf(&b, "No snapshots in the last %d days.\n", rep.WindowDays)
		return b.String()
	}
	fmt.Fprintf(&b, "Trend %s to %s (%d days, %d with data)\n",
		rep.Start, rep.End, rep.WindowDays, rep.DaysWithData)
	fmt.Fprintf(&b, "  Tokens:       %s\n", FormatTokens(rep.TotalTokens))
	fmt.Fprintf(&b, "  Cost:         %s\n", FormatCost(rep.TotalCost))
	fmt.Fprintf(&b, "  Avg tokens/d: %s\n", FormatTokens(int64(rep.AvgTokensPerDay)))
	fmt.Fprintf(&b, "  Avg cost/d:   %s\n", FormatCost(rep.AvgCostPerDay))
	if d := rep.DayOverDay; d != nil {
		fmt.Fprintf(&b, "  %s vs %s: tokens %s (%s), cost %s (%s)\n",
			d.To, d.From,
			signedTokens(d.TotalTokens), FormatPercent(d.TokenPct),
			signedCost(d.Cost), FormatPercent(d.CostPct))
	}
	if p := rep.Previous; p != nil {
		fmt.Fprintf(&b, "  Previous %s to %s: tokens %s, cost %s\n",
			p.Start, p.End, FormatTokens(p.TotalTokens), FormatCost(p.TotalCost))
		fmt.Fprintf(&b, "  Change: tokens %s, cost %s\n",
			FormatPercent(rep.TokenChangePct), FormatPercent(rep.CostChangePct))
	}
	return b.String()
}

// BudgetTable writes threshold statuses.
func BudgetTable(w io.Writer, statuses []models.BudgetStatus) error {
	if len(statuses) == 0 {
		_, err := fmt.Fprintln(w, "No budget thresholds configured.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSOURCE\tPERIOD\tLIMIT\tSPENT\tREMAINING\tSTATUS")
	for _, s := range statuses {
		src := string(s.Threshold.Source)
		if src == "" {
			src = "*"
		}
		period := string(s.Threshold.Period)
		if period == "" {
			period = string(models.BudgetDaily)
		}
		state := "ok"
		if s.Exceeded {
			state = "EXCEEDED"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			s.Threshold.Name, src, period,
			FormatCost(s.Threshold.MaxCost), FormatCost(s.Spent), FormatCost(s.Remaining), state)
	}
	return tw.Flush()
}

// Alert renders the notification text for exceeded thresholds.
func Alert(date models.Date, exceeded []models.BudgetStatus) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Token Monitor cost alert %s\n", date)
	for _, s := range exceeded {
		fmt.Fprintf(&b, "%s: %s spent, limit %s\n",
			s.Threshold.Name, FormatCost(s.Spent), FormatCost(s.Threshold.MaxCost))
	}
	return b.String()
}

// RunsTable writes cycle runs.
func RunsTable(w io.Writer, runs []models.CycleRun) error {
	if len(runs) == 0 {
		_, err := fmt.Fprintln(w, "No runs found.")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tJOB\tDATE\tSTATUS\tDURATION\tERROR")
	for _, r := range runs {
		errText := r.Error
		if errText == "" {
			errText = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.StartedAt.Local().Format("2006-01-02T15:04:05"), r.Job, r.Date, r.Status,
			r.Duration.Round(time.Millisecond), errText)
	}
	return tw.Flush()
}
