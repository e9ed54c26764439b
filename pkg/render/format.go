// Package render turns tokmon values into plain text for terminals and
// chat messages.
package render

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/pario-ai/tokmon/pkg/models"
)

// FormatTokens renders a count as 1.23M, 4.5K or the plain number.
func FormatTokens(n int64) string {
	abs := n
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= 1_000_000:
		return fmt.Sprintf("%.2fM", float64(n)/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// FormatCost renders USD with more digits for small amounts.
func FormatCost(c float64) string {
	sign := ""
	if c < 0 {
		sign = "-"
		c = -c
	}
	switch {
	case c >= 1:
		return sign + "$" + humanize.FormatFloat("#,###.##", c)
	case c >= 0.01:
		return fmt.Sprintf("%s$%.3f", sign, c)
	default:
		return fmt.Sprintf("%s$%.4f", sign, c)
	}
}

// FormatPercent renders a signed percent change.
func FormatPercent(p float64) string {
	return fmt.Sprintf("%+.1f%%", p)
}

// FormatCount renders an integer with thousands separators.
func FormatCount(n int64) string {
	return humanize.Comma(n)
}

// SourceLabel is the display name of a source.
func SourceLabel(id models.SourceID) string {
	switch id {
	case models.SourceClaudeCode:
		return "Claude Code"
	case models.SourceMoltbot:
		return "Moltbot"
	case models.SourceBilling:
		return "Billing"
	default:
		return string(id)
	}
}

func signedTokens(n int64) string {
	if n >= 0 {
		return "+" + FormatTokens(n)
	}
	return FormatTokens(n)
}

func signedCost(c float64) string {
	if c >= 0 {
		return "+" + FormatCost(c)
	}
	return FormatCost(c)
}
