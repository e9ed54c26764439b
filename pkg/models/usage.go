package models

import (
	"fmt"
	"sort"
)

// SourceID identifies one origin of token-usage telemetry.
type SourceID string

// Built-in sources.
const (
	SourceClaudeCode SourceID = "claude_code"
	SourceMoltbot    SourceID = "moltbot"
	SourceBilling    SourceID = "billing"
)

// TokenCounts holds the four token categories tracked per model or source.
type TokenCounts struct {
	Input      int64 `json:"input"`
	Output     int64 `json:"output"`
	CacheRead  int64 `json:"cache_read"`
	CacheWrite int64 `json:"cache_write"`
}

// Total returns the sum of all categories.
func (t TokenCounts) Total() int64 {
	return t.Input + t.Output + t.CacheRead + t.CacheWrite
}

// Add returns the category-wise sum of t and o.
func (t TokenCounts) Add(o TokenCounts) TokenCounts {
	return TokenCounts{
		Input:      t.Input + o.Input,
		Output:     t.Output + o.Output,
		CacheRead:  t.CacheRead + o.CacheRead,
		CacheWrite: t.CacheWrite + o.CacheWrite,
	}
}

// Sub returns the category-wise difference t - o.
func (t TokenCounts) Sub(o TokenCounts) TokenCounts {
	return TokenCounts{
		Input:      t.Input - o.Input,
		Output:     t.Output - o.Output,
		CacheRead:  t.CacheRead - o.CacheRead,
		CacheWrite: t.CacheWrite - o.CacheWrite,
	}
}

// ReportedCost is an amount a source reports about itself, such as a billing balance.
type ReportedCost struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// UsageRecord is the normalized output of one source adapter for one cycle.
type UsageRecord struct {
	Source       SourceID               `json:"source"`
	Model        *string                `json:"model,omitempty"`
	Tokens       TokenCounts            `json:"tokens"`
	SessionCount int64                  `json:"session_count"`
	MessageCount int64                  `json:"message_count"`
	AsOf         Date                   `json:"as_of"`
	ByModel      map[string]TokenCounts `json:"by_model,omitempty"`
	Reported     *ReportedCost          `json:"reported_cost,omitempty"`
}

// ModelName returns the record's model, or "" for account-level records.
func (r UsageRecord) ModelName() string {
	if r.Model == nil {
		return ""
	}
	return *r.Model
}

// NormalizedUsage is the merged view of one aggregation cycle.
type NormalizedUsage struct {
	Sources map[SourceID]UsageRecord            `json:"sources"`
	ByModel map[SourceID]map[string]TokenCounts `json:"by_model"`
	Missing []SourceID                          `json:"missing,omitempty"`
}

// SourceIDs returns the present sources in sorted order.
func (u NormalizedUsage) SourceIDs() []SourceID {
	ids := make([]SourceID, 0, len(u.Sources))
	for id := range u.Sources {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Totals sums aggregate tokens across present sources.
func (u NormalizedUsage) Totals() TokenCounts {
	var total TokenCounts
	for _, rec := range u.Sources {
		total = total.Add(rec.Tokens)
	}
	return total
}

// Sessions sums session counts across present sources.
func (u NormalizedUsage) Sessions() int64 {
	var n int64
	for _, rec := range u.Sources {
		n += rec.SessionCount
	}
	return n
}

// Messages sums message counts across present sources.
func (u NormalizedUsage) Messages() int64 {
	var n int64
	for _, rec := range u.Sources {
		n += rec.MessageCount
	}
	return n
}

// Validate checks that every per-model breakdown sums to its source's aggregate.
func (u NormalizedUsage) Validate() error {
	for _, id := range u.SourceIDs() {
		models, ok := u.ByModel[id]
		if !ok || len(models) == 0 {
			continue
		}
		var sum TokenCounts
		for _, tc := range models {
			sum = sum.Add(tc)
		}
		if sum != u.Sources[id].Tokens {
			return fmt.Errorf("source %s: model breakdown %+v does not match aggregate %+v",
				id, sum, u.Sources[id].Tokens)
		}
	}
	return nil
}
