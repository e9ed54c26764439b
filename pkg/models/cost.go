package models

// PriceEntry defines USD-per-million-token rates for a model.
type PriceEntry struct {
	Model          string  `json:"model" yaml:"model" toml:"model"`
	InputRate      float64 `json:"input_rate" yaml:"input_rate" toml:"input_rate"`
	OutputRate     float64 `json:"output_rate" yaml:"output_rate" toml:"output_rate"`
	CacheReadRate  float64 `json:"cache_read_rate" yaml:"cache_read_rate" toml:"cache_read_rate"`
	CacheWriteRate float64 `json:"cache_write_rate" yaml:"cache_write_rate" toml:"cache_write_rate"`
}

// ModelCost is the estimated cost of one model's usage within one source.
type ModelCost struct {
	Source         SourceID    `json:"source"`
	Model          string      `json:"model"`
	PricedAs       string      `json:"priced_as"`
	Tokens         TokenCounts `json:"tokens"`
	InputCost      float64     `json:"input_cost"`
	OutputCost     float64     `json:"output_cost"`
	CacheReadCost  float64     `json:"cache_read_cost"`
	CacheWriteCost float64     `json:"cache_write_cost"`
	CacheCost      float64     `json:"cache_cost"`
	TotalCost      float64     `json:"total_cost"`
}

// UnpricedModel is a model seen in usage with no matching price entry.
type UnpricedModel struct {
	Source SourceID    `json:"source"`
	Model  string      `json:"model"`
	Tokens TokenCounts `json:"tokens"`
}

// CostBreakdown is the estimated cost of a NormalizedUsage.
type CostBreakdown struct {
	Models    []ModelCost          `json:"models"`
	BySource  map[SourceID]float64 `json:"by_source"`
	Unpriced  []UnpricedModel      `json:"unpriced,omitempty"`
	TotalCost float64              `json:"total_cost"`
}

// HasUnpriced reports whether any model was excluded from the totals.
func (c CostBreakdown) HasUnpriced() bool {
	return len(c.Unpriced) > 0
}
