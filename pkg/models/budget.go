package models

// BudgetPeriod defines the time window a cost threshold applies to.
type BudgetPeriod string

const (
	BudgetDaily  BudgetPeriod = "daily"
	BudgetWeekly BudgetPeriod = "weekly"
)

// BudgetThreshold is a cost ceiling, optionally scoped to one source.
type BudgetThreshold struct {
	Name    string       `json:"name" yaml:"name"`
	Source  SourceID     `json:"source,omitempty" yaml:"source,omitempty"`
	MaxCost float64      `json:"max_cost" yaml:"max_cost"`
	Period  BudgetPeriod `json:"period" yaml:"period"`
}

// BudgetStatus shows current cost against a threshold.
type BudgetStatus struct {
	Threshold BudgetThreshold `json:"threshold"`
	Spent     float64         `json:"spent"`
	Remaining float64         `json:"remaining"`
	Exceeded  bool            `json:"exceeded"`
}
