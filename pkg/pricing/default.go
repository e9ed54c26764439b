package pricing

import "github.com/pario-ai/tokmon/pkg/models"

// defaultEntries are USD per million tokens.
var defaultEntries = []models.PriceEntry{
	// Claude
	{Model: "claude-opus-4-5-20250514", InputRate: 15, OutputRate: 75, CacheReadRate: 1.5, CacheWriteRate: 18.75},
	{Model: "claude-opus-4-5-20251101", InputRate: 15, OutputRate: 75, CacheReadRate: 1.5, CacheWriteRate: 18.75},
	{Model: "claude-sonnet-4-5-20250514", InputRate: 3, OutputRate: 15, CacheReadRate: 0.3, CacheWriteRate: 3.75},
	{Model: "claude-sonnet-4-5-20241022", InputRate: 3, OutputRate: 15, CacheReadRate: 0.3, CacheWriteRate: 3.75},
	{Model: "claude-haiku-4-5-20250514", InputRate: 0.8, OutputRate: 4, CacheReadRate: 0.08, CacheWriteRate: 1},
	// Gemini
	{Model: "gemini-3-pro", InputRate: 1.25, OutputRate: 10, CacheReadRate: 0.125, CacheWriteRate: 1.25},
	{Model: "gemini-3-flash", InputRate: 0.075, OutputRate: 0.3, CacheReadRate: 0.0075, CacheWriteRate: 0.075},
	{Model: "gemini-2.0-flash", InputRate: 0.075, OutputRate: 0.3, CacheReadRate: 0.0075, CacheWriteRate: 0.075},
	{Model: "gemini-2.0-flash-exp", InputRate: 0.075, OutputRate: 0.3, CacheReadRate: 0.0075, CacheWriteRate: 0.075},
	// OpenAI
	{Model: "gpt-5", InputRate: 5, OutputRate: 15, CacheReadRate: 0.5, CacheWriteRate: 5},
	{Model: "gpt-4o", InputRate: 2.5, OutputRate: 10, CacheReadRate: 0.25, CacheWriteRate: 2.5},
	{Model: "gpt-4o-mini", InputRate: 0.15, OutputRate: 0.6, CacheReadRate: 0.015, CacheWriteRate: 0.15},
	// DeepSeek
	{Model: "deepseek-chat", InputRate: 0.27, OutputRate: 1.1, CacheReadRate: 0.027, CacheWriteRate: 0.27},
	{Model: "deepseek-reasoner", InputRate: 0.55, OutputRate: 2.19, CacheReadRate: 0.055, CacheWriteRate: 0.55},
}

var defaultAliases = map[string]string{
	"opus":         "claude-opus-4-5-20250514",
	"sonnet":       "claude-sonnet-4-5-20250514",
	"haiku":        "claude-haiku-4-5-20250514",
	"gemini-pro":   "gemini-3-pro",
	"gemini-flash": "gemini-3-flash",
}

// Default returns the built-in pricing table.
func Default() *Table {
	t, err := NewTable(defaultEntries, defaultAliases)
	if err != nil {
		panic("pricing: invalid default table: " + err.Error())
	}
	return t
}
