package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/pario-ai/tokmon/pkg/models"
)

// ClaudeCode reads the stats cache Claude Code maintains in ~/.claude.
type ClaudeCode struct {
	path  string
	today func() models.Date
}

// NewClaudeCode returns an adapter for the stats cache at path.
func NewClaudeCode(path string, today func() models.Date) *ClaudeCode {
	return &ClaudeCode{path: path, today: today}
}

type claudeStatsCache struct {
	LastComputedDate string                      `json:"lastComputedDate"`
	TotalSessions    int64                       `json:"totalSessions"`
	TotalMessages    int64                       `json:"totalMessages"`
	ModelUsage       map[string]claudeModelUsage `json:"modelUsage"`
}

type claudeModelUsage struct {
	InputTokens              int64 `json:"inputTokens"`
	OutputTokens             int64 `json:"outputTokens"`
	CacheReadInputTokens     int64 `json:"cacheReadInputTokens"`
	CacheCreationInputTokens int64 `json:"cacheCreationInputTokens"`
}

// ID implements Adapter.
func (c *ClaudeCode) ID() models.SourceID { return models.SourceClaudeCode }

// Fetch implements Adapter. A missing file means the source is unavailable.
func (c *ClaudeCode) Fetch(ctx context.Context) (*models.UsageRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read claude stats: %w", err)
	}

	var cache claudeStatsCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("parse claude stats: %w", err)
	}

	rec := &models.UsageRecord{
		Source:       models.SourceClaudeCode,
		SessionCount: cache.TotalSessions,
		MessageCount: cache.TotalMessages,
		AsOf:         c.today(),
		ByModel:      make(map[string]models.TokenCounts, len(cache.ModelUsage)),
	}
	if d, err := models.ParseDate(cache.LastComputedDate); err == nil {
		rec.AsOf = d
	}
	for model, u := range cache.ModelUsage {
		tc := models.TokenCounts{
			Input:      u.InputTokens,
			Output:     u.OutputTokens,
			CacheRead:  u.CacheReadInputTokens,
			CacheWrite: u.CacheCreationInputTokens,
		}
		rec.ByModel[model] = tc
		rec.Tokens = rec.Tokens.Add(tc)
	}
	return rec, nil
}
