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

// Moltbot reads the Moltbot agent sessions file.
type Moltbot struct {
	path  string
	today func() models.Date
}

// NewMoltbot returns an adapter for the sessions file at path.
func NewMoltbot(path string, today func() models.Date) *Moltbot {
	return &Moltbot{path: path, today: today}
}

type moltbotSession struct {
	ModelProvider string `json:"modelProvider"`
	Model         string `json:"model"`
	InputTokens   int64  `json:"inputTokens"`
	OutputTokens  int64  `json:"outputTokens"`
}

// ID implements Adapter.
func (m *Moltbot) ID() models.SourceID { return models.SourceMoltbot }

// Fetch implements Adapter. Sessions are grouped by "provider/model".
// Entries that are not session objects are skipped.
func (m *Moltbot) Fetch(ctx context.Context) (*models.UsageRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(m.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read moltbot sessions: %w", err)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse moltbot sessions: %w", err)
	}

	rec := &models.UsageRecord{
		Source:  models.SourceMoltbot,
		AsOf:    m.today(),
		ByModel: make(map[string]models.TokenCounts),
	}
	for _, msg := range raw {
		var s moltbotSession
		if len(msg) == 0 || msg[0] != '{' {
			continue
		}
		if err := json.Unmarshal(msg, &s); err != nil {
			continue
		}
		rec.SessionCount++
		key := orUnknown(s.ModelProvider) + "/" + orUnknown(s.Model)
		tc := models.TokenCounts{Input: s.InputTokens, Output: s.OutputTokens}
		rec.ByModel[key] = rec.ByModel[key].Add(tc)
		rec.Tokens = rec.Tokens.Add(tc)
	}
	return rec, nil
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}
