package source

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pario-ai/tokmon/pkg/config"
	"github.com/pario-ai/tokmon/pkg/models"
)

var testDay = models.MustParseDate("2026-02-05")

func fixedToday() models.Date { return testDay }

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestClaudeCodeFetch(t *testing.T) {
	path := writeFile(t, "stats-cache.json", `{
		"lastComputedDate": "2026-02-04",
		"totalSessions": 12,
		"totalMessages": 340,
		"modelUsage": {
			"claude-opus-4-5-20251101": {"inputTokens": 4300, "outputTokens": 106600, "cacheReadInputTokens": 1000, "cacheCreationInputTokens": 200},
			"claude-sonnet-4-5-20250514": {"inputTokens": 100, "outputTokens": 50}
		}
	}`)

	rec, err := NewClaudeCode(path, fixedToday).Fetch(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, models.SourceClaudeCode, rec.Source)
	assert.Equal(t, int64(12), rec.SessionCount)
	assert.Equal(t, int64(340), rec.MessageCount)
	assert.Equal(t, models.MustParseDate("2026-02-04"), rec.AsOf)
	assert.Len(t, rec.ByModel, 2)
	assert.Equal(t, models.TokenCounts{Input: 4400, Output: 106650, CacheRead: 1000, CacheWrite: 200}, rec.Tokens)
	assert.Nil(t, rec.Model)
}

func TestClaudeCodeMissingFile(t *testing.T) {
	rec, err := NewClaudeCode(filepath.Join(t.TempDir(), "nope.json"), fixedToday).Fetch(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, rec)
}

func TestClaudeCodeCorruptFile(t *testing.T) {
	path := writeFile(t, "stats-cache.json", `{not json`)
	_, err := NewClaudeCode(path, fixedToday).Fetch(context.Background())
	assert.Error(t, err)
}

func TestMoltbotFetch(t *testing.T) {
	path := writeFile(t, "sessions.json", `{
		"a": {"modelProvider": "google", "model": "gemini-3-pro", "inputTokens": 100, "outputTokens": 10},
		"b": {"modelProvider": "google", "model": "gemini-3-pro", "inputTokens": 200, "outputTokens": 20},
		"c": {"modelProvider": "openai", "model": "gpt-4o", "inputTokens": 5, "outputTokens": 1},
		"d": {"inputTokens": 1},
		"version": 3
	}`)

	rec, err := NewMoltbot(path, fixedToday).Fetch(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rec)

	assert.Equal(t, int64(4), rec.SessionCount)
	assert.Equal(t, testDay, rec.AsOf)
	assert.Equal(t, models.TokenCounts{Input: 300, Output: 30}, rec.ByModel["google/gemini-3-pro"])
	assert.Equal(t, models.TokenCounts{Input: 5, Output: 1}, rec.ByModel["openai/gpt-4o"])
	assert.Equal(t, models.TokenCounts{Input: 1}, rec.ByModel["unknown/unknown"])
	assert.Equal(t, models.TokenCounts{Input: 306, Output: 31}, rec.Tokens)
}

func TestBillingFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/dashboard/billing/usage", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"total_usage": 125000}`))
	}))
	defer srv.Close()

	b := NewBilling(config.BillingConfig{URL: srv.URL + "/", APIKey: "sk-test"}, fixedToday)
	rec, err := b.Fetch(context.Background())
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.NotNil(t, rec.Reported)
	assert.InDelta(t, 12.5, rec.Reported.Amount, 1e-12)
	assert.Equal(t, "CNY", rec.Reported.Currency)
	assert.Zero(t, rec.Tokens.Total())
}

func TestBillingErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewBilling(config.BillingConfig{URL: srv.URL, APIKey: "bad"}, fixedToday).Fetch(context.Background())
	assert.Error(t, err)

	rec, err := NewBilling(config.BillingConfig{URL: srv.URL}, fixedToday).Fetch(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, rec, "no key means unavailable")
}

type fakeAdapter struct {
	id    models.SourceID
	rec   *models.UsageRecord
	err   error
	delay time.Duration
}

func (f fakeAdapter) ID() models.SourceID { return f.id }

func (f fakeAdapter) Fetch(ctx context.Context) (*models.UsageRecord, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.rec, f.err
}

func TestCollectIsolatesFailures(t *testing.T) {
	good := &models.UsageRecord{Tokens: models.TokenCounts{Input: 7}}
	c := NewCollector([]Adapter{
		fakeAdapter{id: models.SourceClaudeCode, rec: good},
		fakeAdapter{id: models.SourceMoltbot, err: errors.New("boom")},
		fakeAdapter{id: models.SourceBilling, delay: time.Second},
	}, 50*time.Millisecond, zap.NewNop())

	col := c.Collect(context.Background())

	require.Len(t, col.Records, 1)
	assert.Equal(t, models.SourceClaudeCode, col.Records[0].Source)
	require.Len(t, col.Statuses, 3)
	assert.True(t, col.Statuses[0].OK)
	assert.True(t, IsUnavailable(col.Statuses[1].Err))
	assert.True(t, IsUnavailable(col.Statuses[2].Err))
	assert.True(t, errors.Is(col.Statuses[2].Err, context.DeadlineExceeded))
	assert.Equal(t,
		[]models.SourceID{models.SourceClaudeCode, models.SourceMoltbot, models.SourceBilling},
		col.Expected())
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default().Sources
	cfg.Billing.Enabled = true
	adapters := FromConfig(cfg, fixedToday)
	require.Len(t, adapters, 3)
	assert.Equal(t, models.SourceBilling, adapters[2].ID())

	cfg.ClaudeCode.Enabled = false
	assert.Len(t, FromConfig(cfg, fixedToday), 2)
}
