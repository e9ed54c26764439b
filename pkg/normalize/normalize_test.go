package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pario-ai/tokmon/pkg/models"
)

func strPtr(s string) *string { return &s }

func TestNormalizeOneOfTwoSources(t *testing.T) {
	rec := models.UsageRecord{
		Source: models.SourceClaudeCode,
		Tokens: models.TokenCounts{Input: 100, Output: 50},
		ByModel: map[string]models.TokenCounts{
			"opus":   {Input: 60, Output: 30},
			"sonnet": {Input: 40, Output: 20},
		},
	}

	u := Normalize([]models.UsageRecord{rec}, models.SourceClaudeCode, models.SourceMoltbot)

	assert.Equal(t, []models.SourceID{models.SourceMoltbot}, u.Missing)
	assert.Equal(t, int64(150), u.Totals().Total())
	require.NoError(t, u.Validate())
	_, present := u.Sources[models.SourceMoltbot]
	assert.False(t, present, "missing source must not appear as zero usage")
}

func TestNormalizeLastRecordWins(t *testing.T) {
	first := models.UsageRecord{
		Source: models.SourceMoltbot,
		Model:  strPtr("gpt-4o"),
		Tokens: models.TokenCounts{Input: 10},
	}
	second := models.UsageRecord{
		Source: models.SourceMoltbot,
		Model:  strPtr("gpt-5"),
		Tokens: models.TokenCounts{Input: 99},
	}

	u := Normalize([]models.UsageRecord{first, second})

	assert.Equal(t, int64(99), u.Sources[models.SourceMoltbot].Tokens.Input)
	assert.Equal(t, map[string]models.TokenCounts{"gpt-5": {Input: 99}}, u.ByModel[models.SourceMoltbot])
	assert.Empty(t, u.Missing)
}

func TestNormalizeAccountLevelRecord(t *testing.T) {
	rec := models.UsageRecord{
		Source:   models.SourceBilling,
		Tokens:   models.TokenCounts{Input: 500},
		Reported: &models.ReportedCost{Amount: 12.5, Currency: "CNY"},
	}
	u := Normalize([]models.UsageRecord{rec}, models.SourceBilling)

	assert.Empty(t, u.Missing)
	assert.NotContains(t, u.ByModel, models.SourceBilling)
	assert.Equal(t, int64(500), u.Totals().Input)
	require.NoError(t, u.Validate())
}

func TestNormalizeEmpty(t *testing.T) {
	u := Normalize(nil, models.SourceClaudeCode)
	assert.Equal(t, []models.SourceID{models.SourceClaudeCode}, u.Missing)
	assert.Zero(t, u.Totals().Total())
}

func TestValidateDetectsMismatch(t *testing.T) {
	rec := models.UsageRecord{
		Source:  models.SourceClaudeCode,
		Tokens:  models.TokenCounts{Input: 100},
		ByModel: map[string]models.TokenCounts{"opus": {Input: 90}},
	}
	u := Normalize([]models.UsageRecord{rec})
	assert.Error(t, u.Validate())
}

func TestNormalizeDoesNotAliasInput(t *testing.T) {
	detail := map[string]models.TokenCounts{"opus": {Input: 1}}
	u := Normalize([]models.UsageRecord{{
		Source:  models.SourceClaudeCode,
		Tokens:  models.TokenCounts{Input: 1},
		ByModel: detail,
	}})
	detail["opus"] = models.TokenCounts{Input: 1000}
	assert.Equal(t, int64(1), u.ByModel[models.SourceClaudeCode]["opus"].Input)
}
