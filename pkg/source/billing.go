package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pario-ai/tokmon/pkg/config"
	"github.com/pario-ai/tokmon/pkg/models"
)

// billingUnitsPerCNY converts the API's total_usage to yuan.
const billingUnitsPerCNY = 10000

// Billing queries an OpenAI-compatible billing usage endpoint. It reports
// account-level spend with no model or token detail.
type Billing struct {
	url    string
	apiKey string
	client *http.Client
	today  func() models.Date
}

// NewBilling returns a billing adapter.
func NewBilling(cfg config.BillingConfig, today func() models.Date) *Billing {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Billing{
		url:    strings.TrimRight(cfg.URL, "/"),
		apiKey: cfg.APIKey,
		client: &http.Client{Timeout: timeout},
		today:  today,
	}
}

type billingUsageResponse struct {
	TotalUsage float64 `json:"total_usage"`
}

// ID implements Adapter.
func (b *Billing) ID() models.SourceID { return models.SourceBilling }

// Fetch implements Adapter. Without an API key the source is unavailable.
func (b *Billing) Fetch(ctx context.Context) (*models.UsageRecord, error) {
	if b.apiKey == "" {
		return nil, nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.url+"/v1/dashboard/billing/usage", nil)
	if err != nil {
		return nil, fmt.Errorf("build billing request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query billing usage: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("billing usage returned status %d", resp.StatusCode)
	}

	var body billingUsageResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode billing usage: %w", err)
	}

	return &models.UsageRecord{
		Source: models.SourceBilling,
		AsOf:   b.today(),
		Reported: &models.ReportedCost{
			Amount:   body.TotalUsage / billingUnitsPerCNY,
			Currency: "CNY",
		},
	}, nil
}
