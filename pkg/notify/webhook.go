package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pario-ai/tokmon/pkg/config"
)

// SignatureHeader carries the HMAC-SHA256 of the request body when a secret is set.
const SignatureHeader = "X-Tokmon-Signature"

// Webhook posts messages as JSON to an HTTP endpoint.
type Webhook struct {
	url     string
	secret  string
	headers map[string]string
	client  *http.Client
	logger  *zap.Logger
}

// WebhookPayload is the JSON body sent to the endpoint.
type WebhookPayload struct {
	ID        string `json:"id,omitempty"`
	Kind      string `json:"kind"`
	Date      string `json:"date"`
	Subject   string `json:"subject"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// NewWebhook returns a webhook notifier.
func NewWebhook(cfg config.WebhookChannel, logger *zap.Logger) *Webhook {
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Webhook{
		url:     cfg.URL,
		secret:  cfg.Secret,
		headers: cfg.Headers,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Name implements Notifier.
func (w *Webhook) Name() string { return "webhook" }

// Notify implements Notifier.
func (w *Webhook) Notify(ctx context.Context, msg Message) error {
	payload := WebhookPayload{
		ID:        msg.ID,
		Kind:      string(msg.Kind),
		Date:      msg.Date.String(),
		Subject:   msg.Subject,
		Text:      msg.Body,
		Timestamp: msg.SentAt.UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "tokmon")
	for k, v := range w.headers {
		req.Header.Set(k, v)
	}
	if w.secret != "" {
		req.Header.Set(SignatureHeader, Sign(body, w.secret))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	w.logger.Debug("webhook sent",
		zap.String("url", w.url),
		zap.Int("status_code", resp.StatusCode),
	)
	return nil
}

// Sign returns the signature header value for payload.
func Sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a signature produced by Sign.
func VerifySignature(payload []byte, signature, secret string) bool {
	return hmac.Equal([]byte(signature), []byte(Sign(payload, secret)))
}
