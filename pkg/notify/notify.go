// Package notify delivers report and alert text to external channels.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/pario-ai/tokmon/pkg/config"
	"github.com/pario-ai/tokmon/pkg/models"
)

// Kind classifies a message.
type Kind string

const (
	KindReport Kind = "report"
	KindAlert  Kind = "alert"
)

// Message is one notification.
type Message struct {
	ID      string
	Kind    Kind
	Date    models.Date
	Subject string
	Body    string
	SentAt  time.Time
}

// Notifier delivers a message to one channel.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, msg Message) error
}

// Dispatcher fans a message out to every notifier, pacing consecutive
// sends so a catch-up burst does not flood the channels.
type Dispatcher struct {
	notifiers []Notifier
	limiter   *rate.Limiter
	logger    *zap.Logger
}

// NewDispatcher returns a Dispatcher. A non-positive minInterval disables pacing.
func NewDispatcher(notifiers []Notifier, minInterval time.Duration, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	limit := rate.Inf
	if minInterval > 0 {
		limit = rate.Every(minInterval)
	}
	return &Dispatcher{
		notifiers: notifiers,
		limiter:   rate.NewLimiter(limit, 1),
		logger:    logger,
	}
}

// Channels returns the notifier names.
func (d *Dispatcher) Channels() []string {
	names := make([]string, len(d.notifiers))
	for i, n := range d.notifiers {
		names[i] = n.Name()
	}
	return names
}

// Send delivers msg to every notifier. Delivery is at least once: the
// returned error joins every channel failure, and a retry resends to all.
func (d *Dispatcher) Send(ctx context.Context, msg Message) error {
	if len(d.notifiers) == 0 {
		return errors.New("no notification channels configured")
	}
	if err := d.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for send slot: %w", err)
	}
	if msg.SentAt.IsZero() {
		msg.SentAt = time.Now()
	}

	var errs []error
	for _, n := range d.notifiers {
		if err := n.Notify(ctx, msg); err != nil {
			d.logger.Warn("notification failed",
				zap.String("channel", n.Name()),
				zap.String("kind", string(msg.Kind)),
				zap.Stringer("date", msg.Date),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
			continue
		}
		d.logger.Debug("notification sent",
			zap.String("channel", n.Name()),
			zap.String("kind", string(msg.Kind)),
		)
	}
	return errors.Join(errs...)
}

// FromConfig builds the enabled notifiers.
func FromConfig(cfg config.NotifyConfig, logger *zap.Logger) []Notifier {
	var out []Notifier
	if cfg.Command.Enabled {
		out = append(out, NewCommand(cfg.Command))
	}
	if cfg.Webhook.Enabled {
		out = append(out, NewWebhook(cfg.Webhook, logger))
	}
	if cfg.Log {
		out = append(out, NewLog(logger))
	}
	return out
}
