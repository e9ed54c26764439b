// Package source defines the adapter contract for usage telemetry and the
// adapters tokmon ships with.
package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pario-ai/tokmon/pkg/config"
	"github.com/pario-ai/tokmon/pkg/models"
)

// Adapter fetches the current usage of one source. A nil record with a
// nil error also means the source is unavailable.
type Adapter interface {
	ID() models.SourceID
	Fetch(ctx context.Context) (*models.UsageRecord, error)
}

// Status is the outcome of one adapter call.
type Status struct {
	Source  models.SourceID
	OK      bool
	Err     error
	Elapsed time.Duration
}

// Collection is the result of polling every adapter once.
type Collection struct {
	Records  []models.UsageRecord
	Statuses []Status
}

// Expected returns the ids of every polled source.
func (c Collection) Expected() []models.SourceID {
	ids := make([]models.SourceID, len(c.Statuses))
	for i, s := range c.Statuses {
		ids[i] = s.Source
	}
	return ids
}

// Collector polls adapters concurrently.
type Collector struct {
	adapters []Adapter
	timeout  time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewCollector returns a Collector. A zero timeout leaves calls bounded
// only by the caller's context.
func NewCollector(adapters []Adapter, timeout time.Duration, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collector{adapters: adapters, timeout: timeout, logger: logger, now: time.Now}
}

// Adapters returns the configured adapters.
func (c *Collector) Adapters() []Adapter { return c.adapters }

// Collect calls every adapter. Failures and timeouts never abort the
// collection; they are reported in Statuses as ErrSourceUnavailable.
// Records and statuses keep adapter order.
func (c *Collector) Collect(ctx context.Context) Collection {
	records := make([]*models.UsageRecord, len(c.adapters))
	statuses := make([]Status, len(c.adapters))

	var g errgroup.Group
	for i, a := range c.adapters {
		i, a := i, a
		g.Go(func() error {
			start := c.now()
			rec, err := c.fetch(ctx, a)
			st := Status{Source: a.ID(), Elapsed: c.now().Sub(start)}
			switch {
			case err != nil:
				st.Err = fmt.Errorf("%s: %w: %w", a.ID(), models.ErrSourceUnavailable, err)
			case rec == nil:
				st.Err = fmt.Errorf("%s: %w", a.ID(), models.ErrSourceUnavailable)
			default:
				st.OK = true
				r := *rec
				r.Source = a.ID()
				records[i] = &r
			}
			statuses[i] = st

			if st.Err != nil {
				c.logger.Warn("source unavailable",
					zap.String("source", string(a.ID())),
					zap.Duration("elapsed", st.Elapsed),
					zap.Error(st.Err),
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	out := Collection{Statuses: statuses}
	for _, r := range records {
		if r != nil {
			out.Records = append(out.Records, *r)
		}
	}
	return out
}

func (c *Collector) fetch(ctx context.Context, a Adapter) (*models.UsageRecord, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	type result struct {
		rec *models.UsageRecord
		err error
	}
	ch := make(chan result, 1)
	go func() {
		rec, err := a.Fetch(ctx)
		ch <- result{rec, err}
	}()
	select {
	case r := <-ch:
		return r.rec, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// FromConfig builds the enabled adapters. today stamps file-based records.
func FromConfig(cfg config.SourcesConfig, today func() models.Date) []Adapter {
	var adapters []Adapter
	if cfg.ClaudeCode.Enabled {
		adapters = append(adapters, NewClaudeCode(cfg.ClaudeCode.Path, today))
	}
	if cfg.Moltbot.Enabled {
		adapters = append(adapters, NewMoltbot(cfg.Moltbot.Path, today))
	}
	if cfg.Billing.Enabled {
		adapters = append(adapters, NewBilling(cfg.Billing, today))
	}
	return adapters
}

// IsUnavailable reports whether err marks a missing source.
func IsUnavailable(err error) bool {
	return errors.Is(err, models.ErrSourceUnavailable)
}
