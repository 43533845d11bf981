package finance

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"martelinho/internal/core"
	"martelinho/internal/log"
	"martelinho/internal/storage"
)

// ErrStorageUnavailable wraps any storage failure during an aggregation.
// The whole report fails; no partial summaries are returned.
var ErrStorageUnavailable = errors.New("storage unavailable")

const defaultConcurrency = 4

// Aggregator sums service values per window for a tenant.
type Aggregator struct {
	table       storage.Table
	concurrency int
	logger      *log.Logger
}

type AggregatorOption func(*Aggregator)

// WithConcurrency bounds the number of window queries in flight.
func WithConcurrency(n int) AggregatorOption {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

func WithLogger(l *log.Logger) AggregatorOption {
	return func(a *Aggregator) {
		if l != nil {
			a.logger = l.WithComponent(log.ComponentFinance)
		}
	}
}

func NewAggregator(table storage.Table, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		table:       table,
		concurrency: defaultConcurrency,
		logger:      log.Discard(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate returns one summary per window, in the order of windows. Each
// window is an independent range query run concurrently. A value that
// cannot be read as money counts as zero but still counts as a record.
func (a *Aggregator) Aggregate(ctx context.Context, tenantID string, windows []Window) ([]core.PeriodSummary, error) {
	if tenantID == "" {
		return nil, core.ErrEmptyTenant
	}
	out := make([]core.PeriodSummary, len(windows))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for i, w := range windows {
		g.Go(func() error {
			s, err := a.aggregateWindow(gctx, tenantID, w)
			if err != nil {
				return err
			}
			out[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		a.logger.WarnContext(ctx, "Aggregation failed",
			log.FieldTenantID, tenantID,
			log.FieldWindows, len(windows),
			log.FieldError, err)
		return nil, err
	}

	a.logger.DebugContext(ctx, "Aggregation completed",
		log.FieldTenantID, tenantID,
		log.FieldWindows, len(windows))
	return out, nil
}

func (a *Aggregator) aggregateWindow(ctx context.Context, tenantID string, w Window) (core.PeriodSummary, error) {
	q := storage.From(tenantID).
		Select(storage.ColServiceValue).
		Between(storage.ColServiceDate, w.Start.String(), w.End.String())

	rows, err := a.table.Select(ctx, q)
	if err != nil {
		return core.PeriodSummary{}, fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, w.Label, err)
	}

	s := core.PeriodSummary{Period: w.Label, Count: len(rows)}
	malformed := 0
	for _, row := range rows {
		cents, ok := core.CoerceCents(row[storage.ColServiceValue])
		if !ok {
			malformed++
			continue
		}
		s.Total.Cents += cents
	}
	if malformed > 0 {
		a.logger.DebugContext(ctx, "Unreadable service values counted as zero",
			log.FieldTenantID, tenantID,
			log.FieldPeriod, w.Label,
			"malformed", malformed)
	}
	return s, nil
}
