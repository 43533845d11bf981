package finance

import (
	"context"
	"fmt"

	"martelinho/internal/core"
	"martelinho/internal/log"
	"martelinho/internal/storage"
)

// MonthDetail lists the records of one calendar month with their total and
// average value.
type MonthDetail struct {
	Month   Window
	Records []core.ServiceRecord
	Total   core.Money
	Average core.Money
}

// MonthTrend is one row of the trailing-months table.
type MonthTrend struct {
	Month   Window
	Summary core.PeriodSummary
	Growth  GrowthRate
}

// Dashboard is the read side consumed by the UI and the CLI.
type Dashboard struct {
	table  storage.Table
	agg    *Aggregator
	logger *log.Logger
}

func NewDashboard(table storage.Table, opts ...AggregatorOption) *Dashboard {
	agg := NewAggregator(table, opts...)
	return &Dashboard{table: table, agg: agg, logger: agg.logger}
}

// CurrentPeriodSummaries returns the five current-period summaries for now.
func (d *Dashboard) CurrentPeriodSummaries(ctx context.Context, tenantID string, now core.Date) ([]core.PeriodSummary, error) {
	return d.agg.Aggregate(ctx, tenantID, CurrentPeriods(now))
}

// TrailingMonthlySummaries returns count monthly summaries before now's
// month, most recent first.
func (d *Dashboard) TrailingMonthlySummaries(ctx context.Context, tenantID string, now core.Date, count int) ([]core.PeriodSummary, error) {
	return d.agg.Aggregate(ctx, tenantID, TrailingMonths(now, count))
}

// Trend combines the trailing monthly summaries with their growth rates.
func (d *Dashboard) Trend(ctx context.Context, tenantID string, now core.Date, count int) ([]MonthTrend, error) {
	windows := TrailingMonths(now, count)
	summaries, err := d.agg.Aggregate(ctx, tenantID, windows)
	if err != nil {
		return nil, err
	}
	growth := GrowthSeries(summaries)
	out := make([]MonthTrend, len(windows))
	for i := range windows {
		out[i] = MonthTrend{Month: windows[i], Summary: summaries[i], Growth: growth[i]}
	}
	return out, nil
}

// MonthDetail loads every record of month's calendar month, newest first.
// Rows that cannot be parsed are skipped; their values are unknown.
func (d *Dashboard) MonthDetail(ctx context.Context, tenantID string, month core.Date) (MonthDetail, error) {
	if tenantID == "" {
		return MonthDetail{}, core.ErrEmptyTenant
	}
	w := MonthWindow(month)
	q := storage.From(tenantID).
		Between(storage.ColServiceDate, w.Start.String(), w.End.String()).
		Order(storage.ColServiceDate, true)

	rows, err := d.table.Select(ctx, q)
	if err != nil {
		return MonthDetail{}, fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, w.Label, err)
	}

	detail := MonthDetail{Month: w, Records: make([]core.ServiceRecord, 0, len(rows))}
	for _, row := range rows {
		rec, err := storage.ParseRow(row)
		if err != nil {
			d.logger.WarnContext(ctx, "Skipping unreadable service row",
				log.FieldTenantID, tenantID,
				log.FieldMonth, w.Label,
				log.FieldError, err)
			continue
		}
		detail.Records = append(detail.Records, rec)
		detail.Total.Cents += rec.ServiceValue.Cents
	}
	detail.Average = core.PeriodSummary{Total: detail.Total, Count: len(detail.Records)}.Average()
	return detail, nil
}
