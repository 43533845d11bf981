package finance

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"martelinho/internal/core"
	"martelinho/internal/storage"
)

func TestAggregateEmpty(t *testing.T) {
	agg := NewAggregator(newTable(t))
	got, err := agg.Aggregate(context.Background(), tenant, CurrentPeriods(day(2024, time.March, 1)))
	require.NoError(t, err)
	require.Len(t, got, 5)
	for _, s := range got {
		assert.Equal(t, int64(0), s.Total.Cents, s.Period)
		assert.Equal(t, 0, s.Count, s.Period)
	}
}

func TestAggregateToleratesMalformedValues(t *testing.T) {
	tbl := newTable(t,
		[2]any{"2024-01-10", "abc"},
		[2]any{"2024-01-11", "150.50"},
		[2]any{"2024-01-12", nil},
		[2]any{"2024-01-13", float64(49.5)},
	)
	got, err := NewAggregator(tbl).Aggregate(context.Background(), tenant, []Window{MonthWindow(day(2024, time.January, 1))})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(20000), got[0].Total.Cents)
	assert.Equal(t, 4, got[0].Count)
}

func TestAggregateMalformedOnlyCountsAsZero(t *testing.T) {
	tbl := newTable(t, [2]any{"2024-01-10", "abc"})
	got, err := NewAggregator(tbl).Aggregate(context.Background(), tenant, []Window{MonthWindow(day(2024, time.January, 1))})
	require.NoError(t, err)
	assert.Equal(t, core.PeriodSummary{Period: "janeiro 2024", Total: core.Money{}, Count: 1}, got[0])
}

func TestAggregateSQLiteOutOfRangeValuesCountAsZero(t *testing.T) {
	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "agg.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	tbl := store.Services()
	seed(t, tbl, tenant,
		[2]any{"2024-02-05", "9e999"},
		[2]any{"2024-03-05", "100"},
		[2]any{"2024-03-06", "9e999"},
		[2]any{"2024-03-07", "1e30"},
		[2]any{"2024-03-08", "-5"},
	)
	agg := NewAggregator(tbl)

	got, err := agg.Aggregate(context.Background(), tenant, []Window{MonthWindow(day(2024, time.February, 1))})
	require.NoError(t, err)
	assert.Equal(t, int64(0), got[0].Total.Cents)
	assert.Equal(t, 1, got[0].Count)

	got, err = agg.Aggregate(context.Background(), tenant, []Window{MonthWindow(day(2024, time.March, 1))})
	require.NoError(t, err)
	assert.Equal(t, int64(10000), got[0].Total.Cents)
	assert.Equal(t, 4, got[0].Count)
}

func TestAggregatePreservesWindowOrder(t *testing.T) {
	tbl := newTable(t,
		[2]any{"2023-06-15", "10"},
		[2]any{"2023-09-15", "20"},
		[2]any{"2023-12-15", "30"},
	)
	windows := TrailingMonths(day(2024, time.January, 10), 12)
	for _, limit := range []int{1, 3, 12} {
		got, err := NewAggregator(tbl, WithConcurrency(limit)).Aggregate(context.Background(), tenant, windows)
		require.NoError(t, err)
		require.Len(t, got, 12)
		for i, w := range windows {
			assert.Equal(t, w.Label, got[i].Period)
		}
		assert.Equal(t, int64(3000), got[0].Total.Cents)  // dezembro 2023
		assert.Equal(t, int64(2000), got[3].Total.Cents)  // setembro 2023
		assert.Equal(t, int64(1000), got[6].Total.Cents)  // junho 2023
		assert.Equal(t, int64(0), got[11].Total.Cents)
	}
}

func TestAggregateScopesEveryQuery(t *testing.T) {
	tbl := newTable(t, [2]any{"2024-03-01", "100"})
	seed(t, tbl, "other-tenant", [2]any{"2024-03-01", "999"})
	rec := &recordingTable{Table: tbl}

	got, err := NewAggregator(rec).Aggregate(context.Background(), tenant, CurrentPeriods(day(2024, time.March, 1)))
	require.NoError(t, err)
	assert.Equal(t, int64(10000), got[0].Total.Cents)

	require.Len(t, rec.queries, 5)
	for _, q := range rec.queries {
		assert.Equal(t, tenant, q.TenantID)
		assert.Equal(t, []string{storage.ColServiceValue}, q.Columns)
		require.Len(t, q.Filters, 2)
		assert.Equal(t, storage.OpGte, q.Filters[0].Op)
		assert.Equal(t, storage.OpLte, q.Filters[1].Op)
	}
}

func TestAggregateFailsWhole(t *testing.T) {
	rec := &recordingTable{Table: newTable(t, [2]any{"2024-02-10", "150"}), failOn: "2024-01-01"}
	got, err := NewAggregator(rec).Aggregate(context.Background(), tenant, TrailingMonths(day(2024, time.March, 1), 2))
	require.Error(t, err)
	assert.Nil(t, got)
	assert.True(t, errors.Is(err, ErrStorageUnavailable))
	assert.True(t, errors.Is(err, errBackendDown))
	assert.Contains(t, err.Error(), "janeiro 2024")
}

func TestAggregateRequiresTenant(t *testing.T) {
	_, err := NewAggregator(newTable(t)).Aggregate(context.Background(), "", CurrentPeriods(day(2024, time.March, 1)))
	assert.ErrorIs(t, err, core.ErrEmptyTenant)
}
