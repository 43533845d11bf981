package finance

import (
	"context"
	"sync"

	"martelinho/internal/core"
)

// Tracker hands out increasing request generations. Starting a generation
// cancels the context of the previous one, so a superseded request stops
// early and its result can be recognized as stale.
type Tracker struct {
	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// Begin starts a new generation derived from ctx.
func (t *Tracker) Begin(ctx context.Context) (context.Context, uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	t.gen++
	t.cancel = cancel
	return ctx, t.gen
}

// IsCurrent reports whether gen is the latest generation.
func (t *Tracker) IsCurrent(gen uint64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return gen == t.gen
}

// Done releases the context of gen if it is still current.
func (t *Tracker) Done(gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen == t.gen && t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
}

// Cancel abandons the in-flight generation, e.g. when the dashboard closes.
func (t *Tracker) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.gen++
}

// MonthState is what the month view currently shows.
type MonthState struct {
	Generation uint64
	Detail     MonthDetail
	Err        error
}

// MonthView keeps the detail of the selected month for one tenant. Only the
// result of the most recent selection is ever applied.
type MonthView struct {
	dashboard *Dashboard
	tenantID  string
	tracker   Tracker

	mu    sync.Mutex
	state MonthState
}

func NewMonthView(d *Dashboard, tenantID string) *MonthView {
	return &MonthView{dashboard: d, tenantID: tenantID}
}

// Select loads month and applies the result unless a newer selection was
// made meanwhile. applied is false for a superseded selection; its error,
// if any, is dropped as well.
func (v *MonthView) Select(ctx context.Context, month core.Date) (applied bool, err error) {
	ctx, gen := v.tracker.Begin(ctx)
	defer v.tracker.Done(gen)

	detail, err := v.dashboard.MonthDetail(ctx, v.tenantID, month)

	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.tracker.IsCurrent(gen) || gen <= v.state.Generation {
		return false, nil
	}
	v.state = MonthState{Generation: gen, Detail: detail, Err: err}
	return true, err
}

// State returns the last applied selection.
func (v *MonthView) State() MonthState {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Close cancels any selection in flight.
func (v *MonthView) Close() {
	v.tracker.Cancel()
}
