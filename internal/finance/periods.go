// Package finance computes the period-bucketed financial summary of a
// tenant's service records: reporting windows, per-window totals and
// month-over-month growth.
package finance

import (
	"martelinho/internal/core"
)

// Labels of the current-period windows.
const (
	LabelToday       = "Hoje"
	LabelThisWeek    = "Esta Semana"
	LabelThisMonth   = "Este Mês"
	LabelThisYear    = "Este Ano"
	LabelLast30Days  = "Últimos 30 dias"
	DefaultTrailing  = 6
	DefaultSelectors = 24
)

// Window is a named inclusive calendar-date range.
type Window struct {
	Label string
	Start core.Date
	End   core.Date
}

// Contains reports whether d falls within the window, bounds included.
func (w Window) Contains(d core.Date) bool {
	return !d.Before(w.Start) && !d.After(w.End)
}

// MonthWindow returns the calendar month containing d, labelled "março 2024".
func MonthWindow(d core.Date) Window {
	return Window{
		Label: core.MonthLabel(d),
		Start: d.StartOfMonth(),
		End:   d.EndOfMonth(),
	}
}

// CurrentPeriods returns the five current reporting windows for ref, in
// display order. Weeks start on Sunday. The month window always spans the
// whole calendar month; days after ref simply hold no records yet.
func CurrentPeriods(ref core.Date) []Window {
	ref = core.DateOf(ref.Time)
	weekStart := ref.AddDays(-int(ref.Weekday()))
	month := MonthWindow(ref)

	return []Window{
		{Label: LabelToday, Start: ref, End: ref},
		{Label: LabelThisWeek, Start: weekStart, End: weekStart.AddDays(6)},
		{Label: LabelThisMonth, Start: month.Start, End: month.End},
		{Label: LabelThisYear, Start: core.NewDate(ref.Year(), 1, 1), End: core.NewDate(ref.Year(), 12, 31)},
		{Label: LabelLast30Days, Start: ref.AddDays(-30), End: ref},
	}
}

// TrailingMonths returns the n calendar months before ref's month,
// most recent first. The month containing ref is not included.
func TrailingMonths(ref core.Date, n int) []Window {
	return months(ref, 1, n)
}

// AvailableMonths returns ref's month followed by the n previous months,
// most recent first; it feeds the month selector.
func AvailableMonths(ref core.Date, n int) []Window {
	return months(ref, 0, n+1)
}

func months(ref core.Date, offset, n int) []Window {
	if n <= 0 {
		return nil
	}
	out := make([]Window, n)
	for i := range out {
		out[i] = MonthWindow(ref.AddMonths(-(offset + i)))
	}
	return out
}
