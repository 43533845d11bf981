package finance

import "martelinho/internal/core"

// GrowthRate is the percentage change of a month against the previous one.
// Applicable is false for the oldest month of a series, which has nothing
// to compare against; Percent is then meaningless and must not be shown as 0.
type GrowthRate struct {
	Percent    float64
	Applicable bool
}

// Growth computes the month-over-month change of two totals. A previous
// total of zero yields exactly 100.
func Growth(current, previous core.Money) float64 {
	if previous.Cents == 0 {
		return 100
	}
	return float64(current.Cents-previous.Cents) / float64(previous.Cents) * 100
}

// GrowthSeries derives the growth of each summary against the next (older)
// one. summaries must be ordered most recent first. The result has the same
// length; its last entry is not applicable.
func GrowthSeries(summaries []core.PeriodSummary) []GrowthRate {
	out := make([]GrowthRate, len(summaries))
	for i := 0; i+1 < len(summaries); i++ {
		out[i] = GrowthRate{
			Percent:    Growth(summaries[i].Total, summaries[i+1].Total),
			Applicable: true,
		}
	}
	return out
}
