package core

// PeriodSummary is the aggregate of service values over one time window.
type PeriodSummary struct {
	Period string
	Total  Money
	Count  int
}

// Average returns Total/Count rounded to the centavo, or zero without records.
func (s PeriodSummary) Average() Money {
	if s.Count == 0 {
		return Money{}
	}
	n := int64(s.Count)
	return Money{Cents: (s.Total.Cents + n/2) / n}
}
