package billing

import "time"

// Period is a half-open billing date range [Start, End).
type Period struct {
	Start time.Time
	End   time.Time
}

// MonthOf returns the calendar-month period containing t, in UTC.
func MonthOf(t time.Time) Period {
	t = t.UTC()
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return Period{Start: start, End: start.AddDate(0, 1, 0)}
}

// Key returns the period's identifier in YYYY-MM form. Commission periods
// are keyed by this value per reseller.
func (p Period) Key() string {
	return p.Start.Format("2006-01")
}

// Contains reports whether t falls inside the period.
func (p Period) Contains(t time.Time) bool {
	t = t.UTC()
	return !t.Before(p.Start) && t.Before(p.End)
}

// PeriodForKey parses a YYYY-MM key back into its month period. The second
// return value is false for malformed keys.
func PeriodForKey(key string) (Period, bool) {
	start, err := time.Parse("2006-01", key)
	if err != nil {
		return Period{}, false
	}
	return Period{Start: start, End: start.AddDate(0, 1, 0)}, true
}
