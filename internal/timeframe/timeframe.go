// Package timeframe provides calendar-day bucketing in a reference timezone.
//
// All day boundaries are computed with calendar-date arithmetic (AddDate),
// never elapsed-seconds arithmetic, so "today" and trailing windows stay
// stable across daylight-saving transitions.
package timeframe

import "time"

// DayFormat is the canonical key format for daily counters.
const DayFormat = "2006-01-02"

// DateStat is one point of a daily time series.
type DateStat struct {
	Date  string `json:"date"`
	Count uint64 `json:"count"`
}

// TimeProvider abstracts the clock so query windows are testable.
type TimeProvider interface {
	Now(loc *time.Location) time.Time
}

// DefaultTimeProvider is the default implementation that uses the system clock.
type DefaultTimeProvider struct{}

// Now returns the current time in the given location.
func (p *DefaultTimeProvider) Now(loc *time.Location) time.Time {
	return time.Now().In(loc)
}

// DayKey returns the calendar-date key for t expressed in loc.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DayFormat)
}

// TruncateToDay truncates t to midnight of its calendar day in loc.
func TruncateToDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	localTime := t.In(loc)
	return time.Date(localTime.Year(), localTime.Month(), localTime.Day(), 0, 0, 0, 0, loc)
}

// TrailingDayKeys returns the date keys for the trailing n calendar days
// ending at (and including) the day containing now, chronologically ascending.
func TrailingDayKeys(now time.Time, n int, loc *time.Location) []string {
	if n <= 0 {
		return nil
	}

	end := TruncateToDay(now, loc)
	keys := make([]string, n)
	for i := 0; i < n; i++ {
		// AddDate walks whole calendar days, which keeps the window correct
		// when a DST transition makes a day 23 or 25 hours long.
		day := end.AddDate(0, 0, -(n - 1 - i))
		keys[i] = day.Format(DayFormat)
	}
	return keys
}

// BuildDailySeries materializes a zero-filled ascending series for the
// trailing windowDays calendar days from a sparse map of daily counts.
func BuildDailySeries(counts map[string]uint64, now time.Time, windowDays int, loc *time.Location) []DateStat {
	keys := TrailingDayKeys(now, windowDays, loc)
	series := make([]DateStat, len(keys))
	for i, key := range keys {
		series[i] = DateStat{Date: key, Count: counts[key]}
	}
	return series
}

// SumTrailingDays sums the counts recorded for the trailing n calendar days
// ending at the day containing now.
func SumTrailingDays(counts map[string]uint64, now time.Time, n int, loc *time.Location) uint64 {
	var total uint64
	for _, key := range TrailingDayKeys(now, n, loc) {
		total += counts[key]
	}
	return total
}
