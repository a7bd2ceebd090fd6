package common

import "time"

// StartOfDay returns 00:00:00 of t's calendar day in UTC.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns the last representable instant of t's UTC calendar day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).Add(24*time.Hour - time.Microsecond)
}

// DayKey identifies the UTC calendar day of t.
func DayKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

// DayRange returns the [start, end] window covering the last days calendar
// days up to and including now.
func DayRange(now time.Time, days int) (time.Time, time.Time) {
	if days <= 0 {
		days = 1
	}
	return StartOfDay(now.AddDate(0, 0, -days)), EndOfDay(now)
}
