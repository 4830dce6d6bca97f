// Package content implements the daily progression engine: the timezone-stable
// day clock, the rotation day calculator, the response aggregator and the
// screen route calculator. Everything here is pure; persistence and remote
// I/O live in internal/cache and internal/services.
package content

import "time"

// DaysBetween returns the number of whole calendar days between reference and
// now, with both instants normalized to midnight UTC first. Two partners in
// different local timezones therefore always agree on the count, and DST
// transitions cannot produce off-by-one days.
func DaysBetween(reference, now time.Time) int {
	return int(MidnightUTC(now).Sub(MidnightUTC(reference)).Hours() / 24)
}

// MidnightUTC truncates t to the start of its UTC calendar day.
func MidnightUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}
