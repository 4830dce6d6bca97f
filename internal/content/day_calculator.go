package content

import (
	"errors"
	"tandem/internal/models"
	"time"
)

// ErrEmptyContentPool is returned when a rotation has no items. Callers must
// validate the pool before resolving a day; the calculator never divides by
// zero on their behalf.
var ErrEmptyContentPool = errors.New("content pool is empty")

// DayResolution is the outcome of a single day calculation.
type DayResolution struct {
	// ResolvedDay is the 1-based position inside the rotation, wrapped at
	// totalItems so the cycle repeats indefinitely.
	ResolvedDay int
	// NextDay is the unwrapped progression day the settings should advance
	// to when the caller surfaces the item.
	NextDay int
	// NewItemAvailable reports whether a fresh item is due right now.
	NewItemAvailable bool
}

// ResolveDay decides the current content-cycle day for a couple.
//
// A new item becomes due once at least CurrentDay whole days have elapsed
// since StartDate. The one deliberate exception is the first visit: with
// CurrentDay == 1 and zero elapsed days the item for day 1 is authorized
// immediately, so a couple never waits a full day to see their first content.
func ResolveDay(settings *models.ProgressionSettings, now time.Time, totalItems int) (DayResolution, error) {
	if totalItems <= 0 {
		return DayResolution{}, ErrEmptyContentPool
	}

	daysSinceStart := DaysBetween(settings.StartDate, now)
	shouldIncrement := daysSinceStart >= settings.CurrentDay

	nextDay := settings.CurrentDay
	if shouldIncrement {
		nextDay++
	}

	newItemAvailable := shouldIncrement
	if settings.CurrentDay == 1 && daysSinceStart == 0 {
		// First-day bypass.
		newItemAvailable = true
	}

	return DayResolution{
		ResolvedDay:      ((nextDay - 1) % totalItems) + 1,
		NextDay:          nextDay,
		NewItemAvailable: newItemAvailable,
	}, nil
}
