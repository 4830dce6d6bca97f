package models

import (
	"time"
)

type ItemStatus string

const (
	StatusPending      ItemStatus = "pending"
	StatusActive       ItemStatus = "active"
	StatusOneAnswered  ItemStatus = "oneAnswered"
	StatusBothAnswered ItemStatus = "bothAnswered"
	StatusExpired      ItemStatus = "expired"
	StatusSkipped      ItemStatus = "skipped"
)

// itemTransitions holds the allowed status edges. bothAnswered, expired and
// skipped are terminal.
var itemTransitions = map[ItemStatus][]ItemStatus{
	StatusPending:     {StatusActive, StatusSkipped},
	StatusActive:      {StatusOneAnswered, StatusExpired, StatusSkipped},
	StatusOneAnswered: {StatusBothAnswered, StatusExpired},
}

func (s ItemStatus) CanTransition(to ItemStatus) bool {
	for _, next := range itemTransitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

func (s ItemStatus) Terminal() bool {
	return s == StatusBothAnswered || s == StatusExpired || s == StatusSkipped
}

const ScheduledDateLayout = "2006-01-02"

// ContentItem is a single day's question or challenge for one couple.
// ScheduledDate is the identity anchor; ScheduledDateTime is only the release
// instant used for expiry.
type ContentItem struct {
	ID                string                    `json:"id"`
	CoupleID          string                    `json:"couple_id"`
	ContentType       ContentType               `json:"content_type"`
	Category          string                    `json:"category"`
	ContentKey        string                    `json:"content_key"`
	Day               int                       `json:"day"`
	ScheduledDate     string                    `json:"scheduled_date"`
	ScheduledDateTime time.Time                 `json:"scheduled_date_time"`
	Status            ItemStatus                `json:"status"`
	Timezone          string                    `json:"timezone"`
	CreatedAt         time.Time                 `json:"created_at"`
	UpdatedAt         time.Time                 `json:"updated_at"`
	Responses         []ResponseRecord          `json:"responses,omitempty"`
	LegacyResponses   map[string]ResponseRecord `json:"legacy_responses,omitempty"`
}

// ItemID derives the idempotent upsert key: at most one item may exist per
// couple and scheduled date.
func ItemID(coupleID, scheduledDate string) string {
	return coupleID + "_" + scheduledDate
}

// ReleaseInstant returns the 21:00 release moment of date in loc.
func ReleaseInstant(date time.Time, releaseHour int, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), releaseHour, 0, 0, 0, loc)
}

// IsExpired reports whether the answer window has closed with fewer than two
// answered responses. Terminal items never expire again.
func (ci *ContentItem) IsExpired(now time.Time, answerWindow time.Duration) bool {
	if ci.Status.Terminal() {
		return ci.Status == StatusExpired
	}
	return now.Sub(ci.ScheduledDateTime) > answerWindow
}

// Transition applies a status change if the edge is allowed and reports
// whether anything changed.
func (ci *ContentItem) Transition(to ItemStatus, at time.Time) bool {
	if !ci.Status.CanTransition(to) {
		return false
	}
	ci.Status = to
	ci.UpdatedAt = at
	return true
}
