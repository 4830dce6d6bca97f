package models

import "time"

type ContentType string

const (
	TypeQuestion  ContentType = "question"
	TypeChallenge ContentType = "challenge"
)

// ProgressionSettings tracks one couple's position in a content rotation.
// CurrentDay is monotonic: it only moves forward, except through Reset.
type ProgressionSettings struct {
	CoupleID      string      `json:"couple_id"`
	ContentType   ContentType `json:"content_type"`
	StartDate     time.Time   `json:"start_date"`
	Timezone      string      `json:"timezone"`
	CurrentDay    int         `json:"current_day"`
	CreatedAt     time.Time   `json:"created_at"`
	LastVisitDate time.Time   `json:"last_visit_date"`
}

func NewProgressionSettings(coupleID string, ct ContentType, startOfDay time.Time, timezone string) *ProgressionSettings {
	now := time.Now().UTC()
	return &ProgressionSettings{
		CoupleID:      coupleID,
		ContentType:   ct,
		StartDate:     startOfDay,
		Timezone:      timezone,
		CurrentDay:    1,
		CreatedAt:     now,
		LastVisitDate: now,
	}
}

// Advance moves CurrentDay to day if that is a forward move. Backward moves
// are ignored so concurrent acknowledgements can never regress progression.
func (ps *ProgressionSettings) Advance(day int, visitedAt time.Time) bool {
	ps.LastVisitDate = visitedAt
	if day <= ps.CurrentDay {
		return false
	}
	ps.CurrentDay = day
	return true
}

// Reset is the administrative restart of a progression cycle.
func (ps *ProgressionSettings) Reset(startOfDay time.Time) {
	ps.StartDate = startOfDay
	ps.CurrentDay = 1
}
