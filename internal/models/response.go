package models

import (
	"time"

	"github.com/google/uuid"
)

type ResponseStatus string

const (
	ResponseWaiting  ResponseStatus = "waiting"
	ResponseAnswered ResponseStatus = "answered"
	ResponseSkipped  ResponseStatus = "skipped"
)

// ResponseRecord is one participant's answer to a content item. At most one
// record exists per (item, user); IsReadByPartner is the only field that may
// change after creation.
type ResponseRecord struct {
	ID              string         `json:"id"`
	UserID          string         `json:"user_id"`
	DisplayName     string         `json:"display_name"`
	Text            string         `json:"text"`
	RespondedAt     time.Time      `json:"responded_at"`
	Status          ResponseStatus `json:"status"`
	IsReadByPartner bool           `json:"is_read_by_partner"`
}

func NewResponseRecord(userID, displayName, text string, at time.Time) ResponseRecord {
	return ResponseRecord{
		ID:          uuid.NewString(),
		UserID:      userID,
		DisplayName: displayName,
		Text:        text,
		RespondedAt: at,
		Status:      ResponseAnswered,
	}
}

type ResponseSourceKind int

const (
	SourceModern ResponseSourceKind = iota
	SourceLegacy
)

// ResponseSource is the tagged pair of representations a content item's
// responses may arrive in: the sub-resource list (modern) or the inline map
// (legacy). The modern form wins wholesale whenever it holds any record; the
// legacy map is consulted only when the list is entirely empty. The two are
// never merged field by field.
type ResponseSource struct {
	Kind   ResponseSourceKind
	Modern []ResponseRecord
	Legacy map[string]ResponseRecord
}

func NewResponseSource(modern []ResponseRecord, legacy map[string]ResponseRecord) ResponseSource {
	if len(modern) > 0 {
		return ResponseSource{Kind: SourceModern, Modern: modern}
	}
	return ResponseSource{Kind: SourceLegacy, Legacy: legacy}
}

// Records flattens the winning representation into a list.
func (rs ResponseSource) Records() []ResponseRecord {
	if rs.Kind == SourceModern {
		return rs.Modern
	}
	out := make([]ResponseRecord, 0, len(rs.Legacy))
	for _, rec := range rs.Legacy {
		out = append(out, rec)
	}
	return out
}

// EffectiveResponses applies the representation precedence to an item.
func (ci *ContentItem) EffectiveResponses() ResponseSource {
	return NewResponseSource(ci.Responses, ci.LegacyResponses)
}
