package content

import (
	"tandem/internal/models"
	"time"
)

// Merge collapses a response list into a per-user map, last write wins. The
// input order is the arrival order, so replaying the same list is idempotent.
func Merge(responses []models.ResponseRecord) map[string]models.ResponseRecord {
	merged := make(map[string]models.ResponseRecord, len(responses))
	for _, rec := range responses {
		merged[rec.UserID] = rec
	}
	return merged
}

// answeredCount counts distinct users with an answered response.
func answeredCount(item *models.ContentItem) int {
	count := 0
	for _, rec := range Merge(item.EffectiveResponses().Records()) {
		if rec.Status == models.ResponseAnswered {
			count++
		}
	}
	return count
}

// BothResponded reports whether two distinct users have answered.
func BothResponded(item *models.ContentItem) bool {
	return answeredCount(item) >= 2
}

// CurrentUserResponse returns the caller's own response, if any.
func CurrentUserResponse(item *models.ContentItem, userID string) (models.ResponseRecord, bool) {
	rec, ok := Merge(item.EffectiveResponses().Records())[userID]
	return rec, ok
}

// PartnerResponse returns the first response from any other user. Couples are
// exactly two participants; with more the result is unspecified.
func PartnerResponse(item *models.ContentItem, userID string) (models.ResponseRecord, bool) {
	for _, rec := range item.EffectiveResponses().Records() {
		if rec.UserID != userID {
			return rec, true
		}
	}
	return models.ResponseRecord{}, false
}

// ShouldShowWaitingMessage decides whether the "waiting for your partner"
// state applies: the caller has answered, the partner has not, the item has
// not expired, and no fresh item is due yet.
//
// The new-day check runs first: the moment a fresh item supersedes a stale
// one the waiting state disappears, regardless of what the partner did with
// the old item. The original clients disagreed on this ordering; this is the
// documented choice here and it is pinned by tests.
func ShouldShowWaitingMessage(item *models.ContentItem, userID string, settings *models.ProgressionSettings, now time.Time, totalItems int, answerWindow time.Duration) bool {
	res, err := ResolveDay(settings, now, totalItems)
	if err != nil {
		return false
	}
	if res.NewItemAvailable && item.ScheduledDate != now.UTC().Format(models.ScheduledDateLayout) {
		return false
	}

	if item.IsExpired(now, answerWindow) {
		return false
	}

	own, ok := CurrentUserResponse(item, userID)
	if !ok || own.Status != models.ResponseAnswered {
		return false
	}
	partner, ok := PartnerResponse(item, userID)
	if ok && partner.Status == models.ResponseAnswered {
		return false
	}
	return true
}
