package content

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"tandem/internal/models"
)

func answered(userID, text string, at time.Time) models.ResponseRecord {
	return models.ResponseRecord{ID: userID + "-r", UserID: userID, Text: text, RespondedAt: at, Status: models.ResponseAnswered}
}

func itemWith(responses []models.ResponseRecord, legacy map[string]models.ResponseRecord) *models.ContentItem {
	now := time.Date(2024, 5, 1, 21, 0, 0, 0, time.UTC)
	return &models.ContentItem{
		ID:                "c1_2024-05-01",
		CoupleID:          "c1",
		ContentType:       models.TypeQuestion,
		ScheduledDate:     "2024-05-01",
		ScheduledDateTime: now,
		Status:            models.StatusActive,
		Responses:         responses,
		LegacyResponses:   legacy,
	}
}

func TestMergeLastWriteWins(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 21, 5, 0, 0, time.UTC)
	records := []models.ResponseRecord{
		answered("alice", "first", t0),
		answered("bob", "hi", t0),
		answered("alice", "edited", t0.Add(time.Minute)),
	}

	merged := Merge(records)
	assert.Len(t, merged, 2)
	assert.Equal(t, "edited", merged["alice"].Text)

	// Replaying the same list changes nothing.
	assert.Equal(t, merged, Merge(records))
}

func TestBothResponded(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 21, 5, 0, 0, time.UTC)

	assert.False(t, BothResponded(itemWith(nil, nil)))
	assert.False(t, BothResponded(itemWith([]models.ResponseRecord{answered("alice", "a", t0)}, nil)))

	waiting := models.ResponseRecord{UserID: "bob", Status: models.ResponseWaiting}
	assert.False(t, BothResponded(itemWith([]models.ResponseRecord{answered("alice", "a", t0), waiting}, nil)))

	assert.True(t, BothResponded(itemWith([]models.ResponseRecord{answered("alice", "a", t0), answered("bob", "b", t0)}, nil)))

	// Two answers from the same user count once.
	assert.False(t, BothResponded(itemWith([]models.ResponseRecord{answered("alice", "a", t0), answered("alice", "b", t0)}, nil)))
}

func TestModernListWinsWholesale(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 21, 5, 0, 0, time.UTC)
	legacy := map[string]models.ResponseRecord{
		"alice": answered("alice", "legacy-alice", t0),
		"bob":   answered("bob", "legacy-bob", t0),
	}

	// A non-empty modern list hides the legacy map entirely, even when the
	// legacy map knows about a user the list does not.
	item := itemWith([]models.ResponseRecord{answered("alice", "modern", t0)}, legacy)
	rec, ok := CurrentUserResponse(item, "alice")
	assert.True(t, ok)
	assert.Equal(t, "modern", rec.Text)

	_, ok = PartnerResponse(item, "alice")
	assert.False(t, ok)

	// An empty modern list falls back to legacy.
	item = itemWith(nil, legacy)
	rec, ok = PartnerResponse(item, "alice")
	assert.True(t, ok)
	assert.Equal(t, "bob", rec.UserID)
}

func TestShouldShowWaitingMessage(t *testing.T) {
	start := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	now := time.Date(2024, 5, 1, 22, 0, 0, 0, time.UTC)
	window := 24 * time.Hour
	s := settingsAt(1, start)

	t0 := now.Add(-10 * time.Minute)
	own := answered("alice", "done", t0)
	partnerWaiting := models.ResponseRecord{UserID: "bob", Status: models.ResponseWaiting}

	t.Run("waiting when partner has not answered", func(t *testing.T) {
		item := itemWith([]models.ResponseRecord{own, partnerWaiting}, nil)
		assert.True(t, ShouldShowWaitingMessage(item, "alice", s, now, 30, window))
	})

	t.Run("not waiting before own answer", func(t *testing.T) {
		item := itemWith([]models.ResponseRecord{partnerWaiting}, nil)
		assert.False(t, ShouldShowWaitingMessage(item, "alice", s, now, 30, window))
	})

	t.Run("not waiting once both answered", func(t *testing.T) {
		item := itemWith([]models.ResponseRecord{own, answered("bob", "me too", t0)}, nil)
		assert.False(t, ShouldShowWaitingMessage(item, "alice", s, now, 30, window))
	})

	t.Run("not waiting after expiry", func(t *testing.T) {
		item := itemWith([]models.ResponseRecord{own}, nil)
		late := item.ScheduledDateTime.Add(window + time.Hour)
		laterSettings := settingsAt(3, start)
		assert.False(t, ShouldShowWaitingMessage(item, "alice", laterSettings, late, 30, window))
	})

	t.Run("new day supersedes waiting", func(t *testing.T) {
		// A fresh item is due and the held item is yesterday's: the
		// waiting state vanishes even though the partner never answered.
		item := itemWith([]models.ResponseRecord{own, partnerWaiting}, nil)
		nextDay := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
		assert.False(t, ShouldShowWaitingMessage(item, "alice", s, nextDay, 30, window))
	})
}
