package remote

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tandem/internal/models"
)

func TestItemFromDocResponsePrecedence(t *testing.T) {
	doc := &ItemDoc{
		ID:          "c1_2024-05-01",
		CoupleID:    "c1",
		ContentType: "question",
		Status:      "active",
		Responses: map[string]ResponseDoc{
			"alice": {UserID: "alice", Text: "legacy", Status: "answered"},
		},
	}

	// With sub-resource responses present, the legacy map is carried but the
	// modern list wins at read time.
	item := ItemFromDoc(doc, []ResponseDoc{{UserID: "alice", Text: "modern", Status: "answered"}})
	src := item.EffectiveResponses()
	assert.Equal(t, models.SourceModern, src.Kind)
	require.Len(t, src.Records(), 1)
	assert.Equal(t, "modern", src.Records()[0].Text)

	// Without sub-resource responses the legacy map is all there is.
	item = ItemFromDoc(doc, nil)
	src = item.EffectiveResponses()
	assert.Equal(t, models.SourceLegacy, src.Kind)
	require.Len(t, src.Records(), 1)
	assert.Equal(t, "legacy", src.Records()[0].Text)
}

func TestItemToDocDropsLegacyResponses(t *testing.T) {
	item := &models.ContentItem{
		ID:          "c1_2024-05-01",
		CoupleID:    "c1",
		ContentType: models.TypeQuestion,
		Status:      models.StatusOneAnswered,
		Responses:   []models.ResponseRecord{{UserID: "alice", Status: models.ResponseAnswered}},
		LegacyResponses: map[string]models.ResponseRecord{
			"alice": {UserID: "alice", Status: models.ResponseAnswered},
		},
	}

	doc := ItemToDoc(item)
	assert.Empty(t, doc.Responses)
	assert.Equal(t, string(models.StatusOneAnswered), doc.Status)
}

func TestSettingsRoundTrip(t *testing.T) {
	settings := &models.ProgressionSettings{
		CoupleID:    "c1",
		ContentType: models.TypeChallenge,
		StartDate:   time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Timezone:    "Europe/Berlin",
		CurrentDay:  12,
	}

	assert.Equal(t, settings, SettingsFromDoc(SettingsToDoc(settings)))
}
