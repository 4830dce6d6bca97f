package cache

import (
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"tandem/internal/models"
)

func testPlan() MigrationPlan {
	return MigrationPlan{
		From: 1,
		To:   models.CurrentSchemaVersion,
		CategoryAliases: map[string]string{
			"For Couples": "en-couple",
			"Challenges":  "en-challenge",
		},
		KnownSlugs: map[string]struct{}{
			"en-couple":    {},
			"en-challenge": {},
		},
	}
}

// seedV1Entry writes an item entry in the pre-slug layout, bypassing Upsert
// so no version field is stamped.
func seedV1Entry(t *testing.T, c *ContentCache, coupleID, date, legacyTitle string) {
	t.Helper()
	v1 := models.CacheEntryV1{
		CoupleID:      coupleID,
		ContentType:   models.TypeQuestion,
		Category:      legacyTitle,
		ScheduledDate: date,
		Item: models.ContentItem{
			ID:            models.ItemID(coupleID, date),
			CoupleID:      coupleID,
			ScheduledDate: date,
			Status:        models.StatusBothAnswered,
		},
		StoredAt: time.Now().UTC(),
	}
	raw, err := json.Marshal(v1)
	require.NoError(t, err)
	data, err := c.compressor.Compress(raw)
	require.NoError(t, err)

	err = c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(itemsBucket).Put(itemKey(coupleID, date), data); err != nil {
			return err
		}
		return tx.Bucket(indexBucket).Put(indexKey(legacyTitle, coupleID, date), itemKey(coupleID, date))
	})
	require.NoError(t, err)
}

func TestMigrateRenamesBankBuckets(t *testing.T) {
	c := newTestCache(t)

	require.NoError(t, c.PutBankItem("For Couples", "daily_question_1", []byte("q1")))
	require.NoError(t, c.PutBankItem("For Couples", "daily_question_2", []byte("q2")))
	// Already-slugged data must be left alone.
	require.NoError(t, c.PutBankItem("en-challenge", "daily_challenge_1", []byte("ch1")))
	// A legacy title from a locale no manifest maps anymore.
	require.NoError(t, c.PutBankItem("Desafíos", "daily_challenge_1", []byte("orphan")))

	require.NoError(t, c.Migrate(testPlan()))

	got, err := c.GetBankItem("en-couple", "daily_question_1")
	require.NoError(t, err)
	assert.Equal(t, []byte("q1"), got)
	got, err = c.GetBankItem("en-couple", "daily_question_2")
	require.NoError(t, err)
	assert.Equal(t, []byte("q2"), got)

	// The old title key no longer resolves.
	got, err = c.GetBankItem("For Couples", "daily_question_1")
	require.NoError(t, err)
	assert.Nil(t, got)

	// Unmapped legacy buckets are dropped outright.
	got, err = c.GetBankItem("Desafíos", "daily_challenge_1")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = c.GetBankItem("en-challenge", "daily_challenge_1")
	require.NoError(t, err)
	assert.Equal(t, []byte("ch1"), got)
}

func TestMigrateRewritesItemEntries(t *testing.T) {
	c := newTestCache(t)

	seedV1Entry(t, c, "c1", "2024-04-30", "For Couples")
	require.NoError(t, c.Migrate(testPlan()))

	entry, err := c.Get("c1", "2024-04-30")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, models.CurrentSchemaVersion, entry.SchemaVersion)
	assert.Equal(t, "en-couple", entry.Category)
	assert.Equal(t, models.StatusBothAnswered, entry.Item.Status)

	counts, err := c.CountByCategory()
	require.NoError(t, err)
	assert.Equal(t, 1, counts["en-couple"])
	assert.Zero(t, counts["For Couples"])
}

func TestMigrateDropsUndecodableEntries(t *testing.T) {
	c := newTestCache(t)

	err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(itemsBucket).Put(itemKey("c1", "2024-04-30"), []byte("not compressed json"))
	})
	require.NoError(t, err)

	require.NoError(t, c.Migrate(testPlan()))

	entry, err := c.Get("c1", "2024-04-30")
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestMigrateIsIdempotent(t *testing.T) {
	c := newTestCache(t)

	require.NoError(t, c.PutBankItem("For Couples", "daily_question_1", []byte("q1")))
	seedV1Entry(t, c, "c1", "2024-04-30", "For Couples")

	require.NoError(t, c.Migrate(testPlan()))

	version, err := c.SchemaVersion()
	require.NoError(t, err)
	require.Equal(t, models.CurrentSchemaVersion, version)

	// The cold-start path runs the check again; a current store only gets
	// its version re-stamped.
	plan := testPlan()
	plan.From = version
	require.NoError(t, c.Migrate(plan))

	got, err := c.GetBankItem("en-couple", "daily_question_1")
	require.NoError(t, err)
	assert.Equal(t, []byte("q1"), got)

	entry, err := c.Get("c1", "2024-04-30")
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, "en-couple", entry.Category)
}

func TestMigrateStampsVersionOnFreshStore(t *testing.T) {
	c := newTestCache(t)

	plan := testPlan()
	plan.From = models.CurrentSchemaVersion
	require.NoError(t, c.Migrate(plan))

	// The marker is now persisted, so later content cannot make the store
	// look pre-versioned again.
	require.NoError(t, c.PutBankItem("en-couple", "daily_question_1", []byte("q1")))
	version, err := c.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, models.CurrentSchemaVersion, version)
}
