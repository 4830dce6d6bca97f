package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	bolt "go.etcd.io/bbolt"

	"tandem/internal/models"
	"tandem/internal/providers"
	"tandem/internal/structures"
)

type testLogger struct{}

func (testLogger) Errorf(providers.TypeEnum, string, ...interface{}) {}
func (testLogger) Warnf(providers.TypeEnum, string, ...interface{})  {}
func (testLogger) Debugf(providers.TypeEnum, string, ...interface{}) {}
func (testLogger) Infof(providers.TypeEnum, string, ...interface{})  {}
func (testLogger) Fatalf(providers.TypeEnum, string, ...interface{}) {}
func (testLogger) Close()                                            {}

func newTestCache(t *testing.T) *ContentCache {
	t.Helper()
	conf := &structures.Config{}
	conf.Store.Path = filepath.Join(t.TempDir(), "cache.db")
	conf.Store.OpenTimeout = time.Second

	compressor, err := NewZstdCompressor()
	require.NoError(t, err)
	t.Cleanup(func() { compressor.Close() })

	c := NewContentCache(conf, compressor, testLogger{})
	require.False(t, c.Degraded())
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func entryFor(coupleID, date, category string, dirty bool) *models.CacheEntry {
	return &models.CacheEntry{
		CoupleID:      coupleID,
		ContentType:   models.TypeQuestion,
		Category:      category,
		ScheduledDate: date,
		Item: models.ContentItem{
			ID:            models.ItemID(coupleID, date),
			CoupleID:      coupleID,
			ContentType:   models.TypeQuestion,
			Category:      category,
			ScheduledDate: date,
			Status:        models.StatusActive,
		},
		LastViewed: time.Now().UTC(),
		Dirty:      dirty,
	}
}

func TestUpsertGetRoundTrip(t *testing.T) {
	c := newTestCache(t)

	entry := entryFor("c1", "2024-05-01", "en-couple", false)
	entry.Item.ContentKey = "daily_question_7"
	entry.Item.Day = 7
	require.NoError(t, c.Upsert(entry))

	got, err := c.Get("c1", "2024-05-01")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, models.CurrentSchemaVersion, got.SchemaVersion)
	assert.Equal(t, "daily_question_7", got.Item.ContentKey)
	assert.Equal(t, 7, got.Item.Day)
	assert.False(t, got.StoredAt.IsZero())
}

func TestGetMissIsNotAnError(t *testing.T) {
	c := newTestCache(t)
	got, err := c.Get("c1", "2024-05-01")
	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpsertIsIdempotent(t *testing.T) {
	c := newTestCache(t)

	require.NoError(t, c.Upsert(entryFor("c1", "2024-05-01", "en-couple", false)))
	require.NoError(t, c.Upsert(entryFor("c1", "2024-05-01", "en-couple", false)))

	counts, err := c.CountByCategory()
	require.NoError(t, err)
	assert.Equal(t, 1, counts["en-couple"])
}

func TestListByCoupleNewestFirst(t *testing.T) {
	c := newTestCache(t)

	for _, date := range []string{"2024-05-01", "2024-05-03", "2024-05-02"} {
		require.NoError(t, c.Upsert(entryFor("c1", date, "en-couple", false)))
	}
	require.NoError(t, c.Upsert(entryFor("c2", "2024-05-09", "en-couple", false)))

	entries, err := c.ListByCouple("c1", models.TypeQuestion, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "2024-05-03", entries[0].ScheduledDate)
	assert.Equal(t, "2024-05-02", entries[1].ScheduledDate)
}

func TestEvictOlderThanCleansIndexOfUnreadableEntries(t *testing.T) {
	c := newTestCache(t)

	fresh := time.Now().UTC().Format(models.ScheduledDateLayout)
	require.NoError(t, c.Upsert(entryFor("c1", fresh, "en-couple", false)))

	// Corrupt the stored value; the index entry stays behind.
	require.NoError(t, c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(itemsBucket).Put(itemKey("c1", fresh), []byte("garbage"))
	}))

	removed, err := c.EvictOlderThan(30)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	counts, err := c.CountByCategory()
	require.NoError(t, err)
	assert.Zero(t, counts["en-couple"])
}

func TestEvictOlderThanSkipsDirty(t *testing.T) {
	c := newTestCache(t)

	old := time.Now().UTC().AddDate(0, 0, -40).Format(models.ScheduledDateLayout)
	fresh := time.Now().UTC().Format(models.ScheduledDateLayout)

	require.NoError(t, c.Upsert(entryFor("c1", old, "en-couple", false)))
	require.NoError(t, c.Upsert(entryFor("c2", old, "en-couple", true)))
	require.NoError(t, c.Upsert(entryFor("c3", fresh, "en-couple", false)))

	removed, err := c.EvictOlderThan(30)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	gone, err := c.Get("c1", old)
	require.NoError(t, err)
	assert.Nil(t, gone)

	// The dirty entry holds an unsynced mutation and must survive.
	kept, err := c.Get("c2", old)
	require.NoError(t, err)
	assert.NotNil(t, kept)

	current, err := c.Get("c3", fresh)
	require.NoError(t, err)
	assert.NotNil(t, current)
}

func TestEnforceCategoryCapKeepsMostRecentlyViewed(t *testing.T) {
	c := newTestCache(t)

	base := time.Now().UTC()
	dates := []string{"2024-05-01", "2024-05-02", "2024-05-03", "2024-05-04"}
	for i, date := range dates {
		entry := entryFor("c1", date, "en-couple", false)
		entry.LastViewed = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, c.Upsert(entry))
	}

	removed, err := c.EnforceCategoryCap("en-couple", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	// The two least-recently-viewed entries are gone.
	for _, date := range dates[:2] {
		got, err := c.Get("c1", date)
		require.NoError(t, err)
		assert.Nil(t, got, date)
	}
	for _, date := range dates[2:] {
		got, err := c.Get("c1", date)
		require.NoError(t, err)
		assert.NotNil(t, got, date)
	}
}

func TestEnforceCategoryCapSkipsDirty(t *testing.T) {
	c := newTestCache(t)

	base := time.Now().UTC()
	dirty := entryFor("c1", "2024-05-01", "en-couple", true)
	dirty.LastViewed = base.Add(-100 * time.Hour)
	require.NoError(t, c.Upsert(dirty))
	for i, date := range []string{"2024-05-02", "2024-05-03"} {
		entry := entryFor("c1", date, "en-couple", false)
		entry.LastViewed = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, c.Upsert(entry))
	}

	removed, err := c.EnforceCategoryCap("en-couple", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	kept, err := c.Get("c1", "2024-05-01")
	require.NoError(t, err)
	assert.NotNil(t, kept)
}

func TestMarkViewedRefreshesTimestamp(t *testing.T) {
	c := newTestCache(t)

	entry := entryFor("c1", "2024-05-01", "en-couple", false)
	entry.LastViewed = time.Time{}
	require.NoError(t, c.Upsert(entry))

	at := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	require.NoError(t, c.MarkViewed("c1", "2024-05-01", at))

	got, err := c.Get("c1", "2024-05-01")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.LastViewed.Equal(at))

	// Marking an absent entry is a quiet no-op.
	assert.NoError(t, c.MarkViewed("c1", "2024-06-01", at))
}

func TestBankItems(t *testing.T) {
	c := newTestCache(t)

	require.NoError(t, c.PutBankItem("en-couple", "daily_question_1", []byte("What made you smile today?")))

	got, err := c.GetBankItem("en-couple", "daily_question_1")
	require.NoError(t, err)
	assert.Equal(t, []byte("What made you smile today?"), got)

	missing, err := c.GetBankItem("en-couple", "daily_question_2")
	require.NoError(t, err)
	assert.Nil(t, missing)

	missing, err = c.GetBankItem("en-challenge", "daily_challenge_1")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestDegradedCacheIsSilent(t *testing.T) {
	conf := &structures.Config{}
	// A directory path cannot be opened as a bbolt file.
	conf.Store.Path = t.TempDir()
	conf.Store.OpenTimeout = time.Second

	compressor, err := NewZstdCompressor()
	require.NoError(t, err)
	defer compressor.Close()

	c := NewContentCache(conf, compressor, testLogger{})
	require.True(t, c.Degraded())

	assert.NoError(t, c.Upsert(entryFor("c1", "2024-05-01", "en-couple", false)))
	got, err := c.Get("c1", "2024-05-01")
	assert.NoError(t, err)
	assert.Nil(t, got)

	removed, err := c.EvictOlderThan(30)
	assert.NoError(t, err)
	assert.Zero(t, removed)

	version, err := c.SchemaVersion()
	assert.NoError(t, err)
	assert.Equal(t, models.CurrentSchemaVersion, version)

	assert.NoError(t, c.Close())
}

func TestSchemaVersionFreshAndUnmarked(t *testing.T) {
	c := newTestCache(t)

	// A brand-new empty store is already current.
	version, err := c.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, models.CurrentSchemaVersion, version)

	// Content without a version marker predates versioning.
	require.NoError(t, c.PutBankItem("For Couples", "q1", []byte("legacy")))
	version, err = c.SchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, 1, version)
}
