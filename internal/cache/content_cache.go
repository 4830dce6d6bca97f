// Package cache is the durable local store for content item snapshots. It is
// an accelerator in front of the remote document store, never the source of
// truth: every failure path degrades to network-only operation instead of
// surfacing to the user.
package cache

import (
	"bytes"
	"errors"
	"sort"
	"strconv"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	bolt "go.etcd.io/bbolt"

	"tandem/internal/cache/interfaces"
	"tandem/internal/models"
	"tandem/internal/providers"
	"tandem/internal/structures"
)

var (
	itemsBucket = []byte("items")
	indexBucket = []byte("category_index")
	bankBucket  = []byte("bank")
	metaBucket  = []byte("meta")

	schemaVersionKey = []byte("schemaVersion")
)

const keySeparator = "|"

// ErrCacheDegraded is returned by write operations after the store has been
// disabled for the session.
var ErrCacheDegraded = errors.New("content cache is degraded")

type ContentCacheInterface interface {
	Upsert(entry *models.CacheEntry) error
	Get(coupleID, scheduledDate string) (*models.CacheEntry, error)
	MarkViewed(coupleID, scheduledDate string, at time.Time) error
	ListByCouple(coupleID string, contentType models.ContentType, limit int) ([]*models.CacheEntry, error)
	EvictOlderThan(days int) (int, error)
	EnforceCategoryCap(category string, maxEntries int) (int, error)
	PutBankItem(category, key string, value []byte) error
	GetBankItem(category, key string) ([]byte, error)
	CountByCategory() (map[string]int, error)
	Migrate(plan MigrationPlan) error
	SchemaVersion() (int, error)
	Degraded() bool
	Close() error
}

// ContentCache stores zstd-compressed JSON snapshots in bbolt, keyed by
// couple and scheduled date, with a secondary index per category.
type ContentCache struct {
	db         *bolt.DB
	compressor interfaces.CompressorInterface
	logger     providers.Logger
	degraded   atomic.Bool
}

// NewContentCache opens the store. An open failure is not fatal: the cache
// comes up degraded and every operation becomes a no-op.
func NewContentCache(conf *structures.Config, compressor interfaces.CompressorInterface, logger providers.Logger) *ContentCache {
	c := &ContentCache{compressor: compressor, logger: logger}

	timeout := conf.Store.OpenTimeout
	if timeout <= 0 {
		timeout = time.Second
	}

	db, err := bolt.Open(conf.Store.Path, 0o600, &bolt.Options{Timeout: timeout})
	if err != nil {
		logger.Errorf(providers.TypeCache, "Failed to open content cache %s, running network-only: %s", conf.Store.Path, err)
		c.degraded.Store(true)
		return c
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{itemsBucket, indexBucket, bankBucket, metaBucket} {
			if _, createErr := tx.CreateBucketIfNotExists(bucket); createErr != nil {
				return createErr
			}
		}
		return nil
	})
	if err != nil {
		logger.Errorf(providers.TypeCache, "Failed to prepare content cache buckets, running network-only: %s", err)
		_ = db.Close()
		c.degraded.Store(true)
		return c
	}

	c.db = db
	return c
}

func (c *ContentCache) Degraded() bool {
	return c.degraded.Load()
}

func (c *ContentCache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}

// fail flips the cache into degraded mode after a storage-fatal error.
func (c *ContentCache) fail(op string, err error) error {
	c.logger.Errorf(providers.TypeCache, "Storage failure during %s, disabling cache for this session: %s", op, err)
	c.degraded.Store(true)
	return err
}

func itemKey(coupleID, scheduledDate string) []byte {
	return []byte(coupleID + keySeparator + scheduledDate)
}

func indexKey(category, coupleID, scheduledDate string) []byte {
	return []byte(category + keySeparator + coupleID + keySeparator + scheduledDate)
}

func (c *ContentCache) encode(entry *models.CacheEntry) ([]byte, error) {
	raw, err := json.Marshal(entry)
	if err != nil {
		return nil, err
	}
	return c.compressor.Compress(raw)
}

func (c *ContentCache) decode(val []byte) (*models.CacheEntry, error) {
	raw, err := c.compressor.Decompress(val)
	if err != nil {
		return nil, err
	}
	var entry models.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// Upsert writes an entry snapshot. The key derives from couple and scheduled
// date, so rewriting the same logical entry is idempotent.
func (c *ContentCache) Upsert(entry *models.CacheEntry) error {
	if c.Degraded() {
		return nil
	}
	entry.SchemaVersion = models.CurrentSchemaVersion
	if entry.StoredAt.IsZero() {
		entry.StoredAt = time.Now().UTC()
	}

	data, err := c.encode(entry)
	if err != nil {
		return err
	}

	err = c.db.Update(func(tx *bolt.Tx) error {
		if err := tx.Bucket(itemsBucket).Put(itemKey(entry.CoupleID, entry.ScheduledDate), data); err != nil {
			return err
		}
		return tx.Bucket(indexBucket).Put(indexKey(entry.Category, entry.CoupleID, entry.ScheduledDate), itemKey(entry.CoupleID, entry.ScheduledDate))
	})
	if err != nil {
		return c.fail("upsert", err)
	}
	return nil
}

// Get returns the cached entry, or nil when absent. Absence is not an error.
func (c *ContentCache) Get(coupleID, scheduledDate string) (*models.CacheEntry, error) {
	if c.Degraded() {
		return nil, nil
	}

	var entry *models.CacheEntry
	err := c.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(itemsBucket).Get(itemKey(coupleID, scheduledDate))
		if data == nil {
			return nil
		}
		decoded, err := c.decode(data)
		if err != nil {
			// Corrupt value: treat as a miss, the remote store is authoritative.
			c.logger.Warnf(providers.TypeCache, "Dropping unreadable cache entry %s/%s: %s", coupleID, scheduledDate, err)
			return nil
		}
		entry = decoded
		return nil
	})
	if err != nil {
		return nil, c.fail("get", err)
	}
	return entry, nil
}

// MarkViewed refreshes the LRU timestamp used by the category cap.
func (c *ContentCache) MarkViewed(coupleID, scheduledDate string, at time.Time) error {
	if c.Degraded() {
		return nil
	}
	entry, err := c.Get(coupleID, scheduledDate)
	if err != nil || entry == nil {
		return err
	}
	entry.LastViewed = at
	return c.Upsert(entry)
}

// ListByCouple returns up to limit cached entries for one couple, newest
// scheduled date first.
func (c *ContentCache) ListByCouple(coupleID string, contentType models.ContentType, limit int) ([]*models.CacheEntry, error) {
	if c.Degraded() {
		return nil, nil
	}

	var entries []*models.CacheEntry
	prefix := []byte(coupleID + keySeparator)
	err := c.db.View(func(tx *bolt.Tx) error {
		cur := tx.Bucket(itemsBucket).Cursor()
		for k, v := cur.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = cur.Next() {
			entry, err := c.decode(v)
			if err != nil {
				continue
			}
			if contentType != "" && entry.ContentType != contentType {
				continue
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, c.fail("list", err)
	}

	// Keys sort ascending by date inside one couple prefix.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ScheduledDate > entries[j].ScheduledDate
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// EvictOlderThan removes entries whose scheduled date lies more than days in
// the past and returns how many were removed. Entries with unsynced local
// mutations are never touched.
func (c *ContentCache) EvictOlderThan(days int) (int, error) {
	if c.Degraded() {
		return 0, nil
	}

	cutoff := time.Now().UTC().AddDate(0, 0, -days).Format(models.ScheduledDateLayout)
	removed := 0

	err := c.db.Update(func(tx *bolt.Tx) error {
		items := tx.Bucket(itemsBucket)
		index := tx.Bucket(indexBucket)

		droppedUnreadable := false
		cur := items.Cursor()
		for k, v := cur.First(); k != nil; k, v = cur.Next() {
			entry, err := c.decode(v)
			if err != nil {
				if delErr := cur.Delete(); delErr != nil {
					return delErr
				}
				removed++
				droppedUnreadable = true
				continue
			}
			if entry.Dirty || entry.ScheduledDate >= cutoff {
				continue
			}
			if err := cur.Delete(); err != nil {
				return err
			}
			if err := index.Delete(indexKey(entry.Category, entry.CoupleID, entry.ScheduledDate)); err != nil {
				return err
			}
			removed++
		}

		// An unreadable value carries no category, so its index entry cannot
		// be derived; sweep the index for pointers to missing items instead.
		if droppedUnreadable {
			idxCur := index.Cursor()
			for k, v := idxCur.First(); k != nil; k, v = idxCur.Next() {
				if items.Get(v) == nil {
					if err := idxCur.Delete(); err != nil {
						return err
					}
				}
			}
		}
		return nil
	})
	if err != nil {
		return removed, c.fail("evict", err)
	}
	return removed, nil
}

// EnforceCategoryCap keeps only the maxEntries most-recently-viewed entries
// of one category, skipping dirty entries, and returns how many it removed.
func (c *ContentCache) EnforceCategoryCap(category string, maxEntries int) (int, error) {
	if c.Degraded() || maxEntries <= 0 {
		return 0, nil
	}

	type candidate struct {
		key        []byte
		indexKey   []byte
		lastViewed time.Time
	}

	removed := 0
	err := c.db.Update(func(tx *bolt.Tx) error {
		items := tx.Bucket(itemsBucket)
		index := tx.Bucket(indexBucket)

		var candidates []candidate
		prefix := []byte(category + keySeparator)
		cur := index.Cursor()
		for k, v := cur.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = cur.Next() {
			data := items.Get(v)
			if data == nil {
				continue
			}
			entry, err := c.decode(data)
			if err != nil || entry.Dirty {
				continue
			}
			candidates = append(candidates, candidate{
				key:        append([]byte(nil), v...),
				indexKey:   append([]byte(nil), k...),
				lastViewed: entry.LastViewed,
			})
		}

		if len(candidates) <= maxEntries {
			return nil
		}

		sort.Slice(candidates, func(i, j int) bool {
			return candidates[i].lastViewed.After(candidates[j].lastViewed)
		})
		for _, victim := range candidates[maxEntries:] {
			if err := items.Delete(victim.key); err != nil {
				return err
			}
			if err := index.Delete(victim.indexKey); err != nil {
				return err
			}
			removed++
		}
		return nil
	})
	if err != nil {
		return removed, c.fail("category cap", err)
	}
	return removed, nil
}

// PutBankItem stores one static question-bank value under a category slug.
func (c *ContentCache) PutBankItem(category, key string, value []byte) error {
	if c.Degraded() {
		return nil
	}
	err := c.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(bankBucket).CreateBucketIfNotExists([]byte(category))
		if err != nil {
			return err
		}
		return b.Put([]byte(key), value)
	})
	if err != nil {
		return c.fail("bank put", err)
	}
	return nil
}

func (c *ContentCache) GetBankItem(category, key string) ([]byte, error) {
	if c.Degraded() {
		return nil, nil
	}
	var value []byte
	err := c.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bankBucket).Bucket([]byte(category))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			value = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, c.fail("bank get", err)
	}
	return value, nil
}

// CountByCategory reports entry counts per category for metrics and for the
// cleanup-threshold check.
func (c *ContentCache) CountByCategory() (map[string]int, error) {
	counts := make(map[string]int)
	if c.Degraded() {
		return counts, nil
	}
	err := c.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(indexBucket).ForEach(func(k, _ []byte) error {
			if i := bytes.Index(k, []byte(keySeparator)); i > 0 {
				counts[string(k[:i])]++
			}
			return nil
		})
	})
	if err != nil {
		return counts, c.fail("count", err)
	}
	return counts, nil
}

// SchemaVersion reads the stored schema gate. A store that has content but no
// version marker predates versioning and reports 1.
func (c *ContentCache) SchemaVersion() (int, error) {
	if c.Degraded() {
		return models.CurrentSchemaVersion, nil
	}
	version := 0
	err := c.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(metaBucket).Get(schemaVersionKey); v != nil {
			parsed, err := strconv.Atoi(string(v))
			if err != nil {
				return nil
			}
			version = parsed
			return nil
		}
		empty := tx.Bucket(itemsBucket).Stats().KeyN == 0 && tx.Bucket(bankBucket).Stats().KeyN == 0
		if empty {
			version = models.CurrentSchemaVersion
		} else {
			version = 1
		}
		return nil
	})
	if err != nil {
		return 0, c.fail("schema version", err)
	}
	return version, nil
}
