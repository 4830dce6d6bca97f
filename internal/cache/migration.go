package cache

import (
	"bytes"
	"strconv"

	json "github.com/goccy/go-json"
	bolt "go.etcd.io/bbolt"

	"tandem/internal/models"
	"tandem/internal/providers"
)

// MigrationPlan describes how to bring the store from one schema version to
// the current one. CategoryAliases maps legacy localized category titles
// (schema v1) to their stable slugs; KnownSlugs lists every valid slug so
// already-migrated data is recognized and left alone.
type MigrationPlan struct {
	From            int
	To              int
	CategoryAliases map[string]string
	KnownSlugs      map[string]struct{}
}

// Migrate rewrites v1 data in place: bank buckets keyed by localized titles
// move under their slugs, item entries get their category slugged and the
// version field stamped. It is idempotent and safe to run on every cold
// start; a second run is a no-op. Entries that cannot be migrated are
// dropped rather than allowed to block startup.
func (c *ContentCache) Migrate(plan MigrationPlan) error {
	if c.Degraded() {
		return nil
	}
	if plan.From >= plan.To {
		return c.stampVersion(plan.To)
	}

	migratedBanks, droppedEntries := 0, 0
	err := c.db.Update(func(tx *bolt.Tx) error {
		if err := migrateBankBuckets(tx, plan, &migratedBanks); err != nil {
			return err
		}
		if err := c.migrateItemEntries(tx, plan, &droppedEntries); err != nil {
			return err
		}
		return tx.Bucket(metaBucket).Put(schemaVersionKey, []byte(strconv.Itoa(plan.To)))
	})
	if err != nil {
		return c.fail("migrate", err)
	}

	c.logger.Infof(providers.TypeCache, "Cache schema migrated v%d -> v%d: %d bank categories renamed, %d entries dropped",
		plan.From, plan.To, migratedBanks, droppedEntries)
	return nil
}

// stampVersion records the target version without rewriting data.
func (c *ContentCache) stampVersion(version int) error {
	err := c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(metaBucket).Put(schemaVersionKey, []byte(strconv.Itoa(version)))
	})
	if err != nil {
		return c.fail("migrate", err)
	}
	return nil
}

func migrateBankBuckets(tx *bolt.Tx, plan MigrationPlan, migrated *int) error {
	bank := tx.Bucket(bankBucket)

	var legacyNames [][]byte
	err := bank.ForEachBucket(func(name []byte) error {
		if _, isSlug := plan.KnownSlugs[string(name)]; isSlug {
			return nil
		}
		legacyNames = append(legacyNames, append([]byte(nil), name...))
		return nil
	})
	if err != nil {
		return err
	}

	for _, name := range legacyNames {
		slug, known := plan.CategoryAliases[string(name)]
		if known {
			src := bank.Bucket(name)
			dst, err := bank.CreateBucketIfNotExists([]byte(slug))
			if err != nil {
				return err
			}
			err = src.ForEach(func(k, v []byte) error {
				if v == nil {
					return nil
				}
				return dst.Put(k, v)
			})
			if err != nil {
				return err
			}
		}
		// Unmapped legacy buckets are dropped, not kept under a dead key.
		if err := bank.DeleteBucket(name); err != nil {
			return err
		}
	}
	*migrated += len(legacyNames)
	return nil
}

func (c *ContentCache) migrateItemEntries(tx *bolt.Tx, plan MigrationPlan, dropped *int) error {
	items := tx.Bucket(itemsBucket)
	index := tx.Bucket(indexBucket)

	type rewrite struct {
		key         []byte
		data        []byte
		oldIndexKey []byte
		newIndexKey []byte
	}
	var rewrites []rewrite

	// Collect first, write after: bbolt forbids Put while a cursor iterates.
	cur := items.Cursor()
	for k, v := cur.First(); k != nil; k, v = cur.Next() {
		entry, ok := c.decodeAnyVersion(v)
		if !ok {
			if err := cur.Delete(); err != nil {
				return err
			}
			*dropped++
			continue
		}
		if entry.SchemaVersion >= plan.To {
			continue
		}

		oldCategory := entry.Category
		if slug, known := plan.CategoryAliases[entry.Category]; known {
			entry.Category = slug
		}
		entry.SchemaVersion = plan.To

		data, err := c.encode(entry)
		if err != nil {
			if err := cur.Delete(); err != nil {
				return err
			}
			*dropped++
			continue
		}
		rewrites = append(rewrites, rewrite{
			key:         append([]byte(nil), k...),
			data:        data,
			oldIndexKey: indexKey(oldCategory, entry.CoupleID, entry.ScheduledDate),
			newIndexKey: indexKey(entry.Category, entry.CoupleID, entry.ScheduledDate),
		})
	}

	for _, rw := range rewrites {
		if err := items.Put(rw.key, rw.data); err != nil {
			return err
		}
		if !bytes.Equal(rw.oldIndexKey, rw.newIndexKey) {
			if err := index.Delete(rw.oldIndexKey); err != nil {
				return err
			}
		}
		if err := index.Put(rw.newIndexKey, rw.key); err != nil {
			return err
		}
	}
	return nil
}

// decodeAnyVersion tries the current entry layout first and falls back to the
// v1 layout. The second return value is false when neither applies.
func (c *ContentCache) decodeAnyVersion(val []byte) (*models.CacheEntry, bool) {
	raw, err := c.compressor.Decompress(val)
	if err != nil {
		return nil, false
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(raw, &entry); err == nil && entry.CoupleID != "" {
		return &entry, true
	}

	var v1 models.CacheEntryV1
	if err := json.Unmarshal(raw, &v1); err != nil || v1.CoupleID == "" {
		return nil, false
	}
	return &models.CacheEntry{
		CoupleID:      v1.CoupleID,
		ContentType:   v1.ContentType,
		Category:      v1.Category,
		ScheduledDate: v1.ScheduledDate,
		Item:          v1.Item,
		LastViewed:    v1.LastViewed,
		StoredAt:      v1.StoredAt,
		Dirty:         v1.Dirty,
	}, true
}
