package models

import "time"

// CurrentSchemaVersion is the cache layout this build reads and writes.
// V1 keyed the question bank by localized category titles; V2 keys it by
// stable slugs and adds the version field to every entry.
const CurrentSchemaVersion = 2

// CacheEntry is the denormalized local snapshot of a content item. Dirty
// marks a local mutation that has not reached the remote store yet; dirty
// entries are exempt from every eviction pass.
type CacheEntry struct {
	SchemaVersion int         `json:"schema_version"`
	CoupleID      string      `json:"couple_id"`
	ContentType   ContentType `json:"content_type"`
	Category      string      `json:"category"`
	ScheduledDate string      `json:"scheduled_date"`
	Item          ContentItem `json:"item"`
	LastViewed    time.Time   `json:"last_viewed"`
	StoredAt      time.Time   `json:"stored_at"`
	Dirty         bool        `json:"dirty"`
}

// CacheEntryV1 is the pre-slug persistence layout. It is a JSON superset of
// the V2 entry minus the version field, so V1 values unmarshal into it
// directly during migration. Category holds a localized title, not a slug.
type CacheEntryV1 struct {
	CoupleID      string      `json:"couple_id"`
	ContentType   ContentType `json:"content_type"`
	Category      string      `json:"category"`
	ScheduledDate string      `json:"scheduled_date"`
	Item          ContentItem `json:"item"`
	LastViewed    time.Time   `json:"last_viewed"`
	StoredAt      time.Time   `json:"stored_at"`
	Dirty         bool        `json:"dirty"`
}
