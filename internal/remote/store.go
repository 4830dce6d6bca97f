// Package remote defines the contract with the managed backend's document
// store. The engine only ever talks to these interfaces; the production
// adapter for the hosted backend is wired in at build time, and MemoryStore
// serves development and tests.
package remote

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("document not found")

// SettingsDoc mirrors progression_settings/{coupleId}.
type SettingsDoc struct {
	CoupleID      string    `json:"couple_id"`
	ContentType   string    `json:"content_type"`
	StartDate     time.Time `json:"startDate"`
	Timezone      string    `json:"timezone"`
	CurrentDay    int       `json:"currentDay"`
	CreatedAt     time.Time `json:"createdAt"`
	LastVisitDate time.Time `json:"lastVisitDate"`
}

// ResponseDoc mirrors content_items/{itemId}/responses/{userId}.
type ResponseDoc struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	DisplayName     string    `json:"displayName"`
	Text            string    `json:"text"`
	RespondedAt     time.Time `json:"respondedAt"`
	Status          string    `json:"status"`
	IsReadByPartner bool      `json:"isReadByPartner"`
}

// ItemDoc mirrors content_items/{coupleId}_{yyyy-MM-dd}. Responses is the
// legacy inline map; the sub-resource collection is read via ListResponses
// and takes precedence whenever it is non-empty.
type ItemDoc struct {
	ID                string                 `json:"id"`
	CoupleID          string                 `json:"couple_id"`
	ContentType       string                 `json:"content_type"`
	ContentKey        string                 `json:"contentKey"`
	Day               int                    `json:"day"`
	ScheduledDate     string                 `json:"scheduledDate"`
	ScheduledDateTime time.Time              `json:"scheduledDateTime"`
	Status            string                 `json:"status"`
	Timezone          string                 `json:"timezone"`
	CreatedAt         time.Time              `json:"createdAt"`
	UpdatedAt         time.Time              `json:"updatedAt"`
	Responses         map[string]ResponseDoc `json:"responses,omitempty"`
}

// CoupleDoc carries the connection and entitlement state of a couple.
type CoupleDoc struct {
	ID            string            `json:"id"`
	MemberIDs     []string          `json:"memberIds"`
	Entitled      bool              `json:"entitled"`
	DisplayNameOf map[string]string `json:"displayNames,omitempty"`
}

// Event is one remote change notification. Listener callbacks never touch
// the local cache themselves; consumers marshal events into the per-couple
// critical section first.
type Event struct {
	CoupleID    string
	ContentType string
	Item        *ItemDoc
}

type Subscription interface {
	Events() <-chan Event
	Close()
}

type DocumentStore interface {
	GetCouple(ctx context.Context, coupleID string) (*CoupleDoc, error)
	GetSettings(ctx context.Context, coupleID, contentType string) (*SettingsDoc, error)
	PutSettings(ctx context.Context, doc *SettingsDoc) error
	GetItem(ctx context.Context, itemID string) (*ItemDoc, error)
	PutItem(ctx context.Context, doc *ItemDoc) error
	PutResponse(ctx context.Context, itemID string, doc ResponseDoc) error
	SetResponseRead(ctx context.Context, itemID, userID string, read bool) error
	ListResponses(ctx context.Context, itemID string) ([]ResponseDoc, error)
	Subscribe(ctx context.Context, coupleID, contentType string) (Subscription, error)
}
