package remote

import (
	"context"
	"sync"
)

// MemoryStore is the in-process DocumentStore used in development and tests.
// Writes publish change events to active subscriptions the same way the
// hosted backend's listeners do.
type MemoryStore struct {
	mu        sync.RWMutex
	couples   map[string]*CoupleDoc
	settings  map[string]*SettingsDoc // coupleID|contentType
	items     map[string]*ItemDoc
	responses map[string]map[string]ResponseDoc // itemID -> userID -> doc
	subs      map[string][]*memorySubscription  // coupleID|contentType
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		couples:   make(map[string]*CoupleDoc),
		settings:  make(map[string]*SettingsDoc),
		items:     make(map[string]*ItemDoc),
		responses: make(map[string]map[string]ResponseDoc),
		subs:      make(map[string][]*memorySubscription),
	}
}

func settingsKey(coupleID, contentType string) string {
	return coupleID + "|" + contentType
}

func (m *MemoryStore) PutCouple(doc *CoupleDoc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.couples[doc.ID] = doc
}

func (m *MemoryStore) GetCouple(_ context.Context, coupleID string) (*CoupleDoc, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.couples[coupleID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (m *MemoryStore) GetSettings(_ context.Context, coupleID, contentType string) (*SettingsDoc, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.settings[settingsKey(coupleID, contentType)]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (m *MemoryStore) PutSettings(_ context.Context, doc *SettingsDoc) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *doc
	m.settings[settingsKey(doc.CoupleID, doc.ContentType)] = &cp
	return nil
}

func (m *MemoryStore) GetItem(_ context.Context, itemID string) (*ItemDoc, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.items[itemID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (m *MemoryStore) PutItem(_ context.Context, doc *ItemDoc) error {
	m.mu.Lock()
	cp := *doc
	m.items[doc.ID] = &cp
	m.mu.Unlock()

	m.publish(doc.CoupleID, doc.ContentType, &cp)
	return nil
}

func (m *MemoryStore) PutResponse(_ context.Context, itemID string, doc ResponseDoc) error {
	m.mu.Lock()
	if m.responses[itemID] == nil {
		m.responses[itemID] = make(map[string]ResponseDoc)
	}
	m.responses[itemID][doc.UserID] = doc
	item := m.items[itemID]
	m.mu.Unlock()

	if item != nil {
		cp := *item
		m.publish(item.CoupleID, item.ContentType, &cp)
	}
	return nil
}

func (m *MemoryStore) SetResponseRead(_ context.Context, itemID, userID string, read bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	userDocs, ok := m.responses[itemID]
	if !ok {
		return ErrNotFound
	}
	doc, ok := userDocs[userID]
	if !ok {
		return ErrNotFound
	}
	doc.IsReadByPartner = read
	userDocs[userID] = doc
	return nil
}

func (m *MemoryStore) ListResponses(_ context.Context, itemID string) ([]ResponseDoc, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	docs := make([]ResponseDoc, 0, len(m.responses[itemID]))
	for _, doc := range m.responses[itemID] {
		docs = append(docs, doc)
	}
	return docs, nil
}

type memorySubscription struct {
	store *MemoryStore
	key   string
	ch    chan Event
	once  sync.Once
}

func (s *memorySubscription) Events() <-chan Event {
	return s.ch
}

func (s *memorySubscription) Close() {
	s.once.Do(func() {
		s.store.unsubscribe(s)
		close(s.ch)
	})
}

func (m *MemoryStore) Subscribe(ctx context.Context, coupleID, contentType string) (Subscription, error) {
	sub := &memorySubscription{
		store: m,
		key:   settingsKey(coupleID, contentType),
		ch:    make(chan Event, 16),
	}

	m.mu.Lock()
	m.subs[sub.key] = append(m.subs[sub.key], sub)
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		sub.Close()
	}()
	return sub, nil
}

func (m *MemoryStore) unsubscribe(sub *memorySubscription) {
	m.mu.Lock()
	defer m.mu.Unlock()
	subs := m.subs[sub.key]
	for i, s := range subs {
		if s == sub {
			m.subs[sub.key] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

// publish delivers best-effort: a full subscriber channel is skipped, the
// consumer converges on its next read since documents hold complete state.
// Sends happen under the read lock so Close (which needs the write lock to
// unsubscribe) cannot close a channel mid-send.
func (m *MemoryStore) publish(coupleID, contentType string, item *ItemDoc) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ev := Event{CoupleID: coupleID, ContentType: contentType, Item: item}
	for _, sub := range m.subs[settingsKey(coupleID, contentType)] {
		select {
		case sub.ch <- ev:
		default:
		}
	}
}
