package remote

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSettings(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	_, err := m.GetSettings(ctx, "c1", "question")
	assert.ErrorIs(t, err, ErrNotFound)

	doc := &SettingsDoc{CoupleID: "c1", ContentType: "question", CurrentDay: 3}
	require.NoError(t, m.PutSettings(ctx, doc))

	got, err := m.GetSettings(ctx, "c1", "question")
	require.NoError(t, err)
	assert.Equal(t, 3, got.CurrentDay)

	// The stored document is a copy; mutating the original has no effect.
	doc.CurrentDay = 99
	got, err = m.GetSettings(ctx, "c1", "question")
	require.NoError(t, err)
	assert.Equal(t, 3, got.CurrentDay)

	// Settings are keyed per content type.
	_, err = m.GetSettings(ctx, "c1", "challenge")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreResponses(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, m.PutResponse(ctx, "c1_2024-05-01", ResponseDoc{UserID: "alice", Text: "hi", Status: "answered"}))
	require.NoError(t, m.PutResponse(ctx, "c1_2024-05-01", ResponseDoc{UserID: "bob", Text: "ho", Status: "answered"}))

	docs, err := m.ListResponses(ctx, "c1_2024-05-01")
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	// One record per user: a rewrite replaces, not appends.
	require.NoError(t, m.PutResponse(ctx, "c1_2024-05-01", ResponseDoc{UserID: "alice", Text: "edited", Status: "answered"}))
	docs, err = m.ListResponses(ctx, "c1_2024-05-01")
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	require.NoError(t, m.SetResponseRead(ctx, "c1_2024-05-01", "alice", true))
	docs, err = m.ListResponses(ctx, "c1_2024-05-01")
	require.NoError(t, err)
	for _, doc := range docs {
		if doc.UserID == "alice" {
			assert.True(t, doc.IsReadByPartner)
			assert.Equal(t, "edited", doc.Text)
		}
	}

	err = m.SetResponseRead(ctx, "c1_2024-05-01", "carol", true)
	assert.ErrorIs(t, err, ErrNotFound)
	err = m.SetResponseRead(ctx, "nope", "alice", true)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStorePublishesItemWrites(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()

	sub, err := m.Subscribe(ctx, "c1", "question")
	require.NoError(t, err)
	defer sub.Close()

	require.NoError(t, m.PutItem(ctx, &ItemDoc{ID: "c1_2024-05-01", CoupleID: "c1", ContentType: "question"}))

	select {
	case ev := <-sub.Events():
		assert.Equal(t, "c1", ev.CoupleID)
		require.NotNil(t, ev.Item)
		assert.Equal(t, "c1_2024-05-01", ev.Item.ID)
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}

	// Writes for other couples do not reach this subscription.
	require.NoError(t, m.PutItem(ctx, &ItemDoc{ID: "c2_2024-05-01", CoupleID: "c2", ContentType: "question"}))
	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected event for %s", ev.CoupleID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestMemoryStoreSubscriptionClose(t *testing.T) {
	m := NewMemoryStore()

	sub, err := m.Subscribe(context.Background(), "c1", "question")
	require.NoError(t, err)

	sub.Close()
	sub.Close() // closing twice is safe

	// Publishing after close must not panic.
	require.NoError(t, m.PutItem(context.Background(), &ItemDoc{ID: "c1_x", CoupleID: "c1", ContentType: "question"}))

	_, ok := <-sub.Events()
	assert.False(t, ok)
}

func TestMemoryStoreSubscriptionClosesWithContext(t *testing.T) {
	m := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := m.Subscribe(ctx, "c1", "question")
	require.NoError(t, err)

	cancel()
	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-sub.Events():
			return !ok
		default:
			return false
		}
	}, time.Second, 10*time.Millisecond)
}
