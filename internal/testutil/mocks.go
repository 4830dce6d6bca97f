package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tandem/internal/models"
	"tandem/internal/providers"
	"tandem/internal/services"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// HasLevel reports whether any recorded entry carries the level.
func (m *MockLogger) HasLevel(level string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.Logs {
		if e.Level == level {
			return true
		}
	}
	return false
}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

func (m *MockCache) Del(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Data, key)
}

// MockMetrics implements providers.MetricsProviderInterface and counts calls.
type MockMetrics struct {
	mu             sync.Mutex
	Requests       int
	RequestLabels  map[string]int
	CacheHits      int
	CacheMisses    int
	RouteDecisions map[string]int
	Evicted        int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{
		RequestLabels:  make(map[string]int),
		RouteDecisions: make(map[string]int),
	}
}

func (m *MockMetrics) IncRequestsTotal(endpoint string, _ int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests++
	m.RequestLabels[endpoint]++
}

func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}

func (m *MockMetrics) IncCacheHits() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheHits++
}

func (m *MockMetrics) IncCacheMisses() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CacheMisses++
}

func (m *MockMetrics) IncRouteDecision(route string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RouteDecisions[route]++
}

func (m *MockMetrics) IncEvictions(count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Evicted += count
}

func (m *MockMetrics) ObserveMaintenanceDuration(_ time.Duration) {}
func (m *MockMetrics) SetCachedItems(_ string, _ int)             {}

// MockTextProvider implements providers.TextProviderInterface with a fixed
// manifest.
type MockTextProvider struct {
	Cats     []providers.Category
	Tables   map[string]map[string]string
	Fallback string
}

func NewMockTextProvider() *MockTextProvider {
	return &MockTextProvider{
		Cats: []providers.Category{
			{Slug: "en-couple", ContentType: string(models.TypeQuestion), Prefix: "daily_question", Count: 30, LegacyTitles: []string{"For Couples"}},
			{Slug: "en-challenge", ContentType: string(models.TypeChallenge), Prefix: "daily_challenge", Count: 15, LegacyTitles: []string{"Challenges"}},
		},
		Tables:   map[string]map[string]string{"en": {}},
		Fallback: "en",
	}
}

func (m *MockTextProvider) Resolve(locale, key string) string {
	if table, ok := m.Tables[locale]; ok {
		if text, ok := table[key]; ok {
			return text
		}
	}
	if table, ok := m.Tables[m.Fallback]; ok {
		if text, ok := table[key]; ok {
			return text
		}
	}
	return key
}

func (m *MockTextProvider) ItemCount(slug string) int {
	for _, cat := range m.Cats {
		if cat.Slug == slug {
			return cat.Count
		}
	}
	return 0
}

func (m *MockTextProvider) ContentKey(slug string, day int) string {
	for _, cat := range m.Cats {
		if cat.Slug == slug {
			return fmt.Sprintf("%s_%d", cat.Prefix, day)
		}
	}
	return ""
}

func (m *MockTextProvider) CategoryForType(ct models.ContentType) (providers.Category, bool) {
	for _, cat := range m.Cats {
		if cat.ContentType == string(ct) {
			return cat, true
		}
	}
	return providers.Category{}, false
}

func (m *MockTextProvider) Categories() []providers.Category {
	return m.Cats
}

func (m *MockTextProvider) CategoryAliases() map[string]string {
	aliases := make(map[string]string)
	for _, cat := range m.Cats {
		for _, title := range cat.LegacyTitles {
			aliases[title] = cat.Slug
		}
	}
	return aliases
}

// MockContentService implements services.ContentServiceInterface with
// injectable behavior for controller tests.
type MockContentService struct {
	TodayFn  func(coupleID, userID string, ct models.ContentType) (*services.TodayView, error)
	SubmitFn func(coupleID, userID, text string) error
	RouteFn  func(q services.RouteQuery) models.RouteState
	History_ []*models.CacheEntry
	MarkErr  error
}

func (m *MockContentService) TodayView(_ context.Context, coupleID, userID string, ct models.ContentType, _ string) (*services.TodayView, error) {
	if m.TodayFn != nil {
		return m.TodayFn(coupleID, userID, ct)
	}
	return &services.TodayView{CoupleID: coupleID, ContentType: ct, Day: 1}, nil
}

func (m *MockContentService) SubmitResponse(_ context.Context, coupleID, userID, _, text string, _ models.ContentType) error {
	if m.SubmitFn != nil {
		return m.SubmitFn(coupleID, userID, text)
	}
	return nil
}

func (m *MockContentService) MarkPartnerResponseRead(_ context.Context, _, _ string, _ models.ContentType, _ string) error {
	return m.MarkErr
}

func (m *MockContentService) History(_ context.Context, _ string, _ models.ContentType, _ int) ([]*models.CacheEntry, error) {
	return m.History_, nil
}

func (m *MockContentService) Route(_ context.Context, q services.RouteQuery) models.RouteState {
	if m.RouteFn != nil {
		return m.RouteFn(q)
	}
	return models.MainRoute{}
}

func (m *MockContentService) Watch(_ context.Context, _ string, _ models.ContentType) error {
	return nil
}

func (m *MockContentService) ResetProgression(_ context.Context, _ string, _ models.ContentType) error {
	return nil
}
