package cache

import (
	"sync"
	"time"

	"github.com/roylee0704/gron"

	"tandem/internal/cache/interfaces"
	"tandem/internal/providers"
	"tandem/internal/structures"
)

// Scheduler runs the periodic cache maintenance: age-based eviction and the
// per-category size cap. Restore runs the schema migration on cold start.
type Scheduler struct {
	config  *structures.Config
	logger  providers.Logger
	cache   ContentCacheInterface
	text    providers.TextProviderInterface
	metrics providers.MetricsProviderInterface
	cron    *gron.Cron
	opsMu   sync.Mutex
}

func NewScheduler(config *structures.Config, logger providers.Logger, cache ContentCacheInterface, text providers.TextProviderInterface, metrics providers.MetricsProviderInterface) interfaces.SchedulerInterface {
	return &Scheduler{
		config:  config,
		logger:  logger,
		cache:   cache,
		text:    text,
		metrics: metrics,
	}
}

func (s *Scheduler) Init() {
	s.cron = gron.New()

	s.cron.AddFunc(gron.Every(s.config.Maintenance.EvictionInterval), func() {
		s.opsMu.Lock()
		defer s.opsMu.Unlock()
		s.runMaintenance()
	})

	s.cron.Start()
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Restore brings the store schema up to date. Safe on every cold start: an
// already-migrated store is a no-op.
func (s *Scheduler) Restore() error {
	from, err := s.cache.SchemaVersion()
	if err != nil {
		return err
	}

	slugs := make(map[string]struct{})
	for _, cat := range s.text.Categories() {
		slugs[cat.Slug] = struct{}{}
	}

	return s.cache.Migrate(MigrationPlan{
		From:            from,
		To:              s.config.Store.SchemaVersion,
		CategoryAliases: s.text.CategoryAliases(),
		KnownSlugs:      slugs,
	})
}

// Persist runs one final maintenance pass before shutdown. bbolt commits
// every transaction durably, so there is no separate flush step.
func (s *Scheduler) Persist() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()
	s.runMaintenance()
	return nil
}

func (s *Scheduler) runMaintenance() {
	if s.cache.Degraded() {
		return
	}
	start := time.Now()

	removed, err := s.cache.EvictOlderThan(s.config.Store.RetentionDays)
	if err != nil {
		s.logger.Errorf(providers.TypeCache, "Eviction pass failed: %s", err)
		return
	}

	counts, err := s.cache.CountByCategory()
	if err != nil {
		s.logger.Errorf(providers.TypeCache, "Counting cache entries failed: %s", err)
		return
	}
	for category, count := range counts {
		if s.config.Store.CleanupThreshold > 0 && count < s.config.Store.CleanupThreshold {
			s.metrics.SetCachedItems(category, count)
			continue
		}
		capped, err := s.cache.EnforceCategoryCap(category, s.perCategoryCap())
		if err != nil {
			s.logger.Errorf(providers.TypeCache, "Category cap failed for %s: %s", category, err)
			continue
		}
		removed += capped
		s.metrics.SetCachedItems(category, count-capped)
	}

	s.metrics.IncEvictions(removed)
	s.metrics.ObserveMaintenanceDuration(time.Since(start))
	if removed > 0 {
		s.logger.Infof(providers.TypeCache, "Maintenance pass removed %d entries in %s", removed, time.Since(start))
	}
}

func (s *Scheduler) perCategoryCap() int {
	if s.config.Store.MaxPerCategory > 0 {
		return s.config.Store.MaxPerCategory
	}
	return defaultMaxPerCategory
}

const defaultMaxPerCategory = 60
