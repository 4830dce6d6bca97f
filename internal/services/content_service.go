package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tandem/internal/cache"
	"tandem/internal/content"
	"tandem/internal/models"
	"tandem/internal/providers"
	"tandem/internal/remote"
	"tandem/internal/structures"
)

var (
	ErrUnknownCategory = errors.New("no content category configured for this type")
	ErrNoContentToday  = errors.New("no content item is available today")
	ErrAlreadyAnswered = errors.New("user already answered this item")
	ErrNoPartnerReply  = errors.New("partner has not responded yet")
)

// TodayView is the aggregated state of one couple's current content item.
type TodayView struct {
	CoupleID          string                 `json:"couple_id"`
	ContentType       models.ContentType     `json:"content_type"`
	Day               int                    `json:"day"`
	NewItem           bool                   `json:"new_item"`
	Item              *models.ContentItem    `json:"item,omitempty"`
	Text              string                 `json:"text,omitempty"`
	OwnResponse       *models.ResponseRecord `json:"own_response,omitempty"`
	PartnerResponse   *models.ResponseRecord `json:"partner_response,omitempty"`
	BothAnswered      bool                   `json:"both_answered"`
	WaitingForPartner bool                   `json:"waiting_for_partner"`
}

// RouteQuery carries the signals the route decision needs. Presentation-side
// flags (intro seen, loading, last error) come from the client shell; partner
// connection and entitlement are resolved against the remote store.
type RouteQuery struct {
	CoupleID            string
	ContentType         models.ContentType
	HasSeenIntro        bool
	ServiceHasError     bool
	ServiceErrorMessage string
	ServiceIsLoading    bool
}

type ContentServiceInterface interface {
	TodayView(ctx context.Context, coupleID, userID string, ct models.ContentType, locale string) (*TodayView, error)
	SubmitResponse(ctx context.Context, coupleID, userID, displayName, text string, ct models.ContentType) error
	MarkPartnerResponseRead(ctx context.Context, coupleID, userID string, ct models.ContentType, scheduledDate string) error
	History(ctx context.Context, coupleID string, ct models.ContentType, limit int) ([]*models.CacheEntry, error)
	Route(ctx context.Context, q RouteQuery) models.RouteState
	Watch(ctx context.Context, coupleID string, ct models.ContentType) error
	ResetProgression(ctx context.Context, coupleID string, ct models.ContentType) error
}

// ContentService owns all mutation of progression settings and content items.
// Every write path runs inside the per-couple critical section, so a couple
// has exactly one logical writer no matter how many goroutines call in.
type ContentService struct {
	conf    *structures.Config
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
	text    providers.TextProviderInterface
	store   remote.DocumentStore
	cache   cache.ContentCacheInterface
	locks   *keyedMutex
	now     func() time.Time
}

func NewContentService(conf *structures.Config, logger providers.Logger, metrics providers.MetricsProviderInterface, text providers.TextProviderInterface, store remote.DocumentStore, contentCache cache.ContentCacheInterface) ContentServiceInterface {
	return &ContentService{
		conf:    conf,
		logger:  logger,
		metrics: metrics,
		text:    text,
		store:   store,
		cache:   contentCache,
		locks:   newKeyedMutex(),
		now:     time.Now,
	}
}

func lockKey(coupleID string, ct models.ContentType) string {
	return coupleID + "|" + string(ct)
}

func (s *ContentService) remoteCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.conf.Remote.Timeout)
}

// invariant reports a programming-error condition: loud in debug builds,
// logged and degraded in production.
func (s *ContentService) invariant(format string, args ...interface{}) {
	if s.conf.Debug {
		s.logger.Fatalf(providers.TypeApp, "invariant violation: "+format, args...)
		return
	}
	s.logger.Errorf(providers.TypeApp, "invariant violation: "+format, args...)
}

// ensureSettings loads a couple's progression settings, creating them on the
// first visit with StartDate normalized to start of day.
func (s *ContentService) ensureSettings(ctx context.Context, coupleID string, ct models.ContentType) (*models.ProgressionSettings, error) {
	rctx, cancel := s.remoteCtx(ctx)
	defer cancel()

	doc, err := s.store.GetSettings(rctx, coupleID, string(ct))
	if err == nil {
		return remote.SettingsFromDoc(doc), nil
	}
	if !errors.Is(err, remote.ErrNotFound) {
		return nil, fmt.Errorf("fetching progression settings: %w", err)
	}

	settings := models.NewProgressionSettings(coupleID, ct, content.MidnightUTC(s.now()), "UTC")
	wctx, cancelWrite := s.remoteCtx(ctx)
	defer cancelWrite()
	if err := s.store.PutSettings(wctx, remote.SettingsToDoc(settings)); err != nil {
		return nil, fmt.Errorf("creating progression settings: %w", err)
	}
	s.logger.Infof(providers.TypeApp, "Started %s progression for couple %s", ct, coupleID)
	return settings, nil
}

func (s *ContentService) putSettings(ctx context.Context, settings *models.ProgressionSettings) {
	wctx, cancel := s.remoteCtx(ctx)
	defer cancel()
	if err := s.store.PutSettings(wctx, remote.SettingsToDoc(settings)); err != nil {
		s.logger.Errorf(providers.TypeSync, "Persisting settings for couple %s failed: %s", settings.CoupleID, err)
	}
}

// loadItem reads an item through the cache. A remote fetch failure with a
// warm cache is served from the cache; a cold cache with a failing remote
// reports the error.
func (s *ContentService) loadItem(ctx context.Context, coupleID, scheduledDate string) (*models.ContentItem, error) {
	cached, err := s.cache.Get(coupleID, scheduledDate)
	if err == nil && cached != nil {
		item := cached.Item
		s.refreshResponses(ctx, &item)
		return &item, nil
	}

	rctx, cancel := s.remoteCtx(ctx)
	defer cancel()
	doc, err := s.store.GetItem(rctx, models.ItemID(coupleID, scheduledDate))
	if errors.Is(err, remote.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetching content item: %w", err)
	}

	subDocs, err := s.store.ListResponses(rctx, doc.ID)
	if err != nil {
		subDocs = nil
	}
	return remote.ItemFromDoc(doc, subDocs), nil
}

// refreshResponses overlays the freshest sub-resource responses onto a cached
// item. On timeout the cached responses stand; the view never hangs on the
// remote store.
func (s *ContentService) refreshResponses(ctx context.Context, item *models.ContentItem) {
	rctx, cancel := s.remoteCtx(ctx)
	defer cancel()

	subDocs, err := s.store.ListResponses(rctx, item.ID)
	if err != nil {
		s.logger.Debugf(providers.TypeSync, "Serving cached responses for %s: %s", item.ID, err)
		return
	}
	if len(subDocs) == 0 {
		return
	}
	item.Responses = item.Responses[:0]
	for _, rd := range subDocs {
		item.Responses = append(item.Responses, remote.ResponseFromDoc(rd))
	}
}

func (s *ContentService) TodayView(ctx context.Context, coupleID, userID string, ct models.ContentType, locale string) (*TodayView, error) {
	unlock := s.locks.Lock(lockKey(coupleID, ct))
	defer unlock()

	cat, ok := s.text.CategoryForType(ct)
	if !ok {
		return nil, ErrUnknownCategory
	}

	settings, err := s.ensureSettings(ctx, coupleID, ct)
	if err != nil {
		return nil, err
	}

	now := s.now()
	total := s.text.ItemCount(cat.Slug)
	res, err := content.ResolveDay(settings, now, total)
	if err != nil {
		s.invariant("empty content pool for category %s", cat.Slug)
		return nil, err
	}

	today := now.UTC().Format(models.ScheduledDateLayout)
	item, err := s.loadItem(ctx, coupleID, today)
	if err != nil {
		return nil, err
	}

	newItem := false
	if item == nil && res.NewItemAvailable {
		item, err = s.createItem(ctx, settings, cat, res, today, now)
		if err != nil {
			return nil, err
		}
		newItem = true
		if settings.Advance(res.NextDay, now) {
			s.putSettings(ctx, settings)
		}
	}
	if item == nil {
		// Nothing due today: surface the most recent known item.
		entries, err := s.cache.ListByCouple(coupleID, ct, 1)
		if err == nil && len(entries) == 1 {
			item = &entries[0].Item
			s.refreshResponses(ctx, item)
		}
	}

	view := &TodayView{
		CoupleID:    coupleID,
		ContentType: ct,
		Day:         res.ResolvedDay,
		NewItem:     newItem,
	}
	if item == nil {
		return view, nil
	}

	s.reconcileStatus(ctx, item, now)
	s.storeSnapshot(item, cat.Slug, now, false)

	view.Item = item
	view.Text = s.resolveText(locale, cat.Slug, item.ContentKey)
	view.BothAnswered = content.BothResponded(item)
	if own, ok := content.CurrentUserResponse(item, userID); ok {
		view.OwnResponse = &own
	}
	if partner, ok := content.PartnerResponse(item, userID); ok {
		view.PartnerResponse = &partner
	}
	view.WaitingForPartner = content.ShouldShowWaitingMessage(item, userID, settings, now, total, s.conf.Content.AnswerWindow)
	return view, nil
}

// resolveText returns the localized text for key, keeping the offline bank
// warm: resolved texts are written through so a later visit without the
// manifest tables for this locale still has something to show.
func (s *ContentService) resolveText(locale, slug, key string) string {
	text := s.text.Resolve(locale, key)
	if text != key {
		if err := s.cache.PutBankItem(slug, key, []byte(text)); err != nil {
			s.logger.Debugf(providers.TypeCache, "Banking text for %s failed: %s", key, err)
		}
		return text
	}
	if banked, err := s.cache.GetBankItem(slug, key); err == nil && len(banked) > 0 {
		return string(banked)
	}
	return text
}

// createItem materializes today's item and publishes it. The ID derives from
// couple and date, so re-running the creation upserts the same document.
func (s *ContentService) createItem(ctx context.Context, settings *models.ProgressionSettings, cat providers.Category, res content.DayResolution, scheduledDate string, now time.Time) (*models.ContentItem, error) {
	loc, err := time.LoadLocation(settings.Timezone)
	if err != nil {
		loc = time.UTC
	}

	item := &models.ContentItem{
		ID:                models.ItemID(settings.CoupleID, scheduledDate),
		CoupleID:          settings.CoupleID,
		ContentType:       settings.ContentType,
		Category:          cat.Slug,
		ContentKey:        s.text.ContentKey(cat.Slug, res.ResolvedDay),
		Day:               res.ResolvedDay,
		ScheduledDate:     scheduledDate,
		ScheduledDateTime: models.ReleaseInstant(now.In(loc), s.conf.Content.ReleaseHour, loc),
		Status:            models.StatusPending,
		Timezone:          settings.Timezone,
		CreatedAt:         now.UTC(),
		UpdatedAt:         now.UTC(),
	}
	item.Transition(models.StatusActive, now.UTC())

	wctx, cancel := s.remoteCtx(ctx)
	defer cancel()
	if err := s.store.PutItem(wctx, remote.ItemToDoc(item)); err != nil {
		return nil, fmt.Errorf("publishing content item: %w", err)
	}
	return item, nil
}

// reconcileStatus applies answer-count and expiry transitions and pushes the
// header when something changed. Two answered responses always win: an item
// that collected both answers can no longer expire, however late the
// reconciliation runs.
func (s *ContentService) reconcileStatus(ctx context.Context, item *models.ContentItem, now time.Time) {
	if dup, found := duplicateAnswered(item.EffectiveResponses().Records()); found {
		s.invariant("duplicate answered response from user %s on item %s", dup, item.ID)
		return
	}

	changed := false
	answered := 0
	for _, rec := range content.Merge(item.EffectiveResponses().Records()) {
		if rec.Status == models.ResponseAnswered {
			answered++
		}
	}

	switch {
	case answered >= 2:
		if item.Status == models.StatusActive {
			item.Transition(models.StatusOneAnswered, now.UTC())
		}
		changed = item.Transition(models.StatusBothAnswered, now.UTC())
	case !item.Status.Terminal() && item.IsExpired(now, s.conf.Content.AnswerWindow):
		changed = item.Transition(models.StatusExpired, now.UTC())
	case answered == 1:
		changed = item.Transition(models.StatusOneAnswered, now.UTC())
	}

	if changed {
		wctx, cancel := s.remoteCtx(ctx)
		defer cancel()
		if err := s.store.PutItem(wctx, remote.ItemToDoc(item)); err != nil {
			s.logger.Errorf(providers.TypeSync, "Persisting status %s for item %s failed: %s", item.Status, item.ID, err)
		}
	}
}

func (s *ContentService) storeSnapshot(item *models.ContentItem, categorySlug string, viewedAt time.Time, dirty bool) {
	err := s.cache.Upsert(&models.CacheEntry{
		CoupleID:      item.CoupleID,
		ContentType:   item.ContentType,
		Category:      categorySlug,
		ScheduledDate: item.ScheduledDate,
		Item:          *item,
		LastViewed:    viewedAt.UTC(),
		Dirty:         dirty,
	})
	if err != nil {
		s.logger.Warnf(providers.TypeCache, "Caching item %s failed, continuing network-only: %s", item.ID, err)
	}
}

func (s *ContentService) SubmitResponse(ctx context.Context, coupleID, userID, displayName, text string, ct models.ContentType) error {
	unlock := s.locks.Lock(lockKey(coupleID, ct))
	defer unlock()

	cat, ok := s.text.CategoryForType(ct)
	if !ok {
		return ErrUnknownCategory
	}

	now := s.now()
	today := now.UTC().Format(models.ScheduledDateLayout)
	item, err := s.loadItem(ctx, coupleID, today)
	if err != nil {
		return err
	}
	if item == nil {
		settings, err := s.ensureSettings(ctx, coupleID, ct)
		if err != nil {
			return err
		}
		res, err := content.ResolveDay(settings, now, s.text.ItemCount(cat.Slug))
		if err != nil {
			s.invariant("empty content pool for category %s", cat.Slug)
			return err
		}
		if !res.NewItemAvailable {
			return ErrNoContentToday
		}
		item, err = s.createItem(ctx, settings, cat, res, today, now)
		if err != nil {
			return err
		}
		if settings.Advance(res.NextDay, now) {
			s.putSettings(ctx, settings)
		}
	}

	if own, ok := content.CurrentUserResponse(item, userID); ok && own.Status == models.ResponseAnswered {
		return ErrAlreadyAnswered
	}

	rec := models.NewResponseRecord(userID, displayName, text, now.UTC())
	item.Responses = append(item.Responses, rec)
	s.reconcileStatus(ctx, item, now)

	// Local snapshot first, dirty until the remote write is acknowledged, so
	// the entry survives every eviction pass in between.
	s.storeSnapshot(item, cat.Slug, now, true)

	// The remote write is at-least-once: it proceeds on a detached context so
	// the user navigating away cannot abort it mid-flight.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.conf.Remote.Timeout)
	defer cancel()
	if err := s.store.PutResponse(wctx, item.ID, remote.ResponseToDoc(rec)); err != nil {
		return fmt.Errorf("submitting response: %w", err)
	}

	s.storeSnapshot(item, cat.Slug, now, false)
	return nil
}

func (s *ContentService) MarkPartnerResponseRead(ctx context.Context, coupleID, userID string, ct models.ContentType, scheduledDate string) error {
	unlock := s.locks.Lock(lockKey(coupleID, ct))
	defer unlock()

	item, err := s.loadItem(ctx, coupleID, scheduledDate)
	if err != nil {
		return err
	}
	if item == nil {
		return remote.ErrNotFound
	}

	partner, ok := content.PartnerResponse(item, userID)
	if !ok {
		return ErrNoPartnerReply
	}
	if partner.IsReadByPartner {
		return nil
	}

	wctx, cancel := s.remoteCtx(ctx)
	defer cancel()
	if err := s.store.SetResponseRead(wctx, item.ID, partner.UserID, true); err != nil {
		return fmt.Errorf("marking response read: %w", err)
	}

	for i := range item.Responses {
		if item.Responses[i].UserID == partner.UserID {
			item.Responses[i].IsReadByPartner = true
		}
	}
	// Items loaded cold from the remote carry no category hint; resolve the
	// slug so the snapshot lands under the same index key as before.
	s.storeSnapshot(item, categorySlugFor(s.text, item), s.now(), false)
	return nil
}

func (s *ContentService) History(_ context.Context, coupleID string, ct models.ContentType, limit int) ([]*models.CacheEntry, error) {
	return s.cache.ListByCouple(coupleID, ct, limit)
}

// Route computes the screen decision. Transient failures resolving couple
// state fail open: the user is routed to Main on stale knowledge rather than
// trapped in onboarding or behind a paywall by an infrastructure hiccup.
func (s *ContentService) Route(ctx context.Context, q RouteQuery) models.RouteState {
	in := content.RouteInputs{
		HasSeenIntro:        q.HasSeenIntro,
		ServiceHasError:     q.ServiceHasError,
		ServiceErrorMessage: q.ServiceErrorMessage,
		ServiceIsLoading:    q.ServiceIsLoading,
	}

	rctx, cancel := s.remoteCtx(ctx)
	defer cancel()

	entitled := true
	couple, err := s.store.GetCouple(rctx, q.CoupleID)
	switch {
	case err == nil:
		in.HasConnectedPartner = len(couple.MemberIDs) >= 2
		entitled = couple.Entitled
	case errors.Is(err, remote.ErrNotFound):
		in.HasConnectedPartner = false
	default:
		s.logger.Warnf(providers.TypeSync, "Couple lookup for %s failed, routing on stale state: %s", q.CoupleID, err)
		in.HasConnectedPartner = true
	}

	if !entitled && in.HasConnectedPartner {
		if cat, ok := s.text.CategoryForType(q.ContentType); ok {
			if settings, err := s.ensureSettings(ctx, q.CoupleID, q.ContentType); err == nil {
				if res, err := content.ResolveDay(settings, s.now(), s.text.ItemCount(cat.Slug)); err == nil && res.ResolvedDay > s.conf.Content.FreeDays {
					in.ShouldShowPaywall = true
					in.PaywallDay = res.ResolvedDay
				}
			}
		}
	}

	route := content.CalculateRoute(in)
	s.metrics.IncRouteDecision(route.RouteName())
	return route
}

// Watch subscribes to remote changes for one couple and folds every event
// through the per-couple critical section. The raw listener goroutine never
// writes the cache itself.
func (s *ContentService) Watch(ctx context.Context, coupleID string, ct models.ContentType) error {
	sub, err := s.store.Subscribe(ctx, coupleID, string(ct))
	if err != nil {
		return fmt.Errorf("subscribing to couple %s: %w", coupleID, err)
	}

	go func() {
		for ev := range sub.Events() {
			s.ingest(ctx, ev)
		}
	}()
	return nil
}

func (s *ContentService) ingest(ctx context.Context, ev remote.Event) {
	if ev.Item == nil {
		return
	}

	unlock := s.locks.Lock(lockKey(ev.CoupleID, models.ContentType(ev.ContentType)))
	defer unlock()

	existing, err := s.cache.Get(ev.CoupleID, ev.Item.ScheduledDate)
	if err == nil && existing != nil && existing.Dirty {
		// A local mutation is still in flight; the next read converges.
		s.logger.Debugf(providers.TypeSync, "Skipping remote overlay for dirty entry %s", ev.Item.ID)
		return
	}

	rctx, cancel := s.remoteCtx(ctx)
	defer cancel()
	subDocs, err := s.store.ListResponses(rctx, ev.Item.ID)
	if err != nil {
		subDocs = nil
	}

	item := remote.ItemFromDoc(ev.Item, subDocs)
	s.reconcileStatus(ctx, item, s.now())
	s.storeSnapshot(item, categorySlugFor(s.text, item), s.now(), false)
}

func categorySlugFor(text providers.TextProviderInterface, item *models.ContentItem) string {
	if item.Category != "" {
		return item.Category
	}
	if cat, ok := text.CategoryForType(item.ContentType); ok {
		return cat.Slug
	}
	return string(item.ContentType)
}

func (s *ContentService) ResetProgression(ctx context.Context, coupleID string, ct models.ContentType) error {
	unlock := s.locks.Lock(lockKey(coupleID, ct))
	defer unlock()

	settings, err := s.ensureSettings(ctx, coupleID, ct)
	if err != nil {
		return err
	}
	settings.Reset(content.MidnightUTC(s.now()))

	wctx, cancel := s.remoteCtx(ctx)
	defer cancel()
	if err := s.store.PutSettings(wctx, remote.SettingsToDoc(settings)); err != nil {
		return fmt.Errorf("resetting progression: %w", err)
	}
	s.logger.Infof(providers.TypeApp, "Progression reset for couple %s (%s)", coupleID, ct)
	return nil
}

// duplicateAnswered detects two answered records from one user inside the
// modern list representation.
func duplicateAnswered(records []models.ResponseRecord) (string, bool) {
	seen := make(map[string]int, len(records))
	for _, rec := range records {
		if rec.Status != models.ResponseAnswered {
			continue
		}
		seen[rec.UserID]++
		if seen[rec.UserID] > 1 {
			return rec.UserID, true
		}
	}
	return "", false
}
