package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"sync/atomic"

	json "github.com/goccy/go-json"

	"tandem/internal/models"
	"tandem/internal/providers"
	"tandem/internal/remote"
	"tandem/internal/services"
)

const maxRequestBodySize = 1 << 20 // 1 MB

type ApiController struct {
	logger  providers.Logger
	service services.ContentServiceInterface
	cache   providers.CacheProviderInterface
	gen     atomic.Uint64
}

func NewApiController(logger providers.Logger, service services.ContentServiceInterface, cache providers.CacheProviderInterface) *ApiController {
	return &ApiController{
		logger:  logger,
		service: service,
		cache:   cache,
	}
}

// coupleGeneration tags every cached view of one couple. Bumping the
// generation on a mutation orphans all member and locale variants at once;
// the orphans age out with the cache TTL.
func (ac *ApiController) coupleGeneration(coupleID string) string {
	if v, ok := ac.cache.Get("gen|" + coupleID); ok {
		return string(v)
	}
	g := strconv.FormatUint(ac.gen.Add(1), 10)
	ac.cache.Set("gen|"+coupleID, []byte(g))
	return g
}

func (ac *ApiController) bumpCoupleGeneration(coupleID string) {
	ac.cache.Set("gen|"+coupleID, []byte(strconv.FormatUint(ac.gen.Add(1), 10)))
}

func contentTypeParam(r *http.Request) models.ContentType {
	if r.URL.Query().Get("type") == string(models.TypeChallenge) {
		return models.TypeChallenge
	}
	return models.TypeQuestion
}

func (ac *ApiController) serveFromCacheOrCompute(w http.ResponseWriter, cacheKey string, compute func() (any, error)) {
	if data, ok := ac.cache.Get(cacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	result, err := compute()
	if err != nil {
		ac.writeError(w, err)
		return
	}

	gson, err := json.Marshal(result)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	ac.cache.Set(cacheKey, gson)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func (ac *ApiController) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrUnknownCategory):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, services.ErrAlreadyAnswered):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, services.ErrNoContentToday), errors.Is(err, services.ErrNoPartnerReply), errors.Is(err, remote.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		ac.logger.Errorf(providers.TypeApi, "Request failed: %s", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// GetToday serves the aggregated state of the current content item.
func (ac *ApiController) GetToday(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	coupleID, userID := q.Get("couple"), q.Get("user")
	if coupleID == "" || userID == "" {
		http.Error(w, "couple and user are required", http.StatusBadRequest)
		return
	}
	ct := contentTypeParam(r)
	locale := q.Get("locale")

	cacheKey := "today|" + ac.coupleGeneration(coupleID) + "|" + coupleID + "|" + userID + "|" + string(ct) + "|" + locale
	ac.serveFromCacheOrCompute(w, cacheKey, func() (any, error) {
		return ac.service.TodayView(r.Context(), coupleID, userID, ct, locale)
	})
}

type submitRequest struct {
	CoupleID    string `json:"couple_id"`
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Text        string `json:"text"`
	ContentType string `json:"content_type"`
}

// SubmitResponse accepts one partner's answer for today's item.
func (ac *ApiController) SubmitResponse(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if req.CoupleID == "" || req.UserID == "" || req.Text == "" {
		http.Error(w, "couple_id, user_id and text are required", http.StatusBadRequest)
		return
	}

	ct := models.ContentType(req.ContentType)
	if ct != models.TypeChallenge {
		ct = models.TypeQuestion
	}

	if err := ac.service.SubmitResponse(r.Context(), req.CoupleID, req.UserID, req.DisplayName, req.Text, ct); err != nil {
		ac.writeError(w, err)
		return
	}

	// Both members' views changed, in every locale.
	ac.bumpCoupleGeneration(req.CoupleID)
	w.WriteHeader(http.StatusAccepted)
}

// GetRoute computes the screen route for the client shell.
func (ac *ApiController) GetRoute(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	coupleID := q.Get("couple")
	if coupleID == "" {
		http.Error(w, "couple is required", http.StatusBadRequest)
		return
	}

	route := ac.service.Route(r.Context(), services.RouteQuery{
		CoupleID:            coupleID,
		ContentType:         contentTypeParam(r),
		HasSeenIntro:        q.Get("seenIntro") == "true",
		ServiceHasError:     q.Get("hasError") == "true",
		ServiceErrorMessage: q.Get("errorMessage"),
		ServiceIsLoading:    q.Get("loading") == "true",
	})

	resp := struct {
		Route string            `json:"route"`
		State models.RouteState `json:"state"`
	}{Route: route.RouteName(), State: route}

	gson, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

// GetHistory lists past items from the local cache.
func (ac *ApiController) GetHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	coupleID := q.Get("couple")
	if coupleID == "" {
		http.Error(w, "couple is required", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	ct := contentTypeParam(r)

	cacheKey := "history|" + ac.coupleGeneration(coupleID) + "|" + coupleID + "|" + string(ct) + "|" + strconv.Itoa(limit)
	ac.serveFromCacheOrCompute(w, cacheKey, func() (any, error) {
		return ac.service.History(r.Context(), coupleID, ct, limit)
	})
}

type markReadRequest struct {
	CoupleID      string `json:"couple_id"`
	UserID        string `json:"user_id"`
	ContentType   string `json:"content_type"`
	ScheduledDate string `json:"scheduled_date"`
}

// MarkRead flags the partner's response as read by the caller.
func (ac *ApiController) MarkRead(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	var req markReadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if req.CoupleID == "" || req.UserID == "" || req.ScheduledDate == "" {
		http.Error(w, "couple_id, user_id and scheduled_date are required", http.StatusBadRequest)
		return
	}

	ct := models.ContentType(req.ContentType)
	if ct != models.TypeChallenge {
		ct = models.TypeQuestion
	}

	if err := ac.service.MarkPartnerResponseRead(r.Context(), req.CoupleID, req.UserID, ct, req.ScheduledDate); err != nil {
		ac.writeError(w, err)
		return
	}
	ac.bumpCoupleGeneration(req.CoupleID)
	w.WriteHeader(http.StatusNoContent)
}
