package controllers

import (
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"tandem/internal/cache"
)

type HealthController struct {
	cache     cache.ContentCacheInterface
	startTime time.Time
}

type healthResponse struct {
	Status        string  `json:"status"`
	Uptime        string  `json:"uptime"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	CacheDegraded bool    `json:"cache_degraded"`
	SchemaVersion int     `json:"schema_version"`
	CachedItems   int     `json:"cached_items"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	version, _ := hc.cache.SchemaVersion()
	total := 0
	if counts, err := hc.cache.CountByCategory(); err == nil {
		for _, n := range counts {
			total += n
		}
	}

	uptime := time.Since(hc.startTime)
	resp := healthResponse{
		Status:        "ok",
		Uptime:        formatDuration(uptime),
		UptimeSeconds: uptime.Seconds(),
		CacheDegraded: hc.cache.Degraded(),
		SchemaVersion: version,
		CachedItems:   total,
	}

	gson, err := json.Marshal(resp)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}

func formatDuration(d time.Duration) string {
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", hours, minutes, seconds)
}

func NewHealthController(contentCache cache.ContentCacheInterface) *HealthController {
	return &HealthController{
		cache:     contentCache,
		startTime: time.Now(),
	}
}
