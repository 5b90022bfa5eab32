package controllers

import (
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"

	"bousai/internal/cache"
	"bousai/internal/providers"
	"bousai/internal/services"
)

type HealthController struct {
	checkin      services.CheckinServiceInterface
	contentCache cache.ContentCacheInterface
	connectivity providers.ConnectivityInterface
	startTime    time.Time
}

type healthResponse struct {
	Status          string  `json:"status"`
	Uptime          string  `json:"uptime"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
	Online          bool    `json:"online"`
	PendingCheckins int     `json:"pending_checkins"`
	CacheBytes      int     `json:"cache_bytes"`
}

func (hc *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(hc.startTime)
	resp := healthResponse{
		Status:          "ok",
		Uptime:          formatDuration(uptime),
		UptimeSeconds:   uptime.Seconds(),
		Online:          hc.connectivity.Online(),
		PendingCheckins: hc.checkin.QueueDepth(),
		CacheBytes:      hc.contentCache.TotalSize(),
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

func NewHealthController(checkin services.CheckinServiceInterface, contentCache cache.ContentCacheInterface, connectivity providers.ConnectivityInterface) *HealthController {
	return &HealthController{
		checkin:      checkin,
		contentCache: contentCache,
		connectivity: connectivity,
		startTime:    time.Now(),
	}
}
