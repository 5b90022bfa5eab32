package controllers

import (
	"context"
	"net/http"

	json "github.com/goccy/go-json"

	"bousai/internal/cache"
	"bousai/internal/models"
	"bousai/internal/providers"
	"bousai/internal/services"
)

const maxRequestBodySize = 1 << 20 // 1 MB

// Query parameters on /content that steer caching instead of the
// upstream query itself.
const (
	paramKind   = "kind"
	paramPin    = "pin"
	paramSearch = "search"
)

type ApiController struct {
	logger       providers.Logger
	device       services.DeviceServiceInterface
	checkin      services.CheckinServiceInterface
	contentCache cache.ContentCacheInterface
	gate         cache.VersionGateInterface
	api          providers.ApiClientInterface
	connectivity providers.ConnectivityInterface
}

func NewApiController(logger providers.Logger, device services.DeviceServiceInterface, checkin services.CheckinServiceInterface, contentCache cache.ContentCacheInterface, gate cache.VersionGateInterface, api providers.ApiClientInterface, connectivity providers.ConnectivityInterface) *ApiController {
	return &ApiController{
		logger:       logger,
		device:       device,
		checkin:      checkin,
		contentCache: contentCache,
		gate:         gate,
		api:          api,
		connectivity: connectivity,
	}
}

type deviceResponse struct {
	Device models.DeviceRecord `json:"device"`
	Online bool                `json:"online"`
}

func (ac *ApiController) GetDevice(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, deviceResponse{
		Device: ac.device.Snapshot(),
		Online: ac.connectivity.Online(),
	})
}

func (ac *ApiController) UpdateDevice(w http.ResponseWriter, r *http.Request) {
	var patch models.DevicePatch
	if !decodeBody(w, r, &patch) {
		return
	}
	rec := ac.device.UpdateDevice(patch)
	writeJSON(w, http.StatusOK, deviceResponse{Device: rec, Online: ac.connectivity.Online()})
}

func (ac *ApiController) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch models.SettingsPatch
	if !decodeBody(w, r, &patch) {
		return
	}
	ac.device.SetSettings(patch)
	w.WriteHeader(http.StatusNoContent)
}

func (ac *ApiController) AddSavedArea(w http.ResponseWriter, r *http.Request) {
	var area models.SavedArea
	if !decodeBody(w, r, &area) {
		return
	}
	if area.PrefCode == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	ac.device.AddSavedArea(area)
	w.WriteHeader(http.StatusCreated)
}

func (ac *ApiController) RemoveSavedArea(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	ac.device.RemoveSavedArea(id)
	w.WriteHeader(http.StatusNoContent)
}

func (ac *ApiController) SelectArea(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AreaID string `json:"areaId"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	ac.device.SetSelectedArea(body.AreaID)
	w.WriteHeader(http.StatusNoContent)
}

func (ac *ApiController) AddFavorite(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ShelterID string `json:"shelterId"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.ShelterID == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	ac.device.AddFavoriteShelter(body.ShelterID)
	w.WriteHeader(http.StatusCreated)
}

func (ac *ApiController) RemoveFavorite(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	ac.device.RemoveFavoriteShelter(id)
	w.WriteHeader(http.StatusNoContent)
}

// Checkin accepts the intent and returns immediately; the optimistic
// local write is already visible in the next snapshot, delivery runs in
// the background pipeline.
func (ac *ApiController) Checkin(w http.ResponseWriter, r *http.Request) {
	var req models.CheckinRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !models.ValidStatus(req.Status) {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	if req.Precision == "" {
		req.Precision = models.PrecisionCoarse
	}
	ac.checkin.Checkin(req)
	w.WriteHeader(http.StatusAccepted)
}

// Content serves shelter/warning queries through the content cache:
// cached payloads are returned as-is, misses are fetched upstream and
// stored under the canonical key for the query.
func (ac *ApiController) Content(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	kind := query.Get(paramKind)
	if kind == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	pinned := query.Get(paramPin) == "1"
	search := query.Get(paramSearch) == "1"

	params := make(map[string]string)
	for name, vals := range query {
		if name == paramKind || name == paramPin || name == paramSearch {
			continue
		}
		if len(vals) > 0 {
			params[name] = vals[0]
		}
	}

	key := cache.BuildKey(kind, params)
	if data, ok := ac.contentCache.Get(key); ok {
		writeRawJSON(w, http.StatusOK, data)
		return
	}

	data, status, err := ac.api.FetchContent(r.Context(), kind, params)
	if err != nil || status != http.StatusOK {
		ac.logger.Debugf(providers.TypeHTTP, "Content fetch failed (status=%d): %v", status, err)
		http.Error(w, "Bad Gateway", http.StatusBadGateway)
		return
	}

	ac.contentCache.Set(key, data, cache.SetOptions{Pinned: pinned, Search: search})
	writeRawJSON(w, http.StatusOK, data)
}

type refreshResponse struct {
	Invalidated bool `json:"invalidated"`
}

// Refresh is the pull-to-refresh entry point: force the version check,
// retry the server merge and drain the pending queue.
func (ac *ApiController) Refresh(w http.ResponseWriter, r *http.Request) {
	invalidated := ac.gate.ForceCheck(r.Context())
	// The request context dies with the handler, the background work must
	// outlive it.
	go ac.device.SyncFromServer(context.Background())
	go ac.checkin.Drain()
	writeJSON(w, http.StatusOK, refreshResponse{Invalidated: invalidated})
}

// Connectivity lets the host app push an explicit online/offline hint.
func (ac *ApiController) Connectivity(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Online bool `json:"online"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	ac.connectivity.SetOnline(body.Online)
	w.WriteHeader(http.StatusNoContent)
}

func decodeBody(w http.ResponseWriter, r *http.Request, out interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeRawJSON(w, status, data)
}

func writeRawJSON(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
