package internal

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bousai/internal/cache"
	"bousai/internal/controllers"
	"bousai/internal/models"
	"bousai/internal/providers"
	"bousai/internal/structures"
)

// --- minimal mocks for routes test ---

type routeTestLogger struct{}

func (m *routeTestLogger) Errorf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (m *routeTestLogger) Warnf(_ providers.TypeEnum, _ string, _ ...interface{})  {}
func (m *routeTestLogger) Debugf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (m *routeTestLogger) Infof(_ providers.TypeEnum, _ string, _ ...interface{})  {}
func (m *routeTestLogger) Fatalf(_ providers.TypeEnum, _ string, _ ...interface{}) {}
func (m *routeTestLogger) Close()                                                  {}

type routeTestDevice struct{}

func (m *routeTestDevice) Snapshot() models.DeviceRecord { return models.DeviceRecord{DeviceID: "d"} }
func (m *routeTestDevice) UpdateDevice(_ models.DevicePatch) models.DeviceRecord {
	return models.DeviceRecord{}
}
func (m *routeTestDevice) ApplyCheckin(_ models.Checkin)          {}
func (m *routeTestDevice) SyncFromServer(_ context.Context)       {}
func (m *routeTestDevice) SyncToServer(_ context.Context, _ bool) {}
func (m *routeTestDevice) AddSavedArea(_ models.SavedArea)        {}
func (m *routeTestDevice) RemoveSavedArea(_ string)               {}
func (m *routeTestDevice) SetSelectedArea(_ string)               {}
func (m *routeTestDevice) SetSettings(_ models.SettingsPatch)     {}
func (m *routeTestDevice) AddFavoriteShelter(_ string)            {}
func (m *routeTestDevice) RemoveFavoriteShelter(_ string)         {}
func (m *routeTestDevice) AddRecentShelter(_ string)              {}
func (m *routeTestDevice) Rehydrate()                             {}

type routeTestCheckin struct{}

func (m *routeTestCheckin) Checkin(_ models.CheckinRequest) {}
func (m *routeTestCheckin) Drain()                          {}
func (m *routeTestCheckin) QueueDepth() int                 { return 0 }
func (m *routeTestCheckin) Rehydrate()                      {}

type routeTestCache struct{}

func (m *routeTestCache) Get(_ string) ([]byte, bool)                 { return nil, false }
func (m *routeTestCache) Set(_ string, _ []byte, _ cache.SetOptions)  {}
func (m *routeTestCache) Pin(_ string, _ bool)                        {}
func (m *routeTestCache) ClearAll()                                   {}
func (m *routeTestCache) SearchHistory() []string                     { return nil }
func (m *routeTestCache) TotalSize() int                              { return 0 }
func (m *routeTestCache) Rehydrate()                                  {}

type routeTestGate struct{}

func (m *routeTestGate) Check(_ context.Context) bool      { return false }
func (m *routeTestGate) ForceCheck(_ context.Context) bool { return false }

type routeTestApi struct{}

func (m *routeTestApi) FetchDevice(_ context.Context, _ string) (*models.DeviceRecord, int, error) {
	return nil, http.StatusOK, nil
}
func (m *routeTestApi) PushDevice(_ context.Context, _ models.DeviceRecord) (int, error) {
	return http.StatusOK, nil
}
func (m *routeTestApi) SubmitCheckin(_ context.Context, _ string, _ models.CheckinPayload) (int, string, error) {
	return http.StatusOK, "", nil
}
func (m *routeTestApi) FetchDataVersion(_ context.Context) (string, int, error) {
	return "v1", http.StatusOK, nil
}
func (m *routeTestApi) FetchContent(_ context.Context, _ string, _ map[string]string) ([]byte, int, error) {
	return []byte("[]"), http.StatusOK, nil
}
func (m *routeTestApi) Probe(_ context.Context) bool { return true }

type routeTestConnectivity struct{}

func (m *routeTestConnectivity) Online() bool                  { return true }
func (m *routeTestConnectivity) SetOnline(_ bool)              {}
func (m *routeTestConnectivity) Subscribe(_ func(online bool)) {}

func newRouteTestController() *controllers.ApiController {
	return controllers.NewApiController(
		&routeTestLogger{},
		&routeTestDevice{},
		&routeTestCheckin{},
		&routeTestCache{},
		&routeTestGate{},
		&routeTestApi{},
		&routeTestConnectivity{},
	)
}

func TestInitRoutes_RegistersAllRoutes(t *testing.T) {
	router := InitRoutes(newRouteTestController(), &structures.Config{})
	routes := router.GetRoutes()

	require.Len(t, routes, 12)

	urls := make([]string, len(routes))
	for i, r := range routes {
		urls[i] = r.Url
	}

	assert.Contains(t, urls, "GET /device")
	assert.Contains(t, urls, "POST /device")
	assert.Contains(t, urls, "PUT /settings")
	assert.Contains(t, urls, "POST /areas")
	assert.Contains(t, urls, "DELETE /areas")
	assert.Contains(t, urls, "POST /areas/select")
	assert.Contains(t, urls, "POST /favorites")
	assert.Contains(t, urls, "DELETE /favorites")
	assert.Contains(t, urls, "POST /checkin")
	assert.Contains(t, urls, "GET /content")
	assert.Contains(t, urls, "POST /refresh")
	assert.Contains(t, urls, "POST /connectivity")
}

func TestInitRoutes_MethodEnforcement(t *testing.T) {
	router := InitRoutes(newRouteTestController(), &structures.Config{})

	mux := http.NewServeMux()
	for _, r := range router.GetRoutes() {
		mux.Handle(r.Url, r.Handler)
	}

	// POST /checkin with GET should fail
	req := httptest.NewRequest(http.MethodGet, "/checkin", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)

	// GET /device works, DELETE /device does not
	req = httptest.NewRequest(http.MethodGet, "/device", nil)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)

	req = httptest.NewRequest(http.MethodDelete, "/device", nil)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}
