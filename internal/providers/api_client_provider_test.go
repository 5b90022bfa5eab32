package providers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bousai/internal/models"
	"bousai/internal/structures"
)

func newTestClient(t *testing.T, handler http.Handler) (ApiClientInterface, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	conf := &structures.Config{}
	conf.Remote.BaseURL = server.URL
	conf.Remote.Timeout = 2 * time.Second

	client, err := NewApiClientProvider(conf, &cacheTestLogger{})
	require.NoError(t, err)
	return client, server
}

func TestApiClient_FetchDevice(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/v1/devices/dev-1", r.URL.Path)
		_, _ = w.Write([]byte(`{"device":{"deviceId":"dev-1","settings":{"powerSaving":true}}}`))
	}))

	rec, status, err := client.FetchDevice(context.Background(), "dev-1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	require.NotNil(t, rec)
	assert.Equal(t, "dev-1", rec.DeviceID)
	assert.True(t, rec.Settings.PowerSaving)
}

func TestApiClient_FetchDeviceNotFound(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	rec, status, err := client.FetchDevice(context.Background(), "dev-1")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Nil(t, rec)
}

func TestApiClient_PushDevice(t *testing.T) {
	var received models.DeviceRecord
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/v1/devices/dev-1", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &received))
	}))

	status, err := client.PushDevice(context.Background(), models.DeviceRecord{DeviceID: "dev-1"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "dev-1", received.DeviceID)
}

func TestApiClient_SubmitCheckinExtractsErrorCode(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/devices/dev-1/checkins", r.URL.Path)
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"errorCode":"DUPLICATE","message":"already checked in"}`))
	}))

	status, errCode, err := client.SubmitCheckin(context.Background(), "dev-1", models.CheckinPayload{Status: models.StatusSafe})
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, models.ErrCodeDuplicate, errCode)
}

func TestApiClient_SubmitCheckinAccepted(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"accepted":true}`))
	}))

	status, errCode, err := client.SubmitCheckin(context.Background(), "dev-1", models.CheckinPayload{Status: models.StatusSafe})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, status)
	assert.Empty(t, errCode)
}

func TestApiClient_FetchDataVersion(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/data-version", r.URL.Path)
		_, _ = w.Write([]byte(`{"dataVersion":"2026-08-30T01"}`))
	}))

	version, status, err := client.FetchDataVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "2026-08-30T01", version)
}

func TestApiClient_FetchContentPassesQuery(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/content/shelters", r.URL.Path)
		assert.Equal(t, "13", r.URL.Query().Get("pref"))
		_, _ = w.Write([]byte(`[{"id":"s1"}]`))
	}))

	body, status, err := client.FetchContent(context.Background(), "shelters", map[string]string{"pref": "13"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, `[{"id":"s1"}]`, string(body))
}

func TestApiClient_ProbeReachable(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	assert.True(t, client.Probe(context.Background()))
}

func TestApiClient_ProbeUnreachable(t *testing.T) {
	client, server := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()
	assert.False(t, client.Probe(context.Background()))
}

func TestApiClient_TransportErrorHasZeroStatus(t *testing.T) {
	client, server := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, status, err := client.FetchDevice(context.Background(), "dev-1")
	assert.Error(t, err)
	assert.Equal(t, 0, status)
}

func TestApiClient_InvalidBaseURL(t *testing.T) {
	conf := &structures.Config{}
	conf.Remote.BaseURL = "://bad"
	conf.Remote.Timeout = time.Second

	_, err := NewApiClientProvider(conf, &cacheTestLogger{})
	assert.Error(t, err)
}
