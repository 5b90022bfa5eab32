package testutil

import (
	"context"
	"net/http"
	"strings"
	"sync"

	"bousai/internal/models"
	"bousai/internal/providers"
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

// MockKVStore implements storage.KVStoreInterface in memory.
type MockKVStore struct {
	mu         sync.Mutex
	Data       map[string]string
	FlushCalls int
	FlushErr   error
}

func NewMockKVStore() *MockKVStore {
	return &MockKVStore{Data: make(map[string]string)}
}

func (m *MockKVStore) Get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockKVStore) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

func (m *MockKVStore) Remove(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Data, key)
}

func (m *MockKVStore) Keys(prefix string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var keys []string
	for k := range m.Data {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys
}

func (m *MockKVStore) Load() error { return nil }

func (m *MockKVStore) Flush() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FlushCalls++
	return m.FlushErr
}

// MockHotCache implements providers.HotCacheInterface in memory.
type MockHotCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockHotCache() *MockHotCache {
	return &MockHotCache{Data: make(map[string][]byte)}
}

func (m *MockHotCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockHotCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = append([]byte(nil), value...)
}

func (m *MockHotCache) Del(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Data, key)
}

func (m *MockHotCache) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data = make(map[string][]byte)
}

// MockConnectivity implements providers.ConnectivityInterface with a
// directly settable flag.
type MockConnectivity struct {
	mu        sync.Mutex
	IsOnline  bool
	listeners []func(bool)
}

func NewMockConnectivity(online bool) *MockConnectivity {
	return &MockConnectivity{IsOnline: online}
}

func (m *MockConnectivity) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.IsOnline
}

func (m *MockConnectivity) SetOnline(online bool) {
	m.mu.Lock()
	if m.IsOnline == online {
		m.mu.Unlock()
		return
	}
	m.IsOnline = online
	listeners := append([]func(bool){}, m.listeners...)
	m.mu.Unlock()
	for _, fn := range listeners {
		fn(online)
	}
}

func (m *MockConnectivity) Subscribe(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// MockApiClient implements providers.ApiClientInterface with canned
// responses and call recording. A zero status defaults to 200 so tests
// only set what they care about.
type MockApiClient struct {
	mu sync.Mutex

	DeviceResult *models.DeviceRecord
	DeviceStatus int
	DeviceErr    error

	PushStatus int
	PushErr    error

	CheckinStatus  int
	CheckinErrCode string
	CheckinErr     error
	CheckinFunc    func(ctx context.Context, payload models.CheckinPayload) (int, string, error)

	VersionResult string
	VersionStatus int
	VersionErr    error

	ContentResult []byte
	ContentStatus int
	ContentErr    error

	Reachable bool

	FetchDeviceCalls int
	PushCalls        []models.DeviceRecord
	CheckinCalls     []models.CheckinPayload
	VersionCalls     int
	ContentCalls     []string
}

func (m *MockApiClient) FetchDevice(_ context.Context, _ string) (*models.DeviceRecord, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.FetchDeviceCalls++
	return m.DeviceResult, statusOr(m.DeviceStatus, m.DeviceErr), m.DeviceErr
}

func (m *MockApiClient) PushDevice(_ context.Context, rec models.DeviceRecord) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PushCalls = append(m.PushCalls, rec)
	return statusOr(m.PushStatus, m.PushErr), m.PushErr
}

func (m *MockApiClient) SubmitCheckin(ctx context.Context, _ string, payload models.CheckinPayload) (int, string, error) {
	m.mu.Lock()
	m.CheckinCalls = append(m.CheckinCalls, payload)
	fn := m.CheckinFunc
	status, code, err := statusOr(m.CheckinStatus, m.CheckinErr), m.CheckinErrCode, m.CheckinErr
	m.mu.Unlock()
	if fn != nil {
		return fn(ctx, payload)
	}
	return status, code, err
}

func (m *MockApiClient) FetchDataVersion(_ context.Context) (string, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.VersionCalls++
	return m.VersionResult, statusOr(m.VersionStatus, m.VersionErr), m.VersionErr
}

func (m *MockApiClient) FetchContent(_ context.Context, kind string, _ map[string]string) ([]byte, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ContentCalls = append(m.ContentCalls, kind)
	return m.ContentResult, statusOr(m.ContentStatus, m.ContentErr), m.ContentErr
}

func (m *MockApiClient) Probe(_ context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Reachable
}

func (m *MockApiClient) SubmittedCheckins() []models.CheckinPayload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.CheckinPayload(nil), m.CheckinCalls...)
}

func (m *MockApiClient) PushedDevices() []models.DeviceRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.DeviceRecord(nil), m.PushCalls...)
}

func statusOr(status int, err error) int {
	if status != 0 {
		return status
	}
	if err != nil {
		return 0
	}
	return http.StatusOK
}
