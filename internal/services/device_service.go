package services

import (
	"context"
	"net/http"
	"sync"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/atomic"

	"bousai/internal/models"
	"bousai/internal/providers"
	"bousai/internal/storage"
	"bousai/internal/structures"
)

const deviceRecordKey = "device:record"

// DeviceServiceInterface owns the canonical per-device record. Every
// mutation applies locally first and is authoritative for the UI; the
// server push is a throttled best-effort side effect.
type DeviceServiceInterface interface {
	Snapshot() models.DeviceRecord
	UpdateDevice(patch models.DevicePatch) models.DeviceRecord
	ApplyCheckin(c models.Checkin)
	SyncFromServer(ctx context.Context)
	SyncToServer(ctx context.Context, force bool)
	AddSavedArea(area models.SavedArea)
	RemoveSavedArea(id string)
	SetSelectedArea(id string)
	SetSettings(patch models.SettingsPatch)
	AddFavoriteShelter(shelterID string)
	RemoveFavoriteShelter(shelterID string)
	AddRecentShelter(shelterID string)
	Rehydrate()
}

type DeviceService struct {
	conf    *structures.Config
	kv      storage.KVStoreInterface
	api     providers.ApiClientInterface
	metrics providers.MetricsProviderInterface
	logger  providers.Logger

	mu            sync.Mutex
	record        models.DeviceRecord
	lastPushAt    time.Time
	cooldownUntil time.Time

	syncing atomic.Bool
	synced  atomic.Bool
}

func NewDeviceService(conf *structures.Config, kv storage.KVStoreInterface, api providers.ApiClientInterface, metrics providers.MetricsProviderInterface, logger providers.Logger) DeviceServiceInterface {
	return &DeviceService{
		conf:    conf,
		kv:      kv,
		api:     api,
		metrics: metrics,
		logger:  logger,
	}
}

// Rehydrate loads the persisted record, generating the device identity
// on first launch. The id is generated once and never changes.
func (s *DeviceService) Rehydrate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if raw, ok := s.kv.Get(deviceRecordKey); ok {
		if rec, ok := models.DecodeDeviceRecord([]byte(raw)); ok {
			s.record = rec
			return
		}
		s.logger.Warnf(providers.TypeSync, "Malformed device record in storage, resetting")
	}

	s.record = models.DeviceRecord{
		DeviceID:  uuid.NewString(),
		UpdatedAt: time.Now(),
	}
	s.persistLocked()
	s.logger.Infof(providers.TypeSync, "New device record created: %s", s.record.DeviceID)
}

func (s *DeviceService) Snapshot() models.DeviceRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.record.Clone()
}

func (s *DeviceService) UpdateDevice(patch models.DevicePatch) models.DeviceRecord {
	return s.mutate(func(r *models.DeviceRecord) {
		r.Apply(patch, time.Now())
	})
}

// ApplyCheckin writes the optimistic local entry, archiving the previous
// active one in the same mutation.
func (s *DeviceService) ApplyCheckin(c models.Checkin) {
	s.mutate(func(r *models.DeviceRecord) {
		r.Checkins = models.AppendCheckin(r.Checkins, c, s.conf.DeviceSync.MaxCheckins, time.Now())
	})
}

// mutate serializes every record mutation, persists the result and
// schedules a throttled push of the new snapshot.
func (s *DeviceService) mutate(fn func(r *models.DeviceRecord)) models.DeviceRecord {
	s.mu.Lock()
	fn(&s.record)
	s.record.UpdatedAt = time.Now()
	s.persistLocked()
	snap := s.record.Clone()
	s.mu.Unlock()

	go s.SyncToServer(context.Background(), false)
	return snap
}

func (s *DeviceService) persistLocked() {
	data, err := json.Marshal(s.record)
	if err != nil {
		s.logger.Errorf(providers.TypeSync, "Failed to encode device record: %s", err)
		return
	}
	s.kv.Set(deviceRecordKey, string(data))
	if err := s.kv.Flush(); err != nil {
		s.logger.Warnf(providers.TypeSync, "Failed to flush device record: %s", err)
	}
}

// SyncFromServer merges the server copy once per process. Local fields
// win on conflict; the server only fills gaps. A failed fetch releases
// the latch so a later refresh can retry.
func (s *DeviceService) SyncFromServer(ctx context.Context) {
	if s.synced.Load() || !s.syncing.CompareAndSwap(false, true) {
		return
	}
	defer s.syncing.Store(false)

	deviceID := s.Snapshot().DeviceID
	server, status, err := s.api.FetchDevice(ctx, deviceID)
	if err != nil || status != http.StatusOK {
		s.logger.Debugf(providers.TypeSync, "Device fetch failed (status=%d): %v", status, err)
		return
	}
	s.synced.Store(true)
	if server == nil {
		return
	}

	s.mu.Lock()
	s.record.MergeFromServer(*server)
	s.persistLocked()
	s.mu.Unlock()
}

// SyncToServer pushes the current snapshot. Pushes are coalesced by the
// throttle and suppressed entirely during an active cooldown; the last
// local state still eventually wins because every push sends the full
// snapshot rather than a diff.
func (s *DeviceService) SyncToServer(ctx context.Context, force bool) {
	s.mu.Lock()
	now := time.Now()
	if now.Before(s.cooldownUntil) {
		s.mu.Unlock()
		return
	}
	if !force && now.Sub(s.lastPushAt) < s.conf.DeviceSync.Throttle {
		s.mu.Unlock()
		return
	}
	// Claim the push slot before releasing the lock so concurrent
	// mutations coalesce into this push's snapshot.
	s.lastPushAt = now
	snap := s.record.Clone()
	s.mu.Unlock()

	status, err := s.api.PushDevice(ctx, snap)

	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case err == nil && status >= 200 && status < 300:
		s.cooldownUntil = time.Time{}
		s.lastPushAt = time.Now()
		s.metrics.IncSyncPushes("ok")
	case status == http.StatusTooManyRequests:
		s.cooldownUntil = time.Now().Add(s.conf.DeviceSync.RateLimitCooldown)
		s.metrics.IncSyncPushes("rate_limited")
		s.logger.Warnf(providers.TypeSync, "Device push rate-limited, cooling down %s", s.conf.DeviceSync.RateLimitCooldown)
	default:
		s.cooldownUntil = time.Now().Add(s.conf.DeviceSync.ErrorCooldown)
		s.metrics.IncSyncPushes("error")
		s.logger.Debugf(providers.TypeSync, "Device push failed (status=%d): %v", status, err)
	}
}

// AddSavedArea appends the area, silently dropping the oldest entry when
// the cap is exceeded.
func (s *DeviceService) AddSavedArea(area models.SavedArea) {
	if area.ID == "" {
		area.ID = uuid.NewString()
	}
	if area.AddedAt.IsZero() {
		area.AddedAt = time.Now()
	}
	s.mutate(func(r *models.DeviceRecord) {
		areas := append(append([]models.SavedArea(nil), r.SavedAreas...), area)
		if maxAreas := s.conf.DeviceSync.MaxSavedAreas; maxAreas > 0 && len(areas) > maxAreas {
			areas = areas[len(areas)-maxAreas:]
		}
		r.SavedAreas = areas
	})
}

// RemoveSavedArea drops the area and clears the selected-area pointer
// when it targets the removed area.
func (s *DeviceService) RemoveSavedArea(id string) {
	s.mutate(func(r *models.DeviceRecord) {
		areas := make([]models.SavedArea, 0, len(r.SavedAreas))
		for _, a := range r.SavedAreas {
			if a.ID != id {
				areas = append(areas, a)
			}
		}
		r.SavedAreas = areas
		if r.Settings.SelectedAreaID == id {
			r.Settings.SelectedAreaID = ""
		}
	})
}

func (s *DeviceService) SetSelectedArea(id string) {
	s.SetSettings(models.SettingsPatch{SelectedAreaID: &id})
}

func (s *DeviceService) SetSettings(patch models.SettingsPatch) {
	s.UpdateDevice(models.DevicePatch{Settings: &patch})
}

func (s *DeviceService) AddFavoriteShelter(shelterID string) {
	s.mutate(func(r *models.DeviceRecord) {
		r.Favorites.ShelterIDs = prependUnique(r.Favorites.ShelterIDs, shelterID, s.conf.DeviceSync.MaxFavorites)
	})
}

func (s *DeviceService) RemoveFavoriteShelter(shelterID string) {
	s.mutate(func(r *models.DeviceRecord) {
		ids := make([]string, 0, len(r.Favorites.ShelterIDs))
		for _, id := range r.Favorites.ShelterIDs {
			if id != shelterID {
				ids = append(ids, id)
			}
		}
		r.Favorites.ShelterIDs = ids
	})
}

func (s *DeviceService) AddRecentShelter(shelterID string) {
	s.mutate(func(r *models.DeviceRecord) {
		r.Recent.ShelterIDs = prependUnique(r.Recent.ShelterIDs, shelterID, s.conf.DeviceSync.MaxRecents)
	})
}

// prependUnique puts id first, de-duplicates and trims to limit
// (most-recent-first ordering).
func prependUnique(ids []string, id string, limit int) []string {
	out := make([]string, 0, len(ids)+1)
	out = append(out, id)
	for _, prev := range ids {
		if prev != id {
			out = append(out, prev)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
