package services

import (
	"context"
	"sync"
	"time"

	"github.com/roylee0704/gron"

	"bousai/internal/cache"
	"bousai/internal/providers"
	"bousai/internal/storage"
	"bousai/internal/structures"
)

type SchedulerInterface interface {
	Init()
	Stop()
	Restore() error
	Persist() error
}

// Scheduler owns the engine's periodic jobs: storage snapshot flushes,
// the version-gate tick and the connectivity probe. It also drives the
// restore/persist lifecycle around them.
type Scheduler struct {
	config       *structures.Config
	logger       providers.Logger
	kv           storage.KVStoreInterface
	device       DeviceServiceInterface
	checkin      CheckinServiceInterface
	contentCache cache.ContentCacheInterface
	gate         cache.VersionGateInterface
	connectivity providers.ConnectivityInterface
	api          providers.ApiClientInterface
	metrics      providers.MetricsProviderInterface
	cron         *gron.Cron
	opsMu        sync.Mutex
}

func NewScheduler(config *structures.Config, logger providers.Logger, kv storage.KVStoreInterface, device DeviceServiceInterface, checkin CheckinServiceInterface, contentCache cache.ContentCacheInterface, gate cache.VersionGateInterface, connectivity providers.ConnectivityInterface, api providers.ApiClientInterface, metrics providers.MetricsProviderInterface) SchedulerInterface {
	return &Scheduler{
		config:       config,
		logger:       logger,
		kv:           kv,
		device:       device,
		checkin:      checkin,
		contentCache: contentCache,
		gate:         gate,
		connectivity: connectivity,
		api:          api,
		metrics:      metrics,
	}
}

func (s *Scheduler) Init() {
	s.cron = gron.New()

	s.cron.AddFunc(gron.Every(s.config.Storage.SaveInterval), func() {
		s.opsMu.Lock()
		defer s.opsMu.Unlock()

		start := time.Now()
		if err := s.kv.Flush(); err != nil {
			s.logger.Errorf(providers.TypeApp, "Error while persisting storage: %s", err)
			return
		}
		s.metrics.ObservePersistenceDuration(time.Since(start))
	})

	s.cron.AddFunc(gron.Every(s.config.Version.CheckInterval), func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.Remote.Timeout)
		defer cancel()
		if s.gate.Check(ctx) {
			s.logger.Infof(providers.TypeCache, "Version tick invalidated the content cache")
		}
	})

	s.cron.AddFunc(gron.Every(s.config.Connectivity.ProbeInterval), func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.config.Remote.Timeout)
		defer cancel()
		s.connectivity.SetOnline(s.api.Probe(ctx))
	})

	s.cron.Start()

	// Startup reconciliation runs off the cron loop: merge the server
	// copy into the local record and attempt a first queue drain.
	go s.device.SyncFromServer(context.Background())
	go s.checkin.Drain()
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		s.cron.Stop()
	}
}

// Restore loads the storage snapshot and rehydrates every stateful
// component from it, in dependency order.
func (s *Scheduler) Restore() error {
	if err := s.kv.Load(); err != nil {
		return err
	}
	s.contentCache.Rehydrate()
	s.device.Rehydrate()
	s.checkin.Rehydrate()
	return nil
}

func (s *Scheduler) Persist() error {
	s.opsMu.Lock()
	defer s.opsMu.Unlock()

	s.logger.Infof(providers.TypeApp, "Persisting storage snapshot...")
	if err := s.kv.Flush(); err != nil {
		s.logger.Errorf(providers.TypeApp, "Error while persisting storage: %s", err)
		return err
	}
	return nil
}
