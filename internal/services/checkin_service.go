package services

import (
	"context"
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

const (
	pendingQueueKey    = "checkin:queue"
	deliveredMarkerKey = "checkin:lastDelivered"
)

type submitOutcome int

const (
	outcomeDelivered submitOutcome = iota
	outcomeTerminal
	outcomeRetryable
)

// CheckinServiceInterface is the submission pipeline for safety check-ins.
// A call always lands locally first; delivery to the server is gated,
// coalesced and retried from a durable queue.
type CheckinServiceInterface interface {
	Checkin(req models.CheckinRequest)
	Drain()
	QueueDepth() int
	Rehydrate()
}

type CheckinService struct {
	conf         *structures.Config
	kv           storage.KVStoreInterface
	api          providers.ApiClientInterface
	device       DeviceServiceInterface
	connectivity providers.ConnectivityInterface
	metrics      providers.MetricsProviderInterface
	logger       providers.Logger

	mu             sync.Mutex
	queue          []models.PendingCheckin
	lastDelivered  *models.DeliveredMarker
	pending        *models.CheckinPayload
	pendingTimer   *time.Timer
	cancelInFlight context.CancelFunc
	inFlightGen    uint64

	draining atomic.Bool
}

func NewCheckinService(conf *structures.Config, kv storage.KVStoreInterface, api providers.ApiClientInterface, device DeviceServiceInterface, connectivity providers.ConnectivityInterface, metrics providers.MetricsProviderInterface, logger providers.Logger) CheckinServiceInterface {
	s := &CheckinService{
		conf:         conf,
		kv:           kv,
		api:          api,
		device:       device,
		connectivity: connectivity,
		metrics:      metrics,
		logger:       logger,
	}
	connectivity.Subscribe(func(online bool) {
		if online {
			go s.Drain()
		}
	})
	return s
}

// Rehydrate restores the pending queue and delivered marker from durable
// storage. Malformed state decodes to empty rather than failing.
func (s *CheckinService) Rehydrate() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if raw, ok := s.kv.Get(pendingQueueKey); ok {
		s.queue = models.DecodePendingQueue([]byte(raw))
	}
	if raw, ok := s.kv.Get(deliveredMarkerKey); ok {
		if m, ok := models.DecodeDeliveredMarker([]byte(raw)); ok {
			s.lastDelivered = &m
		}
	}
	s.metrics.SetPendingQueueDepth(len(s.queue))
}

// Checkin records the intent locally with zero latency, then decides
// whether to submit now, coalesce into the single pending slot, or drop
// a same-status repeat inside the minimum interval.
func (s *CheckinService) Checkin(req models.CheckinRequest) {
	now := time.Now()
	payload := models.CheckinPayload{
		Status:    req.Status,
		ShelterID: req.ShelterID,
		UpdatedAt: now,
		Lat:       req.Lat,
		Lon:       req.Lon,
		Precision: req.Precision,
		Comment:   models.ClampComment(req.Comment, s.conf.Checkin.MaxCommentLength),
	}.Redacted()

	s.device.ApplyCheckin(models.Checkin{
		ID:        uuid.NewString(),
		Status:    payload.Status,
		ShelterID: payload.ShelterID,
		UpdatedAt: payload.UpdatedAt,
		Lat:       payload.Lat,
		Lon:       payload.Lon,
		Precision: payload.Precision,
		Comment:   payload.Comment,
		Active:    true,
	})

	s.mu.Lock()
	if s.lastDelivered != nil {
		elapsed := now.Sub(s.lastDelivered.At)
		if elapsed < s.conf.Checkin.MinInterval {
			if s.lastDelivered.Status == payload.Status {
				s.mu.Unlock()
				s.metrics.IncCheckinSubmissions("dropped")
				return
			}
			// Last-write-wins: replace the buffered payload; only arm
			// the timer when none is running yet.
			s.pending = &payload
			if s.pendingTimer == nil {
				s.pendingTimer = time.AfterFunc(s.conf.Checkin.MinInterval-elapsed, s.firePending)
			}
			s.mu.Unlock()
			s.metrics.IncCheckinSubmissions("coalesced")
			return
		}
	}
	s.mu.Unlock()

	go s.submit(payload)
}

func (s *CheckinService) firePending() {
	s.mu.Lock()
	payload := s.pending
	s.pending = nil
	s.pendingTimer = nil
	s.mu.Unlock()

	if payload != nil {
		s.submit(*payload)
	}
}

// submit delivers one payload, aborting any submission still in flight
// first. Aborting never rolls back the optimistic local write and never
// loses the aborted payload: its canceled request classifies as
// retryable and lands in the queue.
func (s *CheckinService) submit(payload models.CheckinPayload) {
	s.mu.Lock()
	if s.cancelInFlight != nil {
		s.cancelInFlight()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.inFlightGen++
	gen := s.inFlightGen
	s.cancelInFlight = cancel
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		// A newer submission may hold the slot already; only release our own.
		if s.inFlightGen == gen {
			s.cancelInFlight = nil
		}
		s.mu.Unlock()
		cancel()
	}()

	if !s.connectivity.Online() {
		s.enqueue(payload)
		s.metrics.IncCheckinSubmissions("queued_offline")
		return
	}

	deviceID := s.device.Snapshot().DeviceID
	status, errCode, err := s.api.SubmitCheckin(ctx, deviceID, payload)

	switch classify(status, errCode, err) {
	case outcomeDelivered:
		s.setDelivered(payload.Status)
		s.metrics.IncCheckinSubmissions("delivered")
	case outcomeTerminal:
		// Already satisfied server-side; update the marker so the same
		// intent is not re-sent, and surface nothing to the user.
		s.setDelivered(payload.Status)
		s.metrics.IncCheckinSubmissions("terminal")
	default:
		s.enqueue(payload)
		s.metrics.IncCheckinSubmissions("queued")
	}
}

// Drain submits queued check-ins front-to-back, one at a time. Entries
// leave the queue on delivery or terminal rejection; a retryable failure
// puts the entry back at the head and stops the drain.
func (s *CheckinService) Drain() {
	if !s.draining.CompareAndSwap(false, true) {
		return
	}
	defer s.draining.Store(false)

	for s.connectivity.Online() {
		// Pop before submitting so a concurrent enqueue can never shift
		// which entry the removal lands on.
		s.mu.Lock()
		if len(s.queue) == 0 {
			s.mu.Unlock()
			return
		}
		entry := s.queue[0]
		s.queue = s.queue[1:]
		s.persistQueueLocked()
		s.mu.Unlock()

		deviceID := s.device.Snapshot().DeviceID
		status, errCode, err := s.api.SubmitCheckin(context.Background(), deviceID, entry.CheckinPayload)
		if classify(status, errCode, err) == outcomeRetryable {
			s.requeueFront(entry)
			s.logger.Debugf(providers.TypeCheckin, "Drain paused (status=%d): %v", status, err)
			return
		}

		s.setDelivered(entry.Status)
		s.metrics.IncCheckinSubmissions("drained")
	}
}

func (s *CheckinService) QueueDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// enqueue prepends the payload and trims the oldest entries past the cap.
func (s *CheckinService) enqueue(payload models.CheckinPayload) {
	s.mu.Lock()
	defer s.mu.Unlock()
	queue := make([]models.PendingCheckin, 0, len(s.queue)+1)
	queue = append(queue, models.PendingCheckin{CheckinPayload: payload, QueuedAt: time.Now()})
	queue = append(queue, s.queue...)
	if maxQueued := s.conf.Checkin.MaxQueued; maxQueued > 0 && len(queue) > maxQueued {
		queue = queue[:maxQueued]
	}
	s.queue = queue
	s.persistQueueLocked()
}

// requeueFront puts an entry a drain attempt could not deliver back at
// the head of the queue, keeping its original QueuedAt.
func (s *CheckinService) requeueFront(entry models.PendingCheckin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	queue := make([]models.PendingCheckin, 0, len(s.queue)+1)
	queue = append(queue, entry)
	queue = append(queue, s.queue...)
	if maxQueued := s.conf.Checkin.MaxQueued; maxQueued > 0 && len(queue) > maxQueued {
		queue = queue[:maxQueued]
	}
	s.queue = queue
	s.persistQueueLocked()
}

func (s *CheckinService) setDelivered(status models.CheckinStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastDelivered = &models.DeliveredMarker{Status: status, At: time.Now()}
	data, err := json.Marshal(s.lastDelivered)
	if err != nil {
		return
	}
	s.kv.Set(deliveredMarkerKey, string(data))
	if err := s.kv.Flush(); err != nil {
		s.logger.Warnf(providers.TypeCheckin, "Failed to flush delivered marker: %s", err)
	}
}

func (s *CheckinService) persistQueueLocked() {
	data, err := json.Marshal(s.queue)
	if err != nil {
		s.logger.Errorf(providers.TypeCheckin, "Failed to encode pending queue: %s", err)
		return
	}
	s.kv.Set(pendingQueueKey, string(data))
	if err := s.kv.Flush(); err != nil {
		s.logger.Warnf(providers.TypeCheckin, "Failed to flush pending queue: %s", err)
	}
	s.metrics.SetPendingQueueDepth(len(s.queue))
}

// classify sorts a submission result into the pipeline's error taxonomy:
// explicit DUPLICATE/RATE_LIMITED codes are terminal, 2xx is delivered,
// everything else (network failure, 5xx, unknown) is retryable.
func classify(status int, errCode string, err error) submitOutcome {
	if errCode == models.ErrCodeDuplicate || errCode == models.ErrCodeRateLimited {
		return outcomeTerminal
	}
	if err != nil {
		return outcomeRetryable
	}
	if status >= 200 && status < 300 {
		return outcomeDelivered
	}
	return outcomeRetryable
}
