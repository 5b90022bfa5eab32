package models

import (
	"math"
	"time"

	json "github.com/goccy/go-json"
)

// CheckinRequest is the caller-facing check-in intent.
type CheckinRequest struct {
	Status    CheckinStatus `json:"status"`
	ShelterID string        `json:"shelterId,omitempty"`
	Lat       float64       `json:"lat"`
	Lon       float64       `json:"lon"`
	Precision Precision     `json:"precision"`
	Comment   string        `json:"comment,omitempty"`
}

// CheckinPayload is what actually goes over the wire for a single
// check-in submission.
type CheckinPayload struct {
	Status    CheckinStatus `json:"status"`
	ShelterID string        `json:"shelterId,omitempty"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Lat       float64       `json:"lat"`
	Lon       float64       `json:"lon"`
	Precision Precision     `json:"precision"`
	Comment   string        `json:"comment,omitempty"`
}

// Redacted rounds coordinates to 2 decimal places (~1.1 km) unless the
// payload carries PRECISE precision. Coordinates never leave the device
// unrounded otherwise.
func (p CheckinPayload) Redacted() CheckinPayload {
	if p.Precision == PrecisionPrecise {
		return p
	}
	p.Lat = roundCoord(p.Lat)
	p.Lon = roundCoord(p.Lon)
	return p
}

func roundCoord(v float64) float64 {
	return math.Round(v*100) / 100
}

// PendingCheckin is a durable queue element awaiting redelivery.
type PendingCheckin struct {
	CheckinPayload
	QueuedAt time.Time `json:"queuedAt"`
}

// DeliveredMarker records the last check-in the server accepted (or
// terminally rejected), used by the minimum-interval gate.
type DeliveredMarker struct {
	Status CheckinStatus `json:"status"`
	At     time.Time     `json:"at"`
}

// DecodePendingQueue parses a persisted pending queue. Malformed input
// is treated as an empty queue.
func DecodePendingQueue(data []byte) []PendingCheckin {
	var queue []PendingCheckin
	if err := json.Unmarshal(data, &queue); err != nil {
		return nil
	}
	return queue
}

// DecodeDeliveredMarker parses a persisted delivered marker, reporting
// malformed input as absence.
func DecodeDeliveredMarker(data []byte) (DeliveredMarker, bool) {
	var m DeliveredMarker
	if err := json.Unmarshal(data, &m); err != nil {
		return DeliveredMarker{}, false
	}
	if m.Status == "" || m.At.IsZero() {
		return DeliveredMarker{}, false
	}
	return m, true
}

// ClampComment trims a comment to at most maxRunes runes.
func ClampComment(comment string, maxRunes int) string {
	if maxRunes <= 0 {
		return comment
	}
	runes := []rune(comment)
	if len(runes) <= maxRunes {
		return comment
	}
	return string(runes[:maxRunes])
}
