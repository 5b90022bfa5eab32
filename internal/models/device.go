package models

import (
	"time"

	json "github.com/goccy/go-json"
)

type Precision string

const (
	PrecisionCoarse  Precision = "COARSE"
	PrecisionPrecise Precision = "PRECISE"
)

type CheckinStatus string

const (
	StatusSafe       CheckinStatus = "SAFE"
	StatusEvacuating CheckinStatus = "EVACUATING"
	StatusNeedHelp   CheckinStatus = "NEED_HELP"
)

// ValidStatus reports whether s is one of the known check-in statuses.
func ValidStatus(s CheckinStatus) bool {
	switch s {
	case StatusSafe, StatusEvacuating, StatusNeedHelp:
		return true
	}
	return false
}

type Settings struct {
	PowerSaving    bool   `json:"powerSaving"`
	LowBandwidth   bool   `json:"lowBandwidth"`
	SelectedAreaID string `json:"selectedAreaId,omitempty"`
	SharePrecise   bool   `json:"sharePrecise"`
}

type SavedArea struct {
	ID               string    `json:"id"`
	Label            string    `json:"label,omitempty"`
	PrefCode         string    `json:"prefCode"`
	PrefName         string    `json:"prefName"`
	MunicipalityCode string    `json:"municipalityCode,omitempty"`
	MunicipalityName string    `json:"municipalityName,omitempty"`
	WeatherAreaCode  string    `json:"weatherAreaCode,omitempty"`
	AddedAt          time.Time `json:"addedAt"`
}

type Checkin struct {
	ID         string        `json:"id"`
	Status     CheckinStatus `json:"status"`
	ShelterID  string        `json:"shelterId,omitempty"`
	UpdatedAt  time.Time     `json:"updatedAt"`
	Lat        float64       `json:"lat"`
	Lon        float64       `json:"lon"`
	Precision  Precision     `json:"precision"`
	Comment    string        `json:"comment,omitempty"`
	Active     bool          `json:"active"`
	ArchivedAt *time.Time    `json:"archivedAt,omitempty"`
}

type Favorites struct {
	ShelterIDs []string `json:"shelterIds"`
}

type Recent struct {
	ShelterIDs []string `json:"shelterIds"`
}

// DeviceRecord is the canonical per-installation state. It is created once
// on first launch, mutated by every user action and never deleted except
// by an explicit local reset.
type DeviceRecord struct {
	DeviceID   string      `json:"deviceId"`
	Settings   Settings    `json:"settings"`
	SavedAreas []SavedArea `json:"savedAreas"`
	Favorites  Favorites   `json:"favorites"`
	Recent     Recent      `json:"recent"`
	Checkins   []Checkin   `json:"checkins"`
	UpdatedAt  time.Time   `json:"updatedAt"`
}

// SettingsPatch carries partial settings updates. Nil fields are left
// untouched by Apply.
type SettingsPatch struct {
	PowerSaving    *bool   `json:"powerSaving,omitempty"`
	LowBandwidth   *bool   `json:"lowBandwidth,omitempty"`
	SelectedAreaID *string `json:"selectedAreaId,omitempty"`
	SharePrecise   *bool   `json:"sharePrecise,omitempty"`
}

// DevicePatch is a shallow top-level patch of the device record. Settings
// are merged field-wise; every other field replaces the previous value
// when present.
type DevicePatch struct {
	Settings   *SettingsPatch `json:"settings,omitempty"`
	SavedAreas *[]SavedArea   `json:"savedAreas,omitempty"`
	Favorites  *Favorites     `json:"favorites,omitempty"`
	Recent     *Recent        `json:"recent,omitempty"`
	Checkins   *[]Checkin     `json:"checkins,omitempty"`
}

// Apply merges the patch into the record and refreshes UpdatedAt.
func (r *DeviceRecord) Apply(p DevicePatch, now time.Time) {
	if p.Settings != nil {
		if p.Settings.PowerSaving != nil {
			r.Settings.PowerSaving = *p.Settings.PowerSaving
		}
		if p.Settings.LowBandwidth != nil {
			r.Settings.LowBandwidth = *p.Settings.LowBandwidth
		}
		if p.Settings.SelectedAreaID != nil {
			r.Settings.SelectedAreaID = *p.Settings.SelectedAreaID
		}
		if p.Settings.SharePrecise != nil {
			r.Settings.SharePrecise = *p.Settings.SharePrecise
		}
	}
	if p.SavedAreas != nil {
		r.SavedAreas = append([]SavedArea(nil), (*p.SavedAreas)...)
	}
	if p.Favorites != nil {
		r.Favorites = Favorites{ShelterIDs: append([]string(nil), p.Favorites.ShelterIDs...)}
	}
	if p.Recent != nil {
		r.Recent = Recent{ShelterIDs: append([]string(nil), p.Recent.ShelterIDs...)}
	}
	if p.Checkins != nil {
		r.Checkins = append([]Checkin(nil), (*p.Checkins)...)
	}
	r.UpdatedAt = now
}

// Clone returns a deep copy safe to hand out while the original keeps
// being mutated.
func (r DeviceRecord) Clone() DeviceRecord {
	out := r
	out.SavedAreas = append([]SavedArea(nil), r.SavedAreas...)
	out.Favorites.ShelterIDs = append([]string(nil), r.Favorites.ShelterIDs...)
	out.Recent.ShelterIDs = append([]string(nil), r.Recent.ShelterIDs...)
	out.Checkins = append([]Checkin(nil), r.Checkins...)
	for i := range out.Checkins {
		if r.Checkins[i].ArchivedAt != nil {
			at := *r.Checkins[i].ArchivedAt
			out.Checkins[i].ArchivedAt = &at
		}
	}
	return out
}

// MergeFromServer fills gaps in the local record from the server copy.
// Local fields win on conflict; the server only supplies what the local
// record does not hold yet. An empty local record adopts the server record
// wholesale (first load on a reinstalled device).
func (r *DeviceRecord) MergeFromServer(server DeviceRecord) {
	if r.DeviceID == "" {
		*r = server.Clone()
		return
	}
	if r.SavedAreas == nil && server.SavedAreas != nil {
		r.SavedAreas = append([]SavedArea(nil), server.SavedAreas...)
	}
	if r.Favorites.ShelterIDs == nil && server.Favorites.ShelterIDs != nil {
		r.Favorites.ShelterIDs = append([]string(nil), server.Favorites.ShelterIDs...)
	}
	if r.Recent.ShelterIDs == nil && server.Recent.ShelterIDs != nil {
		r.Recent.ShelterIDs = append([]string(nil), server.Recent.ShelterIDs...)
	}
	if r.Checkins == nil && server.Checkins != nil {
		r.Checkins = append([]Checkin(nil), server.Checkins...)
	}
	if r.Settings.SelectedAreaID == "" {
		r.Settings.SelectedAreaID = server.Settings.SelectedAreaID
	}
	if server.UpdatedAt.After(r.UpdatedAt) {
		r.UpdatedAt = server.UpdatedAt
	}
}

// AppendCheckin archives the current active entry, prepends c and trims
// the list to maxEntries. At most one entry stays active afterwards.
func AppendCheckin(list []Checkin, c Checkin, maxEntries int, now time.Time) []Checkin {
	out := make([]Checkin, 0, len(list)+1)
	out = append(out, c)
	for _, prev := range list {
		if prev.Active {
			prev.Active = false
			at := now
			prev.ArchivedAt = &at
		}
		out = append(out, prev)
	}
	if maxEntries > 0 && len(out) > maxEntries {
		out = out[:maxEntries]
	}
	return out
}

// DecodeDeviceRecord parses a persisted device record. Malformed input is
// reported as absence, never as an error.
func DecodeDeviceRecord(data []byte) (DeviceRecord, bool) {
	var rec DeviceRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return DeviceRecord{}, false
	}
	if rec.DeviceID == "" {
		return DeviceRecord{}, false
	}
	return rec, true
}
