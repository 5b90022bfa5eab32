package models

import json "github.com/goccy/go-json"

// Server error codes the pipeline treats as terminal.
const (
	ErrCodeDuplicate   = "DUPLICATE"
	ErrCodeRateLimited = "RATE_LIMITED"
)

// ErrorBody is the optional failure envelope the server attaches to
// non-2xx responses.
type ErrorBody struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message,omitempty"`
}

// ExtractErrorCode pulls the errorCode out of a response body. Malformed
// or absent bodies yield an empty code.
func ExtractErrorCode(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var e ErrorBody
	if err := json.Unmarshal(body, &e); err != nil {
		return ""
	}
	return e.ErrorCode
}

// DataVersionResponse carries the server-side data version token.
type DataVersionResponse struct {
	DataVersion string `json:"dataVersion"`
}

// DeviceResponse wraps a device record fetched from the server.
type DeviceResponse struct {
	Device *DeviceRecord `json:"device"`
}

// CheckinResponse acknowledges a check-in submission.
type CheckinResponse struct {
	ID        string `json:"id,omitempty"`
	ErrorCode string `json:"errorCode,omitempty"`
}
