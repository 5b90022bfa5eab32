package providers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	json "github.com/goccy/go-json"

	"bousai/internal/models"
	"bousai/internal/structures"
)

// ApiClientInterface talks to the remote store. It carries no retry or
// backoff logic of its own; callers classify the returned status and
// error. A zero status means the request never produced a response.
type ApiClientInterface interface {
	FetchDevice(ctx context.Context, deviceID string) (*models.DeviceRecord, int, error)
	PushDevice(ctx context.Context, rec models.DeviceRecord) (int, error)
	SubmitCheckin(ctx context.Context, deviceID string, payload models.CheckinPayload) (int, string, error)
	FetchDataVersion(ctx context.Context) (string, int, error)
	FetchContent(ctx context.Context, kind string, params map[string]string) ([]byte, int, error)
	Probe(ctx context.Context) bool
}

var _ ApiClientInterface = (*ApiClient)(nil)

type ApiClient struct {
	baseURL *url.URL
	http    *http.Client
	logger  Logger
}

const maxResponseBodySize = 4 << 20 // 4 MB

func NewApiClientProvider(conf *structures.Config, logger Logger) (ApiClientInterface, error) {
	base, err := url.Parse(conf.Remote.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid remote base URL: %w", err)
	}
	return &ApiClient{
		baseURL: base,
		http: &http.Client{
			Timeout: conf.Remote.Timeout,
		},
		logger: logger,
	}, nil
}

func (c *ApiClient) FetchDevice(ctx context.Context, deviceID string) (*models.DeviceRecord, int, error) {
	body, status, err := c.do(ctx, http.MethodGet, "/v1/devices/"+url.PathEscape(deviceID), nil, nil)
	if err != nil || status != http.StatusOK {
		return nil, status, err
	}
	var resp models.DeviceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, status, fmt.Errorf("malformed device response: %w", err)
	}
	return resp.Device, status, nil
}

func (c *ApiClient) PushDevice(ctx context.Context, rec models.DeviceRecord) (int, error) {
	_, status, err := c.do(ctx, http.MethodPut, "/v1/devices/"+url.PathEscape(rec.DeviceID), nil, rec)
	return status, err
}

func (c *ApiClient) SubmitCheckin(ctx context.Context, deviceID string, payload models.CheckinPayload) (int, string, error) {
	body, status, err := c.do(ctx, http.MethodPost, "/v1/devices/"+url.PathEscape(deviceID)+"/checkins", nil, payload)
	if err != nil {
		return status, "", err
	}
	return status, models.ExtractErrorCode(body), nil
}

func (c *ApiClient) FetchDataVersion(ctx context.Context) (string, int, error) {
	body, status, err := c.do(ctx, http.MethodGet, "/v1/data-version", nil, nil)
	if err != nil || status != http.StatusOK {
		return "", status, err
	}
	var resp models.DataVersionResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", status, fmt.Errorf("malformed data version response: %w", err)
	}
	return resp.DataVersion, status, nil
}

func (c *ApiClient) FetchContent(ctx context.Context, kind string, params map[string]string) ([]byte, int, error) {
	values := url.Values{}
	for k, v := range params {
		values.Set(k, v)
	}
	return c.do(ctx, http.MethodGet, "/v1/content/"+url.PathEscape(kind), values, nil)
}

// Probe reports whether the remote answers at all. Any HTTP status
// counts as reachable; only transport failure counts as offline.
func (c *ApiClient) Probe(ctx context.Context) bool {
	_, status, err := c.do(ctx, http.MethodGet, "/v1/ping", nil, nil)
	return err == nil && status != 0
}

func (c *ApiClient) do(ctx context.Context, method, path string, query url.Values, payload interface{}) ([]byte, int, error) {
	u := *c.baseURL
	u.Path, _ = url.JoinPath(u.Path, path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}
