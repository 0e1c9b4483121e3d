// Package telemetry is the client for the third-party GPS tracking
// provider. It is always injected into its consumers, never used as a
// package-level singleton, so tests can substitute a double.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// APIError wraps a provider-side failure (bad status, malformed body).
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telemetry api %s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
}

// LastPosition is the provider's latest report for one device.
type LastPosition struct {
	DeviceID   string     `json:"device_id"`
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	Speed      *float64   `json:"speed"` // km/h, omitted by some trackers
	Address    *string    `json:"address"`
	SystemDate *time.Time `json:"system_date"`
	Ignition   *bool      `json:"ignition"`
}

// Client talks to the provider's REST API. Credentials ride in the
// request payload, matching the provider's auth scheme.
type Client struct {
	baseURL    string
	apiKey     string
	apiUser    string
	apiPass    string
	httpClient *http.Client

	cacheTTL time.Duration
	mu       sync.Mutex
	cache    map[string]cachedPosition
}

type cachedPosition struct {
	pos     *LastPosition
	fetched time.Time
}

// Config holds provider connection settings, loaded from the environment.
type Config struct {
	BaseURL  string
	APIKey   string
	APIUser  string
	APIPass  string
	CacheTTL time.Duration
}

func NewClient(cfg Config) *Client {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 20 * time.Second
	}
	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		apiUser: cfg.APIUser,
		apiPass: cfg.APIPass,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		cacheTTL: ttl,
		cache:    make(map[string]cachedPosition),
	}
}

func (c *Client) authPayload() map[string]string {
	return map[string]string{
		"key":  c.apiKey,
		"user": c.apiUser,
		"pass": c.apiPass,
	}
}

// GetDeviceLastPosition returns the device's most recent position, or
// nil when the provider has nothing for it. Results are cached briefly
// so overlapping trips sharing a tick don't hammer the provider.
func (c *Client) GetDeviceLastPosition(ctx context.Context, deviceID string) (*LastPosition, error) {
	c.mu.Lock()
	if entry, ok := c.cache[deviceID]; ok && time.Since(entry.fetched) < c.cacheTTL {
		c.mu.Unlock()
		return entry.pos, nil
	}
	c.mu.Unlock()

	payload := map[string]interface{}{}
	for k, v := range c.authPayload() {
		payload[k] = v
	}
	payload["device_id"] = deviceID

	var response struct {
		Status   string        `json:"status"`
		Position *LastPosition `json:"position"`
	}
	if err := c.post(ctx, "getDeviceLastPosition", payload, &response); err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[deviceID] = cachedPosition{pos: response.Position, fetched: time.Now()}
	c.mu.Unlock()

	return response.Position, nil
}

// CheckDeviceUpdatedRecently reports whether the device's last report is
// no older than the threshold.
func (c *Client) CheckDeviceUpdatedRecently(ctx context.Context, deviceID string, threshold time.Duration) (bool, error) {
	pos, err := c.GetDeviceLastPosition(ctx, deviceID)
	if err != nil {
		return false, err
	}
	if pos == nil || pos.SystemDate == nil {
		return false, nil
	}
	return time.Since(*pos.SystemDate) <= threshold, nil
}

// ClearCache drops all cached positions. Used by tests and manual syncs.
func (c *Client) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]cachedPosition)
}

func (c *Client) post(ctx context.Context, endpoint string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("telemetry: encode %s payload: %w", endpoint, err)
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, endpoint)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("telemetry: build %s request: %w", endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("telemetry: %s request failed: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		logrus.WithFields(logrus.Fields{
			"endpoint": endpoint,
			"status":   resp.StatusCode,
		}).Warn("Telemetry provider returned an error status")
		return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: string(raw)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: "malformed response body"}
	}
	return nil
}
