package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *Client {
	return NewClient(Config{
		BaseURL:  serverURL,
		APIKey:   "test-key",
		APIUser:  "test-user",
		APIPass:  "test-pass",
		CacheTTL: 50 * time.Millisecond,
	})
}

func TestGetDeviceLastPosition(t *testing.T) {
	speed := 62.5
	reported := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/getDeviceLastPosition", r.URL.Path)

		var payload map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "test-key", payload["key"])
		assert.Equal(t, "test-user", payload["user"])
		assert.Equal(t, "test-pass", payload["pass"])
		assert.Equal(t, "TRK-9001", payload["device_id"])

		json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "ok",
			"position": LastPosition{
				DeviceID:   "TRK-9001",
				Latitude:   -23.5505,
				Longitude:  -46.6333,
				Speed:      &speed,
				SystemDate: &reported,
			},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	pos, err := client.GetDeviceLastPosition(context.Background(), "TRK-9001")
	require.NoError(t, err)
	require.NotNil(t, pos)
	assert.InDelta(t, -23.5505, pos.Latitude, 1e-9)
	assert.InDelta(t, -46.6333, pos.Longitude, 1e-9)
	require.NotNil(t, pos.Speed)
	assert.InDelta(t, 62.5, *pos.Speed, 1e-9)
	require.NotNil(t, pos.SystemDate)
	assert.True(t, pos.SystemDate.Equal(reported))
}

func TestGetDeviceLastPositionNoData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"status": "ok", "position": nil})
	}))
	defer server.Close()

	pos, err := newTestClient(server.URL).GetDeviceLastPosition(context.Background(), "TRK-0000")
	require.NoError(t, err)
	assert.Nil(t, pos)
}

func TestGetDeviceLastPositionErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
	}))
	defer server.Close()

	pos, err := newTestClient(server.URL).GetDeviceLastPosition(context.Background(), "TRK-9001")
	require.Error(t, err)
	assert.Nil(t, pos)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestPositionCaching(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":   "ok",
			"position": LastPosition{DeviceID: "TRK-9001", Latitude: 1, Longitude: 2},
		})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	ctx := context.Background()

	_, err := client.GetDeviceLastPosition(ctx, "TRK-9001")
	require.NoError(t, err)
	_, err = client.GetDeviceLastPosition(ctx, "TRK-9001")
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "second fetch inside the TTL should hit the cache")

	client.ClearCache()
	_, err = client.GetDeviceLastPosition(ctx, "TRK-9001")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCheckDeviceUpdatedRecently(t *testing.T) {
	fresh := time.Now().Add(-5 * time.Minute)
	stale := time.Now().Add(-2 * time.Hour)

	cases := []struct {
		name       string
		systemDate *time.Time
		want       bool
	}{
		{"fresh report", &fresh, true},
		{"stale report", &stale, false},
		{"never reported", nil, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]interface{}{
					"status":   "ok",
					"position": LastPosition{DeviceID: "TRK-1", Latitude: 1, Longitude: 2, SystemDate: tc.systemDate},
				})
			}))
			defer server.Close()

			ok, err := newTestClient(server.URL).CheckDeviceUpdatedRecently(context.Background(), "TRK-1", 30*time.Minute)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}
