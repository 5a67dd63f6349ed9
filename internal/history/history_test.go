package history

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// GOAL: Verify the request shape and that out-of-order firmware responses
// come back sorted oldest first.
func TestClient_ReadingsSince(t *testing.T) {
	var gotPath, gotSince string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotSince = r.URL.Query().Get("since")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"timestamp": 1700000600, "co2Ppm": 850, "temperatureC": 21.5, "relativeHumidity": 88.0, "lightRaw": 512},
			{"timestamp": 1700000000, "co2Ppm": 800, "temperatureC": 21.0, "relativeHumidity": 87.5, "lightRaw": 500}
		]`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, testLogger())
	readings, err := client.ReadingsSince(context.Background(), time.Unix(1699999000, 0))
	require.NoError(t, err)

	assert.Equal(t, "/history", gotPath)
	assert.Equal(t, "1699999000", gotSince)

	require.Len(t, readings, 2)
	assert.Equal(t, int64(1700000000), readings[0].Timestamp)
	assert.Equal(t, int64(1700000600), readings[1].Timestamp)

	env := readings[0].Environmental()
	assert.Equal(t, uint16(800), env.CO2PPM)
	assert.Equal(t, 21.0, env.TemperatureC)
	assert.Equal(t, 87.5, env.RelativeHumidity)
	assert.Zero(t, env.UptimeMs)
	assert.Equal(t, time.Unix(1700000000, 0), readings[0].At())
}

// GOAL: Verify non-200 responses surface as errors.
func TestClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, testLogger())
	_, err := client.ReadingsSince(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

// GOAL: Verify a client without a base URL reports ErrDisabled.
func TestClient_Disabled(t *testing.T) {
	client := NewClient("", time.Second, testLogger())
	assert.False(t, client.Enabled())

	_, err := client.ReadingsSince(context.Background(), time.Now())
	require.ErrorIs(t, err, ErrDisabled)
}

// GOAL: Verify malformed payloads fail decode instead of yielding partial
// data.
func TestClient_MalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"not": "an array"`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second, testLogger())
	_, err := client.ReadingsSince(context.Background(), time.Now())
	require.Error(t, err)
}
