// Package history fetches archived sensor readings over the chamber's
// Wi-Fi HTTP endpoint. Chambers buffer readings while no BLE central is
// attached; backfill closes the gap after a reconnect.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mycotrl/chamberlink/internal/protocol"
)

// ErrDisabled is returned when no base URL is configured.
var ErrDisabled = errors.New("history backfill is not configured")

// Reading is one archived sensor sample as served by the chamber firmware.
type Reading struct {
	Timestamp        int64   `json:"timestamp"`
	CO2PPM           uint16  `json:"co2Ppm"`
	TemperatureC     float64 `json:"temperatureC"`
	RelativeHumidity float64 `json:"relativeHumidity"`
	LightRaw         uint16  `json:"lightRaw"`
}

// At returns the sample time.
func (r Reading) At() time.Time {
	return time.Unix(r.Timestamp, 0)
}

// Environmental converts the archived sample to the live record shape.
// UptimeMs is not archived and comes back zero.
func (r Reading) Environmental() protocol.EnvironmentalReading {
	return protocol.EnvironmentalReading{
		CO2PPM:           r.CO2PPM,
		TemperatureC:     r.TemperatureC,
		RelativeHumidity: r.RelativeHumidity,
		LightRaw:         r.LightRaw,
	}
}

// Client talks to the firmware's /history endpoint.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *logrus.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *Client {
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Enabled reports whether a history endpoint is configured.
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

// ReadingsSince fetches all archived readings at or after since, oldest
// first. The firmware already serves them ordered but old builds did not,
// so the order is enforced here.
func (c *Client) ReadingsSince(ctx context.Context, since time.Time) ([]Reading, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}

	endpoint, err := url.JoinPath(c.baseURL, "history")
	if err != nil {
		return nil, fmt.Errorf("history url: %w", err)
	}
	endpoint += "?since=" + strconv.FormatInt(since.Unix(), 10)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("history request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	c.logger.WithFields(logrus.Fields{
		"url":   endpoint,
		"since": since.Unix(),
	}).Debug("Fetching archived readings")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("history fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("history fetch: unexpected status %s", resp.Status)
	}

	var readings []Reading
	if err := json.NewDecoder(resp.Body).Decode(&readings); err != nil {
		return nil, fmt.Errorf("history decode: %w", err)
	}

	sort.Slice(readings, func(i, j int) bool {
		return readings[i].Timestamp < readings[j].Timestamp
	})

	c.logger.WithField("count", len(readings)).Debug("Archived readings fetched")
	return readings, nil
}
