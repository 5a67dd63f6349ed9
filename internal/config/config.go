// Package config loads the YAML configuration file and converts it into the
// per-component option structs. Durations live in the file as integral
// milliseconds.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mcuadros/go-defaults"
	"gopkg.in/yaml.v3"

	"github.com/mycotrl/chamberlink/internal/compat"
	"github.com/mycotrl/chamberlink/internal/transport"
)

// Config is the whole configuration surface of the tool.
type Config struct {
	Transport TransportConfig `yaml:"transport"`
	Compat    compat.Config   `yaml:"compat"`
	History   HistoryConfig   `yaml:"history"`
}

// TransportConfig tunes the connection lifecycle and the two reliability
// engines.
type TransportConfig struct {
	ScanTimeoutMs    int `yaml:"scan_timeout_ms" default:"30000"`
	ConnectTimeoutMs int `yaml:"connect_timeout_ms" default:"10000"`
	SettleDelayMs    int `yaml:"settle_delay_ms" default:"5000"`
	MTU              int `yaml:"mtu" default:"247"`

	Write WriteConfig `yaml:"write"`
	Read  ReadConfig  `yaml:"read"`
}

type WriteConfig struct {
	PreferUnacknowledged bool `yaml:"prefer_unacknowledged" default:"true"`
	RetryDelayMs         int  `yaml:"retry_delay_ms" default:"300"`
}

type ReadConfig struct {
	TimeoutMs    int `yaml:"timeout_ms" default:"4000"`
	Retries      int `yaml:"retries" default:"1"`
	RetryDelayMs int `yaml:"retry_delay_ms" default:"600"`
}

// HistoryConfig points at the chamber's HTTP history endpoint, used for
// backfilling readings missed while disconnected. Empty BaseURL disables
// backfill.
type HistoryConfig struct {
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms" default:"10000"`
}

// Default returns the configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	defaults.SetDefaults(cfg)
	return cfg
}

// Load reads the YAML file at path on top of the defaults. A missing or
// empty path yields the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects values no component can fall back from. Non-positive
// timeouts are left alone; the engines substitute their defaults.
func (c *Config) Validate() error {
	// ATT minimum is 23; anything below cannot carry the record set.
	if c.Transport.MTU != 0 && c.Transport.MTU < 23 {
		return fmt.Errorf("transport.mtu %d below ATT minimum 23", c.Transport.MTU)
	}
	if c.Compat.ExpectedDaysMin < 0 || c.Compat.ExpectedDaysMax < 0 {
		return fmt.Errorf("compat expected-days window must not be negative")
	}
	return nil
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// Session converts to the state machine's options.
func (c *Config) Session() transport.SessionConfig {
	return transport.SessionConfig{
		ScanTimeout:    ms(c.Transport.ScanTimeoutMs),
		ConnectTimeout: ms(c.Transport.ConnectTimeoutMs),
		SettleDelay:    ms(c.Transport.SettleDelayMs),
		MTU:            c.Transport.MTU,
	}
}

// WriteEngine converts to the write strategy engine's options.
func (c *Config) WriteEngine() transport.WriteConfig {
	return transport.WriteConfig{
		PreferUnacknowledged: c.Transport.Write.PreferUnacknowledged,
		RetryDelay:           ms(c.Transport.Write.RetryDelayMs),
	}
}

// ReadEngine converts to the read retry engine's options.
func (c *Config) ReadEngine() transport.ReadConfig {
	return transport.ReadConfig{
		Timeout:    ms(c.Transport.Read.TimeoutMs),
		Retries:    c.Transport.Read.Retries,
		RetryDelay: ms(c.Transport.Read.RetryDelayMs),
	}
}

// HistoryTimeout returns the HTTP client timeout for history backfill.
func (c *Config) HistoryTimeout() time.Duration {
	return ms(c.History.TimeoutMs)
}
