package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// GOAL: Verify the zero-file configuration carries the documented defaults.
func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 30000, cfg.Transport.ScanTimeoutMs)
	assert.Equal(t, 10000, cfg.Transport.ConnectTimeoutMs)
	assert.Equal(t, 5000, cfg.Transport.SettleDelayMs)
	assert.Equal(t, 247, cfg.Transport.MTU)
	assert.True(t, cfg.Transport.Write.PreferUnacknowledged)
	assert.Equal(t, 300, cfg.Transport.Write.RetryDelayMs)
	assert.Equal(t, 4000, cfg.Transport.Read.TimeoutMs)
	assert.Equal(t, 1, cfg.Transport.Read.Retries)
	assert.Equal(t, 600, cfg.Transport.Read.RetryDelayMs)
	assert.Equal(t, 1, cfg.Compat.ExpectedDaysMin)
	assert.Equal(t, 365, cfg.Compat.ExpectedDaysMax)
	assert.Empty(t, cfg.History.BaseURL)
}

// GOAL: Verify a partial YAML file overrides only what it names and keeps
// defaults for everything else.
func TestLoad_PartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chamberlink.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
transport:
  settle_delay_ms: 2000
  write:
    prefer_unacknowledged: false
compat:
  species_map:
    99: 1
  species_fallback: 1
history:
  base_url: http://chamber.local:8080
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 2000, cfg.Transport.SettleDelayMs)
	assert.False(t, cfg.Transport.Write.PreferUnacknowledged)
	assert.Equal(t, 30000, cfg.Transport.ScanTimeoutMs)
	assert.Equal(t, uint8(1), cfg.Compat.SpeciesMap[99])
	assert.Equal(t, uint8(1), cfg.Compat.SpeciesFallback)
	assert.Equal(t, 365, cfg.Compat.ExpectedDaysMax)
	assert.Equal(t, "http://chamber.local:8080", cfg.History.BaseURL)
}

// GOAL: Verify the empty path is the defaults, not an error.
func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("transport: ["), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

// GOAL: Verify an MTU below the ATT minimum is rejected at load time.
func TestLoad_MTUTooSmall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mtu.yaml")
	require.NoError(t, os.WriteFile(path, []byte("transport:\n  mtu: 20\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mtu")
}

// GOAL: Verify the millisecond fields convert into the engine option
// structs.
func TestConversions(t *testing.T) {
	cfg := Default()
	cfg.Transport.Read.TimeoutMs = 1500

	session := cfg.Session()
	assert.Equal(t, 30*time.Second, session.ScanTimeout)
	assert.Equal(t, 5*time.Second, session.SettleDelay)
	assert.Equal(t, 247, session.MTU)

	read := cfg.ReadEngine()
	assert.Equal(t, 1500*time.Millisecond, read.Timeout)
	assert.Equal(t, 1, read.Retries)

	write := cfg.WriteEngine()
	assert.True(t, write.PreferUnacknowledged)
	assert.Equal(t, 300*time.Millisecond, write.RetryDelay)
}
