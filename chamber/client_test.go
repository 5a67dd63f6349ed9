package chamber

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mycotrl/chamberlink/internal/config"
	"github.com/mycotrl/chamberlink/internal/history"
	"github.com/mycotrl/chamberlink/internal/protocol"
	"github.com/mycotrl/chamberlink/internal/testutils"
	"github.com/mycotrl/chamberlink/internal/transport"
)

const testAddr = "aa:bb:cc:dd:ee:ff"

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Transport.ScanTimeoutMs = 200
	cfg.Transport.ConnectTimeoutMs = 1000
	cfg.Transport.SettleDelayMs = 1
	cfg.Transport.Write.RetryDelayMs = 1
	cfg.Transport.Read.TimeoutMs = 500
	cfg.Transport.Read.RetryDelayMs = 1
	return cfg
}

func connectedClient(t *testing.T) (*Client, *testutils.ChamberPeripheral) {
	t.Helper()
	p := testutils.NewChamberPeripheral(testAddr)
	client := New(p.Radio, testConfig(), testLogger())
	client.thresholdSettle = time.Millisecond
	require.NoError(t, client.Connect(context.Background(), testAddr))
	require.Equal(t, transport.StateReady, client.State())
	return client, p
}

// GOAL: Verify the facade gates every operation on an established session.
func TestClient_NotConnected(t *testing.T) {
	p := testutils.NewChamberPeripheral(testAddr)
	client := New(p.Radio, testConfig(), testLogger())

	_, err := client.ReadEnvironmental(context.Background())
	require.ErrorIs(t, err, transport.ErrNotConnected)

	err = client.WriteOverrideBits(context.Background(), protocol.OverrideFan)
	require.ErrorIs(t, err, transport.ErrNotConnected)
}

// GOAL: Verify an on-demand environmental read decodes the wire record.
func TestClient_ReadEnvironmental(t *testing.T) {
	client, p := connectedClient(t)

	want := protocol.EnvironmentalReading{
		CO2PPM:           950,
		TemperatureC:     22.5,
		RelativeHumidity: 90.0,
		LightRaw:         300,
		UptimeMs:         120000,
	}
	p.Chars[transport.RoleEnvironment].ReadData = protocol.EncodeEnvironmentalReading(want)

	got, err := client.ReadEnvironmental(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

// GOAL: Verify setpoint writes are validated before transmission.
//
// TEST SCENARIO: An inverted temperature band must be rejected with the
// invariant error and zero bytes on the wire.
func TestClient_WriteControlTargetsValidates(t *testing.T) {
	client, p := connectedClient(t)

	bad := protocol.ControlTargets{
		TempMinC: 30,
		TempMaxC: 20,
		RHMin:    85,
		CO2Max:   1000,
	}
	err := client.WriteControlTargets(context.Background(), bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, &protocol.InvalidControlTargetsError{})
	assert.Empty(t, p.Chars[transport.RoleControlTargets].Writes())
}

// GOAL: Verify a valid setpoint record reaches the wire intact.
func TestClient_WriteControlTargets(t *testing.T) {
	client, p := connectedClient(t)

	targets := protocol.ControlTargets{
		TempMinC:        18.0,
		TempMaxC:        24.0,
		RHMin:           85.0,
		CO2Max:          1200,
		Light:           protocol.LightCycle,
		LightOnMinutes:  720,
		LightOffMinutes: 720,
	}
	require.NoError(t, client.WriteControlTargets(context.Background(), targets))

	writes := p.Chars[transport.RoleControlTargets].Writes()
	require.Len(t, writes, 1)
	decoded, err := protocol.DecodeControlTargets(writes[0].Data)
	require.NoError(t, err)
	assert.Equal(t, targets, decoded)
}

// GOAL: Verify stage writes pass through the species compatibility shim.
//
// TEST SCENARIO: The config maps species 99 to 1. The record on the wire
// must carry the mapped id while the caller's record is untouched.
func TestClient_WriteStageStateNormalizes(t *testing.T) {
	p := testutils.NewChamberPeripheral(testAddr)
	cfg := testConfig()
	cfg.Compat.SpeciesMap = map[uint8]uint8{99: 1}
	client := New(p.Radio, cfg, testLogger())
	require.NoError(t, client.Connect(context.Background(), testAddr))

	state := protocol.StageState{
		Mode:            protocol.ModeFull,
		Species:         protocol.SpeciesCustom,
		Stage:           protocol.StageFruiting,
		StageStartEpoch: 1700000000,
		ExpectedDays:    14,
	}
	require.NoError(t, client.WriteStageState(context.Background(), state))

	writes := p.Chars[transport.RoleStageState].Writes()
	require.Len(t, writes, 1)
	decoded, err := protocol.DecodeStageState(writes[0].Data)
	require.NoError(t, err)
	assert.Equal(t, protocol.SpeciesOyster, decoded.Species)
	assert.Equal(t, protocol.SpeciesCustom, state.Species)
}

// GOAL: Verify override and status round trips.
func TestClient_OverrideAndStatus(t *testing.T) {
	client, p := connectedClient(t)

	bits := protocol.OverrideMist | protocol.OverrideDisableAuto
	require.NoError(t, client.WriteOverrideBits(context.Background(), bits))

	writes := p.Chars[transport.RoleOverride].Writes()
	require.Len(t, writes, 1)
	p.Chars[transport.RoleOverride].ReadData = writes[0].Data
	got, err := client.ReadOverrideBits(context.Background())
	require.NoError(t, err)
	assert.Equal(t, bits, got)

	p.Chars[transport.RoleStatus].ReadData = protocol.EncodeStatusFlags(protocol.StatusThresholdAlarm)
	flags, err := client.ReadStatusFlags(context.Background())
	require.NoError(t, err)
	assert.True(t, flags.Has(protocol.StatusThresholdAlarm))
}

// GOAL: Verify the threshold query exchange: the get frame goes out, and
// the response read back after the settle delay decodes into the profile.
func TestClient_ReadStageThresholds(t *testing.T) {
	client, p := connectedClient(t)

	char := p.Chars[transport.RoleStageThresholds]
	char.WriteFunc = func(data []byte, withResponse bool) error {
		var frame map[string]any
		require.NoError(t, json.Unmarshal(data, &frame))
		assert.Equal(t, "get", frame["op"])
		char.ReadData = []byte(`{"species": 2, "stage": 3, "tempMin": 12.0, "tempMax": 18.0, "expectedDays": 21}`)
		return nil
	}

	got, err := client.ReadStageThresholds(context.Background(), protocol.SpeciesShiitake, protocol.StageFruiting)
	require.NoError(t, err)
	assert.Equal(t, protocol.SpeciesShiitake, got.Species)
	assert.Equal(t, protocol.StageFruiting, got.Stage)
	require.NotNil(t, got.TempMinC)
	assert.Equal(t, 12.0, *got.TempMinC)
	require.NotNil(t, got.ExpectedDays)
	assert.Equal(t, uint16(21), *got.ExpectedDays)
}

// GOAL: Verify a device-side rejection of a threshold update surfaces as
// ErrRemoteRejected instead of a profile.
func TestClient_WriteStageThresholdsRejected(t *testing.T) {
	client, p := connectedClient(t)

	char := p.Chars[transport.RoleStageThresholds]
	char.WriteFunc = func(data []byte, withResponse bool) error {
		char.ReadData = []byte(`{"error": "unknown species"}`)
		return nil
	}

	tempMin := 10.0
	_, err := client.WriteStageThresholds(context.Background(), protocol.StageThresholds{
		Species:  protocol.Species(77),
		Stage:    protocol.StagePinning,
		TempMinC: &tempMin,
	})
	require.ErrorIs(t, err, protocol.ErrRemoteRejected)
}

// GOAL: Verify backfill without a configured endpoint reports ErrDisabled.
func TestClient_BackfillDisabled(t *testing.T) {
	client, _ := connectedClient(t)

	_, err := client.Backfill(context.Background(), time.Now().Add(-time.Hour))
	require.ErrorIs(t, err, history.ErrDisabled)
}
