// Package chamber is the public entry point for talking to a cultivation
// chamber. It composes the connection state machine, the reliability
// engines, the codec and the compatibility shim behind one client type;
// nothing outside this package touches characteristics directly.
package chamber

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mycotrl/chamberlink/internal/compat"
	"github.com/mycotrl/chamberlink/internal/config"
	"github.com/mycotrl/chamberlink/internal/history"
	"github.com/mycotrl/chamberlink/internal/protocol"
	"github.com/mycotrl/chamberlink/internal/transport"
	"github.com/mycotrl/chamberlink/scanner"
)

// DefaultThresholdSettleDelay separates the threshold request write from
// the response read. The firmware composes the response asynchronously
// after the CCCD-less exchange; reading back too early yields the previous
// payload.
const DefaultThresholdSettleDelay = 300 * time.Millisecond

// Client is the single-connection chamber facade.
type Client struct {
	radio      transport.Radio
	logger     *logrus.Logger
	session    *transport.Session
	scanner    *scanner.Scanner
	writes     *transport.WriteEngine
	reads      *transport.ReadEngine
	normalizer *compat.Normalizer
	history    *history.Client

	thresholdSettle time.Duration
}

// New builds a client over the given radio. A nil cfg uses the defaults.
func New(radio transport.Radio, cfg *config.Config, logger *logrus.Logger) *Client {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Client{
		radio:           radio,
		logger:          logger,
		session:         transport.NewSession(radio, cfg.Session(), logger),
		scanner:         scanner.NewScanner(radio, logger),
		writes:          transport.NewWriteEngine(cfg.WriteEngine(), logger),
		reads:           transport.NewReadEngine(cfg.ReadEngine(), logger),
		normalizer:      compat.NewNormalizer(cfg.Compat, logger),
		history:         history.NewClient(cfg.History.BaseURL, cfg.HistoryTimeout(), logger),
		thresholdSettle: DefaultThresholdSettleDelay,
	}
}

// Connect establishes a session with the chamber at address; an empty
// address connects to the first chamber found by scanning. Any existing
// session is torn down first.
func (c *Client) Connect(ctx context.Context, address string) error {
	return c.session.Connect(ctx, address)
}

// Disconnect tears the session down. Safe to call in any state.
func (c *Client) Disconnect() error {
	return c.session.Disconnect()
}

// State returns the current connection lifecycle state.
func (c *Client) State() transport.State {
	return c.session.State()
}

// ConnectionStates subscribes to lifecycle state changes.
func (c *Client) ConnectionStates() (<-chan transport.State, func()) {
	return c.session.States()
}

// Environment subscribes to decoded environment notifications.
func (c *Client) Environment() (<-chan transport.EnvironmentUpdate, func()) {
	return c.session.Pipeline().Environment()
}

// Status subscribes to decoded status notifications.
func (c *Client) Status() (<-chan transport.StatusUpdate, func()) {
	return c.session.Pipeline().Status()
}

// Scan discovers chambers without connecting.
func (c *Client) Scan(ctx context.Context, opts *scanner.ScanOptions, progress scanner.ProgressCallback) ([]*scanner.DeviceInfo, error) {
	return c.scanner.Scan(ctx, opts, progress)
}

// ScanEvents streams discovery events during a Scan call.
func (c *Client) ScanEvents() <-chan scanner.DeviceEvent {
	return c.scanner.Events()
}

func (c *Client) read(ctx context.Context, role transport.Role) ([]byte, error) {
	char, err := c.session.Characteristic(role)
	if err != nil {
		return nil, err
	}
	return c.reads.Read(ctx, char)
}

func (c *Client) write(ctx context.Context, role transport.Role, payload []byte) error {
	char, err := c.session.Characteristic(role)
	if err != nil {
		return err
	}
	return c.writes.Write(ctx, char, payload)
}

// ReadEnvironmental reads the current sensor snapshot on demand,
// independent of the notification stream.
func (c *Client) ReadEnvironmental(ctx context.Context) (protocol.EnvironmentalReading, error) {
	data, err := c.read(ctx, transport.RoleEnvironment)
	if err != nil {
		return protocol.EnvironmentalReading{}, err
	}
	return protocol.DecodeEnvironmentalReading(data)
}

// ReadControlTargets reads the active setpoint record.
func (c *Client) ReadControlTargets(ctx context.Context) (protocol.ControlTargets, error) {
	data, err := c.read(ctx, transport.RoleControlTargets)
	if err != nil {
		return protocol.ControlTargets{}, err
	}
	return protocol.DecodeControlTargets(data)
}

// WriteControlTargets validates and transmits a setpoint record. Invariant
// violations fail synchronously before any transmission.
func (c *Client) WriteControlTargets(ctx context.Context, t protocol.ControlTargets) error {
	if err := t.Validate(); err != nil {
		return err
	}
	return c.write(ctx, transport.RoleControlTargets, protocol.EncodeControlTargets(t))
}

// ReadStageState reads the cultivation stage record.
func (c *Client) ReadStageState(ctx context.Context) (protocol.StageState, error) {
	data, err := c.read(ctx, transport.RoleStageState)
	if err != nil {
		return protocol.StageState{}, err
	}
	return protocol.DecodeStageState(data)
}

// WriteStageState transmits a stage record after passing it through the
// species compatibility shim.
func (c *Client) WriteStageState(ctx context.Context, s protocol.StageState) error {
	normalized := c.normalizer.Normalize(s)
	return c.write(ctx, transport.RoleStageState, protocol.EncodeStageState(normalized))
}

// WriteOverrideBits transmits a manual actuator override mask.
func (c *Client) WriteOverrideBits(ctx context.Context, bits protocol.OverrideBits) error {
	return c.write(ctx, transport.RoleOverride, protocol.EncodeOverrideBits(bits))
}

// ReadOverrideBits reads the active override mask.
func (c *Client) ReadOverrideBits(ctx context.Context) (protocol.OverrideBits, error) {
	data, err := c.read(ctx, transport.RoleOverride)
	if err != nil {
		return 0, err
	}
	return protocol.DecodeOverrideBits(data)
}

// ReadStatusFlags reads the device status word on demand.
func (c *Client) ReadStatusFlags(ctx context.Context) (protocol.StatusFlags, error) {
	data, err := c.read(ctx, transport.RoleStatus)
	if err != nil {
		return 0, err
	}
	return protocol.DecodeStatusFlags(data)
}

// thresholdExchange runs one JSON request/response round trip on the
// thresholds characteristic: write the request, wait for the firmware to
// compose its answer, read it back.
func (c *Client) thresholdExchange(ctx context.Context, request []byte) (*protocol.StageThresholds, error) {
	char, err := c.session.Characteristic(transport.RoleStageThresholds)
	if err != nil {
		return nil, err
	}
	if err := c.writes.Write(ctx, char, request); err != nil {
		return nil, err
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(c.thresholdSettle):
	}

	response, err := c.reads.Read(ctx, char)
	if err != nil {
		return nil, err
	}
	return protocol.DecodeThresholdResponse(response)
}

// ReadStageThresholds queries the per-species, per-stage threshold profile.
// A device-side rejection surfaces as protocol.ErrRemoteRejected.
func (c *Client) ReadStageThresholds(ctx context.Context, species protocol.Species, stage protocol.Stage) (*protocol.StageThresholds, error) {
	request, err := protocol.EncodeThresholdQuery(species, stage)
	if err != nil {
		return nil, err
	}
	return c.thresholdExchange(ctx, request)
}

// WriteStageThresholds updates a threshold profile and returns the profile
// the device acknowledged with.
func (c *Client) WriteStageThresholds(ctx context.Context, t protocol.StageThresholds) (*protocol.StageThresholds, error) {
	request, err := protocol.EncodeThresholdUpdate(t)
	if err != nil {
		return nil, err
	}
	return c.thresholdExchange(ctx, request)
}

// Backfill fetches archived readings missed while disconnected from the
// chamber's HTTP history endpoint. Fails with history.ErrDisabled when no
// endpoint is configured.
func (c *Client) Backfill(ctx context.Context, since time.Time) ([]history.Reading, error) {
	readings, err := c.history.ReadingsSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("backfill: %w", err)
	}
	return readings, nil
}
