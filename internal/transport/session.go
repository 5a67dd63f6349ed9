package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mycotrl/chamberlink/internal/pubsub"
)

// Connection lifecycle defaults.
const (
	DefaultScanTimeout    = 30 * time.Second
	DefaultConnectTimeout = 10 * time.Second

	// DefaultSettleDelay absorbs in-flight bonding negotiation after the
	// stack reports "connected" before the link is trusted.
	DefaultSettleDelay = 5 * time.Second

	// DefaultMTU is requested on connect. 247 fits every record with ATT
	// overhead; the actual negotiated value may be lower.
	DefaultMTU = 247
)

// State is the connection lifecycle state.
type State int

const (
	StateIdle State = iota
	StateScanning
	StateConnecting
	StateStabilizing
	StateDiscoveringServices
	StateMappingCharacteristics
	StateSubscribingNotifications
	StateReady
	StateDisconnected
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanning:
		return "scanning"
	case StateConnecting:
		return "connecting"
	case StateStabilizing:
		return "stabilizing"
	case StateDiscoveringServices:
		return "discovering_services"
	case StateMappingCharacteristics:
		return "mapping_characteristics"
	case StateSubscribingNotifications:
		return "subscribing_notifications"
	case StateReady:
		return "ready"
	case StateDisconnected:
		return "disconnected"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// SessionConfig tunes the connection lifecycle.
type SessionConfig struct {
	ScanTimeout    time.Duration
	ConnectTimeout time.Duration
	SettleDelay    time.Duration
	MTU            int
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.ScanTimeout <= 0 {
		c.ScanTimeout = DefaultScanTimeout
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = DefaultConnectTimeout
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = DefaultSettleDelay
	}
	if c.MTU <= 0 {
		c.MTU = DefaultMTU
	}
	return c
}

// Session owns the connection lifecycle state machine and the cached
// characteristic handles. It is the single owner of all connection-scoped
// mutable state; every other transport component is stateless or works on
// copies.
type Session struct {
	radio    Radio
	cfg      SessionConfig
	logger   *logrus.Logger
	pipeline *Pipeline
	states   *pubsub.Broadcaster[State]

	mu      sync.RWMutex
	state   State
	lastErr error
	link    Link
	chars   map[Role]Characteristic
	ready   bool // current attempt reached Ready
	attempt uint64
}

func NewSession(radio Radio, cfg SessionConfig, logger *logrus.Logger) *Session {
	if logger == nil {
		logger = logrus.New()
	}
	return &Session{
		radio:    radio,
		cfg:      cfg.withDefaults(),
		logger:   logger,
		pipeline: NewPipeline(logger),
		states:   pubsub.NewBroadcaster[State](16),
		state:    StateIdle,
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// LastError returns the error that drove the most recent Failed state, nil
// otherwise.
func (s *Session) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// States subscribes to lifecycle state changes.
func (s *Session) States() (<-chan State, func()) {
	return s.states.Subscribe()
}

// Pipeline exposes the decoded-record broadcast channels.
func (s *Session) Pipeline() *Pipeline {
	return s.pipeline
}

// Characteristic returns the cached handle for role. Only valid in Ready;
// any other state yields ErrNotConnected.
func (s *Session) Characteristic(role Role) (Characteristic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != StateReady {
		return nil, fmt.Errorf("%s characteristic: %w", role, ErrNotConnected)
	}
	char, ok := s.chars[role]
	if !ok {
		return nil, fmt.Errorf("%s characteristic: %w", role, ErrNotConnected)
	}
	return char, nil
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
	s.states.Publish(st)
	s.logger.WithField("state", st.String()).Debug("Connection state changed")
}

// Connect runs the full establishment chain against the chamber at address.
// An empty address scans for the first matching advertisement first. Any
// existing session is fully torn down before the new attempt. Failure at
// any stage tears down completely and returns a ConnectError identifying
// the stage; the session always ends in Disconnected on failure.
func (s *Session) Connect(ctx context.Context, address string) error {
	_ = s.Disconnect()

	s.mu.Lock()
	s.lastErr = nil
	s.ready = false
	s.attempt++
	attempt := s.attempt
	s.mu.Unlock()

	addr := address
	if addr == "" {
		s.setState(StateScanning)
		found, err := s.scanForChamber(ctx)
		if err != nil {
			return s.fail(StageScan, err)
		}
		addr = found
	}

	// The chamber is designed to operate bondless; a stale bond record on
	// the host causes pairing conflicts. Clearing is best-effort.
	if err := s.radio.ClearBond(addr); err != nil {
		if errors.Is(err, ErrUnsupported) {
			s.logger.WithField("address", addr).Debug("Bond clearing not supported on this backend")
		} else {
			s.logger.WithFields(logrus.Fields{
				"address": addr,
				"error":   err,
			}).Warn("Failed to clear stale bond, proceeding anyway")
		}
	}

	s.setState(StateConnecting)
	connCtx, cancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
	link, err := s.radio.Connect(connCtx, addr, s.cfg.MTU)
	cancel()
	if err != nil {
		return s.fail(StageConnect, fmt.Errorf("device %q: %w", addr, err))
	}

	s.mu.Lock()
	s.link = link
	s.mu.Unlock()
	go s.watchDisconnect(link, attempt)

	s.setState(StateStabilizing)
	select {
	case <-ctx.Done():
		return s.fail(StageStabilize, ctx.Err())
	case <-time.After(s.cfg.SettleDelay):
	}
	if !link.Connected() {
		return s.fail(StageStabilize, ErrStabilizationFailed)
	}

	s.setState(StateDiscoveringServices)
	services, err := link.DiscoverServices(ctx)
	if err != nil {
		return s.fail(StageDiscover, err)
	}
	service := findChamberService(services)
	if service == nil {
		return s.fail(StageDiscover, ErrServiceNotFound)
	}

	s.setState(StateMappingCharacteristics)
	chars, err := mapRoles(service)
	if err != nil {
		return s.fail(StageMap, err)
	}

	s.setState(StateSubscribingNotifications)
	if err := s.pipeline.Attach(chars[RoleEnvironment], chars[RoleStatus]); err != nil {
		return s.fail(StageSubscribe, err)
	}

	s.mu.Lock()
	s.chars = chars
	s.ready = true
	s.mu.Unlock()
	s.setState(StateReady)

	s.logger.WithField("address", addr).Info("Chamber connection established")
	return nil
}

// scanForChamber listens for advertisements until one matches or the scan
// timeout elapses.
func (s *Session) scanForChamber(ctx context.Context) (string, error) {
	scanCtx, cancel := context.WithTimeout(ctx, s.cfg.ScanTimeout)
	defer cancel()

	var (
		mu    sync.Mutex
		found string
	)
	err := s.radio.Scan(scanCtx, false, func(adv Advertisement) {
		confidence := MatchChamber(adv)
		if confidence == MatchNone {
			return
		}
		mu.Lock()
		if found == "" {
			found = adv.Addr()
			s.logger.WithFields(logrus.Fields{
				"address":    adv.Addr(),
				"name":       adv.LocalName(),
				"confidence": confidence.String(),
			}).Info("Chamber advertisement matched")
		}
		mu.Unlock()
		cancel()
	})

	mu.Lock()
	defer mu.Unlock()
	if found != "" {
		return found, nil
	}
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return "", fmt.Errorf("scan failed: %w", err)
	}
	return "", ErrScanTimeout
}

func findChamberService(services []Service) Service {
	want := NormalizeUUID(ServiceUUID)
	for _, svc := range services {
		if NormalizeUUID(svc.UUID()) == want {
			return svc
		}
	}
	return nil
}

// mapRoles resolves each of the six known characteristic UUIDs to its
// logical role. All missing roles are collected before failing so the error
// names the complete gap, not just the first one.
func mapRoles(service Service) (map[Role]Characteristic, error) {
	byUUID := make(map[string]Characteristic)
	for _, char := range service.Characteristics() {
		byUUID[NormalizeUUID(char.UUID())] = char
	}

	chars := make(map[Role]Characteristic)
	var missing []Role
	for pair := RoleTable().Oldest(); pair != nil; pair = pair.Next() {
		char, ok := byUUID[NormalizeUUID(pair.Value)]
		if !ok {
			missing = append(missing, pair.Key)
			continue
		}
		chars[pair.Key] = char
	}
	if len(missing) > 0 {
		return nil, &IncompleteCharacteristicSetError{Missing: missing}
	}
	return chars, nil
}

// watchDisconnect reacts to an unsolicited link drop. A drop observed
// before the attempt ever reached Ready is connection-failure noise (often
// bonding negotiation); the establishment chain reports it. A drop after
// Ready is a mid-session loss and triggers full teardown.
func (s *Session) watchDisconnect(link Link, attempt uint64) {
	<-link.Disconnected()

	s.mu.RLock()
	stale := s.attempt != attempt
	ready := s.ready
	s.mu.RUnlock()

	if stale {
		return
	}
	if !ready {
		s.logger.Debug("Link dropped during establishment, leaving it to the connect chain")
		return
	}

	s.logger.Warn("Chamber link lost")
	_ = s.Disconnect()
}

// fail records the stage error, publishes Failed, tears the session down to
// Disconnected, and returns the typed error.
func (s *Session) fail(stage ConnectStage, err error) error {
	cerr := &ConnectError{Stage: stage, Err: err}

	s.mu.Lock()
	s.lastErr = cerr
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"stage": string(stage),
		"error": err,
	}).Error("Connection attempt failed")

	s.setState(StateFailed)
	s.teardown()
	return cerr
}

// Disconnect tears down any active session: cancels subscriptions, clears
// cached characteristic handles, closes the link, and resets the status to
// Disconnected. Safe to call in any state.
func (s *Session) Disconnect() error {
	s.mu.RLock()
	idle := s.link == nil && (s.state == StateIdle || s.state == StateDisconnected)
	s.mu.RUnlock()
	if idle {
		return nil
	}
	return s.teardown()
}

func (s *Session) teardown() error {
	s.mu.Lock()
	link := s.link
	chars := s.chars
	s.link = nil
	s.chars = nil
	s.ready = false
	s.attempt++ // invalidate any in-flight disconnect watcher
	s.mu.Unlock()

	for _, role := range StreamingRoles {
		if char, ok := chars[role]; ok {
			if err := char.Unsubscribe(); err != nil {
				s.logger.WithFields(logrus.Fields{
					"role":  string(role),
					"error": err,
				}).Debug("Unsubscribe during teardown failed")
			}
		}
	}

	var closeErr error
	if link != nil {
		closeErr = link.Close()
	}

	s.setState(StateDisconnected)
	if closeErr != nil {
		s.logger.WithField("error", closeErr).Warn("Chamber link closed with errors")
	}
	return closeErr
}
