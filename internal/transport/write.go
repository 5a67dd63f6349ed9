package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultWriteRetryDelay separates consecutive write attempts.
const DefaultWriteRetryDelay = 300 * time.Millisecond

// WriteConfig tunes the write strategy engine.
type WriteConfig struct {
	// PreferUnacknowledged tries write-without-response first when the
	// characteristic supports it. Some chamber firmware silently rejects
	// acknowledged writes after a pairing-state change, so unacknowledged
	// first is the safer default in the field.
	PreferUnacknowledged bool

	// RetryDelay separates consecutive attempts. Non-positive values fall
	// back to DefaultWriteRetryDelay.
	RetryDelay time.Duration
}

// WriteEngine transmits payloads despite inconsistent acknowledgment-mode
// support across peripherals and platform BLE stacks. It probes the
// supported modes in preference order and surfaces the last failure.
type WriteEngine struct {
	cfg    WriteConfig
	logger *logrus.Logger
}

func NewWriteEngine(cfg WriteConfig, logger *logrus.Logger) *WriteEngine {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultWriteRetryDelay
	}
	return &WriteEngine{cfg: cfg, logger: logger}
}

// writeAttempt is one planned transmission. withResponse selects the
// acknowledged mode.
type writeAttempt struct {
	withResponse bool
}

// planAttempts builds the ordered attempt list from the characteristic's
// declared capabilities:
//
//  1. unacknowledged first when preferred and supported,
//  2. acknowledged when supported,
//  3. unacknowledged last as a final fallback when supported and untried.
//
// Returns nil when neither mode is supported.
func planAttempts(caps Capabilities, preferNoAck bool) []writeAttempt {
	if !caps.Writable() {
		return nil
	}

	var plan []writeAttempt
	triedNoAck := false

	if preferNoAck && caps.WriteNoAck {
		plan = append(plan, writeAttempt{withResponse: false})
		triedNoAck = true
	}
	if caps.WriteAck {
		plan = append(plan, writeAttempt{withResponse: true})
	}
	if caps.WriteNoAck && !triedNoAck {
		plan = append(plan, writeAttempt{withResponse: false})
	}
	return plan
}

// Write transmits payload to char, walking the attempt plan strictly in
// order with a fixed delay between attempts. Success on any attempt returns
// immediately; exhaustion surfaces the last attempt's error as a
// WriteError. A characteristic with no write capability fails immediately
// with ErrNotWritable and no transmission.
func (e *WriteEngine) Write(ctx context.Context, char Characteristic, payload []byte) error {
	plan := planAttempts(char.Capabilities(), e.cfg.PreferUnacknowledged)
	if len(plan) == 0 {
		return fmt.Errorf("characteristic %s: %w", char.UUID(), ErrNotWritable)
	}

	var lastErr error
	for i, attempt := range plan {
		if i > 0 {
			select {
			case <-ctx.Done():
				return &WriteError{Attempts: i, Err: ctx.Err()}
			case <-time.After(e.cfg.RetryDelay):
			}
		}

		err := char.Write(payload, attempt.withResponse)
		if err == nil {
			e.logger.WithFields(logrus.Fields{
				"char":          char.UUID(),
				"bytes":         len(payload),
				"with_response": attempt.withResponse,
				"attempt":       i + 1,
			}).Debug("Write succeeded")
			return nil
		}

		lastErr = err
		e.logger.WithFields(logrus.Fields{
			"char":          char.UUID(),
			"with_response": attempt.withResponse,
			"attempt":       i + 1,
			"of":            len(plan),
			"error":         err,
		}).Warn("Write attempt failed")
	}

	return &WriteError{Attempts: len(plan), Err: lastErr}
}
