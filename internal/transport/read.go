package transport

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Read retry defaults, used whenever the configured value is unset or
// non-positive.
const (
	DefaultReadTimeout    = 4 * time.Second
	DefaultReadRetries    = 1
	DefaultReadRetryDelay = 600 * time.Millisecond
)

// ReadConfig tunes the read retry engine.
type ReadConfig struct {
	// Timeout bounds each individual attempt.
	Timeout time.Duration
	// Retries is the number of extra attempts after the first.
	Retries int
	// RetryDelay separates consecutive attempts.
	RetryDelay time.Duration
}

func (c ReadConfig) withDefaults() ReadConfig {
	if c.Timeout <= 0 {
		c.Timeout = DefaultReadTimeout
	}
	if c.Retries <= 0 {
		c.Retries = DefaultReadRetries
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultReadRetryDelay
	}
	return c
}

// ReadEngine wraps single-shot characteristic reads with a per-attempt
// timeout and a bounded retry count. Each attempt's outcome is tagged
// success, retryable, or terminal, keeping attempt accounting auditable.
type ReadEngine struct {
	cfg    ReadConfig
	logger *logrus.Logger
}

func NewReadEngine(cfg ReadConfig, logger *logrus.Logger) *ReadEngine {
	if logger == nil {
		logger = logrus.New()
	}
	return &ReadEngine{cfg: cfg.withDefaults(), logger: logger}
}

// Read performs char.Read with retry. Failures before the final attempt are
// logged as non-fatal; the final attempt's failure is surfaced as a
// ReadError wrapping ErrReadTimeout or the underlying transport error.
func (e *ReadEngine) Read(ctx context.Context, char Characteristic) ([]byte, error) {
	attempts := 1 + e.cfg.Retries

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, &ReadError{Attempts: attempt - 1, Err: ctx.Err()}
			case <-time.After(e.cfg.RetryDelay):
			}
		}

		data, err := e.readOnce(ctx, char)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if attempt < attempts {
			e.logger.WithFields(logrus.Fields{
				"char":    char.UUID(),
				"attempt": attempt,
				"of":      attempts,
				"error":   err,
			}).Warn("Read attempt failed, retrying")
		}
	}

	return nil, &ReadError{Attempts: attempts, Err: lastErr}
}

// readOnce executes one bounded attempt. The goroutine-and-select shape
// keeps a hung backend read from blocking past the timeout; the abandoned
// goroutine exits when the backend call eventually returns.
func (e *ReadEngine) readOnce(ctx context.Context, char Characteristic) ([]byte, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	type result struct {
		data []byte
		err  error
	}
	resultCh := make(chan result, 1)

	go func() {
		data, err := char.Read(attemptCtx)
		resultCh <- result{data: data, err: err}
	}()

	select {
	case r := <-resultCh:
		return r.data, r.err
	case <-attemptCtx.Done():
		return nil, ErrReadTimeout
	}
}
