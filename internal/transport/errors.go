package transport

import (
	"errors"
	"fmt"
)

// Sentinel errors for the transport layer. Engines wrap them with context
// via fmt.Errorf("...: %w", ...), so callers match with errors.Is.
var (
	// ErrNotConnected is returned for any operation attempted outside Ready.
	ErrNotConnected = errors.New("not connected")

	// ErrNotWritable is returned when a characteristic supports neither
	// acknowledged nor unacknowledged writes. No transmission is attempted.
	ErrNotWritable = errors.New("characteristic is not writable")

	// ErrReadTimeout is returned when a read attempt exceeds its timeout.
	ErrReadTimeout = errors.New("read timed out")

	// ErrServiceNotFound is returned when service discovery does not yield
	// the chamber service UUID.
	ErrServiceNotFound = errors.New("chamber service not found")

	// ErrStabilizationFailed is returned when the link drops during the
	// post-connect settle window.
	ErrStabilizationFailed = errors.New("link did not stabilize")

	// ErrScanTimeout is returned when scanning ends without a matching
	// advertisement.
	ErrScanTimeout = errors.New("no chamber found before scan timeout")

	// ErrUnsupported marks best-effort operations the platform backend
	// cannot perform (for example bond clearing). Callers log and proceed.
	ErrUnsupported = errors.New("unsupported")
)

// IncompleteCharacteristicSetError is returned when the chamber service is
// present but one or more of the six required characteristics is missing
// after enumeration. All missing roles are collected before failing.
type IncompleteCharacteristicSetError struct {
	Missing []Role
}

func (e *IncompleteCharacteristicSetError) Error() string {
	return fmt.Sprintf("incomplete characteristic set: missing %v", e.Missing)
}

// Is allows errors.Is comparison against a zero-valued
// *IncompleteCharacteristicSetError.
func (e *IncompleteCharacteristicSetError) Is(target error) bool {
	_, ok := target.(*IncompleteCharacteristicSetError)
	return ok
}

// ConnectStage identifies which stage of the connection chain failed.
type ConnectStage string

const (
	StageScan      ConnectStage = "scan"
	StageConnect   ConnectStage = "connect"
	StageStabilize ConnectStage = "stabilize"
	StageDiscover  ConnectStage = "discover"
	StageMap       ConnectStage = "map_characteristics"
	StageSubscribe ConnectStage = "subscribe"
)

// ConnectError wraps a connection-chain failure with the stage it occurred
// in. The state machine performs a full teardown before returning one, so a
// subsequent connect attempt always starts from a clean slate.
type ConnectError struct {
	Stage ConnectStage
	Err   error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect failed at %s: %v", e.Stage, e.Err)
}

func (e *ConnectError) Unwrap() error {
	return e.Err
}

// Is matches another *ConnectError by stage (empty stage matches any).
func (e *ConnectError) Is(target error) bool {
	t, ok := target.(*ConnectError)
	if !ok {
		return false
	}
	return t.Stage == "" || t.Stage == e.Stage
}

// WriteError reports an exhausted write attempt plan. Err is the last
// attempt's failure.
type WriteError struct {
	Attempts int
	Err      error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// ReadError reports an exhausted read retry loop. Err is the last attempt's
// failure (ErrReadTimeout or the underlying transport error).
type ReadError struct {
	Attempts int
	Err      error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}
