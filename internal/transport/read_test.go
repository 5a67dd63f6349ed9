package transport_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mycotrl/chamberlink/internal/testutils"
	"github.com/mycotrl/chamberlink/internal/transport"
)

func newReadEngine(retries int) *transport.ReadEngine {
	return transport.NewReadEngine(transport.ReadConfig{
		Timeout:    time.Second,
		Retries:    retries,
		RetryDelay: time.Millisecond,
	}, testLogger())
}

// GOAL: Verify that a clean first read returns without retrying.
func TestReadEngine_FirstAttemptSuccess(t *testing.T) {
	char := &testutils.FakeCharacteristic{
		UUIDVal:  transport.EnvironmentCharUUID,
		Caps:     transport.Capabilities{Read: true},
		ReadData: []byte{0x01, 0x02, 0x03},
	}

	data, err := newReadEngine(1).Read(context.Background(), char)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, data)
	assert.Equal(t, 1, char.ReadCount())
}

// GOAL: Verify the retry path recovers from a transient failure.
//
// TEST SCENARIO: The first attempt fails with a transport error, the second
// succeeds. The engine returns the second attempt's data.
func TestReadEngine_RetriesAfterTransientFailure(t *testing.T) {
	char := &testutils.FakeCharacteristic{
		UUIDVal:  transport.StatusCharUUID,
		Caps:     transport.Capabilities{Read: true},
		ReadData: []byte{0xAA, 0xBB},
		ReadErrs: []error{errors.New("gatt: att request failed")},
	}

	data, err := newReadEngine(1).Read(context.Background(), char)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB}, data)
	assert.Equal(t, 2, char.ReadCount())
}

// GOAL: Verify the attempt budget: one retry means exactly two attempts
// before giving up.
func TestReadEngine_ExhaustsAttemptBudget(t *testing.T) {
	wireErr := errors.New("gatt: att request failed")
	char := &testutils.FakeCharacteristic{
		UUIDVal:  transport.StageStateCharUUID,
		Caps:     transport.Capabilities{Read: true},
		ReadErrs: []error{wireErr, wireErr, wireErr},
	}

	_, err := newReadEngine(1).Read(context.Background(), char)
	require.Error(t, err)

	var rerr *transport.ReadError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 2, rerr.Attempts)
	assert.ErrorIs(t, err, wireErr)
	assert.Equal(t, 2, char.ReadCount())
}

// GOAL: Verify the per-attempt timeout.
//
// TEST SCENARIO: The backend read hangs until its context expires. Each
// attempt must be cut off at the configured timeout and the final error must
// carry ErrReadTimeout.
func TestReadEngine_AttemptTimeout(t *testing.T) {
	char := &testutils.FakeCharacteristic{
		UUIDVal: transport.EnvironmentCharUUID,
		Caps:    transport.Capabilities{Read: true},
	}
	char.ReadFunc = func(ctx context.Context) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}

	engine := transport.NewReadEngine(transport.ReadConfig{
		Timeout:    10 * time.Millisecond,
		Retries:    1,
		RetryDelay: time.Millisecond,
	}, testLogger())

	start := time.Now()
	_, err := engine.Read(context.Background(), char)
	elapsed := time.Since(start)

	require.Error(t, err)
	assert.ErrorIs(t, err, transport.ErrReadTimeout)

	var rerr *transport.ReadError
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, 2, rerr.Attempts)
	assert.Less(t, elapsed, time.Second)
}

// GOAL: Verify that cancelling the parent context stops the retry loop
// before the next attempt starts.
func TestReadEngine_ContextCanceledBetweenAttempts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	char := &testutils.FakeCharacteristic{
		UUIDVal: transport.StatusCharUUID,
		Caps:    transport.Capabilities{Read: true},
	}
	char.ReadFunc = func(context.Context) ([]byte, error) {
		cancel()
		return nil, errors.New("gatt: att request failed")
	}

	engine := transport.NewReadEngine(transport.ReadConfig{
		Timeout:    time.Second,
		Retries:    3,
		RetryDelay: 50 * time.Millisecond,
	}, testLogger())

	_, err := engine.Read(ctx, char)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, char.ReadCount())
}
