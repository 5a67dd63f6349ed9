package transport

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/mycotrl/chamberlink/internal/protocol"
	"github.com/mycotrl/chamberlink/internal/pubsub"
)

// DefaultNotifyBuffer is the per-subscriber buffer for decoded records.
const DefaultNotifyBuffer = 128

// EnvironmentUpdate is a decoded environment notification. At is the host
// receipt time, not a device-supplied time.
type EnvironmentUpdate struct {
	At      time.Time
	Reading protocol.EnvironmentalReading
}

// StatusUpdate is a decoded status notification. At is the host receipt
// time.
type StatusUpdate struct {
	At    time.Time
	Flags protocol.StatusFlags
}

// Pipeline consumes the two streaming characteristics, decodes every
// inbound value, and republishes the decoded records on two logical
// broadcast channels. A decode failure on one notification is logged and
// dropped; it never closes the subscription or affects later notifications.
//
// The pipeline outlives individual connections: BLE-side subscriptions come
// and go with the link, broadcast subscribers persist across reconnects.
type Pipeline struct {
	env    *pubsub.Broadcaster[EnvironmentUpdate]
	status *pubsub.Broadcaster[StatusUpdate]
	logger *logrus.Logger
}

func NewPipeline(logger *logrus.Logger) *Pipeline {
	if logger == nil {
		logger = logrus.New()
	}
	return &Pipeline{
		env:    pubsub.NewBroadcaster[EnvironmentUpdate](DefaultNotifyBuffer),
		status: pubsub.NewBroadcaster[StatusUpdate](DefaultNotifyBuffer),
		logger: logger,
	}
}

// Attach enables notification delivery on the environment and status
// characteristics. Both streams are mandatory; failure on either fails the
// attach (and with it the connection attempt).
func (p *Pipeline) Attach(env, status Characteristic) error {
	if err := env.Subscribe(p.onEnvironment); err != nil {
		return fmt.Errorf("environment subscription: %w", err)
	}
	if err := status.Subscribe(p.onStatus); err != nil {
		// Leave the environment stream for the session teardown to unwind.
		return fmt.Errorf("status subscription: %w", err)
	}
	return nil
}

func (p *Pipeline) onEnvironment(data []byte) {
	reading, err := protocol.DecodeEnvironmentalReading(data)
	if err != nil {
		p.logger.WithFields(logrus.Fields{
			"bytes": len(data),
			"error": err,
		}).Warn("Dropping undecodable environment notification")
		return
	}
	p.env.Publish(EnvironmentUpdate{At: time.Now(), Reading: reading})
}

func (p *Pipeline) onStatus(data []byte) {
	flags, err := protocol.DecodeStatusFlags(data)
	if err != nil {
		p.logger.WithFields(logrus.Fields{
			"bytes": len(data),
			"error": err,
		}).Warn("Dropping undecodable status notification")
		return
	}
	p.status.Publish(StatusUpdate{At: time.Now(), Flags: flags})
}

// Environment subscribes to decoded environment records. Delivery order
// matches raw notification arrival order; the cancel function detaches the
// subscription.
func (p *Pipeline) Environment() (<-chan EnvironmentUpdate, func()) {
	return p.env.Subscribe()
}

// Status subscribes to decoded status records.
func (p *Pipeline) Status() (<-chan StatusUpdate, func()) {
	return p.status.Subscribe()
}

// Close ends all broadcast subscriptions. Called when the owning session is
// being discarded, not on ordinary disconnects.
func (p *Pipeline) Close() {
	p.env.Close()
	p.status.Close()
}
