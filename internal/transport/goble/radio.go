// Package goble adapts the go-ble/ble stack to the transport interfaces.
// Everything above this package is backend-agnostic; this is the only place
// that touches the platform BLE stack.
package goble

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/mycotrl/chamberlink/internal/transport"
)

// DeviceFactory creates ble.Device instances (can be overridden in tests).
var DeviceFactory = newDevice

// Radio implements transport.Radio on go-ble. The underlying ble.Device is
// created lazily on first use and reused for the process lifetime; the
// platform HCI socket does not tolerate repeated open/close cycles well.
type Radio struct {
	logger *logrus.Logger

	mu  sync.Mutex
	dev ble.Device
}

func NewRadio(logger *logrus.Logger) *Radio {
	if logger == nil {
		logger = logrus.New()
	}
	return &Radio{logger: logger}
}

func (r *Radio) device() (ble.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dev != nil {
		return r.dev, nil
	}

	dev, err := DeviceFactory()
	if err != nil {
		return nil, fmt.Errorf("failed to create BLE device: %w", err)
	}
	ble.SetDefaultDevice(dev)
	r.dev = dev
	return dev, nil
}

// Scan listens for advertisements until ctx ends, invoking h for each one.
func (r *Radio) Scan(ctx context.Context, allowDup bool, h func(transport.Advertisement)) error {
	dev, err := r.device()
	if err != nil {
		return err
	}
	return dev.Scan(ctx, allowDup, func(adv ble.Advertisement) {
		h(&advertisement{adv: adv})
	})
}

// ClearBond is not available through go-ble; bond records live in the OS
// stack (bluetoothd, BlueZ) outside this process. Callers treat the error
// as advisory.
func (r *Radio) ClearBond(addr string) error {
	return fmt.Errorf("bond clearing for %s: %w", addr, transport.ErrUnsupported)
}

// Connect dials the peripheral and requests the given MTU. The MTU exchange
// is best-effort: a refusing peripheral keeps the default and the
// connection proceeds.
func (r *Radio) Connect(ctx context.Context, addr string, mtu int) (transport.Link, error) {
	// ble.Dial goes through the default device; make sure it exists.
	if _, err := r.device(); err != nil {
		return nil, err
	}

	r.logger.WithField("address", addr).Debug("Dialing BLE device...")
	client, err := ble.Dial(ctx, ble.NewAddr(addr))
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	if mtu > 0 {
		if negotiated, err := client.ExchangeMTU(mtu); err != nil {
			r.logger.WithFields(logrus.Fields{
				"address":   addr,
				"requested": mtu,
				"error":     err,
			}).Debug("MTU exchange refused, keeping stack default")
		} else {
			r.logger.WithFields(logrus.Fields{
				"address":    addr,
				"requested":  mtu,
				"negotiated": negotiated,
			}).Debug("MTU exchanged")
		}
	}

	return newLink(client, r.logger), nil
}
