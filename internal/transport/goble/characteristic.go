package goble

import (
	"context"
	"fmt"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/mycotrl/chamberlink/internal/transport"
)

// characteristic implements transport.Characteristic over a live GATT
// handle.
type characteristic struct {
	char   *ble.Characteristic
	client ble.Client
	logger *logrus.Logger
}

func (c *characteristic) UUID() string {
	return c.char.UUID.String()
}

func (c *characteristic) Capabilities() transport.Capabilities {
	p := c.char.Property
	return transport.Capabilities{
		Read:       p&ble.CharRead != 0,
		WriteAck:   p&ble.CharWrite != 0,
		WriteNoAck: p&ble.CharWriteNR != 0,
		Notify:     p&ble.CharNotify != 0 || p&ble.CharIndicate != 0,
	}
}

// Read performs a single ATT read. Timeout enforcement lives in the read
// engine above; the context is only consulted before issuing the request
// because go-ble reads are not cancelable mid-flight.
func (c *characteristic) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.client.ReadCharacteristic(c.char)
}

func (c *characteristic) Write(data []byte, withResponse bool) error {
	return c.client.WriteCharacteristic(c.char, data, !withResponse)
}

// Subscribe enables notifications, or indications when the characteristic
// only supports those.
func (c *characteristic) Subscribe(h func(data []byte)) error {
	indicate := c.char.Property&ble.CharNotify == 0 && c.char.Property&ble.CharIndicate != 0
	if err := c.client.Subscribe(c.char, indicate, func(data []byte) {
		h(data)
	}); err != nil {
		return fmt.Errorf("subscribe %s: %w", c.UUID(), err)
	}
	return nil
}

// Unsubscribe tries both notification and indication modes; peripherals
// differ on which one the CCCD write must name. An error surfaces only when
// both fail.
func (c *characteristic) Unsubscribe() error {
	notifyErr := c.client.Unsubscribe(c.char, false)
	indicateErr := c.client.Unsubscribe(c.char, true)
	if notifyErr != nil && indicateErr != nil {
		c.logger.WithFields(logrus.Fields{
			"char":         c.UUID(),
			"notify_err":   notifyErr,
			"indicate_err": indicateErr,
		}).Debug("Unsubscribe failed in both modes")
		return fmt.Errorf("unsubscribe %s: notify=%v, indicate=%v", c.UUID(), notifyErr, indicateErr)
	}
	return nil
}
