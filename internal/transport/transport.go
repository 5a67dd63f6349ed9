// Package transport implements the chamber's BLE device communication
// layer: the radio capability interfaces, the connection lifecycle state
// machine, the write/read reliability engines, and the notification
// pipeline. All radio access goes through the Radio interface so the layer
// is testable with a fake transport and portable across host BLE stacks.
package transport

import (
	"context"
	"strings"
)

// Capabilities describes what a peripheral characteristic declares it
// supports. Different chamber firmware revisions expose different write
// modes, so the write engine plans its attempts from this set.
type Capabilities struct {
	Read       bool
	WriteAck   bool
	WriteNoAck bool
	Notify     bool
}

// Writable reports whether at least one write mode is supported.
func (c Capabilities) Writable() bool {
	return c.WriteAck || c.WriteNoAck
}

// Advertisement is one received advertising event.
type Advertisement interface {
	Addr() string
	LocalName() string
	Services() []string
	RSSI() int
	Connectable() bool
}

// Radio abstracts the host BLE stack: scanning, bond management, and link
// establishment. Implementations live in the goble subpackage (production)
// and testutils (fakes).
type Radio interface {
	// Scan delivers advertisements to h until ctx is done. A context
	// cancellation or deadline is a normal termination, not an error.
	Scan(ctx context.Context, allowDup bool, h func(Advertisement)) error

	// ClearBond removes any persisted bond for addr. The chamber operates
	// bondless; a stale bond causes pairing conflicts on connect. Backends
	// without a bond store return ErrUnsupported.
	ClearBond(addr string) error

	// Connect establishes a direct (non-auto) link to addr, requesting the
	// given MTU. MTU negotiation failure is logged and swallowed by the
	// backend; only link failure is an error.
	Connect(ctx context.Context, addr string, mtu int) (Link, error)
}

// Link is an established peripheral connection.
type Link interface {
	// Connected reports whether the link is still up.
	Connected() bool

	// DiscoverServices enumerates the peripheral's GATT services.
	DiscoverServices(ctx context.Context) ([]Service, error)

	// Disconnected is closed when the link drops, whatever the cause.
	Disconnected() <-chan struct{}

	// Close tears the link down. Safe to call on an already-dead link.
	Close() error
}

// Service is one discovered GATT service.
type Service interface {
	UUID() string
	Characteristics() []Characteristic
}

// Characteristic is one discovered GATT characteristic with its I/O
// operations.
type Characteristic interface {
	UUID() string
	Capabilities() Capabilities

	Read(ctx context.Context) ([]byte, error)

	// Write transmits data in a single attempt, acknowledged when
	// withResponse is true. Retry and fallback policy belongs to the write
	// engine, not the backend.
	Write(data []byte, withResponse bool) error

	// Subscribe enables notification delivery; h is invoked per inbound
	// value in arrival order.
	Subscribe(h func(data []byte)) error
	Unsubscribe() error
}

// NormalizeUUID converts a UUID string to the canonical lookup form
// (lowercase, no dashes), accepting both dashed and already-normalized
// input.
func NormalizeUUID(uuid string) string {
	return strings.ToLower(strings.ReplaceAll(uuid, "-", ""))
}
