//go:build !darwin && !linux

package goble

import (
	"errors"

	"github.com/go-ble/ble"
)

func newDevice() (ble.Device, error) {
	return nil, errors.New("no BLE backend for this platform")
}
