//go:build linux

package goble

import (
	"github.com/go-ble/ble"
	"github.com/go-ble/ble/linux"
)

func newDevice() (ble.Device, error) {
	return linux.NewDevice()
}
