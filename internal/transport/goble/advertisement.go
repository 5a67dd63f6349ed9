package goble

import (
	"github.com/go-ble/ble"

	"github.com/mycotrl/chamberlink/internal/transport"
)

// advertisement implements transport.Advertisement over a raw scan result.
type advertisement struct {
	adv ble.Advertisement
}

var _ transport.Advertisement = (*advertisement)(nil)

func (a *advertisement) Addr() string {
	return a.adv.Addr().String()
}

func (a *advertisement) LocalName() string {
	return a.adv.LocalName()
}

func (a *advertisement) Services() []string {
	uuids := a.adv.Services()
	out := make([]string, 0, len(uuids))
	for _, u := range uuids {
		out = append(out, u.String())
	}
	return out
}

func (a *advertisement) RSSI() int {
	return a.adv.RSSI()
}

func (a *advertisement) Connectable() bool {
	return a.adv.Connectable()
}
