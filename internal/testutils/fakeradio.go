// Package testutils provides fake transport doubles for exercising the
// connection state machine, the reliability engines, and the facade without
// a radio.
package testutils

import (
	"context"
	"sync"

	"github.com/mycotrl/chamberlink/internal/transport"
)

// FakeAdvertisement implements transport.Advertisement.
type FakeAdvertisement struct {
	AddrVal        string
	Name           string
	ServiceUUIDs   []string
	RSSIVal        int
	ConnectableVal bool
}

func (a *FakeAdvertisement) Addr() string       { return a.AddrVal }
func (a *FakeAdvertisement) LocalName() string  { return a.Name }
func (a *FakeAdvertisement) Services() []string { return a.ServiceUUIDs }
func (a *FakeAdvertisement) RSSI() int          { return a.RSSIVal }
func (a *FakeAdvertisement) Connectable() bool  { return a.ConnectableVal }

// FakeWrite records one transmission attempt against a characteristic.
type FakeWrite struct {
	Data         []byte
	WithResponse bool
}

// FakeCharacteristic implements transport.Characteristic with scriptable
// read/write behavior and manual notification injection.
type FakeCharacteristic struct {
	UUIDVal string
	Caps    transport.Capabilities

	// ReadFunc overrides reads entirely when set; otherwise reads return
	// ReadData after consuming any queued ReadErrs.
	ReadFunc func(ctx context.Context) ([]byte, error)
	ReadData []byte
	ReadErrs []error

	// WriteFunc overrides writes entirely when set; otherwise writes
	// succeed. Every attempt is recorded in Writes either way.
	WriteFunc func(data []byte, withResponse bool) error

	SubscribeErr error

	mu           sync.Mutex
	writes       []FakeWrite
	reads        int
	handler      func([]byte)
	unsubscribed bool
}

func (c *FakeCharacteristic) UUID() string { return c.UUIDVal }

func (c *FakeCharacteristic) Capabilities() transport.Capabilities { return c.Caps }

func (c *FakeCharacteristic) Read(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	c.reads++
	var queued error
	if len(c.ReadErrs) > 0 {
		queued = c.ReadErrs[0]
		c.ReadErrs = c.ReadErrs[1:]
	}
	c.mu.Unlock()

	if c.ReadFunc != nil {
		return c.ReadFunc(ctx)
	}
	if queued != nil {
		return nil, queued
	}
	return c.ReadData, nil
}

func (c *FakeCharacteristic) Write(data []byte, withResponse bool) error {
	buf := make([]byte, len(data))
	copy(buf, data)

	c.mu.Lock()
	c.writes = append(c.writes, FakeWrite{Data: buf, WithResponse: withResponse})
	c.mu.Unlock()

	if c.WriteFunc != nil {
		return c.WriteFunc(data, withResponse)
	}
	return nil
}

func (c *FakeCharacteristic) Subscribe(h func(data []byte)) error {
	if c.SubscribeErr != nil {
		return c.SubscribeErr
	}
	c.mu.Lock()
	c.handler = h
	c.unsubscribed = false
	c.mu.Unlock()
	return nil
}

func (c *FakeCharacteristic) Unsubscribe() error {
	c.mu.Lock()
	c.handler = nil
	c.unsubscribed = true
	c.mu.Unlock()
	return nil
}

// Notify injects one raw notification as if the peripheral pushed it.
func (c *FakeCharacteristic) Notify(data []byte) {
	c.mu.Lock()
	h := c.handler
	c.mu.Unlock()
	if h != nil {
		h(data)
	}
}

// Writes returns the recorded transmission attempts.
func (c *FakeCharacteristic) Writes() []FakeWrite {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]FakeWrite, len(c.writes))
	copy(out, c.writes)
	return out
}

// ReadCount returns how many read attempts were made.
func (c *FakeCharacteristic) ReadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// Subscribed reports whether a notification handler is currently attached.
func (c *FakeCharacteristic) Subscribed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler != nil
}

// FakeService implements transport.Service.
type FakeService struct {
	UUIDVal string
	Chars   []transport.Characteristic
}

func (s *FakeService) UUID() string { return s.UUIDVal }

func (s *FakeService) Characteristics() []transport.Characteristic { return s.Chars }

// FakeLink implements transport.Link.
type FakeLink struct {
	ServicesVal []transport.Service
	DiscoverErr error

	// DropOnDiscover drops the link before discovery returns, simulating a
	// peripheral dying mid-handshake.
	DropOnDiscover bool

	mu           sync.Mutex
	connected    bool
	disconnected chan struct{}
}

func NewFakeLink() *FakeLink {
	return &FakeLink{
		connected:    true,
		disconnected: make(chan struct{}),
	}
}

func (l *FakeLink) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.connected
}

func (l *FakeLink) DiscoverServices(ctx context.Context) ([]transport.Service, error) {
	if l.DropOnDiscover {
		l.Drop()
	}
	if l.DiscoverErr != nil {
		return nil, l.DiscoverErr
	}
	return l.ServicesVal, nil
}

func (l *FakeLink) Disconnected() <-chan struct{} {
	return l.disconnected
}

func (l *FakeLink) Close() error {
	l.Drop()
	return nil
}

// Drop simulates an unsolicited link loss.
func (l *FakeLink) Drop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.connected {
		return
	}
	l.connected = false
	close(l.disconnected)
}

// ConnectCall records one Radio.Connect invocation.
type ConnectCall struct {
	Addr string
	MTU  int
}

// FakeRadio implements transport.Radio. Scan replays the scripted
// advertisements and then blocks until the context ends, mirroring a real
// scan window.
type FakeRadio struct {
	Advertisements []transport.Advertisement
	ScanErr        error
	ClearBondErr   error
	ConnectErr     error

	// LinkFactory supplies the link per Connect call; defaults to returning
	// Link.
	LinkFactory func() *FakeLink
	Link        *FakeLink

	mu             sync.Mutex
	connectCalls   []ConnectCall
	clearBondCalls []string
}

func (r *FakeRadio) Scan(ctx context.Context, allowDup bool, h func(transport.Advertisement)) error {
	if r.ScanErr != nil {
		return r.ScanErr
	}
	for _, adv := range r.Advertisements {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		h(adv)
	}
	<-ctx.Done()
	return ctx.Err()
}

func (r *FakeRadio) ClearBond(addr string) error {
	r.mu.Lock()
	r.clearBondCalls = append(r.clearBondCalls, addr)
	r.mu.Unlock()
	return r.ClearBondErr
}

func (r *FakeRadio) Connect(ctx context.Context, addr string, mtu int) (transport.Link, error) {
	r.mu.Lock()
	r.connectCalls = append(r.connectCalls, ConnectCall{Addr: addr, MTU: mtu})
	r.mu.Unlock()

	if r.ConnectErr != nil {
		return nil, r.ConnectErr
	}
	if r.LinkFactory != nil {
		return r.LinkFactory(), nil
	}
	return r.Link, nil
}

// ConnectCalls returns the recorded Connect invocations.
func (r *FakeRadio) ConnectCalls() []ConnectCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ConnectCall, len(r.connectCalls))
	copy(out, r.connectCalls)
	return out
}

// ClearBondCalls returns the addresses bond clearing was requested for.
func (r *FakeRadio) ClearBondCalls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.clearBondCalls))
	copy(out, r.clearBondCalls)
	return out
}

// ChamberPeripheral is a fully assembled fake chamber: a radio advertising
// it, a link exposing its service, and the six characteristics by role.
type ChamberPeripheral struct {
	Radio *FakeRadio
	Link  *FakeLink
	Chars map[transport.Role]*FakeCharacteristic
}

// NewChamberPeripheral builds a fake chamber with the full characteristic
// set: streaming roles are notify-capable, the rest read/write.
func NewChamberPeripheral(addr string) *ChamberPeripheral {
	chars := make(map[transport.Role]*FakeCharacteristic)
	var list []transport.Characteristic
	for pair := transport.RoleTable().Oldest(); pair != nil; pair = pair.Next() {
		caps := transport.Capabilities{Read: true, WriteAck: true, WriteNoAck: true}
		if pair.Key == transport.RoleEnvironment || pair.Key == transport.RoleStatus {
			caps.Notify = true
		}
		char := &FakeCharacteristic{UUIDVal: pair.Value, Caps: caps}
		chars[pair.Key] = char
		list = append(list, char)
	}

	link := NewFakeLink()
	link.ServicesVal = []transport.Service{
		&FakeService{UUIDVal: "180a"}, // device information, present on real hardware
		&FakeService{UUIDVal: transport.ServiceUUID, Chars: list},
	}

	radio := &FakeRadio{
		Advertisements: []transport.Advertisement{
			&FakeAdvertisement{
				AddrVal:        addr,
				Name:           transport.AdvertisedNamePrefix + "-A1B2",
				ServiceUUIDs:   []string{transport.ServiceUUID},
				RSSIVal:        -52,
				ConnectableVal: true,
			},
		},
		Link: link,
	}

	return &ChamberPeripheral{Radio: radio, Link: link, Chars: chars}
}

// RemoveCharacteristic rebuilds the chamber service without the given role,
// for exercising incomplete-characteristic-set failures.
func (p *ChamberPeripheral) RemoveCharacteristic(role transport.Role) {
	removed := p.Chars[role]
	var list []transport.Characteristic
	for pair := transport.RoleTable().Oldest(); pair != nil; pair = pair.Next() {
		char, ok := p.Chars[pair.Key]
		if !ok || char == removed {
			continue
		}
		list = append(list, char)
	}
	delete(p.Chars, role)
	p.Link.ServicesVal = []transport.Service{
		&FakeService{UUIDVal: transport.ServiceUUID, Chars: list},
	}
}
