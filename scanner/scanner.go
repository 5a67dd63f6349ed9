// Package scanner discovers cultivation chambers over BLE advertisements.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cornelk/hashmap"
	"github.com/sirupsen/logrus"

	"github.com/mycotrl/chamberlink/internal/pubsub"
	"github.com/mycotrl/chamberlink/internal/transport"
)

// ProgressCallback is called when the scan phase changes
type ProgressCallback func(phase string)

// DeviceEventType marks if the device was newly discovered or updated
type DeviceEventType int

const (
	EventNew DeviceEventType = iota
	EventUpdated
)

type DeviceEvent struct {
	Type       DeviceEventType
	DeviceInfo *DeviceInfo
}

// DeviceInfo is the accumulated view of one advertiser across a scan.
type DeviceInfo struct {
	mu sync.Mutex

	address     string
	name        string
	rssi        int
	connectable bool
	confidence  transport.MatchConfidence
	firstSeen   time.Time
	lastSeen    time.Time
	sightings   int
}

func newDeviceInfo(adv transport.Advertisement, confidence transport.MatchConfidence) *DeviceInfo {
	now := time.Now()
	return &DeviceInfo{
		address:     adv.Addr(),
		name:        adv.LocalName(),
		rssi:        adv.RSSI(),
		connectable: adv.Connectable(),
		confidence:  confidence,
		firstSeen:   now,
		lastSeen:    now,
		sightings:   1,
	}
}

// update folds a repeat advertisement in. The name sticks once seen (scan
// responses carry it intermittently) and the confidence only upgrades.
func (d *DeviceInfo) update(adv transport.Advertisement, confidence transport.MatchConfidence) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if name := adv.LocalName(); name != "" {
		d.name = name
	}
	d.rssi = adv.RSSI()
	d.connectable = adv.Connectable()
	if confidence > d.confidence {
		d.confidence = confidence
	}
	d.lastSeen = time.Now()
	d.sightings++
}

func (d *DeviceInfo) Address() string { return d.address }

func (d *DeviceInfo) Name() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.name
}

func (d *DeviceInfo) RSSI() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rssi
}

func (d *DeviceInfo) Connectable() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.connectable
}

// Confidence is the strongest chamber match seen for this advertiser.
func (d *DeviceInfo) Confidence() transport.MatchConfidence {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.confidence
}

func (d *DeviceInfo) LastSeen() time.Time {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastSeen
}

func (d *DeviceInfo) Sightings() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.sightings
}

// ScanOptions configures scanning behavior
type ScanOptions struct {
	Duration        time.Duration
	DuplicateFilter bool

	// ChambersOnly drops advertisers that fail the chamber match entirely.
	ChambersOnly bool

	AllowList []string
	BlockList []string
}

// DefaultScanOptions returns default scanning options
func DefaultScanOptions() *ScanOptions {
	return &ScanOptions{
		Duration:        10 * time.Second,
		DuplicateFilter: false,
		ChambersOnly:    true,
	}
}

// Scanner handles chamber discovery over a transport.Radio.
type Scanner struct {
	radio  transport.Radio
	logger *logrus.Logger
	events *pubsub.RingChannel[DeviceEvent]

	devices     *hashmap.Map[string, *DeviceInfo]
	scanOptions *ScanOptions
}

// NewScanner creates a new chamber scanner
func NewScanner(radio transport.Radio, logger *logrus.Logger) *Scanner {
	if logger == nil {
		logger = logrus.New()
	}
	return &Scanner{
		radio:  radio,
		logger: logger,
		events: pubsub.NewRingChannel[DeviceEvent](100),
	}
}

// Scan performs discovery with the provided options and returns the devices
// seen, sorted by descending match confidence then signal strength.
func (s *Scanner) Scan(ctx context.Context, opts *ScanOptions, progressCallback ProgressCallback) ([]*DeviceInfo, error) {
	s.devices = hashmap.New[string, *DeviceInfo]()

	if opts == nil {
		opts = DefaultScanOptions()
	}
	if progressCallback == nil {
		progressCallback = func(string) {} // No-op callback
	}
	s.scanOptions = opts
	defer func() {
		s.scanOptions = nil
	}()

	s.logger.WithField("duration", opts.Duration).Info("Starting chamber scan...")
	progressCallback("Scanning")

	scanCtx, cancel := context.WithTimeout(ctx, opts.Duration)
	defer cancel()

	err := s.radio.Scan(scanCtx, !opts.DuplicateFilter, s.handleAdvertisement)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	s.logger.WithField("device_count", s.devices.Len()).Info("Chamber scan completed")
	progressCallback("Processing results")

	return s.makeDeviceList(), nil
}

// handleAdvertisement updates existing or adds a new device
func (s *Scanner) handleAdvertisement(adv transport.Advertisement) {
	opts := s.scanOptions
	if opts == nil {
		return
	}

	confidence := transport.MatchChamber(adv)
	if !s.shouldIncludeDevice(adv, confidence, opts) {
		return
	}

	deviceID := adv.Addr()
	dev, existing := s.devices.Get(deviceID)
	if !existing {
		dev, existing = s.devices.GetOrInsert(deviceID, newDeviceInfo(adv, confidence))
	}

	event := DeviceEvent{DeviceInfo: dev}
	if existing {
		dev.update(adv, confidence)
		event.Type = EventUpdated
	} else {
		s.logger.WithFields(logrus.Fields{
			"device":     dev.Name(),
			"address":    dev.Address(),
			"rssi":       dev.RSSI(),
			"confidence": confidence.String(),
		}).Info("Discovered chamber candidate")
		event.Type = EventNew
	}

	s.events.Send(event)
}

// shouldIncludeDevice applies the chamber, allow and block filters
func (s *Scanner) shouldIncludeDevice(adv transport.Advertisement, confidence transport.MatchConfidence, opts *ScanOptions) bool {
	if opts.ChambersOnly && confidence == transport.MatchNone {
		return false
	}

	addr := adv.Addr()
	for _, blocked := range opts.BlockList {
		if addr == blocked {
			return false
		}
	}

	if len(opts.AllowList) > 0 {
		allowed := false
		for _, a := range opts.AllowList {
			if addr == a {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}

	return true
}

func (s *Scanner) makeDeviceList() []*DeviceInfo {
	devs := make([]*DeviceInfo, 0, s.devices.Len())
	s.devices.Range(func(key string, value *DeviceInfo) bool {
		devs = append(devs, value)
		return true
	})

	sort.Slice(devs, func(i, j int) bool {
		ci, cj := devs[i].Confidence(), devs[j].Confidence()
		if ci != cj {
			return ci > cj
		}
		return devs[i].RSSI() > devs[j].RSSI()
	})
	return devs
}

// Events returns a read-only channel of device events. The channel holds
// the most recent events; a slow reader loses the oldest ones.
func (s *Scanner) Events() <-chan DeviceEvent {
	return s.events.C()
}
