package goble

import (
	"context"
	"sync"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/mycotrl/chamberlink/internal/transport"
)

// link implements transport.Link over a dialed ble.Client.
type link struct {
	client ble.Client
	logger *logrus.Logger

	dropOnce     sync.Once
	disconnected chan struct{}
}

func newLink(client ble.Client, logger *logrus.Logger) *link {
	l := &link{
		client:       client,
		logger:       logger,
		disconnected: make(chan struct{}),
	}

	// Not every platform backend exposes the Disconnected channel; without
	// it unsolicited drops surface only on the next failed operation.
	if d, ok := client.(interface{ Disconnected() <-chan struct{} }); ok {
		go func() {
			<-d.Disconnected()
			l.markDropped()
		}()
	} else {
		logger.Debug("Client does not expose a Disconnected() channel")
	}

	return l
}

func (l *link) markDropped() {
	l.dropOnce.Do(func() { close(l.disconnected) })
}

func (l *link) Connected() bool {
	select {
	case <-l.disconnected:
		return false
	default:
		return true
	}
}

func (l *link) DiscoverServices(ctx context.Context) ([]transport.Service, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	profile, err := l.client.DiscoverProfile(true)
	if err != nil {
		return nil, err
	}

	services := make([]transport.Service, 0, len(profile.Services))
	for _, svc := range profile.Services {
		services = append(services, &service{svc: svc, client: l.client, logger: l.logger})
	}
	return services, nil
}

func (l *link) Disconnected() <-chan struct{} {
	return l.disconnected
}

func (l *link) Close() error {
	l.markDropped()
	return l.client.CancelConnection()
}

// service implements transport.Service for one discovered GATT service.
type service struct {
	svc    *ble.Service
	client ble.Client
	logger *logrus.Logger
}

func (s *service) UUID() string {
	return s.svc.UUID.String()
}

func (s *service) Characteristics() []transport.Characteristic {
	chars := make([]transport.Characteristic, 0, len(s.svc.Characteristics))
	for _, char := range s.svc.Characteristics {
		chars = append(chars, &characteristic{char: char, client: s.client, logger: s.logger})
	}
	return chars
}
