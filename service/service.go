// Package service runs ACN root layer receivers and senders over UDP and TCP.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/database64128/acn-go/pprof"
	"github.com/database64128/acn-go/tslog"
)

// Service is implemented by receivers and senders managed by a [*Manager].
type Service interface {
	// SlogAttr returns a [slog.Attr] that identifies the service.
	SlogAttr() slog.Attr

	// Start starts the service.
	Start(ctx context.Context) error

	// Stop stops the service.
	Stop() error
}

// Config is the configuration of an ACN monitor.
// It may be marshaled as or unmarshaled from JSON.
type Config struct {
	Receivers []ReceiverConfig `json:"receivers"`
	Streams   []StreamConfig   `json:"streams"`
	Senders   []SenderConfig   `json:"senders"`
	Pprof     pprof.Config     `json:"pprof"`
}

// Manager creates a service manager from the config.
//
// Received PDUs are passed to handler. If handler is nil, they are logged at debug level.
func (sc *Config) Manager(logger *tslog.Logger, handler Handler) (*Manager, error) {
	serviceCount := len(sc.Receivers) + len(sc.Streams) + len(sc.Senders)
	if sc.Pprof.Enabled {
		serviceCount++
	}
	if serviceCount == 0 {
		return nil, errors.New("no services to start")
	}

	if handler == nil {
		handler = NewLogHandler(logger)
	}

	services := make([]Service, 0, serviceCount)

	if sc.Pprof.Enabled {
		services = append(services, sc.Pprof.NewService(logger))
	}

	for i := range sc.Receivers {
		r, err := sc.Receivers[i].Receiver(logger, handler)
		if err != nil {
			return nil, fmt.Errorf("failed to create receiver %q: %w", sc.Receivers[i].Name, err)
		}
		services = append(services, r)
	}

	for i := range sc.Streams {
		s, err := sc.Streams[i].StreamReceiver(logger, handler)
		if err != nil {
			return nil, fmt.Errorf("failed to create stream receiver %q: %w", sc.Streams[i].Name, err)
		}
		services = append(services, s)
	}

	for i := range sc.Senders {
		s, err := sc.Senders[i].Sender(logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create sender %q: %w", sc.Senders[i].Name, err)
		}
		services = append(services, s)
	}

	return &Manager{services, logger}, nil
}

// Manager manages the services.
type Manager struct {
	services []Service
	logger   *tslog.Logger
}

// Start starts all configured services.
// If a service fails to start, the services started before it are stopped.
func (m *Manager) Start(ctx context.Context) error {
	for i, s := range m.services {
		if err := s.Start(ctx); err != nil {
			m.stop(m.services[:i])
			return fmt.Errorf("failed to start %s: %w", s.SlogAttr(), err)
		}
	}
	return nil
}

// Stop stops all running services.
func (m *Manager) Stop() {
	m.stop(m.services)
}

func (m *Manager) stop(services []Service) {
	for _, s := range services {
		if err := s.Stop(); err != nil {
			m.logger.Warn("Failed to stop service", s.SlogAttr(), tslog.Err(err))
		}
	}
}
