// Package pprof serves runtime profiling data over HTTP as a managed service.
package pprof

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	_ "net/http/pprof"

	"github.com/database64128/acn-go/tslog"
)

// defaultListenAddress keeps the profiler off external interfaces unless configured otherwise.
const defaultListenAddress = "localhost:6060"

// Config is the configuration for the pprof service.
type Config struct {
	// Enabled controls whether the pprof service is enabled.
	Enabled bool `json:"enabled"`

	// ListenNetwork is the network to listen on.
	// If unspecified, "tcp" is used.
	ListenNetwork string `json:"listenNetwork,omitempty"`

	// ListenAddress is the address to listen on.
	// If unspecified, "localhost:6060" is used.
	ListenAddress string `json:"listenAddress,omitempty"`
}

// NewService creates a new pprof service.
func (c Config) NewService(logger *tslog.Logger) *Service {
	network := c.ListenNetwork
	if network == "" {
		network = "tcp"
	}

	address := c.ListenAddress
	if address == "" {
		address = defaultListenAddress
	}

	return &Service{
		logger:  logger,
		network: network,
		server: http.Server{
			Addr:     address,
			Handler:  logRequests(logger, http.DefaultServeMux),
			ErrorLog: slog.NewLogLogger(logger.Handler(), slog.LevelError),
		},
	}
}

func logRequests(logger *tslog.Logger, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, r)
		logger.Debug("Handled pprof request",
			slog.String("method", r.Method),
			slog.String("requestURI", r.RequestURI),
			slog.String("remoteAddr", r.RemoteAddr),
		)
	})
}

// Service serves pprof endpoints from [http.DefaultServeMux].
type Service struct {
	logger  *tslog.Logger
	network string
	server  http.Server
}

// SlogAttr returns the service's identifying attribute.
func (*Service) SlogAttr() slog.Attr {
	return slog.String("service", "pprof")
}

// Start listens and serves in a new goroutine.
func (s *Service) Start(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, s.network, s.server.Addr)
	if err != nil {
		return err
	}

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Failed to serve pprof", tslog.Err(err))
		}
	}()

	s.logger.Info("Started pprof", slog.String("listenAddress", ln.Addr().String()))
	return nil
}

// Stop closes the server and its connections.
func (s *Service) Stop() error {
	if err := s.server.Close(); err != nil {
		return err
	}
	s.logger.Info("Stopped pprof")
	return nil
}
