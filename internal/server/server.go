// Package server implements the TCP transport for the RESP core: one
// goroutine per accepted connection, each running a strict
// decode → dispatch → execute → encode loop against the shared backend.
package server

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/arvhen/respd/internal/backend"
	"github.com/arvhen/respd/internal/telemetry/logger"
	"github.com/arvhen/respd/internal/telemetry/metric"
)

// Config holds the server configuration.
type Config struct {
	// Addr is the TCP listen address.
	Addr string
	// ReadTimeout bounds reading the remainder of a started request
	// (slowloris protection).
	ReadTimeout time.Duration
	// WriteTimeout bounds writing one response.
	WriteTimeout time.Duration
	// IdleTimeout bounds waiting for the next request on an idle connection.
	IdleTimeout time.Duration
	// RateLimit is the maximum number of commands per second per client IP.
	// Zero disables rate limiting.
	RateLimit int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Addr:         "127.0.0.1:6379",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  5 * time.Minute,
		RateLimit:    0,
	}
}

// Server accepts RESP connections and serves them against one shared store.
type Server struct {
	cfg      *Config
	store    *backend.Backend
	logger   logger.Logger
	metrics  *metric.Registry
	limiters *ipLimiters

	ln      net.Listener
	running atomic.Bool
	wg      sync.WaitGroup
}

// New creates a server. The store must not be nil; logger and metrics
// default to no-op and a fresh registry respectively.
func New(cfg *Config, store *backend.Backend, log logger.Logger, metrics *metric.Registry) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logger.Nop()
	}
	if metrics == nil {
		metrics = metric.NewRegistry()
	}
	return &Server{
		cfg:      cfg,
		store:    store,
		logger:   log,
		metrics:  metrics,
		limiters: newIPLimiters(cfg.RateLimit),
	}
}

// Start binds the listener and begins accepting connections in the
// background. It returns once the listener is bound, so Addr is valid
// immediately after a successful Start.
func (s *Server) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return err
	}
	s.ln = ln
	s.running.Store(true)
	s.logger.Info("server listening", "addr", ln.Addr().String())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.acceptLoop(ctx); err != nil && s.running.Load() {
			s.logger.Error("accept loop failed", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listen address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Shutdown closes the listener and waits for in-flight connections to
// finish, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.running.Store(false)

	var firstErr error
	if s.ln != nil {
		if err := s.ln.Close(); err != nil {
			firstErr = err
		}
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}
	return firstErr
}

func (s *Server) acceptLoop(ctx context.Context) error {
	for {
		c, err := s.ln.Accept()
		if err != nil {
			if !s.running.Load() || errors.Is(err, net.ErrClosed) {
				return nil
			}
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			return err
		}

		s.metrics.ConnectionsTotal.Inc()
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serveConn(c)
		}()
	}
}
