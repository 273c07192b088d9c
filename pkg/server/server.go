package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"

	"github.com/embermesh/ember/pkg/conf"
	"github.com/embermesh/ember/pkg/guard"
	"github.com/embermesh/ember/pkg/keystore"
	"github.com/embermesh/ember/pkg/transport"
)

const (
	MaxHeaderBytes  = 1 << 20 // 1 MB
	shutdownTimeout = 10 * time.Second
)

// Server owns one connector and serves the embedded application's handler on
// it. TLS customization happens in New, before the connector exists on the
// network; Start only binds and serves.
type Server struct {
	config     *conf.Config
	connector  *transport.Connector
	httpServer *http.Server
	guard      *guard.Guard
	stats      *Stats

	ctx    context.Context
	cancel context.CancelFunc
}

// New builds a server for the handler. provider optionally supplies external
// key/trust material, overriding store files named in the SSL settings.
func New(cfg *conf.Config, handler http.Handler, provider keystore.StoreProvider) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}

	ctx, cancel := context.WithCancel(context.Background())

	g, err := guard.New(ctx, cfg.Guard)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to build guard: %w", err)
	}

	connector := transport.NewConnector()
	if cfg.SSL != nil && cfg.SSL.Enabled {
		customizer := transport.NewCustomizer(connector, cfg.SSL.ClientAuth)
		bundle, err := keystore.GetBundleFrom(cfg.SSL, provider)
		if err != nil {
			cancel()
			return nil, err
		}
		if err := customizer.Customize(bundle); err != nil {
			cancel()
			return nil, err
		}
	}

	s := &Server{
		config:    cfg,
		connector: connector,
		guard:     g,
		stats:     &Stats{},
		ctx:       ctx,
		cancel:    cancel,
	}

	maxHeaderBytes := MaxHeaderBytes
	if cfg.HTTP != nil && cfg.HTTP.MaxHeaderBytes > 0 {
		maxHeaderBytes = cfg.HTTP.MaxHeaderBytes
	}

	s.httpServer = &http.Server{
		Handler:        s.admit(handler),
		ReadTimeout:    cfg.Timeouts.Read,
		WriteTimeout:   cfg.Timeouts.Write,
		IdleTimeout:    cfg.Timeouts.Idle,
		MaxHeaderBytes: maxHeaderBytes,
	}

	if cfg.HTTP != nil && cfg.HTTP.EnableHTTP2 && connector.TLSEnabled() {
		if err := http2.ConfigureServer(s.httpServer, &http2.Server{}); err != nil {
			cancel()
			return nil, err
		}
		connector.SetALPN([]string{"h2", "http/1.1"})
	}

	return s, nil
}

// Start binds the connector and begins serving in the background.
func (s *Server) Start() error {
	if err := s.connector.Listen(s.config.Listen); err != nil {
		return err
	}

	go func() {
		if err := s.httpServer.Serve(s.connector); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server stopped unexpectedly", "error", err)
		}
	}()

	slog.Info("server started",
		"address", s.connector.Addr(),
		"tls", s.connector.TLSEnabled())
	return nil
}

// Shutdown drains connections within the configured grace period.
func (s *Server) Shutdown() error {
	slog.Info("shutting down server")
	s.cancel()

	timeout := s.config.Timeouts.Shutdown
	if timeout <= 0 {
		timeout = shutdownTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("graceful shutdown failed, closing", "error", err)
		return s.httpServer.Close()
	}

	slog.Info("server stopped",
		"requests_served", s.stats.Total(),
		"requests_rejected", s.stats.Rejected())
	return nil
}

// Addr returns the bound address, nil before Start.
func (s *Server) Addr() net.Addr {
	return s.connector.Addr()
}

// Connector returns the server's connector.
func (s *Server) Connector() *transport.Connector {
	return s.connector
}

// Stats returns the server's request counters.
func (s *Server) Stats() *Stats {
	return s.stats
}

// admit wraps the handler with request accounting and guard checks.
func (s *Server) admit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.stats.OnRequestStart()
		defer s.stats.OnRequestEnd()

		if err := s.guard.Admit(clientIP(r)); err != nil {
			s.stats.OnRejected()
			slog.Warn("request rejected",
				"client_ip", clientIP(r),
				"path", r.URL.Path,
				"error", err)

			if errors.Is(err, guard.ErrRateLimited) {
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			} else {
				http.Error(w, "Forbidden", http.StatusForbidden)
			}
			return
		}

		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
