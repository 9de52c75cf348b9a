// Package core is the HTTP chassis for the auto-reply service. It owns the
// chi router and everything every request shares: panic recovery, request
// correlation, structured logging, timeouts, and the JSON error envelope.
// Domain handlers plug in through RouteRegistrars and never reach inside.
package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Abhishek-cmd13/Emailautomation/internal/config"
)

// RouteRegistrar mounts one handler package's routes. main.go collects one
// per handler package and hands them to the Server, which keeps core free
// of handler imports.
type RouteRegistrar func(r chi.Router)

// Server bundles the router with the dependencies handlers and middleware
// share. Everything except the router is exported so main.go can wire
// registrars and probes after construction.
type Server struct {
	Config    *config.Config
	Logger    *slog.Logger
	Validator *Validator

	// RouteRegistrars are applied by MountRoutes. Populated by main.go.
	RouteRegistrars []RouteRegistrar

	// HealthProbes back the /health endpoint. Optional.
	HealthProbes []HealthProbe

	router *chi.Mux
}

// NewServer builds the chassis around cfg and logger, failing fast when
// either is missing. Routes are mounted separately so tests can register
// their own before the chain is assembled.
func NewServer(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config must not be nil")
	}
	if logger == nil {
		return nil, errors.New("logger must not be nil")
	}

	return &Server{
		Config:    cfg,
		Logger:    logger,
		Validator: NewValidator(logger),
		router:    chi.NewRouter(),
	}, nil
}

// Handler returns the router as an http.Handler for the listener and for
// tests that drive the full chain.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Router exposes the chi mux for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Shutdown releases resources the server owns. The listener itself is
// drained by the caller via http.Server.Shutdown; this closes long-lived
// clients such as health probes holding upstream connections. Every probe
// gets its Close call even when an earlier one fails.
func (s *Server) Shutdown(ctx context.Context) error {
	s.Logger.Info("server shutdown initiated")

	var errs []error
	for _, probe := range s.HealthProbes {
		closer, ok := probe.(interface{ Close() error })
		if !ok {
			continue
		}
		if err := closer.Close(); err != nil {
			s.Logger.Error("error closing health probe",
				"probe", probe.Name(), "error", err)
			errs = append(errs, fmt.Errorf("closing health probe %s: %w", probe.Name(), err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	s.Logger.Info("server shutdown complete")
	return nil
}
