package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cliossg/intake/pkg/cl/logger"
	"github.com/go-chi/chi/v5"
)

// Startable represents a component that can be started.
type Startable interface {
	Start(context.Context) error
}

// Stoppable represents a component that can be stopped.
type Stoppable interface {
	Stop(context.Context) error
}

// RouteRegistrar represents a component that registers HTTP routes.
type RouteRegistrar interface {
	RegisterRoutes(chi.Router)
}

// Lifecycle holds the start/stop pipelines discovered from components.
type Lifecycle struct {
	starts     []func(context.Context) error
	stops      []func(context.Context) error
	registrars []RouteRegistrar
	log        logger.Logger
}

// Setup inspects each component for RouteRegistrar, Startable and Stoppable
// and collects them in the order given. Nil components are skipped.
func Setup(log logger.Logger, comps ...any) *Lifecycle {
	lc := &Lifecycle{log: log}
	for _, c := range comps {
		if c == nil {
			continue
		}
		if rr, ok := c.(RouteRegistrar); ok {
			lc.registrars = append(lc.registrars, rr)
		}
		if s, ok := c.(Startable); ok {
			lc.starts = append(lc.starts, s.Start)
			// Keep stops aligned with starts for rollback.
			if st, ok := c.(Stoppable); ok {
				lc.stops = append(lc.stops, st.Stop)
			} else {
				lc.stops = append(lc.stops, func(context.Context) error { return nil })
			}
			continue
		}
		if st, ok := c.(Stoppable); ok {
			lc.starts = append(lc.starts, func(context.Context) error { return nil })
			lc.stops = append(lc.stops, st.Stop)
		}
	}
	return lc
}

// Start runs start functions in order. If one fails, the components already
// started are stopped in reverse order and the error is returned. Routes are
// registered only after every component started.
func (lc *Lifecycle) Start(ctx context.Context, router chi.Router) error {
	for i, start := range lc.starts {
		if err := start(ctx); err != nil {
			lc.log.Errorf("error starting component #%d: %v", i, err)
			for j := i - 1; j >= 0; j-- {
				if rErr := lc.stops[j](context.Background()); rErr != nil {
					lc.log.Errorf("error stopping component #%d during rollback: %v", j, rErr)
				}
			}
			return err
		}
	}

	for _, rr := range lc.registrars {
		rr.RegisterRoutes(router)
	}

	return nil
}

// Stop stops all components in reverse order (LIFO).
func (lc *Lifecycle) Stop(ctx context.Context) {
	for i := len(lc.stops) - 1; i >= 0; i-- {
		if err := lc.stops[i](ctx); err != nil {
			lc.log.Errorf("error stopping component #%d: %v", i, err)
		}
	}
}

// NewServer builds the HTTP server with conservative timeouts.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// Serve blocks until the server is shut down.
func Serve(srv *http.Server) error {
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown performs graceful shutdown of the HTTP server and all components.
func (lc *Lifecycle) Shutdown(srv *http.Server) {
	lc.log.Info("Shutting down gracefully, press Ctrl+C again to force")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		lc.log.Errorf("server shutdown failed: %v", err)
	}

	lc.Stop(shutdownCtx)
}
