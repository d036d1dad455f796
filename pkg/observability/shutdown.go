package observability

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

const defaultShutdownTimeout = 30 * time.Second

// ShutdownFunc releases one resource during shutdown.
type ShutdownFunc func(context.Context) error

// ShutdownManager drains the HTTP server and then runs registered shutdown
// functions in registration order, all under a single deadline. Registration
// order matters: register dependents before their dependencies.
type ShutdownManager struct {
	logger  *Logger
	server  *http.Server
	timeout time.Duration

	mu    sync.Mutex
	funcs []ShutdownFunc
}

// NewShutdownManager creates a manager draining server on SIGINT/SIGTERM.
// A zero timeout defaults to 30 seconds.
func NewShutdownManager(logger *Logger, server *http.Server, timeout time.Duration) *ShutdownManager {
	if timeout == 0 {
		timeout = defaultShutdownTimeout
	}
	return &ShutdownManager{logger: logger, server: server, timeout: timeout}
}

// RegisterShutdownFunc appends fn to the shutdown sequence.
func (sm *ShutdownManager) RegisterShutdownFunc(fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.funcs = append(sm.funcs, fn)
}

// WaitForShutdown blocks until SIGINT or SIGTERM, then drains the server and
// runs the registered functions. Returns the joined errors of every step
// that failed; a nil return means a clean shutdown.
func (sm *ShutdownManager) WaitForShutdown() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	sig := <-sigCh
	sm.logger.WithField("signal", sig.String()).Info("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), sm.timeout)
	defer cancel()

	var errs []error

	if sm.server != nil {
		if err := sm.server.Shutdown(ctx); err != nil {
			sm.logger.WithError(err).Error("HTTP server shutdown failed")
			errs = append(errs, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	sm.mu.Lock()
	funcs := append([]ShutdownFunc(nil), sm.funcs...)
	sm.mu.Unlock()

	for i, fn := range funcs {
		if ctx.Err() != nil {
			sm.logger.Warn("Shutdown deadline reached, abandoning remaining cleanup")
			errs = append(errs, fmt.Errorf("shutdown deadline reached before step %d", i))
			break
		}
		if err := fn(ctx); err != nil {
			sm.logger.WithError(err).Errorf("Shutdown step %d failed", i)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	sm.logger.Info("Graceful shutdown complete")
	return nil
}
