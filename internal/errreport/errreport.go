// Package errreport forwards failures to Sentry. Without a DSN every call is
// a no-op so local runs need no configuration.
package errreport

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

// Config holds the Sentry client settings. An empty DSN disables reporting.
type Config struct {
	DSN              string
	Environment      string
	Release          string
	TracesSampleRate float64
}

// Reporter captures errors on its own Sentry hub.
type Reporter struct {
	hub    *sentry.Hub
	logger *zap.SugaredLogger
}

// New builds a Reporter. An empty DSN yields a disabled reporter.
func New(cfg Config, logger *zap.SugaredLogger) (*Reporter, error) {
	if cfg.DSN == "" {
		logger.Debugw("Sentry DSN not configured - error reporting disabled")
		return &Reporter{logger: logger}, nil
	}
	return newReporter(cfg, nil, logger)
}

func newReporter(cfg Config, transport sentry.Transport, logger *zap.SugaredLogger) (*Reporter, error) {
	client, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		TracesSampleRate: cfg.TracesSampleRate,
		Transport:        transport,
	})
	if err != nil {
		return nil, fmt.Errorf("sentry init: %w", err)
	}

	logger.Infow("Sentry initialized", "environment", cfg.Environment, "release", cfg.Release)
	return &Reporter{
		hub:    sentry.NewHub(client, sentry.NewScope()),
		logger: logger,
	}, nil
}

// Enabled reports whether events are actually sent.
func (r *Reporter) Enabled() bool {
	return r != nil && r.hub != nil
}

// Capture sends err with the given tags.
func (r *Reporter) Capture(err error, tags map[string]string) {
	if err == nil || !r.Enabled() {
		return
	}
	r.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		r.hub.CaptureException(err)
	})
	r.logger.Debugw("Exception captured in Sentry", "error", err)
}

// Flush waits for queued events to be delivered.
func (r *Reporter) Flush(timeout time.Duration) bool {
	if !r.Enabled() {
		return true
	}
	return r.hub.Flush(timeout)
}
