// Package health aggregates component health checks behind liveness and
// readiness HTTP endpoints.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Check probes one component. A nil error means healthy.
type Check func(ctx context.Context) error

// Checker runs registered checks on demand.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]Check
	logger  zerolog.Logger
	timeout time.Duration
}

// NewChecker creates a health checker.
func NewChecker(logger zerolog.Logger) *Checker {
	return &Checker{
		checks:  make(map[string]Check),
		logger:  logger.With().Str("component", "health").Logger(),
		timeout: 5 * time.Second,
	}
}

// Register adds a named check. Registering the same name again replaces it.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	c.checks[name] = check
	c.mu.Unlock()
}

// Report is the result of running all checks.
type Report struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Run executes all registered checks and aggregates the result.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := make(map[string]Check, len(c.checks))
	for name, check := range c.checks {
		checks[name] = check
	}
	c.mu.RUnlock()

	report := Report{Status: "ok", Checks: make(map[string]string, len(checks))}

	for name, check := range checks {
		checkCtx, cancel := context.WithTimeout(ctx, c.timeout)
		err := check(checkCtx)
		cancel()

		if err != nil {
			report.Status = "degraded"
			report.Checks[name] = err.Error()
			c.logger.Warn().Err(err).Str("check", name).Msg("Health check failed")
		} else {
			report.Checks[name] = "ok"
		}
	}
	return report
}

// LivenessHandler reports process liveness; it never runs checks.
func (c *Checker) LivenessHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// ReadinessHandler runs all checks and returns 503 if any fails.
func (c *Checker) ReadinessHandler(w http.ResponseWriter, r *http.Request) {
	report := c.Run(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if report.Status != "ok" {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	_ = json.NewEncoder(w).Encode(report)
}
