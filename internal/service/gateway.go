package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/savushkin-dev/scada-gateway/internal/domain"
	"github.com/savushkin-dev/scada-gateway/internal/metrics"
	"github.com/savushkin-dev/scada-gateway/internal/registry"
)

// ManagerConfig holds configuration for one server lifecycle manager.
type ManagerConfig struct {
	// ConnectTimeout bounds discovery plus session establishment.
	ConnectTimeout time.Duration

	// ReadTimeout and ShutdownTimeout are passed to the scheduler.
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
}

func (c ManagerConfig) withDefaults() ManagerConfig {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	return c
}

// Manager drives the connection lifecycle of one server:
// UNINITIALIZED -> CONNECTING -> CONNECTED -> RUNNING -> STOPPING -> STOPPED.
// A failed connect goes straight to STOPPED; there is no reconnect path, the
// pipeline runs until stopped or dead.
type Manager struct {
	config    ManagerConfig
	server    *domain.Server
	dialer    domain.Dialer
	registry  *registry.Registry
	publisher Publisher
	logger    zerolog.Logger
	metrics   *metrics.Registry

	state atomic.Int32

	mu        sync.Mutex
	session   domain.Session
	scheduler *Scheduler
	stopping  bool
	lastErr   error
	stopOnce  sync.Once
}

// NewManager creates a lifecycle manager for one server.
func NewManager(
	config ManagerConfig,
	server *domain.Server,
	dialer domain.Dialer,
	reg *registry.Registry,
	publisher Publisher,
	logger zerolog.Logger,
	metricsReg *metrics.Registry,
) *Manager {
	return &Manager{
		config:    config.withDefaults(),
		server:    server,
		dialer:    dialer,
		registry:  reg,
		publisher: publisher,
		logger: logger.With().
			Str("component", "lifecycle-manager").
			Str("server_id", server.ID).
			Logger(),
		metrics: metricsReg,
	}
}

// State returns the current lifecycle state.
func (m *Manager) State() domain.ConnectionState {
	return domain.ConnectionState(m.state.Load())
}

func (m *Manager) setState(s domain.ConnectionState) {
	m.state.Store(int32(s))
	if m.metrics != nil {
		m.metrics.UpdateConnectionState(m.server.ID, int32(s))
	}
	m.logger.Debug().Str("state", s.String()).Msg("State transition")
}

// Start connects to the server and launches the polling scheduler. It can
// be called once; a connect failure is terminal and leaves the manager in
// STOPPED. If Stop was requested while the connect was in flight the
// session is closed and the scheduler never starts.
func (m *Manager) Start(ctx context.Context) error {
	if !m.state.CompareAndSwap(int32(domain.StateUninitialized), int32(domain.StateConnecting)) {
		return fmt.Errorf("%w: state %s", domain.ErrAlreadyStarted, m.State())
	}

	m.logger.Info().
		Str("endpoint", m.server.Endpoint).
		Msg("Connecting to server")

	connectCtx, cancel := context.WithTimeout(ctx, m.config.ConnectTimeout)
	session, err := m.dialer.Connect(connectCtx, m.server)
	cancel()

	if err != nil {
		m.mu.Lock()
		m.lastErr = err
		m.mu.Unlock()
		m.setState(domain.StateStopped)
		m.logger.Error().Err(err).Msg("Connect failed, pipeline will not run")
		return err
	}

	sched := NewScheduler(SchedulerConfig{
		ReadTimeout:     m.config.ReadTimeout,
		ShutdownTimeout: m.config.ShutdownTimeout,
	}, m.server, session, m.registry, m.publisher, m.logger, m.metrics)

	// Publish the session and scheduler and reach RUNNING under one lock:
	// a concurrent Stop observes either no pipeline at all or the complete
	// one, never a half-started one it would tear down only partially.
	m.mu.Lock()
	if m.stopping {
		m.mu.Unlock()
		_ = session.Close()
		m.setState(domain.StateStopped)
		m.logger.Info().Msg("Stop requested during connect, session closed")
		return nil
	}
	if err := sched.Start(ctx); err != nil {
		m.mu.Unlock()
		_ = session.Close()
		m.setState(domain.StateStopped)
		return err
	}
	m.session = session
	m.scheduler = sched
	m.setState(domain.StateConnected)
	if m.metrics != nil {
		m.metrics.SessionsActive.Inc()
	}
	m.setState(domain.StateRunning)
	m.mu.Unlock()

	m.logger.Info().
		Int("enabled_tags", len(m.server.EnabledTags())).
		Msg("Server pipeline running")
	return nil
}

// Stop terminates the polling loops and closes the session. Idempotent and
// safe to call at any point of the lifecycle, including before Start has
// finished connecting.
func (m *Manager) Stop(ctx context.Context) {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		m.stopping = true
		sched := m.scheduler
		session := m.session
		m.mu.Unlock()

		// Nothing published yet: Start will observe the flag and clean up
		// whatever its connect attempt produced.
		if session == nil && sched == nil {
			if !m.State().Terminal() {
				m.setState(domain.StateStopped)
			}
			return
		}

		m.setState(domain.StateStopping)

		if sched != nil {
			sched.Stop()
		}
		if session != nil {
			if err := session.Close(); err != nil {
				m.logger.Warn().Err(err).Msg("Session close failed")
			}
			if m.metrics != nil {
				m.metrics.SessionsActive.Dec()
			}
		}

		m.setState(domain.StateStopped)
		m.logger.Info().Msg("Server pipeline stopped")
	})
}

// Status returns a point-in-time view of the pipeline.
func (m *Manager) Status() ManagerStatus {
	status := ManagerStatus{
		ServerID:    m.server.ID,
		ServerName:  m.server.Name,
		Endpoint:    m.server.Endpoint,
		State:       m.State().String(),
		EnabledTags: len(m.server.EnabledTags()),
	}

	m.mu.Lock()
	sched := m.scheduler
	if m.lastErr != nil {
		status.LastError = m.lastErr.Error()
	}
	m.mu.Unlock()

	if sched != nil {
		status.Stats = sched.Stats()
	}
	return status
}

// ManagerStatus is the external status view of one server pipeline.
type ManagerStatus struct {
	ServerID    string        `json:"server_id"`
	ServerName  string        `json:"server_name"`
	Endpoint    string        `json:"endpoint"`
	State       string        `json:"state"`
	EnabledTags int           `json:"enabled_tags"`
	LastError   string        `json:"last_error,omitempty"`
	Stats       StatsSnapshot `json:"stats"`
}

// Gateway supervises one lifecycle manager per enabled server.
type Gateway struct {
	config    ManagerConfig
	dialer    domain.Dialer
	registry  *registry.Registry
	publisher Publisher
	logger    zerolog.Logger
	metrics   *metrics.Registry

	mu       sync.Mutex
	managers []*Manager
	started  bool
}

// NewGateway creates the supervisor. publisher and metricsReg may be nil.
func NewGateway(
	config ManagerConfig,
	dialer domain.Dialer,
	reg *registry.Registry,
	publisher Publisher,
	logger zerolog.Logger,
	metricsReg *metrics.Registry,
) *Gateway {
	return &Gateway{
		config:    config,
		dialer:    dialer,
		registry:  reg,
		publisher: publisher,
		logger:    logger.With().Str("component", "gateway").Logger(),
		metrics:   metricsReg,
	}
}

// Start creates and starts a manager for every enabled server. With no
// enabled server the gateway starts empty and a later Stop is a quiet
// no-op. A single server's connect failure does not abort the others.
func (g *Gateway) Start(ctx context.Context, servers []*domain.Server) error {
	g.mu.Lock()
	if g.started {
		g.mu.Unlock()
		return domain.ErrAlreadyStarted
	}
	g.started = true
	g.mu.Unlock()

	enabled := make([]*domain.Server, 0, len(servers))
	for _, s := range servers {
		if s != nil && s.Enabled {
			enabled = append(enabled, s)
		}
	}

	if len(enabled) == 0 {
		g.logger.Warn().Msg("No enabled server configured, gateway is idle")
		return nil
	}

	g.logger.Info().Int("servers", len(enabled)).Msg("Starting server pipelines")

	managers := make([]*Manager, 0, len(enabled))
	for _, server := range enabled {
		m := NewManager(g.config, server, g.dialer, g.registry, g.publisher, g.logger, g.metrics)
		managers = append(managers, m)
	}

	g.mu.Lock()
	g.managers = managers
	g.mu.Unlock()

	var wg sync.WaitGroup
	for _, m := range managers {
		wg.Add(1)
		go func(m *Manager) {
			defer wg.Done()
			if err := m.Start(ctx); err != nil {
				g.logger.Error().
					Err(err).
					Str("server_id", m.server.ID).
					Msg("Server pipeline failed to start")
			}
		}(m)
	}
	wg.Wait()

	return nil
}

// Stop stops all pipelines concurrently and waits for them. Idempotent.
func (g *Gateway) Stop(ctx context.Context) {
	g.mu.Lock()
	managers := g.managers
	g.mu.Unlock()

	if len(managers) == 0 {
		return
	}

	g.logger.Info().Int("servers", len(managers)).Msg("Stopping server pipelines")

	var wg sync.WaitGroup
	for _, m := range managers {
		wg.Add(1)
		go func(m *Manager) {
			defer wg.Done()
			m.Stop(ctx)
		}(m)
	}
	wg.Wait()

	g.logger.Info().Msg("Gateway stopped")
}

// Status returns the status of every managed pipeline in config order.
func (g *Gateway) Status() []ManagerStatus {
	g.mu.Lock()
	managers := g.managers
	g.mu.Unlock()

	out := make([]ManagerStatus, 0, len(managers))
	for _, m := range managers {
		out = append(out, m.Status())
	}
	return out
}

// Running reports whether at least one pipeline is in RUNNING state.
func (g *Gateway) Running() bool {
	g.mu.Lock()
	managers := g.managers
	g.mu.Unlock()

	for _, m := range managers {
		if m.State() == domain.StateRunning {
			return true
		}
	}
	return false
}
