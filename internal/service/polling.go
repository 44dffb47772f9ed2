// Package service contains the per-server polling scheduler and the
// connection lifecycle management on top of it.
package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/savushkin-dev/scada-gateway/internal/adapter/opcua"
	"github.com/savushkin-dev/scada-gateway/internal/domain"
	"github.com/savushkin-dev/scada-gateway/internal/metrics"
	"github.com/savushkin-dev/scada-gateway/internal/registry"
)

// Publisher is the optional egress for sampled values. A nil publisher
// disables egress entirely.
type Publisher interface {
	Publish(ctx context.Context, tv *domain.TagValue) error
}

// SchedulerConfig holds configuration for one polling scheduler.
type SchedulerConfig struct {
	// ReadTimeout bounds a single protocol read.
	ReadTimeout time.Duration

	// ShutdownTimeout bounds how long Stop waits for the tag loops.
	ShutdownTimeout time.Duration
}

func (c SchedulerConfig) withDefaults() SchedulerConfig {
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 5 * time.Second
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = 5 * time.Second
	}
	return c
}

// SchedulerStats tracks read counters across all tag loops of one server.
type SchedulerStats struct {
	ReadsTotal  atomic.Uint64
	ReadErrors  atomic.Uint64
	BadQuality  atomic.Uint64
	Published   atomic.Uint64
	PublishErrs atomic.Uint64
}

// StatsSnapshot is a point-in-time copy of the scheduler counters.
type StatsSnapshot struct {
	ReadsTotal  uint64 `json:"reads_total"`
	ReadErrors  uint64 `json:"read_errors"`
	BadQuality  uint64 `json:"bad_quality"`
	Published   uint64 `json:"published"`
	PublishErrs uint64 `json:"publish_errors"`
}

// Scheduler runs one independent read loop per enabled tag of a single
// server. All loops share one session; loops never block each other, a
// slow or failing tag only delays itself.
type Scheduler struct {
	config    SchedulerConfig
	server    *domain.Server
	session   domain.Session
	registry  *registry.Registry
	publisher Publisher
	logger    zerolog.Logger
	metrics   *metrics.Registry

	started atomic.Bool
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	stats   SchedulerStats
}

// NewScheduler creates a polling scheduler for one server session.
// publisher and metricsReg may be nil.
func NewScheduler(
	config SchedulerConfig,
	server *domain.Server,
	session domain.Session,
	reg *registry.Registry,
	publisher Publisher,
	logger zerolog.Logger,
	metricsReg *metrics.Registry,
) *Scheduler {
	return &Scheduler{
		config:    config.withDefaults(),
		server:    server,
		session:   session,
		registry:  reg,
		publisher: publisher,
		logger: logger.With().
			Str("component", "polling-scheduler").
			Str("server_id", server.ID).
			Logger(),
		metrics: metricsReg,
	}
}

// Start launches one goroutine per enabled tag. Starting with no enabled
// tags is valid: the scheduler is running but samples nothing.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.started.CompareAndSwap(false, true) {
		return domain.ErrAlreadyStarted
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	tags := s.server.EnabledTags()
	if len(tags) == 0 {
		s.logger.Warn().Msg("No enabled tags, nothing to poll")
		return nil
	}

	s.logger.Info().Int("tags", len(tags)).Msg("Starting tag poll loops")

	for _, tag := range tags {
		s.wg.Add(1)
		go s.tagLoop(tag)
	}
	return nil
}

// Stop terminates all tag loops and waits for them, bounded by the
// shutdown timeout. Idempotent.
func (s *Scheduler) Stop() {
	if !s.started.CompareAndSwap(true, false) {
		return
	}
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info().Msg("All tag loops stopped")
	case <-time.After(s.config.ShutdownTimeout):
		s.logger.Warn().
			Dur("timeout", s.config.ShutdownTimeout).
			Msg("Timeout waiting for tag loops to stop")
	}
}

// Running reports whether the scheduler has been started and not stopped.
func (s *Scheduler) Running() bool {
	return s.started.Load()
}

// Stats returns a snapshot of the read counters.
func (s *Scheduler) Stats() StatsSnapshot {
	return StatsSnapshot{
		ReadsTotal:  s.stats.ReadsTotal.Load(),
		ReadErrors:  s.stats.ReadErrors.Load(),
		BadQuality:  s.stats.BadQuality.Load(),
		Published:   s.stats.Published.Load(),
		PublishErrs: s.stats.PublishErrs.Load(),
	}
}

// tagLoop is the read cycle for one tag: an immediate first read, then one
// read per tick at the tag's own interval.
func (s *Scheduler) tagLoop(tag *domain.Tag) {
	defer s.wg.Done()

	s.logger.Debug().
		Str("node_id", tag.NodeID).
		Dur("interval", tag.PollInterval).
		Msg("Starting tag loop")

	ticker := time.NewTicker(tag.PollInterval)
	defer ticker.Stop()

	s.readTag(tag)

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.readTag(tag)
		}
	}
}

// readTag performs one poll cycle for one tag. Transport failures publish
// nothing: the registry keeps the last successful value. A completed read
// with a bad status or a null value is recorded with BAD quality.
func (s *Scheduler) readTag(tag *domain.Tag) {
	s.stats.ReadsTotal.Add(1)
	start := time.Now()

	readCtx, cancel := context.WithTimeout(s.ctx, s.config.ReadTimeout)
	sample, err := s.session.Read(readCtx, tag.NodeID)
	cancel()

	if err != nil {
		s.stats.ReadErrors.Add(1)
		if s.metrics != nil {
			s.metrics.RecordReadError(s.server.ID, tag.NodeID)
		}
		s.logger.Warn().
			Err(err).
			Str("node_id", tag.NodeID).
			Msg("Tag read failed")
		return
	}

	tv := s.buildTagValue(tag, sample)
	s.registry.Set(tv)

	if s.metrics != nil {
		s.metrics.RecordReadSuccess(s.server.ID, time.Since(start).Seconds())
		s.metrics.UpdateValuesStored(s.registry.Len())
	}

	if tv.Quality == domain.QualityBad {
		s.stats.BadQuality.Add(1)
		s.logger.Debug().
			Str("node_id", tag.NodeID).
			Msg("Read completed with bad quality")
		return
	}

	s.logger.Debug().
		Str("node_id", tag.NodeID).
		Str("value", tv.Value.String()).
		Dur("duration", time.Since(start)).
		Msg("Tag read completed")

	if s.publisher != nil {
		if err := s.publisher.Publish(s.ctx, tv); err != nil {
			s.stats.PublishErrs.Add(1)
			s.logger.Warn().
				Err(err).
				Str("node_id", tag.NodeID).
				Msg("Failed to publish tag value")
		} else {
			s.stats.Published.Add(1)
		}
	}
}

// buildTagValue converts one raw sample into an immutable snapshot.
func (s *Scheduler) buildTagValue(tag *domain.Tag, sample domain.RawSample) *domain.TagValue {
	ts := sample.SourceTimestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	if !sample.Good || sample.Value == nil {
		return domain.NewTagValue(s.server.ID, tag, domain.NoValue(), domain.QualityBad, ts)
	}
	return domain.NewTagValue(s.server.ID, tag, opcua.Normalize(sample.Value), domain.QualityGood, ts)
}
