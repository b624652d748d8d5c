package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/codecraft-dev/codecraft/internal/services"
	"github.com/codecraft-dev/codecraft/pkg/logger"
)

const (
	defaultLivenessSpec = "@every 10m"
	defaultExpirySpec   = "@every 30m"
)

// Sweeper runs the background session lifecycle jobs: the liveness sweep that
// flags stale participants and schedules empty sessions, and the expiry sweep
// that purges sessions whose grace period has elapsed.
type Sweeper struct {
	collab *services.CollabService
	cron   *cron.Cron
	now    func() time.Time
	log    *zap.Logger

	livenessSchedule string
	expirySchedule   string
}

// Option customises the Sweeper.
type Option func(*Sweeper)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(s *Sweeper) {
		if c != nil {
			s.cron = c
		}
	}
}

// WithNow overrides the clock used for logging sweep timings.
func WithNow(now func() time.Time) Option {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLivenessSchedule overrides the cron specification for the liveness sweep.
func WithLivenessSchedule(spec string) Option {
	return func(s *Sweeper) {
		if spec != "" {
			s.livenessSchedule = spec
		}
	}
}

// WithExpirySchedule overrides the cron specification for the expiry sweep.
func WithExpirySchedule(spec string) Option {
	return func(s *Sweeper) {
		if spec != "" {
			s.expirySchedule = spec
		}
	}
}

// NewSweeper constructs a Sweeper. A nil collaboration service disables both jobs.
func NewSweeper(collab *services.CollabService, opts ...Option) *Sweeper {
	sweeper := &Sweeper{
		collab:           collab,
		now:              time.Now,
		livenessSchedule: defaultLivenessSpec,
		expirySchedule:   defaultExpirySpec,
		log:              logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(sweeper)
	}

	if sweeper.cron == nil {
		sweeper.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return sweeper
}

// Start registers both sweep jobs with the scheduler and launches it.
func (s *Sweeper) Start() error {
	if s.collab == nil {
		return nil
	}

	if _, err := s.cron.AddFunc(s.livenessSchedule, func() {
		started := s.now()
		stats, err := s.collab.SweepInactive(context.Background())
		if err != nil {
			s.log.Warn("liveness sweep failed", zap.Error(err))
			return
		}
		if stats.Scheduled > 0 || stats.Healed > 0 {
			s.log.Info("liveness sweep completed",
				zap.Int("scanned", stats.Scanned),
				zap.Int("scheduled", stats.Scheduled),
				zap.Int("healed", stats.Healed),
				zap.Duration("elapsed", s.now().Sub(started)))
		}
	}); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc(s.expirySchedule, func() {
		started := s.now()
		purged, err := s.collab.PurgeExpired(context.Background())
		if err != nil {
			s.log.Warn("expiry sweep failed", zap.Error(err))
			return
		}
		if purged > 0 {
			s.log.Info("expiry sweep completed",
				zap.Int("purged", purged),
				zap.Duration("elapsed", s.now().Sub(started)))
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (s *Sweeper) Stop() context.Context {
	if s.cron == nil {
		return context.Background()
	}
	return s.cron.Stop()
}

// RunOnce executes both sweeps sequentially. Failures in one sweep do not
// prevent the other from running.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.collab == nil {
		return nil
	}

	var errs error

	if _, err := s.collab.SweepInactive(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}

	if _, err := s.collab.PurgeExpired(ctx); err != nil {
		errs = multierr.Append(errs, err)
	}

	return errs
}
