// Package scheduler runs the periodic maintenance jobs: the monthly points reset and the expired
// community event sweep.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/avakara/ewaste-platform/internal/config"
)

const jobTimeout = 5 * time.Minute

type PointsResetter interface {
	MonthlyReset(ctx context.Context, now time.Time) (bool, error)
}

type EventPurger interface {
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

type Scheduler struct {
	cron   *cron.Cron
	points PointsResetter
	events EventPurger
	log    zerolog.Logger
	now    func() time.Time
}

// New registers both jobs. Specs use the six-field cron format with seconds.
func New(cfg config.SchedulerConfig, points PointsResetter, events EventPurger, log zerolog.Logger) (*Scheduler, error) {
	adapter := cronLogger{log: log}
	s := &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(time.UTC),
			cron.WithLogger(adapter),
			cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
		),
		points: points,
		events: events,
		log:    log,
		now:    time.Now,
	}
	if _, err := s.cron.AddFunc(cfg.MonthlyResetSpec, func() { s.ResetPoints(context.Background()) }); err != nil {
		return nil, fmt.Errorf("scheduler: monthly reset spec %q: %w", cfg.MonthlyResetSpec, err)
	}
	if _, err := s.cron.AddFunc(cfg.CleanupSpec, func() { s.PurgeEvents(context.Background()) }); err != nil {
		return nil, fmt.Errorf("scheduler: cleanup spec %q: %w", cfg.CleanupSpec, err)
	}
	return s, nil
}

// Start runs both jobs once so a restart never skips a due reset, then starts the cron loop.
func (s *Scheduler) Start(ctx context.Context) {
	s.ResetPoints(ctx)
	s.PurgeEvents(ctx)
	s.cron.Start()
}

// Stop waits for running jobs or ctx, whichever ends first.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

func (s *Scheduler) ResetPoints(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()
	ran, err := s.points.MonthlyReset(ctx, s.now())
	if err != nil {
		s.log.Error().Err(err).Msg("monthly points reset failed")
		return
	}
	s.log.Debug().Bool("ran", ran).Msg("monthly points reset checked")
}

func (s *Scheduler) PurgeEvents(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()
	removed, err := s.events.PurgeExpired(ctx, s.now())
	if err != nil {
		s.log.Error().Err(err).Msg("expired event sweep failed")
		return
	}
	s.log.Debug().Int64("removed", removed).Msg("expired event sweep finished")
}

type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
