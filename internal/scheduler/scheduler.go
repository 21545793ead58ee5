// Package scheduler runs the daily booking sweep on a cron schedule. Replicas
// race for a per-day Redis lease so the sweep runs once per business day.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"staylio/internal/app"
	"staylio/internal/domain"
)

type Sweeper interface {
	RunDailySweep(ctx context.Context) ([]app.SweepReport, error)
}

type Scheduler struct {
	cron     *cron.Cron
	sweeper  Sweeper
	locker   domain.Locker
	lockTTL  time.Duration
	now      func() time.Time
	runLimit time.Duration
}

// New parses spec in loc. A nil locker runs the sweep on every tick.
func New(spec string, loc *time.Location, s Sweeper, l domain.Locker, lockTTL time.Duration, now func() time.Time) (*Scheduler, error) {
	if loc == nil {
		loc = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	sc := &Scheduler{
		cron:     cron.New(cron.WithLocation(loc), cron.WithChain(cron.Recover(cron.DefaultLogger))),
		sweeper:  s,
		locker:   l,
		lockTTL:  lockTTL,
		now:      func() time.Time { return now().In(loc) },
		runLimit: time.Hour,
	}
	if _, err := sc.cron.AddFunc(spec, func() { sc.Tick(context.Background()) }); err != nil {
		return nil, fmt.Errorf("sweep schedule %q: %w", spec, err)
	}
	return sc, nil
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for a running sweep to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		log.Warn().Msg("scheduler stop timed out with a sweep in flight")
	}
}

// LeaseKey is the per-day lock name.
func LeaseKey(day time.Time) string { return "sweep:" + day.Format(time.DateOnly) }

// Tick runs one scheduled sweep if this replica wins the day's lease. It
// reports whether the sweep ran.
func (s *Scheduler) Tick(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, s.runLimit)
	defer cancel()

	key := LeaseKey(s.now())
	if s.locker != nil {
		ok, err := s.locker.Acquire(ctx, key, s.lockTTL)
		if err != nil {
			// no lease store means no coordination; skip rather than double-run
			log.Error().Err(err).Str("lease", key).Msg("sweep lease failed, skipping run")
			return false
		}
		if !ok {
			log.Info().Str("lease", key).Msg("sweep already taken by another replica")
			return false
		}
	}

	reports, err := s.sweeper.RunDailySweep(ctx)
	if err != nil {
		log.Error().Err(err).Str("lease", key).Msg("daily sweep failed")
		return true
	}
	for _, r := range reports {
		log.Info().Str("sweep", r.Sweep).Int("applied", r.Applied).Int("failed", r.Failed).Msg("daily sweep step done")
	}
	return true
}
