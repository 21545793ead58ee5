// Command sweeper runs the daily booking sweep once and exits. It is meant for
// an external scheduler (Kubernetes CronJob, systemd timer) instead of the
// API's built-in cron.
package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"staylio/internal/adapters/observability"
	redisad "staylio/internal/adapters/redis"
	"staylio/internal/app"
	"staylio/internal/bootstrap"
	"staylio/internal/scheduler"
	"staylio/internal/shared"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv, "staylio-sweeper", cfg.LogLevel)

	store, storeCloser, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	defer storeCloser.Close()

	notifier, notifyCloser, err := bootstrap.OpenNotifier(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("notifier init failed")
	}
	defer notifyCloser.Close()
	dispatcher := app.NewDispatcher(notifier, 1, cfg.NotifyQueueSize, 0)
	defer dispatcher.Close()

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()

	bookings := app.NewBookingService(store, app.NewCachedHotels(store, cache, cfg.CacheTTL), dispatcher, cfg.Now)
	bookings.SetSweepWorkers(cfg.SweepWorkers)

	sched, err := scheduler.New(cfg.SweepCron, cfg.Location, bookings, cache, cfg.SweepLockTTL, cfg.Now)
	if err != nil {
		log.Fatal().Err(err).Msg("scheduler init failed")
	}
	if !sched.Tick(ctx) {
		log.Info().Msg("sweep not run")
		return
	}
	log.Info().Msg("sweep completed")
}
