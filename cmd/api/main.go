package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	server "staylio/internal/adapters/http_server"
	"staylio/internal/adapters/observability"
	redisad "staylio/internal/adapters/redis"
	"staylio/internal/app"
	"staylio/internal/bootstrap"
	"staylio/internal/scheduler"
	"staylio/internal/shared"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv, "staylio-api", cfg.LogLevel)

	reg := observability.InitRegistry()
	observability.Serve(reg)

	store, storeCloser, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("store init failed")
	}
	defer storeCloser.Close()

	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cache.Close()
	if err := cache.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("redis unreachable; hotel cache misses and sweep lease will fail")
	}

	notifier, notifyCloser, err := bootstrap.OpenNotifier(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("notifier init failed")
	}
	defer notifyCloser.Close()
	dispatcher := app.NewDispatcher(notifier, cfg.NotifyWorkers, cfg.NotifyQueueSize, 0)

	dir := app.NewCachedHotels(store, cache, cfg.CacheTTL)
	bookings := app.NewBookingService(store, dir, dispatcher, cfg.Now)
	bookings.SetSweepWorkers(cfg.SweepWorkers)
	queries := app.NewQueryService(store, cfg.AvailabilityLimit)

	sched, err := scheduler.New(cfg.SweepCron, cfg.Location, bookings, cache, cfg.SweepLockTTL, cfg.Now)
	if err != nil {
		log.Fatal().Err(err).Msg("scheduler init failed")
	}
	sched.Start()

	srv := server.New(cfg.HTTPTimeout)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(&server.Handlers{B: bookings, Q: queries})

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("store", cfg.StoreDriver).Str("tz", cfg.Location.String()).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	sched.Stop(shutdownCtx)
	dispatcher.Close()
}
