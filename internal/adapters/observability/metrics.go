package observability

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"staylio/internal/domain"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "staylio", Name: "http_requests_total", Help: "HTTP requests."},
		[]string{"route", "method", "status"},
	)
	HTTPLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "staylio", Name: "http_request_duration_seconds",
			Help:    "HTTP request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)
	ExternalRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "staylio", Name: "external_requests_total", Help: "Outbound requests."},
		[]string{"service", "endpoint", "status"},
	)
	ExternalLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "staylio", Name: "external_request_duration_seconds",
			Help:    "Outbound request duration seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "endpoint"},
	)
	CacheEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "staylio", Name: "cache_events_total", Help: "Cache hits/misses/sets/dels."},
		[]string{"cache", "event"}, // event: hit|miss|set|del
	)
	BookingTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "staylio", Name: "booking_transitions_total", Help: "Booking state machine calls by outcome."},
		[]string{"transition", "outcome"},
	)
	Settlements = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "staylio", Name: "settlements_total", Help: "Wallet movements by ledger type and outcome."},
		[]string{"type", "outcome"},
	)
	SettlementAmount = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "staylio", Name: "settlement_amount_total", Help: "Money moved by ledger type."},
		[]string{"type"},
	)
	SweepRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "staylio", Name: "sweep_runs_total", Help: "Scheduled sweeps by outcome."},
		[]string{"sweep", "outcome"},
	)
	SweepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "staylio", Name: "sweep_duration_seconds",
			Help:    "Sweep duration seconds.",
			Buckets: []float64{.1, .5, 1, 5, 15, 60, 300, 900},
		},
		[]string{"sweep"},
	)
	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "staylio", Name: "notifications_total", Help: "Notifications by kind and outcome."},
		[]string{"kind", "outcome"}, // outcome: ok|error|dropped
	)
)

// Serve exposes reg on a dedicated METRICS_ADDR listener, if one is set.
func Serve(reg *prometheus.Registry) {
	addr := os.Getenv("METRICS_ADDR")
	if addr == "" {
		return // disabled
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", MetricsHandler(reg))

	go func() {
		srv := &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		log.Info().Str("addr", addr).Msg("metrics server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		HTTPRequests, HTTPLatency, ExternalRequests, ExternalLatency, CacheEvents,
		BookingTransitions, Settlements, SettlementAmount, SweepRuns, SweepDuration, Notifications,
	)
	return reg
}

func MetricsHandler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func ObserveHTTP(route, method string, status int, dur time.Duration) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(route, method).Observe(dur.Seconds())
}

func ObserveExternal(service, endpoint string, status int, dur time.Duration) {
	ExternalRequests.WithLabelValues(service, endpoint, strconv.Itoa(status)).Inc()
	ExternalLatency.WithLabelValues(service, endpoint).Observe(dur.Seconds())
}

func ObserveCache(cache, event string) { // event: hit|miss|set|del
	CacheEvents.WithLabelValues(cache, event).Inc()
}

func ObserveTransition(transition, outcome string) {
	BookingTransitions.WithLabelValues(transition, outcome).Inc()
}

func ObserveSettlement(txType, outcome string, amount decimal.Decimal) {
	Settlements.WithLabelValues(txType, outcome).Inc()
	if outcome == "ok" {
		SettlementAmount.WithLabelValues(txType).Add(amount.InexactFloat64())
	}
}

func ObserveSweep(sweep, outcome string, dur time.Duration) {
	SweepRuns.WithLabelValues(sweep, outcome).Inc()
	SweepDuration.WithLabelValues(sweep).Observe(dur.Seconds())
}

func ObserveNotification(kind, outcome string) {
	Notifications.WithLabelValues(kind, outcome).Inc()
}

// LabelErr maps err to a bounded outcome label: "ok" for nil, the domain kind
// when there is one, "error" for everything else.
func LabelErr(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrValidation):
		return "invalid"
	case errors.Is(err, domain.ErrForbidden):
		return "forbidden"
	case errors.Is(err, domain.ErrIllegalState):
		return "illegal_state"
	case errors.Is(err, domain.ErrCapacity):
		return "capacity"
	case errors.Is(err, domain.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	}
	return "error"
}
