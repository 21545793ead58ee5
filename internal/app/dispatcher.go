package app

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"staylio/internal/adapters/observability"
	"staylio/internal/domain"
)

// Dispatcher delivers notifications after the transition that produced them has
// committed. Publish never blocks and never fails; delivery errors are logged.
type Dispatcher struct {
	n       domain.Notifier
	queue   chan domain.Notification
	rl      *rate.Limiter
	timeout time.Duration

	wg       sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
	stopOnce sync.Once
}

// NewDispatcher starts workers goroutines. rps <= 0 disables rate limiting.
func NewDispatcher(n domain.Notifier, workers, queueSize, rps int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 256
	}
	lim := rate.NewLimiter(rate.Inf, 0)
	if rps > 0 {
		lim = rate.NewLimiter(rate.Limit(rps), rps)
	}
	d := &Dispatcher{
		n:       n,
		queue:   make(chan domain.Notification, queueSize),
		rl:      lim,
		timeout: 10 * time.Second,
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

func (d *Dispatcher) Publish(ns ...domain.Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, n := range ns {
		if n.To == "" {
			continue
		}
		if d.closed {
			observability.ObserveNotification(string(n.Kind), "dropped")
			continue
		}
		select {
		case d.queue <- n:
		default:
			observability.ObserveNotification(string(n.Kind), "dropped")
			log.Warn().Str("kind", string(n.Kind)).Msg("notification queue full, dropping")
		}
	}
}

// Close stops accepting notifications and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.stopOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
	})
	d.wg.Wait()
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for n := range d.queue {
		d.deliver(n)
	}
}

func (d *Dispatcher) deliver(n domain.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := d.rl.Wait(ctx); err != nil {
		observability.ObserveNotification(string(n.Kind), observability.LabelErr(err))
		log.Warn().Err(err).Str("kind", string(n.Kind)).Msg("notification rate wait failed")
		return
	}
	if err := d.n.Notify(ctx, n); err != nil {
		observability.ObserveNotification(string(n.Kind), observability.LabelErr(err))
		log.Warn().Err(err).Str("kind", string(n.Kind)).Str("to", n.To).Msg("notification failed")
		return
	}
	observability.ObserveNotification(string(n.Kind), "ok")
}

// LogNotifier only logs; used when no transport is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, n domain.Notification) error {
	log.Info().Str("kind", string(n.Kind)).Str("to", n.To).Interface("params", n.Params).Msg("notification")
	return nil
}
