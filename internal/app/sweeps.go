package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"staylio/internal/adapters/observability"
	"staylio/internal/domain"
)

// SweepReport summarizes one pass over the candidates of a sweep.
type SweepReport struct {
	Sweep   string `json:"sweep"`
	Scanned int    `json:"scanned"`
	Applied int    `json:"applied"`
	Skipped int    `json:"skipped"`
	Failed  int    `json:"failed"`
}

// errSkip marks a candidate whose precondition no longer holds under lock.
var errSkip = errors.New("precondition no longer holds")

// SetSweepWorkers bounds how many bookings a sweep processes at once.
func (s *BookingService) SetSweepWorkers(n int) {
	if n > 0 {
		s.workers = n
	}
}

// AutoCancelOverdue cancels PENDING bookings whose check-in date has passed.
// Nothing was settled for them, so no refund runs.
func (s *BookingService) AutoCancelOverdue(ctx context.Context) (SweepReport, error) {
	today := s.today()
	ids, err := s.store.OverduePendingIDs(ctx, today)
	if err != nil {
		return SweepReport{Sweep: "auto_cancel"}, err
	}
	return s.sweep(ctx, "auto_cancel", ids, func(tx domain.Tx, id int64) error {
		b, err := lockCandidate(ctx, tx, id)
		if err != nil {
			return err
		}
		if b.Status != domain.StatusPending || !b.CheckIn.Before(today) {
			return errSkip
		}
		b.Status = domain.StatusCancelled
		if err := tx.UpdateBooking(ctx, &b); err != nil {
			return err
		}
		log.Info().Int64("booking_id", id).Msg("auto-cancelled overdue pending booking")
		return nil
	}), nil
}

// AutoCompleteFinished completes CONFIRMED bookings whose check-out date has
// passed and pays the host of every paid booking out of the platform wallet.
// The completion stands even when the payout cannot be made; the failure is
// logged for reconciliation.
func (s *BookingService) AutoCompleteFinished(ctx context.Context) (SweepReport, error) {
	today := s.today()
	ids, err := s.store.FinishedConfirmedIDs(ctx, today)
	if err != nil {
		return SweepReport{Sweep: "auto_complete"}, err
	}
	return s.sweep(ctx, "auto_complete", ids, func(tx domain.Tx, id int64) error {
		b, err := lockCandidate(ctx, tx, id)
		if err != nil {
			return err
		}
		if b.Status != domain.StatusConfirmed || !b.CheckOut.Before(today) {
			return errSkip
		}
		b.Status = domain.StatusCompleted
		if err := tx.UpdateBooking(ctx, &b); err != nil {
			return err
		}
		if !b.Paid() || !b.TotalAmount.IsPositive() {
			log.Info().Int64("booking_id", id).Msg("auto-completed finished booking")
			return nil
		}
		hotel, err := s.dir.GetHotel(ctx, b.HotelID)
		if err != nil {
			log.Warn().Err(err).Int64("booking_id", id).Int64("hotel_id", b.HotelID).Msg("hotel lookup failed, booking completed unsettled")
			return nil
		}
		if hotel.HostID == nil {
			log.Warn().Int64("booking_id", id).Int64("hotel_id", b.HotelID).Msg("hotel has no host, settlement skipped")
			return nil
		}
		if _, err := settleHost(ctx, tx, *hotel.HostID, b.TotalAmount, b.ID); err != nil {
			if !domain.IsKind(err) {
				return err
			}
			log.Warn().Err(err).Int64("booking_id", id).Int64("host_id", *hotel.HostID).Msg("host settlement failed, booking completed unsettled")
			return nil
		}
		log.Info().Int64("booking_id", id).Int64("host_id", *hotel.HostID).Bool("manual", b.ManualSettlement).Msg("auto-completed booking and settled host")
		return nil
	}), nil
}

// lockCandidate locks a sweep candidate. A booking deleted since the candidate
// query ran is skipped; any other error fails the step.
func lockCandidate(ctx context.Context, tx domain.Tx, id int64) (domain.Booking, error) {
	b, err := tx.LockBooking(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Booking{}, errSkip
	}
	return b, err
}

// sweep runs fn for every id in its own transaction. Failures are counted and
// logged; they never stop the remaining ids.
func (s *BookingService) sweep(ctx context.Context, name string, ids []int64, fn func(tx domain.Tx, id int64) error) SweepReport {
	start := time.Now()
	rep := SweepReport{Sweep: name, Scanned: len(ids)}
	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := semaphore.NewWeighted(int64(s.sweepWorkers()))

	for _, id := range ids {
		if err := sem.Acquire(ctx, 1); err != nil {
			mu.Lock()
			rep.Failed++
			mu.Unlock()
			continue
		}
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			defer sem.Release(1)

			err := s.store.InTx(ctx, func(tx domain.Tx) error { return fn(tx, id) })
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				rep.Applied++
			case errors.Is(err, errSkip):
				rep.Skipped++
			default:
				rep.Failed++
				log.Warn().Err(err).Str("sweep", name).Int64("booking_id", id).Msg("sweep step failed")
			}
		}(id)
	}
	wg.Wait()

	res := "ok"
	if rep.Failed > 0 {
		res = "partial"
	}
	observability.ObserveSweep(name, res, time.Since(start))
	log.Info().
		Str("sweep", name).
		Int("scanned", rep.Scanned).
		Int("applied", rep.Applied).
		Int("skipped", rep.Skipped).
		Int("failed", rep.Failed).
		Dur("took", time.Since(start)).
		Msg("sweep finished")
	return rep
}

func (s *BookingService) sweepWorkers() int {
	if s.workers <= 0 {
		return 4
	}
	return s.workers
}

// RunDailySweep is the scheduler entry point: overdue cancellations first, then
// completions.
func (s *BookingService) RunDailySweep(ctx context.Context) ([]SweepReport, error) {
	cancelled, err := s.AutoCancelOverdue(ctx)
	if err != nil {
		return []SweepReport{cancelled}, err
	}
	completed, err := s.AutoCompleteFinished(ctx)
	return []SweepReport{cancelled, completed}, err
}
