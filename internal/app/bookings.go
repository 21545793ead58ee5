package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"staylio/internal/adapters/observability"
	"staylio/internal/domain"
)

// Clock returns the current time in the service's business time zone.
type Clock func() time.Time

// Publisher takes notifications produced by committed transitions.
type Publisher interface {
	Publish(ns ...domain.Notification)
}

// BookingService owns booking and payment status. It is the only writer of both.
type BookingService struct {
	store  domain.Store
	dir    domain.Directory
	notify Publisher
	now    Clock

	workers int
}

func NewBookingService(s domain.Store, dir domain.Directory, p Publisher, now Clock) *BookingService {
	if now == nil {
		now = time.Now
	}
	return &BookingService{store: s, dir: dir, notify: p, now: now}
}

func (s *BookingService) today() time.Time { return domain.DateOf(s.now()) }

func (s *BookingService) Get(ctx context.Context, id int64) (domain.Booking, error) {
	return s.store.GetBooking(ctx, id)
}

func (s *BookingService) GetByReference(ctx context.Context, ref string) (domain.Booking, error) {
	return s.store.GetBookingByReference(ctx, ref)
}

func (s *BookingService) List(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	return s.store.ListBookings(ctx, f)
}

// Create validates and prices the request, takes one room unit and stores the
// booking as PENDING. An online payment reported with the request is applied
// in the same transaction and confirms the booking.
func (s *BookingService) Create(ctx context.Context, req domain.BookingRequest) (domain.Booking, error) {
	hotel, err := s.dir.GetHotel(ctx, req.HotelID)
	if err != nil {
		return domain.Booking{}, err
	}

	b := domain.Booking{
		UserID:          req.UserID,
		HotelID:         req.HotelID,
		GuestName:       strings.TrimSpace(req.GuestName),
		GuestEmail:      strings.TrimSpace(req.GuestEmail),
		GuestPhone:      strings.TrimSpace(req.GuestPhone),
		CheckIn:         domain.DateOf(req.CheckIn),
		CheckOut:        domain.DateOf(req.CheckOut),
		Guests:          req.Guests,
		Rooms:           req.Rooms,
		RoomType:        strings.TrimSpace(req.RoomType),
		PricePerNight:   req.PricePerNight,
		TotalNights:     req.TotalNights,
		TotalAmount:     req.TotalAmount,
		SpecialRequests: req.SpecialRequests,
		PaymentMethod:   req.PaymentMethod,
		Status:          domain.StatusPending,
	}

	if req.UserID != nil {
		g, err := s.dir.GetUser(ctx, *req.UserID)
		if err != nil {
			return domain.Booking{}, err
		}
		if !g.EmailVerified {
			return domain.Booking{}, domain.Forbiddenf("email address of user %d is not verified", g.ID)
		}
		if b.GuestName == "" {
			b.GuestName = g.Name
		}
		if b.GuestEmail == "" {
			b.GuestEmail = g.Email
		}
	}

	if b.CheckIn.After(b.CheckOut) {
		return domain.Booking{}, domain.Invalidf("check-in date must be before check-out date")
	}
	if b.CheckIn.Before(s.today()) {
		return domain.Booking{}, domain.Invalidf("check-in date cannot be in the past")
	}
	if b.Rooms <= 0 {
		b.Rooms = 1
	}
	if b.Guests <= 0 {
		b.Guests = 1
	}
	if b.TotalNights <= 0 {
		b.TotalNights = domain.DaysBetween(b.CheckIn, b.CheckOut)
	}
	if !b.PricePerNight.IsPositive() {
		b.PricePerNight = hotel.PricePerNight
	}
	if !b.TotalAmount.IsPositive() {
		b.TotalAmount = domain.TotalWithTax(b.PricePerNight, b.TotalNights, b.Rooms)
	}
	b.Reference = newReference()

	err = s.store.InTx(ctx, func(tx domain.Tx) error {
		if b.RoomType != "" {
			ok, err := tx.TryReserve(ctx, b.HotelID, b.RoomType)
			if err != nil {
				return err
			}
			if !ok {
				return domain.Capacityf("room type %q is no longer available", b.RoomType)
			}
		}
		if err := tx.InsertBooking(ctx, &b); err != nil {
			return err
		}
		if req.Payment == nil {
			return nil
		}
		if err := applyPayment(ctx, tx, &b, *req.Payment); err != nil {
			return err
		}
		if b.SettledOnline() {
			b.Status = domain.StatusConfirmed
		}
		return tx.UpdateBooking(ctx, &b)
	})
	if err != nil {
		observability.ObserveTransition("create", observability.LabelErr(err))
		return domain.Booking{}, err
	}
	observability.ObserveTransition("create", "ok")
	log.Info().Int64("booking_id", b.ID).Str("reference", b.Reference).Str("status", string(b.Status)).Msg("booking created")

	s.notify.Publish(domain.Notification{
		Kind: domain.NotifyBookingConfirmation,
		To:   b.GuestEmail,
		Params: map[string]string{
			"guest_name":     b.GuestName,
			"hotel_name":     hotel.Name,
			"reference":      b.Reference,
			"check_in":       b.CheckIn.Format(time.DateOnly),
			"check_out":      b.CheckOut.Format(time.DateOnly),
			"total_amount":   b.TotalAmount.StringFixed(2),
			"payment_method": b.PaymentMethod,
			"address":        hotel.Address,
			"city":           hotel.City,
			"country":        hotel.Country,
		},
	})
	return b, nil
}

// ApplyPayment records a payment report. The first successful online report
// credits the platform wallet; any later report is a no-op. A report for a
// cancelled or completed booking is still recorded so the money stays on the
// ledger, and the status is left alone.
func (s *BookingService) ApplyPayment(ctx context.Context, id int64, rep domain.PaymentReport) (domain.Booking, error) {
	var b domain.Booking
	err := s.store.InTx(ctx, func(tx domain.Tx) error {
		var err error
		b, err = tx.LockBooking(ctx, id)
		if err != nil {
			return err
		}
		if b.Paid() {
			return nil
		}
		if err := applyPayment(ctx, tx, &b, rep); err != nil {
			return err
		}
		if b.Status.Terminal() && b.Paid() {
			log.Warn().Int64("booking_id", b.ID).Str("status", string(b.Status)).Str("payment_ref", b.PaymentRef).
				Bool("manual", b.ManualSettlement).Msg("payment arrived for a closed booking, needs reconciliation")
		}
		return tx.UpdateBooking(ctx, &b)
	})
	observability.ObserveTransition("payment", observability.LabelErr(err))
	if err != nil {
		return domain.Booking{}, err
	}
	return b, nil
}

// applyPayment mutates b in place; the caller persists it.
func applyPayment(ctx context.Context, tx domain.Tx, b *domain.Booking, rep domain.PaymentReport) error {
	if b.Paid() {
		return nil
	}
	if rep.Ref != "" {
		b.PaymentRef = rep.Ref
	}
	if !rep.Success {
		return nil
	}
	b.PaymentStatus = domain.PaymentSuccess
	b.ManualSettlement = rep.Manual
	if rep.Manual || !b.TotalAmount.IsPositive() {
		return nil
	}
	_, err := creditPlatform(ctx, tx, b.UserID, b.TotalAmount, b.ID)
	return err
}

// Confirm is the host's acceptance of a paid, pending booking.
func (s *BookingService) Confirm(ctx context.Context, id int64) (domain.Booking, error) {
	var b domain.Booking
	err := s.store.InTx(ctx, func(tx domain.Tx) error {
		var err error
		b, err = tx.LockBooking(ctx, id)
		if err != nil {
			return err
		}
		if b.Status != domain.StatusPending {
			return domain.IllegalStatef("only PENDING bookings can be confirmed, booking is %s", b.Status)
		}
		if !b.Paid() {
			return domain.IllegalStatef("cannot confirm booking without successful payment")
		}
		b.Status = domain.StatusConfirmed
		return tx.UpdateBooking(ctx, &b)
	})
	observability.ObserveTransition("confirm", observability.LabelErr(err))
	if err != nil {
		return domain.Booking{}, err
	}
	return b, nil
}

// Cancel applies the standard policy: cancellation is only possible strictly
// before check-in, and a day or more of notice refunds a successful payment in
// full. A refund the ledger refuses is annotated and the booking still cancels.
func (s *BookingService) Cancel(ctx context.Context, id int64) (domain.CancelOutcome, error) {
	var out domain.CancelOutcome
	var already bool
	err := s.store.InTx(ctx, func(tx domain.Tx) error {
		b, err := tx.LockBooking(ctx, id)
		if err != nil {
			return err
		}
		switch b.Status {
		case domain.StatusCancelled:
			already = true
			out.Booking = b
			return nil
		case domain.StatusCompleted:
			return domain.IllegalStatef("cannot cancel a completed booking")
		}
		days := domain.DaysBetween(s.today(), b.CheckIn)
		if days <= 0 {
			return domain.IllegalStatef("cannot cancel booking on or after check-in date")
		}
		if b.RoomType != "" {
			if err := tx.Release(ctx, b.HotelID, b.RoomType); err != nil {
				return err
			}
		}

		// at least one day of notice remains here, which is the full-refund window
		out.RefundStatus = domain.RefundFull
		if b.Paid() && b.TotalAmount.IsPositive() {
			_, err := refundToGuest(ctx, tx, b.UserID, b.TotalAmount, b.ID)
			switch {
			case err == nil:
				out.Refunded = true
				out.RefundStatus += domain.RefundCredited
			case domain.IsKind(err):
				out.RefundStatus += domain.RefundFailedPrefix + domain.Reason(err)
				observability.ObserveTransition("refund", observability.LabelErr(err))
				log.Warn().Err(err).Int64("booking_id", b.ID).Bool("manual", b.ManualSettlement).Msg("refund failed, booking cancelled unrefunded")
			default:
				// a storage failure may have left the movement half written
				return err
			}
		}

		b.Status = domain.StatusCancelled
		if err := tx.UpdateBooking(ctx, &b); err != nil {
			return err
		}
		out.Booking = b
		return nil
	})
	observability.ObserveTransition("cancel", observability.LabelErr(err))
	if err != nil {
		return domain.CancelOutcome{}, err
	}
	if already {
		return out, nil
	}
	log.Info().Int64("booking_id", out.Booking.ID).Str("refund_status", out.RefundStatus).Msg("booking cancelled")
	s.notify.Publish(s.cancellationNotices(ctx, out)...)
	return out, nil
}

// cancellationNotices runs after commit; directory failures only cost a notice.
func (s *BookingService) cancellationNotices(ctx context.Context, out domain.CancelOutcome) []domain.Notification {
	b := out.Booking
	hotelName := "StayLio Property"
	var hostID *int64
	if h, err := s.dir.GetHotel(ctx, b.HotelID); err == nil {
		hotelName = h.Name
		hostID = h.HostID
	} else {
		log.Warn().Err(err).Int64("hotel_id", b.HotelID).Msg("hotel lookup for cancellation notice failed")
	}
	params := map[string]string{
		"guest_name":    b.GuestName,
		"hotel_name":    hotelName,
		"reference":     b.Reference,
		"check_in":      b.CheckIn.Format(time.DateOnly),
		"check_out":     b.CheckOut.Format(time.DateOnly),
		"total_amount":  b.TotalAmount.StringFixed(2),
		"refund_status": out.RefundStatus,
	}
	ns := []domain.Notification{{Kind: domain.NotifyCancelledGuest, To: b.GuestEmail, Params: params}}
	if hostID == nil {
		return ns
	}
	host, err := s.dir.GetHost(ctx, *hostID)
	if err != nil {
		log.Warn().Err(err).Int64("host_id", *hostID).Msg("host lookup for cancellation notice failed")
		return ns
	}
	hp := make(map[string]string, len(params)+1)
	for k, v := range params {
		hp[k] = v
	}
	hp["host_name"] = host.OwnerName
	return append(ns, domain.Notification{Kind: domain.NotifyCancelledHost, To: host.Email, Params: hp})
}

// Update edits guest-facing details. Status, payment and the stay window are
// owned by the transitions above and cannot be patched.
func (s *BookingService) Update(ctx context.Context, id int64, p domain.BookingPatch) (domain.Booking, error) {
	var b domain.Booking
	err := s.store.InTx(ctx, func(tx domain.Tx) error {
		var err error
		b, err = tx.LockBooking(ctx, id)
		if err != nil {
			return err
		}
		if b.Status.Terminal() {
			return domain.IllegalStatef("a %s booking cannot be edited", strings.ToLower(string(b.Status)))
		}
		if p.GuestName != nil {
			b.GuestName = strings.TrimSpace(*p.GuestName)
		}
		if p.GuestEmail != nil {
			b.GuestEmail = strings.TrimSpace(*p.GuestEmail)
		}
		if p.GuestPhone != nil {
			b.GuestPhone = strings.TrimSpace(*p.GuestPhone)
		}
		if p.Guests != nil {
			if *p.Guests <= 0 {
				return domain.Invalidf("guests must be positive")
			}
			b.Guests = *p.Guests
		}
		if p.SpecialRequests != nil {
			b.SpecialRequests = *p.SpecialRequests
		}
		return tx.UpdateBooking(ctx, &b)
	})
	if err != nil {
		return domain.Booking{}, err
	}
	return b, nil
}

// Delete removes the booking row. An active booking gives its room unit back;
// ledger entries referencing it are kept.
func (s *BookingService) Delete(ctx context.Context, id int64) error {
	return s.store.InTx(ctx, func(tx domain.Tx) error {
		b, err := tx.LockBooking(ctx, id)
		if err != nil {
			return err
		}
		if !b.Status.Terminal() && b.RoomType != "" {
			if err := tx.Release(ctx, b.HotelID, b.RoomType); err != nil {
				return err
			}
		}
		return tx.DeleteBooking(ctx, id)
	})
}

// newReference returns STY followed by 12 upper-case hex characters.
func newReference() string {
	id := uuid.New()
	return "STY" + strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:12])
}
