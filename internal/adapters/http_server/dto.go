package httpserver

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"staylio/internal/domain"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type createBookingReq struct {
	UserID          *int64          `json:"user_id" validate:"omitempty,gt=0"`
	HotelID         int64           `json:"hotel_id" validate:"required,gt=0"`
	GuestName       string          `json:"guest_name" validate:"max=255"`
	GuestEmail      string          `json:"guest_email" validate:"omitempty,email,max=255"`
	GuestPhone      string          `json:"guest_phone" validate:"max=64"`
	CheckIn         string          `json:"check_in" validate:"required,datetime=2006-01-02"`
	CheckOut        string          `json:"check_out" validate:"required,datetime=2006-01-02"`
	Guests          int             `json:"guests" validate:"gte=0,lte=100"`
	Rooms           int             `json:"rooms" validate:"gte=0,lte=100"`
	RoomType        string          `json:"room_type" validate:"max=64"`
	PricePerNight   decimal.Decimal `json:"price_per_night"`
	TotalNights     int             `json:"total_nights" validate:"gte=0"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	SpecialRequests string          `json:"special_requests" validate:"max=2000"`
	PaymentMethod   string          `json:"payment_method" validate:"max=64"`
	PaymentStatus   string          `json:"payment_status" validate:"max=32"`
	PaymentRef      string          `json:"payment_ref" validate:"max=255"`
}

func (r createBookingReq) toDomain() domain.BookingRequest {
	// dates were checked by the validator
	in, _ := time.Parse(time.DateOnly, r.CheckIn)
	out, _ := time.Parse(time.DateOnly, r.CheckOut)
	req := domain.BookingRequest{
		UserID:          r.UserID,
		HotelID:         r.HotelID,
		GuestName:       r.GuestName,
		GuestEmail:      r.GuestEmail,
		GuestPhone:      r.GuestPhone,
		CheckIn:         in,
		CheckOut:        out,
		Guests:          r.Guests,
		Rooms:           r.Rooms,
		RoomType:        r.RoomType,
		PricePerNight:   r.PricePerNight,
		TotalNights:     r.TotalNights,
		TotalAmount:     r.TotalAmount,
		SpecialRequests: r.SpecialRequests,
		PaymentMethod:   r.PaymentMethod,
	}
	if r.PaymentStatus != "" {
		rep := domain.ParsePaymentReport(r.PaymentStatus, r.PaymentRef)
		req.Payment = &rep
	} else if r.PaymentRef != "" {
		req.Payment = &domain.PaymentReport{Ref: r.PaymentRef}
	}
	return req
}

type updateBookingReq struct {
	GuestName       *string `json:"guest_name" validate:"omitempty,max=255"`
	GuestEmail      *string `json:"guest_email" validate:"omitempty,email,max=255"`
	GuestPhone      *string `json:"guest_phone" validate:"omitempty,max=64"`
	Guests          *int    `json:"guests" validate:"omitempty,gt=0,lte=100"`
	SpecialRequests *string `json:"special_requests" validate:"omitempty,max=2000"`
}

type paymentReq struct {
	PaymentStatus string `json:"payment_status" validate:"omitempty,max=32"`
	PaymentRef    string `json:"payment_ref" validate:"required,max=255"`
}

type bookingResp struct {
	Success          bool            `json:"success"`
	Message          string          `json:"message"`
	Booking          *domain.Booking `json:"booking,omitempty"`
	BookingReference string          `json:"booking_reference,omitempty"`
	RefundStatus     string          `json:"refund_status,omitempty"`
}

type availabilityResp struct {
	HotelID   int64  `json:"hotel_id"`
	CheckIn   string `json:"check_in"`
	CheckOut  string `json:"check_out"`
	Rooms     int    `json:"rooms"`
	Available bool   `json:"available"`
}
