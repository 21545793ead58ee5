package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	StatusPending   BookingStatus = "PENDING"
	StatusConfirmed BookingStatus = "CONFIRMED"
	StatusCancelled BookingStatus = "CANCELLED"
	StatusCompleted BookingStatus = "COMPLETED"
)

func (s BookingStatus) Terminal() bool { return s == StatusCancelled || s == StatusCompleted }

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// ParseBookingStatus accepts any letter case.
func ParseBookingStatus(v string) (BookingStatus, error) {
	s := BookingStatus(strings.ToUpper(strings.TrimSpace(v)))
	if !s.Valid() {
		return "", Invalidf("unknown booking status %q", v)
	}
	return s, nil
}

type PaymentStatus string

const (
	PaymentUnset   PaymentStatus = ""
	PaymentSuccess PaymentStatus = "SUCCESS"
)

// ManualMarker inside a gateway reference designates a pay-at-hotel payment.
const ManualMarker = "MANUAL"

// TaxRate is applied on top of the room subtotal.
var TaxRate = decimal.RequireFromString("0.10")

type Booking struct {
	ID               int64           `json:"id"`
	Reference        string          `json:"booking_reference"`
	UserID           *int64          `json:"user_id,omitempty"`
	HotelID          int64           `json:"hotel_id"`
	GuestName        string          `json:"guest_name"`
	GuestEmail       string          `json:"guest_email"`
	GuestPhone       string          `json:"guest_phone,omitempty"`
	CheckIn          time.Time       `json:"check_in"`
	CheckOut         time.Time       `json:"check_out"`
	Guests           int             `json:"guests"`
	Rooms            int             `json:"rooms"`
	RoomType         string          `json:"room_type,omitempty"`
	PricePerNight    decimal.Decimal `json:"price_per_night"`
	TotalNights      int             `json:"total_nights"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	SpecialRequests  string          `json:"special_requests,omitempty"`
	PaymentMethod    string          `json:"payment_method,omitempty"`
	PaymentStatus    PaymentStatus   `json:"payment_status,omitempty"`
	PaymentRef       string          `json:"payment_ref,omitempty"`
	ManualSettlement bool            `json:"manual_settlement"`
	Status           BookingStatus   `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (b Booking) Paid() bool { return b.PaymentStatus == PaymentSuccess }

// SettledOnline reports whether the booking's money sits in the platform wallet.
func (b Booking) SettledOnline() bool { return b.Paid() && !b.ManualSettlement }

// PaymentReport is a gateway or host signal about a booking's payment.
type PaymentReport struct {
	Success bool
	Ref     string
	Manual  bool
}

// ParsePaymentReport reads the inbound wire form. SUCCESS and PAID count as success;
// a reference carrying ManualMarker, or no reference at all, is a manual settlement.
func ParsePaymentReport(status, ref string) PaymentReport {
	st := strings.ToUpper(strings.TrimSpace(status))
	ref = strings.TrimSpace(ref)
	return PaymentReport{
		Success: st == "SUCCESS" || st == "PAID",
		Ref:     ref,
		Manual:  ref == "" || strings.Contains(ref, ManualMarker),
	}
}

// BookingRequest is what a caller may supply on creation. Non-positive price,
// total and nights are derived.
type BookingRequest struct {
	UserID          *int64
	HotelID         int64
	GuestName       string
	GuestEmail      string
	GuestPhone      string
	CheckIn         time.Time
	CheckOut        time.Time
	Guests          int
	Rooms           int
	RoomType        string
	PricePerNight   decimal.Decimal
	TotalNights     int
	TotalAmount     decimal.Decimal
	SpecialRequests string
	PaymentMethod   string
	Payment         *PaymentReport
}

// BookingPatch holds the fields a guest may edit after creation.
type BookingPatch struct {
	GuestName       *string
	GuestEmail      *string
	GuestPhone      *string
	Guests          *int
	SpecialRequests *string
}

type BookingFilter struct {
	UserID  *int64
	HotelID *int64
	HostID  *int64
	Status  *BookingStatus
	Limit   int
}

type BookingStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Confirmed int `json:"confirmed"`
	Cancelled int `json:"cancelled"`
	Completed int `json:"completed"`
}

// CancelOutcome is what a cancellation reports back besides the booking itself.
type CancelOutcome struct {
	Booking      Booking
	RefundStatus string
	Refunded     bool
}

const (
	RefundFull         = "Full Refund Initiated (Standard Policy: >24h notice)"
	RefundCredited     = " - Amount Credited to Wallet"
	RefundFailedPrefix = " - Refund Failed: "
)

// DateOf drops the time of day, keeping t's calendar date.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween counts calendar days from a to b; negative when b is earlier.
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}

// Subtotal × (1 + TaxRate), rounded to cents.
func TotalWithTax(price decimal.Decimal, nights, rooms int) decimal.Decimal {
	sub := price.Mul(decimal.NewFromInt(int64(nights))).Mul(decimal.NewFromInt(int64(rooms)))
	return sub.Add(sub.Mul(TaxRate)).Round(2)
}
