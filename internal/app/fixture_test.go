package app_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"staylio/internal/app"
	"staylio/internal/domain"
	"staylio/internal/storage/memory"
)

const (
	hotelID = int64(1)
	hostID  = int64(7)
	guestID = int64(3)
	deluxe  = "DELUXE"
)

var today = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

// recorder captures post-commit notifications.
type recorder struct {
	mu  sync.Mutex
	got []domain.Notification
}

func (r *recorder) Publish(ns ...domain.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, ns...)
}

func (r *recorder) kinds() []domain.NotificationKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.NotificationKind, 0, len(r.got))
	for _, n := range r.got {
		out = append(out, n.Kind)
	}
	return out
}

type fixture struct {
	store *memory.Store
	pub   *recorder
	svc   *app.BookingService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	s := memory.New()
	host := hostID
	s.PutHost(domain.Host{ID: hostID, OwnerName: "Meera", Email: "host@example.com"})
	s.PutHotel(domain.Hotel{ID: hotelID, Name: "Sea Breeze", City: "Goa", PricePerNight: dec("1000"), HostID: &host})
	s.PutUser(domain.Guest{ID: guestID, Name: "Arjun", Email: "arjun@example.com", EmailVerified: true})
	s.SetRooms(hotelID, deluxe, 2)

	pub := &recorder{}
	svc := app.NewBookingService(s, s, pub, func() time.Time { return today })
	return &fixture{store: s, pub: pub, svc: svc}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func day(offset int) time.Time { return domain.DateOf(today).AddDate(0, 0, offset) }

func ptr[T any](v T) *T { return &v }

// request is a two-night, one-room DELUXE stay starting in `in` days.
func request(in int) domain.BookingRequest {
	return domain.BookingRequest{
		UserID:        ptr(guestID),
		HotelID:       hotelID,
		CheckIn:       day(in),
		CheckOut:      day(in + 2),
		Rooms:         1,
		Guests:        2,
		RoomType:      deluxe,
		PaymentMethod: "razorpay",
	}
}

func online(ref string) *domain.PaymentReport {
	r := domain.ParsePaymentReport("SUCCESS", ref)
	return &r
}

func (f *fixture) balance(t *testing.T, owner domain.WalletOwner) decimal.Decimal {
	t.Helper()
	w, err := f.store.FindWallet(context.Background(), owner)
	if err != nil {
		return decimal.Zero
	}
	return w.Balance
}

func (f *fixture) ledgerOf(kind domain.TxType) []domain.WalletTransaction {
	var out []domain.WalletTransaction
	for _, e := range f.store.Ledger() {
		if e.Type == kind {
			out = append(out, e)
		}
	}
	return out
}

func (f *fixture) rooms(t *testing.T) int {
	t.Helper()
	n, ok := f.store.Rooms(hotelID, deluxe)
	if !ok {
		t.Fatal("DELUXE inventory row missing")
	}
	return n
}

// totalHeld sums every wallet balance.
func (f *fixture) totalHeld() decimal.Decimal {
	sum := decimal.Zero
	for _, w := range f.store.Wallets() {
		sum = sum.Add(w.Balance)
	}
	return sum
}
