package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Store is the durable state of bookings, room inventory and wallets.
// Every state transition runs inside InTx; the read methods see committed data only.
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error

	GetBooking(ctx context.Context, id int64) (Booking, error)
	GetBookingByReference(ctx context.Context, ref string) (Booking, error)
	ListBookings(ctx context.Context, f BookingFilter) ([]Booking, error)
	BookingStats(ctx context.Context) (BookingStats, error)
	// CountOverlapping counts non-cancelled bookings of the hotel whose stay
	// intersects [checkIn, checkOut], both ends inclusive.
	CountOverlapping(ctx context.Context, hotelID int64, checkIn, checkOut time.Time) (int, error)

	// Sweep candidates; the precondition is re-checked under lock.
	OverduePendingIDs(ctx context.Context, today time.Time) ([]int64, error)
	FinishedConfirmedIDs(ctx context.Context, today time.Time) ([]int64, error)

	FindWallet(ctx context.Context, owner WalletOwner) (Wallet, error)
	ListWalletTransactions(ctx context.Context, walletID int64, limit int) ([]WalletTransaction, error)
}

// Tx is one unit of work. Booking and wallet reads through Tx take row locks that
// are held until the transaction ends.
type Tx interface {
	LockBooking(ctx context.Context, id int64) (Booking, error)
	InsertBooking(ctx context.Context, b *Booking) error
	UpdateBooking(ctx context.Context, b *Booking) error
	DeleteBooking(ctx context.Context, id int64) error

	// TryReserve takes one unit of the room type. It returns false without
	// mutating anything when the type is sold out, and true when the type has
	// no inventory row at all.
	TryReserve(ctx context.Context, hotelID int64, roomType string) (bool, error)
	// Release returns one unit; a no-op for unmanaged room types.
	Release(ctx context.Context, hotelID int64, roomType string) error

	GetOrCreateWallet(ctx context.Context, owner WalletOwner) (Wallet, error)
	// LockWallets locks the given wallets in ascending id order.
	LockWallets(ctx context.Context, ids ...int64) (map[int64]Wallet, error)
	SetWalletBalance(ctx context.Context, walletID int64, balance decimal.Decimal) error
	AppendTransaction(ctx context.Context, t *WalletTransaction) error
}

type HotelDirectory interface {
	GetHotel(ctx context.Context, id int64) (Hotel, error)
}

type GuestDirectory interface {
	GetUser(ctx context.Context, id int64) (Guest, error)
}

type HostDirectory interface {
	GetHost(ctx context.Context, id int64) (Host, error)
}

type Directory interface {
	HotelDirectory
	GuestDirectory
	HostDirectory
}

// Notifier delivers one message. Implementations may block on the network.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Locker grants a lease on key for ttl; false means someone else holds it.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)
}
