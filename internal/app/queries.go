package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"staylio/internal/domain"
)

const defaultAvailabilityLimit = 10

type QueryService struct {
	store domain.Store
	limit int
}

// NewQueryService: limit is the number of overlapping bookings at which a hotel
// is reported unavailable.
func NewQueryService(s domain.Store, limit int) *QueryService {
	if limit <= 0 {
		limit = defaultAvailabilityLimit
	}
	return &QueryService{store: s, limit: limit}
}

// Availability is a coarse hotel-wide check: it counts overlapping non-cancelled
// bookings against a fixed limit and ignores room types and the rooms asked for.
// Room inventory is enforced at booking time only.
func (q *QueryService) Availability(ctx context.Context, hotelID int64, checkIn, checkOut time.Time, rooms int) (bool, error) {
	in, out := domain.DateOf(checkIn), domain.DateOf(checkOut)
	if in.After(out) {
		return false, domain.Invalidf("check-in date must be before check-out date")
	}
	if rooms <= 0 {
		return false, domain.Invalidf("rooms must be positive")
	}
	n, err := q.store.CountOverlapping(ctx, hotelID, in, out)
	if err != nil {
		return false, err
	}
	return n < q.limit, nil
}

func (q *QueryService) Stats(ctx context.Context) (domain.BookingStats, error) {
	return q.store.BookingStats(ctx)
}

// Wallet returns the owner's wallet and its latest ledger entries. A wallet that
// was never touched reads as a zero balance.
func (q *QueryService) Wallet(ctx context.Context, owner domain.WalletOwner, limit int) (domain.WalletView, error) {
	w, err := q.store.FindWallet(ctx, owner)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.WalletView{Wallet: domain.Wallet{Owner: owner}, Transactions: []domain.WalletTransaction{}}, nil
	}
	if err != nil {
		return domain.WalletView{}, err
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	txs, err := q.store.ListWalletTransactions(ctx, w.ID, limit)
	if err != nil {
		return domain.WalletView{}, err
	}
	return domain.WalletView{Wallet: w, Transactions: txs}, nil
}

// CachedHotels is a cache-aside hotel directory. Guest and host lookups pass through.
type CachedHotels struct {
	domain.Directory
	cache    domain.Cache
	cacheTTL time.Duration
}

func NewCachedHotels(d domain.Directory, c domain.Cache, ttl time.Duration) *CachedHotels {
	return &CachedHotels{Directory: d, cache: c, cacheTTL: ttl}
}

func (c *CachedHotels) GetHotel(ctx context.Context, id int64) (domain.Hotel, error) {
	key := fmt.Sprintf("hotel:%d", id)
	var h domain.Hotel
	if ok, _ := c.cache.Get(ctx, key, &h); ok {
		return h, nil
	}
	h, err := c.Directory.GetHotel(ctx, id)
	if err != nil {
		return domain.Hotel{}, err
	}
	_ = c.cache.Set(ctx, key, h, int(c.cacheTTL.Seconds()))
	return h, nil
}

