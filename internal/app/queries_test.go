package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"staylio/internal/app"
	"staylio/internal/domain"
)

// ---- fakes ----

type fakeCache struct {
	store map[string]any
	gets  int
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.gets++
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	if d, ok := dst.(*domain.Hotel); ok {
		*d = v.(domain.Hotel)
	}
	return true, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	return nil
}

// ---- tests ----

func TestCachedHotels_MissThenHit(t *testing.T) {
	f := newFixture(t)
	cache := &fakeCache{}
	dir := app.NewCachedHotels(f.store, cache, 10*time.Minute)
	ctx := context.Background()

	h, err := dir.GetHotel(ctx, hotelID)
	if err != nil || h.Name != "Sea Breeze" {
		t.Fatalf("miss: %v %+v", err, h)
	}

	f.store.PutHotel(domain.Hotel{ID: hotelID, Name: "SHOULD NOT SEE THIS"})
	h2, err := dir.GetHotel(ctx, hotelID)
	if err != nil || h2.Name != "Sea Breeze" {
		t.Fatalf("expected cached name, got %v %q", err, h2.Name)
	}

	if _, err := dir.GetHotel(ctx, 404); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown hotel: %v", err)
	}
	if _, ok := cache.store["hotel:404"]; ok {
		t.Fatal("misses must not be cached")
	}

	// guest and host lookups pass through
	if g, err := dir.GetUser(ctx, guestID); err != nil || g.Name != "Arjun" {
		t.Fatalf("user: %v %+v", err, g)
	}
}

func TestAvailability_CountsOverlapsAgainstLimit(t *testing.T) {
	f := newFixture(t)
	q := app.NewQueryService(f.store, 2)
	ctx := context.Background()

	f.store.PutBooking(domain.Booking{HotelID: hotelID, CheckIn: day(5), CheckOut: day(7), Status: domain.StatusConfirmed})
	f.store.PutBooking(domain.Booking{HotelID: hotelID, CheckIn: day(7), CheckOut: day(9), Status: domain.StatusPending})
	f.store.PutBooking(domain.Booking{HotelID: hotelID, CheckIn: day(6), CheckOut: day(8), Status: domain.StatusCancelled})

	ok, err := q.Availability(ctx, hotelID, day(7), day(8), 1)
	if err != nil || ok {
		t.Fatalf("two overlaps at limit 2 should be unavailable: ok=%v err=%v", ok, err)
	}
	ok, _ = q.Availability(ctx, hotelID, day(10), day(12), 1)
	if !ok {
		t.Fatal("free window reported unavailable")
	}
	if _, err := q.Availability(ctx, hotelID, day(4), day(2), 1); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("reversed window: %v", err)
	}
	if _, err := q.Availability(ctx, hotelID, day(2), day(4), 0); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("zero rooms: %v", err)
	}
}

func TestWallet_UntouchedReadsAsZero(t *testing.T) {
	f := newFixture(t)
	q := app.NewQueryService(f.store, 0)
	ctx := context.Background()

	v, err := q.Wallet(ctx, domain.HostOwner(hostID), 10)
	if err != nil || !v.Wallet.Balance.IsZero() || len(v.Transactions) != 0 {
		t.Fatalf("empty wallet: %v %+v", err, v)
	}

	req := request(5)
	req.Payment = online("rp_w")
	if _, err := f.svc.Create(ctx, req); err != nil {
		t.Fatal(err)
	}
	v, err = q.Wallet(ctx, domain.PlatformOwner(), 10)
	if err != nil || !v.Wallet.Balance.Equal(dec("2200")) || len(v.Transactions) != 1 {
		t.Fatalf("platform wallet: %v %+v", err, v)
	}
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	q := app.NewQueryService(f.store, 0)
	ctx := context.Background()
	b, _ := f.svc.Create(ctx, request(3))
	_, _ = f.svc.Create(ctx, request(4))
	_, _ = f.svc.Cancel(ctx, b.ID)

	st, err := q.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Total != 2 || st.Pending != 1 || st.Cancelled != 1 {
		t.Fatalf("stats %+v", st)
	}
}
