// Package memory is an in-process domain.Store and domain.Directory.
// Transactions are serialized by one mutex; a failed transaction restores the
// state it started from.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"staylio/internal/domain"
)

type roomKey struct {
	hotelID  int64
	roomType string
}

type walletKey struct {
	t  domain.OwnerType
	id int64
}

type state struct {
	bookings map[int64]domain.Booking
	rooms    map[roomKey]int
	wallets  map[int64]domain.Wallet
	byOwner  map[walletKey]int64
	ledger   []domain.WalletTransaction
	nextID   int64
}

func (s *state) clone() *state {
	c := &state{
		bookings: make(map[int64]domain.Booking, len(s.bookings)),
		rooms:    make(map[roomKey]int, len(s.rooms)),
		wallets:  make(map[int64]domain.Wallet, len(s.wallets)),
		byOwner:  make(map[walletKey]int64, len(s.byOwner)),
		ledger:   append([]domain.WalletTransaction(nil), s.ledger...),
		nextID:   s.nextID,
	}
	for k, v := range s.bookings {
		c.bookings[k] = v
	}
	for k, v := range s.rooms {
		c.rooms[k] = v
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	for k, v := range s.byOwner {
		c.byOwner[k] = v
	}
	return c
}

type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time

	dirMu  sync.RWMutex
	hotels map[int64]domain.Hotel
	users  map[int64]domain.Guest
	hosts  map[int64]domain.Host
}

func New() *Store {
	return &Store{
		st: &state{
			bookings: map[int64]domain.Booking{},
			rooms:    map[roomKey]int{},
			wallets:  map[int64]domain.Wallet{},
			byOwner:  map[walletKey]int64{},
		},
		now:    func() time.Time { return time.Now().UTC() },
		hotels: map[int64]domain.Hotel{},
		users:  map[int64]domain.Guest{},
		hosts:  map[int64]domain.Host{},
	}
}

// ---- seeding ----

func (s *Store) PutHotel(h domain.Hotel) { s.dirMu.Lock(); s.hotels[h.ID] = h; s.dirMu.Unlock() }
func (s *Store) PutUser(g domain.Guest)  { s.dirMu.Lock(); s.users[g.ID] = g; s.dirMu.Unlock() }
func (s *Store) PutHost(h domain.Host)   { s.dirMu.Lock(); s.hosts[h.ID] = h; s.dirMu.Unlock() }

// SetRooms sets the sellable count of a room type.
func (s *Store) SetRooms(hotelID int64, roomType string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.rooms[roomKey{hotelID, roomType}] = n
}

// PutBooking stores b as-is, assigning an id when it has none.
func (s *Store) PutBooking(b domain.Booking) domain.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == 0 {
		s.st.nextID++
		b.ID = s.st.nextID
	}
	s.st.bookings[b.ID] = b
	return b
}

// Rooms returns the count of a room type and whether it is managed.
func (s *Store) Rooms(hotelID int64, roomType string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.st.rooms[roomKey{hotelID, roomType}]
	return n, ok
}

// Ledger returns every ledger entry in insertion order.
func (s *Store) Ledger() []domain.WalletTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.WalletTransaction(nil), s.st.ledger...)
}

// Wallets returns every wallet.
func (s *Store) Wallets() []domain.Wallet {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Wallet, 0, len(s.st.wallets))
	for _, w := range s.st.wallets {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ---- domain.Store ----

func (s *Store) InTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.st.clone()
	if err := fn(&tx{s: s}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

func (s *Store) GetBooking(_ context.Context, id int64) (domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.st.bookings[id]
	if !ok {
		return domain.Booking{}, domain.NotFoundf("booking %d not found", id)
	}
	return b, nil
}

func (s *Store) GetBookingByReference(_ context.Context, ref string) (domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.st.bookings {
		if b.Reference == ref {
			return b, nil
		}
	}
	return domain.Booking{}, domain.NotFoundf("booking %s not found", ref)
}

func (s *Store) ListBookings(_ context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	var hostHotels map[int64]bool
	if f.HostID != nil {
		hostHotels = map[int64]bool{}
		s.dirMu.RLock()
		for id, h := range s.hotels {
			if h.HostID != nil && *h.HostID == *f.HostID {
				hostHotels[id] = true
			}
		}
		s.dirMu.RUnlock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.Booking{}
	for _, b := range s.st.bookings {
		switch {
		case f.UserID != nil && (b.UserID == nil || *b.UserID != *f.UserID):
			continue
		case f.HotelID != nil && b.HotelID != *f.HotelID:
			continue
		case hostHotels != nil && !hostHotels[b.HotelID]:
			continue
		case f.Status != nil && b.Status != *f.Status:
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) BookingStats(_ context.Context) (domain.BookingStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var st domain.BookingStats
	for _, b := range s.st.bookings {
		st.Total++
		switch b.Status {
		case domain.StatusPending:
			st.Pending++
		case domain.StatusConfirmed:
			st.Confirmed++
		case domain.StatusCancelled:
			st.Cancelled++
		case domain.StatusCompleted:
			st.Completed++
		}
	}
	return st, nil
}

func (s *Store) CountOverlapping(_ context.Context, hotelID int64, checkIn, checkOut time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.st.bookings {
		if b.HotelID != hotelID || b.Status == domain.StatusCancelled {
			continue
		}
		if !b.CheckIn.After(checkOut) && !b.CheckOut.Before(checkIn) {
			n++
		}
	}
	return n, nil
}

func (s *Store) OverduePendingIDs(_ context.Context, today time.Time) ([]int64, error) {
	return s.ids(func(b domain.Booking) bool {
		return b.Status == domain.StatusPending && b.CheckIn.Before(today)
	}), nil
}

func (s *Store) FinishedConfirmedIDs(_ context.Context, today time.Time) ([]int64, error) {
	return s.ids(func(b domain.Booking) bool {
		return b.Status == domain.StatusConfirmed && b.CheckOut.Before(today)
	}), nil
}

func (s *Store) ids(match func(domain.Booking) bool) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []int64
	for id, b := range s.st.bookings {
		if match(b) {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func ownerKey(o domain.WalletOwner) walletKey {
	k := walletKey{t: o.Type}
	if o.ID != nil {
		k.id = *o.ID
	}
	return k
}

func (s *Store) FindWallet(_ context.Context, owner domain.WalletOwner) (domain.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.st.byOwner[ownerKey(owner)]
	if !ok {
		return domain.Wallet{}, domain.NotFoundf("no %s wallet", strings.ToLower(string(owner.Type)))
	}
	return s.st.wallets[id], nil
}

func (s *Store) ListWalletTransactions(_ context.Context, walletID int64, limit int) ([]domain.WalletTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []domain.WalletTransaction{}
	for i := len(s.st.ledger) - 1; i >= 0 && len(out) < limit; i-- {
		e := s.st.ledger[i]
		if (e.FromWalletID != nil && *e.FromWalletID == walletID) || (e.ToWalletID != nil && *e.ToWalletID == walletID) {
			out = append(out, e)
		}
	}
	return out, nil
}

// ---- domain.Directory ----

func (s *Store) GetHotel(_ context.Context, id int64) (domain.Hotel, error) {
	s.dirMu.RLock()
	defer s.dirMu.RUnlock()
	h, ok := s.hotels[id]
	if !ok {
		return domain.Hotel{}, domain.NotFoundf("hotel %d not found", id)
	}
	return h, nil
}

func (s *Store) GetUser(_ context.Context, id int64) (domain.Guest, error) {
	s.dirMu.RLock()
	defer s.dirMu.RUnlock()
	g, ok := s.users[id]
	if !ok {
		return domain.Guest{}, domain.NotFoundf("user %d not found", id)
	}
	return g, nil
}

func (s *Store) GetHost(_ context.Context, id int64) (domain.Host, error) {
	s.dirMu.RLock()
	defer s.dirMu.RUnlock()
	h, ok := s.hosts[id]
	if !ok {
		return domain.Host{}, domain.NotFoundf("host %d not found", id)
	}
	return h, nil
}

// ---- domain.Tx ----

// tx runs with Store.mu held.
type tx struct{ s *Store }

func (t *tx) LockBooking(_ context.Context, id int64) (domain.Booking, error) {
	b, ok := t.s.st.bookings[id]
	if !ok {
		return domain.Booking{}, domain.NotFoundf("booking %d not found", id)
	}
	return b, nil
}

func (t *tx) InsertBooking(_ context.Context, b *domain.Booking) error {
	for _, other := range t.s.st.bookings {
		if other.Reference == b.Reference {
			return fmt.Errorf("duplicate booking reference %s", b.Reference)
		}
	}
	t.s.st.nextID++
	ts := t.s.now()
	b.ID, b.CreatedAt, b.UpdatedAt = t.s.st.nextID, ts, ts
	t.s.st.bookings[b.ID] = *b
	return nil
}

func (t *tx) UpdateBooking(_ context.Context, b *domain.Booking) error {
	if _, ok := t.s.st.bookings[b.ID]; !ok {
		return domain.NotFoundf("booking %d not found", b.ID)
	}
	b.UpdatedAt = t.s.now()
	t.s.st.bookings[b.ID] = *b
	return nil
}

func (t *tx) DeleteBooking(_ context.Context, id int64) error {
	delete(t.s.st.bookings, id)
	return nil
}

func (t *tx) TryReserve(_ context.Context, hotelID int64, roomType string) (bool, error) {
	k := roomKey{hotelID, roomType}
	n, ok := t.s.st.rooms[k]
	if !ok {
		return true, nil
	}
	if n <= 0 {
		return false, nil
	}
	t.s.st.rooms[k] = n - 1
	return true, nil
}

func (t *tx) Release(_ context.Context, hotelID int64, roomType string) error {
	k := roomKey{hotelID, roomType}
	if n, ok := t.s.st.rooms[k]; ok {
		t.s.st.rooms[k] = n + 1
	}
	return nil
}

func (t *tx) GetOrCreateWallet(_ context.Context, owner domain.WalletOwner) (domain.Wallet, error) {
	k := ownerKey(owner)
	if id, ok := t.s.st.byOwner[k]; ok {
		return t.s.st.wallets[id], nil
	}
	t.s.st.nextID++
	w := domain.Wallet{ID: t.s.st.nextID, Owner: owner, Balance: decimal.Zero, UpdatedAt: t.s.now()}
	t.s.st.wallets[w.ID] = w
	t.s.st.byOwner[k] = w.ID
	return w, nil
}

func (t *tx) LockWallets(_ context.Context, ids ...int64) (map[int64]domain.Wallet, error) {
	out := make(map[int64]domain.Wallet, len(ids))
	for _, id := range ids {
		w, ok := t.s.st.wallets[id]
		if !ok {
			return nil, domain.NotFoundf("wallet %d not found", id)
		}
		out[id] = w
	}
	return out, nil
}

func (t *tx) SetWalletBalance(_ context.Context, walletID int64, balance decimal.Decimal) error {
	w, ok := t.s.st.wallets[walletID]
	if !ok {
		return domain.NotFoundf("wallet %d not found", walletID)
	}
	if balance.IsNegative() {
		return domain.InsufficientFundsf("wallet %d would go negative", walletID)
	}
	w.Balance = balance
	w.UpdatedAt = t.s.now()
	t.s.st.wallets[walletID] = w
	return nil
}

func (t *tx) AppendTransaction(_ context.Context, e *domain.WalletTransaction) error {
	t.s.st.nextID++
	e.ID = t.s.st.nextID
	e.CreatedAt = t.s.now()
	t.s.st.ledger = append(t.s.st.ledger, *e)
	return nil
}
