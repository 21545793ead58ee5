package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"staylio/internal/domain"
)

type txRepo struct {
	tx *sql.Tx
	db *sql.DB
}

func (t *txRepo) LockBooking(ctx context.Context, id int64) (domain.Booking, error) {
	b, err := scanBooking(t.tx.QueryRowContext(ctx, lockBookingSQL, id))
	if err == sql.ErrNoRows {
		return domain.Booking{}, domain.NotFoundf("booking %d not found", id)
	}
	return b, err
}

func (t *txRepo) InsertBooking(ctx context.Context, b *domain.Booking) error {
	ts := now()
	res, err := t.tx.ExecContext(ctx, insertBookingSQL,
		b.Reference, valInt64(b.UserID), b.HotelID, b.GuestName, b.GuestEmail, b.GuestPhone,
		day(b.CheckIn), day(b.CheckOut), b.Guests, b.Rooms, b.RoomType,
		b.PricePerNight, b.TotalNights, b.TotalAmount,
		b.SpecialRequests, b.PaymentMethod, string(b.PaymentStatus), b.PaymentRef, b.ManualSettlement,
		string(b.Status), ts, ts,
	)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID, b.CreatedAt, b.UpdatedAt = id, ts, ts
	return nil
}

func (t *txRepo) UpdateBooking(ctx context.Context, b *domain.Booking) error {
	ts := now()
	_, err := t.tx.ExecContext(ctx, updateBookingSQL,
		b.GuestName, b.GuestEmail, b.GuestPhone, b.Guests, b.SpecialRequests,
		string(b.PaymentStatus), b.PaymentRef, b.ManualSettlement, string(b.Status), ts,
		b.ID,
	)
	if err != nil {
		return fmt.Errorf("update booking %d: %w", b.ID, err)
	}
	b.UpdatedAt = ts
	return nil
}

func (t *txRepo) DeleteBooking(ctx context.Context, id int64) error {
	_, err := t.tx.ExecContext(ctx, deleteBookingSQL, id)
	return err
}

func (t *txRepo) TryReserve(ctx context.Context, hotelID int64, roomType string) (bool, error) {
	res, err := t.tx.ExecContext(ctx, reserveRoomSQL, hotelID, roomType)
	if err != nil {
		return false, fmt.Errorf("reserve room: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return false, err
	} else if n == 1 {
		return true, nil
	}
	var rows int
	if err := t.tx.QueryRowContext(ctx, roomExistsSQL, hotelID, roomType).Scan(&rows); err != nil {
		return false, err
	}
	// no inventory row: the room type is not managed
	return rows == 0, nil
}

func (t *txRepo) Release(ctx context.Context, hotelID int64, roomType string) error {
	_, err := t.tx.ExecContext(ctx, releaseRoomSQL, hotelID, roomType)
	return err
}

// GetOrCreateWallet inserts on first use. A concurrent creator wins through the
// unique owner key; the loser re-reads the committed row outside its snapshot.
func (t *txRepo) GetOrCreateWallet(ctx context.Context, owner domain.WalletOwner) (domain.Wallet, error) {
	w, err := findWallet(ctx, t.tx, owner)
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return domain.Wallet{}, err
	}
	res, err := t.tx.ExecContext(ctx, insertWalletSQL, string(owner.Type), valInt64(owner.ID))
	if err != nil {
		if isDuplicate(err) {
			return findWallet(ctx, t.db, owner)
		}
		return domain.Wallet{}, fmt.Errorf("create wallet: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Wallet{}, err
	}
	return domain.Wallet{ID: id, Owner: owner, Balance: decimal.Zero, UpdatedAt: now()}, nil
}

func (t *txRepo) LockWallets(ctx context.Context, ids ...int64) (map[int64]domain.Wallet, error) {
	sorted := append([]int64(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	out := make(map[int64]domain.Wallet, len(sorted))
	for _, id := range sorted {
		if _, ok := out[id]; ok {
			continue
		}
		w, err := scanWallet(t.tx.QueryRowContext(ctx, lockWalletSQL, id))
		if err == sql.ErrNoRows {
			return nil, domain.NotFoundf("wallet %d not found", id)
		}
		if err != nil {
			return nil, err
		}
		out[id] = w
	}
	return out, nil
}

func (t *txRepo) SetWalletBalance(ctx context.Context, walletID int64, balance decimal.Decimal) error {
	if balance.IsNegative() {
		return domain.InsufficientFundsf("wallet %d would go negative", walletID)
	}
	_, err := t.tx.ExecContext(ctx, setWalletBalanceSQL, balance, walletID)
	return err
}

func (t *txRepo) AppendTransaction(ctx context.Context, e *domain.WalletTransaction) error {
	ts := now()
	res, err := t.tx.ExecContext(ctx, insertWalletTxSQL,
		valInt64(e.FromWalletID), valInt64(e.ToWalletID), valInt64(e.BookingID),
		e.Amount, string(e.Type), e.Description, ts,
	)
	if err != nil {
		return fmt.Errorf("append ledger entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	e.ID, e.CreatedAt = id, ts
	return nil
}
