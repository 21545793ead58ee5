package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"staylio/internal/domain"
)

func valInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func ptrInt64(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func day(t time.Time) string { return t.Format(time.DateOnly) }

func now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

// isDuplicate reports MySQL ER_DUP_ENTRY.
func isDuplicate(err error) bool {
	var me *mysqldrv.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

// Repo is the MySQL implementation of domain.Store and domain.Directory.
type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

// InTx runs fn in a transaction, committing if it returns nil.
func (r *Repo) InTx(ctx context.Context, fn func(tx domain.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&txRepo{tx: tx, db: r.db}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (domain.Booking, error) {
	var b domain.Booking
	var userID sql.NullInt64
	var payStatus, status string
	if err := row.Scan(
		&b.ID, &b.Reference, &userID, &b.HotelID, &b.GuestName, &b.GuestEmail, &b.GuestPhone,
		&b.CheckIn, &b.CheckOut, &b.Guests, &b.Rooms, &b.RoomType,
		&b.PricePerNight, &b.TotalNights, &b.TotalAmount,
		&b.SpecialRequests, &b.PaymentMethod, &payStatus, &b.PaymentRef, &b.ManualSettlement,
		&status, &b.CreatedAt, &b.UpdatedAt,
	); err != nil {
		return domain.Booking{}, err
	}
	b.UserID = ptrInt64(userID)
	b.PaymentStatus = domain.PaymentStatus(payStatus)
	b.Status = domain.BookingStatus(status)
	b.CheckIn = domain.DateOf(b.CheckIn)
	b.CheckOut = domain.DateOf(b.CheckOut)
	return b, nil
}

func (r *Repo) GetBooking(ctx context.Context, id int64) (domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, getBookingSQL, id))
	if err == sql.ErrNoRows {
		return domain.Booking{}, domain.NotFoundf("booking %d not found", id)
	}
	return b, err
}

func (r *Repo) GetBookingByReference(ctx context.Context, ref string) (domain.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, getBookingByRefSQL, ref))
	if err == sql.ErrNoRows {
		return domain.Booking{}, domain.NotFoundf("booking %s not found", ref)
	}
	return b, err
}

func (r *Repo) ListBookings(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	var where []string
	var args []any
	if f.UserID != nil {
		where = append(where, "b.user_id = ?")
		args = append(args, *f.UserID)
	}
	if f.HotelID != nil {
		where = append(where, "b.hotel_id = ?")
		args = append(args, *f.HotelID)
	}
	if f.HostID != nil {
		where = append(where, "b.hotel_id IN (SELECT id FROM hotels WHERE host_id = ?)")
		args = append(args, *f.HostID)
	}
	if f.Status != nil {
		where = append(where, "b.status = ?")
		args = append(args, string(*f.Status))
	}
	limit := f.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	q := listBookingsBaseSQL
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY b.created_at DESC, b.id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *Repo) BookingStats(ctx context.Context) (domain.BookingStats, error) {
	rows, err := r.db.QueryContext(ctx, bookingStatsSQL)
	if err != nil {
		return domain.BookingStats{}, err
	}
	defer rows.Close()

	var st domain.BookingStats
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return domain.BookingStats{}, err
		}
		st.Total += n
		switch domain.BookingStatus(status) {
		case domain.StatusPending:
			st.Pending = n
		case domain.StatusConfirmed:
			st.Confirmed = n
		case domain.StatusCancelled:
			st.Cancelled = n
		case domain.StatusCompleted:
			st.Completed = n
		}
	}
	return st, rows.Err()
}

func (r *Repo) CountOverlapping(ctx context.Context, hotelID int64, checkIn, checkOut time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, countOverlappingSQL, hotelID, day(checkOut), day(checkIn)).Scan(&n)
	return n, err
}

func (r *Repo) OverduePendingIDs(ctx context.Context, today time.Time) ([]int64, error) {
	return r.ids(ctx, overduePendingSQL, day(today))
}

func (r *Repo) FinishedConfirmedIDs(ctx context.Context, today time.Time) ([]int64, error) {
	return r.ids(ctx, finishedConfirmedSQL, day(today))
}

func (r *Repo) ids(ctx context.Context, q string, args ...any) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func scanWallet(row rowScanner) (domain.Wallet, error) {
	var w domain.Wallet
	var ownerType string
	var ownerID sql.NullInt64
	if err := row.Scan(&w.ID, &ownerType, &ownerID, &w.Balance, &w.UpdatedAt); err != nil {
		return domain.Wallet{}, err
	}
	w.Owner = domain.WalletOwner{Type: domain.OwnerType(ownerType), ID: ptrInt64(ownerID)}
	return w, nil
}

func ownerKey(o domain.WalletOwner) int64 {
	if o.ID == nil {
		return 0
	}
	return *o.ID
}

func (r *Repo) FindWallet(ctx context.Context, owner domain.WalletOwner) (domain.Wallet, error) {
	return findWallet(ctx, r.db, owner)
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func findWallet(ctx context.Context, q querier, owner domain.WalletOwner) (domain.Wallet, error) {
	w, err := scanWallet(q.QueryRowContext(ctx, findWalletSQL, string(owner.Type), ownerKey(owner)))
	if err == sql.ErrNoRows {
		return domain.Wallet{}, domain.NotFoundf("no %s wallet", strings.ToLower(string(owner.Type)))
	}
	return w, err
}

func (r *Repo) ListWalletTransactions(ctx context.Context, walletID int64, limit int) ([]domain.WalletTransaction, error) {
	rows, err := r.db.QueryContext(ctx, listWalletTxSQL, walletID, walletID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.WalletTransaction{}
	for rows.Next() {
		var t domain.WalletTransaction
		var from, to, booking sql.NullInt64
		var kind string
		if err := rows.Scan(&t.ID, &from, &to, &booking, &t.Amount, &kind, &t.Description, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.FromWalletID, t.ToWalletID, t.BookingID = ptrInt64(from), ptrInt64(to), ptrInt64(booking)
		t.Type = domain.TxType(kind)
		out = append(out, t)
	}
	return out, rows.Err()
}

// ---- directory ----

func (r *Repo) GetHotel(ctx context.Context, id int64) (domain.Hotel, error) {
	var h domain.Hotel
	var hostID sql.NullInt64
	var price decimal.Decimal
	err := r.db.QueryRowContext(ctx, getHotelSQL, id).
		Scan(&h.ID, &h.Name, &h.Address, &h.City, &h.Country, &price, &hostID)
	if err == sql.ErrNoRows {
		return domain.Hotel{}, domain.NotFoundf("hotel %d not found", id)
	}
	if err != nil {
		return domain.Hotel{}, err
	}
	h.PricePerNight = price
	h.HostID = ptrInt64(hostID)
	return h, nil
}

func (r *Repo) GetUser(ctx context.Context, id int64) (domain.Guest, error) {
	var g domain.Guest
	err := r.db.QueryRowContext(ctx, getUserSQL, id).Scan(&g.ID, &g.Name, &g.Email, &g.EmailVerified)
	if err == sql.ErrNoRows {
		return domain.Guest{}, domain.NotFoundf("user %d not found", id)
	}
	return g, err
}

func (r *Repo) GetHost(ctx context.Context, id int64) (domain.Host, error) {
	var h domain.Host
	err := r.db.QueryRowContext(ctx, getHostSQL, id).Scan(&h.ID, &h.OwnerName, &h.Email)
	if err == sql.ErrNoRows {
		return domain.Host{}, domain.NotFoundf("host %d not found", id)
	}
	return h, err
}
