package app

import (
	"context"

	"github.com/shopspring/decimal"

	"staylio/internal/adapters/observability"
	"staylio/internal/domain"
)

const (
	descPayment    = "Online booking payment received"
	descRefund     = "Refund for cancelled booking"
	descSettlement = "Settlement for completed booking"
)

// Settlement moves money between the platform wallet and guest or host wallets.
// Each exported method is its own transaction; the booking state machine uses the
// tx-scoped variants so that money moves in the same unit of work as the status.
type Settlement struct {
	store domain.Store
}

func NewSettlement(s domain.Store) *Settlement { return &Settlement{store: s} }

// CreditPlatform records money that arrived from the gateway. The guest wallet is
// only the ledger source; its balance is not debited.
func (s *Settlement) CreditPlatform(ctx context.Context, guestID *int64, amount decimal.Decimal, bookingID int64) (domain.WalletTransaction, error) {
	var out domain.WalletTransaction
	err := s.store.InTx(ctx, func(tx domain.Tx) error {
		var err error
		out, err = creditPlatform(ctx, tx, guestID, amount, bookingID)
		return err
	})
	return out, err
}

func (s *Settlement) RefundToGuest(ctx context.Context, guestID *int64, amount decimal.Decimal, bookingID int64) (domain.WalletTransaction, error) {
	var out domain.WalletTransaction
	err := s.store.InTx(ctx, func(tx domain.Tx) error {
		var err error
		out, err = refundToGuest(ctx, tx, guestID, amount, bookingID)
		return err
	})
	return out, err
}

func (s *Settlement) SettleHost(ctx context.Context, hostID int64, amount decimal.Decimal, bookingID int64) (domain.WalletTransaction, error) {
	var out domain.WalletTransaction
	err := s.store.InTx(ctx, func(tx domain.Tx) error {
		var err error
		out, err = settleHost(ctx, tx, hostID, amount, bookingID)
		return err
	})
	return out, err
}

func creditPlatform(ctx context.Context, tx domain.Tx, guestID *int64, amount decimal.Decimal, bookingID int64) (domain.WalletTransaction, error) {
	return move(ctx, tx, movement{
		from: domain.GuestOwner(guestID), to: domain.PlatformOwner(),
		amount: amount, kind: domain.TxUserPayment, desc: descPayment,
		bookingID: bookingID, debit: false,
	})
}

func refundToGuest(ctx context.Context, tx domain.Tx, guestID *int64, amount decimal.Decimal, bookingID int64) (domain.WalletTransaction, error) {
	return move(ctx, tx, movement{
		from: domain.PlatformOwner(), to: domain.GuestOwner(guestID),
		amount: amount, kind: domain.TxUserRefund, desc: descRefund,
		bookingID: bookingID, debit: true,
	})
}

func settleHost(ctx context.Context, tx domain.Tx, hostID int64, amount decimal.Decimal, bookingID int64) (domain.WalletTransaction, error) {
	return move(ctx, tx, movement{
		from: domain.PlatformOwner(), to: domain.HostOwner(hostID),
		amount: amount, kind: domain.TxHostSettlement, desc: descSettlement,
		bookingID: bookingID, debit: true,
	})
}

type movement struct {
	from, to  domain.WalletOwner
	amount    decimal.Decimal
	kind      domain.TxType
	desc      string
	bookingID int64
	// debit the source wallet; false for money entering from outside
	debit bool
}

func move(ctx context.Context, tx domain.Tx, m movement) (domain.WalletTransaction, error) {
	if !m.amount.IsPositive() {
		observability.ObserveSettlement(string(m.kind), "invalid", m.amount)
		return domain.WalletTransaction{}, domain.Invalidf("amount must be positive, got %s", m.amount.StringFixed(2))
	}
	from, err := tx.GetOrCreateWallet(ctx, m.from)
	if err != nil {
		return domain.WalletTransaction{}, err
	}
	to, err := tx.GetOrCreateWallet(ctx, m.to)
	if err != nil {
		return domain.WalletTransaction{}, err
	}
	locked, err := tx.LockWallets(ctx, from.ID, to.ID)
	if err != nil {
		return domain.WalletTransaction{}, err
	}
	from, to = locked[from.ID], locked[to.ID]

	if m.debit {
		if from.Balance.LessThan(m.amount) {
			observability.ObserveSettlement(string(m.kind), "insufficient_funds", m.amount)
			return domain.WalletTransaction{}, domain.InsufficientFundsf(
				"platform wallet balance %s cannot cover %s", from.Balance.StringFixed(2), m.amount.StringFixed(2))
		}
		if err := tx.SetWalletBalance(ctx, from.ID, from.Balance.Sub(m.amount)); err != nil {
			return domain.WalletTransaction{}, err
		}
	}
	if err := tx.SetWalletBalance(ctx, to.ID, to.Balance.Add(m.amount)); err != nil {
		return domain.WalletTransaction{}, err
	}

	bid := m.bookingID
	entry := domain.WalletTransaction{
		FromWalletID: &from.ID,
		ToWalletID:   &to.ID,
		BookingID:    &bid,
		Amount:       m.amount,
		Type:         m.kind,
		Description:  m.desc,
	}
	if err := tx.AppendTransaction(ctx, &entry); err != nil {
		return domain.WalletTransaction{}, err
	}
	observability.ObserveSettlement(string(m.kind), "ok", m.amount)
	return entry, nil
}
