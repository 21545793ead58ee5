package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OwnerType string

const (
	OwnerAdmin OwnerType = "ADMIN"
	OwnerHost  OwnerType = "HOST"
	OwnerUser  OwnerType = "USER"
)

type TxType string

const (
	TxUserPayment    TxType = "USER_PAYMENT"
	TxUserRefund     TxType = "USER_REFUND"
	TxHostSettlement TxType = "HOST_SETTLEMENT"
	TxAdminHold      TxType = "ADMIN_HOLD"
	TxAdminDebit     TxType = "ADMIN_DEBIT"
	TxAdminCredit    TxType = "ADMIN_CREDIT"
)

// WalletOwner identifies a wallet. The platform wallet and the anonymous guest
// wallet have a nil ID.
type WalletOwner struct {
	Type OwnerType `json:"owner_type"`
	ID   *int64    `json:"owner_id,omitempty"`
}

func PlatformOwner() WalletOwner       { return WalletOwner{Type: OwnerAdmin} }
func HostOwner(id int64) WalletOwner   { return WalletOwner{Type: OwnerHost, ID: &id} }
func GuestOwner(id *int64) WalletOwner { return WalletOwner{Type: OwnerUser, ID: id} }

type Wallet struct {
	ID        int64           `json:"id"`
	Owner     WalletOwner     `json:"owner"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type WalletTransaction struct {
	ID           int64           `json:"id"`
	FromWalletID *int64          `json:"from_wallet_id,omitempty"`
	ToWalletID   *int64          `json:"to_wallet_id,omitempty"`
	BookingID    *int64          `json:"booking_id,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Type         TxType          `json:"transaction_type"`
	Description  string          `json:"description"`
	CreatedAt    time.Time       `json:"created_at"`
}

type WalletView struct {
	Wallet       Wallet              `json:"wallet"`
	Transactions []WalletTransaction `json:"transactions"`
}
