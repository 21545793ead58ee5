package domain

import "github.com/shopspring/decimal"

// Hotel is the directory view of a listed property.
type Hotel struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Address       string          `json:"address"`
	City          string          `json:"city"`
	Country       string          `json:"country"`
	PricePerNight decimal.Decimal `json:"price_per_night"`
	HostID        *int64          `json:"host_id,omitempty"`
}

type Guest struct {
	ID            int64
	Name          string
	Email         string
	EmailVerified bool
}

type Host struct {
	ID        int64
	OwnerName string
	Email     string
}
