package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Wallet holds a merchant's spendable balance. Balance never drops below zero.
type Wallet struct {
	ID         int64           `json:"id"`
	MerchantID int64           `json:"merchant_id"`
	Balance    decimal.Decimal `json:"balance"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// WalletCreate is the create view of a Wallet.
type WalletCreate struct {
	MerchantID int64
	Balance    decimal.Decimal
}

// NewWallet projects a create payload into a Wallet.
func NewWallet(in WalletCreate) (*Wallet, error) {
	if err := ValidateMoney("balance", in.Balance); err != nil {
		return nil, err
	}
	return &Wallet{MerchantID: in.MerchantID, Balance: in.Balance}, nil
}

// CanAfford reports whether the balance covers amount.
func (w *Wallet) CanAfford(amount decimal.Decimal) bool {
	return w.Balance.GreaterThanOrEqual(amount)
}
