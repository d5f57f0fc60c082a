package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the immutable record of one committed purchase.
// TotalPrice is the snapshot of UnitPrice × Quantity at commit time.
type Transaction struct {
	ID         int64           `json:"id"`
	WalletID   int64           `json:"wallet_id"`
	ItemID     int64           `json:"item_id"`
	UserID     int64           `json:"user_id"`
	Quantity   int64           `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewPurchase builds the record for buying quantity units of item with wallet.
func NewPurchase(wallet *Wallet, item *Item, actor *User, quantity int64) *Transaction {
	return &Transaction{
		WalletID:   wallet.ID,
		ItemID:     item.ID,
		UserID:     actor.ID,
		Quantity:   quantity,
		UnitPrice:  item.Price,
		TotalPrice: item.PriceFor(quantity),
	}
}
