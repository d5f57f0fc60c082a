package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item is a priced, stock-tracked good sold by a merchant.
type Item struct {
	ID            int64            `json:"id"`
	MerchantID    int64            `json:"merchant_id"`
	Name          string           `json:"name"`
	Description   *string          `json:"description,omitempty"`
	Price         decimal.Decimal  `json:"price"`
	Tax           *decimal.Decimal `json:"tax,omitempty"`
	StockQuantity int64            `json:"stock_quantity"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// ItemCreate is the create view of an Item.
type ItemCreate struct {
	MerchantID    int64
	Name          string
	Description   *string
	Price         decimal.Decimal
	Tax           *decimal.Decimal
	StockQuantity int64
}

// ItemUpdate lists the fields an item update may touch. Nil means unchanged.
type ItemUpdate struct {
	Name          *string
	Description   *string
	Price         *decimal.Decimal
	Tax           *decimal.Decimal
	StockQuantity *int64
}

// NewItem projects a create payload into an Item.
func NewItem(in ItemCreate) (*Item, error) {
	if err := requireText("name", in.Name); err != nil {
		return nil, err
	}
	if err := ValidateMoney("price", in.Price); err != nil {
		return nil, err
	}
	if in.Tax != nil {
		if err := ValidateMoney("tax", *in.Tax); err != nil {
			return nil, err
		}
	}
	if in.StockQuantity < 0 {
		return nil, &FieldError{Field: "stock_quantity", Reason: "must not be negative"}
	}
	return &Item{
		MerchantID:    in.MerchantID,
		Name:          in.Name,
		Description:   in.Description,
		Price:         in.Price,
		Tax:           in.Tax,
		StockQuantity: in.StockQuantity,
	}, nil
}

// Apply merges the update into i.
func (i *Item) Apply(u ItemUpdate) error {
	if u.Name != nil {
		if err := requireText("name", *u.Name); err != nil {
			return err
		}
		i.Name = *u.Name
	}
	if u.Description != nil {
		i.Description = u.Description
	}
	if u.Price != nil {
		if err := ValidateMoney("price", *u.Price); err != nil {
			return err
		}
		i.Price = *u.Price
	}
	if u.Tax != nil {
		if err := ValidateMoney("tax", *u.Tax); err != nil {
			return err
		}
		i.Tax = u.Tax
	}
	if u.StockQuantity != nil {
		if *u.StockQuantity < 0 {
			return &FieldError{Field: "stock_quantity", Reason: "must not be negative"}
		}
		i.StockQuantity = *u.StockQuantity
	}
	return nil
}

// PriceFor returns the exact total for quantity units. Tax is informational
// and not charged.
func (i *Item) PriceFor(quantity int64) decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(quantity))
}

// InStock reports whether quantity units are available.
func (i *Item) InStock(quantity int64) bool {
	return i.StockQuantity >= quantity
}
