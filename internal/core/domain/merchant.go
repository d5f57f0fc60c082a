package domain

import (
	"time"
)

// Merchant is a seller owned by a user. It owns wallets and items.
type Merchant struct {
	ID          int64     `json:"id"`
	OwnerID     int64     `json:"owner_id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Telephone   *string   `json:"telephone,omitempty"`
	Email       *string   `json:"email,omitempty"`
	TaxID       *string   `json:"tax_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// MerchantCreate is the create view of a Merchant.
type MerchantCreate struct {
	Name        string
	Description *string
	Telephone   *string
	Email       *string
	TaxID       *string
}

// MerchantUpdate lists the fields a merchant update may touch. Nil means unchanged.
type MerchantUpdate struct {
	Name        *string
	Description *string
	Telephone   *string
	Email       *string
	TaxID       *string
}

// NewMerchant projects a create payload into a Merchant owned by ownerID.
func NewMerchant(ownerID int64, in MerchantCreate) (*Merchant, error) {
	if err := requireText("name", in.Name); err != nil {
		return nil, err
	}
	return &Merchant{
		OwnerID:     ownerID,
		Name:        in.Name,
		Description: in.Description,
		Telephone:   in.Telephone,
		Email:       in.Email,
		TaxID:       in.TaxID,
	}, nil
}

// Apply merges the update into m.
func (m *Merchant) Apply(u MerchantUpdate) error {
	if u.Name != nil {
		if err := requireText("name", *u.Name); err != nil {
			return err
		}
		m.Name = *u.Name
	}
	if u.Description != nil {
		m.Description = u.Description
	}
	if u.Telephone != nil {
		m.Telephone = u.Telephone
	}
	if u.Email != nil {
		m.Email = u.Email
	}
	if u.TaxID != nil {
		m.TaxID = u.TaxID
	}
	return nil
}

// OwnedBy reports whether the user owns the merchant.
func (m *Merchant) OwnedBy(u *User) bool {
	return u != nil && m.OwnerID == u.ID
}
