package service

import (
	"context"
	"errors"
	"fmt"

	"marketplace-backend/internal/core/domain"
	"marketplace-backend/internal/core/ports"
	"marketplace-backend/pkg/apperror"
)

// loadOwnedMerchant returns the merchant if actor owns it or may manage any merchant.
func loadOwnedMerchant(ctx context.Context, merchants ports.MerchantRepository, actor *domain.User, merchantID int64) (*domain.Merchant, error) {
	merchant, err := merchants.GetByID(ctx, merchantID)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("get merchant %d: %w", merchantID, err))
	}
	if merchant == nil {
		return nil, apperror.ErrNotFound("merchant")
	}
	if !merchant.OwnedBy(actor) && !actor.Can(domain.CapManageAnyMerchant) {
		return nil, apperror.ErrForbidden()
	}
	return merchant, nil
}

// canViewWallet reports whether actor owns the wallet's merchant or may view any wallet.
func canViewWallet(ctx context.Context, merchants ports.MerchantRepository, actor *domain.User, wallet *domain.Wallet) (bool, error) {
	if actor.Can(domain.CapViewAnyWallet) {
		return true, nil
	}
	merchant, err := merchants.GetByID(ctx, wallet.MerchantID)
	if err != nil {
		return false, apperror.ErrDatabaseError(fmt.Errorf("get merchant %d: %w", wallet.MerchantID, err))
	}
	return merchant != nil && merchant.OwnedBy(actor), nil
}

// invalidInput converts a domain field error into VAL_001.
func invalidInput(err error) error {
	var fe *domain.FieldError
	if errors.As(err, &fe) {
		return apperror.Validation(fe.Error())
	}
	return apperror.InternalError(err)
}

// storageError translates repository sentinels for a mutation of entity.
func storageError(entity string, err error) error {
	switch {
	case errors.Is(err, ports.ErrConflict):
		return apperror.ErrConflict(err)
	case errors.Is(err, ports.ErrNotFound):
		return apperror.ErrNotFound(entity)
	case errors.Is(err, ports.ErrForeignKey):
		return apperror.ErrResourceInUse(entity)
	default:
		return apperror.ErrDatabaseError(fmt.Errorf("%s: %w", entity, err))
	}
}
