package service

import (
	"context"
	"fmt"

	"marketplace-backend/internal/core/domain"
	"marketplace-backend/internal/core/ports"
	"marketplace-backend/pkg/apperror"
)

type merchantService struct {
	merchantRepo ports.MerchantRepository
	pager        Paginator
}

// NewMerchantService creates a new merchant management service.
func NewMerchantService(merchantRepo ports.MerchantRepository, pager Paginator) ports.MerchantService {
	return &merchantService{merchantRepo: merchantRepo, pager: pager}
}

// Create registers a merchant owned by actor.
func (s *merchantService) Create(ctx context.Context, actor *domain.User, in domain.MerchantCreate) (*domain.Merchant, error) {
	merchant, err := domain.NewMerchant(actor.ID, in)
	if err != nil {
		return nil, invalidInput(err)
	}
	if err := s.merchantRepo.Create(ctx, merchant); err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create merchant: %w", err))
	}
	return merchant, nil
}

func (s *merchantService) Get(ctx context.Context, id int64) (*domain.Merchant, error) {
	merchant, err := s.merchantRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if merchant == nil {
		return nil, apperror.ErrNotFound("merchant")
	}
	return merchant, nil
}

func (s *merchantService) List(ctx context.Context, req ports.PageRequest) (*ports.PageResult[domain.Merchant], error) {
	page, err := s.pager.Normalize(req)
	if err != nil {
		return nil, err
	}
	merchants, total, err := s.merchantRepo.List(ctx, page)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list merchants: %w", err))
	}
	return &ports.PageResult[domain.Merchant]{Items: merchants, Total: total, Page: page}, nil
}

// Update merges the allowed fields into the merchant. Only the owner or an admin may update.
func (s *merchantService) Update(ctx context.Context, actor *domain.User, id int64, in domain.MerchantUpdate) (*domain.Merchant, error) {
	merchant, err := loadOwnedMerchant(ctx, s.merchantRepo, actor, id)
	if err != nil {
		return nil, err
	}
	if err := merchant.Apply(in); err != nil {
		return nil, invalidInput(err)
	}
	if err := s.merchantRepo.Update(ctx, merchant); err != nil {
		return nil, storageError("merchant", err)
	}
	return merchant, nil
}

// Delete removes the merchant. It fails with RES_002 while wallets or items still reference it.
func (s *merchantService) Delete(ctx context.Context, actor *domain.User, id int64) error {
	if _, err := loadOwnedMerchant(ctx, s.merchantRepo, actor, id); err != nil {
		return err
	}
	if err := s.merchantRepo.Delete(ctx, id); err != nil {
		return storageError("merchant", err)
	}
	return nil
}
