package service

import (
	"context"
	"errors"
	"fmt"

	"marketplace-backend/internal/core/domain"
	"marketplace-backend/internal/core/ports"
	"marketplace-backend/pkg/apperror"
)

type itemService struct {
	itemRepo     ports.ItemRepository
	merchantRepo ports.MerchantRepository
	transactor   ports.DBTransactor
	pager        Paginator
}

// NewItemService creates a new item catalogue service.
func NewItemService(
	itemRepo ports.ItemRepository,
	merchantRepo ports.MerchantRepository,
	transactor ports.DBTransactor,
	pager Paginator,
) ports.ItemService {
	return &itemService{
		itemRepo:     itemRepo,
		merchantRepo: merchantRepo,
		transactor:   transactor,
		pager:        pager,
	}
}

// Create adds an item to a merchant the actor may manage.
func (s *itemService) Create(ctx context.Context, actor *domain.User, in domain.ItemCreate) (*domain.Item, error) {
	if _, err := loadOwnedMerchant(ctx, s.merchantRepo, actor, in.MerchantID); err != nil {
		return nil, err
	}
	item, err := domain.NewItem(in)
	if err != nil {
		return nil, invalidInput(err)
	}
	if err := s.itemRepo.Create(ctx, item); err != nil {
		if errors.Is(err, ports.ErrForeignKey) {
			return nil, apperror.ErrNotFound("merchant")
		}
		return nil, apperror.ErrDatabaseError(fmt.Errorf("create item: %w", err))
	}
	return item, nil
}

func (s *itemService) Get(ctx context.Context, id int64) (*domain.Item, error) {
	item, err := s.itemRepo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if item == nil {
		return nil, apperror.ErrNotFound("item")
	}
	return item, nil
}

func (s *itemService) List(ctx context.Context, filter ports.ItemFilter, req ports.PageRequest) (*ports.PageResult[domain.Item], error) {
	page, err := s.pager.Normalize(req)
	if err != nil {
		return nil, err
	}
	items, total, err := s.itemRepo.List(ctx, filter, page)
	if err != nil {
		return nil, apperror.ErrDatabaseError(fmt.Errorf("list items: %w", err))
	}
	return &ports.PageResult[domain.Item]{Items: items, Total: total, Page: page}, nil
}

// Update merges the allowed fields under a row lock so stock changes never race a purchase.
func (s *itemService) Update(ctx context.Context, actor *domain.User, id int64, in domain.ItemUpdate) (*domain.Item, error) {
	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, storageError("item", err)
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	item, err := s.itemRepo.GetByIDForUpdate(ctx, dbTx, id)
	if err != nil {
		return nil, storageError("item", err)
	}
	if item == nil {
		return nil, apperror.ErrNotFound("item")
	}
	if _, err := loadOwnedMerchant(ctx, s.merchantRepo, actor, item.MerchantID); err != nil {
		return nil, err
	}

	if err := item.Apply(in); err != nil {
		return nil, invalidInput(err)
	}
	if err := s.itemRepo.Update(ctx, dbTx, item); err != nil {
		return nil, storageError("item", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, storageError("item", err)
	}
	return item, nil
}

// Delete removes an item. It fails with RES_002 once the item has been purchased.
func (s *itemService) Delete(ctx context.Context, actor *domain.User, id int64) error {
	item, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, err := loadOwnedMerchant(ctx, s.merchantRepo, actor, item.MerchantID); err != nil {
		return err
	}
	if err := s.itemRepo.Delete(ctx, id); err != nil {
		return storageError("item", err)
	}
	return nil
}
