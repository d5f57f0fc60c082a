package memory

import (
	"context"
	"fmt"

	"marketplace-backend/internal/core/domain"
	"marketplace-backend/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// ItemRepo implements ports.ItemRepository.
type ItemRepo struct {
	store *Store
}

// NewItemRepo creates a new ItemRepo.
func NewItemRepo(store *Store) *ItemRepo {
	return &ItemRepo{store: store}
}

// Create inserts an item for an existing merchant.
func (r *ItemRepo) Create(ctx context.Context, i *domain.Item) error {
	s := r.store
	return s.write(ctx, func() error {
		if _, ok := s.merchants[i.MerchantID]; !ok {
			return fmt.Errorf("insert item: merchant %d: %w", i.MerchantID, ports.ErrForeignKey)
		}
		s.nextItem++
		now := s.now()
		i.ID, i.CreatedAt, i.UpdatedAt = s.nextItem, now, now
		cp := *i
		s.items[i.ID] = &cp
		return nil
	})
}

// GetByID returns the item or nil if absent.
func (r *ItemRepo) GetByID(ctx context.Context, id int64) (*domain.Item, error) {
	var out *domain.Item
	err := r.store.read(ctx, func() error {
		out = r.get(id)
		return nil
	})
	return out, err
}

// GetByIDForUpdate returns the item within tx.
func (r *ItemRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Item, error) {
	var out *domain.Item
	err := r.store.inTx(ctx, tx, func() error {
		out = r.get(id)
		return nil
	})
	return out, err
}

func (r *ItemRepo) get(id int64) *domain.Item {
	i, ok := r.store.items[id]
	if !ok {
		return nil
	}
	cp := *i
	return &cp
}

// List returns one page of items ordered by id, optionally for a single merchant.
func (r *ItemRepo) List(ctx context.Context, filter ports.ItemFilter, page ports.Page) ([]domain.Item, int64, error) {
	var (
		out   []domain.Item
		total int64
	)
	err := r.store.read(ctx, func() error {
		var all []domain.Item
		for _, i := range r.store.items {
			if filter.MerchantID != nil && i.MerchantID != *filter.MerchantID {
				continue
			}
			all = append(all, *i)
		}
		sortByID(all, func(i domain.Item) int64 { return i.ID })
		total = int64(len(all))
		out = paginate(all, page)
		return nil
	})
	return out, total, err
}

// Update writes the mutable item fields within a transaction.
func (r *ItemRepo) Update(ctx context.Context, tx pgx.Tx, i *domain.Item) error {
	s := r.store
	return s.inTx(ctx, tx, func() error {
		existing, ok := s.items[i.ID]
		if !ok {
			return fmt.Errorf("item %d: %w", i.ID, ports.ErrNotFound)
		}
		existing.Name = i.Name
		existing.Description = i.Description
		existing.Price = i.Price
		existing.Tax = i.Tax
		existing.StockQuantity = i.StockQuantity
		existing.UpdatedAt = s.now()
		i.UpdatedAt = existing.UpdatedAt
		return nil
	})
}

// DecrementStock removes quantity units only while stock still covers them.
func (r *ItemRepo) DecrementStock(ctx context.Context, tx pgx.Tx, id int64, quantity int64) error {
	s := r.store
	return s.inTx(ctx, tx, func() error {
		i, ok := s.items[id]
		if !ok || i.StockQuantity < quantity {
			return fmt.Errorf("decrement stock of item %d: %w", id, ports.ErrConflict)
		}
		i.StockQuantity -= quantity
		i.UpdatedAt = s.now()
		return nil
	})
}

// Delete removes an item that no transaction references.
func (r *ItemRepo) Delete(ctx context.Context, id int64) error {
	s := r.store
	return s.write(ctx, func() error {
		if _, ok := s.items[id]; !ok {
			return fmt.Errorf("item %d: %w", id, ports.ErrNotFound)
		}
		for _, t := range s.transactions {
			if t.ItemID == id {
				return fmt.Errorf("delete item %d: transaction %d: %w", id, t.ID, ports.ErrForeignKey)
			}
		}
		delete(s.items, id)
		return nil
	})
}
