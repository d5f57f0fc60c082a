package memory

import (
	"context"
	"fmt"

	"marketplace-backend/internal/core/domain"
	"marketplace-backend/internal/core/ports"
)

// MerchantRepo implements ports.MerchantRepository.
type MerchantRepo struct {
	store *Store
}

// NewMerchantRepo creates a new MerchantRepo.
func NewMerchantRepo(store *Store) *MerchantRepo {
	return &MerchantRepo{store: store}
}

// Create inserts a merchant owned by an existing user.
func (r *MerchantRepo) Create(ctx context.Context, m *domain.Merchant) error {
	s := r.store
	return s.write(ctx, func() error {
		if _, ok := s.users[m.OwnerID]; !ok {
			return fmt.Errorf("insert merchant: owner %d: %w", m.OwnerID, ports.ErrForeignKey)
		}
		s.nextMerchant++
		now := s.now()
		m.ID, m.CreatedAt, m.UpdatedAt = s.nextMerchant, now, now
		cp := *m
		s.merchants[m.ID] = &cp
		return nil
	})
}

// GetByID returns the merchant or nil if absent.
func (r *MerchantRepo) GetByID(ctx context.Context, id int64) (*domain.Merchant, error) {
	var out *domain.Merchant
	err := r.store.read(ctx, func() error {
		if m, ok := r.store.merchants[id]; ok {
			cp := *m
			out = &cp
		}
		return nil
	})
	return out, err
}

// List returns one page of merchants ordered by id.
func (r *MerchantRepo) List(ctx context.Context, page ports.Page) ([]domain.Merchant, int64, error) {
	var (
		out   []domain.Merchant
		total int64
	)
	err := r.store.read(ctx, func() error {
		all := make([]domain.Merchant, 0, len(r.store.merchants))
		for _, m := range r.store.merchants {
			all = append(all, *m)
		}
		sortByID(all, func(m domain.Merchant) int64 { return m.ID })
		total = int64(len(all))
		out = paginate(all, page)
		return nil
	})
	return out, total, err
}

// Update writes the mutable merchant fields.
func (r *MerchantRepo) Update(ctx context.Context, m *domain.Merchant) error {
	s := r.store
	return s.write(ctx, func() error {
		existing, ok := s.merchants[m.ID]
		if !ok {
			return fmt.Errorf("merchant %d: %w", m.ID, ports.ErrNotFound)
		}
		m.OwnerID, m.CreatedAt = existing.OwnerID, existing.CreatedAt
		m.UpdatedAt = s.now()
		cp := *m
		s.merchants[m.ID] = &cp
		return nil
	})
}

// Delete removes a merchant that no wallet or item references.
func (r *MerchantRepo) Delete(ctx context.Context, id int64) error {
	s := r.store
	return s.write(ctx, func() error {
		if _, ok := s.merchants[id]; !ok {
			return fmt.Errorf("merchant %d: %w", id, ports.ErrNotFound)
		}
		for _, w := range s.wallets {
			if w.MerchantID == id {
				return fmt.Errorf("delete merchant %d: wallet %d: %w", id, w.ID, ports.ErrForeignKey)
			}
		}
		for _, i := range s.items {
			if i.MerchantID == id {
				return fmt.Errorf("delete merchant %d: item %d: %w", id, i.ID, ports.ErrForeignKey)
			}
		}
		delete(s.merchants, id)
		return nil
	})
}
