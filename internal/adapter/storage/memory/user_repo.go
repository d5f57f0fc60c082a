package memory

import (
	"context"
	"fmt"
	"time"

	"marketplace-backend/internal/core/domain"
	"marketplace-backend/internal/core/ports"
)

// UserRepo implements ports.UserRepository.
type UserRepo struct {
	store *Store
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(store *Store) *UserRepo {
	return &UserRepo{store: store}
}

// Create inserts a user, rejecting duplicate usernames.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	s := r.store
	return s.write(ctx, func() error {
		for _, existing := range s.users {
			if existing.Username == u.Username {
				return fmt.Errorf("insert user %q: %w", u.Username, ports.ErrDuplicate)
			}
		}
		s.nextUser++
		now := s.now()
		u.ID, u.CreatedAt, u.UpdatedAt = s.nextUser, now, now
		s.users[u.ID] = copyUser(u)
		return nil
	})
}

// GetByID returns the user or nil if absent.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	var out *domain.User
	err := r.store.read(ctx, func() error {
		if u, ok := r.store.users[id]; ok {
			out = copyUser(u)
		}
		return nil
	})
	return out, err
}

// GetByUsername returns the user or nil if absent.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	var out *domain.User
	err := r.store.read(ctx, func() error {
		for _, u := range r.store.users {
			if u.Username == username {
				out = copyUser(u)
				break
			}
		}
		return nil
	})
	return out, err
}

// UpdatePassword replaces the stored password hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id int64, hashedPassword string) error {
	s := r.store
	return s.write(ctx, func() error {
		u, ok := s.users[id]
		if !ok {
			return fmt.Errorf("user %d: %w", id, ports.ErrNotFound)
		}
		u.HashedPassword = hashedPassword
		u.UpdatedAt = s.now()
		return nil
	})
}

// UpdateLastLogin records a successful login time.
func (r *UserRepo) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	s := r.store
	return s.write(ctx, func() error {
		u, ok := s.users[id]
		if !ok {
			return fmt.Errorf("user %d: %w", id, ports.ErrNotFound)
		}
		u.LastLoginAt = &at
		return nil
	})
}
