package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"marketplace-backend/internal/core/domain"
	"marketplace-backend/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

const userColumns = `id, username, email, first_name, last_name, hashed_password, disabled, roles, last_login_at, created_at, updated_at`

// UserRepo implements ports.UserRepository.
type UserRepo struct {
	pool Pool
}

// NewUserRepo creates a new UserRepo.
func NewUserRepo(pool Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// Create inserts a user and fills in its generated fields.
func (r *UserRepo) Create(ctx context.Context, u *domain.User) error {
	query := `INSERT INTO users (username, email, first_name, last_name, hashed_password, disabled, roles)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		u.Username, u.Email, u.FirstName, u.LastName,
		u.HashedPassword, u.Disabled, roleNames(u.Roles),
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", mapPgError(err))
	}
	return nil
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.pool.QueryRow(ctx, query, id))
}

// GetByUsername fetches a user by its unique username.
func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(r.pool.QueryRow(ctx, query, username))
}

// UpdatePassword stores a new password hash.
func (r *UserRepo) UpdatePassword(ctx context.Context, id int64, hashedPassword string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET hashed_password = $1, updated_at = NOW() WHERE id = $2`,
		hashedPassword, id,
	)
	if err != nil {
		return fmt.Errorf("update user password: %w", mapPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("user %d: %w", id, ports.ErrNotFound)
	}
	return nil
}

// UpdateLastLogin stamps the last successful login.
func (r *UserRepo) UpdateLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login_at = $1 WHERE id = $2`, at, id)
	if err != nil {
		return fmt.Errorf("update last login: %w", mapPgError(err))
	}
	return nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	u := &domain.User{}
	var roles []string
	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName,
		&u.HashedPassword, &u.Disabled, &roles, &u.LastLoginAt,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	for _, name := range roles {
		role, err := domain.ParseRole(name)
		if err != nil {
			return nil, fmt.Errorf("user %d: %w", u.ID, err)
		}
		u.Roles = append(u.Roles, role)
	}
	return u, nil
}

func roleNames(roles []domain.Role) []string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return names
}
