package postgres

import (
	"context"
	"errors"
	"fmt"

	"marketplace-backend/internal/core/domain"
	"marketplace-backend/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

const merchantColumns = `id, owner_id, name, description, telephone, email, tax_id, created_at, updated_at`

// MerchantRepo implements ports.MerchantRepository.
type MerchantRepo struct {
	pool Pool
}

// NewMerchantRepo creates a new MerchantRepo.
func NewMerchantRepo(pool Pool) *MerchantRepo {
	return &MerchantRepo{pool: pool}
}

// Create inserts a merchant and fills in its generated fields.
func (r *MerchantRepo) Create(ctx context.Context, m *domain.Merchant) error {
	query := `INSERT INTO merchants (owner_id, name, description, telephone, email, tax_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		m.OwnerID, m.Name, m.Description, m.Telephone, m.Email, m.TaxID,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert merchant: %w", mapPgError(err))
	}
	return nil
}

// GetByID fetches a merchant by id.
func (r *MerchantRepo) GetByID(ctx context.Context, id int64) (*domain.Merchant, error) {
	query := `SELECT ` + merchantColumns + ` FROM merchants WHERE id = $1`

	m := &domain.Merchant{}
	err := scanMerchant(r.pool.QueryRow(ctx, query, id), m)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get merchant by id: %w", err)
	}
	return m, nil
}

// List returns one page of merchants ordered by id.
func (r *MerchantRepo) List(ctx context.Context, page ports.Page) ([]domain.Merchant, int64, error) {
	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM merchants`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count merchants: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+merchantColumns+` FROM merchants ORDER BY id ASC LIMIT $1 OFFSET $2`,
		page.Size, page.Offset(),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list merchants: %w", err)
	}
	defer rows.Close()

	merchants := []domain.Merchant{}
	for rows.Next() {
		var m domain.Merchant
		if err := scanMerchant(rows, &m); err != nil {
			return nil, 0, fmt.Errorf("scan merchant row: %w", err)
		}
		merchants = append(merchants, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate merchant rows: %w", err)
	}
	return merchants, total, nil
}

// Update writes the mutable merchant fields.
func (r *MerchantRepo) Update(ctx context.Context, m *domain.Merchant) error {
	query := `UPDATE merchants SET name = $1, description = $2, telephone = $3, email = $4, tax_id = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at`

	err := r.pool.QueryRow(ctx, query,
		m.Name, m.Description, m.Telephone, m.Email, m.TaxID, m.ID,
	).Scan(&m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("merchant %d: %w", m.ID, ports.ErrNotFound)
		}
		return fmt.Errorf("update merchant: %w", mapPgError(err))
	}
	return nil
}

// Delete removes a merchant. Foreign keys reject the delete while wallets or items remain.
func (r *MerchantRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM merchants WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete merchant: %w", mapPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("merchant %d: %w", id, ports.ErrNotFound)
	}
	return nil
}

func scanMerchant(row pgx.Row, m *domain.Merchant) error {
	return row.Scan(
		&m.ID, &m.OwnerID, &m.Name, &m.Description, &m.Telephone,
		&m.Email, &m.TaxID, &m.CreatedAt, &m.UpdatedAt,
	)
}
