package postgres

import (
	"context"
	"errors"
	"fmt"

	"marketplace-backend/internal/core/domain"
	"marketplace-backend/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

const itemColumns = `id, merchant_id, name, description, price, tax, stock_quantity, created_at, updated_at`

// ItemRepo implements ports.ItemRepository.
type ItemRepo struct {
	pool Pool
}

// NewItemRepo creates a new ItemRepo.
func NewItemRepo(pool Pool) *ItemRepo {
	return &ItemRepo{pool: pool}
}

// Create inserts an item and fills in its generated fields.
func (r *ItemRepo) Create(ctx context.Context, i *domain.Item) error {
	query := `INSERT INTO items (merchant_id, name, description, price, tax, stock_quantity)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		i.MerchantID, i.Name, i.Description, i.Price, i.Tax, i.StockQuantity,
	).Scan(&i.ID, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert item: %w", mapPgError(err))
	}
	return nil
}

// GetByID fetches an item by id (without locking).
func (r *ItemRepo) GetByID(ctx context.Context, id int64) (*domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1`
	return fetchItem(r.pool.QueryRow(ctx, query, id), "get item by id")
}

// GetByIDForUpdate fetches an item by id with pessimistic locking.
// This MUST be called within a transaction.
func (r *ItemRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id int64) (*domain.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE id = $1 FOR UPDATE`
	return fetchItem(tx.QueryRow(ctx, query, id), "get item for update")
}

// List returns one page of items ordered by id, optionally for a single merchant.
func (r *ItemRepo) List(ctx context.Context, filter ports.ItemFilter, page ports.Page) ([]domain.Item, int64, error) {
	where := ""
	var args []any
	argIdx := 1

	if filter.MerchantID != nil {
		where = fmt.Sprintf("WHERE merchant_id = $%d", argIdx)
		args = append(args, *filter.MerchantID)
		argIdx++
	}

	var total int64
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM items "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count items: %w", err)
	}

	dataQuery := fmt.Sprintf(`SELECT %s FROM items %s ORDER BY id ASC LIMIT $%d OFFSET $%d`,
		itemColumns, where, argIdx, argIdx+1)
	args = append(args, page.Size, page.Offset())

	rows, err := r.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	items := []domain.Item{}
	for rows.Next() {
		var i domain.Item
		if err := scanItem(rows, &i); err != nil {
			return nil, 0, fmt.Errorf("scan item row: %w", err)
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate item rows: %w", err)
	}
	return items, total, nil
}

// Update writes the mutable item fields within a transaction.
func (r *ItemRepo) Update(ctx context.Context, tx pgx.Tx, i *domain.Item) error {
	query := `UPDATE items SET name = $1, description = $2, price = $3, tax = $4, stock_quantity = $5, updated_at = NOW()
		WHERE id = $6
		RETURNING updated_at`

	err := tx.QueryRow(ctx, query,
		i.Name, i.Description, i.Price, i.Tax, i.StockQuantity, i.ID,
	).Scan(&i.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("item %d: %w", i.ID, ports.ErrNotFound)
		}
		return fmt.Errorf("update item: %w", mapPgError(err))
	}
	return nil
}

// DecrementStock removes quantity units only while stock still covers them.
func (r *ItemRepo) DecrementStock(ctx context.Context, tx pgx.Tx, id int64, quantity int64) error {
	query := `UPDATE items SET stock_quantity = stock_quantity - $1, updated_at = NOW() WHERE id = $2 AND stock_quantity >= $1`

	tag, err := tx.Exec(ctx, query, quantity, id)
	if err != nil {
		return fmt.Errorf("decrement stock: %w", mapPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("decrement stock of item %d: %w", id, ports.ErrConflict)
	}
	return nil
}

// Delete removes an item. Foreign keys reject the delete while transactions reference it.
func (r *ItemRepo) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete item: %w", mapPgError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("item %d: %w", id, ports.ErrNotFound)
	}
	return nil
}

func fetchItem(row pgx.Row, op string) (*domain.Item, error) {
	i := &domain.Item{}
	if err := scanItem(row, i); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%s: %w", op, mapPgError(err))
	}
	return i, nil
}

func scanItem(row pgx.Row, i *domain.Item) error {
	return row.Scan(
		&i.ID, &i.MerchantID, &i.Name, &i.Description,
		&i.Price, &i.Tax, &i.StockQuantity, &i.CreatedAt, &i.UpdatedAt,
	)
}
