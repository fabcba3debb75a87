package items

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quartermaster-app/quartermaster/internal/shared"
)

// Repository persists items in PostgreSQL. Soft-deleted rows stay in
// the table for movement history but are invisible to all reads.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const itemColumns = `id, name, category, purchase_price, sale_price, created_at, updated_at`

func scanItem(row pgx.Row) (Item, error) {
	var item Item
	err := row.Scan(&item.ID, &item.Name, &item.Category, &item.PurchasePrice, &item.SalePrice, &item.CreatedAt, &item.UpdatedAt)
	return item, err
}

// Insert creates an item. A live duplicate of canonical name within
// the category maps to a conflict error.
func (r *Repository) Insert(ctx context.Context, input Input, canonical string) (Item, error) {
	item, err := scanItem(r.pool.QueryRow(ctx, `INSERT INTO items (name, canonical_name, category, purchase_price, sale_price)
VALUES ($1, $2, $3, $4, $5)
RETURNING `+itemColumns,
		input.Name, canonical, input.Category, input.PurchasePrice, input.SalePrice))
	if err != nil {
		return Item{}, mapItemError(err)
	}
	return item, nil
}

// Update rewrites the item in place.
func (r *Repository) Update(ctx context.Context, id int64, input Input, canonical string) (Item, error) {
	item, err := scanItem(r.pool.QueryRow(ctx, `UPDATE items
SET name=$2, canonical_name=$3, category=$4, purchase_price=$5, sale_price=$6, updated_at=NOW()
WHERE id=$1 AND deleted_at IS NULL
RETURNING `+itemColumns,
		id, input.Name, canonical, input.Category, input.PurchasePrice, input.SalePrice))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, &shared.NotFoundError{Entity: "item", ID: id}
		}
		return Item{}, mapItemError(err)
	}
	return item, nil
}

// SoftDelete marks the item deleted, freeing its name for reuse.
func (r *Repository) SoftDelete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `UPDATE items SET deleted_at=NOW(), updated_at=NOW() WHERE id=$1 AND deleted_at IS NULL`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "item", ID: id}
	}
	return nil
}

// Get loads a live item.
func (r *Repository) Get(ctx context.Context, id int64) (Item, error) {
	item, err := scanItem(r.pool.QueryRow(ctx, `SELECT `+itemColumns+` FROM items WHERE id=$1 AND deleted_at IS NULL`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, &shared.NotFoundError{Entity: "item", ID: id}
		}
		return Item{}, err
	}
	return item, nil
}

// List returns live items ordered by name.
func (r *Repository) List(ctx context.Context, limit int) ([]Item, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT `+itemColumns+` FROM items WHERE deleted_at IS NULL ORDER BY name ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []Item{}
	for rows.Next() {
		var item Item
		if err := rows.Scan(&item.ID, &item.Name, &item.Category, &item.PurchasePrice, &item.SalePrice, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	return result, rows.Err()
}

func mapItemError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &shared.ConflictError{Resource: "item", Message: "an item with this name already exists in the category"}
	}
	return err
}
