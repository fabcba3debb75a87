package stores

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quartermaster-app/quartermaster/internal/shared"
)

// Repository persists stores in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const storeColumns = `id, code, name, zones, created_at, updated_at`

// Insert creates a store. The code is drawn from store_code_seq in
// the same statement, so concurrent creates never collide.
func (r *Repository) Insert(ctx context.Context, input Input, canonical string) (Store, error) {
	var s Store
	err := r.pool.QueryRow(ctx, `INSERT INTO stores (code, name, canonical_name, zones)
VALUES ('ST-' || LPAD(nextval('store_code_seq')::TEXT, 3, '0'), $1, $2, $3)
RETURNING `+storeColumns,
		input.Name, canonical, input.Zones).
		Scan(&s.ID, &s.Code, &s.Name, &s.Zones, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return Store{}, mapStoreError(err)
	}
	return s, nil
}

// Update rewrites name and zones. The code is immutable.
func (r *Repository) Update(ctx context.Context, id int64, input Input, canonical string) (Store, error) {
	var s Store
	err := r.pool.QueryRow(ctx, `UPDATE stores
SET name=$2, canonical_name=$3, zones=$4, updated_at=NOW()
WHERE id=$1
RETURNING `+storeColumns,
		id, input.Name, canonical, input.Zones).
		Scan(&s.ID, &s.Code, &s.Name, &s.Zones, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Store{}, &shared.NotFoundError{Entity: "store", ID: id}
		}
		return Store{}, mapStoreError(err)
	}
	return s, nil
}

// Delete removes the store row. Foreign keys from movements and order
// lines surface as a conflict.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM stores WHERE id=$1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return &shared.ConflictError{Resource: "store", Message: "store is referenced by stock or order history"}
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "store", ID: id}
	}
	return nil
}

// Get loads one store.
func (r *Repository) Get(ctx context.Context, id int64) (Store, error) {
	var s Store
	err := r.pool.QueryRow(ctx, `SELECT `+storeColumns+` FROM stores WHERE id=$1`, id).
		Scan(&s.ID, &s.Code, &s.Name, &s.Zones, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Store{}, &shared.NotFoundError{Entity: "store", ID: id}
		}
		return Store{}, err
	}
	return s, nil
}

// List returns stores ordered by code.
func (r *Repository) List(ctx context.Context, limit int) ([]Store, error) {
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT `+storeColumns+` FROM stores ORDER BY code ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []Store{}
	for rows.Next() {
		var s Store
		if err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.Zones, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func mapStoreError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return &shared.ConflictError{Resource: "store", Message: "a store with this name already exists"}
	}
	return err
}
