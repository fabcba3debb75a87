package ledger

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quartermaster-app/quartermaster/internal/platform/db"
	"github.com/quartermaster-app/quartermaster/internal/shared"
)

// signedQty is the aggregation rule of the ledger: IN-like types and
// signed ADJUST rows add, OUT-like types subtract.
const signedQty = `CASE WHEN movement_type IN ('IN','TRANSFER_IN','ADJUST') THEN quantity ELSE -quantity END`

// Repository persists ledger data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the transactional operations movement posting
// needs. Purchasing and sales wrap their own pgx.Tx with
// NewTxRepository so order writes and movement writes share one
// transaction.
type TxRepository interface {
	GetBalanceForUpdate(ctx context.Context, productID, storeID int64) (Balance, error)
	UpsertBalance(ctx context.Context, balance Balance) error
	InsertMovement(ctx context.Context, movement Movement) (int64, error)
}

type txRepository struct {
	tx pgx.Tx
}

// NewTxRepository adapts an open pgx transaction into a TxRepository.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// CurrentStock sums live over all movements for the pair; pairs with
// no movements aggregate to zero rather than erroring.
func (r *Repository) CurrentStock(ctx context.Context, productID, storeID int64) (float64, error) {
	var qty float64
	err := r.pool.QueryRow(ctx, `SELECT COALESCE(SUM(`+signedQty+`), 0)
FROM stock_movements
WHERE product_id=$1 AND store_id=$2`, productID, storeID).Scan(&qty)
	if err != nil {
		return 0, err
	}
	return qty, nil
}

// StoreInventory aggregates per product for one store, hides products
// whose movements cancel to exactly zero, and orders by product name.
func (r *Repository) StoreInventory(ctx context.Context, storeID int64) ([]InventoryRow, error) {
	rows, err := r.pool.Query(ctx, `SELECT m.product_id, i.name, SUM(`+signedQty+`) AS current_stock
FROM stock_movements m
JOIN items i ON i.id = m.product_id
WHERE m.store_id=$1
GROUP BY m.product_id, i.name
HAVING SUM(`+signedQty+`) <> 0
ORDER BY i.name ASC`, storeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	inventory := []InventoryRow{}
	for rows.Next() {
		var row InventoryRow
		if err := rows.Scan(&row.ProductID, &row.Name, &row.CurrentStock); err != nil {
			return nil, err
		}
		inventory = append(inventory, row)
	}
	return inventory, rows.Err()
}

// ListMovements returns movement history for a (product, store) pair,
// oldest first.
func (r *Repository) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT id, product_id, store_id, movement_type, quantity, reference, created_at
FROM stock_movements
WHERE product_id=$1 AND store_id=$2
ORDER BY created_at ASC, id ASC
LIMIT $3`, filter.ProductID, filter.StoreID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	movements := []Movement{}
	for rows.Next() {
		var m Movement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.StoreID, &m.Type, &m.Quantity, &m.Reference, &m.CreatedAt); err != nil {
			return nil, err
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func (r *txRepository) GetBalanceForUpdate(ctx context.Context, productID, storeID int64) (Balance, error) {
	var balance Balance
	err := r.tx.QueryRow(ctx, `SELECT product_id, store_id, qty, updated_at
FROM stock_balances
WHERE product_id=$1 AND store_id=$2
FOR UPDATE`, productID, storeID).Scan(&balance.ProductID, &balance.StoreID, &balance.Qty, &balance.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{ProductID: productID, StoreID: storeID}, ErrBalanceNotFound
		}
		return Balance{}, err
	}
	return balance, nil
}

func (r *txRepository) UpsertBalance(ctx context.Context, balance Balance) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO stock_balances (product_id, store_id, qty, updated_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (product_id, store_id) DO UPDATE SET qty=EXCLUDED.qty, updated_at=NOW()`,
		balance.ProductID, balance.StoreID, balance.Qty)
	return err
}

func (r *txRepository) InsertMovement(ctx context.Context, movement Movement) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_movements (product_id, store_id, movement_type, quantity, reference, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`,
		movement.ProductID, movement.StoreID, string(movement.Type), movement.Quantity, movement.Reference, movement.CreatedAt).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23503":
				return 0, shared.Validationf("movement", "unknown product or store reference")
			case "23514":
				return 0, shared.Validationf("quantity", "movement quantity violates sign rules")
			}
		}
		return 0, err
	}
	return id, nil
}
