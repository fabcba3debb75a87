package purchasing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/quartermaster-app/quartermaster/internal/ledger"
	"github.com/quartermaster-app/quartermaster/internal/platform/db"
	"github.com/quartermaster-app/quartermaster/internal/shared"
)

// Repository persists purchasing data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service. The
// Ledger view shares the same underlying transaction, so order writes
// and stock movements commit or roll back together.
type TxRepository interface {
	InsertPurchase(ctx context.Context, purchase Purchase) (int64, error)
	InsertPurchaseItem(ctx context.Context, item PurchaseItem) (int64, error)
	GetPurchaseForUpdate(ctx context.Context, id int64) (Purchase, error)
	GetItemsForUpdate(ctx context.Context, purchaseID int64) ([]PurchaseItem, error)
	AddReceivedQuantity(ctx context.Context, itemID int64, qty float64) error
	UpdateStatus(ctx context.Context, id int64, status Status) error
	DeletePurchase(ctx context.Context, id int64) error
	Ledger() ledger.TxRepository
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("purchasing repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// GetPurchase loads a purchase with its lines.
func (r *Repository) GetPurchase(ctx context.Context, id int64) (Purchase, []PurchaseItem, error) {
	var p Purchase
	err := r.pool.QueryRow(ctx, `SELECT id, supplier_name, total_amount, status, bc_number, receipt_url, created_at
FROM purchases WHERE id=$1`, id).
		Scan(&p.ID, &p.SupplierName, &p.TotalAmount, &p.Status, &p.BCNumber, &p.ReceiptURL, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Purchase{}, nil, &shared.NotFoundError{Entity: "purchase", ID: id}
		}
		return Purchase{}, nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT id, purchase_id, product_id, store_id, quantity, unit_price, received_quantity
FROM purchase_items WHERE purchase_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return Purchase{}, nil, err
	}
	defer rows.Close()

	items := []PurchaseItem{}
	for rows.Next() {
		var item PurchaseItem
		if err := rows.Scan(&item.ID, &item.PurchaseID, &item.ProductID, &item.StoreID, &item.Quantity, &item.UnitPrice, &item.ReceivedQuantity); err != nil {
			return Purchase{}, nil, err
		}
		items = append(items, item)
	}
	return p, items, rows.Err()
}

// ListPurchases returns order headers, newest first.
func (r *Repository) ListPurchases(ctx context.Context, limit int) ([]Purchase, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT id, supplier_name, total_amount, status, bc_number, receipt_url, created_at
FROM purchases ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	purchases := []Purchase{}
	for rows.Next() {
		var p Purchase
		if err := rows.Scan(&p.ID, &p.SupplierName, &p.TotalAmount, &p.Status, &p.BCNumber, &p.ReceiptURL, &p.CreatedAt); err != nil {
			return nil, err
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}

// StoreReferenced reports whether any purchase line references the
// store; stores so referenced cannot be deleted.
func (r *Repository) StoreReferenced(ctx context.Context, storeID int64) (bool, error) {
	var referenced bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM purchase_items WHERE store_id=$1)`, storeID).Scan(&referenced)
	return referenced, err
}

func (r *txRepository) InsertPurchase(ctx context.Context, purchase Purchase) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO purchases (supplier_name, total_amount, status, bc_number, receipt_url)
VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		purchase.SupplierName, purchase.TotalAmount, string(purchase.Status), purchase.BCNumber, purchase.ReceiptURL).Scan(&id)
	return id, err
}

func (r *txRepository) InsertPurchaseItem(ctx context.Context, item PurchaseItem) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO purchase_items (purchase_id, product_id, store_id, quantity, unit_price, received_quantity)
VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
		item.PurchaseID, item.ProductID, item.StoreID, item.Quantity, item.UnitPrice, item.ReceivedQuantity).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return 0, shared.Validationf("lines", "unknown product or store reference")
		}
		return 0, err
	}
	return id, nil
}

func (r *txRepository) GetPurchaseForUpdate(ctx context.Context, id int64) (Purchase, error) {
	var p Purchase
	err := r.tx.QueryRow(ctx, `SELECT id, supplier_name, total_amount, status, bc_number, receipt_url, created_at
FROM purchases WHERE id=$1 FOR UPDATE`, id).
		Scan(&p.ID, &p.SupplierName, &p.TotalAmount, &p.Status, &p.BCNumber, &p.ReceiptURL, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Purchase{}, &shared.NotFoundError{Entity: "purchase", ID: id}
		}
		return Purchase{}, err
	}
	return p, nil
}

func (r *txRepository) GetItemsForUpdate(ctx context.Context, purchaseID int64) ([]PurchaseItem, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, purchase_id, product_id, store_id, quantity, unit_price, received_quantity
FROM purchase_items WHERE purchase_id=$1 ORDER BY id ASC FOR UPDATE`, purchaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []PurchaseItem{}
	for rows.Next() {
		var item PurchaseItem
		if err := rows.Scan(&item.ID, &item.PurchaseID, &item.ProductID, &item.StoreID, &item.Quantity, &item.UnitPrice, &item.ReceivedQuantity); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *txRepository) AddReceivedQuantity(ctx context.Context, itemID int64, qty float64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE purchase_items SET received_quantity = received_quantity + $2 WHERE id=$1`, itemID, qty)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23514" {
			return &shared.OverReceiptError{PurchaseItemID: itemID, Requested: qty}
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "purchase item", ID: itemID}
	}
	return nil
}

func (r *txRepository) UpdateStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.tx.Exec(ctx, `UPDATE purchases SET status=$2 WHERE id=$1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "purchase", ID: id}
	}
	return nil
}

func (r *txRepository) DeletePurchase(ctx context.Context, id int64) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM purchases WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "purchase", ID: id}
	}
	return nil
}

func (r *txRepository) Ledger() ledger.TxRepository {
	return ledger.NewTxRepository(r.tx)
}
