package sales

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

// Repository persists sales data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes transactional operations used by service. The
// Ledger view shares the same underlying transaction, so sale writes
// and stock movements commit or roll back together.
type TxRepository interface {
	InsertSale(ctx context.Context, sale Sale) (int64, error)
	InsertSaleItem(ctx context.Context, item SaleItem) (int64, error)
	GetSaleForUpdate(ctx context.Context, id int64) (Sale, error)
	GetItemsForUpdate(ctx context.Context, saleID int64) ([]SaleItem, error)
	SetItemQuantity(ctx context.Context, itemID int64, qty float64) error
	UpdateStatus(ctx context.Context, id int64, status string) error
	DeleteSale(ctx context.Context, id int64) error
	Ledger() ledger.TxRepository
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("sales repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// GetSale loads a sale with its lines.
func (r *Repository) GetSale(ctx context.Context, id int64) (Sale, []SaleItem, error) {
	var s Sale
	err := r.pool.QueryRow(ctx, `SELECT id, customer_name, customer_phone, customer_address, total_amount, status, created_at
FROM sales WHERE id=$1`, id).
		Scan(&s.ID, &s.CustomerName, &s.CustomerPhone, &s.CustomerAddress, &s.TotalAmount, &s.Status, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, nil, &shared.NotFoundError{Entity: "sale", ID: id}
		}
		return Sale{}, nil, err
	}

	rows, err := r.pool.Query(ctx, `SELECT id, sale_id, product_id, store_id, quantity, unit_price
FROM sale_items WHERE sale_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return Sale{}, nil, err
	}
	defer rows.Close()

	items := []SaleItem{}
	for rows.Next() {
		var item SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.StoreID, &item.Quantity, &item.UnitPrice); err != nil {
			return Sale{}, nil, err
		}
		items = append(items, item)
	}
	return s, items, rows.Err()
}

// ListSales returns sale headers, newest first.
func (r *Repository) ListSales(ctx context.Context, limit int) ([]Sale, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT id, customer_name, customer_phone, customer_address, total_amount, status, created_at
FROM sales ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sales := []Sale{}
	for rows.Next() {
		var s Sale
		if err := rows.Scan(&s.ID, &s.CustomerName, &s.CustomerPhone, &s.CustomerAddress, &s.TotalAmount, &s.Status, &s.CreatedAt); err != nil {
			return nil, err
		}
		sales = append(sales, s)
	}
	return sales, rows.Err()
}

// StoreReferenced reports whether any sale line references the store.
func (r *Repository) StoreReferenced(ctx context.Context, storeID int64) (bool, error) {
	var referenced bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM sale_items WHERE store_id=$1)`, storeID).Scan(&referenced)
	return referenced, err
}

func (r *txRepository) InsertSale(ctx context.Context, sale Sale) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO sales (customer_name, customer_phone, customer_address, total_amount, status)
VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		sale.CustomerName, sale.CustomerPhone, sale.CustomerAddress, sale.TotalAmount, sale.Status).Scan(&id)
	return id, err
}

func (r *txRepository) InsertSaleItem(ctx context.Context, item SaleItem) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO sale_items (sale_id, product_id, store_id, quantity, unit_price)
VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		item.SaleID, item.ProductID, item.StoreID, item.Quantity, item.UnitPrice).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return 0, shared.Validationf("lines", "unknown product or store reference")
		}
		return 0, err
	}
	return id, nil
}

func (r *txRepository) GetSaleForUpdate(ctx context.Context, id int64) (Sale, error) {
	var s Sale
	err := r.tx.QueryRow(ctx, `SELECT id, customer_name, customer_phone, customer_address, total_amount, status, created_at
FROM sales WHERE id=$1 FOR UPDATE`, id).
		Scan(&s.ID, &s.CustomerName, &s.CustomerPhone, &s.CustomerAddress, &s.TotalAmount, &s.Status, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, &shared.NotFoundError{Entity: "sale", ID: id}
		}
		return Sale{}, err
	}
	return s, nil
}

func (r *txRepository) GetItemsForUpdate(ctx context.Context, saleID int64) ([]SaleItem, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, sale_id, product_id, store_id, quantity, unit_price
FROM sale_items WHERE sale_id=$1 ORDER BY id ASC FOR UPDATE`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []SaleItem{}
	for rows.Next() {
		var item SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductID, &item.StoreID, &item.Quantity, &item.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *txRepository) SetItemQuantity(ctx context.Context, itemID int64, qty float64) error {
	tag, err := r.tx.Exec(ctx, `UPDATE sale_items SET quantity=$2 WHERE id=$1`, itemID, qty)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "sale item", ID: itemID}
	}
	return nil
}

func (r *txRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	tag, err := r.tx.Exec(ctx, `UPDATE sales SET status=$2 WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "sale", ID: id}
	}
	return nil
}

func (r *txRepository) DeleteSale(ctx context.Context, id int64) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM sales WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return &shared.NotFoundError{Entity: "sale", ID: id}
	}
	return nil
}

func (r *txRepository) Ledger() ledger.TxRepository {
	return ledger.NewTxRepository(r.tx)
}
