package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

const driftEpsilon = 1e-6

// ReconcileJob compares every materialized balance row against the
// sum of its movements. Drift should never happen since both are
// written in one transaction; a warning here means operator surgery
// or a bug, and the job only reports, never repairs.
type ReconcileJob struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewReconcileJob constructs the job.
func NewReconcileJob(pool *pgxpool.Pool, logger *slog.Logger) *ReconcileJob {
	return &ReconcileJob{pool: pool, logger: logger}
}

// Handle processes TaskLedgerReconcile tasks.
func (j *ReconcileJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload ReconcilePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	query := `SELECT b.product_id, b.store_id, b.qty,
COALESCE((SELECT SUM(CASE WHEN m.movement_type IN ('IN','TRANSFER_IN','ADJUST') THEN m.quantity ELSE -m.quantity END)
          FROM stock_movements m
          WHERE m.product_id = b.product_id AND m.store_id = b.store_id), 0) AS ledger_qty
FROM stock_balances b`
	args := []any{}
	if payload.StoreID > 0 {
		query += ` WHERE b.store_id = $1`
		args = append(args, payload.StoreID)
	}

	rows, err := j.pool.Query(ctx, query, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	var checked, drifted int
	for rows.Next() {
		var productID, storeID int64
		var balanceQty, ledgerQty float64
		if err := rows.Scan(&productID, &storeID, &balanceQty, &ledgerQty); err != nil {
			return err
		}
		checked++
		if math.Abs(balanceQty-ledgerQty) > driftEpsilon {
			drifted++
			j.logger.Warn("stock balance drift",
				slog.Int64("product_id", productID),
				slog.Int64("store_id", storeID),
				slog.Float64("balance_qty", balanceQty),
				slog.Float64("ledger_qty", ledgerQty),
			)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	j.logger.Info("ledger reconcile finished", slog.Int("checked", checked), slog.Int("drifted", drifted))
	return nil
}
