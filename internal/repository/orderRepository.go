package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/RaikyD/orders-etl-service/internal/domain"
	"github.com/RaikyD/orders-etl-service/internal/logger"
)

// SinkStore is the read/write contract over the two terminal stores.
type SinkStore interface {
	Write(ctx context.Context, out domain.Outcome) error
	ListClean(ctx context.Context, limit int) ([]domain.CleanOrder, error)
	ListRejected(ctx context.Context, limit int) ([]domain.RejectedOrder, error)
	Ping(ctx context.Context) error
}

type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

const opTimeout = 5 * time.Second

// amountArg passes the decimal through at full scale; the NUMERIC column's
// scale is applied by Postgres, keeping the rounding policy in the schema.
func amountArg(d decimal.Decimal) string { return d.String() }

// Write upserts the record into its sink and removes the natural key from the
// other sink inside the same transaction. A reader never sees the key in both
// sinks or in neither. Last write wins by arrival order at this method.
func (p *OrderRepository) Write(ctx context.Context, out domain.Outcome) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", domain.ErrStorageUnavailable, err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if out.Clean != nil {
		o := out.Clean
		_, err = tx.Exec(ctx, `
			INSERT INTO orders_clean
				(order_id, source, order_date, customer_id, customer_name, total_amount, status)
			VALUES
				($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (order_id, source) DO UPDATE SET
				order_date    = EXCLUDED.order_date,
				customer_id   = EXCLUDED.customer_id,
				customer_name = EXCLUDED.customer_name,
				total_amount  = EXCLUDED.total_amount,
				status        = EXCLUDED.status,
				updated_at    = now()
		`, o.OrderID, o.Source, o.OrderDate, o.CustomerID, o.CustomerName, amountArg(o.TotalAmount), o.Status)
		if err == nil {
			_, err = tx.Exec(ctx,
				`DELETE FROM orders_error WHERE order_id = $1 AND source = $2`,
				o.OrderID, o.Source)
		}
	} else {
		o := out.Rejected
		_, err = tx.Exec(ctx, `
			INSERT INTO orders_error
				(order_id, source, order_date, customer_id, customer_name, total_amount, status, error_reason)
			VALUES
				($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (order_id, source) DO UPDATE SET
				order_date    = EXCLUDED.order_date,
				customer_id   = EXCLUDED.customer_id,
				customer_name = EXCLUDED.customer_name,
				total_amount  = EXCLUDED.total_amount,
				status        = EXCLUDED.status,
				error_reason  = EXCLUDED.error_reason,
				updated_at    = now()
		`, o.OrderID, o.Source, o.OrderDate, o.CustomerID, o.CustomerName, o.TotalAmount, o.Status, o.Reason)
		if err == nil {
			_, err = tx.Exec(ctx,
				`DELETE FROM orders_clean WHERE order_id = $1 AND source = $2`,
				o.OrderID, o.Source)
		}
	}

	if err != nil {
		logger.Warn("sink write failed", "err", err)
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", domain.ErrStorageUnavailable, err)
	}
	tx = nil
	return nil
}

func (p *OrderRepository) ListClean(ctx context.Context, limit int) ([]domain.CleanOrder, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := p.pool.Query(ctx, `
		SELECT order_id, source, order_date, customer_id, customer_name, total_amount::text, status, created_at
		FROM orders_clean
		ORDER BY updated_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var out []domain.CleanOrder
	for rows.Next() {
		var o domain.CleanOrder
		var amount string
		if err := rows.Scan(&o.OrderID, &o.Source, &o.OrderDate, &o.CustomerID,
			&o.CustomerName, &amount, &o.Status, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
		}
		o.TotalAmount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("bad stored amount %q: %w", amount, err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return out, nil
}

func (p *OrderRepository) ListRejected(ctx context.Context, limit int) ([]domain.RejectedOrder, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := p.pool.Query(ctx, `
		SELECT order_id, source, COALESCE(order_date, ''), COALESCE(customer_id, ''),
		       COALESCE(customer_name, ''), COALESCE(total_amount, ''), COALESCE(status, ''),
		       error_reason, created_at
		FROM orders_error
		ORDER BY updated_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	defer rows.Close()

	var out []domain.RejectedOrder
	for rows.Next() {
		var o domain.RejectedOrder
		if err := rows.Scan(&o.OrderID, &o.Source, &o.OrderDate, &o.CustomerID,
			&o.CustomerName, &o.TotalAmount, &o.Status, &o.Reason, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return out, nil
}

func (p *OrderRepository) Ping(ctx context.Context) error {
	if err := p.pool.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}
