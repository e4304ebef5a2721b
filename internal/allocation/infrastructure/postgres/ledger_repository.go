package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stockflow/allocation-service/internal/allocation/domain"
)

const pgUniqueViolation = "23505"

// LedgerRepository implements application.StockLedger on PostgreSQL.
// Both mutations run as a single transaction whose statements carry the
// conditional guards; nothing is locked in-process.
type LedgerRepository struct {
	log  *slog.Logger
	pool *pgxpool.Pool
}

func NewLedgerRepository(log *slog.Logger, pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{log: log, pool: pool}
}

// Allocate conditionally creates the allocation row and decrements the
// sku stock level, all-or-nothing. The primary key guards row existence;
// the units predicate guards stock sufficiency.
func (r *LedgerRepository) Allocate(ctx context.Context, cmd domain.AllocateStockCommand) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.NewFailure(domain.KindUnrecognized, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	now := time.Now().UTC()
	_, err = tx.Exec(ctx, `
		INSERT INTO stock_allocations (sku, order_id, units, price_cents, user_id, status, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$7)`,
		cmd.SKU(), cmd.OrderID(), cmd.Units(), cmd.PriceCents(), cmd.UserID(), domain.StatusAllocated, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.NewFailure(domain.KindDuplicateStockAllocation, err)
		}
		return domain.NewFailure(domain.KindUnrecognized, err)
	}

	ct, err := tx.Exec(ctx, `
		UPDATE sku_stock_levels
		SET units = units - $2, updated_at = $3
		WHERE sku = $1 AND units >= $2`,
		cmd.SKU(), cmd.Units(), now)
	if err != nil {
		return domain.NewFailure(domain.KindUnrecognized, err)
	}
	if ct.RowsAffected() == 0 {
		return domain.NewFailure(domain.KindDepletedStockAllocation,
			errors.New("insufficient stock for "+cmd.SKU()))
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.NewFailure(domain.KindUnrecognized, err)
	}
	return nil
}

// Deallocate transitions the allocation row from its expected prior
// status and re-increments the sku stock level by the stored row's units,
// all-or-nothing. A status that no longer matches means the transition
// already happened: rejected, never reapplied.
func (r *LedgerRepository) Deallocate(ctx context.Context, cmd domain.DeallocateStockCommand) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.NewFailure(domain.KindUnrecognized, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	now := time.Now().UTC()
	var units int
	err = tx.QueryRow(ctx, `
		UPDATE stock_allocations
		SET status = $4, updated_at = $5
		WHERE sku = $1 AND order_id = $2 AND status = $3
		RETURNING units`,
		cmd.SKU(), cmd.OrderID(), cmd.ExpectedStatus(), cmd.NextStatus(), now).Scan(&units)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NewFailure(domain.KindDuplicateStockAllocation,
			errors.New("allocation status no longer "+string(cmd.ExpectedStatus())))
	}
	if err != nil {
		return domain.NewFailure(domain.KindUnrecognized, err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO sku_stock_levels (sku, units, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (sku) DO UPDATE
		SET units = sku_stock_levels.units + EXCLUDED.units, updated_at = EXCLUDED.updated_at`,
		cmd.SKU(), units, now)
	if err != nil {
		return domain.NewFailure(domain.KindUnrecognized, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.NewFailure(domain.KindUnrecognized, err)
	}
	return nil
}

// GetAllocation returns the (sku, order) row, or nil when absent.
func (r *LedgerRepository) GetAllocation(ctx context.Context, cmd domain.GetAllocationCommand) (*domain.StockAllocation, error) {
	var a domain.StockAllocation
	err := r.pool.QueryRow(ctx, `
		SELECT sku, order_id, units, price_cents, user_id, status, created_at, updated_at
		FROM stock_allocations
		WHERE sku = $1 AND order_id = $2`,
		cmd.SKU(), cmd.OrderID()).
		Scan(&a.SKU, &a.OrderID, &a.Units, &a.PriceCents, &a.UserID, &a.Status, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewFailure(domain.KindUnrecognized, err)
	}
	return &a, nil
}

// ListAllocations returns allocations for one sku, bounded and ordered by
// creation time.
func (r *LedgerRepository) ListAllocations(ctx context.Context, cmd domain.ListAllocationsCommand) ([]domain.StockAllocation, error) {
	query := `
		SELECT sku, order_id, units, price_cents, user_id, status, created_at, updated_at
		FROM stock_allocations
		WHERE sku = $1
		ORDER BY created_at ASC
		LIMIT $2`
	if cmd.Sort() == domain.SortDesc {
		query = `
		SELECT sku, order_id, units, price_cents, user_id, status, created_at, updated_at
		FROM stock_allocations
		WHERE sku = $1
		ORDER BY created_at DESC
		LIMIT $2`
	}

	rows, err := r.pool.Query(ctx, query, cmd.SKU(), cmd.Limit())
	if err != nil {
		return nil, domain.NewFailure(domain.KindUnrecognized, err)
	}
	defer rows.Close()

	var out []domain.StockAllocation
	for rows.Next() {
		var a domain.StockAllocation
		if err := rows.Scan(&a.SKU, &a.OrderID, &a.Units, &a.PriceCents, &a.UserID, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, domain.NewFailure(domain.KindUnrecognized, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.NewFailure(domain.KindUnrecognized, err)
	}
	return out, nil
}

// SetStockLevel upserts the running unit count for a sku. Operational
// seeding only; the worker flows never call it.
func (r *LedgerRepository) SetStockLevel(ctx context.Context, sku string, units int) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sku_stock_levels (sku, units, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (sku) DO UPDATE SET units = EXCLUDED.units, updated_at = EXCLUDED.updated_at`,
		sku, units, time.Now().UTC())
	if err != nil {
		return domain.NewFailure(domain.KindUnrecognized, err)
	}
	return nil
}

// GetStockLevel returns the running unit count for a sku, or nil when the
// sku is unknown.
func (r *LedgerRepository) GetStockLevel(ctx context.Context, sku string) (*domain.SkuStockLevel, error) {
	var lvl domain.SkuStockLevel
	err := r.pool.QueryRow(ctx,
		`SELECT sku, units, updated_at FROM sku_stock_levels WHERE sku = $1`, sku).
		Scan(&lvl.SKU, &lvl.Units, &lvl.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewFailure(domain.KindUnrecognized, err)
	}
	return &lvl, nil
}
