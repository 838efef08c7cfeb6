package postgres

import (
	"context"
	"fmt"

	"github.com/andresuchdata/rop-engine/internal/domain"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// SeedRepository writes host inventory fixtures. It backs the demo seeding
// command and the repository tests.
type SeedRepository struct {
	db *DB
}

func NewSeedRepository(db *DB) *SeedRepository {
	return &SeedRepository{db: db}
}

func (r *SeedRepository) UpsertPart(ctx context.Context, part *domain.Part) (int64, error) {
	query := `
		INSERT INTO parts (name, ipn, description)
		VALUES (?, ?, ?)
		ON CONFLICT (ipn)
		DO UPDATE SET name = excluded.name, description = excluded.description
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowxContext(ctx, r.db.Rebind(query), part.Name, part.IPN, part.Description).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert part: %w", err)
	}
	part.ID = id
	return id, nil
}

func (r *SeedRepository) UpsertSupplier(ctx context.Context, name string, active bool) (int64, error) {
	query := `
		INSERT INTO suppliers (name, active, is_supplier)
		VALUES (?, ?, ?)
		ON CONFLICT (name)
		DO UPDATE SET active = excluded.active
		RETURNING id
	`
	var id int64
	err := r.db.QueryRowxContext(ctx, r.db.Rebind(query), name, active, true).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to upsert supplier: %w", err)
	}
	return id, nil
}

func (r *SeedRepository) LinkSupplierPart(ctx context.Context, partID, supplierID int64, leadTimeDays *int) error {
	query := `
		INSERT INTO supplier_parts (part_id, supplier_id, lead_time_days)
		VALUES (?, ?, ?)
		ON CONFLICT (part_id, supplier_id)
		DO UPDATE SET lead_time_days = excluded.lead_time_days
	`
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), partID, supplierID, leadTimeDays); err != nil {
		return fmt.Errorf("failed to link supplier %d to part %d: %w", supplierID, partID, err)
	}
	return nil
}

func (r *SeedRepository) AddStock(ctx context.Context, partID int64, quantity decimal.Decimal) error {
	query := `INSERT INTO stock_items (part_id, quantity) VALUES (?, ?)`
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), partID, quantity); err != nil {
		return fmt.Errorf("failed to add stock for part %d: %w", partID, err)
	}
	return nil
}

func (r *SeedRepository) AddAllocation(ctx context.Context, partID int64, quantity decimal.Decimal) error {
	query := `INSERT INTO stock_allocations (part_id, quantity) VALUES (?, ?)`
	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), partID, quantity); err != nil {
		return fmt.Errorf("failed to add allocation for part %d: %w", partID, err)
	}
	return nil
}

func (r *SeedRepository) SetOrderState(ctx context.Context, orderID int64, state domain.OrderState) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE purchase_orders SET status = ? WHERE id = ?`), state, orderID)
	if err != nil {
		return fmt.Errorf("failed to set state of order %d: %w", orderID, err)
	}
	return requireAffected(res, "purchase order %d", orderID)
}

// AddMovements inserts stock history entries in one transaction.
func (r *SeedRepository) AddMovements(ctx context.Context, movements []domain.StockMovement) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
			INSERT INTO stock_movements (part_id, quantity, movement_type, occurred_at)
			VALUES (?, ?, ?, ?)
		`))
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, m := range movements {
			if _, err := stmt.ExecContext(ctx, m.PartID, m.Quantity, m.Type, m.OccurredAt); err != nil {
				return fmt.Errorf("failed to insert stock movement: %w", err)
			}
		}
		return nil
	})
}
