package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/rop-engine/internal/domain"
	"github.com/andresuchdata/rop-engine/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// inventoryRepository reads the host inventory tables: parts, stock_items,
// stock_allocations, suppliers, supplier_parts, purchase_orders,
// purchase_order_lines and stock_movements.
type inventoryRepository struct {
	db *DB
}

// InventoryRepository implements every host side collaborator the engine needs.
type InventoryRepository interface {
	repository.InventoryStore
	repository.HistoryStore
	repository.OrderCreator
}

func NewInventoryRepository(db *DB) InventoryRepository {
	return &inventoryRepository{db: db}
}

func (r *inventoryRepository) GetPart(ctx context.Context, partID int64) (*domain.Part, error) {
	query := `
		SELECT id, name, COALESCE(ipn, '') AS ipn, COALESCE(description, '') AS description
		FROM parts
		WHERE id = ?
	`

	var part domain.Part
	if err := r.db.GetContext(ctx, &part, r.db.Rebind(query), partID); err != nil {
		return nil, notFound(err, "part %d", partID)
	}
	return &part, nil
}

func (r *inventoryRepository) GetCurrentStock(ctx context.Context, partID int64) (decimal.Decimal, error) {
	return r.sum(ctx, `SELECT COALESCE(SUM(quantity), 0) FROM stock_items WHERE part_id = ?`, partID)
}

// GetCommittedQuantity sums sales and build order allocations.
func (r *inventoryRepository) GetCommittedQuantity(ctx context.Context, partID int64) (decimal.Decimal, error) {
	return r.sum(ctx, `SELECT COALESCE(SUM(quantity), 0) FROM stock_allocations WHERE part_id = ?`, partID)
}

func (r *inventoryRepository) sum(ctx context.Context, query string, partID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(query), partID); err != nil {
		if isNoRows(err) {
			return decimal.Zero, nil
		}
		return decimal.Zero, fmt.Errorf("failed to sum quantities for part %d: %w", partID, err)
	}
	return total, nil
}

// GetOpenInboundLines returns lines on issued orders. Fully received lines
// are filtered by the projector, so no numeric comparison happens in SQL.
func (r *inventoryRepository) GetOpenInboundLines(ctx context.Context, partID int64) ([]domain.InboundLine, error) {
	query, args, err := sqlx.In(`
		SELECT l.order_id, l.quantity, COALESCE(l.received, 0) AS received, o.status AS order_state
		FROM purchase_order_lines l
		JOIN purchase_orders o ON o.id = l.order_id
		WHERE l.part_id = ? AND o.status IN (?)
		ORDER BY l.id
	`, partID, []domain.OrderState{domain.OrderPlaced, domain.OrderInProgress})
	if err != nil {
		return nil, fmt.Errorf("failed to build inbound query: %w", err)
	}

	var lines []domain.InboundLine
	if err := r.db.SelectContext(ctx, &lines, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get inbound lines for part %d: %w", partID, err)
	}
	return lines, nil
}

func (r *inventoryRepository) GetSupplierOptions(ctx context.Context, partID int64) ([]domain.SupplierOption, error) {
	query := `
		SELECT sp.supplier_id, s.name AS supplier_name, sp.lead_time_days, s.active, s.is_supplier
		FROM supplier_parts sp
		JOIN suppliers s ON s.id = sp.supplier_id
		WHERE sp.part_id = ?
		ORDER BY sp.id
	`

	var options []domain.SupplierOption
	if err := r.db.SelectContext(ctx, &options, r.db.Rebind(query), partID); err != nil {
		return nil, fmt.Errorf("failed to get supplier options for part %d: %w", partID, err)
	}
	return options, nil
}

func (r *inventoryRepository) GetRemovalEvents(ctx context.Context, partID int64, since, until time.Time) ([]decimal.Decimal, error) {
	query, args, err := sqlx.In(`
		SELECT quantity
		FROM stock_movements
		WHERE part_id = ? AND movement_type IN (?) AND occurred_at >= ? AND occurred_at <= ?
		ORDER BY occurred_at
	`, partID, domain.RemovalMovements, since, until)
	if err != nil {
		return nil, fmt.Errorf("failed to build removal query: %w", err)
	}

	var quantities []decimal.Decimal
	if err := r.db.SelectContext(ctx, &quantities, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to get removal events for part %d: %w", partID, err)
	}
	return quantities, nil
}

// CreatePurchaseOrder inserts a draft order and its lines in one transaction.
func (r *inventoryRepository) CreatePurchaseOrder(ctx context.Context, req domain.PurchaseOrderRequest) (*domain.PurchaseOrder, error) {
	if len(req.Lines) == 0 {
		return nil, domain.Invalidf("purchase order %s has no lines", req.Reference)
	}

	po := &domain.PurchaseOrder{
		Reference:   req.Reference,
		SupplierID:  req.SupplierID,
		Description: req.Description,
		State:       domain.OrderDraft,
		CreatedAt:   time.Now().UTC(),
	}

	err := r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		insertOrder := `
			INSERT INTO purchase_orders (reference, supplier_id, description, status, created_at)
			VALUES (?, ?, ?, ?, ?)
			RETURNING id
		`
		err := tx.QueryRowxContext(ctx, tx.Rebind(insertOrder),
			po.Reference, po.SupplierID, po.Description, po.State, po.CreatedAt,
		).Scan(&po.ID)
		if err != nil {
			return fmt.Errorf("failed to insert purchase order: %w", err)
		}

		insertLine := tx.Rebind(`
			INSERT INTO purchase_order_lines (order_id, part_id, quantity, received, reference)
			VALUES (?, ?, ?, ?, ?)
		`)
		stmt, err := tx.PreparexContext(ctx, insertLine)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, line := range req.Lines {
			if _, err := stmt.ExecContext(ctx, po.ID, line.PartID, line.Quantity, decimal.Zero, line.Reference); err != nil {
				return fmt.Errorf("failed to insert purchase order line: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return po, nil
}

var _ InventoryRepository = (*inventoryRepository)(nil)
