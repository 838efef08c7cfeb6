package repository

import (
	"context"
	"time"

	"github.com/andresuchdata/rop-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// InventoryStore reads part, stock and sourcing data from the host system.
type InventoryStore interface {
	GetPart(ctx context.Context, partID int64) (*domain.Part, error)
	GetCurrentStock(ctx context.Context, partID int64) (decimal.Decimal, error)
	GetCommittedQuantity(ctx context.Context, partID int64) (decimal.Decimal, error)
	GetOpenInboundLines(ctx context.Context, partID int64) ([]domain.InboundLine, error)
	GetSupplierOptions(ctx context.Context, partID int64) ([]domain.SupplierOption, error)
}

// HistoryStore returns removal quantities (consumption, shipments and build
// consumption) recorded for a part within [since, until].
type HistoryStore interface {
	GetRemovalEvents(ctx context.Context, partID int64, since, until time.Time) ([]decimal.Decimal, error)
}

// OrderCreator creates draft purchase orders in the host system.
type OrderCreator interface {
	CreatePurchaseOrder(ctx context.Context, req domain.PurchaseOrderRequest) (*domain.PurchaseOrder, error)
}
