package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Part is the host inventory item a policy is attached to.
type Part struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	IPN         string `json:"ipn" db:"ipn"`
	Description string `json:"description" db:"description"`
}

// InboundLine is one purchase order line for a part.
type InboundLine struct {
	OrderID    int64           `json:"order_id" db:"order_id"`
	Quantity   decimal.Decimal `json:"quantity" db:"quantity"`
	Received   decimal.Decimal `json:"received" db:"received"`
	OrderState OrderState      `json:"order_state" db:"order_state"`
}

// Outstanding is the quantity still to be delivered on the line.
func (l InboundLine) Outstanding() decimal.Decimal {
	return l.Quantity.Sub(l.Received)
}

// SupplierOption is one way of sourcing a part. LeadTimeDays is nil when the
// supplier record carries no lead time.
type SupplierOption struct {
	SupplierID   int64  `json:"supplier_id" db:"supplier_id"`
	SupplierName string `json:"supplier_name" db:"supplier_name"`
	LeadTimeDays *int   `json:"lead_time_days" db:"lead_time_days"`
	Active       bool   `json:"active" db:"active"`
	IsSupplier   bool   `json:"is_supplier" db:"is_supplier"`
}

// ForecastPoint is one step of an external stock projection.
type ForecastPoint struct {
	Date           time.Time       `json:"date"`
	ProjectedStock decimal.Decimal `json:"projected_stock"`
}

// PurchaseOrderLine is a line to create on a new purchase order.
type PurchaseOrderLine struct {
	PartID    int64           `json:"part_id" db:"part_id"`
	Quantity  decimal.Decimal `json:"quantity" db:"quantity"`
	Reference string          `json:"reference" db:"reference"`
}

// PurchaseOrderRequest asks the host to create a draft purchase order.
type PurchaseOrderRequest struct {
	SupplierID  int64               `json:"supplier_id"`
	Reference   string              `json:"reference"`
	Description string              `json:"description"`
	Lines       []PurchaseOrderLine `json:"lines"`
}

// PurchaseOrder is the host's reference to a created order.
type PurchaseOrder struct {
	ID          int64      `json:"id" db:"id"`
	Reference   string     `json:"reference" db:"reference"`
	SupplierID  int64      `json:"supplier_id" db:"supplier_id"`
	Description string     `json:"description" db:"description"`
	State       OrderState `json:"state" db:"status"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
}

// RunStatus is the state of a batch calculation run.
type RunStatus string

const (
	RunPending    RunStatus = "pending"
	RunProcessing RunStatus = "processing"
	RunCompleted  RunStatus = "completed"
	RunFailed     RunStatus = "failed"
)

// CalculationRun tracks one batch execution over all enabled policies.
type CalculationRun struct {
	ID              int64       `json:"id" db:"id"`
	Status          RunStatus   `json:"status" db:"status"`
	TotalParts      int         `json:"total_parts" db:"total_parts"`
	PartsAnalyzed   int         `json:"parts_analyzed" db:"parts_analyzed"`
	SuggestionCount int         `json:"suggestion_count" db:"suggestion_count"`
	StartedAt       time.Time   `json:"started_at" db:"started_at"`
	CompletedAt     *time.Time  `json:"completed_at" db:"completed_at"`
	ErrorMessage    string      `json:"error_message" db:"error_message"`
	Errors          []PartError `json:"errors" db:"-"`
}

// MovementType classifies a stock history entry.
type MovementType string

const (
	MovementReceived      MovementType = "received"
	MovementRemoved       MovementType = "removed"
	MovementShipped       MovementType = "shipped"
	MovementBuildConsumed MovementType = "build_consumed"
	MovementAdjusted      MovementType = "adjusted"
)

// RemovalMovements are the movement types counted as demand.
var RemovalMovements = []MovementType{MovementRemoved, MovementShipped, MovementBuildConsumed}

// IsRemoval reports whether t counts as demand.
func (t MovementType) IsRemoval() bool {
	for _, r := range RemovalMovements {
		if t == r {
			return true
		}
	}
	return false
}

// StockMovement is one entry of a part's stock history.
type StockMovement struct {
	ID         int64           `json:"id" db:"id"`
	PartID     int64           `json:"part_id" db:"part_id"`
	Quantity   decimal.Decimal `json:"quantity" db:"quantity"`
	Type       MovementType    `json:"movement_type" db:"movement_type"`
	OccurredAt time.Time       `json:"occurred_at" db:"occurred_at"`
}
