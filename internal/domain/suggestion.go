package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SuggestionStatus is the lifecycle state of a procurement suggestion.
type SuggestionStatus string

const (
	SuggestionPending   SuggestionStatus = "PENDING"
	SuggestionPOCreated SuggestionStatus = "PO_CREATED"
	SuggestionDismissed SuggestionStatus = "DISMISSED"
	SuggestionExpired   SuggestionStatus = "EXPIRED"
)

// Valid reports whether s is one of the known statuses.
func (s SuggestionStatus) Valid() bool {
	switch s {
	case SuggestionPending, SuggestionPOCreated, SuggestionDismissed, SuggestionExpired:
		return true
	}
	return false
}

// Suggestion is a procurement recommendation for one policy.
// At most one PENDING suggestion exists per policy.
type Suggestion struct {
	ID                int64            `json:"id" db:"id"`
	PolicyID          int64            `json:"policy_id" db:"policy_id"`
	PartID            int64            `json:"part_id" db:"part_id"`
	SuggestedOrderQty decimal.Decimal  `json:"suggested_order_qty" db:"suggested_order_qty"`
	CurrentStock      decimal.Decimal  `json:"current_stock" db:"current_stock"`
	ProjectedStock    decimal.Decimal  `json:"projected_stock" db:"projected_stock"`
	CalculatedROP     decimal.Decimal  `json:"calculated_rop" db:"calculated_rop"`
	StockoutDate      *time.Time       `json:"stockout_date" db:"stockout_date"`
	DaysUntilStockout *int             `json:"days_until_stockout" db:"days_until_stockout"`
	UrgencyScore      float64          `json:"urgency_score" db:"urgency_score"`
	SupplierID        *int64           `json:"supplier_id" db:"supplier_id"`
	SupplierName      *string          `json:"supplier_name" db:"supplier_name"`
	LeadTimeDays      *int             `json:"lead_time_days" db:"lead_time_days"`
	Status            SuggestionStatus `json:"status" db:"status"`
	CreatedDate       time.Time        `json:"created_date" db:"created_date"`
	ActionedDate      *time.Time       `json:"actioned_date" db:"actioned_date"`
	PurchaseOrderID   *int64           `json:"purchase_order_id" db:"purchase_order_id"`
	PurchaseOrderRef  *string          `json:"purchase_order_reference" db:"purchase_order_reference"`
	Notes             string           `json:"notes" db:"notes"`
}

// SuggestionFilter selects pending suggestions for triage.
type SuggestionFilter struct {
	MinUrgency float64 `json:"min_urgency"`
	Limit      int     `json:"limit"`
}

const (
	DefaultSuggestionLimit = 20
	MaxSuggestionLimit     = 200
)

// Normalize clamps the limit into the accepted range.
func (f SuggestionFilter) Normalize() SuggestionFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultSuggestionLimit
	}
	if f.Limit > MaxSuggestionLimit {
		f.Limit = MaxSuggestionLimit
	}
	if f.MinUrgency < 0 {
		f.MinUrgency = 0
	}
	return f
}

// SuggestionView is a pending suggestion joined with its part for listing.
type SuggestionView struct {
	Suggestion
	PartName        string `json:"part_name" db:"part_name"`
	PartIPN         string `json:"part_ipn" db:"part_ipn"`
	PartDescription string `json:"part_description" db:"part_description"`
}

// CalculationState is the terminal state of one run of the per-part pipeline.
type CalculationState string

const (
	StateDisabled         CalculationState = "disabled"
	StateInsufficientData CalculationState = "insufficient_data"
	StateSufficient       CalculationState = "sufficient"
	StateNeedsReorder     CalculationState = "needs_reorder"
)

// CalculationOutcome is what CalculatePart reports back.
type CalculationOutcome struct {
	PartID         int64             `json:"part_id"`
	State          CalculationState  `json:"state"`
	Policy         *Policy           `json:"policy,omitempty"`
	Statistics     *DemandStatistics `json:"statistics,omitempty"`
	ROP            *decimal.Decimal  `json:"rop,omitempty"`
	ProjectedStock *decimal.Decimal  `json:"projected_stock,omitempty"`
	Suggestion     *Suggestion       `json:"suggestion,omitempty"`
}

// PartDetails is the full analysis view for one part.
type PartDetails struct {
	Part              Part               `json:"part"`
	HasPolicy         bool               `json:"has_policy"`
	Policy            *Policy            `json:"policy,omitempty"`
	CurrentStock      decimal.Decimal    `json:"current_stock"`
	LatestStatistics  *DemandStatistics  `json:"demand_statistics,omitempty"`
	HistoricalDemand  []DemandStatistics `json:"historical_demand,omitempty"`
	PendingSuggestion *Suggestion        `json:"suggestion,omitempty"`
}

// SuggestionTransition moves a PENDING suggestion to a terminal status.
type SuggestionTransition struct {
	To               SuggestionStatus
	At               time.Time
	PurchaseOrderID  *int64
	PurchaseOrderRef *string
}
