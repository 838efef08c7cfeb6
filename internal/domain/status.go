package domain

import "strings"

// OrderState is the host system's purchase order status code.
type OrderState int

const (
	OrderDraft      OrderState = 10
	OrderPlaced     OrderState = 20
	OrderInProgress OrderState = 25
	OrderComplete   OrderState = 30
	OrderCancelled  OrderState = 40
)

var orderStateLabels = map[OrderState]string{
	OrderDraft:      "Draft",
	OrderPlaced:     "Placed",
	OrderInProgress: "In Progress",
	OrderComplete:   "Complete",
	OrderCancelled:  "Cancelled",
}

var orderStateCodes = map[string]OrderState{
	"draft":       OrderDraft,
	"pending":     OrderDraft,
	"placed":      OrderPlaced,
	"in progress": OrderInProgress,
	"in_progress": OrderInProgress,
	"complete":    OrderComplete,
	"cancelled":   OrderCancelled,
}

// Label returns a human-readable label for an order state.
func (s OrderState) Label() string {
	if label, ok := orderStateLabels[s]; ok {
		return label
	}

	return "Unknown"
}

// Issued reports whether the order has been sent to the supplier and is
// still expected to deliver. Draft orders are not issued.
func (s OrderState) Issued() bool {
	return s == OrderPlaced || s == OrderInProgress
}

// ParseOrderState returns the state for a given label (case-insensitive).
func ParseOrderState(label string) (OrderState, bool) {
	code, ok := orderStateCodes[strings.ToLower(strings.TrimSpace(label))]

	return code, ok
}
