package rop

import (
	"github.com/andresuchdata/rop-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// StockPosition is the netted stock picture for one part.
type StockPosition struct {
	Current   decimal.Decimal `json:"current"`
	Inbound   decimal.Decimal `json:"inbound"`
	Committed decimal.Decimal `json:"committed"`
	Projected decimal.Decimal `json:"projected"`
}

// InboundQuantity sums what is still to arrive on issued purchase order lines.
// Draft, completed and cancelled orders and fully received lines are skipped.
func InboundQuantity(lines []domain.InboundLine) decimal.Decimal {
	total := decimal.Zero
	for _, line := range lines {
		if !line.OrderState.Issued() {
			continue
		}
		if !line.Received.LessThan(line.Quantity) {
			continue
		}
		total = total.Add(line.Outstanding())
	}
	return total
}

// ProjectStock nets current stock against inbound and committed quantities.
// The result may be negative.
func ProjectStock(current decimal.Decimal, lines []domain.InboundLine, committed decimal.Decimal) StockPosition {
	inbound := InboundQuantity(lines)
	return StockPosition{
		Current:   current,
		Inbound:   inbound,
		Committed: committed,
		Projected: current.Add(inbound).Sub(committed),
	}
}
