package rop

import (
	"testing"

	"github.com/andresuchdata/rop-engine/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func line(state domain.OrderState, qty, received int64) domain.InboundLine {
	return domain.InboundLine{
		OrderID:    1,
		Quantity:   decimal.NewFromInt(qty),
		Received:   decimal.NewFromInt(received),
		OrderState: state,
	}
}

func TestInboundQuantity_OnlyIssuedOutstandingLines(t *testing.T) {
	lines := []domain.InboundLine{
		line(domain.OrderPlaced, 10, 4),
		line(domain.OrderInProgress, 5, 0),
		line(domain.OrderDraft, 100, 0),
		line(domain.OrderComplete, 100, 20),
		line(domain.OrderCancelled, 100, 0),
		line(domain.OrderPlaced, 8, 8),
		line(domain.OrderPlaced, 8, 12),
	}

	assert.Equal(t, "11", InboundQuantity(lines).String())
}

func TestProjectStock(t *testing.T) {
	tests := []struct {
		name      string
		current   int64
		lines     []domain.InboundLine
		committed int64
		want      string
	}{
		{"no movements", 20, nil, 0, "20"},
		{"inbound and committed", 5, []domain.InboundLine{line(domain.OrderPlaced, 10, 0)}, 8, "7"},
		{"over committed goes negative", 3, nil, 10, "-7"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pos := ProjectStock(decimal.NewFromInt(tt.current), tt.lines, decimal.NewFromInt(tt.committed))
			assert.Equal(t, tt.want, pos.Projected.String())
			assert.True(t, pos.Projected.Equal(pos.Current.Add(pos.Inbound).Sub(pos.Committed)))
		})
	}
}
