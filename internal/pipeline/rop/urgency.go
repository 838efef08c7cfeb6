package rop

import (
	"math"

	"github.com/andresuchdata/rop-engine/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	maxTimeScore     = 50.0
	maxSeverityScore = 30.0
	maxLeadTimeScore = 20.0
	maxUrgency       = 100.0
)

// UrgencyInput holds the suggestion fields the urgency score depends on.
type UrgencyInput struct {
	DaysUntilStockout *int
	ProjectedStock    decimal.Decimal
	ROP               decimal.Decimal
	LeadTimeDays      *int
}

// UrgencyFor extracts the scoring inputs from a suggestion.
func UrgencyFor(s *domain.Suggestion) UrgencyInput {
	return UrgencyInput{
		DaysUntilStockout: s.DaysUntilStockout,
		ProjectedStock:    s.ProjectedStock,
		ROP:               s.CalculatedROP,
		LeadTimeDays:      s.LeadTimeDays,
	}
}

// UrgencyScore maps timing, shortage severity and lead-time risk to [0, 100],
// rounded to two decimals. An unknown stockout is scored as maximally urgent.
func UrgencyScore(in UrgencyInput) float64 {
	if in.DaysUntilStockout == nil {
		return maxUrgency
	}
	days := *in.DaysUntilStockout

	total := timeScore(days) + severityScore(in.ProjectedStock, in.ROP) + leadTimeScore(days, in.LeadTimeDays)
	return roundFloat(clamp(total, 0, maxUrgency), 2)
}

func timeScore(days int) float64 {
	switch {
	case days <= 0:
		return maxTimeScore
	case days <= 7:
		return 40
	case days <= 14:
		return 30
	case days <= 30:
		return 20
	}
	return math.Max(0, 20-float64(days-30)/10)
}

func severityScore(projected, rop decimal.Decimal) float64 {
	if !projected.IsPositive() {
		return maxSeverityScore
	}
	if rop.IsZero() {
		return 0
	}
	ratio := rop.Sub(projected).Div(rop).InexactFloat64()
	return clamp(ratio*maxSeverityScore, 0, maxSeverityScore)
}

func leadTimeScore(days int, leadTime *int) float64 {
	if leadTime == nil {
		return 10
	}
	lt := float64(*leadTime)
	switch {
	case float64(days) < lt:
		return maxLeadTimeScore // stockout precedes delivery
	case float64(days) < 1.5*lt:
		return 15
	}
	return 10
}
