package rop

import (
	"math"

	"github.com/andresuchdata/rop-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// DefaultZ is used for any service level missing from the table (95%).
const DefaultZ = 1.645

var zScores = map[float64]float64{
	50:   0.0,
	75:   0.674,
	80:   0.842,
	85:   1.036,
	90:   1.282,
	95:   1.645,
	97:   1.881,
	98:   2.054,
	99:   2.326,
	99.5: 2.576,
	99.9: 3.090,
}

// ServiceLevelToZ converts a service level percentage into a Z-score.
// Levels outside the table are not interpolated; they get DefaultZ.
func ServiceLevelToZ(serviceLevel float64) float64 {
	if z, ok := zScores[serviceLevel]; ok {
		return z
	}
	return DefaultZ
}

// SafetyStock sizes the buffer for a policy. A manual safety stock always
// wins when the policy does not ask for the calculated one.
//
//	SS = Z * sigma_daily * sqrt(leadTimeDays)
func SafetyStock(policy *domain.Policy, estimate DemandEstimate, leadTimeDays int) decimal.Decimal {
	if !policy.UseCalculatedSafetyStock {
		return policy.SafetyStock
	}
	if leadTimeDays <= 0 {
		return decimal.Zero
	}

	z := decimal.NewFromFloat(ServiceLevelToZ(float64(policy.ServiceLevel)))
	sigmaLeadTime := estimate.StdDevDailyDemand.Mul(decimal.NewFromFloat(math.Sqrt(float64(leadTimeDays))))

	safetyStock := z.Mul(sigmaLeadTime)
	if safetyStock.IsNegative() {
		return decimal.Zero
	}
	return safetyStock
}

// ReorderPoint is the demand expected during the lead time plus safety stock.
func ReorderPoint(meanDailyDemand decimal.Decimal, leadTimeDays int, safetyStock decimal.Decimal) decimal.Decimal {
	return meanDailyDemand.Mul(decimal.NewFromInt(int64(leadTimeDays))).Add(safetyStock)
}

// SuggestedOrderQty tops projected stock up to rop * multiplier, never below zero.
func SuggestedOrderQty(rop, multiplier, projected decimal.Decimal) (target, qty decimal.Decimal) {
	target = rop.Mul(multiplier)
	qty = target.Sub(projected)
	if qty.IsNegative() {
		qty = decimal.Zero
	}
	return target, qty
}
