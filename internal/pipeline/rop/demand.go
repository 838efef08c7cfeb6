// Package rop holds the reorder point arithmetic: demand estimation, safety
// stock sizing, stock projection, stockout timing and urgency scoring.
// Everything here is a pure function of its inputs.
package rop

import (
	"fmt"
	"math"

	"github.com/andresuchdata/rop-engine/internal/domain"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"
)

// DemandEstimate is the result of analysing removal events over a lookback window.
type DemandEstimate struct {
	MeanDailyDemand    decimal.Decimal
	StdDevDailyDemand  decimal.Decimal
	RemovalCount       int
	AnalysisPeriodDays int
	TotalRemoved       decimal.Decimal
}

// EstimateDemand derives daily demand statistics from removal quantities.
//
// The mean spreads the total removed over the whole calendar window, not over
// the number of transactions or active days. The daily standard deviation is
// the population std dev of the transaction sizes scaled by
// sqrt(transactions per day). That scaling assumes Poisson-like arrivals and
// is an approximation only.
//
// Signed quantities are taken as absolute values and zero quantities are
// ignored. Fewer than minSamples usable events yields ErrInsufficientData.
func EstimateDemand(observations []decimal.Decimal, lookbackDays, minSamples int) (DemandEstimate, error) {
	if lookbackDays <= 0 {
		return DemandEstimate{}, domain.Invalidf("lookback days must be positive, got %d", lookbackDays)
	}

	samples := make([]float64, 0, len(observations))
	total := decimal.Zero
	for _, q := range observations {
		q = q.Abs()
		if q.IsZero() {
			continue
		}
		total = total.Add(q)
		samples = append(samples, q.InexactFloat64())
	}

	estimate := DemandEstimate{
		MeanDailyDemand:    decimal.Zero,
		StdDevDailyDemand:  decimal.Zero,
		RemovalCount:       len(samples),
		AnalysisPeriodDays: lookbackDays,
		TotalRemoved:       total,
	}

	if len(samples) < minSamples {
		return estimate, fmt.Errorf("%d removal events in %d days, need %d: %w",
			len(samples), lookbackDays, minSamples, domain.ErrInsufficientData)
	}

	estimate.MeanDailyDemand = total.Div(decimal.NewFromInt(int64(lookbackDays)))

	if len(samples) > 1 {
		perTransaction := stat.PopStdDev(samples, nil)
		transactionsPerDay := float64(len(samples)) / float64(lookbackDays)
		estimate.StdDevDailyDemand = decimal.NewFromFloat(perTransaction * math.Sqrt(transactionsPerDay))
	}

	return estimate, nil
}
