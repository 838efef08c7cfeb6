package rop

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/andresuchdata/rop-engine/internal/domain"
	"github.com/andresuchdata/rop-engine/internal/forecast"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// StockoutPrediction is when stock is expected to cross the reorder point.
// Both fields are nil when no crossing is predicted.
type StockoutPrediction struct {
	Date *time.Time
	Days *int
}

// Predicted reports whether a crossing was found.
func (p StockoutPrediction) Predicted() bool {
	return p.Days != nil
}

// FirstBelowROP returns the first forecast point, in date order, whose
// projected stock is strictly below rop.
func FirstBelowROP(points []domain.ForecastPoint, rop decimal.Decimal, today time.Time) StockoutPrediction {
	ordered := make([]domain.ForecastPoint, len(points))
	copy(ordered, points)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Date.Before(ordered[j].Date) })

	for _, point := range ordered {
		if point.ProjectedStock.LessThan(rop) {
			date := dateOf(point.Date)
			days := daysBetween(dateOf(today), date)
			return StockoutPrediction{Date: &date, Days: &days}
		}
	}
	return StockoutPrediction{}
}

// LinearStockout assumes constant consumption at demandRate:
//
//	days = floor((current - rop) / demandRate), clamped at 0
//
// An unknown or non-positive rate predicts nothing.
func LinearStockout(current, rop decimal.Decimal, demandRate *decimal.Decimal, today time.Time) StockoutPrediction {
	if demandRate == nil || !demandRate.IsPositive() {
		return StockoutPrediction{}
	}

	days := int(current.Sub(rop).Div(*demandRate).Floor().IntPart())
	if days < 0 {
		days = 0
	}
	date := dateOf(today).AddDate(0, 0, days)
	return StockoutPrediction{Date: &date, Days: &days}
}

// StockoutEstimator prefers an external forecast and falls back to the
// linear estimate when the provider has nothing or fails.
type StockoutEstimator struct {
	provider forecast.Provider
}

func NewStockoutEstimator(provider forecast.Provider) *StockoutEstimator {
	if provider == nil {
		provider = forecast.None{}
	}
	return &StockoutEstimator{provider: provider}
}

// Estimate predicts the stockout for partID against rop.
func (e *StockoutEstimator) Estimate(ctx context.Context, partID int64, current, rop decimal.Decimal, demandRate *decimal.Decimal, today time.Time) StockoutPrediction {
	points, err := e.provider.Forecast(ctx, partID)
	if err != nil {
		if !errors.Is(err, forecast.ErrUnavailable) {
			log.Warn().Err(err).Int64("part_id", partID).Msg("rop: forecast unavailable, using linear stockout estimate")
		}
		return LinearStockout(current, rop, demandRate, today)
	}
	return FirstBelowROP(points, rop, today)
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}
