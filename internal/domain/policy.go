package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	MinServiceLevel     = 50
	MaxServiceLevel     = 99
	MinLookbackDays     = 7
	DefaultServiceLevel = 95
)

// Policy is the per-part ROP configuration. There is exactly one per part.
// The Last* fields are a cache written only by the calculation pipeline.
type Policy struct {
	ID                       int64           `json:"id" db:"id"`
	PartID                   int64           `json:"part_id" db:"part_id"`
	Enabled                  bool            `json:"enabled" db:"enabled"`
	SafetyStock              decimal.Decimal `json:"safety_stock" db:"safety_stock"`
	UseCalculatedSafetyStock bool            `json:"use_calculated_safety_stock" db:"use_calculated_safety_stock"`
	ServiceLevel             int             `json:"service_level" db:"service_level"`
	CustomLookbackDays       *int            `json:"custom_lookback_days" db:"custom_lookback_days"`
	TargetStockMultiplier    decimal.Decimal `json:"target_stock_multiplier" db:"target_stock_multiplier"`
	Notes                    string          `json:"notes" db:"notes"`

	LastCalculatedROP        *decimal.Decimal `json:"last_calculated_rop" db:"last_calculated_rop"`
	LastCalculatedDemandRate *decimal.Decimal `json:"last_calculated_demand_rate" db:"last_calculated_demand_rate"`
	LastCalculationDate      *time.Time       `json:"last_calculation_date" db:"last_calculation_date"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// EffectiveLookbackDays returns the custom lookback when set, the global default otherwise.
func (p *Policy) EffectiveLookbackDays(global int) int {
	if p.CustomLookbackDays != nil && *p.CustomLookbackDays > 0 {
		return *p.CustomLookbackDays
	}
	return global
}

// Validate checks the user editable fields.
func (p *Policy) Validate() error {
	if p.SafetyStock.IsNegative() {
		return Invalidf("safety_stock must be non-negative")
	}
	if p.ServiceLevel < MinServiceLevel || p.ServiceLevel > MaxServiceLevel {
		return Invalidf("service_level must be between %d and %d", MinServiceLevel, MaxServiceLevel)
	}
	if p.CustomLookbackDays != nil && *p.CustomLookbackDays < MinLookbackDays {
		return Invalidf("custom_lookback_days must be at least %d", MinLookbackDays)
	}
	if p.TargetStockMultiplier.LessThan(decimal.NewFromInt(1)) {
		return Invalidf("target_stock_multiplier must be at least 1.0")
	}
	return nil
}

// PolicyUpdate carries a partial configuration edit. Nil fields are left untouched.
type PolicyUpdate struct {
	Enabled                  *bool            `json:"enabled"`
	SafetyStock              *decimal.Decimal `json:"safety_stock"`
	UseCalculatedSafetyStock *bool            `json:"use_calculated_safety_stock"`
	ServiceLevel             *int             `json:"service_level"`
	CustomLookbackDays       *int             `json:"custom_lookback_days"`
	ClearCustomLookback      bool             `json:"clear_custom_lookback"`
	TargetStockMultiplier    *decimal.Decimal `json:"target_stock_multiplier"`
	Notes                    *string          `json:"notes"`
}

// Apply copies the set fields onto p.
func (u PolicyUpdate) Apply(p *Policy) {
	if u.Enabled != nil {
		p.Enabled = *u.Enabled
	}
	if u.SafetyStock != nil {
		p.SafetyStock = *u.SafetyStock
	}
	if u.UseCalculatedSafetyStock != nil {
		p.UseCalculatedSafetyStock = *u.UseCalculatedSafetyStock
	}
	if u.ServiceLevel != nil {
		p.ServiceLevel = *u.ServiceLevel
	}
	if u.ClearCustomLookback {
		p.CustomLookbackDays = nil
	} else if u.CustomLookbackDays != nil {
		v := *u.CustomLookbackDays
		p.CustomLookbackDays = &v
	}
	if u.TargetStockMultiplier != nil {
		p.TargetStockMultiplier = *u.TargetStockMultiplier
	}
	if u.Notes != nil {
		p.Notes = *u.Notes
	}
}

// DemandStatistics is an immutable snapshot appended on every successful calculation.
type DemandStatistics struct {
	ID                    int64            `json:"id" db:"id"`
	PolicyID              int64            `json:"policy_id" db:"policy_id"`
	CalculationDate       time.Time        `json:"calculation_date" db:"calculation_date"`
	MeanDailyDemand       decimal.Decimal  `json:"mean_daily_demand" db:"mean_daily_demand"`
	StdDevDailyDemand     decimal.Decimal  `json:"std_dev_daily_demand" db:"std_dev_daily_demand"`
	TotalRemovals         int              `json:"total_removals" db:"total_removals"`
	AnalysisPeriodDays    int              `json:"analysis_period_days" db:"analysis_period_days"`
	CalculatedSafetyStock *decimal.Decimal `json:"calculated_safety_stock" db:"calculated_safety_stock"`
}

// PolicyCache is the calculation output written back onto the policy.
type PolicyCache struct {
	ROP          decimal.Decimal
	DemandRate   decimal.Decimal
	CalculatedAt time.Time
}
