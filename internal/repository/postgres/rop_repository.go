package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/rop-engine/internal/domain"
	"github.com/andresuchdata/rop-engine/internal/repository"
	"github.com/jmoiron/sqlx"
)

var policyColumns = []string{
	"id", "part_id", "enabled", "safety_stock", "use_calculated_safety_stock",
	"service_level", "custom_lookback_days", "target_stock_multiplier", "notes",
	"last_calculated_rop", "last_calculated_demand_rate", "last_calculation_date",
	"created_at", "updated_at",
}

var statisticsColumns = []string{
	"id", "policy_id", "calculation_date", "mean_daily_demand", "std_dev_daily_demand",
	"total_removals", "analysis_period_days", "calculated_safety_stock",
}

var suggestionColumns = []string{
	"id", "policy_id", "part_id", "suggested_order_qty", "current_stock",
	"projected_stock", "calculated_rop", "stockout_date", "days_until_stockout",
	"urgency_score", "supplier_id", "supplier_name", "lead_time_days", "status",
	"created_date", "actioned_date", "purchase_order_id", "purchase_order_reference", "notes",
}

// columnList renders cols as a select list, qualified with alias when given.
func columnList(alias string, cols []string) string {
	if alias == "" {
		return strings.Join(cols, ", ")
	}
	qualified := make([]string, len(cols))
	for i, c := range cols {
		qualified[i] = alias + "." + c
	}
	return strings.Join(qualified, ", ")
}

type ropRepository struct {
	db *DB
}

func NewROPRepository(db *DB) repository.ROPRepository {
	return &ropRepository{db: db}
}

func (r *ropRepository) GetPolicyByPart(ctx context.Context, partID int64) (*domain.Policy, error) {
	query := fmt.Sprintf(`SELECT %s FROM rop_policies WHERE part_id = ?`, columnList("", policyColumns))

	var p domain.Policy
	if err := r.db.GetContext(ctx, &p, r.db.Rebind(query), partID); err != nil {
		return nil, notFound(err, "policy for part %d", partID)
	}
	return &p, nil
}

func (r *ropRepository) EnsurePolicy(ctx context.Context, p *domain.Policy) (*domain.Policy, error) {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}

	query := `
		INSERT INTO rop_policies (
			part_id, enabled, safety_stock, use_calculated_safety_stock, service_level,
			custom_lookback_days, target_stock_multiplier, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (part_id) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		p.PartID, p.Enabled, p.SafetyStock, p.UseCalculatedSafetyStock, p.ServiceLevel,
		p.CustomLookbackDays, p.TargetStockMultiplier, p.Notes, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert policy for part %d: %w", p.PartID, err)
	}

	return r.GetPolicyByPart(ctx, p.PartID)
}

func (r *ropRepository) UpdatePolicyConfig(ctx context.Context, p *domain.Policy) error {
	query := `
		UPDATE rop_policies
		SET enabled = ?, safety_stock = ?, use_calculated_safety_stock = ?,
		    service_level = ?, custom_lookback_days = ?, target_stock_multiplier = ?,
		    notes = ?, updated_at = ?
		WHERE id = ?
	`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		p.Enabled, p.SafetyStock, p.UseCalculatedSafetyStock,
		p.ServiceLevel, p.CustomLookbackDays, p.TargetStockMultiplier,
		p.Notes, p.UpdatedAt, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update policy %d: %w", p.ID, err)
	}
	return requireAffected(res, "policy %d", p.ID)
}

func (r *ropRepository) ListEnabledPolicies(ctx context.Context) ([]domain.Policy, error) {
	query := fmt.Sprintf(`SELECT %s FROM rop_policies WHERE enabled = ? ORDER BY part_id`, columnList("", policyColumns))

	var policies []domain.Policy
	if err := r.db.SelectContext(ctx, &policies, r.db.Rebind(query), true); err != nil {
		return nil, fmt.Errorf("failed to list enabled policies: %w", err)
	}
	return policies, nil
}

func (r *ropRepository) RecordCalculation(ctx context.Context, policyID int64, cache domain.PolicyCache, stats *domain.DemandStatistics) error {
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		update := `
			UPDATE rop_policies
			SET last_calculated_rop = ?, last_calculated_demand_rate = ?,
			    last_calculation_date = ?, updated_at = ?
			WHERE id = ?
		`
		res, err := tx.ExecContext(ctx, tx.Rebind(update),
			cache.ROP, cache.DemandRate, cache.CalculatedAt, cache.CalculatedAt, policyID)
		if err != nil {
			return fmt.Errorf("failed to update policy cache: %w", err)
		}
		if err := requireAffected(res, "policy %d", policyID); err != nil {
			return err
		}

		stats.PolicyID = policyID
		insert := `
			INSERT INTO rop_demand_statistics (
				policy_id, calculation_date, mean_daily_demand, std_dev_daily_demand,
				total_removals, analysis_period_days, calculated_safety_stock
			) VALUES (?, ?, ?, ?, ?, ?, ?)
			RETURNING id
		`
		err = tx.QueryRowxContext(ctx, tx.Rebind(insert),
			stats.PolicyID, stats.CalculationDate, stats.MeanDailyDemand, stats.StdDevDailyDemand,
			stats.TotalRemovals, stats.AnalysisPeriodDays, stats.CalculatedSafetyStock,
		).Scan(&stats.ID)
		if err != nil {
			return fmt.Errorf("failed to insert demand statistics: %w", err)
		}
		return nil
	})
}

func (r *ropRepository) ListStatistics(ctx context.Context, policyID int64, limit int) ([]domain.DemandStatistics, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM rop_demand_statistics
		WHERE policy_id = ?
		ORDER BY calculation_date DESC, id DESC
		LIMIT ?
	`, columnList("", statisticsColumns))

	var stats []domain.DemandStatistics
	if err := r.db.SelectContext(ctx, &stats, r.db.Rebind(query), policyID, limit); err != nil {
		return nil, fmt.Errorf("failed to list statistics for policy %d: %w", policyID, err)
	}
	return stats, nil
}

func (r *ropRepository) GetSuggestion(ctx context.Context, id int64) (*domain.Suggestion, error) {
	query := fmt.Sprintf(`SELECT %s FROM rop_suggestions WHERE id = ?`, columnList("", suggestionColumns))

	var s domain.Suggestion
	if err := r.db.GetContext(ctx, &s, r.db.Rebind(query), id); err != nil {
		return nil, notFound(err, "suggestion %d", id)
	}
	return &s, nil
}

func (r *ropRepository) GetPendingSuggestion(ctx context.Context, policyID int64) (*domain.Suggestion, error) {
	query := fmt.Sprintf(`SELECT %s FROM rop_suggestions WHERE policy_id = ? AND status = ?`, columnList("", suggestionColumns))

	var s domain.Suggestion
	if err := r.db.GetContext(ctx, &s, r.db.Rebind(query), policyID, domain.SuggestionPending); err != nil {
		return nil, notFound(err, "pending suggestion for policy %d", policyID)
	}
	return &s, nil
}

// UpsertPendingSuggestion relies on the partial unique index
// rop_suggestions(policy_id) WHERE status = 'PENDING'.
func (r *ropRepository) UpsertPendingSuggestion(ctx context.Context, s *domain.Suggestion) error {
	if s.CreatedDate.IsZero() {
		s.CreatedDate = time.Now().UTC()
	}
	s.Status = domain.SuggestionPending

	query := `
		INSERT INTO rop_suggestions (
			policy_id, part_id, suggested_order_qty, current_stock, projected_stock,
			calculated_rop, stockout_date, days_until_stockout, urgency_score,
			supplier_id, supplier_name, lead_time_days, status, created_date, notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (policy_id) WHERE status = 'PENDING' DO UPDATE SET
			suggested_order_qty = excluded.suggested_order_qty,
			current_stock = excluded.current_stock,
			projected_stock = excluded.projected_stock,
			calculated_rop = excluded.calculated_rop,
			stockout_date = excluded.stockout_date,
			days_until_stockout = excluded.days_until_stockout,
			urgency_score = excluded.urgency_score,
			supplier_id = excluded.supplier_id,
			supplier_name = excluded.supplier_name,
			lead_time_days = excluded.lead_time_days
		RETURNING id
	`
	err := r.db.QueryRowxContext(ctx, r.db.Rebind(query),
		s.PolicyID, s.PartID, s.SuggestedOrderQty, s.CurrentStock, s.ProjectedStock,
		s.CalculatedROP, s.StockoutDate, s.DaysUntilStockout, s.UrgencyScore,
		s.SupplierID, s.SupplierName, s.LeadTimeDays, s.Status, s.CreatedDate, s.Notes,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert pending suggestion for policy %d: %w", s.PolicyID, err)
	}

	// An update keeps the first creation date and notes.
	var kept struct {
		CreatedDate time.Time `db:"created_date"`
		Notes       string    `db:"notes"`
	}
	err = r.db.GetContext(ctx, &kept, r.db.Rebind(`SELECT created_date, notes FROM rop_suggestions WHERE id = ?`), s.ID)
	if err != nil {
		return fmt.Errorf("failed to reload suggestion %d: %w", s.ID, err)
	}
	s.CreatedDate = kept.CreatedDate
	s.Notes = kept.Notes
	return nil
}

func (r *ropRepository) ExpirePendingSuggestions(ctx context.Context, policyID int64) (int64, error) {
	query := `UPDATE rop_suggestions SET status = ? WHERE policy_id = ? AND status = ?`

	res, err := r.db.ExecContext(ctx, r.db.Rebind(query), domain.SuggestionExpired, policyID, domain.SuggestionPending)
	if err != nil {
		return 0, fmt.Errorf("failed to expire suggestions for policy %d: %w", policyID, err)
	}
	return res.RowsAffected()
}

func (r *ropRepository) TransitionSuggestion(ctx context.Context, id int64, t domain.SuggestionTransition) error {
	if t.To == domain.SuggestionPending || !t.To.Valid() {
		return domain.Invalidf("cannot transition suggestion to %q", t.To)
	}

	query := `
		UPDATE rop_suggestions
		SET status = ?, actioned_date = ?,
		    purchase_order_id = COALESCE(?, purchase_order_id),
		    purchase_order_reference = COALESCE(?, purchase_order_reference)
		WHERE id = ? AND status = ?
	`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		t.To, t.At, t.PurchaseOrderID, t.PurchaseOrderRef, id, domain.SuggestionPending)
	if err != nil {
		return fmt.Errorf("failed to transition suggestion %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	// Nothing matched: tell a missing row from one that already left PENDING.
	var status domain.SuggestionStatus
	err = r.db.GetContext(ctx, &status, r.db.Rebind(`SELECT status FROM rop_suggestions WHERE id = ?`), id)
	if err != nil {
		return notFound(err, "suggestion %d", id)
	}
	return fmt.Errorf("suggestion %d is %s: %w", id, status, domain.ErrSuggestionNotPending)
}

func (r *ropRepository) ListPendingSuggestions(ctx context.Context, filter domain.SuggestionFilter) ([]domain.SuggestionView, error) {
	filter = filter.Normalize()

	query := fmt.Sprintf(`
		SELECT %s,
		       p.name AS part_name,
		       COALESCE(p.ipn, '') AS part_ipn,
		       COALESCE(p.description, '') AS part_description
		FROM rop_suggestions s
		JOIN parts p ON p.id = s.part_id
		WHERE s.status = ? AND s.urgency_score >= ?
		ORDER BY s.urgency_score DESC, s.stockout_date ASC NULLS LAST, s.id ASC
		LIMIT ?
	`, columnList("s", suggestionColumns))

	var views []domain.SuggestionView
	err := r.db.SelectContext(ctx, &views, r.db.Rebind(query),
		domain.SuggestionPending, filter.MinUrgency, filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending suggestions: %w", err)
	}
	return views, nil
}

func requireAffected(res sql.Result, format string, args ...any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.NotFoundf(format, args...)
	}
	return nil
}

var _ repository.ROPRepository = (*ropRepository)(nil)

// isNoRows is shared by the host store queries that treat a missing row as zero.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
