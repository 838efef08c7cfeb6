package postgres

import (
	"context"
	"fmt"

	"github.com/andresuchdata/rop-engine/internal/domain"
	"github.com/andresuchdata/rop-engine/internal/repository"
	"github.com/jmoiron/sqlx"
)

type runRepository struct {
	db *DB
}

func NewRunRepository(db *DB) repository.RunRepository {
	return &runRepository{db: db}
}

// CreateRun creates a new calculation run record
func (r *runRepository) CreateRun(ctx context.Context, run *domain.CalculationRun) error {
	query := `
		INSERT INTO rop_calculation_runs (
			status, total_parts, parts_analyzed, suggestion_count, started_at, error_message
		) VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id
	`

	err := r.db.QueryRowxContext(ctx, r.db.Rebind(query),
		run.Status, run.TotalParts, run.PartsAnalyzed, run.SuggestionCount, run.StartedAt, run.ErrorMessage,
	).Scan(&run.ID)
	if err != nil {
		return fmt.Errorf("failed to create calculation run: %w", err)
	}
	return nil
}

// UpdateRun writes the counters and completion fields of an existing run
func (r *runRepository) UpdateRun(ctx context.Context, run *domain.CalculationRun) error {
	query := `
		UPDATE rop_calculation_runs
		SET status = ?, total_parts = ?, parts_analyzed = ?, suggestion_count = ?,
		    completed_at = ?, error_message = ?
		WHERE id = ?
	`

	res, err := r.db.ExecContext(ctx, r.db.Rebind(query),
		run.Status, run.TotalParts, run.PartsAnalyzed, run.SuggestionCount,
		run.CompletedAt, run.ErrorMessage, run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update calculation run %d: %w", run.ID, err)
	}
	return requireAffected(res, "calculation run %d", run.ID)
}

func (r *runRepository) AddRunError(ctx context.Context, runID int64, partErr domain.PartError) error {
	query := `INSERT INTO rop_calculation_run_errors (run_id, part_id, error) VALUES (?, ?, ?)`

	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), runID, partErr.PartID, partErr.Error); err != nil {
		return fmt.Errorf("failed to record error for run %d: %w", runID, err)
	}
	return nil
}

// ListRuns returns the most recent runs with their part errors attached.
func (r *runRepository) ListRuns(ctx context.Context, limit int) ([]domain.CalculationRun, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, status, total_parts, parts_analyzed, suggestion_count,
		       started_at, completed_at, COALESCE(error_message, '') AS error_message
		FROM rop_calculation_runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`

	var runs []domain.CalculationRun
	if err := r.db.SelectContext(ctx, &runs, r.db.Rebind(query), limit); err != nil {
		return nil, fmt.Errorf("failed to list calculation runs: %w", err)
	}
	if len(runs) == 0 {
		return runs, nil
	}

	ids := make([]int64, len(runs))
	index := make(map[int64]int, len(runs))
	for i, run := range runs {
		ids[i] = run.ID
		index[run.ID] = i
	}

	errQuery, args, err := sqlx.In(`
		SELECT run_id, part_id, error
		FROM rop_calculation_run_errors
		WHERE run_id IN (?)
		ORDER BY id
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build run error query: %w", err)
	}

	var rows []struct {
		RunID int64 `db:"run_id"`
		domain.PartError
	}
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(errQuery), args...); err != nil {
		return nil, fmt.Errorf("failed to load run errors: %w", err)
	}
	for _, row := range rows {
		i := index[row.RunID]
		runs[i].Errors = append(runs[i].Errors, row.PartError)
	}

	return runs, nil
}

var _ repository.RunRepository = (*runRepository)(nil)
