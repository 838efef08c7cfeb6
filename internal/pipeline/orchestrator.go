package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/rop-engine/internal/domain"
	"github.com/andresuchdata/rop-engine/internal/repository"
	"github.com/rs/zerolog/log"
)

// Orchestrator runs the reorder pipeline over every enabled policy and keeps
// a CalculationRun record of the batch.
type Orchestrator struct {
	policies repository.ROPRepository
	runs     repository.RunRepository
	pool     *WorkerPool
	now      func() time.Time
}

// NewOrchestrator creates a new Orchestrator.
func NewOrchestrator(policies repository.ROPRepository, runs repository.RunRepository, calc Calculator, cfg BatchConfig) *Orchestrator {
	return &Orchestrator{
		policies: policies,
		runs:     runs,
		pool:     NewWorkerPool(calc, cfg),
		now:      time.Now,
	}
}

// CalculateAll processes all enabled policies. Per-part failures are
// recorded on the run and never abort the batch; the returned error is only
// set when the run itself could not be tracked or was cancelled.
func (o *Orchestrator) CalculateAll(ctx context.Context) (*domain.CalculationRun, error) {
	policies, err := o.policies.ListEnabledPolicies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list enabled policies: %w", err)
	}

	run := &domain.CalculationRun{
		Status:     domain.RunProcessing,
		TotalParts: len(policies),
		StartedAt:  o.now().UTC(),
	}
	if err := o.runs.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("create calculation run: %w", err)
	}

	log.Info().Int64("run_id", run.ID).Int("parts", run.TotalParts).Msg("rop batch: starting")

	partIDs := make([]int64, len(policies))
	for i, p := range policies {
		partIDs[i] = p.PartID
	}

	for result := range o.pool.Process(ctx, partIDs) {
		if result.Err != nil {
			partErr := domain.PartError{PartID: result.PartID, Error: result.Err.Error()}
			run.Errors = append(run.Errors, partErr)
			if err := o.runs.AddRunError(ctx, run.ID, partErr); err != nil {
				log.Warn().Err(err).Int64("run_id", run.ID).Msg("rop batch: failed to record part error")
			}
			continue
		}

		run.PartsAnalyzed++
		if result.Outcome != nil && result.Outcome.State == domain.StateNeedsReorder {
			run.SuggestionCount++
		}
	}

	completed := o.now().UTC()
	run.CompletedAt = &completed
	run.Status = domain.RunCompleted
	if ctxErr := ctx.Err(); ctxErr != nil {
		run.Status = domain.RunFailed
		run.ErrorMessage = ctxErr.Error()
	}

	// the caller's context may already be done; the run record still has to close
	if err := o.runs.UpdateRun(context.WithoutCancel(ctx), run); err != nil {
		return run, fmt.Errorf("complete calculation run: %w", err)
	}

	log.Info().
		Int64("run_id", run.ID).
		Int("analyzed", run.PartsAnalyzed).
		Int("suggestions", run.SuggestionCount).
		Int("errors", len(run.Errors)).
		Dur("elapsed", completed.Sub(run.StartedAt)).
		Msg("rop batch: finished")

	if run.Status == domain.RunFailed {
		return run, fmt.Errorf("calculation run %d interrupted: %w", run.ID, ctx.Err())
	}
	return run, nil
}
