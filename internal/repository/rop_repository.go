package repository

import (
	"context"

	"github.com/andresuchdata/rop-engine/internal/domain"
)

// ROPRepository persists policies, demand statistics and suggestions.
//
// Lookups of a single entity return an error wrapping domain.ErrNotFound
// when nothing matches.
type ROPRepository interface {
	GetPolicyByPart(ctx context.Context, partID int64) (*domain.Policy, error)
	// EnsurePolicy inserts p unless the part already has a policy and
	// returns whichever row is stored.
	EnsurePolicy(ctx context.Context, p *domain.Policy) (*domain.Policy, error)
	// UpdatePolicyConfig writes the user editable fields of p. The cached
	// calculation fields are left alone.
	UpdatePolicyConfig(ctx context.Context, p *domain.Policy) error
	ListEnabledPolicies(ctx context.Context) ([]domain.Policy, error)

	// RecordCalculation updates the policy cache and appends stats in one transaction.
	RecordCalculation(ctx context.Context, policyID int64, cache domain.PolicyCache, stats *domain.DemandStatistics) error
	// ListStatistics returns up to limit snapshots, newest first.
	ListStatistics(ctx context.Context, policyID int64, limit int) ([]domain.DemandStatistics, error)

	GetSuggestion(ctx context.Context, id int64) (*domain.Suggestion, error)
	GetPendingSuggestion(ctx context.Context, policyID int64) (*domain.Suggestion, error)
	// UpsertPendingSuggestion creates the policy's PENDING suggestion or
	// overwrites the computed fields of the existing one. s.ID and
	// s.CreatedDate are set from the stored row.
	UpsertPendingSuggestion(ctx context.Context, s *domain.Suggestion) error
	// ExpirePendingSuggestions moves the policy's PENDING suggestion, if any,
	// to EXPIRED and reports how many rows changed.
	ExpirePendingSuggestions(ctx context.Context, policyID int64) (int64, error)
	// TransitionSuggestion moves a PENDING suggestion to t.To. It fails with
	// domain.ErrSuggestionNotPending when the row is in any other status.
	TransitionSuggestion(ctx context.Context, id int64, t domain.SuggestionTransition) error
	// ListPendingSuggestions orders by urgency descending, then stockout
	// date ascending with unknown dates last.
	ListPendingSuggestions(ctx context.Context, filter domain.SuggestionFilter) ([]domain.SuggestionView, error)
}

// RunRepository tracks batch calculation runs.
type RunRepository interface {
	CreateRun(ctx context.Context, run *domain.CalculationRun) error
	UpdateRun(ctx context.Context, run *domain.CalculationRun) error
	AddRunError(ctx context.Context, runID int64, partErr domain.PartError) error
	ListRuns(ctx context.Context, limit int) ([]domain.CalculationRun, error)
}
