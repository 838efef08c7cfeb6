package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/andresuchdata/rop-engine/internal/domain"
	"github.com/andresuchdata/rop-engine/internal/repository"
)

func (s *Store) policyByPart(partID int64) *domain.Policy {
	for _, p := range s.policies {
		if p.PartID == partID {
			return p
		}
	}
	return nil
}

func (s *Store) pendingFor(policyID int64) *domain.Suggestion {
	for _, sg := range s.suggestions {
		if sg.PolicyID == policyID && sg.Status == domain.SuggestionPending {
			return sg
		}
	}
	return nil
}

func clonePolicy(p *domain.Policy) *domain.Policy {
	out := *p
	if p.CustomLookbackDays != nil {
		v := *p.CustomLookbackDays
		out.CustomLookbackDays = &v
	}
	return &out
}

func cloneSuggestion(sg *domain.Suggestion) *domain.Suggestion {
	out := *sg
	return &out
}

func (s *Store) GetPolicyByPart(ctx context.Context, partID int64) (*domain.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p := s.policyByPart(partID)
	if p == nil {
		return nil, domain.NotFoundf("policy for part %d", partID)
	}
	return clonePolicy(p), nil
}

func (s *Store) EnsurePolicy(ctx context.Context, p *domain.Policy) (*domain.Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing := s.policyByPart(p.PartID); existing != nil {
		return clonePolicy(existing), nil
	}

	stored := clonePolicy(p)
	stored.ID = s.id()
	s.policies[stored.ID] = stored
	return clonePolicy(stored), nil
}

func (s *Store) UpdatePolicyConfig(ctx context.Context, p *domain.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.policies[p.ID]
	if !ok {
		return domain.NotFoundf("policy %d", p.ID)
	}

	updated := clonePolicy(p)
	updated.PartID = stored.PartID
	updated.CreatedAt = stored.CreatedAt
	updated.LastCalculatedROP = stored.LastCalculatedROP
	updated.LastCalculatedDemandRate = stored.LastCalculatedDemandRate
	updated.LastCalculationDate = stored.LastCalculationDate
	s.policies[p.ID] = updated
	return nil
}

func (s *Store) ListEnabledPolicies(ctx context.Context) ([]domain.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Policy
	for _, p := range s.policies {
		if p.Enabled {
			out = append(out, *clonePolicy(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PartID < out[j].PartID })
	return out, nil
}

func (s *Store) RecordCalculation(ctx context.Context, policyID int64, cache domain.PolicyCache, stats *domain.DemandStatistics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.policies[policyID]
	if !ok {
		return domain.NotFoundf("policy %d", policyID)
	}

	rop, rate, at := cache.ROP, cache.DemandRate, cache.CalculatedAt
	p.LastCalculatedROP = &rop
	p.LastCalculatedDemandRate = &rate
	p.LastCalculationDate = &at
	p.UpdatedAt = at

	stats.ID = s.id()
	stats.PolicyID = policyID
	s.statistics = append(s.statistics, *stats)
	return nil
}

func (s *Store) ListStatistics(ctx context.Context, policyID int64, limit int) ([]domain.DemandStatistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.DemandStatistics
	for i := len(s.statistics) - 1; i >= 0; i-- {
		if s.statistics[i].PolicyID == policyID {
			out = append(out, s.statistics[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CalculationDate.After(out[j].CalculationDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) GetSuggestion(ctx context.Context, id int64) (*domain.Suggestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sg, ok := s.suggestions[id]
	if !ok {
		return nil, domain.NotFoundf("suggestion %d", id)
	}
	return cloneSuggestion(sg), nil
}

func (s *Store) GetPendingSuggestion(ctx context.Context, policyID int64) (*domain.Suggestion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sg := s.pendingFor(policyID)
	if sg == nil {
		return nil, domain.NotFoundf("pending suggestion for policy %d", policyID)
	}
	return cloneSuggestion(sg), nil
}

func (s *Store) UpsertPendingSuggestion(ctx context.Context, sg *domain.Suggestion) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sg.Status = domain.SuggestionPending
	if existing := s.pendingFor(sg.PolicyID); existing != nil {
		sg.ID = existing.ID
		sg.CreatedDate = existing.CreatedDate
		sg.Notes = existing.Notes
	} else {
		sg.ID = s.id()
	}
	s.suggestions[sg.ID] = cloneSuggestion(sg)
	return nil
}

func (s *Store) ExpirePendingSuggestions(ctx context.Context, policyID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for _, sg := range s.suggestions {
		if sg.PolicyID == policyID && sg.Status == domain.SuggestionPending {
			sg.Status = domain.SuggestionExpired
			n++
		}
	}
	return n, nil
}

func (s *Store) TransitionSuggestion(ctx context.Context, id int64, t domain.SuggestionTransition) error {
	if t.To == domain.SuggestionPending || !t.To.Valid() {
		return domain.Invalidf("cannot transition suggestion to %q", t.To)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sg, ok := s.suggestions[id]
	if !ok {
		return domain.NotFoundf("suggestion %d", id)
	}
	if sg.Status != domain.SuggestionPending {
		return fmt.Errorf("suggestion %d is %s: %w", id, sg.Status, domain.ErrSuggestionNotPending)
	}

	at := t.At
	sg.Status = t.To
	sg.ActionedDate = &at
	if t.PurchaseOrderID != nil {
		sg.PurchaseOrderID = t.PurchaseOrderID
	}
	if t.PurchaseOrderRef != nil {
		sg.PurchaseOrderRef = t.PurchaseOrderRef
	}
	return nil
}

func (s *Store) ListPendingSuggestions(ctx context.Context, filter domain.SuggestionFilter) ([]domain.SuggestionView, error) {
	filter = filter.Normalize()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var views []domain.SuggestionView
	for _, sg := range s.suggestions {
		if sg.Status != domain.SuggestionPending || sg.UrgencyScore < filter.MinUrgency {
			continue
		}
		part := s.parts[sg.PartID]
		views = append(views, domain.SuggestionView{
			Suggestion:      *sg,
			PartName:        part.Name,
			PartIPN:         part.IPN,
			PartDescription: part.Description,
		})
	}

	sort.Slice(views, func(i, j int) bool {
		a, b := views[i], views[j]
		if a.UrgencyScore != b.UrgencyScore {
			return a.UrgencyScore > b.UrgencyScore
		}
		switch {
		case a.StockoutDate == nil && b.StockoutDate == nil:
			return a.ID < b.ID
		case a.StockoutDate == nil:
			return false
		case b.StockoutDate == nil:
			return true
		case !a.StockoutDate.Equal(*b.StockoutDate):
			return a.StockoutDate.Before(*b.StockoutDate)
		}
		return a.ID < b.ID
	})

	if len(views) > filter.Limit {
		views = views[:filter.Limit]
	}
	return views, nil
}

func (s *Store) CreateRun(ctx context.Context, run *domain.CalculationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	run.ID = s.id()
	stored := *run
	stored.Errors = nil
	s.runs[run.ID] = &stored
	return nil
}

func (s *Store) UpdateRun(ctx context.Context, run *domain.CalculationRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.runs[run.ID]
	if !ok {
		return domain.NotFoundf("calculation run %d", run.ID)
	}
	errs := stored.Errors
	*stored = *run
	stored.Errors = errs
	return nil
}

func (s *Store) AddRunError(ctx context.Context, runID int64, partErr domain.PartError) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.runs[runID]
	if !ok {
		return domain.NotFoundf("calculation run %d", runID)
	}
	stored.Errors = append(stored.Errors, partErr)
	return nil
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]domain.CalculationRun, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.CalculationRun, 0, len(s.runs))
	for _, run := range s.runs {
		cp := *run
		cp.Errors = append([]domain.PartError(nil), run.Errors...)
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

var (
	_ repository.ROPRepository = (*Store)(nil)
	_ repository.RunRepository = (*Store)(nil)
)
