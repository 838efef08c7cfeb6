package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/andresuchdata/rop-engine/internal/cache"
	"github.com/andresuchdata/rop-engine/internal/config"
	"github.com/andresuchdata/rop-engine/internal/domain"
	"github.com/andresuchdata/rop-engine/internal/forecast"
	"github.com/andresuchdata/rop-engine/internal/pipeline/rop"
	"github.com/andresuchdata/rop-engine/internal/repository"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const partHistoryLimit = 30

// Stores groups the collaborators the ROP service reads from and writes to.
type Stores struct {
	ROP       repository.ROPRepository
	Runs      repository.RunRepository
	Inventory repository.InventoryStore
	History   repository.HistoryStore
	Orders    repository.OrderCreator
}

type ROPService struct {
	cfg       config.ROPConfig
	stores    Stores
	estimator *rop.StockoutEstimator
	cache     cache.SuggestionCache
	inflight  singleflight.Group
	now       func() time.Time
}

func NewROPService(cfg config.ROPConfig, stores Stores, estimator *rop.StockoutEstimator, cacheImpl cache.SuggestionCache) *ROPService {
	if estimator == nil {
		estimator = rop.NewStockoutEstimator(forecast.None{})
	}
	if cacheImpl == nil {
		cacheImpl = cache.NewNoopSuggestionCache()
	}
	return &ROPService{
		cfg:       cfg,
		stores:    stores,
		estimator: estimator,
		cache:     cacheImpl,
		now:       time.Now,
	}
}

// WithClock replaces the time source. Used by tests and the demo seeder.
func (s *ROPService) WithClock(now func() time.Time) *ROPService {
	s.now = now
	return s
}

// Config returns the settings the service was built with.
func (s *ROPService) Config() config.ROPConfig {
	return s.cfg
}

// CalculatePart runs the reorder pipeline for one part. Concurrent calls for
// the same part share a single execution. A caller whose context ends stops
// waiting, but the shared execution keeps running for the others.
func (s *ROPService) CalculatePart(ctx context.Context, partID int64) (*domain.CalculationOutcome, error) {
	shared := context.WithoutCancel(ctx)
	ch := s.inflight.DoChan(strconv.FormatInt(partID, 10), func() (any, error) {
		return s.calculatePart(shared, partID)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.CalculationOutcome), nil
	}
}

func (s *ROPService) calculatePart(ctx context.Context, partID int64) (*domain.CalculationOutcome, error) {
	if _, err := s.stores.Inventory.GetPart(ctx, partID); err != nil {
		return nil, err
	}

	// 1. policy
	policy, err := s.ensurePolicy(ctx, partID)
	if err != nil {
		return nil, err
	}
	outcome := &domain.CalculationOutcome{PartID: partID, Policy: policy}
	if !policy.Enabled {
		outcome.State = domain.StateDisabled
		return outcome, nil
	}

	// 2. demand statistics
	today := s.now().UTC()
	lookback := policy.EffectiveLookbackDays(s.cfg.LookbackDays)
	events, err := s.stores.History.GetRemovalEvents(ctx, partID, today.AddDate(0, 0, -lookback), today)
	if err != nil {
		return nil, fmt.Errorf("load removal events: %w", err)
	}

	estimate, err := rop.EstimateDemand(events, lookback, s.cfg.MinDemandSamples)
	if errors.Is(err, domain.ErrInsufficientData) {
		log.Warn().Err(err).Int64("part_id", partID).Int("removals", estimate.RemovalCount).Msg("rop: skipping part")
		outcome.State = domain.StateInsufficientData
		return outcome, nil
	}
	if err != nil {
		return nil, err
	}

	// 3. safety stock and reorder point
	options, err := s.stores.Inventory.GetSupplierOptions(ctx, partID)
	if err != nil {
		return nil, fmt.Errorf("load supplier options: %w", err)
	}
	leadTime, ok := rop.ResolveLeadTime(options)
	if !ok {
		leadTime = s.cfg.DefaultLeadTimeDays
		log.Warn().Int64("part_id", partID).Int("lead_time_days", leadTime).Msg("rop: no supplier lead time, using default")
	}

	safetyStock := rop.SafetyStock(policy, estimate, leadTime)
	reorderPoint := rop.ReorderPoint(estimate.MeanDailyDemand, leadTime, safetyStock)

	// 4. cache and statistics snapshot
	stats := &domain.DemandStatistics{
		CalculationDate:    today,
		MeanDailyDemand:    estimate.MeanDailyDemand,
		StdDevDailyDemand:  estimate.StdDevDailyDemand,
		TotalRemovals:      estimate.RemovalCount,
		AnalysisPeriodDays: estimate.AnalysisPeriodDays,
	}
	if policy.UseCalculatedSafetyStock {
		ss := safetyStock
		stats.CalculatedSafetyStock = &ss
	}
	if err := s.stores.ROP.RecordCalculation(ctx, policy.ID, domain.PolicyCache{
		ROP:          reorderPoint,
		DemandRate:   estimate.MeanDailyDemand,
		CalculatedAt: today,
	}, stats); err != nil {
		return nil, fmt.Errorf("record calculation: %w", err)
	}

	rate := estimate.MeanDailyDemand
	policy.LastCalculatedROP = &reorderPoint
	policy.LastCalculatedDemandRate = &rate
	policy.LastCalculationDate = &today
	outcome.Statistics = stats
	outcome.ROP = &reorderPoint

	// 5. projection
	position, err := s.position(ctx, partID)
	if err != nil {
		return nil, err
	}
	projected := position.Projected
	outcome.ProjectedStock = &projected

	if position.Projected.GreaterThanOrEqual(reorderPoint) {
		expired, err := s.stores.ROP.ExpirePendingSuggestions(ctx, policy.ID)
		if err != nil {
			return nil, fmt.Errorf("expire pending suggestions: %w", err)
		}
		if expired > 0 {
			log.Info().Int64("part_id", partID).Int64("expired", expired).Msg("rop: stock recovered, pending suggestion expired")
			s.invalidate(ctx)
		}
		outcome.State = domain.StateSufficient
		return outcome, nil
	}

	// 6. order quantity
	_, qty := rop.SuggestedOrderQty(reorderPoint, policy.TargetStockMultiplier, position.Projected)

	// 7. stockout timing
	prediction := s.estimator.Estimate(ctx, partID, position.Current, reorderPoint, &rate, today)

	suggestion := &domain.Suggestion{
		PolicyID:          policy.ID,
		PartID:            partID,
		SuggestedOrderQty: qty,
		CurrentStock:      position.Current,
		ProjectedStock:    position.Projected,
		CalculatedROP:     reorderPoint,
		StockoutDate:      prediction.Date,
		DaysUntilStockout: prediction.Days,
		LeadTimeDays:      &leadTime,
		CreatedDate:       today,
	}

	// 8. supplier
	if supplier := rop.SelectSupplier(options); supplier != nil {
		id, name := supplier.SupplierID, supplier.SupplierName
		suggestion.SupplierID = &id
		suggestion.SupplierName = &name
	}

	// 9. persist
	suggestion.UrgencyScore = rop.UrgencyScore(rop.UrgencyFor(suggestion))
	if err := s.stores.ROP.UpsertPendingSuggestion(ctx, suggestion); err != nil {
		return nil, fmt.Errorf("save suggestion: %w", err)
	}
	s.invalidate(ctx)

	log.Info().
		Int64("part_id", partID).
		Int64("suggestion_id", suggestion.ID).
		Str("rop", reorderPoint.String()).
		Str("projected", position.Projected.String()).
		Str("qty", qty.String()).
		Float64("urgency", suggestion.UrgencyScore).
		Msg("rop: reorder suggested")

	outcome.State = domain.StateNeedsReorder
	outcome.Suggestion = suggestion
	return outcome, nil
}

func (s *ROPService) position(ctx context.Context, partID int64) (rop.StockPosition, error) {
	current, err := s.stores.Inventory.GetCurrentStock(ctx, partID)
	if err != nil {
		return rop.StockPosition{}, fmt.Errorf("load current stock: %w", err)
	}
	committed, err := s.stores.Inventory.GetCommittedQuantity(ctx, partID)
	if err != nil {
		return rop.StockPosition{}, fmt.Errorf("load committed quantity: %w", err)
	}
	lines, err := s.stores.Inventory.GetOpenInboundLines(ctx, partID)
	if err != nil {
		return rop.StockPosition{}, fmt.Errorf("load inbound lines: %w", err)
	}
	return rop.ProjectStock(current, lines, committed), nil
}

func (s *ROPService) ensurePolicy(ctx context.Context, partID int64) (*domain.Policy, error) {
	policy, err := s.stores.ROP.GetPolicyByPart(ctx, partID)
	if err == nil {
		return policy, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}

	now := s.now().UTC()
	return s.stores.ROP.EnsurePolicy(ctx, &domain.Policy{
		PartID:                   partID,
		Enabled:                  true,
		SafetyStock:              decimal.Zero,
		UseCalculatedSafetyStock: false,
		ServiceLevel:             int(s.cfg.DefaultServiceLevel),
		TargetStockMultiplier:    decimal.NewFromFloat(s.cfg.TargetStockMultiplier),
		CreatedAt:                now,
		UpdatedAt:                now,
	})
}

// GeneratePurchaseOrder turns a pending suggestion into a draft purchase order
// with a single line and marks the suggestion PO_CREATED.
func (s *ROPService) GeneratePurchaseOrder(ctx context.Context, suggestionID int64) (*domain.PurchaseOrder, error) {
	suggestion, err := s.stores.ROP.GetSuggestion(ctx, suggestionID)
	if err != nil {
		return nil, err
	}
	if suggestion.Status != domain.SuggestionPending {
		return nil, fmt.Errorf("suggestion %d is %s: %w", suggestionID, suggestion.Status, domain.ErrSuggestionNotPending)
	}
	if suggestion.SupplierID == nil {
		return nil, fmt.Errorf("suggestion %d: %w", suggestionID, domain.ErrNoSupplier)
	}

	part, err := s.stores.Inventory.GetPart(ctx, suggestion.PartID)
	if err != nil {
		return nil, err
	}

	today := s.now().UTC()
	po, err := s.stores.Orders.CreatePurchaseOrder(ctx, domain.PurchaseOrderRequest{
		SupplierID:  *suggestion.SupplierID,
		Reference:   fmt.Sprintf("ROP-%s-%d", today.Format("20060102"), suggestion.ID),
		Description: fmt.Sprintf("Auto-generated from ROP suggestion for %s", part.Name),
		Lines: []domain.PurchaseOrderLine{{
			PartID:    suggestion.PartID,
			Quantity:  suggestion.SuggestedOrderQty,
			Reference: fmt.Sprintf("ROP Suggestion #%d", suggestion.ID),
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("create purchase order: %w", err)
	}

	ref := po.Reference
	if err := s.stores.ROP.TransitionSuggestion(ctx, suggestion.ID, domain.SuggestionTransition{
		To:               domain.SuggestionPOCreated,
		At:               today,
		PurchaseOrderID:  &po.ID,
		PurchaseOrderRef: &ref,
	}); err != nil {
		// the draft order stays behind for the buyer to delete
		log.Error().Err(err).
			Int64("suggestion_id", suggestion.ID).
			Int64("purchase_order_id", po.ID).
			Msg("rop: suggestion changed while creating purchase order")
		return nil, err
	}
	s.invalidate(ctx)

	log.Info().Int64("suggestion_id", suggestion.ID).Str("reference", po.Reference).Msg("rop: purchase order created")
	return po, nil
}

// DismissSuggestion closes a pending suggestion without ordering.
func (s *ROPService) DismissSuggestion(ctx context.Context, suggestionID int64) (*domain.Suggestion, error) {
	if err := s.stores.ROP.TransitionSuggestion(ctx, suggestionID, domain.SuggestionTransition{
		To: domain.SuggestionDismissed,
		At: s.now().UTC(),
	}); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return s.stores.ROP.GetSuggestion(ctx, suggestionID)
}

func (s *ROPService) ListSuggestions(ctx context.Context, filter domain.SuggestionFilter) ([]domain.SuggestionView, error) {
	filter = filter.Normalize()

	if views, ok, err := s.cache.GetPending(ctx, filter); err == nil && ok {
		return views, nil
	} else if err != nil {
		log.Warn().Err(err).Msg("rop: cache get pending suggestions failed")
	}

	views, err := s.stores.ROP.ListPendingSuggestions(ctx, filter)
	if err != nil {
		return nil, err
	}
	if views == nil {
		views = make([]domain.SuggestionView, 0)
	}

	if err := s.cache.SetPending(ctx, filter, views); err != nil {
		log.Warn().Err(err).Msg("rop: cache set pending suggestions failed")
	}
	return views, nil
}

func (s *ROPService) GetPartDetails(ctx context.Context, partID int64) (*domain.PartDetails, error) {
	part, err := s.stores.Inventory.GetPart(ctx, partID)
	if err != nil {
		return nil, err
	}
	current, err := s.stores.Inventory.GetCurrentStock(ctx, partID)
	if err != nil {
		return nil, fmt.Errorf("load current stock: %w", err)
	}

	details := &domain.PartDetails{Part: *part, CurrentStock: current}

	policy, err := s.stores.ROP.GetPolicyByPart(ctx, partID)
	if errors.Is(err, domain.ErrNotFound) {
		return details, nil
	}
	if err != nil {
		return nil, err
	}
	details.HasPolicy = true
	details.Policy = policy

	history, err := s.stores.ROP.ListStatistics(ctx, policy.ID, partHistoryLimit)
	if err != nil {
		return nil, err
	}
	if len(history) > 0 {
		latest := history[0]
		details.LatestStatistics = &latest
	}
	details.HistoricalDemand = history

	pending, err := s.stores.ROP.GetPendingSuggestion(ctx, policy.ID)
	switch {
	case err == nil:
		details.PendingSuggestion = pending
	case !errors.Is(err, domain.ErrNotFound):
		return nil, err
	}
	return details, nil
}

// UpdatePolicy applies a configuration edit, creating the policy if needed.
// Calculated fields are never touched here.
func (s *ROPService) UpdatePolicy(ctx context.Context, partID int64, update domain.PolicyUpdate) (*domain.Policy, error) {
	if _, err := s.stores.Inventory.GetPart(ctx, partID); err != nil {
		return nil, err
	}
	policy, err := s.ensurePolicy(ctx, partID)
	if err != nil {
		return nil, err
	}

	update.Apply(policy)
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	policy.UpdatedAt = s.now().UTC()

	if err := s.stores.ROP.UpdatePolicyConfig(ctx, policy); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return s.stores.ROP.GetPolicyByPart(ctx, partID)
}

func (s *ROPService) ListRuns(ctx context.Context, limit int) ([]domain.CalculationRun, error) {
	return s.stores.Runs.ListRuns(ctx, limit)
}

func (s *ROPService) invalidate(ctx context.Context) {
	if err := s.cache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("rop: cache invalidation failed")
	}
}
