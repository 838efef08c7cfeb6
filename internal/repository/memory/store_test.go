package memory

import (
	"context"
	"testing"
	"time"

	"github.com/andresuchdata/rop-engine/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 5, 10, 9, 0, 0, 0, time.UTC)

func TestStore_InboundOnlyIssuedOrders(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	part := s.AddPart("Widget", "W-1")
	sup := s.AddSupplier("Acme", true)

	s.AddInbound(part, sup, domain.OrderDraft, decimal.NewFromInt(10), decimal.Zero)
	placed := s.AddInbound(part, sup, domain.OrderPlaced, decimal.NewFromInt(10), decimal.NewFromInt(4))
	s.AddInbound(part, sup, domain.OrderComplete, decimal.NewFromInt(10), decimal.NewFromInt(10))

	lines, err := s.GetOpenInboundLines(ctx, part)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, placed, lines[0].OrderID)
}

func TestStore_RemovalEventsWindow(t *testing.T) {
	s := NewStore()
	part := s.AddPart("Widget", "W-1")
	s.AddMovements(
		domain.StockMovement{PartID: part, Quantity: decimal.NewFromInt(5), Type: domain.MovementRemoved, OccurredAt: now.AddDate(0, 0, -1)},
		domain.StockMovement{PartID: part, Quantity: decimal.NewFromInt(7), Type: domain.MovementReceived, OccurredAt: now.AddDate(0, 0, -1)},
		domain.StockMovement{PartID: part, Quantity: decimal.NewFromInt(9), Type: domain.MovementShipped, OccurredAt: now.AddDate(0, 0, -100)},
		domain.StockMovement{PartID: part, Quantity: decimal.NewFromInt(11), Type: domain.MovementRemoved, OccurredAt: now.Add(time.Hour)},
	)

	events, err := s.GetRemovalEvents(context.Background(), part, now.AddDate(0, 0, -90), now)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "5", events[0].String())
}

func TestStore_SinglePendingSuggestion(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	part := s.AddPart("Widget", "W-1")
	policy, err := s.EnsurePolicy(ctx, &domain.Policy{PartID: part, Enabled: true, ServiceLevel: 95})
	require.NoError(t, err)

	first := &domain.Suggestion{PolicyID: policy.ID, PartID: part, CreatedDate: now, UrgencyScore: 50}
	require.NoError(t, s.UpsertPendingSuggestion(ctx, first))
	second := &domain.Suggestion{PolicyID: policy.ID, PartID: part, CreatedDate: now.Add(time.Hour), UrgencyScore: 70}
	require.NoError(t, s.UpsertPendingSuggestion(ctx, second))

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, now, second.CreatedDate)

	views, err := s.ListPendingSuggestions(ctx, domain.SuggestionFilter{})
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, 70.0, views[0].UrgencyScore)
	assert.Equal(t, "Widget", views[0].PartName)
}

func TestStore_TransitionRequiresPending(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	part := s.AddPart("Widget", "W-1")
	policy, err := s.EnsurePolicy(ctx, &domain.Policy{PartID: part, Enabled: true})
	require.NoError(t, err)

	sg := &domain.Suggestion{PolicyID: policy.ID, PartID: part, CreatedDate: now}
	require.NoError(t, s.UpsertPendingSuggestion(ctx, sg))

	require.NoError(t, s.TransitionSuggestion(ctx, sg.ID, domain.SuggestionTransition{To: domain.SuggestionDismissed, At: now}))
	err = s.TransitionSuggestion(ctx, sg.ID, domain.SuggestionTransition{To: domain.SuggestionDismissed, At: now})
	assert.ErrorIs(t, err, domain.ErrSuggestionNotPending)

	n, err := s.ExpirePendingSuggestions(ctx, policy.ID)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_UpdatePolicyConfigKeepsCache(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	part := s.AddPart("Widget", "W-1")
	policy, err := s.EnsurePolicy(ctx, &domain.Policy{PartID: part, Enabled: true, ServiceLevel: 95})
	require.NoError(t, err)

	require.NoError(t, s.RecordCalculation(ctx, policy.ID, domain.PolicyCache{
		ROP: decimal.NewFromInt(12), DemandRate: decimal.NewFromInt(1), CalculatedAt: now,
	}, &domain.DemandStatistics{CalculationDate: now}))

	policy.ServiceLevel = 90
	require.NoError(t, s.UpdatePolicyConfig(ctx, policy))

	got, err := s.GetPolicyByPart(ctx, part)
	require.NoError(t, err)
	assert.Equal(t, 90, got.ServiceLevel)
	require.NotNil(t, got.LastCalculatedROP)
	assert.Equal(t, "12", got.LastCalculatedROP.String())
}
