package postgres

import (
	"context"
	"testing"

	"github.com/andresuchdata/rop-engine/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInventoryRepository_StockAndCommitted(t *testing.T) {
	db := setupTestDB(t)
	seed := NewSeedRepository(db)
	repo := NewInventoryRepository(db)
	ctx := context.Background()

	partID := seedPart(t, db, "P-1")
	require.NoError(t, seed.AddStock(ctx, partID, decimal.NewFromInt(4)))
	require.NoError(t, seed.AddStock(ctx, partID, decimal.NewFromInt(6)))
	require.NoError(t, seed.AddAllocation(ctx, partID, decimal.NewFromInt(3)))

	stock, err := repo.GetCurrentStock(ctx, partID)
	require.NoError(t, err)
	assert.True(t, stock.Equal(decimal.NewFromInt(10)), "stock = %s", stock)

	committed, err := repo.GetCommittedQuantity(ctx, partID)
	require.NoError(t, err)
	assert.True(t, committed.Equal(decimal.NewFromInt(3)))

	none, err := repo.GetCurrentStock(ctx, 999)
	require.NoError(t, err)
	assert.True(t, none.IsZero())
}

func TestInventoryRepository_GetPart(t *testing.T) {
	db := setupTestDB(t)
	repo := NewInventoryRepository(db)
	ctx := context.Background()

	partID := seedPart(t, db, "P-1")

	part, err := repo.GetPart(ctx, partID)
	require.NoError(t, err)
	assert.Equal(t, "Part P-1", part.Name)
	assert.Equal(t, "P-1", part.IPN)

	_, err = repo.GetPart(ctx, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInventoryRepository_SupplierOptions(t *testing.T) {
	db := setupTestDB(t)
	seed := NewSeedRepository(db)
	repo := NewInventoryRepository(db)
	ctx := context.Background()

	partID := seedPart(t, db, "P-1")
	inactive, err := seed.UpsertSupplier(ctx, "Old Parts Co", false)
	require.NoError(t, err)
	active, err := seed.UpsertSupplier(ctx, "Acme", true)
	require.NoError(t, err)
	require.NoError(t, seed.LinkSupplierPart(ctx, partID, inactive, intp(3)))
	require.NoError(t, seed.LinkSupplierPart(ctx, partID, active, nil))
	require.NoError(t, seed.LinkSupplierPart(ctx, partID, active, intp(14)))

	options, err := repo.GetSupplierOptions(ctx, partID)
	require.NoError(t, err)
	require.Len(t, options, 2)

	assert.Equal(t, "Old Parts Co", options[0].SupplierName)
	assert.False(t, options[0].Active)
	assert.True(t, options[0].IsSupplier)
	assert.Equal(t, "Acme", options[1].SupplierName)
	require.NotNil(t, options[1].LeadTimeDays)
	assert.Equal(t, 14, *options[1].LeadTimeDays)
}

func TestInventoryRepository_PurchaseOrdersAndInbound(t *testing.T) {
	db := setupTestDB(t)
	seed := NewSeedRepository(db)
	repo := NewInventoryRepository(db)
	ctx := context.Background()

	partID := seedPart(t, db, "P-1")
	supplierID, err := seed.UpsertSupplier(ctx, "Acme", true)
	require.NoError(t, err)

	po, err := repo.CreatePurchaseOrder(ctx, domain.PurchaseOrderRequest{
		SupplierID:  supplierID,
		Reference:   "ROP-20240510-1",
		Description: "Auto-generated from ROP suggestion for Part P-1",
		Lines:       []domain.PurchaseOrderLine{{PartID: partID, Quantity: decimal.NewFromInt(50), Reference: "ROP Suggestion #1"}},
	})
	require.NoError(t, err)
	assert.NotZero(t, po.ID)
	assert.Equal(t, domain.OrderDraft, po.State)

	// draft orders are not inbound yet
	lines, err := repo.GetOpenInboundLines(ctx, partID)
	require.NoError(t, err)
	assert.Empty(t, lines)

	require.NoError(t, seed.SetOrderState(ctx, po.ID, domain.OrderPlaced))

	lines, err = repo.GetOpenInboundLines(ctx, partID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, po.ID, lines[0].OrderID)
	assert.Equal(t, domain.OrderPlaced, lines[0].OrderState)
	assert.True(t, lines[0].Outstanding().Equal(decimal.NewFromInt(50)))

	_, err = repo.CreatePurchaseOrder(ctx, domain.PurchaseOrderRequest{SupplierID: supplierID, Reference: "EMPTY"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestInventoryRepository_RemovalEvents(t *testing.T) {
	db := setupTestDB(t)
	seed := NewSeedRepository(db)
	repo := NewInventoryRepository(db)
	ctx := context.Background()

	partID := seedPart(t, db, "P-1")
	since := testNow.AddDate(0, 0, -90)

	require.NoError(t, seed.AddMovements(ctx, []domain.StockMovement{
		{PartID: partID, Quantity: decimal.NewFromInt(45), Type: domain.MovementRemoved, OccurredAt: testNow.AddDate(0, 0, -10)},
		{PartID: partID, Quantity: decimal.NewFromInt(30), Type: domain.MovementShipped, OccurredAt: testNow.AddDate(0, 0, -20)},
		{PartID: partID, Quantity: decimal.NewFromInt(12), Type: domain.MovementBuildConsumed, OccurredAt: testNow.AddDate(0, 0, -1)},
		{PartID: partID, Quantity: decimal.NewFromInt(100), Type: domain.MovementReceived, OccurredAt: testNow.AddDate(0, 0, -5)},
		{PartID: partID, Quantity: decimal.NewFromInt(99), Type: domain.MovementRemoved, OccurredAt: testNow.AddDate(0, 0, -120)},
		{PartID: partID, Quantity: decimal.NewFromInt(70), Type: domain.MovementRemoved, OccurredAt: testNow.AddDate(0, 0, 2)},
	}))

	events, err := repo.GetRemovalEvents(ctx, partID, since, testNow)
	require.NoError(t, err)
	require.Len(t, events, 3)

	total := decimal.Zero
	for _, q := range events {
		total = total.Add(q)
	}
	assert.True(t, total.Equal(decimal.NewFromInt(87)))
}
