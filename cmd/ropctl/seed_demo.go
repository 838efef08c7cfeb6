package main

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/rop-engine/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/urfave/cli/v2"
)

// demoSeeder is the subset of the seed repository the demo needs.
type demoSeeder interface {
	UpsertPart(ctx context.Context, part *domain.Part) (int64, error)
	UpsertSupplier(ctx context.Context, name string, active bool) (int64, error)
	LinkSupplierPart(ctx context.Context, partID, supplierID int64, leadTimeDays *int) error
	AddStock(ctx context.Context, partID int64, quantity decimal.Decimal) error
	AddMovements(ctx context.Context, movements []domain.StockMovement) error
}

const (
	demoLeadTimeDays = 7
	demoRemovals     = 5
)

var (
	demoRemovalQty  = decimal.NewFromInt(45)
	demoStock       = decimal.NewFromInt(5)
	demoSafetyStock = decimal.NewFromInt(10)
)

// seedDemoPart inserts one part whose history yields a 27.5 reorder point
// against 5 units on hand: 225 units removed over 90 days, a 7 day lead time
// and 10 units of manual safety stock.
func seedDemoPart(ctx context.Context, seeder demoSeeder, now time.Time) (int64, error) {
	part := &domain.Part{
		Name:        "Demo Resistor 10k",
		IPN:         "DEMO-R10K",
		Description: "Demo part for reorder point suggestions",
	}
	partID, err := seeder.UpsertPart(ctx, part)
	if err != nil {
		return 0, err
	}

	supplierID, err := seeder.UpsertSupplier(ctx, "Demo Components Ltd", true)
	if err != nil {
		return 0, err
	}
	lead := demoLeadTimeDays
	if err := seeder.LinkSupplierPart(ctx, partID, supplierID, &lead); err != nil {
		return 0, err
	}

	if err := seeder.AddStock(ctx, partID, demoStock); err != nil {
		return 0, err
	}

	movements := make([]domain.StockMovement, 0, demoRemovals)
	for i := 1; i <= demoRemovals; i++ {
		movements = append(movements, domain.StockMovement{
			PartID:     partID,
			Quantity:   demoRemovalQty,
			Type:       domain.MovementRemoved,
			OccurredAt: now.AddDate(0, 0, -15*i),
		})
	}
	if err := seeder.AddMovements(ctx, movements); err != nil {
		return 0, err
	}

	return partID, nil
}

func runSeedDemo(c *cli.Context) error {
	components := componentsFrom(c)

	partID, err := seedDemoPart(c.Context, components.Seed, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("seed demo part: %w", err)
	}

	safety := demoSafetyStock
	manual := false
	if _, err := components.ROP.UpdatePolicy(c.Context, partID, domain.PolicyUpdate{
		SafetyStock:              &safety,
		UseCalculatedSafetyStock: &manual,
	}); err != nil {
		return fmt.Errorf("configure demo policy: %w", err)
	}

	outcome, err := components.ROP.CalculatePart(c.Context, partID)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "seeded part %d, calculation state: %s\n", partID, outcome.State)
	return writeJSON(c.App.Writer, outcome)
}
