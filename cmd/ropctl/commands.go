package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/andresuchdata/rop-engine/internal/domain"
	"github.com/urfave/cli/v2"
)

func idArg(c *cli.Context, name string) (int64, error) {
	raw := c.Args().First()
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", name, raw)
	}
	return id, nil
}

func runCalculate(c *cli.Context) error {
	partID, err := idArg(c, "part-id")
	if err != nil {
		return err
	}
	outcome, err := componentsFrom(c).ROP.CalculatePart(c.Context, partID)
	if err != nil {
		return err
	}
	return writeJSON(c.App.Writer, outcome)
}

func runCalculateAll(c *cli.Context) error {
	run, err := componentsFrom(c).Orchestrator.CalculateAll(c.Context)
	if run != nil {
		fmt.Fprintf(c.App.Writer, "run %d: %d/%d parts analyzed, %d suggestions, %d errors\n",
			run.ID, run.PartsAnalyzed, run.TotalParts, run.SuggestionCount, len(run.Errors))
		for _, partErr := range run.Errors {
			fmt.Fprintf(c.App.Writer, "  part %d: %s\n", partErr.PartID, partErr.Error)
		}
	}
	return err
}

func runSuggestions(c *cli.Context) error {
	views, err := componentsFrom(c).ROP.ListSuggestions(c.Context, filterFrom(c))
	if err != nil {
		return err
	}
	return renderSuggestions(c.App.Writer, views)
}

func runGeneratePO(c *cli.Context) error {
	suggestionID, err := idArg(c, "suggestion-id")
	if err != nil {
		return err
	}
	po, err := componentsFrom(c).ROP.GeneratePurchaseOrder(c.Context, suggestionID)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "created purchase order %s (id %d)\n", po.Reference, po.ID)
	return nil
}

func runDismiss(c *cli.Context) error {
	suggestionID, err := idArg(c, "suggestion-id")
	if err != nil {
		return err
	}
	if _, err := componentsFrom(c).ROP.DismissSuggestion(c.Context, suggestionID); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "dismissed suggestion %d\n", suggestionID)
	return nil
}

func runExport(c *cli.Context) error {
	result, err := componentsFrom(c).Reports.ExportPending(c.Context, filterFrom(c))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "wrote %d suggestions to %s\n", result.Rows, result.Path)
	if result.ObjectKey != "" {
		fmt.Fprintf(c.App.Writer, "uploaded as %s\n", result.ObjectKey)
	}
	return nil
}

func renderSuggestions(w io.Writer, views []domain.SuggestionView) error {
	if len(views) == 0 {
		_, err := fmt.Fprintln(w, "no pending suggestions")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tIPN\tPART\tURGENCY\tPROJECTED\tROP\tQTY\tSTOCKOUT\tSUPPLIER")
	for _, v := range views {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%.2f\t%s\t%s\t%s\t%s\t%s\n",
			v.ID,
			v.PartIPN,
			v.PartName,
			v.UrgencyScore,
			v.ProjectedStock.StringFixed(2),
			v.CalculatedROP.StringFixed(2),
			v.SuggestedOrderQty.StringFixed(2),
			stockoutLabel(v.StockoutDate, v.DaysUntilStockout),
			supplierLabel(v.SupplierName),
		)
	}
	return tw.Flush()
}

func stockoutLabel(date *time.Time, days *int) string {
	if date == nil || days == nil {
		return "unknown"
	}
	return fmt.Sprintf("%s (%dd)", date.Format("2006-01-02"), *days)
}

func supplierLabel(name *string) string {
	if name == nil {
		return "-"
	}
	return *name
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

