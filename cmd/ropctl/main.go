package main

import (
	"context"
	"fmt"
	"os"

	"github.com/andresuchdata/rop-engine/internal/bootstrap"
	"github.com/andresuchdata/rop-engine/internal/config"
	"github.com/andresuchdata/rop-engine/internal/domain"
	"github.com/andresuchdata/rop-engine/internal/repository/postgres"
	"github.com/andresuchdata/rop-engine/pkg/logger"
	"github.com/urfave/cli/v2"
)

type contextKey string

const (
	dbKey         contextKey = "db"
	componentsKey contextKey = "components"
)

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func filterFlags() []cli.Flag {
	return []cli.Flag{
		&cli.Float64Flag{Name: "min-urgency", Usage: "Only include suggestions scoring at least this much"},
		&cli.IntFlag{Name: "limit", Usage: "Maximum number of suggestions", Value: domain.DefaultSuggestionLimit},
	}
}

func filterFrom(c *cli.Context) domain.SuggestionFilter {
	return domain.SuggestionFilter{
		MinUrgency: c.Float64("min-urgency"),
		Limit:      c.Int("limit"),
	}.Normalize()
}

func initDB(c *cli.Context) error {
	db, err := postgres.Open(c.Context, c.String("db-url"))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	components, err := bootstrap.Build(config.Load(), db)
	if err != nil {
		db.Close()
		return err
	}

	c.Context = context.WithValue(c.Context, dbKey, db)
	c.Context = context.WithValue(c.Context, componentsKey, components)
	return nil
}

func closeDB(c *cli.Context) error {
	// Close the database connection when done
	if db, ok := c.Context.Value(dbKey).(*postgres.DB); ok && db != nil {
		return db.Close()
	}
	return nil
}

// withDB gives every command the database flag and connection lifecycle.
func withDB(commands ...*cli.Command) []*cli.Command {
	for _, cmd := range commands {
		cmd.Flags = append(cmd.Flags, newDBURLFlag())
		cmd.Before = initDB
		cmd.After = closeDB
	}
	return commands
}

func componentsFrom(c *cli.Context) *bootstrap.Components {
	return c.Context.Value(componentsKey).(*bootstrap.Components)
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "ropctl",
		Usage: "Run reorder point calculations and act on suggestions",
		Commands: withDB(
			&cli.Command{
				Name:      "calculate",
				Usage:     "Recalculate a single part",
				ArgsUsage: "<part-id>",
				Action:    runCalculate,
			},
			&cli.Command{
				Name:   "calculate-all",
				Usage:  "Recalculate every part with an enabled policy",
				Action: runCalculateAll,
			},
			&cli.Command{
				Name:   "suggestions",
				Usage:  "List pending suggestions, most urgent first",
				Flags:  filterFlags(),
				Action: runSuggestions,
			},
			&cli.Command{
				Name:      "generate-po",
				Usage:     "Create a draft purchase order from a suggestion",
				ArgsUsage: "<suggestion-id>",
				Action:    runGeneratePO,
			},
			&cli.Command{
				Name:      "dismiss",
				Usage:     "Dismiss a pending suggestion",
				ArgsUsage: "<suggestion-id>",
				Action:    runDismiss,
			},
			&cli.Command{
				Name:   "export",
				Usage:  "Write pending suggestions to CSV (and object storage when configured)",
				Flags:  filterFlags(),
				Action: runExport,
			},
			&cli.Command{
				Name:   "seed-demo",
				Usage:  "Insert a demo part with enough history to trigger a suggestion",
				Action: runSeedDemo,
			},
		),
	}
}

func main() {
	cfg := config.Load()
	logger.Configure(cfg.Server.Mode, cfg.Server.LogLevel)

	if err := newApp().Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("ropctl failed")
	}
}
