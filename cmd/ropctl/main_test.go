package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func flagNames(cmd *cli.Command) []string {
	var names []string
	for _, f := range cmd.Flags {
		names = append(names, f.Names()...)
	}
	return names
}

func TestNewApp_Commands(t *testing.T) {
	app := newApp()

	var names []string
	for _, cmd := range app.Commands {
		names = append(names, cmd.Name)
	}
	assert.Equal(t, []string{
		"calculate", "calculate-all", "suggestions", "generate-po", "dismiss", "export", "seed-demo",
	}, names)
}

func TestNewApp_EveryCommandConnects(t *testing.T) {
	for _, cmd := range newApp().Commands {
		t.Run(cmd.Name, func(t *testing.T) {
			assert.Contains(t, flagNames(cmd), "db-url")
			assert.NotNil(t, cmd.Before)
			assert.NotNil(t, cmd.After)
			assert.NotNil(t, cmd.Action)
		})
	}
}

func TestNewApp_FilterFlags(t *testing.T) {
	app := newApp()

	for _, name := range []string{"suggestions", "export"} {
		cmd := app.Command(name)
		require.NotNil(t, cmd, name)
		assert.Subset(t, flagNames(cmd), []string{"min-urgency", "limit", "db-url"})
	}
	assert.NotContains(t, flagNames(app.Command("dismiss")), "limit")
}
