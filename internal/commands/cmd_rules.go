package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/goliatone/go-formdee/pkg/rules"
)

type RulesCmd struct {
	flags *Flags
	app   *App

	// flags
	jsonOutput bool
}

// NewRulesCmd creates a new rules command
func NewRulesCmd(flags *Flags, app *App) *RulesCmd {
	return &RulesCmd{flags: flags, app: app}
}

// Register adds the rules command to the application
func (cmd *RulesCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "rules",
		Usage:     "List the validation rule catalog",
		UsageText: "formdee rules [--json]",
		Description: `Prints every built-in validation rule grouped by category, in the order
the field builder presents them.`,
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "output the grouped catalog as JSON",
				Destination: &cmd.jsonOutput,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *RulesCmd) run(_ context.Context, c *cli.Command) error {
	out := c.Root().Writer
	groups := rules.Groups()

	if cmd.jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(groups)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CATEGORY\tID\tLABEL\tEXAMPLE")
	for _, group := range groups {
		for _, rule := range group.Rules {
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", group.Category, rule.ID, rule.Label, rule.Example)
		}
	}
	return w.Flush()
}
