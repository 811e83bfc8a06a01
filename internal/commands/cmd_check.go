package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/urfave/cli/v3"

	"github.com/goliatone/go-formdee/pkg/model"
)

// ErrInvalidForm is returned by check when any form has structural issues.
var ErrInvalidForm = errors.New("form definition has issues")

type CheckCmd struct {
	flags *Flags
	app   *App
}

// NewCheckCmd creates a new check command
func NewCheckCmd(flags *Flags, app *App) *CheckCmd {
	return &CheckCmd{flags: flags, app: app}
}

// Register adds the check command to the application
func (cmd *CheckCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "check",
		Usage:     "Check form definitions for structural issues",
		UsageText: "formdee check <file|id>...",
		Description: `Loads each form from a JSON or YAML file (or the store, by id) and reports
invalid keys, missing labels, empty options, inverted bounds and the like.
Patterns that do not compile are reported as warnings; they never block a form.`,
		Action: cmd.run,
	})

	return app
}

func (cmd *CheckCmd) run(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() == 0 {
		return errors.New("check needs at least one form file or id")
	}
	out := c.Root().Writer

	failed := false
	for _, ref := range c.Args().Slice() {
		form, err := cmd.app.LoadForm(ctx, ref)
		if err != nil {
			return err
		}

		issues := model.IssueMap(form.Check())
		warnings := form.Warnings()
		if len(issues) == 0 && len(warnings) == 0 {
			_, _ = fmt.Fprintf(out, "%s: ok\n", ref)
			continue
		}

		keys := make([]string, 0, len(issues))
		for key := range issues {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			for _, msg := range issues[key] {
				_, _ = fmt.Fprintf(out, "%s: error: %s: %s\n", ref, key, msg)
			}
		}
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "%s: warning: %s: %s\n", ref, w.Field, w.Message)
		}
		if len(issues) > 0 {
			failed = true
		}
	}

	if failed {
		return ErrInvalidForm
	}
	return nil
}
