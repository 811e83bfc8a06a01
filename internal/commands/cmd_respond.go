package commands

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/goliatone/go-formdee/pkg/renderers/tui"
)

type RespondCmd struct {
	flags *Flags
	app   *App

	// driver replaces the terminal prompts when set
	driver tui.PromptDriver

	// flags
	format string
	save   bool
}

// NewRespondCmd creates a new respond command
func NewRespondCmd(flags *Flags, app *App) *RespondCmd {
	return &RespondCmd{flags: flags, app: app}
}

// Register adds the respond command to the application
func (cmd *RespondCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "respond",
		Usage:     "Fill in a form interactively",
		UsageText: "formdee respond [--format json|form|pretty] [--save] <file|id>",
		Description: `Prompts for every field in order, re-asking until each answer passes the
field's validation, then prints the answers in the chosen format.
With --save the response is stored against the form.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Aliases:     []string{"f"},
				Usage:       "output format (json, form, pretty)",
				Value:       string(tui.OutputFormatJSON),
				Destination: &cmd.format,
			},
			&cli.BoolFlag{
				Name:        "save",
				Usage:       "store the response",
				Destination: &cmd.save,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *RespondCmd) run(ctx context.Context, c *cli.Command) error {
	switch tui.OutputFormat(cmd.format) {
	case tui.OutputFormatJSON, tui.OutputFormatFormURLEncoded, tui.OutputFormatPrettyText:
	default:
		return fmt.Errorf("unknown format %q", cmd.format)
	}

	form, err := cmd.app.LoadForm(ctx, c.Args().First())
	if err != nil {
		return err
	}
	if cmd.save && form.ID == "" {
		return errors.New("--save needs a form with an id")
	}

	renderer := tui.New(
		tui.WithPromptDriver(cmd.driver),
		tui.WithChecker(cmd.app.Checker()),
		tui.WithLogger(cmd.app.Logger),
	)
	answers, err := renderer.Respond(ctx, form)
	if err != nil {
		return err
	}
	cmd.app.Metrics.Submission(cmd.app.Checker().Validate(form, answers))

	out, err := tui.Encode(answers, tui.OutputFormat(cmd.format))
	if err != nil {
		return err
	}
	if !bytes.HasSuffix(out, []byte("\n")) {
		out = append(out, '\n')
	}
	if _, err := c.Root().Writer.Write(out); err != nil {
		return err
	}

	if !cmd.save {
		return nil
	}
	forms, err := cmd.app.Forms(ctx)
	if err != nil {
		return err
	}
	response, err := forms.SaveResponse(ctx, form.ID, answers)
	if err != nil {
		return fmt.Errorf("save response: %w", err)
	}
	cmd.app.Logger.Info().Str("form", form.ID).Str("response", response.ID).Msg("response stored")
	return nil
}
