package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/goliatone/go-formdee/pkg/renderers/html"
)

type RenderCmd struct {
	flags *Flags
	app   *App

	// flags
	output      string
	action      string
	submitLabel string
	templates   string
}

// NewRenderCmd creates a new render command
func NewRenderCmd(flags *Flags, app *App) *RenderCmd {
	return &RenderCmd{flags: flags, app: app}
}

// Register adds the render command to the application
func (cmd *RenderCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "render",
		Usage:     "Render a form as HTML",
		UsageText: "formdee render [--output form.html] [--action url] <file|id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "output file (stdout if empty)",
				Destination: &cmd.output,
			},
			&cli.StringFlag{
				Name:        "action",
				Usage:       "form action URL (defaults to the response endpoint)",
				Destination: &cmd.action,
			},
			&cli.StringFlag{
				Name:        "submit-label",
				Usage:       "submit button label",
				Destination: &cmd.submitLabel,
			},
			&cli.StringFlag{
				Name:        "templates",
				Usage:       "directory with replacement templates",
				Destination: &cmd.templates,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *RenderCmd) run(ctx context.Context, c *cli.Command) error {
	form, err := cmd.app.LoadForm(ctx, c.Args().First())
	if err != nil {
		return err
	}

	renderer, err := html.New(html.WithTemplatesDir(cmd.templates))
	if err != nil {
		return err
	}

	opts := html.RenderOptions{Action: cmd.action, SubmitLabel: cmd.submitLabel}
	if form.ID != "" {
		if opts.Action == "" {
			opts.Action = "/api/forms/" + form.ID + "/responses"
		}
		opts.Hidden = []html.HiddenField{html.FormID(form.ID)}
	}
	out, err := renderer.Render(ctx, form, opts)
	if err != nil {
		return err
	}

	if cmd.output != "" {
		if err := os.WriteFile(cmd.output, out, 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		_, _ = fmt.Fprintf(c.Root().ErrWriter, "Form written to %s\n", cmd.output)
		return nil
	}
	_, err = c.Root().Writer.Write(out)
	return err
}
