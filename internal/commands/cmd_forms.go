package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/goliatone/go-formdee/pkg/model"
)

type FormsCmd struct {
	flags *Flags
	app   *App

	// flags
	format string
}

// NewFormsCmd creates the forms command group
func NewFormsCmd(flags *Flags, app *App) *FormsCmd {
	return &FormsCmd{flags: flags, app: app}
}

// Register adds the forms command group to the application
func (cmd *FormsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "forms",
		Usage: "Manage stored forms",
		Commands: []*cli.Command{
			{
				Name:      "import",
				Usage:     "Check and store form definition files",
				UsageText: "formdee forms import <file>...",
				Description: `Each file is checked first; a file with issues is not stored.
Forms without an id get one assigned.`,
				Action: cmd.runImport,
			},
			{
				Name:      "list",
				Usage:     "List stored forms, most recently updated first",
				UsageText: "formdee forms list",
				Action:    cmd.runList,
			},
			{
				Name:      "show",
				Usage:     "Print a stored form",
				UsageText: "formdee forms show [--format json|yaml] <id>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "format",
						Aliases:     []string{"f"},
						Usage:       "output format (json, yaml)",
						Value:       string(model.FormatJSON),
						Destination: &cmd.format,
					},
				},
				Action: cmd.runShow,
			},
			{
				Name:      "delete",
				Usage:     "Delete a stored form and its responses",
				UsageText: "formdee forms delete <id>",
				Action:    cmd.runDelete,
			},
			{
				Name:      "responses",
				Usage:     "Print the stored responses of a form as JSON lines",
				UsageText: "formdee forms responses <id>",
				Action:    cmd.runResponses,
			},
		},
	})

	return app
}

func (cmd *FormsCmd) runImport(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() == 0 {
		return errors.New("import needs at least one form file")
	}
	forms, err := cmd.app.Forms(ctx)
	if err != nil {
		return err
	}

	for _, path := range c.Args().Slice() {
		form, err := model.LoadForm(path)
		if err != nil {
			return err
		}
		if err := model.Apply(&form, model.DeriveDecorator, model.CheckDecorator); err != nil {
			for key, messages := range model.IssueMap(err) {
				for _, msg := range messages {
					_, _ = fmt.Fprintf(c.Root().ErrWriter, "%s: %s: %s\n", path, key, msg)
				}
			}
			return fmt.Errorf("%s: %w", path, ErrInvalidForm)
		}

		saved, err := forms.SaveForm(ctx, form)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		_, _ = fmt.Fprintf(c.Root().Writer, "%s\t%s\n", saved.ID, path)
	}
	return nil
}

func (cmd *FormsCmd) runList(ctx context.Context, c *cli.Command) error {
	forms, err := cmd.app.Forms(ctx)
	if err != nil {
		return err
	}
	list, err := forms.ListForms(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(c.Root().Writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tTITLE\tFIELDS\tUPDATED")
	for _, form := range list {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", form.ID, form.Title, len(form.Fields), form.UpdatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}

func (cmd *FormsCmd) runShow(ctx context.Context, c *cli.Command) error {
	forms, err := cmd.app.Forms(ctx)
	if err != nil {
		return err
	}
	form, err := forms.GetForm(ctx, c.Args().First())
	if err != nil {
		return err
	}

	format := model.Format(cmd.format)
	if format != model.FormatJSON && format != model.FormatYAML {
		return fmt.Errorf("unknown format %q", cmd.format)
	}
	raw, err := model.EncodeForm(form, format)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.Root().Writer, string(raw))
	return err
}

func (cmd *FormsCmd) runDelete(ctx context.Context, c *cli.Command) error {
	forms, err := cmd.app.Forms(ctx)
	if err != nil {
		return err
	}
	id := c.Args().First()
	if err := forms.DeleteForm(ctx, id); err != nil {
		return err
	}
	cmd.app.Logger.Info().Str("form", id).Msg("form deleted")
	return nil
}

func (cmd *FormsCmd) runResponses(ctx context.Context, c *cli.Command) error {
	forms, err := cmd.app.Forms(ctx)
	if err != nil {
		return err
	}
	responses, err := forms.ListResponses(ctx, c.Args().First())
	if err != nil {
		return err
	}
	enc := json.NewEncoder(c.Root().Writer)
	for _, response := range responses {
		if err := enc.Encode(response); err != nil {
			return err
		}
	}
	return nil
}
