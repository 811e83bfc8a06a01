package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-formdee/pkg/model"
	"github.com/goliatone/go-formdee/pkg/openapi"
)

type SchemaCmd struct {
	flags *Flags
	app   *App

	// flags
	format  string
	title   string
	version string
	stored  bool
}

// NewSchemaCmd creates a new schema command
func NewSchemaCmd(flags *Flags, app *App) *SchemaCmd {
	return &SchemaCmd{flags: flags, app: app}
}

// Register adds the schema command to the application
func (cmd *SchemaCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "schema",
		Usage:     "Generate an OpenAPI document for form submissions",
		UsageText: "formdee schema [--stored] [--format json|yaml] <file|id>...",
		Description: `Builds an OpenAPI 3 document with one submission operation per form.
Use --stored to include every form in the store.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Aliases:     []string{"f"},
				Usage:       "output format (json, yaml)",
				Value:       "json",
				Destination: &cmd.format,
			},
			&cli.StringFlag{
				Name:        "title",
				Usage:       "document title",
				Destination: &cmd.title,
			},
			&cli.StringFlag{
				Name:        "api-version",
				Usage:       "document version",
				Destination: &cmd.version,
			},
			&cli.BoolFlag{
				Name:        "stored",
				Usage:       "include every stored form",
				Destination: &cmd.stored,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *SchemaCmd) run(ctx context.Context, c *cli.Command) error {
	var forms []model.FormConfig
	if cmd.stored {
		store, err := cmd.app.Forms(ctx)
		if err != nil {
			return err
		}
		if forms, err = store.ListForms(ctx); err != nil {
			return fmt.Errorf("list forms: %w", err)
		}
	}
	for _, ref := range c.Args().Slice() {
		form, err := cmd.app.LoadForm(ctx, ref)
		if err != nil {
			return err
		}
		forms = append(forms, form)
	}
	if len(forms) == 0 {
		return errors.New("schema needs at least one form")
	}

	doc, err := openapi.Document(ctx, openapi.Info{Title: cmd.title, Version: cmd.version}, forms...)
	if err != nil {
		return err
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document: %w", err)
	}
	switch cmd.format {
	case "json":
	case "yaml":
		if raw, err = jsonToYAML(raw); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown format %q", cmd.format)
	}
	_, err = fmt.Fprintln(c.Root().Writer, string(raw))
	return err
}

// jsonToYAML re-encodes through a generic value so the YAML keys match the
// JSON field names of the OpenAPI types.
func jsonToYAML(raw []byte) ([]byte, error) {
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	out, err := yaml.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return out, nil
}
