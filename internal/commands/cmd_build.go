package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/goliatone/go-formdee/pkg/editor"
	"github.com/goliatone/go-formdee/pkg/model"
	"github.com/goliatone/go-formdee/pkg/renderers/tui"
)

type BuildCmd struct {
	flags *Flags
	app   *App

	// driver replaces the terminal prompts when set
	driver tui.PromptDriver

	// flags
	id    string
	field string
	title string
}

// NewBuildCmd creates a new build command
func NewBuildCmd(flags *Flags, app *App) *BuildCmd {
	return &BuildCmd{flags: flags, app: app}
}

// Register adds the build command to the application
func (cmd *BuildCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "build",
		Usage:     "Add or edit a form field interactively",
		UsageText: "formdee build [--field key] [--title title] <file>\n   formdee build --id <form-id> [--field key]",
		Description: `Walks through a field's key, label, type and type-specific settings.
Valid edits are autosaved to the form file (created when missing) or, with --id,
to the stored form. Without --field a new field is appended.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "id",
				Usage:       "edit a stored form instead of a file",
				Destination: &cmd.id,
			},
			&cli.StringFlag{
				Name:        "field",
				Usage:       "key of the field to edit",
				Destination: &cmd.field,
			},
			&cli.StringFlag{
				Name:        "title",
				Usage:       "form title, required when creating a form file",
				Destination: &cmd.title,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *BuildCmd) run(ctx context.Context, c *cli.Command) error {
	form, persist, where, err := cmd.open(ctx, c.Args().First())
	if err != nil {
		return err
	}

	index := len(form.Fields)
	if cmd.field != "" {
		index = fieldIndex(form, cmd.field)
		if index < 0 {
			return fmt.Errorf("form has no field %q", cmd.field)
		}
	} else {
		form.Fields = append(form.Fields, model.FieldDefinition{Type: model.FieldTypeText})
	}

	opts := cmd.app.EditorOptions()
	autosaver := editor.NewFormAutosaver(ctx, form, checked(persist), opts...)
	defer autosaver.Close()

	renderer := tui.New(
		tui.WithPromptDriver(cmd.driver),
		tui.WithLogger(cmd.app.Logger),
		tui.WithEditorOptions(opts...),
	)
	field, err := renderer.EditField(ctx, form.Fields[index], autosaver.FieldSaver(index))
	if err != nil {
		return err
	}
	if err := autosaver.Flush(); err != nil {
		return fmt.Errorf("save form: %w", err)
	}

	_, err = fmt.Fprintf(c.Root().Writer, "saved field %s (%s) to %s\n", field.Key, field.Type, where)
	return err
}

// open returns the form to edit, the function that persists it and a
// description of where it lives.
func (cmd *BuildCmd) open(ctx context.Context, path string) (model.FormConfig, editor.FormSaveFunc, string, error) {
	if cmd.id != "" {
		forms, err := cmd.app.Forms(ctx)
		if err != nil {
			return model.FormConfig{}, nil, "", err
		}
		form, err := forms.GetForm(ctx, cmd.id)
		if err != nil {
			return model.FormConfig{}, nil, "", err
		}
		if cmd.title != "" {
			form.Title = cmd.title
		}
		persist := func(ctx context.Context, form model.FormConfig) error {
			_, err := forms.SaveForm(ctx, form)
			return err
		}
		return form, persist, "form " + form.ID, nil
	}

	if path == "" {
		return model.FormConfig{}, nil, "", errors.New("build needs a form file or --id")
	}
	var form model.FormConfig
	if _, err := os.Stat(path); err == nil {
		if form, err = model.LoadForm(path); err != nil {
			return model.FormConfig{}, nil, "", err
		}
		form = form.Derive()
	} else if !errors.Is(err, os.ErrNotExist) {
		return model.FormConfig{}, nil, "", fmt.Errorf("stat form: %w", err)
	}
	if cmd.title != "" {
		form.Title = cmd.title
	}
	if strings.TrimSpace(form.Title) == "" {
		return model.FormConfig{}, nil, "", errors.New("--title is required when creating a form")
	}
	return form, writeFormFile(path), path, nil
}

// checked refuses to persist forms whose derived value fails
// FormConfig.Check, such as a field key that collides with another field.
func checked(persist editor.FormSaveFunc) editor.FormSaveFunc {
	return func(ctx context.Context, form model.FormConfig) error {
		form = form.Derive()
		if err := form.Check(); err != nil {
			return err
		}
		return persist(ctx, form)
	}
}

// writeFormFile replaces path through a temporary file so an interrupted
// save never leaves a truncated form behind.
func writeFormFile(path string) editor.FormSaveFunc {
	return func(_ context.Context, form model.FormConfig) error {
		raw, err := model.EncodeForm(form.Derive(), model.FormatFromPath(path))
		if err != nil {
			return err
		}
		tmp, err := os.CreateTemp(filepath.Dir(path), ".formdee-*")
		if err != nil {
			return fmt.Errorf("write form: %w", err)
		}
		if _, err := tmp.Write(raw); err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
			return fmt.Errorf("write form: %w", err)
		}
		if err := tmp.Close(); err != nil {
			_ = os.Remove(tmp.Name())
			return fmt.Errorf("write form: %w", err)
		}
		return os.Rename(tmp.Name(), path)
	}
}

func fieldIndex(form model.FormConfig, key string) int {
	for i, field := range form.Fields {
		if field.Key == key {
			return i
		}
	}
	return -1
}
