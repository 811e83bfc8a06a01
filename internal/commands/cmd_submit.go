package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/goliatone/go-formdee/pkg/model"
)

// ErrSubmissionRejected is returned when submitted values fail validation.
var ErrSubmissionRejected = errors.New("submission rejected")

type SubmitCmd struct {
	flags *Flags
	app   *App

	// flags
	dataFile string
	set      []string
	save     bool
}

// NewSubmitCmd creates a new submit command
func NewSubmitCmd(flags *Flags, app *App) *SubmitCmd {
	return &SubmitCmd{flags: flags, app: app}
}

// Register adds the submit command to the application
func (cmd *SubmitCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "submit",
		Usage:     "Validate a response against a form",
		UsageText: "formdee submit <file|id> [--data values.json] [--set key=value]... [--save]",
		Description: `Validates submitted values the way the web form does and prints the
field and form errors as JSON. Values come from a JSON object (--data, "-" for
stdin) and/or repeated --set flags; repeating a key builds a list.

With --save an accepted response is stored against the form, which must then
be a stored form id.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "data",
				Aliases:     []string{"d"},
				Usage:       "JSON object with the submitted values",
				Destination: &cmd.dataFile,
			},
			&cli.StringSliceFlag{
				Name:        "set",
				Usage:       "key=value pair (repeatable)",
				Destination: &cmd.set,
			},
			&cli.BoolFlag{
				Name:        "save",
				Usage:       "store the response when it is accepted",
				Destination: &cmd.save,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *SubmitCmd) run(ctx context.Context, c *cli.Command) error {
	form, err := cmd.app.LoadForm(ctx, c.Args().First())
	if err != nil {
		return err
	}

	values, err := cmd.values(c.Root().Reader)
	if err != nil {
		return err
	}

	result := cmd.app.Checker().Validate(form, values)
	cmd.app.Metrics.Submission(result)

	enc := json.NewEncoder(c.Root().Writer)
	enc.SetIndent("", "  ")
	if !result.Valid() {
		if err := enc.Encode(result); err != nil {
			return err
		}
		return ErrSubmissionRejected
	}

	if !cmd.save {
		return enc.Encode(map[string]any{"valid": true})
	}
	return cmd.store(ctx, enc, form, values)
}

func (cmd *SubmitCmd) store(ctx context.Context, enc *json.Encoder, form model.FormConfig, values map[string]any) error {
	if form.ID == "" {
		return errors.New("--save needs a form with an id")
	}
	forms, err := cmd.app.Forms(ctx)
	if err != nil {
		return err
	}
	response, err := forms.SaveResponse(ctx, form.ID, values)
	if err != nil {
		return fmt.Errorf("save response: %w", err)
	}
	cmd.app.Logger.Info().Str("form", form.ID).Str("response", response.ID).Msg("response stored")
	return enc.Encode(map[string]any{"valid": true, "id": response.ID})
}

func (cmd *SubmitCmd) values(stdin io.Reader) (map[string]any, error) {
	values := map[string]any{}

	if cmd.dataFile != "" {
		var (
			raw []byte
			err error
		)
		if cmd.dataFile == "-" {
			raw, err = io.ReadAll(stdin)
		} else {
			raw, err = os.ReadFile(cmd.dataFile)
		}
		if err != nil {
			return nil, fmt.Errorf("read values: %w", err)
		}
		if err := json.Unmarshal(raw, &values); err != nil {
			return nil, fmt.Errorf("decode values: %w", err)
		}
		if values == nil {
			values = map[string]any{}
		}
	}

	for _, pair := range cmd.set {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("--set %q: expected key=value", pair)
		}
		switch existing := values[key].(type) {
		case nil:
			values[key] = value
		case []any:
			values[key] = append(existing, value)
		default:
			values[key] = []any{existing, value}
		}
	}
	return values, nil
}
