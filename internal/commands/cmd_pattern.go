package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/goliatone/go-formdee/pkg/rules"
)

// ErrValueRejected is returned by validate when the value does not match.
var ErrValueRejected = errors.New("value rejected")

// PatternCmd registers the resolve and validate commands, which share the
// rule flags.
type PatternCmd struct {
	flags *Flags
	app   *App

	// flags
	rule    string
	pattern string
	domain  string
	raw     string
}

// NewPatternCmd creates the resolve and validate commands
func NewPatternCmd(flags *Flags, app *App) *PatternCmd {
	return &PatternCmd{flags: flags, app: app}
}

func (cmd *PatternCmd) ruleFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "rule",
			Aliases:     []string{"r"},
			Usage:       "rule id (see 'formdee rules')",
			Value:       string(rules.RuleNone),
			Destination: &cmd.rule,
		},
		&cli.StringFlag{
			Name:        "pattern",
			Usage:       "pattern for the custom_regex rule",
			Destination: &cmd.pattern,
		},
		&cli.StringFlag{
			Name:        "domain",
			Usage:       "domain for the email_domain rule",
			Destination: &cmd.domain,
		},
	}
}

// Register adds the resolve and validate commands to the application
func (cmd *PatternCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands,
		&cli.Command{
			Name:      "resolve",
			Usage:     "Print the pattern a rule resolves to",
			UsageText: "formdee resolve --rule <id> [--pattern <re>] [--domain <domain>]",
			Flags:     cmd.ruleFlags(),
			Action:    cmd.runResolve,
		},
		&cli.Command{
			Name:      "validate",
			Usage:     "Check a value against a rule",
			UsageText: "formdee validate --rule <id> [--pattern <re>] [--domain <domain>] <value>",
			Description: `Prints "ok" when the value passes, otherwise the rule's error message.
Use --raw to test a stored pattern directly, as legacy fields do.`,
			Flags: append(cmd.ruleFlags(), &cli.StringFlag{
				Name:        "raw",
				Usage:       "validate against this pattern instead of a rule",
				Destination: &cmd.raw,
			}),
			Action: cmd.runValidate,
		},
	)

	return app
}

func (cmd *PatternCmd) parseRule() (rules.RuleID, error) {
	id, err := rules.ParseRuleID(cmd.rule)
	if err != nil {
		return "", fmt.Errorf("--rule: %w", err)
	}
	return id, nil
}

func (cmd *PatternCmd) runResolve(_ context.Context, c *cli.Command) error {
	id, err := cmd.parseRule()
	if err != nil {
		return err
	}

	pattern, ok := rules.ResolvePattern(id, cmd.pattern, cmd.domain)
	if !ok {
		_, _ = fmt.Fprintln(c.Root().ErrWriter, "no pattern applies")
		return nil
	}
	if err := rules.CheckPattern(pattern); err != nil {
		_, _ = fmt.Fprintf(c.Root().ErrWriter, "warning: %v\n", err)
	}
	_, err = fmt.Fprintln(c.Root().Writer, pattern)
	return err
}

func (cmd *PatternCmd) runValidate(_ context.Context, c *cli.Command) error {
	if c.Args().Len() != 1 {
		return errors.New("validate takes exactly one value")
	}
	value := c.Args().First()
	out := c.Root().Writer

	if cmd.raw != "" {
		if cmd.app.Validator.ValidatePattern(value, cmd.raw) {
			_, _ = fmt.Fprintln(out, "ok")
			return nil
		}
		_, _ = fmt.Fprintln(out, "Please match the required format.")
		return ErrValueRejected
	}

	id, err := cmd.parseRule()
	if err != nil {
		return err
	}
	if cmd.app.Validator.Validate(value, id, cmd.pattern, cmd.domain) {
		_, _ = fmt.Fprintln(out, "ok")
		return nil
	}
	_, _ = fmt.Fprintln(out, rules.ErrorMessage(id))
	return ErrValueRejected
}
