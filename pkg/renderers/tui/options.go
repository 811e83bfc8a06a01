package tui

import (
	"github.com/rs/zerolog"

	"github.com/goliatone/go-formdee/pkg/editor"
	"github.com/goliatone/go-formdee/pkg/submission"
)

// OutputFormat controls how collected answers are serialized by Encode.
type OutputFormat string

const (
	// OutputFormatJSON emits application/json payloads.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatFormURLEncoded emits application/x-www-form-urlencoded payloads.
	OutputFormatFormURLEncoded OutputFormat = "form"
	// OutputFormatPrettyText emits one key=value line per answer.
	OutputFormatPrettyText OutputFormat = "pretty"
)

// Theme holds the prefixes used for messages printed between prompts.
type Theme struct {
	InfoPrefix  string
	ErrorPrefix string
}

// DefaultTheme is used unless WithTheme overrides it.
var DefaultTheme = Theme{InfoPrefix: "i ", ErrorPrefix: "! "}

// SubmitTransformer mutates collected answers before Respond returns them.
type SubmitTransformer func(map[string]any) (map[string]any, error)

// Option configures the Renderer.
type Option func(*Renderer)

// WithPromptDriver overrides the survey driver.
func WithPromptDriver(driver PromptDriver) Option {
	return func(r *Renderer) {
		if driver != nil {
			r.driver = driver
		}
	}
}

// WithChecker sets the checker used to validate answers as they are given.
func WithChecker(checker *submission.Checker) Option {
	return func(r *Renderer) {
		if checker != nil {
			r.checker = checker
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Renderer) {
		r.logger = logger
	}
}

// WithEditorOptions forwards options to the field editor used by BuildField.
func WithEditorOptions(options ...editor.Option) Option {
	return func(r *Renderer) {
		r.editorOptions = append(r.editorOptions, options...)
	}
}

// WithSubmitTransformer lets callers rewrite answers before they are returned.
func WithSubmitTransformer(fn SubmitTransformer) Option {
	return func(r *Renderer) {
		r.submitTransformer = fn
	}
}

// WithTheme overrides DefaultTheme.
func WithTheme(theme Theme) Option {
	return func(r *Renderer) {
		r.theme = theme
	}
}
