package html

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/goliatone/go-formdee/pkg/model"
	"github.com/goliatone/go-formdee/pkg/rules"
	"github.com/goliatone/go-formdee/pkg/submission"
)

// FormTemplate is the entry template inside the template bundle.
const FormTemplate = "templates/form.tmpl"

// Option configures the renderer.
type Option func(*config)

type config struct {
	templateFS fs.FS
}

// WithTemplatesFS supplies an alternate template bundle.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templateFS = files
	}
}

// WithTemplatesDir loads templates from a directory on disk.
func WithTemplatesDir(path string) Option {
	return func(cfg *config) {
		if path == "" {
			return
		}
		cfg.templateFS = os.DirFS(path)
	}
}

// Renderer turns a FormConfig into an HTML form.
type Renderer struct {
	engine *Engine
}

// New constructs the renderer.
func New(options ...Option) (*Renderer, error) {
	cfg := config{templateFS: TemplatesFS()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	engine, err := NewEngine(cfg.templateFS)
	if err != nil {
		return nil, fmt.Errorf("html renderer: %w", err)
	}
	return &Renderer{engine: engine}, nil
}

// ContentType is the media type of rendered output.
func (r *Renderer) ContentType() string {
	return "text/html; charset=utf-8"
}

// RenderOptions carries per-request state.
type RenderOptions struct {
	// Action is the form's submit URL.
	Action string
	// Values pre-fills inputs, typically with a rejected submission.
	Values map[string]any
	// Errors renders inline messages from a failed submission.
	Errors submission.Result
	Hidden []HiddenField
	// SubmitLabel defaults to "Submit".
	SubmitLabel string
}

// Render produces the HTML for form.
func (r *Renderer) Render(_ context.Context, form model.FormConfig, opts RenderOptions) ([]byte, error) {
	if r == nil || r.engine == nil {
		return nil, fmt.Errorf("html renderer: engine is nil")
	}
	var buf bytes.Buffer
	if err := r.engine.RenderTemplate(&buf, FormTemplate, buildView(form, opts)); err != nil {
		return nil, fmt.Errorf("html renderer: %w", err)
	}
	return buf.Bytes(), nil
}

type formView struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Action      string        `json:"action"`
	Multipart   bool          `json:"multipart"`
	SubmitLabel string        `json:"submit_label"`
	Hidden      []HiddenField `json:"hidden"`
	Errors      []string      `json:"errors"`
	Fields      []fieldView   `json:"fields"`
}

type fieldView struct {
	Key         string       `json:"key"`
	ID          string       `json:"id"`
	Label       string       `json:"label"`
	Control     string       `json:"control"`
	InputType   string       `json:"input_type"`
	Required    bool         `json:"required"`
	Placeholder string       `json:"placeholder"`
	Description string       `json:"description"`
	Pattern     string       `json:"pattern"`
	Title       string       `json:"title"`
	Min         string       `json:"min"`
	Max         string       `json:"max"`
	Accept      string       `json:"accept"`
	Multiple    bool         `json:"multiple"`
	MaxFileSize string       `json:"max_file_size"`
	Value       string       `json:"value"`
	Options     []optionView `json:"options"`
	Errors      []string     `json:"errors"`
}

type optionView struct {
	Value    string `json:"value"`
	ID       string `json:"id"`
	Selected bool   `json:"selected"`
}

func buildView(form model.FormConfig, opts RenderOptions) formView {
	form = form.Derive()
	view := formView{
		ID:          form.ID,
		Title:       form.Title,
		Description: form.Description,
		Action:      opts.Action,
		SubmitLabel: strings.TrimSpace(opts.SubmitLabel),
		Hidden:      sortHiddenFields(opts.Hidden),
		Errors:      opts.Errors.Form,
	}
	if view.SubmitLabel == "" {
		view.SubmitLabel = "Submit"
	}
	for _, field := range form.Fields {
		if field.Type.IsFile() {
			view.Multipart = true
		}
		view.Fields = append(view.Fields, buildField(field, opts.Values[field.Key], opts.Errors.Fields[field.Key]))
	}
	return view
}

func buildField(field model.FieldDefinition, value any, errs []string) fieldView {
	view := fieldView{
		Key:         field.Key,
		ID:          "field-" + field.Key,
		Label:       field.Label,
		Required:    field.Required,
		Placeholder: field.Placeholder,
		Description: field.Description,
		Errors:      errs,
	}
	selected := submittedValues(value)

	switch field.Type {
	case model.FieldTypeTextarea:
		view.Control = "textarea"
	case model.FieldTypeSelect:
		view.Control = "select"
	case model.FieldTypeRadio, model.FieldTypeCheckbox:
		view.Control = "choices"
		view.InputType = string(field.Type)
	case model.FieldTypeFile:
		view.Control = "input"
		view.InputType = "file"
		view.Accept = strings.Join(field.AcceptedTypes, ",")
		view.Multiple = field.AllowMultiple
		if field.MaxFileSize != nil {
			view.MaxFileSize = strconv.FormatInt(*field.MaxFileSize, 10)
		}
	default:
		view.Control = "input"
		view.InputType = string(field.Type)
	}

	if field.Type.SupportsRule() {
		if pattern, ok := field.PatternSource().Resolve(); ok && rules.CheckPattern(pattern) == nil {
			view.Pattern = pattern
			if field.IsLegacy() {
				view.Title = "Please match the required format."
			} else {
				view.Title = rules.ErrorMessage(field.Rule())
			}
		}
	}
	if field.Type.HasBounds() {
		view.Min = formatBound(field.Type, field.Min)
		view.Max = formatBound(field.Type, field.Max)
	}
	if field.Type.HasOptions() {
		for i, option := range field.Options {
			view.Options = append(view.Options, optionView{
				Value:    option,
				ID:       fmt.Sprintf("%s-%d", view.ID, i),
				Selected: contains(selected, option),
			})
		}
	}
	if !field.Type.HasOptions() && !field.Type.IsFile() && len(selected) > 0 {
		view.Value = selected[0]
	}
	return view
}

// formatBound only emits number bounds; date bounds are not enforced on
// submission.
func formatBound(t model.FieldType, v *float64) string {
	if v == nil || t != model.FieldTypeNumber {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func submittedValues(value any) []string {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			out = append(out, fmt.Sprint(item))
		}
		return out
	default:
		return []string{fmt.Sprint(v)}
	}
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
