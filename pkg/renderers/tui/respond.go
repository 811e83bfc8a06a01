package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/AlecAivazis/survey/v2/terminal"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-formdee/pkg/editor"
	"github.com/goliatone/go-formdee/pkg/model"
	"github.com/goliatone/go-formdee/pkg/rules"
	"github.com/goliatone/go-formdee/pkg/submission"
)

const skipOption = "(skip)"

// Renderer runs terminal sessions that fill in a form or build a field.
type Renderer struct {
	driver            PromptDriver
	checker           *submission.Checker
	logger            zerolog.Logger
	editorOptions     []editor.Option
	submitTransformer SubmitTransformer
	theme             Theme
}

// New constructs a Renderer. Without WithPromptDriver it prompts on the
// process terminal through survey.
func New(options ...Option) *Renderer {
	r := &Renderer{
		checker: submission.NewChecker(),
		logger:  zerolog.Nop(),
		theme:   DefaultTheme,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(r)
	}
	if r.driver == nil {
		r.driver = NewSurveyDriver(terminal.Stdio{})
	}
	return r
}

// Respond prompts for every field of form and returns the answers keyed by
// field key. Each answer is validated as it is given; rejected answers are
// reported and asked again. Unanswered optional fields are left out.
func (r *Renderer) Respond(ctx context.Context, form model.FormConfig) (map[string]any, error) {
	if ctx == nil {
		return nil, errors.New("tui: context is required")
	}
	form = form.Derive()
	answers := make(map[string]any, len(form.Fields))
	for _, field := range form.Fields {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		value, err := r.answerField(ctx, field)
		if err != nil {
			return nil, fmt.Errorf("tui: field %s: %w", field.Key, err)
		}
		if value != nil {
			answers[field.Key] = value
		}
	}

	if r.submitTransformer != nil {
		var err error
		answers, err = r.submitTransformer(answers)
		if err != nil {
			return nil, fmt.Errorf("tui: submit transformer: %w", err)
		}
	}
	return answers, nil
}

func (r *Renderer) answerField(ctx context.Context, field model.FieldDefinition) (any, error) {
	single := model.FormConfig{ID: field.Key, Fields: []model.FieldDefinition{field}}
	for {
		value, err := r.promptValue(ctx, field)
		if err != nil {
			return nil, err
		}
		result := r.checker.Validate(single, map[string]any{field.Key: value})
		messages := result.FieldErrors(field.Key)
		if len(messages) == 0 {
			messages = checkFiles(field, value)
		}
		if len(messages) == 0 {
			return value, nil
		}
		r.logger.Debug().Str("field", field.Key).Strs("errors", messages).Msg("answer rejected")
		for _, msg := range messages {
			r.warn(ctx, msg)
		}
	}
}

func (r *Renderer) promptValue(ctx context.Context, field model.FieldDefinition) (any, error) {
	message := promptMessage(field)
	switch field.Type {
	case model.FieldTypeTextarea:
		text, err := r.driver.TextArea(ctx, TextAreaConfig{Message: message, Help: field.Description})
		if err != nil {
			return nil, err
		}
		return optionalString(text), nil
	case model.FieldTypeSelect, model.FieldTypeRadio:
		return r.promptChoice(ctx, field, message)
	case model.FieldTypeCheckbox:
		if len(field.Options) == 0 {
			return nil, ErrNoOptions
		}
		indices, err := r.driver.MultiSelect(ctx, SelectConfig{
			Message: message,
			Options: field.Options,
			Help:    field.Description,
		})
		if err != nil {
			return nil, err
		}
		if selected := defaultsFromIndices(field.Options, indices); len(selected) > 0 {
			return selected, nil
		}
		return nil, nil
	case model.FieldTypeFile:
		text, err := r.driver.Input(ctx, InputConfig{Message: message, Help: fileHelp(field)})
		if err != nil {
			return nil, err
		}
		if paths := splitList(text); len(paths) > 0 {
			return paths, nil
		}
		return nil, nil
	default:
		text, err := r.driver.Input(ctx, InputConfig{Message: message, Help: inputHelp(field)})
		if err != nil {
			return nil, err
		}
		return optionalString(text), nil
	}
}

func (r *Renderer) promptChoice(ctx context.Context, field model.FieldDefinition, message string) (any, error) {
	if len(field.Options) == 0 {
		return nil, ErrNoOptions
	}
	options := field.Options
	if !field.Required {
		options = append([]string{skipOption}, field.Options...)
	}
	idx, err := r.driver.Select(ctx, SelectConfig{
		Message:      message,
		Options:      options,
		DefaultIndex: -1,
		Help:         field.Description,
	})
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(options) || (!field.Required && idx == 0) {
		return nil, nil
	}
	return options[idx], nil
}

// checkFiles verifies that answered paths exist and respect the size limit.
// Submission validation only sees the names.
func checkFiles(field model.FieldDefinition, value any) []string {
	paths, ok := value.([]string)
	if !field.Type.IsFile() || !ok {
		return nil
	}
	var messages []string
	for _, p := range paths {
		info, err := os.Stat(p)
		switch {
		case err != nil:
			messages = append(messages, fmt.Sprintf("Cannot read %q.", p))
		case info.IsDir():
			messages = append(messages, fmt.Sprintf("%q is a directory.", p))
		case field.MaxFileSize != nil && info.Size() > *field.MaxFileSize:
			messages = append(messages, fmt.Sprintf("%s is larger than %s.", filepath.Base(p), formatSize(*field.MaxFileSize)))
		}
	}
	return messages
}

func (r *Renderer) warn(ctx context.Context, msg string) {
	_ = r.driver.Info(ctx, r.theme.ErrorPrefix+msg)
}

func (r *Renderer) info(ctx context.Context, msg string) {
	_ = r.driver.Info(ctx, r.theme.InfoPrefix+msg)
}

func promptMessage(field model.FieldDefinition) string {
	label := field.Label
	if label == "" {
		label = field.Key
	}
	if field.Required {
		return label + " *"
	}
	return label
}

func inputHelp(field model.FieldDefinition) string {
	var parts []string
	if field.Description != "" {
		parts = append(parts, field.Description)
	}
	switch field.Type {
	case model.FieldTypeText:
		if rule, err := rules.Lookup(field.Rule()); err == nil && rule.Example != "" {
			parts = append(parts, "Example: "+rule.Example)
		}
	case model.FieldTypeNumber:
		if field.Min != nil {
			parts = append(parts, "Min: "+strconv.FormatFloat(*field.Min, 'f', -1, 64))
		}
		if field.Max != nil {
			parts = append(parts, "Max: "+strconv.FormatFloat(*field.Max, 'f', -1, 64))
		}
	case model.FieldTypeDate:
		parts = append(parts, "Format: YYYY-MM-DD")
	}
	return strings.Join(parts, ". ")
}

func fileHelp(field model.FieldDefinition) string {
	parts := []string{"Path to the file"}
	if field.AllowMultiple {
		parts[0] = "Comma separated file paths"
	}
	if len(field.AcceptedTypes) > 0 {
		parts = append(parts, "Accepted: "+strings.Join(field.AcceptedTypes, ", "))
	}
	if field.MaxFileSize != nil {
		parts = append(parts, "Max size: "+formatSize(*field.MaxFileSize))
	}
	return strings.Join(parts, ". ")
}

func formatSize(size int64) string {
	if size%(1<<20) == 0 {
		return fmt.Sprintf("%d MB", size>>20)
	}
	return fmt.Sprintf("%d bytes", size)
}

func optionalString(s string) any {
	if s = strings.TrimSpace(s); s == "" {
		return nil
	}
	return s
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// ContentType reports the media type Encode produces for format.
func ContentType(format OutputFormat) string {
	switch format {
	case OutputFormatFormURLEncoded:
		return "application/x-www-form-urlencoded"
	case OutputFormatPrettyText:
		return "text/plain"
	default:
		return "application/json"
	}
}

// Encode serializes answers returned by Respond.
func Encode(answers map[string]any, format OutputFormat) ([]byte, error) {
	switch format {
	case OutputFormatFormURLEncoded:
		return []byte(flattenForm(answers)), nil
	case OutputFormatPrettyText:
		return []byte(prettyPrint(answers)), nil
	case OutputFormatJSON, "":
		return json.Marshal(answers)
	default:
		return nil, fmt.Errorf("tui: unknown output format %q", format)
	}
}

func flattenForm(answers map[string]any) string {
	out := url.Values{}
	for key, value := range answers {
		switch v := value.(type) {
		case []string:
			for _, item := range v {
				out.Add(key, item)
			}
		default:
			out.Set(key, fmt.Sprint(v))
		}
	}
	return out.Encode()
}

func prettyPrint(answers map[string]any) string {
	keys := make([]string, 0, len(answers))
	for key := range answers {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, key := range keys {
		switch v := answers[key].(type) {
		case []string:
			for idx, item := range v {
				fmt.Fprintf(&b, "%s[%d]=%s\n", key, idx, item)
			}
		default:
			fmt.Fprintf(&b, "%s=%v\n", key, v)
		}
	}
	return b.String()
}
