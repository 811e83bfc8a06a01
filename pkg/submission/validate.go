package submission

import (
	"fmt"
	"math"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-formdee/pkg/model"
	"github.com/goliatone/go-formdee/pkg/rules"
)

// DateLayout is the accepted format for date values.
const DateLayout = "2006-01-02"

// emailShape mirrors the loose check browsers apply to type=email inputs.
// It is not a catalog rule, so it bypasses the rules.Validator observer.
var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Checker validates submitted values against a form.
type Checker struct {
	validator *rules.Validator
	logger    zerolog.Logger
}

// Option configures a Checker.
type Option func(*Checker)

// WithValidator sets the rule validator. Defaults to rules.Default.
func WithValidator(v *rules.Validator) Option {
	return func(c *Checker) {
		if v != nil {
			c.validator = v
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Checker) {
		c.logger = logger
	}
}

// NewChecker constructs a Checker.
func NewChecker(options ...Option) *Checker {
	c := &Checker{
		validator: rules.Default(),
		logger:    zerolog.Nop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(c)
	}
	return c
}

// Validate checks values with a default Checker.
func Validate(form model.FormConfig, values map[string]any) Result {
	return NewChecker().Validate(form, values)
}

// Validate checks every field of form against values. Values are keyed by
// field key; keys the form does not define are reported at form level.
func (c *Checker) Validate(form model.FormConfig, values map[string]any) Result {
	var result Result

	known := make(map[string]struct{}, len(form.Fields))
	for _, field := range form.Fields {
		known[field.Key] = struct{}{}
		if messages := c.checkField(field, values[field.Key]); len(messages) > 0 {
			result.AddField(field.Key, messages...)
		}
	}

	var unknown []string
	for key := range values {
		if _, ok := known[key]; !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	for _, key := range unknown {
		result.AddForm(fmt.Sprintf("Unknown field %q.", key))
	}

	if !result.Valid() {
		c.logger.Debug().
			Str("form", form.ID).
			Int("field_errors", len(result.Fields)).
			Int("form_errors", len(result.Form)).
			Msg("submission rejected")
	}
	return result
}

func (c *Checker) checkField(field model.FieldDefinition, raw any) []string {
	values, ok := stringValues(raw)
	if !ok {
		return []string{fmt.Sprintf("%s has an unsupported value.", label(field))}
	}
	if len(values) == 0 {
		if field.Required {
			return []string{fmt.Sprintf("%s is required.", label(field))}
		}
		return nil
	}

	multi := field.Type == model.FieldTypeCheckbox || (field.Type == model.FieldTypeFile && field.AllowMultiple)
	if !multi && len(values) > 1 {
		return []string{fmt.Sprintf("%s accepts a single value.", label(field))}
	}

	var messages []string
	for _, value := range values {
		if msg := c.checkValue(field, value); msg != "" {
			messages = append(messages, msg)
		}
	}
	return messages
}

func (c *Checker) checkValue(field model.FieldDefinition, value string) string {
	switch field.Type {
	case model.FieldTypeText:
		return c.checkText(field, value)
	case model.FieldTypeEmail:
		if !emailShape.MatchString(value) {
			return "Please enter a valid email address."
		}
	case model.FieldTypeNumber:
		n, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return "Please enter a number."
		}
		if field.Min != nil && n < *field.Min {
			return fmt.Sprintf("Value must be at least %s.", formatNumber(*field.Min))
		}
		if field.Max != nil && n > *field.Max {
			return fmt.Sprintf("Value must be at most %s.", formatNumber(*field.Max))
		}
	case model.FieldTypeDate:
		if _, err := time.Parse(DateLayout, value); err != nil {
			return "Please enter a date as YYYY-MM-DD."
		}
	case model.FieldTypeSelect, model.FieldTypeRadio, model.FieldTypeCheckbox:
		if !containsOption(field.Options, value) {
			return fmt.Sprintf("%q is not one of the available options.", value)
		}
	case model.FieldTypeFile:
		if !acceptsFile(field.AcceptedTypes, value) {
			return fmt.Sprintf("File type of %q is not accepted.", value)
		}
	}
	return ""
}

func (c *Checker) checkText(field model.FieldDefinition, value string) string {
	src := field.PatternSource()
	if resolved, ok := src.(model.Resolved); ok && resolved.Rule != "" && !resolved.Rule.Valid() {
		c.logger.Warn().Str("field", field.Key).Str("rule", string(resolved.Rule)).Msg("unknown rule skipped")
		return ""
	}
	if src.Match(c.validator, value) {
		return ""
	}
	if _, legacy := src.(model.LegacyRaw); legacy {
		return "Please match the required format."
	}
	return rules.ErrorMessage(field.Rule())
}

// stringValues flattens a submitted value into strings. Blank entries count
// as absent; the others are kept verbatim so rules see exactly the stored
// value. JSON numbers and booleans are formatted; nested objects are
// rejected.
func stringValues(raw any) ([]string, bool) {
	switch v := raw.(type) {
	case nil:
		return nil, true
	case string:
		return nonEmpty([]string{v}), true
	case []string:
		return nonEmpty(v), true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			values, ok := stringValues(item)
			if !ok {
				return nil, false
			}
			if len(values) > 1 {
				return nil, false
			}
			out = append(out, values...)
		}
		return out, true
	case float64:
		return []string{strconv.FormatFloat(v, 'f', -1, 64)}, true
	case int:
		return []string{strconv.Itoa(v)}, true
	case int64:
		return []string{strconv.FormatInt(v, 10)}, true
	case bool:
		return []string{strconv.FormatBool(v)}, true
	default:
		return nil, false
	}
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			out = append(out, value)
		}
	}
	return out
}

func containsOption(options []string, value string) bool {
	for _, option := range options {
		if strings.TrimSpace(option) == value {
			return true
		}
	}
	return false
}

// acceptsFile matches a file name against extensions (".pdf") and MIME
// patterns ("image/*"). MIME entries are matched by extension only for the
// common image, audio and video families.
func acceptsFile(accepted []string, name string) bool {
	if len(accepted) == 0 {
		return true
	}
	ext := strings.ToLower(path.Ext(name))
	for _, entry := range accepted {
		entry = strings.ToLower(strings.TrimSpace(entry))
		switch {
		case entry == "" || entry == "*" || entry == "*/*":
			return true
		case strings.HasPrefix(entry, "."):
			if ext == entry {
				return true
			}
		case strings.HasSuffix(entry, "/*"):
			if family, ok := mediaFamilies[ext]; ok && family == strings.TrimSuffix(entry, "/*") {
				return true
			}
		}
	}
	return false
}

var mediaFamilies = map[string]string{
	".png": "image", ".jpg": "image", ".jpeg": "image", ".gif": "image", ".webp": "image", ".svg": "image",
	".mp3": "audio", ".wav": "audio", ".ogg": "audio",
	".mp4": "video", ".webm": "video", ".mov": "video",
}

func label(field model.FieldDefinition) string {
	if l := strings.TrimSpace(field.Label); l != "" {
		return l
	}
	return field.Key
}

func formatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}
