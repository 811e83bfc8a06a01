package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/hay-kot/criterio"

	"github.com/goliatone/go-formdee/pkg/rules"
)

var keyPattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// Warning is an advisory issue that never blocks saving or submitting.
type Warning struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Check validates the definition itself (not a submitted value). The error,
// when non-nil, is a criterio.FieldErrors keyed by attribute name.
func (f FieldDefinition) Check() error {
	var errs criterio.FieldErrorsBuilder

	if err := checkKey(f.Key); err != nil {
		errs = errs.Append("key", err)
	}
	if strings.TrimSpace(f.Label) == "" {
		errs = errs.Append("label", errors.New("label is required"))
	}
	if f.Type == "" {
		errs = errs.Append("type", errors.New("type is required"))
	} else if _, err := ParseFieldType(string(f.Type)); err != nil {
		errs = errs.Append("type", err)
	}

	if f.Type.SupportsRule() {
		if f.ValidationRule != "" && !f.ValidationRule.Valid() {
			errs = errs.Append("validationRule", fmt.Errorf("%w: %q", rules.ErrUnknownRule, f.ValidationRule))
		}
		switch f.Rule() {
		case rules.RuleCustomRegex:
			if strings.TrimSpace(f.CustomPattern) == "" {
				errs = errs.Append("customPattern", errors.New("pattern is required for a custom rule"))
			}
		case rules.RuleEmailDomain:
			if strings.TrimSpace(f.ValidationDomain) == "" {
				errs = errs.Append("validationDomain", errors.New("domain is required for the email domain rule"))
			}
		}
	}

	if f.Type.HasOptions() {
		if err := checkOptions(f.Options); err != nil {
			errs = errs.Append("options", err)
		}
	}

	if f.Type.HasBounds() && f.Min != nil && f.Max != nil && *f.Min >= *f.Max {
		errs = errs.Append("min", fmt.Errorf("min (%g) must be less than max (%g)", *f.Min, *f.Max))
	}

	if f.Type.IsFile() && f.MaxFileSize != nil {
		size := *f.MaxFileSize
		if size < MinFileSizeLimit || size > MaxFileSizeLimit {
			errs = errs.Append("maxFileSize", fmt.Errorf("max file size must be between %d and %d bytes", MinFileSizeLimit, MaxFileSizeLimit))
		}
	}

	return errs.ToError()
}

// Warnings returns advisory issues, currently custom patterns that do not
// compile. Validation of such fields fails open.
func (f FieldDefinition) Warnings() []Warning {
	if !f.Type.SupportsRule() {
		return nil
	}
	pattern, ok := f.PatternSource().Resolve()
	if !ok {
		return nil
	}
	if err := rules.CheckPattern(pattern); err != nil {
		field := "customPattern"
		if f.IsLegacy() {
			field = "pattern"
		}
		return []Warning{{Field: field, Message: err.Error()}}
	}
	return nil
}

// Check validates form metadata, key uniqueness and every field. Field errors
// are reported as fields[i].<attribute>.
func (f FormConfig) Check() error {
	var errs criterio.FieldErrorsBuilder

	if strings.TrimSpace(f.Title) == "" {
		errs = errs.Append("title", errors.New("title is required"))
	}
	if len(f.Fields) == 0 {
		errs = errs.Append("fields", errors.New("at least one field is required"))
	}

	seen := make(map[string]int, len(f.Fields))
	for i, field := range f.Fields {
		prefix := fmt.Sprintf("fields[%d]", i)
		if first, dup := seen[field.Key]; dup && field.Key != "" {
			errs = errs.Append(prefix+".key", fmt.Errorf("duplicate key %q (also fields[%d])", field.Key, first))
		} else {
			seen[field.Key] = i
		}

		err := field.Check()
		if err == nil {
			continue
		}
		var fieldErrs criterio.FieldErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				errs = errs.Append(prefix+"."+fe.Field, fe.Err)
			}
			continue
		}
		errs = errs.Append(prefix, err)
	}

	return errs.ToError()
}

// Warnings collects field warnings keyed as fields[i].<attribute>.
func (f FormConfig) Warnings() []Warning {
	var out []Warning
	for i, field := range f.Fields {
		for _, w := range field.Warnings() {
			out = append(out, Warning{
				Field:   fmt.Sprintf("fields[%d].%s", i, w.Field),
				Message: w.Message,
			})
		}
	}
	return out
}

// IssueMap flattens a Check error into attribute -> messages.
func IssueMap(err error) map[string][]string {
	if err == nil {
		return nil
	}
	var fieldErrs criterio.FieldErrors
	if !errors.As(err, &fieldErrs) {
		return map[string][]string{"": {err.Error()}}
	}
	out := make(map[string][]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		out[fe.Field] = append(out[fe.Field], fe.Err.Error())
	}
	return out
}

func checkKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("key is required")
	}
	if !keyPattern.MatchString(key) {
		return errors.New("key must start with a letter and contain only letters, numbers and underscores")
	}
	return nil
}

func checkOptions(options []string) error {
	if len(options) == 0 {
		return errors.New("at least one option is required")
	}
	seen := make(map[string]struct{}, len(options))
	for _, option := range options {
		trimmed := strings.TrimSpace(option)
		if trimmed == "" {
			return errors.New("options cannot be blank")
		}
		if _, dup := seen[trimmed]; dup {
			return fmt.Errorf("duplicate option %q", trimmed)
		}
		seen[trimmed] = struct{}{}
	}
	return nil
}
