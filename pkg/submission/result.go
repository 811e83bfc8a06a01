package submission

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-formdee/pkg/model"
)

// Result splits validation failures into field-level messages keyed by field
// key and form-level messages.
type Result struct {
	Fields map[string][]string `json:"fields,omitempty"`
	Form   []string            `json:"form,omitempty"`
}

// Valid reports whether the result carries no messages.
func (r Result) Valid() bool {
	return len(r.Fields) == 0 && len(r.Form) == 0
}

// FieldErrors returns the messages recorded for key.
func (r Result) FieldErrors(key string) []string {
	return r.Fields[key]
}

// AddField records a message for key. Blank and duplicate messages are
// ignored.
func (r *Result) AddField(key string, messages ...string) {
	merged := normalizeMessages(append(append([]string(nil), r.Fields[key]...), messages...))
	if len(merged) == 0 {
		return
	}
	if r.Fields == nil {
		r.Fields = make(map[string][]string)
	}
	r.Fields[key] = merged
}

// AddForm records form-level messages.
func (r *Result) AddForm(messages ...string) {
	r.Form = MergeFormErrors(r.Form, messages...)
}

// Merge folds other into r.
func (r *Result) Merge(other Result) {
	for key, messages := range other.Fields {
		r.AddField(key, messages...)
	}
	r.AddForm(other.Form...)
}

// MergeFormErrors concatenates and normalises multiple form-level error
// slices, trimming whitespace and removing duplicates while preserving order.
func MergeFormErrors(existing []string, extras ...string) []string {
	combined := make([]string, 0, len(existing)+len(extras))
	combined = append(combined, existing...)
	combined = append(combined, extras...)
	return normalizeMessages(combined)
}

// MapErrorPayload maps an external error payload, keyed by JSON pointers or
// dotted paths, onto the form's field keys. Paths that do not name a field
// become form-level messages so nothing is lost.
func MapErrorPayload(form model.FormConfig, payload map[string][]string) Result {
	var result Result
	if len(payload) == 0 {
		return result
	}

	keys := make(map[string]struct{}, len(form.Fields))
	for _, field := range form.Fields {
		if key := strings.TrimSpace(field.Key); key != "" {
			keys[key] = struct{}{}
		}
	}

	for rawPath, messages := range payload {
		normalized := normalizeMessages(messages)
		if len(normalized) == 0 {
			continue
		}
		if key, ok := mapErrorPath(rawPath, keys); ok {
			result.AddField(key, normalized...)
			continue
		}
		result.Form = append(result.Form, normalized...)
	}

	result.Form = normalizeMessages(result.Form)
	return result
}

func normalizeMessages(messages []string) []string {
	if len(messages) == 0 {
		return nil
	}

	out := make([]string, 0, len(messages))
	seen := make(map[string]struct{}, len(messages))

	for _, message := range messages {
		trimmed := strings.TrimSpace(message)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		out = append(out, trimmed)
	}

	if len(out) == 0 {
		return nil
	}
	return out
}

// mapErrorPath returns the field key named by raw. Wrapper segments such as
// "body" or "data" and array indexes are skipped.
func mapErrorPath(raw string, keys map[string]struct{}) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if isFormLevelKey(trimmed) {
		return "", false
	}
	segments := stripNumericSegments(dropWrapperSegments(parsePathSegments(trimmed)))
	if len(segments) == 0 {
		return "", false
	}
	// Forms are flat, so only the first meaningful segment can name a field.
	if _, ok := keys[segments[0]]; !ok {
		return "", false
	}
	return segments[0], true
}

func parsePathSegments(path string) []string {
	if path == "" {
		return nil
	}

	clean := strings.TrimSpace(path)
	for strings.HasPrefix(clean, "#") || strings.HasPrefix(clean, "/") || strings.HasPrefix(clean, ".") || strings.HasPrefix(clean, "$") {
		clean = strings.TrimPrefix(clean, "#")
		clean = strings.TrimPrefix(clean, "/")
		clean = strings.TrimPrefix(clean, ".")
		clean = strings.TrimPrefix(clean, "$")
	}

	replacer := strings.NewReplacer("[", ".", "]", "", "//", "/")
	clean = strings.Trim(replacer.Replace(clean), "./")
	if clean == "" {
		return nil
	}

	parts := strings.FieldsFunc(clean, func(r rune) bool {
		return r == '.' || r == '/'
	})

	out := make([]string, 0, len(parts))
	for _, part := range parts {
		segment := strings.TrimSpace(part)
		if segment == "" {
			continue
		}
		segment = strings.ReplaceAll(segment, "~1", "/")
		segment = strings.ReplaceAll(segment, "~0", "~")
		out = append(out, segment)
	}
	return out
}

var wrapperSegments = map[string]struct{}{
	"body":       {},
	"request":    {},
	"payload":    {},
	"data":       {},
	"attributes": {},
	"fields":     {},
	"values":     {},
}

func dropWrapperSegments(segments []string) []string {
	out := segments
	for len(out) > 0 {
		if _, ok := wrapperSegments[strings.ToLower(out[0])]; !ok {
			break
		}
		out = out[1:]
	}
	return out
}

func stripNumericSegments(segments []string) []string {
	out := make([]string, 0, len(segments))
	for _, segment := range segments {
		if _, err := strconv.Atoi(segment); err == nil {
			continue
		}
		out = append(out, segment)
	}
	return out
}

func isFormLevelKey(key string) bool {
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "", ".", "/", "#", "$", "form", "base", "__all__", "non_field_errors", "non-field-errors":
		return true
	default:
		return false
	}
}
