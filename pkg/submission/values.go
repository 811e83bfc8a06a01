package submission

import (
	"net/url"

	"github.com/goliatone/go-formdee/pkg/model"
)

// FromURLValues converts a urlencoded form post into the value map accepted
// by Validate. Checkbox and multi-file fields always become lists; other
// fields keep their first value. Keys the form does not define are kept so
// Validate can report them.
func FromURLValues(form model.FormConfig, posted url.Values) map[string]any {
	out := make(map[string]any, len(posted))
	multi := make(map[string]bool, len(form.Fields))
	for _, field := range form.Fields {
		multi[field.Key] = field.Type == model.FieldTypeCheckbox ||
			(field.Type == model.FieldTypeFile && field.AllowMultiple)
	}
	for key, values := range posted {
		if len(values) == 0 {
			continue
		}
		if multi[key] {
			out[key] = append([]string(nil), values...)
			continue
		}
		out[key] = values[0]
	}
	return out
}
