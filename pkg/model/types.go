package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goliatone/go-formdee/pkg/rules"
)

// FieldType is the closed set of input kinds a form field can take.
type FieldType string

const (
	FieldTypeText     FieldType = "text"
	FieldTypeTextarea FieldType = "textarea"
	FieldTypeEmail    FieldType = "email"
	FieldTypeNumber   FieldType = "number"
	FieldTypeSelect   FieldType = "select"
	FieldTypeRadio    FieldType = "radio"
	FieldTypeCheckbox FieldType = "checkbox"
	FieldTypeDate     FieldType = "date"
	FieldTypeFile     FieldType = "file"
)

// ErrUnknownFieldType is returned when a type is outside FieldTypes.
var ErrUnknownFieldType = errors.New("model: unknown field type")

var fieldTypes = []FieldType{
	FieldTypeText,
	FieldTypeTextarea,
	FieldTypeEmail,
	FieldTypeNumber,
	FieldTypeSelect,
	FieldTypeRadio,
	FieldTypeCheckbox,
	FieldTypeDate,
	FieldTypeFile,
}

// FieldTypes returns every field type in presentation order.
func FieldTypes() []FieldType {
	out := make([]FieldType, len(fieldTypes))
	copy(out, fieldTypes)
	return out
}

// ParseFieldType converts raw input into a FieldType.
func ParseFieldType(raw string) (FieldType, error) {
	candidate := FieldType(strings.ToLower(strings.TrimSpace(raw)))
	for _, t := range fieldTypes {
		if t == candidate {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFieldType, raw)
}

// UnmarshalText rejects unknown field types while decoding.
func (t *FieldType) UnmarshalText(text []byte) error {
	parsed, err := ParseFieldType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// SupportsRule reports whether validation rules apply to the type.
func (t FieldType) SupportsRule() bool { return t == FieldTypeText }

// HasOptions reports whether the type requires an option list.
func (t FieldType) HasOptions() bool {
	return t == FieldTypeSelect || t == FieldTypeRadio || t == FieldTypeCheckbox
}

// HasBounds reports whether min/max apply to the type.
func (t FieldType) HasBounds() bool { return t == FieldTypeNumber || t == FieldTypeDate }

// IsFile reports whether the type carries file constraints.
func (t FieldType) IsFile() bool { return t == FieldTypeFile }

const (
	// MinFileSizeLimit and MaxFileSizeLimit bound FieldDefinition.MaxFileSize.
	MinFileSizeLimit int64 = 1 << 20
	MaxFileSizeLimit int64 = 100 << 20
)

// FieldDefinition is the persisted configuration of one form field. Pattern
// caches the pattern resolved from ValidationRule, CustomPattern and
// ValidationDomain; records created before rules existed carry only Pattern.
type FieldDefinition struct {
	Key         string    `json:"key" yaml:"key"`
	Label       string    `json:"label" yaml:"label"`
	Type        FieldType `json:"type" yaml:"type"`
	Required    bool      `json:"required,omitempty" yaml:"required,omitempty"`
	Placeholder string    `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Description string    `json:"description,omitempty" yaml:"description,omitempty"`

	ValidationRule   rules.RuleID `json:"validationRule,omitempty" yaml:"validationRule,omitempty"`
	CustomPattern    string       `json:"customPattern,omitempty" yaml:"customPattern,omitempty"`
	ValidationDomain string       `json:"validationDomain,omitempty" yaml:"validationDomain,omitempty"`
	Pattern          string       `json:"pattern,omitempty" yaml:"pattern,omitempty"`

	Options []string `json:"options,omitempty" yaml:"options,omitempty"`

	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`

	AcceptedTypes []string `json:"acceptedTypes,omitempty" yaml:"acceptedTypes,omitempty"`
	MaxFileSize   *int64   `json:"maxFileSize,omitempty" yaml:"maxFileSize,omitempty"`
	AllowMultiple bool     `json:"allowMultiple,omitempty" yaml:"allowMultiple,omitempty"`
}

// Rule returns the effective rule, mapping an absent rule to rules.RuleNone.
func (f FieldDefinition) Rule() rules.RuleID {
	if f.ValidationRule == "" {
		return rules.RuleNone
	}
	return f.ValidationRule
}

// Clone returns a deep copy of the definition.
func (f FieldDefinition) Clone() FieldDefinition {
	out := f
	out.Options = cloneStrings(f.Options)
	out.AcceptedTypes = cloneStrings(f.AcceptedTypes)
	if f.Min != nil {
		v := *f.Min
		out.Min = &v
	}
	if f.Max != nil {
		v := *f.Max
		out.Max = &v
	}
	if f.MaxFileSize != nil {
		v := *f.MaxFileSize
		out.MaxFileSize = &v
	}
	return out
}

// FormConfig is a named collection of field definitions. Fields belong to
// their form; they have no identity outside it.
type FormConfig struct {
	ID          string            `json:"id,omitempty" yaml:"id,omitempty"`
	Title       string            `json:"title" yaml:"title"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	SheetName   string            `json:"sheetName,omitempty" yaml:"sheetName,omitempty"`
	Fields      []FieldDefinition `json:"fields" yaml:"fields"`
	CreatedAt   time.Time         `json:"createdAt,omitzero" yaml:"createdAt,omitempty"`
	UpdatedAt   time.Time         `json:"updatedAt,omitzero" yaml:"updatedAt,omitempty"`
}

// Clone returns a deep copy of the form.
func (f FormConfig) Clone() FormConfig {
	out := f
	if f.Fields != nil {
		out.Fields = make([]FieldDefinition, len(f.Fields))
		for i, field := range f.Fields {
			out.Fields[i] = field.Clone()
		}
	}
	return out
}

// Field returns the field registered under key.
func (f FormConfig) Field(key string) (FieldDefinition, bool) {
	for _, field := range f.Fields {
		if field.Key == key {
			return field, true
		}
	}
	return FieldDefinition{}, false
}

// UpsertField replaces the field with the same key or appends it.
func (f *FormConfig) UpsertField(def FieldDefinition) {
	for i := range f.Fields {
		if f.Fields[i].Key == def.Key {
			f.Fields[i] = def.Clone()
			return
		}
	}
	f.Fields = append(f.Fields, def.Clone())
}

// ReplaceField stores def at index, appending when index equals the field
// count. It returns false for out of range indexes.
func (f *FormConfig) ReplaceField(index int, def FieldDefinition) bool {
	switch {
	case index < 0 || index > len(f.Fields):
		return false
	case index == len(f.Fields):
		f.Fields = append(f.Fields, def.Clone())
	default:
		f.Fields[index] = def.Clone()
	}
	return true
}

// RemoveField deletes the field registered under key.
func (f *FormConfig) RemoveField(key string) bool {
	for i := range f.Fields {
		if f.Fields[i].Key == key {
			f.Fields = append(f.Fields[:i], f.Fields[i+1:]...)
			return true
		}
	}
	return false
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
