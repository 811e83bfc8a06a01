package openapi

import (
	"github.com/dlclark/regexp2"
	"github.com/getkin/kin-openapi/openapi3"

	"github.com/goliatone/go-formdee/pkg/model"
	"github.com/goliatone/go-formdee/pkg/rules"
)

// SubmissionSchema describes the JSON body accepted when a response to form
// is submitted. Patterns that do not compile are left out, matching the
// fail-open behaviour of submission validation.
func SubmissionSchema(form model.FormConfig) *openapi3.Schema {
	schema := openapi3.NewObjectSchema()
	schema.Title = form.Title
	schema.Description = form.Description

	var required []string
	for _, field := range form.Fields {
		prop := FieldSchema(field)
		if prop == nil {
			continue
		}
		schema.WithProperty(field.Key, prop)
		if field.Required {
			required = append(required, field.Key)
		}
	}
	if len(required) > 0 {
		schema.WithRequired(required)
	}
	return schema
}

// FieldSchema maps one field definition onto a property schema.
func FieldSchema(field model.FieldDefinition) *openapi3.Schema {
	var schema *openapi3.Schema

	switch field.Type {
	case model.FieldTypeText:
		schema = openapi3.NewStringSchema()
		if pattern, ok := field.PatternSource().Resolve(); ok && rules.CheckPattern(pattern) == nil {
			schema.WithPattern(pattern)
		}
	case model.FieldTypeTextarea:
		schema = openapi3.NewStringSchema()
	case model.FieldTypeEmail:
		schema = openapi3.NewStringSchema().WithFormat("email")
	case model.FieldTypeNumber:
		schema = openapi3.NewFloat64Schema()
		if field.Min != nil {
			schema.WithMin(*field.Min)
		}
		if field.Max != nil {
			schema.WithMax(*field.Max)
		}
	case model.FieldTypeDate:
		schema = openapi3.NewStringSchema().WithFormat("date")
	case model.FieldTypeSelect, model.FieldTypeRadio:
		schema = openapi3.NewStringSchema().WithEnum(optionValues(field.Options)...)
	case model.FieldTypeCheckbox:
		items := openapi3.NewStringSchema().WithEnum(optionValues(field.Options)...)
		schema = openapi3.NewArraySchema().WithItems(items).WithUniqueItems(true)
	case model.FieldTypeFile:
		file := openapi3.NewStringSchema().WithFormat("binary")
		if field.AllowMultiple {
			schema = openapi3.NewArraySchema().WithItems(file)
		} else {
			schema = file
		}
	default:
		return nil
	}

	schema.Title = field.Label
	schema.Description = field.Description
	if field.Type.SupportsRule() && field.Rule() != rules.RuleNone && field.Rule().Valid() {
		schema.Extensions = map[string]any{"x-validation-rule": string(field.Rule())}
	}
	return schema
}

func optionValues(options []string) []any {
	out := make([]any, 0, len(options))
	for _, option := range options {
		out = append(out, option)
	}
	return out
}

type regexMatcher struct {
	re *regexp2.Regexp
}

// MatchString fails open on match errors such as timeouts.
func (m regexMatcher) MatchString(s string) bool {
	ok, err := m.re.MatchString(s)
	if err != nil {
		return true
	}
	return ok
}

// RegexCompiler returns a kin-openapi regex compiler that evaluates patterns
// with the same ECMAScript engine and cache as v. A nil v uses rules.Default.
func RegexCompiler(v *rules.Validator) openapi3.RegexCompilerFunc {
	if v == nil {
		v = rules.Default()
	}
	return func(expr string) (openapi3.RegexMatcher, error) {
		re, err := v.Compile(expr)
		if err != nil {
			return nil, err
		}
		return regexMatcher{re: re}, nil
	}
}
