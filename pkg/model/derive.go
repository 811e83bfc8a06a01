package model

import (
	"strings"

	"github.com/goliatone/go-formdee/pkg/rules"
)

// WithType returns a copy switched to t with attributes that do not apply to
// t cleared: rule attributes for non-text types, options for types without
// choices, file constraints for non-file types. Bounds are cleared for types
// other than number and date.
func (f FieldDefinition) WithType(t FieldType) FieldDefinition {
	out := f.Clone()
	out.Type = t
	clearIrrelevant(&out)
	return out
}

func clearIrrelevant(f *FieldDefinition) {
	if !f.Type.SupportsRule() {
		f.ValidationRule = ""
		f.CustomPattern = ""
		f.ValidationDomain = ""
		f.Pattern = ""
	}
	if !f.Type.HasOptions() {
		f.Options = nil
	}
	if !f.Type.HasBounds() {
		f.Min = nil
		f.Max = nil
	}
	if !f.Type.IsFile() {
		f.AcceptedTypes = nil
		f.MaxFileSize = nil
		f.AllowMultiple = false
	}
}

// WithRule returns a copy using rule with its parameters. Parameters that the
// rule does not use are dropped and any legacy raw pattern is replaced.
func (f FieldDefinition) WithRule(rule rules.RuleID, customPattern, domain string) FieldDefinition {
	out := f.Clone()
	out.ValidationRule = rule
	out.CustomPattern = customPattern
	out.ValidationDomain = domain
	out.Pattern = ""
	return out.Derive()
}

// Derive returns the normalised definition: identity fields trimmed, labels
// sanitised, attributes irrelevant to the type cleared, inactive rule
// parameters dropped and Pattern recomputed. Legacy raw patterns are kept
// verbatim.
func (f FieldDefinition) Derive() FieldDefinition {
	out := f.Clone()
	out.Key = strings.TrimSpace(out.Key)
	out.Label = SanitizeText(out.Label)
	out.Placeholder = SanitizeText(out.Placeholder)
	out.Description = SanitizeRichText(out.Description)
	clearIrrelevant(&out)

	if out.Type.HasOptions() {
		out.Options = trimOptions(out.Options)
	}
	if out.Type.IsFile() {
		out.AcceptedTypes = trimOptions(out.AcceptedTypes)
	}

	if !out.Type.SupportsRule() {
		return out
	}

	switch src := out.PatternSource().(type) {
	case LegacyRaw:
		out.ValidationRule = rules.RuleNone
		out.CustomPattern = ""
		out.ValidationDomain = ""
		out.Pattern = src.Raw
	case Resolved:
		if !src.rule().Valid() {
			// left for Check to report
			out.Pattern = ""
			return out
		}
		out.ValidationRule = src.rule()
		out.CustomPattern = src.CustomPattern
		out.ValidationDomain = src.Domain
		out.Pattern, _ = src.Resolve()
	}
	return out
}

// Derive returns a copy of the form with sanitised metadata and every field
// derived.
func (f FormConfig) Derive() FormConfig {
	out := f.Clone()
	out.Title = SanitizeText(out.Title)
	out.Description = SanitizeRichText(out.Description)
	out.SheetName = strings.TrimSpace(out.SheetName)
	for i := range out.Fields {
		out.Fields[i] = out.Fields[i].Derive()
	}
	return out
}

func trimOptions(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, 0, len(in))
	for _, option := range in {
		out = append(out, strings.TrimSpace(option))
	}
	return out
}
