package model

import "github.com/goliatone/go-formdee/pkg/rules"

// PatternSource describes where a field's pattern comes from. It is either
// Resolved, derived fresh from the rule catalog, or LegacyRaw, a pattern
// stored verbatim by records that predate the catalog.
type PatternSource interface {
	// Resolve returns the concrete pattern and whether one applies.
	Resolve() (string, bool)
	// Match applies the pattern to value using v.
	Match(v *rules.Validator, value string) bool

	patternSource()
}

// Resolved derives its pattern from a rule selection.
type Resolved struct {
	Rule          rules.RuleID
	CustomPattern string
	Domain        string
}

// Resolve implements PatternSource.
func (r Resolved) Resolve() (string, bool) {
	return rules.ResolvePattern(r.rule(), r.CustomPattern, r.Domain)
}

// Match implements PatternSource.
func (r Resolved) Match(v *rules.Validator, value string) bool {
	return v.Validate(value, r.rule(), r.CustomPattern, r.Domain)
}

func (r Resolved) rule() rules.RuleID {
	if r.Rule == "" {
		return rules.RuleNone
	}
	return r.Rule
}

func (Resolved) patternSource() {}

// LegacyRaw carries a pattern persisted before rules existed.
type LegacyRaw struct {
	Raw string
}

// Resolve implements PatternSource.
func (l LegacyRaw) Resolve() (string, bool) {
	return l.Raw, l.Raw != ""
}

// Match implements PatternSource.
func (l LegacyRaw) Match(v *rules.Validator, value string) bool {
	return v.ValidatePattern(value, l.Raw)
}

func (LegacyRaw) patternSource() {}

// PatternSource classifies the field's validation attributes. Only text fields
// carry patterns; other types resolve to rules.RuleNone. A stored pattern with
// an absent or none rule is treated as LegacyRaw.
func (f FieldDefinition) PatternSource() PatternSource {
	if !f.Type.SupportsRule() {
		return Resolved{Rule: rules.RuleNone}
	}
	rule := f.Rule()
	if rule == rules.RuleNone && f.Pattern != "" {
		return LegacyRaw{Raw: f.Pattern}
	}
	switch rule {
	case rules.RuleCustomRegex:
		return Resolved{Rule: rule, CustomPattern: f.CustomPattern}
	case rules.RuleEmailDomain:
		return Resolved{Rule: rule, Domain: f.ValidationDomain}
	default:
		return Resolved{Rule: rule}
	}
}

// IsLegacy reports whether the field validates through a raw stored pattern.
func (f FieldDefinition) IsLegacy() bool {
	_, ok := f.PatternSource().(LegacyRaw)
	return ok
}

// MatchValue reports whether value satisfies the field's pattern. A nil
// validator uses rules.Default.
func (f FieldDefinition) MatchValue(v *rules.Validator, value string) bool {
	if v == nil {
		v = rules.Default()
	}
	return f.PatternSource().Match(v, value)
}

// MigrateLegacy rewrites a LegacyRaw field as an explicit custom_regex rule so
// later edits flow through the catalog. Other fields are returned unchanged.
func (f FieldDefinition) MigrateLegacy() FieldDefinition {
	legacy, ok := f.PatternSource().(LegacyRaw)
	if !ok {
		return f
	}
	out := f.Clone()
	out.ValidationRule = rules.RuleCustomRegex
	out.CustomPattern = legacy.Raw
	out.ValidationDomain = ""
	out.Pattern = legacy.Raw
	return out
}
