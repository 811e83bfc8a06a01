package rules

import (
	"errors"
	"fmt"
	"strings"
)

// RuleID identifies a catalog entry. The set of identifiers is closed; use
// ParseRuleID when reading identifiers from untrusted input.
type RuleID string

const (
	RuleNone                 RuleID = "none"
	RuleLettersOnly          RuleID = "letters_only"
	RuleLettersNumbers       RuleID = "letters_numbers"
	RuleLettersNumbersSpaces RuleID = "letters_numbers_spaces"
	RulePhoneNumber          RuleID = "phone_number"
	RulePostalCode           RuleID = "postal_code"
	RuleNumbersOnly          RuleID = "numbers_only"
	RuleURL                  RuleID = "url"
	RuleEmailDomain          RuleID = "email_domain"
	RuleNoSpecialChars       RuleID = "no_special_chars"
	RuleUsername             RuleID = "username"
	RuleCustomRegex          RuleID = "custom_regex"
)

// DomainPlaceholder is the literal token in the email_domain template that is
// replaced by the escaped domain at resolve time.
const DomainPlaceholder = "DOMAIN"

// ErrUnknownRule is returned when an identifier is outside the catalog.
var ErrUnknownRule = errors.New("rules: unknown validation rule")

// Category groups rules for presentation in a picker.
type Category string

const (
	CategoryText    Category = "text"
	CategoryContact Category = "contact"
	CategoryNumeric Category = "numeric"
	CategoryWeb     Category = "web"
	CategoryCustom  Category = "custom"
)

// ValidationRule is an immutable catalog entry. PatternTemplate is empty for
// RuleNone and RuleCustomRegex.
type ValidationRule struct {
	ID              RuleID   `json:"id"`
	Label           string   `json:"label"`
	Description     string   `json:"description"`
	Example         string   `json:"example,omitempty"`
	Category        Category `json:"category"`
	PatternTemplate string   `json:"patternTemplate,omitempty"`
}

// HasTemplate reports whether the rule carries a pattern template.
func (r ValidationRule) HasTemplate() bool {
	return r.PatternTemplate != ""
}

var categoryOrder = []Category{
	CategoryText,
	CategoryContact,
	CategoryNumeric,
	CategoryWeb,
	CategoryCustom,
}

// catalog is declaration ordered; ListByCategory relies on this order.
var catalog = []ValidationRule{
	{
		ID:          RuleNone,
		Label:       "No validation",
		Description: "Any text is accepted",
		Category:    CategoryText,
	},
	{
		ID:              RuleLettersOnly,
		Label:           "Letters only",
		Description:     "Only letters (A-Z, a-z)",
		Example:         "JohnDoe",
		Category:        CategoryText,
		PatternTemplate: `^[A-Za-z]+$`,
	},
	{
		ID:              RuleLettersNumbers,
		Label:           "Letters and numbers",
		Description:     "Letters and numbers, no spaces",
		Example:         "User123",
		Category:        CategoryText,
		PatternTemplate: `^[A-Za-z0-9]+$`,
	},
	{
		ID:              RuleLettersNumbersSpaces,
		Label:           "Letters, numbers and spaces",
		Description:     "Letters, numbers and spaces",
		Example:         "Apartment 4B",
		Category:        CategoryText,
		PatternTemplate: `^[A-Za-z0-9\s]+$`,
	},
	{
		ID:              RulePhoneNumber,
		Label:           "Phone number",
		Description:     "7 to 15 digits with optional +, spaces, dashes and parentheses",
		Example:         "+1 555-123-4567",
		Category:        CategoryContact,
		PatternTemplate: `^[\+]?[0-9\s\-\(\)]{7,15}$`,
	},
	{
		ID:              RulePostalCode,
		Label:           "Postal code",
		Description:     "3 to 10 letters, numbers, spaces or dashes",
		Example:         "SW1A 1AA",
		Category:        CategoryContact,
		PatternTemplate: `^[A-Za-z0-9\s\-]{3,10}$`,
	},
	{
		ID:              RuleNumbersOnly,
		Label:           "Numbers only",
		Description:     "Digits 0-9 only",
		Example:         "123456",
		Category:        CategoryNumeric,
		PatternTemplate: `^[0-9]+$`,
	},
	{
		ID:              RuleURL,
		Label:           "Website URL",
		Description:     "A URL starting with http:// or https://",
		Example:         "https://example.com",
		Category:        CategoryWeb,
		PatternTemplate: `^https?://[\w\-]+(\.[\w\-]+)+[/#?]?.*$`,
	},
	{
		ID:              RuleEmailDomain,
		Label:           "Email from domain",
		Description:     "An email address from a specific domain",
		Example:         "name@company.com",
		Category:        CategoryWeb,
		PatternTemplate: `^[\w\.-]+@` + DomainPlaceholder + `$`,
	},
	{
		ID:              RuleNoSpecialChars,
		Label:           "No special characters",
		Description:     "Letters, numbers, spaces, dashes and underscores",
		Example:         "my-project_01",
		Category:        CategoryText,
		PatternTemplate: `^[A-Za-z0-9\s\-_]+$`,
	},
	{
		ID:              RuleUsername,
		Label:           "Username",
		Description:     "3 to 20 letters, numbers, underscores or dashes",
		Example:         "user_name123",
		Category:        CategoryWeb,
		PatternTemplate: `^[A-Za-z0-9_-]{3,20}$`,
	},
	{
		ID:          RuleCustomRegex,
		Label:       "Custom pattern",
		Description: "A regular expression you provide",
		Example:     "^[A-Z]{3}-[0-9]{4}$",
		Category:    CategoryCustom,
	},
}

var catalogIndex = func() map[RuleID]int {
	idx := make(map[RuleID]int, len(catalog))
	for i, rule := range catalog {
		idx[rule.ID] = i
	}
	return idx
}()

// ParseRuleID converts raw input into a RuleID. Blank input maps to RuleNone,
// matching records that were persisted before rules existed.
func ParseRuleID(raw string) (RuleID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return RuleNone, nil
	}
	id := RuleID(trimmed)
	if !id.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRule, raw)
	}
	return id, nil
}

// Valid reports whether id belongs to the catalog.
func (id RuleID) Valid() bool {
	_, ok := catalogIndex[id]
	return ok
}

// String implements fmt.Stringer.
func (id RuleID) String() string {
	return string(id)
}

// UnmarshalText rejects identifiers outside the catalog so decoding JSON or
// YAML cannot produce an unknown rule.
func (id *RuleID) UnmarshalText(text []byte) error {
	parsed, err := ParseRuleID(string(text))
	if err != nil {
		return err
	}
	*id = parsed
	return nil
}

// Lookup returns the catalog entry for id.
func Lookup(id RuleID) (ValidationRule, error) {
	i, ok := catalogIndex[id]
	if !ok {
		return ValidationRule{}, fmt.Errorf("%w: %q", ErrUnknownRule, string(id))
	}
	return catalog[i], nil
}

// MustLookup is like Lookup but panics for identifiers outside the catalog.
func MustLookup(id RuleID) ValidationRule {
	rule, err := Lookup(id)
	if err != nil {
		panic(err)
	}
	return rule
}

// All returns a copy of the catalog in declaration order.
func All() []ValidationRule {
	out := make([]ValidationRule, len(catalog))
	copy(out, catalog)
	return out
}

// Categories returns the categories in presentation order.
func Categories() []Category {
	out := make([]Category, len(categoryOrder))
	copy(out, categoryOrder)
	return out
}

// ListByCategory groups the catalog by category. Order within a category is
// declaration order.
func ListByCategory() map[Category][]ValidationRule {
	grouped := make(map[Category][]ValidationRule, len(categoryOrder))
	for _, rule := range catalog {
		grouped[rule.Category] = append(grouped[rule.Category], rule)
	}
	return grouped
}

// RuleGroup is an ordered projection of ListByCategory for serialisation.
type RuleGroup struct {
	Category Category         `json:"category"`
	Rules    []ValidationRule `json:"rules"`
}

// Groups returns the catalog grouped by category with categories in
// presentation order. Empty categories are omitted.
func Groups() []RuleGroup {
	grouped := ListByCategory()
	out := make([]RuleGroup, 0, len(grouped))
	for _, category := range categoryOrder {
		entries := grouped[category]
		if len(entries) == 0 {
			continue
		}
		out = append(out, RuleGroup{Category: category, Rules: entries})
	}
	return out
}
