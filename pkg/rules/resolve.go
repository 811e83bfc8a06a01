package rules

import (
	"fmt"
	"strings"
)

// domainMetaChars are escaped with a backslash when a domain is substituted
// into the email_domain template.
const domainMetaChars = `.*+?^${}()|[]\/`

// EscapeDomain prefixes every regex metacharacter in domain with a backslash.
func EscapeDomain(domain string) string {
	if !strings.ContainsAny(domain, domainMetaChars) {
		return domain
	}
	var b strings.Builder
	b.Grow(len(domain) * 2)
	for _, r := range domain {
		if strings.ContainsRune(domainMetaChars, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ResolvePattern turns a rule selection into a concrete pattern. Empty
// customPattern and domain are treated as absent. The boolean result is false
// when no validation applies.
//
// When id is RuleEmailDomain and domain is absent the template is returned with
// the DOMAIN placeholder left in place.
//
// ResolvePattern panics for identifiers outside the catalog.
func ResolvePattern(id RuleID, customPattern, domain string) (string, bool) {
	switch id {
	case RuleNone:
		return "", false
	case RuleCustomRegex:
		if customPattern == "" {
			return "", false
		}
		return customPattern, true
	case RuleEmailDomain:
		template := MustLookup(id).PatternTemplate
		if domain == "" {
			return template, true
		}
		return strings.ReplaceAll(template, DomainPlaceholder, EscapeDomain(domain)), true
	case RuleLettersOnly,
		RuleLettersNumbers,
		RuleLettersNumbersSpaces,
		RulePhoneNumber,
		RulePostalCode,
		RuleNumbersOnly,
		RuleURL,
		RuleNoSpecialChars,
		RuleUsername:
		return MustLookup(id).PatternTemplate, true
	default:
		panic(fmt.Errorf("%w: %q", ErrUnknownRule, string(id)))
	}
}
