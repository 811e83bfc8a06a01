// Package rules holds the validation rule catalog used by form fields: a
// closed set of rule identifiers mapped to labels, categories and regex
// templates, the resolver that turns a rule selection into a concrete pattern,
// and the validator that applies it.
//
// Validation fails open. A pattern that does not compile, typically a hand
// typed custom_regex, accepts every value; builders surface the problem with
// CheckPattern at edit time instead.
package rules
