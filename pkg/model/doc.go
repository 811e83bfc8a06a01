// Package model defines the form configuration FormDee persists: FormConfig
// and its FieldDefinition entries. A field's Pattern attribute is a cache of
// the pattern resolved from its validation rule; PatternSource separates
// catalog-derived patterns from raw patterns stored by older records, and
// Derive recomputes the cache. Check validates a definition itself, reporting
// criterio.FieldErrors keyed by attribute, while Warnings carries advisory
// issues such as custom patterns that do not compile.
package model
