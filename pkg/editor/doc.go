// Package editor binds field definitions under construction to persistence.
//
// A FieldEditor keeps a draft, re-checks it on every edit and emits the
// derived definition after a quiet period. Invalid drafts are never emitted
// and an emission equal to the previous one is skipped. FormAutosaver gathers
// those emissions into a form and saves it in the background.
//
// Timers go through the Clock interface so tests can drive them by hand.
package editor
