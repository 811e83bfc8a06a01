// Package tui runs forms in a terminal. Respond asks every field of a form and
// validates answers as they are given; BuildField and EditField shape a field
// definition through the same editor the web builder uses.
package tui
