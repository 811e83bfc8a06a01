// Package store persists forms and their responses in SQLite.
package store
