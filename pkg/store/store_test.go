package store_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formdee/pkg/model"
	"github.com/goliatone/go-formdee/pkg/rules"
	"github.com/goliatone/go-formdee/pkg/store"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(context.Background(), db))
	return db
}

func newTestStore(t *testing.T) *store.FormStore {
	t.Helper()
	return store.NewFormStore(newTestDB(t))
}

func contactForm() model.FormConfig {
	return model.FormConfig{
		Title:     "Contact <b>us</b>",
		SheetName: " Leads ",
		Fields: []model.FieldDefinition{
			{Key: "name", Label: "Name", Type: model.FieldTypeText, Required: true, ValidationRule: rules.RuleLettersOnly},
			{Key: "topic", Label: "Topic", Type: model.FieldTypeSelect, Options: []string{"sales", "support"}},
		},
	}
}

func TestOpenPragmas(t *testing.T) {
	db := newTestDB(t)

	var fk int
	require.NoError(t, db.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)

	var journal string
	require.NoError(t, db.QueryRow("PRAGMA journal_mode").Scan(&journal))
	assert.Contains(t, []string{"wal", "memory"}, journal)
}

func TestMigrateIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, store.Migrate(ctx, db))

	var versions int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&versions))
	assert.Equal(t, 2, versions)
}

func TestSaveAndGetForm(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	saved, err := s.SaveForm(ctx, contactForm())
	require.NoError(t, err)
	require.NotEmpty(t, saved.ID)
	assert.Equal(t, "Contact us", saved.Title)
	assert.Equal(t, "Leads", saved.SheetName)
	assert.False(t, saved.CreatedAt.IsZero())
	assert.Equal(t, "^[A-Za-z]+$", saved.Fields[0].Pattern, "pattern cache is written")

	got, err := s.GetForm(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.Fields, got.Fields)
	assert.True(t, saved.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, saved.UpdatedAt.Equal(got.UpdatedAt))
}

func TestSaveFormKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	first, err := s.SaveForm(ctx, contactForm())
	require.NoError(t, err)

	time.Sleep(2 * time.Millisecond)
	first.Title = "Renamed"
	first.CreatedAt = time.Time{}
	second, err := s.SaveForm(ctx, first)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.True(t, first.UpdatedAt.Before(second.UpdatedAt) || first.UpdatedAt.Equal(second.UpdatedAt))

	got, err := s.GetForm(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.False(t, got.CreatedAt.After(got.UpdatedAt))

	forms, err := s.ListForms(ctx)
	require.NoError(t, err)
	assert.Len(t, forms, 1)
}

func TestSaveFormImportedCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	form := contactForm()
	form.ID = "contact"
	form.CreatedAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	saved, err := s.SaveForm(ctx, form)
	require.NoError(t, err)
	assert.Equal(t, "contact", saved.ID)
	assert.True(t, form.CreatedAt.Equal(saved.CreatedAt))
}

func TestGetFormNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetForm(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestListFormsOrder(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := contactForm()
	a.ID = "a"
	_, err := s.SaveForm(ctx, a)
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	b := contactForm()
	b.ID = "b"
	_, err = s.SaveForm(ctx, b)
	require.NoError(t, err)

	forms, err := s.ListForms(ctx)
	require.NoError(t, err)
	require.Len(t, forms, 2)
	assert.Equal(t, "b", forms[0].ID)
	assert.Equal(t, "a", forms[1].ID)
}

func TestResponses(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	form, err := s.SaveForm(ctx, contactForm())
	require.NoError(t, err)

	resp, err := s.SaveResponse(ctx, form.ID, map[string]any{"name": "Jane", "topics": []string{"go"}})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ID)

	list, err := s.ListResponses(ctx, form.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, resp.ID, list[0].ID)
	assert.Equal(t, map[string]any{"name": "Jane", "topics": []any{"go"}}, list[0].Data)

	_, err = s.SaveResponse(ctx, "missing", map[string]any{"name": "Jane"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.ListResponses(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteFormCascades(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	s := store.NewFormStore(db)

	form, err := s.SaveForm(ctx, contactForm())
	require.NoError(t, err)
	_, err = s.SaveResponse(ctx, form.ID, map[string]any{"name": "Jane"})
	require.NoError(t, err)

	require.NoError(t, s.DeleteForm(ctx, form.ID))

	var remaining int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM responses").Scan(&remaining))
	assert.Zero(t, remaining)

	assert.ErrorIs(t, s.DeleteForm(ctx, form.ID), store.ErrNotFound)
}
