package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-formdee/pkg/model"
)

// ErrNotFound is returned when a form does not exist.
var ErrNotFound = errors.New("store: not found")

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Response is one stored submission.
type Response struct {
	ID        string         `json:"id"`
	FormID    string         `json:"formId"`
	Data      map[string]any `json:"data"`
	CreatedAt time.Time      `json:"createdAt"`
}

// FormStore persists forms and their responses. Fields are stored as the JSON
// array of derived field definitions, pattern cache included, so records stay
// readable by clients that only understand raw patterns.
type FormStore struct {
	db    *sql.DB
	now   func() time.Time
	newID func() string
}

// NewFormStore wraps a migrated database.
func NewFormStore(db *sql.DB) *FormStore {
	return &FormStore{
		db:    db,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// SaveForm inserts or updates form. Forms without an ID get a new one. New
// forms keep a CreatedAt they already carry, as imported forms do; existing
// forms keep their stored creation time. UpdatedAt is always reset.
func (s *FormStore) SaveForm(ctx context.Context, form model.FormConfig) (model.FormConfig, error) {
	form = form.Derive()
	form.ID = strings.TrimSpace(form.ID)
	if form.ID == "" {
		form.ID = s.newID()
	}
	fields := form.Fields
	if fields == nil {
		fields = []model.FieldDefinition{}
	}
	encoded, err := json.Marshal(fields)
	if err != nil {
		return model.FormConfig{}, fmt.Errorf("store: encode fields: %w", err)
	}

	err = withBusyRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		now := s.now()
		var created string
		err = tx.QueryRowContext(ctx, `SELECT created_at FROM forms WHERE id = ?`, form.ID).Scan(&created)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			if form.CreatedAt.IsZero() {
				form.CreatedAt = now
			}
			form.CreatedAt = form.CreatedAt.UTC()
		case err != nil:
			return err
		default:
			if form.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
				return fmt.Errorf("parse created_at: %w", err)
			}
		}
		form.UpdatedAt = now

		if _, err := tx.ExecContext(ctx, `INSERT INTO forms (id, title, description, sheet_name, fields, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				title = excluded.title,
				description = excluded.description,
				sheet_name = excluded.sheet_name,
				fields = excluded.fields,
				updated_at = excluded.updated_at`,
			form.ID, form.Title, form.Description, form.SheetName, string(encoded),
			form.CreatedAt.Format(timeLayout), form.UpdatedAt.Format(timeLayout),
		); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return model.FormConfig{}, fmt.Errorf("store: save form %s: %w", form.ID, err)
	}
	return form, nil
}

// GetForm loads a form by ID.
func (s *FormStore) GetForm(ctx context.Context, id string) (model.FormConfig, error) {
	row := s.db.QueryRowContext(ctx, `SELECT id, title, description, sheet_name, fields, created_at, updated_at
		FROM forms WHERE id = ?`, id)
	form, err := scanForm(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.FormConfig{}, fmt.Errorf("form %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.FormConfig{}, fmt.Errorf("store: get form %s: %w", id, err)
	}
	return form, nil
}

// ListForms returns every form, most recently updated first.
func (s *FormStore) ListForms(ctx context.Context) ([]model.FormConfig, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, description, sheet_name, fields, created_at, updated_at
		FROM forms ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("store: list forms: %w", err)
	}
	defer rows.Close()

	var forms []model.FormConfig
	for rows.Next() {
		form, err := scanForm(rows)
		if err != nil {
			return nil, fmt.Errorf("store: list forms: %w", err)
		}
		forms = append(forms, form)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list forms: %w", err)
	}
	return forms, nil
}

// DeleteForm removes a form and, through the foreign key, its responses.
func (s *FormStore) DeleteForm(ctx context.Context, id string) error {
	var affected int64
	err := withBusyRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM forms WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("store: delete form %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("form %s: %w", id, ErrNotFound)
	}
	return nil
}

// SaveResponse stores an accepted submission for formID.
func (s *FormStore) SaveResponse(ctx context.Context, formID string, data map[string]any) (Response, error) {
	if data == nil {
		data = map[string]any{}
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return Response{}, fmt.Errorf("store: encode response: %w", err)
	}
	resp := Response{
		ID:        s.newID(),
		FormID:    formID,
		Data:      data,
		CreatedAt: s.now(),
	}

	err = withBusyRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if err := formExists(ctx, tx, formID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO responses (id, form_id, data, created_at) VALUES (?, ?, ?, ?)`,
			resp.ID, resp.FormID, string(encoded), resp.CreatedAt.Format(timeLayout)); err != nil {
			return err
		}
		return tx.Commit()
	})
	if errors.Is(err, ErrNotFound) {
		return Response{}, err
	}
	if err != nil {
		return Response{}, fmt.Errorf("store: save response: %w", err)
	}
	return resp, nil
}

// ListResponses returns the responses of formID, oldest first.
func (s *FormStore) ListResponses(ctx context.Context, formID string) ([]Response, error) {
	if err := formExists(ctx, s.db, formID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("store: list responses: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, form_id, data, created_at FROM responses
		WHERE form_id = ? ORDER BY created_at, id`, formID)
	if err != nil {
		return nil, fmt.Errorf("store: list responses: %w", err)
	}
	defer rows.Close()

	var out []Response
	for rows.Next() {
		var (
			resp    Response
			data    string
			created string
		)
		if err := rows.Scan(&resp.ID, &resp.FormID, &data, &created); err != nil {
			return nil, fmt.Errorf("store: scan response: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &resp.Data); err != nil {
			return nil, fmt.Errorf("store: decode response %s: %w", resp.ID, err)
		}
		if resp.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, fmt.Errorf("store: parse response %s: %w", resp.ID, err)
		}
		out = append(out, resp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list responses: %w", err)
	}
	return out, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func formExists(ctx context.Context, q queryer, id string) error {
	var one int
	err := q.QueryRowContext(ctx, `SELECT 1 FROM forms WHERE id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("form %s: %w", id, ErrNotFound)
	}
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanForm(row scanner) (model.FormConfig, error) {
	var (
		form             model.FormConfig
		fields           string
		created, updated string
	)
	if err := row.Scan(&form.ID, &form.Title, &form.Description, &form.SheetName, &fields, &created, &updated); err != nil {
		return model.FormConfig{}, err
	}
	if err := json.Unmarshal([]byte(fields), &form.Fields); err != nil {
		return model.FormConfig{}, fmt.Errorf("decode fields of %s: %w", form.ID, err)
	}
	var err error
	if form.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return model.FormConfig{}, fmt.Errorf("parse created_at of %s: %w", form.ID, err)
	}
	if form.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return model.FormConfig{}, fmt.Errorf("parse updated_at of %s: %w", form.ID, err)
	}
	return form, nil
}
