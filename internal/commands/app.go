package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-formdee/internal/config"
	"github.com/goliatone/go-formdee/pkg/editor"
	"github.com/goliatone/go-formdee/pkg/metrics"
	"github.com/goliatone/go-formdee/pkg/model"
	"github.com/goliatone/go-formdee/pkg/rules"
	"github.com/goliatone/go-formdee/pkg/store"
	"github.com/goliatone/go-formdee/pkg/submission"
)

// App holds the services shared by commands. The database is opened on first
// use so commands that only read form files never create one.
type App struct {
	Config    *config.Config
	Logger    zerolog.Logger
	Metrics   *metrics.Collectors
	Validator *rules.Validator

	mu    sync.Mutex
	db    *sql.DB
	forms *store.FormStore
}

// Init wires the app from a loaded config.
func (a *App) Init(cfg *config.Config, logger zerolog.Logger) error {
	collectors, err := metrics.New(nil)
	if err != nil {
		return err
	}
	a.Config = cfg
	a.Logger = logger
	a.Metrics = collectors
	a.Validator = rules.NewValidator(append(cfg.RuleOptions(), rules.WithObserver(collectors))...)
	return nil
}

// Checker returns a submission checker sharing the app validator.
func (a *App) Checker() *submission.Checker {
	return submission.NewChecker(
		submission.WithValidator(a.Validator),
		submission.WithLogger(a.Logger.With().Str("component", "submission").Logger()),
	)
}

// EditorOptions returns the options for field editors opened by commands.
func (a *App) EditorOptions() []editor.Option {
	return append(a.Config.EditorOptions(),
		editor.WithLogger(a.Logger),
		editor.WithEmitHook(a.Metrics.FieldEmitted),
	)
}

// Forms opens and migrates the configured database.
func (a *App) Forms(ctx context.Context) (*store.FormStore, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.forms != nil {
		return a.forms, nil
	}

	db, err := store.Open(a.Config.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := store.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	a.Logger.Debug().Str("dsn", a.Config.Database.DSN).Msg("database ready")
	a.db = db
	a.forms = store.NewFormStore(db)
	return a.forms, nil
}

// LoadForm reads ref as a form file when it exists on disk and otherwise
// looks it up in the store by id.
func (a *App) LoadForm(ctx context.Context, ref string) (model.FormConfig, error) {
	if ref == "" {
		return model.FormConfig{}, errors.New("a form file or id is required")
	}
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		form, err := model.LoadForm(ref)
		if err != nil {
			return model.FormConfig{}, err
		}
		return form.Derive(), nil
	}

	forms, err := a.Forms(ctx)
	if err != nil {
		return model.FormConfig{}, err
	}
	form, err := forms.GetForm(ctx, ref)
	if errors.Is(err, store.ErrNotFound) {
		return model.FormConfig{}, fmt.Errorf("form %q: no such file or stored form", ref)
	}
	return form, err
}

// Close releases the database.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	a.forms = nil
	return err
}
