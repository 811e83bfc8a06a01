package editor

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-formdee/pkg/model"
)

// FormSaveFunc persists a whole form.
type FormSaveFunc func(ctx context.Context, form model.FormConfig) error

// ErrAutosaverClosed is returned by Flush after Close.
var ErrAutosaverClosed = errors.New("editor: autosaver closed")

// FormAutosaver collects field emissions into a form and forwards the form to
// a save function once edits settle. Saves run in the background; failures are
// logged and the form is retried on the next change.
type FormAutosaver struct {
	ctx       context.Context
	save      FormSaveFunc
	logger    zerolog.Logger
	debouncer *Debouncer
	opts      []Option

	mu      sync.Mutex
	form    model.FormConfig
	dirty   bool
	closed  bool
	editors []*FieldEditor
	wg      sync.WaitGroup
}

// NewFormAutosaver starts tracking form. The options apply to the form-level
// debounce and to editors created through Editor.
func NewFormAutosaver(ctx context.Context, form model.FormConfig, save FormSaveFunc, options ...Option) *FormAutosaver {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := newConfig(options)
	return &FormAutosaver{
		ctx:       ctx,
		save:      save,
		logger:    cfg.logger.With().Str("component", "form_autosaver").Str("form", form.ID).Logger(),
		debouncer: NewDebouncer(cfg.delay, cfg.clock),
		opts:      options,
		form:      form.Clone(),
	}
}

// FieldSaver returns a SaveFunc that writes an emitted field into position
// index of the form. Emissions for indexes outside the form are dropped.
func (a *FormAutosaver) FieldSaver(index int) SaveFunc {
	return func(def model.FieldDefinition) {
		a.mu.Lock()
		if a.closed {
			a.mu.Unlock()
			return
		}
		if !a.form.ReplaceField(index, def) {
			a.mu.Unlock()
			a.logger.Warn().Int("index", index).Str("field", def.Key).Msg("emission for unknown field index dropped")
			return
		}
		a.dirty = true
		a.mu.Unlock()
		a.debouncer.Arm(a.persist)
	}
}

// Editor opens a FieldEditor on the field at index, wired to FieldSaver.
// Extra options are applied after the autosaver's own.
func (a *FormAutosaver) Editor(index int, options ...Option) (*FieldEditor, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed || index < 0 || index >= len(a.form.Fields) {
		return nil, false
	}
	opts := append(append([]Option(nil), a.opts...), options...)
	ed := NewFieldEditor(a.form.Fields[index], a.FieldSaver(index), opts...)
	a.editors = append(a.editors, ed)
	return ed, true
}

// Form returns a copy of the current form.
func (a *FormAutosaver) Form() model.FormConfig {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.form.Clone()
}

// Flush emits every open editor and saves the form synchronously when it has
// unsaved changes.
func (a *FormAutosaver) Flush() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrAutosaverClosed
	}
	editors := append([]*FieldEditor(nil), a.editors...)
	a.mu.Unlock()

	for _, ed := range editors {
		ed.Flush()
	}
	a.debouncer.Cancel()
	return a.saveNow()
}

// Close cancels pending work, closes the editors and waits for an in-flight
// save to return.
func (a *FormAutosaver) Close() {
	a.debouncer.Close()
	a.mu.Lock()
	a.closed = true
	editors := a.editors
	a.editors = nil
	a.mu.Unlock()

	for _, ed := range editors {
		ed.Close()
	}
	a.wg.Wait()
}

func (a *FormAutosaver) persist() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.wg.Add(1)
	a.mu.Unlock()

	go func() {
		defer a.wg.Done()
		if err := a.saveNow(); err != nil {
			a.logger.Error().Err(err).Msg("autosave failed")
		}
	}()
}

func (a *FormAutosaver) saveNow() error {
	a.mu.Lock()
	if !a.dirty || a.save == nil {
		a.mu.Unlock()
		return nil
	}
	form := a.form.Clone()
	a.dirty = false
	a.mu.Unlock()

	if err := a.save(a.ctx, form); err != nil {
		a.mu.Lock()
		a.dirty = true
		a.mu.Unlock()
		return err
	}
	a.logger.Debug().Int("fields", len(form.Fields)).Msg("form saved")
	return nil
}
