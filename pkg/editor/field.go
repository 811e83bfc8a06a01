package editor

import (
	"bytes"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-formdee/pkg/model"
	"github.com/goliatone/go-formdee/pkg/rules"
)

// State describes a FieldEditor draft.
type State int

const (
	// Pristine: no edits since the editor was created.
	Pristine State = iota
	// Editing: edited and valid, with nothing left to emit.
	Editing
	// ValidDirty: valid and different from the last emission; an emission
	// is scheduled.
	ValidDirty
	// InvalidDirty: the definition fails its structural check; emission is
	// withheld until it is fixed.
	InvalidDirty
)

func (s State) String() string {
	switch s {
	case Pristine:
		return "pristine"
	case Editing:
		return "editing"
	case ValidDirty:
		return "valid_dirty"
	case InvalidDirty:
		return "invalid_dirty"
	default:
		return "unknown"
	}
}

// SaveFunc receives derived field definitions.
type SaveFunc func(model.FieldDefinition)

// FieldEditor owns the draft of a single field being edited. Every edit
// re-checks the draft; valid drafts are emitted to the save callback once the
// debounce window passes without further edits. Emitting a derived value equal
// to the previous emission is skipped.
type FieldEditor struct {
	mu          sync.Mutex
	draft       model.FieldDefinition
	state       State
	issues      error
	warnings    []model.Warning
	lastEmitted []byte
	closed      bool

	save      SaveFunc
	debouncer *Debouncer
	logger    zerolog.Logger
	onEmit    func(model.FieldDefinition)
}

// NewFieldEditor starts editing initial. The initial derived value counts as
// already emitted.
func NewFieldEditor(initial model.FieldDefinition, save SaveFunc, options ...Option) *FieldEditor {
	cfg := newConfig(options)
	e := &FieldEditor{
		draft:     initial.Clone(),
		state:     Pristine,
		save:      save,
		debouncer: NewDebouncer(cfg.delay, cfg.clock),
		logger:    cfg.logger.With().Str("component", "field_editor").Logger(),
		onEmit:    cfg.onEmit,
	}
	if derived := initial.Derive(); derived.Check() == nil {
		e.lastEmitted = encodeField(derived)
	}
	return e
}

// Update applies fn to the draft. A type change clears attributes that do not
// apply to the new type before the draft is checked.
func (e *FieldEditor) Update(fn func(*model.FieldDefinition)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed || fn == nil {
		return
	}
	prevType := e.draft.Type
	fn(&e.draft)
	if e.draft.Type != prevType {
		e.draft = e.draft.WithType(e.draft.Type)
	}
	e.state = Editing
	e.evaluateLocked()
}

// SetKey updates the field key.
func (e *FieldEditor) SetKey(key string) {
	e.Update(func(f *model.FieldDefinition) { f.Key = key })
}

// SetLabel updates the label.
func (e *FieldEditor) SetLabel(label string) {
	e.Update(func(f *model.FieldDefinition) { f.Label = label })
}

// SetType switches the field type.
func (e *FieldEditor) SetType(t model.FieldType) {
	e.Update(func(f *model.FieldDefinition) { f.Type = t })
}

// SetRequired toggles the required flag.
func (e *FieldEditor) SetRequired(required bool) {
	e.Update(func(f *model.FieldDefinition) { f.Required = required })
}

// SetPlaceholder updates the placeholder.
func (e *FieldEditor) SetPlaceholder(placeholder string) {
	e.Update(func(f *model.FieldDefinition) { f.Placeholder = placeholder })
}

// SetDescription updates the help text.
func (e *FieldEditor) SetDescription(description string) {
	e.Update(func(f *model.FieldDefinition) { f.Description = description })
}

// SetRule selects a validation rule. A legacy raw pattern is dropped so the
// field validates through the catalog from now on.
func (e *FieldEditor) SetRule(rule rules.RuleID) {
	e.Update(func(f *model.FieldDefinition) {
		f.ValidationRule = rule
		f.Pattern = ""
	})
}

// SetCustomPattern updates the pattern used by rules.RuleCustomRegex.
func (e *FieldEditor) SetCustomPattern(pattern string) {
	e.Update(func(f *model.FieldDefinition) { f.CustomPattern = pattern })
}

// SetDomain updates the domain used by rules.RuleEmailDomain.
func (e *FieldEditor) SetDomain(domain string) {
	e.Update(func(f *model.FieldDefinition) { f.ValidationDomain = domain })
}

// SetOptions replaces the option list.
func (e *FieldEditor) SetOptions(options []string) {
	e.Update(func(f *model.FieldDefinition) {
		f.Options = append([]string(nil), options...)
	})
}

// SetBounds updates min and max; nil clears a bound.
func (e *FieldEditor) SetBounds(minValue, maxValue *float64) {
	e.Update(func(f *model.FieldDefinition) {
		f.Min = minValue
		f.Max = maxValue
	})
}

// SetFileLimits updates the file constraints.
func (e *FieldEditor) SetFileLimits(acceptedTypes []string, maxFileSize *int64, allowMultiple bool) {
	e.Update(func(f *model.FieldDefinition) {
		f.AcceptedTypes = append([]string(nil), acceptedTypes...)
		f.MaxFileSize = maxFileSize
		f.AllowMultiple = allowMultiple
	})
}

// State reports the current state.
func (e *FieldEditor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Draft returns a copy of the raw draft.
func (e *FieldEditor) Draft() model.FieldDefinition {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft.Clone()
}

// Issues returns the structural problems of the draft keyed by attribute.
func (e *FieldEditor) Issues() map[string][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return model.IssueMap(e.issues)
}

// Err returns the structural check error of the draft, if any.
func (e *FieldEditor) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.issues
}

// Warnings returns advisory warnings for the draft.
func (e *FieldEditor) Warnings() []model.Warning {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]model.Warning(nil), e.warnings...)
}

// Flush emits a pending change immediately. It reports whether the save
// callback ran.
func (e *FieldEditor) Flush() bool {
	e.debouncer.Cancel()
	return e.emit()
}

// Close cancels any pending emission. The editor ignores edits afterwards.
func (e *FieldEditor) Close() {
	e.debouncer.Close()
	e.mu.Lock()
	e.closed = true
	e.mu.Unlock()
}

func (e *FieldEditor) evaluateLocked() {
	derived := e.draft.Derive()
	warnings := derived.Warnings()
	if !sameWarnings(warnings, e.warnings) {
		for _, w := range warnings {
			e.logger.Warn().
				Str("field", e.draft.Key).
				Str("attribute", w.Field).
				Msg(w.Message)
		}
	}
	e.warnings = warnings

	if err := derived.Check(); err != nil {
		e.issues = err
		e.state = InvalidDirty
		e.debouncer.Cancel()
		return
	}
	e.issues = nil

	if bytes.Equal(encodeField(derived), e.lastEmitted) {
		e.state = Editing
		e.debouncer.Cancel()
		return
	}
	e.state = ValidDirty
	e.debouncer.Arm(func() { e.emit() })
}

func (e *FieldEditor) emit() bool {
	e.mu.Lock()
	derived := e.draft.Derive()
	if e.closed || derived.Check() != nil {
		e.mu.Unlock()
		return false
	}
	payload := encodeField(derived)
	if bytes.Equal(payload, e.lastEmitted) {
		if e.state != Pristine {
			e.state = Editing
		}
		e.mu.Unlock()
		return false
	}
	e.lastEmitted = payload
	e.state = Editing
	save, onEmit := e.save, e.onEmit
	e.mu.Unlock()

	e.logger.Debug().Str("field", derived.Key).Msg("field emitted")
	if save != nil {
		save(derived)
	}
	if onEmit != nil {
		onEmit(derived)
	}
	return true
}

func encodeField(f model.FieldDefinition) []byte {
	payload, err := json.Marshal(f)
	if err != nil {
		return nil
	}
	return payload
}

func sameWarnings(a, b []model.Warning) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
