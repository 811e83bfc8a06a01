package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goliatone/go-formdee/pkg/editor"
	"github.com/goliatone/go-formdee/pkg/model"
	"github.com/goliatone/go-formdee/pkg/rules"
)

// BuildField prompts for a new text field and lets the user reshape it. See
// EditField.
func (r *Renderer) BuildField(ctx context.Context, save editor.SaveFunc) (model.FieldDefinition, error) {
	return r.EditField(ctx, model.FieldDefinition{Type: model.FieldTypeText}, save)
}

// EditField walks initial through an editor.FieldEditor one attribute at a
// time. Answers the editor rejects are reported and asked again. Valid drafts
// reach save through the editor's debounce, and the final draft is flushed
// before EditField returns it.
func (r *Renderer) EditField(ctx context.Context, initial model.FieldDefinition, save editor.SaveFunc) (model.FieldDefinition, error) {
	if ctx == nil {
		return model.FieldDefinition{}, errors.New("tui: context is required")
	}
	ed := editor.NewFieldEditor(initial, save, append([]editor.Option{editor.WithLogger(r.logger)}, r.editorOptions...)...)
	defer ed.Close()

	s := &fieldSession{r: r, ed: ed}
	steps := []func(context.Context) error{
		s.key,
		s.label,
		s.fieldType,
		s.required,
		s.texts,
		s.typeAttributes,
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return model.FieldDefinition{}, err
		}
		if err := step(ctx); err != nil {
			return model.FieldDefinition{}, err
		}
	}

	if err := ed.Err(); err != nil {
		return model.FieldDefinition{}, fmt.Errorf("tui: field incomplete: %w", err)
	}
	ed.Flush()
	return ed.Draft().Derive(), nil
}

type fieldSession struct {
	r  *Renderer
	ed *editor.FieldEditor
}

// ask prompts until the editor reports no issue for attr.
func (s *fieldSession) ask(ctx context.Context, cfg InputConfig, attr string, apply func(string) error) error {
	for {
		answer, err := s.r.driver.Input(ctx, cfg)
		if err != nil {
			return err
		}
		cfg.Default = answer
		if err := apply(answer); err != nil {
			s.r.warn(ctx, err.Error())
			continue
		}
		issues := s.ed.Issues()[attr]
		if len(issues) == 0 {
			return nil
		}
		for _, msg := range issues {
			s.r.warn(ctx, msg)
		}
	}
}

func (s *fieldSession) key(ctx context.Context) error {
	return s.ask(ctx, InputConfig{
		Message: "Field key",
		Default: s.ed.Draft().Key,
		Help:    "Starts with a letter; letters, numbers and underscores only",
	}, "key", func(answer string) error {
		s.ed.SetKey(strings.TrimSpace(answer))
		return nil
	})
}

func (s *fieldSession) label(ctx context.Context) error {
	return s.ask(ctx, InputConfig{Message: "Label", Default: s.ed.Draft().Label}, "label", func(answer string) error {
		s.ed.SetLabel(answer)
		return nil
	})
}

func (s *fieldSession) fieldType(ctx context.Context) error {
	types := model.FieldTypes()
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	for {
		idx, err := s.r.driver.Select(ctx, SelectConfig{
			Message:      "Field type",
			Options:      names,
			DefaultIndex: indexOf(names, string(s.ed.Draft().Type)),
			PageSize:     len(names),
		})
		if err != nil {
			return err
		}
		if idx >= 0 && idx < len(types) {
			s.ed.SetType(types[idx])
			return nil
		}
		s.r.warn(ctx, "Pick one of the listed types.")
	}
}

func (s *fieldSession) required(ctx context.Context) error {
	required, err := s.r.driver.Confirm(ctx, ConfirmConfig{Message: "Required?", Default: s.ed.Draft().Required})
	if err != nil {
		return err
	}
	s.ed.SetRequired(required)
	return nil
}

func (s *fieldSession) texts(ctx context.Context) error {
	draft := s.ed.Draft()
	err := s.ask(ctx, InputConfig{Message: "Help text", Default: draft.Description}, "description", func(answer string) error {
		s.ed.SetDescription(answer)
		return nil
	})
	if err != nil {
		return err
	}
	switch draft.Type {
	case model.FieldTypeText, model.FieldTypeTextarea, model.FieldTypeEmail, model.FieldTypeNumber:
		return s.ask(ctx, InputConfig{Message: "Placeholder", Default: draft.Placeholder}, "placeholder", func(answer string) error {
			s.ed.SetPlaceholder(answer)
			return nil
		})
	}
	return nil
}

func (s *fieldSession) typeAttributes(ctx context.Context) error {
	t := s.ed.Draft().Type
	switch {
	case t.SupportsRule():
		return s.rule(ctx)
	case t.HasOptions():
		return s.options(ctx)
	case t == model.FieldTypeNumber:
		return s.bounds(ctx)
	case t.IsFile():
		return s.fileLimits(ctx)
	}
	return nil
}

func (s *fieldSession) rule(ctx context.Context) error {
	var (
		ids    []rules.RuleID
		labels []string
	)
	for _, group := range rules.Groups() {
		for _, rule := range group.Rules {
			ids = append(ids, rule.ID)
			labels = append(labels, fmt.Sprintf("%s / %s", group.Category, rule.Label))
		}
	}
	current := s.ed.Draft().Rule()

	var picked rules.RuleID
	for {
		idx, err := s.r.driver.Select(ctx, SelectConfig{
			Message:      "Validation rule",
			Options:      labels,
			DefaultIndex: indexOfRule(ids, current),
			PageSize:     len(labels),
		})
		if err != nil {
			return err
		}
		if idx >= 0 && idx < len(ids) {
			picked = ids[idx]
			break
		}
		s.r.warn(ctx, "Pick one of the listed rules.")
	}
	s.ed.SetRule(picked)

	draft := s.ed.Draft()
	switch picked {
	case rules.RuleCustomRegex:
		err := s.ask(ctx, InputConfig{
			Message: "Pattern",
			Default: draft.CustomPattern,
			Help:    "JavaScript style regular expression",
		}, "customPattern", func(answer string) error {
			s.ed.SetCustomPattern(strings.TrimSpace(answer))
			return nil
		})
		if err != nil {
			return err
		}
		for _, w := range s.ed.Warnings() {
			s.r.info(ctx, "Pattern will not be enforced: "+w.Message)
		}
	case rules.RuleEmailDomain:
		return s.ask(ctx, InputConfig{
			Message: "Email domain",
			Default: draft.ValidationDomain,
			Help:    "For example company.com",
		}, "validationDomain", func(answer string) error {
			s.ed.SetDomain(strings.TrimSpace(answer))
			return nil
		})
	}
	return nil
}

func (s *fieldSession) options(ctx context.Context) error {
	return s.ask(ctx, InputConfig{
		Message: "Options",
		Default: strings.Join(s.ed.Draft().Options, ", "),
		Help:    "Comma separated",
	}, "options", func(answer string) error {
		s.ed.SetOptions(splitList(answer))
		return nil
	})
}

func (s *fieldSession) bounds(ctx context.Context) error {
	for {
		draft := s.ed.Draft()
		minValue, err := s.askFloat(ctx, "Minimum", draft.Min)
		if err != nil {
			return err
		}
		maxValue, err := s.askFloat(ctx, "Maximum", draft.Max)
		if err != nil {
			return err
		}
		s.ed.SetBounds(minValue, maxValue)
		issues := s.ed.Issues()["min"]
		if len(issues) == 0 {
			return nil
		}
		for _, msg := range issues {
			s.r.warn(ctx, msg)
		}
	}
}

func (s *fieldSession) askFloat(ctx context.Context, message string, current *float64) (*float64, error) {
	cfg := InputConfig{Message: message, Help: "Leave empty for no limit"}
	if current != nil {
		cfg.Default = strconv.FormatFloat(*current, 'f', -1, 64)
	}
	for {
		answer, err := s.r.driver.Input(ctx, cfg)
		if err != nil {
			return nil, err
		}
		answer = strings.TrimSpace(answer)
		if answer == "" {
			return nil, nil
		}
		v, err := strconv.ParseFloat(answer, 64)
		if err == nil {
			return &v, nil
		}
		s.r.warn(ctx, "Please enter a number.")
	}
}

func (s *fieldSession) fileLimits(ctx context.Context) error {
	draft := s.ed.Draft()
	accepted := draft.AcceptedTypes
	size := draft.MaxFileSize

	err := s.ask(ctx, InputConfig{
		Message: "Accepted types",
		Default: strings.Join(accepted, ", "),
		Help:    "Comma separated extensions or MIME families, e.g. .pdf, image/*",
	}, "acceptedTypes", func(answer string) error {
		accepted = splitList(answer)
		s.ed.SetFileLimits(accepted, size, draft.AllowMultiple)
		return nil
	})
	if err != nil {
		return err
	}

	sizeCfg := InputConfig{
		Message: "Max file size (MB)",
		Help:    fmt.Sprintf("Between %d and %d, empty for no limit", model.MinFileSizeLimit>>20, model.MaxFileSizeLimit>>20),
	}
	if size != nil {
		sizeCfg.Default = strconv.FormatInt(*size>>20, 10)
	}
	err = s.ask(ctx, sizeCfg, "maxFileSize", func(answer string) error {
		answer = strings.TrimSpace(answer)
		size = nil
		if answer != "" {
			mb, err := strconv.ParseInt(answer, 10, 64)
			if err != nil {
				return errors.New("please enter a whole number of megabytes")
			}
			bytes := mb << 20
			size = &bytes
		}
		s.ed.SetFileLimits(accepted, size, draft.AllowMultiple)
		return nil
	})
	if err != nil {
		return err
	}

	multiple, err := s.r.driver.Confirm(ctx, ConfirmConfig{Message: "Allow multiple files?", Default: draft.AllowMultiple})
	if err != nil {
		return err
	}
	s.ed.SetFileLimits(accepted, size, multiple)
	return nil
}

func indexOfRule(ids []rules.RuleID, id rules.RuleID) int {
	for i, candidate := range ids {
		if candidate == id {
			return i
		}
	}
	return -1
}
