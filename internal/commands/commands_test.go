package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v3"

	"github.com/goliatone/go-formdee/internal/config"
	"github.com/goliatone/go-formdee/pkg/model"
	"github.com/goliatone/go-formdee/pkg/renderers/tui"
	"github.com/goliatone/go-formdee/pkg/rules"
)

const signupJSON = `{
  "id": "signup",
  "title": "Signup",
  "fields": [
    {"key": "name", "label": "Name", "type": "text", "required": true, "validationRule": "letters_only"},
    {"key": "plan", "label": "Plan", "type": "select", "options": ["free", "pro"]}
  ]
}`

type harness struct {
	app    *App
	driver tui.PromptDriver
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Database.DSN = filepath.Join(t.TempDir(), "forms.db")

	app := &App{}
	require.NoError(t, app.Init(&cfg, zerolog.Nop()))
	t.Cleanup(func() { _ = app.Close() })
	return &harness{app: app}
}

func (h *harness) run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	flags := &Flags{Config: h.app.Config}

	root := &cli.Command{
		Name:      "formdee",
		Writer:    &out,
		ErrWriter: &errOut,
		Reader:    strings.NewReader(stdin),
	}
	respond := NewRespondCmd(flags, h.app)
	respond.driver = h.driver
	build := NewBuildCmd(flags, h.app)
	build.driver = h.driver

	root = NewRulesCmd(flags, h.app).Register(root)
	root = NewPatternCmd(flags, h.app).Register(root)
	root = NewCheckCmd(flags, h.app).Register(root)
	root = NewSubmitCmd(flags, h.app).Register(root)
	root = NewSchemaCmd(flags, h.app).Register(root)
	root = NewRenderCmd(flags, h.app).Register(root)
	root = NewFormsCmd(flags, h.app).Register(root)
	root = respond.Register(root)
	root = build.Register(root)

	err := root.Run(context.Background(), append([]string{"formdee"}, args...))
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRules(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run(t, "", "rules")
	require.NoError(t, err)
	assert.Contains(t, out, "CATEGORY")
	assert.Contains(t, out, "letters_only")

	out, _, err = h.run(t, "", "rules", "--json")
	require.NoError(t, err)
	var groups []rules.RuleGroup
	require.NoError(t, json.Unmarshal([]byte(out), &groups))
	assert.Len(t, groups, len(rules.Categories()))
}

func TestResolve(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run(t, "", "resolve", "--rule", "email_domain", "--domain", "acme.com")
	require.NoError(t, err)
	assert.Equal(t, `^[\w\.-]+@acme\.com$`+"\n", out)

	out, errOut, err := h.run(t, "", "resolve", "--rule", "none")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "no pattern applies")

	_, errOut, err = h.run(t, "", "resolve", "--rule", "custom_regex", "--pattern", "[unclosed")
	require.NoError(t, err)
	assert.Contains(t, errOut, "warning:")

	_, _, err = h.run(t, "", "resolve", "--rule", "zip")
	require.ErrorIs(t, err, rules.ErrUnknownRule)
}

func TestValidate(t *testing.T) {
	h := newHarness(t)

	out, _, err := h.run(t, "", "validate", "--rule", "letters_only", "Jane")
	require.NoError(t, err)
	assert.Equal(t, "ok\n", out)

	out, _, err = h.run(t, "", "validate", "--rule", "letters_only", "J4ne")
	require.ErrorIs(t, err, ErrValueRejected)
	assert.Equal(t, "Please use letters only (A-Z).\n", out)

	out, _, err = h.run(t, "", "validate", "--raw", "^[0-9]{5}$", "1234")
	require.ErrorIs(t, err, ErrValueRejected)
	assert.Equal(t, "Please match the required format.\n", out)
}

func TestCheck(t *testing.T) {
	h := newHarness(t)
	good := writeFile(t, "signup.json", signupJSON)
	bad := writeFile(t, "bad.yaml", `
title: Broken
fields:
  - key: 1st
    label: First
    type: text
  - key: code
    label: Code
    type: text
    validationRule: custom_regex
    customPattern: "[unclosed"
`)

	out, _, err := h.run(t, "", "check", good)
	require.NoError(t, err)
	assert.Contains(t, out, good+": ok")

	out, _, err = h.run(t, "", "check", good, bad)
	require.ErrorIs(t, err, ErrInvalidForm)
	assert.Contains(t, out, bad+": error: fields[0].key:")
	assert.Contains(t, out, bad+": warning: fields[1].customPattern:")
}

func TestSubmit(t *testing.T) {
	h := newHarness(t)
	form := writeFile(t, "signup.json", signupJSON)

	out, _, err := h.run(t, "", "submit", form, "--set", "name=J4ne", "--set", "plan=gold")
	require.ErrorIs(t, err, ErrSubmissionRejected)
	assert.Contains(t, out, "Please use letters only (A-Z).")
	assert.Contains(t, out, `\"gold\" is not one of the available options.`)

	out, _, err = h.run(t, `{"name": "Jane", "plan": "pro"}`, "submit", form, "--data", "-")
	require.NoError(t, err)
	assert.Contains(t, out, `"valid": true`)
}

func TestFormsLifecycle(t *testing.T) {
	h := newHarness(t)
	form := writeFile(t, "signup.json", signupJSON)

	out, _, err := h.run(t, "", "forms", "import", form)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "signup\t"))

	out, _, err = h.run(t, "", "forms", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "signup")
	assert.Contains(t, out, "Signup")

	out, _, err = h.run(t, "", "forms", "show", "--format", "yaml", "signup")
	require.NoError(t, err)
	assert.Contains(t, out, "validationRule: letters_only")

	out, _, err = h.run(t, "", "submit", "signup", "--set", "name=Jane", "--save")
	require.NoError(t, err)
	assert.Contains(t, out, `"id":`)

	out, _, err = h.run(t, "", "forms", "responses", "signup")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Contains(t, out, `"name":"Jane"`)

	_, _, err = h.run(t, "", "forms", "delete", "signup")
	require.NoError(t, err)

	_, _, err = h.run(t, "", "forms", "show", "signup")
	require.Error(t, err)
}

func TestFormsImportRejectsInvalid(t *testing.T) {
	h := newHarness(t)
	bad := writeFile(t, "bad.json", `{"title": "", "fields": []}`)

	_, errOut, err := h.run(t, "", "forms", "import", bad)
	require.ErrorIs(t, err, ErrInvalidForm)
	assert.Contains(t, errOut, "title")
}

func TestSchemaAndRender(t *testing.T) {
	h := newHarness(t)
	form := writeFile(t, "signup.json", signupJSON)

	out, _, err := h.run(t, "", "schema", "--format", "yaml", "--title", "Signups", form)
	require.NoError(t, err)
	assert.Contains(t, out, "openapi: 3.0.3")
	assert.Contains(t, out, "/api/forms/signup/responses")

	_, _, err = h.run(t, "", "schema")
	require.Error(t, err)

	out, _, err = h.run(t, "", "render", form)
	require.NoError(t, err)
	assert.Contains(t, out, `action="/api/forms/signup/responses"`)
	assert.Contains(t, out, `pattern="^[A-Za-z]+$"`)
}

type scriptedDriver struct {
	inputs  []string
	selects []int
	confirm []bool
	infos   []string
}

func (d *scriptedDriver) Input(context.Context, tui.InputConfig) (string, error) {
	if len(d.inputs) == 0 {
		return "", errors.New("no input scripted")
	}
	v := d.inputs[0]
	d.inputs = d.inputs[1:]
	return v, nil
}

func (d *scriptedDriver) Confirm(context.Context, tui.ConfirmConfig) (bool, error) {
	if len(d.confirm) == 0 {
		return false, errors.New("no confirm scripted")
	}
	v := d.confirm[0]
	d.confirm = d.confirm[1:]
	return v, nil
}

func (d *scriptedDriver) Select(context.Context, tui.SelectConfig) (int, error) {
	if len(d.selects) == 0 {
		return -1, errors.New("no select scripted")
	}
	v := d.selects[0]
	d.selects = d.selects[1:]
	return v, nil
}

func (d *scriptedDriver) MultiSelect(context.Context, tui.SelectConfig) ([]int, error) {
	return nil, errors.New("no multiselect scripted")
}

func (d *scriptedDriver) TextArea(context.Context, tui.TextAreaConfig) (string, error) {
	return "", errors.New("no textarea scripted")
}

func (d *scriptedDriver) Info(_ context.Context, msg string) error {
	d.infos = append(d.infos, msg)
	return nil
}

func TestRespond(t *testing.T) {
	h := newHarness(t)
	// plan is optional, so index 0 is the skip entry and 2 is "pro"
	driver := &scriptedDriver{inputs: []string{"J4ne", "Jane"}, selects: []int{2}}
	h.driver = driver
	form := writeFile(t, "signup.json", signupJSON)

	out, _, err := h.run(t, "", "respond", "--format", "pretty", form)
	require.NoError(t, err)
	assert.Equal(t, "name=Jane\nplan=pro\n", out)
	assert.Equal(t, []string{"! Please use letters only (A-Z)."}, driver.infos)

	_, _, err = h.run(t, "", "respond", "--format", "xml", form)
	require.Error(t, err)
}

func TestBuildCreatesFormFile(t *testing.T) {
	h := newHarness(t)
	h.driver = &scriptedDriver{
		// key, label, help text, placeholder
		inputs: []string{"nickname", "Nickname", "", ""},
		// field type text, rule none
		selects: []int{0, 0},
		confirm: []bool{false},
	}
	path := filepath.Join(t.TempDir(), "profile.yaml")

	_, _, err := h.run(t, "", "build", path)
	require.Error(t, err, "a new form file needs a title")

	out, _, err := h.run(t, "", "build", "--title", "Profile", path)
	require.NoError(t, err)
	assert.Equal(t, "saved field nickname (text) to "+path+"\n", out)

	form, err := model.LoadForm(path)
	require.NoError(t, err)
	assert.Equal(t, "Profile", form.Title)
	require.Len(t, form.Fields, 1)
	assert.Equal(t, "nickname", form.Fields[0].Key)
	assert.Equal(t, rules.RuleNone, form.Fields[0].ValidationRule)
}
