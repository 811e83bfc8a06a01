package submission_test

import (
	"encoding/json"
	"net/url"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/goliatone/go-formdee/pkg/model"
	"github.com/goliatone/go-formdee/pkg/rules"
	"github.com/goliatone/go-formdee/pkg/submission"
	"github.com/goliatone/go-formdee/pkg/testsupport"
)

func ptr[T any](v T) *T { return &v }

func signupForm() model.FormConfig {
	return model.FormConfig{
		ID:    "signup",
		Title: "Signup",
		Fields: []model.FieldDefinition{
			{Key: "name", Label: "Name", Type: model.FieldTypeText, Required: true, ValidationRule: rules.RuleLettersNumbersSpaces},
			{Key: "email", Label: "Email", Type: model.FieldTypeEmail, Required: true},
			{Key: "age", Label: "Age", Type: model.FieldTypeNumber, Min: ptr(18.0), Max: ptr(120.0)},
			{Key: "born", Label: "Born", Type: model.FieldTypeDate},
			{Key: "plan", Label: "Plan", Type: model.FieldTypeSelect, Options: []string{"free", "pro"}},
			{Key: "topics", Label: "Topics", Type: model.FieldTypeCheckbox, Options: []string{"go", "sql", "web"}},
			{Key: "avatar", Label: "Avatar", Type: model.FieldTypeFile, AcceptedTypes: []string{"image/*", ".pdf"}},
			{Key: "bio", Label: "Bio", Type: model.FieldTypeTextarea},
		},
	}
}

func TestValidate_Accepts(t *testing.T) {
	values := map[string]any{
		"name":   "John Doe 3",
		"email":  "john@example.com",
		"age":    float64(42),
		"born":   "1990-05-17",
		"plan":   "pro",
		"topics": []any{"go", "web"},
		"avatar": "me.PNG",
		"bio":    "anything <at> all",
	}

	result := submission.Validate(signupForm(), values)
	if !result.Valid() {
		t.Fatalf("expected valid result, got %+v", result)
	}
}

func TestValidate_Rejects(t *testing.T) {
	values := map[string]any{
		"name":   "John_Doe!",
		"email":  "john@",
		"age":    "12",
		"born":   "17/05/1990",
		"plan":   "enterprise",
		"topics": []string{"go", "rust"},
		"avatar": "notes.txt",
		"extra":  "x",
	}

	result := submission.Validate(signupForm(), values)

	wantFields := map[string][]string{
		"name":   {rules.ErrorMessage(rules.RuleLettersNumbersSpaces)},
		"email":  {"Please enter a valid email address."},
		"age":    {"Value must be at least 18."},
		"born":   {"Please enter a date as YYYY-MM-DD."},
		"plan":   {`"enterprise" is not one of the available options.`},
		"topics": {`"rust" is not one of the available options.`},
		"avatar": {`File type of "notes.txt" is not accepted.`},
	}
	if diff := cmp.Diff(wantFields, result.Fields); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{`Unknown field "extra".`}, result.Form); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_Required(t *testing.T) {
	result := submission.Validate(signupForm(), map[string]any{
		"name":  "   ",
		"email": nil,
	})

	wantFields := map[string][]string{
		"name":  {"Name is required."},
		"email": {"Email is required."},
	}
	if diff := cmp.Diff(wantFields, result.Fields); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_SingleValueFields(t *testing.T) {
	result := submission.Validate(signupForm(), map[string]any{
		"name":  "John",
		"email": "john@example.com",
		"plan":  []any{"free", "pro"},
	})
	if diff := cmp.Diff([]string{"Plan accepts a single value."}, result.FieldErrors("plan")); diff != "" {
		t.Fatalf("plan errors mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_UnsupportedValue(t *testing.T) {
	result := submission.Validate(signupForm(), map[string]any{
		"name":  map[string]any{"first": "John"},
		"email": "john@example.com",
	})
	if diff := cmp.Diff([]string{"Name has an unsupported value."}, result.FieldErrors("name")); diff != "" {
		t.Fatalf("name errors mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_LegacyPattern(t *testing.T) {
	form := model.FormConfig{
		Title:  "Legacy",
		Fields: []model.FieldDefinition{{Key: "zip", Label: "Zip", Type: model.FieldTypeText, Pattern: "^[0-9]{5}$"}},
	}

	if result := submission.Validate(form, map[string]any{"zip": "12345"}); !result.Valid() {
		t.Fatalf("expected 12345 to pass, got %+v", result)
	}
	result := submission.Validate(form, map[string]any{"zip": "1234"})
	if diff := cmp.Diff([]string{"Please match the required format."}, result.FieldErrors("zip")); diff != "" {
		t.Fatalf("zip errors mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_CustomPatternFailsOpen(t *testing.T) {
	form := model.FormConfig{
		Title: "Custom",
		Fields: []model.FieldDefinition{{
			Key: "code", Label: "Code", Type: model.FieldTypeText,
			ValidationRule: rules.RuleCustomRegex, CustomPattern: "[unclosed",
		}},
	}
	if result := submission.Validate(form, map[string]any{"code": "anything"}); !result.Valid() {
		t.Fatalf("broken pattern must not block submission, got %+v", result)
	}
}

func TestValidate_EmailDomainRule(t *testing.T) {
	form := model.FormConfig{
		Title: "Work",
		Fields: []model.FieldDefinition{{
			Key: "work", Label: "Work email", Type: model.FieldTypeText,
			ValidationRule: rules.RuleEmailDomain, ValidationDomain: "acme.com",
		}},
	}
	checker := submission.NewChecker(submission.WithValidator(rules.NewValidator()))

	if result := checker.Validate(form, map[string]any{"work": "jane@acme.com"}); !result.Valid() {
		t.Fatalf("expected acme address to pass, got %+v", result)
	}
	result := checker.Validate(form, map[string]any{"work": "jane@acmexcom"})
	if diff := cmp.Diff([]string{rules.ErrorMessage(rules.RuleEmailDomain)}, result.FieldErrors("work")); diff != "" {
		t.Fatalf("work errors mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_MultipleFiles(t *testing.T) {
	form := model.FormConfig{
		Title: "Upload",
		Fields: []model.FieldDefinition{
			{Key: "single", Label: "Single", Type: model.FieldTypeFile},
			{Key: "many", Label: "Many", Type: model.FieldTypeFile, AllowMultiple: true, AcceptedTypes: []string{".pdf"}},
		},
	}
	result := submission.Validate(form, map[string]any{
		"single": []string{"a.pdf", "b.pdf"},
		"many":   []string{"a.pdf", "b.doc"},
	})
	want := map[string][]string{
		"single": {"Single accepts a single value."},
		"many":   {`File type of "b.doc" is not accepted.`},
	}
	if diff := cmp.Diff(want, result.Fields); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}
}

func TestFromURLValues(t *testing.T) {
	posted := url.Values{
		"name":   {"John"},
		"topics": {"go", "sql"},
		"plan":   {"free", "pro"},
	}
	got := submission.FromURLValues(signupForm(), posted)
	want := map[string]any{
		"name":   "John",
		"topics": []string{"go", "sql"},
		"plan":   "free",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}

func TestMapErrorPayload(t *testing.T) {
	payload := map[string][]string{
		"/body/name":        {"Name is taken"},
		"$.data.topics[0]":  {"Topic retired"},
		"fields.email":      {" Email bounced ", "Email bounced"},
		"non_field_errors":  {"Form closed"},
		"request/unknown/x": {"Should fall back to form errors"},
		"":                  {"Unscoped form error"},
	}

	mapped := submission.MapErrorPayload(signupForm(), payload)

	wantFields := map[string][]string{
		"name":   {"Name is taken"},
		"topics": {"Topic retired"},
		"email":  {"Email bounced"},
	}
	if diff := cmp.Diff(wantFields, mapped.Fields); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}
	wantForm := []string{"Form closed", "Should fall back to form errors", "Unscoped form error"}
	if diff := cmp.Diff(wantForm, mapped.Form, cmpopts.SortSlices(func(a, b string) bool { return a < b })); diff != "" {
		t.Fatalf("form errors mismatch (-want +got):\n%s", diff)
	}
}

func TestMergeFormErrors(t *testing.T) {
	merged := submission.MergeFormErrors([]string{" First ", "Second"}, "Second", "third", "  ")
	want := []string{"First", "Second", "third"}

	if diff := cmp.Diff(want, merged); diff != "" {
		t.Fatalf("merged form errors mismatch (-want +got):\n%s", diff)
	}
}

func TestResultMerge(t *testing.T) {
	var result submission.Result
	result.AddField("name", "Too short")
	result.Merge(submission.Result{
		Fields: map[string][]string{"name": {"Too short", "Taken"}},
		Form:   []string{"Closed"},
	})

	want := submission.Result{
		Fields: map[string][]string{"name": {"Too short", "Taken"}},
		Form:   []string{"Closed"},
	}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Fatalf("merged result mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate_Fixtures(t *testing.T) {
	form := testsupport.MustLoadForm(t, filepath.Join("testdata", "feedback.yaml"))

	for _, name := range []string{"accepted", "rejected"} {
		t.Run(name, func(t *testing.T) {
			values := testsupport.MustLoadValues(t, filepath.Join("testdata", "feedback_"+name+".json"))
			result := submission.Validate(form, values)

			golden := filepath.Join("testdata", "feedback_"+name+".golden.json")
			payload, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				t.Fatalf("marshal result: %v", err)
			}
			if testsupport.WriteMaybeGolden(t, golden, append(payload, '\n')) {
				return
			}

			var want submission.Result
			if err := json.Unmarshal(testsupport.MustReadGolden(t, golden), &want); err != nil {
				t.Fatalf("unmarshal golden: %v", err)
			}
			if diff := testsupport.CompareGolden(want, result); diff != "" {
				t.Fatalf("result mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidate_MatchesUntrimmedValue(t *testing.T) {
	form := model.FormConfig{
		Title: "Account",
		Fields: []model.FieldDefinition{
			{Key: "username", Label: "Username", Type: model.FieldTypeText, ValidationRule: rules.RuleUsername},
			{Key: "nickname", Label: "Nickname", Type: model.FieldTypeText, Required: true},
		},
	}
	values := map[string]any{"username": "  jane  ", "nickname": "   "}

	result := submission.Validate(form, values)
	if rules.ValidateValue("  jane  ", rules.RuleUsername, "", "") {
		t.Fatalf("username rule should reject surrounding spaces")
	}
	want := map[string][]string{
		"username": {rules.ErrorMessage(rules.RuleUsername)},
		"nickname": {"Nickname is required."},
	}
	if diff := cmp.Diff(want, result.Fields); diff != "" {
		t.Fatalf("field errors mismatch (-want +got):\n%s", diff)
	}

	if result := submission.Validate(form, map[string]any{"username": "jane", "nickname": "J"}); !result.Valid() {
		t.Fatalf("expected exact value to pass, got %+v", result)
	}
}

type countingObserver struct {
	validations map[rules.RuleID]int
}

func (o *countingObserver) OnValidate(rule rules.RuleID, _ bool) {
	o.validations[rule]++
}

func (o *countingObserver) OnFailOpen(rules.RuleID, error) {}

func TestValidate_EmailFieldIsNotARuleValidation(t *testing.T) {
	observer := &countingObserver{validations: map[rules.RuleID]int{}}
	checker := submission.NewChecker(submission.WithValidator(rules.NewValidator(rules.WithObserver(observer))))
	form := model.FormConfig{
		Title:  "Contact",
		Fields: []model.FieldDefinition{{Key: "email", Label: "Email", Type: model.FieldTypeEmail}},
	}

	if result := checker.Validate(form, map[string]any{"email": "jane@example.com"}); !result.Valid() {
		t.Fatalf("expected valid email, got %+v", result)
	}
	result := checker.Validate(form, map[string]any{"email": "jane@"})
	if diff := cmp.Diff([]string{"Please enter a valid email address."}, result.FieldErrors("email")); diff != "" {
		t.Fatalf("email errors mismatch (-want +got):\n%s", diff)
	}
	if len(observer.validations) != 0 {
		t.Fatalf("email shape reported as rule validations: %v", observer.validations)
	}
}
