package rules_test

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formdee/pkg/rules"
)

func TestCatalogTemplates(t *testing.T) {
	want := map[rules.RuleID]string{
		rules.RuleNone:                 "",
		rules.RuleLettersOnly:          `^[A-Za-z]+$`,
		rules.RuleLettersNumbers:       `^[A-Za-z0-9]+$`,
		rules.RuleLettersNumbersSpaces: `^[A-Za-z0-9\s]+$`,
		rules.RulePhoneNumber:          `^[\+]?[0-9\s\-\(\)]{7,15}$`,
		rules.RulePostalCode:           `^[A-Za-z0-9\s\-]{3,10}$`,
		rules.RuleNumbersOnly:          `^[0-9]+$`,
		rules.RuleURL:                  `^https?://[\w\-]+(\.[\w\-]+)+[/#?]?.*$`,
		rules.RuleEmailDomain:          `^[\w\.-]+@DOMAIN$`,
		rules.RuleNoSpecialChars:       `^[A-Za-z0-9\s\-_]+$`,
		rules.RuleUsername:             `^[A-Za-z0-9_-]{3,20}$`,
		rules.RuleCustomRegex:          "",
	}

	got := make(map[rules.RuleID]string)
	for _, rule := range rules.All() {
		got[rule.ID] = rule.PatternTemplate
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("catalog templates mismatch (-want +got):\n%s", diff)
	}
}

func TestLookup_UnknownRule(t *testing.T) {
	_, err := rules.Lookup("shoe_size")
	if !errors.Is(err, rules.ErrUnknownRule) {
		t.Fatalf("expected ErrUnknownRule, got %v", err)
	}
}

func TestMustLookup_PanicsOnUnknownRule(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for unknown rule")
		}
	}()
	rules.MustLookup("shoe_size")
}

func TestParseRuleID(t *testing.T) {
	cases := []struct {
		raw     string
		want    rules.RuleID
		wantErr bool
	}{
		{raw: "", want: rules.RuleNone},
		{raw: "  ", want: rules.RuleNone},
		{raw: "username", want: rules.RuleUsername},
		{raw: " email_domain ", want: rules.RuleEmailDomain},
		{raw: "Username", wantErr: true},
		{raw: "zip", wantErr: true},
	}

	for _, tc := range cases {
		got, err := rules.ParseRuleID(tc.raw)
		if tc.wantErr {
			if !errors.Is(err, rules.ErrUnknownRule) {
				t.Fatalf("ParseRuleID(%q): expected ErrUnknownRule, got %v", tc.raw, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseRuleID(%q): %v", tc.raw, err)
		}
		if got != tc.want {
			t.Fatalf("ParseRuleID(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}

func TestListByCategory_PreservesDeclarationOrder(t *testing.T) {
	grouped := rules.ListByCategory()

	ids := func(list []rules.ValidationRule) []rules.RuleID {
		out := make([]rules.RuleID, 0, len(list))
		for _, rule := range list {
			out = append(out, rule.ID)
		}
		return out
	}

	want := map[rules.Category][]rules.RuleID{
		rules.CategoryText: {
			rules.RuleNone,
			rules.RuleLettersOnly,
			rules.RuleLettersNumbers,
			rules.RuleLettersNumbersSpaces,
			rules.RuleNoSpecialChars,
		},
		rules.CategoryContact: {rules.RulePhoneNumber, rules.RulePostalCode},
		rules.CategoryNumeric: {rules.RuleNumbersOnly},
		rules.CategoryWeb:     {rules.RuleURL, rules.RuleEmailDomain, rules.RuleUsername},
		rules.CategoryCustom:  {rules.RuleCustomRegex},
	}

	got := make(map[rules.Category][]rules.RuleID, len(grouped))
	for category, list := range grouped {
		got[category] = ids(list)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("grouping mismatch (-want +got):\n%s", diff)
	}

	groups := rules.Groups()
	var order []rules.Category
	for _, group := range groups {
		order = append(order, group.Category)
	}
	if diff := cmp.Diff(rules.Categories(), order); diff != "" {
		t.Fatalf("group order mismatch (-want +got):\n%s", diff)
	}
}

func TestResolvePattern_RoundTripsCatalog(t *testing.T) {
	for _, rule := range rules.All() {
		if rule.ID == rules.RuleNone || rule.ID == rules.RuleCustomRegex {
			continue
		}
		got, ok := rules.ResolvePattern(rule.ID, "", "")
		if !ok {
			t.Fatalf("%s: expected a pattern", rule.ID)
		}
		if got != rule.PatternTemplate {
			t.Fatalf("%s: got %q, want %q", rule.ID, got, rule.PatternTemplate)
		}
	}
}

func TestResolvePattern_SpecialRules(t *testing.T) {
	if got, ok := rules.ResolvePattern(rules.RuleNone, "^x$", "example.com"); ok || got != "" {
		t.Fatalf("none: got (%q, %v), want no pattern", got, ok)
	}
	if got, ok := rules.ResolvePattern(rules.RuleCustomRegex, `^[A-Z]{3}$`, "ignored.com"); !ok || got != `^[A-Z]{3}$` {
		t.Fatalf("custom_regex: got (%q, %v)", got, ok)
	}
	if got, ok := rules.ResolvePattern(rules.RuleCustomRegex, "", ""); ok || got != "" {
		t.Fatalf("custom_regex without pattern: got (%q, %v)", got, ok)
	}
	if got, _ := rules.ResolvePattern(rules.RuleEmailDomain, "", "company.com"); got != `^[\w\.-]+@company\.com$` {
		t.Fatalf("email_domain: got %q", got)
	}
	if got, _ := rules.ResolvePattern(rules.RuleEmailDomain, "", ""); got != `^[\w\.-]+@DOMAIN$` {
		t.Fatalf("email_domain without domain: got %q", got)
	}
}

func TestResolvePattern_Deterministic(t *testing.T) {
	inputs := []struct {
		id     rules.RuleID
		custom string
		domain string
	}{
		{rules.RuleEmailDomain, "", "a.b+c"},
		{rules.RuleCustomRegex, `^(a|b)*$`, ""},
		{rules.RuleURL, "", ""},
	}
	for _, in := range inputs {
		first, _ := rules.ResolvePattern(in.id, in.custom, in.domain)
		for i := 0; i < 5; i++ {
			again, _ := rules.ResolvePattern(in.id, in.custom, in.domain)
			if again != first {
				t.Fatalf("%s: resolve not deterministic: %q vs %q", in.id, first, again)
			}
		}
	}
}

func TestResolvePattern_PanicsOnUnknownRule(t *testing.T) {
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, rules.ErrUnknownRule) {
			t.Fatalf("expected ErrUnknownRule panic, got %v", r)
		}
	}()
	rules.ResolvePattern("shoe_size", "", "")
}

func TestEscapeDomain(t *testing.T) {
	got := rules.EscapeDomain(`a.b*c+d?e^f$g{h}i(j)k|l[m]n\o/p`)
	want := `a\.b\*c\+d\?e\^f\$g\{h\}i\(j\)k\|l\[m\]n\\o\/p`
	if got != want {
		t.Fatalf("EscapeDomain mismatch:\n got %s\nwant %s", got, want)
	}
	if got := rules.EscapeDomain("example-mail"); got != "example-mail" {
		t.Fatalf("plain domain changed: %q", got)
	}
}

func TestValidateValue_DomainIsLiteral(t *testing.T) {
	if !rules.ValidateValue("user@a.b+c", rules.RuleEmailDomain, "", "a.b+c") {
		t.Fatalf("expected literal domain to match")
	}
	if rules.ValidateValue("user@aXbYYYc", rules.RuleEmailDomain, "", "a.b+c") {
		t.Fatalf("escaped domain must not behave as a pattern")
	}
	if rules.ValidateValue("user@other.com", rules.RuleEmailDomain, "", "company.com") {
		t.Fatalf("foreign domain accepted")
	}
}

func TestValidateValue_MissingDomainKeepsPlaceholder(t *testing.T) {
	if rules.ValidateValue("user@company.com", rules.RuleEmailDomain, "", "") {
		t.Fatalf("expected unsubstituted placeholder to reject real domains")
	}
	if !rules.ValidateValue("user@DOMAIN", rules.RuleEmailDomain, "", "") {
		t.Fatalf("expected placeholder text to match literally")
	}
}

func TestValidateValue_NoneIsPermissive(t *testing.T) {
	values := []string{"", " ", "anything at all", "\x00\x01\x1b[31m", "line\nbreak", "🙂"}
	for _, value := range values {
		if !rules.ValidateValue(value, rules.RuleNone, "", "") {
			t.Fatalf("none rejected %q", value)
		}
	}
}

func TestValidateValue_FailOpen(t *testing.T) {
	invalid := []string{"[unclosed", "(abc", "*abc", "a)"}
	for _, pattern := range invalid {
		for _, value := range []string{"", "abc", "zzz"} {
			if !rules.ValidateValue(value, rules.RuleCustomRegex, pattern, "") {
				t.Fatalf("pattern %q rejected %q; expected fail-open", pattern, value)
			}
		}
		err := rules.CheckPattern(pattern)
		if !errors.Is(err, rules.ErrInvalidPattern) {
			t.Fatalf("CheckPattern(%q) = %v, want ErrInvalidPattern", pattern, err)
		}
	}
}

func TestValidateValue_Scenarios(t *testing.T) {
	cases := []struct {
		name  string
		value string
		rule  rules.RuleID
		want  bool
	}{
		{"username ok", "user_name123", rules.RuleUsername, true},
		{"username too short", "ab", rules.RuleUsername, false},
		{"username spaces", "name with spaces", rules.RuleUsername, false},
		{"phone ok", "+1 555-123-4567", rules.RulePhoneNumber, true},
		// 16 characters after the optional plus, one more than the template allows.
		{"phone formatted too long", "+1 (555) 123-4567", rules.RulePhoneNumber, false},
		{"phone five digits", "12345", rules.RulePhoneNumber, false},
		{"phone seven digits", "1234567", rules.RulePhoneNumber, true},
		{"letters only", "Hello", rules.RuleLettersOnly, true},
		{"letters only digits", "Hello1", rules.RuleLettersOnly, false},
		{"letters numbers", "abc123", rules.RuleLettersNumbers, true},
		{"letters numbers space", "abc 123", rules.RuleLettersNumbers, false},
		{"letters numbers spaces", "abc 123", rules.RuleLettersNumbersSpaces, true},
		{"postal ok", "SW1A 1AA", rules.RulePostalCode, true},
		{"postal short", "12", rules.RulePostalCode, false},
		{"numbers", "0042", rules.RuleNumbersOnly, true},
		{"numbers signed", "-42", rules.RuleNumbersOnly, false},
		{"url ok", "https://example.com/path?q=1", rules.RuleURL, true},
		{"url no scheme", "example.com", rules.RuleURL, false},
		{"url no tld", "http://localhost", rules.RuleURL, false},
		{"no special ok", "my-project_01 v2", rules.RuleNoSpecialChars, true},
		{"no special bang", "hello!", rules.RuleNoSpecialChars, false},
		{"username dash", "jane-doe", rules.RuleUsername, true},
		{"username too long", strings.Repeat("a", 21), rules.RuleUsername, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := rules.ValidateValue(tc.value, tc.rule, "", ""); got != tc.want {
				t.Fatalf("ValidateValue(%q, %s) = %v, want %v", tc.value, tc.rule, got, tc.want)
			}
		})
	}
}

func TestValidator_LegacyPattern(t *testing.T) {
	v := rules.NewValidator()
	if !v.ValidatePattern("12345", `^[0-9]{5}$`) {
		t.Fatalf("expected 12345 to match")
	}
	if v.ValidatePattern("1234", `^[0-9]{5}$`) {
		t.Fatalf("expected 1234 to be rejected")
	}
	if !v.ValidatePattern("anything", "") {
		t.Fatalf("empty legacy pattern must accept")
	}
}

func TestValidator_CachesCompileResults(t *testing.T) {
	v := rules.NewValidator(rules.WithCacheSize(2))
	first, err := v.Compile(`^a+$`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	second, err := v.Compile(`^a+$`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if first != second {
		t.Fatalf("expected cached regex to be reused")
	}

	_, errA := v.Compile("[bad")
	_, errB := v.Compile("[bad")
	if errA == nil || errA != errB {
		t.Fatalf("expected cached compile error, got %v / %v", errA, errB)
	}
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []bool
	failOpen []rules.RuleID
}

func (o *recordingObserver) OnValidate(_ rules.RuleID, ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, ok)
}

func (o *recordingObserver) OnFailOpen(rule rules.RuleID, _ error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failOpen = append(o.failOpen, rule)
}

func TestValidator_Observer(t *testing.T) {
	obs := &recordingObserver{}
	v := rules.NewValidator(rules.WithObserver(obs))

	v.Validate("abc", rules.RuleLettersOnly, "", "")
	v.Validate("abc1", rules.RuleLettersOnly, "", "")
	v.Validate("abc", rules.RuleCustomRegex, "(", "")

	if diff := cmp.Diff([]bool{true, false}, obs.outcomes); diff != "" {
		t.Fatalf("outcomes mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]rules.RuleID{rules.RuleCustomRegex}, obs.failOpen); diff != "" {
		t.Fatalf("fail-open mismatch (-want +got):\n%s", diff)
	}
}

func TestValidator_ConcurrentUse(t *testing.T) {
	v := rules.NewValidator()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if !v.Validate("user_name123", rules.RuleUsername, "", "") {
					t.Errorf("unexpected rejection")
					return
				}
			}
		}()
	}
	wg.Wait()
}

func TestErrorMessage(t *testing.T) {
	if got := rules.ErrorMessage(rules.RuleUsername); !strings.Contains(got, "3-20") {
		t.Fatalf("username message: %q", got)
	}
	custom := rules.MustLookup(rules.RuleCustomRegex)
	want := "Please match the required format: " + custom.Description
	if got := rules.ErrorMessage(rules.RuleCustomRegex); got != want {
		t.Fatalf("fallback message: got %q, want %q", got, want)
	}
	for _, rule := range rules.All() {
		if rules.ErrorMessage(rule.ID) == "" {
			t.Fatalf("%s: empty message", rule.ID)
		}
	}
}
