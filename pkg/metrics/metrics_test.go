package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/goliatone/go-formdee/pkg/model"
	"github.com/goliatone/go-formdee/pkg/rules"
	"github.com/goliatone/go-formdee/pkg/submission"
)

func newCollectors(t *testing.T) *Collectors {
	t.Helper()
	c, err := New(nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestObserverCounts(t *testing.T) {
	c := newCollectors(t)
	v := rules.NewValidator(rules.WithObserver(c))

	v.Validate("Jane", rules.RuleLettersOnly, "", "")
	v.Validate("J4ne", rules.RuleLettersOnly, "", "")
	v.Validate("anything", rules.RuleCustomRegex, "[unclosed", "")
	v.Validate("again", rules.RuleCustomRegex, "[unclosed", "")

	if got := testutil.ToFloat64(c.validations.WithLabelValues("letters_only", OutcomePass)); got != 1 {
		t.Fatalf("pass count = %v", got)
	}
	if got := testutil.ToFloat64(c.validations.WithLabelValues("letters_only", OutcomeFail)); got != 1 {
		t.Fatalf("fail count = %v", got)
	}
	if got := testutil.ToFloat64(c.failOpen.WithLabelValues("custom_regex")); got != 2 {
		t.Fatalf("fail-open count = %v", got)
	}
}

func TestSubmissionsAndEmissions(t *testing.T) {
	c := newCollectors(t)

	var rejected submission.Result
	rejected.AddField("name", "Name is required.")
	c.Submission(rejected)
	c.Submission(submission.Result{})
	c.Submission(submission.Result{})
	c.FieldEmitted(model.FieldDefinition{Key: "name"})

	if got := testutil.ToFloat64(c.submissions.WithLabelValues(OutcomeAccepted)); got != 2 {
		t.Fatalf("accepted = %v", got)
	}
	if got := testutil.ToFloat64(c.submissions.WithLabelValues(OutcomeRejected)); got != 1 {
		t.Fatalf("rejected = %v", got)
	}
	if got := testutil.ToFloat64(c.emissions); got != 1 {
		t.Fatalf("emissions = %v", got)
	}
}

func TestDuplicateRegistration(t *testing.T) {
	registry := prometheus.NewRegistry()
	if _, err := New(registry); err != nil {
		t.Fatalf("first New: %v", err)
	}
	if _, err := New(registry); err == nil {
		t.Fatal("expected error registering twice on the same registry")
	}
}

func TestMiddlewareAndHandler(t *testing.T) {
	c := newCollectors(t)
	handler := c.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/forms/0b7c8f3e-4d1a-4c9b-9f0e-2a6d5c1b7e90/responses", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	got := testutil.ToFloat64(c.httpRequests.WithLabelValues(http.MethodPost, "/api/forms/_id/responses", "422"))
	if got != 1 {
		t.Fatalf("request count = %v", got)
	}

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, name := range []string{"formdee_http_requests_total", "formdee_http_request_duration_seconds"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("exposition missing %s", name)
		}
	}
}

func TestNormalizeEndpoint(t *testing.T) {
	cases := map[string]string{
		"":           "root",
		"/":          "root",
		"/api/rules": "/api/rules",
		"/forms/0b7c8f3e-4d1a-4c9b-9f0e-2a6d5c1b7e90": "/forms/_id",
	}
	for in, want := range cases {
		if got := normalizeEndpoint(in); got != want {
			t.Errorf("normalizeEndpoint(%q) = %q want %q", in, got, want)
		}
	}
}
