package metrics

import (
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/goliatone/go-formdee/pkg/model"
	"github.com/goliatone/go-formdee/pkg/rules"
	"github.com/goliatone/go-formdee/pkg/submission"
)

const namespace = "formdee"

const (
	OutcomePass     = "pass"
	OutcomeFail     = "fail"
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
)

var uuidPattern = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)

var _ rules.Observer = (*Collectors)(nil)

// Collectors groups the FormDee Prometheus metrics. It implements
// rules.Observer so a rules.Validator can report into it directly.
type Collectors struct {
	registry *prometheus.Registry

	validations  *prometheus.CounterVec
	failOpen     *prometheus.CounterVec
	emissions    prometheus.Counter
	submissions  *prometheus.CounterVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers the collectors on registry. A nil registry gets a fresh one.
func New(registry *prometheus.Registry) (*Collectors, error) {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	c := &Collectors{
		registry: registry,
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validations_total",
			Help:      "Field values checked against a validation rule.",
		}, []string{"rule", "outcome"}),
		failOpen: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_fail_open_total",
			Help:      "Values accepted because their pattern could not be evaluated.",
		}, []string{"rule"}),
		emissions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "field_emissions_total",
			Help:      "Field definitions emitted by editors.",
		}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "submissions_total",
			Help:      "Form submissions by outcome.",
		}, []string{"outcome"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"method", "endpoint", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "endpoint"}),
	}

	for _, collector := range []prometheus.Collector{
		c.validations, c.failOpen, c.emissions, c.submissions, c.httpRequests, c.httpDuration,
	} {
		if err := registry.Register(collector); err != nil {
			return nil, fmt.Errorf("metrics: register: %w", err)
		}
	}
	return c, nil
}

// Registry exposes the underlying registry.
func (c *Collectors) Registry() *prometheus.Registry {
	return c.registry
}

// OnValidate counts a rule evaluation.
func (c *Collectors) OnValidate(rule rules.RuleID, ok bool) {
	outcome := OutcomeFail
	if ok {
		outcome = OutcomePass
	}
	c.validations.WithLabelValues(string(rule), outcome).Inc()
}

// OnFailOpen counts a value accepted because its pattern failed to compile
// or match.
func (c *Collectors) OnFailOpen(rule rules.RuleID, _ error) {
	c.failOpen.WithLabelValues(string(rule)).Inc()
}

// FieldEmitted counts an editor emission. It fits editor.WithEmitHook.
func (c *Collectors) FieldEmitted(model.FieldDefinition) {
	c.emissions.Inc()
}

// Submission counts a checked submission.
func (c *Collectors) Submission(result submission.Result) {
	outcome := OutcomeRejected
	if result.Valid() {
		outcome = OutcomeAccepted
	}
	c.submissions.WithLabelValues(outcome).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collectors) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Middleware records request counts and durations. Form ids in paths are
// collapsed so the endpoint label stays bounded.
func (c *Collectors) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := normalizeEndpoint(r.URL.Path)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		c.httpDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
		c.httpRequests.WithLabelValues(r.Method, endpoint, strconv.Itoa(wrapped.statusCode)).Inc()
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func normalizeEndpoint(path string) string {
	if path == "" || path == "/" {
		return "root"
	}
	return uuidPattern.ReplaceAllString(path, "_id")
}
