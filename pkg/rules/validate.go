package rules

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dlclark/regexp2"
	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	// DefaultCacheSize bounds the number of compiled patterns kept per Validator.
	DefaultCacheSize = 256
	// DefaultMatchTimeout bounds a single match so a pathological custom
	// pattern cannot stall a submission.
	DefaultMatchTimeout = 100 * time.Millisecond
)

// ErrInvalidPattern is the sentinel wrapped by InvalidPatternError.
var ErrInvalidPattern = errors.New("rules: invalid pattern")

// InvalidPatternError reports a pattern that does not compile.
type InvalidPatternError struct {
	Pattern string
	Reason  string
}

// Error implements the error interface.
func (e *InvalidPatternError) Error() string {
	return fmt.Sprintf("invalid pattern %q: %s", e.Pattern, e.Reason)
}

// Unwrap returns ErrInvalidPattern so callers can use errors.Is.
func (e *InvalidPatternError) Unwrap() error { return ErrInvalidPattern }

// Observer receives validation outcomes. Implementations must be safe for
// concurrent use.
type Observer interface {
	OnValidate(rule RuleID, ok bool)
	OnFailOpen(rule RuleID, err error)
}

type nopObserver struct{}

func (nopObserver) OnValidate(RuleID, bool)  {}
func (nopObserver) OnFailOpen(RuleID, error) {}

// Option configures a Validator.
type Option func(*Validator)

// WithCacheSize overrides the compiled pattern cache size.
func WithCacheSize(size int) Option {
	return func(v *Validator) {
		if size > 0 {
			v.cacheSize = size
		}
	}
}

// WithMatchTimeout overrides the per-match timeout.
func WithMatchTimeout(timeout time.Duration) Option {
	return func(v *Validator) {
		if timeout > 0 {
			v.timeout = timeout
		}
	}
}

// WithObserver attaches an observer for validation outcomes.
func WithObserver(observer Observer) Option {
	return func(v *Validator) {
		if observer != nil {
			v.observer = observer
		}
	}
}

type compiled struct {
	re  *regexp2.Regexp
	err error
}

// Validator applies resolved patterns to values. Patterns are compiled with
// ECMAScript semantics so expressions authored for the browser behave the
// same here. A Validator is safe for concurrent use.
type Validator struct {
	cacheSize int
	timeout   time.Duration
	observer  Observer
	cache     *lru.Cache[string, compiled]
}

// NewValidator constructs a Validator.
func NewValidator(options ...Option) *Validator {
	v := &Validator{
		cacheSize: DefaultCacheSize,
		timeout:   DefaultMatchTimeout,
		observer:  nopObserver{},
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(v)
	}
	cache, err := lru.New[string, compiled](v.cacheSize)
	if err != nil {
		// lru.New only fails for non-positive sizes, which options reject.
		panic(err)
	}
	v.cache = cache
	return v
}

// Validate reports whether value satisfies the rule. RuleNone and rules that
// resolve to no pattern accept everything. Patterns that fail to compile, and
// matches that time out, accept the value.
func (v *Validator) Validate(value string, id RuleID, customPattern, domain string) bool {
	if id == RuleNone {
		v.observer.OnValidate(id, true)
		return true
	}
	pattern, ok := ResolvePattern(id, customPattern, domain)
	if !ok {
		v.observer.OnValidate(id, true)
		return true
	}
	return v.match(id, pattern, value)
}

// ValidatePattern applies a raw pattern, as stored by records that predate
// the rule catalog. It follows the same fail-open policy as Validate.
func (v *Validator) ValidatePattern(value, pattern string) bool {
	if pattern == "" {
		v.observer.OnValidate(RuleCustomRegex, true)
		return true
	}
	return v.match(RuleCustomRegex, pattern, value)
}

// Compile returns the compiled form of pattern, using the cache.
func (v *Validator) Compile(pattern string) (*regexp2.Regexp, error) {
	if entry, ok := v.cache.Get(pattern); ok {
		return entry.re, entry.err
	}
	re, err := regexp2.Compile(pattern, regexp2.ECMAScript)
	if err != nil {
		err = &InvalidPatternError{Pattern: pattern, Reason: err.Error()}
		re = nil
	} else {
		re.MatchTimeout = v.timeout
	}
	v.cache.Add(pattern, compiled{re: re, err: err})
	return re, err
}

func (v *Validator) match(id RuleID, pattern, value string) bool {
	re, err := v.Compile(pattern)
	if err != nil {
		v.observer.OnFailOpen(id, err)
		return true
	}
	ok, err := re.MatchString(value)
	if err != nil {
		v.observer.OnFailOpen(id, err)
		return true
	}
	v.observer.OnValidate(id, ok)
	return ok
}

var (
	defaultOnce      sync.Once
	defaultValidator *Validator
)

// Default returns the shared Validator used by the package level helpers.
func Default() *Validator {
	defaultOnce.Do(func() {
		defaultValidator = NewValidator()
	})
	return defaultValidator
}

// ValidateValue applies the rule to value using the shared Validator.
func ValidateValue(value string, id RuleID, customPattern, domain string) bool {
	return Default().Validate(value, id, customPattern, domain)
}

// CheckPattern reports whether pattern compiles. Builders use it to surface a
// warning; it never blocks saving or submitting.
func CheckPattern(pattern string) error {
	if pattern == "" {
		return nil
	}
	_, err := Default().Compile(pattern)
	return err
}
