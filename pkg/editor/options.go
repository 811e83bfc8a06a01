package editor

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/goliatone/go-formdee/pkg/model"
)

// Option configures editors and autosavers.
type Option func(*config)

type config struct {
	delay  time.Duration
	clock  Clock
	logger zerolog.Logger
	onEmit func(model.FieldDefinition)
}

func newConfig(options []Option) config {
	cfg := config{
		delay:  DefaultDebounce,
		clock:  realClock{},
		logger: zerolog.Nop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	return cfg
}

// WithDebounce overrides DefaultDebounce.
func WithDebounce(delay time.Duration) Option {
	return func(cfg *config) {
		if delay >= 0 {
			cfg.delay = delay
		}
	}
}

// WithClock swaps the timer source, mainly for tests.
func WithClock(clock Clock) Option {
	return func(cfg *config) {
		if clock != nil {
			cfg.clock = clock
		}
	}
}

// WithLogger attaches a logger for advisory warnings and emissions.
func WithLogger(logger zerolog.Logger) Option {
	return func(cfg *config) {
		cfg.logger = logger
	}
}

// WithEmitHook registers a callback invoked after every emission.
func WithEmitHook(fn func(model.FieldDefinition)) Option {
	return func(cfg *config) {
		cfg.onEmit = fn
	}
}
