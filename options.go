package settings

import (
	"fmt"

	"github.com/goliatone/go-settings/pkg/activity"
)

// NotFoundHandler produces the result of Get when no layer satisfies a key.
// Returning a nil error turns the handler's value into the lookup result;
// returning an error propagates it to the caller.
type NotFoundHandler func(key string) (any, error)

// Unset marks a key as explicitly cleared inside a fragment. Resolution
// skips unset values unless WithAcceptUnset(true) is configured, letting a
// stronger layer re-expose whatever a weaker layer provides.
var Unset = unsetValue{}

type unsetValue struct{}

func (unsetValue) String() string { return "<unset>" }

// MarshalJSON encodes the marker as JSON null so snapshots stay portable.
func (unsetValue) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

// Option adjusts how a store is resolved into a view.
type Option func(*config)

type config struct {
	notFound        NotFoundHandler
	freeze          bool
	acceptNil       bool
	acceptUnset     bool
	evaluator       Evaluator
	programCache    ProgramCache
	functions       *FunctionRegistry
	logger          EvaluatorLogger
	schemaGenerator SchemaGenerator
	activityHooks   activity.Hooks
}

func defaultConfig() config {
	return config{
		freeze:   true,
		notFound: defaultNotFound,
	}
}

func defaultNotFound(key string) (any, error) {
	return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, key)
}

// applyOptions layers opts over base, skipping nil entries.
func applyOptions(base config, opts []Option) config {
	cfg := base
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	return cfg
}

// accepts reports whether a raw layer value satisfies the resolution
// policy. Nil and unset markers are transparent by default.
func (c config) accepts(value any) bool {
	switch value.(type) {
	case nil:
		return c.acceptNil
	case unsetValue:
		return c.acceptUnset
	}
	return true
}

// WithNotFoundHandler installs a custom handler for keys no layer
// satisfies. A nil handler keeps the current one.
func WithNotFoundHandler(handler NotFoundHandler) Option {
	return func(cfg *config) {
		if handler == nil {
			return
		}
		cfg.notFound = handler
	}
}

// WithFreeze toggles the immutability guard. Frozen views (the default)
// reject Set and hand out deep copies of compound values.
func WithFreeze(enabled bool) Option {
	return func(cfg *config) {
		cfg.freeze = enabled
	}
}

// WithAcceptNil makes nil layer values resolvable instead of transparent.
func WithAcceptNil(accept bool) Option {
	return func(cfg *config) {
		cfg.acceptNil = accept
	}
}

// WithAcceptUnset makes Unset markers resolvable instead of transparent.
func WithAcceptUnset(accept bool) Option {
	return func(cfg *config) {
		cfg.acceptUnset = accept
	}
}

// WithEvaluator overrides the expression evaluator used by Evaluate.
func WithEvaluator(evaluator Evaluator) Option {
	return func(cfg *config) {
		cfg.evaluator = evaluator
	}
}
