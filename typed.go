package settings

import (
	"fmt"

	"github.com/goliatone/go-settings/internal/hydrate"
)

// HydrateOption configures how a snapshot decodes into a typed value.
type HydrateOption func(*hydrateConfig)

type hydrateConfig struct {
	useNumber       bool
	disallowUnknown bool
}

// HydrateUseNumber decodes numbers as json.Number instead of float64.
func HydrateUseNumber() HydrateOption {
	return func(cfg *hydrateConfig) {
		cfg.useNumber = true
	}
}

// HydrateStrict rejects snapshot fields the target type does not declare.
func HydrateStrict() HydrateOption {
	return func(cfg *hydrateConfig) {
		cfg.disallowUnknown = true
	}
}

// Hydrate decodes the view's flattened snapshot into the caller's schema
// type and runs Validate when T implements it.
func Hydrate[T any](v *View, opts ...HydrateOption) (T, error) {
	return decodeFragment[T](hydrate.Context{}, v.Snapshot(), opts)
}

// HydrateKey resolves key and decodes the resulting object into T. The key
// must resolve to a nested object.
func HydrateKey[T any](v *View, key string, opts ...HydrateOption) (T, error) {
	var zero T
	value, err := v.Get(key)
	if err != nil {
		return zero, err
	}
	fragment, ok := value.(Fragment)
	if !ok {
		return zero, fmt.Errorf("settings: key %q holds %T, not object", key, value)
	}
	inspection := v.Inspect(key)
	ctx := hydrate.Context{Path: key, Source: inspection.Resolved.Source}
	return decodeFragment[T](ctx, fragment, opts)
}

func decodeFragment[T any](ctx hydrate.Context, fragment Fragment, opts []HydrateOption) (T, error) {
	var zero T
	cfg := hydrateConfig{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	var decoderOpts []hydrate.DecoderOption[T]
	if cfg.useNumber {
		decoderOpts = append(decoderOpts, hydrate.WithUseNumber[T]())
	}
	if cfg.disallowUnknown {
		decoderOpts = append(decoderOpts, hydrate.WithDisallowUnknownFields[T]())
	}
	decoder := hydrate.NewDecoder[T](decoderOpts...)
	value, err := decoder.Decode(ctx, fragment)
	if err != nil {
		return zero, err
	}
	if err := validateValue(value); err != nil {
		return zero, err
	}
	return value, nil
}

// validateValue invokes Validate when the value, or a pointer to it,
// implements the Validate() error contract.
func validateValue[T any](value T) error {
	if v, ok := any(value).(interface{ Validate() error }); ok {
		return v.Validate()
	}
	if v, ok := any(&value).(interface{ Validate() error }); ok {
		return v.Validate()
	}
	return nil
}
