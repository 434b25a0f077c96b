package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Context identifies the snapshot fragment being decoded, for error
// reporting and hooks. Path is the key path inside the view, empty when the
// whole flattened snapshot is decoded; Source optionally names the layer
// that won the value.
type Context struct {
	Path   string
	Source string
}

func (c Context) describe() string {
	if c.Path == "" {
		return "snapshot"
	}
	return fmt.Sprintf("path %q", c.Path)
}

// PreHook may rewrite the payload before decoding. Returning nil keeps the
// current payload.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook adjusts or validates the hydrated value after decoding.
type PostHook[T any] func(Context, *T) error

// CustomDecoder replaces the default JSON round-trip entirely.
type CustomDecoder[T any] func(Context, map[string]any) (T, error)

// DecoderOption configures a Decoder.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts resolved snapshot fragments into strongly typed values.
// The zero Decoder performs a plain JSON round-trip; options layer hooks and
// json.Decoder knobs on top.
type Decoder[T any] struct {
	preHooks  []PreHook
	postHooks []PostHook[T]
	setup     []func(*json.Decoder)
	custom    CustomDecoder[T]
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// WithPreHook runs hook against the payload before decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook runs hook against the hydrated value after decoding.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithUseNumber decodes JSON numbers as json.Number instead of float64.
func WithUseNumber[T any]() DecoderOption[T] {
	return WithDecoderConfig[T](func(dec *json.Decoder) {
		dec.UseNumber()
	})
}

// WithDisallowUnknownFields rejects payload keys the target type has no
// field for.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return WithDecoderConfig[T](func(dec *json.Decoder) {
		dec.DisallowUnknownFields()
	})
}

// WithDecoderConfig exposes the underlying json.Decoder for direct tuning.
func WithDecoderConfig[T any](configure func(*json.Decoder)) DecoderOption[T] {
	return func(d *Decoder[T]) {
		if configure != nil {
			d.setup = append(d.setup, configure)
		}
	}
}

// WithCustomDecoder replaces the default JSON decoding path.
func WithCustomDecoder[T any](decoder CustomDecoder[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.custom = decoder
	}
}

// Decode converts payload into T. The payload is deep-copied first so hooks
// can mutate it without touching the caller's snapshot.
func (d *Decoder[T]) Decode(ctx Context, payload map[string]any) (T, error) {
	var zero T

	if payload == nil {
		return zero, fmt.Errorf("hydrate: payload is nil for %s", ctx.describe())
	}

	current, err := roundTripCopy(payload)
	if err != nil {
		return zero, fmt.Errorf("hydrate: clone payload for %s: %w", ctx.describe(), err)
	}

	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: pre-hook for %s failed: %w", ctx.describe(), err)
		}
		if next != nil {
			current = next
		}
	}

	result, err := d.decode(ctx, current)
	if err != nil {
		return zero, err
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, &result); err != nil {
			return zero, fmt.Errorf("hydrate: post-hook for %s failed: %w", ctx.describe(), err)
		}
	}

	return result, nil
}

func (d *Decoder[T]) decode(ctx Context, payload map[string]any) (T, error) {
	var result T

	if d.custom != nil {
		result, err := d.custom(ctx, payload)
		if err != nil {
			return result, fmt.Errorf("hydrate: custom decoder for %s failed: %w", ctx.describe(), err)
		}
		return result, nil
	}

	buffer, err := json.Marshal(payload)
	if err != nil {
		return result, fmt.Errorf("hydrate: marshal payload for %s: %w", ctx.describe(), err)
	}
	decoder := json.NewDecoder(bytes.NewReader(buffer))
	for _, configure := range d.setup {
		configure(decoder)
	}
	if err := decoder.Decode(&result); err != nil {
		return result, fmt.Errorf("hydrate: decode %s: %w", ctx.describe(), err)
	}
	return result, nil
}

// roundTripCopy deep-copies the payload through JSON, which also normalizes
// value types to what the default decode path expects.
func roundTripCopy(payload map[string]any) (map[string]any, error) {
	buffer, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(buffer, &out); err != nil {
		return nil, err
	}
	return out, nil
}
