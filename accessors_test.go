package settings

import (
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestTypedAccessors(t *testing.T) {
	view := mustView(t, []Layer{
		NewLayer("defaults", Fragment{
			"name":     "svc",
			"debug":    true,
			"workers":  4,
			"retries":  float64(3),
			"big":      json.Number("42"),
			"ratio":    0.5,
			"tags":     []any{"a", "b"},
			"aliases":  []string{"x"},
			"database": Fragment{"host": "dev"},
		}),
	})

	if got, err := view.String("name"); err != nil || got != "svc" {
		t.Fatalf("String: got %q, %v", got, err)
	}
	if got, err := view.Bool("debug"); err != nil || !got {
		t.Fatalf("Bool: got %v, %v", got, err)
	}
	if got, err := view.Int("workers"); err != nil || got != 4 {
		t.Fatalf("Int: got %d, %v", got, err)
	}
	if got, err := view.Int("retries"); err != nil || got != 3 {
		t.Fatalf("Int from integral float: got %d, %v", got, err)
	}
	if got, err := view.Int("big"); err != nil || got != 42 {
		t.Fatalf("Int from json.Number: got %d, %v", got, err)
	}
	if got, err := view.Float64("ratio"); err != nil || got != 0.5 {
		t.Fatalf("Float64: got %v, %v", got, err)
	}
	if got, err := view.Float64("workers"); err != nil || got != 4 {
		t.Fatalf("Float64 from int: got %v, %v", got, err)
	}
	if got, err := view.StringSlice("tags"); err != nil || !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("StringSlice from []any: got %v, %v", got, err)
	}
	if got, err := view.StringSlice("aliases"); err != nil || !reflect.DeepEqual(got, []string{"x"}) {
		t.Fatalf("StringSlice from []string: got %v, %v", got, err)
	}
	if got, err := view.Map("database"); err != nil || got["host"] != "dev" {
		t.Fatalf("Map: got %v, %v", got, err)
	}
}

func TestTypedAccessorMismatches(t *testing.T) {
	view := mustView(t, []Layer{
		NewLayer("defaults", Fragment{
			"name":  "svc",
			"ratio": 0.5,
			"mixed": []any{"a", 1},
		}),
	})

	if _, err := view.String("ratio"); err == nil || !strings.Contains(err.Error(), "not string") {
		t.Fatalf("expected string mismatch, got %v", err)
	}
	if _, err := view.Bool("name"); err == nil || !strings.Contains(err.Error(), "not bool") {
		t.Fatalf("expected bool mismatch, got %v", err)
	}
	if _, err := view.Int("ratio"); err == nil || !strings.Contains(err.Error(), "non-integral") {
		t.Fatalf("expected non-integral rejection, got %v", err)
	}
	if _, err := view.Int("name"); err == nil || !strings.Contains(err.Error(), "not int") {
		t.Fatalf("expected int mismatch, got %v", err)
	}
	if _, err := view.Float64("name"); err == nil || !strings.Contains(err.Error(), "not float64") {
		t.Fatalf("expected float mismatch, got %v", err)
	}
	if _, err := view.StringSlice("mixed"); err == nil || !strings.Contains(err.Error(), "element") {
		t.Fatalf("expected element mismatch, got %v", err)
	}
	if _, err := view.Map("name"); err == nil || !strings.Contains(err.Error(), "not object") {
		t.Fatalf("expected map mismatch, got %v", err)
	}
}

func TestTypedAccessorsPropagateNotFound(t *testing.T) {
	view := mustView(t, []Layer{NewLayer("defaults", Fragment{})})

	if _, err := view.String("missing"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound from String, got %v", err)
	}
	if _, err := view.Int("missing"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound from Int, got %v", err)
	}
}
