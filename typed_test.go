package settings

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

var errInvalidConfig = errors.New("invalid config")

type serviceConfig struct {
	Name    string         `json:"name"`
	Workers int            `json:"workers"`
	Debug   bool           `json:"debug"`
	Extra   map[string]any `json:"extra"`
}

func (c serviceConfig) Validate() error {
	if c.Workers <= 0 {
		return errInvalidConfig
	}
	return nil
}

func TestHydrateSnapshot(t *testing.T) {
	view := mustView(t, []Layer{
		NewLayer("defaults", Fragment{"name": "svc", "workers": 2, "debug": false}),
		NewLayer("env", Fragment{"workers": 8, "debug": true}),
	})

	cfg, err := Hydrate[serviceConfig](view)
	if err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	if cfg.Name != "svc" || cfg.Workers != 8 || !cfg.Debug {
		t.Fatalf("expected merged snapshot to decode, got %+v", cfg)
	}
}

func TestHydrateRunsValidation(t *testing.T) {
	view := mustView(t, []Layer{
		NewLayer("defaults", Fragment{"name": "svc", "workers": 0}),
	})

	if _, err := Hydrate[serviceConfig](view); !errors.Is(err, errInvalidConfig) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHydrateStrictRejectsUnknownFields(t *testing.T) {
	view := mustView(t, []Layer{
		NewLayer("defaults", Fragment{"name": "svc", "workers": 1, "rogue": true}),
	})

	if _, err := Hydrate[serviceConfig](view, HydrateStrict()); err == nil {
		t.Fatalf("expected strict decoding to reject unknown fields")
	}

	if _, err := Hydrate[serviceConfig](view); err != nil {
		t.Fatalf("expected lax decoding to ignore unknown fields, got %v", err)
	}
}

func TestHydrateUseNumber(t *testing.T) {
	view := mustView(t, []Layer{
		NewLayer("defaults", Fragment{
			"name":    "svc",
			"workers": 1,
			"extra":   Fragment{"budget": 12.5},
		}),
	})

	cfg, err := Hydrate[serviceConfig](view, HydrateUseNumber())
	if err != nil {
		t.Fatalf("hydrate: %v", err)
	}
	number, ok := cfg.Extra["budget"].(json.Number)
	if !ok {
		t.Fatalf("expected json.Number under HydrateUseNumber, got %T", cfg.Extra["budget"])
	}
	if number.String() != "12.5" {
		t.Fatalf("expected 12.5, got %s", number)
	}
}

func TestHydrateKey(t *testing.T) {
	type poolConfig struct {
		Min int `json:"min"`
		Max int `json:"max"`
	}

	view := mustView(t, []Layer{
		NewLayer("defaults", Fragment{"database": Fragment{"pool": Fragment{"min": 1, "max": 10}}}),
		NewLayer("env", Fragment{"database": Fragment{"pool": Fragment{"max": 50}}}),
	})

	pool, err := HydrateKey[poolConfig](view, "database.pool")
	if err != nil {
		t.Fatalf("hydrate key: %v", err)
	}
	if pool.Min != 1 || pool.Max != 50 {
		t.Fatalf("expected merged pool config, got %+v", pool)
	}
}

func TestHydrateKeyErrors(t *testing.T) {
	type poolConfig struct {
		Min int `json:"min"`
	}

	view := mustView(t, []Layer{
		NewLayer("defaults", Fragment{"scalar": 1}),
	})

	if _, err := HydrateKey[poolConfig](view, "missing"); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	if _, err := HydrateKey[poolConfig](view, "scalar"); err == nil || !strings.Contains(err.Error(), "not object") {
		t.Fatalf("expected non-object rejection, got %v", err)
	}
}
