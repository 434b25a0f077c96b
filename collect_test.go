package settings

import (
	"reflect"
	"testing"
)

func TestGetAllEnumeratesLayers(t *testing.T) {
	view := mustView(t, []Layer{
		NewLayer("1", Fragment{"features": []any{"f1", "f2", "f4"}}),
		NewLayer("2", Fragment{"features": []any{"f3"}}),
		NewLayer("3", Fragment{"features": []any{"f3", "f4", "f5"}}),
	})

	values := view.GetAll("features")
	want := []LayerValue{
		{Layer: "3", Value: []any{"f3", "f4", "f5"}},
		{Layer: "2", Value: []any{"f3"}},
		{Layer: "1", Value: []any{"f1", "f2", "f4"}},
	}
	if !reflect.DeepEqual(values, want) {
		t.Fatalf("expected per-layer values strongest first\nwant %v\ngot  %v", want, values)
	}

	// Get keeps its replace-wholesale semantics for the same key.
	if got := mustGet(t, view, "features"); !reflect.DeepEqual(got, []any{"f3", "f4", "f5"}) {
		t.Fatalf("expected strongest array to win the plain read, got %v", got)
	}
}

func TestGetAllSkipsPolicyRejected(t *testing.T) {
	layers := []Layer{
		NewLayer("defaults", Fragment{"recipients": []any{"ops"}}),
		NewLayer("env", Fragment{"recipients": nil}),
	}

	view := mustView(t, layers)
	values := view.GetAll("recipients")
	if len(values) != 1 || values[0].Layer != "defaults" {
		t.Fatalf("expected suppressed nil layer to be omitted, got %v", values)
	}

	accepting := mustView(t, layers, WithAcceptNil(true))
	acceptedValues := accepting.GetAll("recipients")
	if len(acceptedValues) != 2 {
		t.Fatalf("expected both layers once nil is accepted, got %v", acceptedValues)
	}
	if acceptedValues[0].Layer != "env" || acceptedValues[0].Value != nil {
		t.Fatalf("expected accepted nil entry first, got %+v", acceptedValues[0])
	}
}

func TestGetAllNestedPath(t *testing.T) {
	view := mustView(t, []Layer{
		NewLayer("defaults", Fragment{"notify": Fragment{"channels": []any{"email"}}}),
		NewLayer("env", Fragment{"notify": "off"}),
		NewLayer("user", Fragment{"notify": Fragment{"channels": []any{"sms"}}}),
	})

	values := view.GetAll("notify.channels")
	want := []LayerValue{
		{Layer: "user", Value: []any{"sms"}},
		{Layer: "defaults", Value: []any{"email"}},
	}
	if !reflect.DeepEqual(values, want) {
		t.Fatalf("expected layers where the full path resolves\nwant %v\ngot  %v", want, values)
	}
}

func TestGetAllUnknownKey(t *testing.T) {
	view := mustView(t, []Layer{NewLayer("defaults", Fragment{"a": 1})})

	values := view.GetAll("missing")
	if len(values) != 0 {
		t.Fatalf("expected empty result for unknown key, got %v", values)
	}
}

func TestGetAllFrozenIsolation(t *testing.T) {
	view := mustView(t, []Layer{
		NewLayer("defaults", Fragment{"features": []any{"f1"}}),
	})

	values := view.GetAll("features")
	values[0].Value.([]any)[0] = "mutated"

	again := view.GetAll("features")
	if got := again[0].Value.([]any)[0]; got != "f1" {
		t.Fatalf("expected frozen enumeration to hand out copies, got %v", got)
	}
}
