package settings

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

var evaluatorFactories = []struct {
	name string
	new  func(cache ProgramCache, registry *FunctionRegistry) Evaluator
}{
	{
		name: "expr",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			opts := []ExprEvaluatorOption{}
			if cache != nil {
				opts = append(opts, ExprWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, ExprWithFunctionRegistry(registry))
			}
			return NewExprEvaluator(opts...)
		},
	},
	{
		name: "cel",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			opts := []CELEvaluatorOption{}
			if cache != nil {
				opts = append(opts, CELWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, CELWithFunctionRegistry(registry))
			}
			return NewCELEvaluator(opts...)
		},
	},
	{
		name: "js",
		new: func(cache ProgramCache, registry *FunctionRegistry) Evaluator {
			opts := []JSEvaluatorOption{}
			if cache != nil {
				opts = append(opts, JSWithProgramCache(cache))
			}
			if registry != nil {
				opts = append(opts, JSWithFunctionRegistry(registry))
			}
			return NewJSEvaluator(opts...)
		},
	},
}

func TestRuleContextDefaultsNow(t *testing.T) {
	capture := &capturingEvaluator{}
	view := mustView(t, []Layer{
		NewLayer("defaults", Fragment{"flag": true}),
		NewLayer("env", Fragment{}),
	}, WithEvaluator(capture))

	if _, err := view.Evaluate("1 == 1"); err != nil {
		t.Fatalf("unexpected error from Evaluate: %v", err)
	}
	if len(capture.contexts) != 1 {
		t.Fatalf("expected evaluator to receive one context, got %d", len(capture.contexts))
	}
	received := capture.contexts[0]
	if received.Now == nil || received.Now.IsZero() {
		t.Fatalf("expected Evaluate to default RuleContext.Now")
	}
	snapshot, ok := received.Snapshot.(map[string]any)
	if !ok || snapshot["flag"] != true {
		t.Fatalf("expected Evaluate to default the snapshot from the view, got %v", received.Snapshot)
	}
	if len(received.Layers) != 2 || received.Layers[0] != "env" {
		t.Fatalf("expected layer names strongest first, got %v", received.Layers)
	}
	if received.Args == nil || received.Metadata == nil {
		t.Fatalf("expected args and metadata to default to empty maps")
	}

	capture.reset()

	ctx := RuleContext{
		Snapshot: map[string]any{"flag": false},
		Layers:   []string{},
	}
	if _, err := view.EvaluateWith(ctx, "flag"); err != nil {
		t.Fatalf("unexpected error from EvaluateWith: %v", err)
	}
	if len(capture.contexts) != 1 {
		t.Fatalf("expected evaluator to receive one context during EvaluateWith, got %d", len(capture.contexts))
	}
	received = capture.contexts[0]
	if received.Now == nil || received.Now.IsZero() {
		t.Fatalf("expected EvaluateWith to default RuleContext.Now")
	}
	if snapshot := received.Snapshot.(map[string]any); snapshot["flag"] != false {
		t.Fatalf("expected caller snapshot to pass through, got %v", received.Snapshot)
	}
	if len(received.Layers) != 0 {
		t.Fatalf("expected explicit empty layers to pass through, got %v", received.Layers)
	}
}

func TestFeatureRulesFixture(t *testing.T) {
	type expect struct {
		Value bool `json:"value"`
	}
	type testCase struct {
		Name     string         `json:"name"`
		Rule     string         `json:"rule"`
		Override map[string]any `json:"override"`
		Expect   expect         `json:"expect"`
		Notes    string         `json:"notes"`
	}
	type fixture struct {
		Description string         `json:"description"`
		Defaults    map[string]any `json:"defaults"`
		Cases       []testCase     `json:"cases"`
	}

	fx := loadFixture[fixture](t, "feature_rules.json")

	for _, factory := range evaluatorFactories {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			for _, tc := range fx.Cases {
				tc := tc
				t.Run(tc.Name, func(t *testing.T) {
					layers := []Layer{NewLayer("defaults", fx.Defaults)}
					if tc.Override != nil {
						layers = append(layers, NewLayer("override", tc.Override))
					}
					view := mustView(t, layers, WithEvaluator(factory.new(nil, nil)))

					resp, err := view.Evaluate(tc.Rule)
					if err != nil {
						t.Fatalf("unexpected error from Evaluate: %v", err)
					}
					value, ok := resp.Value.(bool)
					if !ok {
						t.Fatalf("expected bool response, got %T", resp.Value)
					}
					if value != tc.Expect.Value {
						t.Fatalf("expected %v, got %v", tc.Expect.Value, value)
					}
				})
			}
		})
	}
}

func TestEvaluatorProgramCache(t *testing.T) {
	type cacheExpect struct {
		Hits   int `json:"hits"`
		Misses int `json:"misses"`
	}
	type cacheCase struct {
		Name       string         `json:"name"`
		Rule       string         `json:"rule"`
		Override   map[string]any `json:"override"`
		Iterations int            `json:"iterations"`
		Expect     cacheExpect    `json:"expect"`
	}
	type cacheFixture struct {
		Description string         `json:"description"`
		Defaults    map[string]any `json:"defaults"`
		Cases       []cacheCase    `json:"cases"`
	}

	fx := loadFixture[cacheFixture](t, "cache_programs.json")

	for _, factory := range evaluatorFactories {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			for _, tc := range fx.Cases {
				tc := tc
				t.Run(tc.Name, func(t *testing.T) {
					cache := &fakeProgramCache{}
					layers := []Layer{NewLayer("defaults", fx.Defaults)}
					if tc.Override != nil {
						layers = append(layers, NewLayer("override", tc.Override))
					}
					view := mustView(t, layers,
						WithEvaluator(factory.new(cache, nil)),
						WithProgramCache(cache),
					)

					for i := 0; i < tc.Iterations; i++ {
						if _, err := view.Evaluate(tc.Rule); err != nil {
							t.Fatalf("unexpected error on iteration %d: %v", i, err)
						}
					}

					if cache.hits != tc.Expect.Hits {
						t.Fatalf("cache hits mismatch, expected %d, got %d", tc.Expect.Hits, cache.hits)
					}
					if cache.misses != tc.Expect.Misses {
						t.Fatalf("cache misses mismatch, expected %d, got %d", tc.Expect.Misses, cache.misses)
					}
				})
			}
		})
	}
}

func TestCustomFunctionsAcrossEvaluators(t *testing.T) {
	type expect struct {
		Value bool `json:"value"`
	}
	type testCase struct {
		Name     string         `json:"name"`
		Rule     string         `json:"rule"`
		Override map[string]any `json:"override"`
		Metadata map[string]any `json:"metadata"`
		Args     map[string]any `json:"args"`
		Expect   expect         `json:"expect"`
	}
	type fixture struct {
		Defaults map[string]any `json:"defaults"`
		Cases    []testCase     `json:"cases"`
	}

	fx := loadFixture[fixture](t, "custom_functions.json")

	for _, factory := range evaluatorFactories {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			registry := NewFunctionRegistry()
			if err := registry.Register("equalsIgnoreCase", func(args ...any) (any, error) {
				if len(args) != 2 {
					return nil, fmt.Errorf("equalsIgnoreCase expects 2 args")
				}
				a, _ := args[0].(string)
				b, _ := args[1].(string)
				return strings.EqualFold(a, b), nil
			}); err != nil {
				t.Fatalf("register equalsIgnoreCase: %v", err)
			}
			if err := registry.Register("hasPrefix", func(args ...any) (any, error) {
				if len(args) != 2 {
					return nil, fmt.Errorf("hasPrefix expects 2 args")
				}
				s, _ := args[0].(string)
				prefix, _ := args[1].(string)
				return strings.HasPrefix(s, prefix), nil
			}); err != nil {
				t.Fatalf("register hasPrefix: %v", err)
			}

			for _, tc := range fx.Cases {
				tc := tc
				t.Run(tc.Name, func(t *testing.T) {
					layers := []Layer{NewLayer("defaults", fx.Defaults)}
					if tc.Override != nil {
						layers = append(layers, NewLayer("override", tc.Override))
					}
					view := mustView(t, layers,
						WithFunctionRegistry(registry),
						WithEvaluator(factory.new(nil, registry)),
					)

					ctx := RuleContext{
						Metadata: tc.Metadata,
						Args:     tc.Args,
					}
					resp, err := view.EvaluateWith(ctx, tc.Rule)
					if err != nil {
						t.Fatalf("unexpected error: %v", err)
					}
					value, ok := resp.Value.(bool)
					if !ok {
						t.Fatalf("expected bool value, got %T", resp.Value)
					}
					if value != tc.Expect.Value {
						t.Fatalf("expected %v, got %v", tc.Expect.Value, value)
					}
				})
			}
		})
	}
}

func TestEvaluateLayersBinding(t *testing.T) {
	for _, factory := range evaluatorFactories {
		factory := factory
		t.Run(factory.name, func(t *testing.T) {
			view := mustView(t, []Layer{
				NewLayer("defaults", Fragment{"flag": true}),
				NewLayer("env", Fragment{}),
			}, WithEvaluator(factory.new(nil, nil)))

			resp, err := view.Evaluate(`layers[0] == "env"`)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.Value != true {
				t.Fatalf("expected the strongest layer name first, got %v", resp.Value)
			}
		})
	}
}

func TestEvaluateEmptyExpression(t *testing.T) {
	view := mustView(t, []Layer{NewLayer("defaults", Fragment{})})

	if _, err := view.Evaluate(""); err == nil || !strings.Contains(err.Error(), "must not be empty") {
		t.Fatalf("expected empty expression rejection, got %v", err)
	}
}

func TestEvaluatorLoggerReceivesEvents(t *testing.T) {
	var events []EvaluatorLogEvent
	view := mustView(t, []Layer{NewLayer("defaults", Fragment{"flag": true})},
		WithEvaluatorLogger(EvaluatorLoggerFunc(func(event EvaluatorLogEvent) {
			events = append(events, event)
		})),
	)

	if _, err := view.Evaluate("flag"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected one log event, got %d", len(events))
	}
	if events[0].Engine != "expr" {
		t.Fatalf("expected the default engine name, got %q", events[0].Engine)
	}
	if events[0].Expr != "flag" || events[0].Err != nil {
		t.Fatalf("unexpected event %+v", events[0])
	}
	if events[0].Duration < 0 {
		t.Fatalf("expected a non-negative duration, got %v", events[0].Duration)
	}

	if _, err := view.Evaluate("flag &&"); err == nil {
		t.Fatalf("expected malformed expression to fail")
	}
	if len(events) != 2 || events[1].Err == nil {
		t.Fatalf("expected the failure to be logged, got %+v", events)
	}
}

func TestCompileReusesPrograms(t *testing.T) {
	cache := NewMemoryProgramCache()
	evaluator := NewExprEvaluator(ExprWithProgramCache(cache))

	rule, err := evaluator.Compile("threshold >= 10.0")
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	now := time.Now()
	value, err := rule.Evaluate(RuleContext{
		Snapshot: map[string]any{"threshold": 12.0},
		Now:      &now,
	})
	if err != nil {
		t.Fatalf("evaluate compiled rule: %v", err)
	}
	if value != true {
		t.Fatalf("expected true, got %v", value)
	}

	below, err := rule.Evaluate(RuleContext{
		Snapshot: map[string]any{"threshold": 3.0},
	})
	if err != nil {
		t.Fatalf("evaluate compiled rule: %v", err)
	}
	if below != false {
		t.Fatalf("expected false, got %v", below)
	}
}

type fakeProgramCache struct {
	store  map[string]any
	hits   int
	misses int
}

func (c *fakeProgramCache) Get(key string) (any, bool) {
	if c.store == nil {
		c.store = make(map[string]any)
	}
	value, ok := c.store[key]
	if ok {
		c.hits++
		return value, true
	}
	c.misses++
	return nil, false
}

func (c *fakeProgramCache) Set(key string, value any) {
	if c.store == nil {
		c.store = make(map[string]any)
	}
	c.store[key] = value
}

type capturingEvaluator struct {
	contexts []RuleContext
}

func (c *capturingEvaluator) Evaluate(ctx RuleContext, _ string) (any, error) {
	c.contexts = append(c.contexts, ctx)
	return true, nil
}

func (c *capturingEvaluator) Compile(string, ...CompileOption) (CompiledRule, error) {
	return nil, fmt.Errorf("capturing evaluator does not support compile")
}

func (c *capturingEvaluator) reset() {
	c.contexts = c.contexts[:0]
}
