//go:build js_eval

package settings

import (
	"fmt"

	"github.com/dop251/goja"
)

// jsEvaluator runs rules on a fresh goja runtime per evaluation so scripts
// cannot leak state between runs. Expressions are wrapped in an IIFE, so
// bare expressions and multi-statement bodies both produce a value.
type jsEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// NewJSEvaluator constructs an Evaluator backed by goja. Requires the
// js_eval build tag.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	cfg := applyJSEvaluatorOptions(opts)
	return &jsEvaluator{cache: cfg.cache, registry: cfg.registry}
}

func (e *jsEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	program, err := e.program(expression)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, program)
}

func (e *jsEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	program, err := e.program(expression)
	if err != nil {
		return nil, err
	}
	return &jsRule{owner: e, program: program}, nil
}

// program compiles expression, consulting the cache when one is
// configured.
func (e *jsEvaluator) program(expression string) (*goja.Program, error) {
	if e.cache != nil {
		if hit, ok := e.cache.Get(expression); ok {
			if program, ok := hit.(*goja.Program); ok {
				return program, nil
			}
		}
	}
	program, err := goja.Compile("", wrapJSExpression(expression), false)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Set(expression, program)
	}
	return program, nil
}

func (e *jsEvaluator) run(ctx RuleContext, program *goja.Program) (any, error) {
	ctx = ctx.withDefaultNow().withDefaultMaps()
	vm := goja.New()
	e.bind(vm, ctx)
	value, err := vm.RunProgram(program)
	if err != nil {
		return nil, err
	}
	return value.Export(), nil
}

// bind installs the rule context on the runtime: fixed bindings, snapshot
// keys at the top level, and the registry bridge.
func (e *jsEvaluator) bind(vm *goja.Runtime, ctx RuleContext) {
	vm.Set("now", ctx.timestamp())
	vm.Set("args", ctx.Args)
	vm.Set("metadata", ctx.Metadata)
	if layers := ctx.layersBinding(); layers != nil {
		vm.Set("layers", layers)
	}
	if snapshot, ok := ctx.Snapshot.(Fragment); ok {
		for key, value := range snapshot {
			vm.Set(key, value)
		}
	}
	if e.registry == nil {
		return
	}
	vm.Set("call", func(name string, arguments ...any) (any, error) {
		return e.registry.Call(name, arguments...)
	})
	for _, name := range e.registry.Names() {
		fn := name
		vm.Set(fn, func(arguments ...any) (any, error) {
			return e.registry.Call(fn, arguments...)
		})
	}
}

func wrapJSExpression(expression string) string {
	return fmt.Sprintf("(function(){ return (%s); })()", expression)
}

// jsRule is a CompiledRule carrying a precompiled goja program.
type jsRule struct {
	owner   *jsEvaluator
	program *goja.Program
}

func (r *jsRule) Evaluate(ctx RuleContext) (any, error) {
	if r.owner == nil {
		return nil, fmt.Errorf("js compiled rule missing evaluator")
	}
	return r.owner.run(ctx, r.program)
}
