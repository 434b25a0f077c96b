package settings

import (
	"fmt"

	exprlang "github.com/expr-lang/expr"
	exprvm "github.com/expr-lang/expr/vm"
)

// exprEvaluator is the default engine, backed by expr-lang/expr. Rules run
// against a flat binding set: the snapshot's top-level keys, the
// now/args/metadata bindings, the layer lineup, and any registered custom
// functions.
type exprEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// ExprEvaluatorOption configures an expr evaluator instance.
type ExprEvaluatorOption func(*exprEvaluator)

// ExprWithProgramCache reuses compiled programs across evaluations.
func ExprWithProgramCache(cache ProgramCache) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		e.cache = cache
	}
}

// ExprWithFunctionRegistry exposes the registry's functions to rules, both
// by name and through call("name", ...).
func ExprWithFunctionRegistry(registry *FunctionRegistry) ExprEvaluatorOption {
	return func(e *exprEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

// NewExprEvaluator constructs an Evaluator backed by expr-lang/expr.
func NewExprEvaluator(opts ...ExprEvaluatorOption) Evaluator {
	e := &exprEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Evaluate runs expression against ctx. Without a cache the expression is
// evaluated directly; with one, the compiled program is fetched or built
// first.
func (e *exprEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("expr", fmt.Errorf("expression must not be empty"))
	}
	ctx = ctx.withDefaultNow().withDefaultMaps()
	env := e.bindings(ctx)
	if e.cache == nil {
		result, err := exprlang.Eval(expression, env)
		if err != nil {
			return nil, wrapEvaluationError("expr", expression, err)
		}
		return result, nil
	}
	program, err := e.compiled(expression)
	if err != nil {
		return nil, err
	}
	result, err := exprlang.Run(program, env)
	if err != nil {
		return nil, wrapEvaluationError("expr", expression, err)
	}
	return result, nil
}

// Compile builds a reusable rule for expression.
func (e *exprEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("expr", fmt.Errorf("expression must not be empty"))
	}
	program, err := e.compiled(expression)
	if err != nil {
		return nil, err
	}
	return &exprProgram{owner: e, expression: expression, program: program}, nil
}

// compiled fetches or builds the program for expression. Compilation
// declares the registry functions up front and tolerates undefined
// variables, since the binding set depends on whichever snapshot is
// present at run time.
func (e *exprEvaluator) compiled(expression string) (*exprvm.Program, error) {
	if e.cache != nil {
		if hit, ok := e.cache.Get(expression); ok {
			if program, ok := hit.(*exprvm.Program); ok {
				return program, nil
			}
		}
	}
	options := []exprlang.Option{
		exprlang.Env(map[string]any{}),
		exprlang.AllowUndefinedVariables(),
	}
	if e.registry != nil {
		for _, name := range e.registry.Names() {
			fn := name
			options = append(options, exprlang.Function(fn, func(arguments ...any) (any, error) {
				return e.registry.Call(fn, arguments...)
			}))
		}
	}
	program, err := exprlang.Compile(expression, options...)
	if err != nil {
		return nil, wrapEvaluationError("expr", expression, err)
	}
	if e.cache != nil {
		e.cache.Set(expression, program)
	}
	return program, nil
}

// bindings assembles the expression environment. Snapshot keys spread at
// the top level, so rules read features.newUI rather than
// snapshot.features.newUI.
func (e *exprEvaluator) bindings(ctx RuleContext) map[string]any {
	env := map[string]any{
		"now":      ctx.timestamp(),
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
	}
	if layers := ctx.layersBinding(); layers != nil {
		env["layers"] = layers
	}
	if snapshot, ok := ctx.Snapshot.(Fragment); ok {
		for key, value := range snapshot {
			env[key] = value
		}
	}
	if e.registry != nil {
		env["call"] = func(name string, arguments ...any) (any, error) {
			return e.registry.Call(name, arguments...)
		}
		for _, name := range e.registry.Names() {
			fn := name
			env[fn] = func(arguments ...any) (any, error) {
				return e.registry.Call(fn, arguments...)
			}
		}
	}
	return env
}

// exprProgram is a CompiledRule bound to the evaluator that built it.
type exprProgram struct {
	owner      *exprEvaluator
	expression string
	program    *exprvm.Program
}

func (p *exprProgram) Evaluate(ctx RuleContext) (any, error) {
	if p.owner == nil {
		return nil, wrapEvaluatorError("expr", fmt.Errorf("compiled rule missing evaluator"))
	}
	ctx = ctx.withDefaultNow().withDefaultMaps()
	if p.program == nil {
		return p.owner.Evaluate(ctx, p.expression)
	}
	result, err := exprlang.Run(p.program, p.owner.bindings(ctx))
	if err != nil {
		return nil, wrapEvaluationError("expr", p.expression, err)
	}
	return result, nil
}
