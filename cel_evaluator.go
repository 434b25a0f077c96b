package settings

import (
	"fmt"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// celEvaluator runs rules through cel-go. CEL requires declared variables,
// so each snapshot shape gets its own environment: every top-level
// snapshot key is declared Dyn alongside the fixed bindings.
type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry
}

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache reuses checked programs across evaluations.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry exposes the registry's functions through the
// call("name", ...) overloads.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

// NewCELEvaluator constructs an Evaluator backed by cel-go.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// celUnit pairs a checked program with the environment it was built in.
type celUnit struct {
	env     *celgo.Env
	program celgo.Program
}

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	ctx = ctx.withDefaultNow().withDefaultMaps()
	snapshot := snapshotBindings(ctx.Snapshot)
	unit, err := e.unit(expression, snapshot)
	if err != nil {
		return nil, err
	}
	out, _, err := unit.program.Eval(e.bindings(ctx, snapshot))
	if err != nil {
		return nil, err
	}
	return out.Value(), nil
}

// Compile defers program construction to evaluation time: the environment
// depends on the snapshot, which Compile does not see.
func (e *celEvaluator) Compile(expression string, _ ...CompileOption) (CompiledRule, error) {
	if expression == "" {
		return nil, fmt.Errorf("expression must not be empty")
	}
	return &celRule{owner: e, expression: expression}, nil
}

// unit fetches or builds the checked program for expression against the
// given snapshot shape.
func (e *celEvaluator) unit(expression string, snapshot Fragment) (*celUnit, error) {
	if e.cache != nil {
		if hit, ok := e.cache.Get(expression); ok {
			if unit, ok := hit.(*celUnit); ok {
				return unit, nil
			}
		}
	}
	env, err := e.environment(snapshot)
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, err
	}
	unit := &celUnit{env: env, program: program}
	if e.cache != nil {
		e.cache.Set(expression, unit)
	}
	return unit, nil
}

func (e *celEvaluator) environment(snapshot Fragment) (*celgo.Env, error) {
	decls := []celgo.EnvOption{
		celgo.Variable("now", celgo.TimestampType),
		celgo.Variable("args", celgo.DynType),
		celgo.Variable("metadata", celgo.DynType),
		celgo.Variable("layers", celgo.ListType(celgo.StringType)),
	}
	for key := range snapshot {
		decls = append(decls, celgo.Variable(key, celgo.DynType))
	}
	if e.registry != nil {
		decls = append(decls, e.callOverloads())
	}
	return celgo.NewEnv(decls...)
}

// maxCallArgs bounds the arity of the registry bridge. CEL overloads carry
// a fixed argument count, so call is declared once per arity up to this
// limit, all overloads sharing one variadic binding.
const maxCallArgs = 4

func (e *celEvaluator) callOverloads() celgo.EnvOption {
	overloads := make([]celgo.FunctionOpt, 0, maxCallArgs+1)
	signature := []*celgo.Type{celgo.StringType}
	for arity := 0; arity <= maxCallArgs; arity++ {
		overloads = append(overloads, celgo.Overload(
			fmt.Sprintf("call_dyn_%d", arity),
			append([]*celgo.Type{}, signature...),
			celgo.DynType,
			celgo.FunctionBinding(e.dispatch),
		))
		signature = append(signature, celgo.DynType)
	}
	return celgo.Function("call", overloads...)
}

// dispatch bridges a CEL call(...) invocation into the function registry.
func (e *celEvaluator) dispatch(values ...ref.Val) ref.Val {
	if e.registry == nil {
		return types.NewErr("settings: function registry not configured")
	}
	if len(values) == 0 {
		return types.NewErr("settings: call requires function name")
	}
	name, ok := values[0].Value().(string)
	if !ok {
		return types.NewErr("settings: call name must be string")
	}
	args := make([]any, 0, len(values)-1)
	for _, val := range values[1:] {
		args = append(args, val.Value())
	}
	result, err := e.registry.Call(name, args...)
	if err != nil {
		return types.NewErr("%s", err.Error())
	}
	if result == nil {
		return types.NullValue
	}
	return types.DefaultTypeAdapter.NativeToValue(result)
}

func (e *celEvaluator) bindings(ctx RuleContext, snapshot Fragment) map[string]any {
	out := map[string]any{
		"now":      ctx.timestamp(),
		"args":     ctx.Args,
		"metadata": ctx.Metadata,
		"layers":   ctx.layersBinding(),
	}
	for key, value := range snapshot {
		out[key] = value
	}
	return out
}

// snapshotBindings normalizes a context snapshot into fragment form; CEL
// only understands the map shape.
func snapshotBindings(value any) Fragment {
	if snapshot, ok := value.(Fragment); ok && snapshot != nil {
		return snapshot
	}
	return Fragment{}
}

// celRule re-resolves the program on every evaluation so the environment
// always matches the snapshot in the incoming context.
type celRule struct {
	owner      *celEvaluator
	expression string
}

func (r *celRule) Evaluate(ctx RuleContext) (any, error) {
	if r.owner == nil {
		return nil, fmt.Errorf("cel compiled rule missing evaluator")
	}
	return r.owner.Evaluate(ctx, r.expression)
}
