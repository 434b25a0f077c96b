//go:build !js_eval

package settings

// NewJSEvaluator returns nil without the js_eval build tag. A view
// configured with a nil evaluator falls back to the default expr engine,
// so callers can wire the JS engine unconditionally and let the tag decide.
func NewJSEvaluator(opts ...JSEvaluatorOption) Evaluator {
	_ = applyJSEvaluatorOptions(opts)
	return nil
}
