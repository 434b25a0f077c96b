package settings

import (
	"errors"
	"fmt"
	"strings"
)

// EvaluationError ties an evaluator failure to the engine and expression
// that produced it.
type EvaluationError struct {
	Engine string
	Expr   string
	Err    error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	expr := "expr=<empty>"
	if e.Expr != "" {
		expr = fmt.Sprintf("expr=%q", e.Expr)
	}
	return fmt.Sprintf("settings: %s evaluator %s: %v", e.Engine, expr, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// wrapEvaluationError attaches engine and expression metadata to err. An
// existing EvaluationError keeps whatever metadata it already carries and
// gains only the fields it is missing.
func wrapEvaluationError(engine, expr string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		if evalErr.Engine == "" {
			evalErr.Engine = engine
		}
		if evalErr.Expr == "" {
			evalErr.Expr = expr
		}
		return evalErr
	}
	return &EvaluationError{Engine: engine, Expr: expr, Err: err}
}

// wrapEvaluatorError labels engine-level failures not tied to a specific
// expression. Errors already carrying the package namespace pass through
// untouched.
func wrapEvaluatorError(engine string, err error) error {
	if err == nil {
		return nil
	}
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}
	if strings.HasPrefix(err.Error(), "settings:") {
		return err
	}
	return fmt.Errorf("settings: %s evaluator: %w", engine, err)
}
