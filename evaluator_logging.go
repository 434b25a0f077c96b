package settings

import "time"

// EvaluatorLogger observes expression evaluations. A single method, a func
// adapter, and a silent default keep the module free of any logging
// framework; callers bridge to whatever stack they carry.
type EvaluatorLogger interface {
	LogEvaluation(EvaluatorLogEvent)
}

// EvaluatorLogEvent describes one evaluation attempt, successful or not.
type EvaluatorLogEvent struct {
	Engine   string
	Expr     string
	Duration time.Duration
	Err      error
}

// EvaluatorLoggerFunc adapts a plain function to EvaluatorLogger.
type EvaluatorLoggerFunc func(EvaluatorLogEvent)

// LogEvaluation implements EvaluatorLogger.
func (f EvaluatorLoggerFunc) LogEvaluation(event EvaluatorLogEvent) {
	if f != nil {
		f(event)
	}
}

type noopEvaluatorLogger struct{}

func (noopEvaluatorLogger) LogEvaluation(EvaluatorLogEvent) {}

// WithEvaluatorLogger installs logger on the view; nil restores the silent
// default.
func WithEvaluatorLogger(logger EvaluatorLogger) Option {
	return func(cfg *config) {
		if logger == nil {
			cfg.logger = noopEvaluatorLogger{}
			return
		}
		cfg.logger = logger
	}
}
