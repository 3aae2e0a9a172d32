package console

import "go.uber.org/zap"

// Notifier surfaces transient operation results to the operator. Failures
// reported here are non-fatal: the page stays interactive.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

type zapNotifier struct {
	logger *zap.Logger
}

// NewZapNotifier reports notifications through the given logger.
func NewZapNotifier(logger *zap.Logger) Notifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &zapNotifier{logger: logger}
}

func (n *zapNotifier) Success(msg string) {
	n.logger.Info("notification", zap.String("level", "success"), zap.String("message", msg))
}

func (n *zapNotifier) Error(msg string) {
	n.logger.Warn("notification", zap.String("level", "error"), zap.String("message", msg))
}
