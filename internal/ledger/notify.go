package ledger

import "go.uber.org/zap"

// Notify runs a cross-engine notification with fire-and-forget semantics: the
// primary operation's effects must persist no matter what happens downstream,
// so errors and panics from fn are logged and discarded. Every best-effort
// call site in the system goes through here to keep the contract visible.
func Notify(logger *zap.SugaredLogger, op string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorw("downstream notification panicked", "op", op, "panic", r)
		}
	}()
	if err := fn(); err != nil {
		logger.Warnw("downstream notification failed", "op", op, "error", err)
	}
}
