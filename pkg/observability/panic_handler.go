package observability

import (
	"runtime/debug"
)

// RecoverPanic recovers a panic and logs it with the stack trace. Intended
// for defer at the top of goroutines that must not take the process down:
//
//	defer observability.RecoverPanic(logger, "blacklist sweep")
//
// The panic is swallowed after logging, so the goroutine exits normally.
func RecoverPanic(logger *Logger, context string) {
	if r := recover(); r != nil {
		logger.WithFields(map[string]interface{}{
			"panic":   r,
			"context": context,
			"stack":   string(debug.Stack()),
		}).Error("Recovered from panic")
	}
}
