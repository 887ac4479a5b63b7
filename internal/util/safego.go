// safego.go — Panic isolation for callbacks and background goroutines.
// Instrumentation must never crash the host, so subscriber callbacks and
// relay workers run behind a recover that logs and continues.
package util

import (
	"runtime/debug"

	log "github.com/sirupsen/logrus"
)

// SafeCall runs fn and recovers any panic, logging it with the given label.
// Returns true when fn panicked.
func SafeCall(logger *log.Entry, label string, fn func()) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			if logger != nil {
				logger.WithFields(log.Fields{
					"callback": label,
					"panic":    r,
					"stack":    string(debug.Stack()),
				}).Error("recovered panic in callback")
			}
		}
	}()
	fn()
	return false
}

// SafeGo launches fn in a goroutine with deferred panic recovery.
// Background panics are logged, never re-raised.
func SafeGo(logger *log.Entry, label string, fn func()) {
	go SafeCall(logger, label, fn)
}
