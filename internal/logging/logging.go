// Package logging provides the terse, unstructured operational logging used
// across the scan pipeline: a thin wrapper over the standard library log
// package, matching the plain log.Printf/log.Println calls the teacher's
// internal/indexer and internal/daemon packages make directly, rather than
// introducing a structured logging library nothing else in the tree uses.
package logging

import "log"

// Printf logs a formatted operational message.
func Printf(format string, args ...any) {
	log.Printf(format, args...)
}

// Println logs a plain operational message.
func Println(args ...any) {
	log.Println(args...)
}

// Warnf logs a recoverable-error message in the "Warning: ..." shape the
// teacher's indexer and daemon packages use for non-fatal problems.
func Warnf(format string, args ...any) {
	log.Printf("Warning: "+format, args...)
}
