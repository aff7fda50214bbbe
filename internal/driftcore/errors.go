// Package driftcore holds types and errors shared across the drift-detection
// subsystems (walker, extractors, embedding index, store, engine) so that no
// package needs to import another just to report a failure in its terms.
package driftcore

import "errors"

// Sentinel errors for the taxonomy in the design's error-handling section.
// Callers compare with errors.Is; wrapped errors keep the underlying cause.
var (
	// ErrRepoNotFound is returned by the walker when no version-control
	// metadata is present at the requested root.
	ErrRepoNotFound = errors.New("driftcore: repository not found")

	// ErrBadRange is returned when a commit-range endpoint cannot be resolved.
	ErrBadRange = errors.New("driftcore: unresolvable commit range")

	// ErrReadBlob is returned when a blob cannot be retrieved from the
	// object database.
	ErrReadBlob = errors.New("driftcore: failed to read blob")

	// ErrStoreLocked is returned when a second writer attempts to open the
	// store while another holds the advisory write lock.
	ErrStoreLocked = errors.New("driftcore: store is locked by another writer")

	// ErrDimensionMismatch is returned when an embedding's dimension does
	// not match the store's configured dimension.
	ErrDimensionMismatch = errors.New("driftcore: embedding dimension mismatch")

	// ErrOrphanEvent is returned when an event would reference zero chunks.
	ErrOrphanEvent = errors.New("driftcore: event must reference at least one chunk")

	// ErrEventNotFound is returned by store lookups for an unknown event id.
	ErrEventNotFound = errors.New("driftcore: event not found")

	// ErrInvalidConfig is returned for malformed glob patterns, unsupported
	// providers, and other configuration-shape problems.
	ErrInvalidConfig = errors.New("driftcore: invalid configuration")

	// ErrUnsupportedExt is returned when a code chunk extractor has no
	// registered language for a file's extension.
	ErrUnsupportedExt = errors.New("driftcore: unsupported file extension")
)

// ExtractWarning is a non-fatal diagnostic produced when a single file fails
// to parse. Extraction continues for the rest of the scan; warnings are
// collected into the scan's diagnostic bundle.
type ExtractWarning struct {
	Path string
	Err  error
}

func (w *ExtractWarning) Error() string {
	return "extract warning: " + w.Path + ": " + w.Err.Error()
}

func (w *ExtractWarning) Unwrap() error { return w.Err }
