package driftcore

import "sync"

// Diagnostics collects the recoverable error classes a scan can produce
// (extraction warnings, embedding provider failures, enrichment failures)
// without aborting the scan itself. Unrecoverable classes (configuration,
// repository, store-transactional errors) are returned directly instead.
type Diagnostics struct {
	mu             sync.Mutex
	ExtractWarns   []*ExtractWarning
	EmbedFailures  []error
	EnrichFailures []error
}

// NewDiagnostics returns an empty diagnostic bundle.
func NewDiagnostics() *Diagnostics {
	return &Diagnostics{}
}

// AddExtractWarning records a per-file parse failure.
func (d *Diagnostics) AddExtractWarning(path string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.ExtractWarns = append(d.ExtractWarns, &ExtractWarning{Path: path, Err: err})
}

// AddEmbedFailure records a provider failure; soft rules degrade for the scan.
func (d *Diagnostics) AddEmbedFailure(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.EmbedFailures = append(d.EmbedFailures, err)
}

// AddEnrichFailure records a language-model enrichment failure.
// The associated event is retained without a suggested fix.
func (d *Diagnostics) AddEnrichFailure(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.EnrichFailures = append(d.EnrichFailures, err)
}

// HasEmbedFailures reports whether any embedding provider call failed during
// the scan; the scan command uses this to report that soft rules degraded.
func (d *Diagnostics) HasEmbedFailures() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.EmbedFailures) > 0
}

// Empty reports whether no recoverable errors were collected.
func (d *Diagnostics) Empty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.ExtractWarns) == 0 && len(d.EmbedFailures) == 0 && len(d.EnrichFailures) == 0
}
