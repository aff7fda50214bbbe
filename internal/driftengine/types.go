// Package driftengine evaluates the hard and soft drift rules over a scan's
// reconciled code and doc chunks, producing the event set the store commits.
package driftengine

import "github.com/docsentinel/docsentinel/internal/store"

// Rule names the specific check that produced an event. These correspond
// 1:1 with the kind column events are stored under.
type Rule string

const (
	RuleSignatureChanged Rule = "SignatureChanged"
	RuleSymbolRemoved     Rule = "SymbolRemoved"
	RuleSymbolAdded       Rule = "SymbolAdded"
	RuleParamCountChanged Rule = "ParamCountChanged"
	RuleLowSimilarity     Rule = "LowSimilarity"
	RuleSimilarityDrop    Rule = "SimilarityDrop"
)

// Severity mirrors the four-level scale the store's events.severity column
// and deterministic ordering are built around.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// CodeChunkChange describes one code chunk's identity-reconciled state for
// this scan: whether it is new, removed, or present in both revisions (in
// which case Previous is populated so rules can diff against it).
type CodeChunkChange struct {
	Identity string
	Current  *store.CodeChunkRow // nil if removed this scan
	Previous *store.CodeChunkRow // nil if newly added this scan
}

// Added reports whether this chunk is new in the current scan.
func (c CodeChunkChange) Added() bool { return c.Previous == nil && c.Current != nil }

// Removed reports whether this chunk disappeared in the current scan.
func (c CodeChunkChange) Removed() bool { return c.Current == nil && c.Previous != nil }

// Changed reports whether the chunk exists in both revisions with a
// different content hash.
func (c CodeChunkChange) Changed() bool {
	return c.Current != nil && c.Previous != nil && c.Current.ContentHash != c.Previous.ContentHash
}

// Finding is an engine-internal candidate event, before it is assigned a
// stable ID and merged against any existing event with the same dedup key.
type Finding struct {
	Rule         Rule
	Severity     Severity
	Confidence   float64
	Description  string
	Evidence     string
	RelatedCode  []string
	RelatedDoc   []string
	SuggestedFix string
}

// DedupKey is the identity an event is deduplicated on across scans:
// (rule, related code identity, related doc identity). Re-detecting the
// same drift updates the existing event's evidence rather than duplicating
// it; a drift that stops reproducing leaves its event for the caller to
// resolve (the engine never auto-closes events).
func (f Finding) DedupKey() string {
	code := ""
	if len(f.RelatedCode) > 0 {
		code = f.RelatedCode[0]
	}
	doc := ""
	if len(f.RelatedDoc) > 0 {
		doc = f.RelatedDoc[0]
	}
	return string(f.Rule) + "\x00" + code + "\x00" + doc
}
