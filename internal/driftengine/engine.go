package driftengine

import (
	"github.com/docsentinel/docsentinel/internal/driftcore"
	"github.com/docsentinel/docsentinel/internal/store"
)

// Enricher optionally augments a pending event with a suggested fix and a
// refined description once it has already been produced by the rule
// evaluators. Enrichment is additive only: it must never change Kind,
// Severity, or the related-chunk sets. No concrete implementation ships
// here -- wiring a language-model collaborator is left to the caller that
// configures one, since doing so safely (auth, rate limits, prompt
// construction) is outside what the rule engine itself is responsible for.
type Enricher interface {
	Enrich(f Finding) (suggestedFix string, description string, err error)
}

// Options configures one Evaluate call.
type Options struct {
	SimilarityThreshold float64
	TopK                int
	Enricher            Enricher // nil disables enrichment
}

// Evaluate runs hard rules then soft rules over the scan's code chunk
// changes, deduplicates against existing (non-terminal-suppressing) events,
// and returns the event rows ready for the store to commit. toRev is
// stamped as created_revision for newly emitted events and updated_revision
// for both new and recurring ones.
func Evaluate(
	changes []CodeChunkChange,
	mentions *MentionIndex,
	docIndex SimilarityIndex,
	docByID map[string]store.DocChunkRow,
	existing []store.EventRow,
	toRev string,
	opts Options,
) ([]store.EventRow, error) {
	findings := evaluateHardRules(changes, mentions)

	softFindings, err := evaluateSoftRules(changes, docIndex, docByID, opts.SimilarityThreshold, opts.TopK)
	if err != nil {
		return nil, err
	}
	findings = append(findings, softFindings...)

	byKey := make(map[string]store.EventRow, len(existing))
	for _, e := range existing {
		byKey[eventDedupKey(e)] = e
	}

	var events []store.EventRow
	for _, f := range findings {
		key := f.DedupKey()
		prior, hasPrior := byKey[key]

		if hasPrior && suppresses(prior, toRev) {
			continue
		}

		e := store.EventRow{
			ID:              driftcore.NewEventID(),
			Kind:            string(f.Rule),
			Severity:        string(f.Severity),
			Confidence:      f.Confidence,
			Description:     f.Description,
			Evidence:        f.Evidence,
			RelatedCode:     f.RelatedCode,
			RelatedDoc:      f.RelatedDoc,
			SuggestedFix:    f.SuggestedFix,
			Status:          store.EventPending,
			CreatedRevision: toRev,
			UpdatedRevision: toRev,
		}
		if hasPrior {
			e.ID = prior.ID
			e.CreatedRevision = prior.CreatedRevision
			// A terminal (Accepted/Fixed) event whose underlying drift
			// recurs goes back to Pending for a fresh review cycle;
			// Ignored events that don't suppress (scoped, outside window)
			// fall through to this branch too and are likewise reopened.
		}

		if opts.Enricher != nil {
			if fix, desc, err := opts.Enricher.Enrich(f); err == nil {
				e.SuggestedFix = fix
				if desc != "" {
					e.Description = desc
				}
			}
		}

		events = append(events, e)
	}

	sortEventsDeterministic(events)
	return events, nil
}

// suppresses reports whether a prior event at the same dedup key should
// prevent a new one from being emitted this scan, per the state machine's
// re-evaluation rule.
func suppresses(prior store.EventRow, toRev string) bool {
	if prior.Status != store.EventIgnored {
		return false
	}
	if prior.IgnorePermanent {
		return true
	}
	// Scoped ignore: suppressed only for scans whose to-revision is the
	// exact commit the ignore was pinned at. Determining true ancestry
	// would require walking the commit graph, which the rule engine has
	// no access to; an exact-match check is the conservative subset of
	// that rule this package can evaluate on its own. See DESIGN.md's
	// "Open Question resolutions" section for the full tradeoff.
	return prior.UpdatedRevision == toRev
}

func eventDedupKey(e store.EventRow) string {
	code := ""
	if len(e.RelatedCode) > 0 {
		code = e.RelatedCode[0]
	}
	doc := ""
	if len(e.RelatedDoc) > 0 {
		doc = e.RelatedDoc[0]
	}
	return e.Kind + "\x00" + code + "\x00" + doc
}

var severityRank = map[string]int{
	string(SeverityCritical): 0,
	string(SeverityHigh):     1,
	string(SeverityMedium):   2,
	string(SeverityLow):      3,
}

// sortEventsDeterministic orders severity descending then id ascending,
// matching the store's own ORDER BY so a freshly committed scan's events
// are already in the order ListEvents will later return them in.
func sortEventsDeterministic(events []store.EventRow) {
	for i := 1; i < len(events); i++ {
		for j := i; j > 0 && eventLess(events[j], events[j-1]); j-- {
			events[j], events[j-1] = events[j-1], events[j]
		}
	}
}

func eventLess(a, b store.EventRow) bool {
	ra, rb := severityRank[a.Severity], severityRank[b.Severity]
	if ra != rb {
		return ra < rb
	}
	return a.ID < b.ID
}
