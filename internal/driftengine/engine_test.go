package driftengine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/docsentinel/docsentinel/internal/embedindex"
	"github.com/docsentinel/docsentinel/internal/store"
)

func mustMentionIndex(t *testing.T, docs []store.DocChunkRow) *MentionIndex {
	t.Helper()
	idx, err := NewMentionIndex(docs)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

// S1 from the scenario table: a widened signature on a documented function
// produces exactly one SignatureChanged event, High/0.95, with both
// signatures in the evidence.
func TestEvaluate_SignatureChangedOnDocumentedFunction(t *testing.T) {
	prev := store.CodeChunkRow{
		Identity: "lib.rs\x00add\x00rust", QualifiedName: "add",
		Signature: "add(a: i32, b: i32) -> i32", SignatureHash: "h-old",
	}
	cur := store.CodeChunkRow{
		Identity: "lib.rs\x00add\x00rust", QualifiedName: "add",
		Signature: "add(a: i64, b: i64, overflow: bool) -> i64", SignatureHash: "h-new",
	}
	docs := []store.DocChunkRow{
		{Identity: "api.md\x00add", Path: "api.md", HeadingPath: "add", Content: "add(a, b) sums two numbers"},
	}
	mentions := mustMentionIndex(t, docs)

	events, err := Evaluate(
		[]CodeChunkChange{{Identity: cur.Identity, Current: &cur, Previous: &prev}},
		mentions, embedindex.NewIndex(), map[string]store.DocChunkRow{}, nil, "rev2",
		Options{SimilarityThreshold: 0.7, TopK: 5},
	)
	require.NoError(t, err)

	var sigChanged []store.EventRow
	for _, e := range events {
		if e.Kind == string(RuleSignatureChanged) {
			sigChanged = append(sigChanged, e)
		}
	}
	require.Len(t, sigChanged, 1)
	require.Equal(t, "high", sigChanged[0].Severity)
	require.Equal(t, 0.95, sigChanged[0].Confidence)
	require.Contains(t, sigChanged[0].Evidence, prev.Signature)
	require.Contains(t, sigChanged[0].Evidence, cur.Signature)

	var paramChanged []store.EventRow
	for _, e := range events {
		if e.Kind == string(RuleParamCountChanged) {
			paramChanged = append(paramChanged, e)
		}
	}
	require.Len(t, paramChanged, 1, "param count also changed from 2 to 3")
	require.Equal(t, "high", paramChanged[0].Severity, "doc mentions exist so ParamCountChanged is not demoted")
}

// S2: removing a documented function produces exactly one Critical
// SymbolRemoved event.
func TestEvaluate_SymbolRemovedStillDocumented(t *testing.T) {
	prev := store.CodeChunkRow{
		Identity: "lib.rs\x00obsolete\x00rust", QualifiedName: "obsolete",
		Signature: "obsolete() -> ()", SignatureHash: "h1",
	}
	docs := []store.DocChunkRow{
		{Identity: "api.md\x00obsolete", Path: "api.md", HeadingPath: "obsolete", Content: "call obsolete() before shutdown"},
	}
	mentions := mustMentionIndex(t, docs)

	events, err := Evaluate(
		[]CodeChunkChange{{Identity: prev.Identity, Current: nil, Previous: &prev}},
		mentions, embedindex.NewIndex(), map[string]store.DocChunkRow{}, nil, "rev2",
		Options{SimilarityThreshold: 0.7, TopK: 5},
	)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, string(RuleSymbolRemoved), events[0].Kind)
	require.Equal(t, "critical", events[0].Severity)
	require.Equal(t, 0.98, events[0].Confidence)
}

// A net-new, undocumented symbol yields one Medium SymbolAdded event.
func TestEvaluate_SymbolAddedUndocumented(t *testing.T) {
	cur := store.CodeChunkRow{
		Identity: "lib.rs\x00helper\x00rust", QualifiedName: "helper",
		Signature: "helper() -> ()", SignatureHash: "h1",
		Embedding: []float32{1, 0, 0, 0},
	}
	docIndex := embedindex.NewIndex()
	docIndex.AddVector("doc1", []float32{0, 1, 0, 0})
	docByID := map[string]store.DocChunkRow{
		"doc1": {Identity: "doc1", Path: "api.md", HeadingPath: "Other", Content: "unrelated"},
	}

	events, err := Evaluate(
		[]CodeChunkChange{{Identity: cur.Identity, Current: &cur, Previous: nil}},
		mustMentionIndex(t, nil), docIndex, docByID, nil, "rev2",
		Options{SimilarityThreshold: 0.7, TopK: 5},
	)
	require.NoError(t, err)

	var kinds []string
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	require.Contains(t, kinds, string(RuleSymbolAdded))
	require.Contains(t, kinds, string(RuleLowSimilarity), "orthogonal embedding means low similarity to the nearest doc chunk")
}

func TestEvaluate_SimilarityDropOnContentChange(t *testing.T) {
	prev := store.CodeChunkRow{
		Identity: "lib.rs\x00add\x00rust", QualifiedName: "add",
		Signature: "add(a, b)", SignatureHash: "h1", ContentHash: "c-old",
		Embedding: []float32{1, 0, 0, 0},
	}
	cur := store.CodeChunkRow{
		Identity: "lib.rs\x00add\x00rust", QualifiedName: "add",
		Signature: "add(a, b)", SignatureHash: "h1", ContentHash: "c-new",
		Embedding: []float32{0, 1, 0, 0},
	}
	docIndex := embedindex.NewIndex()
	docIndex.AddVector("doc1", []float32{1, 0, 0, 0})
	docByID := map[string]store.DocChunkRow{
		"doc1": {Identity: "doc1", Path: "api.md", HeadingPath: "add", Content: "add(a, b)"},
	}

	events, err := Evaluate(
		[]CodeChunkChange{{Identity: cur.Identity, Current: &cur, Previous: &prev}},
		mustMentionIndex(t, []store.DocChunkRow{docByID["doc1"]}), docIndex, docByID, nil, "rev2",
		Options{SimilarityThreshold: 0.0, TopK: 5},
	)
	require.NoError(t, err)

	var dropFound bool
	for _, e := range events {
		if e.Kind == string(RuleSimilarityDrop) {
			dropFound = true
			require.Equal(t, "medium", e.Severity)
		}
	}
	require.True(t, dropFound)
}

func TestEvaluate_PermanentlyIgnoredEventNotReemitted(t *testing.T) {
	prev := store.CodeChunkRow{
		Identity: "lib.rs\x00obsolete\x00rust", QualifiedName: "obsolete",
		Signature: "obsolete() -> ()", SignatureHash: "h1",
	}
	docs := []store.DocChunkRow{
		{Identity: "api.md\x00obsolete", Path: "api.md", HeadingPath: "obsolete", Content: "call obsolete()"},
	}
	existing := []store.EventRow{
		{ID: "evt-1", Kind: string(RuleSymbolRemoved), Status: store.EventIgnored, IgnorePermanent: true,
			RelatedCode: []string{prev.Identity}, RelatedDoc: []string{"api.md\x00obsolete"}},
	}

	events, err := Evaluate(
		[]CodeChunkChange{{Identity: prev.Identity, Current: nil, Previous: &prev}},
		mustMentionIndex(t, docs), embedindex.NewIndex(), map[string]store.DocChunkRow{}, existing, "rev3",
		Options{SimilarityThreshold: 0.7, TopK: 5},
	)
	require.NoError(t, err)
	require.Empty(t, events, "permanently ignored drift must never re-emit")
}

func TestEvaluate_OrderedSeverityThenID(t *testing.T) {
	events := []store.EventRow{
		{ID: "z", Severity: "medium"},
		{ID: "a", Severity: "critical"},
		{ID: "b", Severity: "critical"},
	}
	sortEventsDeterministic(events)
	require.Equal(t, []string{"a", "b", "z"}, []string{events[0].ID, events[1].ID, events[2].ID})
}
