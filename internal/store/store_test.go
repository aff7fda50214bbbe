package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), 8)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen_CreatesSchemaAndBootstrapSettings(t *testing.T) {
	s := openTestStore(t)

	version, err := schemaVersion(s.db)
	require.NoError(t, err)
	require.Equal(t, "1", version)

	v, err := s.Setting("last_scan_to")
	require.NoError(t, err)
	require.Equal(t, "", v)
}

func TestOpen_SecondOpenFailsWithStoreLocked(t *testing.T) {
	dir := t.TempDir()
	s1, err := Open(dir, 8)
	require.NoError(t, err)
	defer s1.Close()

	_, err = Open(dir, 8)
	require.Error(t, err)
}

func TestCommit_InsertsNewCodeChunk(t *testing.T) {
	s := openTestStore(t)

	write := ScanWrite{
		Scan: ScanRow{ID: "scan-1", FromRev: "a", ToRev: "b", Mode: "range", StartedAt: "t0"},
		CodeChunks: []CodeChunkRow{
			{Identity: "lib.rs\x00add\x00rust", Path: "lib.rs", QualifiedName: "add", Language: "rust",
				Kind: "function", Visibility: "public", Signature: "add(a, b)", SignatureHash: "h1",
				ContentHash: "c1", LineStart: 1, LineEnd: 3},
		},
	}

	require.NoError(t, s.Commit(write, []string{"lib.rs"}, nil))

	var count int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM code_chunks WHERE identity = ?`, write.CodeChunks[0].Identity).Scan(&count))
	require.Equal(t, 1, count)

	last, err := s.Setting("last_scan_to")
	require.NoError(t, err)
	require.Equal(t, "b", last)
}

func TestCommit_MarksMissingIdentityRemoved(t *testing.T) {
	s := openTestStore(t)

	chunk := CodeChunkRow{Identity: "lib.rs\x00add\x00rust", Path: "lib.rs", QualifiedName: "add",
		Language: "rust", Kind: "function", Visibility: "public", Signature: "add(a, b)",
		SignatureHash: "h1", ContentHash: "c1", LineStart: 1, LineEnd: 3}

	require.NoError(t, s.Commit(ScanWrite{
		Scan:       ScanRow{ID: "scan-1", FromRev: "a", ToRev: "b", Mode: "range", StartedAt: "t0"},
		CodeChunks: []CodeChunkRow{chunk},
	}, []string{"lib.rs"}, nil))

	// Second scan over the same file with no chunks: add() was deleted.
	require.NoError(t, s.Commit(ScanWrite{
		Scan: ScanRow{ID: "scan-2", FromRev: "b", ToRev: "c", Mode: "range", StartedAt: "t1"},
	}, []string{"lib.rs"}, nil))

	var removed string
	require.NoError(t, s.db.QueryRow(
		`SELECT COALESCE(revision_removed, '') FROM code_chunks WHERE identity = ?`, chunk.Identity,
	).Scan(&removed))
	require.Equal(t, "c", removed)
}

func TestCommit_UnchangedContentHashKeepsUpdatedRevision(t *testing.T) {
	s := openTestStore(t)

	chunk := CodeChunkRow{Identity: "lib.rs\x00add\x00rust", Path: "lib.rs", QualifiedName: "add",
		Language: "rust", Kind: "function", Visibility: "public", Signature: "add(a, b)",
		SignatureHash: "h1", ContentHash: "c1", LineStart: 1, LineEnd: 3}

	require.NoError(t, s.Commit(ScanWrite{
		Scan:       ScanRow{ID: "scan-1", FromRev: "a", ToRev: "b", Mode: "range", StartedAt: "t0"},
		CodeChunks: []CodeChunkRow{chunk},
	}, []string{"lib.rs"}, nil))

	require.NoError(t, s.Commit(ScanWrite{
		Scan:       ScanRow{ID: "scan-2", FromRev: "b", ToRev: "c", Mode: "range", StartedAt: "t1"},
		CodeChunks: []CodeChunkRow{chunk},
	}, []string{"lib.rs"}, nil))

	var updated string
	require.NoError(t, s.db.QueryRow(
		`SELECT updated_revision FROM code_chunks WHERE identity = ?`, chunk.Identity,
	).Scan(&updated))
	require.Equal(t, "b", updated, "content hash unchanged, updated_revision should stay at original scan")
}

func TestCommit_OrphanEventRejected(t *testing.T) {
	s := openTestStore(t)

	err := s.Commit(ScanWrite{
		Scan: ScanRow{ID: "scan-1", FromRev: "a", ToRev: "b", Mode: "range", StartedAt: "t0"},
		Events: []EventRow{
			{ID: "evt-1", Kind: "SymbolAdded", Severity: "medium", Confidence: 0.8, Status: EventPending},
		},
	}, nil, nil)
	require.Error(t, err)
}

func TestSetEventStatus_UnknownEventErrors(t *testing.T) {
	s := openTestStore(t)
	err := s.SetEventStatus("does-not-exist", EventIgnored, "stale", false, "b")
	require.Error(t, err)
}

func TestSetEventStatus_TransitionsAndPersists(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Commit(ScanWrite{
		Scan: ScanRow{ID: "scan-1", FromRev: "a", ToRev: "b", Mode: "range", StartedAt: "t0"},
		Events: []EventRow{
			{ID: "evt-1", Kind: "SymbolAdded", Severity: "medium", Confidence: 0.8, Status: EventPending,
				RelatedCode: []string{"lib.rs\x00add\x00rust"}},
		},
	}, nil, nil))

	require.NoError(t, s.SetEventStatus("evt-1", EventIgnored, "not relevant", true, "b"))

	evt, err := s.Event("evt-1")
	require.NoError(t, err)
	require.Equal(t, EventIgnored, evt.Status)
	require.True(t, evt.IgnorePermanent)
	require.Equal(t, "not relevant", evt.IgnoreReason)
}

func TestListEvents_OrdersBySeverityThenID(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Commit(ScanWrite{
		Scan: ScanRow{ID: "scan-1", FromRev: "a", ToRev: "b", Mode: "range", StartedAt: "t0"},
		Events: []EventRow{
			{ID: "evt-b", Kind: "SymbolAdded", Severity: "medium", Confidence: 0.8, Status: EventPending,
				RelatedCode: []string{"x"}},
			{ID: "evt-a", Kind: "SymbolRemoved", Severity: "critical", Confidence: 0.98, Status: EventPending,
				RelatedCode: []string{"x"}},
		},
	}, nil, nil))

	events, err := s.ListEvents(EventPending)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "evt-a", events[0].ID, "critical severity sorts before medium")
}

func TestNearestDocChunks_ReturnsClosestVector(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.Commit(ScanWrite{
		Scan: ScanRow{ID: "scan-1", FromRev: "a", ToRev: "b", Mode: "range", StartedAt: "t0"},
		DocChunks: []DocChunkRow{
			{Identity: "doc1", Path: "README.md", HeadingPath: "Usage", Level: 2, Content: "call add()",
				ContentHash: "d1", LineStart: 1, LineEnd: 2, Embedding: []float32{1, 0, 0, 0, 0, 0, 0, 0}},
			{Identity: "doc2", Path: "README.md", HeadingPath: "Other", Level: 2, Content: "unrelated",
				ContentHash: "d2", LineStart: 3, LineEnd: 4, Embedding: []float32{0, 1, 0, 0, 0, 0, 0, 0}},
		},
	}, nil, []string{"README.md"}))

	results, err := s.NearestDocChunks([]float32{1, 0, 0, 0, 0, 0, 0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "doc1", results[0].Identity)
}
