package docsentinel_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/docsentinel/docsentinel/docsentinel"
	"github.com/docsentinel/docsentinel/internal/store"
	"github.com/docsentinel/docsentinel/internal/walker"
)

// testRepo wraps a throwaway git repository, mirroring the walker package's
// own integration-test fixture so a Scan can be driven against a real
// working tree rather than a mocked one.
type testRepo struct {
	t      *testing.T
	dir    string
	repo   *git.Repository
	author *object.Signature
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
	// The mock provider's hash-derived vectors bear no relation to meaning
	// (add and its "## add" section come out below 0.7 similar), so the
	// soft-rule threshold is zeroed to keep LowSimilarity out of these
	// hard-rule event counts.
	t.Setenv("DOCSENTINEL_SIMILARITY_THRESHOLD", "0")
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	return &testRepo{
		t:    t,
		dir:  dir,
		repo: repo,
		author: &object.Signature{
			Name:  "Test",
			Email: "test@example.com",
			When:  time.Now(),
		},
	}
}

func (r *testRepo) write(path, content string) {
	r.t.Helper()
	full := filepath.Join(r.dir, path)
	require.NoError(r.t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(r.t, os.WriteFile(full, []byte(content), 0o644))
}

func (r *testRepo) commit(msg string) string {
	r.t.Helper()
	wt, err := r.repo.Worktree()
	require.NoError(r.t, err)
	_, err = wt.Add(".")
	require.NoError(r.t, err)
	hash, err := wt.Commit(msg, &git.CommitOptions{Author: r.author})
	require.NoError(r.t, err)
	return hash.String()
}

// TestScan_SignatureChangeAgainstDocumentedFunction drives two scans over a
// commit that widens a documented function's signature and checks that the
// second scan flags it against the still-describing documentation.
func TestScan_SignatureChangeAgainstDocumentedFunction(t *testing.T) {
	r := newTestRepo(t)
	r.write("lib.rs", "pub fn add(a: i32, b: i32) -> i32 { a + b }\n")
	r.write("docs/api.md", "## add\n\nAdds two numbers together. Takes two parameters.\n")
	from := r.commit("initial")

	session, err := docsentinel.Init(r.dir)
	require.NoError(t, err)
	defer session.Close()

	ctx := context.Background()

	_, _, err = session.Scan(ctx, walker.Request{Mode: walker.ModeFull, To: from}, docsentinel.ScanOptions{})
	require.NoError(t, err)

	seeded, err := session.Events("")
	require.NoError(t, err)
	require.Empty(t, seeded, "a symbol and its documentation arriving together should not be flagged as undocumented")

	r.write("lib.rs", "pub fn add(a: i64, b: i64, overflow: bool) -> i64 { a + b }\n")
	to := r.commit("widen add")

	scan, _, err := session.Scan(ctx, walker.Request{Mode: walker.ModeRange, From: from, To: to}, docsentinel.ScanOptions{})
	require.NoError(t, err)
	require.Equal(t, to, scan.ToRev)

	events, err := session.Events("")
	require.NoError(t, err)
	require.Len(t, events, 2)

	byKind := map[string]store.EventRow{}
	for _, e := range events {
		byKind[e.Kind] = e
	}

	sigChanged, ok := byKind["SignatureChanged"]
	require.True(t, ok, "expected a SignatureChanged event, got %+v", events)
	require.Equal(t, "high", sigChanged.Severity)
	require.InDelta(t, 0.95, sigChanged.Confidence, 0.0001)
	require.Equal(t, store.EventPending, sigChanged.Status)

	paramChanged, ok := byKind["ParamCountChanged"]
	require.True(t, ok, "expected a ParamCountChanged event, got %+v", events)
	require.Equal(t, "high", paramChanged.Severity)
}

// TestScan_RescanIsIdempotent checks that re-running the same scan range a
// second time reconciles onto the same events rather than duplicating them.
func TestScan_RescanIsIdempotent(t *testing.T) {
	r := newTestRepo(t)
	r.write("lib.rs", "pub fn add(a: i32, b: i32) -> i32 { a + b }\n")
	r.write("docs/api.md", "## add\n\nAdds two numbers together.\n")
	from := r.commit("initial")

	session, err := docsentinel.Init(r.dir)
	require.NoError(t, err)
	defer session.Close()

	ctx := context.Background()

	_, _, err = session.Scan(ctx, walker.Request{Mode: walker.ModeFull, To: from}, docsentinel.ScanOptions{})
	require.NoError(t, err)

	r.write("lib.rs", "pub fn add(a: i64, b: i64, overflow: bool) -> i64 { a + b }\n")
	to := r.commit("widen add")

	_, _, err = session.Scan(ctx, walker.Request{Mode: walker.ModeRange, From: from, To: to}, docsentinel.ScanOptions{})
	require.NoError(t, err)

	first, err := session.Events("")
	require.NoError(t, err)
	require.Len(t, first, 2)
	firstIDs := map[string]bool{}
	for _, e := range first {
		firstIDs[e.ID] = true
	}

	_, _, err = session.Scan(ctx, walker.Request{Mode: walker.ModeRange, From: from, To: to}, docsentinel.ScanOptions{})
	require.NoError(t, err)

	second, err := session.Events("")
	require.NoError(t, err)
	require.Len(t, second, 2, "rescanning the same range must not duplicate events")
	for _, e := range second {
		require.True(t, firstIDs[e.ID], "rescan should reuse existing event ids, got new id %s", e.ID)
	}
}

// TestScan_SymbolRemovedWhileStillDocumented checks the critical-severity
// removal rule fires once a documented symbol disappears from the code.
func TestScan_SymbolRemovedWhileStillDocumented(t *testing.T) {
	r := newTestRepo(t)
	r.write("lib.rs", "pub fn add(a: i32, b: i32) -> i32 { a + b }\n")
	r.write("docs/api.md", "## add\n\nAdds two numbers together.\n")
	from := r.commit("initial")

	session, err := docsentinel.Init(r.dir)
	require.NoError(t, err)
	defer session.Close()

	ctx := context.Background()

	_, _, err = session.Scan(ctx, walker.Request{Mode: walker.ModeFull, To: from}, docsentinel.ScanOptions{})
	require.NoError(t, err)

	r.write("lib.rs", "fn helper() -> i32 { 0 }\n")
	to := r.commit("remove add")

	_, _, err = session.Scan(ctx, walker.Request{Mode: walker.ModeRange, From: from, To: to}, docsentinel.ScanOptions{})
	require.NoError(t, err)

	events, err := session.Events("")
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, "SymbolRemoved", events[0].Kind)
	require.Equal(t, "critical", events[0].Severity)
}

// TestScan_RangeWithNoPriorScanFallsBackToFull checks that a range scan with
// no explicit --from and no recorded last_scan_to runs as a full scan
// instead of failing with a bad-range error.
func TestScan_RangeWithNoPriorScanFallsBackToFull(t *testing.T) {
	r := newTestRepo(t)
	r.write("lib.rs", "pub fn add(a: i32, b: i32) -> i32 { a + b }\n")
	r.write("docs/api.md", "## add\n\nAdds two numbers together.\n")
	head := r.commit("initial")

	session, err := docsentinel.Init(r.dir)
	require.NoError(t, err)
	defer session.Close()

	ctx := context.Background()

	scan, _, err := session.Scan(ctx, walker.Request{Mode: walker.ModeRange}, docsentinel.ScanOptions{})
	require.NoError(t, err, "a range scan with nothing to diff against should fall back to a full scan rather than error")
	require.Equal(t, "full", scan.Mode)
	require.Equal(t, head, scan.ToRev)
	require.Empty(t, scan.FromRev)

	chunks, err := session.Events("")
	require.NoError(t, err)
	require.Empty(t, chunks, "a symbol and its documentation arriving together should not be flagged as undocumented")
}
