package walker

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

// testRepo wraps a throwaway git repository for walker tests, in the style
// of the teacher's own integration-test fixtures that drive a real tool
// against a real temp directory rather than mocking it.
type testRepo struct {
	t      *testing.T
	dir    string
	repo   *git.Repository
	author *object.Signature
}

func newTestRepo(t *testing.T) *testRepo {
	t.Helper()
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

func (r *testRepo) remove(path string) {
	r.t.Helper()
	require.NoError(r.t, os.Remove(filepath.Join(r.dir, path)))
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

func testClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewClassifier(
		[]string{"**/*.rs", "**/*.py"},
		[]string{"**/*.md"},
		[]string{"target/**"},
	)
	require.NoError(t, err)
	return c
}

func TestWalkRange_SignatureChangeDetected(t *testing.T) {
	r := newTestRepo(t)
	r.write("lib.rs", "pub fn add(a: i32, b: i32) -> i32 { a + b }\n")
	from := r.commit("initial")

	r.write("lib.rs", "pub fn add(a: i64, b: i64, overflow: bool) -> i64 { a + b }\n")
	to := r.commit("widen add")

	w, err := Open(r.dir, testClassifier(t))
	require.NoError(t, err)

	changes, err := w.Walk(Request{Mode: ModeRange, From: from, To: to})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, Modified, changes[0].Kind)
	require.Equal(t, "lib.rs", changes[0].Path)
	require.Equal(t, ClassCode, changes[0].Class)
}

func TestWalkRange_Deletion(t *testing.T) {
	r := newTestRepo(t)
	r.write("old.py", "def obsolete():\n    pass\n")
	from := r.commit("add obsolete")

	r.remove("old.py")
	to := r.commit("remove obsolete")

	w, err := Open(r.dir, testClassifier(t))
	require.NoError(t, err)

	changes, err := w.Walk(Request{Mode: ModeRange, From: from, To: to})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, Deleted, changes[0].Kind)
}

func TestWalkRange_Rename(t *testing.T) {
	r := newTestRepo(t)
	r.write("a.py", "def keep():\n    return 1\n")
	from := r.commit("initial")

	r.remove("a.py")
	r.write("b.py", "def keep():\n    return 1\n")
	to := r.commit("rename a to b")

	w, err := Open(r.dir, testClassifier(t))
	require.NoError(t, err)

	changes, err := w.Walk(Request{Mode: ModeRange, From: from, To: to})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, Renamed, changes[0].Kind)
	require.Equal(t, "a.py", changes[0].OldPath)
	require.Equal(t, "b.py", changes[0].Path)
}

func TestWalkFull_EmptyRepoYieldsNoCodeOrDocChanges(t *testing.T) {
	r := newTestRepo(t)
	r.write(".gitkeep", "")
	ref := r.commit("empty root")

	w, err := Open(r.dir, testClassifier(t))
	require.NoError(t, err)

	changes, err := w.Walk(Request{Mode: ModeFull, To: ref})
	require.NoError(t, err)
	for _, c := range changes {
		require.Equal(t, ClassIgnored, c.Class, "unclassified file should not surface as code or doc")
	}
}

func TestWalkFull_ClassifiesIgnoredPaths(t *testing.T) {
	r := newTestRepo(t)
	r.write("src/main.rs", "pub fn main() {}\n")
	r.write("target/debug/build.rs", "pub fn main() {}\n")
	ref := r.commit("initial")

	w, err := Open(r.dir, testClassifier(t))
	require.NoError(t, err)

	changes, err := w.Walk(Request{Mode: ModeFull, To: ref})
	require.NoError(t, err)

	byPath := map[string]Change{}
	for _, c := range changes {
		byPath[c.Path] = c
	}
	require.Equal(t, ClassCode, byPath["src/main.rs"].Class)
	require.Equal(t, ClassIgnored, byPath["target/debug/build.rs"].Class)
}

func TestOpen_NotARepo(t *testing.T) {
	dir := t.TempDir()
	_, err := Open(dir, testClassifier(t))
	require.Error(t, err)
}
