package walker

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/docsentinel/docsentinel/internal/driftcore"
)

// Walker yields change records for a commit range or the working tree,
// reading blobs straight out of the git object database rather than
// shelling out to a `git` binary -- the walker never requires a checkout to
// inspect a historical revision, which a `git show`/`git diff` subprocess
// wrapper would (see DESIGN.md for why the teacher's exec.Command-based
// internal/git package was not reused for this purpose).
type Walker struct {
	repo       *git.Repository
	root       string
	classifier *Classifier
}

// Open opens the git repository rooted at root. It returns ErrRepoNotFound
// when root has no .git metadata.
func Open(root string, classifier *Classifier) (*Walker, error) {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", driftcore.ErrRepoNotFound, root, err)
	}
	return &Walker{repo: repo, root: root, classifier: classifier}, nil
}

// Walk resolves req and returns the lexicographically ordered change stream.
func (w *Walker) Walk(req Request) ([]Change, error) {
	switch req.Mode {
	case ModeFull:
		return w.walkFull(req.To)
	case ModeUncommitted:
		return w.walkUncommitted()
	case ModeRange, "":
		return w.walkRange(req.From, req.To)
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", driftcore.ErrBadRange, req.Mode)
	}
}

// Head returns the full hash of the repository's current HEAD commit, for
// callers that need to stamp a revision without running a full Walk (e.g.
// recording which commit an ignore or accepted fix applies as of).
func (w *Walker) Head() (string, error) {
	return w.Resolve("HEAD")
}

// Resolve returns the full commit hash revision resolves to.
func (w *Walker) Resolve(revision string) (string, error) {
	commit, err := w.resolve(revision)
	if err != nil {
		return "", err
	}
	return commit.Hash.String(), nil
}

func (w *Walker) resolve(revision string) (*object.Commit, error) {
	if revision == "" {
		revision = "HEAD"
	}
	hash, err := w.repo.ResolveRevision(plumbing.Revision(revision))
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", driftcore.ErrBadRange, revision, err)
	}
	commit, err := w.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", driftcore.ErrReadBlob, revision, err)
	}
	return commit, nil
}

func (w *Walker) walkFull(ref string) ([]Change, error) {
	commit, err := w.resolve(ref)
	if err != nil {
		return nil, err
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", driftcore.ErrReadBlob, err)
	}

	var changes []Change
	err = tree.Files().ForEach(func(f *object.File) error {
		content, cerr := f.Contents()
		if cerr != nil {
			return fmt.Errorf("%w: %s: %v", driftcore.ErrReadBlob, f.Name, cerr)
		}
		changes = append(changes, Change{
			Path:     f.Name,
			NewBytes: []byte(content),
			Kind:     Added,
			Class:    w.classifier.Classify(f.Name),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	sortChanges(changes)
	return changes, nil
}

func (w *Walker) walkRange(from, to string) ([]Change, error) {
	fromCommit, err := w.resolve(from)
	if err != nil {
		return nil, err
	}
	toCommit, err := w.resolve(to)
	if err != nil {
		return nil, err
	}

	fromTree, err := fromCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", driftcore.ErrReadBlob, err)
	}
	toTree, err := toCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", driftcore.ErrReadBlob, err)
	}

	treeChanges, err := fromTree.Diff(toTree)
	if err != nil {
		return nil, fmt.Errorf("%w: diffing trees: %v", driftcore.ErrReadBlob, err)
	}

	changes, err := w.toChanges(treeChanges)
	if err != nil {
		return nil, err
	}

	changes = detectRenames(changes)
	sortChanges(changes)
	return changes, nil
}

// walkUncommitted diffs the index and working tree against HEAD. Unlike
// walkRange it must read the working tree from disk, since uncommitted
// content has no blob in the object database.
func (w *Walker) walkUncommitted() ([]Change, error) {
	wt, err := w.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("%w: no worktree: %v", driftcore.ErrRepoNotFound, err)
	}

	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("%w: status: %v", driftcore.ErrReadBlob, err)
	}

	head, err := w.resolve("HEAD")
	if err != nil {
		return nil, err
	}
	headTree, err := head.Tree()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", driftcore.ErrReadBlob, err)
	}

	var changes []Change
	for path, st := range status {
		if st.Staging == git.Unmodified && st.Worktree == git.Unmodified {
			continue
		}

		oldBytes, hadOld := readTreeBlob(headTree, path)
		newBytes, hadNew := readWorkingFile(w.root, path)

		var kind ChangeKind
		switch {
		case !hadOld && hadNew:
			kind = Added
		case hadOld && !hadNew:
			kind = Deleted
		default:
			kind = Modified
		}

		changes = append(changes, Change{
			Path:     path,
			OldBytes: oldBytes,
			NewBytes: newBytes,
			Kind:     kind,
			Class:    w.classifier.Classify(path),
		})
	}

	sortChanges(changes)
	return changes, nil
}

func (w *Walker) toChanges(tc object.Changes) ([]Change, error) {
	changes := make([]Change, 0, len(tc))
	for _, c := range tc {
		action, err := c.Action()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", driftcore.ErrReadBlob, err)
		}

		from, to, err := c.Files()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", driftcore.ErrReadBlob, err)
		}

		var oldBytes, newBytes []byte
		if from != nil {
			s, err := from.Contents()
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", driftcore.ErrReadBlob, c.From.Name, err)
			}
			oldBytes = []byte(s)
		}
		if to != nil {
			s, err := to.Contents()
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", driftcore.ErrReadBlob, c.To.Name, err)
			}
			newBytes = []byte(s)
		}

		var kind ChangeKind
		var path, oldPath string
		switch action.String() {
		case "Insert":
			kind = Added
			path = c.To.Name
		case "Delete":
			kind = Deleted
			path = c.From.Name
		default: // Modify
			kind = Modified
			path = c.To.Name
		}

		changes = append(changes, Change{
			Path:     path,
			OldPath:  oldPath,
			OldBytes: oldBytes,
			NewBytes: newBytes,
			Kind:     kind,
			Class:    w.classifier.Classify(path),
		})
	}
	return changes, nil
}

// detectRenames pairs a Deleted and an Added record whose content is
// byte-identical into a single Renamed record. go-git's tree diff does not
// report renames itself; content equality is a cheap, dependency-free
// approximation of `git diff --find-renames` good enough for chunk identity
// purposes (a chunk's identity is (path, symbol, language), so a renamed
// file with unchanged content should not look like a delete+add of every
// chunk inside it).
func detectRenames(changes []Change) []Change {
	deletedByContent := map[string]int{}
	for i, c := range changes {
		if c.Kind == Deleted {
			deletedByContent[string(c.OldBytes)] = i
		}
	}

	used := map[int]bool{}
	result := make([]Change, 0, len(changes))
	for i, c := range changes {
		if c.Kind != Added {
			continue
		}
		if di, ok := deletedByContent[string(c.NewBytes)]; ok && !used[di] {
			used[di] = true
			del := changes[di]
			result = append(result, Change{
				Path:     c.Path,
				OldPath:  del.Path,
				OldBytes: del.OldBytes,
				NewBytes: c.NewBytes,
				Kind:     Renamed,
				Class:    c.Class,
			})
		}
	}

	for i, c := range changes {
		if c.Kind == Added && usedAsRename(result, c.Path) {
			continue
		}
		if c.Kind == Deleted && used[i] {
			continue
		}
		result = append(result, c)
	}

	return result
}

func usedAsRename(result []Change, newPath string) bool {
	for _, r := range result {
		if r.Kind == Renamed && r.Path == newPath {
			return true
		}
	}
	return false
}

func readTreeBlob(tree *object.Tree, path string) ([]byte, bool) {
	f, err := tree.File(path)
	if err != nil {
		return nil, false
	}
	reader, err := f.Reader()
	if err != nil {
		return nil, false
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, false
	}
	return data, true
}

func readWorkingFile(root, path string) ([]byte, bool) {
	data, err := os.ReadFile(filepath.Join(root, path))
	if err != nil {
		return nil, false
	}
	return data, true
}

func sortChanges(changes []Change) {
	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Path < changes[j].Path
	})
}
