package docsentinel

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/docsentinel/docsentinel/internal/driftcore"
	"github.com/docsentinel/docsentinel/internal/store"
	"github.com/docsentinel/docsentinel/internal/walker"
)

// AcceptFix applies content as the new text of the documentation chunk an
// event is related to, marks the event Fixed, and, if commit is true,
// stages and commits the change. It returns ErrOrphanEvent if the event has
// no related doc chunk to rewrite -- a code-only event (e.g. SymbolAdded
// with no doc at all) has nothing accept_fix can apply text to; the caller
// should use ignore_event instead for those.
func (s *Session) AcceptFix(eventID, content string, commit bool) error {
	event, err := s.store.Event(eventID)
	if err != nil {
		return err
	}
	if len(event.RelatedDoc) == 0 {
		return fmt.Errorf("accept_fix on event %s: %w", eventID, driftcore.ErrOrphanEvent)
	}

	doc, err := s.store.DocChunk(event.RelatedDoc[0])
	if err != nil {
		return err
	}
	if doc == nil {
		return fmt.Errorf("accept_fix on event %s: related doc chunk no longer exists", eventID)
	}

	if err := rewriteLines(filepath.Join(s.repoRoot, doc.Path), doc.LineStart, doc.LineEnd, content); err != nil {
		return err
	}

	revision, err := s.currentRevision()
	if err != nil {
		return err
	}

	if commit {
		if err := commitFile(s.repoRoot, doc.Path, fmt.Sprintf("docsentinel: apply accepted fix for event %s", eventID)); err != nil {
			return err
		}
	}

	return s.store.SetEventStatus(eventID, store.EventFixed, "", false, revision)
}

func (s *Session) currentRevision() (string, error) {
	w, err := walker.Open(s.repoRoot, s.classifier)
	if err != nil {
		return "", err
	}
	return w.Head()
}

// rewriteLines replaces the 1-indexed inclusive [start, end] line range of
// path with content, preserving every other line untouched.
func rewriteLines(path string, start, end int, content string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("docsentinel: reading %s: %w", path, err)
	}

	lines := strings.Split(string(data), "\n")
	if start <= 0 || end < start || end > len(lines) {
		return fmt.Errorf("docsentinel: %s: line range %d-%d out of bounds (file has %d lines)", path, start, end, len(lines))
	}

	replacement := strings.Split(strings.TrimRight(content, "\n"), "\n")
	out := append([]string{}, lines[:start-1]...)
	out = append(out, replacement...)
	out = append(out, lines[end:]...)

	return os.WriteFile(path, []byte(strings.Join(out, "\n")), 0o644)
}

func commitFile(repoRoot, path, message string) error {
	repo, err := git.PlainOpen(repoRoot)
	if err != nil {
		return fmt.Errorf("docsentinel: opening repo for commit: %w", err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("docsentinel: no worktree to commit into: %w", err)
	}
	if _, err := wt.Add(path); err != nil {
		return fmt.Errorf("docsentinel: staging %s: %w", path, err)
	}
	_, err = wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{
			Name:  "docsentinel",
			Email: "docsentinel@localhost",
			When:  time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("docsentinel: committing %s: %w", path, err)
	}
	return nil
}
