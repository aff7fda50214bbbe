package store

import (
	"database/sql"
	"fmt"

	"github.com/docsentinel/docsentinel/internal/driftcore"
)

// ScanWrite bundles everything one scan commits atomically: the full set of
// code and doc chunks currently present in the files touched by the scan,
// the events the drift engine emitted, and the scan record itself. Either
// all of it lands or none of it does.
type ScanWrite struct {
	Scan       ScanRow
	CodeChunks []CodeChunkRow
	DocChunks  []DocChunkRow
	Events     []EventRow
}

// Commit reconciles chunk sets by identity and writes the scan's events,
// all within a single transaction. Reconciliation semantics: an identity
// present in the new set but not previously known is inserted fresh; an
// identity present in both keeps its row, bumping updated_revision only if
// its content hash changed; an identity known previously but absent from
// the new set gets revision_removed stamped with the scan's to-revision.
//
// codePaths/docPaths scope which previously known identities are eligible
// for removal -- only identities belonging to a file actually touched by
// this scan can be marked removed, since a partial scan (a commit range
// touching a handful of files) must not orphan chunks from untouched files.
func (s *Store) Commit(write ScanWrite, codePaths, docPaths []string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin commit transaction: %w", err)
	}
	defer tx.Rollback()

	if err := reconcileCode(tx, write.CodeChunks, codePaths, write.Scan.ToRev); err != nil {
		return err
	}
	if err := reconcileDoc(tx, write.DocChunks, docPaths, write.Scan.ToRev); err != nil {
		return err
	}
	if err := insertEvents(tx, write.Events); err != nil {
		return err
	}
	if err := upsertScan(tx, write.Scan); err != nil {
		return err
	}
	if err := setSettingTx(tx, "last_scan_to", write.Scan.ToRev); err != nil {
		return err
	}

	return tx.Commit()
}

func reconcileCode(tx *sql.Tx, chunks []CodeChunkRow, touchedPaths []string, toRev string) error {
	seen := map[string]bool{}

	for _, c := range chunks {
		seen[c.Identity] = true

		var existingHash string
		err := tx.QueryRow(`SELECT content_hash FROM code_chunks WHERE identity = ?`, c.Identity).Scan(&existingHash)
		switch {
		case err == sql.ErrNoRows:
			if _, err := tx.Exec(`
				INSERT INTO code_chunks
					(identity, path, qualified_name, language, kind, visibility, signature, signature_hash,
					 doc_comment, content_hash, line_start, line_end, revision_added, revision_removed, updated_revision)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?)`,
				c.Identity, c.Path, c.QualifiedName, c.Language, c.Kind, c.Visibility, c.Signature, c.SignatureHash,
				c.DocComment, c.ContentHash, c.LineStart, c.LineEnd, toRev, toRev,
			); err != nil {
				return fmt.Errorf("store: inserting code chunk %s: %w", c.Identity, err)
			}
		case err != nil:
			return fmt.Errorf("store: reading existing code chunk %s: %w", c.Identity, err)
		default:
			updatedRevision := toRev
			if existingHash == c.ContentHash {
				updatedRevision = ""
			}
			if _, err := tx.Exec(`
				UPDATE code_chunks SET
					signature = ?, signature_hash = ?, doc_comment = ?, content_hash = ?,
					line_start = ?, line_end = ?, revision_removed = NULL,
					updated_revision = CASE WHEN ? = '' THEN updated_revision ELSE ? END
				WHERE identity = ?`,
				c.Signature, c.SignatureHash, c.DocComment, c.ContentHash,
				c.LineStart, c.LineEnd, updatedRevision, updatedRevision, c.Identity,
			); err != nil {
				return fmt.Errorf("store: updating code chunk %s: %w", c.Identity, err)
			}
		}

		if c.Embedding != nil {
			if err := upsertVector(tx, c.Identity, c.Embedding); err != nil {
				return err
			}
		}
	}

	if len(touchedPaths) == 0 {
		return nil
	}
	rows, err := tx.Query(selectIdentitiesByPaths("code_chunks", touchedPaths), toArgs(touchedPaths)...)
	if err != nil {
		return fmt.Errorf("store: listing existing code identities: %w", err)
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("store: scanning code identity: %w", err)
		}
		if !seen[id] {
			stale = append(stale, id)
		}
	}
	rows.Close()

	for _, id := range stale {
		if _, err := tx.Exec(`UPDATE code_chunks SET revision_removed = ? WHERE identity = ?`, toRev, id); err != nil {
			return fmt.Errorf("store: marking code chunk %s removed: %w", id, err)
		}
		if err := deleteVector(tx, id); err != nil {
			return err
		}
	}
	return nil
}

func reconcileDoc(tx *sql.Tx, chunks []DocChunkRow, touchedPaths []string, toRev string) error {
	seen := map[string]bool{}

	for _, c := range chunks {
		seen[c.Identity] = true

		var existingHash string
		err := tx.QueryRow(`SELECT content_hash FROM doc_chunks WHERE identity = ?`, c.Identity).Scan(&existingHash)
		switch {
		case err == sql.ErrNoRows:
			if _, err := tx.Exec(`
				INSERT INTO doc_chunks
					(identity, path, heading_path, level, content, content_hash, line_start, line_end,
					 revision_added, revision_removed, updated_revision)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?)`,
				c.Identity, c.Path, c.HeadingPath, c.Level, c.Content, c.ContentHash, c.LineStart, c.LineEnd,
				toRev, toRev,
			); err != nil {
				return fmt.Errorf("store: inserting doc chunk %s: %w", c.Identity, err)
			}
		case err != nil:
			return fmt.Errorf("store: reading existing doc chunk %s: %w", c.Identity, err)
		default:
			updatedRevision := toRev
			if existingHash == c.ContentHash {
				updatedRevision = ""
			}
			if _, err := tx.Exec(`
				UPDATE doc_chunks SET
					content = ?, content_hash = ?, line_start = ?, line_end = ?, revision_removed = NULL,
					updated_revision = CASE WHEN ? = '' THEN updated_revision ELSE ? END
				WHERE identity = ?`,
				c.Content, c.ContentHash, c.LineStart, c.LineEnd, updatedRevision, updatedRevision, c.Identity,
			); err != nil {
				return fmt.Errorf("store: updating doc chunk %s: %w", c.Identity, err)
			}
		}

		if c.Embedding != nil {
			if err := upsertVector(tx, c.Identity, c.Embedding); err != nil {
				return err
			}
		}
	}

	if len(touchedPaths) == 0 {
		return nil
	}
	rows, err := tx.Query(selectIdentitiesByPaths("doc_chunks", touchedPaths), toArgs(touchedPaths)...)
	if err != nil {
		return fmt.Errorf("store: listing existing doc identities: %w", err)
	}
	var stale []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("store: scanning doc identity: %w", err)
		}
		if !seen[id] {
			stale = append(stale, id)
		}
	}
	rows.Close()

	for _, id := range stale {
		if _, err := tx.Exec(`UPDATE doc_chunks SET revision_removed = ? WHERE identity = ?`, toRev, id); err != nil {
			return fmt.Errorf("store: marking doc chunk %s removed: %w", id, err)
		}
		if err := deleteVector(tx, id); err != nil {
			return err
		}
	}
	return nil
}

func insertEvents(tx *sql.Tx, events []EventRow) error {
	for _, e := range events {
		if len(e.RelatedCode) == 0 && len(e.RelatedDoc) == 0 {
			return fmt.Errorf("store: event %s: %w", e.ID, driftcore.ErrOrphanEvent)
		}
		_, err := tx.Exec(`
			INSERT INTO events
				(id, kind, severity, confidence, description, evidence, related_code, related_doc,
				 suggested_fix, status, ignore_reason, ignore_permanent, created_revision, updated_revision)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				description = excluded.description, evidence = excluded.evidence,
				suggested_fix = excluded.suggested_fix, updated_revision = excluded.updated_revision,
				status = excluded.status, ignore_reason = excluded.ignore_reason,
				ignore_permanent = excluded.ignore_permanent`,
			e.ID, e.Kind, e.Severity, e.Confidence, e.Description, e.Evidence,
			joinIDs(e.RelatedCode), joinIDs(e.RelatedDoc), nullIfEmpty(e.SuggestedFix),
			e.Status, nullIfEmpty(e.IgnoreReason), boolToInt(e.IgnorePermanent),
			e.CreatedRevision, e.UpdatedRevision,
		)
		if err != nil {
			return fmt.Errorf("store: inserting event %s: %w", e.ID, err)
		}
	}
	return nil
}

func upsertScan(tx *sql.Tx, scan ScanRow) error {
	_, err := tx.Exec(`
		INSERT INTO scans (id, from_rev, to_rev, mode, started_at, finished_at, event_count)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET finished_at = excluded.finished_at, event_count = excluded.event_count`,
		scan.ID, scan.FromRev, scan.ToRev, scan.Mode, scan.StartedAt, nullIfEmpty(scan.FinishedAt), scan.EventCount,
	)
	if err != nil {
		return fmt.Errorf("store: upserting scan %s: %w", scan.ID, err)
	}
	return nil
}

func selectIdentitiesByPaths(table string, paths []string) string {
	placeholders := make([]byte, 0, len(paths)*2)
	for i := range paths {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return fmt.Sprintf(
		`SELECT identity FROM %s WHERE path IN (%s) AND revision_removed IS NULL`,
		table, string(placeholders),
	)
}

func toArgs(paths []string) []any {
	args := make([]any, len(paths))
	for i, p := range paths {
		args[i] = p
	}
	return args
}
