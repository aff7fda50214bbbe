// Package store implements the Chunk & Event Store: durable, single-writer,
// local SQLite storage for code chunks, doc chunks, drift events, scan
// records, and settings, with a sqlite-vec side table for cosine KNN.
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/docsentinel/docsentinel/internal/driftcore"
	"github.com/docsentinel/docsentinel/internal/embedindex"
)

var initVectorOnce sync.Once

// Store wraps the SQLite connection and the advisory write lock. Reads may
// happen from any number of goroutines; writes go through Commit,
// SetSetting and SetEventStatus, and the write lock is held by at most one
// Store per store directory at a time.
type Store struct {
	db   *sql.DB
	lock *writeLock
	dir  string
}

// Open opens (creating if necessary) the store rooted at dir, acquiring the
// single-writer advisory lock. Callers that only need read access and don't
// want to contend for the write lock should use OpenReadOnly.
func Open(dir string, dimensions int) (*Store, error) {
	initVectorOnce.Do(initVectorExtension)

	lock, err := acquireWriteLock(dir)
	if err != nil {
		return nil, err
	}

	db, err := openDB(dir, dimensions)
	if err != nil {
		lock.release()
		return nil, err
	}

	return &Store{db: db, lock: lock, dir: dir}, nil
}

// OpenReadOnly opens the store without acquiring the write lock, for
// queries that run concurrently with a scan (e.g. a status command).
func OpenReadOnly(dir string, dimensions int) (*Store, error) {
	initVectorOnce.Do(initVectorExtension)

	db, err := openDB(dir, dimensions)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, dir: dir}, nil
}

func openDB(dir string, dimensions int) (*sql.DB, error) {
	dbPath := dir + "/chunks.db"
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("store: opening %s: %w", dbPath, err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: enabling foreign keys: %w", err)
	}

	version, err := schemaVersion(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	if version == "0" {
		if err := createSchema(db, dimensions); err != nil {
			db.Close()
			return nil, err
		}
	}

	return db, nil
}

// Close releases the database handle and, if held, the write lock.
func (s *Store) Close() error {
	var errs []string
	if err := s.db.Close(); err != nil {
		errs = append(errs, err.Error())
	}
	if s.lock != nil {
		if err := s.lock.release(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("store: close: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Setting returns a settings value, or "" if unset.
func (s *Store) Setting(key string) (string, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("store: reading setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting writes a single settings value outside of a scan commit, for
// small pieces of state (e.g. the file fingerprint cache) that don't belong
// in the scan's own transactional write.
func (s *Store) SetSetting(key, value string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin setting transaction: %w", err)
	}
	defer tx.Rollback()
	if err := setSettingTx(tx, key, value); err != nil {
		return err
	}
	return tx.Commit()
}

func setSettingTx(tx *sql.Tx, key, value string) error {
	_, err := tx.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("store: writing setting %s: %w", key, err)
	}
	return nil
}

// NearestDocChunks runs a cosine-distance KNN query against the vector
// index, returning up to k doc_chunks rows (excluding deleted ones)
// ordered by similarity descending.
func (s *Store) NearestDocChunks(query []float32, k int) ([]DocChunkRow, error) {
	neighbors, err := queryNearest(s.db, query, k*4) // oversample, since some hits will be code chunks or deleted
	if err != nil {
		return nil, err
	}

	var out []DocChunkRow
	for _, n := range neighbors {
		row, err := s.docChunkByIdentity(n.Identity)
		if err != nil {
			continue
		}
		if row == nil || row.RevisionRemoved != "" {
			continue
		}
		out = append(out, *row)
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

// TopK runs a cosine-similarity KNN query against the vector index and
// returns up to k non-excluded, non-deleted doc-chunk neighbors, sorted by
// similarity descending. It satisfies driftengine.SimilarityIndex directly,
// letting the engine's soft rules run against the full current doc corpus
// without the caller assembling an in-memory copy of every embedding.
func (s *Store) TopK(query []float32, k int, exclude map[string]bool) ([]embedindex.Neighbor, error) {
	oversample := k * 4
	if oversample < k {
		oversample = k
	}
	neighbors, err := queryNearest(s.db, query, oversample)
	if err != nil {
		return nil, err
	}

	var out []embedindex.Neighbor
	for _, n := range neighbors {
		if exclude != nil && exclude[n.Identity] {
			continue
		}
		row, err := s.docChunkByIdentity(n.Identity)
		if err != nil || row == nil || row.RevisionRemoved != "" {
			continue
		}
		out = append(out, embedindex.Neighbor{ID: n.Identity, Similarity: 1 - n.Distance})
		if len(out) >= k {
			break
		}
	}
	return out, nil
}

// ListDocChunks returns every doc chunk currently present (not removed),
// for building a scan-wide mention index.
func (s *Store) ListDocChunks() ([]DocChunkRow, error) {
	rows, err := s.db.Query(`
		SELECT identity, path, heading_path, level, content, content_hash,
		       line_start, line_end, revision_added, '', updated_revision
		FROM doc_chunks WHERE revision_removed IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("store: listing doc chunks: %w", err)
	}
	defer rows.Close()

	var out []DocChunkRow
	for rows.Next() {
		var r DocChunkRow
		if err := rows.Scan(&r.Identity, &r.Path, &r.HeadingPath, &r.Level, &r.Content, &r.ContentHash,
			&r.LineStart, &r.LineEnd, &r.RevisionAdded, &r.RevisionRemoved, &r.UpdatedRevision); err != nil {
			return nil, fmt.Errorf("store: scanning doc chunk row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListCodeChunks returns every code chunk currently present (not removed),
// for ad-hoc queries (analyze) that search across the whole corpus rather
// than a scan's touched paths.
func (s *Store) ListCodeChunks() ([]CodeChunkRow, error) {
	rows, err := s.db.Query(`
		SELECT identity, path, qualified_name, language, kind, visibility, signature, signature_hash,
		       COALESCE(doc_comment, ''), content_hash, line_start, line_end,
		       revision_added, '', updated_revision
		FROM code_chunks WHERE revision_removed IS NULL`)
	if err != nil {
		return nil, fmt.Errorf("store: listing code chunks: %w", err)
	}
	defer rows.Close()

	var out []CodeChunkRow
	for rows.Next() {
		var r CodeChunkRow
		if err := rows.Scan(&r.Identity, &r.Path, &r.QualifiedName, &r.Language, &r.Kind, &r.Visibility,
			&r.Signature, &r.SignatureHash, &r.DocComment, &r.ContentHash, &r.LineStart, &r.LineEnd,
			&r.RevisionAdded, &r.RevisionRemoved, &r.UpdatedRevision); err != nil {
			return nil, fmt.Errorf("store: scanning code chunk row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// CodeChunksByPath returns every currently present (not removed) code chunk
// belonging to one of paths, keyed by identity, for diffing against a
// scan's freshly extracted chunk set.
func (s *Store) CodeChunksByPath(paths []string) (map[string]CodeChunkRow, error) {
	out := map[string]CodeChunkRow{}
	if len(paths) == 0 {
		return out, nil
	}

	query := fmt.Sprintf(`
		SELECT identity, path, qualified_name, language, kind, visibility, signature, signature_hash,
		       COALESCE(doc_comment, ''), content_hash, line_start, line_end,
		       revision_added, '', updated_revision
		FROM code_chunks WHERE revision_removed IS NULL AND path IN (%s)`, placeholders(len(paths)))

	rows, err := s.db.Query(query, toArgs(paths)...)
	if err != nil {
		return nil, fmt.Errorf("store: listing code chunks by path: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r CodeChunkRow
		if err := rows.Scan(&r.Identity, &r.Path, &r.QualifiedName, &r.Language, &r.Kind, &r.Visibility,
			&r.Signature, &r.SignatureHash, &r.DocComment, &r.ContentHash, &r.LineStart, &r.LineEnd,
			&r.RevisionAdded, &r.RevisionRemoved, &r.UpdatedRevision); err != nil {
			return nil, fmt.Errorf("store: scanning code chunk row: %w", err)
		}
		out[r.Identity] = r
	}
	return out, rows.Err()
}

// CodeChunkVector returns the stored embedding for a code chunk identity, or
// nil if the chunk has never been embedded. Used to recover a changed
// chunk's previous vector for the SimilarityDrop rule, since
// CodeChunksByPath reads chunk metadata only.
func (s *Store) CodeChunkVector(identity string) ([]float32, error) {
	return fetchVector(s.db, identity)
}

func placeholders(n int) string {
	b := make([]byte, 0, n*2)
	for i := 0; i < n; i++ {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, '?')
	}
	return string(b)
}

// DocChunk returns the doc chunk with the given identity, or nil if no such
// chunk is currently on file (including chunks marked removed).
func (s *Store) DocChunk(identity string) (*DocChunkRow, error) {
	row, err := s.docChunkByIdentity(identity)
	if err != nil || row == nil || row.RevisionRemoved != "" {
		return nil, err
	}
	return row, nil
}

func (s *Store) docChunkByIdentity(identity string) (*DocChunkRow, error) {
	row := s.db.QueryRow(`
		SELECT identity, path, heading_path, level, content, content_hash,
		       line_start, line_end, revision_added, COALESCE(revision_removed, ''), updated_revision
		FROM doc_chunks WHERE identity = ?`, identity)

	var r DocChunkRow
	err := row.Scan(&r.Identity, &r.Path, &r.HeadingPath, &r.Level, &r.Content, &r.ContentHash,
		&r.LineStart, &r.LineEnd, &r.RevisionAdded, &r.RevisionRemoved, &r.UpdatedRevision)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: reading doc_chunks %s: %w", identity, err)
	}
	return &r, nil
}

// Event returns the event with the given id, or ErrEventNotFound.
func (s *Store) Event(id string) (*EventRow, error) {
	row := s.db.QueryRow(`
		SELECT id, kind, severity, confidence, description, evidence, related_code, related_doc,
		       COALESCE(suggested_fix, ''), status, COALESCE(ignore_reason, ''), ignore_permanent,
		       created_revision, updated_revision
		FROM events WHERE id = ?`, id)

	var e EventRow
	var relatedCode, relatedDoc string
	var ignorePermanent int
	err := row.Scan(&e.ID, &e.Kind, &e.Severity, &e.Confidence, &e.Description, &e.Evidence,
		&relatedCode, &relatedDoc, &e.SuggestedFix, &e.Status, &e.IgnoreReason, &ignorePermanent,
		&e.CreatedRevision, &e.UpdatedRevision)
	if err == sql.ErrNoRows {
		return nil, driftcore.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: reading event %s: %w", id, err)
	}
	e.RelatedCode = splitIDs(relatedCode)
	e.RelatedDoc = splitIDs(relatedDoc)
	e.IgnorePermanent = ignorePermanent != 0
	return &e, nil
}

// ListEvents returns events with the given status, severity descending
// then id ascending, matching the engine's deterministic emission order.
func (s *Store) ListEvents(status EventStatus) ([]EventRow, error) {
	query := `
		SELECT id, kind, severity, confidence, description, evidence, related_code, related_doc,
		       COALESCE(suggested_fix, ''), status, COALESCE(ignore_reason, ''), ignore_permanent,
		       created_revision, updated_revision
		FROM events`
	args := []any{}
	if status != "" {
		query += " WHERE status = ?"
		args = append(args, status)
	}
	query += " ORDER BY CASE severity WHEN 'critical' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END, id ASC"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: listing events: %w", err)
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var e EventRow
		var relatedCode, relatedDoc string
		var ignorePermanent int
		if err := rows.Scan(&e.ID, &e.Kind, &e.Severity, &e.Confidence, &e.Description, &e.Evidence,
			&relatedCode, &relatedDoc, &e.SuggestedFix, &e.Status, &e.IgnoreReason, &ignorePermanent,
			&e.CreatedRevision, &e.UpdatedRevision); err != nil {
			return nil, fmt.Errorf("store: scanning event row: %w", err)
		}
		e.RelatedCode = splitIDs(relatedCode)
		e.RelatedDoc = splitIDs(relatedDoc)
		e.IgnorePermanent = ignorePermanent != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

// SetEventStatus transitions an event's status, enforcing the state
// machine's terminal transitions only loosely (the drift engine is the
// authority on legal transitions; the store just persists them).
func (s *Store) SetEventStatus(id string, status EventStatus, ignoreReason string, ignorePermanent bool, revision string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("store: begin status transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`UPDATE events SET status = ?, ignore_reason = ?, ignore_permanent = ?, updated_revision = ? WHERE id = ?`,
		status, nullIfEmpty(ignoreReason), boolToInt(ignorePermanent), revision, id,
	)
	if err != nil {
		return fmt.Errorf("store: updating event %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: checking update result for %s: %w", id, err)
	}
	if n == 0 {
		return driftcore.ErrEventNotFound
	}

	return tx.Commit()
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func joinIDs(ids []string) string {
	return strings.Join(ids, ",")
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
