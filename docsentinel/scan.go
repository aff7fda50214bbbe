package docsentinel

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/docsentinel/docsentinel/internal/codechunk"
	"github.com/docsentinel/docsentinel/internal/docchunk"
	"github.com/docsentinel/docsentinel/internal/driftcore"
	"github.com/docsentinel/docsentinel/internal/driftengine"
	"github.com/docsentinel/docsentinel/internal/embedindex"
	"github.com/docsentinel/docsentinel/internal/fingerprint"
	"github.com/docsentinel/docsentinel/internal/logging"
	"github.com/docsentinel/docsentinel/internal/store"
	"github.com/docsentinel/docsentinel/internal/walker"
)

const fingerprintSettingKey = "file_fingerprints"

// ScanProgress reports how far a scan has gotten, fired at least once per
// file processed so a caller driving a progress bar never waits more than a
// handful of files between updates.
type ScanProgress struct {
	FilesDone   int
	FilesTotal  int
	EventsFound int
}

// ProgressFunc receives scan progress updates. It must return quickly: it is
// called from the extraction worker pool's goroutines under a lock.
type ProgressFunc func(ScanProgress)

// ScanOptions configures one Scan call.
type ScanOptions struct {
	// Enricher, if set, augments emitted events with a suggested fix.
	// WithLLM in the external interface corresponds to whether the caller
	// passes a non-nil Enricher here -- the core never constructs one
	// itself (see SPEC_FULL.md's note on why no LLM client ships in core).
	Enricher driftengine.Enricher

	Progress ProgressFunc

	// Parallelism bounds concurrent file extraction. Defaults to
	// runtime.NumCPU() when zero.
	Parallelism int
}

// extractedFile is one non-deleted code or doc file's extraction result,
// produced by the bounded worker pool.
type extractedFile struct {
	path       string
	codeChunks []codechunk.Chunk
	docChunks  []docchunk.Chunk
	source     []byte
}

// Scan runs one drift-detection pass: it walks req's change set, extracts
// and reconciles code and doc chunks, evaluates the drift rules, and
// atomically commits the result. Diagnostics collects recoverable problems
// (extraction warnings, embedding provider failures) that do not abort the
// scan.
func (s *Session) Scan(ctx context.Context, req walker.Request, opts ScanOptions) (*store.ScanRow, *driftcore.Diagnostics, error) {
	diags := driftcore.NewDiagnostics()

	w, err := walker.Open(s.repoRoot, s.classifier)
	if err != nil {
		return nil, nil, err
	}

	toRev, fromRev, fellBackToFull, err := s.resolveRevisions(w, req)
	if err != nil {
		return nil, nil, err
	}

	walkReq := req
	if fellBackToFull {
		walkReq = walker.Request{Mode: walker.ModeFull, To: toRev}
	}

	changes, err := w.Walk(walkReq)
	if err != nil {
		return nil, nil, err
	}

	var codeChanges, docChanges []walker.Change
	for _, c := range changes {
		switch c.Class {
		case walker.ClassCode:
			codeChanges = append(codeChanges, c)
		case walker.ClassDoc:
			docChanges = append(docChanges, c)
		}
	}

	var fpCache *fingerprint.Cache
	if walkReq.Mode == walker.ModeUncommitted {
		raw, _ := s.store.Setting(fingerprintSettingKey)
		fpCache = fingerprint.Load(raw)
		codeChanges = filterByFingerprint(s.repoRoot, codeChanges, fpCache)
		docChanges = filterByFingerprint(s.repoRoot, docChanges, fpCache)
	}

	total := len(codeChanges) + len(docChanges)
	var done int
	var mu sync.Mutex
	reportProgress := func() {
		if opts.Progress == nil {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		done++
		opts.Progress(ScanProgress{FilesDone: done, FilesTotal: total})
	}

	codeFiles, touchedCodePaths, err := extractConcurrently(ctx, codeChanges, s.registry, opts.Parallelism, diags, reportProgress)
	if err != nil {
		return nil, nil, err
	}
	docFiles, touchedDocPaths := extractDocsConcurrently(docChanges, reportProgress)

	currentCode := map[string]*store.CodeChunkRow{}
	pathSource := map[string][]byte{}
	for _, f := range codeFiles {
		pathSource[f.path] = f.source
		for _, c := range f.codeChunks {
			row := codeChunkRow(c)
			currentCode[row.Identity] = &row
		}
	}

	currentDoc := map[string]*store.DocChunkRow{}
	for _, f := range docFiles {
		for _, c := range f.docChunks {
			row := docChunkRow(c)
			currentDoc[row.Identity] = &row
		}
	}

	previousCode, err := s.store.CodeChunksByPath(touchedCodePaths)
	if err != nil {
		return nil, nil, err
	}
	// The store still holds the pre-scan vectors at this point (this scan
	// commits below), so they serve as the previous embeddings SimilarityDrop
	// compares against.
	for id, prev := range previousCode {
		if vec, err := s.store.CodeChunkVector(id); err == nil && vec != nil {
			prev.Embedding = vec
			previousCode[id] = prev
		}
	}

	allDocs, err := s.store.ListDocChunks()
	if err != nil {
		return nil, nil, err
	}
	touchedDocSet := toSet(touchedDocPaths)
	finalDocs := map[string]store.DocChunkRow{}
	for _, d := range allDocs {
		if touchedDocSet[d.Path] {
			continue // superseded below by this scan's freshly extracted chunks
		}
		finalDocs[d.Identity] = d
	}
	previousDocByTouched := map[string]store.DocChunkRow{}
	for _, d := range allDocs {
		if touchedDocSet[d.Path] {
			previousDocByTouched[d.Identity] = d
		}
	}
	for id, row := range currentDoc {
		finalDocs[id] = *row
	}

	codeChangeList := buildCodeChanges(currentCode, previousCode)

	codeTexts, codeIdentities := codeEmbedInputs(codeChangeList, pathSource)
	if len(codeTexts) > 0 {
		vecs, err := embedindex.EmbedBatched(ctx, s.provider, codeTexts, embedindex.ModePassage, 50, 4)
		if err != nil {
			diags.AddEmbedFailure(err)
			logging.Warnf("embedding code chunks failed, soft rules degrade for this scan: %v", err)
		} else {
			for i, id := range codeIdentities {
				if row, ok := currentCode[id]; ok {
					row.Embedding = vecs[i]
				}
			}
		}
	}

	docTexts, docIdentities := docEmbedInputs(currentDoc, previousDocByTouched)
	docEmbeddings := map[string][]float32{}
	if len(docTexts) > 0 {
		vecs, err := embedindex.EmbedBatched(ctx, s.provider, docTexts, embedindex.ModePassage, 50, 4)
		if err != nil {
			diags.AddEmbedFailure(err)
			logging.Warnf("embedding doc chunks failed, soft rules degrade for this scan: %v", err)
		} else {
			for i, id := range docIdentities {
				if row, ok := currentDoc[id]; ok {
					row.Embedding = vecs[i]
				}
				docEmbeddings[id] = vecs[i]
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	mentionSource := make([]store.DocChunkRow, 0, len(finalDocs))
	for _, d := range finalDocs {
		mentionSource = append(mentionSource, d)
	}
	mentions, err := driftengine.NewMentionIndex(mentionSource)
	if err != nil {
		return nil, nil, err
	}
	defer mentions.Close()

	similarity := embedindex.NewIndex()
	for id := range finalDocs {
		vec := docEmbeddings[id]
		if vec == nil {
			vec, _ = s.store.CodeChunkVector(id)
		}
		if vec != nil {
			similarity.AddVector(id, vec)
		}
	}

	existingEvents, err := s.store.ListEvents("")
	if err != nil {
		return nil, nil, err
	}

	events, err := driftengine.Evaluate(codeChangeList, mentions, similarity, finalDocs, existingEvents, toRev, driftengine.Options{
		SimilarityThreshold: s.cfg.SimilarityThreshold,
		TopK:                s.cfg.TopK,
		Enricher:            opts.Enricher,
	})
	if err != nil {
		return nil, nil, err
	}

	scan := store.ScanRow{
		ID:         driftcore.NewScanID(),
		FromRev:    fromRev,
		ToRev:      toRev,
		Mode:       string(walkReq.Mode),
		StartedAt:  time.Now().UTC().Format(time.RFC3339),
		FinishedAt: time.Now().UTC().Format(time.RFC3339),
		EventCount: len(events),
	}

	write := store.ScanWrite{
		Scan:       scan,
		CodeChunks: rowValues(currentCode),
		DocChunks:  docRowValues(currentDoc),
		Events:     events,
	}

	if err := s.store.Commit(write, touchedCodePaths, touchedDocPaths); err != nil {
		return nil, nil, err
	}

	if walkReq.Mode == walker.ModeUncommitted && fpCache != nil {
		if err := s.store.SetSetting(fingerprintSettingKey, fpCache.Dump()); err != nil {
			logging.Warnf("persisting file fingerprint cache: %v", err)
		}
	}

	if opts.Progress != nil {
		opts.Progress(ScanProgress{FilesDone: total, FilesTotal: total, EventsFound: len(events)})
	}

	return &scan, diags, nil
}

// resolveRevisions resolves req's commit-ish endpoints to concrete
// revisions. The third return value reports whether req was a range scan
// with no explicit --from and no prior scan recorded, in which case there
// is nothing to diff against and the caller must fall back to a full scan.
func (s *Session) resolveRevisions(w *walker.Walker, req walker.Request) (toRev, fromRev string, fellBackToFull bool, err error) {
	switch req.Mode {
	case walker.ModeFull:
		to := req.To
		if to == "" {
			to = "HEAD"
		}
		toRev, err = w.Resolve(to)
		return toRev, "", false, err
	case walker.ModeUncommitted:
		head, err := w.Head()
		if err != nil {
			return "", "", false, err
		}
		return "uncommitted:" + head, head, false, nil
	default: // ModeRange, "" (a.k.a. since_last_scan)
		to := req.To
		if to == "" {
			to = "HEAD"
		}
		toRev, err = w.Resolve(to)
		if err != nil {
			return "", "", false, err
		}
		from := req.From
		if from == "" {
			from, err = s.store.Setting("last_scan_to")
			if err != nil {
				return "", "", false, err
			}
		}
		if from == "" {
			// No --from and nothing recorded from a prior scan: there is no
			// range to diff, so this scan runs as a full scan instead of
			// erroring.
			return toRev, "", true, nil
		}
		fromRev, err = w.Resolve(from)
		return toRev, fromRev, false, err
	}
}

// extractConcurrently runs the Code Chunk Extractor over codeChanges across
// a worker pool bounded by parallelism, mirroring embedindex.EmbedBatched's
// bounded-fan-out shape. A file that fails to parse is recorded as an
// extraction warning and excluded from the touched-paths set entirely, so
// its previously committed chunks are left untouched rather than reconciled
// away.
func extractConcurrently(ctx context.Context, codeChanges []walker.Change, registry *codechunk.Registry, parallelism int, diags *driftcore.Diagnostics, report func()) ([]extractedFile, []string, error) {
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}
	if parallelism <= 0 {
		parallelism = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	sem := make(chan struct{}, parallelism)

	results := make([]*extractedFile, len(codeChanges))
	for i, c := range codeChanges {
		if c.Kind == walker.Deleted {
			report()
			continue
		}
		i, c := i, c
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-gctx.Done():
				return gctx.Err()
			}

			chunks, err := registry.Extract(c.Path, c.NewBytes, codechunk.Options{})
			if err != nil {
				diags.AddExtractWarning(c.Path, err)
				logging.Warnf("extracting %s: %v", c.Path, err)
				report()
				return nil
			}
			results[i] = &extractedFile{path: c.Path, codeChunks: chunks, source: c.NewBytes}
			report()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var out []extractedFile
	var touched []string
	for i, c := range codeChanges {
		if results[i] != nil {
			out = append(out, *results[i])
			touched = append(touched, c.Path)
			if c.OldPath != "" {
				touched = append(touched, c.OldPath)
			}
		} else if c.Kind == walker.Deleted {
			touched = append(touched, c.Path)
		}
	}
	return out, dedupStrings(touched), nil
}

// extractDocsConcurrently splits doc files by heading; Markdown parsing is
// cheap enough (regex line scanning, no tree-sitter) that it runs
// sequentially rather than through the bounded pool extraction uses.
func extractDocsConcurrently(docChanges []walker.Change, report func()) ([]extractedFile, []string) {
	var out []extractedFile
	var touched []string
	for _, c := range docChanges {
		touched = append(touched, c.Path)
		if c.OldPath != "" {
			touched = append(touched, c.OldPath)
		}
		if c.Kind == walker.Deleted {
			report()
			continue
		}
		chunks, err := docchunk.Extract(c.Path, string(c.NewBytes))
		if err != nil {
			report()
			continue
		}
		out = append(out, extractedFile{path: c.Path, docChunks: chunks})
		report()
	}
	return out, dedupStrings(touched)
}

func buildCodeChanges(current map[string]*store.CodeChunkRow, previous map[string]store.CodeChunkRow) []driftengine.CodeChunkChange {
	seen := map[string]bool{}
	var out []driftengine.CodeChunkChange

	for id, cur := range current {
		seen[id] = true
		if prev, ok := previous[id]; ok {
			prevCopy := prev
			if cur.ContentHash == prevCopy.ContentHash {
				continue
			}
			out = append(out, driftengine.CodeChunkChange{Identity: id, Current: cur, Previous: &prevCopy})
		} else {
			out = append(out, driftengine.CodeChunkChange{Identity: id, Current: cur, Previous: nil})
		}
	}
	for id, prev := range previous {
		if seen[id] {
			continue
		}
		prevCopy := prev
		out = append(out, driftengine.CodeChunkChange{Identity: id, Current: nil, Previous: &prevCopy})
	}
	return out
}

func codeEmbedInputs(changes []driftengine.CodeChunkChange, pathSource map[string][]byte) ([]string, []string) {
	var texts, ids []string
	for _, c := range changes {
		if c.Current == nil {
			continue
		}
		source := pathSource[c.Current.Path]
		body := sliceLines(source, c.Current.LineStart, c.Current.LineEnd)
		texts = append(texts, embedindex.CodeInputText(c.Current.QualifiedName, c.Current.Signature, body))
		ids = append(ids, c.Identity)
	}
	return texts, ids
}

func docEmbedInputs(current map[string]*store.DocChunkRow, previous map[string]store.DocChunkRow) ([]string, []string) {
	var texts, ids []string
	for id, row := range current {
		if prev, ok := previous[id]; ok && prev.ContentHash == row.ContentHash {
			continue
		}
		headingPath := strings.Split(row.HeadingPath, " > ")
		if row.HeadingPath == "" {
			headingPath = nil
		}
		texts = append(texts, embedindex.DocInputText(headingPath, row.Content))
		ids = append(ids, id)
	}
	return texts, ids
}

func codeChunkRow(c codechunk.Chunk) store.CodeChunkRow {
	return store.CodeChunkRow{
		Identity:      c.Identity(),
		Path:          c.Path,
		QualifiedName: c.QualifiedName,
		Language:      c.Language,
		Kind:          string(c.Kind),
		Visibility:    string(c.Visibility),
		Signature:     c.Signature,
		SignatureHash: c.SignatureHash,
		DocComment:    c.DocComment,
		ContentHash:   c.ContentHash,
		LineStart:     c.BodyStart,
		LineEnd:       c.BodyEnd,
	}
}

func docChunkRow(c docchunk.Chunk) store.DocChunkRow {
	return store.DocChunkRow{
		Identity:    c.Identity(),
		Path:        c.Path,
		HeadingPath: strings.Join(c.HeadingPath, " > "),
		Level:       c.HeadingLevel,
		Content:     c.Text,
		ContentHash: c.ContentHash,
		LineStart:   c.StartLine,
		LineEnd:     c.EndLine,
	}
}

func sliceLines(source []byte, start, end int) string {
	if len(source) == 0 || start <= 0 || end < start {
		return ""
	}
	lines := strings.Split(string(source), "\n")
	if start > len(lines) {
		return ""
	}
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start-1:end], "\n")
}

func rowValues(m map[string]*store.CodeChunkRow) []store.CodeChunkRow {
	out := make([]store.CodeChunkRow, 0, len(m))
	for _, v := range m {
		out = append(out, *v)
	}
	return out
}

func docRowValues(m map[string]*store.DocChunkRow) []store.DocChunkRow {
	out := make([]store.DocChunkRow, 0, len(m))
	for _, v := range m {
		out = append(out, *v)
	}
	return out
}

func toSet(items []string) map[string]bool {
	out := make(map[string]bool, len(items))
	for _, i := range items {
		out[i] = true
	}
	return out
}

func dedupStrings(items []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, i := range items {
		if seen[i] {
			continue
		}
		seen[i] = true
		out = append(out, i)
	}
	return out
}

// filterByFingerprint drops changes whose working-tree mtime and content
// hash both match the last recorded fingerprint, the mtime-fast-path
// optimization the teacher's change detector applies before re-processing a
// file. A dropped file is left out of this scan's touched-paths set
// entirely, so its previously committed chunks are carried forward
// untouched.
func filterByFingerprint(repoRoot string, changes []walker.Change, cache *fingerprint.Cache) []walker.Change {
	var out []walker.Change
	for _, c := range changes {
		if c.Kind == walker.Deleted {
			cache.Forget(c.Path)
			out = append(out, c)
			continue
		}

		info, err := os.Stat(filepath.Join(repoRoot, c.Path))
		if err != nil {
			out = append(out, c)
			continue
		}
		hash := sha256.Sum256(c.NewBytes)
		hexHash := hex.EncodeToString(hash[:])
		if !cache.NeedsExtraction(c.Path, info.ModTime(), hexHash) {
			continue
		}
		cache.Update(c.Path, info.ModTime(), hexHash)
		out = append(out, c)
	}
	return out
}
