// Package docsentinel is the core of the semantic drift detector: it wires
// the Repository Walker, Code Chunk Extractor, Documentation Chunk
// Extractor, Embedding Index, Drift Engine, and Chunk & Event Store into the
// operations a CLI or TUI collaborator drives a scan through -- init, scan,
// events, accept_fix, ignore_event, analyze -- without depending on any of
// them itself.
package docsentinel

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/docsentinel/docsentinel/internal/codechunk"
	"github.com/docsentinel/docsentinel/internal/config"
	"github.com/docsentinel/docsentinel/internal/driftcore"
	"github.com/docsentinel/docsentinel/internal/embedindex"
	"github.com/docsentinel/docsentinel/internal/store"
	"github.com/docsentinel/docsentinel/internal/walker"
)

// storeDirName is the conventional store directory name at the repository
// root, per the external interfaces' store layout.
const storeDirName = ".docsentinel"

// Session is one open handle on a repository's drift-detection state: its
// configuration, its store, and the collaborators built from that
// configuration. A Session owns the store's write lock for its lifetime and
// must be closed.
type Session struct {
	repoRoot   string
	cfg        *config.Config
	store      *store.Store
	classifier *walker.Classifier
	registry   *codechunk.Registry
	provider   embedindex.Provider
}

// Init opens (bootstrapping if necessary) the docsentinel store rooted at
// repoRoot, loading its configuration and constructing the collaborators the
// rest of the operations need.
func Init(repoRoot string) (*Session, error) {
	repoRoot, err := filepath.Abs(repoRoot)
	if err != nil {
		return nil, fmt.Errorf("docsentinel: resolving repo root: %w", err)
	}

	cfg, err := config.LoadConfigFromDir(repoRoot)
	if err != nil {
		return nil, err
	}

	storeDir := filepath.Join(repoRoot, storeDirName)
	if err := os.MkdirAll(storeDir, 0o755); err != nil {
		return nil, fmt.Errorf("docsentinel: creating store directory: %w", err)
	}

	st, err := store.Open(storeDir, cfg.Embedding.Dimension)
	if err != nil {
		return nil, err
	}

	// A disabled language's extension is routed to the ignore patterns
	// rather than stripped from the code patterns, so a path like
	// "src/**/*.rs" still matches the glob while the extension itself
	// classifies as ignored ahead of it (ignore is checked first).
	ignorePatterns := append(append([]string{}, cfg.Patterns.Ignore...), disabledLanguageIgnorePatterns(cfg.Patterns.Languages)...)

	classifier, err := walker.NewClassifier(cfg.Patterns.Code, cfg.Patterns.Doc, ignorePatterns)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("%w: %v", driftcore.ErrInvalidConfig, err)
	}

	provider, err := embedindex.NewProvider(embedindex.Config{
		Provider:   cfg.Embedding.Provider,
		Endpoint:   cfg.Embedding.Endpoint,
		APIKey:     cfg.Embedding.APIKey,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimension,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	return &Session{
		repoRoot:   repoRoot,
		cfg:        cfg,
		store:      st,
		classifier: classifier,
		registry:   codechunk.NewRegistryForLanguages(cfg.Patterns.Languages),
		provider:   provider,
	}, nil
}

// disabledLanguageIgnorePatterns turns codechunk's disabled-language
// extensions into "**/*.ext" ignore globs, so a file whose extension maps
// to a language not listed in Patterns.Languages classifies as ignored
// regardless of what the code patterns match.
func disabledLanguageIgnorePatterns(languages []string) []string {
	exts := codechunk.DisabledExtensions(languages)
	patterns := make([]string, 0, len(exts))
	for _, ext := range exts {
		patterns = append(patterns, "**/*"+ext)
	}
	return patterns
}

// Config returns the session's loaded configuration snapshot.
func (s *Session) Config() *config.Config { return s.cfg }

// Close releases the store's write lock and the embedding provider's
// resources.
func (s *Session) Close() error {
	var errs []string
	if err := s.provider.Close(); err != nil {
		errs = append(errs, err.Error())
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return fmt.Errorf("docsentinel: close: %v", errs)
	}
	return nil
}
