package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_ReturnsValidConfiguration(t *testing.T) {
	cfg := Default()
	require.NotNil(t, cfg)

	assert.Equal(t, "mock", cfg.Embedding.Provider)
	assert.Equal(t, 384, cfg.Embedding.Dimension)
	assert.Equal(t, 0.7, cfg.SimilarityThreshold)
	assert.Equal(t, 5, cfg.TopK)
	assert.Contains(t, cfg.Patterns.Code, "**/*.rs")
	assert.Contains(t, cfg.Patterns.Doc, "**/*.md")

	require.NoError(t, Validate(cfg))
}

func TestLoadConfig_UsesDefaultsWhenNoFileExists(t *testing.T) {
	dir := t.TempDir()
	cfg, err := LoadConfigFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, Default().Embedding.Provider, cfg.Embedding.Provider)
}

func TestLoadConfig_LoadsFromConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".docsentinel"), 0o755))
	toml := `
similarity_threshold = 0.85
top_k = 10

[embedding]
provider = "local-http"
endpoint = "http://localhost:11434"
model = "nomic-embed-text"
dimension = 768
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".docsentinel", "config.toml"), []byte(toml), 0o644))

	cfg, err := LoadConfigFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 0.85, cfg.SimilarityThreshold)
	assert.Equal(t, 10, cfg.TopK)
	assert.Equal(t, "local-http", cfg.Embedding.Provider)
	assert.Equal(t, 768, cfg.Embedding.Dimension)
}

func TestLoadConfig_EnvironmentOverridesFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".docsentinel"), 0o755))
	toml := `
[embedding]
provider = "mock"
dimension = 384
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".docsentinel", "config.toml"), []byte(toml), 0o644))

	t.Setenv("DOCSENTINEL_EMBEDDING_PROVIDER", "local-http")
	t.Setenv("DOCSENTINEL_EMBEDDING_ENDPOINT", "http://localhost:11434")

	cfg, err := LoadConfigFromDir(dir)
	require.NoError(t, err)
	assert.Equal(t, "local-http", cfg.Embedding.Provider)
	assert.Equal(t, "http://localhost:11434", cfg.Embedding.Endpoint)
}

func TestLoadConfig_InvalidConfigurationErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ".docsentinel"), 0o755))
	toml := `
[embedding]
provider = "not-a-real-provider"
dimension = 384
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".docsentinel", "config.toml"), []byte(toml), 0o644))

	_, err := LoadConfigFromDir(dir)
	require.Error(t, err)
}

func TestValidate_RejectsUnknownProvider(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Provider = "carrier-pigeon"
	require.Error(t, Validate(cfg))
}

func TestValidate_RejectsNonPositiveDimension(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Dimension = 0
	require.Error(t, Validate(cfg))
}

func TestValidate_RejectsOpenAIShapeWithoutAPIKey(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Provider = "openai-shape"
	cfg.Embedding.Endpoint = "https://api.openai.com/v1"
	cfg.Embedding.APIKey = ""
	require.Error(t, Validate(cfg))
}

func TestValidate_RejectsSimilarityThresholdOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.SimilarityThreshold = 1.5
	require.Error(t, Validate(cfg))
}

func TestValidate_RejectsNonPositiveTopK(t *testing.T) {
	cfg := Default()
	cfg.TopK = 0
	require.Error(t, Validate(cfg))
}
