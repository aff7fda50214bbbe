// Package config defines the on-disk configuration shape and loader for a
// docsentinel store: which paths are code/docs/ignored, which embedding and
// enrichment collaborators to use, and the thresholds the Drift Engine runs
// with.
package config

// Config represents the complete docsentinel configuration. It can be
// loaded from .docsentinel/config.toml with environment variable overrides.
type Config struct {
	Patterns  PatternsConfig  `toml:"patterns" mapstructure:"patterns"`
	Embedding EmbeddingConfig `toml:"embedding" mapstructure:"embedding"`
	LLM       LLMConfig       `toml:"llm" mapstructure:"llm"`

	SimilarityThreshold float64 `toml:"similarity_threshold" mapstructure:"similarity_threshold"`
	TopK                int     `toml:"top_k" mapstructure:"top_k"`
}

// PatternsConfig controls the Repository Walker's classification.
type PatternsConfig struct {
	Doc       []string `toml:"doc_patterns" mapstructure:"doc_patterns"`
	Code      []string `toml:"code_patterns" mapstructure:"code_patterns"`
	Ignore    []string `toml:"ignore_patterns" mapstructure:"ignore_patterns"`
	Languages []string `toml:"languages" mapstructure:"languages"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	Provider  string `toml:"provider" mapstructure:"provider"` // "mock", "local-http", "openai-shape"
	Endpoint  string `toml:"endpoint" mapstructure:"endpoint"`
	Model     string `toml:"model" mapstructure:"model"`
	APIKey    string `toml:"api_key" mapstructure:"api_key"`
	Dimension int    `toml:"dimension" mapstructure:"dimension"`
}

// LLMConfig configures the optional enrichment collaborator. Nothing in
// this tree implements an Enricher against these parameters -- per the
// engine's documented scoping decision, wiring a language-model client is
// left to whatever caller configures one -- but the shape is part of the
// store's external contract, so it is parsed regardless. Validate does not
// check any of its fields.
type LLMConfig struct {
	Endpoint    string  `toml:"endpoint" mapstructure:"endpoint"`
	Model       string  `toml:"model" mapstructure:"model"`
	MaxTokens   int     `toml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64 `toml:"temperature" mapstructure:"temperature"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Patterns: PatternsConfig{
			Code: []string{
				"**/*.rs",
				"**/*.py",
			},
			Doc: []string{
				"**/*.md",
			},
			Ignore: []string{
				"node_modules/**",
				"vendor/**",
				".git/**",
				"target/**",
				"__pycache__/**",
				".docsentinel/**",
			},
			Languages: []string{"rust", "python"},
		},
		Embedding: EmbeddingConfig{
			Provider:  "mock",
			Model:     "mock-384",
			Dimension: 384,
		},
		LLM: LLMConfig{
			MaxTokens:   512,
			Temperature: 0.2,
		},
		SimilarityThreshold: 0.7,
		TopK:                5,
	}
}
