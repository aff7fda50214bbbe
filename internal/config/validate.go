package config

import (
	"fmt"
	"strings"

	"github.com/docsentinel/docsentinel/internal/driftcore"
)

var validProviders = map[string]bool{
	"mock":         true,
	"local-http":   true,
	"openai-shape": true,
}

// Validate checks that the configuration is valid and complete, wrapping
// every problem found in driftcore.ErrInvalidConfig.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateEmbedding(&cfg.Embedding); err != nil {
		errs = append(errs, err)
	}
	if cfg.SimilarityThreshold < 0 || cfg.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("similarity_threshold must be in [0,1], got %v", cfg.SimilarityThreshold))
	}
	if cfg.TopK <= 0 {
		errs = append(errs, fmt.Errorf("top_k must be positive, got %d", cfg.TopK))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", driftcore.ErrInvalidConfig, joinErrors(errs))
	}
	return nil
}

func validateEmbedding(cfg *EmbeddingConfig) error {
	var errs []error

	provider := strings.ToLower(cfg.Provider)
	if !validProviders[provider] {
		errs = append(errs, fmt.Errorf("embedding.provider must be one of mock, local-http, openai-shape, got %q", cfg.Provider))
	}
	if cfg.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("embedding.dimension must be positive, got %d", cfg.Dimension))
	}
	if provider == "local-http" && strings.TrimSpace(cfg.Endpoint) == "" {
		errs = append(errs, fmt.Errorf("embedding.endpoint is required for provider %q", cfg.Provider))
	}
	if provider == "openai-shape" {
		if strings.TrimSpace(cfg.Endpoint) == "" {
			errs = append(errs, fmt.Errorf("embedding.endpoint is required for provider %q", cfg.Provider))
		}
		if strings.TrimSpace(cfg.APIKey) == "" {
			errs = append(errs, fmt.Errorf("embedding.api_key is required for provider %q", cfg.Provider))
		}
	}

	if len(errs) > 0 {
		return joinErrors(errs)
	}
	return nil
}

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
