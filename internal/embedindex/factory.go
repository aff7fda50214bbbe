package embedindex

import "fmt"

// Config selects and configures a Provider implementation.
type Config struct {
	// Provider names which implementation to construct: "mock", "local-http",
	// or "openai-shape". Empty defaults to "mock".
	Provider string

	Endpoint   string
	APIKey     string
	Model      string
	Dimensions int
}

// NewProvider builds a Provider from Config.
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Provider {
	case "mock", "":
		return NewMockProvider(cfg.Dimensions), nil
	case "local-http":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("embedindex: local-http provider requires an endpoint")
		}
		return NewLocalHTTPProvider(cfg.Endpoint, cfg.Model, cfg.Dimensions), nil
	case "openai-shape":
		if cfg.Endpoint == "" || cfg.APIKey == "" {
			return nil, fmt.Errorf("embedindex: openai-shape provider requires an endpoint and api key")
		}
		return NewOpenAIShapeProvider(cfg.Endpoint, cfg.APIKey, cfg.Model, cfg.Dimensions), nil
	default:
		return nil, fmt.Errorf("embedindex: unsupported provider %q (supported: mock, local-http, openai-shape)", cfg.Provider)
	}
}
