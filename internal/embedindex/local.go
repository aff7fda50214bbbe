package embedindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// LocalHTTPProvider calls a locally running embedding server shaped like
// Ollama's /api/embed endpoint: POST a batch of inputs, get back one vector
// per input. It does not manage the server's lifecycle -- unlike the
// teacher's local provider, which spawns and supervises a child process,
// the drift detector's core treats the embedding backend purely as an
// external collaborator it talks HTTP to.
type LocalHTTPProvider struct {
	baseURL    string
	model      string
	dimensions int
	client     *http.Client
}

// NewLocalHTTPProvider returns a provider that POSTs to baseURL+"/api/embed".
func NewLocalHTTPProvider(baseURL, model string, dimensions int) *LocalHTTPProvider {
	return &LocalHTTPProvider{
		baseURL:    baseURL,
		model:      model,
		dimensions: dimensions,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

type localEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type localEmbedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (p *LocalHTTPProvider) Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	reqBody, err := json.Marshal(localEmbedRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/api/embed", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedindex: local provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedindex: local provider returned status %d", resp.StatusCode)
	}

	var out localEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("embedindex: decoding local provider response: %w", err)
	}
	return out.Embeddings, nil
}

func (p *LocalHTTPProvider) Dimensions() int { return p.dimensions }

func (p *LocalHTTPProvider) Close() error { return nil }

// OpenAIShapeProvider calls an OpenAI-compatible /v1/embeddings endpoint
// with bearer auth, covering hosted providers and self-hosted gateways that
// mimic the OpenAI embeddings API shape.
type OpenAIShapeProvider struct {
	baseURL    string
	apiKey     string
	model      string
	dimensions int
	client     *http.Client
}

func NewOpenAIShapeProvider(baseURL, apiKey, model string, dimensions int) *OpenAIShapeProvider {
	return &OpenAIShapeProvider{
		baseURL:    baseURL,
		apiKey:     apiKey,
		model:      model,
		dimensions: dimensions,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

type openAIEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
}

func (p *OpenAIShapeProvider) Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	reqBody, err := json.Marshal(openAIEmbedRequest{Model: p.model, Input: texts})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/embeddings", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedindex: openai-shape provider request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("embedindex: openai-shape provider returned status %d", resp.StatusCode)
	}

	var out openAIEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("embedindex: decoding openai-shape response: %w", err)
	}

	vectors := make([][]float32, len(texts))
	for _, d := range out.Data {
		if d.Index >= 0 && d.Index < len(vectors) {
			vectors[d.Index] = d.Embedding
		}
	}
	return vectors, nil
}

func (p *OpenAIShapeProvider) Dimensions() int { return p.dimensions }

func (p *OpenAIShapeProvider) Close() error { return nil }
