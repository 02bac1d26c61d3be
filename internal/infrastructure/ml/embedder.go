package ml

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"StorylineScanner/internal/config"
	"StorylineScanner/internal/ports"
)

const defaultBatchSize = 256

// Embedder talks to an external sentence-embedding service. The model is
// deterministic for a given version, so embeddings are treated as a pure
// function of the text.
type Embedder struct {
	endpoint string
	apiKey   string
	batch    int
	http     *http.Client
}

var _ ports.Embedder = (*Embedder)(nil)

// NewEmbedder creates a reusable HTTP client.
func NewEmbedder(cfg config.EmbedderConfig) *Embedder {
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	return &Embedder{
		endpoint: strings.TrimRight(cfg.URL, "/"),
		apiKey:   cfg.APIKey,
		batch:    batch,
		http:     &http.Client{Timeout: 60 * time.Second},
	}
}

// Embed encodes texts in fixed-size batches to keep request payloads
// bounded. The result preserves input order.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float64, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	out := make([][]float64, 0, len(texts))
	for start := 0; start < len(texts); start += e.batch {
		end := start + e.batch
		if end > len(texts) {
			end = len(texts)
		}

		var resp struct {
			Embeddings [][]float64 `json:"embeddings"`
		}
		if err := e.post(ctx, "/embed", map[string]any{"texts": texts[start:end]}, &resp); err != nil {
			return nil, fmt.Errorf("embed batch [%d:%d]: %w", start, end, err)
		}
		if len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(resp.Embeddings), end-start)
		}
		out = append(out, resp.Embeddings...)
	}

	return out, nil
}

func (e *Embedder) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
