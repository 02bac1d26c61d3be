package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"StorylineScanner/internal/config"
	"StorylineScanner/internal/domain"
	"StorylineScanner/internal/ports"
)

// Client talks to the linguistic-pipeline service: lemma/POS tagging, named
// entity recognition and embedding-similarity keyphrase scoring.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

var _ ports.TextTagger = (*Client)(nil)
var _ ports.KeyphraseExtractor = (*Client)(nil)

// NewClient creates a reusable HTTP client.
func NewClient(cfg config.NLPConfig) *Client {
	return &Client{
		endpoint: strings.TrimRight(cfg.URL, "/"),
		apiKey:   cfg.APIKey,
		http:     &http.Client{Timeout: 120 * time.Second},
	}
}

// Tag lemmatizes the text and flags purely numeric tokens.
func (c *Client) Tag(ctx context.Context, text string) ([]domain.Token, error) {
	var resp struct {
		Tokens []struct {
			Lemma   string `json:"lemma"`
			POS     string `json:"pos"`
			Numeric bool   `json:"is_numeric"`
		} `json:"tokens"`
	}
	if err := c.post(ctx, "/tag", map[string]any{"text": text}, &resp); err != nil {
		return nil, fmt.Errorf("tag text: %w", err)
	}

	tokens := make([]domain.Token, len(resp.Tokens))
	for i, tok := range resp.Tokens {
		tokens[i] = domain.Token{Lemma: tok.Lemma, POS: tok.POS, Numeric: tok.Numeric}
	}
	return tokens, nil
}

// Entities returns the named entity spans of the text.
func (c *Client) Entities(ctx context.Context, text string) ([]domain.Entity, error) {
	var resp struct {
		Entities []struct {
			Text  string `json:"text"`
			Label string `json:"label"`
		} `json:"entities"`
	}
	if err := c.post(ctx, "/entities", map[string]any{"text": text}, &resp); err != nil {
		return nil, fmt.Errorf("extract entities: %w", err)
	}

	entities := make([]domain.Entity, len(resp.Entities))
	for i, ent := range resp.Entities {
		entities[i] = domain.Entity{Text: ent.Text, Label: ent.Label}
	}
	return entities, nil
}

// Extract scores keyphrases for the document. An empty result is valid.
func (c *Client) Extract(ctx context.Context, req domain.KeyphraseRequest) ([]domain.Keyword, error) {
	payload := map[string]any{
		"text":      req.Text,
		"ngram_min": req.NgramMin,
		"ngram_max": req.NgramMax,
		"top_n":     req.TopN,
	}
	if req.StopWords != "" {
		payload["stop_words"] = req.StopWords
	}
	if len(req.Candidates) > 0 {
		payload["candidates"] = req.Candidates
	}

	var resp struct {
		Phrases []struct {
			Phrase string  `json:"phrase"`
			Score  float64 `json:"score"`
		} `json:"phrases"`
	}
	if err := c.post(ctx, "/keyphrases", payload, &resp); err != nil {
		return nil, fmt.Errorf("extract keyphrases: %w", err)
	}

	keywords := make([]domain.Keyword, len(resp.Phrases))
	for i, p := range resp.Phrases {
		keywords[i] = domain.Keyword{Text: p.Phrase, Score: p.Score}
	}
	return keywords, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("nlp service %s: %s", resp.Status, strings.TrimSpace(string(detail)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
