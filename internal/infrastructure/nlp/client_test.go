package nlp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"StorylineScanner/internal/config"
	"StorylineScanner/internal/domain"
)

func newTestServer(t *testing.T, handlers map[string]func(body map[string]any) any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler, ok := handlers[r.URL.Path]
		if !ok {
			t.Errorf("unexpected path %s", r.URL.Path)
			http.NotFound(w, r)
			return
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(handler(body))
	}))
}

func TestTag(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, map[string]func(map[string]any) any{
		"/tag": func(body map[string]any) any {
			if body["text"] != "Saka scored 2 goals" {
				t.Errorf("unexpected text %q", body["text"])
			}
			return map[string]any{"tokens": []map[string]any{
				{"lemma": "saka", "pos": "PROPN", "is_numeric": false},
				{"lemma": "score", "pos": "VERB", "is_numeric": false},
				{"lemma": "2", "pos": "NUM", "is_numeric": true},
				{"lemma": "goal", "pos": "NOUN", "is_numeric": false},
			}}
		},
	})
	defer server.Close()

	client := NewClient(config.NLPConfig{URL: server.URL})
	tokens, err := client.Tag(context.Background(), "Saka scored 2 goals")
	if err != nil {
		t.Fatalf("Tag returned error: %v", err)
	}

	want := []domain.Token{
		{Lemma: "saka", POS: "PROPN"},
		{Lemma: "score", POS: "VERB"},
		{Lemma: "2", POS: "NUM", Numeric: true},
		{Lemma: "goal", POS: "NOUN"},
	}
	if len(tokens) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(tokens), len(want))
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Fatalf("token %d = %+v, want %+v", i, tokens[i], want[i])
		}
	}
}

func TestEntities(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, map[string]func(map[string]any) any{
		"/entities": func(map[string]any) any {
			return map[string]any{"entities": []map[string]any{
				{"text": "Bukayo Saka", "label": "PERSON"},
				{"text": "Arsenal", "label": "ORG"},
			}}
		},
	})
	defer server.Close()

	client := NewClient(config.NLPConfig{URL: server.URL})
	entities, err := client.Entities(context.Background(), "Bukayo Saka stars for Arsenal")
	if err != nil {
		t.Fatalf("Entities returned error: %v", err)
	}

	if len(entities) != 2 {
		t.Fatalf("got %d entities, want 2", len(entities))
	}
	if entities[0] != (domain.Entity{Text: "Bukayo Saka", Label: domain.EntityPerson}) {
		t.Fatalf("unexpected first entity %+v", entities[0])
	}
	if entities[1].Label != "ORG" {
		t.Fatalf("unexpected second entity %+v", entities[1])
	}
}

func TestExtractSendsOptionalFields(t *testing.T) {
	t.Parallel()

	server := newTestServer(t, map[string]func(map[string]any) any{
		"/keyphrases": func(body map[string]any) any {
			if body["ngram_min"].(float64) != 1 || body["ngram_max"].(float64) != 3 {
				t.Errorf("unexpected ngram range %v..%v", body["ngram_min"], body["ngram_max"])
			}
			if body["top_n"].(float64) != 10 {
				t.Errorf("unexpected top_n %v", body["top_n"])
			}
			if _, ok := body["stop_words"]; ok {
				t.Error("stop_words should be omitted when empty")
			}
			candidates, ok := body["candidates"].([]any)
			if !ok || len(candidates) != 2 {
				t.Errorf("unexpected candidates %v", body["candidates"])
			}
			return map[string]any{"phrases": []map[string]any{
				{"phrase": "bukayo saka", "score": 0.91},
				{"phrase": "mikel arteta", "score": 0.84},
			}}
		},
	})
	defer server.Close()

	client := NewClient(config.NLPConfig{URL: server.URL})
	keywords, err := client.Extract(context.Background(), domain.KeyphraseRequest{
		Text:       "match report",
		NgramMin:   1,
		NgramMax:   3,
		Candidates: []string{"bukayo saka", "mikel arteta"},
		TopN:       10,
	})
	if err != nil {
		t.Fatalf("Extract returned error: %v", err)
	}

	if len(keywords) != 2 {
		t.Fatalf("got %d keywords, want 2", len(keywords))
	}
	if keywords[0] != (domain.Keyword{Text: "bukayo saka", Score: 0.91}) {
		t.Fatalf("unexpected first keyword %+v", keywords[0])
	}
}

func TestExtractServerErrorIncludesDetail(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := NewClient(config.NLPConfig{URL: server.URL})
	_, err := client.Extract(context.Background(), domain.KeyphraseRequest{Text: "x", NgramMin: 1, NgramMax: 2, TopN: 10})
	if err == nil {
		t.Fatal("expected error on server failure")
	}
}
