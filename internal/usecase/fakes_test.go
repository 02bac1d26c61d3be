package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"StorylineScanner/internal/domain"
)

// fakeStore records what the pipelines persist.
type fakeStore struct {
	topicPending   []domain.PendingArticle
	clusterPending []domain.PendingArticle

	topicRows []domain.TopicAssignment
	runs      []domain.ClusterRun
}

func (s *fakeStore) TopicPending(context.Context) ([]domain.PendingArticle, error) {
	return s.topicPending, nil
}

func (s *fakeStore) ClusterPending(context.Context, time.Time) ([]domain.PendingArticle, error) {
	return s.clusterPending, nil
}

func (s *fakeStore) UpsertTopicAssignments(_ context.Context, rows []domain.TopicAssignment) error {
	s.topicRows = append(s.topicRows, rows...)
	return nil
}

func (s *fakeStore) ApplyClusterRun(_ context.Context, run domain.ClusterRun) error {
	s.runs = append(s.runs, run)
	return nil
}

// fakeEmbedder maps each text to a fixed vector and counts calls.
type fakeEmbedder struct {
	vectors map[string][]float64
	calls   int
}

func (e *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	e.calls++
	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec, ok := e.vectors[text]
		if !ok {
			return nil, fmt.Errorf("no fake vector for %q", text)
		}
		out[i] = vec
	}
	return out, nil
}

// fakeClassifier labels by the sign of the first embedding component.
type fakeClassifier struct {
	topics []int64
}

func (c *fakeClassifier) Classify(embedding []float64) (int64, float64, error) {
	if embedding[0] > 0 {
		return 1, 0.9, nil
	}
	return 2, 0.8, nil
}

func (c *fakeClassifier) Topics() []int64 { return c.topics }

// fakeTagger echoes whitespace tokens; it never finds entities.
type fakeTagger struct{}

func (fakeTagger) Tag(_ context.Context, text string) ([]domain.Token, error) {
	var tokens []domain.Token
	for _, field := range strings.Fields(text) {
		tokens = append(tokens, domain.Token{Lemma: field})
	}
	return tokens, nil
}

func (fakeTagger) Entities(context.Context, string) ([]domain.Entity, error) {
	return nil, nil
}

// fakeExtractor returns one canned keyword per call, or a canned error.
type fakeExtractor struct {
	keyword string
	err     error
	calls   int
}

func (e *fakeExtractor) Extract(context.Context, domain.KeyphraseRequest) ([]domain.Keyword, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	if e.keyword == "" {
		return nil, nil
	}
	return []domain.Keyword{{Text: e.keyword, Score: 0.5}}, nil
}
