package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"StorylineScanner/internal/domain"
	"StorylineScanner/internal/ports"
	"StorylineScanner/internal/textprep"
)

const defaultEmbedBatch = 256

// ClassifyDeps wires the driven adapters of the topic classification pass.
type ClassifyDeps struct {
	Store      ports.AssignmentStore
	Embedder   ports.Embedder
	Classifier ports.TopicClassifier
	BatchSize  int
	Logger     *slog.Logger
}

// ClassifyPipeline assigns a topic label and probability to every weekly
// row that does not have one yet.
type ClassifyPipeline struct {
	store      ports.AssignmentStore
	embedder   ports.Embedder
	classifier ports.TopicClassifier
	batchSize  int
	log        *slog.Logger
}

// NewClassifyPipeline constructs the classification pass.
func NewClassifyPipeline(deps ClassifyDeps) *ClassifyPipeline {
	batch := deps.BatchSize
	if batch <= 0 {
		batch = defaultEmbedBatch
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &ClassifyPipeline{
		store:      deps.Store,
		embedder:   deps.Embedder,
		classifier: deps.Classifier,
		batchSize:  batch,
		log:        log,
	}
}

// Run selects topic-pending rows, embeds their text in batches, classifies
// each embedding and upserts every assignment in a single transaction. It
// returns the number of rows labeled.
func (p *ClassifyPipeline) Run(ctx context.Context) (int, error) {
	pending, err := p.store.TopicPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("fetch topic-pending rows: %w", err)
	}
	if len(pending) == 0 {
		p.log.Info("no articles awaiting topic classification")
		return 0, nil
	}
	p.log.Info("classifying articles", "count", len(pending))

	rows := make([]domain.TopicAssignment, 0, len(pending))
	for start := 0; start < len(pending); start += p.batchSize {
		end := start + p.batchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		texts := make([]string, len(batch))
		for i, row := range batch {
			texts[i] = textprep.Clean(row.FullText)
		}

		embeddings, err := p.embedder.Embed(ctx, texts)
		if err != nil {
			return 0, fmt.Errorf("embed batch: %w", err)
		}
		if len(embeddings) != len(batch) {
			return 0, fmt.Errorf("embedder returned %d vectors for %d articles", len(embeddings), len(batch))
		}

		for i, row := range batch {
			topicID, probability, err := p.classifier.Classify(embeddings[i])
			if err != nil {
				return 0, fmt.Errorf("classify article %d: %w", row.ArticleID, err)
			}
			rows = append(rows, domain.TopicAssignment{
				TeamID:      row.TeamID,
				ArticleID:   row.ArticleID,
				Week:        row.Week,
				TopicID:     topicID,
				Probability: probability,
			})
		}
	}

	if err := p.store.UpsertTopicAssignments(ctx, rows); err != nil {
		return 0, fmt.Errorf("persist topic assignments: %w", err)
	}
	p.log.Info("topic assignments committed", "rows", len(rows))
	return len(rows), nil
}
