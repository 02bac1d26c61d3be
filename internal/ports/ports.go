package ports

import (
	"context"
	"time"

	"StorylineScanner/internal/domain"
)

// AssignmentStore reads pending work and persists pass outputs. Each write
// method commits all its rows in a single transaction or none of them.
type AssignmentStore interface {
	// TopicPending returns every (team, article, week) row whose topic is
	// still unset, including rows with no weekly_topic record yet.
	TopicPending(ctx context.Context) ([]domain.PendingArticle, error)
	// ClusterPending returns rows whose cluster is still unset, restricted
	// to weeks that have fully elapsed at time now.
	ClusterPending(ctx context.Context, now time.Time) ([]domain.PendingArticle, error)
	UpsertTopicAssignments(ctx context.Context, rows []domain.TopicAssignment) error
	ApplyClusterRun(ctx context.Context, run domain.ClusterRun) error
}

// Embedder maps article texts to fixed-length dense vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float64, error)
}

// TopicClassifier maps an embedding to a topic label with a confidence.
type TopicClassifier interface {
	Classify(embedding []float64) (topicID int64, probability float64, err error)
	// Topics returns the full ordered category set the model was trained
	// on; the clustering features one-hot encode against it.
	Topics() []int64
}

// TextTagger exposes the linguistic pipeline: lemma/POS tagging and named
// entity recognition.
type TextTagger interface {
	Tag(ctx context.Context, text string) ([]domain.Token, error)
	Entities(ctx context.Context, text string) ([]domain.Entity, error)
}

// KeyphraseExtractor scores candidate phrases against a document.
type KeyphraseExtractor interface {
	Extract(ctx context.Context, req domain.KeyphraseRequest) ([]domain.Keyword, error)
}

// Notifier publishes run summaries to an external channel.
type Notifier interface {
	PublishRunSummary(ctx context.Context, summary string) error
}

// Scheduler triggers recurring pipeline runs.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

// RunLocker serializes pipeline invocations across processes. The pipeline
// itself has no internal locking; the lock is taken once per invocation,
// before any row is selected.
type RunLocker interface {
	// TryAcquire returns acquired=false when another invocation holds the
	// lock. On success the caller must invoke release exactly once.
	TryAcquire(ctx context.Context) (release func(), acquired bool, err error)
}
