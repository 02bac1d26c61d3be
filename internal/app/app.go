package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"StorylineScanner/internal/cluster"
	"StorylineScanner/internal/config"
	"StorylineScanner/internal/infrastructure/ml"
	"StorylineScanner/internal/infrastructure/nlp"
	"StorylineScanner/internal/infrastructure/scheduler"
	"StorylineScanner/internal/infrastructure/storage"
	"StorylineScanner/internal/infrastructure/telegram"
	"StorylineScanner/internal/keywords"
	"StorylineScanner/internal/logging"
	"StorylineScanner/internal/ports"
	"StorylineScanner/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	log      *slog.Logger
	db       *sql.DB
	classify *usecase.ClassifyPipeline
	cluster  *usecase.ClusterPipeline
	locker   ports.RunLocker
	notifier ports.Notifier
}

// New builds a runnable application instance. The classifier artifact is
// loaded and validated before the database is touched.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}

	classifier, err := ml.LoadClassifier(cfg.Classifier.ModelPath)
	if err != nil {
		return nil, err
	}
	baseLogger.Info("classifier loaded", "version", classifier.Version(), "topics", len(classifier.Topics()))

	aliases, err := cfg.CompileAliases()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	repo := storage.NewPostgresRepository(db)
	embedder := ml.NewEmbedder(cfg.Embedder)
	nlpClient := nlp.NewClient(cfg.NLP)
	kwEngine := keywords.NewEngine(nlpClient, nlpClient, aliases, baseLogger.With("component", "keywords"))

	km := cluster.NewKMeans(cfg.Clustering.Seed)
	if cfg.Clustering.MaxIterations > 0 {
		km.MaxIterations = cfg.Clustering.MaxIterations
	}

	classify := usecase.NewClassifyPipeline(usecase.ClassifyDeps{
		Store:      repo,
		Embedder:   embedder,
		Classifier: classifier,
		BatchSize:  cfg.Embedder.BatchSize,
		Logger:     baseLogger.With("component", "classify"),
	})

	clusterPipeline := usecase.NewClusterPipeline(usecase.ClusterDeps{
		Store:           repo,
		Embedder:        embedder,
		Keywords:        kwEngine,
		KMeans:          km,
		TopicCategories: classifier.Topics(),
		Logger:          baseLogger.With("component", "cluster"),
	})

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" && cfg.Notifications.Telegram.ChatID != "" {
		notifier = telegram.NewNotifier(cfg.Notifications.Telegram.BotToken, cfg.Notifications.Telegram.ChatID)
	}

	var locker ports.RunLocker = storage.NoopLocker{}
	if cfg.Database.LockKey != 0 {
		locker = storage.NewAdvisoryLock(db, cfg.Database.LockKey)
	}

	return &Application{
		cfg:      cfg,
		log:      baseLogger,
		db:       db,
		classify: classify,
		cluster:  clusterPipeline,
		locker:   locker,
		notifier: notifier,
	}, nil
}

// RunOnce executes one full invocation, classification then clustering,
// under the run lock. A busy lock means another invocation is in flight;
// the run is skipped cleanly.
func (a *Application) RunOnce(ctx context.Context) error {
	release, acquired, err := a.locker.TryAcquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !acquired {
		a.log.Warn("another invocation holds the run lock, skipping")
		return nil
	}
	defer release()

	started := time.Now()

	classified, err := a.classify.Run(ctx)
	if err != nil {
		return fmt.Errorf("classification pass: %w", err)
	}

	stats, err := a.cluster.Run(ctx)
	if err != nil {
		return fmt.Errorf("clustering pass: %w", err)
	}

	if a.notifier != nil {
		summary := fmt.Sprintf("Storyline run finished in %s: %d articles classified, %d groups into %d storylines, %d keywords.",
			time.Since(started).Round(time.Second), classified, stats.Groups, stats.Clusters, stats.Keywords)
		if err := a.notifier.PublishRunSummary(ctx, summary); err != nil {
			a.log.Warn("publish run summary", "error", err)
		}
	}

	return nil
}

// Run performs a single invocation, or blocks on the cron schedule when the
// scheduler is enabled.
func (a *Application) Run(ctx context.Context) error {
	if !a.cfg.Scheduler.Enabled {
		return a.RunOnce(ctx)
	}

	driver := scheduler.NewCronScheduler(a.cfg.Scheduler.CronExpression, a.cfg.Scheduler.Location())
	runner := usecase.NewScheduler(driver, func(jobCtx context.Context) error {
		if err := a.RunOnce(jobCtx); err != nil {
			a.log.Error("scheduled run failed", "error", err)
			return err
		}
		return nil
	})

	if err := runner.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	a.log.Info("scheduler started", "cron", a.cfg.Scheduler.CronExpression, "timezone", a.cfg.Scheduler.Timezone)

	<-ctx.Done()

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return runner.Stop(stopCtx)
}

// Close releases the database handle.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
