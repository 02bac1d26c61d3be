package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"StorylineScanner/internal/domain"
	"StorylineScanner/internal/ports"
)

// Repository reads pending work from the article store and persists pass
// outputs. All writes of one call commit in a single transaction; a failed
// write rolls back everything, so a crashed run leaves the store untouched.
//
// Pending rows are the ones whose weekly_topic record is missing or still
// carries a NULL topic_id/cluster_id; those NULL columns are the work
// queue, there is no separate job table.
type Repository struct {
	db      *sql.DB
	builder sq.StatementBuilderType
}

var _ ports.AssignmentStore = (*Repository)(nil)

// NewPostgresRepository wires a Postgres-backed store ($N placeholders).
func NewPostgresRepository(db *sql.DB) *Repository {
	return &Repository{db: db, builder: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

// NewSQLiteRepository wires a SQLite-backed store (? placeholders). The
// upsert statements are portable across both engines.
func NewSQLiteRepository(db *sql.DB) *Repository {
	return &Repository{db: db, builder: sq.StatementBuilder.PlaceholderFormat(sq.Question)}
}

// TopicPending returns every (team, article) pair with no topic label yet.
func (r *Repository) TopicPending(ctx context.Context) ([]domain.PendingArticle, error) {
	return r.pending(ctx, sq.Expr("wt.topic_id IS NULL"))
}

// ClusterPending returns every (team, article) pair with no cluster yet
// whose week has fully elapsed. A week has elapsed exactly when the article
// was published before the Monday of now's week, which keeps the cutoff a
// single portable comparison.
func (r *Repository) ClusterPending(ctx context.Context, now time.Time) ([]domain.PendingArticle, error) {
	cutoff := domain.WeekOf(now).Start
	return r.pending(ctx,
		sq.Expr("wt.cluster_id IS NULL"),
		sq.Lt{"a.publication_date": cutoff},
	)
}

func (r *Repository) pending(ctx context.Context, conds ...sq.Sqlizer) ([]domain.PendingArticle, error) {
	query := r.builder.
		Select("at.team_id", "a.id", "a.publication_date", "a.full_text", "wt.topic_id").
		From("article_teams at").
		Join("articles a ON a.id = at.article_id").
		LeftJoin("weekly_topic wt ON wt.article_id = a.id AND wt.team_id = at.team_id").
		OrderBy("at.team_id", "a.publication_date", "a.id")
	for _, cond := range conds {
		query = query.Where(cond)
	}

	sqlStr, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build pending query: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query pending rows: %w", err)
	}
	defer rows.Close()

	var result []domain.PendingArticle
	for rows.Next() {
		var (
			row         domain.PendingArticle
			publishedAt time.Time
			topicID     sql.NullInt64
		)
		if err := rows.Scan(&row.TeamID, &row.ArticleID, &publishedAt, &row.FullText, &topicID); err != nil {
			return nil, fmt.Errorf("scan pending row: %w", err)
		}
		row.Week = domain.WeekOf(publishedAt)
		if topicID.Valid {
			id := topicID.Int64
			row.TopicID = &id
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending rows: %w", err)
	}

	return result, nil
}

// UpsertTopicAssignments writes the classification pass output. Conflicting
// rows keep their identity and take the latest topic_id and probability.
func (r *Repository) UpsertTopicAssignments(ctx context.Context, rows []domain.TopicAssignment) error {
	if len(rows) == 0 {
		return nil
	}

	return r.inTx(ctx, func(tx *sql.Tx) error {
		for _, row := range rows {
			query := r.builder.
				Insert("weekly_topic").
				Columns("team_id", "week_start", "week_end", "article_id", "topic_id", "topic_probability").
				Values(row.TeamID, row.Week.Start, row.Week.End, row.ArticleID, row.TopicID, row.Probability).
				Suffix(`ON CONFLICT (team_id, week_start, week_end, article_id) DO UPDATE SET
					topic_id = excluded.topic_id,
					topic_probability = excluded.topic_probability`)
			if err := execIn(ctx, tx, query); err != nil {
				return fmt.Errorf("upsert topic row (team=%d article=%d): %w", row.TeamID, row.ArticleID, err)
			}
		}
		return nil
	})
}

// ApplyClusterRun writes everything one clustering invocation produced:
// cluster summaries, keywords and per-article cluster assignments. The
// batch is atomic; re-applying an identical run is a no-op in effect.
func (r *Repository) ApplyClusterRun(ctx context.Context, run domain.ClusterRun) error {
	if run.Empty() {
		return nil
	}

	return r.inTx(ctx, func(tx *sql.Tx) error {
		for _, c := range run.Clusters {
			query := r.builder.
				Insert("weekly_clusters").
				Columns("team_id", "week_start", "week_end", "cluster_id", "size").
				Values(c.TeamID, c.Week.Start, c.Week.End, c.ClusterID, c.Size).
				Suffix(`ON CONFLICT (team_id, week_start, week_end, cluster_id) DO UPDATE SET
					size = excluded.size`)
			if err := execIn(ctx, tx, query); err != nil {
				return fmt.Errorf("upsert cluster (team=%d cluster=%d): %w", c.TeamID, c.ClusterID, err)
			}
		}

		for _, kw := range run.Keywords {
			query := r.builder.
				Insert("weekly_keywords").
				Columns("team_id", "week_start", "week_end", "cluster_id", "keyword", "score").
				Values(kw.TeamID, kw.Week.Start, kw.Week.End, kw.ClusterID, kw.Keyword, kw.Score).
				Suffix(`ON CONFLICT (team_id, week_start, week_end, cluster_id, keyword) DO UPDATE SET
					score = excluded.score`)
			if err := execIn(ctx, tx, query); err != nil {
				return fmt.Errorf("upsert keyword (team=%d cluster=%d %q): %w", kw.TeamID, kw.ClusterID, kw.Keyword, err)
			}
		}

		for _, a := range run.Assignments {
			query := r.builder.
				Insert("weekly_topic").
				Columns("team_id", "week_start", "week_end", "article_id", "cluster_id").
				Values(a.TeamID, a.Week.Start, a.Week.End, a.ArticleID, a.ClusterID).
				Suffix(`ON CONFLICT (team_id, week_start, week_end, article_id) DO UPDATE SET
					cluster_id = excluded.cluster_id`)
			if err := execIn(ctx, tx, query); err != nil {
				return fmt.Errorf("upsert assignment (team=%d article=%d): %w", a.TeamID, a.ArticleID, err)
			}
		}

		return nil
	})
}

func (r *Repository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func execIn(ctx context.Context, tx *sql.Tx, query sq.InsertBuilder) error {
	sqlStr, args, err := query.ToSql()
	if err != nil {
		return fmt.Errorf("build statement: %w", err)
	}
	if _, err := tx.ExecContext(ctx, sqlStr, args...); err != nil {
		return err
	}
	return nil
}
