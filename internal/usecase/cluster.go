package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"StorylineScanner/internal/cluster"
	"StorylineScanner/internal/domain"
	"StorylineScanner/internal/keywords"
	"StorylineScanner/internal/ports"
	"StorylineScanner/internal/textprep"
)

// ClusterDeps wires the driven adapters of the weekly clustering pass.
type ClusterDeps struct {
	Store    ports.AssignmentStore
	Embedder ports.Embedder
	Keywords *keywords.Engine
	KMeans   *cluster.KMeans
	// TopicCategories is the classifier's full topic set; one-hot features
	// are encoded against it so every group shares one feature width.
	TopicCategories []int64
	Now             func() time.Time
	Logger          *slog.Logger
}

// ClusterStats summarizes one clustering invocation.
type ClusterStats struct {
	Articles int
	Groups   int
	Clusters int
	Keywords int
}

// ClusterPipeline partitions each team's fully elapsed weeks into
// storylines, extracts their keywords, and persists the whole run in one
// transaction.
type ClusterPipeline struct {
	store      ports.AssignmentStore
	embedder   ports.Embedder
	keywords   *keywords.Engine
	kmeans     *cluster.KMeans
	categories []int64
	now        func() time.Time
	log        *slog.Logger
}

// NewClusterPipeline constructs the clustering pass.
func NewClusterPipeline(deps ClusterDeps) *ClusterPipeline {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	km := deps.KMeans
	if km == nil {
		km = cluster.NewKMeans(42)
	}
	return &ClusterPipeline{
		store:      deps.Store,
		embedder:   deps.Embedder,
		keywords:   deps.Keywords,
		kmeans:     km,
		categories: deps.TopicCategories,
		now:        now,
		log:        log,
	}
}

// group is the clustering unit: every pending row of one team in one week.
type group struct {
	TeamID int64
	Week   domain.Week
	Rows   []domain.PendingArticle
}

// Run executes the clustering pass. Any failure aborts the whole run; no
// group commits on its own.
func (p *ClusterPipeline) Run(ctx context.Context) (ClusterStats, error) {
	var stats ClusterStats

	pending, err := p.store.ClusterPending(ctx, p.now())
	if err != nil {
		return stats, fmt.Errorf("fetch cluster-pending rows: %w", err)
	}
	if len(pending) == 0 {
		p.log.Info("no articles awaiting clustering")
		return stats, nil
	}

	groups := groupByTeamWeek(pending)
	stats.Articles = len(pending)
	stats.Groups = len(groups)
	p.log.Info("clustering weekly groups", "articles", len(pending), "groups", len(groups))

	var run domain.ClusterRun
	for _, g := range groups {
		labels, err := p.clusterGroup(ctx, g)
		if err != nil {
			return stats, fmt.Errorf("cluster group (team=%d week=%s): %w",
				g.TeamID, g.Week.Start.Format("2006-01-02"), err)
		}

		members := make(map[int][]domain.PendingArticle)
		for i, row := range g.Rows {
			run.Assignments = append(run.Assignments, domain.ClusterAssignment{
				TeamID:    row.TeamID,
				ArticleID: row.ArticleID,
				Week:      row.Week,
				ClusterID: labels[i],
			})
			members[labels[i]] = append(members[labels[i]], row)
		}

		clusterIDs := make([]int, 0, len(members))
		for id := range members {
			clusterIDs = append(clusterIDs, id)
		}
		sort.Ints(clusterIDs)

		for _, clusterID := range clusterIDs {
			rows := members[clusterID]
			run.Clusters = append(run.Clusters, domain.ClusterSummary{
				TeamID:    g.TeamID,
				Week:      g.Week,
				ClusterID: clusterID,
				Size:      len(rows),
			})
			stats.Clusters++

			texts := make([]string, len(rows))
			for i, row := range rows {
				texts[i] = textprep.Clean(row.FullText)
			}
			kws, err := p.keywords.ForCluster(ctx, g.TeamID, strings.Join(texts, " "))
			if err != nil {
				return stats, fmt.Errorf("keywords for group (team=%d week=%s cluster=%d): %w",
					g.TeamID, g.Week.Start.Format("2006-01-02"), clusterID, err)
			}
			for _, kw := range kws {
				run.Keywords = append(run.Keywords, domain.ClusterKeyword{
					TeamID:    g.TeamID,
					Week:      g.Week,
					ClusterID: clusterID,
					Keyword:   kw.Text,
					Score:     kw.Score,
				})
			}
			stats.Keywords += len(kws)
		}
	}

	if err := p.store.ApplyClusterRun(ctx, run); err != nil {
		return stats, fmt.Errorf("persist cluster run: %w", err)
	}
	p.log.Info("cluster run committed",
		"groups", stats.Groups, "clusters", stats.Clusters, "keywords", stats.Keywords)
	return stats, nil
}

// clusterGroup returns a 0-based cluster label for every row of the group.
// Groups with fewer than two articles are a single storyline by definition
// and skip the search entirely.
func (p *ClusterPipeline) clusterGroup(ctx context.Context, g group) ([]int, error) {
	if len(g.Rows) < 2 {
		p.log.Info("group below clustering threshold, labeling as single storyline",
			"team_id", g.TeamID, "week", g.Week.Start.Format("2006-01-02"), "articles", len(g.Rows))
		return make([]int, len(g.Rows)), nil
	}

	texts := make([]string, len(g.Rows))
	topics := make([]*int64, len(g.Rows))
	for i, row := range g.Rows {
		texts[i] = textprep.Clean(row.FullText)
		topics[i] = row.TopicID
	}

	embeddings, err := p.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed group: %w", err)
	}
	if len(embeddings) != len(g.Rows) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d articles", len(embeddings), len(g.Rows))
	}

	features, err := cluster.FeatureMatrix(embeddings, topics, p.categories)
	if err != nil {
		return nil, fmt.Errorf("build feature matrix: %w", err)
	}

	k, err := p.kmeans.SearchK(features)
	if err != nil {
		return nil, fmt.Errorf("search cluster count: %w", err)
	}

	res, err := p.kmeans.Fit(features, k)
	if err != nil {
		return nil, fmt.Errorf("fit k=%d: %w", k, err)
	}

	p.log.Info("clustered weekly group",
		"team_id", g.TeamID, "week", g.Week.Start.Format("2006-01-02"),
		"articles", len(g.Rows), "k", k)
	return res.Assignments, nil
}

// groupByTeamWeek buckets pending rows into (team, week) groups, ordered by
// team then week start for deterministic processing.
func groupByTeamWeek(pending []domain.PendingArticle) []group {
	type key struct {
		TeamID  int64
		WeekKey int64
	}

	byKey := make(map[key]*group)
	var order []key
	for _, row := range pending {
		k := key{TeamID: row.TeamID, WeekKey: row.Week.Key()}
		g, ok := byKey[k]
		if !ok {
			g = &group{TeamID: row.TeamID, Week: row.Week}
			byKey[k] = g
			order = append(order, k)
		}
		g.Rows = append(g.Rows, row)
	}

	sort.Slice(order, func(i, j int) bool {
		if order[i].TeamID != order[j].TeamID {
			return order[i].TeamID < order[j].TeamID
		}
		return order[i].WeekKey < order[j].WeekKey
	})

	groups := make([]group, len(order))
	for i, k := range order {
		groups[i] = *byKey[k]
	}
	return groups
}
