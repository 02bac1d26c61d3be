package domain

import "time"

// Article is a scraped news item. Immutable once ingested; the pipeline
// never mutates it, only derives weekly labels from it.
type Article struct {
	ID          int64
	Outlet      string
	Author      string
	FullText    string
	PublishedAt time.Time
}

// PendingArticle is one (team, article, week) combination still awaiting a
// pass. TopicID is nil until the classification pass has run for the row.
type PendingArticle struct {
	TeamID    int64
	ArticleID int64
	Week      Week
	FullText  string
	TopicID   *int64
}

// TopicAssignment is the classification pass output for one row.
type TopicAssignment struct {
	TeamID      int64
	ArticleID   int64
	Week        Week
	TopicID     int64
	Probability float64
}

// ClusterAssignment records the storyline an article belongs to within its
// (team, week) group. Cluster ids are 0-based and local to the group.
type ClusterAssignment struct {
	TeamID    int64
	ArticleID int64
	Week      Week
	ClusterID int
}

// ClusterSummary is one storyline of a (team, week) group with its size.
type ClusterSummary struct {
	TeamID    int64
	Week      Week
	ClusterID int
	Size      int
}

// ClusterKeyword is a scored representative keyword of one storyline.
type ClusterKeyword struct {
	TeamID    int64
	Week      Week
	ClusterID int
	Keyword   string
	Score     float64
}

// ClusterRun bundles every row produced by one clustering invocation.
// The store commits the whole bundle in a single transaction.
type ClusterRun struct {
	Assignments []ClusterAssignment
	Clusters    []ClusterSummary
	Keywords    []ClusterKeyword
}

// Empty reports whether the run produced nothing to persist.
func (r ClusterRun) Empty() bool {
	return len(r.Assignments) == 0 && len(r.Clusters) == 0 && len(r.Keywords) == 0
}
