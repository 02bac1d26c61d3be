package domain

import "time"

// Week is a Monday..Sunday pair, date-only, in UTC. It is the grouping unit
// for all weekly labels.
type Week struct {
	Start time.Time
	End   time.Time
}

// WeekOf returns the calendar week containing t: Start is the Monday on or
// before t and End the Sunday after it (inclusive), both truncated to
// midnight UTC.
func WeekOf(t time.Time) Week {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	// time.Weekday counts Sunday as 0; shift so Monday is 0.
	offset := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -offset)
	return Week{Start: start, End: start.AddDate(0, 0, 6)}
}

// Key returns a comparable identity for map grouping. Times scanned from a
// database may carry different locations, so the identity is the start date
// in days since the epoch rather than the time.Time value itself.
func (w Week) Key() int64 {
	return w.Start.Unix() / 86400
}
