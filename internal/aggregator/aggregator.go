package aggregator

import (
	"sort"
	"time"

	"github.com/zhaobenny/cchistory/internal/model"
)

// OverallKey labels the all-time entry instead of a calendar date
const OverallKey = "all"

// DayStats holds aggregated statistics for one day bucket. Its numeric
// fields mirror the store's daily snapshot shape exactly, so a snapshot and
// an aggregation over the same events must always agree.
type DayStats struct {
	Date                string
	TotalPrompts        int64
	TotalResponses      int64
	TotalSessions       int64
	TotalTokens         int64
	InputTokens         int64
	OutputTokens        int64
	CacheCreationTokens int64
	CacheReadTokens     int64
	Models              []string
	Folders             []string
}

// Stats is the complete aggregation result
type Stats struct {
	Daily   map[string]DayStats
	Overall DayStats
}

// Aggregate folds events into per-day statistics plus an overall entry.
// Pure: the input is never mutated and the result depends only on the events
// and the bucketing timezone.
func Aggregate(events []model.UsageEvent, loc *time.Location) Stats {
	return Stats{
		Daily:   ByDay(events, loc),
		Overall: Overall(events),
	}
}

// ByDay groups events into local-timezone day buckets. Days with no events
// have no entry; consumers zero-fill gaps with DateRange.
func ByDay(events []model.UsageEvent, loc *time.Location) map[string]DayStats {
	if len(events) == 0 {
		return map[string]DayStats{}
	}

	buckets := make(map[string][]*model.UsageEvent)
	for i := range events {
		key := events[i].DateKeyIn(loc)
		buckets[key] = append(buckets[key], &events[i])
	}

	daily := make(map[string]DayStats, len(buckets))
	for date, dayEvents := range buckets {
		daily[date] = reduce(date, dayEvents)
	}
	return daily
}

// Overall aggregates the full event collection under the sentinel "all" key
func Overall(events []model.UsageEvent) DayStats {
	refs := make([]*model.UsageEvent, len(events))
	for i := range events {
		refs[i] = &events[i]
	}
	return reduce(OverallKey, refs)
}

// DateRange returns a contiguous sequence of date strings ending today and
// spanning the given number of days, for rendering fixed-width activity
// windows even when some days have zero events.
func DateRange(days int) []string {
	return DateRangeFrom(time.Now(), days)
}

// DateRangeFrom is DateRange anchored at an explicit end day
func DateRangeFrom(end time.Time, days int) []string {
	if days <= 0 {
		return nil
	}

	dates := make([]string, 0, days)
	start := end.AddDate(0, 0, -(days - 1))
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d.Format("2006-01-02"))
	}
	return dates
}

func reduce(date string, events []*model.UsageEvent) DayStats {
	sessions := make(map[string]struct{})
	models := make(map[string]struct{})
	folders := make(map[string]struct{})

	stats := DayStats{Date: date}

	for _, e := range events {
		sessions[e.SessionID] = struct{}{}
		if e.Model != "" {
			models[e.Model] = struct{}{}
		}
		folders[e.Folder] = struct{}{}

		if e.IsPrompt() {
			stats.TotalPrompts++
		} else if e.IsResponse() {
			stats.TotalResponses++
		}

		if e.Usage != nil {
			stats.TotalTokens += e.Usage.Total()
			stats.InputTokens += e.Usage.InputTokens
			stats.OutputTokens += e.Usage.OutputTokens
			stats.CacheCreationTokens += e.Usage.CacheCreationTokens
			stats.CacheReadTokens += e.Usage.CacheReadTokens
		}
	}

	stats.TotalSessions = int64(len(sessions))
	stats.Models = sortedKeys(models)
	stats.Folders = sortedKeys(folders)
	return stats
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
