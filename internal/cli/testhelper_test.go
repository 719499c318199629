package cli

import "github.com/zhaobenny/cchistory/internal/aggregator"

func statsWithDays(dates ...string) aggregator.Stats {
	daily := make(map[string]aggregator.DayStats, len(dates))
	for _, d := range dates {
		daily[d] = aggregator.DayStats{Date: d}
	}
	return aggregator.Stats{Daily: daily}
}
