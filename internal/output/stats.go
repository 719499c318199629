package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/zhaobenny/cchistory/internal/report"
	"github.com/zhaobenny/cchistory/internal/store"
)

// RenderStats writes the detailed statistics report
func RenderStats(w io.Writer, stats *store.Stats, cmp *report.PlanComparison) {
	fmt.Fprintf(w, "\n%s\n", strings.Repeat("=", 60))
	fmt.Fprintf(w, "%s\n", center("Claude Code Usage Statistics", 60))
	fmt.Fprintf(w, "%s\n\n", strings.Repeat("=", 60))

	fmt.Fprintln(w, "SUMMARY")
	fmt.Fprintln(w, strings.Repeat("-", 40))
	fmt.Fprintf(w, "  Total Tokens:        %15s\n", FormatNumber(stats.TotalTokens))
	fmt.Fprintf(w, "  Total Prompts:       %15s\n", FormatNumber(stats.TotalPrompts))
	fmt.Fprintf(w, "  Total Responses:     %15s\n", FormatNumber(stats.TotalResponses))
	fmt.Fprintf(w, "  Total Sessions:      %15s\n", FormatNumber(stats.TotalSessions))
	fmt.Fprintf(w, "  Days Tracked:        %15s\n", FormatNumber(stats.TotalDays))
	if stats.OldestDate != "" && stats.NewestDate != "" {
		fmt.Fprintf(w, "  Date Range:          %s to %s\n", stats.OldestDate, stats.NewestDate)
	}

	if stats.TotalCost > 0 {
		fmt.Fprintln(w, "\nCOST ANALYSIS")
		fmt.Fprintln(w, strings.Repeat("-", 40))
		fmt.Fprintf(w, "  Est. Cost (API):     %15s\n", FormatCost(stats.TotalCost))

		if cmp != nil {
			plural := ""
			if cmp.Months > 1 {
				plural = "s"
			}
			fmt.Fprintf(w, "  Plan Cost:           %15s (%d month%s @ %s/mo)\n",
				FormatCost(cmp.PlanCost), cmp.Months, plural, FormatCost(cmp.PlanCost/float64(cmp.Months)))

			if cmp.Savings > 0 {
				fmt.Fprintf(w, "  You Saved:           %15s (vs API)\n", FormatCost(cmp.Savings))
			} else {
				fmt.Fprintf(w, "  Plan Costs More:     %15s\n", FormatCost(-cmp.Savings))
				fmt.Fprintln(w, "  [Light usage - API would be cheaper]")
			}
		}
	}

	fmt.Fprintln(w, "\nAVERAGES")
	fmt.Fprintln(w, strings.Repeat("-", 40))
	var perSession, perResponse int64
	if stats.TotalSessions > 0 {
		perSession = stats.TotalTokens / stats.TotalSessions
	}
	if stats.TotalResponses > 0 {
		perResponse = stats.TotalTokens / stats.TotalResponses
	}
	fmt.Fprintf(w, "  Tokens per Session:  %15s\n", FormatNumber(perSession))
	fmt.Fprintf(w, "  Tokens per Response: %15s\n", FormatNumber(perResponse))

	if stats.TotalCost > 0 && stats.TotalSessions > 0 {
		fmt.Fprintf(w, "  Cost per Session:    %15s\n", FormatCost(stats.TotalCost/float64(stats.TotalSessions)))
		if stats.TotalResponses > 0 {
			fmt.Fprintf(w, "  Cost per Response:   %15s\n", FormatCostPrecise(stats.TotalCost/float64(stats.TotalResponses)))
		}
	}

	renderModelBreakdown(w, stats)
}

func renderModelBreakdown(w io.Writer, stats *store.Stats) {
	if len(stats.TokensByModel) == 0 {
		return
	}

	fmt.Fprintln(w, "\nUSAGE BY MODEL")
	fmt.Fprintln(w, strings.Repeat("-", 60))

	models := make([]string, 0, len(stats.TokensByModel))
	for m := range stats.TokensByModel {
		models = append(models, m)
	}
	sort.Slice(models, func(i, j int) bool {
		return stats.TokensByModel[models[i]] > stats.TokensByModel[models[j]]
	})

	for _, m := range models {
		tokens := stats.TokensByModel[m]
		var pct float64
		if stats.TotalTokens > 0 {
			pct = float64(tokens) / float64(stats.TotalTokens) * 100
		}

		if cost := stats.CostByModel[m]; cost > 0 {
			fmt.Fprintf(w, "  %-30s %12s (%5.1f%%) %10s\n",
				ShortenModelName(m), FormatNumber(tokens), pct, FormatCost(cost))
		} else {
			fmt.Fprintf(w, "  %-30s %12s (%5.1f%%)\n",
				ShortenModelName(m), FormatNumber(tokens), pct)
		}
	}
}
