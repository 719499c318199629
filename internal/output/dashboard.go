package output

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/zhaobenny/cchistory/internal/aggregator"
	"github.com/zhaobenny/cchistory/internal/model"
)

const cardWidth = 28

// RenderDashboard writes the usage dashboard: KPI cards, a recent activity
// strip, and the top folders by tokens.
func RenderDashboard(w io.Writer, stats aggregator.Stats, events []model.UsageEvent, dateRange string, clearScreen bool) {
	if clearScreen {
		fmt.Fprint(w, "\x1b[2J\x1b[H")
	}

	fmt.Fprintln(w, "┌────────────────────────────────────────────────────────────────────────────┐")
	fmt.Fprintln(w, "│                         Claude Code Usage Dashboard                        │")
	fmt.Fprintln(w, "└────────────────────────────────────────────────────────────────────────────┘")
	if dateRange != "" {
		fmt.Fprintf(w, "  %s\n", dateRange)
	}
	fmt.Fprintln(w)

	renderKPICards(w,
		[]string{"Total Tokens", "Prompts Sent", "Active Sessions"},
		[]string{
			FormatCompact(stats.Overall.TotalTokens),
			FormatCompact(stats.Overall.TotalPrompts),
			FormatCompact(stats.Overall.TotalSessions),
		})
	fmt.Fprintln(w)

	renderActivity(w, stats)
	renderTopFolders(w, events)
}

func renderKPICards(w io.Writer, titles, values []string) {
	border := strings.Repeat("─", cardWidth-2)

	tops := make([]string, len(titles))
	mids := make([]string, len(titles))
	vals := make([]string, len(titles))
	bots := make([]string, len(titles))
	for i := range titles {
		tops[i] = "┌" + border + "┐"
		mids[i] = fmt.Sprintf("│%s│", center(titles[i], cardWidth-2))
		vals[i] = fmt.Sprintf("│%s│", center(values[i], cardWidth-2))
		bots[i] = "└" + border + "┘"
	}

	fmt.Fprintln(w, strings.Join(tops, "  "))
	fmt.Fprintln(w, strings.Join(mids, "  "))
	fmt.Fprintln(w, strings.Join(vals, "  "))
	fmt.Fprintln(w, strings.Join(bots, "  "))
}

// renderActivity shows the last 14 days as a fixed-width strip. The daily
// map only holds days with events, so gaps are zero-filled here.
func renderActivity(w io.Writer, stats aggregator.Stats) {
	dates := aggregator.DateRange(14)
	if len(dates) == 0 {
		return
	}

	var peak int64 = 1
	for _, date := range dates {
		if day, ok := stats.Daily[date]; ok && day.TotalTokens > peak {
			peak = day.TotalTokens
		}
	}

	levels := []rune{' ', '░', '▒', '▓', '█'}
	var strip strings.Builder
	for _, date := range dates {
		var tokens int64
		if day, ok := stats.Daily[date]; ok {
			tokens = day.TotalTokens
		}
		idx := 0
		if tokens > 0 {
			idx = 1 + int(float64(tokens)/float64(peak)*float64(len(levels)-2))
			if idx > len(levels)-1 {
				idx = len(levels) - 1
			}
		}
		strip.WriteRune(levels[idx])
	}

	fmt.Fprintf(w, "  Activity (14d): [%s]  %s → %s\n\n",
		strip.String(), dates[0], dates[len(dates)-1])
}

func renderTopFolders(w io.Writer, events []model.UsageEvent) {
	totals := make(map[string]int64)
	for i := range events {
		if events[i].Usage != nil {
			totals[events[i].Folder] += events[i].Usage.Total()
		}
	}
	if len(totals) == 0 {
		return
	}

	type folderTotal struct {
		folder string
		tokens int64
	}
	sorted := make([]folderTotal, 0, len(totals))
	for folder, tokens := range totals {
		sorted = append(sorted, folderTotal{folder, tokens})
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].tokens > sorted[j].tokens })

	fmt.Fprintln(w, "  TOP PROJECTS")
	limit := 5
	if len(sorted) < limit {
		limit = len(sorted)
	}
	for _, ft := range sorted[:limit] {
		fmt.Fprintf(w, "    %-48s %12s\n", truncate(ft.folder, 48), FormatNumber(ft.tokens))
	}
	fmt.Fprintln(w)
}

// Anonymize replaces folder paths with stable project-NNN labels, ranked by
// total tokens so the biggest project is always project-001.
func Anonymize(events []model.UsageEvent) []model.UsageEvent {
	totals := make(map[string]int64)
	for i := range events {
		if events[i].Usage != nil {
			totals[events[i].Folder] += events[i].Usage.Total()
		}
	}

	folders := make([]string, 0, len(totals))
	for folder := range totals {
		folders = append(folders, folder)
	}
	sort.Slice(folders, func(i, j int) bool {
		if totals[folders[i]] != totals[folders[j]] {
			return totals[folders[i]] > totals[folders[j]]
		}
		return folders[i] < folders[j]
	})

	mapping := make(map[string]string, len(folders))
	for i, folder := range folders {
		mapping[folder] = fmt.Sprintf("project-%03d", i+1)
	}

	out := make([]model.UsageEvent, len(events))
	copy(out, events)
	for i := range out {
		if anon, ok := mapping[out[i].Folder]; ok {
			out[i].Folder = anon
		}
	}
	return out
}

func center(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	left := (width - len(s)) / 2
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", width-left-len(s))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max+3:]
}
