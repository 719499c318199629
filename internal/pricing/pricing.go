package pricing

import (
	"strings"

	"github.com/zhaobenny/cchistory/internal/model"
)

// Entry holds per-million-token rates for one model
type Entry struct {
	Model             string
	InputPerMTok      float64
	OutputPerMTok     float64
	CacheWritePerMTok float64
	CacheReadPerMTok  float64
	Notes             string
}

// Default returns the embedded pricing table. The store re-upserts this table
// wholesale on every init so price updates propagate without migrations. The
// synthetic sentinel gets a zero-rate row so stray joins cost nothing.
func Default() []Entry {
	return []Entry{
		{"claude-opus-4-1-20250805", 15.00, 75.00, 18.75, 1.50, "Current flagship model"},
		{"claude-sonnet-4-5-20250929", 3.00, 15.00, 3.75, 0.30, "Current balanced model"},
		{"claude-haiku-4-5-20251001", 1.00, 5.00, 1.25, 0.10, "Claude Haiku 4.5"},
		{"claude-haiku-3-5-20241022", 0.80, 4.00, 1.00, 0.08, "Claude 3.5 Haiku"},
		{"claude-sonnet-4-20250514", 3.00, 15.00, 3.75, 0.30, "Legacy Sonnet 4"},
		{"claude-opus-4-20250514", 15.00, 75.00, 18.75, 1.50, "Legacy Opus 4"},
		{model.SyntheticModel, 0.00, 0.00, 0.00, 0.00, "Test/synthetic model"},
	}
}

// DefaultMap returns the embedded table keyed by model name
func DefaultMap() map[string]Entry {
	table := make(map[string]Entry)
	for _, e := range Default() {
		table[e.Model] = e
	}
	return table
}

// Lookup finds the entry for a model, trying an exact match first and then a
// normalized match. The boolean is false when the model is unknown; callers
// treat that as zero rates, not an error.
func Lookup(table map[string]Entry, modelName string) (Entry, bool) {
	if e, ok := table[modelName]; ok {
		return e, true
	}

	normalized := normalizeModelName(modelName)
	for name, e := range table {
		if normalizeModelName(name) == normalized {
			return e, true
		}
	}

	return Entry{}, false
}

// CostFor calculates the estimated cost in USD for a usage record
func CostFor(usage model.TokenUsage, e Entry) float64 {
	cost := float64(usage.InputTokens) / 1_000_000 * e.InputPerMTok
	cost += float64(usage.OutputTokens) / 1_000_000 * e.OutputPerMTok
	cost += float64(usage.CacheCreationTokens) / 1_000_000 * e.CacheWritePerMTok
	cost += float64(usage.CacheReadTokens) / 1_000_000 * e.CacheReadPerMTok
	return cost
}

// normalizeModelName normalizes model names for fuzzy matching
func normalizeModelName(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", "")
	name = strings.ReplaceAll(name, "_", "")
	return name
}
