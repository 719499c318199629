package pricing

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const liteLLMPricingURL = "https://raw.githubusercontent.com/BerriAI/litellm/main/model_prices_and_context_window.json"

// liteLLMModel represents the per-token pricing structure published by LiteLLM
type liteLLMModel struct {
	InputCostPerToken  float64 `json:"input_cost_per_token"`
	OutputCostPerToken float64 `json:"output_cost_per_token"`
	CacheCreationCost  float64 `json:"cache_creation_input_token_cost"`
	CacheReadCost      float64 `json:"cache_read_input_token_cost"`
	Provider           string  `json:"litellm_provider"`
}

// Fetcher retrieves current model pricing from LiteLLM with the embedded
// table as fallback. Remote fetches are rate limited so a live dashboard
// refreshing every few seconds never hammers the upstream.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter

	mu     sync.Mutex
	cached map[string]Entry
}

// NewFetcher creates a fetcher allowing one remote refresh per interval
func NewFetcher(interval time.Duration) *Fetcher {
	return &Fetcher{
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Every(interval), 1),
	}
}

// Fetch returns the current pricing table. On any failure, or when the rate
// limit has not replenished, it serves the last fetched table or the embedded
// defaults. Fetch never returns an error; pricing is best-effort.
func (f *Fetcher) Fetch(ctx context.Context) map[string]Entry {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.limiter.Allow() {
		return f.cachedOrDefault()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, liteLLMPricingURL, nil)
	if err != nil {
		return f.cachedOrDefault()
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return f.cachedOrDefault()
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return f.cachedOrDefault()
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return f.cachedOrDefault()
	}

	var raw map[string]liteLLMModel
	if err := json.Unmarshal(body, &raw); err != nil {
		return f.cachedOrDefault()
	}

	table := make(map[string]Entry)
	for name, data := range raw {
		if data.Provider != "anthropic" {
			continue
		}
		table[name] = Entry{
			Model:             name,
			InputPerMTok:      data.InputCostPerToken * 1_000_000,
			OutputPerMTok:     data.OutputCostPerToken * 1_000_000,
			CacheWritePerMTok: data.CacheCreationCost * 1_000_000,
			CacheReadPerMTok:  data.CacheReadCost * 1_000_000,
			Notes:             "litellm",
		}
	}
	if len(table) == 0 {
		return f.cachedOrDefault()
	}

	f.cached = table
	return table
}

func (f *Fetcher) cachedOrDefault() map[string]Entry {
	if f.cached != nil {
		return f.cached
	}
	return DefaultMap()
}
