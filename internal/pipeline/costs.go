package pipeline

import (
	"cmp"
	"slices"

	"github.com/theirongolddev/cstats/internal/config"
	"github.com/theirongolddev/cstats/internal/model"
)

// ModelCost is a display-only cost estimate for one model's cumulative usage.
// It is never written back into the stats cache.
type ModelCost struct {
	Model        string           `json:"model"`
	Usage        model.ModelUsage `json:"usage"`
	Cost         float64          `json:"estimatedCostUsd"`
	CacheSavings float64          `json:"cacheSavingsUsd"`
	// Priced is false when no list price or override matched the model.
	Priced bool `json:"priced"`
}

// CostTotals sums the per-model estimates.
type CostTotals struct {
	Cost         float64 `json:"estimatedCostUsd"`
	CacheSavings float64 `json:"cacheSavingsUsd"`
	Unpriced     int     `json:"unpriced"`
}

// EstimateModelCosts prices every model in the cache with cfg's pricing.
// Rows are ordered by cost, highest first, then by model name.
func EstimateModelCosts(cache *model.StatsCache, cfg config.Config) ([]ModelCost, CostTotals) {
	var totals CostTotals
	rows := make([]ModelCost, 0, len(cache.ModelUsage))

	for name, usage := range cache.ModelUsage {
		row := ModelCost{Model: name, Usage: usage}
		if p, ok := cfg.PricingFor(name); ok {
			row.Priced = true
			row.Cost = config.EstimateCost(p, usage)
			row.CacheSavings = config.CacheSavings(p, usage.CacheReadInputTokens)
		} else {
			totals.Unpriced++
		}
		totals.Cost += row.Cost
		totals.CacheSavings += row.CacheSavings
		rows = append(rows, row)
	}

	slices.SortFunc(rows, func(a, b ModelCost) int {
		if c := cmp.Compare(b.Cost, a.Cost); c != 0 {
			return c
		}
		return cmp.Compare(a.Model, b.Model)
	})
	return rows, totals
}
