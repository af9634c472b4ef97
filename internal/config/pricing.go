package config

import (
	"strings"

	"github.com/theirongolddev/cstats/internal/model"
)

// ModelPricing holds per-million-token prices for a model.
type ModelPricing struct {
	InputPerMTok      float64
	OutputPerMTok     float64
	CacheWritePerMTok float64
	CacheReadPerMTok  float64
	// WebSearchPerThousand is the price of 1,000 server-side web searches.
	WebSearchPerThousand float64
}

const defaultWebSearchPerThousand = 10.00

// DefaultPricing maps model base names to their list prices. Cache writes use
// the 5-minute TTL rate, which is what Claude Code requests.
var DefaultPricing = map[string]ModelPricing{
	"claude-opus-4-6":   {InputPerMTok: 5.00, OutputPerMTok: 25.00, CacheWritePerMTok: 6.25, CacheReadPerMTok: 0.50},
	"claude-opus-4-5":   {InputPerMTok: 5.00, OutputPerMTok: 25.00, CacheWritePerMTok: 6.25, CacheReadPerMTok: 0.50},
	"claude-opus-4-1":   {InputPerMTok: 15.00, OutputPerMTok: 75.00, CacheWritePerMTok: 18.75, CacheReadPerMTok: 1.50},
	"claude-opus-4":     {InputPerMTok: 15.00, OutputPerMTok: 75.00, CacheWritePerMTok: 18.75, CacheReadPerMTok: 1.50},
	"claude-sonnet-4-6": {InputPerMTok: 3.00, OutputPerMTok: 15.00, CacheWritePerMTok: 3.75, CacheReadPerMTok: 0.30},
	"claude-sonnet-4-5": {InputPerMTok: 3.00, OutputPerMTok: 15.00, CacheWritePerMTok: 3.75, CacheReadPerMTok: 0.30},
	"claude-sonnet-4":   {InputPerMTok: 3.00, OutputPerMTok: 15.00, CacheWritePerMTok: 3.75, CacheReadPerMTok: 0.30},
	"claude-3-7-sonnet": {InputPerMTok: 3.00, OutputPerMTok: 15.00, CacheWritePerMTok: 3.75, CacheReadPerMTok: 0.30},
	"claude-haiku-4-5":  {InputPerMTok: 1.00, OutputPerMTok: 5.00, CacheWritePerMTok: 1.25, CacheReadPerMTok: 0.10},
	"claude-3-5-haiku":  {InputPerMTok: 0.80, OutputPerMTok: 4.00, CacheWritePerMTok: 1.00, CacheReadPerMTok: 0.08},
}

// NormalizeModelName strips date suffixes from model identifiers.
// e.g., "claude-opus-4-5-20251101" -> "claude-opus-4-5"
func NormalizeModelName(raw string) string {
	if _, ok := DefaultPricing[raw]; ok {
		return raw
	}

	// Strip last segment if it looks like a date (all digits)
	parts := strings.Split(raw, "-")
	if len(parts) >= 2 {
		last := parts[len(parts)-1]
		if isAllDigits(last) && len(last) >= 8 {
			candidate := strings.Join(parts[:len(parts)-1], "-")
			if _, ok := DefaultPricing[candidate]; ok {
				return candidate
			}
		}
	}

	return raw
}

func isAllDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return len(s) > 0
}

// LookupPricing returns the list pricing for a model, normalizing the name first.
// Returns zero pricing and false if the model is unknown.
func LookupPricing(modelName string) (ModelPricing, bool) {
	p, ok := DefaultPricing[NormalizeModelName(modelName)]
	if ok {
		p.WebSearchPerThousand = defaultWebSearchPerThousand
	}
	return p, ok
}

// PricingFor returns list pricing with the configured overrides applied.
// Overrides match either the raw or the normalized model name, so a model
// missing from the list can be priced entirely from config.
func (c Config) PricingFor(modelName string) (ModelPricing, bool) {
	p, ok := LookupPricing(modelName)

	o, found := c.Pricing.Overrides[modelName]
	if !found {
		o, found = c.Pricing.Overrides[NormalizeModelName(modelName)]
	}
	if !found {
		return p, ok
	}

	apply := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	apply(&p.InputPerMTok, o.InputPerMTok)
	apply(&p.OutputPerMTok, o.OutputPerMTok)
	apply(&p.CacheWritePerMTok, o.CacheWritePerMTok)
	apply(&p.CacheReadPerMTok, o.CacheReadPerMTok)
	apply(&p.WebSearchPerThousand, o.WebSearchPerThousand)
	return p, true
}

// EstimateCost prices cumulative model usage in USD.
func EstimateCost(p ModelPricing, u model.ModelUsage) float64 {
	cost := float64(u.InputTokens) * p.InputPerMTok / 1_000_000
	cost += float64(u.OutputTokens) * p.OutputPerMTok / 1_000_000
	cost += float64(u.CacheCreationInputTokens) * p.CacheWritePerMTok / 1_000_000
	cost += float64(u.CacheReadInputTokens) * p.CacheReadPerMTok / 1_000_000
	cost += float64(u.WebSearchRequests) * p.WebSearchPerThousand / 1_000
	return cost
}

// CacheSavings computes how much cache reads saved versus full input pricing.
func CacheSavings(p ModelPricing, cacheReadTokens uint64) float64 {
	return float64(cacheReadTokens) * (p.InputPerMTok - p.CacheReadPerMTok) / 1_000_000
}
