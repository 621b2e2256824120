package llm

import "strings"

// modelPricing holds per-model pricing in USD per 1M tokens.
type modelPricing struct {
	InputPerMillion  float64
	OutputPerMillion float64
}

// priceTable maps model identifiers to their pricing. Local Ollama
// models are absent on purpose; they cost nothing and estimate as 0.
var priceTable = map[string]modelPricing{
	// Anthropic models
	"claude-sonnet-4-5-20250929": {InputPerMillion: 3.00, OutputPerMillion: 15.00},
	"claude-haiku-4-5-20251001":  {InputPerMillion: 0.80, OutputPerMillion: 4.00},
	"claude-opus-4-6":            {InputPerMillion: 15.00, OutputPerMillion: 75.00},

	// OpenAI models
	"gpt-4o":      {InputPerMillion: 2.50, OutputPerMillion: 10.00},
	"gpt-4o-mini": {InputPerMillion: 0.15, OutputPerMillion: 0.60},
	"gpt-4":       {InputPerMillion: 30.00, OutputPerMillion: 60.00},

	// OpenRouter-routed models
	"minimax/minimax-m2.5":        {InputPerMillion: 0.30, OutputPerMillion: 1.20},
	"anthropic/claude-sonnet-4.5": {InputPerMillion: 3.00, OutputPerMillion: 15.00},
}

// EstimateCost returns the estimated cost in USD for the given model and
// token counts. Lookup is exact first, then longest prefix, so dated API
// variants like "gpt-4o-2024-08-06" price as their base model. Unknown
// models estimate as 0.
func EstimateCost(model string, inputTokens, outputTokens int) float64 {
	pricing, ok := priceTable[model]
	if !ok {
		pricing, ok = prefixPricing(model)
	}
	if !ok {
		return 0
	}

	inputCost := float64(inputTokens) / 1_000_000.0 * pricing.InputPerMillion
	outputCost := float64(outputTokens) / 1_000_000.0 * pricing.OutputPerMillion
	return inputCost + outputCost
}

// prefixPricing finds the longest table entry that prefixes model. The
// longest match keeps "gpt-4o-mini-2024-07-18" from pricing as "gpt-4o".
func prefixPricing(model string) (modelPricing, bool) {
	var (
		best    string
		pricing modelPricing
	)
	for id, p := range priceTable {
		if strings.HasPrefix(model, id) && len(id) > len(best) {
			best, pricing = id, p
		}
	}
	return pricing, best != ""
}

// EstimateTokens provides a rough token count estimation for the given text.
// Uses the approximation of 1 token per 4 characters.
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n == 0 && len(text) > 0 {
		return 1
	}
	return n
}
