package llm

import (
	"math"
	"strings"
)

// Price is the USD cost per million tokens.
type Price struct {
	Input  float64 `json:"input" yaml:"input"`
	Output float64 `json:"output" yaml:"output"`
}

// Pricing maps model names to prices. Models not listed cost DefaultPrice.
type Pricing map[string]Price

// DefaultPrice applies to unknown models; it errs on the expensive side.
var DefaultPrice = Price{Input: 10, Output: 30}

// DefaultPricing returns the built-in price table.
func DefaultPricing() Pricing {
	return Pricing{
		"gpt-4o":              {Input: 3, Output: 10},
		"gpt-4o-mini":         {Input: 0.15, Output: 0.60},
		"gpt-4-turbo":         {Input: 10, Output: 30},
		"gpt-4-turbo-preview": {Input: 10, Output: 30},
		"gpt-3.5-turbo":       {Input: 0.5, Output: 1.5},
		"gpt-4.1-nano":        {Input: 0.10, Output: 0.40},
	}
}

// With returns a copy of p extended by overrides.
func (p Pricing) With(overrides map[string]Price) Pricing {
	out := make(Pricing, len(p)+len(overrides))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range overrides {
		out[strings.ToLower(k)] = v
	}
	return out
}

// Price returns the price for model, falling back to DefaultPrice.
func (p Pricing) Price(model string) Price {
	if pr, ok := p[strings.ToLower(model)]; ok {
		return pr
	}
	return DefaultPrice
}

// Cost returns the USD cost of a call rounded to 6 decimals.
func (p Pricing) Cost(model string, inputTokens, outputTokens int) float64 {
	pr := p.Price(model)
	c := float64(inputTokens)/1e6*pr.Input + float64(outputTokens)/1e6*pr.Output
	return math.Round(c*1e6) / 1e6
}
