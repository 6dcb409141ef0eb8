// Package cost prices the generation collaborator's token usage.
package cost

import (
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/sells-group/qa-dataset/internal/config"
	"github.com/sells-group/qa-dataset/internal/model"
)

// ModelRate holds per-model token pricing (USD per million tokens).
type ModelRate struct {
	Input         float64
	Output        float64
	CacheWriteMul float64
	CacheReadMul  float64
}

// Rates maps model names to their pricing.
type Rates map[string]ModelRate

// DefaultRates returns the built-in Claude pricing.
func DefaultRates() Rates {
	return Rates{
		"claude-haiku-4-5-20251001":  {Input: 0.80, Output: 4.00, CacheWriteMul: 1.25, CacheReadMul: 0.1},
		"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00, CacheWriteMul: 1.25, CacheReadMul: 0.1},
		"claude-opus-4-6":            {Input: 15.00, Output: 75.00, CacheWriteMul: 1.25, CacheReadMul: 0.1},
	}
}

// RatesFromConfig overlays configured pricing on the defaults.
func RatesFromConfig(c config.PricingConfig) Rates {
	rates := DefaultRates()
	for name, p := range c.Anthropic {
		rates[name] = ModelRate{
			Input:         p.Input,
			Output:        p.Output,
			CacheWriteMul: p.CacheWriteMul,
			CacheReadMul:  p.CacheReadMul,
		}
	}
	return rates
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates Rates
}

// NewCalculator creates a Calculator with the given rates.
func NewCalculator(rates Rates) *Calculator {
	return &Calculator{rates: rates}
}

// Claude computes the cost of one call. Unknown models cost 0.
func (c *Calculator) Claude(modelName string, u model.TokenUsage) float64 {
	rate, ok := c.rates[modelName]
	if !ok {
		return 0
	}
	perTok := func(n int) float64 { return float64(n) / 1e6 }
	return perTok(u.InputTokens)*rate.Input +
		perTok(u.OutputTokens)*rate.Output +
		perTok(u.CacheCreationTokens)*rate.Input*rate.CacheWriteMul +
		perTok(u.CacheReadTokens)*rate.Input*rate.CacheReadMul
}

// Tracker accumulates priced usage per model. It is safe for concurrent use.
type Tracker struct {
	calc *Calculator

	mu      sync.Mutex
	byModel map[string]*model.TokenUsage
	calls   int
}

// NewTracker creates an empty Tracker.
func NewTracker(calc *Calculator) *Tracker {
	return &Tracker{calc: calc, byModel: make(map[string]*model.TokenUsage)}
}

// Record prices u for modelName, adds it to the totals and returns the
// priced usage.
func (t *Tracker) Record(modelName string, u model.TokenUsage) model.TokenUsage {
	u.Cost = t.calc.Claude(modelName, u)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	agg, ok := t.byModel[modelName]
	if !ok {
		agg = &model.TokenUsage{}
		t.byModel[modelName] = agg
	}
	agg.Add(u)
	return u
}

// Total returns the usage summed across models.
func (t *Tracker) Total() model.TokenUsage {
	t.mu.Lock()
	defer t.mu.Unlock()
	var total model.TokenUsage
	for _, u := range t.byModel {
		total.Add(*u)
	}
	return total
}

// Calls returns the number of recorded calls.
func (t *Tracker) Calls() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

// Log writes one line per model and a total.
func (t *Tracker) Log() {
	t.mu.Lock()
	names := make([]string, 0, len(t.byModel))
	for name := range t.byModel {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		u := t.byModel[name]
		zap.L().Info("generation usage",
			zap.String("model", name),
			zap.Int("input_tokens", u.InputTokens),
			zap.Int("output_tokens", u.OutputTokens),
			zap.Float64("cost_usd", u.Cost),
		)
	}
	t.mu.Unlock()

	total := t.Total()
	zap.L().Info("generation usage total",
		zap.Int("calls", t.Calls()),
		zap.Float64("cost_usd", total.Cost),
	)
}
