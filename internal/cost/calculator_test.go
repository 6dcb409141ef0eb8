package cost

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/qa-dataset/internal/config"
	"github.com/sells-group/qa-dataset/internal/model"
)

func testRates() Rates {
	return Rates{
		"haiku":  {Input: 0.80, Output: 4.00, CacheWriteMul: 1.25, CacheReadMul: 0.1},
		"sonnet": {Input: 3.00, Output: 15.00, CacheWriteMul: 1.25, CacheReadMul: 0.1},
	}
}

func TestClaude(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	tests := []struct {
		name  string
		model string
		usage model.TokenUsage
		want  float64
	}{
		{
			name:  "haiku simple",
			model: "haiku",
			usage: model.TokenUsage{InputTokens: 1_000_000, OutputTokens: 100_000},
			want:  0.80 + 0.40,
		},
		{
			name:  "sonnet with cache",
			model: "sonnet",
			usage: model.TokenUsage{InputTokens: 1_000_000, CacheCreationTokens: 1_000_000, CacheReadTokens: 1_000_000},
			want:  3.00 + 3.75 + 0.30,
		},
		{
			name:  "unknown model",
			model: "gpt",
			usage: model.TokenUsage{InputTokens: 1_000_000},
			want:  0,
		},
		{
			name:  "zero usage",
			model: "haiku",
			want:  0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, calc.Claude(tt.model, tt.usage), 1e-9)
		})
	}
}

func TestRatesFromConfig(t *testing.T) {
	t.Parallel()
	rates := RatesFromConfig(config.PricingConfig{
		Anthropic: map[string]config.ModelPricing{
			"custom": {Input: 1, Output: 2},
		},
	})
	assert.Equal(t, 1.0, rates["custom"].Input)
	assert.Contains(t, rates, "claude-haiku-4-5-20251001")
}

func TestTracker(t *testing.T) {
	t.Parallel()
	tr := NewTracker(NewCalculator(testRates()))

	priced := tr.Record("haiku", model.TokenUsage{InputTokens: 1_000_000})
	assert.InDelta(t, 0.80, priced.Cost, 1e-9)
	tr.Record("sonnet", model.TokenUsage{OutputTokens: 1_000_000})

	total := tr.Total()
	assert.Equal(t, 1_000_000, total.InputTokens)
	assert.Equal(t, 1_000_000, total.OutputTokens)
	assert.InDelta(t, 15.80, total.Cost, 1e-9)
	assert.Equal(t, 2, tr.Calls())
	tr.Log()
}

func TestTracker_Concurrent(t *testing.T) {
	t.Parallel()
	tr := NewTracker(NewCalculator(testRates()))

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr.Record("haiku", model.TokenUsage{InputTokens: 10})
		}()
	}
	wg.Wait()
	assert.Equal(t, 1000, tr.Total().InputTokens)
	assert.Equal(t, 100, tr.Calls())
}
