package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/qa-dataset/internal/config"
	"github.com/sells-group/qa-dataset/pkg/anthropic"
)

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// testConfig points the commands at a fresh SQLite file and restores the
// package globals when the test ends.
func testConfig(t *testing.T, name string) *config.Config {
	t.Helper()
	oldCfg, oldDataset := cfg, dataset
	t.Cleanup(func() { cfg, dataset = oldCfg, oldDataset })

	cfg = &config.Config{
		Store: config.StoreConfig{
			Driver:      "sqlite",
			DatabaseURL: filepath.Join(t.TempDir(), "qa.db"),
		},
		Anthropic: config.AnthropicConfig{Model: "claude-haiku-4-5-20251001"},
		Generate: config.GenerateConfig{
			Tier:       "free",
			Limits:     map[string]int{"free": 10},
			WindowSecs: 60,
		},
		Spans:    config.SpansConfig{Concurrency: 2},
		Annotate: config.AnnotateConfig{Concurrency: 2, Endpoint: "http://localhost:0"},
		Log:      config.LogConfig{Level: "info", Format: "json"},
	}
	dataset = name
	return cfg
}
