package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/qa-dataset/internal/cost"
	"github.com/sells-group/qa-dataset/internal/generate"
	"github.com/sells-group/qa-dataset/internal/resilience"
	"github.com/sells-group/qa-dataset/pkg/anthropic"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write a question and context for every raw row",
	Long:  "Rephrases each topic as a question and writes a first-person context containing the row's answer candidates, within the configured tier's request limit.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		p, st, err := openPipeline(ctx, "generate")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		gen, tracker, err := newGenerator(anthropic.NewClient(cfg.Anthropic.Key))
		if err != nil {
			return err
		}

		stats, err := p.Generate(ctx, gen)
		tracker.Log()
		if err != nil {
			return eris.Wrap(err, "generate")
		}

		zap.L().Info("generate complete",
			zap.String("dataset", dataset),
			zap.Int("generated", stats.Generated),
			zap.Int("failed", stats.Failed),
			zap.Int("skipped", stats.Skipped),
		)
		return nil
	},
}

// newGenerator builds a generator whose sessions share one tier limiter
// and one cost tracker.
func newGenerator(client anthropic.Client) (*generate.Generator, *cost.Tracker, error) {
	templates, err := generate.LoadTemplates(cfg.Generate.TemplatesPath)
	if err != nil {
		return nil, nil, err
	}
	limiter, err := generate.LimiterFromConfig(cfg.Generate, nil)
	if err != nil {
		return nil, nil, err
	}
	tracker := cost.NewTracker(cost.NewCalculator(cost.RatesFromConfig(cfg.Pricing)))

	sessions := make([]*generate.Session, max(cfg.Generate.Concurrency, 1))
	for i := range sessions {
		sessions[i] = generate.NewSession(client, limiter, generate.SessionOptions{
			Model:     cfg.Anthropic.Model,
			MaxTokens: cfg.Anthropic.MaxTokens,
			Context:   cfg.Generate.Context,
			Retry:     resilience.FromConfig(cfg.Generate.Retry),
			Tracker:   tracker,
		})
	}

	gen, err := generate.New(templates, sessions...)
	if err != nil {
		return nil, nil, err
	}
	return gen, tracker, nil
}

func init() {
	rootCmd.AddCommand(generateCmd)
}
