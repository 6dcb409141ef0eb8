package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/qa-dataset/internal/config"
	"github.com/sells-group/qa-dataset/internal/cost"
	"github.com/sells-group/qa-dataset/internal/qa"
	"github.com/sells-group/qa-dataset/internal/resilience"
	"github.com/sells-group/qa-dataset/pkg/anthropic"
)

var (
	labelAnnotator string
	labelModels    []string
)

var labelCmd = &cobra.Command{
	Use:   "label",
	Short: "Attach a QA model prediction to every row",
	Long:  "Runs each QA model over the dataset's expanded rows. Models run one after another in flag order, which is also their tie-break order when ranking.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		p, st, err := openPipeline(ctx, "label")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		var tracker *cost.Tracker
		if labelAnnotator == "claude" {
			tracker = cost.NewTracker(cost.NewCalculator(cost.RatesFromConfig(cfg.Pricing)))
			defer tracker.Log()
		}

		annotators, err := buildAnnotators(cfg, labelAnnotator, labelModels, tracker)
		if err != nil {
			return err
		}

		for _, a := range annotators {
			stats, err := p.Label(ctx, a, cfg.Annotate.Concurrency)
			if err != nil {
				return eris.Wrapf(err, "label %s", a.ID())
			}
			zap.L().Info("label complete",
				zap.String("dataset", dataset),
				zap.String("annotator", a.ID()),
				zap.Int("present", stats.Present),
				zap.Int("absent", stats.Absent),
			)
		}
		return nil
	},
}

// buildAnnotators creates one annotator per model. Models default to
// annotate.models for http and anthropic.model for claude.
func buildAnnotators(c *config.Config, kind string, models []string, tracker *cost.Tracker) ([]qa.Annotator, error) {
	breakers := resilience.NewBreakers(resilience.BreakerFromConfig(c.Annotate.Circuit))

	switch kind {
	case "http":
		if len(models) == 0 {
			models = c.Annotate.Models
		}
		if len(models) == 0 {
			return nil, eris.New("label: no models given (--model or annotate.models)")
		}
		out := make([]qa.Annotator, 0, len(models))
		for _, m := range models {
			a, err := qa.NewHTTPAnnotator(qa.HTTPOptionsFromConfig(c.Annotate, m, breakers))
			if err != nil {
				return nil, err
			}
			out = append(out, a)
		}
		return out, nil

	case "claude":
		if c.Anthropic.Key == "" {
			return nil, eris.New("label: QADATA_ANTHROPIC_KEY is required for the claude annotator")
		}
		if len(models) == 0 {
			models = []string{c.Anthropic.Model}
		}
		client := anthropic.NewClient(c.Anthropic.Key)
		out := make([]qa.Annotator, 0, len(models))
		for _, m := range models {
			a, err := qa.NewClaudeAnnotator(client, qa.ClaudeOptions{
				Model:   m,
				Retry:   resilience.FromConfig(c.Annotate.Retry),
				Breaker: breakers.Get(m),
				Tracker: tracker,
			})
			if err != nil {
				return nil, err
			}
			out = append(out, a)
		}
		return out, nil

	default:
		return nil, eris.Errorf("label: unknown annotator %q (want http or claude)", kind)
	}
}

func init() {
	labelCmd.Flags().StringVar(&labelAnnotator, "annotator", "http", "annotator backend: http or claude")
	labelCmd.Flags().StringSliceVar(&labelModels, "model", nil, "model to label with (repeatable)")
	rootCmd.AddCommand(labelCmd)
}
