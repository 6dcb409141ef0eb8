package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/qa-dataset/internal/pipeline"
)

var spansStrict bool

var spansCmd = &cobra.Command{
	Use:   "spans",
	Short: "Locate answer spans and expand rows into one row per span",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		p, st, err := openPipeline(ctx, "spans")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		opts := pipeline.SpanOptions{
			Concurrency: cfg.Spans.Concurrency,
			Strict:      cfg.Spans.Strict || spansStrict,
		}
		res, err := p.Spans(ctx, opts)
		if err != nil {
			return eris.Wrap(err, "spans")
		}

		zap.L().Info("spans complete",
			zap.String("dataset", dataset),
			zap.Int("parents", len(res.Parents)),
			zap.Int("rows", len(res.Rows)),
			zap.Int("expanded", res.Expanded),
			zap.Int("dropped", res.Dropped),
			zap.Int("rejected", len(res.Rejected)),
		)
		return nil
	},
}

func init() {
	spansCmd.Flags().BoolVar(&spansStrict, "strict", false, "fail the whole batch on the first rejected row")
	rootCmd.AddCommand(spansCmd)
}
