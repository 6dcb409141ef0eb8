package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rankCmd = &cobra.Command{
	Use:   "rank",
	Short: "Pick the highest-scoring prediction of every labelled row",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		p, st, err := openPipeline(ctx, "rank")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		stats, err := p.Rank(ctx)
		if err != nil {
			return eris.Wrap(err, "rank")
		}

		zap.L().Info("rank complete",
			zap.String("dataset", dataset),
			zap.Int("rows", stats.Rows),
			zap.Int("answered", stats.Answered),
			zap.Int("fallback", stats.Fallback),
			zap.Any("wins", stats.Wins),
		)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rankCmd)
}
