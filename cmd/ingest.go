package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/qa-dataset/internal/fetcher"
	"github.com/sells-group/qa-dataset/internal/questionnaire"
)

var ingestReplace bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <source>...",
	Short: "Load questionnaires and store one raw row per option",
	Long:  "Reads questionnaire files or http(s)/ftp URLs (.json, .csv, .xlsx), flattens them into raw rows and stores them. Invalid rows are recorded as rejections.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		p, st, err := openPipeline(ctx, "ingest")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		timeout := time.Duration(cfg.Fetch.TimeoutSecs) * time.Second
		loader := &questionnaire.Loader{
			Fetcher: fetcher.NewRouter(
				fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
					UserAgent:  cfg.Fetch.UserAgent,
					Timeout:    timeout,
					MaxRetries: cfg.Fetch.MaxRetries,
				}),
				fetcher.NewFTPFetcher(fetcher.FTPOptions{Timeout: timeout}),
			),
		}
		qs, err := loader.LoadAll(ctx, args)
		if err != nil {
			return eris.Wrap(err, "ingest")
		}

		if ingestReplace {
			if err := p.Reset(ctx); err != nil {
				return eris.Wrap(err, "ingest: reset dataset")
			}
		}

		res, err := p.Ingest(ctx, qs)
		if err != nil {
			return eris.Wrap(err, "ingest")
		}

		zap.L().Info("ingest complete",
			zap.String("dataset", dataset),
			zap.Int("questionnaires", res.Questionnaires),
			zap.Int("rows", res.Rows),
			zap.Int("invalid", res.Invalid),
		)
		return nil
	},
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestReplace, "replace", false, "delete the dataset's existing rows first")
	rootCmd.AddCommand(ingestCmd)
}
