package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/qa-dataset/internal/config"
)

var (
	cfg     *config.Config
	dataset string
)

var rootCmd = &cobra.Command{
	Use:   "qa-dataset",
	Short: "Weak-labelled QA dataset builder",
	Long:  "Turns questionnaires into extractive question-answering rows: generates questions and contexts, locates answer spans, labels rows with QA models and ranks their answers.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dataset, "dataset", "default", "dataset name rows are stored under")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
