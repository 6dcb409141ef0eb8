package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/qa-dataset/internal/model"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show row counts per stage, annotators and rejections",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		_, st, err := openPipeline(ctx, "stats")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		counts, err := st.CountStages(ctx, dataset)
		if err != nil {
			return eris.Wrap(err, "stats: count stages")
		}
		reg, err := st.Annotators(ctx, dataset)
		if err != nil {
			return eris.Wrap(err, "stats: annotators")
		}
		rejections, err := st.ListRejections(ctx, dataset)
		if err != nil {
			return eris.Wrap(err, "stats: rejections")
		}

		formatStats(os.Stdout, dataset, counts, reg.IDs(), len(rejections))
		return nil
	},
}

var stageOrder = []model.Stage{
	model.StageRaw,
	model.StageGenerated,
	model.StageAnnotated,
	model.StageExpanded,
	model.StageLabelled,
	model.StageRanked,
}

func formatStats(w io.Writer, name string, counts map[model.Stage]int, annotators []string, rejections int) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "DATASET\t%s\n", name)
	fmt.Fprintln(tw, "STAGE\tROWS")
	total := 0
	for _, s := range stageOrder {
		fmt.Fprintf(tw, "%s\t%d\n", s, counts[s])
		total += counts[s]
	}
	fmt.Fprintf(tw, "total\t%d\n", total)
	fmt.Fprintf(tw, "REJECTIONS\t%d\n", rejections)
	annot := "-"
	if len(annotators) > 0 {
		annot = strings.Join(annotators, ", ")
	}
	fmt.Fprintf(tw, "ANNOTATORS\t%s\n", annot)
	_ = tw.Flush()
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
