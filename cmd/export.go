package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/qa-dataset/internal/export"
	"github.com/sells-group/qa-dataset/internal/model"
)

var (
	exportFormat string
	exportOut    string
	exportSplit  float64
	exportSeed   uint64
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the dataset as JSONL, SQuAD or an XLSX review workbook",
	Long:  "Exports rows with answer spans for fine-tuning (jsonl, squad) or every row plus rejections for review (xlsx). --split writes separate train and validation files, keeping rows expanded from one parent together.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := checkExportFlags(exportFormat, exportOut, exportSplit); err != nil {
			return err
		}

		p, st, err := openPipeline(ctx, "export")
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		rows, err := p.Rows(ctx)
		if err != nil {
			return eris.Wrap(err, "export: list rows")
		}

		if exportFormat == "xlsx" {
			rejections, err := st.ListRejections(ctx, dataset)
			if err != nil {
				return eris.Wrap(err, "export: list rejections")
			}
			reg, err := st.Annotators(ctx, dataset)
			if err != nil {
				return eris.Wrap(err, "export: list annotators")
			}
			if err := export.XLSX(exportOut, rows, rejections, reg.IDs()); err != nil {
				return err
			}
			zap.L().Info("export complete", zap.String("format", exportFormat), zap.String("out", exportOut), zap.Int("rows", len(rows)))
			return nil
		}

		if exportSplit == 0 {
			return writeExport(exportOut, exportFormat, rows)
		}

		parts, err := export.Split(rows, exportSplit, exportSeed)
		if err != nil {
			return err
		}
		trainPath, validationPath := splitPaths(exportOut)
		if err := writeExport(trainPath, exportFormat, parts.Train); err != nil {
			return err
		}
		return writeExport(validationPath, exportFormat, parts.Validation)
	},
}

func checkExportFlags(format, out string, split float64) error {
	switch format {
	case "jsonl", "squad":
	case "xlsx":
		if out == "" || out == "-" {
			return eris.New("export: --out is required for xlsx")
		}
		if split != 0 {
			return eris.New("export: --split does not apply to xlsx")
		}
	default:
		return eris.Errorf("export: unknown format %q (want jsonl, squad or xlsx)", format)
	}
	if split != 0 && (out == "" || out == "-") {
		return eris.New("export: --split needs a file --out")
	}
	if split < 0 || split >= 1 {
		return eris.Errorf("export: --split %v outside [0, 1)", split)
	}
	return nil
}

// splitPaths derives train and validation file names from out, e.g.
// data.jsonl becomes data.train.jsonl and data.validation.jsonl.
func splitPaths(out string) (string, string) {
	ext := filepath.Ext(out)
	base := strings.TrimSuffix(out, ext)
	return base + ".train" + ext, base + ".validation" + ext
}

func writeExport(out, format string, rows []model.Row) error {
	var w io.Writer = os.Stdout
	if out != "" && out != "-" {
		f, err := os.Create(out)
		if err != nil {
			return eris.Wrapf(err, "export: create %s", out)
		}
		defer f.Close() //nolint:errcheck
		w = f
	}

	n := len(rows)
	var err error
	switch format {
	case "squad":
		err = export.SQuAD(w, dataset, rows)
	default:
		n, err = export.JSONL(w, rows)
	}
	if err != nil {
		return err
	}

	zap.L().Info("export complete",
		zap.String("format", format),
		zap.String("out", out),
		zap.Int("rows", n),
	)
	return nil
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", "jsonl", "output format: jsonl, squad or xlsx")
	exportCmd.Flags().StringVar(&exportOut, "out", "-", "output file (- for stdout)")
	exportCmd.Flags().Float64Var(&exportSplit, "split", 0, "fraction of parent groups held out for validation")
	exportCmd.Flags().Uint64Var(&exportSeed, "seed", 1, "seed for the train/validation split")
	rootCmd.AddCommand(exportCmd)
}
