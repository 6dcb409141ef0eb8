// Package pipeline runs the dataset stages: ingest, generate, spans, label
// and rank. Each stage reads the rows the previous stage left in the store
// and writes its output back, so stages can run as separate commands.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/qa-dataset/internal/generate"
	"github.com/sells-group/qa-dataset/internal/model"
	"github.com/sells-group/qa-dataset/internal/qa"
	"github.com/sells-group/qa-dataset/internal/questionnaire"
	"github.com/sells-group/qa-dataset/internal/rank"
	"github.com/sells-group/qa-dataset/internal/store"
)

// Pipeline runs stages for one dataset.
type Pipeline struct {
	store   store.Store
	dataset string
	log     *zap.Logger
}

// New creates a Pipeline over st for dataset.
func New(st store.Store, dataset string) *Pipeline {
	return &Pipeline{
		store:   st,
		dataset: dataset,
		log:     zap.L().With(zap.String("dataset", dataset)),
	}
}

// Dataset returns the dataset name.
func (p *Pipeline) Dataset() string { return p.dataset }

func (p *Pipeline) phase(name string, fn func() error) error {
	p.log.Info("pipeline: starting phase", zap.String("phase", name))
	start := time.Now()
	err := fn()
	duration := time.Since(start).Milliseconds()
	if err != nil {
		p.log.Error("pipeline: phase failed",
			zap.String("phase", name),
			zap.Int64("duration_ms", duration),
			zap.Error(err),
		)
		return err
	}
	p.log.Info("pipeline: phase complete",
		zap.String("phase", name),
		zap.Int64("duration_ms", duration),
	)
	return nil
}

// Rows lists the dataset's rows at the given stages, or every row when no
// stage is given.
func (p *Pipeline) Rows(ctx context.Context, stages ...model.Stage) ([]model.Row, error) {
	return p.store.ListRows(ctx, store.RowFilter{Dataset: p.dataset, Stages: stages})
}

// Reset deletes every row, annotator and rejection of the dataset.
func (p *Pipeline) Reset(ctx context.Context) error {
	return eris.Wrap(p.store.DeleteDataset(ctx, p.dataset), "pipeline: reset")
}

// IngestResult summarises an ingest run.
type IngestResult struct {
	Questionnaires int
	Rows           int
	Invalid        int
}

// Ingest flattens questionnaires into raw rows and saves them. Rows that
// fail validation are recorded as rejections instead.
func (p *Pipeline) Ingest(ctx context.Context, qs []model.Questionnaire) (IngestResult, error) {
	res := IngestResult{Questionnaires: len(qs)}
	err := p.phase("ingest", func() error {
		valid, invalid := questionnaire.Partition(questionnaire.Flatten(p.dataset, qs))
		if err := p.store.SaveRows(ctx, valid); err != nil {
			return eris.Wrap(err, "pipeline: save raw rows")
		}
		res.Rows = len(valid)
		res.Invalid = len(invalid)

		rejections := make([]model.Rejection, len(invalid))
		for i, v := range invalid {
			rejections[i] = model.Rejection{Dataset: p.dataset, RowID: v.RowID, Stage: model.StageRaw, Error: v.Error()}
		}
		return eris.Wrap(p.store.SaveRejections(ctx, rejections), "pipeline: save ingest rejections")
	})
	return res, err
}

// Generate fills question and context of every raw row. Rows generated
// before a cancellation are still saved.
func (p *Pipeline) Generate(ctx context.Context, gen *generate.Generator) (generate.Stats, error) {
	var stats generate.Stats
	err := p.phase("generate", func() error {
		rows, err := p.Rows(ctx, model.StageRaw)
		if err != nil {
			return err
		}

		var genErr error
		stats, genErr = gen.Rows(ctx, rows)

		var done []model.Row
		for _, r := range rows {
			if r.Stage == model.StageGenerated {
				done = append(done, r)
			}
		}
		// Saved even when ctx was cancelled mid-run.
		if err := p.store.UpdateRows(context.WithoutCancel(ctx), done); err != nil {
			return eris.Wrap(err, "pipeline: save generated rows")
		}
		return genErr
	})
	return stats, err
}

// Spans annotates and expands every generated row, replacing each parent
// with its expanded rows in one store transaction.
func (p *Pipeline) Spans(ctx context.Context, opts SpanOptions) (*SpanResult, error) {
	var res *SpanResult
	err := p.phase("spans", func() error {
		rows, err := p.Rows(ctx, model.StageGenerated)
		if err != nil {
			return err
		}
		res, err = Spans(ctx, rows, opts)
		if err != nil {
			return err
		}
		if err := p.store.ReplaceRows(ctx, p.dataset, res.Parents, res.Rows); err != nil {
			return eris.Wrap(err, "pipeline: save expanded rows")
		}
		return eris.Wrap(p.store.SaveRejections(ctx, res.Rejected), "pipeline: save span rejections")
	})
	return res, err
}

// labelStages are the stages whose rows can take predictions.
var labelStages = []model.Stage{model.StageExpanded, model.StageLabelled, model.StageRanked}

// Label runs a over every expanded row and records it in the dataset's
// annotator registry.
func (p *Pipeline) Label(ctx context.Context, a qa.Annotator, concurrency int) (qa.LabelStats, error) {
	var stats qa.LabelStats
	err := p.phase("label", func() error {
		rows, err := p.Rows(ctx, labelStages...)
		if err != nil {
			return err
		}
		reg, err := p.store.Annotators(ctx, p.dataset)
		if err != nil {
			return err
		}

		stats, err = qa.Label(ctx, rows, a, reg, concurrency)
		if err != nil {
			return err
		}
		if err := p.store.RegisterAnnotator(ctx, p.dataset, a.ID()); err != nil {
			return err
		}
		return eris.Wrap(p.store.UpdateRows(ctx, rows), "pipeline: save labelled rows")
	})
	return stats, err
}

// Rank reconciles the predictions of every labelled row in registry order.
func (p *Pipeline) Rank(ctx context.Context) (rank.Stats, error) {
	var stats rank.Stats
	err := p.phase("rank", func() error {
		rows, err := p.Rows(ctx, model.StageLabelled, model.StageRanked)
		if err != nil {
			return err
		}
		reg, err := p.store.Annotators(ctx, p.dataset)
		if err != nil {
			return err
		}
		stats = Rank(rows, reg)
		return eris.Wrap(p.store.UpdateRows(ctx, rows), "pipeline: save ranked rows")
	})
	return stats, err
}
