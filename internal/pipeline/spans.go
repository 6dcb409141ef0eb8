package pipeline

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/qa-dataset/internal/model"
	"github.com/sells-group/qa-dataset/internal/span"
)

// SpanOptions configures the span stage.
type SpanOptions struct {
	Concurrency int
	// Strict halts the batch on the first rejected row.
	Strict bool
}

// SpanResult is the output of the span stage.
type SpanResult struct {
	// Rows are the expanded rows in input order, each parent's rows in
	// span order.
	Rows []model.Row
	// Parents lists every input row consumed by the stage: expanded or
	// dropped. Rejected rows are not consumed.
	Parents  []string
	Rejected []model.Rejection
	// Dropped counts rows whose span record was empty.
	Dropped int
	// Expanded counts rows that produced at least one expanded row.
	Expanded int
}

type spanOutcome struct {
	rows      []model.Row
	rejection *model.Rejection
}

// Spans annotates every row with its answer spans and expands it into one
// row per span. Rows are processed in parallel; each row's expansion is
// kept or discarded as a whole and the output keeps input order.
func Spans(ctx context.Context, rows []model.Row, opts SpanOptions) (*SpanResult, error) {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}

	outcomes := make([]spanOutcome, len(rows))
	var rejected atomic.Int64

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(opts.Concurrency)
	for i := range rows {
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out := spanRow(rows[i])
			outcomes[i] = out
			if out.rejection != nil {
				rejected.Add(1)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, eris.Wrap(err, "pipeline: spans")
	}

	res := &SpanResult{}
	for i, out := range outcomes {
		if out.rejection != nil {
			if opts.Strict {
				return nil, eris.Errorf("pipeline: spans: row %s rejected: %s", rows[i].ID, out.rejection.Error)
			}
			res.Rejected = append(res.Rejected, *out.rejection)
			continue
		}
		res.Parents = append(res.Parents, rows[i].ID)
		if len(out.rows) == 0 {
			res.Dropped++
			zap.L().Debug("row has no answer spans, dropped", zap.String("row_id", rows[i].ID))
			continue
		}
		res.Expanded++
		res.Rows = append(res.Rows, out.rows...)
	}

	if n := rejected.Load(); n > 0 {
		zap.L().Warn("rows rejected by span stage", zap.Int64("rejected", n))
	}
	return res, nil
}

func spanRow(row model.Row) spanOutcome {
	rec, err := span.AnnotateRow(row)
	if err != nil {
		return spanOutcome{rejection: rejection(row, model.StageAnnotated, err)}
	}
	if err := rec.Verify(row.Context); err != nil {
		return spanOutcome{rejection: rejection(row, model.StageAnnotated, err)}
	}

	annotated := row.Clone()
	annotated.Spans = &rec
	annotated.Stage = model.StageAnnotated

	expanded, err := span.Expand(annotated, rec)
	if err != nil {
		return spanOutcome{rejection: rejection(row, model.StageExpanded, err)}
	}
	return spanOutcome{rows: expanded}
}

func rejection(row model.Row, stage model.Stage, err error) *model.Rejection {
	r := &model.Rejection{
		Dataset: row.Dataset,
		RowID:   row.ID,
		Stage:   stage,
		Error:   err.Error(),
	}
	var nf *span.AnswerNotFoundError
	if errors.As(err, &nf) {
		r.Answer = nf.Answer
		r.Requested = nf.Requested
		r.Found = nf.Found
	}
	return r
}
