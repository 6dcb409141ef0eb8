package qa

import (
	"context"
	"strings"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/qa-dataset/internal/model"
)

// LabelStats counts the predictions attached by one Label run.
type LabelStats struct {
	Present int
	Absent  int
}

// Label registers a with reg and attaches its prediction to every row,
// replacing an earlier prediction from the same annotator. A failed answer
// becomes an Absent prediction carrying the error; only context
// cancellation is returned.
func Label(ctx context.Context, rows []model.Row, a Annotator, reg *model.Registry, concurrency int) (LabelStats, error) {
	if reg != nil {
		reg.Register(a.ID())
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	var present, absent atomic.Int64
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(concurrency)

	for i := range rows {
		row := &rows[i]
		eg.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			pred := predict(gctx, a, *row)
			if gctx.Err() != nil {
				return gctx.Err()
			}
			row.SetPrediction(pred)
			row.Stage = model.StageLabelled
			if pred.Answer != nil {
				present.Add(1)
			} else {
				absent.Add(1)
			}
			return nil
		})
	}

	err := eg.Wait()
	stats := LabelStats{Present: int(present.Load()), Absent: int(absent.Load())}
	if err != nil {
		return stats, eris.Wrap(err, "qa: label")
	}

	zap.L().Info("labelled rows",
		zap.String("annotator", a.ID()),
		zap.Int("present", stats.Present),
		zap.Int("absent", stats.Absent),
	)
	return stats, nil
}

func predict(ctx context.Context, a Annotator, row model.Row) model.Prediction {
	if strings.TrimSpace(row.Question) == "" || strings.TrimSpace(row.Context) == "" {
		return model.Absent(a.ID(), "row has no question or context")
	}
	ans, err := a.Answer(ctx, row.Question, row.Context)
	if err != nil {
		zap.L().Debug("annotator produced no answer",
			zap.String("annotator", a.ID()),
			zap.String("row_id", row.ID),
			zap.Error(err),
		)
		return model.Absent(a.ID(), err.Error())
	}
	if ans.Model == "" {
		ans.Model = a.ID()
	}
	return model.Present(a.ID(), ans)
}
