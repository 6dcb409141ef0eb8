package pipeline

import (
	"github.com/sells-group/qa-dataset/internal/model"
	"github.com/sells-group/qa-dataset/internal/rank"
)

// Rank reconciles the predictions of every row in place. When reg is set,
// predictions are first arranged in registry order so ties go to the
// annotator attached first.
func Rank(rows []model.Row, reg *model.Registry) rank.Stats {
	if reg != nil {
		for i := range rows {
			rows[i].Predictions = reg.Order(rows[i].Predictions)
		}
	}
	return rank.ApplyAll(rows)
}
