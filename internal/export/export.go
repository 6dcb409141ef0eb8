// Package export writes labelled rows in the formats consumed by span-based
// QA fine-tuning and by human reviewers.
package export

import (
	"github.com/sells-group/qa-dataset/internal/model"
)

// Trainable reports whether a row carries a context and at least one
// answer span.
func Trainable(r model.Row) bool {
	return r.Context != "" && r.Spans != nil && r.Spans.Len() > 0
}

func trainable(rows []model.Row) []model.Row {
	out := make([]model.Row, 0, len(rows))
	for _, r := range rows {
		if Trainable(r) {
			out = append(out, r)
		}
	}
	return out
}
