package span

import "github.com/sells-group/qa-dataset/internal/model"

// Annotate builds the span record for a row's answer candidates.
//
// Each candidate is located in context on its own. With no special handling
// every occurrence becomes a span. Otherwise each special-handling index n
// selects the n-th occurrence of each candidate; an index without a
// matching occurrence is an *AnswerNotFoundError. rowID only labels errors.
func Annotate(rowID string, candidates []string, context string, special []int) (model.SpanRecord, error) {
	rec := model.SpanRecord{Texts: []string{}, Starts: []int{}}

	for _, answer := range candidates {
		indices := Locate(answer, context)

		if len(special) == 0 {
			for _, start := range indices {
				rec.Texts = append(rec.Texts, answer)
				rec.Starts = append(rec.Starts, start)
			}
			continue
		}

		for _, n := range special {
			if n < 0 || n >= len(indices) {
				return model.SpanRecord{}, &AnswerNotFoundError{
					RowID:     rowID,
					Answer:    answer,
					Requested: n,
					Found:     len(indices),
				}
			}
			rec.Texts = append(rec.Texts, answer)
			rec.Starts = append(rec.Starts, indices[n])
		}
	}

	return rec, nil
}

// AnnotateRow runs Annotate on the row's own fields.
func AnnotateRow(row model.Row) (model.SpanRecord, error) {
	return Annotate(row.ID, row.AnswerCandidates, row.Context, row.SpecialHandling)
}
