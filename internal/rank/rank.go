// Package rank reconciles the predictions of several QA annotators into a
// single answer per row.
package rank

import "github.com/sells-group/qa-dataset/internal/model"

// NoScore is the ranked score of a row where every annotator was absent. It
// is lower than any confidence an annotator reports.
const NoScore = -1.0

// Result is the reconciled answer of one row. Answer is nil when no
// annotator produced a prediction.
type Result struct {
	Answer    *string
	Score     float64
	Annotator string
	Model     string
}

// Rank picks the highest-scoring present prediction of row, visiting
// predictions in the order their annotators were attached. A score only
// replaces the current best when strictly greater, so the first of several
// equal top scores wins. Absent predictions are skipped.
func Rank(row model.Row) Result {
	best := Result{Score: NoScore}

	for _, p := range row.Predictions {
		a, ok := p.Get()
		if !ok {
			continue
		}
		if a.Score > best.Score {
			text := a.Text
			best = Result{
				Answer:    &text,
				Score:     a.Score,
				Annotator: p.Annotator,
				Model:     a.Model,
			}
		}
	}

	return best
}

// RankWith ranks row visiting predictions in registry order rather than the
// row's own order.
func RankWith(reg *model.Registry, row model.Row) Result {
	ordered := row
	ordered.Predictions = reg.Order(row.Predictions)
	return Rank(ordered)
}

// Apply ranks row and writes the result onto it.
func Apply(row *model.Row) Result {
	res := Rank(*row)
	row.RankedAnswer = res.Answer
	row.RankedScore = res.Score
	row.RankedBy = res.Annotator
	row.Stage = model.StageRanked
	return res
}

// Stats summarises a ranking pass.
type Stats struct {
	Rows     int
	Answered int
	Fallback int
	Wins     map[string]int
}

// ApplyAll ranks every row in place. Rows are independent of each other.
func ApplyAll(rows []model.Row) Stats {
	st := Stats{Rows: len(rows), Wins: make(map[string]int)}
	for i := range rows {
		res := Apply(&rows[i])
		if res.Answer == nil {
			st.Fallback++
			continue
		}
		st.Answered++
		st.Wins[res.Annotator]++
	}
	return st
}
