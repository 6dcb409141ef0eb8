package rank

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/qa-dataset/internal/model"
)

func present(annotator, text string, score float64) model.Prediction {
	return model.Present(annotator, model.Answer{Text: text, Score: score, Model: annotator})
}

func TestRank_HighestScoreWins(t *testing.T) {
	t.Parallel()

	row := model.Row{Predictions: []model.Prediction{
		present("A", "x", 0.3),
		present("B", "y", 0.8),
		present("C", "z", 0.5),
	}}

	res := Rank(row)
	require.NotNil(t, res.Answer)
	assert.Equal(t, "y", *res.Answer)
	assert.InDelta(t, 0.8, res.Score, 1e-9)
	assert.Equal(t, "B", res.Annotator)
}

func TestRank_FirstWinsOnTie(t *testing.T) {
	t.Parallel()

	row := model.Row{Predictions: []model.Prediction{
		present("A", "x", 0.9),
		present("B", "y", 0.9),
	}}

	res := Rank(row)
	require.NotNil(t, res.Answer)
	assert.Equal(t, "x", *res.Answer)
	assert.InDelta(t, 0.9, res.Score, 1e-9)
}

func TestRank_AllAbsentFallsBack(t *testing.T) {
	t.Parallel()

	row := model.Row{Predictions: []model.Prediction{
		model.Absent("A", "context too long"),
		model.Absent("B", "model error"),
	}}

	res := Rank(row)
	assert.Nil(t, res.Answer)
	assert.Equal(t, NoScore, res.Score)
	assert.Empty(t, res.Annotator)
}

func TestRank_NoPredictions(t *testing.T) {
	t.Parallel()

	res := Rank(model.Row{})
	assert.Nil(t, res.Answer)
	assert.Equal(t, -1.0, res.Score)
}

func TestRank_AbsentSkipped(t *testing.T) {
	t.Parallel()

	row := model.Row{Predictions: []model.Prediction{
		model.Absent("A", "boom"),
		present("B", "y", 0.2),
	}}

	res := Rank(row)
	require.NotNil(t, res.Answer)
	assert.Equal(t, "y", *res.Answer)
}

func TestRank_LaterLowerScoreDoesNotLeak(t *testing.T) {
	t.Parallel()

	// A later, lower score must not replace the reported best score.
	row := model.Row{Predictions: []model.Prediction{
		present("A", "x", 0.7),
		present("B", "y", 0.1),
	}}

	res := Rank(row)
	assert.InDelta(t, 0.7, res.Score, 1e-9)
	assert.Equal(t, "x", *res.Answer)
}

func TestRank_ZeroScoreBeatsSentinel(t *testing.T) {
	t.Parallel()

	row := model.Row{Predictions: []model.Prediction{present("A", "x", 0)}}
	res := Rank(row)
	require.NotNil(t, res.Answer)
	assert.Equal(t, 0.0, res.Score)
}

func TestRankWith_RegistryOrderDecidesTies(t *testing.T) {
	t.Parallel()

	row := model.Row{Predictions: []model.Prediction{
		present("A", "x", 0.9),
		present("B", "y", 0.9),
	}}
	reg := model.NewRegistry("B", "A")

	res := RankWith(reg, row)
	assert.Equal(t, "y", *res.Answer)
	// The row itself is not reordered.
	assert.Equal(t, "A", row.Predictions[0].Annotator)
}

func TestApply_Idempotent(t *testing.T) {
	t.Parallel()

	row := model.Row{Predictions: []model.Prediction{
		present("A", "x", 0.4),
		present("B", "y", 0.6),
	}}

	Apply(&row)
	firstAnswer, firstScore := *row.RankedAnswer, row.RankedScore
	Apply(&row)

	assert.Equal(t, firstAnswer, *row.RankedAnswer)
	assert.Equal(t, firstScore, row.RankedScore)
	assert.Equal(t, "B", row.RankedBy)
	assert.Equal(t, model.StageRanked, row.Stage)
}

func TestApplyAll(t *testing.T) {
	t.Parallel()

	rows := []model.Row{
		{Predictions: []model.Prediction{present("A", "x", 0.4)}},
		{Predictions: []model.Prediction{model.Absent("A", "err")}},
		{Predictions: []model.Prediction{present("A", "x", 0.1), present("B", "y", 0.5)}},
	}

	st := ApplyAll(rows)
	assert.Equal(t, 3, st.Rows)
	assert.Equal(t, 2, st.Answered)
	assert.Equal(t, 1, st.Fallback)
	assert.Equal(t, map[string]int{"A": 1, "B": 1}, st.Wins)
	assert.Nil(t, rows[1].RankedAnswer)
	assert.Equal(t, NoScore, rows[1].RankedScore)
}
