package questionnaire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/qa-dataset/internal/model"
)

func TestFlatten(t *testing.T) {
	qs := []model.Questionnaire{
		{Source: "a.json", Items: []model.QuestionItem{
			{Question: " Do you smoke? ", Type: "yes_no", Options: []model.Option{{Text: "Yes"}, {Text: "No", SpecialHandling: []int{1}}}},
		}},
		{Source: "b.json", Items: []model.QuestionItem{
			{Question: "Where do you live?", Type: "mystery", Options: []model.Option{{Text: "City", Answers: []string{"city", "town"}}}},
		}},
	}

	rows := Flatten("health", qs)
	require.Len(t, rows, 3)

	assert.Equal(t, 1, rows[0].Questionnaire)
	assert.Equal(t, 1, rows[1].Questionnaire)
	assert.Equal(t, 2, rows[2].Questionnaire)

	assert.Equal(t, "Do you smoke?", rows[0].Topic)
	assert.Equal(t, model.QuestionYesNo, rows[0].Type)
	assert.Equal(t, "No", rows[1].Option)
	assert.Equal(t, []string{"No"}, rows[1].AnswerCandidates)
	assert.Equal(t, []int{1}, rows[1].SpecialHandling)

	assert.Equal(t, model.QuestionFreeText, rows[2].Type)
	assert.Equal(t, []string{"city", "town"}, rows[2].AnswerCandidates)

	for i, r := range rows {
		assert.Equal(t, i, r.Ordinal)
		assert.Equal(t, "health", r.Dataset)
		assert.Equal(t, model.StageRaw, r.Stage)
		assert.Equal(t, RowID("health", i), r.ID)
	}
}

func TestFlatten_Deterministic(t *testing.T) {
	qs := []model.Questionnaire{{Items: []model.QuestionItem{{Question: "Q", Options: []model.Option{{Text: "A"}}}}}}
	assert.Equal(t, Flatten("d", qs)[0].ID, Flatten("d", qs)[0].ID)
	assert.NotEqual(t, Flatten("d", qs)[0].ID, Flatten("e", qs)[0].ID)
}

func TestFlatten_Empty(t *testing.T) {
	assert.Empty(t, Flatten("d", nil))
}

func TestValidate(t *testing.T) {
	ok := model.Row{ID: "r1", Topic: "Q", AnswerCandidates: []string{"A"}, SpecialHandling: []int{0}}
	assert.NoError(t, Validate(ok))

	tests := []struct {
		name   string
		mutate func(*model.Row)
		reason string
	}{
		{"empty question", func(r *model.Row) { r.Topic = "" }, "empty question"},
		{"no candidates", func(r *model.Row) { r.AnswerCandidates = nil }, "no answer candidates"},
		{"empty candidate", func(r *model.Row) { r.AnswerCandidates = []string{""} }, "empty answer candidate"},
		{"negative index", func(r *model.Row) { r.SpecialHandling = []int{-1} }, "negative special handling"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ok
			tt.mutate(&r)
			err := Validate(r)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Contains(t, ve.Reason, tt.reason)
			assert.Equal(t, "r1", ve.RowID)
		})
	}
}

func TestPartition(t *testing.T) {
	rows := []model.Row{
		{ID: "a", Topic: "Q", AnswerCandidates: []string{"x"}},
		{ID: "b", Topic: "", AnswerCandidates: []string{"x"}},
		{ID: "c", Topic: "Q", AnswerCandidates: []string{"y"}},
	}
	valid, invalid := Partition(rows)
	require.Len(t, valid, 2)
	assert.Equal(t, "a", valid[0].ID)
	assert.Equal(t, "c", valid[1].ID)
	require.Len(t, invalid, 1)
	assert.Equal(t, "b", invalid[0].RowID)
}
