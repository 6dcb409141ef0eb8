package questionnaire

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sells-group/qa-dataset/internal/model"
)

var rowNamespace = uuid.MustParse("0b7c4e2a-91d3-4f6e-8a25-d41c7e9f3a68")

// RowID is the deterministic ID of the ordinal-th raw row of a dataset, so
// re-ingesting the same sources yields the same IDs.
func RowID(dataset string, ordinal int) string {
	return uuid.NewSHA1(rowNamespace, []byte(dataset+"/"+strconv.Itoa(ordinal))).String()
}

// Flatten yields one raw row per option. Questionnaires are numbered 1..N in
// input order; ordinals run across the whole dataset.
func Flatten(dataset string, qs []model.Questionnaire) []model.Row {
	var rows []model.Row
	for qi, q := range qs {
		for _, item := range q.Items {
			kind, ok := model.ParseQuestionType(item.Type)
			if !ok {
				zap.L().Warn("unknown question type, using free text",
					zap.String("source", q.Source),
					zap.String("question", item.Question),
					zap.String("type", item.Type),
				)
			}
			for _, opt := range item.Options {
				ordinal := len(rows)
				rows = append(rows, model.Row{
					ID:               RowID(dataset, ordinal),
					Dataset:          dataset,
					Ordinal:          ordinal,
					Questionnaire:    qi + 1,
					Topic:            strings.TrimSpace(item.Question),
					Type:             kind,
					Option:           strings.TrimSpace(opt.Text),
					AnswerCandidates: opt.Candidates(),
					SpecialHandling:  append([]int(nil), opt.SpecialHandling...),
					Stage:            model.StageRaw,
					Extra:            opt.Extra,
				})
			}
		}
	}
	return rows
}

// ValidationError describes why a raw row cannot enter the pipeline.
type ValidationError struct {
	RowID  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("questionnaire: row %s: %s", e.RowID, e.Reason)
}

// Validate checks that a raw row has a question, at least one non-empty
// answer candidate and non-negative special handling indices.
func Validate(row model.Row) error {
	if row.Topic == "" {
		return &ValidationError{RowID: row.ID, Reason: "empty question"}
	}
	if len(row.AnswerCandidates) == 0 {
		return &ValidationError{RowID: row.ID, Reason: "no answer candidates"}
	}
	for _, c := range row.AnswerCandidates {
		if c == "" {
			return &ValidationError{RowID: row.ID, Reason: "empty answer candidate"}
		}
	}
	for _, n := range row.SpecialHandling {
		if n < 0 {
			return &ValidationError{RowID: row.ID, Reason: fmt.Sprintf("negative special handling index %d", n)}
		}
	}
	return nil
}

// Partition splits rows into valid ones and the validation errors of the
// rest, preserving order.
func Partition(rows []model.Row) ([]model.Row, []*ValidationError) {
	valid := make([]model.Row, 0, len(rows))
	var invalid []*ValidationError
	for _, r := range rows {
		if err := Validate(r); err != nil {
			invalid = append(invalid, err.(*ValidationError))
			continue
		}
		valid = append(valid, r)
	}
	return valid, invalid
}
