package export

import (
	"github.com/sells-group/qa-dataset/internal/model"
)

func strPtr(s string) *string { return &s }

// sampleRows returns two expanded siblings, one standalone row and one
// row that never got spans.
func sampleRows() []model.Row {
	busCtx := "I take the Bus, the Bus is quick."
	return []model.Row{
		{
			ID: "a-0", ParentID: "a", Dataset: "transport", Question: "How do you commute?",
			Context: busCtx, Spans: &model.SpanRecord{Texts: []string{"Bus"}, Starts: []int{11}},
			Predictions: []model.Prediction{
				model.Present("distilbert", model.Answer{Text: "Bus", Start: 11, Score: 0.9}),
				model.Absent("roberta", "timeout"),
			},
			RankedAnswer: strPtr("Bus"), RankedScore: 0.9, RankedBy: "distilbert",
			Stage: model.StageRanked,
		},
		{
			ID: "a-1", ParentID: "a", Dataset: "transport", Question: "How do you commute?",
			Context: busCtx, Spans: &model.SpanRecord{Texts: []string{"Bus"}, Starts: []int{20}},
			Stage: model.StageRanked,
		},
		{
			ID: "b", Dataset: "transport", Question: "What do you ride?",
			Context: "I ride my Bike.", Spans: &model.SpanRecord{Texts: []string{"Bike"}, Starts: []int{10}},
			Stage: model.StageRanked,
		},
		{ID: "c", Dataset: "transport", Question: "Anything else?", Stage: model.StageGenerated},
	}
}
