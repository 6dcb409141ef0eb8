package export

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/qa-dataset/internal/model"
)

// Sheet names of the review workbook.
const (
	SheetRanked     = "ranked"
	SheetRejections = "rejections"
)

var rankedHeader = []string{"id", "question", "context", "gold_answer", "gold_start", "ranked_answer", "score", "annotator"}

var rejectionHeader = []string{"row_id", "stage", "error", "answer", "requested", "found", "created_at"}

// XLSX writes a review workbook to path. The ranked sheet has one row per
// dataset row followed by one column per annotator in annotators order;
// absent predictions are left blank.
func XLSX(path string, rows []model.Row, rejections []model.Rejection, annotators []string) error {
	f := xlsx.NewFile()

	ranked, err := f.AddSheet(SheetRanked)
	if err != nil {
		return eris.Wrap(err, "export: add ranked sheet")
	}
	header := append(append([]string(nil), rankedHeader...), annotators...)
	addStrings(ranked, header)

	for _, r := range rows {
		addStrings(ranked, rankedCells(r, annotators))
	}

	rej, err := f.AddSheet(SheetRejections)
	if err != nil {
		return eris.Wrap(err, "export: add rejections sheet")
	}
	addStrings(rej, rejectionHeader)
	for _, r := range rejections {
		addStrings(rej, []string{
			r.RowID,
			string(r.Stage),
			r.Error,
			r.Answer,
			strconv.Itoa(r.Requested),
			strconv.Itoa(r.Found),
			r.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save %s", path)
	}
	return nil
}

func rankedCells(r model.Row, annotators []string) []string {
	var gold, goldStart string
	if r.Spans != nil && r.Spans.Len() > 0 {
		gold = r.Spans.Texts[0]
		goldStart = strconv.Itoa(r.Spans.Starts[0])
	}
	var rankedAnswer, score string
	if r.RankedAnswer != nil {
		rankedAnswer = *r.RankedAnswer
		score = strconv.FormatFloat(r.RankedScore, 'f', 4, 64)
	}

	cells := []string{r.ID, r.Question, r.Context, gold, goldStart, rankedAnswer, score, r.RankedBy}

	byID := make(map[string]string, len(r.Predictions))
	for _, p := range r.Predictions {
		if a, ok := p.Get(); ok {
			byID[p.Annotator] = a.Text
		}
	}
	for _, id := range annotators {
		cells = append(cells, byID[id])
	}
	return cells
}

func addStrings(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}
