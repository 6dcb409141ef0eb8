package export

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/qa-dataset/internal/model"
)

// Record is one line of the JSONL training file.
type Record struct {
	ID       string                `json:"id"`
	Title    string                `json:"title"`
	Question string                `json:"question"`
	Context  string                `json:"context"`
	Answers  model.TrainingAnswers `json:"answers"`
}

// NewRecord converts a row into its training record.
func NewRecord(r model.Row) Record {
	return Record{
		ID:       r.ID,
		Title:    r.Dataset,
		Question: r.Question,
		Context:  r.Context,
		Answers:  r.TrainingAnswers(),
	}
}

// JSONL writes one record per trainable row and returns how many were
// written. Rows without spans are skipped.
func JSONL(w io.Writer, rows []model.Row) (int, error) {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)

	n := 0
	for _, r := range trainable(rows) {
		if err := enc.Encode(NewRecord(r)); err != nil {
			return n, eris.Wrapf(err, "export: encode row %s", r.ID)
		}
		n++
	}
	if err := bw.Flush(); err != nil {
		return n, eris.Wrap(err, "export: flush jsonl")
	}
	return n, nil
}
