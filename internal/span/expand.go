package span

import (
	"strconv"

	"github.com/google/uuid"

	"github.com/sells-group/qa-dataset/internal/model"
)

// expandedNamespace seeds the deterministic ids of expanded rows.
var expandedNamespace = uuid.MustParse("6f1d5b8e-2c47-4f0a-9a51-3c2f8d7e4b10")

// ExpandedID returns the id of the i-th row expanded from parentID. The same
// parent and position always produce the same id, so expansion can be
// replayed.
func ExpandedID(parentID string, i int) string {
	return uuid.NewSHA1(expandedNamespace, []byte(parentID+"/"+strconv.Itoa(i))).String()
}

// Expand emits one row per (text, start) pair of rec, in order. Each output
// row copies row with a singleton span record. The result is built in full
// before it is returned; a malformed record yields no rows and a
// *MalformedSpanRecordError. An empty record yields zero rows.
func Expand(row model.Row, rec model.SpanRecord) ([]model.Row, error) {
	if !rec.Valid() {
		return nil, &MalformedSpanRecordError{
			RowID:  row.ID,
			Texts:  len(rec.Texts),
			Starts: len(rec.Starts),
		}
	}

	out := make([]model.Row, 0, len(rec.Texts))
	for i, text := range rec.Texts {
		r := row.Clone()
		r.ID = ExpandedID(row.ID, i)
		r.ParentID = row.ID
		r.Spans = &model.SpanRecord{
			Texts:  []string{text},
			Starts: []int{rec.Starts[i]},
		}
		r.Stage = model.StageExpanded
		out = append(out, r)
	}
	return out, nil
}
