package span

import "fmt"

// AnswerNotFoundError reports a special-handling index that names an
// occurrence the context does not contain.
type AnswerNotFoundError struct {
	RowID     string
	Answer    string
	Requested int
	Found     int
}

func (e *AnswerNotFoundError) Error() string {
	return fmt.Sprintf("span: row %s: occurrence %d of answer %q requested, %d found in context",
		e.RowID, e.Requested, e.Answer, e.Found)
}

// MalformedSpanRecordError reports a span record whose texts and starts are
// not aligned.
type MalformedSpanRecordError struct {
	RowID  string
	Texts  int
	Starts int
}

func (e *MalformedSpanRecordError) Error() string {
	return fmt.Sprintf("span: row %s: malformed span record: %d texts, %d starts",
		e.RowID, e.Texts, e.Starts)
}
