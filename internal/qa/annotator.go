// Package qa runs extractive question-answering models over generated rows
// and attaches their predictions for ranking.
package qa

import (
	"context"
	"unicode/utf8"

	"github.com/sells-group/qa-dataset/internal/model"
	"github.com/sells-group/qa-dataset/internal/span"
)

// Annotator answers a question from a context with an extractive span.
type Annotator interface {
	// ID identifies the annotator in the dataset's registry.
	ID() string
	// Answer returns the span the model extracted. A failure means the
	// annotator produced no prediction for this row.
	Answer(ctx context.Context, question, passage string) (model.Answer, error)
}

// NotInContextError is returned when a model answer cannot be found in the
// context it was extracted from.
type NotInContextError struct {
	Annotator string
	Answer    string
}

func (e *NotInContextError) Error() string {
	return "qa: " + e.Annotator + ": answer " + quote(e.Answer) + " not in context"
}

func quote(s string) string {
	if utf8.RuneCountInString(s) > 80 {
		s = string([]rune(s)[:80]) + "..."
	}
	return "\"" + s + "\""
}

// resolveStart returns the code-point offset of answer in passage. hint is
// the offset reported by the model; it is trusted only when the text found
// there matches. Otherwise the first occurrence is used.
func resolveStart(passage, answer string, hint int) (int, bool) {
	if answer == "" {
		return 0, false
	}
	if got, ok := model.SliceRunes(passage, hint, utf8.RuneCountInString(answer)); ok && got == answer {
		return hint, true
	}
	idx := span.Locate(answer, passage)
	if len(idx) == 0 {
		return 0, false
	}
	return idx[0], true
}

// truncateRunes cuts s to at most n code points. n <= 0 means no limit.
func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
