package model

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// Stage marks how far a row has travelled through the dataset pipeline.
type Stage string

const (
	StageRaw       Stage = "raw"
	StageGenerated Stage = "generated"
	StageAnnotated Stage = "annotated"
	StageExpanded  Stage = "expanded"
	StageLabelled  Stage = "labelled"
	StageRanked    Stage = "ranked"
)

// Row is one tabular record of the dataset. Question and Context are
// immutable once set; later stages only add fields.
type Row struct {
	ID               string         `json:"id"`
	ParentID         string         `json:"parent_id,omitempty"`
	Dataset          string         `json:"dataset"`
	Ordinal          int            `json:"ordinal"`
	Questionnaire    int            `json:"questionnaire"`
	Topic            string         `json:"topic"`
	Type             QuestionType   `json:"type"`
	Option           string         `json:"option"`
	Question         string         `json:"question"`
	Context          string         `json:"context"`
	AnswerCandidates []string       `json:"answer_candidates"`
	SpecialHandling  []int          `json:"special_handling,omitempty"`
	Spans            *SpanRecord    `json:"spans,omitempty"`
	Predictions      []Prediction   `json:"predictions,omitempty"`
	RankedAnswer     *string        `json:"ranked_answer,omitempty"`
	RankedScore      float64        `json:"ranked_score"`
	RankedBy         string         `json:"ranked_by,omitempty"`
	Stage            Stage          `json:"stage"`
	Extra            map[string]any `json:"extra,omitempty"`
}

// SpanRecord holds every (text, start) answer span of a row. Starts are
// code-point offsets into the row's context.
type SpanRecord struct {
	Texts  []string `json:"texts"`
	Starts []int    `json:"starts"`
}

// Len returns the number of spans, or -1 when the record is malformed.
func (s SpanRecord) Len() int {
	if !s.Valid() {
		return -1
	}
	return len(s.Texts)
}

// Valid reports whether texts and starts are aligned.
func (s SpanRecord) Valid() bool {
	return len(s.Texts) == len(s.Starts)
}

// Verify checks the round-trip invariant: every text is found at its start.
func (s SpanRecord) Verify(context string) error {
	if !s.Valid() {
		return fmt.Errorf("span record has %d texts but %d starts", len(s.Texts), len(s.Starts))
	}
	for i, text := range s.Texts {
		got, ok := SliceRunes(context, s.Starts[i], utf8.RuneCountInString(text))
		if !ok || got != text {
			return fmt.Errorf("span %d: %q not found at offset %d", i, text, s.Starts[i])
		}
	}
	return nil
}

// SliceRunes returns context[start:start+n] in code points. ok is false when
// the range falls outside the string.
func SliceRunes(context string, start, n int) (string, bool) {
	if start < 0 || n < 0 {
		return "", false
	}
	runes := []rune(context)
	if start+n > len(runes) {
		return "", false
	}
	return string(runes[start : start+n]), true
}

// TrainingAnswers is the span annotation shape consumed by span-based QA
// fine-tuning.
type TrainingAnswers struct {
	Text        []string `json:"text"`
	AnswerStart []int    `json:"answer_start"`
}

// TrainingAnswers converts the row's span record. Rows without spans yield
// empty slices rather than nil so the JSON shape is stable.
func (r Row) TrainingAnswers() TrainingAnswers {
	out := TrainingAnswers{Text: []string{}, AnswerStart: []int{}}
	if r.Spans == nil {
		return out
	}
	out.Text = append(out.Text, r.Spans.Texts...)
	out.AnswerStart = append(out.AnswerStart, r.Spans.Starts...)
	return out
}

// Clone returns a copy of the row whose slices and maps can be changed
// without touching the original.
func (r Row) Clone() Row {
	c := r
	c.AnswerCandidates = append([]string(nil), r.AnswerCandidates...)
	c.SpecialHandling = append([]int(nil), r.SpecialHandling...)
	c.Predictions = append([]Prediction(nil), r.Predictions...)
	if r.Spans != nil {
		s := SpanRecord{
			Texts:  append([]string(nil), r.Spans.Texts...),
			Starts: append([]int(nil), r.Spans.Starts...),
		}
		c.Spans = &s
	}
	if r.RankedAnswer != nil {
		a := *r.RankedAnswer
		c.RankedAnswer = &a
	}
	if r.Extra != nil {
		c.Extra = make(map[string]any, len(r.Extra))
		for k, v := range r.Extra {
			c.Extra[k] = v
		}
	}
	return c
}

// Rejection records a row halted by a fatal per-row error so the source
// data can be inspected and fixed.
type Rejection struct {
	ID        string    `json:"id"`
	Dataset   string    `json:"dataset"`
	RowID     string    `json:"row_id"`
	Stage     Stage     `json:"stage"`
	Error     string    `json:"error"`
	Answer    string    `json:"answer,omitempty"`
	Requested int       `json:"requested,omitempty"`
	Found     int       `json:"found,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
