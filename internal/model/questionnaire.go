package model

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
)

// QuestionType is the closed set of questionnaire question kinds. Each kind
// has exactly one answer-rewriting template.
type QuestionType string

const (
	QuestionSingleChoice   QuestionType = "single_choice"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionScale          QuestionType = "scale"
	QuestionYesNo          QuestionType = "yes_no"
	QuestionFreeText       QuestionType = "free_text"
)

// QuestionTypes lists every question type in a stable order.
var QuestionTypes = []QuestionType{
	QuestionSingleChoice,
	QuestionMultipleChoice,
	QuestionScale,
	QuestionYesNo,
	QuestionFreeText,
}

var questionTypeAliases = map[string]QuestionType{
	"single_choice":   QuestionSingleChoice,
	"single":          QuestionSingleChoice,
	"radio":           QuestionSingleChoice,
	"choice":          QuestionSingleChoice,
	"dropdown":        QuestionSingleChoice,
	"multiple_choice": QuestionMultipleChoice,
	"multiple":        QuestionMultipleChoice,
	"multi":           QuestionMultipleChoice,
	"checkbox":        QuestionMultipleChoice,
	"scale":           QuestionScale,
	"likert":          QuestionScale,
	"rating":          QuestionScale,
	"yes_no":          QuestionYesNo,
	"yesno":           QuestionYesNo,
	"boolean":         QuestionYesNo,
	"bool":            QuestionYesNo,
	"free_text":       QuestionFreeText,
	"text":            QuestionFreeText,
	"open":            QuestionFreeText,
}

// ParseQuestionType maps a questionnaire type string onto the closed set.
// ok is false for unrecognised names, which fall back to free text.
func ParseQuestionType(s string) (QuestionType, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("-", "_", " ", "_").Replace(key)
	if t, ok := questionTypeAliases[key]; ok {
		return t, true
	}
	return QuestionFreeText, false
}

// Valid reports whether t is one of the closed set.
func (t QuestionType) Valid() bool {
	for _, qt := range QuestionTypes {
		if qt == t {
			return true
		}
	}
	return false
}

// QuestionItem is one question of a questionnaire document.
type QuestionItem struct {
	Question string   `json:"question"`
	Type     string   `json:"type"`
	Options  []Option `json:"options"`
}

// Questionnaire is one questionnaire source after decoding.
type Questionnaire struct {
	Source string         `json:"source"`
	Items  []QuestionItem `json:"items"`
}

// Option is one selectable option. It decodes from a bare string or from an
// object; object keys other than the known ones are kept in Extra.
type Option struct {
	Text            string         `json:"text"`
	Answers         []string       `json:"answers,omitempty"`
	SpecialHandling []int          `json:"special_handling,omitempty"`
	Extra           map[string]any `json:"extra,omitempty"`
}

// optionTextKeys are tried in order to find an option's text.
var optionTextKeys = []string{"text", "option", "label", "value", "answer"}

// UnmarshalJSON implements json.Unmarshaler.
func (o *Option) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &o.Text)
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return eris.Wrap(err, "option")
	}

	for _, key := range optionTextKeys {
		v, ok := raw[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			// Numeric scale options ("value": 5) keep their literal form.
			s = string(bytes.TrimSpace(v))
		}
		o.Text = s
		delete(raw, key)
		break
	}

	if v, ok := raw["answers"]; ok {
		if err := json.Unmarshal(v, &o.Answers); err != nil {
			return eris.Wrap(err, "option answers")
		}
		delete(raw, "answers")
	}
	if v, ok := raw["special_handling"]; ok {
		if err := json.Unmarshal(v, &o.SpecialHandling); err != nil {
			return eris.Wrap(err, "option special_handling")
		}
		delete(raw, "special_handling")
	}

	if len(raw) > 0 {
		o.Extra = make(map[string]any, len(raw))
		for k, v := range raw {
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return eris.Wrapf(err, "option %s", k)
			}
			o.Extra[k] = val
		}
	}
	return nil
}

// Candidates returns the answer texts the option contributes: its explicit
// answers list if present, else its text.
func (o Option) Candidates() []string {
	if len(o.Answers) > 0 {
		return append([]string(nil), o.Answers...)
	}
	if o.Text == "" {
		return nil
	}
	return []string{o.Text}
}
