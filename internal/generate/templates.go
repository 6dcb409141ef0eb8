package generate

import (
	"bytes"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/qa-dataset/internal/model"
)

// Templates holds the instruction sent for each generation step. Placeholders
// are {topic}, {question}, {option} and {answers}.
type Templates struct {
	Question string                        `yaml:"question"`
	Answers  map[model.QuestionType]string `yaml:"answers"`
}

const answerRule = " Write one or two sentences in the first person. " +
	"Include each of these exact phrases verbatim: {answers}. " +
	"Reply with the answer text only."

// DefaultTemplates returns the built-in templates, one per question type.
func DefaultTemplates() Templates {
	return Templates{
		Question: "Rephrase the following questionnaire topic as one natural, " +
			"conversational question. Reply with the question only.\n\nTopic: {topic}",
		Answers: map[model.QuestionType]string{
			model.QuestionSingleChoice: "Question: {question}\nThe respondent picked the option \"{option}\"." +
				" Answer the question as that respondent." + answerRule,
			model.QuestionMultipleChoice: "Question: {question}\nOne of the options the respondent ticked is \"{option}\"." +
				" Answer the question as that respondent, mentioning this choice." + answerRule,
			model.QuestionScale: "Question: {question}\nOn the scale offered the respondent chose \"{option}\"." +
				" Answer the question as that respondent, expressing that level." + answerRule,
			model.QuestionYesNo: "Question: {question}\nThe respondent answered \"{option}\"." +
				" Answer the question as that respondent and justify briefly." + answerRule,
			model.QuestionFreeText: "Question: {question}\nThe respondent wrote \"{option}\"." +
				" Expand this into a natural answer to the question." + answerRule,
		},
	}
}

// LoadTemplates overlays templates from a YAML file on the defaults. The
// file has a top-level "templates" key; unknown keys and unknown question
// types are errors.
func LoadTemplates(path string) (Templates, error) {
	t := DefaultTemplates()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Templates{}, eris.Wrapf(err, "generate: read templates %s", path)
	}

	var wrapper struct {
		Templates Templates `yaml:"templates"`
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&wrapper); err != nil {
		return Templates{}, eris.Wrap(err, "generate: parse templates")
	}

	if wrapper.Templates.Question != "" {
		t.Question = wrapper.Templates.Question
	}
	for kind, text := range wrapper.Templates.Answers {
		if !kind.Valid() {
			return Templates{}, eris.Errorf("generate: templates: unknown question type %q", kind)
		}
		t.Answers[kind] = text
	}
	return t, nil
}

// QuestionPrompt renders the question instruction for a topic.
func (t Templates) QuestionPrompt(topic string) string {
	return strings.NewReplacer("{topic}", topic).Replace(t.Question)
}

// AnswerPrompt renders the answer instruction for a row whose question has
// already been generated.
func (t Templates) AnswerPrompt(row model.Row) string {
	text, ok := t.Answers[row.Type]
	if !ok {
		text = t.Answers[model.QuestionFreeText]
	}
	quoted := make([]string, len(row.AnswerCandidates))
	for i, c := range row.AnswerCandidates {
		quoted[i] = "\"" + c + "\""
	}
	return strings.NewReplacer(
		"{topic}", row.Topic,
		"{question}", row.Question,
		"{option}", row.Option,
		"{answers}", strings.Join(quoted, ", "),
	).Replace(text)
}
