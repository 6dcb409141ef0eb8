package export

import (
	"encoding/json"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/qa-dataset/internal/model"
)

// SQuADVersion is the version string written into SQuAD documents.
const SQuADVersion = "1.1"

// SQuADAnswer is a single answer span.
type SQuADAnswer struct {
	Text        string `json:"text"`
	AnswerStart int    `json:"answer_start"`
}

// SQuADQA is a question with its answers.
type SQuADQA struct {
	ID       string        `json:"id"`
	Question string        `json:"question"`
	Answers  []SQuADAnswer `json:"answers"`
}

// SQuADParagraph groups the questions asked about one context.
type SQuADParagraph struct {
	Context string    `json:"context"`
	QAs     []SQuADQA `json:"qas"`
}

// SQuADArticle is a titled group of paragraphs.
type SQuADArticle struct {
	Title      string           `json:"title"`
	Paragraphs []SQuADParagraph `json:"paragraphs"`
}

// SQuADDocument is the top-level SQuAD v1.1 file.
type SQuADDocument struct {
	Version string         `json:"version"`
	Data    []SQuADArticle `json:"data"`
}

// BuildSQuAD groups trainable rows into one article titled after the
// dataset. Rows sharing a context share a paragraph; paragraphs and
// questions keep row order.
func BuildSQuAD(dataset string, rows []model.Row) SQuADDocument {
	article := SQuADArticle{Title: dataset, Paragraphs: []SQuADParagraph{}}
	index := make(map[string]int)

	for _, r := range trainable(rows) {
		i, ok := index[r.Context]
		if !ok {
			i = len(article.Paragraphs)
			index[r.Context] = i
			article.Paragraphs = append(article.Paragraphs, SQuADParagraph{Context: r.Context})
		}
		qa := SQuADQA{ID: r.ID, Question: r.Question, Answers: make([]SQuADAnswer, 0, r.Spans.Len())}
		for j, text := range r.Spans.Texts {
			qa.Answers = append(qa.Answers, SQuADAnswer{Text: text, AnswerStart: r.Spans.Starts[j]})
		}
		article.Paragraphs[i].QAs = append(article.Paragraphs[i].QAs, qa)
	}

	return SQuADDocument{Version: SQuADVersion, Data: []SQuADArticle{article}}
}

// SQuAD writes the SQuAD document for rows.
func SQuAD(w io.Writer, dataset string, rows []model.Row) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(BuildSQuAD(dataset, rows)); err != nil {
		return eris.Wrap(err, "export: encode squad")
	}
	return nil
}
