// Package questionnaire loads questionnaire documents and flattens them into
// raw dataset rows, one per option.
package questionnaire

import (
	"context"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/qa-dataset/internal/fetcher"
	"github.com/sells-group/qa-dataset/internal/model"
)

// Loader reads questionnaire sources, fetching remote ones over HTTP.
type Loader struct {
	Fetcher fetcher.Fetcher
	// TempDir holds downloaded xlsx workbooks. Defaults to os.TempDir().
	TempDir string
}

// Load reads one source, choosing the decoder from its extension.
func (l *Loader) Load(ctx context.Context, source string) (model.Questionnaire, error) {
	format := fetcher.DetectFormat(source)
	log := zap.L().With(zap.String("source", source), zap.String("format", string(format)))

	var (
		q   model.Questionnaire
		err error
	)
	switch format {
	case fetcher.FormatXLSX:
		dir := l.TempDir
		if dir == "" {
			dir = os.TempDir()
		}
		path, perr := fetcher.LocalPath(ctx, l.Fetcher, source, dir)
		if perr != nil {
			return model.Questionnaire{}, perr
		}
		q, err = DecodeXLSX(ctx, path)
	default:
		rc, oerr := fetcher.Open(ctx, l.Fetcher, source)
		if oerr != nil {
			return model.Questionnaire{}, oerr
		}
		defer rc.Close() //nolint:errcheck
		if format == fetcher.FormatCSV {
			q, err = DecodeCSV(ctx, rc)
		} else {
			q, err = DecodeJSON(ctx, rc)
		}
	}
	if err != nil {
		return model.Questionnaire{}, eris.Wrapf(err, "questionnaire: load %s", source)
	}

	q.Source = source
	log.Info("loaded questionnaire", zap.Int("questions", len(q.Items)))
	return q, nil
}

// LoadAll loads every source in order.
func (l *Loader) LoadAll(ctx context.Context, sources []string) ([]model.Questionnaire, error) {
	out := make([]model.Questionnaire, 0, len(sources))
	for _, src := range sources {
		q, err := l.Load(ctx, src)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, nil
}

// DecodeJSON decodes a top-level array of question objects.
func DecodeJSON(ctx context.Context, r io.Reader) (model.Questionnaire, error) {
	items, err := fetcher.Collect(fetcher.DecodeJSONArray[model.QuestionItem](ctx, r))
	if err != nil {
		return model.Questionnaire{}, err
	}
	return model.Questionnaire{Items: items}, nil
}

// DecodeCSV decodes a table with one option per line.
func DecodeCSV(ctx context.Context, r io.Reader) (model.Questionnaire, error) {
	headerCh := make(chan []string, 1)
	rows, err := fetcher.Collect(fetcher.StreamCSV(ctx, r, fetcher.CSVOptions{
		HasHeader:  true,
		HeaderCh:   headerCh,
		LazyQuotes: true,
		TrimSpace:  true,
	}))
	if err != nil {
		return model.Questionnaire{}, err
	}
	return fromTable(drainHeader(headerCh), rows)
}

// DecodeXLSX decodes the first sheet of a workbook laid out like the CSV
// format.
func DecodeXLSX(ctx context.Context, path string) (model.Questionnaire, error) {
	headerCh := make(chan []string, 1)
	rows, err := fetcher.Collect(fetcher.StreamXLSX(ctx, path, fetcher.XLSXOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
	}))
	if err != nil {
		return model.Questionnaire{}, err
	}
	return fromTable(drainHeader(headerCh), rows)
}

func drainHeader(ch chan []string) []string {
	select {
	case h := <-ch:
		return h
	default:
		return nil
	}
}

// columns maps the recognised header names to their index.
type columns struct {
	question, kind, option, answers, special int
	extra                                    map[int]string
}

func parseHeader(header []string) (columns, error) {
	c := columns{question: -1, kind: -1, option: -1, answers: -1, special: -1, extra: map[int]string{}}
	for i, h := range header {
		switch strings.ToLower(strings.TrimSpace(h)) {
		case "question", "topic":
			c.question = i
		case "type", "question_type":
			c.kind = i
		case "option", "options", "text", "label":
			c.option = i
		case "answers":
			c.answers = i
		case "special_handling":
			c.special = i
		default:
			if h != "" {
				c.extra[i] = strings.TrimSpace(h)
			}
		}
	}
	if c.question < 0 || c.option < 0 {
		return c, eris.Errorf("questionnaire: header %v needs question and option columns", header)
	}
	return c, nil
}

// fromTable groups consecutive lines sharing the same question and type into
// one item, keeping first-seen order.
func fromTable(header []string, rows [][]string) (model.Questionnaire, error) {
	if header == nil {
		return model.Questionnaire{}, nil
	}
	cols, err := parseHeader(header)
	if err != nil {
		return model.Questionnaire{}, err
	}

	var q model.Questionnaire
	for line, rec := range rows {
		question := cell(rec, cols.question)
		kind := cell(rec, cols.kind)

		opt := model.Option{Text: cell(rec, cols.option)}
		if v := cell(rec, cols.answers); v != "" {
			opt.Answers = splitList(v)
		}
		if v := cell(rec, cols.special); v != "" {
			ints, err := parseInts(v)
			if err != nil {
				// +2: header line, 1-based
				return model.Questionnaire{}, eris.Wrapf(err, "questionnaire: line %d special_handling", line+2)
			}
			opt.SpecialHandling = ints
		}
		for i, name := range cols.extra {
			if v := cell(rec, i); v != "" {
				if opt.Extra == nil {
					opt.Extra = map[string]any{}
				}
				opt.Extra[name] = v
			}
		}

		n := len(q.Items)
		if n > 0 && q.Items[n-1].Question == question && q.Items[n-1].Type == kind {
			q.Items[n-1].Options = append(q.Items[n-1].Options, opt)
			continue
		}
		q.Items = append(q.Items, model.QuestionItem{Question: question, Type: kind, Options: []model.Option{opt}})
	}
	return q, nil
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ";") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseInts parses a ";"-separated list of occurrence indices.
func parseInts(v string) ([]int, error) {
	parts := splitList(v)
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, eris.Wrapf(err, "parse %q", p)
		}
		out = append(out, n)
	}
	return out, nil
}
