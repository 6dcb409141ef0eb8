package generate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/qa-dataset/internal/model"
)

// MissingCandidateError is returned when a generated answer does not
// contain one of the row's answer candidates verbatim.
type MissingCandidateError struct {
	RowID     string
	Candidate string
}

func (e *MissingCandidateError) Error() string {
	return fmt.Sprintf("generate: row %s: answer does not contain %q", e.RowID, e.Candidate)
}

// Generator fills questions and contexts. Sessions are pooled: each row
// borrows one session for its question and answer turns.
type Generator struct {
	templates Templates
	pool      chan *Session
	size      int
	// Attempts is how many times an answer is regenerated when it misses
	// a candidate. Default: 2.
	Attempts int

	mu        sync.Mutex
	questions map[string]string
}

// New creates a Generator over one or more sessions.
func New(templates Templates, sessions ...*Session) (*Generator, error) {
	if len(sessions) == 0 {
		return nil, eris.New("generate: at least one session is required")
	}
	pool := make(chan *Session, len(sessions))
	for _, s := range sessions {
		pool <- s
	}
	return &Generator{
		templates: templates,
		pool:      pool,
		size:      len(sessions),
		Attempts:  2,
		questions: make(map[string]string),
	}, nil
}

func (g *Generator) acquire(ctx context.Context) (*Session, error) {
	select {
	case s := <-g.pool:
		return s, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *Generator) release(s *Session) { g.pool <- s }

// Question rephrases a topic into a natural question. Results are cached
// per topic so every option of a question shares it.
func (g *Generator) Question(ctx context.Context, topic string) (string, error) {
	g.mu.Lock()
	q, ok := g.questions[topic]
	g.mu.Unlock()
	if ok {
		return q, nil
	}

	s, err := g.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer g.release(s)
	return g.question(ctx, s, topic)
}

func (g *Generator) question(ctx context.Context, s *Session, topic string) (string, error) {
	g.mu.Lock()
	q, ok := g.questions[topic]
	g.mu.Unlock()
	if ok {
		return q, nil
	}

	reply, err := s.Send(ctx, g.templates.QuestionPrompt(topic))
	if err != nil {
		return "", err
	}
	q = norm.NFC.String(reply)

	g.mu.Lock()
	g.questions[topic] = q
	g.mu.Unlock()
	return q, nil
}

// Answer writes a context for row that contains each answer candidate
// verbatim. row.Question must be set.
func (g *Generator) Answer(ctx context.Context, row model.Row) (string, error) {
	s, err := g.acquire(ctx)
	if err != nil {
		return "", err
	}
	defer g.release(s)
	return g.answer(ctx, s, row)
}

func (g *Generator) answer(ctx context.Context, s *Session, row model.Row) (string, error) {
	prompt := g.templates.AnswerPrompt(row)
	attempts := max(g.Attempts, 1)

	var lastErr error
	for range attempts {
		reply, err := s.Send(ctx, prompt)
		if err != nil {
			return "", err
		}
		text := norm.NFC.String(reply)
		lastErr = checkCandidates(row, text)
		if lastErr == nil {
			return text, nil
		}
		zap.L().Debug("generated answer missed a candidate",
			zap.String("row_id", row.ID),
			zap.Error(lastErr),
		)
	}
	return "", lastErr
}

func checkCandidates(row model.Row, text string) error {
	for _, c := range row.AnswerCandidates {
		if !strings.Contains(text, norm.NFC.String(c)) {
			return &MissingCandidateError{RowID: row.ID, Candidate: c}
		}
	}
	return nil
}

// Stats summarises a Rows run.
type Stats struct {
	Generated int
	Failed    int
	Skipped   int
}

// Rows fills Question and Context of every raw row in place and advances
// it to generated. Rows past the raw stage are skipped. A row whose
// generation fails is logged and left raw; only context cancellation
// aborts the run.
func (g *Generator) Rows(ctx context.Context, rows []model.Row) (Stats, error) {
	if err := ctx.Err(); err != nil {
		return Stats{}, eris.Wrap(err, "generate: rows")
	}
	var generated, failed, skipped atomic.Int64

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.size)

	for i := range rows {
		row := &rows[i]
		if row.Stage != model.StageRaw && row.Stage != "" {
			skipped.Add(1)
			continue
		}
		eg.Go(func() error {
			s, err := g.acquire(gctx)
			if err != nil {
				return err
			}
			defer g.release(s)

			if err := g.fill(gctx, s, row); err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				zap.L().Warn("generation failed, row left raw",
					zap.String("row_id", row.ID),
					zap.String("topic", row.Topic),
					zap.Error(err),
				)
				return nil
			}
			generated.Add(1)
			return nil
		})
	}

	err := eg.Wait()
	stats := Stats{Generated: int(generated.Load()), Failed: int(failed.Load()), Skipped: int(skipped.Load())}
	if err != nil {
		return stats, eris.Wrap(err, "generate: rows")
	}
	return stats, nil
}

func (g *Generator) fill(ctx context.Context, s *Session, row *model.Row) error {
	for i, c := range row.AnswerCandidates {
		row.AnswerCandidates[i] = norm.NFC.String(c)
	}

	q, err := g.question(ctx, s, row.Topic)
	if err != nil {
		return err
	}
	work := *row
	work.Question = q

	text, err := g.answer(ctx, s, work)
	if err != nil {
		return err
	}
	row.Question = q
	row.Context = text
	row.Stage = model.StageGenerated
	return nil
}
