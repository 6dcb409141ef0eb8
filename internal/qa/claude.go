package qa

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/qa-dataset/internal/cost"
	"github.com/sells-group/qa-dataset/internal/model"
	"github.com/sells-group/qa-dataset/internal/resilience"
	"github.com/sells-group/qa-dataset/pkg/anthropic"
)

const claudeSystemPrompt = `You are an extractive question answering model.
Given a question and a context, reply with a JSON object:
{"answer": "<shortest span copied verbatim from the context>", "confidence": <number between 0 and 1>}
The answer must be an exact substring of the context. If the context does not
answer the question, reply {"answer": "", "confidence": 0}.
Reply with the JSON object only.`

// ClaudeOptions configures a ClaudeAnnotator.
type ClaudeOptions struct {
	Model     string
	MaxTokens int64
	Retry     resilience.RetryConfig
	Breaker   *resilience.CircuitBreaker
	Tracker   *cost.Tracker
}

// ClaudeAnnotator uses an Anthropic model as an extractive QA annotator.
type ClaudeAnnotator struct {
	client anthropic.Client
	opts   ClaudeOptions
	system []anthropic.SystemBlock
}

// NewClaudeAnnotator creates an annotator backed by client.
func NewClaudeAnnotator(client anthropic.Client, opts ClaudeOptions) (*ClaudeAnnotator, error) {
	if client == nil {
		return nil, eris.New("qa: claude annotator needs a client")
	}
	if opts.Model == "" {
		return nil, eris.New("qa: claude annotator needs a model")
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 256
	}
	if opts.Retry.OnRetry == nil {
		opts.Retry.OnRetry = resilience.RetryLogger("anthropic", "annotate")
	}
	if opts.Retry.ShouldRetry == nil {
		opts.Retry.ShouldRetry = func(err error) bool {
			if code := anthropic.StatusCode(err); code != 0 {
				return resilience.IsTransientHTTPStatus(code) || code == 529
			}
			return resilience.IsTransient(err)
		}
	}
	return &ClaudeAnnotator{
		client: client,
		opts:   opts,
		system: anthropic.BuildCachedSystemBlocks(claudeSystemPrompt),
	}, nil
}

// ID returns the model name.
func (a *ClaudeAnnotator) ID() string { return a.opts.Model }

type claudeAnswer struct {
	Answer     string  `json:"answer"`
	Confidence float64 `json:"confidence"`
}

// Answer asks the model for a span and locates its first occurrence in
// passage.
func (a *ClaudeAnnotator) Answer(ctx context.Context, question, passage string) (model.Answer, error) {
	call := func(ctx context.Context) (*anthropic.MessageResponse, error) {
		return resilience.DoVal(ctx, a.opts.Retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
			return a.client.CreateMessage(ctx, anthropic.MessageRequest{
				Model:     a.opts.Model,
				MaxTokens: a.opts.MaxTokens,
				System:    a.system,
				Messages: []anthropic.Message{{
					Role:    "user",
					Content: "Question: " + question + "\n\nContext: " + passage,
				}},
			})
		})
	}

	var (
		resp *anthropic.MessageResponse
		err  error
	)
	if a.opts.Breaker != nil {
		resp, err = resilience.ExecuteVal(ctx, a.opts.Breaker, call)
	} else {
		resp, err = call(ctx)
	}
	if err != nil {
		return model.Answer{}, eris.Wrap(err, "qa: claude answer")
	}

	if a.opts.Tracker != nil {
		a.opts.Tracker.Record(a.opts.Model, model.TokenUsage{
			InputTokens:         int(resp.Usage.InputTokens),
			OutputTokens:        int(resp.Usage.OutputTokens),
			CacheCreationTokens: int(resp.Usage.CacheCreationInputTokens),
			CacheReadTokens:     int(resp.Usage.CacheReadInputTokens),
		})
	}

	var parsed claudeAnswer
	if err := json.Unmarshal([]byte(cleanJSON(resp.Text())), &parsed); err != nil {
		return model.Answer{}, eris.Wrap(err, "qa: claude: unmarshal answer")
	}
	parsed.Answer = strings.TrimSpace(parsed.Answer)
	if parsed.Answer == "" {
		return model.Answer{}, eris.New("qa: claude: no answer")
	}

	start, ok := resolveStart(passage, parsed.Answer, -1)
	if !ok {
		return model.Answer{}, &NotInContextError{Annotator: a.ID(), Answer: parsed.Answer}
	}
	return model.Answer{
		Text:  parsed.Answer,
		Start: start,
		Score: min(max(parsed.Confidence, 0), 1),
		Model: a.opts.Model,
	}, nil
}

// cleanJSON extracts a JSON object from text that may be wrapped in
// markdown code fences or prose.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return strings.TrimSpace(text)
}
