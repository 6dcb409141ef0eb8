package generate

import (
	"context"
	"strings"
	"sync"

	"github.com/rotisserie/eris"

	"github.com/sells-group/qa-dataset/internal/cost"
	"github.com/sells-group/qa-dataset/internal/model"
	"github.com/sells-group/qa-dataset/internal/resilience"
	"github.com/sells-group/qa-dataset/pkg/anthropic"
)

// SessionOptions configures a chat session.
type SessionOptions struct {
	Model     string
	MaxTokens int64
	// Context seeds the session as a cached system prompt.
	Context string
	// MaxTurns bounds the history sent with each request, counted in
	// user/assistant pairs. Zero keeps the whole history.
	MaxTurns int
	Retry    resilience.RetryConfig
	Tracker  *cost.Tracker
}

// Session is a turn-taking chat over the Messages API. Each Send waits on
// the shared limiter and appends the exchange to the history.
type Session struct {
	client  anthropic.Client
	limiter *Limiter
	opts    SessionOptions
	system  []anthropic.SystemBlock

	mu      sync.Mutex
	history []anthropic.Message
}

// NewSession starts a session seeded with opts.Context.
func NewSession(client anthropic.Client, limiter *Limiter, opts SessionOptions) *Session {
	if opts.MaxTokens == 0 {
		opts.MaxTokens = 512
	}
	if opts.Retry.OnRetry == nil {
		opts.Retry.OnRetry = resilience.RetryLogger("anthropic", "generate")
	}
	if opts.Retry.ShouldRetry == nil {
		opts.Retry.ShouldRetry = retryable
	}
	return &Session{
		client:  client,
		limiter: limiter,
		opts:    opts,
		system:  anthropic.BuildCachedSystemBlocks(opts.Context),
	}
}

func retryable(err error) bool {
	if code := anthropic.StatusCode(err); code != 0 {
		return resilience.IsTransientHTTPStatus(code) || code == 529
	}
	return resilience.IsTransient(err)
}

// Send sends msg and returns the model's reply. Sends on one session are
// serialised so the history stays well-formed.
func (s *Session) Send(ctx context.Context, msg string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := append(s.window(), anthropic.Message{Role: "user", Content: msg})

	resp, err := resilience.DoVal(ctx, s.opts.Retry, func(ctx context.Context) (*anthropic.MessageResponse, error) {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}
		return s.client.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     s.opts.Model,
			MaxTokens: s.opts.MaxTokens,
			System:    s.system,
			Messages:  msgs,
		})
	})
	if err != nil {
		return "", eris.Wrap(err, "generate: send")
	}

	if s.opts.Tracker != nil {
		s.opts.Tracker.Record(s.opts.Model, model.TokenUsage{
			InputTokens:         int(resp.Usage.InputTokens),
			OutputTokens:        int(resp.Usage.OutputTokens),
			CacheCreationTokens: int(resp.Usage.CacheCreationInputTokens),
			CacheReadTokens:     int(resp.Usage.CacheReadInputTokens),
		})
	}

	reply := strings.TrimSpace(resp.Text())
	if reply == "" {
		return "", eris.New("generate: empty reply")
	}

	s.history = append(s.history,
		anthropic.Message{Role: "user", Content: msg},
		anthropic.Message{Role: "assistant", Content: reply},
	)
	return reply, nil
}

// window returns a copy of the history trimmed to MaxTurns pairs.
func (s *Session) window() []anthropic.Message {
	h := s.history
	if s.opts.MaxTurns > 0 && len(h) > 2*s.opts.MaxTurns {
		h = h[len(h)-2*s.opts.MaxTurns:]
	}
	return append([]anthropic.Message(nil), h...)
}

// Turns returns the number of completed exchanges.
func (s *Session) Turns() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history) / 2
}
