// Package generate rewrites questionnaire items into natural questions and
// answer contexts with an Anthropic model.
package generate

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/qa-dataset/internal/config"
)

// Clock abstracts time for the limiter.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the wall clock.
type SystemClock struct{}

// Now returns the current time.
func (SystemClock) Now() time.Time { return time.Now() }

// Sleep waits for d or until ctx is done.
func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Limiter caps generation requests per window for a subscription tier. A
// full window's worth of requests may burst; after that requests are spread
// evenly. One Limiter is shared by every session of a run.
type Limiter struct {
	tier   string
	limit  int
	window time.Duration
	clock  Clock
	rl     *rate.Limiter
}

// NewLimiter allows perWindow requests per window.
func NewLimiter(tier string, perWindow int, window time.Duration, clock Clock) (*Limiter, error) {
	if perWindow <= 0 {
		return nil, eris.Errorf("generate: tier %q: requests per window must be positive", tier)
	}
	if window <= 0 {
		return nil, eris.New("generate: window must be positive")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	every := rate.Every(window / time.Duration(perWindow))
	return &Limiter{
		tier:   tier,
		limit:  perWindow,
		window: window,
		clock:  clock,
		rl:     rate.NewLimiter(every, perWindow),
	}, nil
}

// LimiterFromConfig builds the limiter for the configured tier.
func LimiterFromConfig(cfg config.GenerateConfig, clock Clock) (*Limiter, error) {
	n, ok := cfg.Limits[cfg.Tier]
	if !ok {
		return nil, eris.Errorf("generate: no request limit for tier %q", cfg.Tier)
	}
	return NewLimiter(cfg.Tier, n, time.Duration(cfg.WindowSecs)*time.Second, clock)
}

// Wait blocks until one request may be sent.
func (l *Limiter) Wait(ctx context.Context) error {
	now := l.clock.Now()
	r := l.rl.ReserveN(now, 1)
	if !r.OK() {
		return eris.New("generate: rate limiter cannot satisfy request")
	}
	delay := r.DelayFrom(now)
	if delay <= 0 {
		return nil
	}
	zap.L().Debug("generation rate limit reached, waiting",
		zap.String("tier", l.tier),
		zap.Duration("delay", delay),
	)
	if err := l.clock.Sleep(ctx, delay); err != nil {
		r.CancelAt(l.clock.Now())
		return eris.Wrap(err, "generate: rate limiter wait")
	}
	return nil
}

// Tier returns the subscription tier name.
func (l *Limiter) Tier() string { return l.tier }

// Limit returns the requests allowed per window.
func (l *Limiter) Limit() int { return l.limit }
