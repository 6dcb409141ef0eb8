package qa

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/qa-dataset/internal/config"
	"github.com/sells-group/qa-dataset/internal/model"
	"github.com/sells-group/qa-dataset/internal/resilience"
)

// HTTPOptions configures an HTTPAnnotator.
type HTTPOptions struct {
	// Endpoint is the inference base URL; requests go to
	// {Endpoint}/models/{Model}.
	Endpoint string
	Token    string
	Model    string

	// Rate bounds requests per second. Zero disables limiting.
	Rate    rate.Limit
	Timeout time.Duration
	Retry   resilience.RetryConfig

	// Breaker guards the endpoint. Nil disables it.
	Breaker *resilience.CircuitBreaker

	// MaxContextRunes truncates contexts before they are sent.
	MaxContextRunes int

	HTTPClient *http.Client
}

// HTTPOptionsFromConfig builds options for model from the annotate config
// section.
func HTTPOptionsFromConfig(cfg config.AnnotateConfig, modelName string, breakers *resilience.Breakers) HTTPOptions {
	opts := HTTPOptions{
		Endpoint:        cfg.Endpoint,
		Token:           cfg.Token,
		Model:           modelName,
		Rate:            rate.Limit(cfg.RatePerSec),
		Timeout:         time.Duration(cfg.TimeoutSecs) * time.Second,
		Retry:           resilience.FromConfig(cfg.Retry),
		MaxContextRunes: cfg.MaxContextRune,
	}
	if breakers != nil {
		opts.Breaker = breakers.Get(modelName)
	}
	return opts
}

// HTTPAnnotator calls a hosted question-answering pipeline.
type HTTPAnnotator struct {
	opts    HTTPOptions
	http    *http.Client
	limiter *rate.Limiter
}

// NewHTTPAnnotator creates an annotator for opts.Model.
func NewHTTPAnnotator(opts HTTPOptions) (*HTTPAnnotator, error) {
	if opts.Model == "" {
		return nil, eris.New("qa: http annotator needs a model")
	}
	if opts.Endpoint == "" {
		return nil, eris.New("qa: http annotator needs an endpoint")
	}
	opts.Endpoint = strings.TrimRight(opts.Endpoint, "/")
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.Retry.OnRetry == nil {
		opts.Retry.OnRetry = resilience.RetryLogger("qa-endpoint", opts.Model)
	}

	a := &HTTPAnnotator{opts: opts, http: opts.HTTPClient}
	if a.http == nil {
		a.http = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Rate > 0 {
		a.limiter = rate.NewLimiter(opts.Rate, 1)
	}
	return a, nil
}

// ID returns the model name.
func (a *HTTPAnnotator) ID() string { return a.opts.Model }

type qaRequest struct {
	Inputs qaInputs `json:"inputs"`
}

type qaInputs struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

type qaResponse struct {
	Answer string  `json:"answer"`
	Score  float64 `json:"score"`
	Start  int     `json:"start"`
	End    int     `json:"end"`
}

// Answer asks the endpoint for the answer span. The reported start is
// checked against the context and re-located when it does not match.
func (a *HTTPAnnotator) Answer(ctx context.Context, question, passage string) (model.Answer, error) {
	sent := truncateRunes(passage, a.opts.MaxContextRunes)

	call := func(ctx context.Context) (qaResponse, error) {
		return resilience.DoVal(ctx, a.opts.Retry, func(ctx context.Context) (qaResponse, error) {
			return a.do(ctx, question, sent)
		})
	}

	var (
		resp qaResponse
		err  error
	)
	if a.opts.Breaker != nil {
		resp, err = resilience.ExecuteVal(ctx, a.opts.Breaker, call)
	} else {
		resp, err = call(ctx)
	}
	if err != nil {
		return model.Answer{}, err
	}

	start, ok := resolveStart(passage, resp.Answer, resp.Start)
	if !ok {
		return model.Answer{}, &NotInContextError{Annotator: a.ID(), Answer: resp.Answer}
	}
	return model.Answer{Text: resp.Answer, Start: start, Score: resp.Score, Model: a.opts.Model}, nil
}

func (a *HTTPAnnotator) do(ctx context.Context, question, passage string) (qaResponse, error) {
	if a.limiter != nil {
		if err := a.limiter.Wait(ctx); err != nil {
			return qaResponse{}, err
		}
	}

	payload, err := json.Marshal(qaRequest{Inputs: qaInputs{Question: question, Context: passage}})
	if err != nil {
		return qaResponse{}, eris.Wrap(err, "qa: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.opts.Endpoint+"/models/"+a.opts.Model, bytes.NewReader(payload))
	if err != nil {
		return qaResponse{}, eris.Wrap(err, "qa: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if a.opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+a.opts.Token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return qaResponse{}, eris.Wrap(err, "qa: request")
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return qaResponse{}, eris.Wrap(err, "qa: read response body")
	}
	if err := resilience.CheckStatus("qa-endpoint", resp.StatusCode, body); err != nil {
		return qaResponse{}, err
	}
	return decodeQAResponse(body)
}

// decodeQAResponse accepts a single answer object or a list of answers
// ordered by score, as returned when more than one answer is requested.
func decodeQAResponse(body []byte) (qaResponse, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var list []qaResponse
		if err := json.Unmarshal(body, &list); err != nil {
			return qaResponse{}, eris.Wrap(err, "qa: unmarshal response")
		}
		if len(list) == 0 {
			return qaResponse{}, eris.New("qa: empty answer list")
		}
		return list[0], nil
	}
	var r qaResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return qaResponse{}, eris.Wrap(err, "qa: unmarshal response")
	}
	return r, nil
}
