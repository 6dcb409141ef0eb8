package qa

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/qa-dataset/internal/model"
	"github.com/sells-group/qa-dataset/pkg/anthropic"
)

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
		Usage:   anthropic.TokenUsage{InputTokens: 300, OutputTokens: 15},
	}
}

type mockAnnotator struct {
	mock.Mock
	id string
}

func (m *mockAnnotator) ID() string { return m.id }

func (m *mockAnnotator) Answer(ctx context.Context, question, passage string) (model.Answer, error) {
	args := m.Called(ctx, question, passage)
	return args.Get(0).(model.Answer), args.Error(1)
}
