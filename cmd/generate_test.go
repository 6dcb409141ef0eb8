package main

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/qa-dataset/pkg/anthropic"
)

func TestGenerateCmd_RequiresKey(t *testing.T) {
	testConfig(t, "survey")
	generateCmd.SetContext(context.Background())

	err := generateCmd.RunE(generateCmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "QADATA_ANTHROPIC_KEY")
}

func TestNewGenerator_UsesSharedSessions(t *testing.T) {
	c := testConfig(t, "survey")
	c.Generate.Concurrency = 2

	mc := new(mockAnthropicClient)
	mc.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return req.Model == "claude-haiku-4-5-20251001"
	})).Return(&anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: "How do you get to work?"}},
	}, nil)

	gen, tracker, err := newGenerator(mc)
	require.NoError(t, err)
	require.NotNil(t, tracker)

	q, err := gen.Question(context.Background(), "Commute")
	require.NoError(t, err)
	assert.Equal(t, "How do you get to work?", strings.TrimSpace(q))
	assert.Equal(t, 1, tracker.Calls())
}

func TestNewGenerator_UnknownTier(t *testing.T) {
	c := testConfig(t, "survey")
	c.Generate.Tier = "enterprise"

	_, _, err := newGenerator(new(mockAnthropicClient))
	assert.Error(t, err)
}
