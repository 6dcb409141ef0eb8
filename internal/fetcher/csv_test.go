package fetcher

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamCSV_Basic(t *testing.T) {
	input := "question,type,option\nFavourite colour?,single_choice,Blue\nFavourite colour?,single_choice,Red\n"
	rows, err := Collect(StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{}))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"question", "type", "option"}, rows[0])
	assert.Equal(t, []string{"Favourite colour?", "single_choice", "Red"}, rows[2])
}

func TestStreamCSV_Header(t *testing.T) {
	input := "question,type,option\nAge?,scale,18-25\n"
	headerCh := make(chan []string, 1)
	rows, err := Collect(StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{
		HasHeader: true,
		HeaderCh:  headerCh,
	}))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"question", "type", "option"}, <-headerCh)
	assert.Equal(t, []string{"Age?", "scale", "18-25"}, rows[0])
}

func TestStreamCSV_HeaderWithoutChannel(t *testing.T) {
	input := "question,type,option\nAge?,scale,18-25\n"
	rows, err := Collect(StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{HasHeader: true}))
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

func TestStreamCSV_Delimiter(t *testing.T) {
	input := "a;b\n1;2\n"
	rows, err := Collect(StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{Delimiter: ';'}))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}, {"1", "2"}}, rows)
}

func TestStreamCSV_TrimSpace(t *testing.T) {
	input := " a , b \n"
	rows, err := Collect(StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{TrimSpace: true}))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}}, rows)
}

func TestStreamCSV_VariableFields(t *testing.T) {
	input := "question,type,option,special_handling\nQ,yes_no,Yes\nQ,yes_no,No,1\n"
	rows, err := Collect(StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{HasHeader: true}))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Len(t, rows[0], 3)
	assert.Len(t, rows[1], 4)
}

func TestStreamCSV_Comment(t *testing.T) {
	input := "# exported questionnaire\na,b\n"
	rows, err := Collect(StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{Comment: '#'}))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"a", "b"}}, rows)
}

func TestStreamCSV_MalformedQuote(t *testing.T) {
	input := "a,\"b\n"
	_, err := Collect(StreamCSV(context.Background(), strings.NewReader(input), CSVOptions{}))
	assert.Error(t, err)
}

func TestStreamCSV_Empty(t *testing.T) {
	rows, err := Collect(StreamCSV(context.Background(), strings.NewReader(""), CSVOptions{HasHeader: true}))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestStreamCSV_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var b strings.Builder
	for range 500 {
		b.WriteString("x,y\n")
	}
	rowCh, errCh := StreamCSV(ctx, strings.NewReader(b.String()), CSVOptions{})

	// Do not drain: the producer must give up once the buffer is full.
	var err error
	for e := range errCh {
		err = e
	}
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context cancelled")
	for range rowCh {
	}
}
