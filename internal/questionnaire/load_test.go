package questionnaire

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/qa-dataset/internal/fetcher"
	"github.com/sells-group/qa-dataset/internal/model"
)

const sampleJSON = `[
  {"question": "How often do you exercise?", "type": "scale",
   "options": ["Never", "Weekly", {"text": "Daily", "special_handling": [0], "code": "D"}]},
  {"question": "Do you smoke?", "type": "Yes/No", "options": ["Yes", "No"]}
]`

func TestDecodeJSON(t *testing.T) {
	q, err := DecodeJSON(context.Background(), strings.NewReader(sampleJSON))
	require.NoError(t, err)
	require.Len(t, q.Items, 2)

	assert.Equal(t, "How often do you exercise?", q.Items[0].Question)
	require.Len(t, q.Items[0].Options, 3)
	assert.Equal(t, "Daily", q.Items[0].Options[2].Text)
	assert.Equal(t, []int{0}, q.Items[0].Options[2].SpecialHandling)
	assert.Equal(t, "D", q.Items[0].Options[2].Extra["code"])
}

func TestDecodeCSV(t *testing.T) {
	input := "question,type,option,special_handling,code\n" +
		"Do you smoke?,yes_no,Yes,,Y\n" +
		"Do you smoke?,yes_no,No,1,N\n" +
		"Favourite fruit?,multiple_choice,Apple,,\n"

	q, err := DecodeCSV(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, q.Items, 2)

	smoke := q.Items[0]
	assert.Equal(t, "Do you smoke?", smoke.Question)
	assert.Equal(t, "yes_no", smoke.Type)
	require.Len(t, smoke.Options, 2)
	assert.Equal(t, []int{1}, smoke.Options[1].SpecialHandling)
	assert.Equal(t, "N", smoke.Options[1].Extra["code"])
	assert.Nil(t, smoke.Options[0].SpecialHandling)

	assert.Equal(t, "Apple", q.Items[1].Options[0].Text)
	assert.Nil(t, q.Items[1].Options[0].Extra)
}

func TestDecodeCSV_AnswersAndMultipleIndices(t *testing.T) {
	input := "question,option,answers,special_handling\n" +
		"Where do you live?,City,city;town,0;2\n"

	q, err := DecodeCSV(context.Background(), strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, q.Items, 1)
	opt := q.Items[0].Options[0]
	assert.Equal(t, []string{"city", "town"}, opt.Answers)
	assert.Equal(t, []int{0, 2}, opt.SpecialHandling)
	assert.Equal(t, "", q.Items[0].Type)
}

func TestDecodeCSV_BadSpecialHandling(t *testing.T) {
	input := "question,option,special_handling\nQ,A,first\n"
	_, err := DecodeCSV(context.Background(), strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "line 2")
}

func TestDecodeCSV_MissingColumns(t *testing.T) {
	_, err := DecodeCSV(context.Background(), strings.NewReader("type,option\nscale,5\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "needs question and option")
}

func TestDecodeCSV_Empty(t *testing.T) {
	q, err := DecodeCSV(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, q.Items)
}

func writeXLSX(t *testing.T, path string, rows [][]string) {
	t.Helper()
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Questions")
	require.NoError(t, err)
	for _, r := range rows {
		row := sheet.AddRow()
		for _, c := range r {
			row.AddCell().SetString(c)
		}
	}
	require.NoError(t, f.Save(path))
}

func TestDecodeXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "q.xlsx")
	writeXLSX(t, path, [][]string{
		{"question", "type", "option"},
		{"Do you smoke?", "yes_no", "Yes"},
		{"Do you smoke?", "yes_no", "No"},
	})

	q, err := DecodeXLSX(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, q.Items, 1)
	assert.Len(t, q.Items[0].Options, 2)
}

func TestLoader_LocalFiles(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "a.json")
	csvPath := filepath.Join(dir, "b.csv")
	require.NoError(t, os.WriteFile(jsonPath, []byte(sampleJSON), 0o644))
	require.NoError(t, os.WriteFile(csvPath, []byte("question,option\nAge?,18-25\n"), 0o644))

	l := &Loader{}
	qs, err := l.LoadAll(context.Background(), []string{jsonPath, csvPath})
	require.NoError(t, err)
	require.Len(t, qs, 2)
	assert.Equal(t, jsonPath, qs[0].Source)
	assert.Len(t, qs[0].Items, 2)
	assert.Equal(t, "Age?", qs[1].Items[0].Question)
}

func TestLoader_Remote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleJSON))
	}))
	defer srv.Close()

	l := &Loader{Fetcher: fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Timeout: 5 * time.Second, MaxRetries: 1})}
	q, err := l.Load(context.Background(), srv.URL+"/forms/health.json")
	require.NoError(t, err)
	assert.Len(t, q.Items, 2)
	assert.Equal(t, srv.URL+"/forms/health.json", q.Source)
}

func TestLoader_RemoteXLSX(t *testing.T) {
	src := filepath.Join(t.TempDir(), "src.xlsx")
	writeXLSX(t, src, [][]string{{"question", "option"}, {"Age?", "18-25"}})
	data, err := os.ReadFile(src)
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(data)
	}))
	defer srv.Close()

	l := &Loader{
		Fetcher: fetcher.NewHTTPFetcher(fetcher.HTTPOptions{Timeout: 5 * time.Second, MaxRetries: 1}),
		TempDir: t.TempDir(),
	}
	q, err := l.Load(context.Background(), srv.URL+"/q.xlsx")
	require.NoError(t, err)
	require.Len(t, q.Items, 1)
	assert.Equal(t, []model.Option{{Text: "18-25"}}, q.Items[0].Options)
}

func TestLoader_MissingFile(t *testing.T) {
	l := &Loader{}
	_, err := l.Load(context.Background(), filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
