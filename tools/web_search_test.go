package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const instantAnswerBody = `{
	"Heading": "Go (programming language)",
	"AbstractText": "Go is a statically typed, compiled language designed at Google.",
	"AbstractURL": "https://en.wikipedia.org/wiki/Go_(programming_language)",
	"RelatedTopics": [
		{"Text": "Gopher - The Go mascot.", "FirstURL": "https://duckduckgo.com/Gopher"},
		{"Name": "See also", "Topics": [
			{"Text": "Goroutine - A lightweight thread.", "FirstURL": "https://duckduckgo.com/Goroutine"}
		]}
	]
}`

func newSearchServer(t *testing.T, body string, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		assert.Equal(t, "golang", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestWebSearchCollectsResults(t *testing.T) {
	var hits int32
	srv := newSearchServer(t, instantAnswerBody, &hits)
	tool := &WebSearchTool{Endpoint: srv.URL, HTTPClient: srv.Client()}

	res, err := tool.Call(context.Background(), "golang", nil)
	require.NoError(t, err)
	resp := res.(SearchResponse)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, "Go (programming language)", resp.Results[0].Title)
	assert.Equal(t, "Gopher", resp.Results[1].Title)
	assert.Equal(t, "https://duckduckgo.com/Goroutine", resp.Results[2].URL)
	assert.Contains(t, tool.FormatResult(res), `"snippet":"Go is a statically typed`)
}

func TestWebSearchUsesCache(t *testing.T) {
	var hits int32
	srv := newSearchServer(t, instantAnswerBody, &hits)
	tool := &WebSearchTool{Endpoint: srv.URL, HTTPClient: srv.Client(), Cache: NewMemoryCache()}

	first, err := tool.Call(context.Background(), "golang", nil)
	require.NoError(t, err)
	second, err := tool.Call(context.Background(), "  golang ", nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestWebSearchEmptyAndFailures(t *testing.T) {
	var hits int32
	srv := newSearchServer(t, `{"Heading": "", "RelatedTopics": []}`, &hits)
	tool := &WebSearchTool{Endpoint: srv.URL, HTTPClient: srv.Client()}

	res, err := tool.Call(context.Background(), "golang", nil)
	require.NoError(t, err)
	assert.Equal(t, `No results found for "golang".`, tool.FormatResult(res))

	_, err = tool.Call(context.Background(), "   ", nil)
	assert.ErrorIs(t, err, ErrEmptyQuery)

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer broken.Close()
	tool = &WebSearchTool{Endpoint: broken.URL, HTTPClient: broken.Client()}
	_, err = tool.Call(context.Background(), "golang", nil)
	assert.Error(t, err)
}

func TestWebSearchPriority(t *testing.T) {
	tool := &WebSearchTool{}
	assert.Equal(t, tool.Priority("Who wrote Dune?"), tool.Priority("search for Dune"))
	assert.Less(t, tool.Priority("calculate 2+2"), tool.Priority("Who wrote Dune?"))
}
