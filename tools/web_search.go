package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lexcodex/orchestrate/framework"
)

// DefaultSearchEndpoint is the DuckDuckGo instant answer API.
const DefaultSearchEndpoint = "https://api.duckduckgo.com/"

// ErrEmptyQuery is returned when the search input is blank.
var ErrEmptyQuery = errors.New("search query required")

// SearchResult is one hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// SearchResponse is the structured value returned by WebSearchTool.
type SearchResponse struct {
	Query   string         `json:"query"`
	Results []SearchResult `json:"results"`
}

// WebSearchTool queries an instant-answer style endpoint. Responses are
// cached when Cache is set.
type WebSearchTool struct {
	Endpoint   string
	HTTPClient *http.Client
	Cache      Cache
	TTL        time.Duration
	MaxResults int
	Logger     *slog.Logger
}

type instantAnswer struct {
	Heading       string         `json:"Heading"`
	AbstractText  string         `json:"AbstractText"`
	AbstractURL   string         `json:"AbstractURL"`
	Answer        string         `json:"Answer"`
	Definition    string         `json:"Definition"`
	DefinitionURL string         `json:"DefinitionURL"`
	RelatedTopics []relatedTopic `json:"RelatedTopics"`
}

type relatedTopic struct {
	Text     string         `json:"Text"`
	FirstURL string         `json:"FirstURL"`
	Name     string         `json:"Name"`
	Topics   []relatedTopic `json:"Topics"`
}

func (t *WebSearchTool) Name() string        { return "web_search" }
func (t *WebSearchTool) Description() string { return "Searches the web and returns titles, links and snippets." }
func (t *WebSearchTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{"type": "string", "description": "search terms"},
		},
	}
}

func (t *WebSearchTool) Match(prompt string) bool { return framework.LooksLikeQuestion(prompt) }

func (t *WebSearchTool) Priority(prompt string) framework.Priority {
	if framework.LooksArithmetic(prompt) && !strings.Contains(strings.ToLower(prompt), "search") {
		return framework.PriorityLow
	}
	if framework.LooksLikeQuestion(prompt) {
		return framework.PriorityHigh
	}
	return framework.PriorityNeutral
}

func (t *WebSearchTool) Call(ctx context.Context, input string, tc framework.ToolContext) (any, error) {
	query := strings.TrimSpace(input)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	cacheKey := "search:" + strings.ToLower(query)
	if t.Cache != nil {
		if cached, ok, err := t.Cache.Get(ctx, cacheKey); err == nil && ok {
			var resp SearchResponse
			if json.Unmarshal([]byte(cached), &resp) == nil {
				return resp, nil
			}
		} else if err != nil {
			t.logger().Warn("search cache read failed", "error", err)
		}
	}
	resp, err := t.fetch(ctx, query)
	if err != nil {
		return nil, err
	}
	if t.Cache != nil && len(resp.Results) > 0 {
		if data, err := json.Marshal(resp); err == nil {
			if err := t.Cache.Set(ctx, cacheKey, string(data), t.ttl()); err != nil {
				t.logger().Warn("search cache write failed", "error", err)
			}
		}
	}
	return resp, nil
}

func (t *WebSearchTool) FormatResult(result any) string {
	resp, ok := result.(SearchResponse)
	if !ok {
		return fmt.Sprint(result)
	}
	if len(resp.Results) == 0 {
		return fmt.Sprintf("No results found for %q.", resp.Query)
	}
	data, err := json.Marshal(resp)
	if err != nil {
		return fmt.Sprint(result)
	}
	return string(data)
}

func (t *WebSearchTool) fetch(ctx context.Context, query string) (SearchResponse, error) {
	endpoint := t.Endpoint
	if endpoint == "" {
		endpoint = DefaultSearchEndpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("search endpoint: %w", err)
	}
	params := u.Query()
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("skip_disambig", "1")
	u.RawQuery = params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return SearchResponse{}, err
	}
	req.Header.Set("Accept", "application/json")
	httpResp, err := t.client().Do(req)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("search request: %w", err)
	}
	defer httpResp.Body.Close()
	if httpResp.StatusCode >= 300 {
		return SearchResponse{}, fmt.Errorf("search error: %s", httpResp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 1<<20))
	if err != nil {
		return SearchResponse{}, err
	}
	var answer instantAnswer
	if err := json.Unmarshal(body, &answer); err != nil {
		return SearchResponse{}, fmt.Errorf("decode search response: %w", err)
	}
	return SearchResponse{Query: query, Results: t.collect(answer)}, nil
}

func (t *WebSearchTool) collect(answer instantAnswer) []SearchResult {
	limit := t.MaxResults
	if limit <= 0 {
		limit = 5
	}
	var results []SearchResult
	add := func(title, link, snippet string) {
		snippet = strings.TrimSpace(snippet)
		if snippet == "" || len(results) >= limit {
			return
		}
		results = append(results, SearchResult{Title: title, URL: link, Snippet: snippet})
	}
	add(answer.Heading, answer.AbstractURL, answer.Answer)
	add(answer.Heading, answer.AbstractURL, answer.AbstractText)
	add(answer.Heading, answer.DefinitionURL, answer.Definition)
	var walk func(topics []relatedTopic)
	walk = func(topics []relatedTopic) {
		for _, topic := range topics {
			if len(topic.Topics) > 0 {
				walk(topic.Topics)
				continue
			}
			title := topic.Text
			if i := strings.Index(title, " - "); i > 0 {
				title = title[:i]
			}
			add(title, topic.FirstURL, topic.Text)
		}
	}
	walk(answer.RelatedTopics)
	return results
}

func (t *WebSearchTool) client() *http.Client {
	if t.HTTPClient != nil {
		return t.HTTPClient
	}
	return &http.Client{Timeout: 15 * time.Second}
}

func (t *WebSearchTool) ttl() time.Duration {
	if t.TTL > 0 {
		return t.TTL
	}
	return 10 * time.Minute
}

func (t *WebSearchTool) logger() *slog.Logger {
	if t.Logger != nil {
		return t.Logger
	}
	return slog.Default()
}
