package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const defaultOllamaEndpoint = "http://localhost:11434"

// ErrEmptyResponse is returned when the backend answered without any text.
var ErrEmptyResponse = errors.New("model returned an empty response")

// Client implements framework.LanguageModel for Ollama.
type Client struct {
	Endpoint    string
	Model       string
	Temperature float64
	MaxTokens   int
	Logger      *slog.Logger
	Debug       bool
	client      *http.Client
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaResponse struct {
	Text            string         `json:"text"`
	Response        string         `json:"response"`
	Message         *ollamaMessage `json:"message"`
	DoneReason      string         `json:"done_reason"`
	EvalCount       int            `json:"eval_count"`
	PromptEvalCount int            `json:"prompt_eval_count"`
	Error           string         `json:"error"`
}

// NewClient builds a new Ollama client.
func NewClient(endpoint, model string) *Client {
	if endpoint == "" {
		endpoint = defaultOllamaEndpoint
	}
	return &Client{
		Endpoint: strings.TrimRight(endpoint, "/"),
		Model:    model,
		client: &http.Client{
			Timeout: 3 * time.Minute,
		},
	}
}

// SetTimeout replaces the HTTP timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	if timeout > 0 {
		c.getHTTPClient().Timeout = timeout
	}
}

// SetDebugLogging enables or disables verbose logging for requests/responses.
func (c *Client) SetDebugLogging(enabled bool) {
	c.Debug = enabled
}

// Chat sends a single prompt to /api/generate and returns the completion.
func (c *Client) Chat(ctx context.Context, prompt string) (string, error) {
	payload := map[string]interface{}{
		"model":  c.model(),
		"prompt": prompt,
		"stream": false,
	}
	if options := c.options(); len(options) > 0 {
		payload["options"] = options
	}
	resp, err := c.doRequest(ctx, "/api/generate", payload)
	if err != nil {
		return "", err
	}
	text := firstNonEmpty(resp.Response, resp.Text)
	if text == "" && resp.Message != nil {
		text = resp.Message.Content
	}
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (c *Client) getHTTPClient() *http.Client {
	if c.client != nil {
		return c.client
	}
	c.client = &http.Client{Timeout: 60 * time.Second}
	return c.client
}

func (c *Client) model() string {
	if c.Model != "" {
		return c.Model
	}
	return "llama3"
}

func (c *Client) options() map[string]interface{} {
	options := map[string]interface{}{}
	if c.Temperature != 0 {
		options["temperature"] = c.Temperature
	}
	if c.MaxTokens != 0 {
		options["num_predict"] = c.MaxTokens
	}
	return options
}

func (c *Client) doRequest(ctx context.Context, path string, payload interface{}) (*ollamaResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	c.logf("request %s payload: %s", path, truncate(string(body), 2048))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		detail := strings.TrimSpace(string(msg))
		if detail != "" {
			return nil, fmt.Errorf("ollama error: %s: %s", resp.Status, detail)
		}
		return nil, fmt.Errorf("ollama error: %s", resp.Status)
	}
	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	c.logf("response %s payload: %s", path, truncate(string(responseBody), 2048))
	var decoded ollamaResponse
	if err := json.Unmarshal(responseBody, &decoded); err != nil {
		return nil, fmt.Errorf("decode ollama response: %w", err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("ollama error: %s", decoded.Error)
	}
	return &decoded, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (c *Client) logf(format string, args ...interface{}) {
	if !c.Debug {
		return
	}
	logger := c.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug(fmt.Sprintf("[ollama] "+format, args...))
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
