package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicMaxTokens = 1024

// AnthropicModel implements framework.LanguageModel over the Messages API.
type AnthropicModel struct {
	client      anthropic.Client
	Model       anthropic.Model
	MaxTokens   int64
	Temperature float64
	System      string

	mu        sync.Mutex
	tokensIn  int64
	tokensOut int64
}

// AnthropicConfig configures NewAnthropicModel.
type AnthropicConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	System      string
	// Options are appended to the SDK client options (base URL, retries, ...).
	Options []option.RequestOption
}

// NewAnthropicModel builds a model client. The key falls back to
// ANTHROPIC_API_KEY.
func NewAnthropicModel(cfg AnthropicConfig) (*AnthropicModel, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: api key not configured (set model.api_key or ANTHROPIC_API_KEY)")
	}
	opts := append([]option.RequestOption{option.WithAPIKey(apiKey)}, cfg.Options...)
	model := anthropic.Model(cfg.Model)
	if model == "" {
		model = anthropic.ModelClaudeSonnet4_20250514
	}
	maxTokens := int64(cfg.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	return &AnthropicModel{
		client:      anthropic.NewClient(opts...),
		Model:       model,
		MaxTokens:   maxTokens,
		Temperature: cfg.Temperature,
		System:      cfg.System,
	}, nil
}

// Chat sends prompt as a single user message and joins the text blocks of
// the reply.
func (m *AnthropicModel) Chat(ctx context.Context, prompt string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:     m.Model,
		MaxTokens: m.MaxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}
	if m.System != "" {
		params.System = []anthropic.TextBlockParam{{Text: m.System}}
	}
	if m.Temperature > 0 {
		params.Temperature = anthropic.Float(m.Temperature)
	}
	resp, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}
	m.mu.Lock()
	m.tokensIn += resp.Usage.InputTokens
	m.tokensOut += resp.Usage.OutputTokens
	m.mu.Unlock()

	var parts []string
	for _, block := range resp.Content {
		if text, ok := block.AsAny().(anthropic.TextBlock); ok {
			parts = append(parts, text.Text)
		}
	}
	out := strings.Join(parts, "")
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyResponse
	}
	return out, nil
}

// Usage reports cumulative input and output tokens.
func (m *AnthropicModel) Usage() (in, out int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokensIn, m.tokensOut
}

// IsAPIError reports whether err came back from the Anthropic API with the
// given HTTP status.
func IsAPIError(err error, status int) bool {
	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == status
	}
	return false
}
