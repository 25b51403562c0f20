package llm

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/lexcodex/orchestrate/framework"
)

// ErrUnknownProvider is returned by NewModel for unsupported backends.
var ErrUnknownProvider = errors.New("unknown model provider")

// ModelConfig selects and configures a backend.
type ModelConfig struct {
	Provider    string
	Name        string
	Endpoint    string
	APIKey      string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Debug       bool
}

// ProviderFunc builds a model for a provider name.
type ProviderFunc func(cfg ModelConfig) (framework.LanguageModel, error)

var providers = map[string]ProviderFunc{
	"ollama":    newOllamaModel,
	"anthropic": newAnthropicModel,
	"claude":    newAnthropicModel,
}

// Providers lists the supported provider names.
func Providers() []string {
	return []string{"anthropic", "ollama"}
}

// NewModel builds the language model named by cfg.Provider. Provider names
// are case-insensitive; an empty provider means ollama.
func NewModel(cfg ModelConfig) (framework.LanguageModel, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "" {
		name = "ollama"
	}
	build, ok := providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownProvider, cfg.Provider, strings.Join(Providers(), ", "))
	}
	return build(cfg)
}

func newOllamaModel(cfg ModelConfig) (framework.LanguageModel, error) {
	client := NewClient(cfg.Endpoint, cfg.Name)
	client.Temperature = cfg.Temperature
	client.MaxTokens = cfg.MaxTokens
	client.SetTimeout(cfg.Timeout)
	client.SetDebugLogging(cfg.Debug)
	return client, nil
}

func newAnthropicModel(cfg ModelConfig) (framework.LanguageModel, error) {
	var opts []option.RequestOption
	if cfg.Endpoint != "" && cfg.Endpoint != defaultOllamaEndpoint {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}
	model, err := NewAnthropicModel(AnthropicConfig{
		APIKey:      cfg.APIKey,
		Model:       cfg.Name,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Options:     opts,
	})
	if err != nil {
		return nil, err
	}
	return model, nil
}
