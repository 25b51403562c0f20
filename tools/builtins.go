package tools

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lexcodex/orchestrate/framework"
)

// Options configures the built-in tool set.
type Options struct {
	SearchEndpoint string
	SearchClient   *http.Client
	Cache          Cache
	CacheTTL       time.Duration
	CodeTimeout    time.Duration
	Runner         framework.CommandRunner
	Now            func() time.Time
	Logger         *slog.Logger
}

// Builtin constructs a named built-in tool.
func Builtin(name string, opts Options) (framework.Tool, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "calculator":
		return &CalculatorTool{}, nil
	case "current_time":
		return &CurrentTimeTool{Now: opts.Now}, nil
	case "web_search":
		return &WebSearchTool{
			Endpoint:   opts.SearchEndpoint,
			HTTPClient: opts.SearchClient,
			Cache:      opts.Cache,
			TTL:        opts.CacheTTL,
			Logger:     opts.Logger,
		}, nil
	case "code_interpreter":
		return &CodeInterpreterTool{Runner: opts.Runner, Timeout: opts.CodeTimeout}, nil
	default:
		return nil, fmt.Errorf("unknown built-in tool %q (available: %s)", name, strings.Join(BuiltinNames(), ", "))
	}
}

// BuiltinNames lists the built-in tools in registration order.
func BuiltinNames() []string {
	return []string{"calculator", "current_time", "web_search", "code_interpreter"}
}

// RegisterBuiltins registers the named tools, or every built-in when names
// is empty.
func RegisterBuiltins(manager *framework.ToolManager, names []string, opts Options) error {
	if manager == nil {
		return fmt.Errorf("tool manager required")
	}
	if len(names) == 0 {
		names = BuiltinNames()
	}
	for _, name := range names {
		tool, err := Builtin(name, opts)
		if err != nil {
			return err
		}
		if err := manager.Register(tool); err != nil {
			return err
		}
	}
	return nil
}
