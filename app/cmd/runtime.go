package cmd

import (
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"go.opentelemetry.io/otel"

	"github.com/lexcodex/orchestrate/agents"
	"github.com/lexcodex/orchestrate/framework"
	"github.com/lexcodex/orchestrate/llm"
	"github.com/lexcodex/orchestrate/persistence"
	"github.com/lexcodex/orchestrate/tools"
)

// newModel builds the configured backend. Tests swap it for a stub.
var newModel = llm.NewModel

// logOutput receives CLI logs.
var logOutput io.Writer = os.Stderr

// appRuntime bundles the collaborators every command shares.
type appRuntime struct {
	cfg      *agents.GlobalConfig
	logger   *slog.Logger
	tools    *framework.ToolManager
	registry *agents.Registry
	runs     persistence.RunStore
	closers  []io.Closer
}

// buildRuntime wires model, tools, memory, history and the agent registry
// from the loaded config.
func buildRuntime(ws string) (*appRuntime, error) {
	cfg := globalCfg
	if cfg == nil {
		loaded, err := agents.LoadGlobalConfig(cfgFile, ws)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	rt := &appRuntime{
		cfg:    cfg,
		logger: framework.NewLogger(logOutput, cfg.Logging.Level, cfg.Logging.Format),
	}
	ok := false
	defer func() {
		if !ok {
			rt.Close()
		}
	}()

	telemetry := framework.MultiplexTelemetry{Sinks: []framework.Telemetry{framework.LoggerTelemetry{Logger: rt.logger}}}
	if path := cfg.TelemetryPath(ws); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
		sink, err := framework.NewJSONFileTelemetry(path)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, sink)
		telemetry.Sinks = append(telemetry.Sinks, sink)
	}
	tracer := otel.Tracer(framework.TracerName)

	base, err := newModel(llm.ModelConfig{
		Provider:    cfg.Model.Provider,
		Name:        cfg.Model.Name,
		Endpoint:    cfg.Model.Endpoint,
		APIKey:      cfg.Model.APIKey,
		Temperature: cfg.Model.Temperature,
		MaxTokens:   cfg.Model.MaxTokens,
		Timeout:     cfg.ModelTimeout(),
		Debug:       cfg.Agent.Debug,
	})
	if err != nil {
		return nil, err
	}
	model := llm.NewInstrumentedModel(base, telemetry, tracer, cfg.Agent.Debug)
	model.Name = cfg.Model.Name

	var cache tools.Cache = tools.NewMemoryCache()
	if addr := cfg.Tools.Cache.RedisAddr; addr != "" {
		redisCache, err := tools.NewRedisCache(addr)
		if err != nil {
			return nil, err
		}
		rt.closers = append(rt.closers, redisCache)
		cache = redisCache
	}
	rt.tools = framework.NewToolManager()
	if err := tools.RegisterBuiltins(rt.tools, cfg.Tools.Enabled, tools.Options{
		SearchEndpoint: cfg.Tools.SearchEndpoint,
		Cache:          cache,
		CacheTTL:       cfg.CacheTTL(),
		CodeTimeout:    cfg.CodeTimeout(),
		Runner:         &framework.LocalCommandRunner{Workspace: ws},
		Logger:         rt.logger,
	}); err != nil {
		return nil, err
	}

	memory, err := framework.NewHybridMemory(filepath.Join(agents.ConfigDir(ws), "memory"))
	if err != nil {
		return nil, err
	}
	if err := memory.SetLimit(framework.MemoryScopeSession, cfg.Storage.MemorySessionLimit); err != nil {
		return nil, err
	}
	if err := memory.SetLimit(framework.MemoryScopeProject, cfg.Storage.MemoryProjectLimit); err != nil {
		return nil, err
	}

	store, err := persistence.NewSQLiteRunStore(cfg.HistoryPath(ws))
	if err != nil {
		return nil, err
	}
	rt.runs = store
	rt.closers = append(rt.closers, store)

	agentCfg := cfg.AgentConfig()
	agentCfg.Logger = rt.logger
	agentCfg.Telemetry = telemetry
	agentCfg.Tracer = tracer
	rt.registry = agents.NewDefaultRegistry(agents.Defaults{
		Model:  model,
		Tools:  rt.tools,
		Memory: memory,
		Config: agentCfg,
	})
	ok = true
	return rt, nil
}

// Close releases files and connections in reverse order.
func (rt *appRuntime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

func (rt *appRuntime) defaultAgent() string {
	if rt.cfg.Agent.DefaultType != "" {
		return rt.cfg.Agent.DefaultType
	}
	return agents.TypeComposite
}
