package agents

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/lexcodex/orchestrate/framework"
)

const configDirName = ".orchestrate"

// EnvPrefix prefixes environment overrides, e.g. ORCHESTRATE_MODEL_NAME.
const EnvPrefix = "ORCHESTRATE"

// UserConfigPath locates the per-user config layer. Tests point it elsewhere.
var UserConfigPath = func() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "orchestrate", "config.yaml")
}

// ConfigDir returns the workspace-local configuration directory.
func ConfigDir(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, configDirName)
}

// DefaultConfigPath returns .orchestrate/config.yaml within the workspace.
func DefaultConfigPath(workspace string) string {
	return filepath.Join(ConfigDir(workspace), "config.yaml")
}

// GlobalConfig matches .orchestrate/config.yaml inside the workspace.
type GlobalConfig struct {
	Model   ModelConfig   `yaml:"model" mapstructure:"model"`
	Agent   AgentSettings `yaml:"agent" mapstructure:"agent"`
	Tools   ToolsConfig   `yaml:"tools" mapstructure:"tools"`
	Storage StorageConfig `yaml:"storage" mapstructure:"storage"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
}

// ModelConfig selects the language model backend.
type ModelConfig struct {
	Provider    string  `yaml:"provider" mapstructure:"provider"`
	Name        string  `yaml:"name" mapstructure:"name"`
	Endpoint    string  `yaml:"endpoint" mapstructure:"endpoint"`
	APIKey      string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	Temperature float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	Timeout     string  `yaml:"timeout" mapstructure:"timeout"`
}

// AgentSettings tunes the agent loop.
type AgentSettings struct {
	DefaultType             string   `yaml:"default_type" mapstructure:"default_type"`
	MaxIterations           int      `yaml:"max_iterations" mapstructure:"max_iterations"`
	FailureRepeatLimit      int      `yaml:"failure_repeat_limit" mapstructure:"failure_repeat_limit"`
	CompleteResultMinLength int      `yaml:"complete_result_min_length" mapstructure:"complete_result_min_length"`
	AmbiguousResultMarkers  []string `yaml:"ambiguous_result_markers" mapstructure:"ambiguous_result_markers"`
	DirectLengthThreshold   int      `yaml:"direct_length_threshold" mapstructure:"direct_length_threshold"`
	ToolSelectLimit         int      `yaml:"tool_select_limit" mapstructure:"tool_select_limit"`
	Debug                   bool     `yaml:"debug" mapstructure:"debug"`
}

// ToolsConfig controls the built-in tools.
type ToolsConfig struct {
	Enabled        []string    `yaml:"enabled" mapstructure:"enabled"`
	SearchEndpoint string      `yaml:"search_endpoint" mapstructure:"search_endpoint"`
	CodeTimeout    string      `yaml:"code_timeout" mapstructure:"code_timeout"`
	Cache          CacheConfig `yaml:"cache" mapstructure:"cache"`
}

// CacheConfig configures the search result cache. An empty RedisAddr keeps
// the cache in process.
type CacheConfig struct {
	RedisAddr string `yaml:"redis_addr" mapstructure:"redis_addr"`
	TTL       string `yaml:"ttl" mapstructure:"ttl"`
}

// StorageConfig locates the run history database.
type StorageConfig struct {
	HistoryPath string `yaml:"history_path" mapstructure:"history_path"`

	// Record caps for agent memory; the oldest records are evicted first.
	MemorySessionLimit int `yaml:"memory_session_limit" mapstructure:"memory_session_limit"`
	MemoryProjectLimit int `yaml:"memory_project_limit" mapstructure:"memory_project_limit"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`

	// CORSOrigins enables cross-origin requests from the listed origins.
	CORSOrigins []string `yaml:"cors_origins,omitempty" mapstructure:"cors_origins"`
}

// LoggingConfig describes log output.
type LoggingConfig struct {
	Level         string `yaml:"level" mapstructure:"level"`
	Format        string `yaml:"format" mapstructure:"format"`
	TelemetryFile string `yaml:"telemetry_file" mapstructure:"telemetry_file"`
}

// DefaultToolNames lists the built-in tools enabled out of the box.
var DefaultToolNames = []string{"calculator", "current_time", "web_search", "code_interpreter"}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model.provider", "ollama")
	v.SetDefault("model.name", "llama3")
	v.SetDefault("model.endpoint", "http://localhost:11434")
	v.SetDefault("model.api_key", "")
	v.SetDefault("model.temperature", 0.1)
	v.SetDefault("model.max_tokens", 1024)
	v.SetDefault("model.timeout", "3m")

	v.SetDefault("agent.default_type", TypeComposite)
	v.SetDefault("agent.max_iterations", framework.DefaultMaxIterations)
	v.SetDefault("agent.failure_repeat_limit", framework.DefaultFailureRepeatLimit)
	v.SetDefault("agent.complete_result_min_length", framework.DefaultCompleteResultMinLength)
	v.SetDefault("agent.ambiguous_result_markers", []string{"timezone"})
	v.SetDefault("agent.direct_length_threshold", framework.DefaultDirectLengthThreshold)
	v.SetDefault("agent.tool_select_limit", framework.DefaultToolSelectLimit)
	v.SetDefault("agent.debug", false)

	v.SetDefault("tools.enabled", DefaultToolNames)
	v.SetDefault("tools.search_endpoint", "https://api.duckduckgo.com/")
	v.SetDefault("tools.code_timeout", "10s")
	v.SetDefault("tools.cache.redis_addr", "")
	v.SetDefault("tools.cache.ttl", "10m")

	v.SetDefault("storage.history_path", filepath.Join(configDirName, "history.db"))
	v.SetDefault("storage.memory_session_limit", framework.DefaultSessionMemoryLimit)
	v.SetDefault("storage.memory_project_limit", framework.DefaultProjectMemoryLimit)
	v.SetDefault("server.addr", "127.0.0.1:8088")
	v.SetDefault("server.cors_origins", []string{})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.telemetry_file", "")
}

// LoadGlobalConfig layers defaults, the user config, the workspace config at
// path and ORCHESTRATE_* environment variables. Missing files are skipped.
func LoadGlobalConfig(path, workspace string) (*GlobalConfig, error) {
	if path == "" {
		path = DefaultConfigPath(workspace)
	}
	v := viper.New()
	setDefaults(v)
	v.SetConfigType("yaml")

	for _, layer := range []string{UserConfigPath(), path} {
		if layer == "" {
			continue
		}
		if err := mergeLayer(v, layer); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("model.api_key", EnvPrefix+"_MODEL_API_KEY", "ANTHROPIC_API_KEY")

	cfg := &GlobalConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	cfg.Model.APIKey = os.ExpandEnv(cfg.Model.APIKey)
	return cfg, nil
}

func mergeLayer(v *viper.Viper, path string) error {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	layer := viper.New()
	layer.SetConfigFile(path)
	layer.SetConfigType("yaml")
	if err := layer.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := v.MergeConfigMap(layer.AllSettings()); err != nil {
		return fmt.Errorf("merging config %s: %w", path, err)
	}
	return nil
}

// SaveGlobalConfig writes the config to disk.
func SaveGlobalConfig(path string, cfg *GlobalConfig) error {
	if cfg == nil {
		return errors.New("config missing")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// AgentConfig converts the agent section into runtime knobs. Logger,
// telemetry and tracer are left for the caller to attach.
func (c *GlobalConfig) AgentConfig() *framework.Config {
	cfg := &framework.Config{
		Name:                    c.Agent.DefaultType,
		Model:                   c.Model.Name,
		MaxIterations:           c.Agent.MaxIterations,
		FailureRepeatLimit:      c.Agent.FailureRepeatLimit,
		CompleteResultMinLength: c.Agent.CompleteResultMinLength,
		AmbiguousResultMarkers:  append([]string(nil), c.Agent.AmbiguousResultMarkers...),
		DirectLengthThreshold:   c.Agent.DirectLengthThreshold,
		ToolSelectLimit:         c.Agent.ToolSelectLimit,
		DebugAgent:              c.Agent.Debug,
	}
	cfg.ApplyDefaults()
	return cfg
}

// ModelTimeout parses model.timeout, defaulting to three minutes.
func (c *GlobalConfig) ModelTimeout() time.Duration {
	return parseDuration(c.Model.Timeout, 3*time.Minute)
}

// CodeTimeout parses tools.code_timeout.
func (c *GlobalConfig) CodeTimeout() time.Duration {
	return parseDuration(c.Tools.CodeTimeout, 10*time.Second)
}

// CacheTTL parses tools.cache.ttl.
func (c *GlobalConfig) CacheTTL() time.Duration {
	return parseDuration(c.Tools.Cache.TTL, 10*time.Minute)
}

// HistoryPath resolves the history database path against workspace.
func (c *GlobalConfig) HistoryPath(workspace string) string {
	return expandPath(c.Storage.HistoryPath, workspace)
}

// TelemetryPath resolves the telemetry file, or "" when disabled.
func (c *GlobalConfig) TelemetryPath(workspace string) string {
	return expandPath(c.Logging.TelemetryFile, workspace)
}

func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// expandPath resolves ~ and workspace-relative paths into absolute paths while
// leaving already absolute entries untouched.
func expandPath(path, workspace string) string {
	if path == "" {
		return path
	}
	if strings.HasPrefix(path, "~") {
		home, _ := os.UserHomeDir()
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	if filepath.IsAbs(path) {
		return path
	}
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, path)
}
