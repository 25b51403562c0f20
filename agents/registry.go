package agents

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/lexcodex/orchestrate/agents/pattern"
	"github.com/lexcodex/orchestrate/framework"
)

// Built-in agent type tags.
const (
	TypeReAct     = "react"
	TypePlanner   = "planner"
	TypeComposite = "composite"
)

var (
	// ErrUnknownAgentType is returned by Create for unregistered tags.
	ErrUnknownAgentType = errors.New("unknown agent type")
	// ErrInvalidAgent is returned by Register when the constructor does not
	// produce a usable agent.
	ErrInvalidAgent = errors.New("invalid agent")
)

// Options are handed to a Constructor. Zero-valued collaborators are filled
// from the registry defaults before the constructor runs.
type Options struct {
	Model         framework.LanguageModel
	Tools         *framework.ToolManager
	Memory        framework.MemoryStore
	MaxIterations int
	Extras        map[string]any
	Config        *framework.Config
}

// AgentConfig returns the runtime config for these options: a clone of
// Config (or the defaults) with MaxIterations and the "name" extra applied.
func (o Options) AgentConfig() *framework.Config {
	cfg := o.Config.Clone()
	if o.MaxIterations > 0 {
		cfg.MaxIterations = o.MaxIterations
	}
	if name, ok := o.Extras["name"].(string); ok && name != "" {
		cfg.Name = name
	}
	cfg.ApplyDefaults()
	return cfg
}

// Constructor builds an agent from options.
type Constructor func(opts Options) (framework.Agent, error)

// Defaults are the collaborators substituted when Create omits them.
type Defaults struct {
	Model  framework.LanguageModel
	Tools  *framework.ToolManager
	Memory framework.MemoryStore
	Config *framework.Config
}

// TypeInfo describes a registered agent type.
type TypeInfo struct {
	Tag         string `json:"type"`
	Description string `json:"description"`
}

type registration struct {
	info        TypeInfo
	constructor Constructor
}

// Registry maps agent type tags to constructors. It is owned by the
// application's composition root; nothing in this package keeps a global one.
type Registry struct {
	mu       sync.RWMutex
	defaults Defaults
	entries  map[string]registration
}

// NewRegistry builds an empty registry.
func NewRegistry(defaults Defaults) *Registry {
	return &Registry{
		defaults: defaults,
		entries:  make(map[string]registration),
	}
}

// NewDefaultRegistry builds a registry with the react, planner and composite
// agents registered.
func NewDefaultRegistry(defaults Defaults) *Registry {
	r := NewRegistry(defaults)
	for _, builtin := range builtinTypes() {
		if err := r.Register(builtin.info.Tag, builtin.constructor, builtin.info.Description); err != nil {
			panic(fmt.Sprintf("register %s: %v", builtin.info.Tag, err))
		}
	}
	return r
}

// SetDefaults replaces the substituted collaborators.
func (r *Registry) SetDefaults(defaults Defaults) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaults = defaults
}

// Register adds or replaces a type. The constructor is test-built once with
// stand-in collaborators and must yield an agent with a description.
func (r *Registry) Register(tag string, constructor Constructor, description string) error {
	tag = normalizeTag(tag)
	if tag == "" {
		return fmt.Errorf("%w: type tag required", ErrInvalidAgent)
	}
	if constructor == nil {
		return fmt.Errorf("%w: %s: constructor required", ErrInvalidAgent, tag)
	}
	if err := trialBuild(constructor); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidAgent, tag, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[tag] = registration{
		info:        TypeInfo{Tag: tag, Description: description},
		constructor: constructor,
	}
	return nil
}

// Unregister removes a type, reporting whether it existed.
func (r *Registry) Unregister(tag string) bool {
	tag = normalizeTag(tag)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[tag]; !ok {
		return false
	}
	delete(r.entries, tag)
	return true
}

// Create instantiates the agent registered under tag.
func (r *Registry) Create(tag string, opts Options) (framework.Agent, error) {
	tag = normalizeTag(tag)
	r.mu.RLock()
	entry, ok := r.entries[tag]
	defaults := r.defaults
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrUnknownAgentType, tag, strings.Join(r.tags(), ", "))
	}
	if opts.Model == nil {
		opts.Model = defaults.Model
	}
	if opts.Tools == nil {
		opts.Tools = defaults.Tools
	}
	if opts.Tools == nil {
		opts.Tools = framework.NewToolManager()
	}
	if opts.Memory == nil {
		opts.Memory = defaults.Memory
	}
	if opts.Config == nil {
		opts.Config = defaults.Config
	}
	if opts.Model == nil {
		return nil, fmt.Errorf("create %s: no language model configured", tag)
	}
	agent, err := entry.constructor(opts)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", tag, err)
	}
	return agent, nil
}

// ListTypes returns registered types sorted by tag.
func (r *Registry) ListTypes() []TypeInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]TypeInfo, 0, len(r.entries))
	for _, entry := range r.entries {
		out = append(out, entry.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}

// Lookup reports the registration for tag.
func (r *Registry) Lookup(tag string) (TypeInfo, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.entries[normalizeTag(tag)]
	return entry.info, ok
}

func (r *Registry) tags() []string {
	types := r.ListTypes()
	tags := make([]string, len(types))
	for i, t := range types {
		tags[i] = t.Tag
	}
	return tags
}

func normalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}

var errTrialModel = errors.New("trial model cannot answer")

func trialBuild(constructor Constructor) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("constructor panicked: %v", r)
		}
	}()
	agent, err := constructor(Options{
		Model: framework.LanguageModelFunc(func(context.Context, string) (string, error) {
			return "", errTrialModel
		}),
		Tools: framework.NewToolManager(),
	})
	if err != nil {
		return err
	}
	if agent == nil {
		return errors.New("constructor returned nil agent")
	}
	if strings.TrimSpace(agent.Description()) == "" {
		return errors.New("agent has no description")
	}
	return nil
}

func builtinTypes() []registration {
	return []registration{
		{
			info: TypeInfo{Tag: TypeReAct, Description: "Iterative reason/act loop that calls tools until it reaches an answer"},
			constructor: func(opts Options) (framework.Agent, error) {
				return pattern.NewReActAgent(opts.Model, opts.Tools, opts.Memory, opts.AgentConfig()), nil
			},
		},
		{
			info: TypeInfo{Tag: TypePlanner, Description: "Decomposes a task into ordered subtasks without executing them"},
			constructor: func(opts Options) (framework.Agent, error) {
				return pattern.NewPlannerAgent(opts.Model, opts.Memory, opts.AgentConfig()), nil
			},
		},
		{
			info: TypeInfo{Tag: TypeComposite, Description: "Runs simple tasks directly and plans complex ones into validated steps"},
			constructor: func(opts Options) (framework.Agent, error) {
				return pattern.NewCompositeAgent(opts.Model, opts.Tools, opts.Memory, opts.AgentConfig()), nil
			},
		},
	}
}
