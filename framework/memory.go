package framework

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// MemoryScope determines where a record is kept.
type MemoryScope string

const (
	// MemoryScopeSession records live only in process memory.
	MemoryScopeSession MemoryScope = "session"
	// MemoryScopeProject records are flushed to disk.
	MemoryScopeProject MemoryScope = "project"
)

// MemoryRecord is a stored memory item. Value is unstructured so agents can
// stash iterations and plans without a schema.
type MemoryRecord struct {
	Key       string                 `json:"key"`
	Value     map[string]interface{} `json:"value"`
	Scope     MemoryScope            `json:"scope"`
	Timestamp time.Time              `json:"timestamp"`
	Seq       uint64                 `json:"seq"`
}

// Default per-scope record limits for HybridMemory.
const (
	DefaultSessionMemoryLimit = 500
	DefaultProjectMemoryLimit = 200
)

// MemoryStore is the conversation-memory collaborator. Agents only write to
// it; reading belongs to higher-level components.
type MemoryStore interface {
	Remember(ctx context.Context, key string, value map[string]interface{}, scope MemoryScope) error
}

// HybridMemory keeps session records in RAM and persists project records as
// JSON under basePath. Each scope holds at most its limit; the oldest records
// are evicted first.
type HybridMemory struct {
	mu       sync.RWMutex
	cache    map[MemoryScope]map[string]MemoryRecord
	limits   map[MemoryScope]int
	seq      uint64
	basePath string
}

// NewHybridMemory creates a memory store rooted at basePath.
func NewHybridMemory(basePath string) (*HybridMemory, error) {
	if basePath == "" {
		basePath = ".memory"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, err
	}
	store := &HybridMemory{
		cache: map[MemoryScope]map[string]MemoryRecord{
			MemoryScopeSession: {},
			MemoryScopeProject: {},
		},
		limits: map[MemoryScope]int{
			MemoryScopeSession: DefaultSessionMemoryLimit,
			MemoryScopeProject: DefaultProjectMemoryLimit,
		},
		basePath: basePath,
	}
	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

func (m *HybridMemory) load() error {
	data, err := os.ReadFile(m.scopePath(MemoryScopeProject))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	var records []MemoryRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return err
	}
	for _, r := range records {
		// Files written before sequencing load in file order.
		if r.Seq == 0 {
			r.Seq = m.seq + 1
		}
		if r.Seq > m.seq {
			m.seq = r.Seq
		}
		m.cache[MemoryScopeProject][r.Key] = r
	}
	m.evict(MemoryScopeProject)
	return nil
}

// SetLimit caps the number of records kept in scope. Non-positive limits
// are ignored. Excess records are evicted immediately.
func (m *HybridMemory) SetLimit(scope MemoryScope, limit int) error {
	if limit <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cache[scope]; !ok {
		return errors.New("unknown memory scope " + string(scope))
	}
	m.limits[scope] = limit
	if m.evict(scope) && scope != MemoryScopeSession {
		return m.persist(scope)
	}
	return nil
}

// evict drops the oldest records beyond the scope limit and reports whether
// anything was removed.
func (m *HybridMemory) evict(scope MemoryScope) bool {
	limit := m.limits[scope]
	bucket := m.cache[scope]
	if limit <= 0 || len(bucket) <= limit {
		return false
	}
	records := m.sorted(scope)
	for _, r := range records[:len(records)-limit] {
		delete(bucket, r.Key)
	}
	return true
}

func (m *HybridMemory) persist(scope MemoryScope) error {
	records := m.sorted(scope)
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.scopePath(scope), data, 0o644)
}

func (m *HybridMemory) scopePath(scope MemoryScope) string {
	return filepath.Join(m.basePath, string(scope)+".json")
}

func (m *HybridMemory) sorted(scope MemoryScope) []MemoryRecord {
	records := make([]MemoryRecord, 0, len(m.cache[scope]))
	for _, r := range m.cache[scope] {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].Seq < records[j].Seq
	})
	return records
}

// Remember stores a record, replacing any record with the same key. Project
// records are flushed immediately.
func (m *HybridMemory) Remember(ctx context.Context, key string, value map[string]interface{}, scope MemoryScope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return errors.New("memory key required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	bucket, ok := m.cache[scope]
	if !ok {
		return errors.New("unknown memory scope " + string(scope))
	}
	m.seq++
	bucket[key] = MemoryRecord{
		Key:       key,
		Value:     value,
		Scope:     scope,
		Timestamp: time.Now().UTC(),
		Seq:       m.seq,
	}
	m.evict(scope)
	if scope == MemoryScopeSession {
		return nil
	}
	return m.persist(scope)
}

// Recall retrieves a record by key.
func (m *HybridMemory) Recall(key string, scope MemoryScope) (MemoryRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	record, ok := m.cache[scope][key]
	return record, ok
}

// Records returns every record in scope, oldest first.
func (m *HybridMemory) Records(scope MemoryScope) []MemoryRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.sorted(scope)
}
