package framework

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHybridMemoryScopes(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	mem, err := NewHybridMemory(dir)
	require.NoError(t, err)

	require.NoError(t, mem.Remember(ctx, "s1", map[string]interface{}{"task": "a"}, MemoryScopeSession))
	require.NoError(t, mem.Remember(ctx, "p1", map[string]interface{}{"task": "b"}, MemoryScopeProject))
	assert.FileExists(t, filepath.Join(dir, "project.json"))
	assert.NoFileExists(t, filepath.Join(dir, "session.json"))

	record, ok := mem.Recall("s1", MemoryScopeSession)
	require.True(t, ok)
	assert.Equal(t, "a", record.Value["task"])

	reloaded, err := NewHybridMemory(dir)
	require.NoError(t, err)
	_, ok = reloaded.Recall("s1", MemoryScopeSession)
	assert.False(t, ok)
	record, ok = reloaded.Recall("p1", MemoryScopeProject)
	require.True(t, ok)
	assert.Equal(t, "b", record.Value["task"])
	assert.Len(t, reloaded.Records(MemoryScopeProject), 1)
}

func TestHybridMemoryRejectsBadInput(t *testing.T) {
	mem, err := NewHybridMemory(t.TempDir())
	require.NoError(t, err)
	assert.Error(t, mem.Remember(context.Background(), "", nil, MemoryScopeSession))
	assert.Error(t, mem.Remember(context.Background(), "k", nil, MemoryScope("galaxy")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, mem.Remember(ctx, "k", nil, MemoryScopeSession), context.Canceled)
}

func TestHybridMemoryEvictsOldestBeyondLimit(t *testing.T) {
	ctx := context.Background()
	mem, err := NewHybridMemory(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, mem.SetLimit(MemoryScopeSession, 3))

	for i := 0; i < 10; i++ {
		key := fmt.Sprintf("run:%d", i)
		require.NoError(t, mem.Remember(ctx, key, map[string]interface{}{"iteration": i}, MemoryScopeSession))
		assert.LessOrEqual(t, len(mem.Records(MemoryScopeSession)), 3)
	}
	records := mem.Records(MemoryScopeSession)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"run:7", "run:8", "run:9"}, []string{records[0].Key, records[1].Key, records[2].Key})

	// Rewriting a key refreshes it instead of adding a record.
	require.NoError(t, mem.Remember(ctx, "run:7", map[string]interface{}{"iteration": 7}, MemoryScopeSession))
	require.NoError(t, mem.Remember(ctx, "run:10", map[string]interface{}{"iteration": 10}, MemoryScopeSession))
	_, ok := mem.Recall("run:8", MemoryScopeSession)
	assert.False(t, ok)
	_, ok = mem.Recall("run:7", MemoryScopeSession)
	assert.True(t, ok)
}

func TestHybridMemoryProjectLimitSurvivesReload(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	mem, err := NewHybridMemory(dir)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		require.NoError(t, mem.Remember(ctx, fmt.Sprintf("plan:%d", i), map[string]interface{}{"i": i}, MemoryScopeProject))
	}
	require.NoError(t, mem.SetLimit(MemoryScopeProject, 2))

	reloaded, err := NewHybridMemory(dir)
	require.NoError(t, err)
	records := reloaded.Records(MemoryScopeProject)
	require.Len(t, records, 2)
	assert.Equal(t, "plan:2", records[0].Key)
	assert.Equal(t, "plan:3", records[1].Key)

	require.NoError(t, reloaded.Remember(ctx, "plan:4", nil, MemoryScopeProject))
	assert.Equal(t, "plan:4", reloaded.Records(MemoryScopeProject)[2].Key)
	assert.Error(t, reloaded.SetLimit(MemoryScope("galaxy"), 1))
}
