package coordinator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskRegistry_CreateThenGet(t *testing.T) {
	registry := NewTaskRegistry(time.Minute)

	registry.Create("task_1_abc")
	record, ok := registry.Get("task_1_abc")
	require.True(t, ok)
	assert.Equal(t, TaskPending, record.State)
	assert.Equal(t, "task_1_abc", record.ID)
}

func TestTaskRegistry_GetUnknown(t *testing.T) {
	registry := NewTaskRegistry(time.Minute)

	_, ok := registry.Get("task_1_abc")
	assert.False(t, ok)
}

func TestTaskRegistry_Complete(t *testing.T) {
	registry := NewTaskRegistry(time.Minute)

	registry.Create("task_1_abc")
	registry.Complete("task_1_abc", Response{Text: "answer", Source: SourceGenerated})

	record, ok := registry.Get("task_1_abc")
	require.True(t, ok)
	assert.Equal(t, TaskCompleted, record.State)
	assert.Equal(t, "answer", record.Result.Text)
}

func TestTaskRegistry_CompleteUnknownIsNoop(t *testing.T) {
	registry := NewTaskRegistry(time.Minute)

	// Must not panic or create a record.
	registry.Complete("task_9_zzz", Response{Text: "late"})
	_, ok := registry.Get("task_9_zzz")
	assert.False(t, ok)
}

func TestTaskRegistry_PendingNeverFollowsCompleted(t *testing.T) {
	registry := NewTaskRegistry(time.Minute)

	registry.Create("task_1_abc")
	registry.Complete("task_1_abc", Response{Text: "first", Source: SourceGenerated})

	// Re-completing overwrites; readers still observe Completed.
	registry.Complete("task_1_abc", Response{Text: "second", Source: SourceGenerated})
	record, ok := registry.Get("task_1_abc")
	require.True(t, ok)
	assert.Equal(t, TaskCompleted, record.State)
}

func TestTaskRegistry_LazyExpiry(t *testing.T) {
	registry := NewTaskRegistry(5 * time.Minute)

	current := time.Now()
	registry.now = func() time.Time { return current }

	registry.Create("task_1_abc")

	current = current.Add(4 * time.Minute)
	_, ok := registry.Get("task_1_abc")
	assert.True(t, ok)

	// Past the TTL the record is evicted on read, even if it was pending.
	current = current.Add(2 * time.Minute)
	_, ok = registry.Get("task_1_abc")
	assert.False(t, ok)

	// Expired means gone: completing afterwards resurrects nothing.
	registry.Complete("task_1_abc", Response{Text: "too late"})
	_, ok = registry.Get("task_1_abc")
	assert.False(t, ok)
}

func TestTaskRegistry_ExpiredCompletedRecord(t *testing.T) {
	registry := NewTaskRegistry(5 * time.Minute)

	current := time.Now()
	registry.now = func() time.Time { return current }

	registry.Create("task_1_abc")
	registry.Complete("task_1_abc", Response{Text: "answer"})

	current = current.Add(6 * time.Minute)
	_, ok := registry.Get("task_1_abc")
	assert.False(t, ok)
}
