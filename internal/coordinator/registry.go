package coordinator

import (
	"sync"
	"time"
)

// TaskState is the lifecycle state of a background generation task.
type TaskState int

const (
	// TaskPending means the background worker has not finished.
	TaskPending TaskState = iota

	// TaskCompleted means a final result is available.
	TaskCompleted
)

// TaskRecord is the registry's view of one background task.
type TaskRecord struct {
	ID        string
	State     TaskState
	Result    Response
	CreatedAt time.Time
}

// TaskRegistry is a keyed store of background task state, queried by the
// polling path. Records transition Pending to Completed exactly once
// (only the owning worker completes a given id) and expire after the TTL,
// evicted lazily when read.
type TaskRegistry struct {
	ttl     time.Duration
	records sync.Map
	now     func() time.Time
}

// NewTaskRegistry creates a registry whose records expire after ttl.
func NewTaskRegistry(ttl time.Duration) *TaskRegistry {
	return &TaskRegistry{
		ttl: ttl,
		now: time.Now,
	}
}

// Create registers a new task in Pending state.
func (r *TaskRegistry) Create(taskID string) {
	r.records.Store(taskID, TaskRecord{
		ID:        taskID,
		State:     TaskPending,
		CreatedAt: r.now(),
	})
}

// Complete stores the final result for a task. Completing an unknown id
// is a no-op: the record may already have expired, and only the owning
// worker ever completes an id, so there is nothing to guard against.
func (r *TaskRegistry) Complete(taskID string, result Response) {
	value, ok := r.records.Load(taskID)
	if !ok {
		return
	}
	record := value.(TaskRecord)
	record.State = TaskCompleted
	record.Result = result
	r.records.Store(taskID, record)
}

// Get returns the record for a task id. A record older than the TTL is
// deleted as a side effect and reported as missing, regardless of state.
func (r *TaskRegistry) Get(taskID string) (TaskRecord, bool) {
	value, ok := r.records.Load(taskID)
	if !ok {
		return TaskRecord{}, false
	}
	record := value.(TaskRecord)
	if r.now().Sub(record.CreatedAt) > r.ttl {
		r.records.Delete(taskID)
		return TaskRecord{}, false
	}
	return record, true
}
