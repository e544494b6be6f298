package driven

import (
	"context"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
)

// TaskQueue carries background work between the search path and the worker:
// search-event recording and history pruning. Redis Streams back it when
// available, PostgreSQL otherwise.
type TaskQueue interface {
	// Enqueue hands a task to the queue. Tasks with a future ScheduledFor
	// stay parked until due.
	Enqueue(ctx context.Context, task *domain.Task) error

	// Dequeue blocks until a task is available or the context is cancelled.
	// Non-blocking backends return nil, nil when the queue is empty.
	Dequeue(ctx context.Context) (*domain.Task, error)

	// DequeueWithTimeout waits up to timeout seconds for a task.
	// Returns nil, nil when nothing became available. The returned task is
	// marked processing and hidden from other workers.
	DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error)

	// Ack records successful completion of a dequeued task.
	Ack(ctx context.Context, taskID string) error

	// Nack records a processing failure. Tasks with retries left are
	// rescheduled with backoff; exhausted tasks are marked failed.
	Nack(ctx context.Context, taskID string, reason string) error

	// GetTask looks up a task by ID. Returns nil, nil when unknown.
	GetTask(ctx context.Context, taskID string) (*domain.Task, error)

	// ListTasks returns tasks matching the filter.
	ListTasks(ctx context.Context, filter TaskFilter) ([]*domain.Task, error)

	// Ping checks that the queue backend is reachable.
	Ping(ctx context.Context) error

	// Close cleans up resources.
	Close() error
}

// TaskFilter narrows a ListTasks call.
type TaskFilter struct {
	// TenantID filters by tenant (required)
	TenantID string

	// Status filters by task status (optional, empty means all)
	Status domain.TaskStatus

	// Type filters by task type (optional, empty means all)
	Type domain.TaskType

	// Limit is the maximum number of tasks to return
	Limit int

	// Offset is the number of tasks to skip (for pagination)
	Offset int
}

// SchedulerStore persists recurring task definitions. Separate from
// TaskQueue because schedules are configuration, not transient queue items.
type SchedulerStore interface {
	// GetScheduledTask retrieves a scheduled task by ID
	GetScheduledTask(ctx context.Context, id string) (*domain.ScheduledTask, error)

	// ListScheduledTasks retrieves all scheduled tasks for a tenant
	ListScheduledTasks(ctx context.Context, tenantID string) ([]*domain.ScheduledTask, error)

	// SaveScheduledTask creates or updates a scheduled task
	SaveScheduledTask(ctx context.Context, task *domain.ScheduledTask) error

	// DeleteScheduledTask removes a scheduled task
	DeleteScheduledTask(ctx context.Context, id string) error

	// GetDueScheduledTasks retrieves scheduled tasks that are due to run
	GetDueScheduledTasks(ctx context.Context) ([]*domain.ScheduledTask, error)

	// UpdateLastRun updates the last run time and next run time
	UpdateLastRun(ctx context.Context, id string, lastError string) error
}
