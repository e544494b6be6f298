package domain

import (
	"crypto/rand"
	"encoding/base64"
	"strconv"
	"time"
)

// GenerateID creates a unique random ID.
func GenerateID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// TaskType identifies the kind of background work a task carries.
type TaskType string

const (
	// TaskTypeRecordSearch writes one search event to the history store.
	TaskTypeRecordSearch TaskType = "record_search"
	// TaskTypePruneHistory deletes history entries past the retention window.
	TaskTypePruneHistory TaskType = "prune_history"
)

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// Task is one unit of background work. Tasks move
// pending -> processing -> completed, or back to pending with a backoff
// on retryable failure, or to failed once attempts run out.
type Task struct {
	ID       string   `json:"id"`
	Type     TaskType `json:"type"`
	TenantID string   `json:"tenant_id"`

	// Payload holds type-specific data as flat strings.
	// record_search: user_id, query, strategy, degraded, result_count, searched_at.
	// prune_history: retention_days.
	Payload map[string]string `json:"payload"`

	Status TaskStatus `json:"status"`

	// Priority orders dequeue within a queue backend; higher runs first.
	Priority int `json:"priority"`

	Attempts    int    `json:"attempts"`
	MaxAttempts int    `json:"max_attempts"`
	Error       string `json:"error,omitempty"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// ScheduledFor delays processing; the queue holds the task back
	// until this time has passed.
	ScheduledFor time.Time `json:"scheduled_for"`
}

// NewTask creates a pending task ready for immediate processing.
func NewTask(taskType TaskType, tenantID string, payload map[string]string) *Task {
	now := time.Now()
	return &Task{
		ID:           GenerateID(),
		Type:         taskType,
		TenantID:     tenantID,
		Payload:      payload,
		Status:       TaskStatusPending,
		MaxAttempts:  3,
		CreatedAt:    now,
		UpdatedAt:    now,
		ScheduledFor: now,
	}
}

// NewRecordSearchTask builds the task recording one executed search.
func NewRecordSearchTask(event *SearchEvent) *Task {
	return NewTask(TaskTypeRecordSearch, event.TenantID, map[string]string{
		"user_id":      event.UserID,
		"query":        event.Query,
		"strategy":     string(event.Strategy),
		"degraded":     strconv.FormatBool(event.Degraded),
		"result_count": strconv.Itoa(event.ResultCount),
		"searched_at":  event.SearchedAt.UTC().Format(time.RFC3339Nano),
	})
}

// NewPruneHistoryTask builds the task pruning aged history for a tenant.
func NewPruneHistoryTask(tenantID string, retentionDays int) *Task {
	return NewTask(TaskTypePruneHistory, tenantID, map[string]string{
		"retention_days": strconv.Itoa(retentionDays),
	})
}

// CanRetry reports whether the task has attempts left.
func (t *Task) CanRetry() bool {
	return t.Attempts < t.MaxAttempts
}

// MarkProcessing records the start of an attempt.
func (t *Task) MarkProcessing() {
	now := time.Now()
	t.Status = TaskStatusProcessing
	t.StartedAt = &now
	t.UpdatedAt = now
	t.Attempts++
}

// MarkCompleted records a successful attempt and clears any earlier error.
func (t *Task) MarkCompleted() {
	now := time.Now()
	t.Status = TaskStatusCompleted
	t.CompletedAt = &now
	t.UpdatedAt = now
	t.Error = ""
}

// MarkFailed records a terminal failure.
func (t *Task) MarkFailed(err string) {
	t.Status = TaskStatusFailed
	t.UpdatedAt = time.Now()
	t.Error = err
}

// Retry returns the task to pending with exponential backoff:
// 1s, 2s, 4s, ... capped at 5 minutes.
func (t *Task) Retry(err string) {
	now := time.Now()
	t.Status = TaskStatusPending
	t.UpdatedAt = now
	t.Error = err

	backoff := time.Duration(1<<t.Attempts) * time.Second
	if backoff > 5*time.Minute {
		backoff = 5 * time.Minute
	}
	t.ScheduledFor = now.Add(backoff)
}

// SearchEventFromPayload reconstructs the search event of a record_search
// task. A missing or unparsable searched_at falls back to the enqueue time.
func (t *Task) SearchEventFromPayload() *SearchEvent {
	if t.Payload == nil {
		return nil
	}
	count, _ := strconv.Atoi(t.Payload["result_count"])
	degraded, _ := strconv.ParseBool(t.Payload["degraded"])
	searchedAt, err := time.Parse(time.RFC3339Nano, t.Payload["searched_at"])
	if err != nil {
		searchedAt = t.CreatedAt
	}
	return &SearchEvent{
		TenantID:    t.TenantID,
		UserID:      t.Payload["user_id"],
		Query:       t.Payload["query"],
		Strategy:    SearchStrategy(t.Payload["strategy"]),
		Degraded:    degraded,
		ResultCount: count,
		SearchedAt:  searchedAt,
	}
}

// RetentionDays extracts the retention window of a prune_history task.
func (t *Task) RetentionDays() int {
	if t.Payload == nil {
		return 0
	}
	days, _ := strconv.Atoi(t.Payload["retention_days"])
	return days
}

// ScheduledTask is a recurring task definition. When a schedule fires the
// scheduler enqueues a concrete Task carrying the schedule's payload.
type ScheduledTask struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Type     TaskType `json:"type"`
	TenantID string   `json:"tenant_id"`

	// Interval is the gap between runs; NextRun advances by it each time.
	Interval time.Duration `json:"interval"`

	// Payload is copied onto every task this schedule creates.
	Payload map[string]string `json:"payload,omitempty"`

	Enabled   bool       `json:"enabled"`
	LastRun   *time.Time `json:"last_run,omitempty"`
	NextRun   time.Time  `json:"next_run"`
	LastError string     `json:"last_error,omitempty"`
}

// NewScheduledTask creates an enabled schedule whose first run is one
// interval from now.
func NewScheduledTask(id, name string, taskType TaskType, tenantID string, interval time.Duration) *ScheduledTask {
	return &ScheduledTask{
		ID:       id,
		Name:     name,
		Type:     taskType,
		TenantID: tenantID,
		Interval: interval,
		Enabled:  true,
		NextRun:  time.Now().Add(interval),
	}
}

// IsDue reports whether the schedule should fire now.
func (s *ScheduledTask) IsDue() bool {
	return s.Enabled && !s.NextRun.After(time.Now())
}
