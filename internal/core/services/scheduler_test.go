package services

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
	"github.com/quarry-labs/quarry-core/internal/core/ports/driven/mocks"
)

func newSchedulerFixture(lock *mocks.MockDistributedLock) (*Scheduler, *mocks.MockSchedulerStore, *mocks.MockTaskQueue) {
	store := mocks.NewMockSchedulerStore()
	queue := mocks.NewMockTaskQueue()
	cfg := SchedulerConfig{
		Store:        store,
		TaskQueue:    queue,
		PollInterval: 10 * time.Millisecond,
	}
	if lock != nil {
		cfg.Lock = lock
	}
	return NewScheduler(cfg), store, queue
}

func dueSchedule(id, tenantID string) *domain.ScheduledTask {
	scheduled := domain.NewScheduledTask(id, "history retention prune", domain.TaskTypePruneHistory, tenantID, time.Hour)
	scheduled.Payload = map[string]string{"retention_days": "90"}
	scheduled.NextRun = time.Now().Add(-time.Minute)
	return scheduled
}

func TestNewScheduler_Defaults(t *testing.T) {
	s := NewScheduler(SchedulerConfig{
		Store:     mocks.NewMockSchedulerStore(),
		TaskQueue: mocks.NewMockTaskQueue(),
	})
	if s.interval != 30*time.Second {
		t.Errorf("expected default poll interval 30s, got %v", s.interval)
	}
	if s.lockTTL != 60*time.Second {
		t.Errorf("expected default lock TTL 60s, got %v", s.lockTTL)
	}
}

func TestScheduler_CheckAndEnqueue(t *testing.T) {
	s, store, queue := newSchedulerFixture(nil)
	_ = store.SaveScheduledTask(context.Background(), dueSchedule("sched-1", "tenant-1"))

	s.pollOnce(context.Background())

	tasks := queue.Tasks()
	if len(tasks) != 1 {
		t.Fatalf("expected 1 enqueued task, got %d", len(tasks))
	}
	if tasks[0].Type != domain.TaskTypePruneHistory {
		t.Errorf("expected prune_history task, got %s", tasks[0].Type)
	}
	if tasks[0].RetentionDays() != 90 {
		t.Errorf("expected retention payload carried over, got %d", tasks[0].RetentionDays())
	}

	// Schedule advanced, so a second cycle enqueues nothing
	s.pollOnce(context.Background())
	if len(queue.Tasks()) != 1 {
		t.Errorf("expected no duplicate enqueue, got %d tasks", len(queue.Tasks()))
	}
}

func TestScheduler_CheckAndEnqueue_DisabledSchedule(t *testing.T) {
	s, store, queue := newSchedulerFixture(nil)
	scheduled := dueSchedule("sched-1", "tenant-1")
	scheduled.Enabled = false
	_ = store.SaveScheduledTask(context.Background(), scheduled)

	s.pollOnce(context.Background())

	if len(queue.Tasks()) != 0 {
		t.Errorf("expected no tasks for disabled schedule, got %d", len(queue.Tasks()))
	}
}

func TestScheduler_CheckAndEnqueue_LockHeld(t *testing.T) {
	lock := mocks.NewMockDistributedLock()
	lock.AcquireFn = func(name string, ttl time.Duration) (bool, error) {
		return false, nil // Another instance holds the lock
	}
	s, store, queue := newSchedulerFixture(lock)
	_ = store.SaveScheduledTask(context.Background(), dueSchedule("sched-1", "tenant-1"))

	s.pollOnce(context.Background())

	if len(queue.Tasks()) != 0 {
		t.Errorf("expected no tasks while lock held elsewhere, got %d", len(queue.Tasks()))
	}
}

func TestScheduler_CheckAndEnqueue_LockError(t *testing.T) {
	lock := mocks.NewMockDistributedLock()
	lock.AcquireFn = func(name string, ttl time.Duration) (bool, error) {
		return false, errors.New("backend down")
	}
	s, store, queue := newSchedulerFixture(lock)
	_ = store.SaveScheduledTask(context.Background(), dueSchedule("sched-1", "tenant-1"))

	s.pollOnce(context.Background())

	if len(queue.Tasks()) != 0 {
		t.Errorf("expected skip on lock error with lock required, got %d tasks", len(queue.Tasks()))
	}
}

func TestScheduler_CheckAndEnqueue_EnqueueError(t *testing.T) {
	s, store, queue := newSchedulerFixture(nil)
	queue.EnqueueErr = errors.New("queue full")
	_ = store.SaveScheduledTask(context.Background(), dueSchedule("sched-1", "tenant-1"))

	s.pollOnce(context.Background())

	scheduled, err := store.GetScheduledTask(context.Background(), "sched-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scheduled.LastError == "" {
		t.Error("expected last error recorded on enqueue failure")
	}
}

func TestScheduler_StartStop(t *testing.T) {
	s, store, queue := newSchedulerFixture(nil)
	_ = store.SaveScheduledTask(context.Background(), dueSchedule("sched-1", "tenant-1"))

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	s.Stop()

	if len(queue.Tasks()) == 0 {
		t.Error("expected at least one task enqueued while running")
	}

	// Stop again is a no-op
	s.Stop()
}

func TestScheduler_TriggerNow(t *testing.T) {
	s, store, queue := newSchedulerFixture(nil)
	scheduled := dueSchedule("sched-1", "tenant-1")
	scheduled.NextRun = time.Now().Add(time.Hour) // Not due
	_ = store.SaveScheduledTask(context.Background(), scheduled)

	task, err := s.TriggerNow(context.Background(), "sched-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if task.Type != domain.TaskTypePruneHistory {
		t.Errorf("expected prune_history task, got %s", task.Type)
	}
	if len(queue.Tasks()) != 1 {
		t.Errorf("expected 1 task, got %d", len(queue.Tasks()))
	}
}

func TestScheduler_TriggerNow_NotFound(t *testing.T) {
	s, _, _ := newSchedulerFixture(nil)
	if _, err := s.TriggerNow(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestScheduler_EnsureRetentionSchedule(t *testing.T) {
	s, store, _ := newSchedulerFixture(nil)

	if err := s.EnsureRetentionSchedule(context.Background(), "tenant-1", 90, time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	scheduled, err := store.GetScheduledTask(context.Background(), "prune-history-tenant-1")
	if err != nil {
		t.Fatalf("expected schedule created: %v", err)
	}
	if scheduled.Payload["retention_days"] != strconv.Itoa(90) {
		t.Errorf("expected retention payload, got %+v", scheduled.Payload)
	}

	// Idempotent: existing schedule is kept as-is
	scheduled.Payload["retention_days"] = "30"
	_ = store.SaveScheduledTask(context.Background(), scheduled)
	if err := s.EnsureRetentionSchedule(context.Background(), "tenant-1", 90, time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	again, _ := store.GetScheduledTask(context.Background(), "prune-history-tenant-1")
	if again.Payload["retention_days"] != "30" {
		t.Error("expected existing schedule untouched")
	}
}
