package worker

import (
	"context"
	"testing"
	"time"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
	"github.com/quarry-labs/quarry-core/internal/core/ports/driven/mocks"
)

func newWorkerFixture() (*Worker, *mocks.MockTaskQueue, *mocks.MockHistoryStore) {
	queue := mocks.NewMockTaskQueue()
	history := mocks.NewMockHistoryStore()
	w := NewWorker(WorkerConfig{
		TaskQueue:      queue,
		History:        history,
		Concurrency:    1,
		DequeueTimeout: 1,
	})
	return w, queue, history
}

func TestWorker_ProcessRecordSearch(t *testing.T) {
	w, queue, history := newWorkerFixture()

	task := domain.NewRecordSearchTask(&domain.SearchEvent{
		TenantID:    "tenant-1",
		UserID:      "user-1",
		Query:       "invoice acme",
		Strategy:    domain.StrategyHybrid,
		ResultCount: 3,
		SearchedAt:  time.Now(),
	})
	_ = queue.Enqueue(context.Background(), task)

	dequeued, _ := queue.Dequeue(context.Background())
	w.processTask(context.Background(), dequeued, w.logger)

	events := history.Events()
	if len(events) != 1 {
		t.Fatalf("expected 1 recorded event, got %d", len(events))
	}
	if events[0].Query != "invoice acme" || events[0].TenantID != "tenant-1" {
		t.Errorf("unexpected event: %+v", events[0])
	}
	if events[0].ID == "" {
		t.Error("expected event ID assigned")
	}

	stored, _ := queue.GetTask(context.Background(), task.ID)
	if stored.Status != domain.TaskStatusCompleted {
		t.Errorf("expected task completed, got %s", stored.Status)
	}
}

func TestWorker_ProcessPruneHistory(t *testing.T) {
	w, queue, history := newWorkerFixture()

	old := &domain.SearchEvent{
		ID:         "old",
		TenantID:   "tenant-1",
		Query:      "stale",
		SearchedAt: time.Now().AddDate(0, 0, -120),
	}
	fresh := &domain.SearchEvent{
		ID:         "fresh",
		TenantID:   "tenant-1",
		Query:      "recent",
		SearchedAt: time.Now(),
	}
	_ = history.Record(context.Background(), old)
	_ = history.Record(context.Background(), fresh)

	task := domain.NewPruneHistoryTask("tenant-1", 90)
	_ = queue.Enqueue(context.Background(), task)

	dequeued, _ := queue.Dequeue(context.Background())
	w.processTask(context.Background(), dequeued, w.logger)

	events := history.Events()
	if len(events) != 1 || events[0].ID != "fresh" {
		t.Errorf("expected only the fresh event kept, got %+v", events)
	}
}

func TestWorker_UnknownTaskTypeNacked(t *testing.T) {
	w, queue, _ := newWorkerFixture()

	task := domain.NewTask(domain.TaskType("reticulate_splines"), "tenant-1", nil)
	task.MaxAttempts = 1
	_ = queue.Enqueue(context.Background(), task)

	dequeued, _ := queue.Dequeue(context.Background())
	w.processTask(context.Background(), dequeued, w.logger)

	stored, _ := queue.GetTask(context.Background(), task.ID)
	if stored.Status != domain.TaskStatusFailed {
		t.Errorf("expected task failed after max attempts, got %s", stored.Status)
	}
	if stored.Error == "" {
		t.Error("expected error recorded")
	}
}

func TestWorker_InvalidPruneTaskNacked(t *testing.T) {
	w, queue, _ := newWorkerFixture()

	task := domain.NewTask(domain.TaskTypePruneHistory, "tenant-1", nil)
	_ = queue.Enqueue(context.Background(), task)

	dequeued, _ := queue.Dequeue(context.Background())
	w.processTask(context.Background(), dequeued, w.logger)

	stored, _ := queue.GetTask(context.Background(), task.ID)
	if stored.Status == domain.TaskStatusCompleted {
		t.Error("expected task not completed without retention window")
	}
}

func TestWorker_StartStop(t *testing.T) {
	w, queue, history := newWorkerFixture()

	task := domain.NewRecordSearchTask(&domain.SearchEvent{
		TenantID:   "tenant-1",
		UserID:     "user-1",
		Query:      "anything",
		Strategy:   domain.StrategySemantic,
		SearchedAt: time.Now(),
	})
	_ = queue.Enqueue(context.Background(), task)

	if err := w.Start(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	w.Stop()

	if len(history.Events()) != 1 {
		t.Errorf("expected task processed while running, got %d events", len(history.Events()))
	}

	// Stop again is a no-op
	w.Stop()
}

func TestWorker_Health(t *testing.T) {
	w, _, _ := newWorkerFixture()

	health := w.Health(context.Background())
	if health.Running {
		t.Error("expected not running before Start")
	}
	if !health.QueueHealth {
		t.Error("expected healthy queue")
	}
}
