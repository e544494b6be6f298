package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
	"github.com/quarry-labs/quarry-core/internal/core/ports/driven"
	"github.com/quarry-labs/quarry-core/internal/core/services"
)

// Worker processes tasks from the task queue: history recording and
// retention pruning. Search requests never wait on any of this.
type Worker struct {
	taskQueue driven.TaskQueue
	history   driven.HistoryStore
	scheduler *services.Scheduler
	logger    *slog.Logger

	concurrency    int
	dequeueTimeout int // seconds

	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// WorkerConfig holds configuration for the worker.
type WorkerConfig struct {
	TaskQueue      driven.TaskQueue
	History        driven.HistoryStore
	Scheduler      *services.Scheduler // optional, started and stopped with the worker
	Logger         *slog.Logger
	Concurrency    int // number of concurrent task processors
	DequeueTimeout int // seconds to wait for a task before checking stop signals
}

func NewWorker(cfg WorkerConfig) *Worker {
	w := &Worker{
		taskQueue:      cfg.TaskQueue,
		history:        cfg.History,
		scheduler:      cfg.Scheduler,
		logger:         cfg.Logger,
		concurrency:    cfg.Concurrency,
		dequeueTimeout: cfg.DequeueTimeout,
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}
	if w.concurrency < 1 {
		w.concurrency = 1
	}
	if w.dequeueTimeout < 1 {
		w.dequeueTimeout = 5
	}
	return w
}

// Start launches the processor goroutines and, when configured, the
// scheduler. Calling Start on a running worker is a no-op.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})

	w.logger.Info("worker starting",
		"concurrency", w.concurrency,
		"dequeue_timeout", w.dequeueTimeout,
	)

	if w.scheduler != nil {
		if err := w.scheduler.Start(ctx); err != nil {
			w.logger.Error("failed to start scheduler", "error", err)
		}
	}

	for id := 0; id < w.concurrency; id++ {
		w.wg.Add(1)
		go func(id int) {
			defer w.wg.Done()
			w.processLoop(ctx, id)
		}(id)
	}
	return nil
}

// Stop signals every processor and waits for in-flight tasks to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	w.mu.Unlock()

	if w.scheduler != nil {
		w.scheduler.Stop()
	}

	w.wg.Wait()
	w.logger.Info("worker stopped")
}

// processLoop dequeues and handles tasks until told to stop. The dequeue
// timeout bounds how long a stop signal can go unnoticed.
func (w *Worker) processLoop(ctx context.Context, id int) {
	logger := w.logger.With("worker_id", id)
	logger.Info("worker goroutine started")

	for !w.stopping(ctx) {
		task, err := w.taskQueue.DequeueWithTimeout(ctx, w.dequeueTimeout)
		switch {
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			continue
		case err != nil:
			logger.Error("failed to dequeue task", "error", err)
			time.Sleep(time.Second)
			continue
		case task == nil:
			continue
		}
		w.processTask(ctx, task, logger)
	}

	logger.Info("worker goroutine exiting")
}

func (w *Worker) stopping(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-w.stopCh:
		return true
	default:
		return false
	}
}

// processTask dispatches by type and acks or nacks the outcome.
func (w *Worker) processTask(ctx context.Context, task *domain.Task, logger *slog.Logger) {
	logger = logger.With("task_id", task.ID, "task_type", task.Type, "tenant_id", task.TenantID)
	logger.Info("processing task")
	started := time.Now()

	if err := w.dispatch(ctx, task, logger); err != nil {
		logger.Error("task failed", "duration", time.Since(started), "error", err)
		if nackErr := w.taskQueue.Nack(ctx, task.ID, err.Error()); nackErr != nil {
			logger.Error("failed to nack task", "nack_error", nackErr)
		}
		return
	}

	logger.Info("task completed", "duration", time.Since(started))
	if ackErr := w.taskQueue.Ack(ctx, task.ID); ackErr != nil {
		logger.Error("failed to ack task", "ack_error", ackErr)
	}
}

func (w *Worker) dispatch(ctx context.Context, task *domain.Task, logger *slog.Logger) error {
	switch task.Type {
	case domain.TaskTypeRecordSearch:
		return w.handleRecordSearch(ctx, task)
	case domain.TaskTypePruneHistory:
		return w.handlePruneHistory(ctx, task, logger)
	default:
		return fmt.Errorf("unknown task type: %s", task.Type)
	}
}

// handleRecordSearch writes one search event to the history store.
func (w *Worker) handleRecordSearch(ctx context.Context, task *domain.Task) error {
	event := task.SearchEventFromPayload()
	if event == nil || event.Query == "" {
		return fmt.Errorf("task %s carries no search event", task.ID)
	}
	if event.ID == "" {
		event.ID = domain.GenerateID()
	}
	return w.history.Record(ctx, event)
}

// handlePruneHistory deletes a tenant's history past its retention window.
func (w *Worker) handlePruneHistory(ctx context.Context, task *domain.Task, logger *slog.Logger) error {
	days := task.RetentionDays()
	if days <= 0 {
		return fmt.Errorf("task %s carries no retention window", task.ID)
	}

	cutoff := time.Now().AddDate(0, 0, -days)
	removed, err := w.history.Prune(ctx, task.TenantID, cutoff)
	if err != nil {
		return err
	}

	logger.Info("pruned search history",
		"retention_days", days,
		"removed", removed,
	)
	return nil
}

// Health reports the worker state and its view of the queue backend.
type Health struct {
	Running     bool   `json:"running"`
	QueueHealth bool   `json:"queue_health"`
	Error       string `json:"error,omitempty"`
}

func (w *Worker) Health(ctx context.Context) Health {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()

	health := Health{Running: running}
	if err := w.taskQueue.Ping(ctx); err != nil {
		health.Error = err.Error()
	} else {
		health.QueueHealth = true
	}
	return health
}
