package services

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
	"github.com/quarry-labs/quarry-core/internal/core/ports/driven"
)

// Scheduler polls for due recurring tasks and turns them into queue tasks.
// Today the only recurring task is the per-tenant history retention prune.
// With several instances running, the distributed lock keeps a poll cycle
// from happening twice.
type Scheduler struct {
	store     driven.SchedulerStore
	taskQueue driven.TaskQueue
	lock      driven.DistributedLock
	logger    *slog.Logger

	mu       sync.RWMutex
	running  bool
	stopCh   chan struct{}
	doneCh   chan struct{}
	interval time.Duration

	lockTTL      time.Duration
	lockRequired bool
}

// SchedulerConfig holds configuration for the scheduler.
type SchedulerConfig struct {
	Store        driven.SchedulerStore
	TaskQueue    driven.TaskQueue
	Lock         driven.DistributedLock // optional, for multi-instance coordination
	Logger       *slog.Logger
	PollInterval time.Duration // default 30s
	LockTTL      time.Duration // default 60s
	LockRequired bool          // skip the cycle when the lock cannot be acquired
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	interval := cfg.PollInterval
	if interval == 0 {
		interval = 30 * time.Second
	}
	lockTTL := cfg.LockTTL
	if lockTTL == 0 {
		lockTTL = 60 * time.Second
	}
	// A configured lock implies it should gate the cycle.
	lockRequired := cfg.LockRequired || cfg.Lock != nil

	return &Scheduler{
		store:        cfg.Store,
		taskQueue:    cfg.TaskQueue,
		lock:         cfg.Lock,
		logger:       logger,
		interval:     interval,
		lockTTL:      lockTTL,
		lockRequired: lockRequired,
	}
}

// Start launches the poll loop. Idempotent while running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	s.logger.Info("scheduler starting", "poll_interval", s.interval)
	go s.run(ctx)
	return nil
}

// Stop signals the loop and waits for the current cycle to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stopCh)
	s.mu.Unlock()

	<-s.doneCh

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	s.logger.Info("scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// First cycle runs immediately, not one interval later.
	s.pollOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler context cancelled")
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.pollOnce(ctx)
		}
	}
}

// pollOnce enqueues every due schedule. Under the lock, exactly one instance
// does this per cycle.
func (s *Scheduler) pollOnce(ctx context.Context) {
	if s.lock != nil {
		acquired, err := s.lock.Acquire(ctx, "scheduler", s.lockTTL)
		switch {
		case err != nil:
			s.logger.Warn("failed to acquire scheduler lock", "error", err)
			if s.lockRequired {
				return
			}
		case !acquired:
			s.logger.Debug("scheduler lock held by another instance, skipping cycle")
			return
		default:
			defer func() {
				if err := s.lock.Release(ctx, "scheduler"); err != nil {
					s.logger.Warn("failed to release scheduler lock", "error", err)
				}
			}()
		}
	}

	due, err := s.store.GetDueScheduledTasks(ctx)
	if err != nil {
		s.logger.Error("failed to get due scheduled tasks", "error", err)
		return
	}

	for _, scheduled := range due {
		if !scheduled.IsDue() {
			continue
		}
		s.fire(ctx, scheduled)
	}
}

// fire enqueues one occurrence of the schedule and records the run.
func (s *Scheduler) fire(ctx context.Context, scheduled *domain.ScheduledTask) {
	task := domain.NewTask(scheduled.Type, scheduled.TenantID, scheduled.Payload)

	if err := s.taskQueue.Enqueue(ctx, task); err != nil {
		s.logger.Error("failed to enqueue scheduled task",
			"scheduled_id", scheduled.ID,
			"error", err,
		)
		_ = s.store.UpdateLastRun(ctx, scheduled.ID, err.Error())
		return
	}

	s.logger.Info("enqueued scheduled task",
		"scheduled_id", scheduled.ID,
		"task_id", task.ID,
		"task_type", task.Type,
	)
	if err := s.store.UpdateLastRun(ctx, scheduled.ID, ""); err != nil {
		s.logger.Warn("failed to update scheduled task last run",
			"scheduled_id", scheduled.ID,
			"error", err,
		)
	}
}

// TriggerNow enqueues one occurrence immediately, ignoring the schedule.
func (s *Scheduler) TriggerNow(ctx context.Context, id string) (*domain.Task, error) {
	scheduled, err := s.store.GetScheduledTask(ctx, id)
	if err != nil {
		return nil, err
	}

	task := domain.NewTask(scheduled.Type, scheduled.TenantID, scheduled.Payload)
	if err := s.taskQueue.Enqueue(ctx, task); err != nil {
		return nil, err
	}

	s.logger.Info("manually triggered scheduled task",
		"scheduled_id", scheduled.ID,
		"task_id", task.ID,
	)
	return task, nil
}

// EnsureRetentionSchedule seeds the tenant's history prune schedule when it
// does not exist yet. Existing schedules are left untouched.
func (s *Scheduler) EnsureRetentionSchedule(ctx context.Context, tenantID string, retentionDays int, interval time.Duration) error {
	id := "prune-history-" + tenantID
	if _, err := s.store.GetScheduledTask(ctx, id); err == nil {
		return nil
	}

	scheduled := domain.NewScheduledTask(id, "history retention prune", domain.TaskTypePruneHistory, tenantID, interval)
	scheduled.Payload = map[string]string{
		"retention_days": strconv.Itoa(retentionDays),
	}
	return s.store.SaveScheduledTask(ctx, scheduled)
}
