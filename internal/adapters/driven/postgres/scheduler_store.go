package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
	"github.com/quarry-labs/quarry-core/internal/core/ports/driven"
)

var _ driven.SchedulerStore = (*SchedulerStore)(nil)

const scheduledColumns = `id, name, type, tenant_id, interval_ns, payload, enabled, next_run, last_run, last_error`

// SchedulerStore persists recurring task definitions in PostgreSQL.
// Intervals are stored as nanoseconds so time.Duration round-trips exactly.
type SchedulerStore struct {
	db *DB
}

func NewSchedulerStore(db *DB) *SchedulerStore {
	return &SchedulerStore{db: db}
}

// GetScheduledTask retrieves a scheduled task by ID.
func (s *SchedulerStore) GetScheduledTask(ctx context.Context, id string) (*domain.ScheduledTask, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+scheduledColumns+` FROM scheduled_tasks WHERE id = $1`, id)

	task, err := scanScheduled(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return task, err
}

// ListScheduledTasks returns a tenant's schedules ordered by when they fire next.
func (s *SchedulerStore) ListScheduledTasks(ctx context.Context, tenantID string) ([]*domain.ScheduledTask, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scheduledColumns+` FROM scheduled_tasks WHERE tenant_id = $1 ORDER BY next_run ASC`,
		tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectScheduled(rows)
}

// SaveScheduledTask upserts a schedule. The scheduler calls this both when
// seeding a schedule and when re-arming it after a run, so conflict on id
// replaces every column.
func (s *SchedulerStore) SaveScheduledTask(ctx context.Context, task *domain.ScheduledTask) error {
	payload := task.Payload
	if payload == nil {
		payload = map[string]string{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO scheduled_tasks (` + scheduledColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			type = EXCLUDED.type,
			tenant_id = EXCLUDED.tenant_id,
			interval_ns = EXCLUDED.interval_ns,
			payload = EXCLUDED.payload,
			enabled = EXCLUDED.enabled,
			next_run = EXCLUDED.next_run,
			last_run = EXCLUDED.last_run,
			last_error = EXCLUDED.last_error
	`

	_, err = s.db.ExecContext(ctx, query,
		task.ID,
		task.Name,
		string(task.Type),
		task.TenantID,
		int64(task.Interval),
		raw,
		task.Enabled,
		task.NextRun,
		NullTime(task.LastRun),
		task.LastError,
	)
	return err
}

// DeleteScheduledTask removes a schedule.
func (s *SchedulerStore) DeleteScheduledTask(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_tasks WHERE id = $1`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetDueScheduledTasks returns every enabled schedule whose next_run has passed.
func (s *SchedulerStore) GetDueScheduledTasks(ctx context.Context) ([]*domain.ScheduledTask, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+scheduledColumns+` FROM scheduled_tasks WHERE enabled = true AND next_run <= $1 ORDER BY next_run ASC`,
		time.Now())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectScheduled(rows)
}

// UpdateLastRun records a run outcome and re-arms the schedule one interval out.
func (s *SchedulerStore) UpdateLastRun(ctx context.Context, id string, lastError string) error {
	// The interval lives on the row, so load it before computing next_run.
	task, err := s.GetScheduledTask(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now()
	result, err := s.db.ExecContext(ctx,
		`UPDATE scheduled_tasks SET last_run = $1, next_run = $2, last_error = $3 WHERE id = $4`,
		now, now.Add(task.Interval), lastError, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanScheduled(row interface{ Scan(...any) error }) (*domain.ScheduledTask, error) {
	var task domain.ScheduledTask
	var lastRun sql.NullTime
	var lastError sql.NullString
	var intervalNs int64
	var payload []byte

	err := row.Scan(
		&task.ID,
		&task.Name,
		&task.Type,
		&task.TenantID,
		&intervalNs,
		&payload,
		&task.Enabled,
		&task.NextRun,
		&lastRun,
		&lastError,
	)
	if err != nil {
		return nil, err
	}

	task.Interval = time.Duration(intervalNs)
	task.LastRun = TimePtr(lastRun)
	task.LastError = lastError.String
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &task.Payload); err != nil {
			return nil, err
		}
	}
	return &task, nil
}

func collectScheduled(rows *sql.Rows) ([]*domain.ScheduledTask, error) {
	var tasks []*domain.ScheduledTask
	for rows.Next() {
		task, err := scanScheduled(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}
