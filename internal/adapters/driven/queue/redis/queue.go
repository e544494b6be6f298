package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/quarry-labs/quarry-core/internal/core/domain"
	"github.com/quarry-labs/quarry-core/internal/core/ports/driven"
	"github.com/redis/go-redis/v9"
)

const (
	streamKey  = "quarry:tasks"
	groupName  = "quarry:workers"
	parkedKey  = "quarry:scheduled"
	taskPrefix = "quarry:task:"

	// taskTTL bounds how long task records linger after completion.
	taskTTL = 24 * time.Hour

	// reclaimIdle is how long a dequeued task may sit unacked before
	// another worker may steal it.
	reclaimIdle = 5 * time.Minute
)

var _ driven.TaskQueue = (*Queue)(nil)

// Queue is a TaskQueue on Redis Streams. The stream carries only routing
// fields; the full task record lives at taskPrefix+ID so Ack/Nack and
// ListTasks can see task state without replaying the stream. Delayed tasks
// park in a ZSET scored by their due time.
type Queue struct {
	client   *redis.Client
	consumer string
}

// NewQueue creates the consumer group if needed. consumer must be unique per
// worker instance; empty picks a timestamp-based name.
func NewQueue(client *redis.Client, consumer string) (*Queue, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if consumer == "" {
		consumer = fmt.Sprintf("worker-%d", time.Now().UnixNano())
	}
	q := &Queue{client: client, consumer: consumer}

	err := client.XGroupCreateMkStream(context.Background(), streamKey, groupName, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return nil, fmt.Errorf("create consumer group: %w", err)
	}
	return q, nil
}

func taskKey(id string) string { return taskPrefix + id }
func msgKey(id string) string  { return taskPrefix + id + ":msg" }

// saveTask writes the task record, on the given pipeline when one is open.
func (q *Queue) saveTask(ctx context.Context, pipe redis.Pipeliner, task *domain.Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("marshal task %s: %w", task.ID, err)
	}
	if pipe != nil {
		pipe.Set(ctx, taskKey(task.ID), data, taskTTL)
		return nil
	}
	return q.client.Set(ctx, taskKey(task.ID), data, taskTTL).Err()
}

// routeTask puts the task on the stream, or parks it when not yet due.
func routeTask(ctx context.Context, pipe redis.Pipeliner, task *domain.Task) {
	if task.ScheduledFor.After(time.Now()) {
		pipe.ZAdd(ctx, parkedKey, redis.Z{
			Score:  float64(task.ScheduledFor.Unix()),
			Member: task.ID,
		})
		return
	}
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey,
		Values: map[string]interface{}{
			"task_id":   task.ID,
			"type":      string(task.Type),
			"tenant_id": task.TenantID,
		},
	})
}

func (q *Queue) Enqueue(ctx context.Context, task *domain.Task) error {
	if task == nil {
		return errors.New("task is required")
	}
	pipe := q.client.Pipeline()
	if err := q.saveTask(ctx, pipe, task); err != nil {
		return err
	}
	routeTask(ctx, pipe, task)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	return nil
}

func (q *Queue) Dequeue(ctx context.Context) (*domain.Task, error) {
	return q.DequeueWithTimeout(ctx, 0)
}

// DequeueWithTimeout promotes due parked tasks, tries to steal an abandoned
// delivery, then reads from the stream. timeout 0 blocks indefinitely.
func (q *Queue) DequeueWithTimeout(ctx context.Context, timeout int) (*domain.Task, error) {
	// Both maintenance passes are best effort; a degraded Redis should not
	// stop fresh deliveries.
	q.promoteParked(ctx)
	if task := q.stealAbandoned(ctx); task != nil {
		return task, nil
	}

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    groupName,
		Consumer: q.consumer,
		Streams:  []string{streamKey, ">"},
		Count:    1,
		Block:    time.Duration(timeout) * time.Second,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil
		}
		return nil, fmt.Errorf("read task stream: %w", err)
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}
	return q.takeDelivery(ctx, streams[0].Messages[0])
}

// takeDelivery resolves a stream message to its task record and marks it
// processing. Messages whose record is gone are acked away.
func (q *Queue) takeDelivery(ctx context.Context, msg redis.XMessage) (*domain.Task, error) {
	id, _ := msg.Values["task_id"].(string)
	if id == "" {
		q.client.XAck(ctx, streamKey, groupName, msg.ID)
		return nil, nil
	}

	task, err := q.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		q.client.XAck(ctx, streamKey, groupName, msg.ID)
		return nil, nil
	}

	task.MarkProcessing()
	if err := q.saveTask(ctx, nil, task); err != nil {
		return nil, err
	}
	q.client.Set(ctx, msgKey(id), msg.ID, taskTTL)
	return task, nil
}

func (q *Queue) Ack(ctx context.Context, taskID string) error {
	msgID, err := q.client.Get(ctx, msgKey(taskID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("ack task %s: %w", taskID, err)
	}

	pipe := q.client.Pipeline()
	if msgID != "" {
		pipe.XAck(ctx, streamKey, groupName, msgID)
		pipe.XDel(ctx, streamKey, msgID)
	}
	if task, err := q.GetTask(ctx, taskID); err == nil && task != nil {
		task.MarkCompleted()
		_ = q.saveTask(ctx, pipe, task)
	}
	pipe.Del(ctx, msgKey(taskID))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ack task %s: %w", taskID, err)
	}
	return nil
}

func (q *Queue) Nack(ctx context.Context, taskID string, reason string) error {
	task, err := q.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		return errors.New("task not found")
	}
	msgID, _ := q.client.Get(ctx, msgKey(taskID)).Result()

	pipe := q.client.Pipeline()
	if msgID != "" {
		pipe.XAck(ctx, streamKey, groupName, msgID)
		pipe.XDel(ctx, streamKey, msgID)
	}

	if task.CanRetry() {
		task.Retry(reason)
		if err := q.saveTask(ctx, pipe, task); err != nil {
			return err
		}
		pipe.ZAdd(ctx, parkedKey, redis.Z{
			Score:  float64(task.ScheduledFor.Unix()),
			Member: task.ID,
		})
	} else {
		task.MarkFailed(reason)
		if err := q.saveTask(ctx, pipe, task); err != nil {
			return err
		}
	}
	pipe.Del(ctx, msgKey(taskID))

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("nack task %s: %w", taskID, err)
	}
	return nil
}

func (q *Queue) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	data, err := q.client.Get(ctx, taskKey(taskID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", taskID, err)
	}
	var task domain.Task
	if err := json.Unmarshal([]byte(data), &task); err != nil {
		return nil, fmt.Errorf("decode task %s: %w", taskID, err)
	}
	return &task, nil
}

// ListTasks scans all task records. O(keys); fine for the admin and test
// paths that use it, the hot path never does.
func (q *Queue) ListTasks(ctx context.Context, filter driven.TaskFilter) ([]*domain.Task, error) {
	var tasks []*domain.Task
	skip := filter.Offset

	err := q.scanTasks(ctx, func(task *domain.Task) bool {
		if filter.TenantID != "" && task.TenantID != filter.TenantID {
			return true
		}
		if filter.Status != "" && task.Status != filter.Status {
			return true
		}
		if filter.Type != "" && task.Type != filter.Type {
			return true
		}
		if skip > 0 {
			skip--
			return true
		}
		tasks = append(tasks, task)
		return filter.Limit == 0 || len(tasks) < filter.Limit
	})
	if err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}
	return tasks, nil
}

// scanTasks walks every task record, calling fn until it returns false.
func (q *Queue) scanTasks(ctx context.Context, fn func(*domain.Task) bool) error {
	var cursor uint64
	for {
		keys, next, err := q.client.Scan(ctx, cursor, taskPrefix+"*", 100).Result()
		if err != nil {
			return fmt.Errorf("scan tasks: %w", err)
		}
		for _, key := range keys {
			if strings.HasSuffix(key, ":msg") {
				continue
			}
			data, err := q.client.Get(ctx, key).Result()
			if err != nil {
				continue
			}
			var task domain.Task
			if json.Unmarshal([]byte(data), &task) != nil {
				continue
			}
			if !fn(&task) {
				return nil
			}
		}
		if cursor = next; cursor == 0 {
			return nil
		}
	}
}

func (q *Queue) Ping(ctx context.Context) error {
	return q.client.Ping(ctx).Err()
}

// Close is a no-op; the Redis client is shared and closed by the caller.
func (q *Queue) Close() error { return nil }

// promoteParked moves due parked tasks onto the stream. Errors are dropped;
// the next dequeue retries.
func (q *Queue) promoteParked(ctx context.Context) {
	due, err := q.client.ZRangeByScore(ctx, parkedKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(time.Now().Unix(), 10),
	}).Result()
	if err != nil || len(due) == 0 {
		return
	}

	pipe := q.client.Pipeline()
	for _, id := range due {
		if task, err := q.GetTask(ctx, id); err == nil && task != nil {
			pipe.XAdd(ctx, &redis.XAddArgs{
				Stream: streamKey,
				Values: map[string]interface{}{
					"task_id":   task.ID,
					"type":      string(task.Type),
					"tenant_id": task.TenantID,
				},
			})
		}
		pipe.ZRem(ctx, parkedKey, id)
	}
	_, _ = pipe.Exec(ctx)
}

// stealAbandoned claims one delivery whose worker went quiet. Returns nil on
// any error; the regular read path still runs.
func (q *Queue) stealAbandoned(ctx context.Context) *domain.Task {
	pending, err := q.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: streamKey,
		Group:  groupName,
		Start:  "-",
		End:    "+",
		Count:  10,
		Idle:   reclaimIdle,
	}).Result()
	if err != nil {
		return nil
	}

	for _, p := range pending {
		claimed, err := q.client.XClaim(ctx, &redis.XClaimArgs{
			Stream:   streamKey,
			Group:    groupName,
			Consumer: q.consumer,
			MinIdle:  reclaimIdle,
			Messages: []string{p.ID},
		}).Result()
		if err != nil || len(claimed) == 0 {
			continue
		}
		task, err := q.takeDelivery(ctx, claimed[0])
		if err == nil && task != nil {
			return task
		}
	}
	return nil
}
