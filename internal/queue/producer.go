package queue

import (
	"context"

	"github.com/amanihub/amani/internal/domain"
	"github.com/amanihub/amani/internal/logger"
	"github.com/redis/go-redis/v9"
)

// Producer appends task envelopes to the tail of one ordered broker list.
// The list is FIFO by convention: producers LPUSH, workers BRPOP. The
// producer never reads the list - it cannot observe queue depth beyond the
// length returned at push time, worker liveness, or acknowledgements, and it
// performs no retries. A push failure surfaces to the caller.
type Producer struct {
	rdb   *redis.Client
	queue string
}

// NewProducer creates a Producer bound to a broker list.
// Parameters:
//   - rdb: connected Redis client (owned by the caller).
//   - queue: broker list name, e.g. "task_queue".
// Returns:
//   - *Producer: initialized producer.
func NewProducer(rdb *redis.Client, queue string) *Producer {
	return &Producer{rdb: rdb, queue: queue}
}

// Queue returns the broker list name.
func (p *Producer) Queue() string {
	return p.queue
}

// Push serializes the task and appends it to the broker list.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - task: task to enqueue.
// Returns:
//   - int64: list length after the push (the task's queue position).
//   - error: domain.UpstreamError if serialization or the broker push fails.
func (p *Producer) Push(ctx context.Context, task Task) (int64, error) {
	data, err := Encode(task)
	if err != nil {
		return 0, domain.NewUpstreamError("queue encode", err)
	}

	length, err := p.rdb.LPush(ctx, p.queue, data).Result()
	if err != nil {
		return 0, domain.NewUpstreamError("queue push", err)
	}

	logger.With(logger.Fields{
		logger.FieldTaskType: task.TaskType(),
		logger.FieldCount:    length,
	}).Info(ctx, "Task pushed to %s", p.queue)

	return length, nil
}
