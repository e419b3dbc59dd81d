package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"iptv-shop/internal/domain"
)

// RedisFulfillmentQueue реализует очередь задач на базе Redis lists.
type RedisFulfillmentQueue struct {
	client *redis.Client
	key    string
}

var _ domain.FulfillmentQueue = (*RedisFulfillmentQueue)(nil)

// NewRedisFulfillmentQueue создаёт очередь по указанному ключу.
func NewRedisFulfillmentQueue(client *redis.Client, key string) *RedisFulfillmentQueue {
	return &RedisFulfillmentQueue{client: client, key: key}
}

// Enqueue публикует задачу в очередь.
func (q *RedisFulfillmentQueue) Enqueue(ctx context.Context, job domain.FulfillmentJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("кодирование задачи: %w", err)
	}
	if err := q.client.LPush(ctx, q.key, payload).Err(); err != nil {
		return fmt.Errorf("публикация задачи: %w", err)
	}
	return nil
}

// Pop блокирующе читает задачу из очереди.
func (q *RedisFulfillmentQueue) Pop(ctx context.Context) (domain.FulfillmentJob, error) {
	for {
		if err := ctx.Err(); err != nil {
			return domain.FulfillmentJob{}, err
		}

		res, err := q.client.BRPop(ctx, time.Second, q.key).Result()
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				if ctx.Err() != nil {
					return domain.FulfillmentJob{}, ctx.Err()
				}
				continue
			}
			if errors.Is(err, redis.Nil) {
				continue
			}
			return domain.FulfillmentJob{}, err
		}
		if len(res) != 2 {
			return domain.FulfillmentJob{}, errors.New("неожиданный ответ redis")
		}
		var job domain.FulfillmentJob
		if err := json.Unmarshal([]byte(res[1]), &job); err != nil {
			return domain.FulfillmentJob{}, fmt.Errorf("разбор задачи: %w", err)
		}
		return job, nil
	}
}
