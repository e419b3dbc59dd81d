package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"iptv-shop/internal/domain"
	"iptv-shop/internal/infra/metrics"
)

// AMQPFulfillmentQueue реализует очередь задач поверх RabbitMQ.
type AMQPFulfillmentQueue struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	queue      string
	deliveries <-chan amqp.Delivery
}

var _ domain.FulfillmentQueue = (*AMQPFulfillmentQueue)(nil)

// NewAMQPFulfillmentQueue подключается к брокеру и объявляет очередь.
func NewAMQPFulfillmentQueue(url, queueName string) (*AMQPFulfillmentQueue, error) {
	if url == "" {
		return nil, errors.New("amqp url is empty")
	}
	if queueName == "" {
		return nil, errors.New("queue name is empty")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("подключение к amqp: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("открытие канала: %w", err)
	}
	if _, err := channel.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("объявление очереди: %w", err)
	}
	return &AMQPFulfillmentQueue{conn: conn, channel: channel, queue: queueName}, nil
}

// Enqueue публикует задачу в очередь.
func (q *AMQPFulfillmentQueue) Enqueue(ctx context.Context, job domain.FulfillmentJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("кодирование задачи: %w", err)
	}
	start := time.Now()
	err = q.channel.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         payload,
	})
	metrics.ObserveNetworkRequest("rabbitmq", "publish", q.queue, start, err)
	if err != nil {
		return fmt.Errorf("публикация задачи: %w", err)
	}
	return nil
}

// Pop блокирующе читает задачу из очереди.
func (q *AMQPFulfillmentQueue) Pop(ctx context.Context) (domain.FulfillmentJob, error) {
	if q.deliveries == nil {
		deliveries, err := q.channel.Consume(q.queue, "", false, false, false, false, nil)
		if err != nil {
			return domain.FulfillmentJob{}, fmt.Errorf("запуск потребителя: %w", err)
		}
		q.deliveries = deliveries
	}
	for {
		select {
		case <-ctx.Done():
			return domain.FulfillmentJob{}, ctx.Err()
		case delivery, ok := <-q.deliveries:
			if !ok {
				return domain.FulfillmentJob{}, errors.New("amqp queue: channel closed")
			}
			var job domain.FulfillmentJob
			if err := json.Unmarshal(delivery.Body, &job); err != nil {
				// Нечитаемое сообщение не возвращаем в очередь.
				_ = delivery.Nack(false, false)
				return domain.FulfillmentJob{}, fmt.Errorf("разбор задачи: %w", err)
			}
			if err := delivery.Ack(false); err != nil {
				return domain.FulfillmentJob{}, fmt.Errorf("подтверждение задачи: %w", err)
			}
			return job, nil
		}
	}
}

// Close освобождает канал и соединение.
func (q *AMQPFulfillmentQueue) Close() error {
	if err := q.channel.Close(); err != nil {
		_ = q.conn.Close()
		return err
	}
	return q.conn.Close()
}
