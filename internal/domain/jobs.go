package domain

import (
	"context"
	"time"
)

// FulfillmentJob содержит информацию о задаче выдачи заказа.
type FulfillmentJob struct {
	ID          string    `json:"job_id,omitempty"`
	OrderID     string    `json:"order_id"`
	Attempt     int       `json:"attempt"`
	RequestedAt time.Time `json:"requested_at"`
}

// FulfillmentQueue описывает очередь задач на выдачу заказов.
type FulfillmentQueue interface {
	Enqueue(ctx context.Context, job FulfillmentJob) error
	Pop(ctx context.Context) (FulfillmentJob, error)
}
