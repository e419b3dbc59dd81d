package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"iptv-shop/internal/adapters/credentials"
	"iptv-shop/internal/adapters/repo"
	"iptv-shop/internal/adapters/resend"
	"iptv-shop/internal/adapters/stripe"
	"iptv-shop/internal/adapters/telegram"
	"iptv-shop/internal/domain"
	"iptv-shop/internal/infra/cache"
	"iptv-shop/internal/infra/config"
	"iptv-shop/internal/infra/db"
	infralog "iptv-shop/internal/infra/log"
	"iptv-shop/internal/infra/metrics"
	"iptv-shop/internal/infra/queue"
	ordersusecase "iptv-shop/internal/usecase/orders"
)

// maxFulfillAttempts ограничивает число повторов задачи выдачи.
const maxFulfillAttempts = 5

func main() {
	cfg := config.Load()
	logger := infralog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("worker: нет подключения к БД")
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	redisCache := cache.NewRedis(redisClient)

	repoAdapter := repo.NewPostgres(pool)

	var fulfillmentQueue domain.FulfillmentQueue
	if cfg.Queues.Backend == "amqp" {
		amqpQueue, err := queue.NewAMQPFulfillmentQueue(cfg.Queues.AMQPURL, cfg.Queues.Fulfillment)
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: очередь выдачи недоступна")
		}
		defer amqpQueue.Close()
		fulfillmentQueue = amqpQueue
	} else {
		fulfillmentQueue = queue.NewRedisFulfillmentQueue(redisClient, cfg.Queues.Fulfillment)
	}

	var notifier domain.Notifier = noopNotifier{}
	if cfg.Telegram.Token != "" {
		tgNotifier, err := telegram.NewNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			logger.Fatal().Err(err).Msg("worker: telegram-бот недоступен")
		}
		notifier = tgNotifier
	}

	mailer := resend.NewClient(cfg.Resend.APIKey, cfg.Resend.From)
	stripeClient := stripe.NewClient(stripe.Config{SecretKey: cfg.Stripe.SecretKey})
	gateway := stripe.NewGateway(stripeClient, cfg.Stripe.SuccessURL, cfg.Stripe.CancelURL)

	ordersService := ordersusecase.NewService(
		repoAdapter, repoAdapter, repoAdapter,
		credentials.New(), gateway, fulfillmentQueue, redisCache, mailer, notifier,
		logger.With().Str("component", "orders").Logger(),
	)

	logger.Info().Str("backend", cfg.Queues.Backend).Msg("worker: запущен")
	for {
		job, err := fulfillmentQueue.Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Error().Err(err).Msg("worker: ошибка чтения очереди")
			time.Sleep(time.Second)
			continue
		}

		if err := ordersService.Fulfill(ctx, job); err != nil {
			if errors.Is(err, ordersusecase.ErrAlreadyFulfilled) {
				logger.Info().Str("order_id", job.OrderID).Msg("worker: заказ уже выдан")
				continue
			}
			logger.Error().Err(err).Str("order_id", job.OrderID).Int("attempt", job.Attempt).
				Msg("worker: не удалось выдать заказ")
			requeue(ctx, fulfillmentQueue, job, logger)
			continue
		}
		logger.Info().Str("order_id", job.OrderID).Msg("worker: заказ выдан")
	}

	logger.Info().Msg("worker: остановлен")
}

// noopNotifier используется, когда telegram не настроен.
type noopNotifier struct{}

func (noopNotifier) NotifyOrderPaid(ctx context.Context, order domain.Order) error { return nil }

func requeue(ctx context.Context, q domain.FulfillmentQueue, job domain.FulfillmentJob, logger zerolog.Logger) {
	if job.Attempt+1 >= maxFulfillAttempts {
		logger.Error().Str("order_id", job.OrderID).Msg("worker: попытки исчерпаны, задача отброшена")
		return
	}
	job.Attempt++
	if err := q.Enqueue(ctx, job); err != nil {
		logger.Error().Err(err).Str("order_id", job.OrderID).Msg("worker: не удалось вернуть задачу в очередь")
	}
}
