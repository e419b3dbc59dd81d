package main

import (
	"context"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"

	"iptv-shop/internal/adapters/credentials"
	"iptv-shop/internal/adapters/generator"
	"iptv-shop/internal/adapters/repo"
	"iptv-shop/internal/adapters/resend"
	"iptv-shop/internal/adapters/seo"
	"iptv-shop/internal/adapters/stripe"
	"iptv-shop/internal/adapters/telegram"
	"iptv-shop/internal/domain"
	"iptv-shop/internal/infra/cache"
	"iptv-shop/internal/infra/config"
	"iptv-shop/internal/infra/db"
	httpinfra "iptv-shop/internal/infra/http"
	infralog "iptv-shop/internal/infra/log"
	"iptv-shop/internal/infra/metrics"
	"iptv-shop/internal/infra/openai"
	"iptv-shop/internal/infra/queue"
	blogusecase "iptv-shop/internal/usecase/blog"
	ordersusecase "iptv-shop/internal/usecase/orders"
	trackingusecase "iptv-shop/internal/usecase/tracking"
)

func main() {
	cfg := config.Load()
	logger := infralog.NewLogger(cfg.AppEnv)

	metrics.MustRegister(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := db.Connect(cfg.PGDSN)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: нет подключения к БД")
	}
	defer pool.Close()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	redisCache := cache.NewRedis(redisClient)

	repoAdapter := repo.NewPostgres(pool)

	fulfillmentQueue, err := buildQueue(cfg, redisClient)
	if err != nil {
		logger.Fatal().Err(err).Msg("api: очередь выдачи недоступна")
	}

	stripeClient := stripe.NewClient(stripe.Config{SecretKey: cfg.Stripe.SecretKey})
	gateway := stripe.NewGateway(stripeClient, cfg.Stripe.SuccessURL, cfg.Stripe.CancelURL)

	var notifier domain.Notifier
	if cfg.Telegram.Token != "" {
		tgNotifier, err := telegram.NewNotifier(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			logger.Fatal().Err(err).Msg("api: telegram-бот недоступен")
		}
		notifier = tgNotifier
	} else {
		notifier = noopNotifier{}
	}

	mailer := resend.NewClient(cfg.Resend.APIKey, cfg.Resend.From)

	var contentGen domain.ContentGenerator
	if cfg.OpenAI.APIKey != "" {
		openaiClient := openai.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Timeout)
		contentGen = generator.NewOpenAIGenerator(openaiClient, cfg.OpenAI.Model)
	}

	ordersService := ordersusecase.NewService(
		repoAdapter, repoAdapter, repoAdapter,
		credentials.New(), gateway, fulfillmentQueue, redisCache, mailer, notifier,
		logger.With().Str("component", "orders").Logger(),
	)
	blogService := blogusecase.NewService(
		repoAdapter, seo.New(), contentGen,
		logger.With().Str("component", "blog").Logger(),
	)
	trackingService := trackingusecase.NewService(
		repoAdapter, redisCache, cfg.Tracking.DedupeTTL,
		logger.With().Str("component", "tracking").Logger(),
	)

	server := httpinfra.NewServer(logger)
	h := &handlers{
		orders:        ordersService,
		blog:          blogService,
		tracking:      trackingService,
		products:      repoAdapter,
		webhookSecret: cfg.Stripe.WebhookSecret,
		log:           logger,
	}
	h.register(server.Router, cfg.AdminToken)

	go func() {
		if err := server.Start(":" + strconv.Itoa(cfg.Port)); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("api: HTTP сервер упал")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("api: ошибка остановки сервера")
	}
	logger.Info().Msg("api: остановлен")
}

func buildQueue(cfg config.AppConfig, redisClient *redis.Client) (domain.FulfillmentQueue, error) {
	if cfg.Queues.Backend == "amqp" {
		return queue.NewAMQPFulfillmentQueue(cfg.Queues.AMQPURL, cfg.Queues.Fulfillment)
	}
	return queue.NewRedisFulfillmentQueue(redisClient, cfg.Queues.Fulfillment), nil
}

// noopNotifier используется, когда telegram не настроен.
type noopNotifier struct{}

func (noopNotifier) NotifyOrderPaid(ctx context.Context, order domain.Order) error { return nil }
