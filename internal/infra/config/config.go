package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	Port   int    `envconfig:"PORT" default:"8080"`

	AdminToken string `envconfig:"ADMIN_TOKEN"`

	PGDSN string `envconfig:"PG_DSN"`

	RedisAddr string `envconfig:"REDIS_ADDR"`

	Stripe struct {
		SecretKey     string `envconfig:"STRIPE_SECRET_KEY"`
		WebhookSecret string `envconfig:"STRIPE_WEBHOOK_SECRET"`
		SuccessURL    string `envconfig:"STRIPE_SUCCESS_URL"`
		CancelURL     string `envconfig:"STRIPE_CANCEL_URL"`
	} `envconfig:""`

	Resend struct {
		APIKey string `envconfig:"RESEND_API_KEY"`
		From   string `envconfig:"RESEND_FROM" default:"support@iptv.shop"`
	} `envconfig:""`

	Telegram struct {
		Token  string `envconfig:"TG_BOT_TOKEN"`
		ChatID int64  `envconfig:"TG_ADMIN_CHAT_ID"`
	} `envconfig:""`

	OpenAI struct {
		APIKey  string        `envconfig:"OPENAI_API_KEY"`
		BaseURL string        `envconfig:"OPENAI_BASE_URL"`
		Model   string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
		Timeout time.Duration `envconfig:"OPENAI_TIMEOUT" default:"60s"`
	} `envconfig:""`

	Queues struct {
		Backend     string `envconfig:"QUEUE_BACKEND" default:"redis"`
		Fulfillment string `envconfig:"FULFILLMENT_QUEUE_KEY" default:"fulfillment_jobs"`
		AMQPURL     string `envconfig:"AMQP_URL"`
	} `envconfig:""`

	Tracking struct {
		DedupeTTL time.Duration `envconfig:"TRACKING_DEDUPE_TTL" default:"30m"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
