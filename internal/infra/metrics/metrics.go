package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	OrdersCreatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Созданные заказы",
	})
	OrdersPaidTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_paid_total",
		Help: "Оплаченные заказы",
	})
	OrdersFulfilledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "orders_fulfilled_total",
		Help: "Выданные заказы",
	})
	CredentialsIssuedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "credentials_issued_total",
		Help: "Выданные пары логин/пароль",
	})
	CredentialCollisionsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "credential_collisions_total",
		Help: "Коллизии логинов при генерации",
	})
	WebhookEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stripe_webhook_events_total",
		Help: "Обработанные события Stripe",
	}, []string{"type", "status"})
	SeoAnalysisSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "seo_analysis_seconds",
		Help:    "Время SEO-анализа поста",
		Buckets: prometheus.DefBuckets,
	})
	VisitsRecordedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "visits_recorded_total",
		Help: "Записанные посещения витрины",
	})
	MailSendErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mail_send_errors_total",
		Help: "Ошибки отправки писем",
	})

	NetworkRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "network_request_duration_seconds",
		Help:    "Длительность сетевых запросов",
		Buckets: prometheus.DefBuckets,
	}, []string{"component", "operation", "target", "status"})

	NetworkRequestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "network_request_total",
		Help: "Количество сетевых запросов",
	}, []string{"component", "operation", "target", "status"})

	LLMGenerationDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "llm_generation_duration_seconds",
		Help:    "Длительность генерации ответа LLM",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	LLMTokensTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "llm_tokens_total",
		Help: "Количество токенов, использованных LLM",
	}, []string{"model", "type"})
)

// MustRegister регистрирует метрики.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(
		OrdersCreatedTotal,
		OrdersPaidTotal,
		OrdersFulfilledTotal,
		CredentialsIssuedTotal,
		CredentialCollisionsTotal,
		WebhookEventsTotal,
		SeoAnalysisSeconds,
		VisitsRecordedTotal,
		MailSendErrors,
		NetworkRequestDuration,
		NetworkRequestTotal,
		LLMGenerationDuration,
		LLMTokensTotal,
	)
}

// ObserveNetworkRequest записывает длительность и статус сетевого запроса.
func ObserveNetworkRequest(component, operation, target string, start time.Time, err error) {
	if component == "" {
		component = "unknown"
	}
	if operation == "" {
		operation = "unknown"
	}
	if target == "" {
		target = "unknown"
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	duration := time.Since(start).Seconds()
	NetworkRequestDuration.WithLabelValues(component, operation, target, status).Observe(duration)
	NetworkRequestTotal.WithLabelValues(component, operation, target, status).Inc()
}

// ObserveLLMGeneration записывает длительность и токены генерации LLM.
func ObserveLLMGeneration(model string, duration time.Duration, promptTokens, completionTokens, totalTokens int) {
	if model == "" {
		model = "unknown"
	}
	LLMGenerationDuration.WithLabelValues(model).Observe(duration.Seconds())
	if promptTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
	}
	if totalTokens <= 0 {
		totalTokens = promptTokens + completionTokens
	}
	if totalTokens > 0 {
		LLMTokensTotal.WithLabelValues(model, "total").Add(float64(totalTokens))
	}
}

// ObserveWebhookEvent увеличивает счётчик событий вебхука.
func ObserveWebhookEvent(eventType, status string) {
	if eventType == "" {
		eventType = "unknown"
	}
	WebhookEventsTotal.WithLabelValues(eventType, status).Inc()
}
