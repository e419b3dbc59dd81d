package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"iptv-shop/internal/domain"
	"iptv-shop/internal/infra/metrics"
)

// ErrProductUnavailable возвращается при попытке купить неактивный товар.
var ErrProductUnavailable = errors.New("товар недоступен для покупки")

// ErrAlreadyFulfilled возвращается, если заказ уже выдан.
var ErrAlreadyFulfilled = errors.New("заказ уже выдан")

// webhookDedupeTTL — окно идемпотентности для событий Stripe.
const webhookDedupeTTL = 24 * time.Hour

// Service реализует бизнес-логику заказов: оформление, оплату, выдачу.
type Service struct {
	products  domain.ProductRepo
	customers domain.CustomerRepo
	orders    domain.OrderRepo
	issuer    domain.CredentialIssuer
	gateway   domain.PaymentGateway
	queue     domain.FulfillmentQueue
	cache     domain.Cache
	mailer    domain.Mailer
	notifier  domain.Notifier
	logger    zerolog.Logger
}

// NewService создаёт сервис заказов.
func NewService(
	products domain.ProductRepo,
	customers domain.CustomerRepo,
	orders domain.OrderRepo,
	issuer domain.CredentialIssuer,
	gateway domain.PaymentGateway,
	queue domain.FulfillmentQueue,
	cache domain.Cache,
	mailer domain.Mailer,
	notifier domain.Notifier,
	logger zerolog.Logger,
) *Service {
	return &Service{
		products:  products,
		customers: customers,
		orders:    orders,
		issuer:    issuer,
		gateway:   gateway,
		queue:     queue,
		cache:     cache,
		mailer:    mailer,
		notifier:  notifier,
		logger:    logger,
	}
}

// CheckoutResult — результат оформления заказа.
type CheckoutResult struct {
	OrderID     string
	CheckoutURL string
}

// Checkout создаёт заказ и платёжную сессию для товара.
func (s *Service) Checkout(ctx context.Context, productSlug, email, name string) (CheckoutResult, error) {
	product, err := s.products.GetProductBySlug(ctx, productSlug)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("поиск товара: %w", err)
	}
	if !product.Active {
		return CheckoutResult{}, ErrProductUnavailable
	}

	customer, err := s.customers.UpsertByEmail(ctx, email, name)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("сохранение покупателя: %w", err)
	}

	order := domain.Order{
		ID:           uuid.NewString(),
		CustomerID:   customer.ID,
		CustomerName: name,
		Email:        email,
		ProductID:    product.ID,
		ProductName:  product.Name,
		Status:       domain.OrderStatusPending,
		AmountCents:  product.PriceCents,
		Currency:     product.Currency,
	}

	sessionID, checkoutURL, err := s.gateway.CreateCheckoutSession(ctx, order)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("создание платёжной сессии: %w", err)
	}
	order.StripeSessionID = sessionID

	if _, err := s.orders.CreateOrder(ctx, order); err != nil {
		return CheckoutResult{}, fmt.Errorf("создание заказа: %w", err)
	}
	metrics.OrdersCreatedTotal.Inc()

	s.logger.Info().Str("order_id", order.ID).Str("product", product.Slug).Msg("заказ оформлен")
	return CheckoutResult{OrderID: order.ID, CheckoutURL: checkoutURL}, nil
}

// PaymentEvent — подтверждённое событие оплаты от провайдера.
type PaymentEvent struct {
	EventID   string
	OrderID   string
	SessionID string
	PaidAt    time.Time
}

// HandlePaid обрабатывает оплату заказа: выдаёт креды и ставит задачу на выдачу.
// Повторная доставка того же события провайдером безопасна.
func (s *Service) HandlePaid(ctx context.Context, event PaymentEvent) error {
	return s.cache.Once(dedupeKey(event), webhookDedupeTTL, func() error {
		return s.processPaid(ctx, event)
	})
}

// dedupeKey строит ключ идемпотентности. Событие без id не должно делить
// ключ с другими такими же: откатываемся на id сессии, затем заказа.
func dedupeKey(event PaymentEvent) string {
	switch {
	case event.EventID != "":
		return "stripe:event:" + event.EventID
	case event.SessionID != "":
		return "stripe:session:" + event.SessionID
	default:
		return "stripe:order:" + event.OrderID
	}
}

func (s *Service) processPaid(ctx context.Context, event PaymentEvent) error {
	order, err := s.resolveOrder(ctx, event)
	if err != nil {
		return err
	}
	if order.Status != domain.OrderStatusPending {
		s.logger.Info().Str("order_id", order.ID).Str("status", string(order.Status)).
			Msg("повторное событие оплаты, заказ уже обработан")
		return nil
	}

	paidAt := event.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now().UTC()
	}
	if err := s.orders.MarkPaid(ctx, order.ID, paidAt); err != nil {
		return fmt.Errorf("отметка оплаты заказа %s: %w", order.ID, err)
	}
	metrics.OrdersPaidTotal.Inc()
	order.Status = domain.OrderStatusPaid
	order.PaidAt = &paidAt

	creds, err := s.issuer.GenerateUnique(ctx, domain.OrderSeed{
		ID:           order.ID,
		CustomerName: order.CustomerName,
	}, s.customers.FindByUsername)
	if err != nil {
		return fmt.Errorf("выдача кредов заказа %s: %w", order.ID, err)
	}
	if err := s.orders.SaveCredentials(ctx, order.ID, creds); err != nil {
		return fmt.Errorf("сохранение кредов заказа %s: %w", order.ID, err)
	}
	if err := s.customers.SetUsername(ctx, order.CustomerID, creds.Username); err != nil {
		return fmt.Errorf("закрепление логина за покупателем: %w", err)
	}
	metrics.CredentialsIssuedTotal.Inc()
	order.Credentials = &creds

	job := domain.FulfillmentJob{
		ID:          uuid.NewString(),
		OrderID:     order.ID,
		RequestedAt: time.Now().UTC(),
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("постановка задачи на выдачу: %w", err)
	}

	if err := s.notifier.NotifyOrderPaid(ctx, order); err != nil {
		// Уведомление оператора не должно ломать обработку оплаты.
		s.logger.Error().Err(err).Str("order_id", order.ID).Msg("не удалось уведомить оператора")
	}

	s.logger.Info().Str("order_id", order.ID).Str("username", creds.Username).Msg("оплата обработана")
	return nil
}

func (s *Service) resolveOrder(ctx context.Context, event PaymentEvent) (domain.Order, error) {
	if event.OrderID != "" {
		order, err := s.orders.GetOrder(ctx, event.OrderID)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, domain.ErrOrderNotFound) {
			return domain.Order{}, fmt.Errorf("поиск заказа %s: %w", event.OrderID, err)
		}
	}
	order, err := s.orders.GetOrderBySession(ctx, event.SessionID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("поиск заказа по сессии %s: %w", event.SessionID, err)
	}
	return order, nil
}

// Fulfill выполняет задачу выдачи: отправляет креды почтой и закрывает заказ.
func (s *Service) Fulfill(ctx context.Context, job domain.FulfillmentJob) error {
	order, err := s.orders.GetOrder(ctx, job.OrderID)
	if err != nil {
		return fmt.Errorf("поиск заказа %s: %w", job.OrderID, err)
	}
	if order.Status == domain.OrderStatusFulfilled {
		return ErrAlreadyFulfilled
	}
	if order.Credentials == nil {
		return fmt.Errorf("у заказа %s нет кредов для отправки", order.ID)
	}

	if err := s.mailer.SendCredentials(ctx, order); err != nil {
		return fmt.Errorf("отправка письма с кредами: %w", err)
	}
	if err := s.orders.MarkFulfilled(ctx, order.ID); err != nil {
		return fmt.Errorf("закрытие заказа %s: %w", order.ID, err)
	}
	metrics.OrdersFulfilledTotal.Inc()

	s.logger.Info().Str("order_id", order.ID).Msg("заказ выдан")
	return nil
}

// GetOrderStatus возвращает заказ по id для страницы успешной оплаты.
func (s *Service) GetOrderStatus(ctx context.Context, id string) (domain.Order, error) {
	return s.orders.GetOrder(ctx, id)
}
