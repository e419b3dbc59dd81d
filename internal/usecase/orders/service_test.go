package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"iptv-shop/internal/domain"
)

type stubProductRepo struct {
	product domain.Product
	err     error
}

func (s *stubProductRepo) ListActive(ctx context.Context) ([]domain.Product, error) {
	return []domain.Product{s.product}, nil
}

func (s *stubProductRepo) GetProductBySlug(ctx context.Context, slug string) (domain.Product, error) {
	return s.product, s.err
}

type stubCustomerRepo struct {
	customer    domain.Customer
	setUsername string
	setFor      int64
}

func (s *stubCustomerRepo) FindByUsername(ctx context.Context, username string) (*domain.Customer, error) {
	return nil, nil
}

func (s *stubCustomerRepo) UpsertByEmail(ctx context.Context, email, name string) (domain.Customer, error) {
	return s.customer, nil
}

func (s *stubCustomerRepo) SetUsername(ctx context.Context, customerID int64, username string) error {
	s.setFor = customerID
	s.setUsername = username
	return nil
}

type stubOrderRepo struct {
	orders     map[string]domain.Order
	created    []domain.Order
	markedPaid []string
	fulfilled  []string
	savedCreds map[string]domain.Credentials
}

func newStubOrderRepo() *stubOrderRepo {
	return &stubOrderRepo{
		orders:     map[string]domain.Order{},
		savedCreds: map[string]domain.Credentials{},
	}
}

func (s *stubOrderRepo) CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	s.created = append(s.created, order)
	s.orders[order.ID] = order
	return order, nil
}

func (s *stubOrderRepo) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

func (s *stubOrderRepo) GetOrderBySession(ctx context.Context, sessionID string) (domain.Order, error) {
	for _, order := range s.orders {
		if order.StripeSessionID == sessionID {
			return order, nil
		}
	}
	return domain.Order{}, domain.ErrOrderNotFound
}

func (s *stubOrderRepo) MarkPaid(ctx context.Context, id string, paidAt time.Time) error {
	order, ok := s.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.Status = domain.OrderStatusPaid
	order.PaidAt = &paidAt
	s.orders[id] = order
	s.markedPaid = append(s.markedPaid, id)
	return nil
}

func (s *stubOrderRepo) SaveCredentials(ctx context.Context, id string, creds domain.Credentials) error {
	order := s.orders[id]
	order.Credentials = &creds
	s.orders[id] = order
	s.savedCreds[id] = creds
	return nil
}

func (s *stubOrderRepo) MarkFulfilled(ctx context.Context, id string) error {
	order, ok := s.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.Status = domain.OrderStatusFulfilled
	s.orders[id] = order
	s.fulfilled = append(s.fulfilled, id)
	return nil
}

type stubIssuer struct{}

func (stubIssuer) Generate(order domain.OrderSeed) domain.Credentials {
	return domain.Credentials{Username: "user1234", Password: "Ab2Cdefghk"}
}

func (stubIssuer) GenerateUnique(ctx context.Context, order domain.OrderSeed, lookup domain.UsernameLookup) (domain.Credentials, error) {
	return domain.Credentials{Username: "user1234", Password: "Ab2Cdefghk"}, nil
}

type stubGateway struct {
	err error
}

func (s *stubGateway) CreateCheckoutSession(ctx context.Context, order domain.Order) (string, string, error) {
	if s.err != nil {
		return "", "", s.err
	}
	return "cs_test_1", "https://checkout.example/cs_test_1", nil
}

type stubQueue struct {
	jobs []domain.FulfillmentJob
}

func (s *stubQueue) Enqueue(ctx context.Context, job domain.FulfillmentJob) error {
	s.jobs = append(s.jobs, job)
	return nil
}

func (s *stubQueue) Pop(ctx context.Context) (domain.FulfillmentJob, error) {
	return domain.FulfillmentJob{}, errors.New("очередь пуста")
}

// memCache повторяет семантику Once: ключ занимается до первой удачной обработки.
type memCache struct {
	seen map[string]bool
}

func newMemCache() *memCache { return &memCache{seen: map[string]bool{}} }

func (c *memCache) Once(key string, ttl time.Duration, fn func() error) error {
	if c.seen[key] {
		return nil
	}
	if err := fn(); err != nil {
		return err
	}
	c.seen[key] = true
	return nil
}

func (c *memCache) Set(key string, value []byte, ttl time.Duration) error { return nil }

func (c *memCache) Get(key string) ([]byte, error) { return nil, nil }

type stubMailer struct {
	sent []string
	err  error
}

func (s *stubMailer) SendCredentials(ctx context.Context, order domain.Order) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, order.ID)
	return nil
}

type stubNotifier struct {
	notified []string
	err      error
}

func (s *stubNotifier) NotifyOrderPaid(ctx context.Context, order domain.Order) error {
	if s.err != nil {
		return s.err
	}
	s.notified = append(s.notified, order.ID)
	return nil
}

type fixture struct {
	service   *Service
	products  *stubProductRepo
	customers *stubCustomerRepo
	orders    *stubOrderRepo
	queue     *stubQueue
	cache     *memCache
	mailer    *stubMailer
	notifier  *stubNotifier
	gateway   *stubGateway
}

func newFixture() *fixture {
	f := &fixture{
		products: &stubProductRepo{product: domain.Product{
			ID: 1, Slug: "iptv-1m", Name: "IPTV 1 Month", Kind: domain.ProductKindSubscription,
			PriceCents: 1999, Currency: "usd", Active: true,
		}},
		customers: &stubCustomerRepo{customer: domain.Customer{ID: 7, Email: "buyer@example.com"}},
		orders:    newStubOrderRepo(),
		queue:     &stubQueue{},
		cache:     newMemCache(),
		mailer:    &stubMailer{},
		notifier:  &stubNotifier{},
		gateway:   &stubGateway{},
	}
	f.service = NewService(f.products, f.customers, f.orders, stubIssuer{}, f.gateway,
		f.queue, f.cache, f.mailer, f.notifier, zerolog.Nop())
	return f
}

func TestCheckout_CreatesOrderWithSession(t *testing.T) {
	f := newFixture()

	result, err := f.service.Checkout(context.Background(), "iptv-1m", "buyer@example.com", "John Doe")
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if result.CheckoutURL != "https://checkout.example/cs_test_1" {
		t.Fatalf("неожиданный URL оплаты: %q", result.CheckoutURL)
	}
	if len(f.orders.created) != 1 {
		t.Fatalf("ожидали один заказ, получили %d", len(f.orders.created))
	}
	order := f.orders.created[0]
	if order.ID != result.OrderID {
		t.Fatalf("id заказа не совпадает: %q vs %q", order.ID, result.OrderID)
	}
	if order.StripeSessionID != "cs_test_1" {
		t.Fatalf("ожидали cs_test_1, получили %q", order.StripeSessionID)
	}
	if order.Status != domain.OrderStatusPending {
		t.Fatalf("ожидали pending, получили %q", order.Status)
	}
	if order.AmountCents != 1999 || order.ProductName != "IPTV 1 Month" {
		t.Fatalf("данные товара не перенесены в заказ: %+v", order)
	}
}

func TestCheckout_InactiveProduct(t *testing.T) {
	f := newFixture()
	f.products.product.Active = false

	_, err := f.service.Checkout(context.Background(), "iptv-1m", "buyer@example.com", "John Doe")
	if !errors.Is(err, ErrProductUnavailable) {
		t.Fatalf("ожидали ErrProductUnavailable, получили %v", err)
	}
	if len(f.orders.created) != 0 {
		t.Fatalf("не ожидали создания заказа")
	}
}

func TestCheckout_GatewayError(t *testing.T) {
	f := newFixture()
	f.gateway.err = errors.New("stripe недоступен")

	if _, err := f.service.Checkout(context.Background(), "iptv-1m", "buyer@example.com", "John Doe"); err == nil {
		t.Fatalf("ожидали ошибку шлюза")
	}
	if len(f.orders.created) != 0 {
		t.Fatalf("заказ не должен создаваться без платёжной сессии")
	}
}

func paidFixture(t *testing.T) (*fixture, domain.Order) {
	t.Helper()
	f := newFixture()
	order := domain.Order{
		ID:              "ord-1",
		CustomerID:      7,
		CustomerName:    "John Doe",
		Email:           "buyer@example.com",
		ProductName:     "IPTV 1 Month",
		Status:          domain.OrderStatusPending,
		AmountCents:     1999,
		Currency:        "usd",
		StripeSessionID: "cs_test_1",
	}
	f.orders.orders[order.ID] = order
	return f, order
}

func TestHandlePaid_IssuesCredentialsAndEnqueues(t *testing.T) {
	f, order := paidFixture(t)

	err := f.service.HandlePaid(context.Background(), PaymentEvent{
		EventID:   "evt_1",
		OrderID:   order.ID,
		SessionID: order.StripeSessionID,
		PaidAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(f.orders.markedPaid) != 1 || f.orders.markedPaid[0] != order.ID {
		t.Fatalf("заказ не отмечен оплаченным: %v", f.orders.markedPaid)
	}
	creds, ok := f.orders.savedCreds[order.ID]
	if !ok {
		t.Fatalf("креды не сохранены")
	}
	if f.customers.setUsername != creds.Username || f.customers.setFor != 7 {
		t.Fatalf("логин не закреплён за покупателем: %q для %d", f.customers.setUsername, f.customers.setFor)
	}
	if len(f.queue.jobs) != 1 || f.queue.jobs[0].OrderID != order.ID {
		t.Fatalf("задача на выдачу не поставлена: %v", f.queue.jobs)
	}
	if len(f.notifier.notified) != 1 {
		t.Fatalf("оператор не уведомлён")
	}
}

func TestHandlePaid_DuplicateEventIgnored(t *testing.T) {
	f, order := paidFixture(t)
	event := PaymentEvent{EventID: "evt_1", OrderID: order.ID, SessionID: order.StripeSessionID}

	if err := f.service.HandlePaid(context.Background(), event); err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if err := f.service.HandlePaid(context.Background(), event); err != nil {
		t.Fatalf("не ожидали ошибку на повторе: %v", err)
	}
	if len(f.queue.jobs) != 1 {
		t.Fatalf("повторное событие не должно ставить вторую задачу, получили %d", len(f.queue.jobs))
	}
	if len(f.orders.markedPaid) != 1 {
		t.Fatalf("повторное событие не должно трогать заказ")
	}
}

func TestHandlePaid_AlreadyPaidOrder(t *testing.T) {
	f, order := paidFixture(t)
	order.Status = domain.OrderStatusPaid
	f.orders.orders[order.ID] = order

	// Другой event id, то же состояние заказа: защита работает и без кэша.
	err := f.service.HandlePaid(context.Background(), PaymentEvent{
		EventID: "evt_2", OrderID: order.ID, SessionID: order.StripeSessionID,
	})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(f.orders.markedPaid) != 0 {
		t.Fatalf("оплаченный заказ нельзя отмечать повторно")
	}
	if len(f.queue.jobs) != 0 {
		t.Fatalf("задача не должна ставиться повторно")
	}
}

func TestHandlePaid_MissingEventIDDoesNotShareDedupeKey(t *testing.T) {
	f, first := paidFixture(t)
	second := first
	second.ID = "ord-2"
	second.StripeSessionID = "cs_test_2"
	f.orders.orders[second.ID] = second

	// Два события без id по разным сессиям: оба должны быть обработаны.
	for _, order := range []domain.Order{first, second} {
		err := f.service.HandlePaid(context.Background(), PaymentEvent{
			OrderID: order.ID, SessionID: order.StripeSessionID,
		})
		if err != nil {
			t.Fatalf("не ожидали ошибку: %v", err)
		}
	}
	if len(f.orders.markedPaid) != 2 {
		t.Fatalf("ожидали две оплаты, получили %v", f.orders.markedPaid)
	}

	// Повтор того же события без id по-прежнему отсекается.
	err := f.service.HandlePaid(context.Background(), PaymentEvent{
		OrderID: first.ID, SessionID: first.StripeSessionID,
	})
	if err != nil {
		t.Fatalf("не ожидали ошибку на повторе: %v", err)
	}
	if len(f.orders.markedPaid) != 2 {
		t.Fatalf("повтор не должен обрабатываться: %v", f.orders.markedPaid)
	}
}

func TestHandlePaid_ResolvesBySession(t *testing.T) {
	f, order := paidFixture(t)

	err := f.service.HandlePaid(context.Background(), PaymentEvent{
		EventID: "evt_3", SessionID: order.StripeSessionID,
	})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(f.orders.markedPaid) != 1 {
		t.Fatalf("заказ не найден по сессии")
	}
}

func TestHandlePaid_NotifierErrorNotFatal(t *testing.T) {
	f, order := paidFixture(t)
	f.notifier.err = errors.New("telegram недоступен")

	err := f.service.HandlePaid(context.Background(), PaymentEvent{
		EventID: "evt_1", OrderID: order.ID, SessionID: order.StripeSessionID,
	})
	if err != nil {
		t.Fatalf("ошибка уведомления не должна ломать обработку: %v", err)
	}
	if len(f.queue.jobs) != 1 {
		t.Fatalf("задача на выдачу должна быть поставлена")
	}
}

func TestFulfill_SendsMailAndCloses(t *testing.T) {
	f, order := paidFixture(t)
	order.Status = domain.OrderStatusPaid
	order.Credentials = &domain.Credentials{Username: "user1234", Password: "Ab2Cdefghk"}
	f.orders.orders[order.ID] = order

	err := f.service.Fulfill(context.Background(), domain.FulfillmentJob{OrderID: order.ID})
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if len(f.mailer.sent) != 1 || f.mailer.sent[0] != order.ID {
		t.Fatalf("письмо не отправлено: %v", f.mailer.sent)
	}
	if len(f.orders.fulfilled) != 1 {
		t.Fatalf("заказ не закрыт")
	}
}

func TestFulfill_AlreadyFulfilled(t *testing.T) {
	f, order := paidFixture(t)
	order.Status = domain.OrderStatusFulfilled
	f.orders.orders[order.ID] = order

	err := f.service.Fulfill(context.Background(), domain.FulfillmentJob{OrderID: order.ID})
	if !errors.Is(err, ErrAlreadyFulfilled) {
		t.Fatalf("ожидали ErrAlreadyFulfilled, получили %v", err)
	}
	if len(f.mailer.sent) != 0 {
		t.Fatalf("письмо не должно отправляться повторно")
	}
}

func TestFulfill_MailErrorKeepsOrderOpen(t *testing.T) {
	f, order := paidFixture(t)
	order.Status = domain.OrderStatusPaid
	order.Credentials = &domain.Credentials{Username: "user1234", Password: "Ab2Cdefghk"}
	f.orders.orders[order.ID] = order
	f.mailer.err = errors.New("resend недоступен")

	if err := f.service.Fulfill(context.Background(), domain.FulfillmentJob{OrderID: order.ID}); err == nil {
		t.Fatalf("ожидали ошибку отправки")
	}
	if len(f.orders.fulfilled) != 0 {
		t.Fatalf("заказ нельзя закрывать без письма")
	}
}

func TestFulfill_MissingCredentials(t *testing.T) {
	f, order := paidFixture(t)
	order.Status = domain.OrderStatusPaid
	f.orders.orders[order.ID] = order

	if err := f.service.Fulfill(context.Background(), domain.FulfillmentJob{OrderID: order.ID}); err == nil {
		t.Fatalf("ожидали ошибку для заказа без кредов")
	}
}
