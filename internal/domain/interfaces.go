package domain

import (
	"context"
	"time"
)

// SeoAnalyzer оценивает контент поста и возвращает полный разбор.
type SeoAnalyzer interface {
	Analyze(input ContentInput) SeoScore
}

// UsernameLookup ищет покупателя по логину. Возвращает nil, если логин свободен.
type UsernameLookup func(ctx context.Context, username string) (*Customer, error)

// CredentialIssuer выводит креды из заказа.
type CredentialIssuer interface {
	// Generate детерминирован: одинаковый заказ даёт одинаковые креды.
	Generate(order OrderSeed) Credentials
	// GenerateUnique дополнительно проверяет логин на коллизии через lookup.
	GenerateUnique(ctx context.Context, order OrderSeed, lookup UsernameLookup) (Credentials, error)
}

// CustomerRepo управляет покупателями.
type CustomerRepo interface {
	FindByUsername(ctx context.Context, username string) (*Customer, error)
	UpsertByEmail(ctx context.Context, email, name string) (Customer, error)
	SetUsername(ctx context.Context, customerID int64, username string) error
}

// OrderRepo управляет заказами.
type OrderRepo interface {
	CreateOrder(ctx context.Context, order Order) (Order, error)
	GetOrder(ctx context.Context, id string) (Order, error)
	GetOrderBySession(ctx context.Context, sessionID string) (Order, error)
	MarkPaid(ctx context.Context, id string, paidAt time.Time) error
	SaveCredentials(ctx context.Context, id string, creds Credentials) error
	MarkFulfilled(ctx context.Context, id string) error
}

// ProductRepo отдаёт каталог.
type ProductRepo interface {
	ListActive(ctx context.Context) ([]Product, error)
	GetProductBySlug(ctx context.Context, slug string) (Product, error)
}

// BlogRepo управляет постами блога.
type BlogRepo interface {
	CreatePost(ctx context.Context, post BlogPost) (BlogPost, error)
	UpdatePost(ctx context.Context, post BlogPost) (BlogPost, error)
	GetPostBySlug(ctx context.Context, slug string) (BlogPost, error)
	ListPublished(ctx context.Context, limit, offset int) ([]BlogPost, error)
}

// VisitRepo сохраняет события посещений.
type VisitRepo interface {
	SaveVisit(ctx context.Context, event VisitorEvent) error
	CountVisitsByDay(ctx context.Context, from time.Time) ([]DailyVisits, error)
}

// Cache используется для простых TTL-хранилищ и идемпотентности.
type Cache interface {
	Once(key string, ttl time.Duration, fn func() error) error
	Set(key string, value []byte, ttl time.Duration) error
	Get(key string) ([]byte, error)
}

// PaymentGateway создаёт у провайдера сессию оплаты заказа.
// Возвращает id сессии и URL страницы оплаты.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, order Order) (sessionID, checkoutURL string, err error)
}

// Mailer отправляет транзакционные письма.
type Mailer interface {
	SendCredentials(ctx context.Context, order Order) error
}

// Notifier уведомляет операторов о событиях магазина.
type Notifier interface {
	NotifyOrderPaid(ctx context.Context, order Order) error
}

// ContentGenerator строит черновик поста по теме и ключевым словам.
type ContentGenerator interface {
	GenerateDraft(ctx context.Context, topic string, keywords []string) (BlogDraft, error)
}
