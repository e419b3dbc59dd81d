package domain

import "time"

// ProductKind различает физические приставки и IPTV-подписки.
type ProductKind string

const (
	ProductKindDevice       ProductKind = "device"
	ProductKindSubscription ProductKind = "subscription"
)

// Product описывает товар витрины.
type Product struct {
	ID         int64
	Slug       string
	Name       string
	Kind       ProductKind
	PriceCents int64
	Currency   string
	Active     bool
	CreatedAt  time.Time
}

// Customer описывает покупателя. Username уникален и служит логином IPTV.
type Customer struct {
	ID        int64
	Email     string
	Name      string
	Username  string
	CreatedAt time.Time
}

// OrderStatus — стадия жизненного цикла заказа.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusFulfilled OrderStatus = "fulfilled"
)

// Order описывает заказ витрины.
type Order struct {
	ID              string
	CustomerID      int64
	CustomerName    string
	Email           string
	ProductID       int64
	ProductName     string
	Status          OrderStatus
	AmountCents     int64
	Currency        string
	StripeSessionID string
	Credentials     *Credentials
	CreatedAt       time.Time
	PaidAt          *time.Time
}

// Credentials — доступы IPTV, выдаваемые после оплаты.
type Credentials struct {
	Username string
	Password string
}

// OrderSeed — данные заказа, из которых детерминированно выводятся креды.
type OrderSeed struct {
	ID           string
	CustomerName string
}

// ContentInput — входные данные SEO-анализа поста.
type ContentInput struct {
	Title           string
	Content         string
	Excerpt         string
	MetaTitle       string
	MetaDescription string
	Keywords        []string
}

// SeoScore — результат SEO-анализа, хранится в записи поста.
type SeoScore struct {
	HeadingScore        int    `json:"headingScore"`
	KeywordDensityScore int    `json:"keywordDensityScore"`
	ContentLengthScore  int    `json:"contentLengthScore"`
	MetaScore           int    `json:"metaScore"`
	StructureScore      int    `json:"structureScore"`
	OverallSeoScore     int    `json:"overallSeoScore"`
	WordCount           int    `json:"wordCount"`
	ReadTime            string `json:"readTime"`
	SeoAnalysis         string `json:"seoAnalysis"`
}

// BlogPost представляет запись блога.
type BlogPost struct {
	ID              int64
	Slug            string
	Title           string
	Excerpt         string
	ContentHTML     string
	MetaTitle       string
	MetaDescription string
	Keywords        []string
	Published       bool
	Seo             SeoScore
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// BlogDraft — черновик, сгенерированный LLM.
type BlogDraft struct {
	Title       string
	Excerpt     string
	ContentHTML string
}

// VisitorEvent — событие посещения витрины.
type VisitorEvent struct {
	ID         string
	Path       string
	Referrer   string
	UserAgent  string
	VisitorID  string
	OccurredAt time.Time
}

// DailyVisits — количество посещений за день.
type DailyVisits struct {
	Day    time.Time
	Visits int64
}
