package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"iptv-shop/internal/domain"
	"iptv-shop/internal/infra/metrics"
)

// Postgres реализует репозитории на основе pgxpool.
type Postgres struct {
	pool *pgxpool.Pool
}

var (
	_ domain.CustomerRepo = (*Postgres)(nil)
	_ domain.OrderRepo    = (*Postgres)(nil)
	_ domain.ProductRepo  = (*Postgres)(nil)
	_ domain.BlogRepo     = (*Postgres)(nil)
	_ domain.VisitRepo    = (*Postgres)(nil)
)

// NewPostgres создаёт адаптер БД.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

func (p *Postgres) connCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, 5*time.Second)
}

// FindByUsername реализует domain.CustomerRepo. Возвращает nil без ошибки,
// если логин свободен.
func (p *Postgres) FindByUsername(ctx context.Context, username string) (*domain.Customer, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var c domain.Customer
	var uname sql.NullString
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT id, email, COALESCE(name,''), username, created_at
FROM customers
WHERE username = $1
`, username).Scan(&c.ID, &c.Email, &c.Name, &uname, &c.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "customers_by_username", "customers", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if uname.Valid {
		c.Username = uname.String
	}
	return &c, nil
}

// UpsertByEmail реализует domain.CustomerRepo.
func (p *Postgres) UpsertByEmail(ctx context.Context, email, name string) (domain.Customer, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	var c domain.Customer
	var uname sql.NullString
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO customers (email, name)
VALUES ($1, NULLIF($2,''))
ON CONFLICT (email) DO UPDATE SET name = COALESCE(NULLIF(EXCLUDED.name,''), customers.name)
RETURNING id, email, COALESCE(name,''), username, created_at
`, email, name).Scan(&c.ID, &c.Email, &c.Name, &uname, &c.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "customers_upsert", "customers", start, err)
	if err != nil {
		return domain.Customer{}, err
	}
	if uname.Valid {
		c.Username = uname.String
	}
	return c, nil
}

// SetUsername закрепляет логин за покупателем.
func (p *Postgres) SetUsername(ctx context.Context, customerID int64, username string) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
UPDATE customers SET username = $2 WHERE id = $1
`, customerID, username)
	metrics.ObserveNetworkRequest("postgres", "customers_set_username", "customers", start, err)
	return err
}

// CreateOrder реализует domain.OrderRepo.
func (p *Postgres) CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	err := p.pool.QueryRow(ctx, `
INSERT INTO orders (id, customer_id, customer_name, email, product_id, product_name, status, amount_cents, currency, stripe_session_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING created_at
`, order.ID, order.CustomerID, order.CustomerName, order.Email, order.ProductID, order.ProductName,
		order.Status, order.AmountCents, order.Currency, order.StripeSessionID).Scan(&order.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "orders_insert", "orders", start, err)
	if err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (p *Postgres) scanOrder(row pgx.Row) (domain.Order, error) {
	var o domain.Order
	var paidAt sql.NullTime
	var username, password sql.NullString
	err := row.Scan(&o.ID, &o.CustomerID, &o.CustomerName, &o.Email, &o.ProductID, &o.ProductName,
		&o.Status, &o.AmountCents, &o.Currency, &o.StripeSessionID, &username, &password, &o.CreatedAt, &paidAt)
	if err != nil {
		return domain.Order{}, err
	}
	if paidAt.Valid {
		ts := paidAt.Time
		o.PaidAt = &ts
	}
	if username.Valid && password.Valid {
		o.Credentials = &domain.Credentials{Username: username.String, Password: password.String}
	}
	return o, nil
}

const orderColumns = `id, customer_id, customer_name, email, product_id, product_name, status,
amount_cents, currency, stripe_session_id, iptv_username, iptv_password, created_at, paid_at`

// GetOrder реализует domain.OrderRepo.
func (p *Postgres) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	order, err := p.scanOrder(p.pool.QueryRow(ctx, `
SELECT `+orderColumns+` FROM orders WHERE id = $1
`, id))
	metrics.ObserveNetworkRequest("postgres", "orders_get", "orders", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, err
}

// GetOrderBySession находит заказ по Stripe session id.
func (p *Postgres) GetOrderBySession(ctx context.Context, sessionID string) (domain.Order, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	order, err := p.scanOrder(p.pool.QueryRow(ctx, `
SELECT `+orderColumns+` FROM orders WHERE stripe_session_id = $1
`, sessionID))
	metrics.ObserveNetworkRequest("postgres", "orders_get_by_session", "orders", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, err
}

// MarkPaid переводит заказ в статус paid.
func (p *Postgres) MarkPaid(ctx context.Context, id string, paidAt time.Time) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
UPDATE orders SET status = 'paid', paid_at = $2 WHERE id = $1 AND status = 'pending'
`, id, paidAt)
	metrics.ObserveNetworkRequest("postgres", "orders_mark_paid", "orders", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// SaveCredentials сохраняет выданные креды в заказе.
func (p *Postgres) SaveCredentials(ctx context.Context, id string, creds domain.Credentials) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
UPDATE orders SET iptv_username = $2, iptv_password = $3 WHERE id = $1
`, id, creds.Username, creds.Password)
	metrics.ObserveNetworkRequest("postgres", "orders_save_credentials", "orders", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// MarkFulfilled переводит заказ в статус fulfilled.
func (p *Postgres) MarkFulfilled(ctx context.Context, id string) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	tag, err := p.pool.Exec(ctx, `
UPDATE orders SET status = 'fulfilled' WHERE id = $1 AND status = 'paid'
`, id)
	metrics.ObserveNetworkRequest("postgres", "orders_mark_fulfilled", "orders", start, err)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

// ListActive реализует domain.ProductRepo.
func (p *Postgres) ListActive(ctx context.Context) ([]domain.Product, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT id, slug, name, kind, price_cents, currency, active, created_at
FROM products
WHERE active
ORDER BY id
`)
	metrics.ObserveNetworkRequest("postgres", "products_list", "products", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		var pr domain.Product
		if err := rows.Scan(&pr.ID, &pr.Slug, &pr.Name, &pr.Kind, &pr.PriceCents, &pr.Currency, &pr.Active, &pr.CreatedAt); err != nil {
			return nil, err
		}
		products = append(products, pr)
	}
	return products, rows.Err()
}

// GetProductBySlug реализует domain.ProductRepo.
func (p *Postgres) GetProductBySlug(ctx context.Context, slug string) (domain.Product, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	var pr domain.Product
	start := time.Now()
	err := p.pool.QueryRow(ctx, `
SELECT id, slug, name, kind, price_cents, currency, active, created_at
FROM products
WHERE slug = $1
`, slug).Scan(&pr.ID, &pr.Slug, &pr.Name, &pr.Kind, &pr.PriceCents, &pr.Currency, &pr.Active, &pr.CreatedAt)
	metrics.ObserveNetworkRequest("postgres", "products_get", "products", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return pr, err
}

func (p *Postgres) scanPost(row pgx.Row) (domain.BlogPost, error) {
	var post domain.BlogPost
	err := row.Scan(&post.ID, &post.Slug, &post.Title, &post.Excerpt, &post.ContentHTML,
		&post.MetaTitle, &post.MetaDescription, &post.Keywords, &post.Published,
		&post.Seo.HeadingScore, &post.Seo.KeywordDensityScore, &post.Seo.ContentLengthScore,
		&post.Seo.MetaScore, &post.Seo.StructureScore, &post.Seo.OverallSeoScore,
		&post.Seo.WordCount, &post.Seo.ReadTime, &post.Seo.SeoAnalysis,
		&post.CreatedAt, &post.UpdatedAt)
	return post, err
}

const postColumns = `id, slug, title, excerpt, content_html, meta_title, meta_description,
keywords, published, heading_score, keyword_density_score, content_length_score,
meta_score, structure_score, overall_seo_score, word_count, read_time, seo_analysis,
created_at, updated_at`

// CreatePost реализует domain.BlogRepo.
func (p *Postgres) CreatePost(ctx context.Context, post domain.BlogPost) (domain.BlogPost, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	saved, err := p.scanPost(p.pool.QueryRow(ctx, `
INSERT INTO blog_posts (slug, title, excerpt, content_html, meta_title, meta_description,
keywords, published, heading_score, keyword_density_score, content_length_score,
meta_score, structure_score, overall_seo_score, word_count, read_time, seo_analysis)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
RETURNING `+postColumns+`
`, post.Slug, post.Title, post.Excerpt, post.ContentHTML, post.MetaTitle, post.MetaDescription,
		post.Keywords, post.Published, post.Seo.HeadingScore, post.Seo.KeywordDensityScore,
		post.Seo.ContentLengthScore, post.Seo.MetaScore, post.Seo.StructureScore,
		post.Seo.OverallSeoScore, post.Seo.WordCount, post.Seo.ReadTime, post.Seo.SeoAnalysis))
	metrics.ObserveNetworkRequest("postgres", "blog_posts_insert", "blog_posts", start, err)
	return saved, err
}

// UpdatePost реализует domain.BlogRepo.
func (p *Postgres) UpdatePost(ctx context.Context, post domain.BlogPost) (domain.BlogPost, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	saved, err := p.scanPost(p.pool.QueryRow(ctx, `
UPDATE blog_posts SET title = $2, excerpt = $3, content_html = $4, meta_title = $5,
meta_description = $6, keywords = $7, published = $8, heading_score = $9,
keyword_density_score = $10, content_length_score = $11, meta_score = $12,
structure_score = $13, overall_seo_score = $14, word_count = $15, read_time = $16,
seo_analysis = $17, updated_at = now()
WHERE slug = $1
RETURNING `+postColumns+`
`, post.Slug, post.Title, post.Excerpt, post.ContentHTML, post.MetaTitle, post.MetaDescription,
		post.Keywords, post.Published, post.Seo.HeadingScore, post.Seo.KeywordDensityScore,
		post.Seo.ContentLengthScore, post.Seo.MetaScore, post.Seo.StructureScore,
		post.Seo.OverallSeoScore, post.Seo.WordCount, post.Seo.ReadTime, post.Seo.SeoAnalysis))
	metrics.ObserveNetworkRequest("postgres", "blog_posts_update", "blog_posts", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.BlogPost{}, domain.ErrPostNotFound
	}
	return saved, err
}

// GetPostBySlug реализует domain.BlogRepo.
func (p *Postgres) GetPostBySlug(ctx context.Context, slug string) (domain.BlogPost, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	post, err := p.scanPost(p.pool.QueryRow(ctx, `
SELECT `+postColumns+` FROM blog_posts WHERE slug = $1
`, slug))
	metrics.ObserveNetworkRequest("postgres", "blog_posts_get", "blog_posts", start, err)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.BlogPost{}, domain.ErrPostNotFound
	}
	return post, err
}

// ListPublished реализует domain.BlogRepo.
func (p *Postgres) ListPublished(ctx context.Context, limit, offset int) ([]domain.BlogPost, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT `+postColumns+` FROM blog_posts
WHERE published
ORDER BY created_at DESC
LIMIT $1 OFFSET $2
`, limit, offset)
	metrics.ObserveNetworkRequest("postgres", "blog_posts_list", "blog_posts", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []domain.BlogPost
	for rows.Next() {
		post, err := p.scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// SaveVisit реализует domain.VisitRepo.
func (p *Postgres) SaveVisit(ctx context.Context, event domain.VisitorEvent) error {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	_, err := p.pool.Exec(ctx, `
INSERT INTO visits (id, path, referrer, user_agent, visitor_id, occurred_at)
VALUES ($1, $2, NULLIF($3,''), NULLIF($4,''), $5, $6)
`, event.ID, event.Path, event.Referrer, event.UserAgent, event.VisitorID, event.OccurredAt)
	metrics.ObserveNetworkRequest("postgres", "visits_insert", "visits", start, err)
	return err
}

// CountVisitsByDay реализует domain.VisitRepo.
func (p *Postgres) CountVisitsByDay(ctx context.Context, from time.Time) ([]domain.DailyVisits, error) {
	ctx, cancel := p.connCtx(ctx)
	defer cancel()

	start := time.Now()
	rows, err := p.pool.Query(ctx, `
SELECT date_trunc('day', occurred_at) AS day, count(*)
FROM visits
WHERE occurred_at >= $1
GROUP BY day
ORDER BY day
`, from)
	metrics.ObserveNetworkRequest("postgres", "visits_by_day", "visits", start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var daily []domain.DailyVisits
	for rows.Next() {
		var d domain.DailyVisits
		if err := rows.Scan(&d.Day, &d.Visits); err != nil {
			return nil, err
		}
		daily = append(daily, d)
	}
	return daily, rows.Err()
}
