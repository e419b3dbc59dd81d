package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"iptv-shop/internal/infra/metrics"
)

const defaultBaseURL = "https://api.stripe.com"

// Client создаёт Checkout-сессии через Stripe API.
type Client struct {
	http      *http.Client
	baseURL   string
	secretKey string
}

// Config настраивает клиента Stripe.
type Config struct {
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
}

// NewClient создаёт клиента Stripe.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		baseURL:   baseURL,
		secretKey: cfg.SecretKey,
	}
}

// CheckoutParams описывает создаваемую сессию оплаты.
type CheckoutParams struct {
	OrderID       string
	ProductName   string
	AmountCents   int64
	Currency      string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// CheckoutSession — ответ Stripe на создание сессии.
type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreateCheckoutSession вызывает /v1/checkout/sessions.
func (c *Client) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (CheckoutSession, error) {
	if c.secretKey == "" {
		return CheckoutSession{}, fmt.Errorf("stripe: secret key is empty")
	}
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("success_url", params.SuccessURL)
	form.Set("cancel_url", params.CancelURL)
	form.Set("customer_email", params.CustomerEmail)
	form.Set("metadata[order_id]", params.OrderID)
	form.Set("line_items[0][quantity]", "1")
	form.Set("line_items[0][price_data][currency]", strings.ToLower(params.Currency))
	form.Set("line_items[0][price_data][unit_amount]", strconv.FormatInt(params.AmountCents, 10))
	form.Set("line_items[0][price_data][product_data][name]", params.ProductName)

	endpoint := c.baseURL + "/v1/checkout/sessions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("stripe: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ObserveNetworkRequest("stripe", "checkout_session_create", "checkout_sessions", start, err)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("stripe: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("stripe: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
			return CheckoutSession{}, fmt.Errorf("stripe: %s", apiErr.Error.Message)
		}
		return CheckoutSession{}, fmt.Errorf("stripe: unexpected status %d", resp.StatusCode)
	}
	var session CheckoutSession
	if err := json.Unmarshal(body, &session); err != nil {
		return CheckoutSession{}, fmt.Errorf("stripe: decode response: %w", err)
	}
	return session, nil
}
