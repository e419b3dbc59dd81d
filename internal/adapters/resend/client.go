package resend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"iptv-shop/internal/domain"
	"iptv-shop/internal/infra/metrics"
)

const defaultBaseURL = "https://api.resend.com"

var _ domain.Mailer = (*Client)(nil)

// Client отправляет письма через Resend API.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	from    string
}

// NewClient создаёт почтового клиента Resend.
func NewClient(apiKey, from string) *Client {
	return &Client{
		http:    &http.Client{Timeout: 15 * time.Second},
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		from:    from,
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// SendCredentials отправляет покупателю данные доступа к подписке.
func (c *Client) SendCredentials(ctx context.Context, order domain.Order) error {
	if order.Credentials == nil {
		return fmt.Errorf("resend: у заказа %s нет учётных данных", order.ID)
	}
	body := sendRequest{
		From:    c.from,
		To:      []string{order.Email},
		Subject: "Your IPTV subscription is ready",
		HTML:    credentialsHTML(order),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("resend: кодирование письма: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("resend: создание запроса: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.ObserveNetworkRequest("resend", "send_email", "emails", start, err)
	if err != nil {
		metrics.MailSendErrors.Inc()
		return fmt.Errorf("resend: отправка письма: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		metrics.MailSendErrors.Inc()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("resend: статус %d: %s", resp.StatusCode, raw)
	}
	return nil
}

func credentialsHTML(order domain.Order) string {
	return fmt.Sprintf(
		`<h2>Welcome to our IPTV service!</h2>
<p>Your order <strong>%s</strong> is confirmed. Use these credentials to sign in:</p>
<ul>
<li>Username: <strong>%s</strong></li>
<li>Password: <strong>%s</strong></li>
</ul>
<p>Keep this email safe. If you need help, just reply to it.</p>`,
		order.ID, order.Credentials.Username, order.Credentials.Password,
	)
}
