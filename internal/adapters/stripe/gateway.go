package stripe

import (
	"context"

	"iptv-shop/internal/domain"
)

var _ domain.PaymentGateway = (*Gateway)(nil)

// Gateway адаптирует клиента Stripe к порту оплаты домена.
type Gateway struct {
	client     *Client
	successURL string
	cancelURL  string
}

// NewGateway создаёт платёжный шлюз с фиксированными URL возврата.
func NewGateway(client *Client, successURL, cancelURL string) *Gateway {
	return &Gateway{client: client, successURL: successURL, cancelURL: cancelURL}
}

// CreateCheckoutSession реализует domain.PaymentGateway.
func (g *Gateway) CreateCheckoutSession(ctx context.Context, order domain.Order) (string, string, error) {
	session, err := g.client.CreateCheckoutSession(ctx, CheckoutParams{
		OrderID:       order.ID,
		ProductName:   order.ProductName,
		AmountCents:   order.AmountCents,
		Currency:      order.Currency,
		CustomerEmail: order.Email,
		SuccessURL:    g.successURL,
		CancelURL:     g.cancelURL,
	})
	if err != nil {
		return "", "", err
	}
	return session.ID, session.URL, nil
}
