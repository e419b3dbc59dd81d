package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"iptv-shop/internal/domain"
)

var _ domain.Notifier = (*Notifier)(nil)

// Notifier шлёт оператору сообщения о событиях магазина.
type Notifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

// NewNotifier создаёт уведомителя на основе бота Telegram.
func NewNotifier(token string, chatID int64) (*Notifier, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("создание telegram-бота: %w", err)
	}
	return &Notifier{bot: bot, chatID: chatID}, nil
}

// NotifyOrderPaid отправляет оператору сводку по оплаченному заказу.
func (n *Notifier) NotifyOrderPaid(ctx context.Context, order domain.Order) error {
	text := fmt.Sprintf(
		"💰 Оплачен заказ %s\nТовар: %s\nПокупатель: %s <%s>\nСумма: %.2f %s",
		order.ID,
		order.ProductName,
		order.CustomerName,
		order.Email,
		float64(order.AmountCents)/100,
		order.Currency,
	)
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("отправка уведомления о заказе %s: %w", order.ID, err)
	}
	return nil
}
