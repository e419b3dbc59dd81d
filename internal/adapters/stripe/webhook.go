package stripe

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Ошибки проверки вебхука.
var (
	ErrMissingSignature = errors.New("подпись вебхука отсутствует")
	ErrBadSignature     = errors.New("подпись вебхука не совпадает")
	ErrStaleTimestamp   = errors.New("метка времени вебхука устарела")
)

// SignatureTolerance — допустимое расхождение метки времени вебхука.
const SignatureTolerance = 5 * time.Minute

// CheckoutEvent — событие вебхука, сведённое к нужным полям.
type CheckoutEvent struct {
	ID            string
	Type          string
	SessionID     string
	OrderID       string
	CustomerEmail string
	CustomerName  string
	AmountTotal   int64
	Currency      string
}

// IsCheckoutCompleted сообщает, оплачена ли сессия.
func (e CheckoutEvent) IsCheckoutCompleted() bool {
	return e.Type == "checkout.session.completed"
}

// VerifySignature проверяет заголовок Stripe-Signature для тела payload.
func VerifySignature(payload []byte, header, secret string, now time.Time) error {
	if strings.TrimSpace(header) == "" {
		return ErrMissingSignature
	}
	var timestamp string
	var candidates []string
	for _, part := range strings.Split(header, ",") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			candidates = append(candidates, value)
		}
	}
	if timestamp == "" || len(candidates) == 0 {
		return ErrMissingSignature
	}
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("разбор метки времени: %w", err)
	}
	if diff := now.Unix() - ts; diff > int64(SignatureTolerance.Seconds()) || diff < -int64(SignatureTolerance.Seconds()) {
		return ErrStaleTimestamp
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, candidate := range candidates {
		if hmac.Equal([]byte(expected), []byte(candidate)) {
			return nil
		}
	}
	return ErrBadSignature
}

// ParseEvent разбирает тело вебхука, не требуя полной схемы события.
func ParseEvent(payload []byte) (CheckoutEvent, error) {
	var raw struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object struct {
				ID              string `json:"id"`
				AmountTotal     int64  `json:"amount_total"`
				Currency        string `json:"currency"`
				CustomerDetails struct {
					Email string `json:"email"`
					Name  string `json:"name"`
				} `json:"customer_details"`
				Metadata map[string]string `json:"metadata"`
			} `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &raw); err != nil {
		return CheckoutEvent{}, fmt.Errorf("разбор события вебхука: %w", err)
	}
	if raw.Type == "" {
		return CheckoutEvent{}, fmt.Errorf("событие вебхука без типа")
	}
	return CheckoutEvent{
		ID:            raw.ID,
		Type:          raw.Type,
		SessionID:     raw.Data.Object.ID,
		OrderID:       raw.Data.Object.Metadata["order_id"],
		CustomerEmail: raw.Data.Object.CustomerDetails.Email,
		CustomerName:  raw.Data.Object.CustomerDetails.Name,
		AmountTotal:   raw.Data.Object.AmountTotal,
		Currency:      raw.Data.Object.Currency,
	}, nil
}
