package credentials

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"iptv-shop/internal/domain"
	"iptv-shop/internal/infra/metrics"
)

// Наборы символов без визуально похожих знаков: i, j, l, o и цифры 0, 1
// исключены, чтобы креды однозначно читались из письма.
const (
	lowerChars = "abcdefghkmnpqrstuvwxyz"
	upperChars = "ABCDEFGHKMNPQRSTUVWXYZ"
	digitChars = "23456789"
	allChars   = lowerChars + upperChars + digitChars
)

const (
	usernameLength       = 8
	maxUsernameLength    = 10
	passwordLength       = 10
	maxCollisionAttempts = 10
	fallbackSuffixLength = 4
)

// Generator реализует domain.CredentialIssuer. Вся «случайность» выводится
// из идентификатора заказа: повторная выдача по тому же заказу всегда даёт
// те же креды.
type Generator struct{}

var _ domain.CredentialIssuer = (*Generator)(nil)

// New создаёт генератор.
func New() *Generator {
	return &Generator{}
}

// Generate детерминированно выводит логин и пароль из заказа.
func (g *Generator) Generate(order domain.OrderSeed) domain.Credentials {
	seed := strings.ReplaceAll(order.ID, "-", "")
	return domain.Credentials{
		Username: buildUsername(seed, order.CustomerName),
		Password: buildPassword(seed),
	}
}

// GenerateUnique выдаёт креды, проверяя логин на коллизии. После десяти
// занятых кандидатов берётся суффикс из текущего времени в base36; такой
// логин повторно не проверяется — осознанное ограничение ради ограниченного
// числа обращений к хранилищу.
func (g *Generator) GenerateUnique(ctx context.Context, order domain.OrderSeed, lookup domain.UsernameLookup) (domain.Credentials, error) {
	creds := g.Generate(order)
	base := creds.Username

	candidate := base
	for attempt := 0; attempt < maxCollisionAttempts; attempt++ {
		existing, err := lookup(ctx, candidate)
		if err != nil {
			return domain.Credentials{}, fmt.Errorf("проверка логина %q: %w", candidate, err)
		}
		if existing == nil {
			creds.Username = candidate
			return creds, nil
		}
		metrics.CredentialCollisionsTotal.Inc()
		suffix := strconv.Itoa(attempt + 1)
		keep := len(base) - len(suffix)
		if keep < 0 {
			keep = 0
		}
		candidate = base[:keep] + suffix
	}

	suffix := strconv.FormatInt(time.Now().UnixMilli(), 36)
	if len(suffix) > fallbackSuffixLength {
		suffix = suffix[:fallbackSuffixLength]
	}
	keep := len(base)
	if keep > 6 {
		keep = 6
	}
	creds.Username = base[:keep] + suffix
	return creds, nil
}

// charAt выбирает символ charset по символу seed: код символа плюс индекс,
// по модулю длины набора. Для пустого seed используется код 'A'.
func charAt(seed string, index int, charset string) byte {
	code := 'A'
	if len(seed) > 0 {
		code = rune(seed[index%len(seed)])
	}
	return charset[(int(code)+index)%len(charset)]
}

// namePrefix оставляет только латинские буквы имени, в нижнем регистре,
// не больше трёх.
func namePrefix(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteByte(byte(r))
		case r >= 'A' && r <= 'Z':
			b.WriteByte(byte(r - 'A' + 'a'))
		default:
			continue
		}
		if b.Len() == 3 {
			break
		}
	}
	return b.String()
}

// buildUsername собирает логин: префикс из имени покупателя (если набралось
// хотя бы две буквы) и детерминированное дополнение до восьми символов.
// Детерминированный путь всегда даёт ровно восемь символов; обрезка до
// десяти срабатывает только теоретически и сохранена ради инварианта длины.
func buildUsername(seed, customerName string) string {
	prefix := namePrefix(customerName)

	var username strings.Builder
	var charset string
	if len(prefix) >= 2 {
		username.WriteString(prefix)
		charset = digitChars + lowerChars
	} else {
		charset = lowerChars + digitChars
	}
	for i := 0; username.Len() < usernameLength; i++ {
		username.WriteByte(charAt(seed, i, charset))
	}

	result := username.String()
	if len(result) > maxUsernameLength {
		result = result[:maxUsernameLength]
	}
	return result
}

// buildPassword собирает пароль из десяти символов с фиксированными классами
// на первых четырёх позициях: заглавная, строчная, цифра, заглавная.
func buildPassword(seed string) string {
	var b strings.Builder
	b.WriteByte(charAt(seed, 0, upperChars))
	b.WriteByte(charAt(seed, 1, lowerChars))
	b.WriteByte(charAt(seed, 2, digitChars))
	b.WriteByte(charAt(seed, 3, upperChars))
	for i := 4; b.Len() < passwordLength; i++ {
		b.WriteByte(charAt(seed, i+10, allChars))
	}
	return b.String()
}
