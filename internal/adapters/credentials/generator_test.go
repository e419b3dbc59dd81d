package credentials

import (
	"context"
	"errors"
	"strings"
	"testing"

	"iptv-shop/internal/domain"
)

func TestGenerateDeterministic(t *testing.T) {
	g := New()
	order := domain.OrderSeed{ID: "abc-123-def", CustomerName: "John Doe"}
	first := g.Generate(order)
	second := g.Generate(order)
	if first != second {
		t.Fatalf("ожидали одинаковые креды: %+v != %+v", first, second)
	}
}

func TestGenerateUsernameFromCustomerName(t *testing.T) {
	g := New()
	creds := g.Generate(domain.OrderSeed{ID: "abc-123-def", CustomerName: "John Doe"})
	if !strings.HasPrefix(creds.Username, "joh") {
		t.Fatalf("ожидали префикс joh, получили %q", creds.Username)
	}
	if len(creds.Username) != 8 {
		t.Fatalf("ожидали 8 символов, получили %q", creds.Username)
	}
	for _, c := range creds.Username[3:] {
		if !strings.ContainsRune(digitChars+lowerChars, c) {
			t.Fatalf("символ %q вне набора дополнения", c)
		}
	}
}

func TestGenerateUsernameWithoutName(t *testing.T) {
	g := New()
	tests := []string{"", "J.", "Лев Толстой"}
	for _, name := range tests {
		creds := g.Generate(domain.OrderSeed{ID: "ord-42", CustomerName: name})
		if len(creds.Username) != 8 {
			t.Fatalf("имя %q: ожидали 8 символов, получили %q", name, creds.Username)
		}
		for _, c := range creds.Username {
			if !strings.ContainsRune(lowerChars+digitChars, c) {
				t.Fatalf("имя %q: символ %q вне набора", name, c)
			}
		}
	}
}

func TestGenerateUsernameShortPrefixIgnored(t *testing.T) {
	g := New()
	// Одна буква в имени — префикс не используется.
	withShort := g.Generate(domain.OrderSeed{ID: "ord-42", CustomerName: "J"})
	without := g.Generate(domain.OrderSeed{ID: "ord-42"})
	if withShort.Username != without.Username {
		t.Fatalf("ожидали совпадение логинов: %q != %q", withShort.Username, without.Username)
	}
	// Две буквы — используется.
	withTwo := g.Generate(domain.OrderSeed{ID: "ord-42", CustomerName: "Jo"})
	if !strings.HasPrefix(withTwo.Username, "jo") {
		t.Fatalf("ожидали префикс jo, получили %q", withTwo.Username)
	}
}

func TestGeneratePasswordShape(t *testing.T) {
	g := New()
	seeds := []string{"abc-123-def", "", "x", "d290f1ee-6c54-4b01-90e6-d701748f0851"}
	for _, id := range seeds {
		creds := g.Generate(domain.OrderSeed{ID: id})
		p := creds.Password
		if len(p) != 10 {
			t.Fatalf("seed %q: ожидали 10 символов, получили %q", id, p)
		}
		if !strings.ContainsRune(upperChars, rune(p[0])) {
			t.Fatalf("seed %q: позиция 0 должна быть заглавной: %q", id, p)
		}
		if !strings.ContainsRune(lowerChars, rune(p[1])) {
			t.Fatalf("seed %q: позиция 1 должна быть строчной: %q", id, p)
		}
		if !strings.ContainsRune(digitChars, rune(p[2])) {
			t.Fatalf("seed %q: позиция 2 должна быть цифрой: %q", id, p)
		}
		if !strings.ContainsRune(upperChars, rune(p[3])) {
			t.Fatalf("seed %q: позиция 3 должна быть заглавной: %q", id, p)
		}
		for i := 4; i < 10; i++ {
			if !strings.ContainsRune(allChars, rune(p[i])) {
				t.Fatalf("seed %q: позиция %d вне общего набора: %q", id, i, p)
			}
		}
	}
}

func TestAmbiguousCharactersExcluded(t *testing.T) {
	g := New()
	ids := []string{"a-1", "order-0001", "zzz-999", "d290f1ee-6c54-4b01"}
	for _, id := range ids {
		creds := g.Generate(domain.OrderSeed{ID: id, CustomerName: "Anna Smith"})
		for _, c := range creds.Username + creds.Password {
			if strings.ContainsRune("ijloIJLO01", c) {
				t.Fatalf("seed %q: неоднозначный символ %q в кредах", id, c)
			}
		}
	}
}

func noCollision(ctx context.Context, username string) (*domain.Customer, error) {
	return nil, nil
}

func TestGenerateUniqueNoCollision(t *testing.T) {
	g := New()
	order := domain.OrderSeed{ID: "abc-123-def", CustomerName: "John Doe"}
	creds, err := g.GenerateUnique(context.Background(), order, noCollision)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if creds != g.Generate(order) {
		t.Fatalf("без коллизий креды должны совпадать с базовыми")
	}
}

func TestGenerateUniqueSingleCollision(t *testing.T) {
	g := New()
	order := domain.OrderSeed{ID: "abc-123-def", CustomerName: "John Doe"}
	base := g.Generate(order).Username

	lookup := func(ctx context.Context, username string) (*domain.Customer, error) {
		if username == base {
			return &domain.Customer{Username: username}, nil
		}
		return nil, nil
	}
	creds, err := g.GenerateUnique(context.Background(), order, lookup)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	want := base[:len(base)-1] + "1"
	if creds.Username != want {
		t.Fatalf("ожидали %q, получили %q", want, creds.Username)
	}
}

func TestGenerateUniqueAlwaysCollidingTerminates(t *testing.T) {
	g := New()
	order := domain.OrderSeed{ID: "abc-123-def", CustomerName: "John Doe"}
	base := g.Generate(order).Username

	calls := 0
	alwaysTaken := func(ctx context.Context, username string) (*domain.Customer, error) {
		calls++
		return &domain.Customer{Username: username}, nil
	}
	creds, err := g.GenerateUnique(context.Background(), order, alwaysTaken)
	if err != nil {
		t.Fatalf("не ожидали ошибку: %v", err)
	}
	if calls != 10 {
		t.Fatalf("ожидали ровно 10 проверок, было %d", calls)
	}
	if creds.Username == base {
		t.Fatalf("запасной логин обязан отличаться от базового")
	}
	if !strings.HasPrefix(creds.Username, base[:6]) {
		t.Fatalf("запасной логин должен начинаться с %q: %q", base[:6], creds.Username)
	}
	if len(creds.Username) > 10 {
		t.Fatalf("логин длиннее 10 символов: %q", creds.Username)
	}
}

func TestGenerateUniqueLookupError(t *testing.T) {
	g := New()
	boom := errors.New("хранилище недоступно")
	failing := func(ctx context.Context, username string) (*domain.Customer, error) {
		return nil, boom
	}
	_, err := g.GenerateUnique(context.Background(), domain.OrderSeed{ID: "ord-1"}, failing)
	if !errors.Is(err, boom) {
		t.Fatalf("ожидали исходную ошибку lookup, получили %v", err)
	}
}
