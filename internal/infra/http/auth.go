package http

import (
	"crypto/hmac"
	"net/http"
	"strings"
)

// AdminAuthMiddleware пропускает только запросы с админским bearer-токеном.
// Сравнение константное по времени.
func AdminAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				http.Error(w, "админский доступ не настроен", http.StatusUnauthorized)
				return
			}
			header := r.Header.Get("Authorization")
			presented, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || presented == "" {
				http.Error(w, "требуется bearer-токен", http.StatusUnauthorized)
				return
			}
			if !hmac.Equal([]byte(presented), []byte(token)) {
				http.Error(w, "токен недействителен", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
