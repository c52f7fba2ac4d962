package middleware

import (
	"crypto/subtle"
	"log"
	"net/http"
)

// APIKeyHeader — имя заголовка с общим секретом.
const APIKeyHeader = "X-API-Key"

// APIKeyAuthenticator возвращает middleware, проверяющий общий секрет
// в заголовке X-API-Key до любого обращения к хранилищу.
//
// Пустой ожидаемый ключ отключает проверку целиком. Сравнение выполняется
// за константное время (subtle.ConstantTimeCompare), без раннего выхода,
// чтобы не давать тайминговый канал. Несовпадение и отсутствие заголовка
// обрабатываются одинаково для всех маршрутов: 401 без деталей в теле.
func APIKeyAuthenticator(expectedKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if expectedKey == "" {
				// Проверка отключена конфигурацией
				next.ServeHTTP(w, r)
				return
			}

			provided := r.Header.Get(APIKeyHeader)
			if subtle.ConstantTimeCompare([]byte(provided), []byte(expectedKey)) != 1 {
				log.Printf("[AuthMiddleware] Отклонен запрос %s %s: неверный или отсутствующий API-ключ",
					r.Method, r.URL.Path)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
