// Файл: internal/api/middleware.go
package api

import (
	"context"
	"crypto/subtle"
	"log"
	"net/http"

	"reisbot/internal/constants"
	"reisbot/internal/db"
	"reisbot/internal/models"
	"reisbot/internal/utils"
)

// UserContextKey - ключ для сохранения данных пользователя в контексте запроса.
var UserContextKey = &contextKey{"User"}

type contextKey struct {
	name string
}

// AuthMiddleware проверяет токен сессии из HTTP-only куки по таблице sessions
// и кладет пользователя в контекст запроса.
// AuthMiddleware validates the session cookie against the sessions table.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(constants.SESSION_COOKIE_NAME)
		if err != nil || cookie.Value == "" {
			writeJSONError(w, http.StatusUnauthorized, "требуется авторизация", "")
			return
		}

		user, err := db.GetSessionUser(cookie.Value)
		if err != nil {
			log.Printf("AuthMiddleware: недействительная или истекшая сессия: %v", err)
			writeJSONError(w, http.StatusUnauthorized, "сессия недействительна или истекла", "")
			return
		}

		ctx := context.WithValue(r.Context(), UserContextKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RoleMiddleware проверяет, что роль пользователя не ниже требуемой.
// RoleMiddleware checks that the user's role covers the required one.
func RoleMiddleware(requiredRole string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := r.Context().Value(UserContextKey).(models.User)
			if !ok {
				writeJSONError(w, http.StatusForbidden, "данные пользователя не найдены", "")
				return
			}
			if !utils.IsRoleOrHigher(user.Role, requiredRole) {
				writeJSONError(w, http.StatusForbidden, "недостаточно прав", "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CronMiddleware пропускает запрос планировщика только с корректным общим
// секретом (заголовок X-Cron-Secret или параметр ?secret=).
// CronMiddleware admits scheduler calls only with the correct shared secret.
func CronMiddleware(cronSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cronSecret == "" {
				writeJSONError(w, http.StatusUnauthorized, "CRON_SECRET не настроен на сервере", "")
				return
			}
			provided := r.Header.Get("X-Cron-Secret")
			if provided == "" {
				provided = r.URL.Query().Get("secret")
			}
			if subtle.ConstantTimeCompare([]byte(provided), []byte(cronSecret)) != 1 {
				writeJSONError(w, http.StatusUnauthorized, "неверный секрет планировщика", "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requestUser достает пользователя из контекста запроса.
func requestUser(r *http.Request) (models.User, bool) {
	user, ok := r.Context().Value(UserContextKey).(models.User)
	return user, ok
}
