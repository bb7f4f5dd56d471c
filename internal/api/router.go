package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"reisbot/internal/config"
	"reisbot/internal/constants"
	"reisbot/internal/dispatch"
	"reisbot/internal/handlers"
	"reisbot/internal/ingest"
	"reisbot/internal/notify"
)

// ApiDependencies содержит зависимости для обработчиков API.
// ApiDependencies contains the dependencies for the API handlers.
type ApiDependencies struct {
	Config     *config.Config
	Bot        *handlers.BotHandler
	Ingester   *ingest.Ingester
	Dispatcher *dispatch.Dispatcher
	Notifier   *notify.Notifier
}

// SetupRoutes настраивает все маршруты для API.
// SetupRoutes configures all API routes.
func SetupRoutes(r *chi.Mux, deps ApiDependencies) {
	h := &ApiHandlers{Deps: deps}

	// Прием обновлений Telegram. Токен бота в пути защищает эндпоинт от
	// посторонних запросов.
	r.Post("/tg/webhook/{token}", h.TelegramWebhook)

	// Публичные маршруты аутентификации.
	r.Group(func(r chi.Router) {
		r.Post("/api/auth/request-code", h.RequestLoginCode)
		r.Post("/api/auth/login", h.Login)
		r.Post("/api/auth/logout", h.Logout)
	})

	// Запуск рассылки уведомлений внешним планировщиком.
	r.Group(func(r chi.Router) {
		r.Use(CronMiddleware(deps.Config.CronSecret))
		r.Get("/api/notifications/send", h.SendNotifications)
		r.Post("/api/notifications/send", h.SendNotifications)
	})

	// Маршруты операторов и админов.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware)
		r.Use(RoleMiddleware(constants.ROLE_OPERATOR))

		r.Post("/api/upload", h.Upload)
		r.Get("/api/trips", h.ListTrips)
		r.Delete("/api/trips/{id}", h.DeleteTrip)
		r.Post("/api/trips/{id}/subscribe", h.Subscribe)
		r.Delete("/api/trips/{id}/subscribe", h.Unsubscribe)
		r.Post("/api/dispatch", h.Dispatch)
		r.Post("/api/dispatch/resend", h.Resend)
		r.Post("/api/dispatch/confirm", h.ConfirmOverride)
		r.Post("/api/dispatch/cancel", h.CancelDispatch)
		r.Get("/api/bot-link", h.BotLink)
		r.Get("/api/bot-link/qr", h.BotLinkQR)
	})

	// Маршруты только для админов: справочник точек и управление
	// пользователями.
	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware)
		r.Use(RoleMiddleware(constants.ROLE_ADMIN))

		r.Post("/api/points", h.UpsertPoint)
		r.Post("/api/users/{id}/verify", h.VerifyUser)
		r.Delete("/api/users/{id}", h.DeleteUser)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
}
