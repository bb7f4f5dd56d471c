package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"reisbot/internal/config"
	"reisbot/internal/db"
	"reisbot/internal/dispatch"
	"reisbot/internal/handlers"
	"reisbot/internal/ingest"
	"reisbot/internal/notify"
)

func testRouter() *chi.Mux {
	cfg := &config.Config{TelegramToken: "token", CronSecret: "s3cret"}
	store := db.Store{}
	r := chi.NewRouter()
	SetupRoutes(r, ApiDependencies{
		Config: cfg,
		Bot: handlers.NewBotHandler(handlers.HandlerDependencies{
			Config: cfg,
			Store:  store,
			Sender: handlers.BotSender{},
		}),
		Ingester:   ingest.NewIngester(store),
		Dispatcher: dispatch.NewDispatcher(store, dispatch.BotSender{}, 0),
		Notifier:   notify.NewNotifier(store, notify.BotSender{}),
	})
	return r
}

func TestSetupRoutes_RouteTable(t *testing.T) {
	router := testRouter()
	testCases := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/tg/webhook/token"},
		{http.MethodPost, "/api/auth/request-code"},
		{http.MethodPost, "/api/auth/login"},
		{http.MethodPost, "/api/auth/logout"},
		{http.MethodPost, "/api/notifications/send"},
		{http.MethodPost, "/api/upload"},
		{http.MethodGet, "/api/trips"},
		{http.MethodDelete, "/api/trips/1"},
		{http.MethodPost, "/api/trips/1/subscribe"},
		{http.MethodPost, "/api/dispatch"},
		{http.MethodPost, "/api/dispatch/resend"},
		{http.MethodPost, "/api/dispatch/cancel"},
		{http.MethodPost, "/api/points"},
		{http.MethodPost, "/api/users/7/verify"},
		{http.MethodDelete, "/api/users/7"},
		{http.MethodGet, "/healthz"},
	}
	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			rctx := chi.NewRouteContext()
			if !router.Match(rctx, tc.method, tc.path) {
				t.Errorf("маршрут %s %s не зарегистрирован", tc.method, tc.path)
			}
		})
	}
}

func TestSetupRoutes_ProtectedRoutesRejectAnonymous(t *testing.T) {
	router := testRouter()
	testCases := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/points"},
		{http.MethodPost, "/api/users/7/verify"},
		{http.MethodDelete, "/api/users/7"},
		{http.MethodPost, "/api/dispatch/cancel"},
		{http.MethodPost, "/api/upload"},
	}
	for _, tc := range testCases {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("запрос без сессии должен отклоняться: статус %d", rec.Code)
			}
		})
	}
}
