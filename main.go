package main

import (
	"fmt"
	"log"
	"net/http"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"reisbot/internal/api"
	"reisbot/internal/config"
	"reisbot/internal/constants"
	"reisbot/internal/db"
	"reisbot/internal/dispatch"
	"reisbot/internal/handlers"
	"reisbot/internal/ingest"
	"reisbot/internal/notify"
	"reisbot/internal/telegram_api"
)

func main() {
	// --- Блок инициализации ---
	if err := godotenv.Load(); err != nil {
		log.Println("Предупреждение: не удалось загрузить файл .env. Переменные окружения должны быть установлены иным способом.")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Критическая ошибка: не удалось загрузить конфигурацию: %v", err)
	}

	if err := db.InitDB(cfg.DatabaseURL); err != nil {
		log.Fatalf("Критическая ошибка: не удалось инициализировать базу данных: %v", err)
	}
	defer db.CloseDB()

	if err := telegram_api.InitBot(cfg.TelegramToken, cfg.AppEnv == "dev"); err != nil {
		log.Fatalf("Критическая ошибка: не удалось инициализировать Telegram бота: %v", err)
	}
	botClient := telegram_api.Client
	telegram_api.ApplyBotMetadata(botClient)

	// --- Сборка компонентов ---
	store := db.Store{}
	botHandler := handlers.NewBotHandler(handlers.HandlerDependencies{
		Config: cfg,
		Store:  store,
		Sender: handlers.BotSender{Client: botClient},
	})
	ingester := ingest.NewIngester(store)
	dispatcher := dispatch.NewDispatcher(store, dispatch.BotSender{Client: botClient}, cfg.DispatchSendDelay)
	notifier := notify.NewNotifier(store, notify.BotSender{Client: botClient})

	// --- Настройка роутера и Middleware ---
	apiRouter := chi.NewRouter()
	apiRouter.Use(middleware.Logger)
	apiRouter.Use(middleware.Recoverer)
	apiRouter.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Cron-Secret"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	api.SetupRoutes(apiRouter, api.ApiDependencies{
		Config:     cfg,
		Bot:        botHandler,
		Ingester:   ingester,
		Dispatcher: dispatcher,
		Notifier:   notifier,
	})

	// --- Режим получения обновлений ---
	webhookManager := telegram_api.NewWebhookManager(botClient,
		fmt.Sprintf("%s/tg/webhook/%s", cfg.AppURL, cfg.TelegramToken),
		constants.WebhookAllowedUpdates)

	if cfg.AppURL != "" {
		// Режим вебхука: обновления приходят на HTTP-эндпоинт.
		if err := webhookManager.Set(); err != nil {
			log.Fatalf("Критическая ошибка: %v", err)
		}
		if err := webhookManager.Verify(); err != nil {
			log.Printf("Предупреждение: проверка вебхука не прошла: %v", err)
		}

		log.Printf("Запуск HTTP-сервера на порту %s (режим вебхука)...", cfg.Port)
		if err := http.ListenAndServe(":"+cfg.Port, apiRouter); err != nil {
			log.Fatalf("КРИТИЧЕСКАЯ ОШИБКА: не удалось запустить HTTP-сервер: %v", err)
		}
		return
	}

	// Режим long polling: вебхук снимается, HTTP-сервер работает в фоне.
	if err := webhookManager.Delete(true); err != nil {
		log.Printf("Предупреждение: не удалось снять вебхук: %v. Это может быть нормально, если вебхук не был установлен.", err)
	}

	go func() {
		log.Printf("Запуск HTTP-сервера на порту %s...", cfg.Port)
		if err := http.ListenAndServe(":"+cfg.Port, apiRouter); err != nil {
			log.Fatalf("КРИТИЧЕСКАЯ ОШИБКА: не удалось запустить HTTP-сервер: %v", err)
		}
	}()

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := botClient.GetUpdatesChan(u)

	log.Println("Бот и API-сервер запущены и готовы к работе...")

	for update := range updates {
		go botHandler.RouteUpdate(update)
	}
}
