// internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"reisbot/internal/constants"
)

// Config хранит все конфигурационные параметры приложения.
// Config holds all application configuration parameters.
type Config struct {
	TelegramToken string
	BotUsername   string
	DatabaseURL   string
	AppEnv        string
	Port          string

	// AppURL - публичный адрес приложения. Если задан, бот работает через
	// вебхук, иначе через long polling.
	AppURL string

	// CronSecret защищает эндпоинт запуска рассылки уведомлений.
	CronSecret string

	// DispatchSendDelay - пауза между отправками сообщений разным водителям.
	DispatchSendDelay time.Duration

	// SessionTTL - время жизни веб-сессии оператора.
	SessionTTL time.Duration
}

// LoadConfig загружает конфигурацию из переменных окружения.
// LoadConfig loads the configuration from environment variables.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		TelegramToken:     os.Getenv("TELEGRAM_APITOKEN"),
		BotUsername:       os.Getenv("BOT_USERNAME"),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		AppEnv:            os.Getenv("ENV"),
		AppURL:            os.Getenv("APP_URL"),
		CronSecret:        os.Getenv("CRON_SECRET"),
		Port:              os.Getenv("PORT"),
		DispatchSendDelay: constants.DEFAULT_DISPATCH_SEND_DELAY,
		SessionTTL:        constants.DEFAULT_SESSION_TTL,
	}

	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_APITOKEN не установлен")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL не установлен")
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.BotUsername == "" {
		log.Println("Предупреждение: BOT_USERNAME не установлен, генерация ссылки на бота будет недоступна.")
	}
	if cfg.AppURL == "" {
		log.Println("Предупреждение: APP_URL не установлен, бот будет работать через long polling.")
	}
	if cfg.CronSecret == "" {
		log.Println("Предупреждение: CRON_SECRET не установлен, эндпоинт рассылки уведомлений будет отклонять запросы планировщика.")
	}

	if delayStr := os.Getenv("DISPATCH_SEND_DELAY_MS"); delayStr != "" {
		delayMs, err := strconv.Atoi(delayStr)
		if err != nil || delayMs < 0 {
			log.Printf("Предупреждение: некорректное значение DISPATCH_SEND_DELAY_MS ('%s'), используется значение по умолчанию %v.", delayStr, constants.DEFAULT_DISPATCH_SEND_DELAY)
		} else {
			cfg.DispatchSendDelay = time.Duration(delayMs) * time.Millisecond
		}
	}

	if ttlStr := os.Getenv("SESSION_TTL_HOURS"); ttlStr != "" {
		ttlHours, err := strconv.Atoi(ttlStr)
		if err != nil || ttlHours <= 0 {
			log.Printf("Предупреждение: некорректное значение SESSION_TTL_HOURS ('%s'), используется значение по умолчанию %v.", ttlStr, constants.DEFAULT_SESSION_TTL)
		} else {
			cfg.SessionTTL = time.Duration(ttlHours) * time.Hour
		}
	}

	log.Println("Конфигурация загружена.")
	return cfg, nil
}
