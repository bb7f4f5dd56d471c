// Файл: internal/db/db.go
package db

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"reisbot/internal/constants"
)

var DB *sql.DB // Глобальная переменная для хранения подключения к БД

// InitDB инициализирует соединение с базой данных и создает схему.
// InitDB initializes the database connection and creates the schema.
func InitDB(databaseURL string) error {
	if databaseURL == "" {
		return fmt.Errorf("DATABASE_URL не установлена")
	}

	var err error
	DB, err = sql.Open("postgres", databaseURL)
	if err != nil {
		return fmt.Errorf("ошибка подключения к базе данных: %v", err)
	}

	DB.SetMaxOpenConns(50)
	DB.SetMaxIdleConns(20)
	DB.SetConnMaxLifetime(5 * time.Minute)

	if err := DB.Ping(); err != nil {
		return fmt.Errorf("ошибка проверки соединения с базой данных: %v", err)
	}

	log.Println("Успешное подключение к базе данных.")

	tx, err := DB.Begin()
	if err != nil {
		return fmt.Errorf("ошибка начала транзакции для создания таблиц: %v", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			log.Printf("Откат транзакции создания схемы из-за ошибки: %v", err)
			tx.Rollback()
		}
	}()

	createTablesSQL := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            chat_id BIGINT UNIQUE,
            phone VARCHAR(20) UNIQUE,
            name TEXT,
            role TEXT NOT NULL DEFAULT '%s',
            carpark TEXT,
            verified BOOLEAN NOT NULL DEFAULT FALSE,
            registration_state TEXT NOT NULL DEFAULT '%s',
            created_at TIMESTAMP NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMP NOT NULL DEFAULT NOW()
        );
        CREATE TABLE IF NOT EXISTS trips (
            id SERIAL PRIMARY KEY,
            status TEXT NOT NULL DEFAULT '%s',
            carpark TEXT,
            created_by INTEGER REFERENCES users(id),
            created_at TIMESTAMP NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMP NOT NULL DEFAULT NOW()
        );
        CREATE TABLE IF NOT EXISTS trip_messages (
            id SERIAL PRIMARY KEY,
            trip_id INTEGER NOT NULL REFERENCES trips(id) ON DELETE CASCADE,
            phone VARCHAR(20) NOT NULL,
            trip_identifier TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT '%s',
            response_status TEXT NOT NULL DEFAULT '%s',
            vehicle_number TEXT,
            planned_loading_time TEXT,
            driver_comment TEXT,
            error_text TEXT,
            telegram_message_id BIGINT,
            sent_at TIMESTAMP,
            response_at TIMESTAMP,
            created_at TIMESTAMP NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
            UNIQUE (trip_id, phone, trip_identifier)
        );
        CREATE TABLE IF NOT EXISTS points (
            point_id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            door_info TEXT,
            latitude FLOAT,
            longitude FLOAT
        );
        CREATE TABLE IF NOT EXISTS trip_points (
            id SERIAL PRIMARY KEY,
            trip_id INTEGER NOT NULL REFERENCES trips(id) ON DELETE CASCADE,
            trip_identifier TEXT NOT NULL,
            point_id TEXT NOT NULL REFERENCES points(point_id),
            point_type TEXT NOT NULL CHECK (point_type IN ('%s', '%s')),
            point_num INTEGER NOT NULL DEFAULT 1
        );
        CREATE TABLE IF NOT EXISTS trip_subscriptions (
            id SERIAL PRIMARY KEY,
            trip_id INTEGER NOT NULL REFERENCES trips(id) ON DELETE CASCADE,
            user_id INTEGER NOT NULL REFERENCES users(id),
            interval_minutes INTEGER NOT NULL,
            is_active BOOLEAN NOT NULL DEFAULT TRUE,
            last_notification_at TIMESTAMP,
            created_at TIMESTAMP NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
            UNIQUE (trip_id, user_id)
        );
        CREATE TABLE IF NOT EXISTS sessions (
            token TEXT PRIMARY KEY,
            user_id INTEGER NOT NULL REFERENCES users(id),
            expires_at TIMESTAMP NOT NULL,
            created_at TIMESTAMP NOT NULL DEFAULT NOW()
        );
        CREATE TABLE IF NOT EXISTS login_codes (
            phone VARCHAR(20) PRIMARY KEY,
            code TEXT NOT NULL,
            expires_at TIMESTAMP NOT NULL
        );
        CREATE INDEX IF NOT EXISTS idx_trip_messages_trip_id ON trip_messages(trip_id);
        CREATE INDEX IF NOT EXISTS idx_trip_points_trip ON trip_points(trip_id, trip_identifier);
        CREATE INDEX IF NOT EXISTS idx_trip_subscriptions_active ON trip_subscriptions(is_active);
    `,
		constants.ROLE_DRIVER, constants.REGISTRATION_STATE_NEW,
		constants.TRIP_STATUS_ACTIVE,
		constants.MESSAGE_STATUS_PENDING, constants.RESPONSE_STATUS_PENDING,
		constants.POINT_TYPE_LOADING, constants.POINT_TYPE_UNLOADING)
	if _, err = tx.Exec(createTablesSQL); err != nil {
		return fmt.Errorf("ошибка создания таблиц: %v", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("ошибка коммита транзакции создания таблиц: %v", err)
	}

	log.Println("Схема базы данных проверена/создана.")
	return nil
}

// CloseDB закрывает соединение с базой данных.
func CloseDB() {
	if DB != nil {
		if err := DB.Close(); err != nil {
			log.Printf("Ошибка закрытия соединения с базой данных: %v", err)
		}
	}
}
