package models

import (
	"database/sql"
	"time"
)

// User represents a user in the system.
// Пользователь: администратор, оператор или водитель. Водители создаются
// автоматически при передаче контакта боту.
type User struct {
	ID                int64
	ChatID            sql.NullInt64 // chat_id появляется только после первого контакта с ботом
	Phone             sql.NullString
	Name              string
	Role              string
	Carpark           sql.NullString // автопарк, ограничивает видимость оператора
	Verified          bool
	RegistrationState string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HasChatID сообщает, привязан ли к пользователю Telegram-чат.
func (u User) HasChatID() bool {
	return u.ChatID.Valid && u.ChatID.Int64 != 0
}
