package db

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"reisbot/internal/models"
)

// CreateSession создает веб-сессию пользователя и возвращает ее токен.
// CreateSession creates a web session for the user and returns its token.
func CreateSession(userID int64, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	_, err := DB.Exec(`
        INSERT INTO sessions (token, user_id, expires_at, created_at)
        VALUES ($1, $2, $3, NOW())`,
		token, userID, time.Now().Add(ttl))
	if err != nil {
		log.Printf("CreateSession: ошибка создания сессии для пользователя id %d: %v", userID, err)
		return "", err
	}
	return token, nil
}

// GetSessionUser возвращает пользователя по токену непросроченной сессии.
// GetSessionUser returns the user of a non-expired session token.
func GetSessionUser(token string) (models.User, error) {
	var userID int64
	err := DB.QueryRow(`
        SELECT user_id FROM sessions WHERE token=$1 AND expires_at > NOW()`,
		token).Scan(&userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, err
		}
		log.Printf("GetSessionUser: ошибка проверки сессии: %v", err)
		return models.User{}, err
	}
	return GetUserByID(userID)
}

// DeleteSession удаляет сессию (выход из системы).
func DeleteSession(token string) error {
	_, err := DB.Exec("DELETE FROM sessions WHERE token=$1", token)
	if err != nil {
		log.Printf("DeleteSession: ошибка удаления сессии: %v", err)
	}
	return err
}

// DeleteExpiredSessions удаляет просроченные сессии и коды входа.
func DeleteExpiredSessions() error {
	if _, err := DB.Exec("DELETE FROM sessions WHERE expires_at <= NOW()"); err != nil {
		log.Printf("DeleteExpiredSessions: ошибка удаления просроченных сессий: %v", err)
		return err
	}
	if _, err := DB.Exec("DELETE FROM login_codes WHERE expires_at <= NOW()"); err != nil {
		log.Printf("DeleteExpiredSessions: ошибка удаления просроченных кодов входа: %v", err)
		return err
	}
	return nil
}

// SaveLoginCode сохраняет одноразовый код входа для телефона, перезаписывая
// предыдущий.
func SaveLoginCode(phone, code string, ttl time.Duration) error {
	_, err := DB.Exec(`
        INSERT INTO login_codes (phone, code, expires_at)
        VALUES ($1, $2, $3)
        ON CONFLICT (phone) DO UPDATE SET code=EXCLUDED.code, expires_at=EXCLUDED.expires_at`,
		phone, code, time.Now().Add(ttl))
	if err != nil {
		log.Printf("SaveLoginCode: ошибка сохранения кода входа для телефона %s: %v", phone, err)
	}
	return err
}

// ConsumeLoginCode проверяет одноразовый код входа и удаляет его при успехе.
// ConsumeLoginCode validates a one-time login code and deletes it on success.
func ConsumeLoginCode(phone, code string) error {
	var stored string
	var expiresAt time.Time
	err := DB.QueryRow(
		"SELECT code, expires_at FROM login_codes WHERE phone=$1", phone).Scan(&stored, &expiresAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return fmt.Errorf("код входа не запрашивался")
		}
		log.Printf("ConsumeLoginCode: ошибка проверки кода входа для телефона %s: %v", phone, err)
		return err
	}
	if time.Now().After(expiresAt) {
		return fmt.Errorf("код входа истек, запросите новый")
	}
	if stored != code {
		return fmt.Errorf("неверный код входа")
	}
	_, err = DB.Exec("DELETE FROM login_codes WHERE phone=$1", phone)
	if err != nil {
		log.Printf("ConsumeLoginCode: ошибка удаления использованного кода для телефона %s: %v", phone, err)
	}
	return err
}
