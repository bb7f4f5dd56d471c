package db

import (
	"database/sql"
	"fmt"
	"log"

	"reisbot/internal/constants"
	"reisbot/internal/models"
)

const userColumns = `id, chat_id, phone, name, role, carpark, verified, registration_state, created_at, updated_at`

func scanUser(row *sql.Row) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.ChatID, &u.Phone, &u.Name, &u.Role, &u.Carpark,
		&u.Verified, &u.RegistrationState, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

// GetUserByChatID извлекает пользователя по его chat_id.
// Возвращает sql.ErrNoRows, если пользователь не найден.
// GetUserByChatID retrieves a user by their chat_id.
func GetUserByChatID(chatID int64) (models.User, error) {
	u, err := scanUser(DB.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE chat_id=$1`, chatID))
	if err != nil && err != sql.ErrNoRows {
		log.Printf("GetUserByChatID: ошибка получения пользователя chatID %d: %v", chatID, err)
	}
	return u, err
}

// GetUserByPhone извлекает пользователя по нормализованному номеру телефона.
func GetUserByPhone(phone string) (models.User, error) {
	u, err := scanUser(DB.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE phone=$1`, phone))
	if err != nil && err != sql.ErrNoRows {
		log.Printf("GetUserByPhone: ошибка получения пользователя по телефону %s: %v", phone, err)
	}
	return u, err
}

// GetUserByID извлекает пользователя по внутреннему id.
func GetUserByID(id int64) (models.User, error) {
	u, err := scanUser(DB.QueryRow(
		`SELECT `+userColumns+` FROM users WHERE id=$1`, id))
	if err != nil && err != sql.ErrNoRows {
		log.Printf("GetUserByID: ошибка получения пользователя id %d: %v", id, err)
	}
	return u, err
}

// UpsertDriverContact создает или обновляет пользователя по номеру телефона,
// полученному при передаче контакта боту. Существующему пользователю
// привязывается chat_id, новый создается с ролью driver. Регистрация в обоих
// случаях помечается завершенной.
// UpsertDriverContact creates or updates a user by the phone number received
// from a contact share with the bot.
func UpsertDriverContact(phone string, chatID int64, name string) (models.User, error) {
	var exists bool
	err := DB.QueryRow("SELECT EXISTS(SELECT 1 FROM users WHERE phone=$1)", phone).Scan(&exists)
	if err != nil {
		log.Printf("UpsertDriverContact: ошибка проверки существования телефона %s: %v", phone, err)
		return models.User{}, err
	}

	if exists {
		_, err = DB.Exec(`
            UPDATE users
            SET chat_id=$1, registration_state=$2, updated_at=NOW()
            WHERE phone=$3`,
			chatID, constants.REGISTRATION_STATE_COMPLETED, phone)
		if err != nil {
			log.Printf("UpsertDriverContact: ошибка привязки chatID %d к телефону %s: %v", chatID, phone, err)
			return models.User{}, err
		}
		log.Printf("Пользователь с телефоном %s привязан к chatID %d.", phone, chatID)
	} else {
		_, err = DB.Exec(`
            INSERT INTO users (chat_id, phone, name, role, verified, registration_state, created_at, updated_at)
            VALUES ($1, $2, $3, $4, FALSE, $5, NOW(), NOW())`,
			chatID, phone, name, constants.ROLE_DRIVER, constants.REGISTRATION_STATE_COMPLETED)
		if err != nil {
			log.Printf("UpsertDriverContact: ошибка создания водителя с телефоном %s: %v", phone, err)
			return models.User{}, err
		}
		log.Printf("Зарегистрирован новый водитель: телефон %s, chatID %d.", phone, chatID)
	}

	return GetUserByPhone(phone)
}

// SetUserVerified выставляет флаг верификации пользователя (действие админа).
func SetUserVerified(userID int64, verified bool) error {
	result, err := DB.Exec(
		"UPDATE users SET verified=$1, updated_at=NOW() WHERE id=$2", verified, userID)
	if err != nil {
		log.Printf("SetUserVerified: ошибка обновления флага верификации для id %d: %v", userID, err)
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("пользователь с id %d не найден", userID)
	}
	return nil
}

// DeleteUser удаляет пользователя (только по явному действию админа).
func DeleteUser(userID int64) error {
	result, err := DB.Exec("DELETE FROM users WHERE id=$1", userID)
	if err != nil {
		log.Printf("DeleteUser: ошибка удаления пользователя id %d: %v", userID, err)
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("пользователь с id %d не найден", userID)
	}
	log.Printf("Пользователь id %d удален.", userID)
	return nil
}
