package db

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/lib/pq"

	"reisbot/internal/constants"
	"reisbot/internal/models"
)

const messageColumns = `m.id, m.trip_id, m.phone, m.trip_identifier, m.status, m.response_status,
    m.vehicle_number, m.planned_loading_time, m.driver_comment, m.error_text,
    m.telegram_message_id, m.sent_at, m.response_at, m.created_at, m.updated_at`

func scanMessages(rows *sql.Rows, withChatID bool) ([]models.TripMessage, error) {
	var messages []models.TripMessage
	for rows.Next() {
		var m models.TripMessage
		dest := []interface{}{
			&m.ID, &m.TripID, &m.Phone, &m.TripIdentifier, &m.Status, &m.ResponseStatus,
			&m.VehicleNumber, &m.PlannedLoadingTime, &m.DriverComment, &m.ErrorText,
			&m.TelegramMessageID, &m.SentAt, &m.ResponseAt, &m.CreatedAt, &m.UpdatedAt,
		}
		if withChatID {
			dest = append(dest, &m.ChatID)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// GetPendingMessages возвращает неотправленные уведомления рейса вместе с
// chat_id водителя, если тот уже зарегистрирован в боте.
// GetPendingMessages returns pending trip messages joined with the driver's
// chat_id when resolvable.
func GetPendingMessages(tripID int64) ([]models.TripMessage, error) {
	rows, err := DB.Query(`
        SELECT `+messageColumns+`, u.chat_id
        FROM trip_messages m
        LEFT JOIN users u ON u.phone = m.phone
        WHERE m.trip_id=$1 AND m.status=$2
        ORDER BY m.phone, m.trip_identifier`,
		tripID, constants.MESSAGE_STATUS_PENDING)
	if err != nil {
		log.Printf("GetPendingMessages: ошибка выборки уведомлений рейса id %d: %v", tripID, err)
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows, true)
}

// GetMessagesByPhone возвращает все уведомления рейса для одного телефона.
func GetMessagesByPhone(tripID int64, phone string) ([]models.TripMessage, error) {
	rows, err := DB.Query(`
        SELECT `+messageColumns+`, u.chat_id
        FROM trip_messages m
        LEFT JOIN users u ON u.phone = m.phone
        WHERE m.trip_id=$1 AND m.phone=$2 AND m.status != 'deleted'
        ORDER BY m.trip_identifier`,
		tripID, phone)
	if err != nil {
		log.Printf("GetMessagesByPhone: ошибка выборки уведомлений рейса id %d для телефона %s: %v", tripID, phone, err)
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows, true)
}

// GetTripMessages возвращает все уведомления рейса, включая снятые.
func GetTripMessages(tripID int64) ([]models.TripMessage, error) {
	rows, err := DB.Query(`
        SELECT `+messageColumns+`
        FROM trip_messages m
        WHERE m.trip_id=$1
        ORDER BY m.phone, m.trip_identifier`, tripID)
	if err != nil {
		log.Printf("GetTripMessages: ошибка выборки уведомлений рейса id %d: %v", tripID, err)
		return nil, err
	}
	defer rows.Close()
	return scanMessages(rows, false)
}

// GetMessageByID извлекает одно уведомление по id.
func GetMessageByID(messageID int64) (models.TripMessage, error) {
	var m models.TripMessage
	err := DB.QueryRow(`
        SELECT `+messageColumns+`
        FROM trip_messages m WHERE m.id=$1`, messageID).Scan(
		&m.ID, &m.TripID, &m.Phone, &m.TripIdentifier, &m.Status, &m.ResponseStatus,
		&m.VehicleNumber, &m.PlannedLoadingTime, &m.DriverComment, &m.ErrorText,
		&m.TelegramMessageID, &m.SentAt, &m.ResponseAt, &m.CreatedAt, &m.UpdatedAt)
	if err != nil && err != sql.ErrNoRows {
		log.Printf("GetMessageByID: ошибка получения уведомления id %d: %v", messageID, err)
	}
	return m, err
}

// MarkMessagesSent помечает уведомления отправленными и сохраняет id
// сообщения Telegram, которым они были доставлены.
// MarkMessagesSent marks messages as sent and stores the Telegram message id.
func MarkMessagesSent(messageIDs []int64, telegramMessageID int) error {
	if len(messageIDs) == 0 {
		return nil
	}
	_, err := DB.Exec(`
        UPDATE trip_messages
        SET status=$1, telegram_message_id=$2, error_text=NULL, sent_at=NOW(), updated_at=NOW()
        WHERE id = ANY($3)`,
		constants.MESSAGE_STATUS_SENT, telegramMessageID, pq.Array(messageIDs))
	if err != nil {
		log.Printf("MarkMessagesSent: ошибка пометки уведомлений %v отправленными: %v", messageIDs, err)
	}
	return err
}

// MarkMessagesError помечает уведомления ошибочными с текстом ошибки отправки.
func MarkMessagesError(messageIDs []int64, errorText string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	_, err := DB.Exec(`
        UPDATE trip_messages
        SET status=$1, error_text=$2, updated_at=NOW()
        WHERE id = ANY($3)`,
		constants.MESSAGE_STATUS_ERROR, errorText, pq.Array(messageIDs))
	if err != nil {
		log.Printf("MarkMessagesError: ошибка пометки уведомлений %v ошибочными: %v", messageIDs, err)
	}
	return err
}

// SetResponseStatus записывает ответ водителя на уведомление.
// SetResponseStatus records the driver's response to a notification.
func SetResponseStatus(messageID int64, responseStatus string, responseAt time.Time) error {
	if responseStatus != constants.RESPONSE_STATUS_CONFIRMED &&
		responseStatus != constants.RESPONSE_STATUS_REJECTED {
		return fmt.Errorf("недопустимый статус ответа: %s", responseStatus)
	}
	result, err := DB.Exec(`
        UPDATE trip_messages
        SET response_status=$1, response_at=$2, updated_at=NOW()
        WHERE id=$3`,
		responseStatus, responseAt, messageID)
	if err != nil {
		log.Printf("SetResponseStatus: ошибка записи ответа '%s' для уведомления id %d: %v", responseStatus, messageID, err)
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	log.Printf("Уведомление id %d: записан ответ '%s'.", messageID, responseStatus)
	return nil
}

// OverrideResponse выставляет статус ответа всем уведомлениям рейса для
// телефона от имени диспетчера (например, ответ получен по телефону).
// OverrideResponse sets the response for all of a phone's trip messages on
// behalf of the dispatcher.
func OverrideResponse(tripID int64, phone, responseStatus string) (int64, error) {
	if responseStatus != constants.RESPONSE_STATUS_CONFIRMED &&
		responseStatus != constants.RESPONSE_STATUS_REJECTED {
		return 0, fmt.Errorf("недопустимый статус ответа: %s", responseStatus)
	}
	result, err := DB.Exec(`
        UPDATE trip_messages
        SET response_status=$1, response_at=NOW(), updated_at=NOW()
        WHERE trip_id=$2 AND phone=$3 AND status=$4`,
		responseStatus, tripID, phone, constants.MESSAGE_STATUS_SENT)
	if err != nil {
		log.Printf("OverrideResponse: ошибка записи ответа диспетчера для рейса id %d, телефон %s: %v", tripID, phone, err)
		return 0, err
	}
	n, _ := result.RowsAffected()
	log.Printf("Рейс id %d, телефон %s: диспетчер выставил ответ '%s' для %d уведомлений.", tripID, phone, responseStatus, n)
	return n, nil
}

// CancelMessages снимает все уведомления телефона в рейсе: статус становится
// deleted, из счетчиков и рассылки такие уведомления исключаются. Возвращает
// уведомления в состоянии до снятия, чтобы вызывающий мог убрать клавиатуры
// уже отправленных сообщений.
// CancelMessages soft-deletes a phone's trip messages and returns their prior
// state so the caller can strip keyboards from already sent ones.
func CancelMessages(tripID int64, phone string) ([]models.TripMessage, error) {
	messages, err := GetMessagesByPhone(tripID, phone)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, nil
	}

	_, err = DB.Exec(`
        UPDATE trip_messages
        SET status=$1, updated_at=NOW()
        WHERE trip_id=$2 AND phone=$3 AND status != $1`,
		constants.MESSAGE_STATUS_DELETED, tripID, phone)
	if err != nil {
		log.Printf("CancelMessages: ошибка снятия уведомлений рейса id %d для телефона %s: %v", tripID, phone, err)
		return nil, err
	}
	log.Printf("Рейс id %d, телефон %s: снято %d уведомлений.", tripID, phone, len(messages))
	return messages, nil
}

// ResetForResend возвращает уведомления телефона в статус pending перед
// повторной отправкой и сбрасывает прежний ответ. Дубликат строки при этом
// не создается: пара (trip_id, phone, trip_identifier) уникальна.
// ResetForResend returns a phone's messages to pending before a resend and
// clears the previous response.
func ResetForResend(tripID int64, phone string) ([]models.TripMessage, error) {
	_, err := DB.Exec(`
        UPDATE trip_messages
        SET status=$1, response_status=$2, response_at=NULL, error_text=NULL, updated_at=NOW()
        WHERE trip_id=$3 AND phone=$4 AND status != 'deleted'`,
		constants.MESSAGE_STATUS_PENDING, constants.RESPONSE_STATUS_PENDING, tripID, phone)
	if err != nil {
		log.Printf("ResetForResend: ошибка сброса уведомлений рейса id %d для телефона %s: %v", tripID, phone, err)
		return nil, err
	}
	return GetMessagesByPhone(tripID, phone)
}
