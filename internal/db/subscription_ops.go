package db

import (
	"database/sql"
	"log"
	"time"

	"reisbot/internal/models"
)

// UpsertSubscription создает подписку оператора на уведомления о ходе рейса
// или реактивирует существующую с новым интервалом. На пару (trip_id,
// user_id) остается не более одной активной подписки.
// UpsertSubscription creates or reactivates an operator's progress
// subscription for a trip.
func UpsertSubscription(tripID, userID int64, intervalMinutes int) (models.TripSubscription, error) {
	var s models.TripSubscription
	err := DB.QueryRow(`
        INSERT INTO trip_subscriptions (trip_id, user_id, interval_minutes, is_active, created_at, updated_at)
        VALUES ($1, $2, $3, TRUE, NOW(), NOW())
        ON CONFLICT (trip_id, user_id) DO UPDATE
        SET interval_minutes=EXCLUDED.interval_minutes, is_active=TRUE, updated_at=NOW()
        RETURNING id, trip_id, user_id, interval_minutes, is_active, last_notification_at, created_at, updated_at`,
		tripID, userID, intervalMinutes).Scan(
		&s.ID, &s.TripID, &s.UserID, &s.IntervalMinutes, &s.IsActive,
		&s.LastNotificationAt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		log.Printf("UpsertSubscription: ошибка сохранения подписки (рейс %d, пользователь %d): %v", tripID, userID, err)
		return s, err
	}
	log.Printf("Подписка на рейс %d для пользователя %d активна, интервал %d мин.", tripID, userID, intervalMinutes)
	return s, nil
}

// DeactivateSubscription отключает подписку пользователя на рейс.
func DeactivateSubscription(tripID, userID int64) error {
	result, err := DB.Exec(`
        UPDATE trip_subscriptions SET is_active=FALSE, updated_at=NOW()
        WHERE trip_id=$1 AND user_id=$2 AND is_active`,
		tripID, userID)
	if err != nil {
		log.Printf("DeactivateSubscription: ошибка отключения подписки (рейс %d, пользователь %d): %v", tripID, userID, err)
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeactivateSubscriptionByID отключает одну подписку по ее id.
func DeactivateSubscriptionByID(subscriptionID int64) error {
	_, err := DB.Exec(`
        UPDATE trip_subscriptions SET is_active=FALSE, updated_at=NOW() WHERE id=$1`,
		subscriptionID)
	if err != nil {
		log.Printf("DeactivateSubscriptionByID: ошибка отключения подписки id %d: %v", subscriptionID, err)
	}
	return err
}

// DeactivateTripSubscriptions отключает все подписки рейса (при завершении).
func DeactivateTripSubscriptions(tripID int64) error {
	_, err := DB.Exec(`
        UPDATE trip_subscriptions SET is_active=FALSE, updated_at=NOW()
        WHERE trip_id=$1 AND is_active`,
		tripID)
	if err != nil {
		log.Printf("DeactivateTripSubscriptions: ошибка отключения подписок рейса id %d: %v", tripID, err)
	}
	return err
}

// GetDueSubscriptions возвращает активные подписки, для которых подошло
// время очередного уведомления, вместе с chat_id подписчика.
// GetDueSubscriptions returns active subscriptions due for a notification,
// joined with the subscriber's chat_id.
func GetDueSubscriptions(now time.Time) ([]models.TripSubscription, error) {
	rows, err := DB.Query(`
        SELECT s.id, s.trip_id, s.user_id, s.interval_minutes, s.is_active,
               s.last_notification_at, s.created_at, s.updated_at, u.chat_id
        FROM trip_subscriptions s
        JOIN users u ON u.id = s.user_id
        WHERE s.is_active
          AND (s.last_notification_at IS NULL
               OR s.last_notification_at <= $1 - (s.interval_minutes * INTERVAL '1 minute'))
        ORDER BY s.id`,
		now)
	if err != nil {
		log.Printf("GetDueSubscriptions: ошибка выборки подписок: %v", err)
		return nil, err
	}
	defer rows.Close()

	var subs []models.TripSubscription
	for rows.Next() {
		var s models.TripSubscription
		if err := rows.Scan(&s.ID, &s.TripID, &s.UserID, &s.IntervalMinutes, &s.IsActive,
			&s.LastNotificationAt, &s.CreatedAt, &s.UpdatedAt, &s.ChatID); err != nil {
			log.Printf("GetDueSubscriptions: ошибка чтения строки: %v", err)
			return nil, err
		}
		subs = append(subs, s)
	}
	return subs, rows.Err()
}

// TouchSubscription обновляет отметку последнего уведомления подписки.
func TouchSubscription(subscriptionID int64, notifiedAt time.Time) error {
	_, err := DB.Exec(`
        UPDATE trip_subscriptions SET last_notification_at=$1, updated_at=NOW() WHERE id=$2`,
		notifiedAt, subscriptionID)
	if err != nil {
		log.Printf("TouchSubscription: ошибка обновления подписки id %d: %v", subscriptionID, err)
	}
	return err
}
