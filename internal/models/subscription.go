package models

import (
	"database/sql"
	"time"
)

// TripSubscription - подписка оператора на периодические уведомления о ходе
// одного рейса. На пару (trip_id, user_id) существует не более одной
// активной подписки.
// An operator's opt-in to periodic progress notifications for one trip.
type TripSubscription struct {
	ID                 int64
	TripID             int64
	UserID             int64
	IntervalMinutes    int
	IsActive           bool
	LastNotificationAt sql.NullTime
	CreatedAt          time.Time
	UpdatedAt          time.Time

	// ChatID подписчика, подтягивается join-ом с users при выборке
	// подписок к уведомлению.
	ChatID sql.NullInt64
}

// Due сообщает, пора ли отправлять подписчику очередное уведомление.
func (s TripSubscription) Due(now time.Time) bool {
	if !s.IsActive {
		return false
	}
	if !s.LastNotificationAt.Valid {
		return true
	}
	return now.Sub(s.LastNotificationAt.Time) >= time.Duration(s.IntervalMinutes)*time.Minute
}
