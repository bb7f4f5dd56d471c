package models

import (
	"database/sql"
	"time"

	"reisbot/internal/constants"
)

// Trip представляет рейс (кампанию рассылки), созданный одной загрузкой
// таблицы. Переходит в completed, когда на все отправленные уведомления
// получен ответ.
// Trip represents one upload campaign of driver notifications.
type Trip struct {
	ID        int64
	Status    string
	Carpark   sql.NullString
	CreatedBy sql.NullInt64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TripMessage - одно уведомление водителю в рамках рейса: пара
// (телефон, номер рейса в таблице) уникальна внутри trip_id.
type TripMessage struct {
	ID                 int64
	TripID             int64
	Phone              string
	TripIdentifier     string
	Status             string // pending / sent / error / deleted
	ResponseStatus     string // pending / confirmed / rejected
	VehicleNumber      sql.NullString
	PlannedLoadingTime sql.NullString
	DriverComment      sql.NullString
	ErrorText          sql.NullString
	TelegramMessageID  sql.NullInt64
	SentAt             sql.NullTime
	ResponseAt         sql.NullTime
	CreatedAt          time.Time
	UpdatedAt          time.Time

	// ChatID водителя, подтягивается join-ом с users при диспетчеризации.
	ChatID sql.NullInt64
}

// AwaitingResponse сообщает, ждет ли уведомление ответа водителя: ответ не
// получен, а само уведомление не завершилось ошибкой отправки и не снято.
// Пока по рейсу есть такие уведомления, рейс нельзя удалить.
// AwaitingResponse reports whether the notification still awaits the driver's
// response; trips with such notifications cannot be deleted.
func (m TripMessage) AwaitingResponse() bool {
	return m.ResponseStatus == constants.RESPONSE_STATUS_PENDING &&
		m.Status != constants.MESSAGE_STATUS_ERROR &&
		m.Status != constants.MESSAGE_STATUS_DELETED
}

// Point - физическая точка погрузки/выгрузки из справочника.
type Point struct {
	PointID   string
	Name      string
	DoorInfo  sql.NullString
	Latitude  sql.NullFloat64
	Longitude sql.NullFloat64
}

// TripPoint - ссылка на точку маршрута внутри одного trip_identifier.
// point_num задает порядок отображения внутри своего типа.
type TripPoint struct {
	ID             int64
	TripID         int64
	TripIdentifier string
	PointID        string
	PointType      string // P - погрузка, D - выгрузка
	PointNum       int

	// Данные точки из справочника (join с points).
	Point Point
}

// TripProgress - агрегатные счетчики ответов по рейсу.
// Aggregate response counters for a trip.
type TripProgress struct {
	TripID    int64 `json:"trip_id"`
	Total     int   `json:"total"`
	Sent      int   `json:"sent"`
	Confirmed int   `json:"confirmed"`
	Rejected  int   `json:"rejected"`
	Pending   int   `json:"pending"`
}

// Completed сообщает, закрыт ли рейс: все уведомления отправлены и на каждое
// получен ответ.
func (p TripProgress) Completed() bool {
	return p.Total > 0 && p.Sent == p.Total && p.Confirmed+p.Rejected == p.Sent
}

// ResponsePercent возвращает долю отвеченных уведомлений в процентах.
func (p TripProgress) ResponsePercent() int {
	if p.Sent == 0 {
		return 0
	}
	return (p.Confirmed + p.Rejected) * 100 / p.Sent
}

// TripSummary - строка списка рейсов для операторского интерфейса.
type TripSummary struct {
	Trip     Trip         `json:"trip"`
	Progress TripProgress `json:"progress"`
}
