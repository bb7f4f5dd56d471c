package db

import (
	"database/sql"
	"fmt"
	"log"

	"reisbot/internal/constants"
	"reisbot/internal/models"
)

// CreateTrip создает новый рейс в статусе active и возвращает его id.
// CreateTrip creates a new trip in active status and returns its id.
func CreateTrip(carpark sql.NullString, createdBy sql.NullInt64) (int64, error) {
	var id int64
	err := DB.QueryRow(`
        INSERT INTO trips (status, carpark, created_by, created_at, updated_at)
        VALUES ($1, $2, $3, NOW(), NOW())
        RETURNING id`,
		constants.TRIP_STATUS_ACTIVE, carpark, createdBy).Scan(&id)
	if err != nil {
		log.Printf("CreateTrip: ошибка создания рейса: %v", err)
		return 0, err
	}
	log.Printf("Создан рейс id %d.", id)
	return id, nil
}

// GetTrip извлекает рейс по id.
func GetTrip(tripID int64) (models.Trip, error) {
	var t models.Trip
	err := DB.QueryRow(`
        SELECT id, status, carpark, created_by, created_at, updated_at
        FROM trips WHERE id=$1`, tripID).Scan(
		&t.ID, &t.Status, &t.Carpark, &t.CreatedBy, &t.CreatedAt, &t.UpdatedAt)
	if err != nil && err != sql.ErrNoRows {
		log.Printf("GetTrip: ошибка получения рейса id %d: %v", tripID, err)
	}
	return t, err
}

// LatestTripID возвращает id последнего созданного рейса.
func LatestTripID() (int64, error) {
	var id int64
	err := DB.QueryRow("SELECT id FROM trips ORDER BY id DESC LIMIT 1").Scan(&id)
	if err != nil {
		if err == sql.ErrNoRows {
			return 0, fmt.Errorf("рейсы еще не создавались")
		}
		log.Printf("LatestTripID: ошибка получения последнего рейса: %v", err)
		return 0, err
	}
	return id, nil
}

// CompleteTrip переводит рейс в статус completed.
func CompleteTrip(tripID int64) error {
	_, err := DB.Exec(
		"UPDATE trips SET status=$1, updated_at=NOW() WHERE id=$2",
		constants.TRIP_STATUS_COMPLETED, tripID)
	if err != nil {
		log.Printf("CompleteTrip: ошибка завершения рейса id %d: %v", tripID, err)
		return err
	}
	log.Printf("Рейс id %d помечен завершенным.", tripID)
	return nil
}

// GetTripProgress считает агрегатные счетчики ответов по рейсу.
// Счетчик pending - отправленные уведомления без ответа.
// GetTripProgress computes aggregate response counters for a trip.
func GetTripProgress(tripID int64) (models.TripProgress, error) {
	p := models.TripProgress{TripID: tripID}
	err := DB.QueryRow(`
        SELECT
            COUNT(*) FILTER (WHERE status != 'deleted'),
            COUNT(*) FILTER (WHERE status = 'sent'),
            COUNT(*) FILTER (WHERE status = 'sent' AND response_status = 'confirmed'),
            COUNT(*) FILTER (WHERE status = 'sent' AND response_status = 'rejected'),
            COUNT(*) FILTER (WHERE status = 'sent' AND response_status = 'pending')
        FROM trip_messages WHERE trip_id=$1`, tripID).Scan(
		&p.Total, &p.Sent, &p.Confirmed, &p.Rejected, &p.Pending)
	if err != nil {
		log.Printf("GetTripProgress: ошибка подсчета статистики рейса id %d: %v", tripID, err)
		return p, err
	}
	return p, nil
}

// ListTrips возвращает рейсы со счетчиками ответов. Для оператора выборка
// ограничена его автопарком, админ видит все рейсы.
// ListTrips returns trips with response counters, scoped by carpark for
// operators.
func ListTrips(carpark sql.NullString) ([]models.TripSummary, error) {
	query := `
        SELECT t.id, t.status, t.carpark, t.created_by, t.created_at, t.updated_at,
            COUNT(m.id) FILTER (WHERE m.status != 'deleted'),
            COUNT(m.id) FILTER (WHERE m.status = 'sent'),
            COUNT(m.id) FILTER (WHERE m.status = 'sent' AND m.response_status = 'confirmed'),
            COUNT(m.id) FILTER (WHERE m.status = 'sent' AND m.response_status = 'rejected'),
            COUNT(m.id) FILTER (WHERE m.status = 'sent' AND m.response_status = 'pending')
        FROM trips t
        LEFT JOIN trip_messages m ON m.trip_id = t.id`
	args := []interface{}{}
	if carpark.Valid {
		query += ` WHERE t.carpark = $1`
		args = append(args, carpark.String)
	}
	query += ` GROUP BY t.id ORDER BY t.id DESC`

	rows, err := DB.Query(query, args...)
	if err != nil {
		log.Printf("ListTrips: ошибка выборки рейсов: %v", err)
		return nil, err
	}
	defer rows.Close()

	var trips []models.TripSummary
	for rows.Next() {
		var s models.TripSummary
		if err := rows.Scan(&s.Trip.ID, &s.Trip.Status, &s.Trip.Carpark, &s.Trip.CreatedBy,
			&s.Trip.CreatedAt, &s.Trip.UpdatedAt,
			&s.Progress.Total, &s.Progress.Sent, &s.Progress.Confirmed,
			&s.Progress.Rejected, &s.Progress.Pending); err != nil {
			log.Printf("ListTrips: ошибка чтения строки: %v", err)
			return nil, err
		}
		s.Progress.TripID = s.Trip.ID
		trips = append(trips, s)
	}
	return trips, rows.Err()
}

// DeleteTrip удаляет рейс вместе с его уведомлениями и точками. Удаление
// запрещено, пока по рейсу есть неотвеченные уведомления, не завершившиеся
// ошибкой отправки.
// DeleteTrip removes a trip; refused while pending, non-error messages exist.
func DeleteTrip(tripID int64) error {
	messages, err := GetTripMessages(tripID)
	if err != nil {
		log.Printf("DeleteTrip: ошибка проверки неотвеченных уведомлений рейса id %d: %v", tripID, err)
		return err
	}
	pending := 0
	for _, m := range messages {
		if m.AwaitingResponse() {
			pending++
		}
	}
	if pending > 0 {
		return fmt.Errorf("рейс id %d нельзя удалить: %d уведомлений ожидают ответа", tripID, pending)
	}

	result, err := DB.Exec("DELETE FROM trips WHERE id=$1", tripID)
	if err != nil {
		log.Printf("DeleteTrip: ошибка удаления рейса id %d: %v", tripID, err)
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return sql.ErrNoRows
	}
	log.Printf("Рейс id %d удален.", tripID)
	return nil
}
