package db

import (
	"database/sql"
	"log"
)

// TripUnitPoint - одна точка маршрута в составе единицы загрузки.
type TripUnitPoint struct {
	PointID   string
	PointType string
	PointNum  int
}

// TripUnit - логически атомарная единица загрузки: одно уведомление водителю
// и точки его маршрута для одного trip_identifier.
// TripUnit is one logically atomic ingestion unit: a single driver
// notification plus its route points for one trip_identifier.
type TripUnit struct {
	Phone              string
	TripIdentifier     string
	VehicleNumber      sql.NullString
	PlannedLoadingTime sql.NullString
	DriverComment      sql.NullString
	Points             []TripUnitPoint
}

// CreateTripUnit вставляет уведомление и точки маршрута одного
// trip_identifier в одной транзакции: либо записывается вся единица, либо
// ничего.
// CreateTripUnit inserts one unit's message and points in a single
// transaction.
func CreateTripUnit(tripID int64, unit TripUnit) error {
	tx, err := DB.Begin()
	if err != nil {
		log.Printf("CreateTripUnit: ошибка начала транзакции: %v", err)
		return err
	}
	var opErr error
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if opErr != nil {
			tx.Rollback()
		} else {
			opErr = tx.Commit()
			if opErr != nil {
				log.Printf("CreateTripUnit: ошибка коммита транзакции: %v", opErr)
			}
		}
	}()

	_, opErr = tx.Exec(`
        INSERT INTO trip_messages (trip_id, phone, trip_identifier, status, response_status,
            vehicle_number, planned_loading_time, driver_comment, created_at, updated_at)
        VALUES ($1, $2, $3, 'pending', 'pending', $4, $5, $6, NOW(), NOW())`,
		tripID, unit.Phone, unit.TripIdentifier,
		unit.VehicleNumber, unit.PlannedLoadingTime, unit.DriverComment)
	if opErr != nil {
		log.Printf("CreateTripUnit: ошибка вставки уведомления (рейс %d, телефон %s, идентификатор %s): %v",
			tripID, unit.Phone, unit.TripIdentifier, opErr)
		return opErr
	}

	for _, point := range unit.Points {
		_, opErr = tx.Exec(`
            INSERT INTO trip_points (trip_id, trip_identifier, point_id, point_type, point_num)
            VALUES ($1, $2, $3, $4, $5)`,
			tripID, unit.TripIdentifier, point.PointID, point.PointType, point.PointNum)
		if opErr != nil {
			log.Printf("CreateTripUnit: ошибка вставки точки %s (рейс %d, идентификатор %s): %v",
				point.PointID, tripID, unit.TripIdentifier, opErr)
			return opErr
		}
	}

	return opErr
}
