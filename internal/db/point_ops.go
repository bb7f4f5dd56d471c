package db

import (
	"log"

	"github.com/lib/pq"

	"reisbot/internal/models"
)

// MissingPointIDs возвращает те из переданных point_id, которых нет в
// справочнике точек.
// MissingPointIDs returns the subset of point ids absent from the catalog.
func MissingPointIDs(pointIDs []string) ([]string, error) {
	if len(pointIDs) == 0 {
		return nil, nil
	}
	rows, err := DB.Query(`
        SELECT wanted.point_id
        FROM unnest($1::text[]) AS wanted(point_id)
        LEFT JOIN points p ON p.point_id = wanted.point_id
        WHERE p.point_id IS NULL`,
		pq.Array(pointIDs))
	if err != nil {
		log.Printf("MissingPointIDs: ошибка проверки точек %v: %v", pointIDs, err)
		return nil, err
	}
	defer rows.Close()

	var missing []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		missing = append(missing, id)
	}
	return missing, rows.Err()
}

// GetTripPoints возвращает точки маршрута одного trip_identifier с данными
// из справочника, отсортированные по типу (сначала погрузка) и point_num.
// GetTripPoints returns the route points of one trip_identifier with catalog
// details, ordered by type (loading first) and point_num.
func GetTripPoints(tripID int64, tripIdentifier string) ([]models.TripPoint, error) {
	rows, err := DB.Query(`
        SELECT tp.id, tp.trip_id, tp.trip_identifier, tp.point_id, tp.point_type, tp.point_num,
               p.point_id, p.name, p.door_info, p.latitude, p.longitude
        FROM trip_points tp
        JOIN points p ON p.point_id = tp.point_id
        WHERE tp.trip_id=$1 AND tp.trip_identifier=$2
        ORDER BY CASE tp.point_type WHEN 'P' THEN 0 ELSE 1 END, tp.point_num`,
		tripID, tripIdentifier)
	if err != nil {
		log.Printf("GetTripPoints: ошибка выборки точек рейса id %d, идентификатор %s: %v", tripID, tripIdentifier, err)
		return nil, err
	}
	defer rows.Close()

	var points []models.TripPoint
	for rows.Next() {
		var tp models.TripPoint
		if err := rows.Scan(&tp.ID, &tp.TripID, &tp.TripIdentifier, &tp.PointID,
			&tp.PointType, &tp.PointNum,
			&tp.Point.PointID, &tp.Point.Name, &tp.Point.DoorInfo,
			&tp.Point.Latitude, &tp.Point.Longitude); err != nil {
			log.Printf("GetTripPoints: ошибка чтения строки: %v", err)
			return nil, err
		}
		points = append(points, tp)
	}
	return points, rows.Err()
}

// UpsertPoint добавляет или обновляет точку справочника (действие админа).
func UpsertPoint(p models.Point) error {
	_, err := DB.Exec(`
        INSERT INTO points (point_id, name, door_info, latitude, longitude)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (point_id) DO UPDATE
        SET name=EXCLUDED.name, door_info=EXCLUDED.door_info,
            latitude=EXCLUDED.latitude, longitude=EXCLUDED.longitude`,
		p.PointID, p.Name, p.DoorInfo, p.Latitude, p.Longitude)
	if err != nil {
		log.Printf("UpsertPoint: ошибка сохранения точки %s: %v", p.PointID, err)
	}
	return err
}
