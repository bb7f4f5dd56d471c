// Файл: internal/ingest/ingest.go
//
// Загрузка таблицы рейсов: разбор .xlsx, группировка строк по телефону и
// trip_identifier, проверка водителей и точек, создание рейса с
// уведомлениями в статусе pending.
package ingest

import (
	"database/sql"
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"reisbot/internal/constants"
	"reisbot/internal/db"
	"reisbot/internal/models"
	"reisbot/internal/utils"
)

// Row - одна разобранная строка загружаемой таблицы.
// Row is one parsed spreadsheet row.
type Row struct {
	Phone              string
	TripIdentifier     string
	PointID            string
	PointType          string
	PointNum           int
	VehicleNumber      string
	PlannedLoadingTime string
	DriverComment      string
}

// Detail - результат обработки одной группы (телефон или телефон+рейс).
type Detail struct {
	Phone          string `json:"phone"`
	TripIdentifier string `json:"trip_identifier,omitempty"`
	Status         string `json:"status"` // processed / error / unverified / missing_points
	Error          string `json:"error,omitempty"`
}

// Results - сводка загрузки: счетчики и детализация по группам.
// Results summarizes an upload: counters plus per-group details.
type Results struct {
	Processed     int      `json:"processed"`
	Errors        int      `json:"errors"`
	Unverified    int      `json:"unverified"`
	MissingPoints int      `json:"missing_points"`
	Details       []Detail `json:"details"`
}

// Store - хранилище, необходимое загрузчику.
type Store interface {
	GetUserByPhone(phone string) (models.User, error)
	MissingPointIDs(pointIDs []string) ([]string, error)
	CreateTrip(carpark sql.NullString, createdBy sql.NullInt64) (int64, error)
	CreateTripUnit(tripID int64, unit db.TripUnit) error
}

// Ingester разбирает загруженные таблицы и создает рейсы.
type Ingester struct {
	Store Store
}

func NewIngester(store Store) *Ingester {
	return &Ingester{Store: store}
}

// ParseWorkbook читает первый лист .xlsx: первая строка - заголовок, далее
// колонки phone, trip_identifier, point_id, point_type, point_num,
// vehicle_number, planned_loading_time, driver_comment.
// ParseWorkbook reads the first sheet of an .xlsx upload.
func ParseWorkbook(r io.Reader) ([]Row, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть файл таблицы: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("в файле нет листов")
	}

	rawRows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("не удалось прочитать лист '%s': %w", sheets[0], err)
	}
	if len(rawRows) < 2 {
		return nil, fmt.Errorf("таблица пуста: ожидается заголовок и хотя бы одна строка данных")
	}

	var rows []Row
	for i, raw := range rawRows[1:] {
		cell := func(idx int) string {
			if idx < len(raw) {
				return strings.TrimSpace(raw[idx])
			}
			return ""
		}

		row := Row{
			Phone:              cell(0),
			TripIdentifier:     cell(1),
			PointID:            cell(2),
			PointType:          strings.ToUpper(cell(3)),
			PointNum:           1,
			VehicleNumber:      cell(5),
			PlannedLoadingTime: cell(6),
			DriverComment:      cell(7),
		}
		if row.Phone == "" && row.TripIdentifier == "" && row.PointID == "" {
			continue // пустая строка
		}
		if numStr := cell(4); numStr != "" {
			num, errNum := strconv.Atoi(numStr)
			if errNum != nil || num < 1 {
				return nil, fmt.Errorf("строка %d: некорректный point_num '%s'", i+2, numStr)
			}
			row.PointNum = num
		}
		if row.PointType != constants.POINT_TYPE_LOADING && row.PointType != constants.POINT_TYPE_UNLOADING {
			return nil, fmt.Errorf("строка %d: некорректный point_type '%s', ожидается P или D", i+2, cell(3))
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("в таблице нет строк данных")
	}
	return rows, nil
}

// phoneGroup - строки одного телефона, сгруппированные по trip_identifier с
// сохранением порядка появления.
type phoneGroup struct {
	phone string
	order []string
	trips map[string][]Row
}

func groupRows(rows []Row) []*phoneGroup {
	var groups []*phoneGroup
	index := make(map[string]*phoneGroup)
	for _, row := range rows {
		g, ok := index[row.Phone]
		if !ok {
			g = &phoneGroup{phone: row.Phone, trips: make(map[string][]Row)}
			index[row.Phone] = g
			groups = append(groups, g)
		}
		if _, seen := g.trips[row.TripIdentifier]; !seen {
			g.order = append(g.order, row.TripIdentifier)
		}
		g.trips[row.TripIdentifier] = append(g.trips[row.TripIdentifier], row)
	}
	return groups
}

// Run создает рейс и загружает в него разобранные строки. Ошибки отдельных
// групп фиксируются в сводке и не прерывают обработку остальных.
// Run creates a trip and ingests the parsed rows; one group's failure does
// not abort its siblings.
func (ing *Ingester) Run(rows []Row, carpark sql.NullString, createdBy sql.NullInt64) (int64, Results, error) {
	results := Results{Details: []Detail{}}

	tripID, err := ing.Store.CreateTrip(carpark, createdBy)
	if err != nil {
		return 0, results, fmt.Errorf("не удалось создать рейс: %w", err)
	}

	for _, group := range groupRows(rows) {
		normalizedPhone, errPhone := utils.NormalizePhone(group.phone)
		if errPhone != nil {
			results.Errors++
			results.Details = append(results.Details, Detail{
				Phone: group.phone, Status: "error", Error: errPhone.Error(),
			})
			continue
		}

		user, errUser := ing.Store.GetUserByPhone(normalizedPhone)
		if errUser != nil {
			if errUser == sql.ErrNoRows {
				results.Errors++
				results.Details = append(results.Details, Detail{
					Phone: normalizedPhone, Status: "error", Error: "пользователь не найден",
				})
			} else {
				results.Errors++
				results.Details = append(results.Details, Detail{
					Phone: normalizedPhone, Status: "error", Error: errUser.Error(),
				})
			}
			continue
		}
		if !user.Verified {
			results.Unverified++
			results.Details = append(results.Details, Detail{
				Phone: normalizedPhone, Status: "unverified", Error: "пользователь не верифицирован",
			})
			continue
		}

		for _, tripIdentifier := range group.order {
			unitRows := group.trips[tripIdentifier]
			ing.ingestUnit(tripID, normalizedPhone, tripIdentifier, unitRows, &results)
		}
	}

	log.Printf("Загрузка завершена: рейс id %d, обработано %d, ошибок %d, неверифицированных %d, отсутствующих точек %d.",
		tripID, results.Processed, results.Errors, results.Unverified, results.MissingPoints)
	return tripID, results, nil
}

// ingestUnit обрабатывает одну единицу (телефон + trip_identifier): проверка
// точек и транзакционная вставка уведомления с точками маршрута.
func (ing *Ingester) ingestUnit(tripID int64, phone, tripIdentifier string, unitRows []Row, results *Results) {
	pointIDs := make([]string, 0, len(unitRows))
	for _, row := range unitRows {
		pointIDs = append(pointIDs, row.PointID)
	}

	missing, err := ing.Store.MissingPointIDs(pointIDs)
	if err != nil {
		results.Errors++
		results.Details = append(results.Details, Detail{
			Phone: phone, TripIdentifier: tripIdentifier, Status: "error", Error: err.Error(),
		})
		return
	}
	if len(missing) > 0 {
		results.MissingPoints++
		results.Details = append(results.Details, Detail{
			Phone: phone, TripIdentifier: tripIdentifier, Status: "missing_points",
			Error: fmt.Sprintf("точки не найдены: %s", strings.Join(missing, ", ")),
		})
		return
	}

	unit := db.TripUnit{
		Phone:          phone,
		TripIdentifier: tripIdentifier,
	}
	first := unitRows[0]
	if first.VehicleNumber != "" {
		unit.VehicleNumber = sql.NullString{String: first.VehicleNumber, Valid: true}
	}
	if first.PlannedLoadingTime != "" {
		unit.PlannedLoadingTime = sql.NullString{String: first.PlannedLoadingTime, Valid: true}
	}
	if first.DriverComment != "" {
		unit.DriverComment = sql.NullString{String: first.DriverComment, Valid: true}
	}
	for _, row := range unitRows {
		unit.Points = append(unit.Points, db.TripUnitPoint{
			PointID:   row.PointID,
			PointType: row.PointType,
			PointNum:  row.PointNum,
		})
	}

	if err := ing.Store.CreateTripUnit(tripID, unit); err != nil {
		results.Errors++
		results.Details = append(results.Details, Detail{
			Phone: phone, TripIdentifier: tripIdentifier, Status: "error", Error: err.Error(),
		})
		return
	}

	results.Processed++
	results.Details = append(results.Details, Detail{
		Phone: phone, TripIdentifier: tripIdentifier, Status: "processed",
	})
}
