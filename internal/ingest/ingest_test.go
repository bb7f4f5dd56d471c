package ingest

import (
	"bytes"
	"database/sql"
	"fmt"
	"testing"

	"github.com/xuri/excelize/v2"

	"reisbot/internal/db"
	"reisbot/internal/models"
)

// MockStore для тестирования загрузчика.
type MockStore struct {
	GetUserByPhoneFunc  func(phone string) (models.User, error)
	MissingPointIDsFunc func(pointIDs []string) ([]string, error)
	CreateTripFunc      func(carpark sql.NullString, createdBy sql.NullInt64) (int64, error)
	CreateTripUnitFunc  func(tripID int64, unit db.TripUnit) error

	createdUnits []db.TripUnit
}

func (m *MockStore) GetUserByPhone(phone string) (models.User, error) {
	if m.GetUserByPhoneFunc != nil {
		return m.GetUserByPhoneFunc(phone)
	}
	return models.User{ID: 1, Role: "driver", Verified: true}, nil
}

func (m *MockStore) MissingPointIDs(pointIDs []string) ([]string, error) {
	if m.MissingPointIDsFunc != nil {
		return m.MissingPointIDsFunc(pointIDs)
	}
	return nil, nil
}

func (m *MockStore) CreateTrip(carpark sql.NullString, createdBy sql.NullInt64) (int64, error) {
	if m.CreateTripFunc != nil {
		return m.CreateTripFunc(carpark, createdBy)
	}
	return 42, nil
}

func (m *MockStore) CreateTripUnit(tripID int64, unit db.TripUnit) error {
	m.createdUnits = append(m.createdUnits, unit)
	if m.CreateTripUnitFunc != nil {
		return m.CreateTripUnitFunc(tripID, unit)
	}
	return nil
}

// workbook собирает .xlsx в памяти: заголовок плюс переданные строки данных.
func workbook(t *testing.T, dataRows [][]string) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetList()[0]
	header := []string{"phone", "trip_identifier", "point_id", "point_type", "point_num", "vehicle_number", "planned_loading_time", "driver_comment"}
	for col, v := range header {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(sheet, cell, v); err != nil {
			t.Fatalf("не удалось записать заголовок: %v", err)
		}
	}
	for rowIdx, row := range dataRows {
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatalf("не удалось записать ячейку: %v", err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("не удалось сериализовать книгу: %v", err)
	}
	return &buf
}

func TestParseWorkbook(t *testing.T) {
	buf := workbook(t, [][]string{
		{"79990000000", "T1", "A1", "P", "1", "А123ВС77", "2025-03-01 08:00", "позвонить за час"},
		{"79990000000", "T1", "B1", "d", "1", "", "", ""},
	})

	rows, err := ParseWorkbook(buf)
	if err != nil {
		t.Fatalf("ParseWorkbook вернул ошибку: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("ожидалось 2 строки, получено %d", len(rows))
	}
	if rows[0].Phone != "79990000000" || rows[0].TripIdentifier != "T1" || rows[0].PointID != "A1" {
		t.Errorf("первая строка разобрана неверно: %+v", rows[0])
	}
	if rows[0].VehicleNumber != "А123ВС77" || rows[0].DriverComment != "позвонить за час" {
		t.Errorf("дополнительные колонки разобраны неверно: %+v", rows[0])
	}
	// Тип точки приводится к верхнему регистру.
	if rows[1].PointType != "D" {
		t.Errorf("point_type должен нормализоваться: %+v", rows[1])
	}
	if rows[1].PointNum != 1 {
		t.Errorf("пустой point_num должен давать 1: %+v", rows[1])
	}
}

func TestParseWorkbook_InvalidPointType(t *testing.T) {
	buf := workbook(t, [][]string{
		{"79990000000", "T1", "A1", "X", "1", "", "", ""},
	})
	if _, err := ParseWorkbook(buf); err == nil {
		t.Error("неизвестный point_type должен быть ошибкой разбора")
	}
}

func TestParseWorkbook_EmptySheet(t *testing.T) {
	buf := workbook(t, nil)
	if _, err := ParseWorkbook(buf); err == nil {
		t.Error("таблица без строк данных должна быть ошибкой")
	}
}

func parsedRows() []Row {
	return []Row{
		{Phone: "79990000000", TripIdentifier: "T1", PointID: "A1", PointType: "P", PointNum: 1},
		{Phone: "79990000000", TripIdentifier: "T1", PointID: "B1", PointType: "D", PointNum: 1},
	}
}

func TestRun_Success(t *testing.T) {
	store := &MockStore{}
	ing := NewIngester(store)

	tripID, results, err := ing.Run(parsedRows(), sql.NullString{}, sql.NullInt64{})
	if err != nil {
		t.Fatalf("Run вернул ошибку: %v", err)
	}
	if tripID != 42 {
		t.Errorf("неожиданный id рейса: %d", tripID)
	}
	if results.Processed != 1 || results.Errors != 0 {
		t.Errorf("неожиданная сводка: %+v", results)
	}
	if len(store.createdUnits) != 1 {
		t.Fatalf("ожидалась одна единица загрузки, получено %d", len(store.createdUnits))
	}
	unit := store.createdUnits[0]
	if unit.Phone != "79990000000" || unit.TripIdentifier != "T1" || len(unit.Points) != 2 {
		t.Errorf("единица загрузки собрана неверно: %+v", unit)
	}
}

func TestRun_UserNotFound(t *testing.T) {
	store := &MockStore{
		GetUserByPhoneFunc: func(phone string) (models.User, error) {
			return models.User{}, sql.ErrNoRows
		},
	}
	ing := NewIngester(store)

	_, results, err := ing.Run(parsedRows(), sql.NullString{}, sql.NullInt64{})
	if err != nil {
		t.Fatalf("Run вернул ошибку: %v", err)
	}
	if results.Errors != 1 || results.Processed != 0 {
		t.Errorf("неизвестный телефон должен попасть в ошибки: %+v", results)
	}
	if len(store.createdUnits) != 0 {
		t.Errorf("для неизвестного телефона не должно создаваться уведомлений: %v", store.createdUnits)
	}
}

func TestRun_UnverifiedUser(t *testing.T) {
	store := &MockStore{
		GetUserByPhoneFunc: func(phone string) (models.User, error) {
			return models.User{ID: 1, Role: "driver", Verified: false}, nil
		},
	}
	ing := NewIngester(store)

	_, results, err := ing.Run(parsedRows(), sql.NullString{}, sql.NullInt64{})
	if err != nil {
		t.Fatalf("Run вернул ошибку: %v", err)
	}
	if results.Unverified != 1 || results.Processed != 0 {
		t.Errorf("неверифицированный водитель должен учитываться отдельно: %+v", results)
	}
}

func TestRun_MissingPoints(t *testing.T) {
	store := &MockStore{
		MissingPointIDsFunc: func(pointIDs []string) ([]string, error) {
			return []string{"B1"}, nil
		},
	}
	ing := NewIngester(store)

	_, results, err := ing.Run(parsedRows(), sql.NullString{}, sql.NullInt64{})
	if err != nil {
		t.Fatalf("Run вернул ошибку: %v", err)
	}
	if results.MissingPoints != 1 || results.Processed != 0 {
		t.Errorf("отсутствующие точки должны учитываться отдельно: %+v", results)
	}
	if len(results.Details) != 1 || results.Details[0].Status != "missing_points" {
		t.Errorf("детализация должна называть отсутствующие точки: %+v", results.Details)
	}
}

func TestRun_GroupFailureDoesNotAbortSiblings(t *testing.T) {
	rows := []Row{
		{Phone: "79990000000", TripIdentifier: "T1", PointID: "A1", PointType: "P", PointNum: 1},
		{Phone: "79991111111", TripIdentifier: "T2", PointID: "A1", PointType: "P", PointNum: 1},
	}
	store := &MockStore{
		GetUserByPhoneFunc: func(phone string) (models.User, error) {
			if phone == "79990000000" {
				return models.User{}, fmt.Errorf("ошибка базы данных")
			}
			return models.User{ID: 2, Role: "driver", Verified: true}, nil
		},
	}
	ing := NewIngester(store)

	_, results, err := ing.Run(rows, sql.NullString{}, sql.NullInt64{})
	if err != nil {
		t.Fatalf("Run вернул ошибку: %v", err)
	}
	if results.Errors != 1 || results.Processed != 1 {
		t.Errorf("ошибка одной группы не должна прерывать остальные: %+v", results)
	}
}
