package formatters

import (
	"fmt"
	"strings"

	"reisbot/internal/constants"
	"reisbot/internal/models"
)

const separator = "─ ─ ─ ─ ─ ─ ─ ─ ─ ─ ─ ─ ─"

// TripBlock - данные одного trip_identifier для составного сообщения
// водителю: уведомление и точки его маршрута.
// TripBlock holds one trip_identifier's notification and route points for
// the combined driver message.
type TripBlock struct {
	Message models.TripMessage
	Points  []models.TripPoint
}

// FormatCombinedTripMessage форматирует одно сообщение водителю, покрывающее
// все его trip_identifier в рейсе.
// FormatCombinedTripMessage renders one driver message covering all of the
// phone's trip_identifiers in a trip.
func FormatCombinedTripMessage(blocks []TripBlock) string {
	var b strings.Builder

	if len(blocks) == 1 {
		b.WriteString("🚛 Вам назначен рейс. Пожалуйста, подтвердите участие.\n")
	} else {
		b.WriteString(fmt.Sprintf("🚛 Вам назначено рейсов: %d. Пожалуйста, подтвердите участие по каждому.\n", len(blocks)))
	}

	for _, block := range blocks {
		b.WriteString(separator + "\n")
		b.WriteString(fmt.Sprintf("📋 Рейс %s\n", block.Message.TripIdentifier))
		if block.Message.VehicleNumber.Valid && block.Message.VehicleNumber.String != "" {
			b.WriteString(fmt.Sprintf(" •  ТС: %s\n", block.Message.VehicleNumber.String))
		}
		if block.Message.PlannedLoadingTime.Valid && block.Message.PlannedLoadingTime.String != "" {
			b.WriteString(fmt.Sprintf(" •  Плановое время погрузки: %s\n", block.Message.PlannedLoadingTime.String))
		}

		writePoints(&b, "📦 Погрузка:", block.Points, constants.POINT_TYPE_LOADING)
		writePoints(&b, "📍 Выгрузка:", block.Points, constants.POINT_TYPE_UNLOADING)

		if block.Message.DriverComment.Valid && block.Message.DriverComment.String != "" {
			b.WriteString(fmt.Sprintf("💬 Комментарий: %s\n", block.Message.DriverComment.String))
		}
	}

	return b.String()
}

func writePoints(b *strings.Builder, title string, points []models.TripPoint, pointType string) {
	wroteTitle := false
	for _, p := range points {
		if p.PointType != pointType {
			continue
		}
		if !wroteTitle {
			b.WriteString(title + "\n")
			wroteTitle = true
		}
		line := fmt.Sprintf("   %d. %s", p.PointNum, p.Point.Name)
		if p.Point.DoorInfo.Valid && p.Point.DoorInfo.String != "" {
			line += fmt.Sprintf(" (%s)", p.Point.DoorInfo.String)
		}
		b.WriteString(line + "\n")
	}
}

// FormatTripProgress форматирует уведомление о ходе рейса для подписчика.
// FormatTripProgress renders a progress notification for a subscriber.
func FormatTripProgress(p models.TripProgress) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 Рейс #%d: ход рассылки\n", p.TripID))
	b.WriteString(separator + "\n")
	b.WriteString(fmt.Sprintf("Отправлено: %d из %d\n", p.Sent, p.Total))
	b.WriteString(fmt.Sprintf("Ответили: %d%%\n", p.ResponsePercent()))
	b.WriteString(fmt.Sprintf(" •  ✅ Подтвердили: %d\n", p.Confirmed))
	b.WriteString(fmt.Sprintf(" •  ❌ Отказались: %d\n", p.Rejected))
	b.WriteString(fmt.Sprintf(" •  ⏳ Без ответа: %d\n", p.Pending))
	if p.Completed() {
		b.WriteString(separator + "\n")
		b.WriteString("🏁 Все ответы получены, рейс завершен. Подписка отключена.\n")
	}
	return b.String()
}

// FormatUserProfile форматирует профиль пользователя для ответа на /start.
func FormatUserProfile(u models.User) string {
	var b strings.Builder
	b.WriteString("👤 Вы уже зарегистрированы.\n")
	b.WriteString(separator + "\n")
	if u.Name != "" {
		b.WriteString(fmt.Sprintf(" •  Имя: %s\n", u.Name))
	}
	if u.Phone.Valid {
		b.WriteString(fmt.Sprintf(" •  Телефон: %s\n", u.Phone.String))
	}
	b.WriteString(fmt.Sprintf(" •  Роль: %s\n", roleDisplay(u.Role)))
	if u.Carpark.Valid && u.Carpark.String != "" {
		b.WriteString(fmt.Sprintf(" •  Автопарк: %s\n", u.Carpark.String))
	}
	if !u.Verified {
		b.WriteString("⚠️ Аккаунт еще не подтвержден администратором.\n")
	}
	return b.String()
}

func roleDisplay(role string) string {
	switch role {
	case constants.ROLE_ADMIN:
		return "администратор"
	case constants.ROLE_OPERATOR:
		return "оператор"
	case constants.ROLE_DRIVER:
		return "водитель"
	}
	return role
}
