// Файл: internal/api/handlers.go
package api

import (
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
	"github.com/go-chi/chi/v5"

	"reisbot/internal/constants"
	"reisbot/internal/db"
	"reisbot/internal/ingest"
	"reisbot/internal/utils"
)

// ApiHandlers связывает обработчики REST-маршрутов с зависимостями.
type ApiHandlers struct {
	Deps ApiDependencies
}

// --- Вспомогательные функции для JSON-ответов ---
// --- JSON response helpers ---

func writeJSON(w http.ResponseWriter, statusCode int, payload map[string]interface{}) {
	payload["success"] = true
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func writeJSONError(w http.ResponseWriter, statusCode int, message, details string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	body := map[string]interface{}{"success": false, "error": message}
	if details != "" {
		body["details"] = details
	}
	json.NewEncoder(w).Encode(body)
}

// resolveTripID разбирает id рейса из строки; литерал "latest" означает
// последний созданный рейс.
func resolveTripID(raw string) (int64, error) {
	if raw == "latest" {
		return db.LatestTripID()
	}
	return strconv.ParseInt(raw, 10, 64)
}

// TelegramWebhook принимает обновления Telegram. Токен в пути сверяется с
// токеном бота.
// TelegramWebhook accepts Telegram updates; the path token guards intake.
func (h *ApiHandlers) TelegramWebhook(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "token") != h.Deps.Config.TelegramToken {
		writeJSONError(w, http.StatusUnauthorized, "неверный токен вебхука", "")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "не удалось прочитать тело запроса", err.Error())
		return
	}

	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		log.Printf("TelegramWebhook: не удалось разобрать обновление: %v", err)
		writeJSONError(w, http.StatusBadRequest, "некорректное обновление Telegram", err.Error())
		return
	}

	h.Deps.Bot.RouteUpdate(update)
	w.WriteHeader(http.StatusOK)
}

// Upload принимает multipart .xlsx с рейсами, запускает загрузку и
// возвращает id созданного рейса со сводкой.
// Upload ingests a multipart .xlsx and returns the new trip id and summary.
func (h *ApiHandlers) Upload(w http.ResponseWriter, r *http.Request) {
	user, _ := requestUser(r)

	if err := r.ParseMultipartForm(16 << 20); err != nil {
		writeJSONError(w, http.StatusBadRequest, "не удалось разобрать multipart-запрос", err.Error())
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "в запросе нет файла 'file'", err.Error())
		return
	}
	defer file.Close()

	rows, err := ingest.ParseWorkbook(file)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "не удалось разобрать таблицу", err.Error())
		return
	}

	createdBy := sql.NullInt64{Int64: user.ID, Valid: true}
	tripID, results, err := h.Deps.Ingester.Run(rows, user.Carpark, createdBy)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "ошибка загрузки рейса", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tripId":  tripID,
		"results": results,
	})
}

// ListTrips возвращает рейсы со счетчиками ответов. Оператор видит только
// свой автопарк, админ - все рейсы.
func (h *ApiHandlers) ListTrips(w http.ResponseWriter, r *http.Request) {
	user, _ := requestUser(r)

	carpark := sql.NullString{}
	if user.Role != constants.ROLE_ADMIN {
		carpark = user.Carpark
		if !carpark.Valid {
			// Оператор без автопарка не видит чужих рейсов.
			writeJSON(w, http.StatusOK, map[string]interface{}{"trips": []interface{}{}})
			return
		}
	}

	trips, err := db.ListTrips(carpark)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "ошибка получения списка рейсов", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"trips": trips})
}

// DeleteTrip удаляет рейс. Отказывает, пока по рейсу есть неотвеченные
// уведомления без ошибки отправки.
func (h *ApiHandlers) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	tripID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "некорректный id рейса", err.Error())
		return
	}

	if err := db.DeleteTrip(tripID); err != nil {
		if err == sql.ErrNoRows {
			writeJSONError(w, http.StatusNotFound, "рейс не найден", "")
			return
		}
		writeJSONError(w, http.StatusConflict, "рейс нельзя удалить", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": tripID})
}

// Subscribe создает или обновляет подписку оператора на уведомления о ходе
// рейса. Интервал приводится к границам и шагу квантования.
func (h *ApiHandlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	user, _ := requestUser(r)

	tripID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "некорректный id рейса", err.Error())
		return
	}
	if _, err := db.GetTrip(tripID); err != nil {
		if err == sql.ErrNoRows {
			writeJSONError(w, http.StatusNotFound, "рейс не найден", "")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "ошибка получения рейса", err.Error())
		return
	}

	var req struct {
		IntervalMinutes int `json:"interval_minutes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "некорректное тело запроса", err.Error())
		return
	}
	interval, err := utils.QuantizeInterval(req.IntervalMinutes)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "некорректный интервал подписки", err.Error())
		return
	}

	sub, err := db.UpsertSubscription(tripID, user.ID, interval)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "ошибка сохранения подписки", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"subscription": map[string]interface{}{
			"id":               sub.ID,
			"trip_id":          sub.TripID,
			"interval_minutes": sub.IntervalMinutes,
			"is_active":        sub.IsActive,
		},
	})
}

// Unsubscribe отключает подписку оператора на рейс.
func (h *ApiHandlers) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	user, _ := requestUser(r)

	tripID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "некорректный id рейса", err.Error())
		return
	}

	if err := db.DeactivateSubscription(tripID, user.ID); err != nil {
		if err == sql.ErrNoRows {
			writeJSONError(w, http.StatusNotFound, "активная подписка не найдена", "")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "ошибка отключения подписки", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"unsubscribed": tripID})
}

// Dispatch запускает рассылку уведомлений рейса водителям.
// Поле trip_id принимает число или литерал "latest".
func (h *ApiHandlers) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TripID json.Number `json:"trip_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "некорректное тело запроса", err.Error())
		return
	}
	tripID, err := resolveTripID(req.TripID.String())
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "некорректный trip_id", err.Error())
		return
	}
	if _, err := db.GetTrip(tripID); err != nil {
		if err == sql.ErrNoRows {
			writeJSONError(w, http.StatusNotFound, "рейс не найден", "")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "ошибка получения рейса", err.Error())
		return
	}

	summary, err := h.Deps.Dispatcher.Run(tripID)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "ошибка диспетчеризации", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"tripId": tripID, "summary": summary})
}

// Resend повторно отправляет составное сообщение одного телефона.
func (h *ApiHandlers) Resend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TripID int64  `json:"trip_id"`
		Phone  string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "некорректное тело запроса", err.Error())
		return
	}
	phone, err := utils.NormalizePhone(req.Phone)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "некорректный номер телефона", err.Error())
		return
	}

	if err := h.Deps.Dispatcher.Resend(req.TripID, phone); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "ошибка переотправки", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"resent": phone})
}

// CancelDispatch снимает все уведомления одного телефона в рейсе: они
// помечаются deleted и перестают учитываться в счетчиках и рассылке.
func (h *ApiHandlers) CancelDispatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TripID int64  `json:"trip_id"`
		Phone  string `json:"phone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "некорректное тело запроса", err.Error())
		return
	}
	phone, err := utils.NormalizePhone(req.Phone)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "некорректный номер телефона", err.Error())
		return
	}

	if err := h.Deps.Dispatcher.Cancel(req.TripID, phone); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "ошибка снятия уведомлений", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"cancelled": phone})
}

// ConfirmOverride выставляет ответ водителя от имени диспетчера (например,
// когда ответ получен по телефону).
func (h *ApiHandlers) ConfirmOverride(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TripID         int64  `json:"trip_id"`
		Phone          string `json:"phone"`
		ResponseStatus string `json:"response_status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "некорректное тело запроса", err.Error())
		return
	}
	if req.ResponseStatus == "" {
		req.ResponseStatus = constants.RESPONSE_STATUS_CONFIRMED
	}
	phone, err := utils.NormalizePhone(req.Phone)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "некорректный номер телефона", err.Error())
		return
	}

	updated, err := db.OverrideResponse(req.TripID, phone, req.ResponseStatus)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "ошибка записи ответа", err.Error())
		return
	}
	if updated == 0 {
		writeJSONError(w, http.StatusNotFound, "отправленные уведомления для этого телефона не найдены", "")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"updated": updated})
}

// SendNotifications запускает один проход рассылки уведомлений о ходе
// рейсов. Вызывается внешним планировщиком или вручную.
func (h *ApiHandlers) SendNotifications(w http.ResponseWriter, r *http.Request) {
	// Попутная уборка на тике планировщика: просроченные веб-сессии.
	if err := db.DeleteExpiredSessions(); err != nil {
		log.Printf("SendNotifications: ошибка удаления просроченных сессий: %v. Продолжаем.", err)
	}

	summary, err := h.Deps.Notifier.Run()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "ошибка рассылки уведомлений", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"sent":   summary.Sent,
		"errors": summary.Errors,
		"total":  summary.Total,
	})
}

// BotLink возвращает ссылку на бота и QR-код для онбординга водителей.
func (h *ApiHandlers) BotLink(w http.ResponseWriter, r *http.Request) {
	link, err := utils.GenerateBotLink(h.Deps.Config.BotUsername)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "ссылка на бота недоступна", err.Error())
		return
	}
	qrBytes, err := utils.GenerateBotLinkQR(h.Deps.Config.BotUsername)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "не удалось сгенерировать QR-код", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"link": link,
		"qr":   base64.StdEncoding.EncodeToString(qrBytes),
	})
}

// BotLinkQR отдает QR-код ссылки на бота картинкой.
func (h *ApiHandlers) BotLinkQR(w http.ResponseWriter, r *http.Request) {
	qrBytes, err := utils.GenerateBotLinkQR(h.Deps.Config.BotUsername)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "не удалось сгенерировать QR-код", err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(qrBytes)
}
