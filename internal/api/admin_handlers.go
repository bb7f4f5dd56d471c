// Файл: internal/api/admin_handlers.go
package api

import (
	"database/sql"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"reisbot/internal/db"
	"reisbot/internal/models"
)

// UpsertPoint создает или обновляет точку справочника. Без заполненного
// справочника загрузка таблиц отклоняет все строки с неизвестными point_id.
// UpsertPoint creates or updates a catalog point.
func (h *ApiHandlers) UpsertPoint(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PointID   string   `json:"point_id"`
		Name      string   `json:"name"`
		DoorInfo  string   `json:"door_info"`
		Latitude  *float64 `json:"latitude"`
		Longitude *float64 `json:"longitude"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "некорректное тело запроса", err.Error())
		return
	}
	req.PointID = strings.TrimSpace(req.PointID)
	req.Name = strings.TrimSpace(req.Name)
	if req.PointID == "" || req.Name == "" {
		writeJSONError(w, http.StatusBadRequest, "point_id и name обязательны", "")
		return
	}

	point := models.Point{PointID: req.PointID, Name: req.Name}
	if req.DoorInfo != "" {
		point.DoorInfo = sql.NullString{String: req.DoorInfo, Valid: true}
	}
	if req.Latitude != nil {
		point.Latitude = sql.NullFloat64{Float64: *req.Latitude, Valid: true}
	}
	if req.Longitude != nil {
		point.Longitude = sql.NullFloat64{Float64: *req.Longitude, Valid: true}
	}

	if err := db.UpsertPoint(point); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "ошибка сохранения точки", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"pointId": point.PointID})
}

// VerifyUser выставляет флаг верификации пользователя. Неверифицированные
// водители отклоняются при загрузке таблиц.
// VerifyUser sets the user's verified flag.
func (h *ApiHandlers) VerifyUser(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "некорректный id пользователя", err.Error())
		return
	}

	// Тело опционально: по умолчанию пользователь верифицируется.
	req := struct {
		Verified *bool `json:"verified"`
	}{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeJSONError(w, http.StatusBadRequest, "некорректное тело запроса", err.Error())
		return
	}
	verified := true
	if req.Verified != nil {
		verified = *req.Verified
	}

	if _, err := db.GetUserByID(userID); err != nil {
		if err == sql.ErrNoRows {
			writeJSONError(w, http.StatusNotFound, "пользователь не найден", "")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "ошибка получения пользователя", err.Error())
		return
	}

	if err := db.SetUserVerified(userID, verified); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "ошибка обновления верификации", err.Error())
		return
	}
	admin, _ := requestUser(r)
	log.Printf("VerifyUser: админ id %d выставил verified=%v пользователю id %d.", admin.ID, verified, userID)
	writeJSON(w, http.StatusOK, map[string]interface{}{"userId": userID, "verified": verified})
}

// DeleteUser удаляет пользователя (только явное действие админа).
func (h *ApiHandlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "некорректный id пользователя", err.Error())
		return
	}

	admin, _ := requestUser(r)
	if admin.ID == userID {
		writeJSONError(w, http.StatusConflict, "нельзя удалить собственный аккаунт", "")
		return
	}

	if _, err := db.GetUserByID(userID); err != nil {
		if err == sql.ErrNoRows {
			writeJSONError(w, http.StatusNotFound, "пользователь не найден", "")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "ошибка получения пользователя", err.Error())
		return
	}

	if err := db.DeleteUser(userID); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "ошибка удаления пользователя", err.Error())
		return
	}
	log.Printf("DeleteUser: админ id %d удалил пользователя id %d.", admin.ID, userID)
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": userID})
}
