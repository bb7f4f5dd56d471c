// Файл: internal/api/auth_handlers.go
package api

import (
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"math/big"
	"net/http"

	"reisbot/internal/constants"
	"reisbot/internal/db"
	"reisbot/internal/utils"
)

// generateLoginCode возвращает шестизначный одноразовый код.
func generateLoginCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// RequestLoginCode отправляет одноразовый код входа в Telegram-чат
// оператора. Веб-интерфейс доступен только операторам и админам,
// зарегистрированным в боте.
// RequestLoginCode sends a one-time login code to the operator's Telegram
// chat.
func (h *ApiHandlers) RequestLoginCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
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

	user, err := db.GetUserByPhone(phone)
	if err != nil {
		if err == sql.ErrNoRows {
			writeJSONError(w, http.StatusNotFound, "пользователь не найден", "")
			return
		}
		writeJSONError(w, http.StatusInternalServerError, "ошибка получения пользователя", err.Error())
		return
	}
	if !utils.IsRoleOrHigher(user.Role, constants.ROLE_OPERATOR) {
		writeJSONError(w, http.StatusForbidden, "вход доступен только операторам и администраторам", "")
		return
	}
	if !user.HasChatID() {
		writeJSONError(w, http.StatusConflict, "аккаунт не привязан к Telegram: начните с /start в боте", "")
		return
	}

	code, err := generateLoginCode()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "не удалось сгенерировать код", err.Error())
		return
	}
	if err := db.SaveLoginCode(phone, code, constants.LOGIN_CODE_TTL); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "не удалось сохранить код", err.Error())
		return
	}

	text := fmt.Sprintf("🔐 Код входа: %s\nДействует %d минут. Никому его не сообщайте.",
		code, int(constants.LOGIN_CODE_TTL.Minutes()))
	if err := h.Deps.Bot.Deps.Sender.SendText(user.ChatID.Int64, text); err != nil {
		writeJSONError(w, http.StatusInternalServerError, "не удалось отправить код в Telegram", err.Error())
		return
	}

	log.Printf("RequestLoginCode: код входа отправлен пользователю id %d.", user.ID)
	writeJSON(w, http.StatusOK, map[string]interface{}{"codeSent": true})
}

// Login обменивает одноразовый код на сессию в HTTP-only куке.
// Login exchanges a one-time code for an HTTP-only session cookie.
func (h *ApiHandlers) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Phone string `json:"phone"`
		Code  string `json:"code"`
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
	if req.Code == "" {
		writeJSONError(w, http.StatusBadRequest, "код входа не указан", "")
		return
	}

	if err := db.ConsumeLoginCode(phone, req.Code); err != nil {
		writeJSONError(w, http.StatusUnauthorized, "вход отклонен", err.Error())
		return
	}

	user, err := db.GetUserByPhone(phone)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "ошибка получения пользователя", err.Error())
		return
	}

	token, err := db.CreateSession(user.ID, h.Deps.Config.SessionTTL)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "не удалось создать сессию", err.Error())
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     constants.SESSION_COOKIE_NAME,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.Deps.Config.AppEnv != "dev",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(h.Deps.Config.SessionTTL.Seconds()),
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user": map[string]interface{}{
			"id":   user.ID,
			"name": user.Name,
			"role": user.Role,
		},
	})
}

// Logout удаляет сессию и сбрасывает куку.
func (h *ApiHandlers) Logout(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(constants.SESSION_COOKIE_NAME)
	if err == nil && cookie.Value != "" {
		if err := db.DeleteSession(cookie.Value); err != nil {
			log.Printf("Logout: ошибка удаления сессии: %v", err)
		}
	}
	http.SetCookie(w, &http.Cookie{
		Name:     constants.SESSION_COOKIE_NAME,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{"loggedOut": true})
}
