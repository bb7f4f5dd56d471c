// Файл: internal/handlers/callback_handler.go

package handlers

import (
	"database/sql"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"reisbot/internal/constants"
)

// HandleCallback обрабатывает нажатия инлайн-кнопок подтверждения/отказа.
// HandleCallback handles the confirm/reject inline button presses.
func (bh *BotHandler) HandleCallback(update tgbotapi.Update) {
	query := update.CallbackQuery
	if query == nil || query.Message == nil {
		log.Println("[CALLBACK_HANDLER] Получен пустой CallbackQuery.")
		return
	}
	bh.processCallback(query.ID, query.Message.Chat.ID, query.Message.MessageID, query.Data)
}

// processCallback записывает ответ водителя по данным нажатой кнопки.
// Повторная доставка одного и того же нажатия не отсекается: двойное нажатие
// перезаписывает response_at, но итоговое состояние не меняется.
func (bh *BotHandler) processCallback(queryID string, chatID int64, originalMessageID int, data string) {
	log.Printf("[CALLBACK_HANDLER] ChatID=%d, MsgID=%d, Data='%s'", chatID, originalMessageID, data)

	var responseStatus, ackVerb string
	var suffix string
	switch {
	case strings.HasPrefix(data, constants.CALLBACK_PREFIX_CONFIRM):
		responseStatus = constants.RESPONSE_STATUS_CONFIRMED
		ackVerb = "✅ Рейс%s подтвержден"
		suffix = strings.TrimPrefix(data, constants.CALLBACK_PREFIX_CONFIRM)
	case strings.HasPrefix(data, constants.CALLBACK_PREFIX_REJECT):
		responseStatus = constants.RESPONSE_STATUS_REJECTED
		ackVerb = "❌ Отказ%s зафиксирован"
		suffix = strings.TrimPrefix(data, constants.CALLBACK_PREFIX_REJECT)
	default:
		log.Printf("[CALLBACK_HANDLER] Неизвестный callback '%s' от chatID %d.", data, chatID)
		bh.Deps.Sender.AnswerCallback(queryID, "")
		return
	}

	messageID, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil {
		log.Printf("[CALLBACK_HANDLER] Некорректный id уведомления в callback '%s': %v", data, err)
		bh.Deps.Sender.AnswerCallback(queryID, "Произошла ошибка, обратитесь к диспетчеру.")
		return
	}

	if err := bh.Deps.Store.SetResponseStatus(messageID, responseStatus, time.Now()); err != nil {
		if err == sql.ErrNoRows {
			log.Printf("[CALLBACK_HANDLER] Уведомление id %d не найдено (callback '%s').", messageID, data)
			bh.Deps.Sender.AnswerCallback(queryID, "Уведомление не найдено, обратитесь к диспетчеру.")
		} else {
			log.Printf("[CALLBACK_HANDLER] Ошибка записи ответа для уведомления id %d: %v", messageID, err)
			bh.Deps.Sender.AnswerCallback(queryID, "Произошла ошибка, попробуйте еще раз.")
		}
		return
	}

	// В подтверждение подставляем номер рейса из таблицы, если уведомление
	// удалось прочитать.
	tripLabel := ""
	if m, errMsg := bh.Deps.Store.GetMessageByID(messageID); errMsg == nil && m.TripIdentifier != "" {
		tripLabel = " " + m.TripIdentifier
	}

	if err := bh.Deps.Sender.RemoveInlineKeyboard(chatID, originalMessageID); err != nil {
		log.Printf("[CALLBACK_HANDLER] Не удалось снять клавиатуру с сообщения %d: %v. Продолжаем.", originalMessageID, err)
	}

	bh.Deps.Sender.AnswerCallback(queryID, fmt.Sprintf(ackVerb, tripLabel))
}

// RouteUpdate направляет обновление нужному обработчику. Используется и
// вебхуком, и циклом long polling.
// RouteUpdate dispatches an update to the right handler; used by both the
// webhook intake and the long polling loop.
func (bh *BotHandler) RouteUpdate(update tgbotapi.Update) {
	switch {
	case update.Message != nil:
		bh.HandleMessage(update)
	case update.CallbackQuery != nil:
		bh.HandleCallback(update)
	}
}
