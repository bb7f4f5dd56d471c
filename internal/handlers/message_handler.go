// Файл: internal/handlers/message_handler.go

package handlers

import (
	"database/sql"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"reisbot/internal/formatters"
	"reisbot/internal/utils"
)

// HandleMessage обрабатывает входящие сообщения от Telegram: команды,
// передачу контакта и свободный текст.
// HandleMessage handles inbound Telegram messages.
func (bh *BotHandler) HandleMessage(update tgbotapi.Update) {
	if update.Message == nil {
		return
	}

	message := update.Message
	chatID := message.Chat.ID
	text := strings.TrimSpace(message.Text)

	log.Printf("HandleMessage: ChatID=%d, Text='%s', Contact: %v", chatID, text, message.Contact != nil)

	if message.Contact != nil {
		bh.handleContact(chatID, message.Contact)
		return
	}

	if message.IsCommand() {
		switch message.Command() {
		case "start":
			bh.handleStart(chatID)
		case "help":
			bh.sendHelp(chatID)
		default:
			log.Printf("HandleMessage: неизвестная команда '%s' от chatID %d", message.Command(), chatID)
			bh.Deps.Sender.SendText(chatID, "Неизвестная команда. Используйте /start или /help.")
		}
		return
	}

	// Свободный текст: подсказываем, как пользоваться ботом, и просим
	// контакт, если пользователь еще не зарегистрирован.
	bh.sendHelp(chatID)
}

// handleStart обрабатывает команду /start: зарегистрированному пользователю
// показывается профиль, незарегистрированному - запрос контакта.
func (bh *BotHandler) handleStart(chatID int64) {
	user, err := bh.Deps.Store.GetUserByChatID(chatID)
	if err == nil && user.Phone.Valid {
		bh.Deps.Sender.SendText(chatID, formatters.FormatUserProfile(user))
		return
	}
	if err != nil && err != sql.ErrNoRows {
		log.Printf("handleStart: ошибка получения пользователя chatID %d: %v", chatID, err)
		bh.Deps.Sender.SendText(chatID, "❌ Произошла ошибка. Попробуйте еще раз позже.")
		return
	}

	errReq := bh.Deps.Sender.RequestContact(chatID,
		"👋 Здравствуйте! Это бот уведомлений о рейсах.\n"+
			"Чтобы получать назначения, поделитесь номером телефона кнопкой ниже.")
	if errReq != nil {
		log.Printf("handleStart: ошибка запроса контакта для chatID %d: %v", chatID, errReq)
	}
}

// handleContact обрабатывает переданный контакт: создает или обновляет
// пользователя по номеру телефона и завершает регистрацию.
// handleContact upserts the user by the shared contact's phone number.
func (bh *BotHandler) handleContact(chatID int64, contact *tgbotapi.Contact) {
	// Принимаем только собственный контакт пользователя.
	if contact.UserID != 0 && contact.UserID != chatID {
		bh.Deps.Sender.SendText(chatID, "Пожалуйста, поделитесь собственным номером телефона кнопкой ниже.")
		return
	}

	phone, err := utils.NormalizePhone(contact.PhoneNumber)
	if err != nil {
		log.Printf("handleContact: некорректный номер '%s' от chatID %d: %v", contact.PhoneNumber, chatID, err)
		bh.Deps.Sender.SendText(chatID, "❌ Не удалось распознать номер телефона. Обратитесь к диспетчеру.")
		return
	}

	name := strings.TrimSpace(fmt.Sprintf("%s %s", contact.FirstName, contact.LastName))
	user, err := bh.Deps.Store.UpsertDriverContact(phone, chatID, name)
	if err != nil {
		log.Printf("handleContact: ошибка регистрации телефона %s для chatID %d: %v", phone, chatID, err)
		bh.Deps.Sender.SendText(chatID, "❌ Произошла ошибка при регистрации. Попробуйте еще раз.")
		return
	}

	// Убираем reply-клавиатуру с кнопкой контакта.
	if err := bh.Deps.Sender.SendTextRemovingKeyboard(chatID,
		"✅ Регистрация завершена! Вы будете получать уведомления о назначенных рейсах."); err != nil {
		log.Printf("handleContact: ошибка отправки подтверждения для chatID %d: %v", chatID, err)
	}
	log.Printf("handleContact: пользователь id %d (телефон %s) зарегистрирован с chatID %d.", user.ID, phone, chatID)
}

// sendHelp отправляет подсказку; незарегистрированному пользователю также
// повторно предлагается поделиться контактом.
func (bh *BotHandler) sendHelp(chatID int64) {
	_, err := bh.Deps.Store.GetUserByChatID(chatID)
	registered := err == nil
	if err != nil && err != sql.ErrNoRows {
		log.Printf("sendHelp: ошибка получения пользователя chatID %d: %v", chatID, err)
	}

	help := "ℹ️ Этот бот присылает назначения на рейсы.\n" +
		"Получив уведомление, нажмите «✅ Подтвердить» или «❌ Отказаться» под сообщением.\n" +
		"Команды: /start - профиль, /help - эта подсказка."

	if registered {
		bh.Deps.Sender.SendText(chatID, help)
		return
	}
	if errReq := bh.Deps.Sender.RequestContact(chatID,
		help+"\n\nВы еще не зарегистрированы: поделитесь номером телефона кнопкой ниже."); errReq != nil {
		log.Printf("sendHelp: ошибка запроса контакта для chatID %d: %v", chatID, errReq)
	}
}
