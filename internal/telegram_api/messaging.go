package telegram_api

import (
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"
)

// SendText отправляет простое текстовое сообщение.
// SendText sends a plain text message.
func SendText(botClient *BotClient, chatID int64, text string) (tgbotapi.Message, error) {
	if botClient == nil {
		return tgbotapi.Message{}, fmt.Errorf("BotClient не инициализирован")
	}
	msg := tgbotapi.NewMessage(chatID, text)
	sent, err := botClient.Send(msg)
	if err != nil {
		log.Printf("SendText: ошибка отправки сообщения для chatID %d: %v", chatID, err)
	}
	return sent, err
}

// SendWithKeyboard отправляет сообщение с инлайн-клавиатурой.
// SendWithKeyboard sends a message with an inline keyboard.
func SendWithKeyboard(botClient *BotClient, chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (tgbotapi.Message, error) {
	if botClient == nil {
		return tgbotapi.Message{}, fmt.Errorf("BotClient не инициализирован")
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	sent, err := botClient.Send(msg)
	if err != nil {
		log.Printf("SendWithKeyboard: ошибка отправки сообщения для chatID %d: %v", chatID, err)
	}
	return sent, err
}

// SendTextRemovingKeyboard отправляет текстовое сообщение и убирает
// reply-клавиатуру (например, кнопку передачи контакта после регистрации).
// SendTextRemovingKeyboard sends a text message while removing the reply
// keyboard.
func SendTextRemovingKeyboard(botClient *BotClient, chatID int64, text string) error {
	if botClient == nil {
		return fmt.Errorf("BotClient не инициализирован")
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	_, err := botClient.Send(msg)
	if err != nil {
		log.Printf("SendTextRemovingKeyboard: ошибка отправки сообщения для chatID %d: %v", chatID, err)
	}
	return err
}

// RequestContact отправляет сообщение с reply-кнопкой передачи контакта.
// RequestContact sends a message with a contact-share reply button.
func RequestContact(botClient *BotClient, chatID int64, text string) error {
	if botClient == nil {
		return fmt.Errorf("BotClient не инициализирован")
	}
	msg := tgbotapi.NewMessage(chatID, text)
	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButtonContact("📱 Поделиться номером телефона"),
		),
	)
	keyboard.OneTimeKeyboard = true
	keyboard.ResizeKeyboard = true
	msg.ReplyMarkup = keyboard
	_, err := botClient.Send(msg)
	if err != nil {
		log.Printf("RequestContact: ошибка отправки запроса контакта для chatID %d: %v", chatID, err)
	}
	return err
}

// RemoveInlineKeyboard убирает инлайн-клавиатуру у сообщения. Ошибки
// "message is not modified" и "message to edit not found" не считаются
// фатальными: сообщение могло быть уже отредактировано или удалено.
// RemoveInlineKeyboard removes the inline keyboard from a message.
func RemoveInlineKeyboard(botClient *BotClient, chatID int64, messageID int) error {
	if botClient == nil {
		return fmt.Errorf("BotClient не инициализирован")
	}
	if messageID == 0 {
		return nil
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	_, err := botClient.Request(edit)
	if err != nil {
		if strings.Contains(err.Error(), "message is not modified") ||
			strings.Contains(err.Error(), "message to edit not found") {
			return nil
		}
		log.Printf("RemoveInlineKeyboard: ошибка снятия клавиатуры chatID=%d, MessageID=%d: %v", chatID, messageID, err)
		return err
	}
	return nil
}

// AnswerCallback отвечает на callback query коротким текстом.
// AnswerCallback answers a callback query with a short acknowledgement.
func AnswerCallback(botClient *BotClient, callbackQueryID, text string) {
	if botClient == nil {
		return
	}
	callback := tgbotapi.NewCallback(callbackQueryID, text)
	if _, err := botClient.Request(callback); err != nil {
		log.Printf("AnswerCallback: ошибка ответа на CallbackQuery ID %s: %v. Продолжаем.", callbackQueryID, err)
	}
}
