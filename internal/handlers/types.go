package handlers

import (
	"time"

	"reisbot/internal/config"
	"reisbot/internal/models"
	"reisbot/internal/telegram_api"
)

// Store - хранилище, необходимое обработчикам бота.
type Store interface {
	GetUserByChatID(chatID int64) (models.User, error)
	UpsertDriverContact(phone string, chatID int64, name string) (models.User, error)
	GetMessageByID(messageID int64) (models.TripMessage, error)
	SetResponseStatus(messageID int64, responseStatus string, responseAt time.Time) error
}

// Sender отправляет ответы бота пользователям.
type Sender interface {
	SendText(chatID int64, text string) error
	SendTextRemovingKeyboard(chatID int64, text string) error
	RequestContact(chatID int64, text string) error
	RemoveInlineKeyboard(chatID int64, messageID int) error
	AnswerCallback(callbackQueryID, text string)
}

// BotSender реализует Sender поверх клиента Telegram.
type BotSender struct {
	Client *telegram_api.BotClient
}

func (s BotSender) SendText(chatID int64, text string) error {
	_, err := telegram_api.SendText(s.Client, chatID, text)
	return err
}

func (s BotSender) SendTextRemovingKeyboard(chatID int64, text string) error {
	return telegram_api.SendTextRemovingKeyboard(s.Client, chatID, text)
}

func (s BotSender) RequestContact(chatID int64, text string) error {
	return telegram_api.RequestContact(s.Client, chatID, text)
}

func (s BotSender) RemoveInlineKeyboard(chatID int64, messageID int) error {
	return telegram_api.RemoveInlineKeyboard(s.Client, chatID, messageID)
}

func (s BotSender) AnswerCallback(callbackQueryID, text string) {
	telegram_api.AnswerCallback(s.Client, callbackQueryID, text)
}

// HandlerDependencies содержит все зависимости, необходимые обработчикам.
// HandlerDependencies contains all dependencies required by the handlers.
type HandlerDependencies struct {
	Config *config.Config
	Store  Store
	Sender Sender
}

// BotHandler инкапсулирует обработку входящих обновлений Telegram:
// сообщений, передачи контакта и нажатий инлайн-кнопок.
// BotHandler encapsulates handling of inbound Telegram updates.
type BotHandler struct {
	Deps HandlerDependencies
}

// NewBotHandler создает новый экземпляр BotHandler.
func NewBotHandler(deps HandlerDependencies) *BotHandler {
	if deps.Config == nil || deps.Store == nil || deps.Sender == nil {
		panic("Не все зависимости для BotHandler были предоставлены.")
	}
	return &BotHandler{Deps: deps}
}
