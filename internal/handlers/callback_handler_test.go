package handlers

import (
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"reisbot/internal/config"
	"reisbot/internal/models"
)

// MockStore для тестирования обработчиков бота.
type MockStore struct {
	GetUserByChatIDFunc     func(chatID int64) (models.User, error)
	UpsertDriverContactFunc func(phone string, chatID int64, name string) (models.User, error)
	GetMessageByIDFunc      func(messageID int64) (models.TripMessage, error)
	SetResponseStatusFunc   func(messageID int64, responseStatus string, responseAt time.Time) error

	upsertedPhones []string
	responses      map[int64]string
}

func (m *MockStore) GetUserByChatID(chatID int64) (models.User, error) {
	if m.GetUserByChatIDFunc != nil {
		return m.GetUserByChatIDFunc(chatID)
	}
	return models.User{}, sql.ErrNoRows
}

func (m *MockStore) UpsertDriverContact(phone string, chatID int64, name string) (models.User, error) {
	m.upsertedPhones = append(m.upsertedPhones, phone)
	if m.UpsertDriverContactFunc != nil {
		return m.UpsertDriverContactFunc(phone, chatID, name)
	}
	return models.User{ID: 1, Name: name, Phone: sql.NullString{String: phone, Valid: true}}, nil
}

func (m *MockStore) GetMessageByID(messageID int64) (models.TripMessage, error) {
	if m.GetMessageByIDFunc != nil {
		return m.GetMessageByIDFunc(messageID)
	}
	return models.TripMessage{ID: messageID, TripIdentifier: "T1"}, nil
}

func (m *MockStore) SetResponseStatus(messageID int64, responseStatus string, responseAt time.Time) error {
	if m.responses == nil {
		m.responses = make(map[int64]string)
	}
	if m.SetResponseStatusFunc != nil {
		if err := m.SetResponseStatusFunc(messageID, responseStatus, responseAt); err != nil {
			return err
		}
	}
	m.responses[messageID] = responseStatus
	return nil
}

// MockSender для тестирования ответов бота.
type MockSender struct {
	sentTexts        []string
	removedTexts     []string
	contactRequests  []string
	removedKeyboards []int
	answers          []string
}

func (m *MockSender) SendText(chatID int64, text string) error {
	m.sentTexts = append(m.sentTexts, text)
	return nil
}

func (m *MockSender) SendTextRemovingKeyboard(chatID int64, text string) error {
	m.removedTexts = append(m.removedTexts, text)
	return nil
}

func (m *MockSender) RequestContact(chatID int64, text string) error {
	m.contactRequests = append(m.contactRequests, text)
	return nil
}

func (m *MockSender) RemoveInlineKeyboard(chatID int64, messageID int) error {
	m.removedKeyboards = append(m.removedKeyboards, messageID)
	return nil
}

func (m *MockSender) AnswerCallback(callbackQueryID, text string) {
	m.answers = append(m.answers, text)
}

func newTestHandler(store *MockStore, sender *MockSender) *BotHandler {
	return NewBotHandler(HandlerDependencies{
		Config: &config.Config{TelegramToken: "test-token"},
		Store:  store,
		Sender: sender,
	})
}

func TestProcessCallback_Confirm(t *testing.T) {
	store := &MockStore{}
	sender := &MockSender{}
	bh := newTestHandler(store, sender)

	bh.processCallback("cb1", 100, 55, "confirm_7")

	if store.responses[7] != "confirmed" {
		t.Errorf("ответ не записан: %v", store.responses)
	}
	if len(sender.removedKeyboards) != 1 || sender.removedKeyboards[0] != 55 {
		t.Errorf("клавиатура исходного сообщения должна сниматься: %v", sender.removedKeyboards)
	}
	if len(sender.answers) != 1 || !strings.Contains(sender.answers[0], "подтвержден") {
		t.Errorf("неожиданный ответ на callback: %v", sender.answers)
	}
	if !strings.Contains(sender.answers[0], "T1") {
		t.Errorf("в подтверждении нет номера рейса: %q", sender.answers[0])
	}
}

func TestProcessCallback_Reject(t *testing.T) {
	store := &MockStore{}
	sender := &MockSender{}
	bh := newTestHandler(store, sender)

	bh.processCallback("cb1", 100, 55, "reject_7")

	if store.responses[7] != "rejected" {
		t.Errorf("отказ не записан: %v", store.responses)
	}
	if len(sender.answers) != 1 || !strings.Contains(sender.answers[0], "Отказ") {
		t.Errorf("неожиданный ответ на callback: %v", sender.answers)
	}
}

func TestProcessCallback_MalformedSuffix(t *testing.T) {
	store := &MockStore{}
	sender := &MockSender{}
	bh := newTestHandler(store, sender)

	bh.processCallback("cb1", 100, 55, "confirm_abc")

	if len(store.responses) != 0 {
		t.Errorf("некорректный id не должен приводить к записи ответа: %v", store.responses)
	}
	if len(sender.removedKeyboards) != 0 {
		t.Errorf("клавиатура не должна сниматься: %v", sender.removedKeyboards)
	}
	if len(sender.answers) != 1 || !strings.Contains(sender.answers[0], "ошибка") {
		t.Errorf("пользователь должен получить сообщение об ошибке: %v", sender.answers)
	}
}

func TestProcessCallback_UnknownData(t *testing.T) {
	store := &MockStore{}
	sender := &MockSender{}
	bh := newTestHandler(store, sender)

	bh.processCallback("cb1", 100, 55, "unknown_action")

	if len(store.responses) != 0 {
		t.Errorf("неизвестный callback не должен трогать хранилище: %v", store.responses)
	}
	if len(sender.answers) != 1 || sender.answers[0] != "" {
		t.Errorf("неизвестный callback должен получать пустой ответ: %v", sender.answers)
	}
}

func TestProcessCallback_MessageNotFound(t *testing.T) {
	store := &MockStore{
		SetResponseStatusFunc: func(messageID int64, responseStatus string, responseAt time.Time) error {
			return sql.ErrNoRows
		},
	}
	sender := &MockSender{}
	bh := newTestHandler(store, sender)

	bh.processCallback("cb1", 100, 55, "confirm_404")

	if len(sender.removedKeyboards) != 0 {
		t.Errorf("клавиатура не должна сниматься для ненайденного уведомления: %v", sender.removedKeyboards)
	}
	if len(sender.answers) != 1 || !strings.Contains(sender.answers[0], "не найдено") {
		t.Errorf("пользователь должен узнать, что уведомление не найдено: %v", sender.answers)
	}
}

func TestProcessCallback_StoreFailure(t *testing.T) {
	store := &MockStore{
		SetResponseStatusFunc: func(messageID int64, responseStatus string, responseAt time.Time) error {
			return errors.New("ошибка базы данных")
		},
	}
	sender := &MockSender{}
	bh := newTestHandler(store, sender)

	bh.processCallback("cb1", 100, 55, "confirm_7")

	if len(sender.answers) != 1 || !strings.Contains(sender.answers[0], "попробуйте еще раз") {
		t.Errorf("при ошибке хранилища водителя просят повторить: %v", sender.answers)
	}
}

func TestHandleContact_RegistersDriver(t *testing.T) {
	store := &MockStore{}
	sender := &MockSender{}
	bh := newTestHandler(store, sender)

	bh.handleContact(100, &tgbotapi.Contact{
		PhoneNumber: "+7 (999) 123-45-67",
		FirstName:   "Иван",
		UserID:      100,
	})

	if len(store.upsertedPhones) != 1 || store.upsertedPhones[0] != "79991234567" {
		t.Errorf("контакт должен регистрироваться с нормализованным телефоном: %v", store.upsertedPhones)
	}
	if len(sender.removedTexts) != 1 || !strings.Contains(sender.removedTexts[0], "Регистрация завершена") {
		t.Errorf("после регистрации отправляется подтверждение со снятием клавиатуры: %v", sender.removedTexts)
	}
}

func TestHandleContact_RejectsForeignContact(t *testing.T) {
	store := &MockStore{}
	sender := &MockSender{}
	bh := newTestHandler(store, sender)

	bh.handleContact(100, &tgbotapi.Contact{PhoneNumber: "79991234567", UserID: 200})

	if len(store.upsertedPhones) != 0 {
		t.Errorf("чужой контакт не должен регистрироваться: %v", store.upsertedPhones)
	}
	if len(sender.sentTexts) != 1 || !strings.Contains(sender.sentTexts[0], "собственным номером") {
		t.Errorf("пользователя просят поделиться собственным номером: %v", sender.sentTexts)
	}
}
