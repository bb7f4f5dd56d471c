package dispatch

import (
	"database/sql"
	"errors"
	"strings"
	"testing"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"reisbot/internal/models"
)

// MockStore для тестирования диспетчера.
type MockStore struct {
	GetPendingMessagesFunc func(tripID int64) ([]models.TripMessage, error)
	GetTripPointsFunc      func(tripID int64, tripIdentifier string) ([]models.TripPoint, error)
	ResetForResendFunc     func(tripID int64, phone string) ([]models.TripMessage, error)
	CancelMessagesFunc     func(tripID int64, phone string) ([]models.TripMessage, error)

	sentIDs        [][]int64
	sentTgIDs      []int
	erroredIDs     [][]int64
	errorTexts     []string
	resetRequests  []string
	cancelRequests []string
}

func (m *MockStore) GetPendingMessages(tripID int64) ([]models.TripMessage, error) {
	if m.GetPendingMessagesFunc != nil {
		return m.GetPendingMessagesFunc(tripID)
	}
	return nil, nil
}

func (m *MockStore) GetTripPoints(tripID int64, tripIdentifier string) ([]models.TripPoint, error) {
	if m.GetTripPointsFunc != nil {
		return m.GetTripPointsFunc(tripID, tripIdentifier)
	}
	return nil, nil
}

func (m *MockStore) MarkMessagesSent(messageIDs []int64, telegramMessageID int) error {
	m.sentIDs = append(m.sentIDs, messageIDs)
	m.sentTgIDs = append(m.sentTgIDs, telegramMessageID)
	return nil
}

func (m *MockStore) MarkMessagesError(messageIDs []int64, errorText string) error {
	m.erroredIDs = append(m.erroredIDs, messageIDs)
	m.errorTexts = append(m.errorTexts, errorText)
	return nil
}

func (m *MockStore) ResetForResend(tripID int64, phone string) ([]models.TripMessage, error) {
	m.resetRequests = append(m.resetRequests, phone)
	if m.ResetForResendFunc != nil {
		return m.ResetForResendFunc(tripID, phone)
	}
	return nil, nil
}

func (m *MockStore) CancelMessages(tripID int64, phone string) ([]models.TripMessage, error) {
	m.cancelRequests = append(m.cancelRequests, phone)
	if m.CancelMessagesFunc != nil {
		return m.CancelMessagesFunc(tripID, phone)
	}
	return nil, nil
}

// MockSender для тестирования отправки.
type MockSender struct {
	SendWithKeyboardFunc func(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (int, error)

	sentTexts        []string
	sentKeyboards    []tgbotapi.InlineKeyboardMarkup
	removedKeyboards []int
}

func (m *MockSender) SendWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (int, error) {
	m.sentTexts = append(m.sentTexts, text)
	m.sentKeyboards = append(m.sentKeyboards, keyboard)
	if m.SendWithKeyboardFunc != nil {
		return m.SendWithKeyboardFunc(chatID, text, keyboard)
	}
	return 555, nil
}

func (m *MockSender) RemoveInlineKeyboard(chatID int64, messageID int) error {
	m.removedKeyboards = append(m.removedKeyboards, messageID)
	return nil
}

func pendingMessage(id int64, phone, tripIdentifier string, chat int64) models.TripMessage {
	m := models.TripMessage{
		ID:             id,
		TripID:         1,
		Phone:          phone,
		TripIdentifier: tripIdentifier,
		Status:         "pending",
		ResponseStatus: "pending",
	}
	if chat != 0 {
		m.ChatID = sql.NullInt64{Int64: chat, Valid: true}
	}
	return m
}

func TestRun_OneCombinedMessagePerPhone(t *testing.T) {
	store := &MockStore{
		GetPendingMessagesFunc: func(tripID int64) ([]models.TripMessage, error) {
			return []models.TripMessage{
				pendingMessage(1, "79990000000", "T1", 100),
				pendingMessage(2, "79990000000", "T2", 100),
			}, nil
		},
	}
	sender := &MockSender{}
	d := NewDispatcher(store, sender, 0)

	summary, err := d.Run(1)
	if err != nil {
		t.Fatalf("Run вернул ошибку: %v", err)
	}
	if summary.Sent != 1 || summary.Total != 1 {
		t.Errorf("два рейса одного телефона должны уйти одним сообщением: %+v", summary)
	}
	if len(sender.sentTexts) != 1 {
		t.Fatalf("ожидалась одна отправка, получено %d", len(sender.sentTexts))
	}
	if !strings.Contains(sender.sentTexts[0], "T1") || !strings.Contains(sender.sentTexts[0], "T2") {
		t.Errorf("составное сообщение должно покрывать оба рейса: %q", sender.sentTexts[0])
	}

	if len(store.sentIDs) != 1 || len(store.sentIDs[0]) != 2 {
		t.Fatalf("оба уведомления должны быть помечены отправленными: %v", store.sentIDs)
	}
	if store.sentTgIDs[0] != 555 {
		t.Errorf("telegram_message_id не сохранен: %v", store.sentTgIDs)
	}

	// Кнопки привязаны к id уведомлений.
	keyboard := sender.sentKeyboards[0]
	if len(keyboard.InlineKeyboard) != 2 {
		t.Fatalf("ожидалось две строки кнопок, получено %d", len(keyboard.InlineKeyboard))
	}
	if *keyboard.InlineKeyboard[0][0].CallbackData != "confirm_1" {
		t.Errorf("неожиданный callback первой кнопки: %s", *keyboard.InlineKeyboard[0][0].CallbackData)
	}
	if *keyboard.InlineKeyboard[1][1].CallbackData != "reject_2" {
		t.Errorf("неожиданный callback последней кнопки: %s", *keyboard.InlineKeyboard[1][1].CallbackData)
	}
}

func TestRun_SkipsDriversWithoutChatID(t *testing.T) {
	store := &MockStore{
		GetPendingMessagesFunc: func(tripID int64) ([]models.TripMessage, error) {
			return []models.TripMessage{
				pendingMessage(1, "79990000000", "T1", 0),
				pendingMessage(2, "79991111111", "T2", 200),
			}, nil
		},
	}
	sender := &MockSender{}
	d := NewDispatcher(store, sender, 0)

	summary, err := d.Run(1)
	if err != nil {
		t.Fatalf("Run вернул ошибку: %v", err)
	}
	if summary.Skipped != 1 || summary.Sent != 1 || summary.Total != 2 {
		t.Errorf("водитель без chat_id должен быть пропущен: %+v", summary)
	}
	if len(store.sentIDs) != 1 || store.sentIDs[0][0] != 2 {
		t.Errorf("отправленным должно быть помечено только уведомление 2: %v", store.sentIDs)
	}
}

func TestRun_SendFailureMarksError(t *testing.T) {
	store := &MockStore{
		GetPendingMessagesFunc: func(tripID int64) ([]models.TripMessage, error) {
			return []models.TripMessage{pendingMessage(1, "79990000000", "T1", 100)}, nil
		},
	}
	sender := &MockSender{
		SendWithKeyboardFunc: func(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (int, error) {
			return 0, errors.New("Forbidden: bot was blocked by the user")
		},
	}
	d := NewDispatcher(store, sender, 0)

	summary, err := d.Run(1)
	if err != nil {
		t.Fatalf("Run вернул ошибку: %v", err)
	}
	if summary.Errors != 1 || summary.Sent != 0 {
		t.Errorf("ошибка отправки должна попасть в сводку: %+v", summary)
	}
	if len(store.erroredIDs) != 1 || store.erroredIDs[0][0] != 1 {
		t.Errorf("уведомление должно быть помечено ошибочным: %v", store.erroredIDs)
	}
	if !strings.Contains(store.errorTexts[0], "blocked") {
		t.Errorf("текст ошибки отправки должен сохраняться: %q", store.errorTexts[0])
	}
}

func TestResend_RemovesOldKeyboardAndResends(t *testing.T) {
	old := pendingMessage(1, "79990000000", "T1", 100)
	old.TelegramMessageID = sql.NullInt64{Int64: 777, Valid: true}
	store := &MockStore{
		ResetForResendFunc: func(tripID int64, phone string) ([]models.TripMessage, error) {
			return []models.TripMessage{old}, nil
		},
	}
	sender := &MockSender{}
	d := NewDispatcher(store, sender, 0)

	if err := d.Resend(1, "79990000000"); err != nil {
		t.Fatalf("Resend вернул ошибку: %v", err)
	}
	if len(store.resetRequests) != 1 {
		t.Errorf("статусы ответа должны сбрасываться перед переотправкой: %v", store.resetRequests)
	}
	if len(sender.removedKeyboards) != 1 || sender.removedKeyboards[0] != 777 {
		t.Errorf("клавиатура старого сообщения должна сниматься: %v", sender.removedKeyboards)
	}
	if len(store.sentIDs) != 1 || store.sentIDs[0][0] != 1 {
		t.Errorf("уведомление должно быть отправлено заново: %v", store.sentIDs)
	}
}

func TestResend_UnknownPhone(t *testing.T) {
	store := &MockStore{}
	d := NewDispatcher(store, &MockSender{}, 0)

	if err := d.Resend(1, "79990000000"); err == nil {
		t.Error("переотправка для телефона без уведомлений должна возвращать ошибку")
	}
}

func TestCancel_RemovesKeyboard(t *testing.T) {
	sent := pendingMessage(1, "79990000000", "T1", 100)
	sent.TelegramMessageID = sql.NullInt64{Int64: 777, Valid: true}
	sibling := pendingMessage(2, "79990000000", "T2", 100)
	sibling.TelegramMessageID = sql.NullInt64{Int64: 777, Valid: true}
	store := &MockStore{
		CancelMessagesFunc: func(tripID int64, phone string) ([]models.TripMessage, error) {
			return []models.TripMessage{sent, sibling}, nil
		},
	}
	sender := &MockSender{}
	d := NewDispatcher(store, sender, 0)

	if err := d.Cancel(1, "79990000000"); err != nil {
		t.Fatalf("Cancel вернул ошибку: %v", err)
	}
	if len(store.cancelRequests) != 1 || store.cancelRequests[0] != "79990000000" {
		t.Errorf("уведомления должны сниматься в хранилище: %v", store.cancelRequests)
	}
	// Два уведомления ушли одним сообщением: клавиатура снимается один раз.
	if len(sender.removedKeyboards) != 1 || sender.removedKeyboards[0] != 777 {
		t.Errorf("клавиатура отправленного сообщения должна сниматься один раз: %v", sender.removedKeyboards)
	}
	if len(sender.sentTexts) != 0 {
		t.Errorf("снятие уведомлений не должно ничего отправлять: %v", sender.sentTexts)
	}
}

func TestCancel_NotYetSentSkipsKeyboard(t *testing.T) {
	store := &MockStore{
		CancelMessagesFunc: func(tripID int64, phone string) ([]models.TripMessage, error) {
			return []models.TripMessage{pendingMessage(1, "79990000000", "T1", 0)}, nil
		},
	}
	sender := &MockSender{}
	d := NewDispatcher(store, sender, 0)

	if err := d.Cancel(1, "79990000000"); err != nil {
		t.Fatalf("Cancel вернул ошибку: %v", err)
	}
	if len(sender.removedKeyboards) != 0 {
		t.Errorf("для неотправленных уведомлений снимать нечего: %v", sender.removedKeyboards)
	}
}

func TestCancel_UnknownPhone(t *testing.T) {
	store := &MockStore{}
	d := NewDispatcher(store, &MockSender{}, 0)

	if err := d.Cancel(1, "79990000000"); err == nil {
		t.Error("снятие уведомлений для телефона без уведомлений должно возвращать ошибку")
	}
}
