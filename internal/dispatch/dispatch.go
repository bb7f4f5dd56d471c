// Файл: internal/dispatch/dispatch.go
//
// Диспетчеризация рейса: рассылка ожидающих уведомлений водителям одним
// составным сообщением на телефон с инлайн-кнопками подтверждения/отказа.
package dispatch

import (
	"fmt"
	"log"
	"time"

	tgbotapi "github.com/OvyFlash/telegram-bot-api"

	"reisbot/internal/formatters"
	"reisbot/internal/models"
	"reisbot/internal/telegram_api"
)

// Store - хранилище, необходимое диспетчеру.
type Store interface {
	GetPendingMessages(tripID int64) ([]models.TripMessage, error)
	GetTripPoints(tripID int64, tripIdentifier string) ([]models.TripPoint, error)
	MarkMessagesSent(messageIDs []int64, telegramMessageID int) error
	MarkMessagesError(messageIDs []int64, errorText string) error
	ResetForResend(tripID int64, phone string) ([]models.TripMessage, error)
	CancelMessages(tripID int64, phone string) ([]models.TripMessage, error)
}

// Sender отправляет сообщения водителям.
type Sender interface {
	SendWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (int, error)
	RemoveInlineKeyboard(chatID int64, messageID int) error
}

// BotSender реализует Sender поверх клиента Telegram.
type BotSender struct {
	Client *telegram_api.BotClient
}

func (s BotSender) SendWithKeyboard(chatID int64, text string, keyboard tgbotapi.InlineKeyboardMarkup) (int, error) {
	sent, err := telegram_api.SendWithKeyboard(s.Client, chatID, text, keyboard)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (s BotSender) RemoveInlineKeyboard(chatID int64, messageID int) error {
	return telegram_api.RemoveInlineKeyboard(s.Client, chatID, messageID)
}

// Summary - итог одного запуска диспетчеризации.
// Summary of one dispatch run.
type Summary struct {
	Sent    int `json:"sent"`    // телефонов, которым доставлено сообщение
	Errors  int `json:"errors"`  // телефонов с ошибкой отправки
	Skipped int `json:"skipped"` // телефонов без привязанного chat_id
	Total   int `json:"total"`   // всего телефонов с ожидающими уведомлениями
}

// Dispatcher рассылает уведомления рейса. Отправка идет последовательно с
// фиксированной паузой между телефонами, чтобы не упираться в лимиты
// Telegram API.
// Dispatcher sends a trip's notifications sequentially with a fixed
// inter-send delay.
type Dispatcher struct {
	Store     Store
	Sender    Sender
	SendDelay time.Duration
}

func NewDispatcher(store Store, sender Sender, sendDelay time.Duration) *Dispatcher {
	return &Dispatcher{
		Store:     store,
		Sender:    sender,
		SendDelay: sendDelay,
	}
}

// Run рассылает все ожидающие уведомления рейса. Уведомления без
// привязанного chat_id пропускаются и остаются в статусе pending.
// Run dispatches all pending trip messages.
func (d *Dispatcher) Run(tripID int64) (Summary, error) {
	var summary Summary

	pending, err := d.Store.GetPendingMessages(tripID)
	if err != nil {
		return summary, fmt.Errorf("не удалось получить ожидающие уведомления рейса %d: %w", tripID, err)
	}
	if len(pending) == 0 {
		log.Printf("Диспетчеризация рейса %d: ожидающих уведомлений нет.", tripID)
		return summary, nil
	}

	for _, group := range groupByPhone(pending) {
		summary.Total++
		if !group[0].ChatID.Valid {
			summary.Skipped++
			log.Printf("Диспетчеризация рейса %d: телефон %s пропущен, водитель не зарегистрирован в боте.", tripID, group[0].Phone)
			continue
		}

		if err := d.sendGroup(tripID, group); err != nil {
			summary.Errors++
		} else {
			summary.Sent++
		}

		if d.SendDelay > 0 {
			time.Sleep(d.SendDelay)
		}
	}

	log.Printf("Диспетчеризация рейса %d завершена: отправлено %d, ошибок %d, пропущено %d из %d.",
		tripID, summary.Sent, summary.Errors, summary.Skipped, summary.Total)
	return summary, nil
}

// Resend повторно отправляет составное сообщение одного телефона: снимает
// кнопки со старого сообщения (ошибка не фатальна), сбрасывает статусы
// ответа в pending и шлет заново. Дубликатов уведомлений не возникает.
// Resend re-sends one phone's combined message after resetting its responses.
func (d *Dispatcher) Resend(tripID int64, phone string) error {
	messages, err := d.Store.ResetForResend(tripID, phone)
	if err != nil {
		return fmt.Errorf("не удалось сбросить уведомления телефона %s: %w", phone, err)
	}
	if len(messages) == 0 {
		return fmt.Errorf("для телефона %s в рейсе %d нет уведомлений", phone, tripID)
	}
	if !messages[0].ChatID.Valid {
		return fmt.Errorf("водитель с телефоном %s не зарегистрирован в боте", phone)
	}

	// Снимаем кнопки с прежних сообщений, чтобы не было двух активных
	// клавиатур. Неудача здесь не блокирует переотправку.
	removed := make(map[int64]bool)
	for _, m := range messages {
		if m.TelegramMessageID.Valid && !removed[m.TelegramMessageID.Int64] {
			removed[m.TelegramMessageID.Int64] = true
			if err := d.Sender.RemoveInlineKeyboard(m.ChatID.Int64, int(m.TelegramMessageID.Int64)); err != nil {
				log.Printf("Resend: не удалось снять клавиатуру со старого сообщения %d (телефон %s): %v. Продолжаем.",
					m.TelegramMessageID.Int64, phone, err)
			}
		}
	}

	return d.sendGroup(tripID, messages)
}

// Cancel снимает все уведомления одного телефона в рейсе: помечает их
// deleted и убирает кнопки с уже отправленных сообщений (ошибка снятия
// клавиатуры не фатальна). Снятые уведомления исключаются из счетчиков рейса.
// Cancel soft-deletes one phone's notifications and strips keyboards from the
// already sent messages.
func (d *Dispatcher) Cancel(tripID int64, phone string) error {
	messages, err := d.Store.CancelMessages(tripID, phone)
	if err != nil {
		return fmt.Errorf("не удалось снять уведомления телефона %s: %w", phone, err)
	}
	if len(messages) == 0 {
		return fmt.Errorf("для телефона %s в рейсе %d нет уведомлений", phone, tripID)
	}

	removed := make(map[int64]bool)
	for _, m := range messages {
		if !m.ChatID.Valid || !m.TelegramMessageID.Valid || removed[m.TelegramMessageID.Int64] {
			continue
		}
		removed[m.TelegramMessageID.Int64] = true
		if err := d.Sender.RemoveInlineKeyboard(m.ChatID.Int64, int(m.TelegramMessageID.Int64)); err != nil {
			log.Printf("Cancel: не удалось снять клавиатуру с сообщения %d (телефон %s): %v. Продолжаем.",
				m.TelegramMessageID.Int64, phone, err)
		}
	}
	log.Printf("Рейс %d: уведомления телефона %s сняты с рассылки.", tripID, phone)
	return nil
}

// sendGroup составляет и отправляет одно сообщение на телефон, покрывающее
// все его trip_identifier, и фиксирует результат в хранилище.
func (d *Dispatcher) sendGroup(tripID int64, group []models.TripMessage) error {
	chatID := group[0].ChatID.Int64
	phone := group[0].Phone

	messageIDs := make([]int64, 0, len(group))
	blocks := make([]formatters.TripBlock, 0, len(group))
	var keyboardRows [][]tgbotapi.InlineKeyboardButton

	for _, m := range group {
		messageIDs = append(messageIDs, m.ID)

		points, err := d.Store.GetTripPoints(tripID, m.TripIdentifier)
		if err != nil {
			log.Printf("Диспетчеризация рейса %d: телефон %s: не удалось получить точки маршрута: %v", tripID, phone, err)
			return err
		}
		blocks = append(blocks, formatters.TripBlock{Message: m, Points: points})

		label := ""
		if len(group) > 1 {
			label = " " + m.TripIdentifier
		}
		keyboardRows = append(keyboardRows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Подтвердить"+label, fmt.Sprintf("confirm_%d", m.ID)),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отказаться"+label, fmt.Sprintf("reject_%d", m.ID)),
		))
	}

	text := formatters.FormatCombinedTripMessage(blocks)
	keyboard := tgbotapi.NewInlineKeyboardMarkup(keyboardRows...)

	telegramMessageID, err := d.Sender.SendWithKeyboard(chatID, text, keyboard)
	if err != nil {
		log.Printf("Диспетчеризация рейса %d: ошибка отправки для телефона %s (chatID %d): %v", tripID, phone, chatID, err)
		if markErr := d.Store.MarkMessagesError(messageIDs, err.Error()); markErr != nil {
			log.Printf("Диспетчеризация рейса %d: не удалось пометить уведомления ошибочными: %v", tripID, markErr)
		}
		return err
	}

	if err := d.Store.MarkMessagesSent(messageIDs, telegramMessageID); err != nil {
		log.Printf("Диспетчеризация рейса %d: сообщение для телефона %s отправлено, но статус не сохранен: %v", tripID, phone, err)
		return err
	}
	return nil
}

// groupByPhone группирует уведомления по телефону, сохраняя порядок выборки.
func groupByPhone(messages []models.TripMessage) [][]models.TripMessage {
	var groups [][]models.TripMessage
	index := make(map[string]int)
	for _, m := range messages {
		if i, ok := index[m.Phone]; ok {
			groups[i] = append(groups[i], m)
			continue
		}
		index[m.Phone] = len(groups)
		groups = append(groups, []models.TripMessage{m})
	}
	return groups
}
