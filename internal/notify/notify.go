// Файл: internal/notify/notify.go
//
// Рассылка уведомлений о ходе рейсов подписчикам. Компонент запускается
// внешним планировщиком (cron) или вручную через API и не планирует себя
// сам.
package notify

import (
	"fmt"
	"log"
	"sync"
	"time"

	"reisbot/internal/formatters"
	"reisbot/internal/models"
	"reisbot/internal/telegram_api"
)

// Store - хранилище, необходимое рассыльщику.
type Store interface {
	GetDueSubscriptions(now time.Time) ([]models.TripSubscription, error)
	GetTripProgress(tripID int64) (models.TripProgress, error)
	TouchSubscription(subscriptionID int64, notifiedAt time.Time) error
	DeactivateSubscriptionByID(subscriptionID int64) error
	DeactivateTripSubscriptions(tripID int64) error
	CompleteTrip(tripID int64) error
}

// Sender отправляет текстовые сообщения подписчикам.
type Sender interface {
	SendText(chatID int64, text string) error
}

// BotSender реализует Sender поверх клиента Telegram.
type BotSender struct {
	Client *telegram_api.BotClient
}

func (s BotSender) SendText(chatID int64, text string) error {
	_, err := telegram_api.SendText(s.Client, chatID, text)
	return err
}

// Summary - итог одного запуска рассылки.
type Summary struct {
	Sent   int `json:"sent"`
	Errors int `json:"errors"`
	Total  int `json:"total"`
}

// Notifier обходит подписки, которым пора отправить уведомление о ходе
// рейса. Конструируется явно и внедряется туда, где нужен; собственное
// состояние - защита от параллельного запуска и время последнего прохода.
// Notifier processes subscriptions due for a progress notification. It is an
// explicitly constructed, injected component holding an in-flight guard and
// the last-run timestamp.
type Notifier struct {
	Store  Store
	Sender Sender

	// Now подменяется в тестах; по умолчанию time.Now.
	Now func() time.Time

	mu       sync.Mutex
	inFlight bool
	lastRun  time.Time
}

func NewNotifier(store Store, sender Sender) *Notifier {
	return &Notifier{
		Store:  store,
		Sender: sender,
		Now:    time.Now,
	}
}

// LastRun возвращает время начала последнего прохода.
func (n *Notifier) LastRun() time.Time {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.lastRun
}

// Run выполняет один проход рассылки. Параллельный запуск отклоняется:
// двойная отправка одного уведомления хуже, чем пропущенный тик cron.
// Ошибка отправки одной подписки логируется и не прерывает остальные.
// Run performs one notification pass. Concurrent runs are rejected; one
// subscription's failure does not abort the rest.
func (n *Notifier) Run() (Summary, error) {
	n.mu.Lock()
	if n.inFlight {
		n.mu.Unlock()
		return Summary{}, fmt.Errorf("рассылка уведомлений уже выполняется")
	}
	n.inFlight = true
	n.lastRun = n.Now()
	n.mu.Unlock()

	defer func() {
		n.mu.Lock()
		n.inFlight = false
		n.mu.Unlock()
	}()

	now := n.Now()
	var summary Summary

	subs, err := n.Store.GetDueSubscriptions(now)
	if err != nil {
		return summary, fmt.Errorf("не удалось получить подписки к уведомлению: %w", err)
	}
	summary.Total = len(subs)
	if len(subs) == 0 {
		return summary, nil
	}

	for _, sub := range subs {
		// Повторная проверка срока в коде: выборка могла быть сделана
		// раньше или содержать подписку, которую успел обработать
		// параллельный вызов.
		if !sub.Due(now) {
			continue
		}
		if err := n.processSubscription(sub, now); err != nil {
			summary.Errors++
			log.Printf("Рассылка: подписка id %d (рейс %d): %v. Продолжаем.", sub.ID, sub.TripID, err)
		} else {
			summary.Sent++
		}
	}

	log.Printf("Рассылка уведомлений завершена: отправлено %d, ошибок %d из %d подписок.",
		summary.Sent, summary.Errors, summary.Total)
	return summary, nil
}

// processSubscription отправляет одно уведомление о ходе рейса. Если все
// ответы получены, рейс помечается завершенным, а его подписки отключаются;
// иначе обновляется отметка последнего уведомления.
func (n *Notifier) processSubscription(sub models.TripSubscription, now time.Time) error {
	if !sub.ChatID.Valid {
		// Подписчик без chat_id не может получать уведомления: отключаем
		// подписку, чтобы не перебирать ее на каждом проходе.
		if err := n.Store.DeactivateSubscriptionByID(sub.ID); err != nil {
			return fmt.Errorf("подписчик без chat_id, отключение не удалось: %w", err)
		}
		return fmt.Errorf("у подписчика (пользователь %d) нет привязанного chat_id, подписка отключена", sub.UserID)
	}

	progress, err := n.Store.GetTripProgress(sub.TripID)
	if err != nil {
		return fmt.Errorf("не удалось получить статистику рейса: %w", err)
	}

	text := formatters.FormatTripProgress(progress)
	if err := n.Sender.SendText(sub.ChatID.Int64, text); err != nil {
		return fmt.Errorf("ошибка отправки уведомления: %w", err)
	}

	if progress.Completed() {
		if err := n.Store.CompleteTrip(sub.TripID); err != nil {
			return fmt.Errorf("уведомление отправлено, но рейс не помечен завершенным: %w", err)
		}
		if err := n.Store.DeactivateTripSubscriptions(sub.TripID); err != nil {
			return fmt.Errorf("рейс завершен, но подписки не отключены: %w", err)
		}
		log.Printf("Рейс %d завершен, подписки отключены.", sub.TripID)
		return nil
	}

	if err := n.Store.TouchSubscription(sub.ID, now); err != nil {
		return fmt.Errorf("уведомление отправлено, но отметка времени не обновлена: %w", err)
	}
	return nil
}
