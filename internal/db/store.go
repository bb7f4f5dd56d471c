package db

import (
	"database/sql"
	"time"

	"reisbot/internal/models"
)

// Store - адаптер над функциями пакета db для компонентов, которые зависят
// от узких интерфейсов (ingest, dispatch, notify, обработчики бота).
// Позволяет подменять хранилище в тестах, не трогая глобальное соединение.
// Store adapts the package-level db functions to the narrow interfaces the
// ingest, dispatch, notify and bot handler components depend on.
type Store struct{}

func (Store) GetUserByPhone(phone string) (models.User, error) { return GetUserByPhone(phone) }

func (Store) GetUserByChatID(chatID int64) (models.User, error) { return GetUserByChatID(chatID) }

func (Store) UpsertDriverContact(phone string, chatID int64, name string) (models.User, error) {
	return UpsertDriverContact(phone, chatID, name)
}

func (Store) GetMessageByID(messageID int64) (models.TripMessage, error) {
	return GetMessageByID(messageID)
}

func (Store) SetResponseStatus(messageID int64, responseStatus string, responseAt time.Time) error {
	return SetResponseStatus(messageID, responseStatus, responseAt)
}

func (Store) CancelMessages(tripID int64, phone string) ([]models.TripMessage, error) {
	return CancelMessages(tripID, phone)
}

func (Store) MissingPointIDs(pointIDs []string) ([]string, error) { return MissingPointIDs(pointIDs) }

func (Store) CreateTrip(carpark sql.NullString, createdBy sql.NullInt64) (int64, error) {
	return CreateTrip(carpark, createdBy)
}

func (Store) CreateTripUnit(tripID int64, unit TripUnit) error { return CreateTripUnit(tripID, unit) }

func (Store) GetPendingMessages(tripID int64) ([]models.TripMessage, error) {
	return GetPendingMessages(tripID)
}

func (Store) GetTripPoints(tripID int64, tripIdentifier string) ([]models.TripPoint, error) {
	return GetTripPoints(tripID, tripIdentifier)
}

func (Store) MarkMessagesSent(messageIDs []int64, telegramMessageID int) error {
	return MarkMessagesSent(messageIDs, telegramMessageID)
}

func (Store) MarkMessagesError(messageIDs []int64, errorText string) error {
	return MarkMessagesError(messageIDs, errorText)
}

func (Store) ResetForResend(tripID int64, phone string) ([]models.TripMessage, error) {
	return ResetForResend(tripID, phone)
}

func (Store) GetDueSubscriptions(now time.Time) ([]models.TripSubscription, error) {
	return GetDueSubscriptions(now)
}

func (Store) GetTripProgress(tripID int64) (models.TripProgress, error) {
	return GetTripProgress(tripID)
}

func (Store) TouchSubscription(subscriptionID int64, notifiedAt time.Time) error {
	return TouchSubscription(subscriptionID, notifiedAt)
}

func (Store) DeactivateSubscriptionByID(subscriptionID int64) error {
	return DeactivateSubscriptionByID(subscriptionID)
}

func (Store) DeactivateTripSubscriptions(tripID int64) error {
	return DeactivateTripSubscriptions(tripID)
}

func (Store) CompleteTrip(tripID int64) error { return CompleteTrip(tripID) }
