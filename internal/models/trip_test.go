package models

import (
	"database/sql"
	"testing"
	"time"
)

func TestTripProgress_Completed(t *testing.T) {
	testCases := []struct {
		name     string
		progress TripProgress
		want     bool
	}{
		{"все ответили", TripProgress{Total: 3, Sent: 3, Confirmed: 2, Rejected: 1}, true},
		{"есть неотвеченные", TripProgress{Total: 3, Sent: 3, Confirmed: 1, Rejected: 1, Pending: 1}, false},
		{"не все отправлено", TripProgress{Total: 3, Sent: 2, Confirmed: 2}, false},
		{"пустой рейс", TripProgress{}, false},
		{"только отказы", TripProgress{Total: 2, Sent: 2, Rejected: 2}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.progress.Completed(); got != tc.want {
				t.Errorf("Completed() = %v, ожидалось %v для %+v", got, tc.want, tc.progress)
			}
		})
	}
}

func TestTripMessage_AwaitingResponse(t *testing.T) {
	testCases := []struct {
		name string
		msg  TripMessage
		want bool
	}{
		{"отправлено, ответа нет", TripMessage{Status: "sent", ResponseStatus: "pending"}, true},
		{"еще не отправлено", TripMessage{Status: "pending", ResponseStatus: "pending"}, true},
		{"подтверждено", TripMessage{Status: "sent", ResponseStatus: "confirmed"}, false},
		{"отказ", TripMessage{Status: "sent", ResponseStatus: "rejected"}, false},
		{"ошибка отправки", TripMessage{Status: "error", ResponseStatus: "pending"}, false},
		{"снято с рассылки", TripMessage{Status: "deleted", ResponseStatus: "pending"}, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.msg.AwaitingResponse(); got != tc.want {
				t.Errorf("AwaitingResponse() = %v, ожидалось %v для %+v", got, tc.want, tc.msg)
			}
		})
	}
}

func TestTripProgress_ResponsePercent(t *testing.T) {
	testCases := []struct {
		name     string
		progress TripProgress
		want     int
	}{
		{"ничего не отправлено", TripProgress{Total: 5}, 0},
		{"половина ответила", TripProgress{Total: 4, Sent: 4, Confirmed: 1, Rejected: 1, Pending: 2}, 50},
		{"все ответили", TripProgress{Total: 3, Sent: 3, Confirmed: 3}, 100},
		{"округление вниз", TripProgress{Total: 3, Sent: 3, Confirmed: 1, Pending: 2}, 33},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.progress.ResponsePercent(); got != tc.want {
				t.Errorf("ResponsePercent() = %d, ожидалось %d для %+v", got, tc.want, tc.progress)
			}
		})
	}
}

func TestTripSubscription_Due(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	testCases := []struct {
		name string
		sub  TripSubscription
		want bool
	}{
		{
			"еще не уведомляли",
			TripSubscription{IsActive: true, IntervalMinutes: 30},
			true,
		},
		{
			"интервал прошел",
			TripSubscription{IsActive: true, IntervalMinutes: 30,
				LastNotificationAt: sql.NullTime{Time: now.Add(-45 * time.Minute), Valid: true}},
			true,
		},
		{
			"интервал не прошел",
			TripSubscription{IsActive: true, IntervalMinutes: 30,
				LastNotificationAt: sql.NullTime{Time: now.Add(-10 * time.Minute), Valid: true}},
			false,
		},
		{
			"ровно на границе",
			TripSubscription{IsActive: true, IntervalMinutes: 30,
				LastNotificationAt: sql.NullTime{Time: now.Add(-30 * time.Minute), Valid: true}},
			true,
		},
		{
			"неактивная подписка",
			TripSubscription{IsActive: false, IntervalMinutes: 30},
			false,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.sub.Due(now); got != tc.want {
				t.Errorf("Due() = %v, ожидалось %v", got, tc.want)
			}
		})
	}
}
