package utils

import (
	"fmt"
	"regexp"
	"strings"

	"reisbot/internal/constants"
)

var nonDigitRegex = regexp.MustCompile(`[^\d]`)

// NormalizePhone проверяет и нормализует номер телефона к формату
// 7XXXXXXXXXX (как в загружаемых таблицах). Принимает +7/8/7-варианты.
// NormalizePhone validates and normalizes a phone number to the 7XXXXXXXXXX
// form used in uploaded spreadsheets.
func NormalizePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "", fmt.Errorf("номер телефона пуст")
	}

	digits := nonDigitRegex.ReplaceAllString(phone, "")

	switch {
	case len(digits) == 11 && (digits[0] == '7' || digits[0] == '8'):
		return "7" + digits[1:], nil
	case len(digits) == 10:
		return "7" + digits, nil
	}
	return "", fmt.Errorf("неверный формат номера телефона '%s', ожидается +7XXXXXXXXXX или 8XXXXXXXXXX", phone)
}

// QuantizeInterval приводит интервал подписки (в минутах) к допустимым
// границам и квантует по шагу: значение округляется вниз до кратного шагу.
// QuantizeInterval clamps a subscription interval to its bounds and snaps it
// to the configured step.
func QuantizeInterval(minutes int) (int, error) {
	if minutes <= 0 {
		return 0, fmt.Errorf("интервал должен быть положительным, получено %d", minutes)
	}
	if minutes < constants.SUBSCRIPTION_INTERVAL_MIN_MINUTES {
		minutes = constants.SUBSCRIPTION_INTERVAL_MIN_MINUTES
	}
	if minutes > constants.SUBSCRIPTION_INTERVAL_MAX_MINUTES {
		minutes = constants.SUBSCRIPTION_INTERVAL_MAX_MINUTES
	}
	minutes -= minutes % constants.SUBSCRIPTION_INTERVAL_STEP_MINUTES
	if minutes < constants.SUBSCRIPTION_INTERVAL_MIN_MINUTES {
		minutes = constants.SUBSCRIPTION_INTERVAL_MIN_MINUTES
	}
	return minutes, nil
}

// IsRoleOrHigher сообщает, покрывает ли роль пользователя требуемую.
// Иерархия: admin > operator > driver.
// IsRoleOrHigher reports whether the user role covers the required one.
func IsRoleOrHigher(userRole, requiredRole string) bool {
	rank := map[string]int{
		constants.ROLE_DRIVER:   1,
		constants.ROLE_OPERATOR: 2,
		constants.ROLE_ADMIN:    3,
	}
	ur, ok := rank[userRole]
	if !ok {
		return false
	}
	rr, ok := rank[requiredRole]
	if !ok {
		return false
	}
	return ur >= rr
}
