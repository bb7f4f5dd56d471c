package constants

import "time"

// Роли пользователей.
// User roles.
const (
	ROLE_ADMIN    = "admin"
	ROLE_OPERATOR = "operator"
	ROLE_DRIVER   = "driver"
)

// Статусы рейса (кампании рассылки).
// Trip (campaign) statuses.
const (
	TRIP_STATUS_ACTIVE    = "active"
	TRIP_STATUS_COMPLETED = "completed"
)

// Статусы отправки уведомления водителю.
// Delivery statuses of a driver notification.
const (
	MESSAGE_STATUS_PENDING = "pending"
	MESSAGE_STATUS_SENT    = "sent"
	MESSAGE_STATUS_ERROR   = "error"
	MESSAGE_STATUS_DELETED = "deleted"
)

// Статусы ответа водителя на уведомление.
// Driver response statuses.
const (
	RESPONSE_STATUS_PENDING   = "pending"
	RESPONSE_STATUS_CONFIRMED = "confirmed"
	RESPONSE_STATUS_REJECTED  = "rejected"
)

// Типы точек маршрута: P - погрузка, D - выгрузка.
// Route point types: P - loading, D - unloading.
const (
	POINT_TYPE_LOADING   = "P"
	POINT_TYPE_UNLOADING = "D"
)

// Состояния регистрации пользователя в боте.
const (
	REGISTRATION_STATE_NEW       = "new"
	REGISTRATION_STATE_COMPLETED = "completed"
)

// Префиксы callback_data для инлайн-кнопок ответа водителя.
// Callback data prefixes for the driver response inline buttons.
const (
	CALLBACK_PREFIX_CONFIRM = "confirm_"
	CALLBACK_PREFIX_REJECT  = "reject_"
)

// Границы и шаг интервала подписки на уведомления о ходе рейса.
// Bounds and step of the progress-notification subscription interval.
const (
	SUBSCRIPTION_INTERVAL_MIN_MINUTES  = 5
	SUBSCRIPTION_INTERVAL_MAX_MINUTES  = 1440
	SUBSCRIPTION_INTERVAL_STEP_MINUTES = 5
)

// DEFAULT_DISPATCH_SEND_DELAY - пауза между отправками сообщений разным
// водителям, чтобы не упираться в лимиты Telegram API.
// Pause between sends to different drivers to respect Telegram API limits.
const DEFAULT_DISPATCH_SEND_DELAY = 300 * time.Millisecond

// DEFAULT_SESSION_TTL - время жизни веб-сессии оператора.
const DEFAULT_SESSION_TTL = 72 * time.Hour

// LOGIN_CODE_TTL - время жизни одноразового кода входа.
const LOGIN_CODE_TTL = 10 * time.Minute

// SESSION_COOKIE_NAME - имя HTTP-only куки с токеном сессии.
const SESSION_COOKIE_NAME = "reisbot_session"

// WebhookAllowedUpdates - типы обновлений Telegram, которые мы принимаем на
// вебхук: нужны только сообщения и нажатия инлайн-кнопок.
var WebhookAllowedUpdates = []string{"message", "callback_query"}
