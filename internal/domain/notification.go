package domain

// NotificationKind - шаблон уведомления
type NotificationKind string

const (
	NotifyBookingConfirmed     NotificationKind = "BOOKING_CONFIRMED"
	NotifyBookingCancelled     NotificationKind = "BOOKING_CANCELLED"
	NotifyBookingExpired       NotificationKind = "BOOKING_EXPIRED"
	NotifySwapCompleted        NotificationKind = "SWAP_COMPLETED"
	NotifyBatteryHealthAlert   NotificationKind = "BATTERY_HEALTH_ALERT"
	NotifyRegistrationRejected NotificationKind = "REGISTRATION_REJECTED"
)

// Notification - запрос на отправку уведомления внешнему сервису
type Notification struct {
	Recipient string                 `json:"recipient"`
	Kind      NotificationKind       `json:"kind"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
}
