package domain

type NotificationKind string

const (
	NotifyBookingConfirmation NotificationKind = "booking_confirmation"
	NotifyCancelledGuest      NotificationKind = "booking_cancelled_guest"
	NotifyCancelledHost       NotificationKind = "booking_cancelled_host"
)

type Notification struct {
	Kind   NotificationKind  `json:"kind"`
	To     string            `json:"to"`
	Params map[string]string `json:"params"`
}
