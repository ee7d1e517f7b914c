package enums

import "slices"

// NotificationType maps to the type column of notifications.
type NotificationType string

const (
	NotificationTypeOfferReceived      NotificationType = "offer_received"
	NotificationTypeOfferAccepted      NotificationType = "offer_accepted"
	NotificationTypeOrderStatus        NotificationType = "order_status"
	NotificationTypeRefundIssued       NotificationType = "refund_issued"
	NotificationTypeSystemAnnouncement NotificationType = "system_announcement"
)

var validNotificationTypes = []NotificationType{
	NotificationTypeOfferReceived,
	NotificationTypeOfferAccepted,
	NotificationTypeOrderStatus,
	NotificationTypeRefundIssued,
	NotificationTypeSystemAnnouncement,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	return slices.Contains(validNotificationTypes, n)
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	return parse("notification type", value, validNotificationTypes)
}
