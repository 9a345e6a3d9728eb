package enums

import "fmt"

// NotificationType labels inbox entries produced by the gateway.
type NotificationType string

const (
	NotificationTypePickupAssigned  NotificationType = "pickup_assigned"
	NotificationTypePickupUpdate    NotificationType = "pickup_update"
	NotificationTypeBulkOpportunity NotificationType = "bulk_opportunity"
	NotificationTypeBulkUpdate      NotificationType = "bulk_update"
	NotificationTypeOrderGenerated  NotificationType = "order_generated"
)

var validNotificationTypes = []NotificationType{
	NotificationTypePickupAssigned,
	NotificationTypePickupUpdate,
	NotificationTypeBulkOpportunity,
	NotificationTypeBulkUpdate,
	NotificationTypeOrderGenerated,
}

// IsValid checks whether the given type matches the canonical enum.
func (n NotificationType) IsValid() bool {
	for _, candidate := range validNotificationTypes {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationType converts raw strings into NotificationType.
func ParseNotificationType(value string) (NotificationType, error) {
	for _, candidate := range validNotificationTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification type %q", value)
}
