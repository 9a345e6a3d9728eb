package enums

import "fmt"

// PickupStatus is the numeric pickup-request state. The integer values are a
// fixed contract with deployed client software and must never be renumbered.
// 6 is reserved and unused.
type PickupStatus int

const (
	PickupStatusCreated       PickupStatus = 1
	PickupStatusAssigned      PickupStatus = 2
	PickupStatusAccepted      PickupStatus = 3
	PickupStatusPickupStarted PickupStatus = 4
	PickupStatusCompleted     PickupStatus = 5
	PickupStatusCancelled     PickupStatus = 7
)

var validPickupStatuses = []PickupStatus{
	PickupStatusCreated,
	PickupStatusAssigned,
	PickupStatusAccepted,
	PickupStatusPickupStarted,
	PickupStatusCompleted,
	PickupStatusCancelled,
}

var pickupStatusNames = map[PickupStatus]string{
	PickupStatusCreated:       "created",
	PickupStatusAssigned:      "assigned",
	PickupStatusAccepted:      "accepted",
	PickupStatusPickupStarted: "pickup_started",
	PickupStatusCompleted:     "completed",
	PickupStatusCancelled:     "cancelled",
}

// String returns the readable name for log lines; the wire format stays numeric.
func (s PickupStatus) String() string {
	if name, ok := pickupStatusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// IsValid reports whether the value is a known PickupStatus.
func (s PickupStatus) IsValid() bool {
	for _, candidate := range validPickupStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are allowed.
func (s PickupStatus) IsTerminal() bool {
	return s == PickupStatusCompleted || s == PickupStatusCancelled
}

// ParsePickupStatus converts a raw integer into a PickupStatus.
func ParsePickupStatus(value int) (PickupStatus, error) {
	status := PickupStatus(value)
	if !status.IsValid() {
		return 0, fmt.Errorf("invalid pickup status %d", value)
	}
	return status, nil
}
