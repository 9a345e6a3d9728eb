package enums

import "fmt"

// BulkStatus tracks a bulk purchase request through fulfillment.
type BulkStatus string

const (
	BulkStatusActive        BulkStatus = "active"
	BulkStatusFulfilled     BulkStatus = "fulfilled"
	BulkStatusPickupStarted BulkStatus = "pickup_started"
	BulkStatusBuyerArrived  BulkStatus = "buyer_arrived"
	BulkStatusCompleted     BulkStatus = "completed"
	BulkStatusCancelled     BulkStatus = "cancelled"
)

var validBulkStatuses = []BulkStatus{
	BulkStatusActive,
	BulkStatusFulfilled,
	BulkStatusPickupStarted,
	BulkStatusBuyerArrived,
	BulkStatusCompleted,
	BulkStatusCancelled,
}

// String implements fmt.Stringer.
func (s BulkStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known BulkStatus.
func (s BulkStatus) IsValid() bool {
	for _, candidate := range validBulkStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further ledger activity is allowed.
func (s BulkStatus) IsTerminal() bool {
	return s == BulkStatusCompleted || s == BulkStatusCancelled
}

// ParseBulkStatus converts raw input into a BulkStatus.
func ParseBulkStatus(value string) (BulkStatus, error) {
	for _, candidate := range validBulkStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bulk status %q", value)
}
