package enums

import "fmt"

// CommitmentStatus tracks one vendor's ledger entry on a bulk request.
type CommitmentStatus string

const (
	CommitmentStatusParticipated  CommitmentStatus = "participated"
	CommitmentStatusFulfilled     CommitmentStatus = "fulfilled"
	CommitmentStatusPickupStarted CommitmentStatus = "pickup_started"
)

var validCommitmentStatuses = []CommitmentStatus{
	CommitmentStatusParticipated,
	CommitmentStatusFulfilled,
	CommitmentStatusPickupStarted,
}

// String implements fmt.Stringer.
func (s CommitmentStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known CommitmentStatus.
func (s CommitmentStatus) IsValid() bool {
	for _, candidate := range validCommitmentStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseCommitmentStatus converts raw input into a CommitmentStatus.
func ParseCommitmentStatus(value string) (CommitmentStatus, error) {
	for _, candidate := range validCommitmentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid commitment status %q", value)
}
