package enums

import "fmt"

// DraftStatus tracks a pre-authorized bulk draft through submission.
type DraftStatus string

const (
	DraftStatusAuthorized DraftStatus = "authorized"
	DraftStatusSubmitted  DraftStatus = "submitted"
	DraftStatusCompleted  DraftStatus = "completed"
)

var validDraftStatuses = []DraftStatus{
	DraftStatusAuthorized,
	DraftStatusSubmitted,
	DraftStatusCompleted,
}

// String implements fmt.Stringer.
func (s DraftStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known DraftStatus.
func (s DraftStatus) IsValid() bool {
	for _, candidate := range validDraftStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseDraftStatus converts raw input into a DraftStatus.
func ParseDraftStatus(value string) (DraftStatus, error) {
	for _, candidate := range validDraftStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid draft status %q", value)
}
