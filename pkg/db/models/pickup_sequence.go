package models

// PickupSequence backs the human-readable daily pickup numbering
// (PR-YYYYMMDD-NNNN). One row per day, bumped inside the create transaction.
type PickupSequence struct {
	Day     string `gorm:"column:day;primaryKey"`
	Counter int    `gorm:"column:counter;not null;default:0"`
}
