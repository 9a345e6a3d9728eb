package models

import (
	"time"

	"github.com/google/uuid"
)

// User is the owning identity behind one or more shops. Account management
// lives outside this service; only the fields matching needs are mirrored.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	Phone     string    `gorm:"column:phone;not null"`
	Active    bool      `gorm:"column:active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
