package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/scrapline/scrapline-backend/pkg/enums"
)

// Shop is a single vendor location. One identity may operate several shops
// with different roles; each shop is evaluated independently by the matcher.
// Coordinates are kept as the free-form strings the source records carry;
// parsing leniency is pkg/geo's concern.
type Shop struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID   uuid.UUID      `gorm:"column:owner;type:uuid;not null"`
	Role      enums.ShopRole `gorm:"column:role;type:shop_role;not null"`
	Name      string         `gorm:"column:name;not null"`
	Phone     string         `gorm:"column:phone;not null"`
	Lat       string         `gorm:"column:lat"`
	Lng       string         `gorm:"column:lng"`
	Active    bool           `gorm:"column:active;not null;default:true"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
