package models

import (
	"time"

	"github.com/google/uuid"
)

// BulkRejection records a shop that declined, or was removed from, a bulk
// request. Reason is set when the buyer removed the vendor. One row per
// (bulk request, shop); repeat rejections are no-ops.
type BulkRejection struct {
	ID            uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BulkRequestID uuid.UUID `gorm:"column:bulk_request_id;type:uuid;not null;uniqueIndex:idx_rejection_bulk_shop"`
	ShopID        uuid.UUID `gorm:"column:shop_id;type:uuid;not null;uniqueIndex:idx_rejection_bulk_shop"`
	Reason        *string   `gorm:"column:reason"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime"`
}
