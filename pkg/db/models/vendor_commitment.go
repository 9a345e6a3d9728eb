package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/scrapline/scrapline-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// VendorCommitment is one ledger row: a shop's committed share of a bulk
// request. One row per (bulk request, shop); re-commits update in place.
type VendorCommitment struct {
	ID            uuid.UUID              `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BulkRequestID uuid.UUID              `gorm:"column:bulk_request_id;type:uuid;not null;uniqueIndex:idx_commitment_bulk_shop"`
	ShopID        uuid.UUID              `gorm:"column:shop_id;type:uuid;not null;uniqueIndex:idx_commitment_bulk_shop"`
	OwnerID       uuid.UUID              `gorm:"column:owner_id;type:uuid;not null"`
	QuantityKg    decimal.Decimal        `gorm:"column:quantity_kg;type:numeric;not null"`
	BidPrice      *decimal.Decimal       `gorm:"column:bid_price;type:numeric"`
	Status        enums.CommitmentStatus `gorm:"column:status;type:commitment_status;not null;default:'participated'"`
	OrderID       *uuid.UUID             `gorm:"column:order_id;type:uuid"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
