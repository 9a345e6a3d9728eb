package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/scrapline/scrapline-backend/pkg/enums"
	"github.com/scrapline/scrapline-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// BulkRequest is a buyer-initiated request for a large material quantity.
// Committed progress lives exclusively in the vendor_commitments ledger;
// the row carries no cached sum.
type BulkRequest struct {
	ID             uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID        uuid.UUID        `gorm:"column:buyer_id;type:uuid;not null"`
	DraftID        *uuid.UUID       `gorm:"column:draft_id;type:uuid"`
	Lat            string           `gorm:"column:lat;not null"`
	Lng            string           `gorm:"column:lng;not null"`
	RequestedKg    decimal.Decimal  `gorm:"column:requested_kg;type:numeric;not null"`
	PreferredPrice *decimal.Decimal `gorm:"column:preferred_price;type:numeric"`
	RadiusKm       float64          `gorm:"column:radius_km;not null"`
	Breakdown      types.Breakdown  `gorm:"column:breakdown;type:jsonb"`
	Status         enums.BulkStatus `gorm:"column:status;type:bulk_status;not null;default:'active'"`
	BuyerArrived   bool             `gorm:"column:buyer_arrived;not null;default:false"`
	BuyerCompleted bool             `gorm:"column:buyer_completed;not null;default:false"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}
