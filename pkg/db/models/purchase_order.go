package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/scrapline/scrapline-backend/pkg/enums"
	"github.com/scrapline/scrapline-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// PurchaseOrder is generated for each ledger entry when the buyer starts a
// bulk pickup. Line items are the bulk breakdown scaled to the vendor's
// committed share.
type PurchaseOrder struct {
	ID            uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BulkRequestID uuid.UUID         `gorm:"column:bulk_request_id;type:uuid;not null;index"`
	CommitmentID  uuid.UUID         `gorm:"column:commitment_id;type:uuid;not null"`
	BuyerID       uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null"`
	ShopID        uuid.UUID         `gorm:"column:shop_id;type:uuid;not null"`
	Status        enums.OrderStatus `gorm:"column:status;type:order_status;not null;default:'created'"`
	QuantityKg    decimal.Decimal   `gorm:"column:quantity_kg;type:numeric;not null"`
	LineItems     types.LineItems   `gorm:"column:line_items;type:jsonb"`
	CancelReason  *string           `gorm:"column:cancel_reason"`
	CreatedAt     time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
