package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/scrapline/scrapline-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// PickupRequest is a requester-initiated collection job for a single vendor.
// ShopID is set iff Status >= 2. AgentID mirrors ShopID for clients that
// still read the pre-marketplace delivery-agent field.
type PickupRequest struct {
	ID              uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	SequenceNo      string             `gorm:"column:sequence_no;not null;uniqueIndex"`
	RequesterID     uuid.UUID          `gorm:"column:requester_id;type:uuid;not null"`
	ShopID          *uuid.UUID         `gorm:"column:shop_id;type:uuid"`
	AgentID         *uuid.UUID         `gorm:"column:agent_id;type:uuid"`
	Status          enums.PickupStatus `gorm:"column:status;not null"`
	Lat             string             `gorm:"column:lat;not null"`
	Lng             string             `gorm:"column:lng;not null"`
	EstWeightKg     decimal.Decimal    `gorm:"column:est_weight_kg;type:numeric;not null"`
	EstPrice        *decimal.Decimal   `gorm:"column:est_price;type:numeric"`
	MediaRefs       pq.StringArray     `gorm:"column:media_refs;type:text[]"`
	VendorSummary   *string            `gorm:"column:vendor_summary"`
	CreatedAt       time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime"`
	AcceptedAt      *time.Time         `gorm:"column:accepted_at"`
	PickupStartedAt *time.Time         `gorm:"column:pickup_started_at"`
	CompletedAt     *time.Time         `gorm:"column:completed_at"`
	CancelledAt     *time.Time         `gorm:"column:cancelled_at"`
}
