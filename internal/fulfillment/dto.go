package fulfillment

import (
	"github.com/google/uuid"
	"github.com/scrapline/scrapline-backend/pkg/db/models"
	"github.com/scrapline/scrapline-backend/pkg/enums"
	"github.com/scrapline/scrapline-backend/pkg/geo"
	"github.com/scrapline/scrapline-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// CreateInput carries a new bulk purchase request.
type CreateInput struct {
	BuyerID uuid.UUID
	// BuyerShopRole drives which vendor pools are notified.
	BuyerShopRole enums.ShopRole
	// BuyerAccountRole is the secondary role signal, when present.
	BuyerAccountRole *enums.ShopRole
	// DraftID references a pre-authorized draft; when set, the draft is
	// atomically marked submitted before the request is created.
	DraftID        *uuid.UUID
	Lat            string
	Lng            string
	RequestedKg    decimal.Decimal
	PreferredPrice *decimal.Decimal
	RadiusKm       float64
	Breakdown      types.Breakdown
}

// CommitInput carries a vendor's (possibly repeated) commitment.
type CommitInput struct {
	BulkRequestID uuid.UUID
	ShopID        uuid.UUID
	OwnerID       uuid.UUID
	// QuantityKg defaults to the full remaining capacity when nil.
	QuantityKg *decimal.Decimal
	BidPrice   *decimal.Decimal
}

// RemoveVendorInput carries a buyer's removal of a committed vendor.
type RemoveVendorInput struct {
	BulkRequestID uuid.UUID
	BuyerID       uuid.UUID
	ShopID        uuid.UUID
	Reason        string
}

// BuyerStatus is a buyer-authenticated display flag on the request.
type BuyerStatus string

const (
	BuyerStatusArrived   BuyerStatus = "arrived"
	BuyerStatusCompleted BuyerStatus = "completed"
)

// BuyerStatusInput carries a buyer arrival/completion update.
type BuyerStatusInput struct {
	BulkRequestID uuid.UUID
	BuyerID       uuid.UUID
	Status        BuyerStatus
}

// VendorFeedParams filters the vendor-facing bulk opportunity feed.
type VendorFeedParams struct {
	ShopID  uuid.UUID
	OwnerID uuid.UUID
	Origin  geo.Point
	// RadiusKm caps the search distance in addition to each buyer's
	// preferred radius; zero means no extra cap.
	RadiusKm float64
}

// VendorFeedEntry is one open bulk request annotated for a vendor.
type VendorFeedEntry struct {
	models.BulkRequest
	DistanceKm  float64
	RemainingKg decimal.Decimal
	// OwnCommitmentKg is the vendor's current ledger quantity, zero when
	// the vendor has not committed.
	OwnCommitmentKg decimal.Decimal
}

// LedgerView is a bulk request plus its authoritative commitment ledger.
type LedgerView struct {
	Request     models.BulkRequest
	Commitments []models.VendorCommitment
	CommittedKg decimal.Decimal
	RemainingKg decimal.Decimal
}
