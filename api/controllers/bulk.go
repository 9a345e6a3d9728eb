package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/scrapline/scrapline-backend/api/middleware"
	"github.com/scrapline/scrapline-backend/api/responses"
	"github.com/scrapline/scrapline-backend/api/validators"
	"github.com/scrapline/scrapline-backend/internal/fulfillment"
	"github.com/scrapline/scrapline-backend/pkg/enums"
	pkgerrors "github.com/scrapline/scrapline-backend/pkg/errors"
	"github.com/scrapline/scrapline-backend/pkg/geo"
	"github.com/scrapline/scrapline-backend/pkg/logger"
	"github.com/scrapline/scrapline-backend/pkg/types"
)

type bulkCreateRequest struct {
	DraftID        *uuid.UUID       `json:"draft_id,omitempty"`
	Lat            string           `json:"lat" validate:"required,latitude"`
	Lng            string           `json:"lng" validate:"required,longitude"`
	RequestedKg    decimal.Decimal  `json:"requested_kg" validate:"required"`
	PreferredPrice *decimal.Decimal `json:"preferred_price,omitempty"`
	RadiusKm       float64          `json:"radius_km" validate:"required,gt=0"`
	Breakdown      types.Breakdown  `json:"breakdown" validate:"required,min=1"`
}

// BulkCreate opens a bulk purchase request and fans out vendor notifications.
func BulkCreate(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		var payload bulkCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := fulfillment.CreateInput{
			BuyerID:        middleware.UserIDFromContext(r.Context()),
			BuyerShopRole:  enums.ShopRoleCombined,
			DraftID:        payload.DraftID,
			Lat:            payload.Lat,
			Lng:            payload.Lng,
			RequestedKg:    payload.RequestedKg,
			PreferredPrice: payload.PreferredPrice,
			RadiusKm:       payload.RadiusKm,
			Breakdown:      payload.Breakdown,
		}
		if role := middleware.RoleFromContext(r.Context()); role != nil {
			input.BuyerShopRole = *role
			input.BuyerAccountRole = role
		}

		created, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// BulkDetail returns the request with its commitment ledger.
func BulkDetail(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "bulkId"), "bulkId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// BulkVendorFeed lists open opportunities near the vendor shop, minus the
// ones it rejected.
func BulkVendorFeed(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		shopID := middleware.ShopIDFromContext(r.Context())
		if shopID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing"))
			return
		}

		origin, err := requireQueryPoint(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		radius, err := validators.ParseQueryFloat(r, "radius_km", 0)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		feed, err := svc.ListForVendor(r.Context(), fulfillment.VendorFeedParams{
			ShopID:   *shopID,
			OwnerID:  middleware.UserIDFromContext(r.Context()),
			Origin:   origin,
			RadiusKm: radius,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, feed)
	}
}

// BulkMine lists the authenticated buyer's own requests.
func BulkMine(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		list, err := svc.ListForBuyer(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type bulkCommitRequest struct {
	QuantityKg *decimal.Decimal `json:"quantity_kg,omitempty"`
	BidPrice   *decimal.Decimal `json:"bid_price,omitempty"`
}

// BulkCommit records or replaces the active shop's ledger entry. Quantity
// defaults to the full remaining capacity.
func BulkCommit(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		shopID := middleware.ShopIDFromContext(r.Context())
		if shopID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "bulkId"), "bulkId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload bulkCommitRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.Commit(r.Context(), fulfillment.CommitInput{
			BulkRequestID: id,
			ShopID:        *shopID,
			OwnerID:       middleware.UserIDFromContext(r.Context()),
			QuantityKg:    payload.QuantityKg,
			BidPrice:      payload.BidPrice,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// BulkReject hides the request from the active shop's feed. Repeats are
// no-ops.
func BulkReject(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		shopID := middleware.ShopIDFromContext(r.Context())
		if shopID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "bulkId"), "bulkId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Reject(r.Context(), id, *shopID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "rejected"})
	}
}

type bulkRemoveVendorRequest struct {
	Reason string `json:"reason,omitempty"`
}

// BulkRemoveVendor lets the buyer drop a committed vendor, reopening the
// freed capacity.
func BulkRemoveVendor(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "bulkId"), "bulkId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		shopID, err := validators.ParsePathUUID(chi.URLParam(r, "shopId"), "shopId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload bulkRemoveVendorRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		view, err := svc.RemoveVendor(r.Context(), fulfillment.RemoveVendorInput{
			BulkRequestID: id,
			BuyerID:       middleware.UserIDFromContext(r.Context()),
			ShopID:        shopID,
			Reason:        strings.TrimSpace(payload.Reason),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, view)
	}
}

// BulkStartPickup generates purchase orders for every ledger entry and moves
// the request to pickup_started.
func BulkStartPickup(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "bulkId"), "bulkId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, err := svc.StartPickup(r.Context(), id, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, orders)
	}
}

type bulkBuyerStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=arrived completed"`
}

// BulkBuyerStatus records the buyer's arrival or completion flag.
func BulkBuyerStatus(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "bulkId"), "bulkId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload bulkBuyerStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.UpdateBuyerStatus(r.Context(), fulfillment.BuyerStatusInput{
			BulkRequestID: id,
			BuyerID:       middleware.UserIDFromContext(r.Context()),
			Status:        fulfillment.BuyerStatus(payload.Status),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}

// BulkOrders lists the purchase orders generated for the buyer's request.
func BulkOrders(svc fulfillment.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "fulfillment service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "bulkId"), "bulkId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, err := svc.ListOrders(r.Context(), id, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders)
	}
}

func requireQueryPoint(r *http.Request) (geo.Point, error) {
	point, err := validators.ParseQueryPoint(r)
	if err != nil {
		return geo.Point{}, err
	}
	if point == nil {
		return geo.Point{}, pkgerrors.New(pkgerrors.CodeValidation, "lat and lng are required")
	}
	return *point, nil
}
