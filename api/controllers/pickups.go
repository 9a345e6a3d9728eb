package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/scrapline/scrapline-backend/api/middleware"
	"github.com/scrapline/scrapline-backend/api/responses"
	"github.com/scrapline/scrapline-backend/api/validators"
	"github.com/scrapline/scrapline-backend/internal/pickups"
	pkgerrors "github.com/scrapline/scrapline-backend/pkg/errors"
	"github.com/scrapline/scrapline-backend/pkg/logger"
)

type pickupCreateRequest struct {
	Lat         string           `json:"lat" validate:"required,latitude"`
	Lng         string           `json:"lng" validate:"required,longitude"`
	EstWeightKg decimal.Decimal  `json:"est_weight_kg" validate:"required"`
	EstPrice    *decimal.Decimal `json:"est_price,omitempty"`
	MediaRefs   []string         `json:"media_refs,omitempty"`
}

// PickupCreate registers a pickup request for the authenticated user and
// auto-assigns the nearest eligible shop when one is in range.
func PickupCreate(svc pickups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pickup service unavailable"))
			return
		}

		var payload pickupCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), pickups.CreateInput{
			RequesterID: middleware.UserIDFromContext(r.Context()),
			Lat:         payload.Lat,
			Lng:         payload.Lng,
			EstWeightKg: payload.EstWeightKg,
			EstPrice:    payload.EstPrice,
			MediaRefs:   payload.MediaRefs,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

// PickupFeed lists open requests plus the shop's in-flight work. An optional
// lat/lng pair narrows open requests to a radius around it.
func PickupFeed(svc pickups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pickup service unavailable"))
			return
		}

		shopID := middleware.ShopIDFromContext(r.Context())
		if shopID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing"))
			return
		}

		origin, err := validators.ParseQueryPoint(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		radius, err := validators.ParseQueryFloat(r, "radius_km", 0)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		feed, err := svc.ListAvailable(r.Context(), pickups.ListAvailableParams{
			ShopID:   *shopID,
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

// PickupMine lists the authenticated user's own pickup requests.
func PickupMine(svc pickups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pickup service unavailable"))
			return
		}

		list, err := svc.ListMine(r.Context(), middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// PickupAccept claims an open request, or confirms a pre-assigned one, for
// the active shop.
func PickupAccept(svc pickups.Service, logg *logger.Logger) http.HandlerFunc {
	return pickupShopTransition(svc, logg, func(r *http.Request, svc pickups.Service, id, shopID uuid.UUID) (any, error) {
		return svc.Accept(r.Context(), id, shopID)
	})
}

// PickupStart marks an accepted request as picked up by the shop of record.
func PickupStart(svc pickups.Service, logg *logger.Logger) http.HandlerFunc {
	return pickupShopTransition(svc, logg, func(r *http.Request, svc pickups.Service, id, shopID uuid.UUID) (any, error) {
		return svc.StartPickup(r.Context(), id, shopID)
	})
}

// PickupComplete finishes a request that is out for pickup.
func PickupComplete(svc pickups.Service, logg *logger.Logger) http.HandlerFunc {
	return pickupShopTransition(svc, logg, func(r *http.Request, svc pickups.Service, id, shopID uuid.UUID) (any, error) {
		return svc.Complete(r.Context(), id, shopID)
	})
}

// PickupCancel lets the requester withdraw a request that has not been
// picked up yet.
func PickupCancel(svc pickups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pickup service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "pickupId"), "pickupId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cancelled, err := svc.Cancel(r.Context(), id, middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cancelled)
	}
}

func pickupShopTransition(svc pickups.Service, logg *logger.Logger, fn func(*http.Request, pickups.Service, uuid.UUID, uuid.UUID) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "pickup service unavailable"))
			return
		}

		shopID := middleware.ShopIDFromContext(r.Context())
		if shopID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "pickupId"), "pickupId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := fn(r, svc, id, *shopID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, updated)
	}
}
