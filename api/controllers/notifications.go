package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/scrapline/scrapline-backend/api/middleware"
	"github.com/scrapline/scrapline-backend/api/responses"
	"github.com/scrapline/scrapline-backend/api/validators"
	"github.com/scrapline/scrapline-backend/internal/notify"
	pkgerrors "github.com/scrapline/scrapline-backend/pkg/errors"
	"github.com/scrapline/scrapline-backend/pkg/logger"
	"github.com/scrapline/scrapline-backend/pkg/pagination"
)

// ListNotifications returns a page of the active shop's inbox.
func ListNotifications(svc notify.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notification service unavailable"))
			return
		}

		shopID := middleware.ShopIDFromContext(r.Context())
		if shopID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		unreadOnly, err := validators.ParseQueryBool(r, "unread_only")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), notify.ListParams{
			ShopID:     *shopID,
			UnreadOnly: unreadOnly,
			Limit:      limit,
			Cursor:     strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// MarkNotificationRead stamps a single inbox entry as read.
func MarkNotificationRead(svc notify.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "notification service unavailable"))
			return
		}

		shopID := middleware.ShopIDFromContext(r.Context())
		if shopID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "notificationId"), "notificationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.MarkRead(r.Context(), id, *shopID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "read"})
	}
}
