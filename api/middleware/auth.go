package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/scrapline/scrapline-backend/api/responses"
	pkgAuth "github.com/scrapline/scrapline-backend/pkg/auth"
	"github.com/scrapline/scrapline-backend/pkg/config"
	pkgerrors "github.com/scrapline/scrapline-backend/pkg/errors"
	"github.com/scrapline/scrapline-backend/pkg/logger"
)

// Auth validates a bearer token and seeds the request context with the claims.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			if raw == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}
			if claims.UserID == uuid.Nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing subject"))
				return
			}

			ctx := WithUserID(r.Context(), claims.UserID)
			if claims.ShopID != nil {
				ctx = WithShopID(ctx, *claims.ShopID)
			}
			if claims.Role != nil {
				ctx = WithRole(ctx, *claims.Role)
			}

			if logg != nil {
				ctx = logg.WithUserID(ctx, claims.UserID.String())
				if claims.ShopID != nil {
					ctx = logg.WithShopID(ctx, claims.ShopID.String())
				}
				if claims.Role != nil {
					ctx = logg.WithActorRole(ctx, string(*claims.Role))
				}
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireShop rejects requests whose token carries no active shop. Vendor
// endpoints need one; buyer-side endpoints do not.
func RequireShop(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if ShopIDFromContext(r.Context()) == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "an active shop is required"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
