package middleware

import (
	"context"

	"github.com/google/uuid"
	"github.com/scrapline/scrapline-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID contextKey = "user_id"
	ctxShopID contextKey = "shop_id"
	ctxRole   contextKey = "actor_role"
)

func UserIDFromContext(ctx context.Context) uuid.UUID {
	if ctx == nil {
		return uuid.Nil
	}
	if v, ok := ctx.Value(ctxUserID).(uuid.UUID); ok {
		return v
	}
	return uuid.Nil
}

func ShopIDFromContext(ctx context.Context) *uuid.UUID {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxShopID).(uuid.UUID); ok {
		return &v
	}
	return nil
}

func RoleFromContext(ctx context.Context) *enums.ShopRole {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxRole).(enums.ShopRole); ok {
		return &v
	}
	return nil
}

// WithUserID injects the user identifier, primarily for tests.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithShopID injects the active shop identifier for downstream handlers.
func WithShopID(ctx context.Context, shopID uuid.UUID) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxShopID, shopID)
}

// WithRole injects the actor's shop role.
func WithRole(ctx context.Context, role enums.ShopRole) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRole, role)
}
