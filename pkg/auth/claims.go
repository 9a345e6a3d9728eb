package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/scrapline/scrapline-backend/pkg/enums"
)

// AccessTokenClaims is the typed JWT issued by the account service. This
// service only verifies and reads it; minting lives with login, which is
// outside this codebase.
type AccessTokenClaims struct {
	UserID uuid.UUID       `json:"user_id"`
	ShopID *uuid.UUID      `json:"shop_id,omitempty"`
	Role   *enums.ShopRole `json:"role,omitempty"`
	jwt.RegisteredClaims
}
