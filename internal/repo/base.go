package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base holds the GORM handle every domain repository embeds. Repositories
// rebind it through their WithTx so transactional work shares one connection.
type Base struct {
	db *gorm.DB
}

// NewBase wraps a GORM connection (or an open transaction) for embedding.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the connection scoped to ctx.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}
