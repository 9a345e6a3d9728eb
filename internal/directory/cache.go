package directory

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/scrapline/scrapline-backend/pkg/db/models"
	"github.com/scrapline/scrapline-backend/pkg/logger"
	"github.com/scrapline/scrapline-backend/pkg/redis"
)

const activeShopsScope = "directory:shops"

// CachedRepository is a read-through cache over the active-shop scan. Matching
// reads every active shop on each search, so the full list is cached as one
// entry and invalidated on any shop write. Cache failures fall through to the
// database.
type CachedRepository struct {
	inner Repository
	cache redis.CacheStore
	ttl   time.Duration
	logg  *logger.Logger
}

// NewCachedRepository decorates repo with a redis-backed active-shop cache.
func NewCachedRepository(inner Repository, cache redis.CacheStore, ttl time.Duration, logg *logger.Logger) *CachedRepository {
	return &CachedRepository{inner: inner, cache: cache, ttl: ttl, logg: logg}
}

func (c *CachedRepository) ListActiveShops(ctx context.Context) ([]models.Shop, error) {
	key := c.cache.CacheKey(activeShopsScope, "active")
	raw, err := c.cache.Get(ctx, key)
	if err == nil {
		var shops []models.Shop
		if unmarshalErr := json.Unmarshal([]byte(raw), &shops); unmarshalErr == nil {
			return shops, nil
		}
		// Corrupt entry, drop it and reload from the database.
		_ = c.cache.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) && c.logg != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "active shop cache read failed")
	}

	shops, err := c.inner.ListActiveShops(ctx)
	if err != nil {
		return nil, err
	}
	if encoded, marshalErr := json.Marshal(shops); marshalErr == nil {
		if setErr := c.cache.Set(ctx, key, encoded, c.ttl); setErr != nil && c.logg != nil {
			c.logg.Warn(c.logg.WithField(ctx, "error", setErr.Error()), "active shop cache write failed")
		}
	}
	return shops, nil
}

func (c *CachedRepository) ListShopsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Shop, error) {
	return c.inner.ListShopsByOwner(ctx, ownerID)
}

func (c *CachedRepository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return c.inner.FindUser(ctx, id)
}

func (c *CachedRepository) UpsertShop(ctx context.Context, shop *models.Shop) error {
	if err := c.inner.UpsertShop(ctx, shop); err != nil {
		return err
	}
	key := c.cache.CacheKey(activeShopsScope, "active")
	if err := c.cache.Del(ctx, key); err != nil && c.logg != nil {
		c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), "active shop cache invalidation failed")
	}
	return nil
}
