package directory

import (
	"context"

	"github.com/google/uuid"
	"github.com/scrapline/scrapline-backend/internal/repo"
	"github.com/scrapline/scrapline-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository exposes the shop/identity records the directory scans.
type Repository interface {
	ListActiveShops(ctx context.Context) ([]models.Shop, error)
	ListShopsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Shop, error)
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpsertShop(ctx context.Context, shop *models.Shop) error
}

type repositoryImpl struct {
	repo.Base
}

// NewRepository returns a directory repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{Base: repo.NewBase(db)}
}

func (r *repositoryImpl) ListActiveShops(ctx context.Context) ([]models.Shop, error) {
	var shops []models.Shop
	err := r.DB(ctx).
		Where("active = ?", true).
		Order("created_at ASC, id ASC").
		Find(&shops).Error
	return shops, err
}

func (r *repositoryImpl) ListShopsByOwner(ctx context.Context, ownerID uuid.UUID) ([]models.Shop, error) {
	var shops []models.Shop
	err := r.DB(ctx).
		Where("owner = ?", ownerID).
		Order("created_at ASC, id ASC").
		Find(&shops).Error
	return shops, err
}

func (r *repositoryImpl) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.DB(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repositoryImpl) UpsertShop(ctx context.Context, shop *models.Shop) error {
	if shop.ID == uuid.Nil {
		shop.ID = uuid.New()
	}
	return r.DB(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(shop).Error
}
