package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/scrapline/scrapline-backend/internal/repo"
	"github.com/scrapline/scrapline-backend/pkg/db/models"
	"github.com/scrapline/scrapline-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Repository persists inbox notifications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateBatch(ctx context.Context, notifications []models.Notification) error
	ListByShop(ctx context.Context, params ListQuery) ([]models.Notification, *pagination.Cursor, error)
	MarkRead(ctx context.Context, id, shopID uuid.UUID, at time.Time) (int64, error)
}

// ListQuery configures inbox reads.
type ListQuery struct {
	ShopID     uuid.UUID
	UnreadOnly bool
	Limit      int
	Cursor     *pagination.Cursor
}

type repository struct {
	repo.Base
}

// NewRepository returns a notification repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) CreateBatch(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	for i := range notifications {
		if notifications[i].ID == uuid.Nil {
			notifications[i].ID = uuid.New()
		}
	}
	return r.DB(ctx).Create(&notifications).Error
}

func (r *repository) ListByShop(ctx context.Context, params ListQuery) ([]models.Notification, *pagination.Cursor, error) {
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.DB(ctx).
		Where("shop_id = ?", params.ShopID).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit))
	if params.UnreadOnly {
		query = query.Where("read_at IS NULL")
	}
	if params.Cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			params.Cursor.CreatedAt, params.Cursor.CreatedAt, params.Cursor.ID,
		)
	}

	var notifications []models.Notification
	if err := query.Find(&notifications).Error; err != nil {
		return nil, nil, err
	}

	var next *pagination.Cursor
	if len(notifications) > limit {
		notifications = notifications[:limit]
		last := notifications[len(notifications)-1]
		next = &pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	return notifications, next, nil
}

func (r *repository) MarkRead(ctx context.Context, id, shopID uuid.UUID, at time.Time) (int64, error) {
	result := r.DB(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND shop_id = ? AND read_at IS NULL", id, shopID).
		Update("read_at", at)
	return result.RowsAffected, result.Error
}
