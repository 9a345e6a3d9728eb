package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/scrapline/scrapline-backend/internal/repo"
	"github.com/scrapline/scrapline-backend/pkg/db/models"
	"github.com/scrapline/scrapline-backend/pkg/enums"
	"gorm.io/gorm"
)

// Repository persists purchase orders generated from bulk requests.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.PurchaseOrder) error
	Find(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error)
	ListByBulkRequest(ctx context.Context, bulkRequestID uuid.UUID) ([]models.PurchaseOrder, error)
	ListByShop(ctx context.Context, shopID uuid.UUID) ([]models.PurchaseOrder, error)
	// CancelForCommitment cancels the order tied to a commitment unless it
	// is already final. Returns affected row count.
	CancelForCommitment(ctx context.Context, commitmentID uuid.UUID, reason string, at time.Time) (int64, error)
	MarkCompletedByBulkRequest(ctx context.Context, bulkRequestID uuid.UUID, at time.Time) (int64, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns an order repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, order *models.PurchaseOrder) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	return r.DB(ctx).Create(order).Error
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	var order models.PurchaseOrder
	if err := r.DB(ctx).First(&order, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByBulkRequest(ctx context.Context, bulkRequestID uuid.UUID) ([]models.PurchaseOrder, error) {
	var orders []models.PurchaseOrder
	err := r.DB(ctx).
		Where("bulk_request_id = ?", bulkRequestID).
		Order("created_at ASC, id ASC").
		Find(&orders).Error
	return orders, err
}

func (r *repository) ListByShop(ctx context.Context, shopID uuid.UUID) ([]models.PurchaseOrder, error) {
	var orders []models.PurchaseOrder
	err := r.DB(ctx).
		Where("shop_id = ?", shopID).
		Order("created_at DESC, id DESC").
		Find(&orders).Error
	return orders, err
}

func (r *repository) CancelForCommitment(ctx context.Context, commitmentID uuid.UUID, reason string, at time.Time) (int64, error) {
	result := r.DB(ctx).
		Model(&models.PurchaseOrder{}).
		Where("commitment_id = ? AND status NOT IN ?", commitmentID, []enums.OrderStatus{
			enums.OrderStatusCompleted,
			enums.OrderStatusCancelled,
		}).
		Updates(map[string]any{
			"status":        enums.OrderStatusCancelled,
			"cancel_reason": reason,
			"updated_at":    at,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) MarkCompletedByBulkRequest(ctx context.Context, bulkRequestID uuid.UUID, at time.Time) (int64, error) {
	result := r.DB(ctx).
		Model(&models.PurchaseOrder{}).
		Where("bulk_request_id = ? AND status = ?", bulkRequestID, enums.OrderStatusCreated).
		Updates(map[string]any{
			"status":     enums.OrderStatusCompleted,
			"updated_at": at,
		})
	return result.RowsAffected, result.Error
}
