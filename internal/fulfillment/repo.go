package fulfillment

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/scrapline/scrapline-backend/internal/repo"
	"github.com/scrapline/scrapline-backend/pkg/db/models"
	"github.com/scrapline/scrapline-backend/pkg/enums"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists bulk requests, their commitment ledger and the
// rejected-vendor list.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateBulkRequest(ctx context.Context, request *models.BulkRequest) error
	FindBulkRequest(ctx context.Context, id uuid.UUID) (*models.BulkRequest, error)
	// FindBulkRequestForUpdate locks the bulk row for the duration of the
	// surrounding transaction. Every ledger mutation goes through this so
	// read-modify-write cycles on the same request serialize at the row.
	FindBulkRequestForUpdate(ctx context.Context, id uuid.UUID) (*models.BulkRequest, error)
	SaveBulkRequest(ctx context.Context, request *models.BulkRequest) error
	ListBulkRequestsByStatus(ctx context.Context, statuses []enums.BulkStatus) ([]models.BulkRequest, error)
	ListBulkRequestsByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.BulkRequest, error)

	ListCommitments(ctx context.Context, bulkRequestID uuid.UUID) ([]models.VendorCommitment, error)
	FindCommitment(ctx context.Context, bulkRequestID, shopID uuid.UUID) (*models.VendorCommitment, error)
	SaveCommitment(ctx context.Context, commitment *models.VendorCommitment) error
	DeleteCommitment(ctx context.Context, id uuid.UUID) error
	// RestatusCommitments moves every ledger entry currently in one of the
	// from statuses to the given status.
	RestatusCommitments(ctx context.Context, bulkRequestID uuid.UUID, from []enums.CommitmentStatus, to enums.CommitmentStatus, at time.Time) error
	StampCommitmentOrder(ctx context.Context, commitmentID, orderID uuid.UUID, status enums.CommitmentStatus, at time.Time) error
	ListCommitmentsByShop(ctx context.Context, shopID uuid.UUID) ([]models.VendorCommitment, error)

	CreateRejection(ctx context.Context, rejection *models.BulkRejection) error
	ListRejections(ctx context.Context, bulkRequestID uuid.UUID) ([]models.BulkRejection, error)
	ListRejectedBulkIDs(ctx context.Context, shopID uuid.UUID) ([]uuid.UUID, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a fulfillment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) CreateBulkRequest(ctx context.Context, request *models.BulkRequest) error {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	return r.DB(ctx).Create(request).Error
}

func (r *repository) FindBulkRequest(ctx context.Context, id uuid.UUID) (*models.BulkRequest, error) {
	var request models.BulkRequest
	if err := r.DB(ctx).First(&request, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) FindBulkRequestForUpdate(ctx context.Context, id uuid.UUID) (*models.BulkRequest, error) {
	var request models.BulkRequest
	err := r.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&request, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) SaveBulkRequest(ctx context.Context, request *models.BulkRequest) error {
	return r.DB(ctx).Save(request).Error
}

func (r *repository) ListBulkRequestsByStatus(ctx context.Context, statuses []enums.BulkStatus) ([]models.BulkRequest, error) {
	var requests []models.BulkRequest
	err := r.DB(ctx).
		Where("status IN ?", statuses).
		Order("created_at DESC, id DESC").
		Find(&requests).Error
	return requests, err
}

func (r *repository) ListBulkRequestsByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.BulkRequest, error) {
	var requests []models.BulkRequest
	err := r.DB(ctx).
		Where("buyer_id = ?", buyerID).
		Order("created_at DESC, id DESC").
		Find(&requests).Error
	return requests, err
}

func (r *repository) ListCommitments(ctx context.Context, bulkRequestID uuid.UUID) ([]models.VendorCommitment, error) {
	var commitments []models.VendorCommitment
	err := r.DB(ctx).
		Where("bulk_request_id = ?", bulkRequestID).
		Order("created_at ASC, id ASC").
		Find(&commitments).Error
	return commitments, err
}

func (r *repository) FindCommitment(ctx context.Context, bulkRequestID, shopID uuid.UUID) (*models.VendorCommitment, error) {
	var commitment models.VendorCommitment
	err := r.DB(ctx).
		First(&commitment, "bulk_request_id = ? AND shop_id = ?", bulkRequestID, shopID).Error
	if err != nil {
		return nil, err
	}
	return &commitment, nil
}

func (r *repository) SaveCommitment(ctx context.Context, commitment *models.VendorCommitment) error {
	if commitment.ID == uuid.Nil {
		commitment.ID = uuid.New()
	}
	return r.DB(ctx).Save(commitment).Error
}

func (r *repository) DeleteCommitment(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).Delete(&models.VendorCommitment{}, "id = ?", id).Error
}

func (r *repository) RestatusCommitments(ctx context.Context, bulkRequestID uuid.UUID, from []enums.CommitmentStatus, to enums.CommitmentStatus, at time.Time) error {
	return r.DB(ctx).
		Model(&models.VendorCommitment{}).
		Where("bulk_request_id = ? AND status IN ?", bulkRequestID, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": at,
		}).Error
}

func (r *repository) StampCommitmentOrder(ctx context.Context, commitmentID, orderID uuid.UUID, status enums.CommitmentStatus, at time.Time) error {
	return r.DB(ctx).
		Model(&models.VendorCommitment{}).
		Where("id = ?", commitmentID).
		Updates(map[string]any{
			"order_id":   orderID,
			"status":     status,
			"updated_at": at,
		}).Error
}

func (r *repository) ListCommitmentsByShop(ctx context.Context, shopID uuid.UUID) ([]models.VendorCommitment, error) {
	var commitments []models.VendorCommitment
	err := r.DB(ctx).
		Where("shop_id = ?", shopID).
		Order("created_at DESC, id DESC").
		Find(&commitments).Error
	return commitments, err
}

func (r *repository) CreateRejection(ctx context.Context, rejection *models.BulkRejection) error {
	if rejection.ID == uuid.Nil {
		rejection.ID = uuid.New()
	}
	// Repeat rejections without a reason are no-ops; a reasoned rejection
	// overwrites the stored reason so buyer removals keep their audit trail.
	conflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "bulk_request_id"}, {Name: "shop_id"}},
		DoNothing: true,
	}
	if rejection.Reason != nil {
		conflict.DoNothing = false
		conflict.DoUpdates = clause.Assignments(map[string]any{"reason": rejection.Reason})
	}
	return r.DB(ctx).
		Clauses(conflict).
		Create(rejection).Error
}

func (r *repository) ListRejections(ctx context.Context, bulkRequestID uuid.UUID) ([]models.BulkRejection, error) {
	var rejections []models.BulkRejection
	err := r.DB(ctx).
		Where("bulk_request_id = ?", bulkRequestID).
		Order("created_at ASC, id ASC").
		Find(&rejections).Error
	return rejections, err
}

func (r *repository) ListRejectedBulkIDs(ctx context.Context, shopID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.DB(ctx).
		Model(&models.BulkRejection{}).
		Where("shop_id = ?", shopID).
		Pluck("bulk_request_id", &ids).Error
	return ids, err
}
