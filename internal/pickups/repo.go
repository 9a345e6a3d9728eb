package pickups

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/scrapline/scrapline-backend/internal/repo"
	"github.com/scrapline/scrapline-backend/pkg/db/models"
	"github.com/scrapline/scrapline-backend/pkg/enums"
	"gorm.io/gorm"
)

// Repository handles pickup-request persistence. State transitions are
// conditional updates so concurrent vendor actions race on the database row,
// not in memory.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, request *models.PickupRequest) error
	Find(ctx context.Context, id uuid.UUID) (*models.PickupRequest, error)
	// ListOpenAndOwn returns every unassigned open request plus the
	// in-flight requests already bound to the given shop.
	ListOpenAndOwn(ctx context.Context, shopID uuid.UUID) ([]models.PickupRequest, error)
	ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]models.PickupRequest, error)
	// ClaimUnassigned moves an open request (status 1, no vendor) straight
	// to Accepted for the claiming shop. Returns affected row count.
	ClaimUnassigned(ctx context.Context, id, shopID uuid.UUID, at time.Time) (int64, error)
	// ConfirmAssigned moves a pre-matched request (status 2) to Accepted,
	// only when the caller is the pre-matched shop.
	ConfirmAssigned(ctx context.Context, id, shopID uuid.UUID, at time.Time) (int64, error)
	MarkPickupStarted(ctx context.Context, id, shopID uuid.UUID, at time.Time) (int64, error)
	MarkCompleted(ctx context.Context, id, shopID uuid.UUID, at time.Time) (int64, error)
	MarkCancelled(ctx context.Context, id, requesterID uuid.UUID, at time.Time) (int64, error)
	// NextSequence bumps and returns the daily counter behind sequence
	// numbers. Must run inside the create transaction.
	NextSequence(ctx context.Context, day string) (int, error)
}

type repository struct {
	repo.Base
}

// NewRepository returns a pickup repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(db)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: repo.NewBase(tx)}
}

func (r *repository) Create(ctx context.Context, request *models.PickupRequest) error {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	return r.DB(ctx).Create(request).Error
}

func (r *repository) Find(ctx context.Context, id uuid.UUID) (*models.PickupRequest, error) {
	var request models.PickupRequest
	if err := r.DB(ctx).First(&request, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *repository) ListOpenAndOwn(ctx context.Context, shopID uuid.UUID) ([]models.PickupRequest, error) {
	var requests []models.PickupRequest
	err := r.DB(ctx).
		Where("(status = ? AND shop_id IS NULL) OR (status IN ? AND shop_id = ?)",
			enums.PickupStatusCreated,
			[]enums.PickupStatus{enums.PickupStatusAssigned, enums.PickupStatusAccepted},
			shopID,
		).
		Order("created_at DESC, id DESC").
		Find(&requests).Error
	return requests, err
}

func (r *repository) ListByRequester(ctx context.Context, requesterID uuid.UUID) ([]models.PickupRequest, error) {
	var requests []models.PickupRequest
	err := r.DB(ctx).
		Where("requester_id = ?", requesterID).
		Order("created_at DESC, id DESC").
		Find(&requests).Error
	return requests, err
}

func (r *repository) ClaimUnassigned(ctx context.Context, id, shopID uuid.UUID, at time.Time) (int64, error) {
	result := r.DB(ctx).
		Model(&models.PickupRequest{}).
		Where("id = ? AND status = ? AND shop_id IS NULL", id, enums.PickupStatusCreated).
		Updates(map[string]any{
			"status":      enums.PickupStatusAccepted,
			"shop_id":     shopID,
			"agent_id":    shopID,
			"accepted_at": at,
			"updated_at":  at,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) ConfirmAssigned(ctx context.Context, id, shopID uuid.UUID, at time.Time) (int64, error) {
	result := r.DB(ctx).
		Model(&models.PickupRequest{}).
		Where("id = ? AND status = ? AND shop_id = ?", id, enums.PickupStatusAssigned, shopID).
		Updates(map[string]any{
			"status":      enums.PickupStatusAccepted,
			"agent_id":    shopID,
			"accepted_at": at,
			"updated_at":  at,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) MarkPickupStarted(ctx context.Context, id, shopID uuid.UUID, at time.Time) (int64, error) {
	result := r.DB(ctx).
		Model(&models.PickupRequest{}).
		Where("id = ? AND status = ? AND shop_id = ?", id, enums.PickupStatusAccepted, shopID).
		Updates(map[string]any{
			"status":            enums.PickupStatusPickupStarted,
			"pickup_started_at": at,
			"updated_at":        at,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) MarkCompleted(ctx context.Context, id, shopID uuid.UUID, at time.Time) (int64, error) {
	result := r.DB(ctx).
		Model(&models.PickupRequest{}).
		Where("id = ? AND status = ? AND shop_id = ?", id, enums.PickupStatusPickupStarted, shopID).
		Updates(map[string]any{
			"status":       enums.PickupStatusCompleted,
			"completed_at": at,
			"updated_at":   at,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) MarkCancelled(ctx context.Context, id, requesterID uuid.UUID, at time.Time) (int64, error) {
	result := r.DB(ctx).
		Model(&models.PickupRequest{}).
		Where("id = ? AND requester_id = ? AND status IN ?", id, requesterID, []enums.PickupStatus{
			enums.PickupStatusCreated,
			enums.PickupStatusAssigned,
			enums.PickupStatusAccepted,
		}).
		Updates(map[string]any{
			"status":       enums.PickupStatusCancelled,
			"cancelled_at": at,
			"updated_at":   at,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) NextSequence(ctx context.Context, day string) (int, error) {
	var counter int
	err := r.DB(ctx).Raw(
		`INSERT INTO pickup_sequences (day, counter) VALUES (?, 1)
		 ON CONFLICT (day) DO UPDATE SET counter = pickup_sequences.counter + 1
		 RETURNING counter`,
		day,
	).Scan(&counter).Error
	return counter, err
}
