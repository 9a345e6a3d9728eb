package drafts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/scrapline/scrapline-backend/internal/repo"
	"github.com/scrapline/scrapline-backend/pkg/db/models"
	"github.com/scrapline/scrapline-backend/pkg/enums"
	pkgerrors "github.com/scrapline/scrapline-backend/pkg/errors"
	"gorm.io/gorm"
)

// Guard owns the authorized -> submitted transition for bulk drafts. The
// transition is a single conditional UPDATE, so it holds across service
// instances; an in-process lock would not.
type Guard interface {
	WithTx(tx *gorm.DB) Guard
	Find(ctx context.Context, id uuid.UUID) (*models.BulkDraft, error)
	Create(ctx context.Context, draft *models.BulkDraft) error
	// MarkSubmitted flips an authorized draft to submitted. A draft already
	// past authorized fails with a state conflict, never a generic error.
	MarkSubmitted(ctx context.Context, id uuid.UUID) error
	MarkCompleted(ctx context.Context, id uuid.UUID) error
}

type guard struct {
	repo.Base
}

// NewGuard returns a draft guard bound to the provided database.
func NewGuard(db *gorm.DB) Guard {
	return &guard{Base: repo.NewBase(db)}
}

func (g *guard) WithTx(tx *gorm.DB) Guard {
	if tx == nil {
		return g
	}
	return &guard{Base: repo.NewBase(tx)}
}

func (g *guard) Find(ctx context.Context, id uuid.UUID) (*models.BulkDraft, error) {
	var draft models.BulkDraft
	if err := g.DB(ctx).First(&draft, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "draft not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load draft")
	}
	return &draft, nil
}

func (g *guard) Create(ctx context.Context, draft *models.BulkDraft) error {
	if draft.ID == uuid.Nil {
		draft.ID = uuid.New()
	}
	if draft.Status == "" {
		draft.Status = enums.DraftStatusAuthorized
	}
	return g.DB(ctx).Create(draft).Error
}

func (g *guard) MarkSubmitted(ctx context.Context, id uuid.UUID) error {
	now := time.Now().UTC()
	result := g.DB(ctx).
		Model(&models.BulkDraft{}).
		Where("id = ? AND status = ?", id, enums.DraftStatusAuthorized).
		Updates(map[string]any{
			"status":       enums.DraftStatusSubmitted,
			"submitted_at": now,
			"updated_at":   now,
		})
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "mark draft submitted")
	}
	if result.RowsAffected == 0 {
		if _, err := g.Find(ctx, id); err != nil {
			return err
		}
		return pkgerrors.New(pkgerrors.CodeStateConflict, "draft already submitted")
	}
	return nil
}

func (g *guard) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	result := g.DB(ctx).
		Model(&models.BulkDraft{}).
		Where("id = ? AND status = ?", id, enums.DraftStatusSubmitted).
		Update("status", enums.DraftStatusCompleted)
	if result.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, result.Error, "mark draft completed")
	}
	if result.RowsAffected == 0 {
		if _, err := g.Find(ctx, id); err != nil {
			return err
		}
		return pkgerrors.New(pkgerrors.CodeStateConflict, "draft not in submitted state")
	}
	return nil
}
