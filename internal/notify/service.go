package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/scrapline/scrapline-backend/pkg/db/models"
	pkgerrors "github.com/scrapline/scrapline-backend/pkg/errors"
	"github.com/scrapline/scrapline-backend/pkg/pagination"
)

// ListParams selects a page of a shop's inbox.
type ListParams struct {
	ShopID     uuid.UUID
	UnreadOnly bool
	Limit      int
	Cursor     string
}

// ListResult is one inbox page with the cursor for the next one.
type ListResult struct {
	Notifications []models.Notification
	NextCursor    string
}

// Service exposes the per-shop notification inbox.
type Service interface {
	List(ctx context.Context, params ListParams) (ListResult, error)
	MarkRead(ctx context.Context, id, shopID uuid.UUID) error
}

type service struct {
	repo Repository
}

// NewService builds the inbox service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "notification repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (ListResult, error) {
	if params.ShopID == uuid.Nil {
		return ListResult{}, pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return ListResult{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	notifications, next, err := s.repo.ListByShop(ctx, ListQuery{
		ShopID:     params.ShopID,
		UnreadOnly: params.UnreadOnly,
		Limit:      params.Limit,
		Cursor:     cursor,
	})
	if err != nil {
		return ListResult{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}

	result := ListResult{Notifications: notifications}
	if next != nil {
		result.NextCursor = pagination.EncodeCursor(*next)
	}
	return result, nil
}

func (s *service) MarkRead(ctx context.Context, id, shopID uuid.UUID) error {
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}
	if shopID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing")
	}
	affected, err := s.repo.MarkRead(ctx, id, shopID, time.Now().UTC())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found or already read")
	}
	return nil
}
