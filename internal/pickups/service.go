package pickups

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/scrapline/scrapline-backend/internal/matching"
	"github.com/scrapline/scrapline-backend/internal/notify"
	"github.com/scrapline/scrapline-backend/pkg/config"
	"github.com/scrapline/scrapline-backend/pkg/db/models"
	"github.com/scrapline/scrapline-backend/pkg/enums"
	pkgerrors "github.com/scrapline/scrapline-backend/pkg/errors"
	"github.com/scrapline/scrapline-backend/pkg/geo"
	"github.com/scrapline/scrapline-backend/pkg/logger"
	"github.com/scrapline/scrapline-backend/pkg/types"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// CreateInput carries a new pickup request.
type CreateInput struct {
	RequesterID uuid.UUID
	Lat         string
	Lng         string
	EstWeightKg decimal.Decimal
	EstPrice    *decimal.Decimal
	MediaRefs   []string
}

// ListAvailableParams filters the vendor feed.
type ListAvailableParams struct {
	ShopID uuid.UUID
	// Origin restricts open requests to RadiusKm around it. In-flight
	// requests already bound to the shop are always included.
	Origin   *geo.Point
	RadiusKm float64
}

// AvailableRequest is one feed entry, annotated with the distance from the
// supplied origin when one was given.
type AvailableRequest struct {
	models.PickupRequest
	DistanceKm *float64
}

// Service drives the single pickup-request state machine.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.PickupRequest, error)
	ListAvailable(ctx context.Context, params ListAvailableParams) ([]AvailableRequest, error)
	ListMine(ctx context.Context, requesterID uuid.UUID) ([]models.PickupRequest, error)
	Accept(ctx context.Context, id, shopID uuid.UUID) (*models.PickupRequest, error)
	StartPickup(ctx context.Context, id, shopID uuid.UUID) (*models.PickupRequest, error)
	Complete(ctx context.Context, id, shopID uuid.UUID) (*models.PickupRequest, error)
	Cancel(ctx context.Context, id, requesterID uuid.UUID) (*models.PickupRequest, error)
}

type service struct {
	repo    Repository
	tx      txRunner
	matcher matching.Engine
	gateway *notify.Gateway
	cfg     config.MatchingConfig
	logg    *logger.Logger
}

// ServiceParams groups dependencies for the pickup service.
type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Matcher matching.Engine
	Gateway *notify.Gateway
	Cfg     config.MatchingConfig
	Logger  *logger.Logger
}

// NewService builds a pickup service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "pickup repository required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if params.Matcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "matching engine required")
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		matcher: params.Matcher,
		gateway: params.Gateway,
		cfg:     params.Cfg,
		logg:    params.Logger,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.PickupRequest, error) {
	if input.RequesterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "requester identity missing")
	}
	origin, ok := geo.ParsePoint(input.Lat, input.Lng)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "valid pickup coordinates required")
	}
	if !input.EstWeightKg.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "estimated weight must be positive")
	}

	radius := s.cfg.CreateRadiusKm
	match, err := s.matcher.NearestShop(ctx, matching.NearestParams{
		Origin:       origin,
		RadiusKm:     radius,
		Roles:        []enums.ShopRole{enums.ShopRoleB2C, enums.ShopRoleCombined},
		ActingUserID: input.RequesterID,
	})
	if err != nil {
		return nil, err
	}

	request := &models.PickupRequest{
		RequesterID: input.RequesterID,
		Status:      enums.PickupStatusCreated,
		Lat:         input.Lat,
		Lng:         input.Lng,
		EstWeightKg: input.EstWeightKg,
		EstPrice:    input.EstPrice,
		MediaRefs:   input.MediaRefs,
	}
	if match != nil {
		shopID := match.Shop
		request.Status = enums.PickupStatusAssigned
		request.ShopID = &shopID
		request.AgentID = &shopID
		summary := fmt.Sprintf("%s (~%.1f km)", match.Name, match.DistanceKm)
		request.VendorSummary = &summary
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		seq, seqErr := repo.NextSequence(ctx, time.Now().UTC().Format("20060102"))
		if seqErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, seqErr, "allocate sequence number")
		}
		request.SequenceNo = fmt.Sprintf("PR-%s-%04d", time.Now().UTC().Format("20060102"), seq)
		if createErr := repo.Create(ctx, request); createErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, createErr, "create pickup request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if match != nil {
		s.gateway.Dispatch(ctx, notify.Message{
			Recipients: []uuid.UUID{match.Shop},
			Type:       enums.NotificationTypePickupAssigned,
			Title:      "New pickup assigned",
			Body:       fmt.Sprintf("Pickup %s assigned to your shop", request.SequenceNo),
			Payload: types.JSONMap{
				"pickup_request_id": request.ID.String(),
				"sequence_no":       request.SequenceNo,
				"distance_km":       match.DistanceKm,
			},
		})
	}
	return request, nil
}

func (s *service) ListAvailable(ctx context.Context, params ListAvailableParams) ([]AvailableRequest, error) {
	if params.ShopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing")
	}
	requests, err := s.repo.ListOpenAndOwn(ctx, params.ShopID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pickup requests")
	}

	radius := params.RadiusKm
	if radius <= 0 {
		radius = s.cfg.QueryRadiusKm
	}

	feed := make([]AvailableRequest, 0, len(requests))
	for _, request := range requests {
		entry := AvailableRequest{PickupRequest: request}
		own := request.ShopID != nil && *request.ShopID == params.ShopID
		if params.Origin != nil {
			point, ok := geo.ParsePoint(request.Lat, request.Lng)
			if ok {
				distance := geo.Distance(*params.Origin, point)
				entry.DistanceKm = &distance
				if !own && distance > radius {
					continue
				}
			} else if !own {
				// Open requests without usable coordinates cannot be
				// radius-filtered; skip them from a located feed.
				continue
			}
		}
		feed = append(feed, entry)
	}
	return feed, nil
}

func (s *service) ListMine(ctx context.Context, requesterID uuid.UUID) ([]models.PickupRequest, error) {
	if requesterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "requester identity missing")
	}
	requests, err := s.repo.ListByRequester(ctx, requesterID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pickup requests")
	}
	return requests, nil
}

func (s *service) Accept(ctx context.Context, id, shopID uuid.UUID) (*models.PickupRequest, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup request id required")
	}
	if shopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing")
	}

	request, err := s.findRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var affected int64
	switch {
	case request.Status == enums.PickupStatusCreated && request.ShopID == nil:
		affected, err = s.repo.ClaimUnassigned(ctx, id, shopID, now)
	case request.Status == enums.PickupStatusAssigned:
		if request.ShopID == nil || *request.ShopID != shopID {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "pickup request already assigned to another vendor")
		}
		affected, err = s.repo.ConfirmAssigned(ctx, id, shopID, now)
	default:
		return nil, s.classifyAcceptConflict(request, shopID)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept pickup request")
	}
	if affected == 0 {
		// Lost the race; re-read to report what actually happened.
		current, findErr := s.findRequest(ctx, id)
		if findErr != nil {
			return nil, findErr
		}
		return nil, s.classifyAcceptConflict(current, shopID)
	}
	return s.findRequest(ctx, id)
}

func (s *service) classifyAcceptConflict(request *models.PickupRequest, shopID uuid.UUID) error {
	if request.ShopID != nil && *request.ShopID != shopID {
		return pkgerrors.New(pkgerrors.CodeConflict, "pickup request already assigned to another vendor")
	}
	return pkgerrors.New(pkgerrors.CodeStateConflict, "pickup request already in progress")
}

func (s *service) StartPickup(ctx context.Context, id, shopID uuid.UUID) (*models.PickupRequest, error) {
	return s.vendorTransition(ctx, id, shopID, s.repo.MarkPickupStarted, "start pickup")
}

func (s *service) Complete(ctx context.Context, id, shopID uuid.UUID) (*models.PickupRequest, error) {
	return s.vendorTransition(ctx, id, shopID, s.repo.MarkCompleted, "complete pickup")
}

func (s *service) vendorTransition(
	ctx context.Context,
	id, shopID uuid.UUID,
	apply func(ctx context.Context, id, shopID uuid.UUID, at time.Time) (int64, error),
	action string,
) (*models.PickupRequest, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup request id required")
	}
	if shopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing")
	}

	affected, err := apply(ctx, id, shopID, time.Now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
	}
	if affected == 0 {
		request, findErr := s.findRequest(ctx, id)
		if findErr != nil {
			return nil, findErr
		}
		if request.ShopID == nil || *request.ShopID != shopID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller is not the vendor of record")
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot %s from status %s", action, request.Status))
	}
	return s.findRequest(ctx, id)
}

func (s *service) Cancel(ctx context.Context, id, requesterID uuid.UUID) (*models.PickupRequest, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup request id required")
	}
	if requesterID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "requester identity missing")
	}

	affected, err := s.repo.MarkCancelled(ctx, id, requesterID, time.Now().UTC())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel pickup request")
	}
	if affected == 0 {
		request, findErr := s.findRequest(ctx, id)
		if findErr != nil {
			return nil, findErr
		}
		if request.RequesterID != requesterID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller is not the requester")
		}
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("cannot cancel from status %s", request.Status))
	}

	request, err := s.findRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.ShopID != nil {
		s.gateway.Dispatch(ctx, notify.Message{
			Recipients: []uuid.UUID{*request.ShopID},
			Type:       enums.NotificationTypePickupUpdate,
			Title:      "Pickup cancelled",
			Body:       fmt.Sprintf("Pickup %s was cancelled by the requester", request.SequenceNo),
			Payload: types.JSONMap{
				"pickup_request_id": request.ID.String(),
				"sequence_no":       request.SequenceNo,
			},
		})
	}
	return request, nil
}

func (s *service) findRequest(ctx context.Context, id uuid.UUID) (*models.PickupRequest, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pickup request id required")
	}
	request, err := s.repo.Find(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pickup request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pickup request")
	}
	return request, nil
}
