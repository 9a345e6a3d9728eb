package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/scrapline/scrapline-backend/internal/drafts"
	"github.com/scrapline/scrapline-backend/internal/matching"
	"github.com/scrapline/scrapline-backend/internal/notify"
	"github.com/scrapline/scrapline-backend/internal/orders"
	"github.com/scrapline/scrapline-backend/pkg/db/models"
	"github.com/scrapline/scrapline-backend/pkg/enums"
	pkgerrors "github.com/scrapline/scrapline-backend/pkg/errors"
	"github.com/scrapline/scrapline-backend/pkg/geo"
	"github.com/scrapline/scrapline-backend/pkg/logger"
	"github.com/scrapline/scrapline-backend/pkg/metrics"
	"github.com/scrapline/scrapline-backend/pkg/types"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service drives the bulk-request state machine and its commitment ledger.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.BulkRequest, error)
	Get(ctx context.Context, id uuid.UUID) (*LedgerView, error)
	ListForVendor(ctx context.Context, params VendorFeedParams) ([]VendorFeedEntry, error)
	ListForBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.BulkRequest, error)
	Commit(ctx context.Context, input CommitInput) (*LedgerView, error)
	Reject(ctx context.Context, id, shopID uuid.UUID) error
	RemoveVendor(ctx context.Context, input RemoveVendorInput) (*LedgerView, error)
	StartPickup(ctx context.Context, id, buyerID uuid.UUID) ([]models.PurchaseOrder, error)
	UpdateBuyerStatus(ctx context.Context, input BuyerStatusInput) (*models.BulkRequest, error)
	ListOrders(ctx context.Context, id, buyerID uuid.UUID) ([]models.PurchaseOrder, error)
}

type service struct {
	repo    Repository
	orders  orders.Repository
	guard   drafts.Guard
	tx      txRunner
	matcher matching.Engine
	gateway *notify.Gateway
	logg    *logger.Logger
	stats   *metrics.CoreMetrics
}

// ServiceParams groups dependencies for the fulfillment service.
type ServiceParams struct {
	Repo    Repository
	Orders  orders.Repository
	Guard   drafts.Guard
	Tx      txRunner
	Matcher matching.Engine
	Gateway *notify.Gateway
	Logger  *logger.Logger
	Metrics *metrics.CoreMetrics
}

// NewService builds a fulfillment service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "fulfillment repository required")
	}
	if params.Orders == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order repository required")
	}
	if params.Guard == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "draft guard required")
	}
	if params.Tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if params.Matcher == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "matching engine required")
	}
	return &service{
		repo:    params.Repo,
		orders:  params.Orders,
		guard:   params.Guard,
		tx:      params.Tx,
		matcher: params.Matcher,
		gateway: params.Gateway,
		logg:    params.Logger,
		stats:   params.Metrics,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.BulkRequest, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	origin, ok := geo.ParsePoint(input.Lat, input.Lng)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "valid request coordinates required")
	}
	if !input.RequestedKg.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requested quantity must be positive")
	}
	if input.RadiusKm <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "radius must be positive")
	}
	if err := validateBreakdown(input.Breakdown, input.RequestedKg); err != nil {
		return nil, err
	}

	request := &models.BulkRequest{
		BuyerID:        input.BuyerID,
		DraftID:        input.DraftID,
		Lat:            input.Lat,
		Lng:            input.Lng,
		RequestedKg:    input.RequestedKg,
		PreferredPrice: input.PreferredPrice,
		RadiusKm:       input.RadiusKm,
		Breakdown:      input.Breakdown,
		Status:         enums.BulkStatusActive,
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if input.DraftID != nil {
			// The draft flips to submitted strictly before the request
			// exists; a lost race aborts the whole creation.
			if guardErr := s.guard.WithTx(tx).MarkSubmitted(ctx, *input.DraftID); guardErr != nil {
				return guardErr
			}
		}
		if createErr := repo.CreateBulkRequest(ctx, request); createErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, createErr, "create bulk request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyOpportunity(ctx, request, origin, input)
	return request, nil
}

// notifyOpportunity fans the new request out to the vendor pools. Each
// owning identity gets one notification, addressed to its nearest shop in
// the pool.
func (s *service) notifyOpportunity(ctx context.Context, request *models.BulkRequest, origin geo.Point, input CreateInput) {
	pools, err := s.matcher.BulkPools(ctx, matching.PoolParams{
		Origin:           origin,
		RadiusKm:         request.RadiusKm,
		BuyerID:          request.BuyerID,
		BuyerShopRole:    input.BuyerShopRole,
		BuyerAccountRole: input.BuyerAccountRole,
	})
	if err != nil {
		// Vendor discovery is best-effort after the request is committed.
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "bulk opportunity matching failed")
		}
		return
	}

	messages := make([]notify.Message, 0, len(pools.Recipients))
	for _, group := range pools.Recipients {
		if len(group.Shops) == 0 {
			continue
		}
		messages = append(messages, notify.Message{
			Recipients: []uuid.UUID{group.Shops[0].Shop},
			Type:       enums.NotificationTypeBulkOpportunity,
			Title:      "New bulk purchase opportunity",
			Body:       fmt.Sprintf("%s kg requested within %.0f km", request.RequestedKg.String(), request.RadiusKm),
			Payload: types.JSONMap{
				"bulk_request_id": request.ID.String(),
				"requested_kg":    request.RequestedKg.String(),
			},
		})
	}
	s.gateway.Dispatch(ctx, messages...)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*LedgerView, error) {
	request, err := s.findBulkRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	commitments, err := s.repo.ListCommitments(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list commitments")
	}
	return buildLedgerView(*request, commitments), nil
}

func (s *service) ListForVendor(ctx context.Context, params VendorFeedParams) ([]VendorFeedEntry, error) {
	if params.ShopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing")
	}

	requests, err := s.repo.ListBulkRequestsByStatus(ctx, []enums.BulkStatus{enums.BulkStatusActive, enums.BulkStatusFulfilled})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bulk requests")
	}
	rejectedIDs, err := s.repo.ListRejectedBulkIDs(ctx, params.ShopID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list rejections")
	}
	rejected := make(map[uuid.UUID]bool, len(rejectedIDs))
	for _, id := range rejectedIDs {
		rejected[id] = true
	}

	feed := make([]VendorFeedEntry, 0, len(requests))
	for _, request := range requests {
		if rejected[request.ID] {
			continue
		}
		if params.OwnerID != uuid.Nil && request.BuyerID == params.OwnerID {
			continue
		}
		point, ok := geo.ParsePoint(request.Lat, request.Lng)
		if !ok {
			continue
		}
		distance := geo.Distance(params.Origin, point)
		if distance > request.RadiusKm {
			continue
		}
		if params.RadiusKm > 0 && distance > params.RadiusKm {
			continue
		}

		commitments, listErr := s.repo.ListCommitments(ctx, request.ID)
		if listErr != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, listErr, "list commitments")
		}
		entry := VendorFeedEntry{
			BulkRequest: request,
			DistanceKm:  distance,
			RemainingKg: request.RequestedKg.Sub(sumCommitted(commitments)),
		}
		for _, commitment := range commitments {
			if commitment.ShopID == params.ShopID {
				entry.OwnCommitmentKg = commitment.QuantityKg
			}
		}
		feed = append(feed, entry)
	}
	return feed, nil
}

func (s *service) ListForBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.BulkRequest, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	requests, err := s.repo.ListBulkRequestsByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list bulk requests")
	}
	return requests, nil
}

func (s *service) UpdateBuyerStatus(ctx context.Context, input BuyerStatusInput) (*models.BulkRequest, error) {
	if input.BulkRequestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bulk request id required")
	}
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	if input.Status != BuyerStatusArrived && input.Status != BuyerStatusCompleted {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown buyer status %q", input.Status))
	}

	var updated *models.BulkRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request, findErr := s.lockBulkRequest(ctx, repo, input.BulkRequestID)
		if findErr != nil {
			return findErr
		}
		if request.BuyerID != input.BuyerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "caller is not the owning buyer")
		}

		now := time.Now().UTC()
		switch input.Status {
		case BuyerStatusArrived:
			if request.Status != enums.BulkStatusPickupStarted {
				return pkgerrors.New(pkgerrors.CodeStateConflict,
					fmt.Sprintf("cannot mark arrived from status %s", request.Status))
			}
			request.Status = enums.BulkStatusBuyerArrived
			request.BuyerArrived = true
		case BuyerStatusCompleted:
			if request.Status != enums.BulkStatusBuyerArrived {
				return pkgerrors.New(pkgerrors.CodeStateConflict,
					fmt.Sprintf("cannot mark completed from status %s", request.Status))
			}
			request.Status = enums.BulkStatusCompleted
			request.BuyerCompleted = true
			if _, orderErr := s.orders.WithTx(tx).MarkCompletedByBulkRequest(ctx, request.ID, now); orderErr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, orderErr, "complete orders")
			}
			if request.DraftID != nil {
				if guardErr := s.guard.WithTx(tx).MarkCompleted(ctx, *request.DraftID); guardErr != nil {
					return guardErr
				}
			}
		}
		request.UpdatedAt = now
		if saveErr := repo.SaveBulkRequest(ctx, request); saveErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, saveErr, "save bulk request")
		}
		updated = request
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifyCommittedVendors(ctx, updated, fmt.Sprintf("Buyer %s", input.Status))
	return updated, nil
}

func (s *service) ListOrders(ctx context.Context, id, buyerID uuid.UUID) ([]models.PurchaseOrder, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	request, err := s.findBulkRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller is not the owning buyer")
	}
	list, err := s.orders.ListByBulkRequest(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return list, nil
}

func (s *service) notifyCommittedVendors(ctx context.Context, request *models.BulkRequest, event string) {
	if request == nil {
		return
	}
	commitments, err := s.repo.ListCommitments(ctx, request.ID)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "listing vendors for notification failed")
		}
		return
	}
	recipients := make([]uuid.UUID, 0, len(commitments))
	for _, commitment := range commitments {
		recipients = append(recipients, commitment.ShopID)
	}
	s.gateway.Dispatch(ctx, notify.Message{
		Recipients: recipients,
		Type:       enums.NotificationTypeBulkUpdate,
		Title:      event,
		Body:       fmt.Sprintf("Bulk request is now %s", request.Status),
		Payload: types.JSONMap{
			"bulk_request_id": request.ID.String(),
			"status":          request.Status.String(),
		},
	})
}

func (s *service) findBulkRequest(ctx context.Context, id uuid.UUID) (*models.BulkRequest, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bulk request id required")
	}
	request, err := s.repo.FindBulkRequest(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bulk request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load bulk request")
	}
	return request, nil
}

func (s *service) lockBulkRequest(ctx context.Context, repo Repository, id uuid.UUID) (*models.BulkRequest, error) {
	request, err := repo.FindBulkRequestForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "bulk request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock bulk request")
	}
	return request, nil
}

func validateBreakdown(breakdown types.Breakdown, requested decimal.Decimal) error {
	if len(breakdown) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "subcategory breakdown required")
	}
	total := decimal.Zero
	for _, item := range breakdown {
		if item.Name == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "subcategory name required")
		}
		if !item.Quantity.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeValidation, "subcategory quantity must be positive")
		}
		total = total.Add(item.Quantity)
	}
	if !total.Equal(requested) {
		return pkgerrors.New(pkgerrors.CodeValidation, "breakdown quantities must sum to the requested quantity").
			WithDetails(map[string]string{
				"requested_kg": requested.String(),
				"breakdown_kg": total.String(),
			})
	}
	return nil
}

func sumCommitted(commitments []models.VendorCommitment) decimal.Decimal {
	total := decimal.Zero
	for _, commitment := range commitments {
		total = total.Add(commitment.QuantityKg)
	}
	return total
}

func buildLedgerView(request models.BulkRequest, commitments []models.VendorCommitment) *LedgerView {
	committed := sumCommitted(commitments)
	return &LedgerView{
		Request:     request,
		Commitments: commitments,
		CommittedKg: committed,
		RemainingKg: request.RequestedKg.Sub(committed),
	}
}
