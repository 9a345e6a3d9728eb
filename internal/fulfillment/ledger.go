package fulfillment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/scrapline/scrapline-backend/internal/notify"
	"github.com/scrapline/scrapline-backend/pkg/db/models"
	"github.com/scrapline/scrapline-backend/pkg/enums"
	pkgerrors "github.com/scrapline/scrapline-backend/pkg/errors"
	"github.com/scrapline/scrapline-backend/pkg/types"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Commit records a vendor's partial commitment. Re-commits by the same shop
// replace the existing ledger entry. The whole read-modify-write runs under
// a row lock on the bulk request, so concurrent commits serialize and the
// ledger sum can never exceed the requested quantity.
func (s *service) Commit(ctx context.Context, input CommitInput) (*LedgerView, error) {
	if input.BulkRequestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bulk request id required")
	}
	if input.ShopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing")
	}
	if input.QuantityKg != nil && !input.QuantityKg.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "commitment quantity must be positive")
	}

	var view *LedgerView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request, findErr := s.lockBulkRequest(ctx, repo, input.BulkRequestID)
		if findErr != nil {
			return findErr
		}
		if request.Status != enums.BulkStatusActive {
			if request.Status == enums.BulkStatusFulfilled {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "bulk request already fulfilled")
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("bulk request no longer accepts commitments (status %s)", request.Status))
		}

		commitments, listErr := repo.ListCommitments(ctx, request.ID)
		if listErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, listErr, "list commitments")
		}

		var existing *models.VendorCommitment
		othersTotal := decimal.Zero
		for i := range commitments {
			if commitments[i].ShopID == input.ShopID {
				existing = &commitments[i]
				continue
			}
			othersTotal = othersTotal.Add(commitments[i].QuantityKg)
		}

		remaining := request.RequestedKg.Sub(othersTotal)
		if !remaining.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "no remaining capacity").
				WithDetails(map[string]string{"remaining_kg": "0"})
		}

		quantity := remaining
		if input.QuantityKg != nil {
			quantity = *input.QuantityKg
		}
		if quantity.GreaterThan(remaining) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "commitment exceeds remaining capacity").
				WithDetails(map[string]string{"remaining_kg": remaining.String()})
		}

		now := time.Now().UTC()
		if existing != nil {
			existing.QuantityKg = quantity
			existing.BidPrice = input.BidPrice
			existing.UpdatedAt = now
			if saveErr := repo.SaveCommitment(ctx, existing); saveErr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, saveErr, "update commitment")
			}
		} else {
			entry := &models.VendorCommitment{
				BulkRequestID: request.ID,
				ShopID:        input.ShopID,
				OwnerID:       input.OwnerID,
				QuantityKg:    quantity,
				BidPrice:      input.BidPrice,
				Status:        enums.CommitmentStatusParticipated,
			}
			if saveErr := repo.SaveCommitment(ctx, entry); saveErr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, saveErr, "create commitment")
			}
		}

		total := othersTotal.Add(quantity)
		if total.Equal(request.RequestedKg) {
			request.Status = enums.BulkStatusFulfilled
			request.UpdatedAt = now
			if saveErr := repo.SaveBulkRequest(ctx, request); saveErr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, saveErr, "save bulk request")
			}
			if restatusErr := repo.RestatusCommitments(ctx, request.ID,
				[]enums.CommitmentStatus{enums.CommitmentStatusParticipated},
				enums.CommitmentStatusFulfilled, now); restatusErr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, restatusErr, "promote commitments")
			}
		}

		final, reloadErr := repo.ListCommitments(ctx, request.ID)
		if reloadErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, reloadErr, "reload commitments")
		}
		view = buildLedgerView(*request, final)
		return nil
	})
	s.stats.ObserveLedgerOp("commit", err)
	if err != nil {
		return nil, err
	}

	if view.Request.Status == enums.BulkStatusFulfilled {
		s.gateway.Dispatch(ctx, notify.Message{
			Recipients: []uuid.UUID{view.Request.BuyerID},
			Type:       enums.NotificationTypeBulkUpdate,
			Title:      "Bulk request fulfilled",
			Body:       "All requested quantity has been committed",
			Payload: types.JSONMap{
				"bulk_request_id": view.Request.ID.String(),
			},
		})
	}
	return view, nil
}

// Reject records that a shop declined the opportunity. Safe to repeat.
func (s *service) Reject(ctx context.Context, id, shopID uuid.UUID) error {
	if shopID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "shop context missing")
	}
	if _, err := s.findBulkRequest(ctx, id); err != nil {
		return err
	}
	err := s.repo.CreateRejection(ctx, &models.BulkRejection{
		BulkRequestID: id,
		ShopID:        shopID,
	})
	s.stats.ObserveLedgerOp("reject", err)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record rejection")
	}
	return nil
}

// RemoveVendor drops a committed vendor from the ledger on the buyer's
// request. When the remaining sum falls below the requested quantity, the
// request and its surviving entries regress to the accepting state and any
// order generated for the removed vendor is cancelled.
func (s *service) RemoveVendor(ctx context.Context, input RemoveVendorInput) (*LedgerView, error) {
	if input.BulkRequestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bulk request id required")
	}
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	if input.ShopID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor shop id required")
	}

	var view *LedgerView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		request, findErr := s.lockBulkRequest(ctx, repo, input.BulkRequestID)
		if findErr != nil {
			return findErr
		}
		if request.BuyerID != input.BuyerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "caller is not the owning buyer")
		}
		if request.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("bulk request is %s", request.Status))
		}

		commitment, commitErr := repo.FindCommitment(ctx, request.ID, input.ShopID)
		if commitErr != nil {
			if errors.Is(commitErr, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "vendor has no commitment on this request")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, commitErr, "load commitment")
		}

		now := time.Now().UTC()
		if deleteErr := repo.DeleteCommitment(ctx, commitment.ID); deleteErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, deleteErr, "remove commitment")
		}
		reason := input.Reason
		if rejErr := repo.CreateRejection(ctx, &models.BulkRejection{
			BulkRequestID: request.ID,
			ShopID:        input.ShopID,
			Reason:        &reason,
		}); rejErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, rejErr, "record removal")
		}

		remaining, listErr := repo.ListCommitments(ctx, request.ID)
		if listErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, listErr, "list commitments")
		}
		total := sumCommitted(remaining)

		if total.LessThan(request.RequestedKg) &&
			(request.Status == enums.BulkStatusFulfilled || request.Status == enums.BulkStatusPickupStarted) {
			request.Status = enums.BulkStatusActive
			request.UpdatedAt = now
			if saveErr := repo.SaveBulkRequest(ctx, request); saveErr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, saveErr, "save bulk request")
			}
			if restatusErr := repo.RestatusCommitments(ctx, request.ID,
				[]enums.CommitmentStatus{enums.CommitmentStatusFulfilled, enums.CommitmentStatusPickupStarted},
				enums.CommitmentStatusParticipated, now); restatusErr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, restatusErr, "regress commitments")
			}
		}

		if _, cancelErr := s.orders.WithTx(tx).CancelForCommitment(ctx, commitment.ID,
			fmt.Sprintf("vendor removed by buyer: %s", input.Reason), now); cancelErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, cancelErr, "cancel vendor order")
		}

		final, reloadErr := repo.ListCommitments(ctx, request.ID)
		if reloadErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, reloadErr, "reload commitments")
		}
		view = buildLedgerView(*request, final)
		return nil
	})
	s.stats.ObserveLedgerOp("remove_vendor", err)
	if err != nil {
		return nil, err
	}

	s.gateway.Dispatch(ctx, notify.Message{
		Recipients: []uuid.UUID{input.ShopID},
		Type:       enums.NotificationTypeBulkUpdate,
		Title:      "Removed from bulk request",
		Body:       fmt.Sprintf("The buyer removed your commitment: %s", input.Reason),
		Payload: types.JSONMap{
			"bulk_request_id": input.BulkRequestID.String(),
			"reason":          input.Reason,
		},
	})
	return view, nil
}

// StartPickup generates one purchase order per ledger entry, with line items
// scaled to each vendor's committed share, and moves the request to
// PickupStarted. Buyer-only; requires the request to be fulfilled.
func (s *service) StartPickup(ctx context.Context, id, buyerID uuid.UUID) ([]models.PurchaseOrder, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "bulk request id required")
	}
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}

	var generated []models.PurchaseOrder
	var recipients []uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		orderRepo := s.orders.WithTx(tx)

		request, findErr := s.lockBulkRequest(ctx, repo, id)
		if findErr != nil {
			return findErr
		}
		if request.BuyerID != buyerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "caller is not the owning buyer")
		}
		if request.Status != enums.BulkStatusFulfilled {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("pickup requires a fulfilled request (status %s)", request.Status))
		}

		commitments, listErr := repo.ListCommitments(ctx, request.ID)
		if listErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, listErr, "list commitments")
		}
		if len(commitments) == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "no vendor has committed")
		}

		now := time.Now().UTC()
		generated = make([]models.PurchaseOrder, 0, len(commitments))
		recipients = make([]uuid.UUID, 0, len(commitments))
		for _, commitment := range commitments {
			order := models.PurchaseOrder{
				BulkRequestID: request.ID,
				CommitmentID:  commitment.ID,
				BuyerID:       request.BuyerID,
				ShopID:        commitment.ShopID,
				Status:        enums.OrderStatusCreated,
				QuantityKg:    commitment.QuantityKg,
				LineItems:     scaleLineItems(request, commitment),
			}
			if createErr := orderRepo.Create(ctx, &order); createErr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, createErr, "create order")
			}
			if stampErr := repo.StampCommitmentOrder(ctx, commitment.ID, order.ID,
				enums.CommitmentStatusPickupStarted, now); stampErr != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, stampErr, "stamp commitment")
			}
			generated = append(generated, order)
			recipients = append(recipients, commitment.ShopID)
		}

		request.Status = enums.BulkStatusPickupStarted
		request.UpdatedAt = now
		if saveErr := repo.SaveBulkRequest(ctx, request); saveErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, saveErr, "save bulk request")
		}
		return nil
	})
	s.stats.ObserveLedgerOp("start_pickup", err)
	if err != nil {
		return nil, err
	}

	messages := make([]notify.Message, 0, len(generated))
	for i, order := range generated {
		messages = append(messages, notify.Message{
			Recipients: []uuid.UUID{recipients[i]},
			Type:       enums.NotificationTypeOrderGenerated,
			Title:      "Purchase order generated",
			Body:       fmt.Sprintf("Order for %s kg is ready for pickup", order.QuantityKg.String()),
			Payload: types.JSONMap{
				"bulk_request_id": order.BulkRequestID.String(),
				"order_id":        order.ID.String(),
				"quantity_kg":     order.QuantityKg.String(),
			},
		})
	}
	s.gateway.Dispatch(ctx, messages...)
	return generated, nil
}

// scaleLineItems maps the bulk breakdown onto one vendor's share:
// item quantity x committed / requested per subcategory. Price resolution:
// vendor bid, then bulk preferred price, then subcategory price.
func scaleLineItems(request *models.BulkRequest, commitment models.VendorCommitment) types.LineItems {
	items := make(types.LineItems, 0, len(request.Breakdown))
	for _, subcategory := range request.Breakdown {
		quantity := subcategory.Quantity.
			Mul(commitment.QuantityKg).
			Div(request.RequestedKg)

		price := commitment.BidPrice
		if price == nil {
			price = request.PreferredPrice
		}
		if price == nil {
			price = subcategory.Price
		}

		items = append(items, types.LineItem{
			Name:     subcategory.Name,
			Quantity: quantity,
			Price:    price,
		})
	}
	return items
}
