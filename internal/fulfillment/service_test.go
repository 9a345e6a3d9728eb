package fulfillment

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/scrapline/scrapline-backend/internal/directory"
	"github.com/scrapline/scrapline-backend/internal/drafts"
	"github.com/scrapline/scrapline-backend/internal/matching"
	"github.com/scrapline/scrapline-backend/internal/notify"
	"github.com/scrapline/scrapline-backend/internal/orders"
	"github.com/scrapline/scrapline-backend/pkg/db/models"
	"github.com/scrapline/scrapline-backend/pkg/enums"
	pkgerrors "github.com/scrapline/scrapline-backend/pkg/errors"
	"github.com/scrapline/scrapline-backend/pkg/geo"
	"github.com/scrapline/scrapline-backend/pkg/types"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type stubTx struct{}

func (stubTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

// memRepo is an in-memory fulfillment repository. Tests run through the
// service against it to exercise full ledger flows without a database.
type memRepo struct {
	bulks       map[uuid.UUID]*models.BulkRequest
	commitments map[uuid.UUID]*models.VendorCommitment
	rejections  []models.BulkRejection
}

func newMemRepo() *memRepo {
	return &memRepo{
		bulks:       map[uuid.UUID]*models.BulkRequest{},
		commitments: map[uuid.UUID]*models.VendorCommitment{},
	}
}

func (m *memRepo) WithTx(tx *gorm.DB) Repository { return m }

func (m *memRepo) CreateBulkRequest(ctx context.Context, request *models.BulkRequest) error {
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	clone := *request
	m.bulks[request.ID] = &clone
	return nil
}

func (m *memRepo) FindBulkRequest(ctx context.Context, id uuid.UUID) (*models.BulkRequest, error) {
	request, ok := m.bulks[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *request
	return &clone, nil
}

func (m *memRepo) FindBulkRequestForUpdate(ctx context.Context, id uuid.UUID) (*models.BulkRequest, error) {
	return m.FindBulkRequest(ctx, id)
}

func (m *memRepo) SaveBulkRequest(ctx context.Context, request *models.BulkRequest) error {
	clone := *request
	m.bulks[request.ID] = &clone
	return nil
}

func (m *memRepo) ListBulkRequestsByStatus(ctx context.Context, statuses []enums.BulkStatus) ([]models.BulkRequest, error) {
	var out []models.BulkRequest
	for _, request := range m.bulks {
		for _, status := range statuses {
			if request.Status == status {
				out = append(out, *request)
			}
		}
	}
	return out, nil
}

func (m *memRepo) ListBulkRequestsByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.BulkRequest, error) {
	var out []models.BulkRequest
	for _, request := range m.bulks {
		if request.BuyerID == buyerID {
			out = append(out, *request)
		}
	}
	return out, nil
}

func (m *memRepo) ListCommitments(ctx context.Context, bulkRequestID uuid.UUID) ([]models.VendorCommitment, error) {
	var out []models.VendorCommitment
	for _, commitment := range m.commitments {
		if commitment.BulkRequestID == bulkRequestID {
			out = append(out, *commitment)
		}
	}
	return out, nil
}

func (m *memRepo) FindCommitment(ctx context.Context, bulkRequestID, shopID uuid.UUID) (*models.VendorCommitment, error) {
	for _, commitment := range m.commitments {
		if commitment.BulkRequestID == bulkRequestID && commitment.ShopID == shopID {
			clone := *commitment
			return &clone, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memRepo) SaveCommitment(ctx context.Context, commitment *models.VendorCommitment) error {
	if commitment.ID == uuid.Nil {
		commitment.ID = uuid.New()
	}
	clone := *commitment
	m.commitments[commitment.ID] = &clone
	return nil
}

func (m *memRepo) DeleteCommitment(ctx context.Context, id uuid.UUID) error {
	delete(m.commitments, id)
	return nil
}

func (m *memRepo) RestatusCommitments(ctx context.Context, bulkRequestID uuid.UUID, from []enums.CommitmentStatus, to enums.CommitmentStatus, at time.Time) error {
	for _, commitment := range m.commitments {
		if commitment.BulkRequestID != bulkRequestID {
			continue
		}
		for _, status := range from {
			if commitment.Status == status {
				commitment.Status = to
			}
		}
	}
	return nil
}

func (m *memRepo) StampCommitmentOrder(ctx context.Context, commitmentID, orderID uuid.UUID, status enums.CommitmentStatus, at time.Time) error {
	commitment, ok := m.commitments[commitmentID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	id := orderID
	commitment.OrderID = &id
	commitment.Status = status
	return nil
}

func (m *memRepo) ListCommitmentsByShop(ctx context.Context, shopID uuid.UUID) ([]models.VendorCommitment, error) {
	var out []models.VendorCommitment
	for _, commitment := range m.commitments {
		if commitment.ShopID == shopID {
			out = append(out, *commitment)
		}
	}
	return out, nil
}

func (m *memRepo) CreateRejection(ctx context.Context, rejection *models.BulkRejection) error {
	for i, existing := range m.rejections {
		if existing.BulkRequestID == rejection.BulkRequestID && existing.ShopID == rejection.ShopID {
			if rejection.Reason != nil {
				m.rejections[i].Reason = rejection.Reason
			}
			return nil
		}
	}
	if rejection.ID == uuid.Nil {
		rejection.ID = uuid.New()
	}
	m.rejections = append(m.rejections, *rejection)
	return nil
}

func (m *memRepo) ListRejections(ctx context.Context, bulkRequestID uuid.UUID) ([]models.BulkRejection, error) {
	var out []models.BulkRejection
	for _, rejection := range m.rejections {
		if rejection.BulkRequestID == bulkRequestID {
			out = append(out, rejection)
		}
	}
	return out, nil
}

func (m *memRepo) ListRejectedBulkIDs(ctx context.Context, shopID uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for _, rejection := range m.rejections {
		if rejection.ShopID == shopID {
			out = append(out, rejection.BulkRequestID)
		}
	}
	return out, nil
}

type memOrders struct {
	orders map[uuid.UUID]*models.PurchaseOrder
}

func newMemOrders() *memOrders {
	return &memOrders{orders: map[uuid.UUID]*models.PurchaseOrder{}}
}

func (m *memOrders) WithTx(tx *gorm.DB) orders.Repository { return m }

func (m *memOrders) Create(ctx context.Context, order *models.PurchaseOrder) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	clone := *order
	m.orders[order.ID] = &clone
	return nil
}

func (m *memOrders) Find(ctx context.Context, id uuid.UUID) (*models.PurchaseOrder, error) {
	order, ok := m.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	clone := *order
	return &clone, nil
}

func (m *memOrders) ListByBulkRequest(ctx context.Context, bulkRequestID uuid.UUID) ([]models.PurchaseOrder, error) {
	var out []models.PurchaseOrder
	for _, order := range m.orders {
		if order.BulkRequestID == bulkRequestID {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (m *memOrders) ListByShop(ctx context.Context, shopID uuid.UUID) ([]models.PurchaseOrder, error) {
	var out []models.PurchaseOrder
	for _, order := range m.orders {
		if order.ShopID == shopID {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (m *memOrders) CancelForCommitment(ctx context.Context, commitmentID uuid.UUID, reason string, at time.Time) (int64, error) {
	var affected int64
	for _, order := range m.orders {
		if order.CommitmentID == commitmentID && !order.Status.IsFinal() {
			order.Status = enums.OrderStatusCancelled
			order.CancelReason = &reason
			affected++
		}
	}
	return affected, nil
}

func (m *memOrders) MarkCompletedByBulkRequest(ctx context.Context, bulkRequestID uuid.UUID, at time.Time) (int64, error) {
	var affected int64
	for _, order := range m.orders {
		if order.BulkRequestID == bulkRequestID && order.Status == enums.OrderStatusCreated {
			order.Status = enums.OrderStatusCompleted
			affected++
		}
	}
	return affected, nil
}

type stubGuard struct {
	submitErr   error
	submitted   []uuid.UUID
	completed   []uuid.UUID
	findResult  *models.BulkDraft
	submitCalls int
}

func (s *stubGuard) WithTx(tx *gorm.DB) drafts.Guard { return s }

func (s *stubGuard) Find(ctx context.Context, id uuid.UUID) (*models.BulkDraft, error) {
	if s.findResult != nil {
		return s.findResult, nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "draft not found")
}

func (s *stubGuard) Create(ctx context.Context, draft *models.BulkDraft) error { return nil }

func (s *stubGuard) MarkSubmitted(ctx context.Context, id uuid.UUID) error {
	s.submitCalls++
	if s.submitErr != nil {
		return s.submitErr
	}
	s.submitted = append(s.submitted, id)
	return nil
}

func (s *stubGuard) MarkCompleted(ctx context.Context, id uuid.UUID) error {
	s.completed = append(s.completed, id)
	return nil
}

type stubMatcher struct {
	pools matching.PoolResult
}

func (s *stubMatcher) NearestShop(ctx context.Context, params matching.NearestParams) (*directory.Candidate, error) {
	return nil, nil
}

func (s *stubMatcher) BulkPools(ctx context.Context, params matching.PoolParams) (matching.PoolResult, error) {
	return s.pools, nil
}

type recordingNotifier struct {
	sent []notify.Message
}

func (r *recordingNotifier) Send(ctx context.Context, message notify.Message) error {
	r.sent = append(r.sent, message)
	return nil
}

type fixture struct {
	svc      Service
	repo     *memRepo
	orders   *memOrders
	guard    *stubGuard
	notifier *recordingNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMemRepo()
	orderRepo := newMemOrders()
	guard := &stubGuard{}
	notifier := &recordingNotifier{}
	svc, err := NewService(ServiceParams{
		Repo:    repo,
		Orders:  orderRepo,
		Guard:   guard,
		Tx:      stubTx{},
		Matcher: &stubMatcher{},
		Gateway: notify.NewGateway(notifier, nil, nil),
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &fixture{svc: svc, repo: repo, orders: orderRepo, guard: guard, notifier: notifier}
}

func mustPoint(lat, lng string) geo.Point {
	point, ok := geo.ParsePoint(lat, lng)
	if !ok {
		panic("bad test coordinates")
	}
	return point
}

func dec(value string) decimal.Decimal {
	d, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(value string) *decimal.Decimal {
	d := dec(value)
	return &d
}

func (f *fixture) seedBulk(t *testing.T, requested string) *models.BulkRequest {
	t.Helper()
	request, err := f.svc.Create(context.Background(), CreateInput{
		BuyerID:       uuid.New(),
		BuyerShopRole: enums.ShopRoleB2B,
		Lat:           "12.90",
		Lng:           "77.60",
		RequestedKg:   dec(requested),
		RadiusKm:      50,
		Breakdown: types.Breakdown{
			{Name: "copper", Quantity: dec(requested).Div(dec("2"))},
			{Name: "aluminium", Quantity: dec(requested).Div(dec("2"))},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return request
}

func TestCommitPartialThenFulfilled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bulk := f.seedBulk(t, "800")

	vendorOne := uuid.New()
	view, err := f.svc.Commit(ctx, CommitInput{
		BulkRequestID: bulk.ID,
		ShopID:        vendorOne,
		OwnerID:       uuid.New(),
		QuantityKg:    decPtr("500"),
	})
	if err != nil {
		t.Fatalf("first commit: %v", err)
	}
	if view.Request.Status != enums.BulkStatusActive {
		t.Fatalf("expected status active after partial commit, got %s", view.Request.Status)
	}
	if !view.RemainingKg.Equal(dec("300")) {
		t.Fatalf("expected 300 remaining, got %s", view.RemainingKg)
	}

	vendorTwo := uuid.New()
	view, err = f.svc.Commit(ctx, CommitInput{
		BulkRequestID: bulk.ID,
		ShopID:        vendorTwo,
		OwnerID:       uuid.New(),
		QuantityKg:    decPtr("300"),
	})
	if err != nil {
		t.Fatalf("second commit: %v", err)
	}
	if view.Request.Status != enums.BulkStatusFulfilled {
		t.Fatalf("expected fulfilled, got %s", view.Request.Status)
	}
	if !view.RemainingKg.IsZero() {
		t.Fatalf("expected zero remaining, got %s", view.RemainingKg)
	}
	for _, commitment := range view.Commitments {
		if commitment.Status != enums.CommitmentStatusFulfilled {
			t.Fatalf("expected all entries promoted, %s is %s", commitment.ShopID, commitment.Status)
		}
	}
}

func TestCommitIsIdempotentPerVendor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bulk := f.seedBulk(t, "800")
	vendor := uuid.New()

	if _, err := f.svc.Commit(ctx, CommitInput{
		BulkRequestID: bulk.ID, ShopID: vendor, OwnerID: uuid.New(), QuantityKg: decPtr("500"),
	}); err != nil {
		t.Fatalf("first commit: %v", err)
	}
	view, err := f.svc.Commit(ctx, CommitInput{
		BulkRequestID: bulk.ID, ShopID: vendor, OwnerID: uuid.New(), QuantityKg: decPtr("200"),
	})
	if err != nil {
		t.Fatalf("recommit: %v", err)
	}
	if len(view.Commitments) != 1 {
		t.Fatalf("expected one ledger entry after recommit, got %d", len(view.Commitments))
	}
	if !view.Commitments[0].QuantityKg.Equal(dec("200")) {
		t.Fatalf("expected quantity replaced with 200, got %s", view.Commitments[0].QuantityKg)
	}
}

func TestCommitOverCapacityReportsRemaining(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bulk := f.seedBulk(t, "800")

	if _, err := f.svc.Commit(ctx, CommitInput{
		BulkRequestID: bulk.ID, ShopID: uuid.New(), OwnerID: uuid.New(), QuantityKg: decPtr("500"),
	}); err != nil {
		t.Fatalf("seed commit: %v", err)
	}

	_, err := f.svc.Commit(ctx, CommitInput{
		BulkRequestID: bulk.ID, ShopID: uuid.New(), OwnerID: uuid.New(), QuantityKg: decPtr("400"),
	})
	if err == nil {
		t.Fatal("expected over-capacity error")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok || details["remaining_kg"] != "300" {
		t.Fatalf("expected exact remaining capacity in details, got %v", typed.Details())
	}

	// The invariant held: nothing above requested was ever persisted.
	view, err := f.svc.Get(ctx, bulk.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if view.CommittedKg.GreaterThan(view.Request.RequestedKg) {
		t.Fatalf("ledger sum %s exceeds requested %s", view.CommittedKg, view.Request.RequestedKg)
	}
}

func TestCommitDefaultsToRemainingCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bulk := f.seedBulk(t, "800")

	if _, err := f.svc.Commit(ctx, CommitInput{
		BulkRequestID: bulk.ID, ShopID: uuid.New(), OwnerID: uuid.New(), QuantityKg: decPtr("500"),
	}); err != nil {
		t.Fatalf("seed commit: %v", err)
	}

	view, err := f.svc.Commit(ctx, CommitInput{
		BulkRequestID: bulk.ID, ShopID: uuid.New(), OwnerID: uuid.New(),
	})
	if err != nil {
		t.Fatalf("default commit: %v", err)
	}
	if view.Request.Status != enums.BulkStatusFulfilled {
		t.Fatalf("expected default quantity to fill the request, got %s", view.Request.Status)
	}
}

func TestCommitAfterFulfilledIsRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bulk := f.seedBulk(t, "800")

	if _, err := f.svc.Commit(ctx, CommitInput{
		BulkRequestID: bulk.ID, ShopID: uuid.New(), OwnerID: uuid.New(),
	}); err != nil {
		t.Fatalf("fill commit: %v", err)
	}

	_, err := f.svc.Commit(ctx, CommitInput{
		BulkRequestID: bulk.ID, ShopID: uuid.New(), OwnerID: uuid.New(), QuantityKg: decPtr("1"),
	})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict after fulfilled, got %v", err)
	}
}

func TestRemoveVendorRegressesRequestAndCancelsOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bulk := f.seedBulk(t, "800")

	vendorOne := uuid.New()
	vendorTwo := uuid.New()
	if _, err := f.svc.Commit(ctx, CommitInput{
		BulkRequestID: bulk.ID, ShopID: vendorOne, OwnerID: uuid.New(), QuantityKg: decPtr("500"),
	}); err != nil {
		t.Fatalf("commit one: %v", err)
	}
	if _, err := f.svc.Commit(ctx, CommitInput{
		BulkRequestID: bulk.ID, ShopID: vendorTwo, OwnerID: uuid.New(), QuantityKg: decPtr("300"),
	}); err != nil {
		t.Fatalf("commit two: %v", err)
	}

	generated, err := f.svc.StartPickup(ctx, bulk.ID, bulk.BuyerID)
	if err != nil {
		t.Fatalf("StartPickup: %v", err)
	}
	if len(generated) != 2 {
		t.Fatalf("expected two orders, got %d", len(generated))
	}

	view, err := f.svc.RemoveVendor(ctx, RemoveVendorInput{
		BulkRequestID: bulk.ID,
		BuyerID:       bulk.BuyerID,
		ShopID:        vendorOne,
		Reason:        "material quality dispute",
	})
	if err != nil {
		t.Fatalf("RemoveVendor: %v", err)
	}
	if view.Request.Status != enums.BulkStatusActive {
		t.Fatalf("expected regression to active, got %s", view.Request.Status)
	}
	if len(view.Commitments) != 1 {
		t.Fatalf("expected one remaining entry, got %d", len(view.Commitments))
	}
	if view.Commitments[0].Status != enums.CommitmentStatusParticipated {
		t.Fatalf("expected surviving entry regressed, got %s", view.Commitments[0].Status)
	}
	if !view.RemainingKg.Equal(dec("500")) {
		t.Fatalf("expected capacity reopened to 500, got %s", view.RemainingKg)
	}

	var cancelled, untouched int
	for _, order := range f.orders.orders {
		switch order.ShopID {
		case vendorOne:
			if order.Status != enums.OrderStatusCancelled {
				t.Fatalf("expected removed vendor's order cancelled, got %s", order.Status)
			}
			cancelled++
		case vendorTwo:
			if order.Status == enums.OrderStatusCancelled {
				t.Fatalf("surviving vendor's order must not be cancelled")
			}
			untouched++
		}
	}
	if cancelled != 1 || untouched != 1 {
		t.Fatalf("unexpected order counts: cancelled=%d untouched=%d", cancelled, untouched)
	}
}

func TestRemoveVendorRecordsReasonOverPriorReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bulk := f.seedBulk(t, "800")

	vendor := uuid.New()
	if err := f.svc.Reject(ctx, bulk.ID, vendor); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := f.svc.Commit(ctx, CommitInput{
		BulkRequestID: bulk.ID, ShopID: vendor, OwnerID: uuid.New(), QuantityKg: decPtr("200"),
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if _, err := f.svc.RemoveVendor(ctx, RemoveVendorInput{
		BulkRequestID: bulk.ID,
		BuyerID:       bulk.BuyerID,
		ShopID:        vendor,
		Reason:        "misgraded load",
	}); err != nil {
		t.Fatalf("RemoveVendor: %v", err)
	}

	rejections, err := f.repo.ListRejections(ctx, bulk.ID)
	if err != nil {
		t.Fatalf("ListRejections: %v", err)
	}
	if len(rejections) != 1 {
		t.Fatalf("expected one rejection row, got %d", len(rejections))
	}
	if rejections[0].Reason == nil || *rejections[0].Reason != "misgraded load" {
		t.Fatalf("expected removal reason retained, got %v", rejections[0].Reason)
	}
}

func TestRemoveVendorByNonBuyerForbidden(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bulk := f.seedBulk(t, "800")
	vendor := uuid.New()
	if _, err := f.svc.Commit(ctx, CommitInput{
		BulkRequestID: bulk.ID, ShopID: vendor, OwnerID: uuid.New(), QuantityKg: decPtr("100"),
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	_, err := f.svc.RemoveVendor(ctx, RemoveVendorInput{
		BulkRequestID: bulk.ID,
		BuyerID:       uuid.New(),
		ShopID:        vendor,
		Reason:        "nope",
	})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden for non-buyer, got %v", err)
	}
}

func TestStartPickupScalesLineItemsAndResolvesPrices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	buyer := uuid.New()
	request, err := f.svc.Create(ctx, CreateInput{
		BuyerID:        buyer,
		BuyerShopRole:  enums.ShopRoleB2B,
		Lat:            "12.90",
		Lng:            "77.60",
		RequestedKg:    dec("800"),
		PreferredPrice: decPtr("30"),
		RadiusKm:       50,
		Breakdown: types.Breakdown{
			{Name: "copper", Quantity: dec("600"), Price: decPtr("45")},
			{Name: "aluminium", Quantity: dec("200")},
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	bidder := uuid.New()
	if _, err := f.svc.Commit(ctx, CommitInput{
		BulkRequestID: request.ID, ShopID: bidder, OwnerID: uuid.New(),
		QuantityKg: decPtr("200"), BidPrice: decPtr("50"),
	}); err != nil {
		t.Fatalf("bid commit: %v", err)
	}
	plain := uuid.New()
	if _, err := f.svc.Commit(ctx, CommitInput{
		BulkRequestID: request.ID, ShopID: plain, OwnerID: uuid.New(), QuantityKg: decPtr("600"),
	}); err != nil {
		t.Fatalf("plain commit: %v", err)
	}

	generated, err := f.svc.StartPickup(ctx, request.ID, buyer)
	if err != nil {
		t.Fatalf("StartPickup: %v", err)
	}
	if len(generated) != 2 {
		t.Fatalf("expected two orders, got %d", len(generated))
	}

	for _, order := range generated {
		share := order.QuantityKg.Div(dec("800"))
		if len(order.LineItems) != 2 {
			t.Fatalf("expected breakdown carried to line items, got %d", len(order.LineItems))
		}
		for _, item := range order.LineItems {
			var requested decimal.Decimal
			switch item.Name {
			case "copper":
				requested = dec("600")
			case "aluminium":
				requested = dec("200")
			default:
				t.Fatalf("unexpected line item %q", item.Name)
			}
			if !item.Quantity.Equal(requested.Mul(share)) {
				t.Fatalf("expected %s scaled to %s, got %s", item.Name, requested.Mul(share), item.Quantity)
			}
		}

		switch order.ShopID {
		case bidder:
			// Vendor bid wins over both preferred prices.
			for _, item := range order.LineItems {
				if item.Price == nil || !item.Price.Equal(dec("50")) {
					t.Fatalf("expected bid price 50, got %v", item.Price)
				}
			}
		case plain:
			// No bid: bulk preferred price wins over the subcategory price.
			for _, item := range order.LineItems {
				if item.Price == nil || !item.Price.Equal(dec("30")) {
					t.Fatalf("expected preferred price 30, got %v", item.Price)
				}
			}
		}
	}

	view, err := f.svc.Get(ctx, request.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if view.Request.Status != enums.BulkStatusPickupStarted {
		t.Fatalf("expected pickup started, got %s", view.Request.Status)
	}
	for _, commitment := range view.Commitments {
		if commitment.Status != enums.CommitmentStatusPickupStarted || commitment.OrderID == nil {
			t.Fatalf("expected every entry stamped and promoted, got %s order=%v", commitment.Status, commitment.OrderID)
		}
	}
}

func TestStartPickupRequiresFulfilled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bulk := f.seedBulk(t, "800")

	_, err := f.svc.StartPickup(ctx, bulk.ID, bulk.BuyerID)
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for unfulfilled request, got %v", err)
	}
}

func TestRejectIsIdempotentAndHidesFromFeed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bulk := f.seedBulk(t, "800")
	shop := uuid.New()

	if err := f.svc.Reject(ctx, bulk.ID, shop); err != nil {
		t.Fatalf("first reject: %v", err)
	}
	if err := f.svc.Reject(ctx, bulk.ID, shop); err != nil {
		t.Fatalf("repeat reject must be a no-op: %v", err)
	}
	if len(f.repo.rejections) != 1 {
		t.Fatalf("expected one rejection row, got %d", len(f.repo.rejections))
	}
}

func TestCreateWithDraftGuardConflictAbortsCreation(t *testing.T) {
	f := newFixture(t)
	f.guard.submitErr = pkgerrors.New(pkgerrors.CodeStateConflict, "draft already submitted")

	draftID := uuid.New()
	_, err := f.svc.Create(context.Background(), CreateInput{
		BuyerID:       uuid.New(),
		BuyerShopRole: enums.ShopRoleB2B,
		DraftID:       &draftID,
		Lat:           "12.90",
		Lng:           "77.60",
		RequestedKg:   dec("100"),
		RadiusKm:      50,
		Breakdown:     types.Breakdown{{Name: "copper", Quantity: dec("100")}},
	})
	if err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected guard conflict surfaced, got %v", err)
	}
	if len(f.repo.bulks) != 0 {
		t.Fatalf("expected no bulk request created after guard failure")
	}
}

func TestUpdateBuyerStatusTransitions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bulk := f.seedBulk(t, "800")

	if _, err := f.svc.Commit(ctx, CommitInput{
		BulkRequestID: bulk.ID, ShopID: uuid.New(), OwnerID: uuid.New(),
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if _, err := f.svc.StartPickup(ctx, bulk.ID, bulk.BuyerID); err != nil {
		t.Fatalf("StartPickup: %v", err)
	}

	// Completed before arrived must fail.
	if _, err := f.svc.UpdateBuyerStatus(ctx, BuyerStatusInput{
		BulkRequestID: bulk.ID, BuyerID: bulk.BuyerID, Status: BuyerStatusCompleted,
	}); err == nil || pkgerrors.As(err).Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}

	updated, err := f.svc.UpdateBuyerStatus(ctx, BuyerStatusInput{
		BulkRequestID: bulk.ID, BuyerID: bulk.BuyerID, Status: BuyerStatusArrived,
	})
	if err != nil {
		t.Fatalf("arrived: %v", err)
	}
	if updated.Status != enums.BulkStatusBuyerArrived || !updated.BuyerArrived {
		t.Fatalf("expected buyer arrived recorded, got %s", updated.Status)
	}

	updated, err = f.svc.UpdateBuyerStatus(ctx, BuyerStatusInput{
		BulkRequestID: bulk.ID, BuyerID: bulk.BuyerID, Status: BuyerStatusCompleted,
	})
	if err != nil {
		t.Fatalf("completed: %v", err)
	}
	if updated.Status != enums.BulkStatusCompleted || !updated.BuyerCompleted {
		t.Fatalf("expected completion recorded, got %s", updated.Status)
	}
	for _, order := range f.orders.orders {
		if order.Status != enums.OrderStatusCompleted {
			t.Fatalf("expected orders completed with the request, got %s", order.Status)
		}
	}
}

func TestListForVendorExcludesRejectedAndAnnotatesRemaining(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	visible := f.seedBulk(t, "800")
	hidden := f.seedBulk(t, "400")

	shop := uuid.New()
	if err := f.svc.Reject(ctx, hidden.ID, shop); err != nil {
		t.Fatalf("reject: %v", err)
	}
	if _, err := f.svc.Commit(ctx, CommitInput{
		BulkRequestID: visible.ID, ShopID: uuid.New(), OwnerID: uuid.New(), QuantityKg: decPtr("300"),
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	feed, err := f.svc.ListForVendor(ctx, VendorFeedParams{
		ShopID:  shop,
		OwnerID: uuid.New(),
		Origin:  mustPoint("12.905", "77.605"),
	})
	if err != nil {
		t.Fatalf("ListForVendor: %v", err)
	}
	if len(feed) != 1 || feed[0].ID != visible.ID {
		t.Fatalf("expected only the non-rejected request, got %d entries", len(feed))
	}
	if !feed[0].RemainingKg.Equal(dec("500")) {
		t.Fatalf("expected remaining 500, got %s", feed[0].RemainingKg)
	}
}

func TestListForVendorKeepsFulfilledRequestVisible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bulk := f.seedBulk(t, "800")

	shop := uuid.New()
	view, err := f.svc.Commit(ctx, CommitInput{
		BulkRequestID: bulk.ID, ShopID: shop, OwnerID: uuid.New(), QuantityKg: decPtr("800"),
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	if view.Request.Status != enums.BulkStatusFulfilled {
		t.Fatalf("expected fulfilled, got %s", view.Request.Status)
	}

	feed, err := f.svc.ListForVendor(ctx, VendorFeedParams{
		ShopID:  shop,
		OwnerID: uuid.New(),
		Origin:  mustPoint("12.905", "77.605"),
	})
	if err != nil {
		t.Fatalf("ListForVendor: %v", err)
	}
	if len(feed) != 1 || feed[0].ID != bulk.ID {
		t.Fatalf("expected the fulfilled request in the committed vendor's feed, got %d entries", len(feed))
	}
	if feed[0].Status != enums.BulkStatusFulfilled {
		t.Fatalf("expected fulfilled status in feed, got %s", feed[0].Status)
	}
	if !feed[0].OwnCommitmentKg.Equal(dec("800")) {
		t.Fatalf("expected own commitment 800, got %s", feed[0].OwnCommitmentKg)
	}
	if !feed[0].RemainingKg.IsZero() {
		t.Fatalf("expected zero remaining, got %s", feed[0].RemainingKg)
	}
}

func TestListForVendorIntersectsSuppliedRadius(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	bulk := f.seedBulk(t, "400")

	// The vendor sits roughly 0.8 km from the request origin.
	params := VendorFeedParams{
		ShopID:  uuid.New(),
		OwnerID: uuid.New(),
		Origin:  mustPoint("12.905", "77.605"),
	}

	feed, err := f.svc.ListForVendor(ctx, params)
	if err != nil {
		t.Fatalf("ListForVendor: %v", err)
	}
	if len(feed) != 1 || feed[0].ID != bulk.ID {
		t.Fatalf("expected request within the buyer radius, got %d entries", len(feed))
	}

	params.RadiusKm = 0.5
	feed, err = f.svc.ListForVendor(ctx, params)
	if err != nil {
		t.Fatalf("ListForVendor: %v", err)
	}
	if len(feed) != 0 {
		t.Fatalf("expected supplied radius to narrow the feed, got %d entries", len(feed))
	}

	// A wide supplied radius never overrides the buyer's preferred radius.
	params.RadiusKm = 5000
	params.Origin = mustPoint("13.90", "78.60")
	feed, err = f.svc.ListForVendor(ctx, params)
	if err != nil {
		t.Fatalf("ListForVendor: %v", err)
	}
	if len(feed) != 0 {
		t.Fatalf("expected buyer radius to keep excluding distant vendors, got %d entries", len(feed))
	}
}
