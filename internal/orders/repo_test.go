package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/scrapline/scrapline-backend/pkg/db/models"
	"github.com/scrapline/scrapline-backend/pkg/enums"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS purchase_orders (
  id TEXT PRIMARY KEY,
  bulk_request_id TEXT NOT NULL,
  commitment_id TEXT NOT NULL,
  buyer_id TEXT NOT NULL,
  shop_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'created',
  quantity_kg NUMERIC NOT NULL,
  line_items TEXT,
  cancel_reason TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedOrder(t *testing.T, repo Repository, bulkID, commitmentID uuid.UUID, status enums.OrderStatus) *models.PurchaseOrder {
	t.Helper()
	order := &models.PurchaseOrder{
		BulkRequestID: bulkID,
		CommitmentID:  commitmentID,
		BuyerID:       uuid.New(),
		ShopID:        uuid.New(),
		Status:        status,
		QuantityKg:    decimal.NewFromInt(100),
	}
	require.NoError(t, repo.Create(context.Background(), order))
	return order
}

func TestCancelForCommitmentSkipsFinalOrders(t *testing.T) {
	repo := NewRepository(setupOrdersTestDB(t))
	ctx := context.Background()
	bulkID := uuid.New()

	open := seedOrder(t, repo, bulkID, uuid.New(), enums.OrderStatusCreated)
	done := seedOrder(t, repo, bulkID, uuid.New(), enums.OrderStatusCompleted)

	affected, err := repo.CancelForCommitment(ctx, open.CommitmentID, "vendor removed", time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = repo.CancelForCommitment(ctx, done.CommitmentID, "vendor removed", time.Now())
	require.NoError(t, err)
	assert.Zero(t, affected)

	stored, err := repo.Find(ctx, open.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, stored.Status)
	require.NotNil(t, stored.CancelReason)
	assert.Equal(t, "vendor removed", *stored.CancelReason)

	stored, err = repo.Find(ctx, done.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, stored.Status)
}

func TestMarkCompletedByBulkRequestOnlyTouchesCreated(t *testing.T) {
	repo := NewRepository(setupOrdersTestDB(t))
	ctx := context.Background()
	bulkID := uuid.New()

	created := seedOrder(t, repo, bulkID, uuid.New(), enums.OrderStatusCreated)
	cancelled := seedOrder(t, repo, bulkID, uuid.New(), enums.OrderStatusCancelled)
	other := seedOrder(t, repo, uuid.New(), uuid.New(), enums.OrderStatusCreated)

	affected, err := repo.MarkCompletedByBulkRequest(ctx, bulkID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	stored, err := repo.Find(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCompleted, stored.Status)

	stored, err = repo.Find(ctx, cancelled.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, stored.Status)

	stored, err = repo.Find(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCreated, stored.Status)
}

func TestListByBulkRequestOrdersOldestFirst(t *testing.T) {
	repo := NewRepository(setupOrdersTestDB(t))
	ctx := context.Background()
	bulkID := uuid.New()

	first := seedOrder(t, repo, bulkID, uuid.New(), enums.OrderStatusCreated)
	second := seedOrder(t, repo, bulkID, uuid.New(), enums.OrderStatusCreated)
	seedOrder(t, repo, uuid.New(), uuid.New(), enums.OrderStatusCreated)

	list, err := repo.ListByBulkRequest(ctx, bulkID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)
}
