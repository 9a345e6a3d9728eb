package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/scrapline/scrapline-backend/pkg/enums"
	"github.com/scrapline/scrapline-backend/pkg/types"
)

// BulkDraft is a pre-authorized (post-payment) bulk request awaiting
// submission. The authorized -> submitted transition is a storage-level
// conditional update so concurrent submissions yield at most one request.
type BulkDraft struct {
	ID          uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID     uuid.UUID         `gorm:"column:buyer_id;type:uuid;not null"`
	Payload     types.JSONMap     `gorm:"column:payload;type:jsonb"`
	Status      enums.DraftStatus `gorm:"column:status;type:draft_status;not null;default:'authorized'"`
	SubmittedAt *time.Time        `gorm:"column:submitted_at"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
