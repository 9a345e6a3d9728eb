package notify

import (
	"context"

	"github.com/google/uuid"
	"github.com/scrapline/scrapline-backend/pkg/enums"
	"github.com/scrapline/scrapline-backend/pkg/types"
)

// Message is one notification fanned out to a set of shops.
type Message struct {
	Recipients []uuid.UUID
	Type       enums.NotificationType
	Title      string
	Body       string
	Payload    types.JSONMap
}

// Notifier delivers a message to its recipients. Implementations own the
// channel (inbox rows, push, SMS); callers own the best-effort policy.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}
